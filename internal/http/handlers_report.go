package http

import (
	"net/http"
	"time"

	"finledger/internal/core"
)

type reportResponse struct {
	Month     string               `json:"month"`
	Summary   core.Summary         `json:"summary"`
	Breakdown []core.CategoryShare `json:"breakdown"`
	Trend     []core.MonthBucket   `json:"trend"`
}

// handleReportSummary combines the monthly summary, the category breakdown
// and the trailing trend in one response. Defaults to the current month.
func (s *Server) handleReportSummary(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)

	month := r.URL.Query().Get("month")
	if month == "" {
		month = core.MonthKey(time.Now().UTC())
	}

	summary, err := s.svc.Reports.MonthlySummary(r.Context(), id.UserID, month)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	breakdown, err := s.svc.Reports.CategoryBreakdown(r.Context(), id.UserID, month)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	trend, err := s.svc.Reports.Trend(r.Context(), id.UserID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if breakdown == nil {
		breakdown = []core.CategoryShare{}
	}
	respondJSON(w, http.StatusOK, reportResponse{
		Month:     month,
		Summary:   summary,
		Breakdown: breakdown,
		Trend:     trend,
	})
}
