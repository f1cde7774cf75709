package http

import (
	"net/http"

	"finledger/internal/core"
)

// budgetRequest uses pointer amounts so an omitted planned figure is
// distinguishable from an explicit zero and can be rejected.
type budgetRequest struct {
	Month           string      `json:"month"`
	PlannedIncome   *core.Money `json:"planned_income"`
	PlannedExpenses *core.Money `json:"planned_expenses"`
}

func (req budgetRequest) toBudget(userID int64) (*core.MonthlyBudget, error) {
	if req.PlannedIncome == nil {
		return nil, core.Invalidf("planned_income", "is required")
	}
	if req.PlannedExpenses == nil {
		return nil, core.Invalidf("planned_expenses", "is required")
	}
	return &core.MonthlyBudget{
		UserID:          userID,
		Month:           req.Month,
		PlannedIncome:   *req.PlannedIncome,
		PlannedExpenses: *req.PlannedExpenses,
	}, nil
}

// handleGetBudgets reconciles and returns the budget for ?month=YYYY-MM.
// A missing month parameter is a validation error; an absent budget is a 200
// with a null body, distinct from the 404 of unowned resources.
func (s *Server) handleGetBudgets(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)

	month := r.URL.Query().Get("month")
	if month == "" {
		s.respondError(w, r, core.Invalidf("month", "query parameter is required"))
		return
	}

	b, err := s.svc.Budgets.Fetch(r.Context(), id.UserID, month)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if b == nil {
		respondJSON(w, http.StatusOK, nil)
		return
	}
	respondJSON(w, http.StatusOK, b)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)

	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	b, err := req.toBudget(id.UserID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	created, err := s.svc.Budgets.Create(r.Context(), b)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)
	budgetID, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	b, err := req.toBudget(id.UserID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	b.ID = budgetID

	updated, err := s.svc.Budgets.UpdatePlans(r.Context(), b)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)
	budgetID, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := s.svc.Budgets.Delete(r.Context(), id.UserID, budgetID); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "budget deleted"})
}
