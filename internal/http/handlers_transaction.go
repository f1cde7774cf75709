package http

import (
	"net/http"
	"time"

	"finledger/internal/core"
)

type transactionRequest struct {
	Type           string     `json:"type"`
	Amount         core.Money `json:"amount"`
	Category       string     `json:"category"`
	Description    string     `json:"description"`
	Date           string     `json:"date"`
	Recurring      bool       `json:"recurring"`
	Frequency      string     `json:"frequency"`
	NextOccurrence string     `json:"next_occurrence"`
}

func (req transactionRequest) toTransaction(userID int64) (*core.Transaction, error) {
	typ, err := core.ParseTransactionType(req.Type)
	if err != nil {
		return nil, err
	}

	date, err := parseDate(req.Date)
	if err != nil {
		return nil, core.Invalidf("date", "must be YYYY-MM-DD")
	}

	t := &core.Transaction{
		UserID:      userID,
		Type:        typ,
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
		Date:        date,
		Recurring:   req.Recurring,
	}

	if req.Recurring {
		cycle, err := core.ParseBillingCycle(req.Frequency)
		if err != nil {
			return nil, err
		}
		next, err := parseDate(req.NextOccurrence)
		if err != nil {
			return nil, core.Invalidf("next_occurrence", "must be YYYY-MM-DD")
		}
		t.Frequency = cycle
		t.NextOccurrence = next
	}

	return t, nil
}

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, time.UTC)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)
	txs, err := s.svc.Transactions.List(r.Context(), id.UserID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	respondJSON(w, http.StatusOK, txs)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)

	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	t, err := req.toTransaction(id.UserID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	created, err := s.svc.Transactions.Create(r.Context(), t)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)
	txID, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	t, err := s.svc.Transactions.Get(r.Context(), id.UserID, txID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, t)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)
	txID, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	t, err := req.toTransaction(id.UserID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	t.ID = txID

	updated, err := s.svc.Transactions.Update(r.Context(), t)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)
	txID, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := s.svc.Transactions.Delete(r.Context(), id.UserID, txID); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "transaction deleted"})
}
