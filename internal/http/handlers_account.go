package http

import (
	"net/http"

	"finledger/internal/core"
)

type accountRequest struct {
	BankName    string     `json:"bank_name"`
	AccountType string     `json:"account_type"`
	Balance     core.Money `json:"balance"`
	LastFour    string     `json:"last_four"`
	Color       string     `json:"color"`
}

func (req accountRequest) toAccount(userID int64) *core.BankAccount {
	return &core.BankAccount{
		UserID:      userID,
		BankName:    req.BankName,
		AccountType: req.AccountType,
		Balance:     req.Balance,
		LastFour:    req.LastFour,
		Color:       req.Color,
	}
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)
	accounts, err := s.svc.Accounts.List(r.Context(), id.UserID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if accounts == nil {
		accounts = []core.BankAccount{}
	}
	respondJSON(w, http.StatusOK, accounts)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)

	var req accountRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	created, err := s.svc.Accounts.Create(r.Context(), req.toAccount(id.UserID))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)
	accountID, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var req accountRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	a := req.toAccount(id.UserID)
	a.ID = accountID

	updated, err := s.svc.Accounts.Update(r.Context(), a)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)
	accountID, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := s.svc.Accounts.Delete(r.Context(), id.UserID, accountID); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "account deleted"})
}
