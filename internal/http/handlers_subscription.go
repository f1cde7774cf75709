package http

import (
	"net/http"

	"finledger/internal/core"
)

type subscriptionRequest struct {
	Name        string     `json:"name"`
	Amount      core.Money `json:"amount"`
	Cycle       string     `json:"cycle"`
	NextBilling string     `json:"next_billing"`
	Category    string     `json:"category"`
	Active      bool       `json:"active"`
}

func (req subscriptionRequest) toSubscription(userID int64) (*core.Subscription, error) {
	cycle, err := core.ParseBillingCycle(req.Cycle)
	if err != nil {
		return nil, err
	}
	next, err := parseDate(req.NextBilling)
	if err != nil {
		return nil, core.Invalidf("next_billing", "must be YYYY-MM-DD")
	}
	return &core.Subscription{
		UserID:      userID,
		Name:        req.Name,
		Amount:      req.Amount,
		Cycle:       cycle,
		NextBilling: next,
		Category:    req.Category,
		Active:      req.Active,
	}, nil
}

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)
	subs, err := s.svc.Subscriptions.List(r.Context(), id.UserID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if subs == nil {
		subs = []core.Subscription{}
	}
	respondJSON(w, http.StatusOK, subs)
}

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)

	var req subscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	sub, err := req.toSubscription(id.UserID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	created, err := s.svc.Subscriptions.Create(r.Context(), sub)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateSubscription(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)
	subID, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var req subscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	sub, err := req.toSubscription(id.UserID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	sub.ID = subID

	updated, err := s.svc.Subscriptions.Update(r.Context(), sub)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteSubscription(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)
	subID, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := s.svc.Subscriptions.Delete(r.Context(), id.UserID, subID); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "subscription cancelled"})
}

func (s *Server) handleSubscriptionMonthlyCost(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)
	cost, err := s.svc.Subscriptions.MonthlyCost(r.Context(), id.UserID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]core.Money{"monthly_cost": cost})
}
