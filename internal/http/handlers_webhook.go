package http

import (
	"crypto/subtle"
	"net/http"

	"finledger/internal/core"
)

const webhookSecretHeader = "X-Webhook-Secret"

type billingEventRequest struct {
	EventID string `json:"event_id"`
	Email   string `json:"email"`
	Plan    string `json:"plan"`
}

// handleBillingWebhook applies a plan change from the billing provider.
// Authentication is a shared secret, not a user session, and redelivered
// events are acknowledged without being applied twice.
func (s *Server) handleBillingWebhook(w http.ResponseWriter, r *http.Request) {
	secret := r.Header.Get(webhookSecretHeader)
	if subtle.ConstantTimeCompare([]byte(secret), []byte(s.webhookSecret)) != 1 {
		s.respondError(w, r, core.ErrUnauthenticated)
		return
	}

	var req billingEventRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	plan, err := core.ParsePlan(req.Plan)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	applied, err := s.svc.Billing.Apply(r.Context(), req.EventID, req.Email, plan)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"applied": applied})
}
