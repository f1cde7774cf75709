package http

import (
	"net/http"

	"finledger/internal/core"
	"finledger/internal/services"
)

type goalRequest struct {
	Name         string     `json:"name"`
	TargetAmount core.Money `json:"target_amount"`
	Deadline     string     `json:"deadline"`
}

func (req goalRequest) toGoal(userID int64) (*core.Goal, error) {
	g := &core.Goal{
		UserID:       userID,
		Name:         req.Name,
		TargetAmount: req.TargetAmount,
	}
	if req.Deadline != "" {
		d, err := parseDate(req.Deadline)
		if err != nil {
			return nil, core.Invalidf("deadline", "must be YYYY-MM-DD")
		}
		g.Deadline = d
	}
	return g, nil
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)
	goals, err := s.svc.Goals.List(r.Context(), id.UserID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if goals == nil {
		goals = []services.GoalWithProgress{}
	}
	respondJSON(w, http.StatusOK, goals)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)

	var req goalRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	g, err := req.toGoal(id.UserID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	created, err := s.svc.Goals.Create(r.Context(), g)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)
	goalID, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var req goalRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	g, err := req.toGoal(id.UserID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	g.ID = goalID

	updated, err := s.svc.Goals.Update(r.Context(), g)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)
	goalID, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := s.svc.Goals.Delete(r.Context(), id.UserID, goalID); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "goal deleted"})
}

func (s *Server) handleAddGoalFunds(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)
	goalID, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var req struct {
		Amount core.Money `json:"amount"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	g, err := s.svc.Goals.AddFunds(r.Context(), id.UserID, goalID, req.Amount)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, g)
}
