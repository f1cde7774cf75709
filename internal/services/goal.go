package services

import (
	"context"
	"time"

	"finledger/internal/core"
	"finledger/internal/log"
	"finledger/internal/storage"
)

// GoalWithProgress is a goal plus its derived display state.
type GoalWithProgress struct {
	core.Goal
	Progress core.GoalProgress `json:"progress"`
}

// GoalService manages savings goals. Progress is computed against the user's
// global available balance, so it is derived fresh on every read and never
// stored.
type GoalService struct {
	store  storage.Store
	logger *log.Logger
	now    func() time.Time
}

func NewGoalService(store storage.Store, logger *log.Logger) *GoalService {
	return &GoalService{
		store:  store,
		logger: logger.WithComponent(log.ComponentGoal),
		now:    time.Now,
	}
}

// Create validates and persists a goal.
func (s *GoalService) Create(ctx context.Context, g *core.Goal) (*GoalWithProgress, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.CreateGoal(ctx, g); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "goal created",
		log.FieldUserID, g.UserID,
		log.FieldGoalID, g.ID)
	return s.withProgress(ctx, g)
}

// List returns all goals with progress. The available balance is computed
// once and shared by every goal in the response.
func (s *GoalService) List(ctx context.Context, userID int64) ([]GoalWithProgress, error) {
	goals, err := s.store.GoalsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	available, err := s.availableBalance(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]GoalWithProgress, 0, len(goals))
	for _, g := range goals {
		out = append(out, GoalWithProgress{
			Goal:     g,
			Progress: core.Progress(g, available, now),
		})
	}
	return out, nil
}

// Get returns one goal with progress.
func (s *GoalService) Get(ctx context.Context, userID, id int64) (*GoalWithProgress, error) {
	g, err := s.store.GoalByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.withProgress(ctx, g)
}

// Update replaces a goal's name, target and deadline. CurrentAmount only
// moves through AddFunds.
func (s *GoalService) Update(ctx context.Context, g *core.Goal) (*GoalWithProgress, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.UpdateGoal(ctx, g); err != nil {
		return nil, err
	}
	updated, err := s.store.GoalByID(ctx, g.UserID, g.ID)
	if err != nil {
		return nil, err
	}
	return s.withProgress(ctx, updated)
}

// Delete removes a goal.
func (s *GoalService) Delete(ctx context.Context, userID, id int64) error {
	return s.store.DeleteGoal(ctx, userID, id)
}

// AddFunds increments the goal's tracked amount atomically in the store.
func (s *GoalService) AddFunds(ctx context.Context, userID, id int64, amount core.Money) (*GoalWithProgress, error) {
	if amount.Cents <= 0 {
		return nil, core.Invalidf("amount", "must be a positive amount")
	}
	g, err := s.store.AddGoalFunds(ctx, userID, id, amount.Cents)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "goal funds added",
		log.FieldUserID, userID,
		log.FieldGoalID, id,
		log.FieldAmountCents, amount.Cents)
	return s.withProgress(ctx, g)
}

func (s *GoalService) withProgress(ctx context.Context, g *core.Goal) (*GoalWithProgress, error) {
	available, err := s.availableBalance(ctx, g.UserID)
	if err != nil {
		return nil, err
	}
	return &GoalWithProgress{
		Goal:     *g,
		Progress: core.Progress(*g, available, s.now()),
	}, nil
}

func (s *GoalService) availableBalance(ctx context.Context, userID int64) (core.Money, error) {
	txs, err := s.store.TransactionsByUser(ctx, userID)
	if err != nil {
		return core.Money{}, err
	}
	return core.AvailableBalance(txs), nil
}
