package services

import (
	"context"
	"strings"

	"finledger/internal/core"
	"finledger/internal/log"
	"finledger/internal/storage"
)

// UserService exposes profile reads and preference updates.
type UserService struct {
	store  storage.UserStore
	logger *log.Logger
}

func NewUserService(store storage.UserStore, logger *log.Logger) *UserService {
	return &UserService{store: store, logger: logger.WithComponent(log.ComponentApp)}
}

func (s *UserService) Profile(ctx context.Context, userID int64) (*core.User, error) {
	return s.store.UserByID(ctx, userID)
}

// UpdatePreferences validates and persists display settings.
func (s *UserService) UpdatePreferences(ctx context.Context, userID int64, p core.Preferences) (*core.User, error) {
	if strings.TrimSpace(p.Currency) == "" {
		return nil, core.Invalidf("currency", "must not be empty")
	}
	switch p.Theme {
	case "light", "dark":
	default:
		return nil, core.Invalidf("theme", "must be light or dark")
	}
	if err := s.store.UpdatePreferences(ctx, userID, p); err != nil {
		return nil, err
	}
	return s.store.UserByID(ctx, userID)
}
