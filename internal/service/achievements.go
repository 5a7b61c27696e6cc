package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/and161185/trophycase/internal/errs"
	"github.com/and161185/trophycase/internal/model"
	"github.com/and161185/trophycase/internal/repository"
)

// AchievementService exposes the catalog and per-user unlocks.
type AchievementService interface {
	// ListForViewer returns the catalog with unlock flags for the viewer.
	ListForViewer(ctx context.Context, viewer Viewer) ([]model.AchievementStatus, error)
	// Unlock grants the named achievement; false means nothing changed.
	Unlock(ctx context.Context, viewer Viewer, name string) (bool, error)
	// Status returns table sizes for diagnostics.
	Status(ctx context.Context) (model.DBStatus, error)
}

// AchievementStore is the slice of the persistence layer the service needs.
type AchievementStore interface {
	repository.AchievementRepository
	repository.StatusRepository
}

type AchievementServiceImpl struct {
	repo AchievementStore
}

// NewAchievementService constructs AchievementService over a store.
func NewAchievementService(repo AchievementStore) *AchievementServiceImpl {
	return &AchievementServiceImpl{repo: repo}
}

// ListForViewer returns every achievement. Anonymous viewers see all of them
// locked and never touch the unlock table.
func (s *AchievementServiceImpl) ListForViewer(ctx context.Context, viewer Viewer) ([]model.AchievementStatus, error) {
	if viewer.Authenticated() {
		return s.repo.ListUserAchievements(ctx, viewer.UserID)
	}
	list, err := s.repo.ListAchievements(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.AchievementStatus, len(list))
	for i, a := range list {
		out[i] = model.AchievementStatus{Achievement: a}
	}
	return out, nil
}

// Unlock requires an authenticated viewer and delegates to the idempotent insert.
func (s *AchievementServiceImpl) Unlock(ctx context.Context, viewer Viewer, name string) (bool, error) {
	if !viewer.Authenticated() {
		return false, errs.ErrUnauthenticated
	}
	if strings.TrimSpace(name) == "" {
		return false, fmt.Errorf("%w: achievement name is required", errs.ErrValidation)
	}
	return s.repo.UnlockAchievement(ctx, viewer.UserID, name)
}

// Status passes diagnostics through.
func (s *AchievementServiceImpl) Status(ctx context.Context) (model.DBStatus, error) {
	return s.repo.Status(ctx)
}
