// Package service provides business logic for job applications, accounts and
// cover letters, delegating persistence to repository interfaces.
package service

import (
	"context"
	"fmt"

	"github.com/atinyakov/JobTracker/internal/models"
)

// ApplicationRepository defines the persistence operations needed by ApplicationService.
type ApplicationRepository interface {
	// ListByOwner returns the owner's applications, newest first.
	ListByOwner(ctx context.Context, userID int64) ([]models.Application, error)
	// GetByID fetches one application owned by userID.
	GetByID(ctx context.Context, userID, id int64) (*models.Application, error)
	// Create inserts a new application.
	Create(ctx context.Context, userID int64, n models.NewApplication) (*models.Application, error)
	// UpdateFields writes the supplied fields and returns the persisted row.
	UpdateFields(ctx context.Context, userID, id int64, patch models.ApplicationPatch) (*models.Application, error)
	// Delete removes one application.
	Delete(ctx context.Context, userID, id int64) error
	// CountByStatus aggregates the owner's applications per status.
	CountByStatus(ctx context.Context, userID int64) (map[models.Status]int, error)
}

// ApplicationService implements the record store operations.
type ApplicationService struct {
	repo ApplicationRepository
}

// NewApplicationService constructs an ApplicationService over repo.
func NewApplicationService(repo ApplicationRepository) *ApplicationService {
	return &ApplicationService{repo: repo}
}

func requireOwner(userID int64) error {
	if userID <= 0 {
		return fmt.Errorf("%w: user id required", models.ErrValidation)
	}
	return nil
}

// List returns every application owned by userID, newest first.
func (s *ApplicationService) List(ctx context.Context, userID int64) ([]models.Application, error) {
	if err := requireOwner(userID); err != nil {
		return nil, err
	}
	return s.repo.ListByOwner(ctx, userID)
}

// Get returns one application owned by userID.
func (s *ApplicationService) Get(ctx context.Context, userID, id int64) (*models.Application, error) {
	if err := requireOwner(userID); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, userID, id)
}

// Create validates n, applies defaults and stores it.
func (s *ApplicationService) Create(ctx context.Context, userID int64, n models.NewApplication) (*models.Application, error) {
	if err := requireOwner(userID); err != nil {
		return nil, err
	}
	if err := n.Normalize(); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, userID, n)
}

// Update applies a partial update. The status, when present, must belong to
// the closed set; any casing is accepted and stored canonically. Records the
// caller does not own are reported as not found.
func (s *ApplicationService) Update(ctx context.Context, userID, id int64, patch models.ApplicationPatch) (*models.Application, error) {
	if err := requireOwner(userID); err != nil {
		return nil, err
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	// A single salary bound is checked against the stored one by the store,
	// in the same statement as the write.
	return s.repo.UpdateFields(ctx, userID, id, patch)
}

// Delete removes one application owned by userID.
func (s *ApplicationService) Delete(ctx context.Context, userID, id int64) error {
	if err := requireOwner(userID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, userID, id)
}

// Stats returns the total and per-status counts for userID. Every status is
// present in the result, zero when unused.
func (s *ApplicationService) Stats(ctx context.Context, userID int64) (*models.Stats, error) {
	if err := requireOwner(userID); err != nil {
		return nil, err
	}
	counts, err := s.repo.CountByStatus(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats := &models.Stats{ByStatus: make(map[models.Status]int, len(models.Statuses))}
	for _, st := range models.Statuses {
		stats.ByStatus[st] = counts[st]
	}
	for _, n := range counts {
		stats.Total += n
	}
	return stats, nil
}
