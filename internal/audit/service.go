package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit entries.
//
// It MUST be append-only. No Update/Delete methods are provided.

type Repository interface {
	Append(ctx context.Context, e Entry) error
	// List returns entries newest-first. limit <= 0 means no limit.
	List(ctx context.Context, limit int) ([]Entry, error)
}

// Service records the permanent audit trail of visit mutations.
//
// Callers should treat audit logging as best-effort: a failed append must
// not roll back the business mutation it describes.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEntry = errors.New("audit: invalid entry")

func (s *Service) Append(ctx context.Context, e Entry) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Category == "" {
		return ErrInvalidEntry
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// Log records a business action with the given actor label.
func (s *Service) Log(ctx context.Context, category Category, detail, actor string) error {
	return s.Append(ctx, Entry{
		Category: category,
		Detail:   detail,
		Actor:    actor,
	})
}

// List returns the newest-first audit trail for the log view.
func (s *Service) List(ctx context.Context, limit int) ([]Entry, error) {
	if s.repo == nil {
		return nil, errors.New("audit: repository not configured")
	}
	return s.repo.List(ctx, limit)
}
