package usecase

import (
	"context"

	"github.com/akashdesaidev/Threadspire/internal/domain"
)

// ThreadRepository is the thread side of the entity store.
type ThreadRepository interface {
	Get(ctx context.Context, id string) (domain.Thread, error)
	// Find returns matching threads in the given order; limit <= 0 means all.
	Find(ctx context.Context, filter domain.ThreadFilter, sort domain.ThreadSort, offset, limit int) ([]domain.Thread, error)
	Count(ctx context.Context, filter domain.ThreadFilter) (int64, error)
	Create(ctx context.Context, thread domain.Thread) (domain.Thread, error)
	// Save replaces the document when its Version still matches the stored
	// one and returns domain.ErrStaleWrite otherwise.
	Save(ctx context.Context, thread domain.Thread) (domain.Thread, error)
	// Increment adds delta to a counter atomically, never going below zero.
	Increment(ctx context.Context, id string, counter domain.Counter, delta int64) error
	Delete(ctx context.Context, id string) error
}

// UserRepository is the user side of the entity store.
type UserRepository interface {
	Get(ctx context.Context, id string) (domain.User, error)
	Find(ctx context.Context, filter domain.UserFilter) ([]domain.User, error)
	Create(ctx context.Context, user domain.User) (domain.User, error)
	// Save follows the same version contract as ThreadRepository.Save.
	Save(ctx context.Context, user domain.User) (domain.User, error)
}

// AnalyticsCache keeps recently computed summaries.
type AnalyticsCache interface {
	Load(ctx context.Context, userID string) (*domain.Analytics, error)
	Store(ctx context.Context, userID string, analytics domain.Analytics) error
	Invalidate(ctx context.Context, userID string) error
}

// ThreadRemovalHandler is notified before a thread document is deleted.
type ThreadRemovalHandler interface {
	HandleThreadRemoved(ctx context.Context, cmd domain.ThreadRemoved) error
}

// ProfileChangeHandler is notified after a user's profile was saved.
type ProfileChangeHandler interface {
	HandleProfileChanged(ctx context.Context, userID string) error
}
