package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/akashdesaidev/Threadspire/internal/domain"
)

type UserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: map[string]domain.User{}}
}

func (r *UserRepository) Get(_ context.Context, id string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return domain.User{}, domain.NotFoundError{Resource: "user"}
	}
	return u.Clone(), nil
}

// Find returns matching users ordered by id.
func (r *UserRepository) Find(_ context.Context, filter domain.UserFilter) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []domain.User{}
	for _, u := range r.users {
		if filter.ReferencesThread != "" && !references(u, filter.ReferencesThread) {
			continue
		}
		out = append(out, u.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *UserRepository) Create(_ context.Context, user domain.User) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[user.ID]; exists {
		return domain.User{}, domain.ConflictError{Reason: "user already exists"}
	}
	for _, u := range r.users {
		if u.Email == user.Email {
			return domain.User{}, domain.ConflictError{Reason: "email already registered"}
		}
	}
	user.Version = 1
	r.users[user.ID] = user.Clone()
	return user.Clone(), nil
}

func (r *UserRepository) Save(_ context.Context, user domain.User) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[user.ID]
	if !ok {
		return domain.User{}, domain.NotFoundError{Resource: "user"}
	}
	if stored.Version != user.Version {
		return domain.User{}, domain.ErrStaleWrite
	}
	user.Version++
	r.users[user.ID] = user.Clone()
	return user.Clone(), nil
}

func references(u domain.User, threadID string) bool {
	if u.HasBookmark(threadID) {
		return true
	}
	return u.CollectionOf(threadID) != nil
}
