// Package memstore is an in-process Entity Store. It backs the memory
// storage backend and the use case tests.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/akashdesaidev/Threadspire/internal/domain"
)

type storedThread struct {
	thread domain.Thread
	seq    int64
}

type ThreadRepository struct {
	mu      sync.RWMutex
	threads map[string]*storedThread
	seq     int64
}

func NewThreadRepository() *ThreadRepository {
	return &ThreadRepository{threads: map[string]*storedThread{}}
}

func (r *ThreadRepository) Get(_ context.Context, id string) (domain.Thread, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.threads[id]
	if !ok {
		return domain.Thread{}, domain.NotFoundError{Resource: "thread"}
	}
	return st.thread.Clone(), nil
}

func (r *ThreadRepository) Find(_ context.Context, filter domain.ThreadFilter, order domain.ThreadSort, offset, limit int) ([]domain.Thread, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := r.match(filter)
	sortThreads(matched, order)

	if offset >= len(matched) {
		return []domain.Thread{}, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}

	out := make([]domain.Thread, len(matched))
	for i, st := range matched {
		out[i] = st.thread.Clone()
	}
	return out, nil
}

func (r *ThreadRepository) Count(_ context.Context, filter domain.ThreadFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return int64(len(r.match(filter))), nil
}

func (r *ThreadRepository) Create(_ context.Context, thread domain.Thread) (domain.Thread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.threads[thread.ID]; exists {
		return domain.Thread{}, domain.ConflictError{Reason: "thread already exists"}
	}
	r.seq++
	thread.Version = 1
	r.threads[thread.ID] = &storedThread{thread: thread.Clone(), seq: r.seq}
	return thread.Clone(), nil
}

func (r *ThreadRepository) Save(_ context.Context, thread domain.Thread) (domain.Thread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.threads[thread.ID]
	if !ok {
		return domain.Thread{}, domain.NotFoundError{Resource: "thread"}
	}
	if st.thread.Version != thread.Version {
		return domain.Thread{}, domain.ErrStaleWrite
	}
	// Counters belong to Increment; a save never overwrites them.
	thread.BookmarkCount = st.thread.BookmarkCount
	thread.ForkCount = st.thread.ForkCount
	thread.Version++
	st.thread = thread.Clone()
	return thread.Clone(), nil
}

func (r *ThreadRepository) Increment(_ context.Context, id string, counter domain.Counter, delta int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.threads[id]
	if !ok {
		return domain.NotFoundError{Resource: "thread"}
	}
	var field *int64
	switch counter {
	case domain.CounterBookmarks:
		field = &st.thread.BookmarkCount
	case domain.CounterForks:
		field = &st.thread.ForkCount
	default:
		return domain.ValidationError{Field: "counter", Reason: "unknown counter " + string(counter)}
	}
	*field = max(*field+delta, 0)
	return nil
}

func (r *ThreadRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.threads[id]; !ok {
		return domain.NotFoundError{Resource: "thread"}
	}
	delete(r.threads, id)
	return nil
}

func (r *ThreadRepository) match(filter domain.ThreadFilter) []*storedThread {
	var ids map[string]struct{}
	if filter.IDs != nil {
		ids = make(map[string]struct{}, len(filter.IDs))
		for _, id := range filter.IDs {
			ids[id] = struct{}{}
		}
	}

	out := []*storedThread{}
	for _, st := range r.threads {
		t := st.thread
		if ids != nil {
			if _, ok := ids[t.ID]; !ok {
				continue
			}
		}
		if filter.AuthorID != "" && t.AuthorID != filter.AuthorID {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.VisibleTo != "" && filter.Status == "" && !t.IsPublished() && t.AuthorID != filter.VisibleTo {
			continue
		}
		if filter.OriginalThreadID != "" && !equals(t.OriginalThreadID, filter.OriginalThreadID) {
			continue
		}
		if filter.OriginalAuthorID != "" && !equals(t.OriginalAuthorID, filter.OriginalAuthorID) {
			continue
		}
		if filter.SupersedesID != "" && !equals(t.SupersedesThreadID, filter.SupersedesID) {
			continue
		}
		if filter.CreatedSince != nil && t.CreatedAt.Before(*filter.CreatedSince) {
			continue
		}
		if len(filter.Tags) > 0 && !matchTags(t.Tags, filter.Tags, filter.MatchAllTags) {
			continue
		}
		out = append(out, st)
	}
	return out
}

func sortThreads(threads []*storedThread, order domain.ThreadSort) {
	newest := func(a, b *storedThread) bool {
		if !a.thread.CreatedAt.Equal(b.thread.CreatedAt) {
			return a.thread.CreatedAt.After(b.thread.CreatedAt)
		}
		return a.seq > b.seq
	}
	sort.Slice(threads, func(i, j int) bool {
		a, b := threads[i], threads[j]
		switch order {
		case domain.SortOldest:
			return a.seq < b.seq
		case domain.SortBookmarks:
			if a.thread.BookmarkCount != b.thread.BookmarkCount {
				return a.thread.BookmarkCount > b.thread.BookmarkCount
			}
		case domain.SortForks:
			if a.thread.ForkCount != b.thread.ForkCount {
				return a.thread.ForkCount > b.thread.ForkCount
			}
		}
		return newest(a, b)
	})
}

func matchTags(have, want []string, all bool) bool {
	set := make(map[string]struct{}, len(have))
	for _, tag := range have {
		set[tag] = struct{}{}
	}
	for _, tag := range want {
		_, ok := set[tag]
		if all && !ok {
			return false
		}
		if !all && ok {
			return true
		}
	}
	return all
}

func equals(p *string, v string) bool {
	return p != nil && *p == v
}
