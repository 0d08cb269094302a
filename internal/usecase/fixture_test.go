package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/akashdesaidev/Threadspire/internal/domain"
	"github.com/akashdesaidev/Threadspire/internal/infra/memstore"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}

// Now advances the clock by a minute on every call so that documents
// created one after another never share a timestamp.
func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}

type recordingCache struct {
	mu          sync.Mutex
	stored      map[string]domain.Analytics
	invalidated []string
}

func newRecordingCache() *recordingCache {
	return &recordingCache{stored: map[string]domain.Analytics{}}
}

func (c *recordingCache) Load(ctx context.Context, userID string) (*domain.Analytics, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.stored[userID]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (c *recordingCache) Store(ctx context.Context, userID string, analytics domain.Analytics) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stored[userID] = analytics
	return nil
}

func (c *recordingCache) Invalidate(ctx context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.stored, userID)
	c.invalidated = append(c.invalidated, userID)
	return nil
}

func (c *recordingCache) wasInvalidated(userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range c.invalidated {
		if id == userID {
			return true
		}
	}
	return false
}

// staleThreads loses the first failures saves to a concurrent writer.
type staleThreads struct {
	*memstore.ThreadRepository
	failures int
}

func (s *staleThreads) Save(ctx context.Context, thread domain.Thread) (domain.Thread, error) {
	if s.failures > 0 {
		s.failures--
		return domain.Thread{}, domain.ErrStaleWrite
	}
	return s.ThreadRepository.Save(ctx, thread)
}

// brokenUsers fails every save of one user.
type brokenUsers struct {
	*memstore.UserRepository
	failFor string
}

func (b *brokenUsers) Save(ctx context.Context, user domain.User) (domain.User, error) {
	if user.ID == b.failFor {
		return domain.User{}, errors.New("connection reset")
	}
	return b.UserRepository.Save(ctx, user)
}

type env struct {
	threads *memstore.ThreadRepository
	users   *memstore.UserRepository
	cache   *recordingCache
	clock   *testClock

	thread    *ThreadUsecase
	reaction  *ReactionUsecase
	bookmark  *BookmarkUsecase
	user      *UserUsecase
	analytics *AnalyticsUsecase
}

func newEnv(t *testing.T) *env {
	t.Helper()

	e := &env{
		threads: memstore.NewThreadRepository(),
		users:   memstore.NewUserRepository(),
		cache:   newRecordingCache(),
		clock:   newTestClock(),
	}
	e.bookmark = NewBookmarkUsecase(e.threads, e.users, e.cache)
	e.bookmark.now = e.clock.Now
	e.thread = NewThreadUsecase(e.threads, e.users, e.cache, e.bookmark)
	e.thread.now = e.clock.Now
	e.reaction = NewReactionUsecase(e.threads, e.cache)
	e.reaction.now = e.clock.Now
	e.analytics = NewAnalyticsUsecase(e.threads, e.users, e.cache)
	e.analytics.now = e.clock.Now
	e.user = NewUserUsecase(e.users, e.analytics)
	e.user.now = e.clock.Now
	return e
}

func (e *env) register(t *testing.T, id, name string) domain.User {
	t.Helper()
	u, err := e.user.Register(context.Background(), id, name, id+"@example.com")
	if err != nil {
		t.Fatalf("register %s: %v", id, err)
	}
	return u
}

func (e *env) create(t *testing.T, author, title string, status domain.ThreadStatus, contents ...string) domain.Thread {
	t.Helper()
	segments := make([]SegmentInput, len(contents))
	for i, c := range contents {
		segments[i] = SegmentInput{Content: c}
	}
	thread, err := e.thread.Create(context.Background(), author, CreateThreadInput{
		Title:    title,
		Segments: segments,
		Status:   string(status),
	})
	if err != nil {
		t.Fatalf("create %q: %v", title, err)
	}
	return thread
}

func (e *env) fork(t *testing.T, author string, source domain.Thread, status domain.ThreadStatus) domain.Thread {
	t.Helper()
	id := source.ID
	thread, err := e.thread.Create(context.Background(), author, CreateThreadInput{
		Title:            source.Title + " (fork)",
		Segments:         []SegmentInput{{Content: "forked content"}},
		Status:           string(status),
		OriginalThreadID: &id,
	})
	if err != nil {
		t.Fatalf("fork %s: %v", source.ID, err)
	}
	return thread
}

func (e *env) get(t *testing.T, id string) domain.Thread {
	t.Helper()
	thread, err := e.threads.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get thread %s: %v", id, err)
	}
	return thread
}

func (e *env) react(t *testing.T, user string, thread domain.Thread, segment int, emoji domain.Emoji) ReactionResult {
	t.Helper()
	res, err := e.reaction.React(context.Background(), user, thread.ID, thread.Segments[segment].ID, string(emoji))
	if err != nil {
		t.Fatalf("react %s on %s: %v", emoji, thread.ID, err)
	}
	return res
}

func ptr[T any](v T) *T {
	return &v
}
