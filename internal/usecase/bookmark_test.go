package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/akashdesaidev/Threadspire/internal/domain"
	"github.com/akashdesaidev/Threadspire/internal/infra/memstore"
)

// vanishingThreads deletes a thread right before its counter is touched,
// as a concurrent Delete would.
type vanishingThreads struct {
	*memstore.ThreadRepository
}

func (v *vanishingThreads) Increment(ctx context.Context, id string, counter domain.Counter, delta int64) error {
	v.ThreadRepository.Delete(ctx, id)
	return v.ThreadRepository.Increment(ctx, id, counter, delta)
}

func TestToggleBookmarkTwiceRestoresState(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.register(t, "bob", "Bob")
	thread := e.create(t, "alice", "t", domain.StatusPublished, "x")

	on, err := e.bookmark.ToggleBookmark(ctx, "bob", thread.ID)
	if err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if !on.Bookmarked || on.BookmarkCount != 1 {
		t.Fatalf("expected bookmarked with count 1 got %+v", on)
	}
	off, err := e.bookmark.ToggleBookmark(ctx, "bob", thread.ID)
	if err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if off.Bookmarked || off.BookmarkCount != 0 {
		t.Fatalf("expected original state got %+v", off)
	}
	bob, _ := e.users.Get(ctx, "bob")
	if len(bob.Bookmarks) != 0 {
		t.Fatalf("expected no bookmarks got %v", bob.Bookmarks)
	}
}

func TestToggleBookmarkRules(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.register(t, "bob", "Bob")
	draft := e.create(t, "alice", "draft", domain.StatusDraft, "x")

	if _, err := e.bookmark.ToggleBookmark(ctx, "bob", draft.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for drafts got %v", err)
	}
	if _, err := e.bookmark.ToggleBookmark(ctx, "bob", "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found got %v", err)
	}
	if _, err := e.bookmark.ToggleBookmark(ctx, "", draft.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for anonymous got %v", err)
	}
}

func TestUnbookmarkRemovesFromCollections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.register(t, "bob", "Bob")
	thread := e.create(t, "alice", "t", domain.StatusPublished, "x")

	e.bookmark.ToggleBookmark(ctx, "bob", thread.ID)
	if _, err := e.bookmark.CreateCollection(ctx, "bob", "reading"); err != nil {
		t.Fatalf("create collection: %v", err)
	}
	if _, err := e.bookmark.AddToCollection(ctx, "bob", "reading", thread.ID); err != nil {
		t.Fatalf("add to collection: %v", err)
	}

	e.bookmark.ToggleBookmark(ctx, "bob", thread.ID)

	bob, _ := e.users.Get(ctx, "bob")
	for _, c := range bob.Collections {
		if c.Contains(thread.ID) {
			t.Fatalf("collection %s still contains the thread", c.Name)
		}
	}
}

func TestCollectionMembershipIsExclusive(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.register(t, "bob", "Bob")
	thread := e.create(t, "alice", "t", domain.StatusPublished, "x")
	unbookmarked := e.create(t, "alice", "u", domain.StatusPublished, "x")

	e.bookmark.ToggleBookmark(ctx, "bob", thread.ID)
	e.bookmark.CreateCollection(ctx, "bob", "first")
	e.bookmark.CreateCollection(ctx, "bob", "second")

	collection, err := e.bookmark.AddToCollection(ctx, "bob", "first", thread.ID)
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if !collection.Contains(thread.ID) {
		t.Fatalf("expected the returned collection to hold the thread")
	}

	cases := []struct {
		name       string
		collection string
		threadID   string
		want       error
	}{
		{"same collection", "first", thread.ID, domain.ErrConflict},
		{"other collection", "second", thread.ID, domain.ErrConflict},
		{"not bookmarked", "second", unbookmarked.ID, domain.ErrConflict},
		{"missing collection", "third", thread.ID, domain.ErrNotFound},
		{"missing thread", "second", "missing", domain.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.bookmark.AddToCollection(ctx, "bob", tc.collection, tc.threadID)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v got %v", tc.want, err)
			}
		})
	}

	// Moving requires an explicit removal first.
	if _, err := e.bookmark.RemoveFromCollection(ctx, "bob", "first", thread.ID); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if _, err := e.bookmark.AddToCollection(ctx, "bob", "second", thread.ID); err != nil {
		t.Fatalf("move failed: %v", err)
	}
}

func TestCollectionCreateAndRemoveErrors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.register(t, "bob", "Bob")

	if _, err := e.bookmark.CreateCollection(ctx, "bob", "reading"); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := e.bookmark.CreateCollection(ctx, "bob", "reading"); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict got %v", err)
	}
	if _, err := e.bookmark.CreateCollection(ctx, "bob", " "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation got %v", err)
	}
	if _, err := e.bookmark.RemoveFromCollection(ctx, "bob", "reading", "t1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for a non-member got %v", err)
	}
	if _, err := e.bookmark.RemoveFromCollection(ctx, "bob", "missing", "t1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for a missing collection got %v", err)
	}
}

func TestCollectionsArePrivate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.register(t, "bob", "Bob")
	kept := e.create(t, "alice", "kept", domain.StatusPublished, "x")

	e.bookmark.ToggleBookmark(ctx, "bob", kept.ID)
	e.bookmark.CreateCollection(ctx, "bob", "reading")
	e.bookmark.AddToCollection(ctx, "bob", "reading", kept.ID)

	if _, err := e.bookmark.Collections(ctx, "alice", "bob"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden got %v", err)
	}

	views, err := e.bookmark.Collections(ctx, "bob", "bob")
	if err != nil {
		t.Fatalf("collections failed: %v", err)
	}
	if len(views) != 1 || len(views[0].Threads) != 1 || views[0].Threads[0].Title != "kept" {
		t.Fatalf("unexpected collections %+v", views)
	}
}

func TestListBookmarks(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.register(t, "bob", "Bob")
	older := e.create(t, "alice", "older", domain.StatusPublished, "x")
	newer := e.create(t, "alice", "newer", domain.StatusPublished, "x")
	e.create(t, "alice", "ignored", domain.StatusPublished, "x")

	threads, page, err := e.bookmark.ListBookmarks(ctx, "bob", 1, 10)
	if err != nil || len(threads) != 0 || page.Total != 0 {
		t.Fatalf("expected no bookmarks got %d (%v)", len(threads), err)
	}

	e.bookmark.ToggleBookmark(ctx, "bob", older.ID)
	e.bookmark.ToggleBookmark(ctx, "bob", newer.ID)

	threads, page, err = e.bookmark.ListBookmarks(ctx, "bob", 1, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if page.Total != 2 || threads[0].ID != newer.ID || threads[1].ID != older.ID {
		t.Fatalf("expected bookmarks newest first, got %+v", threads)
	}
}

func TestHandleThreadRemovedIsBestEffort(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	for _, u := range []string{"bob", "carol", "dave"} {
		e.register(t, u, u)
	}
	thread := e.create(t, "alice", "t", domain.StatusPublished, "x")
	for _, u := range []string{"bob", "carol", "dave"} {
		e.bookmark.ToggleBookmark(ctx, u, thread.ID)
	}

	uc := NewBookmarkUsecase(e.threads, &brokenUsers{UserRepository: e.users, failFor: "carol"}, nil)
	err := uc.HandleThreadRemoved(ctx, domain.ThreadRemoved{ThreadID: thread.ID, AuthorID: "alice"})
	if err == nil {
		t.Fatalf("expected carol's failure to be reported")
	}

	for user, want := range map[string]bool{"bob": false, "carol": true, "dave": false} {
		u, _ := e.users.Get(ctx, user)
		if u.HasBookmark(thread.ID) != want {
			t.Fatalf("%s: expected bookmark present=%v", user, want)
		}
	}
}

func TestToggleBookmarkOnVanishedThreadDropsBookmark(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.register(t, "bob", "Bob")
	thread := e.create(t, "alice", "t", domain.StatusPublished, "x")

	uc := NewBookmarkUsecase(&vanishingThreads{e.threads}, e.users, e.cache)
	if _, err := uc.ToggleBookmark(ctx, "bob", thread.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found got %v", err)
	}
	bob, _ := e.users.Get(ctx, "bob")
	if len(bob.Bookmarks) != 0 {
		t.Fatalf("expected the bookmark to be dropped got %v", bob.Bookmarks)
	}
}

func TestConcurrentReactAndBookmark(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	thread := e.create(t, "alice", "t", domain.StatusPublished, "x")

	const n = 40
	users := make([]string, n)
	for i := range users {
		users[i] = fmt.Sprintf("user-%02d", i)
		e.register(t, users[i], users[i])
	}

	var wg sync.WaitGroup
	errs := make(chan error, 2*n)
	for _, id := range users {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for {
				_, err := e.reaction.React(ctx, id, thread.ID, thread.Segments[0].ID, string(domain.EmojiFire))
				if errors.Is(err, domain.ErrConflict) {
					continue
				}
				if err != nil {
					errs <- err
				}
				break
			}
			if _, err := e.bookmark.ToggleBookmark(ctx, id, thread.ID); err != nil {
				errs <- err
			}
		}(id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent call failed: %v", err)
	}

	got := e.get(t, thread.ID)
	if total := got.TotalReactions(); total != n {
		t.Fatalf("expected %d reactions got %d", n, total)
	}
	if got.BookmarkCount != n {
		t.Fatalf("expected %d bookmarks got %d", n, got.BookmarkCount)
	}
}
