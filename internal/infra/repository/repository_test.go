package repository

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/akashdesaidev/Threadspire/internal/domain"
	"github.com/akashdesaidev/Threadspire/internal/infra/database"
)

func setupTestDB(t *testing.T) *gorm.DB {
	dsn := strings.TrimSpace(os.Getenv("THREADSPIRE_TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("THREADSPIRE_TEST_POSTGRES_DSN is not set")
	}

	db, err := database.NewPostgres(dsn, time.Second)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	err = db.Exec("DROP TABLE IF EXISTS collection_threads, collections, bookmarks, users, thread_tags, segment_reactions, segments, threads CASCADE").Error
	if err != nil {
		t.Fatalf("reset schema: %v", err)
	}
	if err := database.MigratePostgres(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newThread(author string, status domain.ThreadStatus, tags ...string) domain.Thread {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return domain.Thread{
		ID:       uuid.NewString(),
		Title:    "thread by " + author,
		AuthorID: author,
		Status:   status,
		Tags:     tags,
		Segments: []domain.Segment{
			{ID: uuid.NewString(), Content: "first", CreatedAt: now, Reactions: domain.Reactions{}},
			{ID: uuid.NewString(), Content: "second", CreatedAt: now, Reactions: domain.Reactions{}},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestThreadRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewThreadRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, newThread("alice", domain.StatusPublished, "go", "db"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	created.Segments[1].React("bob", domain.EmojiFire)
	created.Title = "renamed"
	saved, err := repo.Save(ctx, created)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if saved.Version != 2 || saved.Title != "renamed" {
		t.Fatalf("unexpected saved thread %+v", saved)
	}
	if e, ok := saved.Segments[1].Reactions.Active("bob"); !ok || e != domain.EmojiFire {
		t.Fatalf("expected the reaction to persist got %v", saved.Segments[1].Reactions)
	}
	if saved.Segments[0].Content != "first" || saved.Tags[0] != "go" {
		t.Fatalf("expected segment and tag order to persist got %+v", saved)
	}

	// The earlier copy still carries version 1.
	if _, err := repo.Save(ctx, created); !errors.Is(err, domain.ErrStaleWrite) {
		t.Fatalf("expected a stale write got %v", err)
	}

	if err := repo.Increment(ctx, created.ID, domain.CounterForks, 2); err != nil {
		t.Fatalf("increment failed: %v", err)
	}
	if err := repo.Increment(ctx, created.ID, domain.CounterBookmarks, -1); err != nil {
		t.Fatalf("decrement failed: %v", err)
	}
	got, _ := repo.Get(ctx, created.ID)
	if got.ForkCount != 2 || got.BookmarkCount != 0 {
		t.Fatalf("unexpected counters forks=%d bookmarks=%d", got.ForkCount, got.BookmarkCount)
	}

	if _, err := repo.Save(ctx, got); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if got, _ := repo.Get(ctx, created.ID); got.ForkCount != 2 {
		t.Fatalf("expected save to keep counters got %d", got.ForkCount)
	}

	if err := repo.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := repo.Get(ctx, created.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found got %v", err)
	}
}

func TestThreadRepositoryFind(t *testing.T) {
	db := setupTestDB(t)
	repo := NewThreadRepository(db)
	ctx := context.Background()

	both, _ := repo.Create(ctx, newThread("alice", domain.StatusPublished, "go", "db"))
	goOnly, _ := repo.Create(ctx, newThread("alice", domain.StatusPublished, "go"))
	draft, _ := repo.Create(ctx, newThread("bob", domain.StatusDraft, "go"))

	all, err := repo.Find(ctx, domain.ThreadFilter{Tags: []string{"go", "db"}, MatchAllTags: true}, domain.SortNewest, 0, 0)
	if err != nil || len(all) != 1 || all[0].ID != both.ID {
		t.Fatalf("expected only the thread with both tags got %v, %v", all, err)
	}

	visible, _ := repo.Find(ctx, domain.ThreadFilter{VisibleTo: "bob"}, domain.SortOldest, 0, 0)
	if len(visible) != 3 || visible[0].ID != both.ID || visible[2].ID != draft.ID {
		t.Fatalf("expected oldest-first visibility for bob got %d threads", len(visible))
	}

	count, _ := repo.Count(ctx, domain.ThreadFilter{Status: domain.StatusPublished})
	if count != 2 {
		t.Fatalf("expected 2 published threads got %d", count)
	}

	none, _ := repo.Find(ctx, domain.ThreadFilter{IDs: []string{}}, domain.SortNewest, 0, 0)
	if len(none) != 0 {
		t.Fatalf("expected an empty id set to match nothing")
	}

	repo.Increment(ctx, goOnly.ID, domain.CounterBookmarks, 3)
	top, _ := repo.Find(ctx, domain.ThreadFilter{}, domain.SortBookmarks, 0, 1)
	if len(top) != 1 || top[0].ID != goOnly.ID {
		t.Fatalf("expected the most bookmarked thread first")
	}
}

func TestUserRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	user, err := repo.Create(ctx, domain.User{ID: "alice", Name: "Alice", Email: "alice@example.com", CreatedAt: now, UpdatedAt: now})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := repo.Create(ctx, domain.User{ID: "alice2", Name: "Alice", Email: "alice@example.com", CreatedAt: now, UpdatedAt: now}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected a duplicate email conflict got %v", err)
	}

	user.ToggleBookmark("t1")
	user.ToggleBookmark("t2")
	user.CreateCollection("reading")
	user.AddToCollection("reading", "t2")
	saved, err := repo.Save(ctx, user)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if len(saved.Bookmarks) != 2 || saved.Bookmarks[0] != "t1" {
		t.Fatalf("unexpected bookmarks %v", saved.Bookmarks)
	}
	if c := saved.Collection("reading"); c == nil || !c.Contains("t2") {
		t.Fatalf("expected t2 in reading got %+v", saved.Collections)
	}

	if _, err := repo.Save(ctx, user); !errors.Is(err, domain.ErrStaleWrite) {
		t.Fatalf("expected a stale write got %v", err)
	}

	refs, err := repo.Find(ctx, domain.UserFilter{ReferencesThread: "t2"})
	if err != nil || len(refs) != 1 || refs[0].ID != "alice" {
		t.Fatalf("expected alice to reference t2 got %v, %v", refs, err)
	}
}
