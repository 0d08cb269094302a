package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/akashdesaidev/Threadspire/internal/domain"
	"github.com/akashdesaidev/Threadspire/internal/metrics"
)

type BookmarkResult struct {
	Bookmarked    bool  `json:"isBookmarked"`
	BookmarkCount int64 `json:"bookmarkCount"`
}

// ThreadSummary is the collection listing view of a thread.
type ThreadSummary struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	AuthorID string `json:"authorId"`
}

type CollectionView struct {
	Name    string          `json:"name"`
	Threads []ThreadSummary `json:"threads"`
}

// BookmarkUsecase manages bookmarks and collections. It also consumes
// ThreadRemoved commands to drop references to deleted threads.
type BookmarkUsecase struct {
	threads ThreadRepository
	users   UserRepository
	cache   AnalyticsCache
	now     func() time.Time
}

func NewBookmarkUsecase(threads ThreadRepository, users UserRepository, cache AnalyticsCache) *BookmarkUsecase {
	return &BookmarkUsecase{threads: threads, users: users, cache: cache, now: time.Now}
}

// ToggleBookmark bookmarks a published thread, or removes the bookmark
// together with any collection membership.
func (uc *BookmarkUsecase) ToggleBookmark(ctx context.Context, userID, threadID string) (BookmarkResult, error) {
	ctx, span := tracer.Start(ctx, "Bookmark.Usecase.ToggleBookmark")
	defer span.End()

	if userID == "" {
		return BookmarkResult{}, domain.ForbiddenError{Reason: "authentication required"}
	}
	thread, err := uc.threads.Get(ctx, threadID)
	if err != nil {
		return BookmarkResult{}, err
	}
	if !thread.IsPublished() {
		return BookmarkResult{}, domain.ForbiddenError{Reason: "you cannot bookmark draft threads; only published threads can be bookmarked"}
	}

	var bookmarked bool
	err = uc.mutateUser(ctx, "bookmark.toggle", userID, func(u *domain.User) error {
		bookmarked = u.ToggleBookmark(threadID)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return BookmarkResult{}, err
	}

	delta, action := int64(1), "added"
	if !bookmarked {
		delta, action = -1, "removed"
	}
	if err := uc.threads.Increment(ctx, threadID, domain.CounterBookmarks, delta); err != nil {
		span.RecordError(err)
		if errors.Is(err, domain.ErrNotFound) && bookmarked {
			// The thread was deleted after the lookup; its removal cleanup may
			// have run before the bookmark was saved.
			purgeErr := uc.mutateUser(ctx, "bookmark.compensate", userID, func(u *domain.User) error {
				u.PurgeThread(threadID)
				return nil
			})
			if purgeErr != nil {
				slog.WarnContext(
					ctx, "failed to drop bookmark of deleted thread",
					slog.String("user", userID),
					slog.String("thread", threadID),
					slog.String("error", purgeErr.Error()),
					slog.String("module", "bookmark"),
				)
			}
			return BookmarkResult{}, domain.NotFoundError{Resource: "thread"}
		}
		slog.WarnContext(
			ctx, "bookmark saved but counter update failed",
			slog.String("user", userID),
			slog.String("thread", threadID),
			slog.String("error", err.Error()),
			slog.String("module", "bookmark"),
		)
		return BookmarkResult{}, pkgerrors.Wrap(err, "update bookmark count")
	}
	metrics.Bookmarks.WithLabelValues(action).Inc()

	updated, err := uc.threads.Get(ctx, threadID)
	if err != nil {
		return BookmarkResult{}, pkgerrors.Wrap(err, "reload thread")
	}
	uc.invalidate(ctx, userID, updated.AuthorID)
	return BookmarkResult{Bookmarked: bookmarked, BookmarkCount: updated.BookmarkCount}, nil
}

// ListBookmarks returns the user's bookmarked threads, newest first.
func (uc *BookmarkUsecase) ListBookmarks(ctx context.Context, userID string, page, limit int) ([]domain.Thread, domain.Pagination, error) {
	ctx, span := tracer.Start(ctx, "Bookmark.Usecase.ListBookmarks")
	defer span.End()

	if userID == "" {
		return nil, domain.Pagination{}, domain.ForbiddenError{Reason: "authentication required"}
	}
	user, err := uc.users.Get(ctx, userID)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	p := domain.NewPagination(page, limit)
	if len(user.Bookmarks) == 0 {
		return []domain.Thread{}, p.WithTotal(0), nil
	}
	filter := domain.ThreadFilter{IDs: user.Bookmarks}
	threads, err := uc.threads.Find(ctx, filter, domain.SortNewest, p.Offset(), p.Limit)
	if err != nil {
		return nil, domain.Pagination{}, pkgerrors.Wrap(err, "find bookmarked threads")
	}
	total, err := uc.threads.Count(ctx, filter)
	if err != nil {
		return nil, domain.Pagination{}, pkgerrors.Wrap(err, "count bookmarked threads")
	}
	return threads, p.WithTotal(total), nil
}

// CreateCollection adds an empty collection with a name unique to the user.
func (uc *BookmarkUsecase) CreateCollection(ctx context.Context, userID, name string) ([]domain.Collection, error) {
	ctx, span := tracer.Start(ctx, "Bookmark.Usecase.CreateCollection")
	defer span.End()

	if userID == "" {
		return nil, domain.ForbiddenError{Reason: "authentication required"}
	}
	var collections []domain.Collection
	err := uc.mutateUser(ctx, "collection.create", userID, func(u *domain.User) error {
		if err := u.CreateCollection(name); err != nil {
			return err
		}
		collections = u.Collections
		return nil
	})
	if err != nil {
		return nil, err
	}
	return collections, nil
}

// AddToCollection files a bookmarked thread under one of the user's
// collections. A thread lives in at most one collection.
func (uc *BookmarkUsecase) AddToCollection(ctx context.Context, userID, name, threadID string) (domain.Collection, error) {
	ctx, span := tracer.Start(ctx, "Bookmark.Usecase.AddToCollection")
	defer span.End()

	if userID == "" {
		return domain.Collection{}, domain.ForbiddenError{Reason: "authentication required"}
	}
	var collection domain.Collection
	err := uc.mutateUser(ctx, "collection.add", userID, func(u *domain.User) error {
		if u.Collection(name) == nil {
			return domain.NotFoundError{Resource: "collection"}
		}
		if _, err := uc.threads.Get(ctx, threadID); err != nil {
			return err
		}
		if err := u.AddToCollection(name, threadID); err != nil {
			return err
		}
		collection = *u.Collection(name)
		return nil
	})
	if err != nil {
		return domain.Collection{}, err
	}
	return collection, nil
}

func (uc *BookmarkUsecase) RemoveFromCollection(ctx context.Context, userID, name, threadID string) (domain.Collection, error) {
	ctx, span := tracer.Start(ctx, "Bookmark.Usecase.RemoveFromCollection")
	defer span.End()

	if userID == "" {
		return domain.Collection{}, domain.ForbiddenError{Reason: "authentication required"}
	}
	var collection domain.Collection
	err := uc.mutateUser(ctx, "collection.remove", userID, func(u *domain.User) error {
		if err := u.RemoveFromCollection(name, threadID); err != nil {
			return err
		}
		collection = *u.Collection(name)
		return nil
	})
	if err != nil {
		return domain.Collection{}, err
	}
	return collection, nil
}

// Collections lists a user's collections. They are private to their owner.
func (uc *BookmarkUsecase) Collections(ctx context.Context, callerID, userID string) ([]CollectionView, error) {
	ctx, span := tracer.Start(ctx, "Bookmark.Usecase.Collections")
	defer span.End()

	if callerID == "" || callerID != userID {
		return nil, domain.ForbiddenError{Reason: "collections are private to their owners"}
	}
	user, err := uc.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, c := range user.Collections {
		ids = append(ids, c.Threads...)
	}
	byID := map[string]domain.Thread{}
	if len(ids) > 0 {
		threads, err := uc.threads.Find(ctx, domain.ThreadFilter{IDs: ids}, domain.SortNewest, 0, 0)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "find collected threads")
		}
		for _, t := range threads {
			byID[t.ID] = t
		}
	}

	views := make([]CollectionView, 0, len(user.Collections))
	for _, c := range user.Collections {
		view := CollectionView{Name: c.Name, Threads: []ThreadSummary{}}
		for _, id := range c.Threads {
			t, ok := byID[id]
			if !ok {
				continue
			}
			view.Threads = append(view.Threads, ThreadSummary{ID: t.ID, Title: t.Title, AuthorID: t.AuthorID})
		}
		views = append(views, view)
	}
	return views, nil
}

// HandleThreadRemoved drops the thread from every user's bookmarks and
// collections. Users are cleaned up independently; failures are collected
// and returned together once every user has been tried.
func (uc *BookmarkUsecase) HandleThreadRemoved(ctx context.Context, cmd domain.ThreadRemoved) error {
	ctx, span := tracer.Start(ctx, "Bookmark.Usecase.HandleThreadRemoved")
	defer span.End()

	users, err := uc.users.Find(ctx, domain.UserFilter{ReferencesThread: cmd.ThreadID})
	if err != nil {
		span.RecordError(err)
		return pkgerrors.Wrap(err, "find users referencing thread")
	}

	var errs []error
	cleaned := 0
	for _, u := range users {
		err := uc.mutateUser(ctx, "bookmark.purge", u.ID, func(u *domain.User) error {
			u.PurgeThread(cmd.ThreadID)
			return nil
		})
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			errs = append(errs, pkgerrors.Wrapf(err, "user %s", u.ID))
			continue
		}
		cleaned++
		uc.invalidate(ctx, u.ID)
	}

	slog.InfoContext(
		ctx, "removed thread references",
		slog.String("thread", cmd.ThreadID),
		slog.Int("users", cleaned),
		slog.Int("failed", len(errs)),
		slog.String("module", "bookmark"),
	)
	return errors.Join(errs...)
}

// mutateUser re-reads the user and applies fn until the save wins.
func (uc *BookmarkUsecase) mutateUser(ctx context.Context, operation, userID string, fn func(*domain.User) error) error {
	return retryStale(ctx, operation, func() error {
		user, err := uc.users.Get(ctx, userID)
		if err != nil {
			return err
		}
		if err := fn(&user); err != nil {
			return err
		}
		user.UpdatedAt = uc.now()
		_, err = uc.users.Save(ctx, user)
		return err
	})
}

func (uc *BookmarkUsecase) invalidate(ctx context.Context, userIDs ...string) {
	if uc.cache == nil {
		return
	}
	for _, id := range userIDs {
		if err := uc.cache.Invalidate(ctx, id); err != nil {
			slog.WarnContext(
				ctx, "failed to invalidate analytics cache",
				slog.String("user", id),
				slog.String("error", err.Error()),
				slog.String("module", "bookmark"),
			)
		}
	}
}
