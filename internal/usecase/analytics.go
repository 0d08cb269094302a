package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"
	pkgerrors "github.com/pkg/errors"

	"github.com/akashdesaidev/Threadspire/internal/domain"
	"github.com/akashdesaidev/Threadspire/internal/metrics"
	"github.com/akashdesaidev/Threadspire/internal/utils"
)

const DefaultActivityDays = 30

const (
	previewLength   = 50
	anonymousAuthor = "Anonymous"
)

// ActivityQuery narrows the reaction time series of a user.
type ActivityQuery struct {
	ThreadID string
	Emoji    string
	Days     int
}

type AnalyticsUsecase struct {
	threads ThreadRepository
	users   UserRepository
	cache   AnalyticsCache
	authors *cache.Cache
	now     func() time.Time
}

func NewAnalyticsUsecase(threads ThreadRepository, users UserRepository, summaries AnalyticsCache) *AnalyticsUsecase {
	return &AnalyticsUsecase{
		threads: threads,
		users:   users,
		cache:   summaries,
		authors: cache.New(10*time.Minute, 15*time.Minute),
		now:     time.Now,
	}
}

// Summary computes the engagement summary of userID. Only the user may
// read their own analytics.
func (uc *AnalyticsUsecase) Summary(ctx context.Context, callerID, userID string) (domain.Analytics, error) {
	ctx, span := tracer.Start(ctx, "Analytics.Usecase.Summary")
	defer span.End()

	if callerID == "" || callerID != userID {
		return domain.Analytics{}, domain.ForbiddenError{Reason: "you do not have permission to view this data"}
	}

	if uc.cache != nil {
		cached, err := uc.cache.Load(ctx, userID)
		switch {
		case err != nil:
			metrics.AnalyticsCacheLookups.WithLabelValues("error").Inc()
			slog.WarnContext(
				ctx, "failed to load cached analytics",
				slog.String("user", userID),
				slog.String("error", err.Error()),
				slog.String("module", "analytics"),
			)
		case cached != nil:
			metrics.AnalyticsCacheLookups.WithLabelValues("hit").Inc()
			return *cached, nil
		default:
			metrics.AnalyticsCacheLookups.WithLabelValues("miss").Inc()
		}
	}

	user, err := uc.users.Get(ctx, userID)
	if err != nil {
		return domain.Analytics{}, err
	}
	owned, err := uc.threads.Find(ctx, domain.ThreadFilter{AuthorID: userID}, domain.SortOldest, 0, 0)
	if err != nil {
		span.RecordError(err)
		return domain.Analytics{}, pkgerrors.Wrap(err, "find user threads")
	}
	forks, err := uc.threads.Find(ctx, domain.ThreadFilter{OriginalAuthorID: userID}, domain.SortOldest, 0, 0)
	if err != nil {
		span.RecordError(err)
		return domain.Analytics{}, pkgerrors.Wrap(err, "find forks")
	}

	now := uc.now()
	summary := domain.Analytics{
		TotalBookmarks:       len(user.Bookmarks),
		ForksByThread:        map[string][]domain.ForkSummary{},
		ThreadsWithReactions: []domain.ThreadReactions{},
		ThreadActivity:       []domain.ThreadActivity{},
		ActivityByDate:       utils.OrderedKV[int64]{},
		GeneratedAt:          now,
	}

	var mostForked *domain.Thread
	for i := range owned {
		t := &owned[i]
		summary.TotalThreads++
		if t.IsPublished() {
			summary.PublishedThreads++
		} else {
			summary.DraftThreads++
		}
		summary.TotalBookmarksReceived += t.BookmarkCount
		summary.TotalForks += t.ForkCount
		if mostForked == nil || t.ForkCount > mostForked.ForkCount {
			mostForked = t
		}
	}
	if mostForked != nil && mostForked.ForkCount > 0 {
		summary.MostForkedThread = &domain.MostForkedThread{
			ThreadID:    mostForked.ID,
			Title:       mostForked.Title,
			ForkCount:   mostForked.ForkCount,
			PublishDate: mostForked.CreatedAt,
		}
	}

	for _, fork := range forks {
		// Forks whose source draft was deleted keep their attribution but
		// no longer belong to any group.
		if fork.OriginalThreadID == nil {
			continue
		}
		source := *fork.OriginalThreadID
		summary.ForksByThread[source] = append(summary.ForksByThread[source], domain.ForkSummary{
			ForkID:    fork.ID,
			Title:     fork.Title,
			Author:    uc.authorName(ctx, fork.AuthorID),
			CreatedAt: fork.CreatedAt,
		})
	}

	for _, t := range owned {
		if !t.IsPublished() {
			continue
		}
		summary.ThreadActivity = append(summary.ThreadActivity, domain.ThreadActivity{
			ID:        t.ID,
			Title:     t.Title,
			Bookmarks: t.BookmarkCount,
			Forks:     t.ForkCount,
			Reactions: t.TotalReactions(),
			CreatedAt: t.CreatedAt,
		})
		if len(t.Segments) == 0 {
			continue
		}

		breakdown := domain.ThreadReactions{
			ThreadID: t.ID,
			Title:    t.Title,
			Segments: make([]domain.SegmentReactions, 0, len(t.Segments)),
		}
		var best int64
		for pos, seg := range t.Segments {
			counts := seg.Reactions.Counts()
			total := counts.Total()
			summary.ReactionCounts.Merge(counts)
			breakdown.Segments = append(breakdown.Segments, domain.SegmentReactions{
				SegmentID:      seg.ID,
				Position:       pos,
				Content:        seg.Preview(previewLength),
				ReactionCounts: counts,
				TotalReactions: total,
			})
			if total > best {
				best = total
				breakdown.TopReactedSegment = &domain.TopSegment{
					SegmentID:      seg.ID,
					Position:       pos,
					Content:        seg.Preview(previewLength),
					TotalReactions: total,
				}
			}
			if total > 0 {
				day := activityDay(seg.CreatedAt, t.CreatedAt, now)
				prev, _ := summary.ActivityByDate.Get(day)
				summary.ActivityByDate = summary.ActivityByDate.Set(day, prev+total)
			}
		}
		summary.ThreadsWithReactions = append(summary.ThreadsWithReactions, breakdown)
	}
	summary.ActivityByDate.SortByKey()

	if uc.cache != nil {
		if err := uc.cache.Store(ctx, userID, summary); err != nil {
			slog.WarnContext(
				ctx, "failed to cache analytics",
				slog.String("user", userID),
				slog.String("error", err.Error()),
				slog.String("module", "analytics"),
			)
		}
	}
	return summary, nil
}

// ThreadActivity returns daily reaction totals over the user's threads
// created within the last Days days, oldest day first.
func (uc *AnalyticsUsecase) ThreadActivity(ctx context.Context, callerID, userID string, q ActivityQuery) ([]domain.DailyReactions, error) {
	ctx, span := tracer.Start(ctx, "Analytics.Usecase.ThreadActivity")
	defer span.End()

	if callerID == "" || callerID != userID {
		return nil, domain.ForbiddenError{Reason: "you do not have permission to view this data"}
	}
	var emoji domain.Emoji
	if q.Emoji != "" {
		e, err := domain.ParseEmoji(q.Emoji)
		if err != nil {
			return nil, err
		}
		emoji = e
	}
	if q.Days <= 0 {
		return nil, domain.ValidationError{Field: "timeRange", Reason: "must be a positive number of days"}
	}

	since := uc.now().AddDate(0, 0, -q.Days)
	filter := domain.ThreadFilter{AuthorID: userID, CreatedSince: &since}
	if q.ThreadID != "" {
		filter.IDs = []string{q.ThreadID}
	}
	threads, err := uc.threads.Find(ctx, filter, domain.SortOldest, 0, 0)
	if err != nil {
		span.RecordError(err)
		return nil, pkgerrors.Wrap(err, "find threads")
	}

	now := uc.now()
	byDay := utils.OrderedKV[int64]{}
	for _, t := range threads {
		for _, seg := range t.Segments {
			counts := seg.Reactions.Counts()
			n := counts.Total()
			if emoji != "" {
				n = counts.Get(emoji)
			}
			if n == 0 {
				continue
			}
			day := activityDay(seg.CreatedAt, t.CreatedAt, now)
			prev, _ := byDay.Get(day)
			byDay = byDay.Set(day, prev+n)
		}
	}
	byDay.SortByKey()

	series := make([]domain.DailyReactions, 0, len(byDay))
	for _, kv := range byDay {
		series = append(series, domain.DailyReactions{Date: kv.Key, TotalReactions: kv.Value})
	}
	return series, nil
}

// HandleProfileChanged forgets the cached name of userID and invalidates
// the summaries of every author whose forks list it.
func (uc *AnalyticsUsecase) HandleProfileChanged(ctx context.Context, userID string) error {
	uc.authors.Delete(userID)
	if uc.cache == nil {
		return nil
	}

	owned, err := uc.threads.Find(ctx, domain.ThreadFilter{AuthorID: userID}, domain.SortOldest, 0, 0)
	if err != nil {
		return pkgerrors.Wrap(err, "find forks of renamed author")
	}
	seen := map[string]struct{}{}
	var errs []error
	for _, t := range owned {
		if t.OriginalAuthorID == nil {
			continue
		}
		original := *t.OriginalAuthorID
		if _, ok := seen[original]; ok {
			continue
		}
		seen[original] = struct{}{}
		if err := uc.cache.Invalidate(ctx, original); err != nil {
			errs = append(errs, pkgerrors.Wrapf(err, "invalidate analytics of %s", original))
		}
	}
	return errors.Join(errs...)
}

func (uc *AnalyticsUsecase) authorName(ctx context.Context, userID string) string {
	if cached, found := uc.authors.Get(userID); found {
		return cached.(string)
	}
	name := anonymousAuthor
	user, err := uc.users.Get(ctx, userID)
	switch {
	case err == nil && user.Name != "":
		name = user.Name
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		slog.WarnContext(
			ctx, "failed to resolve fork author",
			slog.String("user", userID),
			slog.String("error", err.Error()),
			slog.String("module", "analytics"),
		)
		return name
	}
	uc.authors.Set(userID, name, cache.DefaultExpiration)
	return name
}

// activityDay picks the day a segment's reactions are attributed to,
// never later than now.
func activityDay(segmentCreated, threadCreated, now time.Time) string {
	at := segmentCreated
	if at.IsZero() {
		at = threadCreated
	}
	if at.IsZero() || at.After(now) {
		at = now
	}
	return domain.DateKey(at)
}
