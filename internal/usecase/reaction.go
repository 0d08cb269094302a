package usecase

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/akashdesaidev/Threadspire/internal/domain"
	"github.com/akashdesaidev/Threadspire/internal/metrics"
)

type ReactionResult struct {
	Thread    domain.Thread `json:"thread"`
	SegmentID string        `json:"segmentId"`
	// Active is the user's reaction after the toggle, nil when cleared.
	Active *domain.Emoji `json:"activeReaction"`
}

type ReactionUsecase struct {
	threads ThreadRepository
	cache   AnalyticsCache
	now     func() time.Time
}

func NewReactionUsecase(threads ThreadRepository, cache AnalyticsCache) *ReactionUsecase {
	return &ReactionUsecase{threads: threads, cache: cache, now: time.Now}
}

// React toggles userID's reaction on a segment of a published thread.
// Reacting with the active emoji clears it, any other emoji replaces it.
func (uc *ReactionUsecase) React(ctx context.Context, userID, threadID, segmentID, emoji string) (ReactionResult, error) {
	ctx, span := tracer.Start(ctx, "Reaction.Usecase.React")
	defer span.End()
	span.SetAttributes(
		attribute.String("thread", threadID),
		attribute.String("segment", segmentID),
	)

	if userID == "" {
		return ReactionResult{}, domain.ForbiddenError{Reason: "authentication required"}
	}
	e, err := domain.ParseEmoji(emoji)
	if err != nil {
		return ReactionResult{}, err
	}

	var result ReactionResult
	var prev, active domain.Emoji
	err = retryStale(ctx, "reaction.toggle", func() error {
		thread, err := uc.threads.Get(ctx, threadID)
		if err != nil {
			return err
		}
		if !thread.IsPublished() {
			return domain.ForbiddenError{Reason: "you cannot react to draft threads; only published threads can be reacted to"}
		}
		idx := thread.SegmentIndex(segmentID)
		if idx < 0 {
			return domain.NotFoundError{Resource: "segment"}
		}

		prev, active = thread.Segments[idx].React(userID, e)
		thread.UpdatedAt = uc.now()
		saved, err := uc.threads.Save(ctx, thread)
		if err != nil {
			return err
		}
		result = ReactionResult{Thread: saved, SegmentID: segmentID}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return ReactionResult{}, err
	}

	if prev != "" {
		metrics.Reactions.WithLabelValues(string(prev), "removed").Inc()
	}
	if active != "" {
		metrics.Reactions.WithLabelValues(string(active), "added").Inc()
		result.Active = &active
	}

	if uc.cache != nil {
		if err := uc.cache.Invalidate(ctx, result.Thread.AuthorID); err != nil {
			slog.WarnContext(
				ctx, "failed to invalidate analytics cache",
				slog.String("user", result.Thread.AuthorID),
				slog.String("error", err.Error()),
				slog.String("module", "reaction"),
			)
		}
	}
	return result, nil
}
