package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/akashdesaidev/Threadspire/internal/domain"
	"github.com/akashdesaidev/Threadspire/internal/metrics"
)

var tracer = otel.Tracer("usecase")

// SegmentInput is a segment as supplied by the author. ID is only
// meaningful on update, where it keeps the segment's reactions.
type SegmentInput struct {
	ID      string `json:"id,omitempty"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

type CreateThreadInput struct {
	Title            string         `json:"title"`
	Segments         []SegmentInput `json:"segments"`
	Tags             []string       `json:"tags"`
	Status           string         `json:"status"`
	OriginalThreadID *string        `json:"originalThreadId"`
}

// ThreadChanges carries the fields of an update; nil fields are kept.
type ThreadChanges struct {
	Title    *string         `json:"title"`
	Segments *[]SegmentInput `json:"segments"`
	Tags     *[]string       `json:"tags"`
	Status   *string         `json:"status"`
}

// PublishResult is the outcome of Publish. Draft is set only when a draft
// was published, in which case Thread is the newly created document.
type PublishResult struct {
	Thread domain.Thread  `json:"thread"`
	Draft  *domain.Thread `json:"draftThread,omitempty"`
}

type ThreadView struct {
	Thread          domain.Thread           `json:"thread"`
	Bookmarked      bool                    `json:"bookmarked"`
	RelatedVersions *domain.RelatedVersions `json:"relatedVersions"`
}

type ListThreadsInput struct {
	Status  string
	Tags    []string
	TagMode string
	Sort    domain.ThreadSort
	Page    int
	Limit   int
}

type ThreadUsecase struct {
	threads  ThreadRepository
	users    UserRepository
	cache    AnalyticsCache
	handlers []ThreadRemovalHandler
	newID    func() string
	now      func() time.Time
}

func NewThreadUsecase(threads ThreadRepository, users UserRepository, cache AnalyticsCache, handlers ...ThreadRemovalHandler) *ThreadUsecase {
	return &ThreadUsecase{
		threads:  threads,
		users:    users,
		cache:    cache,
		handlers: handlers,
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// Create stores a new thread. When OriginalThreadID is set the thread is a
// fork: the source must exist and be published, and its fork counter is
// incremented.
func (uc *ThreadUsecase) Create(ctx context.Context, authorID string, input CreateThreadInput) (domain.Thread, error) {
	ctx, span := tracer.Start(ctx, "Thread.Usecase.Create")
	defer span.End()

	if authorID == "" {
		return domain.Thread{}, domain.ForbiddenError{Reason: "authentication required"}
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return domain.Thread{}, domain.ValidationError{Field: "title", Reason: "title is required"}
	}
	status, err := domain.ParseThreadStatus(input.Status)
	if err != nil {
		return domain.Thread{}, err
	}
	now := uc.now()
	segments, err := uc.buildSegments(input.Segments, nil, now)
	if err != nil {
		return domain.Thread{}, err
	}

	thread := domain.Thread{
		ID:        uc.newID(),
		Title:     title,
		AuthorID:  authorID,
		Segments:  segments,
		Tags:      domain.NormalizeTags(input.Tags),
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var source *domain.Thread
	if input.OriginalThreadID != nil && *input.OriginalThreadID != "" {
		src, err := uc.threads.Get(ctx, *input.OriginalThreadID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.Thread{}, domain.NotFoundError{Resource: "original thread"}
			}
			span.RecordError(err)
			return domain.Thread{}, pkgerrors.Wrap(err, "load fork source")
		}
		if !src.IsPublished() {
			return domain.Thread{}, domain.ForbiddenError{Reason: "you cannot fork draft threads; only published threads can be forked"}
		}
		source = &src
		originalID := src.ID
		originalAuthor := src.AuthorID
		thread.OriginalThreadID = &originalID
		thread.OriginalAuthorID = &originalAuthor
	}

	created, err := uc.threads.Create(ctx, thread)
	if err != nil {
		span.RecordError(err)
		return domain.Thread{}, pkgerrors.Wrap(err, "create thread")
	}
	metrics.ThreadsCreated.WithLabelValues(string(created.Status)).Inc()

	if source != nil {
		// The fork already exists; a failed counter bump must not invite a
		// retried create.
		if err := uc.threads.Increment(ctx, source.ID, domain.CounterForks, 1); err != nil {
			span.RecordError(err)
			slog.ErrorContext(
				ctx, "failed to increment fork count",
				slog.String("thread", source.ID),
				slog.String("fork", created.ID),
				slog.String("error", err.Error()),
				slog.String("module", "thread"),
			)
		}
		metrics.ThreadsForked.Inc()
		uc.invalidate(ctx, source.AuthorID)
	}
	uc.invalidate(ctx, authorID)

	span.SetAttributes(attribute.String("thread", created.ID))
	return created, nil
}

// Publish applies an author's changes. Crossing from draft to published
// creates a new published document superseding the draft, and the draft is
// flipped to published in place so it leaves the draft listings. Every other
// change is applied to the thread in place.
func (uc *ThreadUsecase) Publish(ctx context.Context, callerID, threadID string, changes ThreadChanges) (PublishResult, error) {
	ctx, span := tracer.Start(ctx, "Thread.Usecase.Publish")
	defer span.End()

	if changes.Title != nil && strings.TrimSpace(*changes.Title) == "" {
		return PublishResult{}, domain.ValidationError{Field: "title", Reason: "title must not be empty"}
	}
	var status *domain.ThreadStatus
	if changes.Status != nil && *changes.Status != "" {
		s, err := domain.ParseThreadStatus(*changes.Status)
		if err != nil {
			return PublishResult{}, err
		}
		status = &s
	}
	if changes.Segments != nil {
		if _, err := uc.buildSegments(*changes.Segments, nil, uc.now()); err != nil {
			return PublishResult{}, err
		}
	}

	thread, err := uc.loadOwned(ctx, callerID, threadID, "you do not have permission to update this thread")
	if err != nil {
		return PublishResult{}, err
	}

	if thread.IsDraft() && status != nil && *status == domain.StatusPublished {
		return uc.publishDraft(ctx, thread, changes)
	}

	var updated domain.Thread
	err = retryStale(ctx, "thread.update", func() error {
		current, err := uc.threads.Get(ctx, threadID)
		if err != nil {
			return err
		}
		now := uc.now()
		if changes.Title != nil {
			current.Title = strings.TrimSpace(*changes.Title)
		}
		if changes.Segments != nil {
			segments, err := uc.buildSegments(*changes.Segments, current.Segments, now)
			if err != nil {
				return err
			}
			current.Segments = segments
		}
		if changes.Tags != nil {
			current.Tags = domain.NormalizeTags(*changes.Tags)
		}
		if status != nil {
			current.Status = *status
		}
		current.UpdatedAt = now
		updated, err = uc.threads.Save(ctx, current)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return PublishResult{}, err
	}
	uc.invalidate(ctx, updated.AuthorID)
	if updated.OriginalAuthorID != nil {
		uc.invalidate(ctx, *updated.OriginalAuthorID)
	}
	return PublishResult{Thread: updated}, nil
}

func (uc *ThreadUsecase) publishDraft(ctx context.Context, draft domain.Thread, changes ThreadChanges) (PublishResult, error) {
	now := uc.now()

	title := draft.Title
	if changes.Title != nil {
		title = strings.TrimSpace(*changes.Title)
	}
	inputs := make([]SegmentInput, 0, len(draft.Segments))
	if changes.Segments != nil {
		inputs = append(inputs, (*changes.Segments)...)
	} else {
		for _, s := range draft.Segments {
			inputs = append(inputs, SegmentInput{Title: s.Title, Content: s.Content})
		}
	}
	// The published copy gets fresh segment identities.
	for i := range inputs {
		inputs[i].ID = ""
	}
	segments, err := uc.buildSegments(inputs, nil, now)
	if err != nil {
		return PublishResult{}, err
	}
	tags := draft.Tags
	if changes.Tags != nil {
		tags = *changes.Tags
	}

	draftID := draft.ID
	lineage := draft.Clone()
	published := domain.Thread{
		ID:                 uc.newID(),
		Title:              title,
		AuthorID:           draft.AuthorID,
		Segments:           segments,
		Tags:               domain.NormalizeTags(tags),
		Status:             domain.StatusPublished,
		OriginalThreadID:   lineage.OriginalThreadID,
		OriginalAuthorID:   lineage.OriginalAuthorID,
		SupersedesThreadID: &draftID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	created, err := uc.threads.Create(ctx, published)
	if err != nil {
		return PublishResult{}, pkgerrors.Wrap(err, "create published thread")
	}
	metrics.ThreadsPublished.Inc()

	var flipped domain.Thread
	err = retryStale(ctx, "thread.publish", func() error {
		current, err := uc.threads.Get(ctx, draftID)
		if err != nil {
			return err
		}
		current.Status = domain.StatusPublished
		current.UpdatedAt = now
		flipped, err = uc.threads.Save(ctx, current)
		return err
	})
	if err != nil {
		slog.ErrorContext(
			ctx, "published thread created but draft could not be flipped",
			slog.String("draft", draftID),
			slog.String("published", created.ID),
			slog.String("error", err.Error()),
			slog.String("module", "thread"),
		)
		return PublishResult{}, err
	}

	uc.invalidate(ctx, draft.AuthorID)
	if created.OriginalAuthorID != nil {
		uc.invalidate(ctx, *created.OriginalAuthorID)
	}
	return PublishResult{Thread: created, Draft: &flipped}, nil
}

// Get returns a thread as seen by viewerID, who may be empty. Drafts are
// only visible to their author.
func (uc *ThreadUsecase) Get(ctx context.Context, viewerID, threadID string) (ThreadView, error) {
	ctx, span := tracer.Start(ctx, "Thread.Usecase.Get")
	defer span.End()

	thread, err := uc.threads.Get(ctx, threadID)
	if err != nil {
		return ThreadView{}, err
	}
	if thread.IsDraft() && thread.AuthorID != viewerID {
		return ThreadView{}, domain.ForbiddenError{Reason: "this thread is a draft and can only be viewed by its author"}
	}

	view := ThreadView{Thread: thread}
	if thread.IsPublished() && viewerID != "" {
		viewer, err := uc.users.Get(ctx, viewerID)
		if err == nil {
			view.Bookmarked = viewer.HasBookmark(thread.ID)
		} else if !errors.Is(err, domain.ErrNotFound) {
			span.RecordError(err)
			return ThreadView{}, pkgerrors.Wrap(err, "load viewer")
		}
	}

	related, err := uc.RelatedVersions(ctx, thread)
	if err != nil {
		span.RecordError(err)
		return ThreadView{}, err
	}
	if !related.Empty() {
		view.RelatedVersions = &related
	}
	return view, nil
}

// RelatedVersions surfaces the draft a thread was published from and the
// thread that superseded it, best effort. Dangling references are skipped.
func (uc *ThreadUsecase) RelatedVersions(ctx context.Context, thread domain.Thread) (domain.RelatedVersions, error) {
	var related domain.RelatedVersions

	var draftID string
	switch {
	case thread.SupersedesThreadID != nil:
		draftID = *thread.SupersedesThreadID
	case thread.IsPublished() && thread.OriginalThreadID != nil:
		draftID = *thread.OriginalThreadID
	}
	if draftID != "" {
		draft, err := uc.threads.Get(ctx, draftID)
		switch {
		case err == nil:
			related.DraftVersion = &domain.VersionRef{ID: draft.ID, Title: draft.Title}
		case !errors.Is(err, domain.ErrNotFound):
			return related, pkgerrors.Wrap(err, "load draft version")
		}
	}

	newer, err := uc.threads.Find(ctx, domain.ThreadFilter{SupersedesID: thread.ID, Status: domain.StatusPublished}, domain.SortNewest, 0, 1)
	if err != nil {
		return related, pkgerrors.Wrap(err, "find published version")
	}
	if len(newer) == 0 && thread.IsDraft() {
		newer, err = uc.threads.Find(ctx, domain.ThreadFilter{OriginalThreadID: thread.ID, Status: domain.StatusPublished}, domain.SortNewest, 0, 1)
		if err != nil {
			return related, pkgerrors.Wrap(err, "find published version")
		}
	}
	if len(newer) > 0 {
		related.PublishedVersion = &domain.VersionRef{ID: newer[0].ID, Title: newer[0].Title}
	}
	return related, nil
}

// List returns the threads visible to viewerID.
func (uc *ThreadUsecase) List(ctx context.Context, viewerID string, input ListThreadsInput) ([]domain.Thread, domain.Pagination, error) {
	ctx, span := tracer.Start(ctx, "Thread.Usecase.List")
	defer span.End()

	filter := domain.ThreadFilter{
		Tags:         domain.NormalizeTags(input.Tags),
		MatchAllTags: input.TagMode == "all",
	}
	switch {
	case viewerID == "":
		filter.Status = domain.StatusPublished
	case input.Status == string(domain.StatusDraft):
		filter.AuthorID = viewerID
		filter.Status = domain.StatusDraft
	case input.Status == string(domain.StatusPublished):
		filter.Status = domain.StatusPublished
	case input.Status == "":
		filter.VisibleTo = viewerID
	default:
		return nil, domain.Pagination{}, domain.ValidationError{Field: "status", Reason: "use 'draft' or 'published'"}
	}

	return uc.page(ctx, filter, input.Sort, input.Page, input.Limit)
}

// ListByAuthor lists an author's threads. Only the author sees drafts.
func (uc *ThreadUsecase) ListByAuthor(ctx context.Context, viewerID, authorID, status string, page, limit int) ([]domain.Thread, domain.Pagination, error) {
	ctx, span := tracer.Start(ctx, "Thread.Usecase.ListByAuthor")
	defer span.End()

	filter := domain.ThreadFilter{AuthorID: authorID, Status: domain.StatusPublished}
	if viewerID != "" && viewerID == authorID {
		filter.Status = ""
		if status == string(domain.StatusDraft) || status == string(domain.StatusPublished) {
			filter.Status = domain.ThreadStatus(status)
		}
	}
	return uc.page(ctx, filter, domain.SortNewest, page, limit)
}

// Forks lists the published forks of a thread.
func (uc *ThreadUsecase) Forks(ctx context.Context, threadID string, page, limit int) ([]domain.Thread, domain.Pagination, error) {
	ctx, span := tracer.Start(ctx, "Thread.Usecase.Forks")
	defer span.End()

	if _, err := uc.threads.Get(ctx, threadID); err != nil {
		return nil, domain.Pagination{}, err
	}
	filter := domain.ThreadFilter{OriginalThreadID: threadID, Status: domain.StatusPublished}
	return uc.page(ctx, filter, domain.SortNewest, page, limit)
}

// Delete removes a thread. Published threads referencing a deleted draft
// lose their originalThreadId but keep originalAuthorId; threads that
// superseded it lose that link. Removal handlers run first and a failing
// handler keeps the thread in place so the delete can be retried.
func (uc *ThreadUsecase) Delete(ctx context.Context, callerID, threadID string) error {
	ctx, span := tracer.Start(ctx, "Thread.Usecase.Delete")
	defer span.End()

	thread, err := uc.loadOwned(ctx, callerID, threadID, "you do not have permission to delete this thread")
	if err != nil {
		return err
	}

	if thread.IsDraft() {
		err := uc.detach(ctx, domain.ThreadFilter{OriginalThreadID: thread.ID, Status: domain.StatusPublished}, func(t *domain.Thread) {
			t.OriginalThreadID = nil
		})
		if err != nil {
			span.RecordError(err)
			return err
		}
	}
	err = uc.detach(ctx, domain.ThreadFilter{SupersedesID: thread.ID}, func(t *domain.Thread) {
		t.SupersedesThreadID = nil
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	cmd := domain.ThreadRemoved{ThreadID: thread.ID, AuthorID: thread.AuthorID}
	for _, h := range uc.handlers {
		if err := h.HandleThreadRemoved(ctx, cmd); err != nil {
			span.RecordError(err)
			return pkgerrors.Wrap(err, "clean up references to thread")
		}
	}

	if err := uc.threads.Delete(ctx, thread.ID); err != nil {
		span.RecordError(err)
		return pkgerrors.Wrap(err, "delete thread")
	}
	metrics.ThreadsDeleted.WithLabelValues(string(thread.Status)).Inc()

	slog.InfoContext(
		ctx, "thread deleted",
		slog.String("thread", thread.ID),
		slog.String("status", string(thread.Status)),
		slog.String("module", "thread"),
	)
	uc.invalidate(ctx, thread.AuthorID)
	if thread.OriginalAuthorID != nil {
		uc.invalidate(ctx, *thread.OriginalAuthorID)
	}
	return nil
}

func (uc *ThreadUsecase) detach(ctx context.Context, filter domain.ThreadFilter, clear func(*domain.Thread)) error {
	refs, err := uc.threads.Find(ctx, filter, domain.SortNewest, 0, 0)
	if err != nil {
		return pkgerrors.Wrap(err, "find referencing threads")
	}
	for _, ref := range refs {
		id := ref.ID
		err := retryStale(ctx, "thread.detach", func() error {
			current, err := uc.threads.Get(ctx, id)
			if err != nil {
				return err
			}
			clear(&current)
			_, err = uc.threads.Save(ctx, current)
			return err
		})
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return pkgerrors.Wrapf(err, "detach thread %s", id)
		}
	}
	return nil
}

func (uc *ThreadUsecase) loadOwned(ctx context.Context, callerID, threadID, reason string) (domain.Thread, error) {
	if callerID == "" {
		return domain.Thread{}, domain.ForbiddenError{Reason: "authentication required"}
	}
	thread, err := uc.threads.Get(ctx, threadID)
	if err != nil {
		return domain.Thread{}, err
	}
	if thread.AuthorID != callerID {
		return domain.Thread{}, domain.ForbiddenError{Reason: reason}
	}
	return thread, nil
}

func (uc *ThreadUsecase) page(ctx context.Context, filter domain.ThreadFilter, sort domain.ThreadSort, page, limit int) ([]domain.Thread, domain.Pagination, error) {
	p := domain.NewPagination(page, limit)
	threads, err := uc.threads.Find(ctx, filter, sort, p.Offset(), p.Limit)
	if err != nil {
		return nil, domain.Pagination{}, pkgerrors.Wrap(err, "find threads")
	}
	total, err := uc.threads.Count(ctx, filter)
	if err != nil {
		return nil, domain.Pagination{}, pkgerrors.Wrap(err, "count threads")
	}
	return threads, p.WithTotal(total), nil
}

// buildSegments validates inputs and turns them into segments. Inputs whose
// ID matches one of existing keep that segment's reactions and creation time.
func (uc *ThreadUsecase) buildSegments(inputs []SegmentInput, existing []domain.Segment, now time.Time) ([]domain.Segment, error) {
	known := make(map[string]domain.Segment, len(existing))
	for _, s := range existing {
		known[s.ID] = s
	}
	segments := make([]domain.Segment, 0, len(inputs))
	for i, in := range inputs {
		content := strings.TrimSpace(in.Content)
		if content == "" {
			return nil, domain.ValidationError{Field: "segments", Reason: "content is required for segment " + strconv.Itoa(i+1)}
		}
		segment := domain.Segment{
			ID:        uc.newID(),
			Title:     strings.TrimSpace(in.Title),
			Content:   in.Content,
			CreatedAt: now,
			Reactions: domain.Reactions{},
		}
		if prev, ok := known[in.ID]; ok && in.ID != "" {
			segment.ID = prev.ID
			segment.CreatedAt = prev.CreatedAt
			segment.Reactions = prev.Clone().Reactions
			delete(known, in.ID)
		}
		segments = append(segments, segment)
	}
	return segments, nil
}

func (uc *ThreadUsecase) invalidate(ctx context.Context, userID string) {
	if uc.cache == nil || userID == "" {
		return
	}
	if err := uc.cache.Invalidate(ctx, userID); err != nil {
		slog.WarnContext(
			ctx, "failed to invalidate analytics cache",
			slog.String("user", userID),
			slog.String("error", err.Error()),
			slog.String("module", "thread"),
		)
	}
}
