package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/akashdesaidev/Threadspire/internal/domain"
	"github.com/akashdesaidev/Threadspire/internal/infra/database/models"
)

type ThreadRepository struct {
	db *gorm.DB
}

func NewThreadRepository(db *gorm.DB) *ThreadRepository {
	return &ThreadRepository{db: db}
}

func (r *ThreadRepository) Get(ctx context.Context, id string) (domain.Thread, error) {
	var thread models.Thread
	err := preloadThread(r.db.WithContext(ctx)).Where("id = ?", id).Take(&thread).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Thread{}, domain.NotFoundError{Resource: "thread"}
		}
		return domain.Thread{}, err
	}
	return fromThreadModel(thread), nil
}

func (r *ThreadRepository) Find(ctx context.Context, filter domain.ThreadFilter, sort domain.ThreadSort, offset, limit int) ([]domain.Thread, error) {
	query := applyThreadFilter(r.db.WithContext(ctx).Model(&models.Thread{}), filter)
	query = orderThreads(query, sort).Offset(offset)
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []models.Thread
	if err := preloadThread(query).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Thread, len(rows))
	for i, row := range rows {
		out[i] = fromThreadModel(row)
	}
	return out, nil
}

func (r *ThreadRepository) Count(ctx context.Context, filter domain.ThreadFilter) (int64, error) {
	var count int64
	err := applyThreadFilter(r.db.WithContext(ctx).Model(&models.Thread{}), filter).Count(&count).Error
	return count, err
}

func (r *ThreadRepository) Create(ctx context.Context, thread domain.Thread) (domain.Thread, error) {
	thread.Version = 1
	row := toThreadModel(thread)

	err := r.db.WithContext(ctx).Create(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.Thread{}, domain.ConflictError{Reason: "thread already exists"}
		}
		return domain.Thread{}, err
	}
	return thread.Clone(), nil
}

// Save bumps the version only when it still matches, then replaces the
// segments and tags. Counters are left to Increment.
func (r *ThreadRepository) Save(ctx context.Context, thread domain.Thread) (domain.Thread, error) {
	row := toThreadModel(thread)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Thread{}).
			Where("id = ? AND version = ?", row.ID, row.Version).
			Updates(map[string]any{
				"title":                row.Title,
				"status":               row.Status,
				"original_thread_id":   row.OriginalThreadID,
				"original_author_id":   row.OriginalAuthorID,
				"supersedes_thread_id": row.SupersedesThreadID,
				"m_date":               row.MDate,
				"version":              gorm.Expr("version + 1"),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var exists int64
			if err := tx.Model(&models.Thread{}).Where("id = ?", row.ID).Count(&exists).Error; err != nil {
				return err
			}
			if exists == 0 {
				return domain.NotFoundError{Resource: "thread"}
			}
			return domain.ErrStaleWrite
		}

		if err := tx.Where("thread_id = ?", row.ID).Delete(&models.Segment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("thread_id = ?", row.ID).Delete(&models.ThreadTag{}).Error; err != nil {
			return err
		}
		if len(row.Segments) > 0 {
			if err := tx.Create(&row.Segments).Error; err != nil {
				return err
			}
		}
		if len(row.Tags) > 0 {
			if err := tx.Create(&row.Tags).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Thread{}, err
	}
	return r.Get(ctx, thread.ID)
}

func (r *ThreadRepository) Increment(ctx context.Context, id string, counter domain.Counter, delta int64) error {
	var column string
	switch counter {
	case domain.CounterBookmarks:
		column = "bookmark_count"
	case domain.CounterForks:
		column = "fork_count"
	default:
		return domain.ValidationError{Field: "counter", Reason: "unknown counter " + string(counter)}
	}

	result := r.db.WithContext(ctx).Model(&models.Thread{}).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr("GREATEST("+column+" + ?, 0)", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "thread"}
	}
	return nil
}

func (r *ThreadRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Thread{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "thread"}
	}
	return nil
}

func preloadThread(query *gorm.DB) *gorm.DB {
	return query.
		Preload("Segments", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Segments.Reactions").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("position") })
}

func applyThreadFilter(query *gorm.DB, filter domain.ThreadFilter) *gorm.DB {
	if filter.IDs != nil {
		if len(filter.IDs) == 0 {
			return query.Where("1 = 0")
		}
		query = query.Where("id IN ?", filter.IDs)
	}
	if filter.AuthorID != "" {
		query = query.Where("author_id = ?", filter.AuthorID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	} else if filter.VisibleTo != "" {
		query = query.Where("(status = ? OR author_id = ?)", string(domain.StatusPublished), filter.VisibleTo)
	}
	if filter.OriginalThreadID != "" {
		query = query.Where("original_thread_id = ?", filter.OriginalThreadID)
	}
	if filter.OriginalAuthorID != "" {
		query = query.Where("original_author_id = ?", filter.OriginalAuthorID)
	}
	if filter.SupersedesID != "" {
		query = query.Where("supersedes_thread_id = ?", filter.SupersedesID)
	}
	if filter.CreatedSince != nil {
		query = query.Where("c_date >= ?", *filter.CreatedSince)
	}
	if len(filter.Tags) > 0 {
		if filter.MatchAllTags {
			query = query.Where(
				"id IN (SELECT thread_id FROM thread_tags WHERE tag IN ? GROUP BY thread_id HAVING COUNT(DISTINCT tag) = ?)",
				filter.Tags, len(filter.Tags),
			)
		} else {
			query = query.Where("id IN (SELECT thread_id FROM thread_tags WHERE tag IN ?)", filter.Tags)
		}
	}
	return query
}

func orderThreads(query *gorm.DB, sort domain.ThreadSort) *gorm.DB {
	switch sort {
	case domain.SortOldest:
		return query.Order("seq ASC")
	case domain.SortBookmarks:
		query = query.Order("bookmark_count DESC")
	case domain.SortForks:
		query = query.Order("fork_count DESC")
	}
	return query.Order("c_date DESC").Order("seq DESC")
}

func toThreadModel(t domain.Thread) models.Thread {
	row := models.Thread{
		ID:                 t.ID,
		Title:              t.Title,
		AuthorID:           t.AuthorID,
		Status:             string(t.Status),
		BookmarkCount:      t.BookmarkCount,
		ForkCount:          t.ForkCount,
		OriginalThreadID:   t.OriginalThreadID,
		OriginalAuthorID:   t.OriginalAuthorID,
		SupersedesThreadID: t.SupersedesThreadID,
		Version:            t.Version,
		CDate:              t.CreatedAt,
		MDate:              t.UpdatedAt,
	}
	for i, s := range t.Segments {
		segment := models.Segment{
			ID:       s.ID,
			ThreadID: t.ID,
			Position: i,
			Title:    s.Title,
			Content:  s.Content,
			CDate:    s.CreatedAt,
		}
		for user, emoji := range s.Reactions {
			segment.Reactions = append(segment.Reactions, models.SegmentReaction{
				SegmentID: s.ID,
				UserID:    user,
				Emoji:     string(emoji),
			})
		}
		row.Segments = append(row.Segments, segment)
	}
	for i, tag := range t.Tags {
		row.Tags = append(row.Tags, models.ThreadTag{ThreadID: t.ID, Tag: tag, Position: i})
	}
	return row
}

func fromThreadModel(row models.Thread) domain.Thread {
	t := domain.Thread{
		ID:                 row.ID,
		Title:              row.Title,
		AuthorID:           row.AuthorID,
		Status:             domain.ThreadStatus(row.Status),
		BookmarkCount:      row.BookmarkCount,
		ForkCount:          row.ForkCount,
		OriginalThreadID:   row.OriginalThreadID,
		OriginalAuthorID:   row.OriginalAuthorID,
		SupersedesThreadID: row.SupersedesThreadID,
		Version:            row.Version,
		Segments:           make([]domain.Segment, 0, len(row.Segments)),
		Tags:               make([]string, 0, len(row.Tags)),
		CreatedAt:          row.CDate,
		UpdatedAt:          row.MDate,
	}
	for _, s := range row.Segments {
		segment := domain.Segment{
			ID:        s.ID,
			Title:     s.Title,
			Content:   s.Content,
			CreatedAt: s.CDate,
			Reactions: make(domain.Reactions, len(s.Reactions)),
		}
		for _, reaction := range s.Reactions {
			segment.Reactions[reaction.UserID] = domain.Emoji(reaction.Emoji)
		}
		t.Segments = append(t.Segments, segment)
	}
	for _, tag := range row.Tags {
		t.Tags = append(t.Tags, tag.Tag)
	}
	return t
}
