package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/akashdesaidev/Threadspire/internal/domain"
	"github.com/akashdesaidev/Threadspire/internal/infra/database/models"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Get(ctx context.Context, id string) (domain.User, error) {
	var user models.User
	err := preloadUser(r.db.WithContext(ctx)).Where("id = ?", id).Take(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.NotFoundError{Resource: "user"}
		}
		return domain.User{}, err
	}
	return fromUserModel(user), nil
}

// Find returns matching users ordered by id.
func (r *UserRepository) Find(ctx context.Context, filter domain.UserFilter) ([]domain.User, error) {
	query := r.db.WithContext(ctx).Model(&models.User{})
	if filter.ReferencesThread != "" {
		query = query.Where(
			"id IN (SELECT user_id FROM bookmarks WHERE thread_id = ?) OR id IN (SELECT user_id FROM collection_threads WHERE thread_id = ?)",
			filter.ReferencesThread, filter.ReferencesThread,
		)
	}

	var rows []models.User
	if err := preloadUser(query.Order("id")).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.User, len(rows))
	for i, row := range rows {
		out[i] = fromUserModel(row)
	}
	return out, nil
}

func (r *UserRepository) Create(ctx context.Context, user domain.User) (domain.User, error) {
	user.Version = 1
	row := models.User{
		ID:      user.ID,
		Name:    user.Name,
		Email:   user.Email,
		Bio:     user.Bio,
		Version: user.Version,
		CDate:   user.CreatedAt,
		MDate:   user.UpdatedAt,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&models.User{}).Where("email = ?", user.Email).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return domain.ConflictError{Reason: "email already registered"}
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		return replaceReferences(tx, user)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.User{}, domain.ConflictError{Reason: "user already exists"}
		}
		return domain.User{}, err
	}
	return user.Clone(), nil
}

// Save follows the thread version contract and rewrites the user's
// bookmarks and collections wholesale.
func (r *UserRepository) Save(ctx context.Context, user domain.User) (domain.User, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.User{}).
			Where("id = ? AND version = ?", user.ID, user.Version).
			Updates(map[string]any{
				"name":    user.Name,
				"bio":     user.Bio,
				"m_date":  user.UpdatedAt,
				"version": gorm.Expr("version + 1"),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var exists int64
			if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Count(&exists).Error; err != nil {
				return err
			}
			if exists == 0 {
				return domain.NotFoundError{Resource: "user"}
			}
			return domain.ErrStaleWrite
		}

		if err := tx.Where("user_id = ?", user.ID).Delete(&models.CollectionThread{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.Collection{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.Bookmark{}).Error; err != nil {
			return err
		}
		return replaceReferences(tx, user)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.User{}, domain.ConflictError{Reason: "thread already exists in another collection"}
		}
		return domain.User{}, err
	}
	return r.Get(ctx, user.ID)
}

func replaceReferences(tx *gorm.DB, user domain.User) error {
	bookmarks := make([]models.Bookmark, 0, len(user.Bookmarks))
	for i, threadID := range user.Bookmarks {
		bookmarks = append(bookmarks, models.Bookmark{UserID: user.ID, ThreadID: threadID, Position: i})
	}
	collections := make([]models.Collection, 0, len(user.Collections))
	var filed []models.CollectionThread
	for i, c := range user.Collections {
		collections = append(collections, models.Collection{UserID: user.ID, Name: c.Name, Position: i})
		for j, threadID := range c.Threads {
			filed = append(filed, models.CollectionThread{
				UserID:         user.ID,
				CollectionName: c.Name,
				ThreadID:       threadID,
				Position:       j,
			})
		}
	}

	if len(bookmarks) > 0 {
		if err := tx.Create(&bookmarks).Error; err != nil {
			return err
		}
	}
	if len(collections) > 0 {
		if err := tx.Omit("Threads").Create(&collections).Error; err != nil {
			return err
		}
	}
	if len(filed) > 0 {
		if err := tx.Create(&filed).Error; err != nil {
			return err
		}
	}
	return nil
}

func preloadUser(query *gorm.DB) *gorm.DB {
	return query.
		Preload("Bookmarks", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Collections", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Collections.Threads", func(db *gorm.DB) *gorm.DB { return db.Order("position") })
}

func fromUserModel(row models.User) domain.User {
	u := domain.User{
		ID:          row.ID,
		Name:        row.Name,
		Email:       row.Email,
		Bio:         row.Bio,
		Version:     row.Version,
		Bookmarks:   make([]string, 0, len(row.Bookmarks)),
		Collections: make([]domain.Collection, 0, len(row.Collections)),
		CreatedAt:   row.CDate,
		UpdatedAt:   row.MDate,
	}
	for _, b := range row.Bookmarks {
		u.Bookmarks = append(u.Bookmarks, b.ThreadID)
	}
	for _, c := range row.Collections {
		col := domain.Collection{Name: c.Name, Threads: make([]string, 0, len(c.Threads))}
		for _, ct := range c.Threads {
			col.Threads = append(col.Threads, ct.ThreadID)
		}
		u.Collections = append(u.Collections, col)
	}
	return u
}
