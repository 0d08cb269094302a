package usecase

import (
	"context"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/akashdesaidev/Threadspire/internal/domain"
)

type ProfileChanges struct {
	Name *string `json:"name"`
	Bio  *string `json:"bio"`
}

type UserUsecase struct {
	users    UserRepository
	handlers []ProfileChangeHandler
	now      func() time.Time
}

func NewUserUsecase(users UserRepository, handlers ...ProfileChangeHandler) *UserUsecase {
	return &UserUsecase{users: users, handlers: handlers, now: time.Now}
}

// Register creates the profile for an identity issued by the auth provider.
func (uc *UserUsecase) Register(ctx context.Context, userID, name, email string) (domain.User, error) {
	ctx, span := tracer.Start(ctx, "User.Usecase.Register")
	defer span.End()

	if userID == "" {
		return domain.User{}, domain.ForbiddenError{Reason: "authentication required"}
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.User{}, domain.ValidationError{Field: "name", Reason: "name is required"}
	}
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.User{}, domain.ValidationError{Field: "email", Reason: "email is malformed"}
	}

	now := uc.now()
	user, err := uc.users.Create(ctx, domain.User{
		ID:          userID,
		Name:        name,
		Email:       strings.ToLower(email),
		Bookmarks:   []string{},
		Collections: []domain.Collection{},
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		span.RecordError(err)
		return domain.User{}, err
	}
	return user, nil
}

func (uc *UserUsecase) Profile(ctx context.Context, userID string) (domain.User, error) {
	ctx, span := tracer.Start(ctx, "User.Usecase.Profile")
	defer span.End()

	return uc.users.Get(ctx, userID)
}

// UpdateProfile changes the caller's own name and bio.
func (uc *UserUsecase) UpdateProfile(ctx context.Context, callerID string, changes ProfileChanges) (domain.User, error) {
	ctx, span := tracer.Start(ctx, "User.Usecase.UpdateProfile")
	defer span.End()

	if callerID == "" {
		return domain.User{}, domain.ForbiddenError{Reason: "authentication required"}
	}
	if changes.Name != nil && strings.TrimSpace(*changes.Name) == "" {
		return domain.User{}, domain.ValidationError{Field: "name", Reason: "name must not be empty"}
	}

	var updated domain.User
	err := retryStale(ctx, "user.update", func() error {
		user, err := uc.users.Get(ctx, callerID)
		if err != nil {
			return err
		}
		if changes.Name != nil {
			user.Name = strings.TrimSpace(*changes.Name)
		}
		if changes.Bio != nil {
			user.Bio = strings.TrimSpace(*changes.Bio)
		}
		user.UpdatedAt = uc.now()
		updated, err = uc.users.Save(ctx, user)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return domain.User{}, pkgerrors.WithMessage(err, "update profile")
	}

	// The profile is already saved; a failing handler only leaves stale views behind.
	for _, h := range uc.handlers {
		if err := h.HandleProfileChanged(ctx, updated.ID); err != nil {
			span.RecordError(err)
			slog.WarnContext(
				ctx, "failed to propagate profile change",
				slog.String("user", updated.ID),
				slog.String("error", err.Error()),
				slog.String("module", "user"),
			)
		}
	}
	return updated, nil
}
