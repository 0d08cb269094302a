package service

import (
	"context"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/akashdesaidev/Threadspire/internal/config"
	"github.com/akashdesaidev/Threadspire/jwt"
)

var tracer = otel.Tracer("auth")

type AuthService struct {
	config config.Auth
}

func NewAuthService(config config.Auth) *AuthService {
	return &AuthService{config: config}
}

type AuthResult struct {
	UserID string
}

// AuthJwt verifies a bearer token issued for this service and returns the
// user it identifies.
func (s *AuthService) AuthJwt(ctx context.Context, token string) (*AuthResult, error) {
	_, span := tracer.Start(ctx, "Auth.Service.AuthJwt")
	defer span.End()

	claims, err := jwt.Validate(token, []byte(s.config.Secret), s.config.Issuer, s.config.Audience)
	if err != nil {
		span.RecordError(errors.Wrap(err, "jwt validation failed"))
		return nil, err
	}
	return &AuthResult{UserID: claims.Subject}, nil
}

// Issue signs a token for userID with the configured lifetime.
func (s *AuthService) Issue(userID string) (string, error) {
	return jwt.Create(userID, s.config.Issuer, s.config.Audience, s.config.TokenTTL, []byte(s.config.Secret))
}
