package jwt

import (
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// Claims are the registered claims threadspire reads from a bearer token.
// The subject carries the user id.
type Claims = gojwt.RegisteredClaims

// Create creates an HS256 signed JWT. It is used by tests and local tooling;
// production tokens come from the identity provider.
func Create(subject, issuer, audience string, ttl time.Duration, secret []byte) (string, error) {
	now := time.Now()
	claims := Claims{
		Subject:   subject,
		Issuer:    issuer,
		IssuedAt:  gojwt.NewNumericDate(now),
		ExpiresAt: gojwt.NewNumericDate(now.Add(ttl)),
	}
	if audience != "" {
		claims.Audience = gojwt.ClaimStrings{audience}
	}
	return gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString(secret)
}

// Validate checks the signature, expiry, issuer and audience of the token.
// Empty issuer or audience are not checked.
func Validate(token string, secret []byte, issuer, audience string) (*Claims, error) {
	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, gojwt.WithIssuer(issuer))
	}
	if audience != "" {
		opts = append(opts, gojwt.WithAudience(audience))
	}

	var claims Claims
	_, err := gojwt.ParseWithClaims(token, &claims, func(*gojwt.Token) (any, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("jwt has no subject")
	}
	return &claims, nil
}
