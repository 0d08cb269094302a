package jwt

import (
	"testing"
	"time"
)

var secret = []byte("test-secret")

func TestCreateAndValidate(t *testing.T) {
	token, err := Create("alice", "threadspire", "threadspire-api", time.Hour, secret)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	claims, err := Validate(token, secret, "threadspire", "threadspire-api")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if claims.Subject != "alice" {
		t.Fatalf("expected subject alice got %s", claims.Subject)
	}
}

func TestValidateRejects(t *testing.T) {
	valid, _ := Create("alice", "threadspire", "threadspire-api", time.Hour, secret)
	expired, _ := Create("alice", "threadspire", "threadspire-api", -time.Minute, secret)
	anonymous, _ := Create("", "threadspire", "threadspire-api", time.Hour, secret)

	cases := []struct {
		name     string
		token    string
		secret   []byte
		audience string
	}{
		{"malformed", "not.a.jwt", secret, ""},
		{"wrong secret", valid, []byte("other"), ""},
		{"expired", expired, secret, ""},
		{"wrong audience", valid, secret, "someone-else"},
		{"no subject", anonymous, secret, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Validate(tc.token, tc.secret, "", tc.audience); err == nil {
				t.Fatalf("expected %s token to be rejected", tc.name)
			}
		})
	}
}
