package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volunteermatch/internal/domain"
)

func TestJWT_IssueResolve(t *testing.T) {
	j := NewJWT("test-secret")
	viewer := &domain.Viewer{ID: "user-123", Email: "u@example.com", Organizations: []string{"org-a", "org-a", "org-b"}, Admin: true}

	token, err := j.Issue(viewer, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, err := j.Resolve(token)
	require.NoError(t, err)
	assert.Equal(t, &domain.Viewer{ID: "user-123", Email: "u@example.com", Organizations: []string{"org-a", "org-b"}, Admin: true}, got)
}

func TestJWT_Resolve_Rejects(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	j := NewJWT("test-secret")
	j.now = func() time.Time { return now }

	valid, err := j.Issue(&domain.Viewer{ID: "user-1"}, time.Hour)
	require.NoError(t, err)

	expired, err := j.Issue(&domain.Viewer{ID: "user-1"}, -time.Minute)
	require.NoError(t, err)

	otherSecret := NewJWT("other-secret")
	otherSecret.now = j.now
	forged, err := otherSecret.Issue(&domain.Viewer{ID: "user-1", Admin: true}, time.Hour)
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = j.Resolve(valid)
	require.NoError(t, err)

	tests := map[string]string{
		"expired":      expired,
		"wrong secret": forged,
		"no subject":   noSubject,
		"no expiry":    noExpiry,
		"not a token":  "abc.def",
		"empty":        "",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := j.Resolve(token)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
