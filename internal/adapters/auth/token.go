package auth

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"volunteermatch/internal/domain"
)

const adminRole = "admin"

// ErrInvalidToken is returned for tokens that fail signature, expiry or claim checks.
var ErrInvalidToken = errors.New("invalid token")

type jwtClaims struct {
	jwt.RegisteredClaims
	Email         string   `json:"email"`
	Roles         []string `json:"roles"`
	Organizations []string `json:"orgs"`
}

// JWT signs and verifies HS256 bearer tokens carrying the viewer's identity, roles and
// organization memberships.
type JWT struct {
	secret []byte
	now    func() time.Time
}

// NewJWT returns a JWT using the given shared secret.
func NewJWT(secret string) *JWT {
	return &JWT{secret: []byte(secret), now: time.Now}
}

var _ domain.ViewerResolver = (*JWT)(nil)

// Issue signs a token for v that expires after expiry.
func (j *JWT) Issue(v *domain.Viewer, expiry time.Duration) (string, error) {
	now := j.now()
	claims := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   v.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
		Email:         v.Email,
		Organizations: v.Organizations,
	}
	if v.Admin {
		claims.Roles = []string{adminRole}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// Resolve verifies token and returns the viewer it identifies.
func (j *JWT) Resolve(token string) (*domain.Viewer, error) {
	claims := &jwtClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return j.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return &domain.Viewer{
		ID:            claims.Subject,
		Email:         claims.Email,
		Organizations: domain.NormalizeIDs(claims.Organizations),
		Admin:         slices.Contains(claims.Roles, adminRole),
	}, nil
}
