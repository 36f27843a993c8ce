package users

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const resetSessionIssuer = "go-users"

// ResetSession mints and verifies the short lived token that carries a
// user from a validated reset token to the change-password form, so the
// library needs no server side session state between the two steps.
type ResetSession struct {
	signingKey []byte
	ttl        time.Duration
	now        Clock
}

// NewResetSession creates a ResetSession signer.
func NewResetSession(signingKey []byte, ttl time.Duration) *ResetSession {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &ResetSession{
		signingKey: signingKey,
		ttl:        ttl,
		now:        time.Now,
	}
}

// WithClock injects a custom clock (useful for tests).
func (s *ResetSession) WithClock(clock Clock) *ResetSession {
	s.now = normalizeClock(clock)
	return s
}

// Mint signs a session token for the given user id.
func (s *ResetSession) Mint(userID uuid.UUID) (string, error) {
	if len(s.signingKey) == 0 {
		return "", errors.New("reset session signing key is empty", errors.CategoryInternal)
	}

	now := s.now()
	claims := jwt.RegisteredClaims{
		Issuer:    resetSessionIssuer,
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign reset session token")
	}

	return signed, nil
}

// Verify parses a session token and returns the user id it was minted for.
func (s *ResetSession) Verify(tokenString string) (uuid.UUID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrResetSessionInvalid
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(resetSessionIssuer), jwt.WithTimeFunc(func() time.Time { return s.now() }))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, ErrTokenExpired
		}
		return uuid.Nil, ErrResetSessionInvalid
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return uuid.Nil, ErrResetSessionInvalid
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrResetSessionInvalid
	}

	return id, nil
}
