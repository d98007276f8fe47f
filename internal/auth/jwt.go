package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken covers every verification failure: bad signature,
	// malformed token, expired token. Callers get no partial trust.
	ErrInvalidToken = errors.New("invalid session token")
	// ErrMissingSecret is returned when no signing secret is configured in a
	// production deployment.
	ErrMissingSecret = errors.New("jwt secret is not configured")
)

// devFallbackSecret is only ever used outside production.
const devFallbackSecret = "dev-secret-change-me"

// DefaultSessionTTL is how long an issued session token stays valid.
const DefaultSessionTTL = 24 * time.Hour

// SessionClaims is the verified content of a session token.
type SessionClaims struct {
	jwt.RegisteredClaims
}

// Username returns the token subject.
func (c *SessionClaims) Username() string {
	return c.Subject
}

// SessionService issues and verifies signed, time-limited admin session
// tokens. Tokens are stateless: revocation happens only through expiry or
// secret rotation.
type SessionService struct {
	secret []byte
	ttl    time.Duration
}

// NewSessionService builds the token service. A missing secret is a fatal
// configuration error in production; non-production environments fall back
// to a fixed local secret.
func NewSessionService(secret, env string, ttl time.Duration) (*SessionService, error) {
	if secret == "" {
		if env == "production" {
			return nil, ErrMissingSecret
		}
		secret = devFallbackSecret
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionService{secret: []byte(secret), ttl: ttl}, nil
}

// Issue signs a session token for the given username.
func (s *SessionService) Issue(username string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify checks signature and expiry and returns the claims. Every failure
// mode collapses into ErrInvalidToken.
func (s *SessionService) Verify(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// TTL returns the configured session lifetime.
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// ExtractTokenFromBearer extracts the token from an Authorization header.
func ExtractTokenFromBearer(authHeader string) string {
	const bearerPrefix = "Bearer "
	if len(authHeader) > len(bearerPrefix) && authHeader[:len(bearerPrefix)] == bearerPrefix {
		return authHeader[len(bearerPrefix):]
	}
	return ""
}
