// Package auth issues and checks the admin session token. The token carries nothing
// beyond the logged-in flag and the login time.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	issuer = "estatehub"

	// ContextLoginTime is the gin context key holding the admin's login time.
	ContextLoginTime = "admin_login_time"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrDisabled           = errors.New("admin login is disabled")
)

// Claims is the admin session.
type Claims struct {
	LoggedIn bool `json:"logged_in"`
	jwt.RegisteredClaims
}

// Session is a signed admin token and the times it carries.
type Session struct {
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Manager checks the configured admin credentials and signs session tokens with HS256.
type Manager struct {
	username string
	password string
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

// NewManager returns a manager that rejects every login when password or secret is empty.
func NewManager(username, password, secret string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Manager{
		username: username,
		password: password,
		secret:   []byte(secret),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *Manager) Enabled() bool {
	return m.password != "" && len(m.secret) > 0
}

// Login checks the credentials and returns a signed session. IssuedAt and ExpiresAt
// are the exact claim values, truncated to the token's time precision.
func (m *Manager) Login(username, password string) (Session, error) {
	if !m.Enabled() {
		return Session{}, ErrDisabled
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(m.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(m.password)) == 1
	if !userOK || !passOK {
		return Session{}, ErrInvalidCredentials
	}

	now := m.now().Truncate(jwt.TimePrecision)
	expires := now.Add(m.ttl).Truncate(jwt.TimePrecision)
	claims := Claims{
		LoggedIn: true,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return Session{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return Session{Token: token, IssuedAt: now, ExpiresAt: expires}, nil
}

// Verify parses a token and returns its claims when it is a valid, unexpired session.
func (m *Manager) Verify(tokenStr string) (*Claims, error) {
	if !m.Enabled() {
		return nil, ErrDisabled
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || !claims.LoggedIn {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Middleware rejects requests without a valid Bearer session token.
func (m *Manager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No bearer token"})
			return
		}

		claims, err := m.Verify(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		if claims.IssuedAt != nil {
			c.Set(ContextLoginTime, claims.IssuedAt.Time)
		}
		c.Next()
	}
}
