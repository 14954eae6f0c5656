package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(now time.Time) *Manager {
	m := NewManager("admin", "admin123", "test-secret", time.Hour)
	m.now = func() time.Time { return now }
	return m
}

func TestManager_Login(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	m := newTestManager(now)

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{name: "valid credentials", username: "admin", password: "admin123"},
		{name: "wrong password", username: "admin", password: "admin", wantErr: ErrInvalidCredentials},
		{name: "wrong username", username: "root", password: "admin123", wantErr: ErrInvalidCredentials},
		{name: "empty", wantErr: ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := m.Login(tt.username, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, session.Token)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, session.Token)
			assert.Equal(t, now, session.IssuedAt)
			assert.Equal(t, now.Add(time.Hour), session.ExpiresAt)
		})
	}
}

func TestManager_Verify(t *testing.T) {
	now := time.Now()
	m := newTestManager(now)

	session, err := m.Login("admin", "admin123")
	require.NoError(t, err)

	claims, err := m.Verify(session.Token)
	require.NoError(t, err)
	assert.True(t, claims.LoggedIn)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, now.Unix(), claims.IssuedAt.Unix())

	other := NewManager("admin", "admin123", "another-secret", time.Hour)
	_, err = other.Verify(session.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	later := newTestManager(now.Add(2 * time.Hour))
	_, err = later.Verify(session.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestManager_VerifyRejectsLoggedOutClaims(t *testing.T) {
	now := time.Now()
	m := newTestManager(now)

	claims := Claims{
		LoggedIn: false,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestManager_Disabled(t *testing.T) {
	m := NewManager("admin", "", "", 0)
	assert.False(t, m.Enabled())

	_, err := m.Login("admin", "")
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = m.Verify("anything")
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestManager_LoginTimesMatchClaims(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 750_000_000, time.UTC)
	m := newTestManager(now)

	session, err := m.Login("admin", "admin123")
	require.NoError(t, err)

	claims, err := m.Verify(session.Token)
	require.NoError(t, err)
	assert.True(t, session.IssuedAt.Equal(claims.IssuedAt.Time))
	assert.True(t, session.ExpiresAt.Equal(claims.ExpiresAt.Time))
	assert.Equal(t, now.Truncate(time.Second), session.IssuedAt)
}

func TestManager_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := newTestManager(time.Now())
	session, err := m.Login("admin", "admin123")
	require.NoError(t, err)
	token := session.Token

	router := gin.New()
	router.GET("/admin", m.Middleware(), func(c *gin.Context) {
		_, ok := c.Get(ContextLoginTime)
		c.JSON(http.StatusOK, gin.H{"login_time_set": ok})
	})

	tests := []struct {
		name     string
		header   string
		expected int
	}{
		{name: "valid token", header: "Bearer " + token, expected: http.StatusOK},
		{name: "missing header", header: "", expected: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic " + token, expected: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer abc.def.ghi", expected: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.expected, w.Code)
			if tt.expected == http.StatusOK {
				assert.JSONEq(t, `{"login_time_set":true}`, w.Body.String())
			}
		})
	}
}
