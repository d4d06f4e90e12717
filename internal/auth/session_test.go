// internal/auth/session_test.go
package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jason-s-yu/tilehearts/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndVerify(t *testing.T) {
	iss, err := NewIssuer(time.Hour)
	require.NoError(t, err)

	in := models.Identity{ID: "u1", Name: "Alice", Email: "alice@example.com", SessionID: "s1"}
	token, err := iss.CreateJWT(in)
	require.NoError(t, err)

	out, err := iss.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestVerifyRejects(t *testing.T) {
	iss, err := NewIssuer(0)
	require.NoError(t, err)
	other, err := NewIssuer(0)
	require.NoError(t, err)

	_, err = iss.VerifyToken("")
	assert.ErrorIs(t, err, ErrAuthRequired)

	foreign, err := other.CreateJWT(models.Identity{ID: "u1"})
	require.NoError(t, err)
	_, err = iss.VerifyToken(foreign)
	assert.ErrorIs(t, err, ErrAuthFailed)

	hs := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1"})
	signed, err := hs.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = iss.VerifyToken(signed)
	assert.True(t, errors.Is(err, ErrAuthFailed))
}

func TestExpiredToken(t *testing.T) {
	iss, err := NewIssuer(-time.Minute)
	require.NoError(t, err)

	token, err := iss.CreateJWT(models.Identity{ID: "u1"})
	require.NoError(t, err)
	_, err = iss.VerifyToken(token)
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestIssueGuest(t *testing.T) {
	iss, err := NewIssuer(0)
	require.NoError(t, err)

	id, token, err := iss.IssueGuest("Guest")
	require.NoError(t, err)
	assert.True(t, id.IsGuest)
	assert.NotEmpty(t, id.ID)

	got, err := iss.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws/ABC123?token=q", nil)
	assert.Equal(t, "q", TokenFromRequest(r))

	r.AddCookie(&http.Cookie{Name: CookieName, Value: "c"})
	assert.Equal(t, "c", TokenFromRequest(r))

	r.Header.Set("Authorization", "Bearer h")
	assert.Equal(t, "h", TokenFromRequest(r))
}

func TestParseTokenExpireTime(t *testing.T) {
	d, err := ParseTokenExpireTime("never")
	require.NoError(t, err)
	assert.Zero(t, d)

	d, err = ParseTokenExpireTime("72h")
	require.NoError(t, err)
	assert.Equal(t, 72*time.Hour, d)

	_, err = ParseTokenExpireTime("soon")
	assert.Error(t, err)
}
