package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/news-portal/internal/config"
	"github.com/pribylovaa/news-portal/internal/models"
)

func testCfg() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:      "unit-test-secret",
		AccessTokenTTL: 30 * time.Minute,
		Issuer:         "news-portal",
	}
}

func newCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec(testCfg())
	require.NoError(t, err)
	return c
}

func sign(t *testing.T, method jwt.SigningMethod, claims jwt.MapClaims, key []byte) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	t.Parallel()

	c := newCodec(t)
	now := time.Now().UTC()
	id := models.Identity{ID: 42, Email: "a@b.c", IsAdmin: true, IsVerified: true}

	tok, exp, err := c.IssueAccess(id, now)
	require.NoError(t, err)
	require.Len(t, strings.Split(tok, "."), 3)
	require.WithinDuration(t, now.Add(30*time.Minute), exp, time.Second)

	got, err := c.VerifyAccess(tok, now)
	require.NoError(t, err)
	require.Equal(t, id, got)
}

func TestVerify_ExpiryBoundary(t *testing.T) {
	t.Parallel()

	c := newCodec(t)
	now := time.Unix(1_700_000_000, 0).UTC()

	tok, exp, err := c.IssueAccess(models.Identity{ID: 1, Email: "a@b.c"}, now)
	require.NoError(t, err)

	_, err = c.VerifyAccess(tok, exp.Add(-time.Second))
	require.NoError(t, err)

	for _, at := range []time.Time{exp, exp.Add(time.Second)} {
		_, err = c.VerifyAccess(tok, at)
		require.ErrorIs(t, err, ErrTokenExpired)
		require.ErrorIs(t, err, ErrInvalidToken)
	}
}

func TestVerify_ExpiryBoundary_FractionalIssue(t *testing.T) {
	t.Parallel()

	c := newCodec(t)
	start := time.Unix(1_700_000_000, 0).UTC()
	issued := start.Add(900 * time.Millisecond)

	tok, exp, err := c.IssueAccess(models.Identity{ID: 1, Email: "a@b.c"}, issued)
	require.NoError(t, err)
	require.Equal(t, start.Add(c.TTL()), exp, "срок от начала секунды выпуска")

	claims := jwt.MapClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(tok, claims)
	require.NoError(t, err)
	require.EqualValues(t, exp.Unix(), claims["exp"])
	require.EqualValues(t, start.Unix(), claims["iat"])

	_, err = c.VerifyAccess(tok, exp.Add(-time.Millisecond))
	require.NoError(t, err)

	_, err = c.VerifyAccess(tok, exp)
	require.ErrorIs(t, err, ErrTokenExpired)

	// Между exp и issued+ttl токен уже недействителен.
	_, err = c.VerifyAccess(tok, issued.Add(c.TTL()).Add(-500*time.Millisecond))
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerify_Rejects(t *testing.T) {
	t.Parallel()

	c := newCodec(t)
	now := time.Now().UTC()
	secret := []byte(testCfg().JWTSecret)

	base := func() jwt.MapClaims {
		return jwt.MapClaims{
			"sub":   "7",
			"email": "a@b.c",
			"iss":   "news-portal",
			"iat":   now.Unix(),
			"exp":   now.Add(time.Minute).Unix(),
		}
	}

	tests := []struct {
		name  string
		token func() string
	}{
		{"garbage", func() string { return "not.a.jwt" }},
		{"empty", func() string { return "" }},
		{"wrong key", func() string { return sign(t, jwt.SigningMethodHS256, base(), []byte("other")) }},
		{"wrong alg", func() string { return sign(t, jwt.SigningMethodHS512, base(), secret) }},
		{"wrong issuer", func() string {
			cl := base()
			cl["iss"] = "someone-else"
			return sign(t, jwt.SigningMethodHS256, cl, secret)
		}},
		{"missing email", func() string {
			cl := base()
			delete(cl, "email")
			return sign(t, jwt.SigningMethodHS256, cl, secret)
		}},
		{"missing exp", func() string {
			cl := base()
			delete(cl, "exp")
			return sign(t, jwt.SigningMethodHS256, cl, secret)
		}},
		{"bad sub", func() string {
			cl := base()
			cl["sub"] = "abc"
			return sign(t, jwt.SigningMethodHS256, cl, secret)
		}},
		{"tampered payload", func() string {
			tok, _, err := c.IssueAccess(models.Identity{ID: 1, Email: "a@b.c"}, now)
			require.NoError(t, err)
			parts := strings.Split(tok, ".")
			other, _, err := c.IssueAccess(models.Identity{ID: 2, Email: "a@b.c", IsAdmin: true}, now)
			require.NoError(t, err)
			parts[1] = strings.Split(other, ".")[1]
			return strings.Join(parts, ".")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.VerifyAccess(tt.token(), now)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestVerify_NumericSubject(t *testing.T) {
	t.Parallel()

	c := newCodec(t)
	now := time.Now().UTC()

	tok := sign(t, jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":         9,
		"email":       "legacy@b.c",
		"is_verified": true,
		"iss":         "news-portal",
		"exp":         now.Add(time.Minute).Unix(),
	}, []byte(testCfg().JWTSecret))

	got, err := c.VerifyAccess(tok, now)
	require.NoError(t, err)
	require.EqualValues(t, 9, got.ID)
	require.True(t, got.IsVerified)
	require.False(t, got.IsAdmin)
}

func TestNewCodec(t *testing.T) {
	t.Parallel()

	_, err := NewCodec(config.AuthConfig{})
	require.ErrorIs(t, err, ErrEmptySecret)

	c, err := NewCodec(config.AuthConfig{JWTSecret: "x"})
	require.NoError(t, err)
	require.Equal(t, defaultAccessTTL, c.TTL())

	_, _, err = c.IssueAccess(models.Identity{}, time.Now())
	require.ErrorIs(t, err, ErrInvalidToken)
}
