package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/news-portal/internal/access"
	"github.com/pribylovaa/news-portal/internal/config"
	apierrors "github.com/pribylovaa/news-portal/internal/http/errors"
	"github.com/pribylovaa/news-portal/internal/service"
)

func withURLParam(r *http.Request, key, val string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, val)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestPathID(t *testing.T) {
	t.Parallel()

	for raw, ok := range map[string]bool{"1": true, "42": true, "0": false, "-3": false, "abc": false, "": false} {
		req := withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "id", raw)
		id, err := pathID(req, "id")
		if ok {
			require.NoError(t, err, raw)
			require.Positive(t, id)
			continue
		}
		require.ErrorIs(t, err, service.ErrInvalidArgument, raw)
	}
}

func TestListParams(t *testing.T) {
	t.Parallel()

	p, err := listParams(httptest.NewRequest(http.MethodGet, "/news?skip=5&limit=10", nil))
	require.NoError(t, err)
	require.Equal(t, 5, p.Skip)
	require.Equal(t, 10, p.Limit)

	p, err = listParams(httptest.NewRequest(http.MethodGet, "/news", nil))
	require.NoError(t, err)
	require.Zero(t, p.Skip)
	require.Zero(t, p.Limit)

	_, err = listParams(httptest.NewRequest(http.MethodGet, "/news?limit=ten", nil))
	require.ErrorIs(t, err, service.ErrInvalidArgument)
}

func TestDecodeStrict_ValidationMessage(t *testing.T) {
	t.Parallel()

	h := New(nil, config.OAuthConfig{})
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(`{"name":"A","email":"","password":"x"}`))

	var in RegisterRequest
	err := h.decodeStrict(httptest.NewRecorder(), req, &in)

	var br *apierrors.BadRequest
	require.True(t, errors.As(err, &br))
	require.Equal(t, "email is required", br.Msg)
}

func TestDecodeStrict_BodyTooLarge(t *testing.T) {
	t.Parallel()

	h := New(nil, config.OAuthConfig{})
	big := `{"text":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/comments", strings.NewReader(big))

	var in CommentRequest
	require.ErrorIs(t, h.decodeStrict(httptest.NewRecorder(), req, &in), service.ErrInvalidArgument)
}

func TestIdentity_MissingIsUnauthenticated(t *testing.T) {
	t.Parallel()

	_, err := identity(httptest.NewRequest(http.MethodGet, "/auth/check", nil))
	require.ErrorIs(t, err, access.ErrUnauthenticated)
}
