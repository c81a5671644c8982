package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/news-portal/internal/models"
)

func TestGitHubLogin_RejectsNonDemoCode(t *testing.T) {
	t.Parallel()

	svc, _ := newMemService(t)

	for _, code := range []string{"", "real_code", "demo_"} {
		_, err := svc.GitHubLogin(context.Background(), code, "")
		require.ErrorIs(t, err, ErrInvalidArgument, code)
	}
}

func TestGitHubLogin_CreatesThenReuses(t *testing.T) {
	t.Parallel()

	svc, _ := newMemService(t)
	ctx := context.Background()

	state, err := NewOAuthState()
	require.NoError(t, err)

	first, err := svc.GitHubLogin(ctx, DemoCode(state), "browser")
	require.NoError(t, err)
	require.True(t, first.User.IsVerified)
	require.False(t, first.User.IsAdmin)
	require.Nil(t, first.User.PasswordHash)
	require.Equal(t, demoGitHubID, *first.User.GitHubID)
	require.Equal(t, demoAvatarURL, *first.User.Avatar)
	require.True(t, strings.HasPrefix(first.User.Email, "github_user_"))
	require.True(t, strings.HasSuffix(first.User.Email, "@example.com"))
	require.NotEmpty(t, first.Tokens.RefreshToken)

	second, err := svc.GitHubLogin(ctx, DemoCode("other"), "")
	require.NoError(t, err)
	require.Equal(t, first.User.ID, second.User.ID, "повторный вход находит пользователя по github_id")
}

func TestLinkOrCreate_LinksExistingEmail(t *testing.T) {
	t.Parallel()

	svc, mem := newMemService(t)
	ctx := context.Background()

	own := "own.png"
	u, err := mem.Users().Create(ctx, models.UserCreate{Name: "A", Email: "a@x.com", Avatar: &own})
	require.NoError(t, err)
	bare, err := mem.Users().Create(ctx, models.UserCreate{Name: "B", Email: "b@x.com"})
	require.NoError(t, err)

	linked, err := svc.linkOrCreate(ctx, GitHubProfile{ID: "gh-a", Email: "A@x.com", Avatar: demoAvatarURL})
	require.NoError(t, err)
	require.Equal(t, u.ID, linked.ID)
	require.Equal(t, "gh-a", *linked.GitHubID)
	require.Equal(t, own, *linked.Avatar, "свой аватар не затирается")

	linked, err = svc.linkOrCreate(ctx, GitHubProfile{ID: "gh-b", Email: "b@x.com", Avatar: demoAvatarURL})
	require.NoError(t, err)
	require.Equal(t, bare.ID, linked.ID)
	require.Equal(t, demoAvatarURL, *linked.Avatar)
}
