package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/news-portal/internal/access"
	"github.com/pribylovaa/news-portal/internal/models"
)

// Сценарий удаления пользователей администратором.
func TestAdminDeletionScenario(t *testing.T) {
	t.Parallel()

	svc, _ := newMemService(t)
	ctx := context.Background()

	system := bootstrapAdmin(t, svc)
	admin := makeAdmin(t, svc, system, "admin@x.com")
	other := makeAdmin(t, svc, system, "other@x.com")
	regular := register(t, svc, "Reg", "reg@x.com").User

	err := svc.DeleteUser(ctx, admin, admin.ID)
	require.ErrorIs(t, err, access.ErrSelfDeletion)
	require.ErrorIs(t, err, access.ErrPolicyViolation)

	err = svc.DeleteUser(ctx, admin, other.ID)
	require.ErrorIs(t, err, access.ErrAdminDeletion)

	err = svc.DeleteUser(ctx, admin, system.ID)
	require.ErrorIs(t, err, access.ErrSystemAccountDeletion)

	require.NoError(t, svc.DeleteUser(ctx, admin, regular.ID))
	_, err = svc.GetUser(ctx, regular.ID)
	require.ErrorIs(t, err, ErrNotFound)

	err = svc.DeleteUser(ctx, admin, regular.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteUser_NonAdmin(t *testing.T) {
	t.Parallel()

	svc, _ := newMemService(t)
	ctx := context.Background()

	a := register(t, svc, "A", "a@x.com").User
	b := register(t, svc, "B", "b@x.com").User

	err := svc.DeleteUser(ctx, a.Identity(), b.ID)
	require.ErrorIs(t, err, access.ErrForbidden)

	err = svc.DeleteUser(ctx, a.Identity(), 404)
	require.ErrorIs(t, err, access.ErrForbidden, "не-админ не узнаёт о существовании id")
}

func TestDeleteUser_RemovesEverything(t *testing.T) {
	t.Parallel()

	svc, _ := newMemService(t)
	ctx := context.Background()
	admin := bootstrapAdmin(t, svc)

	victimRes := register(t, svc, "V", "v@x.com")
	yes := true
	victim, err := svc.SetUserFlags(ctx, admin, victimRes.User.ID, UserFlags{IsVerified: &yes})
	require.NoError(t, err)

	bystander := register(t, svc, "B", "b@x.com").User.Identity()

	own, err := svc.CreateNews(ctx, victim.Identity(), newsInput("mine"))
	require.NoError(t, err)
	adminNews, err := svc.CreateNews(ctx, admin, newsInput("admin"))
	require.NoError(t, err)

	_, err = svc.CreateComment(ctx, bystander, own.ID, "on victim's news")
	require.NoError(t, err)
	_, err = svc.CreateComment(ctx, victim.Identity(), adminNews.ID, "victim's comment")
	require.NoError(t, err)
	kept, err := svc.CreateComment(ctx, bystander, adminNews.ID, "stays")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser(ctx, admin, victim.ID))

	_, err = svc.GetNews(ctx, own.ID)
	require.ErrorIs(t, err, ErrNotFound)

	all, err := svc.ListComments(ctx, models.ListParams{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, kept.ID, all[0].ID)

	_, err = svc.Refresh(ctx, victimRes.Tokens.RefreshToken, "")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestStats(t *testing.T) {
	t.Parallel()

	svc, _ := newMemService(t)
	ctx := context.Background()
	admin := bootstrapAdmin(t, svc)

	bob := register(t, svc, "Bob", "bob@x.com").User
	register(t, svc, "Eve", "eve@x.com")

	n, err := svc.CreateNews(ctx, admin, newsInput("t"))
	require.NoError(t, err)
	_, err = svc.CreateComment(ctx, bob.Identity(), n.ID, "c")
	require.NoError(t, err)

	_, err = svc.Stats(ctx, bob.Identity())
	require.ErrorIs(t, err, access.ErrForbidden)

	st, err := svc.Stats(ctx, admin)
	require.NoError(t, err)
	require.Equal(t, models.AdminStats{
		TotalUsers:    3,
		TotalNews:     1,
		TotalComments: 1,
		AdminUsers:    1,
		VerifiedUsers: 1,
		RegularUsers:  2,
	}, *st)
}

func TestMakeAdminAndCheckUser(t *testing.T) {
	t.Parallel()

	svc, _ := newMemService(t)
	ctx := context.Background()
	admin := bootstrapAdmin(t, svc)
	bob := register(t, svc, "Bob", "bob@x.com").User

	_, err := svc.MakeAdmin(ctx, bob.Identity(), bob.ID)
	require.ErrorIs(t, err, access.ErrForbidden)

	u, err := svc.MakeAdmin(ctx, admin, bob.ID)
	require.NoError(t, err)
	require.True(t, u.IsAdmin)
	require.True(t, u.IsVerified)

	_, err = svc.MakeAdmin(ctx, admin, 404)
	require.ErrorIs(t, err, ErrNotFound)

	checked, err := svc.CheckUser(ctx, admin, bob.ID)
	require.NoError(t, err)
	require.True(t, checked.IsAdmin)

	_, err = svc.CheckUser(ctx, models.Identity{ID: 99}, bob.ID)
	require.ErrorIs(t, err, access.ErrForbidden)
}

func TestEnsureSystemAdmin(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("idempotent", func(t *testing.T) {
		svc, _ := newMemService(t)
		require.NoError(t, svc.EnsureSystemAdmin(ctx))
		require.NoError(t, svc.EnsureSystemAdmin(ctx))

		res, err := svc.Login(ctx, systemEmail, "admin-pass", "")
		require.NoError(t, err)
		require.True(t, res.User.IsAdmin)
	})

	t.Run("restores demoted account", func(t *testing.T) {
		svc, mem := newMemService(t)
		u := register(t, svc, "S", systemEmail).User
		require.NoError(t, svc.EnsureSystemAdmin(ctx))

		got, err := mem.Users().Get(ctx, u.ID)
		require.NoError(t, err)
		require.True(t, got.IsAdmin)
		require.True(t, got.IsVerified)
	})

	t.Run("disabled without password", func(t *testing.T) {
		svc, _ := newMemService(t)
		svc.admin.Password = ""
		require.NoError(t, svc.EnsureSystemAdmin(ctx))

		_, err := svc.users.ByEmail(ctx, systemEmail)
		require.Error(t, err)
	})
}
