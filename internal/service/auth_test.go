package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/news-portal/internal/access"
	"github.com/pribylovaa/news-portal/internal/models"
	"github.com/pribylovaa/news-portal/internal/pkg/password"
	"github.com/pribylovaa/news-portal/internal/session"
	"github.com/pribylovaa/news-portal/internal/storage"
	"github.com/pribylovaa/news-portal/mocks"
)

func TestRegister_OK(t *testing.T) {
	t.Parallel()

	svc, _ := newMemService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, RegisterInput{Name: " Alice ", Email: " Alice@X.com ", Password: "pw123", UserAgent: "ua"})
	require.NoError(t, err)
	require.Equal(t, "Alice", res.User.Name)
	require.Equal(t, "alice@x.com", res.User.Email)
	require.False(t, res.User.IsVerified)
	require.False(t, res.User.IsAdmin)
	require.NotEmpty(t, res.Tokens.AccessToken)
	require.NotEmpty(t, res.Tokens.RefreshToken)
	require.Equal(t, "ua", res.Session.UserAgent)
	require.WithinDuration(t, time.Now().Add(30*time.Minute), res.Tokens.AccessExpiresAt, 2*time.Second)

	id, err := svc.tokens.VerifyAccess(res.Tokens.AccessToken, time.Now())
	require.NoError(t, err)
	require.Equal(t, res.User.ID, id.ID)
}

func TestRegister_Validation(t *testing.T) {
	t.Parallel()

	svc, _ := newMemService(t)
	ctx := context.Background()

	for _, in := range []RegisterInput{
		{Name: "", Email: "a@x.com", Password: "pw"},
		{Name: "A", Email: "", Password: "pw"},
		{Name: "A", Email: "no-at-sign", Password: "pw"},
		{Name: "A", Email: "Bob <bob@x.com>", Password: "pw"},
		{Name: "A", Email: "a@x.com", Password: "   "},
	} {
		_, err := svc.Register(ctx, in)
		require.ErrorIs(t, err, ErrInvalidArgument, "%+v", in)
	}
}

func TestRegister_DuplicateEmailCaseInsensitive(t *testing.T) {
	t.Parallel()

	svc, _ := newMemService(t)
	register(t, svc, "Alice", "alice@x.com")

	_, err := svc.Register(context.Background(), RegisterInput{Name: "Eve", Email: "ALICE@x.com", Password: "pw"})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegister_SessionFailureKeepsUser(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cfg := testCfg()
	users := mocks.NewMockUserRepository(ctrl)
	repo := mocks.NewMockSessionRepository(ctrl)

	svc := New(Deps{
		Users:    users,
		Sessions: session.New(repo, time.Hour),
		Tokens:   testCodec(t, cfg),
		Hasher:   testHasher(),
	}, cfg)

	boom := errors.New("db down")
	users.EXPECT().ByEmail(gomock.Any(), "alice@x.com").Return(nil, storage.ErrNotFound)
	users.EXPECT().Create(gomock.Any(), gomock.Any()).Return(&models.User{ID: 1, Name: "Alice", Email: "alice@x.com"}, nil)
	repo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(int64(0), boom)
	// Delete пользователя не ожидается: регистрация не откатывается.

	_, err := svc.Register(context.Background(), RegisterInput{Name: "Alice", Email: "alice@x.com", Password: "pw123"})
	require.ErrorIs(t, err, boom)
}

func TestLogin_IdenticalFailures(t *testing.T) {
	t.Parallel()

	svc, _ := newMemService(t)
	ctx := context.Background()
	register(t, svc, "Alice", "alice@x.com")

	_, errWrongPw := svc.Login(ctx, "alice@x.com", "nope", "")
	_, errNoUser := svc.Login(ctx, "ghost@x.com", "pw123", "")
	_, errBadEmail := svc.Login(ctx, "garbage", "pw123", "")

	for _, err := range []error{errWrongPw, errNoUser, errBadEmail} {
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	require.Equal(t, errors.Unwrap(errWrongPw).Error(), errors.Unwrap(errNoUser).Error())

	res, err := svc.Login(ctx, "ALICE@x.com", "pw123", "ua")
	require.NoError(t, err)
	require.Equal(t, "alice@x.com", res.User.Email)
}

// countingHasher считает вызовы Verify поверх настоящего argon2id.
type countingHasher struct {
	*password.Hasher
	verifies atomic.Int32
}

func (h *countingHasher) Verify(plain, encoded string) bool {
	h.verifies.Add(1)
	return h.Hasher.Verify(plain, encoded)
}

// Любой провал входа платит одну проверку argon2id: по времени ответа
// нельзя отличить неизвестный e-mail от неверного пароля.
func TestLogin_FailuresAlwaysVerify(t *testing.T) {
	t.Parallel()

	h := &countingHasher{Hasher: testHasher()}
	svc, mem := newMemServiceWith(t, h)
	ctx := context.Background()

	require.NotEmpty(t, svc.dummyHash)
	require.False(t, h.NeedsRehash(svc.dummyHash), "заглушка с текущими параметрами")

	register(t, svc, "Alice", "alice@x.com")
	gh := "github_1"
	_, err := mem.Users().Create(ctx, models.UserCreate{Name: "G", Email: "g@x.com", GitHubID: &gh})
	require.NoError(t, err)

	cases := []struct {
		name  string
		email string
		pw    string
	}{
		{name: "unknown email", email: "ghost@x.com", pw: "pw123"},
		{name: "oauth-only account", email: "g@x.com", pw: "pw123"},
		{name: "wrong password", email: "alice@x.com", pw: "nope"},
		{name: "dummy password on unknown email", email: "ghost@x.com", pw: dummyPassword},
	}

	for _, tc := range cases {
		before := h.verifies.Load()
		_, err := svc.Login(ctx, tc.email, tc.pw, "")
		require.ErrorIs(t, err, ErrInvalidCredentials, tc.name)
		require.Equal(t, before+1, h.verifies.Load(), tc.name)
	}
}

func TestLogin_OAuthOnlyAccount(t *testing.T) {
	t.Parallel()

	svc, mem := newMemService(t)
	ctx := context.Background()

	gh := "github_1"
	_, err := mem.Users().Create(ctx, models.UserCreate{Name: "G", Email: "g@x.com", GitHubID: &gh})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "g@x.com", "anything", "")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_RehashesLegacyBcrypt(t *testing.T) {
	t.Parallel()

	svc, mem := newMemService(t)
	ctx := context.Background()

	legacy, err := bcrypt.GenerateFromPassword([]byte("old-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	h := string(legacy)
	u, err := mem.Users().Create(ctx, models.UserCreate{Name: "L", Email: "l@x.com", PasswordHash: &h})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "l@x.com", "old-pass", "")
	require.NoError(t, err)

	got, err := mem.Users().Get(ctx, u.ID)
	require.NoError(t, err)
	require.NotEqual(t, h, *got.PasswordHash)
	require.False(t, svc.hasher.NeedsRehash(*got.PasswordHash))

	_, err = svc.Login(ctx, "l@x.com", "old-pass", "")
	require.NoError(t, err)
}

func TestRefresh_Rotation(t *testing.T) {
	t.Parallel()

	svc, _ := newMemService(t)
	ctx := context.Background()
	res := register(t, svc, "Alice", "alice@x.com")

	pair, err := svc.Refresh(ctx, res.Tokens.RefreshToken, "ua-2")
	require.NoError(t, err)
	require.NotEqual(t, res.Tokens.RefreshToken, pair.RefreshToken)
	require.NotEmpty(t, pair.AccessToken)

	_, err = svc.Refresh(ctx, res.Tokens.RefreshToken, "")
	require.ErrorIs(t, err, ErrInvalidToken, "старый токен мёртв")

	again, err := svc.Refresh(ctx, pair.RefreshToken, "")
	require.NoError(t, err, "новый токен срабатывает ещё раз")

	_, err = svc.Refresh(ctx, pair.RefreshToken, "")
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Refresh(ctx, again.RefreshToken, "")
	require.NoError(t, err)
}

func TestRefresh_ConcurrentSingleWinner(t *testing.T) {
	t.Parallel()

	svc, _ := newMemService(t)
	ctx := context.Background()
	res := register(t, svc, "Alice", "alice@x.com")

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Refresh(ctx, res.Tokens.RefreshToken, "")
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		require.ErrorIs(t, err, ErrInvalidToken)
	}
	require.Equal(t, 1, winners)
}

func TestRefresh_UnknownAndDeletedUser(t *testing.T) {
	t.Parallel()

	svc, mem := newMemService(t)
	ctx := context.Background()

	_, err := svc.Refresh(ctx, "never-issued", "")
	require.ErrorIs(t, err, ErrInvalidToken)

	res := register(t, svc, "Alice", "alice@x.com")
	require.NoError(t, mem.Users().Delete(ctx, res.User.ID))

	_, err = svc.Refresh(ctx, res.Tokens.RefreshToken, "")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestLogout_Idempotent(t *testing.T) {
	t.Parallel()

	svc, _ := newMemService(t)
	ctx := context.Background()
	res := register(t, svc, "Alice", "alice@x.com")

	require.NoError(t, svc.Logout(ctx, res.Tokens.RefreshToken))
	require.NoError(t, svc.Logout(ctx, res.Tokens.RefreshToken))
	require.NoError(t, svc.Logout(ctx, ""))

	_, err := svc.Refresh(ctx, res.Tokens.RefreshToken, "")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessions_ListAndRevoke(t *testing.T) {
	t.Parallel()

	svc, _ := newMemService(t)
	ctx := context.Background()

	res := register(t, svc, "Alice", "alice@x.com")
	_, err := svc.Login(ctx, "alice@x.com", "pw123", "phone")
	require.NoError(t, err)
	alice := res.User.Identity()

	list, err := svc.Sessions(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 2)

	bob := register(t, svc, "Bob", "bob@x.com").User.Identity()
	err = svc.RevokeSession(ctx, bob, res.Session.ID)
	require.ErrorIs(t, err, access.ErrForbidden)

	admin := bootstrapAdmin(t, svc)
	require.NoError(t, svc.RevokeSession(ctx, admin, res.Session.ID))

	err = svc.RevokeSession(ctx, alice, res.Session.ID)
	require.ErrorIs(t, err, ErrNotFound)

	list, err = svc.Sessions(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestMe(t *testing.T) {
	t.Parallel()

	svc, _ := newMemService(t)
	res := register(t, svc, "Alice", "alice@x.com")

	u, err := svc.Me(context.Background(), res.User.Identity())
	require.NoError(t, err)
	require.Equal(t, "alice@x.com", u.Email)

	_, err = svc.Me(context.Background(), models.Identity{ID: 999})
	require.ErrorIs(t, err, ErrNotFound)
}
