package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/groupcart-backend/internal/users"
	pkgAuth "github.com/angelmondragon/groupcart-backend/pkg/auth"
	"github.com/angelmondragon/groupcart-backend/pkg/auth/session"
	"github.com/angelmondragon/groupcart-backend/pkg/config"
	"github.com/angelmondragon/groupcart-backend/pkg/db/dbtest"
	pkgerrors "github.com/angelmondragon/groupcart-backend/pkg/errors"
	"github.com/angelmondragon/groupcart-backend/pkg/security"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessions struct {
	tokens map[string]string
	seq    int
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{tokens: map[string]string{}}
}

func (f *fakeSessions) Generate(_ context.Context, accessID string) (string, error) {
	f.seq++
	token := fmt.Sprintf("refresh-%d", f.seq)
	f.tokens[accessID] = token
	return token, nil
}

func (f *fakeSessions) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	stored, ok := f.tokens[oldAccessID]
	if !ok || stored != provided {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(f.tokens, oldAccessID)
	newID := uuid.NewString()
	token, _ := f.Generate(ctx, newID)
	return newID, token, nil
}

func (f *fakeSessions) Revoke(_ context.Context, accessID string) error {
	delete(f.tokens, accessID)
	return nil
}

var (
	testJWT = config.JWTConfig{Secret: "test-secret", Issuer: "groupcart", ExpirationMinutes: 60}
	testPwd = config.PasswordConfig{ArgonMemoryKB: 8192, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}
)

func newTestService(t *testing.T) (Service, *users.Repository, *fakeSessions) {
	t.Helper()
	repo := users.NewRepository(dbtest.Open(t))
	sessions := newFakeSessions()
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: sessions,
		Hasher:         security.NewHasher(testPwd),
		JWTConfig:      testJWT,
	})
	require.NoError(t, err)
	return svc, repo, sessions
}

func registerAlice(t *testing.T, svc Service) *AuthResponse {
	t.Helper()
	res, err := svc.Register(context.Background(), RegisterRequest{
		Email:     "Alice@Example.com",
		Password:  "secret1",
		FirstName: "Alice",
		LastName:  "Liddell",
	})
	require.NoError(t, err)
	return res
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{SessionManager: newFakeSessions(), Hasher: security.NewHasher(testPwd)})
	assert.Error(t, err)
	_, err = NewService(ServiceParams{UserRepo: &users.Repository{}, Hasher: security.NewHasher(testPwd)})
	assert.Error(t, err)
	_, err = NewService(ServiceParams{UserRepo: &users.Repository{}, SessionManager: newFakeSessions()})
	assert.Error(t, err)
}

func TestRegisterIssuesTokens(t *testing.T) {
	svc, repo, sessions := newTestService(t)
	res := registerAlice(t, svc)

	require.NotNil(t, res.User)
	assert.Equal(t, "alice@example.com", res.User.Email)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.EqualValues(t, 3600, res.ExpiresIn)

	claims, err := pkgAuth.ParseAccessToken(testJWT, res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)
	assert.Equal(t, res.RefreshToken, sessions.tokens[claims.ID])

	stored, err := repo.FindByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", stored.PasswordHash)
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	svc, _, _ := newTestService(t)
	registerAlice(t, svc)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:     "alice@example.com",
		Password:  "another",
		FirstName: "Alice",
		LastName:  "Again",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestLogin(t *testing.T) {
	svc, repo, _ := newTestService(t)
	registerAlice(t, svc)
	ctx := context.Background()

	res, err := svc.Login(ctx, LoginRequest{Email: " ALICE@example.com", Password: "secret1"})
	require.NoError(t, err)
	require.NotNil(t, res.User.LastLoginAt)

	stored, err := repo.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, stored.LastLoginAt)

	cases := []LoginRequest{
		{Email: "alice@example.com", Password: "wrong"},
		{Email: "nobody@example.com", Password: "secret1"},
		{Email: "", Password: "secret1"},
	}
	for _, req := range cases {
		_, err := svc.Login(ctx, req)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized), "login %+v: %v", req, err)
	}
}

func TestLoginUpgradesWeakHash(t *testing.T) {
	repo := users.NewRepository(dbtest.Open(t))
	weak := security.NewHasher(testPwd)
	hash, err := weak.Hash("secret1")
	require.NoError(t, err)
	_, err = repo.Create(context.Background(), users.CreateUserDTO{Email: "dan@example.com", PasswordHash: hash, FirstName: "Dan", LastName: "D"})
	require.NoError(t, err)

	stronger := testPwd
	stronger.ArgonTime = 2
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: newFakeSessions(),
		Hasher:         security.NewHasher(stronger),
		JWTConfig:      testJWT,
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), LoginRequest{Email: "dan@example.com", Password: "secret1"})
	require.NoError(t, err)

	stored, err := repo.FindByEmail(context.Background(), "dan@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, hash, stored.PasswordHash)
	assert.Contains(t, stored.PasswordHash, "t=2")
}

func TestRefreshRotatesAndLogoutRevokes(t *testing.T) {
	svc, _, sessions := newTestService(t)
	res := registerAlice(t, svc)
	ctx := context.Background()

	_, err := svc.Refresh(ctx, res.AccessToken, "wrong")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	pair, err := svc.Refresh(ctx, res.AccessToken, res.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, res.RefreshToken, pair.RefreshToken)

	claims, err := pkgAuth.ParseAccessToken(testJWT, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)

	_, err = svc.Refresh(ctx, res.AccessToken, res.RefreshToken)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized), "old refresh token must not be reusable")

	require.NoError(t, svc.Logout(ctx, pair.AccessToken))
	assert.Empty(t, sessions.tokens)

	assert.True(t, pkgerrors.IsCode(svc.Logout(ctx, ""), pkgerrors.CodeUnauthorized))
	assert.True(t, pkgerrors.IsCode(svc.Logout(ctx, "not-a-jwt"), pkgerrors.CodeUnauthorized))
}

func TestRefreshAcceptsExpiredAccessToken(t *testing.T) {
	svc, _, sessions := newTestService(t)
	userID := uuid.New()
	accessID := uuid.NewString()
	expired, err := pkgAuth.MintAccessToken(testJWT, time.Now().Add(-2*time.Hour), pkgAuth.AccessTokenPayload{UserID: userID, JTI: accessID})
	require.NoError(t, err)
	refresh, err := sessions.Generate(context.Background(), accessID)
	require.NoError(t, err)

	pair, err := svc.Refresh(context.Background(), expired, refresh)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
}

func TestMe(t *testing.T) {
	svc, _, _ := newTestService(t)
	res := registerAlice(t, svc)

	me, err := svc.Me(context.Background(), res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", me.FirstName)

	_, err = svc.Me(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	_, err = svc.Me(context.Background(), uuid.Nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}
