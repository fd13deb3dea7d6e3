package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/student-records-service/internal/auth"
	"github.com/SAP-F-2025/student-records-service/internal/cache"
	"github.com/SAP-F-2025/student-records-service/internal/events"
	"github.com/SAP-F-2025/student-records-service/internal/models"
	"github.com/SAP-F-2025/student-records-service/internal/testutil"
	"github.com/SAP-F-2025/student-records-service/internal/validator"
)

type authFixture struct {
	*fixture
	svc   AuthService
	redis *miniredis.Miniredis
}

func newAuthFixture(t *testing.T, verifier ExternalVerifier) *authFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	db := testutil.NewDB(t)
	repo := testutil.NewRepository(t, db, client)
	f := &fixture{
		db:        db,
		repo:      repo,
		validator: validator.New(),
		publisher: events.NewMockEventPublisher(testutil.Logger()),
		store:     newFakeStore(),
		admin:     testutil.CreateUser(t, repo, "admin", "password123", models.RoleAdmin),
		teacher:   testutil.CreateUser(t, repo, "teacher", "password123", models.RoleTeacher),
		pupil:     testutil.CreateUser(t, repo, "pupil", "password123", models.RoleStudent),
	}

	svc := NewAuthService(repo, db, testutil.Logger(), f.validator, f.publisher, AuthServiceConfig{
		Tokens:          auth.NewTokenIssuer("test-secret", "student-records-test", 5*time.Minute),
		RefreshTokenTTL: time.Hour,
		Cache:           cache.NewCacheManager(client),
		Verifier:        verifier,
	})

	return &authFixture{fixture: f, svc: svc, redis: mr}
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, nil)

	tests := []struct {
		name    string
		req     LoginRequest
		wantErr error
	}{
		{"missing password", LoginRequest{Username: "teacher"}, ErrMissingCredentials},
		{"missing username", LoginRequest{Password: "password123"}, ErrValidationFailed},
		{"wrong password", LoginRequest{Username: "teacher", Password: "nope"}, ErrInvalidCredentials},
		{"unknown user", LoginRequest{Username: "ghost", Password: "password123"}, ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Login(ctx, &tt.req)
			assertErrorIs(t, err, tt.wantErr)
		})
	}

	pair, err := f.svc.Login(ctx, &LoginRequest{Username: "teacher", Password: "password123"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if pair.Access == "" || pair.Refresh == "" {
		t.Fatalf("expected both tokens, got %+v", pair)
	}

	principal, err := f.svc.ResolvePrincipal(ctx, pair.Access)
	if err != nil {
		t.Fatalf("ResolvePrincipal() error = %v", err)
	}
	if principal.UserID != f.teacher.ID || !principal.HasRole(models.RoleTeacher) {
		t.Errorf("unexpected principal: %+v", principal)
	}
	if principal.TokenID == "" {
		t.Error("expected token id on principal")
	}
}

func TestAuthService_RefreshRotates(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, nil)

	pair, err := f.svc.Login(ctx, &LoginRequest{Username: "pupil", Password: "password123"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	rotated, err := f.svc.Refresh(ctx, pair.Refresh)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if rotated.Refresh == pair.Refresh {
		t.Error("refresh token was not rotated")
	}

	if _, err := f.svc.Refresh(ctx, pair.Refresh); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("reusing old refresh token: got %v", err)
	}
	if _, err := f.svc.Refresh(ctx, rotated.Refresh); err != nil {
		t.Errorf("rotated token should work: %v", err)
	}
	if _, err := f.svc.Refresh(ctx, ""); !errors.Is(err, ErrValidationFailed) {
		t.Errorf("empty token: got %v", err)
	}
}

func TestAuthService_RefreshConcurrentReuse(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, nil)

	pair, err := f.svc.Login(ctx, &LoginRequest{Username: "pupil", Password: "password123"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	const workers = 16
	succeeded, invalid := runConcurrently(t, workers, ErrInvalidToken, func() error {
		_, err := f.svc.Refresh(ctx, pair.Refresh)
		return err
	})
	if succeeded != 1 || invalid != workers-1 {
		t.Fatalf("expected one rotation and %d rejections, got %d and %d", workers-1, succeeded, invalid)
	}
}

func TestAuthService_Logout(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, nil)

	pair, err := f.svc.Login(ctx, &LoginRequest{Username: "teacher", Password: "password123"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	principal, err := f.svc.ResolvePrincipal(ctx, pair.Access)
	if err != nil {
		t.Fatalf("ResolvePrincipal() error = %v", err)
	}

	assertErrorIs(t, f.svc.Logout(ctx, principal, ""), ErrMissingToken)

	if err := f.svc.Logout(ctx, principal, pair.Refresh); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if err := f.svc.Logout(ctx, principal, "garbage"); err != nil {
		t.Errorf("Logout with unknown token should succeed, got %v", err)
	}

	if _, err := f.svc.ResolvePrincipal(ctx, pair.Access); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("access token should be denylisted, got %v", err)
	}
	if _, err := f.svc.Refresh(ctx, pair.Refresh); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("refresh token should be revoked, got %v", err)
	}
	if ttl := f.redis.TTL(cache.DenylistCacheConfig.Prefix + principal.TokenID); ttl <= 0 {
		t.Errorf("denylist entry should expire, ttl = %v", ttl)
	}
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, nil)
	req := &RegisterRequest{Username: "newteacher", Password: "password123", Groups: []string{"teacher"}}

	if _, err := f.svc.Register(ctx, f.teacher.Principal(), req); !errors.Is(err, ErrForbidden) {
		t.Fatalf("teacher Register: got %v", err)
	}

	resp, err := f.svc.Register(ctx, f.admin.Principal(), req)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if resp.Message != "User created successfully" || resp.Tokens == nil || resp.Tokens.Access == "" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if !resp.User.HasRole(models.RoleTeacher) {
		t.Errorf("new user roles = %v", resp.User.Roles())
	}

	if _, err := f.svc.Register(ctx, f.admin.Principal(), req); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate Register: got %v", err)
	}

	if _, err := f.svc.Login(ctx, &LoginRequest{Username: "newteacher", Password: "password123"}); err != nil {
		t.Errorf("new user cannot log in: %v", err)
	}
	if got := f.publisher.Types(); len(got) != 1 || got[0] != events.UserRegistered {
		t.Errorf("published = %v", got)
	}
}

func TestAuthService_EnsureBootstrapAdmin(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, nil)

	for range 2 {
		if err := f.svc.EnsureBootstrapAdmin(ctx, "root", "rootpassword", "root@example.com"); err != nil {
			t.Fatalf("EnsureBootstrapAdmin() error = %v", err)
		}
	}

	user, err := f.repo.User().GetByUsername(ctx, nil, "root")
	if err != nil {
		t.Fatalf("bootstrap admin missing: %v", err)
	}
	if !user.IsSuperuser || !user.Principal().IsAdmin() {
		t.Errorf("bootstrap admin lacks privileges: %+v", user)
	}
}

type stubVerifier struct {
	identity *auth.ExternalIdentity
}

func (s stubVerifier) Verify(token string) (*auth.ExternalIdentity, error) {
	if token != "federated-token" {
		return nil, auth.ErrInvalidToken
	}
	return s.identity, nil
}

func TestAuthService_ResolveFederatedToken(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, stubVerifier{identity: &auth.ExternalIdentity{
		Username:    "remote.teacher",
		DisplayName: "Remote Teacher",
		Role:        models.RoleTeacher,
	}})

	principal, err := f.svc.ResolvePrincipal(ctx, "federated-token")
	if err != nil {
		t.Fatalf("ResolvePrincipal() error = %v", err)
	}
	if principal.UserID == 0 || !principal.HasRole(models.RoleTeacher) {
		t.Errorf("unexpected principal: %+v", principal)
	}

	again, err := f.svc.ResolvePrincipal(ctx, "federated-token")
	if err != nil || again.UserID != principal.UserID {
		t.Errorf("second resolve should reuse the account: %+v, %v", again, err)
	}

	if _, err := f.svc.ResolvePrincipal(ctx, "something-else"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("bad token: got %v", err)
	}
}
