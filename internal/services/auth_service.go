package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/student-records-service/internal/auth"
	"github.com/SAP-F-2025/student-records-service/internal/cache"
	"github.com/SAP-F-2025/student-records-service/internal/events"
	"github.com/SAP-F-2025/student-records-service/internal/models"
	"github.com/SAP-F-2025/student-records-service/internal/policy"
	"github.com/SAP-F-2025/student-records-service/internal/repositories"
	"github.com/SAP-F-2025/student-records-service/internal/validator"
)

// ExternalVerifier validates bearer tokens minted by a federated identity provider
type ExternalVerifier interface {
	Verify(token string) (*auth.ExternalIdentity, error)
}

type authService struct {
	repo       repositories.Repository
	db         *gorm.DB
	logger     *slog.Logger
	validator  *validator.Validator
	publisher  events.EventPublisher
	tokens     *auth.TokenIssuer
	refreshTTL time.Duration
	cache      *cache.CacheManager
	verifier   ExternalVerifier
	now        func() time.Time
}

// AuthServiceConfig carries the token settings of the auth service
type AuthServiceConfig struct {
	Tokens          *auth.TokenIssuer
	RefreshTokenTTL time.Duration
	Cache           *cache.CacheManager
	Verifier        ExternalVerifier
}

func NewAuthService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher, cfg AuthServiceConfig) AuthService {
	cacheManager := cfg.Cache
	if cacheManager == nil {
		cacheManager = cache.NewCacheManager(nil)
	}
	return &authService{
		repo:       repo,
		db:         db,
		logger:     logger,
		validator:  validator,
		publisher:  publisher,
		tokens:     cfg.Tokens,
		refreshTTL: cfg.RefreshTokenTTL,
		cache:      cacheManager,
		verifier:   cfg.Verifier,
		now:        time.Now,
	}
}

// Register is admin only; the new account gets a token pair straight away
func (s *authService) Register(ctx context.Context, p *models.Principal, req *RegisterRequest) (*RegisterResponse, error) {
	if err := Authorize(p, policy.ActionWrite, policy.ResourceUser); err != nil {
		return nil, err
	}

	user, err := createUser(ctx, s.repo, s.validator, req)
	if err != nil {
		return nil, err
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User registered", "user_id", user.ID, "username", user.Username, "registered_by", principalID(p))
	publishEvent(ctx, s.publisher, s.logger, events.UserRegistered, p, user)

	return &RegisterResponse{
		Message: "User created successfully",
		User:    user,
		Tokens:  tokens,
	}, nil
}

func (s *authService) Login(ctx context.Context, req *LoginRequest) (*TokenPair, error) {
	if req.Username == "" || req.Password == "" {
		return nil, ErrMissingCredentials
	}

	user, err := s.repo.User().GetByUsername(ctx, nil, req.Username)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.IsActive || !auth.CheckPassword(user.PasswordHash, req.Password) {
		s.logger.Warn("Login rejected", "username", req.Username)
		return nil, ErrInvalidCredentials
	}

	if err := s.repo.User().TouchLastLogin(ctx, nil, user.ID); err != nil {
		s.logger.Warn("Failed to record last login", "user_id", user.ID, "error", err)
	}

	return s.issueTokens(ctx, user)
}

// Refresh rotates the refresh session and mints a new access token
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, ErrMissingToken
	}

	session, err := s.repo.Session().GetByHash(ctx, nil, auth.HashToken(refreshToken))
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !session.IsUsable(s.now()) {
		return nil, ErrInvalidToken
	}

	user, err := s.repo.User().GetByID(ctx, nil, session.UserID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInvalidToken
	}

	var pair *TokenPair
	err = s.withTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.Session().Revoke(ctx, tx, session.ID, s.now().UTC()); err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrInvalidToken
			}
			return err
		}
		pair, err = s.issueTokensTx(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	return pair, nil
}

// Logout revokes the refresh session and denylists the current access token.
// Once a refresh token is supplied it always reports success.
func (s *authService) Logout(ctx context.Context, p *models.Principal, refreshToken string) error {
	if refreshToken == "" {
		return ErrMissingToken
	}

	session, err := s.repo.Session().GetByHash(ctx, nil, auth.HashToken(refreshToken))
	switch {
	case err != nil:
		if !repositories.IsNotFoundError(err) {
			s.logger.Warn("Failed to look up refresh session on logout", "error", err)
		}
	case p == nil || session.UserID == p.UserID:
		if err := s.repo.Session().Revoke(ctx, nil, session.ID, s.now().UTC()); err != nil && !repositories.IsNotFoundError(err) {
			s.logger.Warn("Failed to revoke refresh session", "session_id", session.ID, "error", err)
		}
	}

	if p != nil && p.TokenID != "" && s.tokens != nil {
		if err := s.cache.RevokeToken(ctx, p.TokenID, s.tokens.TTL()); err != nil && !errors.Is(err, cache.ErrCacheNotAvailable) {
			s.logger.Warn("Failed to denylist access token", "user_id", p.UserID, "error", err)
		}
	}

	s.logger.Info("User logged out", "user_id", principalID(p))
	return nil
}

// ResolvePrincipal verifies a bearer token and loads the caller's current roles
func (s *authService) ResolvePrincipal(ctx context.Context, accessToken string) (*models.Principal, error) {
	if accessToken == "" {
		return nil, ErrInvalidToken
	}

	claims, err := s.tokens.ParseAccessToken(accessToken)
	if err != nil {
		if s.verifier != nil {
			return s.resolveExternal(ctx, accessToken)
		}
		return nil, ErrInvalidToken
	}

	revoked, err := s.cache.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		s.logger.Warn("Denylist lookup failed", "error", err)
	}
	if revoked {
		return nil, ErrInvalidToken
	}

	user, err := s.repo.User().GetByID(ctx, nil, claims.UserID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInvalidToken
	}

	principal := user.Principal()
	principal.TokenID = claims.ID
	return principal, nil
}

// EnsureBootstrapAdmin creates the first superuser when no account has that username
func (s *authService) EnsureBootstrapAdmin(ctx context.Context, username, password, email string) error {
	if username == "" {
		return nil
	}

	exists, err := s.repo.User().ExistsByUsername(ctx, nil, username)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	groups, err := s.repo.Group().GetByNames(ctx, nil, []string{string(models.RoleAdmin)})
	if err != nil {
		return err
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsSuperuser:  true,
		IsActive:     true,
		Groups:       groups,
	}
	if err := s.repo.User().Create(ctx, nil, user); err != nil {
		return err
	}

	s.logger.Info("Bootstrap admin created", "user_id", user.ID, "username", username)
	return nil
}

// resolveExternal accepts a federated token and provisions a local account on first use
func (s *authService) resolveExternal(ctx context.Context, token string) (*models.Principal, error) {
	identity, err := s.verifier.Verify(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.repo.User().GetByUsername(ctx, nil, identity.Username)
	if err == nil {
		if !user.IsActive {
			return nil, ErrInvalidToken
		}
		return user.Principal(), nil
	}
	if !repositories.IsNotFoundError(err) {
		return nil, err
	}

	secret, err := auth.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(secret)
	if err != nil {
		return nil, err
	}
	groups, err := s.repo.Group().GetByNames(ctx, nil, []string{string(identity.Role)})
	if err != nil {
		return nil, err
	}

	firstName, lastName, _ := strings.Cut(identity.DisplayName, " ")
	user = &models.User{
		Username:     identity.Username,
		Email:        identity.Email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: hash,
		IsActive:     true,
		Groups:       groups,
	}
	if err := s.repo.User().Create(ctx, nil, user); err != nil {
		if !repositories.IsDuplicateError(err) {
			return nil, err
		}
		// provisioned concurrently by another request
		if user, err = s.repo.User().GetByUsername(ctx, nil, identity.Username); err != nil {
			return nil, err
		}
	}

	s.logger.Info("Provisioned federated user", "user_id", user.ID, "username", user.Username, "role", identity.Role)
	return user.Principal(), nil
}

func (s *authService) issueTokens(ctx context.Context, user *models.User) (*TokenPair, error) {
	return s.issueTokensTx(ctx, nil, user)
}

func (s *authService) issueTokensTx(ctx context.Context, tx *gorm.DB, user *models.User) (*TokenPair, error) {
	access, expiresAt, err := s.tokens.NewAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	refresh, err := auth.NewRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	session := &models.RefreshSession{
		UserID:    user.ID,
		TokenHash: auth.HashToken(refresh),
		ExpiresAt: s.now().Add(s.refreshTTL).UTC(),
	}
	if err := s.repo.Session().Create(ctx, tx, session); err != nil {
		return nil, err
	}

	return &TokenPair{
		Access:          access,
		Refresh:         refresh,
		AccessExpiresAt: expiresAt,
	}, nil
}

// withTx executes a function within a transaction
func (s *authService) withTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}
