// Authentication business logic.
//
// AuthService sits between the HTTP handlers and the repository/auth
// utilities:
//
//	AuthHandler (HTTP) → AuthService (business rules) → IdentityRepository (DB)
//	                   ↘ TokenService (JWT) + PasswordService (bcrypt)
//
// Accounts created here through Register start out activated — the
// provisioned-pending-activation path exists only for identities created by
// the invitation flow, and those activate through OnboardingService instead.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mlecanu/ilconto/internal/apperror"
	"github.com/mlecanu/ilconto/internal/auth"
	"github.com/mlecanu/ilconto/internal/model"
	"github.com/mlecanu/ilconto/internal/repository"
)

// AuthService handles registration, login, and token validation.
type AuthService struct {
	identities repository.IdentityRepository
	tokens     *auth.TokenService
	passwords  *auth.PasswordService
	logger     *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	identities repository.IdentityRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		identities: identities,
		tokens:     tokens,
		passwords:  passwords,
		logger:     logger,
	}
}

// AuthResult bundles an identity and its issued JWT so the handler can set
// the cookie and respond in one step.
type AuthResult struct {
	Identity *model.Identity
	Token    string
}

// Register creates a new activated account and logs it in.
//
// The email uniqueness check is the database constraint, surfaced as a
// conflict — never a pre-read, so concurrent registrations for the same
// email can't both succeed.
func (s *AuthService) Register(ctx context.Context, email, username, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	username = strings.TrimSpace(username)

	if email == "" || !strings.Contains(email, "@") {
		return nil, apperror.ValidationFailed("email", "a valid email is required")
	}
	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}
	if len(password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password", "password must be at least 8 characters")
	}

	hashed, err := s.passwords.Hash(password)
	if err != nil {
		return nil, err
	}

	identity := &model.Identity{
		Email:        email,
		Username:     username,
		PasswordHash: hashed,
		IsActivated:  true, // explicit registration skips the onboarding state
	}
	if err := s.identities.CreateIdentity(ctx, identity); err != nil {
		return nil, err
	}

	s.logger.Info("identity registered",
		slog.String("identityID", identity.ID),
		slog.String("email", identity.Email),
	)

	token, err := s.tokens.Generate(identity.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for identity %s: %w", identity.ID, err)
	}

	return &AuthResult{Identity: identity, Token: token}, nil
}

// Login verifies the password for an email and issues a JWT.
//
// A missing account and a wrong password return the same forbidden error —
// login must not reveal which emails hold accounts. Unactivated identities
// cannot log in: they have no password yet and must redeem their activation
// link first.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	identity, err := s.identities.GetIdentityByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, apperror.Forbidden("invalid email or password")
	}

	if !identity.IsActivated {
		return nil, apperror.Forbidden("account is not activated yet")
	}

	if err := s.passwords.Verify(identity.PasswordHash, password); err != nil {
		s.logger.Warn("login failed", slog.String("email", email))
		return nil, apperror.Forbidden("invalid email or password")
	}

	s.logger.Info("identity logged in", slog.String("identityID", identity.ID))

	token, err := s.tokens.Generate(identity.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for identity %s: %w", identity.ID, err)
	}

	return &AuthResult{Identity: identity, Token: token}, nil
}

// GetByID returns the identity for the given internal ID.
//
// Used by the /api/me handler and by every protected handler that needs the
// full caller record after the middleware validates the JWT.
func (s *AuthService) GetByID(ctx context.Context, id string) (*model.Identity, error) {
	if id == "" {
		return nil, fmt.Errorf("service/auth: identity ID must not be empty")
	}
	return s.identities.GetIdentityByID(ctx, id)
}

// ValidateToken validates a JWT string and returns the identityID it
// encodes. Thin delegation so callers only import the service package.
func (s *AuthService) ValidateToken(tokenStr string) (string, error) {
	identityID, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", err)
	}
	return identityID, nil
}
