package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mlecanu/ilconto/internal/apperror"
	"github.com/mlecanu/ilconto/internal/auth"
	"github.com/mlecanu/ilconto/internal/model"
	"github.com/mlecanu/ilconto/internal/policy"
	"github.com/mlecanu/ilconto/internal/repository"
)

const MinPasswordLength = 8

// OnboardingService drives the lifecycle of a provisioned identity:
//
//	Provisioned (inactive, activation hash, no password)
//	    → Activated (password set, activated, email verified)
//
// There is no path back. Activation is single-use: the hash is cleared on
// success, and a second attempt fails on the already-activated check before
// the hash is even looked at.
type OnboardingService struct {
	store     repository.Store
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewOnboardingService creates an OnboardingService.
func NewOnboardingService(store repository.Store, passwords *auth.PasswordService, logger *slog.Logger) *OnboardingService {
	return &OnboardingService{
		store:     store,
		passwords: passwords,
		logger:    logger,
	}
}

// Activate completes onboarding for a provisioned identity.
//
// Preconditions, checked in order, all before any mutation:
//  1. the identity exists and is not yet activated (replay → AlreadyActivated)
//  2. suppliedHash matches the stored activation hash exactly
//  3. the two submitted passwords are equal
//
// On success the identity gets its chosen username and password, flips to
// activated and email-verified, and the activation hash is cleared so the
// link in the invitation email can never be redeemed twice.
//
// The update runs in a transaction so two concurrent activations with the
// same hash serialize: the loser re-reads an activated identity and fails
// cleanly.
func (s *OnboardingService) Activate(ctx context.Context, identityID, suppliedHash, username, password, passwordConfirm string) (*model.Identity, error) {
	var identity *model.Identity
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		identity, err = tx.GetIdentityByID(ctx, identityID)
		if err != nil {
			return err
		}

		if identity.IsActivated {
			return apperror.AlreadyActivated(identityID)
		}

		if ok, _ := policy.IsOnboardingEligible(identity, suppliedHash); !ok {
			return apperror.InvalidHash()
		}

		if password != passwordConfirm {
			return apperror.PasswordMismatch()
		}

		username = strings.TrimSpace(username)
		if username == "" {
			return apperror.ValidationFailed("username", "username is required")
		}
		if len(password) < MinPasswordLength {
			return apperror.ValidationFailed("password", "password must be at least 8 characters")
		}

		hashed, err := s.passwords.Hash(password)
		if err != nil {
			return err
		}

		identity.Username = username
		identity.PasswordHash = hashed
		identity.IsActivated = true
		identity.EmailVerified = true
		identity.ActivationHash = "" // single-use: a replayed link must not match

		return tx.UpdateIdentity(ctx, identity)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("identity activated",
		slog.String("identityID", identity.ID),
		slog.String("email", identity.Email),
	)
	return identity, nil
}

// MarkEmailVerified flips emailVerified to true. One-way and idempotent:
// verifying an already-verified identity changes nothing and succeeds.
//
// Triggered by the email-confirmation collaborator, not by users directly.
func (s *OnboardingService) MarkEmailVerified(ctx context.Context, identityID string) (*model.Identity, error) {
	identity, err := s.store.GetIdentityByID(ctx, identityID)
	if err != nil {
		return nil, err
	}

	if identity.EmailVerified {
		return identity, nil
	}

	identity.EmailVerified = true
	if err := s.store.UpdateIdentity(ctx, identity); err != nil {
		return nil, err
	}

	s.logger.Info("email verified", slog.String("identityID", identity.ID))
	return identity, nil
}
