package service

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/mlecanu/ilconto/internal/apperror"
	"github.com/mlecanu/ilconto/internal/auth"
	"github.com/mlecanu/ilconto/internal/model"
	"github.com/mlecanu/ilconto/internal/repository/sqlite"
)

const testActivationHash = "abcdefghijklmnopqrst"

func newTestOnboardingService(t *testing.T) (*OnboardingService, *sqlite.DB) {
	t.Helper()
	store := newTestStore(t)
	passwords := auth.NewPasswordServiceForTest(bcrypt.MinCost)
	svc := NewOnboardingService(store, passwords, testLogger())
	return svc, store
}

// seedProvisioned persists an inactive identity the way the invitation flow
// leaves them: email as placeholder username, activation hash set, no password.
func seedProvisioned(t *testing.T, store *sqlite.DB, email string) *model.Identity {
	t.Helper()
	identity := &model.Identity{
		Email:          email,
		Username:       email,
		IsActivated:    false,
		ActivationHash: testActivationHash,
	}
	if err := store.CreateIdentity(context.Background(), identity); err != nil {
		t.Fatalf("failed to seed provisioned identity %s: %v", email, err)
	}
	return identity
}

// =========================================================================
// ACTIVATION TESTS
// =========================================================================

func TestActivate(t *testing.T) {
	svc, store := newTestOnboardingService(t)
	ctx := context.Background()

	provisioned := seedProvisioned(t, store, "invitee@example.com")

	activated, err := svc.Activate(ctx, provisioned.ID, testActivationHash, "invitee", "sup3rsecret", "sup3rsecret")
	if err != nil {
		t.Fatalf("Activate failed: %v", err)
	}

	if !activated.IsActivated {
		t.Error("expected identity to be activated")
	}
	if !activated.EmailVerified {
		t.Error("expected email to be marked verified on activation")
	}
	if activated.Username != "invitee" {
		t.Errorf("expected chosen username invitee, got %s", activated.Username)
	}
	if activated.ActivationHash != "" {
		t.Error("expected activation hash cleared after use")
	}
	if activated.PasswordHash == "" || activated.PasswordHash == "sup3rsecret" {
		t.Error("expected password stored hashed")
	}

	// The set password actually works.
	got, err := store.GetIdentityByID(ctx, provisioned.ID)
	if err != nil {
		t.Fatalf("GetIdentityByID failed: %v", err)
	}
	passwords := auth.NewPasswordServiceForTest(bcrypt.MinCost)
	if err := passwords.Verify(got.PasswordHash, "sup3rsecret"); err != nil {
		t.Errorf("stored hash does not verify the chosen password: %v", err)
	}
}

func TestActivate_Replay(t *testing.T) {
	svc, store := newTestOnboardingService(t)
	ctx := context.Background()

	provisioned := seedProvisioned(t, store, "invitee@example.com")

	if _, err := svc.Activate(ctx, provisioned.ID, testActivationHash, "invitee", "sup3rsecret", "sup3rsecret"); err != nil {
		t.Fatalf("first Activate failed: %v", err)
	}

	// Redeeming the same link again fails on the activated check — even
	// though the supplied hash was once valid.
	_, err := svc.Activate(ctx, provisioned.ID, testActivationHash, "invitee", "sup3rsecret", "sup3rsecret")
	if !errors.Is(err, apperror.ErrAlreadyActivated) {
		t.Errorf("expected already-activated error on replay, got %v", err)
	}
}

func TestActivate_WrongHash(t *testing.T) {
	svc, store := newTestOnboardingService(t)
	ctx := context.Background()

	provisioned := seedProvisioned(t, store, "invitee@example.com")

	tests := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"wrong value", "tsrqponmlkjihgfedcba"},
		{"case variant", "ABCDEFGHIJKLMNOPQRST"},
		{"prefix only", testActivationHash[:19]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Activate(ctx, provisioned.ID, tt.hash, "invitee", "sup3rsecret", "sup3rsecret")
			if !errors.Is(err, apperror.ErrInvalidHash) {
				t.Errorf("expected invalid-hash error, got %v", err)
			}
		})
	}

	// Failed attempts leave the identity provisioned and redeemable.
	got, err := store.GetIdentityByID(ctx, provisioned.ID)
	if err != nil {
		t.Fatalf("GetIdentityByID failed: %v", err)
	}
	if got.IsActivated {
		t.Error("expected identity to stay inactive after failed attempts")
	}
	if got.ActivationHash != testActivationHash {
		t.Error("expected activation hash to survive failed attempts")
	}
}

func TestActivate_PasswordMismatch(t *testing.T) {
	svc, store := newTestOnboardingService(t)
	ctx := context.Background()

	provisioned := seedProvisioned(t, store, "invitee@example.com")

	_, err := svc.Activate(ctx, provisioned.ID, testActivationHash, "invitee", "sup3rsecret", "different")
	if !errors.Is(err, apperror.ErrPasswordMismatch) {
		t.Errorf("expected password-mismatch error, got %v", err)
	}

	// The mismatch must not burn the hash.
	got, err := store.GetIdentityByID(ctx, provisioned.ID)
	if err != nil {
		t.Fatalf("GetIdentityByID failed: %v", err)
	}
	if got.IsActivated || got.ActivationHash != testActivationHash {
		t.Error("expected identity unchanged after password mismatch")
	}
}

func TestActivate_InputValidation(t *testing.T) {
	svc, store := newTestOnboardingService(t)
	ctx := context.Background()

	provisioned := seedProvisioned(t, store, "invitee@example.com")

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"blank username", "   ", "sup3rsecret"},
		{"short password", "invitee", "short"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Activate(ctx, provisioned.ID, testActivationHash, tt.username, tt.password, tt.password)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

// The hash is checked before the submitted passwords, so a probe with a bad
// hash learns nothing about password rules.
func TestActivate_HashCheckedBeforePasswords(t *testing.T) {
	svc, store := newTestOnboardingService(t)

	provisioned := seedProvisioned(t, store, "invitee@example.com")

	_, err := svc.Activate(context.Background(), provisioned.ID, "wronghashwronghashwr", "invitee", "short", "different")
	if !errors.Is(err, apperror.ErrInvalidHash) {
		t.Errorf("expected invalid-hash error to win, got %v", err)
	}
}

func TestActivate_UnknownIdentity(t *testing.T) {
	svc, _ := newTestOnboardingService(t)

	_, err := svc.Activate(context.Background(), "missing", testActivationHash, "invitee", "sup3rsecret", "sup3rsecret")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("expected not found error, got %v", err)
	}
}

// =========================================================================
// EMAIL VERIFICATION TESTS
// =========================================================================

func TestMarkEmailVerified(t *testing.T) {
	svc, store := newTestOnboardingService(t)
	ctx := context.Background()

	identity := seedIdentity(t, store, "alice@example.com", "alice")

	got, err := svc.MarkEmailVerified(ctx, identity.ID)
	if err != nil {
		t.Fatalf("MarkEmailVerified failed: %v", err)
	}
	if !got.EmailVerified {
		t.Error("expected email verified")
	}

	// Idempotent: verifying again succeeds and changes nothing.
	again, err := svc.MarkEmailVerified(ctx, identity.ID)
	if err != nil {
		t.Fatalf("second MarkEmailVerified failed: %v", err)
	}
	if !again.EmailVerified {
		t.Error("expected email to stay verified")
	}
}

func TestMarkEmailVerified_UnknownIdentity(t *testing.T) {
	svc, _ := newTestOnboardingService(t)

	_, err := svc.MarkEmailVerified(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("expected not found error, got %v", err)
	}
}
