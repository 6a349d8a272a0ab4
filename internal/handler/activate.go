package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mlecanu/ilconto/internal/apperror"
	"github.com/mlecanu/ilconto/internal/auth"
	"github.com/mlecanu/ilconto/internal/service"
)

// OnboardingHandler serves the account activation flow for invited users.
//
// Activation is deliberately OUTSIDE the auth middleware: the invited user
// has no session, no password, nothing but the hash from their invitation
// email. That hash is the entire proof of identity, checked by the
// onboarding service. Once redeemed, the endpoint is dead for that identity.
type OnboardingHandler struct {
	onboarding  *service.OnboardingService
	authService *service.AuthService
	logger      *slog.Logger
}

// NewOnboardingHandler creates an OnboardingHandler.
func NewOnboardingHandler(onboarding *service.OnboardingService, authService *service.AuthService, logger *slog.Logger) *OnboardingHandler {
	return &OnboardingHandler{
		onboarding:  onboarding,
		authService: authService,
		logger:      logger,
	}
}

type activateRequest struct {
	Hash      string `json:"hash"`
	Username  string `json:"username"`
	Password1 string `json:"password1"`
	Password2 string `json:"password2"`
}

// HandleActivate completes onboarding for a provisioned identity.
//
// HTTP: POST /api/activate/{identityID}?hash=...
// BODY: {"hash": "...", "username": "...", "password1": "...", "password2": "..."}
//
// The hash may arrive in the body or as a query parameter — the activation
// link puts it in the query, and frontends commonly just forward it there.
func (h *OnboardingHandler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	var req activateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	hash := req.Hash
	if hash == "" {
		hash = r.URL.Query().Get("hash")
	}

	identity, err := h.onboarding.Activate(
		r.Context(),
		chi.URLParam(r, "identityID"),
		hash,
		req.Username,
		req.Password1,
		req.Password2,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, identity)
}

// HandleVerifyEmail marks an identity's email as verified.
//
// HTTP: POST /api/identities/{identityID}/verify-email (behind RequireAuth)
//
// This stands in for the email-confirmation collaborator, so it is staff
// only — regular users never call it, their mail provider's confirmation
// link does (via whatever service terminates that flow).
func (h *OnboardingHandler) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	callerID, ok := auth.IdentityIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized","message":"valid authentication required"}`, http.StatusUnauthorized)
		return
	}

	caller, err := h.authService.GetByID(r.Context(), callerID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !caller.IsStaff {
		writeError(w, apperror.Forbidden("staff access required"))
		return
	}

	identity, err := h.onboarding.MarkEmailVerified(r.Context(), chi.URLParam(r, "identityID"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, identity)
}
