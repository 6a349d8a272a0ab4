package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mlecanu/ilconto/internal/apperror"
	"github.com/mlecanu/ilconto/internal/auth"
	"github.com/mlecanu/ilconto/internal/model"
	"github.com/mlecanu/ilconto/internal/notify"
	"github.com/mlecanu/ilconto/internal/policy"
	"github.com/mlecanu/ilconto/internal/repository"
)

// MemberDescriptor is one desired member as supplied on board create/update:
// an email, plus optional board-local username and score. Email is the only
// required field — it is how descriptors are matched against identities and
// existing memberships.
type MemberDescriptor struct {
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
	Score    *int64 `json:"score,omitempty"`
}

// MemberFailure records a per-descriptor failure during a bulk member
// update. Updates isolate failures — one bad descriptor must not take down
// the rest of the reconciliation — so instead of aborting, failures are
// collected and reported alongside the result.
type MemberFailure struct {
	Email string `json:"email"`
	Err   error  `json:"-"`
}

// Message exposes the failure reason in a JSON-friendly way.
func (f MemberFailure) Message() string {
	return f.Err.Error()
}

// InviteService reconciles a board's member set against a desired list,
// provisioning accounts for unknown emails and emitting onboarding notices.
//
// It builds on BoardService for the individual ledger operations and runs
// the multi-step sequences inside store transactions so no partial state —
// half a board, or an orphan inactive identity with no membership — can
// survive a failure.
type InviteService struct {
	store    repository.Store
	ledger   *BoardService
	notifier notify.Notifier
	frontURL string // frontend origin embedded in activation links
	logger   *slog.Logger
}

// NewInviteService creates an InviteService.
func NewInviteService(store repository.Store, ledger *BoardService, notifier notify.Notifier, frontURL string, logger *slog.Logger) *InviteService {
	return &InviteService{
		store:    store,
		ledger:   ledger,
		notifier: notifier,
		frontURL: strings.TrimRight(frontURL, "/"),
		logger:   logger,
	}
}

// pendingNotice is an onboarding notice waiting for its transaction to
// commit. Sending happens strictly after commit: a notice must never go out
// for an identity that was rolled back, and a failed send must never roll
// back the membership it announces.
type pendingNotice struct {
	to  *model.Identity
	url string
}

// CreateBoard creates a board with the given title and desired member list,
// acting on behalf of caller.
//
// Creation is all-or-nothing: descriptors are validated up front, the board
// and every membership are written in one transaction, and any failure rolls
// the whole thing back. Onboarding notices for provisioned members are sent
// after the transaction commits, best-effort.
func (s *InviteService) CreateBoard(ctx context.Context, caller *model.Identity, title string, descriptors []MemberDescriptor) (*model.Board, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "board title is required")
	}
	if len(title) > MaxBoardTitleLength {
		return nil, apperror.ValidationFailed("title", "board title is too long")
	}

	desired, err := s.normalize(caller, descriptors)
	if err != nil {
		return nil, err
	}

	var (
		board   *model.Board
		notices []pendingNotice
	)
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		board = &model.Board{Title: title}
		if err := tx.CreateBoard(ctx, board); err != nil {
			return err
		}

		for _, d := range desired {
			notice, err := s.enrol(ctx, tx, board, caller, d)
			if err != nil {
				return fmt.Errorf("enrolling %s: %w", d.Email, err)
			}
			if notice != nil {
				notices = append(notices, *notice)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("board created",
		slog.String("boardID", board.ID),
		slog.String("title", board.Title),
		slog.Int("members", len(desired)),
	)

	s.sendNotices(ctx, board, caller, notices)

	// Re-read so the returned board carries its full membership list.
	return s.store.GetBoardByID(ctx, board.ID)
}

// UpdateMembers reconciles a board's member set against the desired list, on
// behalf of caller:
//
//   - emails in the desired list but not on the board are added, provisioning
//     an account first when the email is unknown;
//   - members on the board but absent from the desired list are removed;
//   - members present in both get their score synced only when the descriptor
//     explicitly carries one AND the caller owns that membership. A score on
//     someone else's descriptor is a permission failure, reported, not
//     silently dropped.
//
// Unlike creation, update isolates failures per descriptor: each failed step
// is recorded in the returned slice and reconciliation continues. The caller
// is always folded into the desired list, so an update can never remove the
// caller's own membership.
func (s *InviteService) UpdateMembers(ctx context.Context, caller *model.Identity, boardID string, descriptors []MemberDescriptor) (*model.Board, []MemberFailure, error) {
	board, err := s.store.GetBoardByID(ctx, boardID)
	if err != nil {
		return nil, nil, err
	}

	desired, err := s.normalize(caller, descriptors)
	if err != nil {
		return nil, nil, err
	}

	// Index current members by email. Membership rows carry identity IDs, so
	// resolve each one; emails are the currency descriptors deal in.
	currentByEmail := make(map[string]model.Membership, len(board.Members))
	for _, m := range board.Members {
		identity, err := s.store.GetIdentityByID(ctx, m.IdentityID)
		if err != nil {
			return nil, nil, err
		}
		currentByEmail[identity.Email] = m
	}

	desiredEmails := make(map[string]bool, len(desired))
	for _, d := range desired {
		desiredEmails[d.Email] = true
	}

	var failures []MemberFailure

	// Removals first: members no longer desired.
	for email, m := range currentByEmail {
		if desiredEmails[email] {
			continue
		}
		if _, err := s.ledger.RemoveMember(ctx, boardID, m.ID); err != nil {
			failures = append(failures, MemberFailure{Email: email, Err: err})
			s.logger.Warn("member removal failed",
				slog.String("boardID", boardID),
				slog.String("email", email),
				slog.String("error", err.Error()),
			)
		}
	}

	// Additions and score syncs.
	for _, d := range desired {
		current, enrolled := currentByEmail[d.Email]

		if enrolled {
			if d.Score == nil {
				continue // present on both sides, nothing requested: untouched
			}
			if !policy.CanMutateMembership(caller, &current) {
				err := apperror.Forbidden("only the member themselves may reset their score")
				failures = append(failures, MemberFailure{Email: d.Email, Err: err})
				s.logger.Warn("cross-member score edit denied",
					slog.String("boardID", boardID),
					slog.String("email", d.Email),
					slog.String("callerID", caller.ID),
				)
				continue
			}
			if _, err := s.ledger.ResetScore(ctx, boardID, current.ID, d.Score); err != nil {
				failures = append(failures, MemberFailure{Email: d.Email, Err: err})
			}
			continue
		}

		// New member: provision-if-unknown and enrol as one unit, so a failed
		// add can't leave behind an orphan inactive identity.
		var notice *pendingNotice
		err := s.store.InTx(ctx, func(tx repository.Store) error {
			var err error
			notice, err = s.enrol(ctx, tx, board, caller, d)
			return err
		})
		if err != nil {
			failures = append(failures, MemberFailure{Email: d.Email, Err: err})
			s.logger.Warn("member enrolment failed",
				slog.String("boardID", boardID),
				slog.String("email", d.Email),
				slog.String("error", err.Error()),
			)
			continue
		}
		if notice != nil {
			s.sendNotices(ctx, board, caller, []pendingNotice{*notice})
		}
	}

	updated, err := s.store.GetBoardByID(ctx, boardID)
	if err != nil {
		return nil, failures, err
	}
	return updated, failures, nil
}

// normalize validates and dedups the desired list, folding the acting caller
// in when absent.
//
// Dedup keeps the first descriptor per email, so a caller duplicated in the
// input resolves to a membership exactly once. The fold is by email equality
// against the caller's identity, an explicit step rather than a side effect
// of any collection type.
func (s *InviteService) normalize(caller *model.Identity, descriptors []MemberDescriptor) ([]MemberDescriptor, error) {
	out := make([]MemberDescriptor, 0, len(descriptors)+1)
	seen := make(map[string]bool, len(descriptors)+1)

	for i, d := range descriptors {
		d.Email = strings.TrimSpace(d.Email)
		if d.Email == "" {
			return nil, apperror.ValidationFailed("members",
				fmt.Sprintf("member descriptor %d is missing an email", i))
		}
		if seen[d.Email] {
			continue
		}
		seen[d.Email] = true
		out = append(out, d)
	}

	if !seen[caller.Email] {
		out = append([]MemberDescriptor{{Email: caller.Email}}, out...)
	}

	return out, nil
}

// enrol resolves one descriptor against the identity store and the board's
// membership, inside the transaction tx:
//
//  1. known identity, already a member → score sync if requested and allowed
//  2. known identity, not a member     → add membership
//  3. unknown email                    → provision inactive identity, add
//     membership, queue onboarding notice
//
// The returned notice is non-nil only in case 3; the caller sends it after
// tx commits.
func (s *InviteService) enrol(ctx context.Context, tx repository.Store, board *model.Board, caller *model.Identity, d MemberDescriptor) (*pendingNotice, error) {
	identity, err := tx.GetIdentityByEmail(ctx, d.Email)

	provisioned := false
	switch {
	case err == nil:
		// known identity

	case errors.Is(err, apperror.ErrNotFound):
		identity, err = s.provision(ctx, tx, d.Email)
		if err != nil {
			return nil, err
		}
		provisioned = true

	default:
		return nil, err
	}

	// The existing-membership check also covers a provision race where the
	// winning request managed to enrol the identity before we adopted it.
	if existing, err := tx.GetMembershipByIdentity(ctx, board.ID, identity.ID); err == nil {
		// Already enrolled. Touch the score only when the descriptor asks
		// for it and the caller owns the membership.
		if d.Score == nil {
			return nil, nil
		}
		if !policy.CanMutateMembership(caller, existing) {
			return nil, apperror.Forbidden("only the member themselves may reset their score")
		}
		_, err := s.ledger.resetScore(ctx, tx, board.ID, existing.ID, d.Score)
		return nil, err
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	if _, err := s.ledger.addMember(ctx, tx, board.ID, identity.ID, d.Username, d.Score); err != nil {
		return nil, err
	}

	if !provisioned {
		return nil, nil
	}
	return &pendingNotice{
		to:  identity,
		url: notify.ActivationURL(s.frontURL, identity),
	}, nil
}

// provision creates an inactive identity for an email nobody holds an
// account under: the email doubles as the placeholder username, and a fresh
// activation hash gates the onboarding flow.
//
// If a concurrent request provisioned the same email first, the unique
// constraint fires and we adopt the winner's row instead.
func (s *InviteService) provision(ctx context.Context, tx repository.Store, email string) (*model.Identity, error) {
	hash, err := auth.NewActivationHash()
	if err != nil {
		return nil, err
	}

	identity := &model.Identity{
		Email:          email,
		Username:       email,
		IsActivated:    false,
		ActivationHash: hash,
	}
	if err := tx.CreateIdentity(ctx, identity); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return tx.GetIdentityByEmail(ctx, email)
		}
		return nil, err
	}

	s.logger.Info("identity provisioned for invitation",
		slog.String("identityID", identity.ID),
		slog.String("email", email),
	)
	return identity, nil
}

// sendNotices delivers queued onboarding notices. Best-effort: a failed send
// is logged and swallowed — the membership it announces already exists and
// stays.
func (s *InviteService) sendNotices(ctx context.Context, board *model.Board, inviter *model.Identity, notices []pendingNotice) {
	for _, n := range notices {
		if err := s.notifier.SendOnboardingNotice(ctx, n.to, board, inviter, n.url); err != nil {
			s.logger.Warn("onboarding notice failed",
				slog.String("email", n.to.Email),
				slog.String("boardID", board.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}
