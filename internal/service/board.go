// Package service contains the business logic layer of the application.
//
// The layering follows the usual three tiers:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → validates, enforces rules, orchestrates
//	Repository (data layer)  → reads/writes the database
//
// Services take repository interfaces, not concrete types — the sqlite
// package stays an implementation detail of the composition root, and tests
// hand services an in-memory database.
package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/mlecanu/ilconto/internal/apperror"
	"github.com/mlecanu/ilconto/internal/model"
	"github.com/mlecanu/ilconto/internal/repository"
)

const MaxBoardTitleLength = 256

// BoardService is the membership ledger: it owns the board → member
// relationship and each member's score, with the uniqueness invariant
// enforced underneath by the repository's constraints.
//
// Operations here are per-entity and atomic. Bulk reconciliation of a whole
// desired member list lives in InviteService, which calls back into the
// unexported tx-aware helpers below.
type BoardService struct {
	store  repository.Store
	logger *slog.Logger
	now    func() time.Time // injectable for tests; scores are now().UTC().Unix()
}

// NewBoardService creates a BoardService.
func NewBoardService(store repository.Store, logger *slog.Logger) *BoardService {
	return &BoardService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// nowScore is the default score: the current time in UTC seconds, i.e. "the
// member reset just now".
func (s *BoardService) nowScore() int64 {
	return s.now().UTC().Unix()
}

// AddMember enrols an identity on a board.
//
// username defaults to the identity's own display name; score defaults to
// now. Fails with a not-found error when the identity or board doesn't
// resolve, and with an already-member conflict when the (board, identity)
// pair is taken — including when a concurrent request wins the race, since
// the database constraint is the arbiter.
func (s *BoardService) AddMember(ctx context.Context, boardID, identityID, username string, score *int64) (*model.Membership, error) {
	m, err := s.addMember(ctx, s.store, boardID, identityID, username, score)
	if err != nil {
		return nil, err
	}

	s.logger.Info("member added",
		slog.String("boardID", boardID),
		slog.String("identityID", identityID),
		slog.String("memberID", m.ID),
	)
	return m, nil
}

// addMember is the tx-aware body of AddMember: it runs against whichever
// store it is handed, so InviteService can call it inside a transaction.
func (s *BoardService) addMember(ctx context.Context, st repository.Store, boardID, identityID, username string, score *int64) (*model.Membership, error) {
	if boardID == "" {
		return nil, apperror.ValidationFailed("boardId", "board ID is required")
	}
	if identityID == "" {
		return nil, apperror.ValidationFailed("identityId", "identity ID is required")
	}

	// The identity must resolve before we enrol it.
	identity, err := st.GetIdentityByID(ctx, identityID)
	if err != nil {
		return nil, err
	}

	// And the board must exist — relying on the FK here would surface a raw
	// constraint error instead of a clean not-found.
	if _, err := st.GetBoardByID(ctx, boardID); err != nil {
		return nil, err
	}

	if username = strings.TrimSpace(username); username == "" {
		username = identity.Username
	}

	sc := s.nowScore()
	if score != nil {
		sc = *score
	}

	m := &model.Membership{
		BoardID:    boardID,
		IdentityID: identityID,
		Username:   username,
		Score:      sc,
	}
	if err := st.CreateMembership(ctx, m); err != nil {
		return nil, err
	}

	return m, nil
}

// AddMemberByEmail enrols an existing identity looked up by email. Unknown
// emails are a not-found error here — provisioning strangers is the
// invitation flow's job, not the single-member add endpoint's.
func (s *BoardService) AddMemberByEmail(ctx context.Context, boardID, email, username string, score *int64) (*model.Membership, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}

	identity, err := s.store.GetIdentityByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	return s.AddMember(ctx, boardID, identity.ID, username, score)
}

// RemoveMember deletes a membership and returns its ID for confirmation.
func (s *BoardService) RemoveMember(ctx context.Context, boardID, memberID string) (string, error) {
	return s.removeMember(ctx, s.store, boardID, memberID)
}

func (s *BoardService) removeMember(ctx context.Context, st repository.Store, boardID, memberID string) (string, error) {
	if memberID == "" {
		return "", apperror.ValidationFailed("memberId", "member ID is required")
	}

	if err := st.DeleteMembership(ctx, boardID, memberID); err != nil {
		return "", err
	}

	s.logger.Info("member removed",
		slog.String("boardID", boardID),
		slog.String("memberID", memberID),
	)
	return memberID, nil
}

// ResetScore sets a member's score to the given value, or to now when
// omitted, and returns the updated membership. Resetting to the same value
// twice is a no-op the second time, never an error.
func (s *BoardService) ResetScore(ctx context.Context, boardID, memberID string, score *int64) (*model.Membership, error) {
	return s.resetScore(ctx, s.store, boardID, memberID, score)
}

func (s *BoardService) resetScore(ctx context.Context, st repository.Store, boardID, memberID string, score *int64) (*model.Membership, error) {
	m, err := st.GetMembership(ctx, boardID, memberID)
	if err != nil {
		return nil, err
	}

	if score != nil {
		m.Score = *score
	} else {
		m.Score = s.nowScore()
	}

	if err := st.UpdateMembership(ctx, m); err != nil {
		return nil, err
	}

	s.logger.Info("score reset",
		slog.String("boardID", boardID),
		slog.String("memberID", memberID),
		slog.Int64("score", m.Score),
	)
	return m, nil
}

// UpdateMemberUsername changes a member's board-local display name.
func (s *BoardService) UpdateMemberUsername(ctx context.Context, boardID, memberID, username string) (*model.Membership, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}

	m, err := s.store.GetMembership(ctx, boardID, memberID)
	if err != nil {
		return nil, err
	}

	m.Username = username
	if err := s.store.UpdateMembership(ctx, m); err != nil {
		return nil, err
	}

	return m, nil
}

// GetMember retrieves a single membership scoped to a board.
func (s *BoardService) GetMember(ctx context.Context, boardID, memberID string) (*model.Membership, error) {
	return s.store.GetMembership(ctx, boardID, memberID)
}

// Get retrieves a board with its membership list.
func (s *BoardService) Get(ctx context.Context, boardID string) (*model.Board, error) {
	if boardID == "" {
		return nil, apperror.ValidationFailed("boardId", "board ID is required")
	}
	return s.store.GetBoardByID(ctx, boardID)
}

// ListForCaller returns the boards visible to the caller: every board for
// staff, only boards the caller is a member of otherwise.
func (s *BoardService) ListForCaller(ctx context.Context, caller *model.Identity, opts repository.ListOptions) ([]model.Board, error) {
	if caller.IsStaff {
		return s.store.ListBoards(ctx, opts)
	}
	return s.store.ListBoardsForIdentity(ctx, caller.ID)
}

// UpdateTitle renames a board and returns it with members populated.
func (s *BoardService) UpdateTitle(ctx context.Context, boardID, title string) (*model.Board, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "board title is required")
	}
	if len(title) > MaxBoardTitleLength {
		return nil, apperror.ValidationFailed("title", "board title is too long")
	}

	board, err := s.store.GetBoardByID(ctx, boardID)
	if err != nil {
		return nil, err
	}

	board.Title = title
	if err := s.store.UpdateBoard(ctx, board); err != nil {
		return nil, err
	}

	s.logger.Info("board renamed", slog.String("boardID", boardID), slog.String("title", title))
	return board, nil
}

// Delete removes a board; its memberships go with it (cascade at the
// storage layer).
func (s *BoardService) Delete(ctx context.Context, boardID string) error {
	if err := s.store.DeleteBoard(ctx, boardID); err != nil {
		return err
	}

	s.logger.Info("board deleted", slog.String("boardID", boardID))
	return nil
}
