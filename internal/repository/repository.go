// Package repository defines the storage interfaces consumed by the service
// layer. The sqlite subpackage is the only implementation; tests run it
// against an in-memory database.
package repository

import (
	"context"

	"github.com/mlecanu/ilconto/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// IdentityRepository reads and writes account records.
//
// CreateIdentity returns an AlreadyExists conflict when the email is taken —
// the UNIQUE(email) constraint is the arbiter, so two concurrent creates for
// the same email yield exactly one row and one clean conflict.
type IdentityRepository interface {
	CreateIdentity(ctx context.Context, identity *model.Identity) error
	GetIdentityByID(ctx context.Context, id string) (*model.Identity, error)
	GetIdentityByEmail(ctx context.Context, email string) (*model.Identity, error)
	UpdateIdentity(ctx context.Context, identity *model.Identity) error
}

// BoardRepository reads and writes boards. Get and List populate Members;
// DeleteBoard cascades membership deletion at the database level.
type BoardRepository interface {
	CreateBoard(ctx context.Context, board *model.Board) error
	GetBoardByID(ctx context.Context, id string) (*model.Board, error)
	ListBoards(ctx context.Context, opts ListOptions) ([]model.Board, error)
	ListBoardsForIdentity(ctx context.Context, identityID string) ([]model.Board, error)
	UpdateBoard(ctx context.Context, board *model.Board) error
	DeleteBoard(ctx context.Context, id string) error
}

// MembershipRepository reads and writes board memberships.
//
// CreateMembership returns an AlreadyMember conflict when the
// (boardID, identityID) pair already has a row — enforced by a UNIQUE
// constraint, not application logic, so it holds under concurrency.
type MembershipRepository interface {
	CreateMembership(ctx context.Context, m *model.Membership) error
	GetMembership(ctx context.Context, boardID, memberID string) (*model.Membership, error)
	GetMembershipByIdentity(ctx context.Context, boardID, identityID string) (*model.Membership, error)
	ListMemberships(ctx context.Context, boardID string) ([]model.Membership, error)
	UpdateMembership(ctx context.Context, m *model.Membership) error
	DeleteMembership(ctx context.Context, boardID, memberID string) error
}

// Store is the full persistence collaborator handed to services.
//
// InTx runs fn against a Store whose operations share one transaction; fn
// returning an error rolls everything back. Board creation uses this so a
// failed member insert leaves no half-created board, and the invitation flow
// uses it so provisioning an identity and enrolling it are one unit.
type Store interface {
	IdentityRepository
	BoardRepository
	MembershipRepository

	InTx(ctx context.Context, fn func(Store) error) error
}
