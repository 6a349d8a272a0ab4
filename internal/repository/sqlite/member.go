package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/xid"

	"github.com/mlecanu/ilconto/internal/apperror"
	"github.com/mlecanu/ilconto/internal/model"
	"github.com/mlecanu/ilconto/internal/repository"
)

// compile-time check that *DB implements repository.MembershipRepository
var _ repository.MembershipRepository = (*DB)(nil)

const memberColumns = `id, board_id, identity_id, username, score, created_at, updated_at`

// CreateMembership inserts a new membership row.
//
// DOUBLE-ENROLMENT UNDER CONCURRENCY:
// The UNIQUE(board_id, identity_id) constraint decides the race. Two
// simultaneous inserts for the same pair reach SQLite; one commits, the other
// fails the constraint and returns AlreadyMember. The invariant never depends
// on a prior SELECT.
//
// IDs are freshly generated on every insert — removing a member and re-adding
// the same identity yields a membership with a new ID.
func (db *DB) CreateMembership(ctx context.Context, m *model.Membership) error {
	m.ID = xid.New().String()

	now := time.Now()
	m.CreatedAt = now
	m.UpdatedAt = now

	_, err := db.q.ExecContext(ctx,
		`INSERT INTO board_members (id, board_id, identity_id, username, score, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID,
		m.BoardID,
		m.IdentityID,
		m.Username,
		m.Score,
		m.CreatedAt,
		m.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.AlreadyMember(m.BoardID, m.IdentityID)
		}
		return apperror.Storage("creating membership", err)
	}

	return nil
}

// GetMembership retrieves a membership by ID, scoped to a board. Scoping by
// board means a member ID from one board can never address a row in another.
func (db *DB) GetMembership(ctx context.Context, boardID, memberID string) (*model.Membership, error) {
	return db.getMembership(ctx,
		`SELECT `+memberColumns+` FROM board_members WHERE board_id = ? AND id = ?`,
		memberID, boardID, memberID)
}

// GetMembershipByIdentity retrieves the membership a given identity holds on
// a board, if any. This is how the invitation flow asks "already enrolled?".
func (db *DB) GetMembershipByIdentity(ctx context.Context, boardID, identityID string) (*model.Membership, error) {
	return db.getMembership(ctx,
		`SELECT `+memberColumns+` FROM board_members WHERE board_id = ? AND identity_id = ?`,
		identityID, boardID, identityID)
}

func (db *DB) getMembership(ctx context.Context, query, notFoundKey string, args ...any) (*model.Membership, error) {
	var m model.Membership

	err := db.q.QueryRowContext(ctx, query, args...).Scan(
		&m.ID,
		&m.BoardID,
		&m.IdentityID,
		&m.Username,
		&m.Score,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("member", notFoundKey)
		}
		return nil, apperror.Storage("getting membership", err)
	}

	return &m, nil
}

// ListMemberships retrieves every membership of a board, oldest first so the
// member list is stable across reads.
func (db *DB) ListMemberships(ctx context.Context, boardID string) ([]model.Membership, error) {
	rows, err := db.q.QueryContext(ctx,
		`SELECT `+memberColumns+` FROM board_members
		 WHERE board_id = ?
		 ORDER BY created_at ASC, id ASC`,
		boardID,
	)
	if err != nil {
		return nil, apperror.Storage("listing memberships", err)
	}
	defer rows.Close()

	members := make([]model.Membership, 0, 8)
	for rows.Next() {
		var m model.Membership
		if err := rows.Scan(
			&m.ID, &m.BoardID, &m.IdentityID, &m.Username, &m.Score,
			&m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, apperror.Storage("scanning membership row", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Storage("iterating memberships", err)
	}

	return members, nil
}

// UpdateMembership persists username and score changes. Board, identity, and
// created_at are immutable — a membership never moves between boards.
func (db *DB) UpdateMembership(ctx context.Context, m *model.Membership) error {
	m.UpdatedAt = time.Now()

	result, err := db.q.ExecContext(ctx,
		`UPDATE board_members
		 SET username = ?, score = ?, updated_at = ?
		 WHERE board_id = ? AND id = ?`,
		m.Username,
		m.Score,
		m.UpdatedAt,
		m.BoardID,
		m.ID,
	)
	if err != nil {
		return apperror.Storage("updating membership", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperror.Storage("checking rows affected", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("member", m.ID)
	}

	return nil
}

// DeleteMembership removes a membership, scoped to its board.
func (db *DB) DeleteMembership(ctx context.Context, boardID, memberID string) error {
	result, err := db.q.ExecContext(ctx,
		`DELETE FROM board_members WHERE board_id = ? AND id = ?`,
		boardID,
		memberID,
	)
	if err != nil {
		return apperror.Storage("deleting membership", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperror.Storage("checking rows affected", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("member", memberID)
	}

	return nil
}
