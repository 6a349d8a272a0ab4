package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/mlecanu/ilconto/internal/apperror"
	"github.com/mlecanu/ilconto/internal/model"
	"github.com/mlecanu/ilconto/internal/repository"
)

// compile-time check that *DB implements repository.BoardRepository
var _ repository.BoardRepository = (*DB)(nil)

// CreateBoard inserts a new board. Memberships are not inserted here — the
// invitation flow creates them one by one through CreateMembership, inside
// the same transaction when atomicity matters.
func (db *DB) CreateBoard(ctx context.Context, board *model.Board) error {
	board.ID = xid.New().String()

	now := time.Now()
	board.CreatedAt = now
	board.UpdatedAt = now

	_, err := db.q.ExecContext(ctx,
		`INSERT INTO boards (id, title, created_at, updated_at)
		 VALUES (?, ?, ?, ?)`,
		board.ID,
		board.Title,
		board.CreatedAt,
		board.UpdatedAt,
	)
	if err != nil {
		return apperror.Storage("creating board", err)
	}

	return nil
}

// GetBoardByID retrieves a board together with its memberships.
func (db *DB) GetBoardByID(ctx context.Context, id string) (*model.Board, error) {
	var b model.Board

	err := db.q.QueryRowContext(ctx,
		`SELECT id, title, created_at, updated_at FROM boards WHERE id = ?`,
		id,
	).Scan(&b.ID, &b.Title, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("board", id)
		}
		return nil, apperror.Storage("getting board", err)
	}

	members, err := db.ListMemberships(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	b.Members = members

	return &b, nil
}

// ListBoards retrieves boards with pagination, newest first. Used by staff
// callers, who see every board.
func (db *DB) ListBoards(ctx context.Context, opts repository.ListOptions) ([]model.Board, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := db.q.QueryContext(ctx,
		`SELECT id, title, created_at, updated_at
		 FROM boards
		 ORDER BY created_at DESC
		 LIMIT ? OFFSET ?`,
		limit,
		offset,
	)
	if err != nil {
		return nil, apperror.Storage("listing boards", err)
	}
	defer rows.Close()

	return db.scanBoards(ctx, rows)
}

// ListBoardsForIdentity retrieves the boards the given identity holds a
// membership on. Regular callers only ever see these.
func (db *DB) ListBoardsForIdentity(ctx context.Context, identityID string) ([]model.Board, error) {
	rows, err := db.q.QueryContext(ctx,
		`SELECT b.id, b.title, b.created_at, b.updated_at
		 FROM boards b
		 JOIN board_members m ON m.board_id = b.id
		 WHERE m.identity_id = ?
		 ORDER BY b.created_at DESC`,
		identityID,
	)
	if err != nil {
		return nil, apperror.Storage("listing boards for identity", err)
	}
	defer rows.Close()

	return db.scanBoards(ctx, rows)
}

// scanBoards drains rows and loads each board's memberships.
//
// One members query per board is an N+1, but board lists are small (a user
// belongs to a handful of boards) and SQLite queries are local — not worth a
// GROUP BY dance here.
func (db *DB) scanBoards(ctx context.Context, rows *sql.Rows) ([]model.Board, error) {
	boards := make([]model.Board, 0, 8)

	for rows.Next() {
		var b model.Board
		if err := rows.Scan(&b.ID, &b.Title, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, apperror.Storage("scanning board row", err)
		}
		boards = append(boards, b)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Storage("iterating boards", err)
	}

	for i := range boards {
		members, err := db.ListMemberships(ctx, boards[i].ID)
		if err != nil {
			return nil, err
		}
		boards[i].Members = members
	}

	return boards, nil
}

// UpdateBoard persists a title change. Membership changes go through the
// MembershipRepository methods, never through here.
func (db *DB) UpdateBoard(ctx context.Context, board *model.Board) error {
	board.Title = strings.TrimSpace(board.Title)
	board.UpdatedAt = time.Now()

	result, err := db.q.ExecContext(ctx,
		`UPDATE boards SET title = ?, updated_at = ? WHERE id = ?`,
		board.Title,
		board.UpdatedAt,
		board.ID,
	)
	if err != nil {
		return apperror.Storage("updating board", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperror.Storage("checking rows affected", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("board", board.ID)
	}

	return nil
}

// DeleteBoard removes a board. The ON DELETE CASCADE on board_members deletes
// its memberships in the same statement — no orphan rows.
func (db *DB) DeleteBoard(ctx context.Context, id string) error {
	result, err := db.q.ExecContext(ctx,
		`DELETE FROM boards WHERE id = ?`,
		id,
	)
	if err != nil {
		return apperror.Storage("deleting board", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperror.Storage("checking rows affected", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("board", id)
	}

	return nil
}
