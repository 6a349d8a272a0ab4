package sqlite

import (
	"context"
	"testing"

	"github.com/mlecanu/ilconto/internal/model"
)

// TESTING WITH IN-MEMORY SQLITE:
// ":memory:" creates a fresh database that exists only during the test —
// fast, isolated, destroyed when the connection closes. Crucially the real
// schema runs here, so the UNIQUE constraints and FK cascades under test are
// the same ones production relies on.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestIdentity inserts an activated identity and fails the test on error.
func createTestIdentity(t *testing.T, db *DB, email string) *model.Identity {
	t.Helper()
	identity := &model.Identity{
		Email:       email,
		Username:    email,
		IsActivated: true,
	}
	if err := db.CreateIdentity(context.Background(), identity); err != nil {
		t.Fatalf("failed to create test identity %s: %v", email, err)
	}
	return identity
}

// createTestIdentityModel builds an identity value without persisting it.
func createTestIdentityModel(email string) *model.Identity {
	return &model.Identity{
		Email:       email,
		Username:    email,
		IsActivated: true,
	}
}

// createTestBoard inserts a board and fails the test on error.
func createTestBoard(t *testing.T, db *DB, title string) *model.Board {
	t.Helper()
	board := &model.Board{Title: title}
	if err := db.CreateBoard(context.Background(), board); err != nil {
		t.Fatalf("failed to create test board %s: %v", title, err)
	}
	return board
}

// createTestMembership enrols identity on board with the given score.
func createTestMembership(t *testing.T, db *DB, board *model.Board, identity *model.Identity, score int64) *model.Membership {
	t.Helper()
	m := &model.Membership{
		BoardID:    board.ID,
		IdentityID: identity.ID,
		Username:   identity.Username,
		Score:      score,
	}
	if err := db.CreateMembership(context.Background(), m); err != nil {
		t.Fatalf("failed to create test membership: %v", err)
	}
	return m
}
