package service

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/mlecanu/ilconto/internal/model"
	"github.com/mlecanu/ilconto/internal/notify"
	"github.com/mlecanu/ilconto/internal/repository/sqlite"
)

// =========================================================================
// TEST FIXTURES
// =========================================================================
//
// WHY A REAL IN-MEMORY DATABASE INSTEAD OF A MOCK?
// The services under test lean on two things only the real storage layer
// provides: transactions (InTx must actually roll back on failure) and the
// UNIQUE constraints that arbitrate enrolment races. A hand-written mock
// would have to reimplement both to be faithful, at which point it IS a
// database — just an untested one. ":memory:" sqlite gives us the real
// behavior in microseconds.

func newTestStore(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fixedTime pins the clock so default scores are deterministic.
var fixedTime = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestBoardService(t *testing.T) (*BoardService, *sqlite.DB) {
	t.Helper()
	store := newTestStore(t)
	svc := NewBoardService(store, testLogger())
	svc.now = func() time.Time { return fixedTime }
	return svc, store
}

// seedIdentity persists an activated identity.
func seedIdentity(t *testing.T, store *sqlite.DB, email, username string) *model.Identity {
	t.Helper()
	identity := &model.Identity{
		Email:       email,
		Username:    username,
		IsActivated: true,
	}
	if err := store.CreateIdentity(context.Background(), identity); err != nil {
		t.Fatalf("failed to seed identity %s: %v", email, err)
	}
	return identity
}

// seedBoard persists an empty board.
func seedBoard(t *testing.T, store *sqlite.DB, title string) *model.Board {
	t.Helper()
	board := &model.Board{Title: title}
	if err := store.CreateBoard(context.Background(), board); err != nil {
		t.Fatalf("failed to seed board %s: %v", title, err)
	}
	return board
}

// int64Ptr is a shorthand for optional score arguments.
func int64Ptr(v int64) *int64 { return &v }

// =========================================================================
// RECORDING NOTIFIER
// =========================================================================

// sentNotice captures one SendOnboardingNotice call.
type sentNotice struct {
	ToEmail   string
	BoardID   string
	InviterID string
	URL       string
}

// recordingNotifier implements notify.Notifier and remembers every notice.
// Set failWith to make every send fail — the flows treat notices as
// best-effort, so tests need to prove a failed send changes nothing.
type recordingNotifier struct {
	mu       sync.Mutex
	notices  []sentNotice
	failWith error
}

var _ notify.Notifier = (*recordingNotifier)(nil)

func (r *recordingNotifier) SendOnboardingNotice(_ context.Context, to *model.Identity, board *model.Board, inviter *model.Identity, activationURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	r.notices = append(r.notices, sentNotice{
		ToEmail:   to.Email,
		BoardID:   board.ID,
		InviterID: inviter.ID,
		URL:       activationURL,
	})
	return nil
}

func (r *recordingNotifier) sent() []sentNotice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sentNotice, len(r.notices))
	copy(out, r.notices)
	return out
}
