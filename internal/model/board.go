package model

import "time"

// Board is a named group of members sharing a score-tracking context.
//
// Members is populated on reads that fetch the board together with its
// memberships (GetBoardByID, ListBoards). It is not written back by
// UpdateBoard — memberships have their own lifecycle through the
// MembershipRepository.
type Board struct {
	ID        string       `json:"id"        db:"id"`
	Title     string       `json:"title"     db:"title"`
	Members   []Membership `json:"members"   db:"-"`
	CreatedAt time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time    `json:"updatedAt" db:"updated_at"`
}

// Membership links exactly one Identity to exactly one Board, carrying the
// board-local display name and the member's score.
//
// Score is an integer of UTC seconds — semantically "last time the member
// reset", defaulting to the moment of enrolment.
//
// The (BoardID, IdentityID) pair is UNIQUE in the database: an identity can
// never be enrolled twice in the same board, even under concurrent requests.
// A Membership cannot outlive its Board (FK ON DELETE CASCADE).
type Membership struct {
	ID         string    `json:"id"         db:"id"`
	BoardID    string    `json:"boardId"    db:"board_id"`
	IdentityID string    `json:"identityId" db:"identity_id"`
	Username   string    `json:"username"   db:"username"`
	Score      int64     `json:"score"      db:"score"`
	CreatedAt  time.Time `json:"createdAt"  db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt"  db:"updated_at"`
}
