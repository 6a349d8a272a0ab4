// Package model defines the data structures used throughout the application.
package model

import "time"

// Identity represents a person with an account, keyed globally by email.
//
// An Identity is created in one of two ways:
//   - Explicit registration: the user picks a username and password, and the
//     account starts out activated.
//   - Provisioning by the invitation flow: someone adds an unknown email to a
//     board. The account starts out inactive, with the email doubling as the
//     placeholder username and a fresh ActivationHash waiting to be redeemed.
//
// WHY Email AS THE UNIQUE KEY (not username)?
// Invitations arrive as bare email addresses — that's all the inviter knows
// about the person. The UNIQUE constraint on email in the DB is what lets two
// concurrent invites for the same stranger resolve to exactly one account.
type Identity struct {
	ID             string    `json:"id"            db:"id"`
	Email          string    `json:"email"         db:"email"`
	Username       string    `json:"username"      db:"username"`
	PasswordHash   string    `json:"-"             db:"password_hash"`
	IsStaff        bool      `json:"isStaff"       db:"is_staff"`
	IsActivated    bool      `json:"isActivated"   db:"is_activated"`
	EmailVerified  bool      `json:"emailVerified" db:"email_verified"`
	ActivationHash string    `json:"-"             db:"activation_hash"` // single-use secret, cleared on activation
	CreatedAt      time.Time `json:"createdAt"     db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt"     db:"updated_at"`
}
