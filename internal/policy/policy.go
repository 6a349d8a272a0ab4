// Package policy holds the access predicates for boards and members.
//
// These are pure functions over already-loaded models: they never touch
// storage and never return errors. Callers (the service layer and the HTTP
// handlers) load the relevant records, ask the predicate, and decide what to
// do with a false answer — usually apperror.Forbidden.
package policy

import "github.com/mlecanu/ilconto/internal/model"

// CanViewOrEditBoard reports whether caller may see or modify a board with
// the given members.
//
// Staff is checked first: the staff capability grants visibility across every
// board, regardless of membership. Everyone else needs a membership on the
// board.
func CanViewOrEditBoard(caller *model.Identity, members []model.Membership) bool {
	if caller == nil {
		return false
	}
	if caller.IsStaff {
		return true
	}
	for _, m := range members {
		if m.IdentityID == caller.ID {
			return true
		}
	}
	return false
}

// CanMutateMembership reports whether caller may change or remove a specific
// membership (score resets, username edits, deletion).
//
// The rule is self-only: a member mutates their own record and nobody
// else's, staff included — staff bypass applies to board visibility, not to
// rewriting someone else's score.
func CanMutateMembership(caller *model.Identity, m *model.Membership) bool {
	if caller == nil || m == nil {
		return false
	}
	return caller.ID == m.IdentityID
}

// IsOnboardingEligible reports whether an identity may go through activation
// with the supplied hash: it must still be unactivated and the hash must
// match exactly. Returns the reason alongside so the caller can log or
// surface it.
func IsOnboardingEligible(identity *model.Identity, suppliedHash string) (bool, string) {
	if identity == nil {
		return false, "identity does not exist"
	}
	if identity.IsActivated {
		return false, "identity is already activated"
	}
	if suppliedHash == "" || identity.ActivationHash != suppliedHash {
		return false, "activation hash does not match"
	}
	return true, ""
}
