package sqlite

import "strings"

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint failure.
//
// modernc.org/sqlite surfaces constraint failures as plain errors whose text
// includes the SQLite message, e.g.
//
//	constraint failed: UNIQUE constraint failed: identities.email (2067)
//
// There is no exported error type to match on, so we check the message. The
// columns named in the message tell us WHICH constraint fired; callers that
// care (CreateMembership vs CreateIdentity) only ever insert into one table,
// so the table-level check is enough.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
