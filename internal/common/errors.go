// Package common defines shared constants and sentinel errors used across
// client layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Session errors.
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrTokenExpired     = errors.New("token expired")

	// Domain errors surfaced to the user.
	ErrUserNotFound        = errors.New("user not found")
	ErrTableNotFound       = errors.New("table not found")
	ErrNotTableOwner       = errors.New("not table owner")
	ErrCannotLeaveOwnTable = errors.New("cannot leave own table")
	ErrMemberUpdateFailed  = errors.New("member update failed")

	// Input errors.
	ErrValidation = errors.New("validation error")

	// Transport / repository errors.
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("server unavailable")
)

var userMessages = []struct {
	err error
	msg string
}{
	{ErrNotAuthenticated, "You must be signed in to perform this action."},
	{ErrTokenExpired, "You must be signed in to perform this action."},
	{ErrUserNotFound, "User not found. Make sure they have an account."},
	{ErrTableNotFound, "Table not found."},
	{ErrNotTableOwner, "Only the table owner can archive or delete this table."},
	{ErrCannotLeaveOwnTable, "You cannot leave a table you own. Archive or delete it instead."},
	{ErrMemberUpdateFailed, "Could not update the table's member list."},
	{ErrUnavailable, "The server is unavailable. Try again later."},
}

// UserMessage returns a human-readable message for err. Errors that carry
// no known sentinel fall back to err.Error().
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	for _, m := range userMessages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return err.Error()
}
