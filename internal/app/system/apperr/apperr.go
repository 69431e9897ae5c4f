// Package apperr defines the error taxonomy shared by the auth, session and
// group administration services.
//
// Each member is a sentinel *Error carrying a stable machine-readable code
// (consumed by clients) and the HTTP status it maps to. Services wrap them
// with fmt.Errorf("...: %w", apperr.ErrX); handlers recover them with
// errors.Is / apperr.From.
package apperr

import (
	"errors"
	"net/http"
)

// Error is a classified application error.
type Error struct {
	Code    string
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

// Credential errors. Terminal for the presented credential.
var (
	ErrInvalidToken     = &Error{"invalid_token", http.StatusBadRequest, "link not valid"}
	ErrExpiredToken     = &Error{"expired_token", http.StatusBadRequest, "link has expired"}
	ErrTokenAlreadyUsed = &Error{"token_already_used", http.StatusBadRequest, "link has already been used"}
	ErrInvalidRefresh   = &Error{"invalid_refresh", http.StatusUnauthorized, "session is no longer valid"}
)

// Authorization errors.
var (
	ErrUnauthenticated = &Error{"unauthenticated", http.StatusUnauthorized, "sign in required"}
	ErrForbidden       = &Error{"forbidden", http.StatusForbidden, "you do not have permission to do that"}
	ErrNotFound        = &Error{"not_found", http.StatusNotFound, "not found"}
)

// Membership errors.
var (
	ErrNoSuchMembership = &Error{"no_such_membership", http.StatusBadRequest, "no membership for that email in that group"}
	ErrNoLongerAMember  = &Error{"no_longer_a_member", http.StatusForbidden, "you are no longer a member of this group"}
	ErrNotAMember       = &Error{"not_a_member", http.StatusForbidden, "you are not a member of that group"}
)

// Invariant violations. Rejected before any mutation.
var (
	ErrCannotModifyOwner   = &Error{"cannot_modify_owner", http.StatusBadRequest, "the group owner cannot be changed or removed"}
	ErrLastAdminProtection = &Error{"last_admin_protection", http.StatusBadRequest, "a group must keep at least one admin"}
	ErrMembershipChanged   = &Error{"membership_changed", http.StatusBadRequest, "the membership changed concurrently; reload and retry"}
)

// Input errors.
var (
	ErrBadRequest   = &Error{"bad_request", http.StatusBadRequest, "invalid request"}
	ErrNameRequired = &Error{"name_required", http.StatusBadRequest, "a name is required"}
)

// ErrInternal is what infrastructure failures look like from outside.
var ErrInternal = &Error{"internal", http.StatusInternalServerError, "something went wrong"}

// From returns the classified error in err's chain, or ErrInternal when err
// carries no classification.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return ErrInternal
}

// Classified reports whether err carries an *Error.
func Classified(err error) bool {
	var e *Error
	return errors.As(err, &e)
}
