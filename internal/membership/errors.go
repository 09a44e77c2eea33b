package membership

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindNotFound Kind = iota + 1
	KindConflict
	KindExhausted
	KindDependency
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindExhausted:
		return "exhausted"
	case KindDependency:
		return "dependency"
	case KindInvalid:
		return "invalid"
	}
	return "unknown"
}

const (
	ReasonAlreadyMember        = "already_member"
	ReasonTargetIsPersonal     = "target_is_personal"
	ReasonNotPersonal          = "not_personal"
	ReasonNotOwner             = "not_owner"
	ReasonAlreadyPersonal      = "already_personal"
	ReasonConcurrentChange     = "concurrent_membership_change"
	ReasonInviteNotFound       = "invite_not_found"
	ReasonMembershipMissing    = "membership_missing"
	ReasonHouseholdMissing     = "household_missing"
	ReasonInvalidInviteCode    = "invalid_invite_code"
	ReasonInvalidName          = "invalid_name"
	ReasonInviteCodesExhausted = "invite_codes_exhausted"
	ReasonStoreUnavailable     = "store_unavailable"
)

// Error is the failure type of every membership operation.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether repeating the same request may succeed.
func (e *Error) Retryable() bool {
	return e.Kind == KindDependency || e.Reason == ReasonConcurrentChange
}

func newError(kind Kind, reason string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: err}
}

func notFound(reason string) *Error { return newError(KindNotFound, reason, nil) }
func conflict(reason string) *Error { return newError(KindConflict, reason, nil) }
func invalid(reason string) *Error  { return newError(KindInvalid, reason, nil) }

// dependency wraps a store failure. An error that is already an *Error is
// passed through unchanged.
func dependency(op string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return newError(KindDependency, ReasonStoreUnavailable, fmt.Errorf("%s: %w", op, err))
}

// IsKind reports whether err is a membership error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// ReasonOf returns the machine-readable reason of err, or "" if err is not a
// membership error.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}
