package trib

import "fmt"

// Kind tags the nine error kinds the front-end and storage layers raise,
// plus KindUnknown for anything else. Mutually exclusive by construction, so
// one tagged type serves better than ten distinct Go error types — mirrors the single CASConflictError /
// NotFoundError shape the storage layer this module is grounded on uses,
// collapsed into one type since these kinds share the same "surfaced to
// caller" handling.
type Kind string

const (
	KindInvalidUsername  Kind = "invalid_username"
	KindUsernameTaken     Kind = "username_taken"
	KindUserDoesNotExist  Kind = "user_does_not_exist"
	KindWhoWhom           Kind = "who_whom"
	KindAlreadyFollowing  Kind = "already_following"
	KindNotFollowing      Kind = "not_following"
	KindFollowingTooMany  Kind = "following_too_many"
	KindTribTooLong       Kind = "trib_too_long"
	KindRPCError          Kind = "rpc_error"
	KindUnknown           Kind = "unknown"
)

// Error is the single error type surfaced across package boundaries.
type Error struct {
	Kind    Kind
	Message string
	Err     error // wrapped cause, optional
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap tags err with kind, keeping err as the unwrap target.
func Wrap(kind Kind, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	te, ok := err.(*Error)
	return ok && te.Kind == kind
}
