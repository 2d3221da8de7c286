package directory

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrUnknownGroup     = errors.New("unknown group")
	ErrUnknownUser      = errors.New("unknown user")
	ErrIdentityMismatch = errors.New("identity mismatch")
)

// Error is a client-facing failure of a Store operation. Kind is one of the
// sentinel errors above, so callers match it with errors.Is.
type Error struct {
	Kind     error
	Resource string
	ID       string
	msg      string
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.Kind }

// UserNotFound reports a missing user.
func UserNotFound(userID string) error {
	return &Error{Kind: ErrNotFound, Resource: "user", ID: userID,
		msg: fmt.Sprintf("User '%s' not found.", userID)}
}

// GroupNotFound reports a missing group.
func GroupNotFound(groupID string) error {
	return &Error{Kind: ErrNotFound, Resource: "group", ID: groupID,
		msg: fmt.Sprintf("Group '%s' does not exist.", groupID)}
}

func UserAlreadyExists(userID string) error {
	return &Error{Kind: ErrAlreadyExists, Resource: "user", ID: userID,
		msg: fmt.Sprintf("User '%s' already exists.", userID)}
}

func GroupAlreadyExists(groupID string) error {
	return &Error{Kind: ErrAlreadyExists, Resource: "group", ID: groupID,
		msg: fmt.Sprintf("Group '%s' already exists.", groupID)}
}

// UnknownGroup reports a group named in a user's groups that does not exist.
func UnknownGroup(groupID string) error {
	return &Error{Kind: ErrUnknownGroup, Resource: "group", ID: groupID,
		msg: fmt.Sprintf("Group '%s' does not exist.", groupID)}
}

// UnknownUser reports a member of a group's list that does not exist.
func UnknownUser(userID string) error {
	return &Error{Kind: ErrUnknownUser, Resource: "user", ID: userID,
		msg: fmt.Sprintf("User '%s' does not exist.", userID)}
}

// IdentityMismatch reports a body userid that differs from the addressed one.
func IdentityMismatch(bodyID, targetID string) error {
	return &Error{Kind: ErrIdentityMismatch, Resource: "user", ID: bodyID,
		msg: fmt.Sprintf("Userid '%s' does not match uri's userid '%s'.", bodyID, targetID)}
}

// IsClientError reports whether err belongs to the client-facing taxonomy.
// Anything else is an internal backend failure.
func IsClientError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}
