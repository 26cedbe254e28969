// Package domain defines the core account domain entities and types.
package domain

import (
	"github.com/tokenvault/tokenvault/internal/errors"
)

// AccessLevel is the ordinal authorization tier gating which operations a
// session may invoke. Authorization is a >= comparison on the level.
type AccessLevel int

const (
	AccessNone     AccessLevel = 0
	AccessRegister AccessLevel = 1
	AccessRequest  AccessLevel = 2
	AccessMaster   AccessLevel = 3
)

// NewAccessLevel converts a raw integer into an AccessLevel. Out-of-range
// values coerce to AccessNone.
func NewAccessLevel(value int) AccessLevel {
	level := AccessLevel(value)
	if level < AccessNone || level > AccessMaster {
		return AccessNone
	}
	return level
}

// String returns the string representation of the access level.
func (a AccessLevel) String() string {
	switch a {
	case AccessNone:
		return "none"
	case AccessRegister:
		return "register"
	case AccessRequest:
		return "request"
	case AccessMaster:
		return "master"
	default:
		return "none"
	}
}

// AtLeast reports whether the level grants the permissions of required.
func (a AccessLevel) AtLeast(required AccessLevel) bool {
	return a >= required
}

// User represents a registered account. Users are immutable after creation.
// The password is an opaque value supplied by the caller (hashed upstream)
// and is compared by exact match.
type User struct {
	Username string
	Password string
	Access   AccessLevel
}

// NewUser builds a User, coercing the access level into the valid range.
func NewUser(username, password string, access AccessLevel) User {
	return User{
		Username: username,
		Password: password,
		Access:   NewAccessLevel(int(access)),
	}
}

// Domain-specific errors for account operations.
var (
	// ErrUsernameTaken indicates a user with the same username already exists.
	ErrUsernameTaken = errors.Wrap(errors.ErrConflict, "username already exists")

	// ErrInvalidCredentials indicates the username/password pair did not match
	// any registered user.
	ErrInvalidCredentials = errors.Wrap(errors.ErrUnauthorized, "username or password was incorrect")
)
