package store

import "errors"

var (
	// ErrUserNotFound is returned by read paths keyed on a device token
	// that has never been seen.
	ErrUserNotFound = errors.New("user not found")

	// ErrGroupNotFound is returned when no group matches an invite code.
	ErrGroupNotFound = errors.New("group not found")

	// ErrGroupExpired is returned when a group exists but its expiration
	// has passed.
	ErrGroupExpired = errors.New("group expired")

	// ErrAlreadyMember is returned when a join targets a group the user
	// already belongs to.
	ErrAlreadyMember = errors.New("already a member")

	// ErrCodeExhausted is returned when invite code allocation keeps
	// colliding past its retry budget.
	ErrCodeExhausted = errors.New("invite code space exhausted")
)
