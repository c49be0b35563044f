package model

import "errors"

var (
	// ErrValidation marks malformed caller input: bad team sizes, duplicate
	// players, invalid courts, or broken locked-team integrity.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned for unknown match or player ids.
	ErrNotFound = errors.New("not found")

	// ErrTerminal is returned when a completed or forfeited match is changed.
	ErrTerminal = errors.New("match is terminal")

	// ErrStateInconsistency signals an invariant violation caused by
	// out-of-order caller events. It is never patched silently.
	ErrStateInconsistency = errors.New("state inconsistency")
)
