package grouping

import "errors"

// Sentinel kinds for partitioning errors. All of them are caller input
// errors; none is transient.
var (
	ErrInvalidGroupSize    = errors.New("group size must be 2 or more")
	ErrInsufficientMembers = errors.New("not enough members to form groups")
	ErrAlreadyPartitioned  = errors.New("groups already exist for this roster")
	ErrMissingProfile      = errors.New("all members must have an insight profile")
)
