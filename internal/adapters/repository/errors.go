package repository

import "errors"

// Sentinel kinds for leaderboard errors.
var (
	ErrNotFound       = errors.New("account not on the leaderboard")
	ErrInvalidLimit   = errors.New("invalid leaderboard limit")
	ErrInvalidAddress = errors.New("entry has no address")
)
