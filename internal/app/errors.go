package service

import "errors"

var (
	ErrNotStarted          = errors.New("service not started")
	ErrNoProvider          = errors.New("no snapshot provider configured")
	ErrRefreshInProgress   = errors.New("rebuild already running")
	ErrBackpressure        = errors.New("rescore queue is full")
	ErrSnapshotUnavailable = errors.New("snapshot unavailable")
	ErrUpgradesUnavailable = errors.New("upgrade costs need the game contract")
)
