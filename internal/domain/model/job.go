// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Reason records why an account is being rescored.
type Reason string

const (
	// ReasonRefresh is a job created by a full board rebuild.
	ReasonRefresh Reason = "refresh"
	// ReasonManual is a job requested through the API or CLI.
	ReasonManual Reason = "manual"
)

// Job asks a worker to fetch, score and store one account.
type Job struct {
	ID         string    // unique id for log correlation
	Address    string    // checksummed account address
	Reason     Reason    // refresh or manual
	RunID      string    // rebuild that produced the job; empty for manual jobs
	EnqueuedAt time.Time // when the job entered the queue
}

// NewJob creates a job stamped with a fresh id and the current time.
func NewJob(address string, reason Reason, runID string) Job {
	return Job{
		ID:         uuid.NewString(),
		Address:    address,
		Reason:     reason,
		RunID:      runID,
		EnqueuedAt: time.Now(),
	}
}
