package analysis

import (
	"context"
	"time"
)

type Status string

const (
	StatusQueued     Status = "Queued"
	StatusInProgress Status = "In progress"
	StatusFinished   Status = "Finished"
	StatusError      Status = "Error"
)

// Issue is one finding reported for a submitted contract.
type Issue struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Contract    int    `json:"contract"`
	Address     int    `json:"address"`
}

// Job tracks one submission through the queue.
type Job struct {
	UUID        string    `json:"uuid"`
	Type        string    `json:"type"`
	Contracts   []string  `json:"-"`
	Status      Status    `json:"status"`
	Issues      []Issue   `json:"-"`
	Error       string    `json:"error,omitempty"`
	SubmittedAt time.Time `json:"submittedAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Engine runs the actual detection. The production detector lives outside
// this service; Service only cares about the contract below.
type Engine interface {
	Analyze(ctx context.Context, contracts []string) ([]Issue, error)
}
