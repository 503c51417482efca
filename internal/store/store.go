// Package store persists search job checkpoints and event traces.
package store

// Store persists search job checkpoints. Implementations must be safe for
// concurrent use.
//
// Load and Delete return ErrNotFound for unknown jobs. Other failures are
// wrapped with context via fmt.Errorf("...: %w", err).
type Store interface {
	// SaveCheckpoint atomically saves a checkpoint, replacing any earlier
	// one for the job. Invalid checkpoints are rejected with a
	// *ValidationError.
	SaveCheckpoint(jobID string, checkpoint *Checkpoint) error

	// LoadCheckpoint retrieves the checkpoint for the given job.
	LoadCheckpoint(jobID string) (*Checkpoint, error)

	// ListCheckpoints returns metadata for all available checkpoints.
	ListCheckpoints() ([]CheckpointInfo, error)

	// DeleteCheckpoint removes the checkpoint and the job's trace.
	DeleteCheckpoint(jobID string) error
}

// ErrNotFound is returned when a requested checkpoint does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing checkpoint or trace.
type NotFoundError struct {
	JobID string
}

func (e *NotFoundError) Error() string {
	if e.JobID != "" {
		return "checkpoint not found: " + e.JobID
	}
	return "checkpoint not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
