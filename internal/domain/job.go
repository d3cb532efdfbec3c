package domain

import "time"

// JobState enumerates the normalized lifecycle states shared by all video
// providers.
type JobState string

const (
	JobStatePending    JobState = "pending"
	JobStateProcessing JobState = "processing"
	JobStateCompleted  JobState = "completed"
	JobStateFailed     JobState = "failed"
	// JobStateError marks a local fault (transport/parse) as opposed to a
	// provider-reported generation failure.
	JobStateError JobState = "error"
)

// Terminal reports whether no further transition can leave the state.
func (s JobState) Terminal() bool {
	switch s {
	case JobStateCompleted, JobStateFailed, JobStateError:
		return true
	}
	return false
}

// JobHandle is the opaque reference handed to callers. It binds a provider
// name to that provider's native job identifier and is never reused.
type JobHandle struct {
	ID            string
	Provider      string
	ProviderJobID string
}

// JobStatus is a normalized lifecycle snapshot. A completed status always
// carries a non-empty VideoURL; adapters downgrade to JobStateError otherwise.
type JobStatus struct {
	State       JobState
	Progress    int
	Message     string
	VideoURL    string
	PosterURL   string
	Metadata    map[string]any
	ErrorDetail string
	UpdatedAt   time.Time
}

// JobRecord pairs a handle with its last observed status for registry storage.
type JobRecord struct {
	Handle JobHandle
	Status JobStatus
}
