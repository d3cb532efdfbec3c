package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownJob          = errors.New("unknown job")
	ErrUnsupportedProvider = errors.New("unsupported provider")
	ErrNotCompleted        = errors.New("job not completed")
)

// ValidationError reports a malformed or out-of-range request field caught
// before any network call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ProviderError carries the normalized failure detail for a provider call.
// Body holds an excerpt of the raw provider response for diagnosis; auth
// headers and API keys are never included.
type ProviderError struct {
	Provider   string
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s: status %d: %s", e.Provider, e.Op, e.StatusCode, e.Body)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s failed", e.Provider, e.Op)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// SubmissionError wraps a failed or unintelligible submission response.
type SubmissionError struct{ ProviderError }

// PollError wraps a transport or parse failure during a status check. It is
// distinct from a provider-reported generation failure, which maps to
// JobStateFailed instead.
type PollError struct{ ProviderError }

// UploadError wraps a failed asset upload.
type UploadError struct{ ProviderError }

// ListError wraps a failed asset listing.
type ListError struct{ ProviderError }
