package video

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"server/internal/domain"
)

// Synthetic is a credential-free adapter for development and tests. Submitted
// jobs report processing until the configured delay elapses, then complete
// with a deterministic asset URL. No network I/O is performed.
type Synthetic struct {
	delay time.Duration

	mu   sync.Mutex
	jobs map[string]time.Time
}

// NewSynthetic constructs a synthetic adapter; delay <= 0 means jobs complete
// on the first poll.
func NewSynthetic(delay time.Duration) *Synthetic {
	return &Synthetic{delay: delay, jobs: make(map[string]time.Time)}
}

func (s *Synthetic) Name() string { return "synthetic" }

func (s *Synthetic) Submit(ctx context.Context, req GenerationRequest) (string, error) {
	if err := validateSeed(req.Seed); err != nil {
		return "", err
	}
	if req.PromptText == "" {
		return "", &domain.ValidationError{Field: "prompt_text", Reason: "must not be empty"}
	}
	id := uuid.NewString()
	s.mu.Lock()
	s.jobs[id] = time.Now()
	s.mu.Unlock()
	return id, nil
}

func (s *Synthetic) Poll(ctx context.Context, providerJobID string) (domain.JobStatus, error) {
	s.mu.Lock()
	started, ok := s.jobs[providerJobID]
	s.mu.Unlock()
	if !ok {
		return domain.JobStatus{}, &domain.PollError{ProviderError: domain.ProviderError{
			Provider: s.Name(),
			Op:       "status check",
			Err:      fmt.Errorf("unknown job %s", providerJobID),
		}}
	}
	elapsed := time.Since(started)
	now := time.Now().UTC()
	if elapsed < s.delay {
		progress := int(float64(elapsed) / float64(s.delay) * 100)
		return domain.JobStatus{
			State:     domain.JobStateProcessing,
			Progress:  progress,
			Message:   "Video generation in progress",
			UpdatedAt: now,
		}, nil
	}
	return domain.JobStatus{
		State:     domain.JobStateCompleted,
		Progress:  100,
		Message:   "Video generation completed",
		VideoURL:  fmt.Sprintf("https://cdn.example.com/synthetic/%s.mp4", providerJobID),
		UpdatedAt: now,
	}, nil
}

var _ Adapter = (*Synthetic)(nil)
