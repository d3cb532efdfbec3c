// Package orchestrator drives generation jobs across heterogeneous video
// providers and exposes one uniform job-state model to callers.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/providers/transcript"
	"server/internal/providers/video"
	"server/internal/publish"
	"server/internal/registry"
)

// Options wires the orchestrator's collaborators. Adapters and Registry are
// required; Transcripts and Publisher are optional capabilities.
type Options struct {
	Adapters    map[string]video.Adapter
	Registry    registry.Registry
	Transcripts transcript.Writer
	Publisher   publish.Sink
	Logger      *infra.Logger
}

// Orchestrator accepts generation requests, records handles, and answers
// status polls. It never retries failed provider calls; retry policy belongs
// to the caller.
type Orchestrator struct {
	adapters    map[string]video.Adapter
	registry    registry.Registry
	transcripts transcript.Writer
	publisher   publish.Sink
	logger      *infra.Logger
}

// New constructs an orchestrator from its injected dependencies.
func New(opts Options) (*Orchestrator, error) {
	if len(opts.Adapters) == 0 {
		return nil, errors.New("orchestrator: at least one adapter is required")
	}
	if opts.Registry == nil {
		return nil, errors.New("orchestrator: registry is required")
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Orchestrator{
		adapters:    opts.Adapters,
		registry:    opts.Registry,
		transcripts: opts.Transcripts,
		publisher:   opts.Publisher,
		logger:      logger,
	}, nil
}

// Providers lists the configured provider names.
func (o *Orchestrator) Providers() []string {
	names := make([]string, 0, len(o.adapters))
	for name := range o.adapters {
		names = append(names, name)
	}
	return names
}

// SubmitGeneration validates the request through the named adapter, submits
// it, and records the resulting handle. Validation failures short-circuit
// with no registry entry and no network call.
func (o *Orchestrator) SubmitGeneration(ctx context.Context, provider string, req video.GenerationRequest) (domain.JobHandle, error) {
	adapter, ok := o.adapters[provider]
	if !ok {
		return domain.JobHandle{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedProvider, provider)
	}
	providerJobID, err := adapter.Submit(ctx, req)
	if err != nil {
		return domain.JobHandle{}, err
	}
	return o.recordSubmission(ctx, adapter.Name(), providerJobID)
}

// Resubmit starts a new generation seeded with a prior job's output video and
// its original option set. The prior job's record is left untouched.
func (o *Orchestrator) Resubmit(ctx context.Context, provider, newPrompt, priorVideoURL string, prior video.GenerationRequest) (domain.JobHandle, error) {
	adapter, ok := o.adapters[provider]
	if !ok {
		return domain.JobHandle{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedProvider, provider)
	}
	resubmitter, ok := adapter.(video.Resubmitter)
	if !ok {
		return domain.JobHandle{}, fmt.Errorf("%w: %s does not support resubmission", domain.ErrUnsupportedProvider, provider)
	}
	providerJobID, err := resubmitter.Resubmit(ctx, newPrompt, priorVideoURL, prior)
	if err != nil {
		return domain.JobHandle{}, err
	}
	return o.recordSubmission(ctx, adapter.Name(), providerJobID)
}

func (o *Orchestrator) recordSubmission(ctx context.Context, provider, providerJobID string) (domain.JobHandle, error) {
	handle := domain.JobHandle{
		ID:            uuid.NewString(),
		Provider:      provider,
		ProviderJobID: providerJobID,
	}
	status := domain.JobStatus{
		State:     domain.JobStatePending,
		Progress:  0,
		Message:   "Video generation started",
		UpdatedAt: time.Now().UTC(),
	}
	if err := o.registry.Put(ctx, domain.JobRecord{Handle: handle, Status: status}); err != nil {
		return domain.JobHandle{}, fmt.Errorf("orchestrator: record handle: %w", err)
	}
	o.logger.Info().
		Str("handle_id", handle.ID).
		Str("provider", provider).
		Str("provider_job_id", providerJobID).
		Msg("orchestrator: generation submitted")
	return handle, nil
}

// GetStatus returns the normalized status for a handle. Terminal statuses are
// served from the registry without re-contacting the provider. Poll faults
// surface as the normalized error state, never as a raw transport error; the
// only error return for a well-formed call is ErrUnknownJob.
func (o *Orchestrator) GetStatus(ctx context.Context, handleID string) (domain.JobStatus, error) {
	rec, err := o.registry.Get(ctx, handleID)
	if err != nil {
		return domain.JobStatus{}, err
	}
	if rec.Status.State.Terminal() {
		return rec.Status, nil
	}

	adapter, ok := o.adapters[rec.Handle.Provider]
	if !ok {
		return domain.JobStatus{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedProvider, rec.Handle.Provider)
	}
	polled, err := adapter.Poll(ctx, rec.Handle.ProviderJobID)
	if err != nil {
		polled = domain.JobStatus{
			State:       domain.JobStateError,
			Progress:    rec.Status.Progress,
			Message:     "Status check failed",
			ErrorDetail: err.Error(),
			UpdatedAt:   time.Now().UTC(),
		}
		o.logger.Error().Err(err).Str("handle_id", handleID).Msg("orchestrator: poll failed")
	}

	merged := mergeStatus(rec.Status, polled)
	rec.Status = merged
	if err := o.registry.Put(ctx, rec); err != nil {
		o.logger.Error().Err(err).Str("handle_id", handleID).Msg("orchestrator: status write failed")
	}
	return merged, nil
}

// mergeStatus applies the polling invariants: progress never decreases for
// the same handle, and completed always reports exactly 100.
func mergeStatus(prev, next domain.JobStatus) domain.JobStatus {
	if next.Progress < prev.Progress {
		next.Progress = prev.Progress
	}
	if next.State == domain.JobStateCompleted {
		next.Progress = 100
	}
	return next
}

// UploadAsset forwards a reference-image upload to a provider that manages
// assets.
func (o *Orchestrator) UploadAsset(ctx context.Context, provider string, data []byte, filename, contentType string) (*domain.Asset, error) {
	adapter, ok := o.adapters[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedProvider, provider)
	}
	manager, ok := adapter.(video.AssetManager)
	if !ok {
		return nil, fmt.Errorf("%w: %s does not manage assets", domain.ErrUnsupportedProvider, provider)
	}
	return manager.UploadAsset(ctx, data, filename, contentType)
}

// ListAssets returns a page of the provider's uploaded assets.
func (o *Orchestrator) ListAssets(ctx context.Context, provider, mediaType string, offset, limit int) ([]domain.Asset, error) {
	adapter, ok := o.adapters[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedProvider, provider)
	}
	manager, ok := adapter.(video.AssetManager)
	if !ok {
		return nil, fmt.Errorf("%w: %s does not manage assets", domain.ErrUnsupportedProvider, provider)
	}
	return manager.ListAssets(ctx, mediaType, offset, limit)
}

// WriteScript turns a content brief into a video script via the transcript
// collaborator.
func (o *Orchestrator) WriteScript(ctx context.Context, brief string) (string, error) {
	if o.transcripts == nil {
		return "", errors.New("orchestrator: transcript writer not configured")
	}
	return o.transcripts.WriteScript(ctx, brief)
}

// Publish forwards a completed job's video to the publish sink. Jobs in any
// other state are rejected.
func (o *Orchestrator) Publish(ctx context.Context, handleID string, visibility publish.Visibility) (string, error) {
	if o.publisher == nil {
		return "", errors.New("orchestrator: publish sink not configured")
	}
	rec, err := o.registry.Get(ctx, handleID)
	if err != nil {
		return "", err
	}
	if rec.Status.State != domain.JobStateCompleted {
		return "", fmt.Errorf("%w: job is %s", domain.ErrNotCompleted, rec.Status.State)
	}
	published, err := o.publisher.Publish(ctx, rec.Status.VideoURL, visibility)
	if err != nil {
		return "", err
	}
	o.logger.Info().Str("handle_id", handleID).Str("published_url", published).Msg("orchestrator: video published")
	return published, nil
}
