package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"server/internal/domain"
)

const redisJobKeyPrefix = "vidjob:"

func jobKey(handleID string) string {
	return redisJobKeyPrefix + handleID
}

// Redis is a registry backed by go-redis. Terminal records rely on native key
// TTL for expiry, so Prune is a no-op.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis constructs a Redis registry from an already-connected client;
// ttl <= 0 uses DefaultTerminalTTL.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTerminalTTL
	}
	return &Redis{client: client, ttl: ttl}
}

type redisRecord struct {
	HandleID      string         `json:"handle_id"`
	Provider      string         `json:"provider"`
	ProviderJobID string         `json:"provider_job_id"`
	State         string         `json:"state"`
	Progress      int            `json:"progress"`
	Message       string         `json:"message"`
	VideoURL      string         `json:"video_url,omitempty"`
	PosterURL     string         `json:"poster_url,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	ErrorDetail   string         `json:"error_detail,omitempty"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func (r *Redis) Put(ctx context.Context, rec domain.JobRecord) error {
	existing, err := r.Get(ctx, rec.Handle.ID)
	if err == nil && existing.Status.State.Terminal() && !rec.Status.State.Terminal() {
		return nil
	}
	if err != nil && !errors.Is(err, domain.ErrUnknownJob) {
		return err
	}
	payload, err := json.Marshal(encodeRecord(rec))
	if err != nil {
		return fmt.Errorf("registry: encode record: %w", err)
	}
	// Non-terminal records never expire; the terminal write arms the TTL.
	var ttl time.Duration
	if rec.Status.State.Terminal() {
		ttl = r.ttl
	}
	if err := r.client.Set(ctx, jobKey(rec.Handle.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("registry: redis set: %w", err)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, handleID string) (domain.JobRecord, error) {
	raw, err := r.client.Get(ctx, jobKey(handleID)).Bytes()
	if err == redis.Nil {
		return domain.JobRecord{}, domain.ErrUnknownJob
	}
	if err != nil {
		return domain.JobRecord{}, fmt.Errorf("registry: redis get: %w", err)
	}
	var stored redisRecord
	if err := json.Unmarshal(raw, &stored); err != nil {
		return domain.JobRecord{}, fmt.Errorf("registry: decode record: %w", err)
	}
	return decodeRecord(stored), nil
}

func (r *Redis) List(ctx context.Context) ([]domain.JobRecord, error) {
	var records []domain.JobRecord
	iter := r.client.Scan(ctx, 0, redisJobKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		raw, err := r.client.Get(ctx, iter.Val()).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("registry: redis get: %w", err)
		}
		var stored redisRecord
		if err := json.Unmarshal(raw, &stored); err != nil {
			continue
		}
		records = append(records, decodeRecord(stored))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("registry: redis scan: %w", err)
	}
	return records, nil
}

func (r *Redis) Prune(ctx context.Context) (int, error) {
	// Expiry is enforced by key TTL.
	return 0, nil
}

func encodeRecord(rec domain.JobRecord) redisRecord {
	return redisRecord{
		HandleID:      rec.Handle.ID,
		Provider:      rec.Handle.Provider,
		ProviderJobID: rec.Handle.ProviderJobID,
		State:         string(rec.Status.State),
		Progress:      rec.Status.Progress,
		Message:       rec.Status.Message,
		VideoURL:      rec.Status.VideoURL,
		PosterURL:     rec.Status.PosterURL,
		Metadata:      rec.Status.Metadata,
		ErrorDetail:   rec.Status.ErrorDetail,
		UpdatedAt:     rec.Status.UpdatedAt,
	}
}

func decodeRecord(stored redisRecord) domain.JobRecord {
	return domain.JobRecord{
		Handle: domain.JobHandle{
			ID:            stored.HandleID,
			Provider:      stored.Provider,
			ProviderJobID: stored.ProviderJobID,
		},
		Status: domain.JobStatus{
			State:       domain.JobState(stored.State),
			Progress:    stored.Progress,
			Message:     stored.Message,
			VideoURL:    stored.VideoURL,
			PosterURL:   stored.PosterURL,
			Metadata:    stored.Metadata,
			ErrorDetail: stored.ErrorDetail,
			UpdatedAt:   stored.UpdatedAt,
		},
	}
}

var _ Registry = (*Redis)(nil)
