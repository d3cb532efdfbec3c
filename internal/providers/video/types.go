package video

import (
	"context"
	"strings"

	"server/internal/domain"
)

// CameraMove enumerates supported camera motion values.
type CameraMove string

const (
	CameraMoveNone  CameraMove = "none"
	CameraMoveLeft  CameraMove = "left"
	CameraMoveRight CameraMove = "right"
	CameraMoveUp    CameraMove = "up"
	CameraMoveDown  CameraMove = "down"
	CameraMoveIn    CameraMove = "in"
	CameraMoveOut   CameraMove = "out"
)

// Camera describes structured camera motion. Zero values mean "none".
type Camera struct {
	Pan    CameraMove
	Tilt   CameraMove
	Rotate CameraMove
	Zoom   CameraMove
}

// MotionDeltas carries Runway-style numeric motion controls. Nil fields are
// omitted from the outbound payload; present fields are clamped by the
// adapter.
type MotionDeltas struct {
	Horizontal *int
	Vertical   *int
	Roll       *int
	Zoom       *int
	Pan        *int
	Tilt       *int
}

// GenerationRequest is the provider-agnostic description of a video to
// produce. Fields outside a provider's accepted domain are clamped or
// defaulted by that provider's adapter, never sent raw.
type GenerationRequest struct {
	PromptText      string
	StyleEffect     string
	ModelVersion    string
	AspectRatio     string
	FrameRate       int
	Camera          Camera
	Motion          int
	GuidanceScale   float64
	Seed            *int64
	DurationSeconds int
	NegativePrompt  string
	FirstFrameAsset string
	LastFrameAsset  string
	Extend          bool
	ExploreMode     bool
	MotionDeltas    MotionDeltas
}

// Adapter is the minimal capability set every provider implements: one
// outbound call to start a generation and one to poll it. Submit returns the
// provider-native job identifier; Poll translates the provider's status
// vocabulary into the normalized domain.JobStatus.
type Adapter interface {
	Name() string
	Submit(ctx context.Context, req GenerationRequest) (string, error)
	Poll(ctx context.Context, providerJobID string) (domain.JobStatus, error)
}

// AssetManager is implemented by providers that manage uploaded input assets.
type AssetManager interface {
	UploadAsset(ctx context.Context, data []byte, filename, contentType string) (*domain.Asset, error)
	ListAssets(ctx context.Context, mediaType string, offset, limit int) ([]domain.Asset, error)
}

// Resubmitter is implemented by providers that can seed a new generation with
// a prior job's output. The prior job's record is never mutated.
type Resubmitter interface {
	Resubmit(ctx context.Context, newPrompt, priorVideoURL string, prior GenerationRequest) (string, error)
}

const (
	seedMin = 1
	seedMax = 4294967294
)

// validateSeed rejects an out-of-range seed before any network call. A nil
// seed is valid and omitted from payloads.
func validateSeed(seed *int64) error {
	if seed == nil {
		return nil
	}
	if *seed < seedMin || *seed > seedMax {
		return &domain.ValidationError{Field: "seed", Reason: "must be between 1 and 4294967294"}
	}
	return nil
}

// NormalizeCameraMove sanitizes free-form input into a supported move.
func NormalizeCameraMove(move string) CameraMove {
	switch strings.ToLower(strings.TrimSpace(move)) {
	case string(CameraMoveLeft):
		return CameraMoveLeft
	case string(CameraMoveRight):
		return CameraMoveRight
	case string(CameraMoveUp):
		return CameraMoveUp
	case string(CameraMoveDown):
		return CameraMoveDown
	case string(CameraMoveIn):
		return CameraMoveIn
	case string(CameraMoveOut):
		return CameraMoveOut
	default:
		return CameraMoveNone
	}
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
