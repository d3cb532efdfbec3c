package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/infra"
)

// ErrMissingPikaAPIKey indicates the Pika client was configured without
// credentials.
var ErrMissingPikaAPIKey = errors.New("pika: api key is required")

const (
	pikaProviderName   = "pika"
	pikaDefaultBaseURL = "https://api.pikapikapika.io/web"
	pikaDefaultModel   = "1.5"
	pikaDefaultAspect  = "5:2"

	// Pika rejects prompts above this length, so the adapter truncates
	// before transmission.
	pikaMaxPromptLen = 300

	pikaDefaultFrameRate = 24
	pikaDefaultMotion    = 1
	pikaDefaultGuidance  = 12

	pikaGuidanceMin = 1
	pikaGuidanceMax = 25
)

// PikaOptions configures the Pika web API client.
type PikaOptions struct {
	APIKey         string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Pika performs HTTP calls to the Pika web video generation API.
type Pika struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

type pikaCameraPayload struct {
	Pan    string `json:"pan"`
	Tilt   string `json:"tilt"`
	Rotate string `json:"rotate"`
	Zoom   string `json:"zoom"`
}

type pikaParamsPayload struct {
	Motion         int     `json:"motion"`
	GuidanceScale  float64 `json:"guidanceScale"`
	NegativePrompt string  `json:"negativePrompt"`
	Seed           *int64  `json:"seed,omitempty"`
}

type pikaOptionsPayload struct {
	AspectRatio string            `json:"aspectRatio"`
	FrameRate   int               `json:"frameRate"`
	Camera      pikaCameraPayload `json:"camera"`
	Parameters  pikaParamsPayload `json:"parameters"`
	Extend      bool              `json:"extend"`
}

type pikaGenerateRequest struct {
	PromptText string             `json:"promptText"`
	Model      string             `json:"model"`
	Pikaffect  string             `json:"pikaffect,omitempty"`
	Video      string             `json:"video,omitempty"`
	Options    pikaOptionsPayload `json:"options"`
}

// pikaSubmitResponse covers the job identifier shapes observed across API
// versions; extraction order is job.id, then video.jobId, then jobId.
type pikaSubmitResponse struct {
	Job struct {
		ID string `json:"id"`
	} `json:"job"`
	Video struct {
		JobID string `json:"jobId"`
	} `json:"video"`
	JobID string `json:"jobId"`
}

type pikaJobResponse struct {
	Job struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Error  string `json:"error"`
	} `json:"job"`
	Videos []struct {
		Status      string `json:"status"`
		Progress    int    `json:"progress"`
		ResultURL   string `json:"resultUrl"`
		SharingURL  string `json:"sharingUrl"`
		VideoPoster string `json:"videoPoster"`
	} `json:"videos"`
}

// pikaStatusMap is the fixed translation table from Pika's status vocabulary
// to the normalized states. Unrecognized values resolve to pending so unseen
// provider-side states are tolerated.
var pikaStatusMap = map[string]domain.JobState{
	"queued":     domain.JobStatePending,
	"pending":    domain.JobStatePending,
	"processing": domain.JobStateProcessing,
	"finished":   domain.JobStateCompleted,
	"failed":     domain.JobStateFailed,
}

// NewPika constructs a Pika client with sane defaults.
func NewPika(opts PikaOptions) (*Pika, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, ErrMissingPikaAPIKey
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = pikaDefaultBaseURL
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Pika{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Name returns the provider identifier used for handles and configuration.
func (p *Pika) Name() string { return pikaProviderName }

// Submit validates and clamps the request, issues one generation call, and
// returns the provider's job identifier.
func (p *Pika) Submit(ctx context.Context, req GenerationRequest) (string, error) {
	payload, err := p.buildPayload(req)
	if err != nil {
		return "", err
	}
	return p.postGenerate(ctx, payload)
}

// Resubmit behaves like Submit but seeds the request with a previous job's
// output video plus its original option set.
func (p *Pika) Resubmit(ctx context.Context, newPrompt, priorVideoURL string, prior GenerationRequest) (string, error) {
	if strings.TrimSpace(priorVideoURL) == "" {
		return "", &domain.ValidationError{Field: "video", Reason: "prior video reference is required"}
	}
	prior.PromptText = newPrompt
	prior.StyleEffect = ""
	payload, err := p.buildPayload(prior)
	if err != nil {
		return "", err
	}
	payload.Video = priorVideoURL
	return p.postGenerate(ctx, payload)
}

// Poll issues one status call and maps the response onto the normalized
// five-state model.
func (p *Pika) Poll(ctx context.Context, providerJobID string) (domain.JobStatus, error) {
	endpoint := fmt.Sprintf("%s/jobs/%s", p.baseURL, providerJobID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.JobStatus{}, p.pollError("build request", 0, "", err)
	}
	p.setHeaders(httpReq)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return domain.JobStatus{}, p.pollError("http request", 0, "", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.JobStatus{}, p.pollError("read response", 0, "", err)
	}
	if resp.StatusCode >= 300 {
		return domain.JobStatus{}, p.pollError("status check", resp.StatusCode, string(raw), nil)
	}
	var decoded pikaJobResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return domain.JobStatus{}, p.pollError("decode response", 0, "", err)
	}
	return p.normalizeStatus(decoded), nil
}

func (p *Pika) buildPayload(req GenerationRequest) (*pikaGenerateRequest, error) {
	if err := validateSeed(req.Seed); err != nil {
		return nil, err
	}
	prompt := strings.TrimSpace(req.PromptText)
	if prompt == "" {
		return nil, &domain.ValidationError{Field: "prompt_text", Reason: "must not be empty"}
	}
	effect := strings.TrimSpace(req.StyleEffect)
	if effect != "" {
		prompt = effect + " " + prompt
	}
	prompt = truncate(prompt, pikaMaxPromptLen)

	model := strings.TrimSpace(req.ModelVersion)
	if model == "" {
		model = pikaDefaultModel
	}
	aspect := strings.TrimSpace(req.AspectRatio)
	if aspect == "" {
		aspect = pikaDefaultAspect
	}
	frameRate := req.FrameRate
	if frameRate <= 0 {
		frameRate = pikaDefaultFrameRate
	}
	motion := req.Motion
	if motion <= 0 {
		motion = pikaDefaultMotion
	}
	guidance := req.GuidanceScale
	if guidance == 0 {
		guidance = pikaDefaultGuidance
	}
	guidance = clampFloat(guidance, pikaGuidanceMin, pikaGuidanceMax)

	// Pika requires an explicit camera object; absent moves are sent as
	// "none" rather than omitted.
	camera := pikaCameraPayload{
		Pan:    string(NormalizeCameraMove(string(req.Camera.Pan))),
		Tilt:   string(NormalizeCameraMove(string(req.Camera.Tilt))),
		Rotate: string(NormalizeCameraMove(string(req.Camera.Rotate))),
		Zoom:   string(NormalizeCameraMove(string(req.Camera.Zoom))),
	}

	return &pikaGenerateRequest{
		PromptText: prompt,
		Model:      model,
		Pikaffect:  effect,
		Options: pikaOptionsPayload{
			AspectRatio: aspect,
			FrameRate:   frameRate,
			Camera:      camera,
			Parameters: pikaParamsPayload{
				Motion:         motion,
				GuidanceScale:  guidance,
				NegativePrompt: req.NegativePrompt,
				Seed:           req.Seed,
			},
			Extend: req.Extend,
		},
	}, nil
}

func (p *Pika) postGenerate(ctx context.Context, payload *pikaGenerateRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", p.submitError("encode request", 0, "", err)
	}
	endpoint := p.baseURL + "/generate"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", p.submitError("build request", 0, "", err)
	}
	p.setHeaders(httpReq)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", p.submitError("http request", 0, "", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", p.submitError("read response", 0, "", err)
	}
	if resp.StatusCode >= 300 {
		return "", p.submitError("generate", resp.StatusCode, string(raw), nil)
	}
	var decoded pikaSubmitResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", p.submitError("decode response", 0, "", err)
	}
	jobID := extractPikaJobID(decoded)
	if jobID == "" {
		// A 2xx response without a job identifier is a protocol
		// violation, not a transient fault.
		return "", p.submitError("generate", 0, string(raw), errors.New("no job id in response"))
	}
	p.logger.Debug().Str("provider", pikaProviderName).Str("job_id", jobID).Msg("pika: generation started")
	return jobID, nil
}

// extractPikaJobID reaches into the response shapes observed across Pika API
// versions, in documented order.
func extractPikaJobID(resp pikaSubmitResponse) string {
	if id := strings.TrimSpace(resp.Job.ID); id != "" {
		return id
	}
	if id := strings.TrimSpace(resp.Video.JobID); id != "" {
		return id
	}
	return strings.TrimSpace(resp.JobID)
}

func (p *Pika) normalizeStatus(decoded pikaJobResponse) domain.JobStatus {
	providerStatus := strings.TrimSpace(decoded.Job.Status)
	var videoStatus, resultURL, sharingURL, posterURL string
	progress := 0
	if len(decoded.Videos) > 0 {
		v := decoded.Videos[0]
		videoStatus = strings.TrimSpace(v.Status)
		progress = v.Progress
		resultURL = strings.TrimSpace(v.ResultURL)
		sharingURL = strings.TrimSpace(v.SharingURL)
		posterURL = strings.TrimSpace(v.VideoPoster)
	}
	if providerStatus == "" {
		providerStatus = videoStatus
	}
	state, ok := pikaStatusMap[strings.ToLower(providerStatus)]
	if !ok {
		state = domain.JobStatePending
	}

	status := domain.JobStatus{
		State:     state,
		Progress:  progress,
		Message:   "Video generation in progress",
		UpdatedAt: time.Now().UTC(),
	}
	switch state {
	case domain.JobStateCompleted:
		url := resultURL
		if url == "" {
			url = sharingURL
		}
		if url == "" {
			// A completed status must carry a video URL; report a
			// local error instead of an unusable completion.
			status.State = domain.JobStateError
			status.ErrorDetail = "provider reported finished without a video url"
			status.Message = "Generation finished but no video was returned"
			return status
		}
		status.Progress = 100
		status.VideoURL = url
		status.PosterURL = posterURL
		status.Message = "Video generation completed"
	case domain.JobStateFailed:
		detail := decoded.Job.Error
		if detail == "" {
			detail = "unknown error"
		}
		status.ErrorDetail = detail
		status.Message = fmt.Sprintf("Generation failed: %s", detail)
	case domain.JobStatePending:
		status.Message = "Video generation queued"
	}
	return status
}

func (p *Pika) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")
}

func (p *Pika) submitError(op string, code int, body string, err error) error {
	return &domain.SubmissionError{ProviderError: domain.ProviderError{
		Provider:   pikaProviderName,
		Op:         op,
		StatusCode: code,
		Body:       truncate(strings.TrimSpace(body), 600),
		Err:        err,
	}}
}

func (p *Pika) pollError(op string, code int, body string, err error) error {
	return &domain.PollError{ProviderError: domain.ProviderError{
		Provider:   pikaProviderName,
		Op:         op,
		StatusCode: code,
		Body:       truncate(strings.TrimSpace(body), 600),
		Err:        err,
	}}
}

var (
	_ Adapter     = (*Pika)(nil)
	_ Resubmitter = (*Pika)(nil)
)
