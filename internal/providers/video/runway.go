package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/infra"
)

// ErrMissingRunwayAPIKey indicates the Runway client was configured without
// credentials.
var ErrMissingRunwayAPIKey = errors.New("runway: api key is required")

const (
	runwayProviderName   = "runway"
	runwayDefaultBaseURL = "https://api.useapi.net"
	runwayDefaultAspect  = "landscape"

	runwayMaxPromptLen = 512

	runwayDefaultSeconds = 5

	runwayMotionMin = -10
	runwayMotionMax = 10
)

// runwayAllowedSeconds is the provider's accepted duration set; anything else
// is coerced to the documented default before transmission.
var runwayAllowedSeconds = map[int]struct{}{5: {}, 10: {}}

// RunwayOptions configures the Runway (useapi.net) client.
type RunwayOptions struct {
	APIKey         string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Runway performs HTTP calls to the Runway gen3turbo API via useapi.net.
type Runway struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

type runwayTaskResponse struct {
	Status        string      `json:"status"`
	ProgressRatio json.Number `json:"progressRatio"`
	ProgressText  string      `json:"progressText"`
	Error         string      `json:"error"`
	Artifacts     []struct {
		URL      string `json:"url"`
		Metadata struct {
			FrameRate  *float64 `json:"frameRate"`
			Duration   float64  `json:"duration"`
			Dimensions []int    `json:"dimensions"`
		} `json:"metadata"`
	} `json:"artifacts"`
}

type runwayAssetPayload struct {
	AssetID   string    `json:"assetId"`
	URL       string    `json:"url"`
	MimeType  string    `json:"mimeType"`
	Size      int64     `json:"size"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// runwayStatusMap is the fixed translation table from Runway's status
// vocabulary to the normalized states. Unrecognized values resolve to pending
// so unseen provider-side states are tolerated.
var runwayStatusMap = map[string]domain.JobState{
	"PENDING":    domain.JobStatePending,
	"THROTTLED":  domain.JobStatePending,
	"PROCESSING": domain.JobStateProcessing,
	"RUNNING":    domain.JobStateProcessing,
	"SUCCEEDED":  domain.JobStateCompleted,
	"FAILED":     domain.JobStateFailed,
}

// NewRunway constructs a Runway client with sane defaults.
func NewRunway(opts RunwayOptions) (*Runway, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, ErrMissingRunwayAPIKey
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
		baseURL = runwayDefaultBaseURL
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Runway{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Name returns the provider identifier used for handles and configuration.
func (r *Runway) Name() string { return runwayProviderName }

// Submit validates and clamps the request, issues one generation call, and
// returns the provider's task identifier.
func (r *Runway) Submit(ctx context.Context, req GenerationRequest) (string, error) {
	if err := validateSeed(req.Seed); err != nil {
		return "", err
	}
	prompt := strings.TrimSpace(req.PromptText)
	if effect := strings.TrimSpace(req.StyleEffect); effect != "" {
		prompt = effect + " " + prompt
	}
	if prompt == "" {
		return "", &domain.ValidationError{Field: "prompt_text", Reason: "must not be empty"}
	}
	aspect := strings.TrimSpace(req.AspectRatio)
	if aspect == "" {
		aspect = runwayDefaultAspect
	}
	seconds := req.DurationSeconds
	if _, ok := runwayAllowedSeconds[seconds]; !ok {
		seconds = runwayDefaultSeconds
	}

	payload := map[string]any{
		"text_prompt":  truncate(prompt, runwayMaxPromptLen),
		"aspect_ratio": aspect,
		"seconds":      seconds,
		"exploreMode":  req.ExploreMode,
	}
	// Optional fields are omitted rather than sent as null.
	if req.FirstFrameAsset != "" {
		payload["firstImage_assetId"] = req.FirstFrameAsset
	}
	if req.LastFrameAsset != "" {
		payload["lastImage_assetId"] = req.LastFrameAsset
	}
	if req.Seed != nil {
		payload["seed"] = *req.Seed
	}
	for name, delta := range map[string]*int{
		"horizontal": req.MotionDeltas.Horizontal,
		"vertical":   req.MotionDeltas.Vertical,
		"roll":       req.MotionDeltas.Roll,
		"zoom":       req.MotionDeltas.Zoom,
		"pan":        req.MotionDeltas.Pan,
		"tilt":       req.MotionDeltas.Tilt,
	} {
		if delta != nil {
			payload[name] = clampInt(*delta, runwayMotionMin, runwayMotionMax)
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", r.submitError("encode request", 0, "", err)
	}
	endpoint := r.baseURL + "/gen3turbo/create"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", r.submitError("build request", 0, "", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return "", r.submitError("http request", 0, "", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", r.submitError("read response", 0, "", err)
	}
	if resp.StatusCode >= 300 {
		return "", r.submitError("create", resp.StatusCode, string(raw), nil)
	}
	var decoded struct {
		TaskID string `json:"taskId"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", r.submitError("decode response", 0, "", err)
	}
	taskID := strings.TrimSpace(decoded.TaskID)
	if taskID == "" {
		return "", r.submitError("create", 0, string(raw), errors.New("no taskId in response"))
	}
	r.logger.Debug().Str("provider", runwayProviderName).Str("task_id", taskID).Msg("runway: generation started")
	return taskID, nil
}

// Poll issues one status call and maps the response onto the normalized
// five-state model.
func (r *Runway) Poll(ctx context.Context, providerJobID string) (domain.JobStatus, error) {
	endpoint := fmt.Sprintf("%s/tasks/%s", r.baseURL, providerJobID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.JobStatus{}, r.pollError("build request", 0, "", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return domain.JobStatus{}, r.pollError("http request", 0, "", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.JobStatus{}, r.pollError("read response", 0, "", err)
	}
	if resp.StatusCode >= 300 {
		return domain.JobStatus{}, r.pollError("status check", resp.StatusCode, string(raw), nil)
	}
	var decoded runwayTaskResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return domain.JobStatus{}, r.pollError("decode response", 0, "", err)
	}
	return r.normalizeStatus(decoded), nil
}

func (r *Runway) normalizeStatus(decoded runwayTaskResponse) domain.JobStatus {
	state, ok := runwayStatusMap[strings.ToUpper(strings.TrimSpace(decoded.Status))]
	if !ok {
		state = domain.JobStatePending
	}

	// Progress comes from the provider-supplied ratio when present; it is
	// never guessed from elapsed time.
	progress := 0
	if ratio, err := decoded.ProgressRatio.Float64(); err == nil && ratio > 0 {
		progress = int(math.Floor(ratio * 100))
	} else if state == domain.JobStateCompleted {
		progress = 100
	}

	message := strings.TrimSpace(decoded.ProgressText)
	if message == "" {
		message = "Processing video"
	}
	status := domain.JobStatus{
		State:     state,
		Progress:  progress,
		Message:   message,
		UpdatedAt: time.Now().UTC(),
	}

	switch state {
	case domain.JobStateCompleted:
		artifact, found := selectVideoArtifact(decoded)
		if !found {
			// The task succeeded but none of the artifacts is a
			// video; reporting completed without a URL would break
			// the completion invariant.
			status.State = domain.JobStateError
			status.ErrorDetail = "no video artifact in completed task"
			status.Message = "Generation succeeded but no video artifact was returned"
			return status
		}
		status.Progress = 100
		status.VideoURL = artifact.url
		status.Message = "Video generation completed"
		status.Metadata = map[string]any{
			"duration":   artifact.duration,
			"dimensions": artifact.dimensions,
			"frame_rate": artifact.frameRate,
		}
	case domain.JobStateFailed:
		detail := strings.TrimSpace(decoded.Error)
		if detail == "" {
			detail = "unknown error"
		}
		status.ErrorDetail = detail
		status.Message = fmt.Sprintf("Generation failed: %s", detail)
	}
	return status
}

type runwayArtifact struct {
	url        string
	frameRate  float64
	duration   float64
	dimensions []int
}

// selectVideoArtifact picks the first artifact whose metadata declares a
// frame rate, which distinguishes the video output from sibling artifacts
// such as preview stills.
func selectVideoArtifact(decoded runwayTaskResponse) (runwayArtifact, bool) {
	for _, a := range decoded.Artifacts {
		if a.Metadata.FrameRate == nil || *a.Metadata.FrameRate <= 0 || strings.TrimSpace(a.URL) == "" {
			continue
		}
		return runwayArtifact{
			url:        strings.TrimSpace(a.URL),
			frameRate:  *a.Metadata.FrameRate,
			duration:   a.Metadata.Duration,
			dimensions: a.Metadata.Dimensions,
		}, true
	}
	return runwayArtifact{}, false
}

// UploadAsset performs a single-shot multipart upload of a reference image.
// Non-image content types are rejected before any network I/O.
func (r *Runway) UploadAsset(ctx context.Context, data []byte, filename, contentType string) (*domain.Asset, error) {
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/") {
		return nil, &domain.ValidationError{Field: "content_type", Reason: "only image uploads are supported"}
	}
	if len(data) == 0 {
		return nil, &domain.ValidationError{Field: "file", Reason: "must not be empty"}
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, r.uploadError("encode multipart", 0, "", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, r.uploadError("encode multipart", 0, "", err)
	}
	if err := writer.Close(); err != nil {
		return nil, r.uploadError("encode multipart", 0, "", err)
	}

	endpoint := fmt.Sprintf("%s/v1/runwayml/assets?name=%s", r.baseURL, url.QueryEscape(filename))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, r.uploadError("build request", 0, "", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, r.uploadError("http request", 0, "", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, r.uploadError("read response", 0, "", err)
	}
	if resp.StatusCode >= 300 {
		return nil, r.uploadError("upload", resp.StatusCode, string(raw), nil)
	}
	var decoded runwayAssetPayload
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, r.uploadError("decode response", 0, "", err)
	}
	asset := assetFromPayload(decoded)
	if asset.ContentType == "" {
		asset.ContentType = contentType
	}
	if asset.Filename == "" {
		asset.Filename = filename
	}
	if asset.Size == 0 {
		asset.Size = int64(len(data))
	}
	r.logger.Debug().Str("provider", runwayProviderName).Str("asset_id", asset.AssetID).Msg("runway: asset uploaded")
	return &asset, nil
}

// ListAssets is a pure paginated read; no state is held between calls.
func (r *Runway) ListAssets(ctx context.Context, mediaType string, offset, limit int) ([]domain.Asset, error) {
	if mediaType == "" {
		mediaType = "image"
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	params := url.Values{
		"mediaType": {mediaType},
		"offset":    {strconv.Itoa(offset)},
		"limit":     {strconv.Itoa(limit)},
	}
	endpoint := fmt.Sprintf("%s/v1/runwayml/assets/?%s", r.baseURL, params.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, r.listError("build request", 0, "", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, r.listError("http request", 0, "", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, r.listError("read response", 0, "", err)
	}
	if resp.StatusCode >= 300 {
		return nil, r.listError("list", resp.StatusCode, string(raw), nil)
	}
	var decoded struct {
		Assets []runwayAssetPayload `json:"assets"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, r.listError("decode response", 0, "", err)
	}
	assets := make([]domain.Asset, 0, len(decoded.Assets))
	for _, a := range decoded.Assets {
		assets = append(assets, assetFromPayload(a))
	}
	return assets, nil
}

func assetFromPayload(p runwayAssetPayload) domain.Asset {
	return domain.Asset{
		AssetID:     strings.TrimSpace(p.AssetID),
		URL:         strings.TrimSpace(p.URL),
		ContentType: strings.TrimSpace(p.MimeType),
		Size:        p.Size,
		Filename:    strings.TrimSpace(p.Name),
		CreatedAt:   p.CreatedAt,
	}
}

func (r *Runway) submitError(op string, code int, body string, err error) error {
	return &domain.SubmissionError{ProviderError: domain.ProviderError{
		Provider:   runwayProviderName,
		Op:         op,
		StatusCode: code,
		Body:       truncate(strings.TrimSpace(body), 600),
		Err:        err,
	}}
}

func (r *Runway) pollError(op string, code int, body string, err error) error {
	return &domain.PollError{ProviderError: domain.ProviderError{
		Provider:   runwayProviderName,
		Op:         op,
		StatusCode: code,
		Body:       truncate(strings.TrimSpace(body), 600),
		Err:        err,
	}}
}

func (r *Runway) uploadError(op string, code int, body string, err error) error {
	return &domain.UploadError{ProviderError: domain.ProviderError{
		Provider:   runwayProviderName,
		Op:         op,
		StatusCode: code,
		Body:       truncate(strings.TrimSpace(body), 600),
		Err:        err,
	}}
}

func (r *Runway) listError(op string, code int, body string, err error) error {
	return &domain.ListError{ProviderError: domain.ProviderError{
		Provider:   runwayProviderName,
		Op:         op,
		StatusCode: code,
		Body:       truncate(strings.TrimSpace(body), 600),
		Err:        err,
	}}
}

var (
	_ Adapter      = (*Runway)(nil)
	_ AssetManager = (*Runway)(nil)
)
