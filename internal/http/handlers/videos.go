package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
	"server/internal/providers/video"
)

type cameraDTO struct {
	Pan    string `json:"pan"`
	Tilt   string `json:"tilt"`
	Rotate string `json:"rotate"`
	Zoom   string `json:"zoom"`
}

type parametersDTO struct {
	Motion         int     `json:"motion"`
	GuidanceScale  float64 `json:"guidanceScale"`
	NegativePrompt string  `json:"negativePrompt"`
	Seed           *int64  `json:"seed"`
}

type optionsDTO struct {
	AspectRatio       string         `json:"aspectRatio"`
	FrameRate         int            `json:"frameRate"`
	Camera            *cameraDTO     `json:"camera"`
	Parameters        *parametersDTO `json:"parameters"`
	Extend            bool           `json:"extend"`
	Seconds           int            `json:"seconds"`
	ExploreMode       bool           `json:"exploreMode"`
	FirstImageAssetID string         `json:"firstImage_assetId"`
	LastImageAssetID  string         `json:"lastImage_assetId"`
	Horizontal        *int           `json:"horizontal"`
	Vertical          *int           `json:"vertical"`
	Roll              *int           `json:"roll"`
	Zoom              *int           `json:"zoom"`
	Pan               *int           `json:"pan"`
	Tilt              *int           `json:"tilt"`
}

type generateVideoRequest struct {
	Provider   string      `json:"provider"`
	PromptText string      `json:"promptText"`
	Model      string      `json:"model"`
	Pikaffect  string      `json:"pikaffect"`
	Options    *optionsDTO `json:"options"`
}

type repromptVideoRequest struct {
	Provider   string      `json:"provider"`
	PromptText string      `json:"promptText"`
	Video      string      `json:"video"`
	Options    *optionsDTO `json:"options"`
}

func (r generateVideoRequest) toGenerationRequest() video.GenerationRequest {
	req := video.GenerationRequest{
		PromptText:   r.PromptText,
		StyleEffect:  r.Pikaffect,
		ModelVersion: r.Model,
	}
	applyOptions(&req, r.Options)
	return req
}

func applyOptions(req *video.GenerationRequest, opts *optionsDTO) {
	if opts == nil {
		return
	}
	req.AspectRatio = opts.AspectRatio
	req.FrameRate = opts.FrameRate
	if opts.Camera != nil {
		req.Camera = video.Camera{
			Pan:    video.NormalizeCameraMove(opts.Camera.Pan),
			Tilt:   video.NormalizeCameraMove(opts.Camera.Tilt),
			Rotate: video.NormalizeCameraMove(opts.Camera.Rotate),
			Zoom:   video.NormalizeCameraMove(opts.Camera.Zoom),
		}
	}
	if opts.Parameters != nil {
		req.Motion = opts.Parameters.Motion
		req.GuidanceScale = opts.Parameters.GuidanceScale
		req.NegativePrompt = opts.Parameters.NegativePrompt
		req.Seed = opts.Parameters.Seed
	}
	req.Extend = opts.Extend
	req.DurationSeconds = opts.Seconds
	req.ExploreMode = opts.ExploreMode
	req.FirstFrameAsset = opts.FirstImageAssetID
	req.LastFrameAsset = opts.LastImageAssetID
	req.MotionDeltas = video.MotionDeltas{
		Horizontal: opts.Horizontal,
		Vertical:   opts.Vertical,
		Roll:       opts.Roll,
		Zoom:       opts.Zoom,
		Pan:        opts.Pan,
		Tilt:       opts.Tilt,
	}
}

// VideoGenerate starts a generation job and returns the opaque handle id the
// caller polls with.
func (a *App) VideoGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	provider := strings.TrimSpace(req.Provider)
	if provider == "" {
		provider = "pika"
	}
	handle, err := a.Orchestrator.SubmitGeneration(r.Context(), provider, req.toGenerationRequest())
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.json(w, http.StatusAccepted, map[string]any{
		"status":   "success",
		"job_id":   handle.ID,
		"provider": handle.Provider,
		"message":  "Video generation started",
	})
}

// VideoStatus reports the normalized status for a handle.
func (a *App) VideoStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	status, err := a.Orchestrator.GetStatus(r.Context(), jobID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.json(w, http.StatusOK, statusResponse(jobID, status))
}

// VideoReprompt starts a new job from a prior job's output video plus a new
// prompt.
func (a *App) VideoReprompt(w http.ResponseWriter, r *http.Request) {
	var req repromptVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if strings.TrimSpace(req.PromptText) == "" || strings.TrimSpace(req.Video) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "promptText and video are required")
		return
	}
	provider := strings.TrimSpace(req.Provider)
	if provider == "" {
		provider = "pika"
	}
	var prior video.GenerationRequest
	prior.PromptText = req.PromptText
	applyOptions(&prior, req.Options)
	handle, err := a.Orchestrator.Resubmit(r.Context(), provider, req.PromptText, req.Video, prior)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.json(w, http.StatusAccepted, map[string]any{
		"status":   "success",
		"job_id":   handle.ID,
		"provider": handle.Provider,
		"message":  "Video regeneration started",
	})
}

func statusResponse(jobID string, status domain.JobStatus) map[string]any {
	resp := map[string]any{
		"status":   string(status.State),
		"job_id":   jobID,
		"progress": status.Progress,
		"message":  status.Message,
	}
	if status.VideoURL != "" {
		resp["video_url"] = status.VideoURL
	}
	if status.PosterURL != "" {
		resp["poster_url"] = status.PosterURL
	}
	if len(status.Metadata) > 0 {
		resp["metadata"] = status.Metadata
	}
	if status.ErrorDetail != "" {
		resp["error_detail"] = status.ErrorDetail
	}
	return resp
}
