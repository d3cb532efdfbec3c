package video

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"server/internal/domain"
)

func newTestPika(t *testing.T, transport *captureTransport) *Pika {
	t.Helper()
	client, err := NewPika(PikaOptions{
		APIKey:     "test-key",
		BaseURL:    "https://pika.unit.test",
		HTTPClient: &http.Client{Transport: transport},
	})
	if err != nil {
		t.Fatalf("NewPika: %v", err)
	}
	return client
}

func TestPikaSubmitAppliesDefaults(t *testing.T) {
	transport := newCaptureTransport()
	transport.setJSONResponse("/generate", map[string]any{"job": map[string]any{"id": "job-1"}})
	client := newTestPika(t, transport)

	jobID, err := client.Submit(context.Background(), GenerationRequest{PromptText: "a fox in the snow"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if jobID != "job-1" {
		t.Fatalf("job id = %q, want job-1", jobID)
	}

	var payload struct {
		PromptText string `json:"promptText"`
		Model      string `json:"model"`
		Options    struct {
			AspectRatio string `json:"aspectRatio"`
			FrameRate   int    `json:"frameRate"`
			Camera      struct {
				Pan    string `json:"pan"`
				Tilt   string `json:"tilt"`
				Rotate string `json:"rotate"`
				Zoom   string `json:"zoom"`
			} `json:"camera"`
			Parameters struct {
				Motion        int     `json:"motion"`
				GuidanceScale float64 `json:"guidanceScale"`
			} `json:"parameters"`
		} `json:"options"`
	}
	if err := transport.decodeLastBody(&payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.PromptText != "a fox in the snow" {
		t.Fatalf("promptText = %q", payload.PromptText)
	}
	if payload.Model != "1.5" {
		t.Fatalf("model = %q, want 1.5", payload.Model)
	}
	if payload.Options.AspectRatio != "5:2" {
		t.Fatalf("aspectRatio = %q, want 5:2", payload.Options.AspectRatio)
	}
	if payload.Options.FrameRate != 24 {
		t.Fatalf("frameRate = %d, want 24", payload.Options.FrameRate)
	}
	camera := payload.Options.Camera
	if camera.Pan != "none" || camera.Tilt != "none" || camera.Rotate != "none" || camera.Zoom != "none" {
		t.Fatalf("camera = %+v, want all none", camera)
	}
	if payload.Options.Parameters.Motion != 1 {
		t.Fatalf("motion = %d, want 1", payload.Options.Parameters.Motion)
	}
	if payload.Options.Parameters.GuidanceScale != 12 {
		t.Fatalf("guidanceScale = %v, want 12", payload.Options.Parameters.GuidanceScale)
	}
}

func TestPikaSubmitRejectsOutOfRangeSeed(t *testing.T) {
	transport := newCaptureTransport()
	client := newTestPika(t, transport)

	for _, seed := range []int64{0, -7, 4294967295} {
		s := seed
		_, err := client.Submit(context.Background(), GenerationRequest{PromptText: "prompt", Seed: &s})
		var validation *domain.ValidationError
		if !errors.As(err, &validation) {
			t.Fatalf("seed %d: err = %v, want ValidationError", seed, err)
		}
		if validation.Field != "seed" {
			t.Fatalf("seed %d: field = %q, want seed", seed, validation.Field)
		}
	}
	if transport.calls != 0 {
		t.Fatalf("transport calls = %d, want 0", transport.calls)
	}
}

func TestPikaSubmitAcceptsBoundarySeeds(t *testing.T) {
	transport := newCaptureTransport()
	transport.setJSONResponse("/generate", map[string]any{"jobId": "job-9"})
	client := newTestPika(t, transport)

	for _, seed := range []int64{1, 4294967294} {
		s := seed
		if _, err := client.Submit(context.Background(), GenerationRequest{PromptText: "prompt", Seed: &s}); err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
	}
}

func TestPikaSubmitJobIDExtractionOrder(t *testing.T) {
	cases := []struct {
		name     string
		response map[string]any
		want     string
	}{
		{
			name: "job id wins over flat jobId",
			response: map[string]any{
				"job":   map[string]any{"id": "from-job"},
				"jobId": "from-flat",
			},
			want: "from-job",
		},
		{
			name: "video jobId wins over flat jobId",
			response: map[string]any{
				"video": map[string]any{"jobId": "from-video"},
				"jobId": "from-flat",
			},
			want: "from-video",
		},
		{
			name:     "flat jobId as last resort",
			response: map[string]any{"jobId": "from-flat"},
			want:     "from-flat",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			transport := newCaptureTransport()
			transport.setJSONResponse("/generate", tc.response)
			client := newTestPika(t, transport)
			jobID, err := client.Submit(context.Background(), GenerationRequest{PromptText: "prompt"})
			if err != nil {
				t.Fatalf("Submit: %v", err)
			}
			if jobID != tc.want {
				t.Fatalf("job id = %q, want %q", jobID, tc.want)
			}
		})
	}
}

func TestPikaSubmitWithoutJobIDFails(t *testing.T) {
	transport := newCaptureTransport()
	transport.setJSONResponse("/generate", map[string]any{"ok": true})
	client := newTestPika(t, transport)

	_, err := client.Submit(context.Background(), GenerationRequest{PromptText: "prompt"})
	var submission *domain.SubmissionError
	if !errors.As(err, &submission) {
		t.Fatalf("err = %v, want SubmissionError", err)
	}
}

func TestPikaSubmitTruncatesLongPrompt(t *testing.T) {
	transport := newCaptureTransport()
	transport.setJSONResponse("/generate", map[string]any{"jobId": "job-2"})
	client := newTestPika(t, transport)

	long := strings.Repeat("x", 500)
	if _, err := client.Submit(context.Background(), GenerationRequest{PromptText: long}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	var payload struct {
		PromptText string `json:"promptText"`
	}
	if err := transport.decodeLastBody(&payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if len(payload.PromptText) != 300 {
		t.Fatalf("prompt length = %d, want 300", len(payload.PromptText))
	}
}

func TestPikaPollStatusMapping(t *testing.T) {
	cases := []struct {
		name      string
		response  map[string]any
		wantState domain.JobState
		wantURL   string
	}{
		{
			name: "finished with result url",
			response: map[string]any{
				"job":    map[string]any{"id": "j", "status": "finished"},
				"videos": []map[string]any{{"resultUrl": "https://cdn/video.mp4", "progress": 90}},
			},
			wantState: domain.JobStateCompleted,
			wantURL:   "https://cdn/video.mp4",
		},
		{
			name: "finished falls back to sharing url",
			response: map[string]any{
				"job":    map[string]any{"id": "j", "status": "finished"},
				"videos": []map[string]any{{"sharingUrl": "https://share/video.mp4"}},
			},
			wantState: domain.JobStateCompleted,
			wantURL:   "https://share/video.mp4",
		},
		{
			name: "finished without any url downgrades to error",
			response: map[string]any{
				"job":    map[string]any{"id": "j", "status": "finished"},
				"videos": []map[string]any{{"progress": 100}},
			},
			wantState: domain.JobStateError,
		},
		{
			name: "failed carries detail",
			response: map[string]any{
				"job": map[string]any{"id": "j", "status": "failed", "error": "nsfw content"},
			},
			wantState: domain.JobStateFailed,
		},
		{
			name: "unrecognized status is treated as pending",
			response: map[string]any{
				"job": map[string]any{"id": "j", "status": "warming-up"},
			},
			wantState: domain.JobStatePending,
		},
		{
			name: "processing keeps reported progress",
			response: map[string]any{
				"job":    map[string]any{"id": "j", "status": "processing"},
				"videos": []map[string]any{{"progress": 37}},
			},
			wantState: domain.JobStateProcessing,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			transport := newCaptureTransport()
			transport.setJSONResponse("/jobs/j", tc.response)
			client := newTestPika(t, transport)

			status, err := client.Poll(context.Background(), "j")
			if err != nil {
				t.Fatalf("Poll: %v", err)
			}
			if status.State != tc.wantState {
				t.Fatalf("state = %q, want %q", status.State, tc.wantState)
			}
			if status.VideoURL != tc.wantURL {
				t.Fatalf("video url = %q, want %q", status.VideoURL, tc.wantURL)
			}
			if status.State == domain.JobStateCompleted && status.Progress != 100 {
				t.Fatalf("completed progress = %d, want 100", status.Progress)
			}
			if status.State == domain.JobStateError && status.ErrorDetail == "" {
				t.Fatalf("error state without detail")
			}
			if status.State == domain.JobStateFailed && status.ErrorDetail == "" {
				t.Fatalf("failed state without detail")
			}
		})
	}
}

func TestPikaPollHTTPErrorIsPollError(t *testing.T) {
	transport := newCaptureTransport()
	transport.setErrorResponse("/jobs/j", http.StatusBadGateway, "upstream sad")
	client := newTestPika(t, transport)

	_, err := client.Poll(context.Background(), "j")
	var poll *domain.PollError
	if !errors.As(err, &poll) {
		t.Fatalf("err = %v, want PollError", err)
	}
	if poll.StatusCode != http.StatusBadGateway {
		t.Fatalf("status code = %d, want 502", poll.StatusCode)
	}
	if strings.Contains(err.Error(), "test-key") {
		t.Fatalf("error message leaks credentials: %q", err.Error())
	}
}

func TestPikaResubmitSeedsPriorVideo(t *testing.T) {
	transport := newCaptureTransport()
	transport.setJSONResponse("/generate", map[string]any{"jobId": "job-3"})
	client := newTestPika(t, transport)

	prior := GenerationRequest{PromptText: "old prompt", AspectRatio: "16:9"}
	jobID, err := client.Resubmit(context.Background(), "new prompt", "https://cdn/prior.mp4", prior)
	if err != nil {
		t.Fatalf("Resubmit: %v", err)
	}
	if jobID != "job-3" {
		t.Fatalf("job id = %q, want job-3", jobID)
	}

	var payload struct {
		PromptText string `json:"promptText"`
		Video      string `json:"video"`
		Options    struct {
			AspectRatio string `json:"aspectRatio"`
		} `json:"options"`
	}
	if err := transport.decodeLastBody(&payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.PromptText != "new prompt" {
		t.Fatalf("promptText = %q, want new prompt", payload.PromptText)
	}
	if payload.Video != "https://cdn/prior.mp4" {
		t.Fatalf("video = %q", payload.Video)
	}
	if payload.Options.AspectRatio != "16:9" {
		t.Fatalf("aspectRatio = %q, want prior option carried over", payload.Options.AspectRatio)
	}
}

func TestPikaResubmitRequiresPriorVideo(t *testing.T) {
	transport := newCaptureTransport()
	client := newTestPika(t, transport)

	_, err := client.Resubmit(context.Background(), "new prompt", "  ", GenerationRequest{})
	var validation *domain.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if transport.calls != 0 {
		t.Fatalf("transport calls = %d, want 0", transport.calls)
	}
}
