package video

import (
	"context"
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"

	"server/internal/domain"
)

func newTestRunway(t *testing.T, transport *captureTransport) *Runway {
	t.Helper()
	client, err := NewRunway(RunwayOptions{
		APIKey:     "test-key",
		BaseURL:    "https://runway.unit.test",
		HTTPClient: &http.Client{Transport: transport},
	})
	if err != nil {
		t.Fatalf("NewRunway: %v", err)
	}
	return client
}

func TestRunwaySubmitPayload(t *testing.T) {
	transport := newCaptureTransport()
	transport.setJSONResponse("/gen3turbo/create", map[string]any{"taskId": "task-1"})
	client := newTestRunway(t, transport)

	horizontal, vertical := 50, -50
	taskID, err := client.Submit(context.Background(), GenerationRequest{
		PromptText:      "waves at dusk",
		DurationSeconds: 7,
		ExploreMode:     true,
		FirstFrameAsset: "asset-a",
		MotionDeltas:    MotionDeltas{Horizontal: &horizontal, Vertical: &vertical},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if taskID != "task-1" {
		t.Fatalf("task id = %q, want task-1", taskID)
	}

	var payload map[string]any
	if err := transport.decodeLastBody(&payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload["text_prompt"] != "waves at dusk" {
		t.Fatalf("text_prompt = %v", payload["text_prompt"])
	}
	if payload["aspect_ratio"] != "landscape" {
		t.Fatalf("aspect_ratio = %v, want landscape", payload["aspect_ratio"])
	}
	// 7 is outside the accepted duration set; it coerces to the default.
	if payload["seconds"] != float64(5) {
		t.Fatalf("seconds = %v, want 5", payload["seconds"])
	}
	if payload["exploreMode"] != true {
		t.Fatalf("exploreMode = %v, want true", payload["exploreMode"])
	}
	if payload["firstImage_assetId"] != "asset-a" {
		t.Fatalf("firstImage_assetId = %v", payload["firstImage_assetId"])
	}
	if _, present := payload["lastImage_assetId"]; present {
		t.Fatalf("lastImage_assetId should be omitted when unset")
	}
	if payload["horizontal"] != float64(10) {
		t.Fatalf("horizontal = %v, want clamp to 10", payload["horizontal"])
	}
	if payload["vertical"] != float64(-10) {
		t.Fatalf("vertical = %v, want clamp to -10", payload["vertical"])
	}
	if _, present := payload["roll"]; present {
		t.Fatalf("roll should be omitted when unset")
	}
}

func TestRunwaySubmitAcceptsTenSeconds(t *testing.T) {
	transport := newCaptureTransport()
	transport.setJSONResponse("/gen3turbo/create", map[string]any{"taskId": "task-2"})
	client := newTestRunway(t, transport)

	if _, err := client.Submit(context.Background(), GenerationRequest{PromptText: "p", DurationSeconds: 10}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	var payload map[string]any
	if err := transport.decodeLastBody(&payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload["seconds"] != float64(10) {
		t.Fatalf("seconds = %v, want 10", payload["seconds"])
	}
}

func TestRunwaySubmitRejectsOutOfRangeSeed(t *testing.T) {
	transport := newCaptureTransport()
	client := newTestRunway(t, transport)

	seed := int64(4294967295)
	_, err := client.Submit(context.Background(), GenerationRequest{PromptText: "p", Seed: &seed})
	var validation *domain.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if transport.calls != 0 {
		t.Fatalf("transport calls = %d, want 0", transport.calls)
	}
}

func TestRunwayPollProcessingProgress(t *testing.T) {
	transport := newCaptureTransport()
	transport.setJSONResponse("/tasks/task-1", map[string]any{
		"status":        "PROCESSING",
		"progressRatio": 0.42,
		"progressText":  "Rendering frames",
	})
	client := newTestRunway(t, transport)

	status, err := client.Poll(context.Background(), "task-1")
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if status.State != domain.JobStateProcessing {
		t.Fatalf("state = %q, want processing", status.State)
	}
	if status.Progress != 42 {
		t.Fatalf("progress = %d, want 42", status.Progress)
	}
	if status.Message != "Rendering frames" {
		t.Fatalf("message = %q", status.Message)
	}
}

func TestRunwayPollSelectsVideoArtifact(t *testing.T) {
	transport := newCaptureTransport()
	transport.setJSONResponse("/tasks/task-1", map[string]any{
		"status": "SUCCEEDED",
		"artifacts": []map[string]any{
			{
				"url":      "https://cdn/poster.jpg",
				"metadata": map[string]any{"dimensions": []int{1280, 768}},
			},
			{
				"url": "https://cdn/output.mp4",
				"metadata": map[string]any{
					"frameRate":  24,
					"duration":   5.0,
					"dimensions": []int{1280, 768},
				},
			},
		},
	})
	client := newTestRunway(t, transport)

	status, err := client.Poll(context.Background(), "task-1")
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if status.State != domain.JobStateCompleted {
		t.Fatalf("state = %q, want completed", status.State)
	}
	if status.VideoURL != "https://cdn/output.mp4" {
		t.Fatalf("video url = %q, want the artifact with a frame rate", status.VideoURL)
	}
	if status.Progress != 100 {
		t.Fatalf("progress = %d, want 100", status.Progress)
	}
	if status.Metadata["frame_rate"] != 24.0 {
		t.Fatalf("metadata frame_rate = %v, want 24", status.Metadata["frame_rate"])
	}
}

func TestRunwayPollCompletedWithoutVideoArtifact(t *testing.T) {
	transport := newCaptureTransport()
	transport.setJSONResponse("/tasks/task-1", map[string]any{
		"status": "SUCCEEDED",
		"artifacts": []map[string]any{
			{"url": "https://cdn/poster.jpg", "metadata": map[string]any{}},
		},
	})
	client := newTestRunway(t, transport)

	status, err := client.Poll(context.Background(), "task-1")
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if status.State != domain.JobStateError {
		t.Fatalf("state = %q, want error downgrade", status.State)
	}
	if status.VideoURL != "" {
		t.Fatalf("video url = %q, want empty", status.VideoURL)
	}
	if status.ErrorDetail == "" {
		t.Fatalf("expected error detail")
	}
}

func TestRunwayPollStatusMapping(t *testing.T) {
	cases := []struct {
		provider string
		want     domain.JobState
	}{
		{"PENDING", domain.JobStatePending},
		{"THROTTLED", domain.JobStatePending},
		{"RUNNING", domain.JobStateProcessing},
		{"FAILED", domain.JobStateFailed},
		{"SOMETHING_NEW", domain.JobStatePending},
	}
	for _, tc := range cases {
		transport := newCaptureTransport()
		transport.setJSONResponse("/tasks/t", map[string]any{"status": tc.provider, "error": "boom"})
		client := newTestRunway(t, transport)

		status, err := client.Poll(context.Background(), "t")
		if err != nil {
			t.Fatalf("%s: Poll: %v", tc.provider, err)
		}
		if status.State != tc.want {
			t.Fatalf("%s: state = %q, want %q", tc.provider, status.State, tc.want)
		}
	}
}

func TestRunwayUploadRejectsNonImage(t *testing.T) {
	transport := newCaptureTransport()
	client := newTestRunway(t, transport)

	_, err := client.UploadAsset(context.Background(), []byte("data"), "clip.mp4", "video/mp4")
	var validation *domain.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if transport.calls != 0 {
		t.Fatalf("transport calls = %d, want 0", transport.calls)
	}
}

func TestRunwayUploadAsset(t *testing.T) {
	transport := newCaptureTransport()
	transport.setJSONResponse("/v1/runwayml/assets", map[string]any{
		"assetId":  "asset-9",
		"url":      "https://cdn/asset-9.png",
		"mimeType": "image/png",
		"size":     4,
		"name":     "frame.png",
	})
	client := newTestRunway(t, transport)

	asset, err := client.UploadAsset(context.Background(), []byte{1, 2, 3, 4}, "frame.png", "image/png")
	if err != nil {
		t.Fatalf("UploadAsset: %v", err)
	}
	if asset.AssetID != "asset-9" {
		t.Fatalf("asset id = %q, want asset-9", asset.AssetID)
	}
	if asset.URL != "https://cdn/asset-9.png" {
		t.Fatalf("url = %q", asset.URL)
	}
	if transport.lastQuery.Get("name") != "frame.png" {
		t.Fatalf("name query = %q, want frame.png", transport.lastQuery.Get("name"))
	}

	// The body must be a well-formed multipart form with one "file" part.
	_, params, err := mime.ParseMediaType("multipart/form-data; boundary=" + boundaryFromBody(t, transport.lastBody))
	if err != nil {
		t.Fatalf("parse media type: %v", err)
	}
	reader := multipart.NewReader(strings.NewReader(string(transport.lastBody)), params["boundary"])
	part, err := reader.NextPart()
	if err != nil {
		t.Fatalf("read multipart: %v", err)
	}
	if part.FormName() != "file" {
		t.Fatalf("form name = %q, want file", part.FormName())
	}
	if part.FileName() != "frame.png" {
		t.Fatalf("file name = %q, want frame.png", part.FileName())
	}
}

func boundaryFromBody(t *testing.T, body []byte) string {
	t.Helper()
	line, _, found := strings.Cut(string(body), "\r\n")
	if !found || !strings.HasPrefix(line, "--") {
		t.Fatalf("multipart body missing boundary line")
	}
	return strings.TrimPrefix(line, "--")
}

func TestRunwayListAssets(t *testing.T) {
	transport := newCaptureTransport()
	transport.setJSONResponse("/v1/runwayml/assets/", map[string]any{
		"assets": []map[string]any{
			{"assetId": "a-1", "url": "https://cdn/a-1.png", "mimeType": "image/png", "name": "one.png"},
			{"assetId": "a-2", "url": "https://cdn/a-2.png", "mimeType": "image/png", "name": "two.png"},
		},
	})
	client := newTestRunway(t, transport)

	assets, err := client.ListAssets(context.Background(), "", 10, 0)
	if err != nil {
		t.Fatalf("ListAssets: %v", err)
	}
	if len(assets) != 2 {
		t.Fatalf("len(assets) = %d, want 2", len(assets))
	}
	if assets[0].AssetID != "a-1" || assets[1].AssetID != "a-2" {
		t.Fatalf("assets = %+v", assets)
	}
	if transport.lastQuery.Get("mediaType") != "image" {
		t.Fatalf("mediaType = %q, want image default", transport.lastQuery.Get("mediaType"))
	}
	if transport.lastQuery.Get("offset") != "10" {
		t.Fatalf("offset = %q, want 10", transport.lastQuery.Get("offset"))
	}
	if transport.lastQuery.Get("limit") != "50" {
		t.Fatalf("limit = %q, want 50 default", transport.lastQuery.Get("limit"))
	}
}

func TestRunwaySubmitHTTPErrorIsSubmissionError(t *testing.T) {
	transport := newCaptureTransport()
	transport.setErrorResponse("/gen3turbo/create", http.StatusTooManyRequests, "slow down")
	client := newTestRunway(t, transport)

	_, err := client.Submit(context.Background(), GenerationRequest{PromptText: "p"})
	var submission *domain.SubmissionError
	if !errors.As(err, &submission) {
		t.Fatalf("err = %v, want SubmissionError", err)
	}
	if submission.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status code = %d, want 429", submission.StatusCode)
	}
	if strings.Contains(err.Error(), "test-key") {
		t.Fatalf("error message leaks credentials: %q", err.Error())
	}
}
