// Package publish forwards completed video assets to a distribution
// platform. The sink is only ever invoked after a completed job status has
// been observed.
package publish

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

	"server/internal/infra"
)

// Visibility enumerates the publish privacy settings.
type Visibility string

const (
	VisibilityPrivate  Visibility = "private"
	VisibilityUnlisted Visibility = "unlisted"
	VisibilityPublic   Visibility = "public"
)

// NormalizeVisibility sanitizes free-form input, defaulting to private.
func NormalizeVisibility(v string) Visibility {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case string(VisibilityUnlisted):
		return VisibilityUnlisted
	case string(VisibilityPublic):
		return VisibilityPublic
	default:
		return VisibilityPrivate
	}
}

// Sink accepts a completed video URL for distribution and returns the
// published URL.
type Sink interface {
	Publish(ctx context.Context, videoURL string, visibility Visibility) (string, error)
}

// YouTubeOptions configures the YouTube upload sink.
type YouTubeOptions struct {
	UploadURL      string
	AccessToken    string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// YouTube forwards completed videos to a YouTube upload relay service.
type YouTube struct {
	uploadURL   string
	accessToken string
	httpClient  *http.Client
	logger      *infra.Logger
}

func NewYouTube(opts YouTubeOptions) (*YouTube, error) {
	uploadURL := strings.TrimSpace(opts.UploadURL)
	if uploadURL == "" {
		return nil, errors.New("youtube: upload url is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &YouTube{
		uploadURL:   uploadURL,
		accessToken: strings.TrimSpace(opts.AccessToken),
		httpClient:  httpClient,
		logger:      logger,
	}, nil
}

type uploadRequest struct {
	VideoURL      string `json:"videoUrl"`
	PrivacyStatus string `json:"privacyStatus"`
}

type uploadResponse struct {
	URL string `json:"url"`
}

// Publish uploads the video at videoURL and returns the watch URL.
func (y *YouTube) Publish(ctx context.Context, videoURL string, visibility Visibility) (string, error) {
	if strings.TrimSpace(videoURL) == "" {
		return "", errors.New("youtube: video url is required")
	}
	body, err := json.Marshal(uploadRequest{VideoURL: videoURL, PrivacyStatus: string(visibility)})
	if err != nil {
		return "", fmt.Errorf("youtube: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, y.uploadURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("youtube: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if y.accessToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+y.accessToken)
	}
	resp, err := y.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("youtube: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("youtube: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("youtube: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var decoded uploadResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("youtube: decode response: %w", err)
	}
	published := strings.TrimSpace(decoded.URL)
	if published == "" {
		return "", errors.New("youtube: empty published url")
	}
	y.logger.Info().Str("published_url", published).Str("visibility", string(visibility)).Msg("youtube: video published")
	return published, nil
}

var _ Sink = (*YouTube)(nil)
