package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/studyflow/internal/models"
	"github.com/desertthunder/studyflow/internal/shared"
)

const (
	defaultOEmbedURL = "https://noembed.com/embed"

	// FallbackTitle is used when the lookup itself fails.
	FallbackTitle = "YouTube Video"
	// UntitledTitle is used when the lookup succeeds without a title.
	UntitledTitle = "Untitled Video"
)

type oembedResponse struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
	Error        string `json:"error"`
}

// OEmbedService implements [VideoLookup] against a noembed compatible endpoint.
//
// Lookups never fail on remote errors: a video is always returned, titled [FallbackTitle]
// when the endpoint is unreachable. Only context cancellation is reported.
type OEmbedService struct {
	endpoint     string
	thumbnailURL string
	httpClient   *http.Client
	logger       *log.Logger
}

// NewOEmbedService creates a lookup client from cfg. Empty fields use the public defaults.
func NewOEmbedService(cfg shared.YouTubeConfig, client *http.Client, logger *log.Logger) *OEmbedService {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	endpoint := cfg.OEmbedURL
	if endpoint == "" {
		endpoint = defaultOEmbedURL
	}
	thumb := cfg.ThumbnailURL
	if thumb == "" {
		thumb = thumbnailURLTemplate
	}
	return &OEmbedService{endpoint: endpoint, thumbnailURL: thumb, httpClient: client, logger: logger}
}

// Lookup fetches the title for youtubeID and builds a new video.
func (o *OEmbedService) Lookup(ctx context.Context, youtubeID string) (models.Video, error) {
	v := models.NewVideo(youtubeID, FallbackTitle)
	v.Thumbnail = fmt.Sprintf(o.thumbnailURL, youtubeID)

	title, err := o.fetchTitle(ctx, youtubeID)
	if err != nil {
		if ctx.Err() != nil {
			return models.Video{}, ctx.Err()
		}
		o.logger.Warn("video lookup failed, using fallback title", "id", youtubeID, "err", err)
		return v, nil
	}

	if strings.TrimSpace(title) == "" {
		title = UntitledTitle
	}
	v.Title = title
	return v, nil
}

func (o *OEmbedService) fetchTitle(ctx context.Context, youtubeID string) (string, error) {
	q := url.Values{"url": {WatchURL(youtubeID)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: oembed status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	var body oembedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if body.Error != "" {
		o.logger.Debug("oembed reported error", "id", youtubeID, "error", body.Error)
	}
	return body.Title, nil
}
