package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/desertthunder/studyflow/internal/models"
	"github.com/desertthunder/studyflow/internal/shared"
)

const defaultBackendURL = "http://127.0.0.1:3000"

// BackendService is the HTTP client for the StudyFlow backend. It implements [store.Remote].
//
// Requests carry the session token as an OAuth2 bearer token. Error statuses map to sentinels:
//   - 401 : [shared.ErrNotAuthenticated]
//   - 404 : [shared.ErrNotFound]
//   - 409 : [shared.ErrStaleWrite]
//   - 410 : [shared.ErrGone]
//   - 502, 503, 504 : [shared.ErrServiceUnavailable]
//   - anything else : [shared.ErrAPIRequest]
type BackendService struct {
	baseURL    string
	httpClient *http.Client
}

// NewBackendService creates a client for baseURL. An empty token sends unauthenticated requests.
func NewBackendService(baseURL, token string, timeout time.Duration) *BackendService {
	if baseURL == "" {
		baseURL = defaultBackendURL
	}

	client := &http.Client{Timeout: timeout}
	if token != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
		client = &http.Client{Timeout: timeout, Transport: &oauth2.Transport{Source: src}}
	}

	return &BackendService{baseURL: strings.TrimRight(baseURL, "/"), httpClient: client}
}

// NewBackendServiceWithClient uses client as is, e.g. one built by [oauth2.NewClient].
func NewBackendServiceWithClient(baseURL string, client *http.Client) *BackendService {
	if baseURL == "" {
		baseURL = defaultBackendURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &BackendService{baseURL: strings.TrimRight(baseURL, "/"), httpClient: client}
}

func (b *BackendService) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func statusError(resp *http.Response) error {
	var sentinel error
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		sentinel = shared.ErrNotAuthenticated
	case http.StatusNotFound:
		sentinel = shared.ErrNotFound
	case http.StatusConflict:
		sentinel = shared.ErrStaleWrite
	case http.StatusGone:
		sentinel = shared.ErrGone
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		sentinel = shared.ErrServiceUnavailable
	default:
		sentinel = shared.ErrAPIRequest
	}

	var errResp models.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
		return fmt.Errorf("%w (status %d): %s", sentinel, resp.StatusCode, errResp.Error)
	}
	return fmt.Errorf("%w: status %d", sentinel, resp.StatusCode)
}

// Health calls GET /health.
func (b *BackendService) Health(ctx context.Context) error {
	return b.doRequest(ctx, http.MethodGet, "/health", nil, nil)
}

// FetchRoadmaps calls GET /roadmaps.
func (b *BackendService) FetchRoadmaps(ctx context.Context) ([]models.Roadmap, error) {
	var roadmaps []models.Roadmap
	if err := b.doRequest(ctx, http.MethodGet, "/roadmaps", nil, &roadmaps); err != nil {
		return nil, err
	}
	return roadmaps, nil
}

// UpsertRoadmap calls PUT /roadmaps/:id.
func (b *BackendService) UpsertRoadmap(ctx context.Context, r models.Roadmap) error {
	return b.doRequest(ctx, http.MethodPut, "/roadmaps/"+url.PathEscape(r.ID), r, nil)
}

// DeleteRoadmap calls DELETE /roadmaps/:id.
func (b *BackendService) DeleteRoadmap(ctx context.Context, id string) error {
	return b.doRequest(ctx, http.MethodDelete, "/roadmaps/"+url.PathEscape(id), nil, nil)
}

// FetchTasks calls GET /tasks.
func (b *BackendService) FetchTasks(ctx context.Context) ([]models.Task, error) {
	var tasks []models.Task
	if err := b.doRequest(ctx, http.MethodGet, "/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// UpsertTask calls PUT /tasks/:id.
func (b *BackendService) UpsertTask(ctx context.Context, t models.Task) error {
	return b.doRequest(ctx, http.MethodPut, "/tasks/"+url.PathEscape(t.ID), t, nil)
}

// DeleteTask calls DELETE /tasks/:id.
func (b *BackendService) DeleteTask(ctx context.Context, id string) error {
	return b.doRequest(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil)
}

// ExchangeGitHubToken trades a GitHub access token for a backend session.
func (b *BackendService) ExchangeGitHubToken(ctx context.Context, accessToken string) (models.AuthResponse, error) {
	var out models.AuthResponse
	err := b.doRequest(ctx, http.MethodPost, "/auth/github", map[string]string{"access_token": accessToken}, &out)
	return out, err
}

// RequestMagicLink asks the backend to send a sign-in link to email.
func (b *BackendService) RequestMagicLink(ctx context.Context, email string) error {
	return b.doRequest(ctx, http.MethodPost, "/auth/magic-link", map[string]string{"email": email}, nil)
}

// VerifyMagicLink redeems a magic-link token.
func (b *BackendService) VerifyMagicLink(ctx context.Context, email, token string) (models.AuthResponse, error) {
	var out models.AuthResponse
	body := map[string]string{"email": email, "token": token}
	err := b.doRequest(ctx, http.MethodPost, "/auth/magic-link/verify", body, &out)
	return out, err
}

// Me returns the user for the current token.
func (b *BackendService) Me(ctx context.Context) (models.UserInfo, error) {
	var out models.UserInfo
	err := b.doRequest(ctx, http.MethodGet, "/auth/me", nil, &out)
	return out, err
}
