package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/desertthunder/studyflow/internal/shared"
)

const githubAPIURL = "https://api.github.com"

// GitHubScopes are requested during sign-in.
var GitHubScopes = []string{"read:user", "user:email"}

// GitHubOAuthConfig builds the OAuth2 config for the loopback sign-in flow.
func GitHubOAuthConfig(creds shared.GitHubConfig) (*oauth2.Config, error) {
	if !creds.Configured() {
		return nil, fmt.Errorf("%w: credentials.github client_id and client_secret", shared.ErrMissingCredentials)
	}
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  creds.RedirectURI,
		Scopes:       GitHubScopes,
		Endpoint:     github.Endpoint,
	}, nil
}

// GitHubUser is the subset of the GitHub user profile StudyFlow stores.
type GitHubUser struct {
	ID    string
	Login string
	Name  string
	Email string
}

// GitHubClient reads the profile of the token owner.
type GitHubClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewGitHubClient creates a client. Empty baseURL uses api.github.com.
func NewGitHubClient(baseURL string, client *http.Client) *GitHubClient {
	if baseURL == "" {
		baseURL = githubAPIURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &GitHubClient{baseURL: strings.TrimRight(baseURL, "/"), httpClient: client}
}

// User resolves accessToken to its owner. A missing public email is looked up in /user/emails.
func (g *GitHubClient) User(ctx context.Context, accessToken string) (GitHubUser, error) {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)
	client := oauth2.NewClient(ctx, src)

	var profile struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := g.get(ctx, client, "/user", &profile); err != nil {
		return GitHubUser{}, err
	}

	user := GitHubUser{
		ID:    strconv.FormatInt(profile.ID, 10),
		Login: profile.Login,
		Name:  profile.Name,
		Email: profile.Email,
	}
	if user.Name == "" {
		user.Name = profile.Login
	}

	if user.Email == "" {
		var emails []struct {
			Email    string `json:"email"`
			Primary  bool   `json:"primary"`
			Verified bool   `json:"verified"`
		}
		if err := g.get(ctx, client, "/user/emails", &emails); err == nil {
			for _, e := range emails {
				if e.Primary && e.Verified {
					user.Email = e.Email
					break
				}
			}
		}
	}
	return user, nil
}

func (g *GitHubClient) get(ctx context.Context, client *http.Client, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: github rejected token", shared.ErrAuthFailed)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: github %s status %d", shared.ErrAPIRequest, endpoint, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
