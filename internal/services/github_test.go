package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/studyflow/internal/shared"
)

func TestGitHubOAuthConfig(t *testing.T) {
	if _, err := GitHubOAuthConfig(shared.GitHubConfig{ClientID: "your_github_client_id", ClientSecret: "x"}); !errors.Is(err, shared.ErrMissingCredentials) {
		t.Errorf("expected ErrMissingCredentials for placeholder, got %v", err)
	}

	cfg, err := GitHubOAuthConfig(shared.GitHubConfig{ClientID: "id", ClientSecret: "secret", RedirectURI: "http://localhost:8765/callback"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Endpoint.AuthURL != "https://github.com/login/oauth/authorize" {
		t.Errorf("unexpected auth URL %q", cfg.Endpoint.AuthURL)
	}
	if len(cfg.Scopes) != 2 || cfg.RedirectURL != "http://localhost:8765/callback" {
		t.Errorf("unexpected config %#v", cfg)
	}
}

func TestGitHubClient(t *testing.T) {
	newServer := func(t *testing.T, publicEmail string) *httptest.Server {
		mux := http.NewServeMux()
		mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer gho_good" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"id": 583231, "login": "octocat", "name": "", "email": publicEmail})
		})
		mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode([]map[string]any{
				{"email": "old@example.com", "primary": false, "verified": true},
				{"email": "octo@example.com", "primary": true, "verified": true},
			})
		})
		return httptest.NewServer(mux)
	}

	t.Run("public email", func(t *testing.T) {
		server := newServer(t, "public@example.com")
		defer server.Close()

		u, err := NewGitHubClient(server.URL, server.Client()).User(context.Background(), "gho_good")
		if err != nil {
			t.Fatalf("User failed: %v", err)
		}
		if u.ID != "583231" || u.Login != "octocat" || u.Name != "octocat" || u.Email != "public@example.com" {
			t.Errorf("unexpected user %#v", u)
		}
	})

	t.Run("primary email lookup", func(t *testing.T) {
		server := newServer(t, "")
		defer server.Close()

		u, err := NewGitHubClient(server.URL, server.Client()).User(context.Background(), "gho_good")
		if err != nil {
			t.Fatalf("User failed: %v", err)
		}
		if u.Email != "octo@example.com" {
			t.Errorf("expected primary email, got %q", u.Email)
		}
	})

	t.Run("bad token", func(t *testing.T) {
		server := newServer(t, "")
		defer server.Close()

		_, err := NewGitHubClient(server.URL, server.Client()).User(context.Background(), "gho_bad")
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})
}
