package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/desertthunder/studyflow/internal/models"
	"github.com/desertthunder/studyflow/internal/services"
	"github.com/desertthunder/studyflow/internal/shared"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeGitHub struct {
	users map[string]services.GitHubUser
}

func (f fakeGitHub) User(_ context.Context, token string) (services.GitHubUser, error) {
	u, ok := f.users[token]
	if !ok {
		return services.GitHubUser{}, fmt.Errorf("%w: bad token", shared.ErrAuthFailed)
	}
	return u, nil
}

type captureMailer struct {
	mu    sync.Mutex
	links map[string]string
}

func (m *captureMailer) SendMagicLink(_ context.Context, email, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[email] = link
	return nil
}

func (m *captureMailer) token(t *testing.T, email string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()

	u, err := url.Parse(m.links[email])
	if err != nil {
		t.Fatalf("bad link: %v", err)
	}
	return u.Query().Get("token")
}

type testAPI struct {
	api    *API
	mailer *captureMailer
}

func setupAPI(t *testing.T) *testAPI {
	t.Helper()

	db, err := shared.NewDatabase("", ":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	mailer := &captureMailer{links: map[string]string{}}
	api, err := NewAPI(APIOptions{
		DB:     db,
		Config: shared.ServerConfig{Host: "127.0.0.1", Port: 3000, JWTSecret: "test-secret"},
		GitHub: fakeGitHub{users: map[string]services.GitHubUser{
			"gho_alice": {ID: "1", Login: "alice", Email: "alice@example.com"},
			"gho_bob":   {ID: "2", Login: "bob", Name: "Bob"},
		}},
		Mailer:         mailer,
		Logger:         shared.NewLogger(io.Discard),
		MagicLinkLimit: rate.Inf,
	})
	if err != nil {
		t.Fatalf("NewAPI failed: %v", err)
	}
	return &testAPI{api: api, mailer: mailer}
}

func (ta *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	ta.api.Handler().ServeHTTP(rec, req)
	return rec
}

func (ta *testAPI) signIn(t *testing.T, githubToken string) models.AuthResponse {
	t.Helper()

	rec := ta.do(t, http.MethodPost, "/auth/github", "", map[string]string{"access_token": githubToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("sign in failed: %d %s", rec.Code, rec.Body.String())
	}

	var resp models.AuthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode auth response: %v", err)
	}
	return resp
}

func TestNewAPI(t *testing.T) {
	if _, err := NewAPI(APIOptions{Config: shared.ServerConfig{JWTSecret: "x"}}); err == nil {
		t.Error("expected error without database")
	}

	db, err := shared.NewDatabase("", ":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	defer db.Close()

	if _, err := NewAPI(APIOptions{DB: db}); err == nil {
		t.Error("expected error without jwt secret")
	}
}

func TestHealth(t *testing.T) {
	ta := setupAPI(t)

	rec := ta.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestGitHubSignIn(t *testing.T) {
	ta := setupAPI(t)

	t.Run("issues session", func(t *testing.T) {
		resp := ta.signIn(t, "gho_alice")
		if resp.Token == "" {
			t.Fatal("expected token")
		}
		if resp.User.Email != "alice@example.com" {
			t.Errorf("expected alice's email, got %q", resp.User.Email)
		}
		if resp.User.Provider != models.ProviderGitHub {
			t.Errorf("expected github provider, got %q", resp.User.Provider)
		}

		rec := ta.do(t, http.MethodGet, "/auth/me", resp.Token, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var me models.UserInfo
		if err := json.Unmarshal(rec.Body.Bytes(), &me); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		if me.ID != resp.User.ID {
			t.Errorf("expected %s, got %s", resp.User.ID, me.ID)
		}
	})

	t.Run("same user on second sign in", func(t *testing.T) {
		first := ta.signIn(t, "gho_bob")
		second := ta.signIn(t, "gho_bob")
		if first.User.ID != second.User.ID {
			t.Errorf("expected stable user id, got %s and %s", first.User.ID, second.User.ID)
		}
		if first.User.Name != "Bob" {
			t.Errorf("expected name Bob, got %q", first.User.Name)
		}
	})

	t.Run("rejects", func(t *testing.T) {
		tests := []struct {
			name string
			body any
			want int
		}{
			{"unknown token", map[string]string{"access_token": "nope"}, http.StatusUnauthorized},
			{"missing token", map[string]string{}, http.StatusBadRequest},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rec := ta.do(t, http.MethodPost, "/auth/github", "", tt.body)
				if rec.Code != tt.want {
					t.Errorf("expected %d, got %d", tt.want, rec.Code)
				}
			})
		}
	})
}

func TestMagicLinkSignIn(t *testing.T) {
	ta := setupAPI(t)

	rec := ta.do(t, http.MethodPost, "/auth/magic-link", "", map[string]string{"email": "Me@Example.com"})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	token := ta.mailer.token(t, "me@example.com")
	if token == "" {
		t.Fatal("expected a token in the mailed link")
	}

	rec = ta.do(t, http.MethodPost, "/auth/magic-link/verify", "", map[string]string{"email": "me@example.com", "token": token})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp models.AuthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if resp.User.Provider != models.ProviderEmail || resp.User.Email != "me@example.com" {
		t.Errorf("unexpected user %+v", resp.User)
	}

	rec = ta.do(t, http.MethodPost, "/auth/magic-link/verify", "", map[string]string{"email": "me@example.com", "token": token})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected reused link to be rejected, got %d", rec.Code)
	}

	t.Run("GET verify", func(t *testing.T) {
		rec := ta.do(t, http.MethodPost, "/auth/magic-link", "", map[string]string{"email": "me@example.com"})
		if rec.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d", rec.Code)
		}

		link, err := url.Parse(ta.mailer.links["me@example.com"])
		if err != nil {
			t.Fatalf("bad link: %v", err)
		}
		if !strings.HasPrefix(link.String(), "http://127.0.0.1:3000/auth/magic-link/verify?") {
			t.Errorf("unexpected link %s", link)
		}

		rec = ta.do(t, http.MethodGet, link.RequestURI(), "", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("invalid email", func(t *testing.T) {
		rec := ta.do(t, http.MethodPost, "/auth/magic-link", "", map[string]string{"email": "nope"})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

func TestMagicLinkRateLimit(t *testing.T) {
	ta := setupAPI(t)
	ta.api.limiter = rate.NewLimiter(rate.Every(time.Hour), 1)

	body := map[string]string{"email": "me@example.com"}
	if rec := ta.do(t, http.MethodPost, "/auth/magic-link", "", body); rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if rec := ta.do(t, http.MethodPost, "/auth/magic-link", "", body); rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", rec.Code)
	}
}

func TestRequireJWT(t *testing.T) {
	ta := setupAPI(t)

	expired, _, err := SignJWT([]byte("test-secret"), "u1", "", time.Hour, time.Now().Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("SignJWT failed: %v", err)
	}
	forged, _, err := SignJWT([]byte("other-secret"), "u1", "", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("SignJWT failed: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"garbage", "not-a-jwt"},
		{"expired", expired},
		{"wrong secret", forged},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ta.do(t, http.MethodGet, "/roadmaps", tt.token, nil)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestRoadmapEndpoints(t *testing.T) {
	ta := setupAPI(t)
	alice := ta.signIn(t, "gho_alice").Token
	bob := ta.signIn(t, "gho_bob").Token

	rm := models.NewRoadmap("Go", "")
	rm.Videos = append(rm.Videos, models.NewVideo("dQw4w9WgXcQ", "Intro"))
	rm.Version = 1

	rec := ta.do(t, http.MethodPut, "/roadmaps/"+rm.ID, alice, rm)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	t.Run("list is per user", func(t *testing.T) {
		var list []models.Roadmap
		rec := ta.do(t, http.MethodGet, "/roadmaps", alice, nil)
		if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		if len(list) != 1 || list[0].ID != rm.ID {
			t.Errorf("expected alice's roadmap, got %+v", list)
		}

		rec = ta.do(t, http.MethodGet, "/roadmaps", bob, nil)
		if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		if len(list) != 0 {
			t.Errorf("expected bob to see nothing, got %d", len(list))
		}

		if rec := ta.do(t, http.MethodGet, "/roadmaps/"+rm.ID, bob, nil); rec.Code != http.StatusNotFound {
			t.Errorf("expected 404 for bob, got %d", rec.Code)
		}
	})

	t.Run("stale write conflicts", func(t *testing.T) {
		stale := rm
		stale.Name = "stale"
		if rec := ta.do(t, http.MethodPut, "/roadmaps/"+rm.ID, alice, stale); rec.Code != http.StatusConflict {
			t.Errorf("expected 409, got %d", rec.Code)
		}

		newer := rm
		newer.Version = 2
		newer.Name = "Go 2"
		if rec := ta.do(t, http.MethodPut, "/roadmaps/"+rm.ID, alice, newer); rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("path mismatch", func(t *testing.T) {
		if rec := ta.do(t, http.MethodPut, "/roadmaps/other", alice, rm); rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("delete then write is gone", func(t *testing.T) {
		if rec := ta.do(t, http.MethodDelete, "/roadmaps/"+rm.ID, alice, nil); rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if rec := ta.do(t, http.MethodDelete, "/roadmaps/"+rm.ID, alice, nil); rec.Code != http.StatusNoContent {
			t.Errorf("expected repeated delete to succeed, got %d", rec.Code)
		}

		late := rm
		late.Version = 10
		if rec := ta.do(t, http.MethodPut, "/roadmaps/"+rm.ID, alice, late); rec.Code != http.StatusGone {
			t.Errorf("expected 410, got %d", rec.Code)
		}
	})
}

func TestTaskEndpoints(t *testing.T) {
	ta := setupAPI(t)
	token := ta.signIn(t, "gho_alice").Token

	task := models.NewTask("Review notes")
	if rec := ta.do(t, http.MethodPut, "/tasks/"+task.ID, token, task); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	task.Status = models.StatusDoing
	if rec := ta.do(t, http.MethodPut, "/tasks/"+task.ID, token, task); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec := ta.do(t, http.MethodGet, "/tasks/"+task.ID, token, nil)
	var got models.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if got.Status != models.StatusDoing {
		t.Errorf("expected doing, got %s", got.Status)
	}

	bad := models.NewTask("")
	if rec := ta.do(t, http.MethodPut, "/tasks/"+bad.ID, token, bad); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}

	if rec := ta.do(t, http.MethodDelete, "/tasks/"+task.ID, token, nil); rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if rec := ta.do(t, http.MethodDelete, "/tasks/missing", token, nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}

	var list []models.Task
	rec = ta.do(t, http.MethodGet, "/tasks", token, nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected no tasks, got %d", len(list))
	}
}

func TestBackendClientAgainstAPI(t *testing.T) {
	ta := setupAPI(t)
	srv := httptest.NewServer(ta.api.Handler())
	defer srv.Close()

	anon := services.NewBackendService(srv.URL, "", 5*time.Second)
	auth, err := anon.ExchangeGitHubToken(context.Background(), "gho_alice")
	if err != nil {
		t.Fatalf("ExchangeGitHubToken failed: %v", err)
	}

	client := services.NewBackendService(srv.URL, auth.Token, 5*time.Second)
	rm := models.NewRoadmap("Go", "")
	rm.Version = 3
	if err := client.UpsertRoadmap(context.Background(), rm); err != nil {
		t.Fatalf("UpsertRoadmap failed: %v", err)
	}

	rm.Version = 2
	if err := client.UpsertRoadmap(context.Background(), rm); !errors.Is(err, shared.ErrStaleWrite) {
		t.Errorf("expected stale write, got %v", err)
	}

	roadmaps, err := client.FetchRoadmaps(context.Background())
	if err != nil {
		t.Fatalf("FetchRoadmaps failed: %v", err)
	}
	if len(roadmaps) != 1 || roadmaps[0].Version != 3 {
		t.Errorf("unexpected roadmaps %+v", roadmaps)
	}

	if _, err := anon.FetchRoadmaps(context.Background()); err == nil {
		t.Error("expected unauthenticated fetch to fail")
	}
}
