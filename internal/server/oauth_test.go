package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/desertthunder/studyflow/internal/shared"
)

func tokenServer(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.Form.Get("code") != "good-code" {
			http.Error(w, `{"error":"bad_verification_code"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "gho_token",
			"token_type":   "bearer",
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testOAuthConfig(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://127.0.0.1:8734/auth/callback",
		Endpoint:     oauth2.Endpoint{AuthURL: "https://example.com/authorize", TokenURL: tokenURL},
	}
}

func TestOAuthHandler(t *testing.T) {
	t.Run("routes follow redirect path", func(t *testing.T) {
		h := NewOAuthHandler(testOAuthConfig(""), "state")
		if got := h.Routes(); len(got) != 1 || got[0] != "/auth/callback" {
			t.Errorf("expected /auth/callback, got %v", got)
		}

		h = NewOAuthHandler(&oauth2.Config{RedirectURL: "http://127.0.0.1:8734"}, "state")
		if got := h.Routes()[0]; got != "/callback" {
			t.Errorf("expected /callback default, got %s", got)
		}
	})

	t.Run("exchanges code", func(t *testing.T) {
		h := NewOAuthHandler(testOAuthConfig(tokenServer(t).URL), "xyz")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/callback?state=xyz&code=good-code", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), "Signed in to StudyFlow") {
			t.Error("expected success page")
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		token, err := h.Wait(ctx)
		if err != nil {
			t.Fatalf("Wait failed: %v", err)
		}
		if token.AccessToken != "gho_token" {
			t.Errorf("expected gho_token, got %s", token.AccessToken)
		}
	})

	t.Run("rejects", func(t *testing.T) {
		tests := []struct {
			name  string
			query string
			want  int
		}{
			{"bad state", "state=wrong&code=good-code", http.StatusBadRequest},
			{"denied", "state=xyz&error=access_denied", http.StatusBadRequest},
			{"bad code", "state=xyz&code=bad", http.StatusInternalServerError},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				h := NewOAuthHandler(testOAuthConfig(tokenServer(t).URL), "xyz")
				rec := httptest.NewRecorder()
				h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/callback?"+tt.query, nil))
				if rec.Code != tt.want {
					t.Errorf("expected %d, got %d", tt.want, rec.Code)
				}

				result := <-h.Result()
				if result.Error() == nil {
					t.Error("expected error result")
				}
			})
		}
	})

	t.Run("single use", func(t *testing.T) {
		h := NewOAuthHandler(testOAuthConfig(tokenServer(t).URL), "xyz")
		target := "/auth/callback?state=xyz&code=good-code"

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, target, nil))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected second callback to be rejected, got %d", rec.Code)
		}
	})

	t.Run("wait honours context", func(t *testing.T) {
		h := NewOAuthHandler(testOAuthConfig(""), "xyz")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := h.Wait(ctx); err == nil {
			t.Error("expected context error")
		}
	})
}

func TestNewState(t *testing.T) {
	a, err := NewState()
	if err != nil {
		t.Fatalf("NewState failed: %v", err)
	}
	b, _ := NewState()
	if len(a) != 32 || a == b {
		t.Errorf("expected distinct 32 char states, got %q and %q", a, b)
	}
}

func TestBasicRouter(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	r := NewBasicRouter()
	r.Use(mw("first"), mw("second"), RequestLogger(shared.NewLogger(io.Discard)))
	r.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("expected 418, got %d", rec.Code)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("expected middleware in registration order, got %v", order)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
	if rec.Header().Get("Allow") != http.MethodGet {
		t.Errorf("expected Allow header, got %q", rec.Header().Get("Allow"))
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- Serve(ctx, "127.0.0.1:0", http.NotFoundHandler(), shared.NewLogger(io.Discard))
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down")
	}
}
