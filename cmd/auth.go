package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/desertthunder/studyflow/internal/models"
	"github.com/desertthunder/studyflow/internal/server"
	"github.com/desertthunder/studyflow/internal/services"
	"github.com/desertthunder/studyflow/internal/shared"
)

const authTimeout = 2 * time.Minute

// AuthGitHub runs the GitHub OAuth flow through a loopback server and trades the GitHub token for a
// StudyFlow session.
func (r *Runner) AuthGitHub(ctx context.Context, cmd *cli.Command) error {
	oauthConfig, err := services.GitHubOAuthConfig(r.config.Credentials.GitHub)
	if err != nil {
		return err
	}

	s, err := r.openStore()
	if err != nil {
		return err
	}
	backend, err := r.backend()
	if err != nil {
		return err
	}

	token, err := r.doOAuth(ctx, oauthConfig)
	if err != nil {
		return err
	}

	resp, err := backend.ExchangeGitHubToken(ctx, token.AccessToken)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	return r.saveSession(s.SetSession, resp)
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server on the redirect URI's port.
func (r *Runner) doOAuth(ctx context.Context, oauthConfig *oauth2.Config) (*oauth2.Token, error) {
	redirect, err := url.Parse(oauthConfig.RedirectURL)
	if err != nil || redirect.Host == "" {
		return nil, fmt.Errorf("%w: credentials.github.redirect_uri %q", shared.ErrInvalidConfig, oauthConfig.RedirectURL)
	}

	state, err := server.NewState()
	if err != nil {
		return nil, err
	}

	oauthHandler := server.NewOAuthHandler(oauthConfig, state)
	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(r.logger))
	router.Handler(oauthHandler)

	ln, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", redirect.Host, err)
	}

	serveCtx, stop := context.WithCancel(ctx)
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ServeListener(serveCtx, ln, router, r.logger)
	}()
	defer func() {
		stop()
		if err := <-serveErr; err != nil {
			r.logger.Warn("error shutting down callback server", "error", err)
		}
	}()

	authURL := oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOnline)
	r.writePlain("→ Opening browser for GitHub sign-in...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	waitCtx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	token, err := oauthHandler.Wait(waitCtx)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	case err != nil:
		return nil, fmt.Errorf("authorization failed: %w", err)
	case token == nil:
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}
	return token, nil
}

// AuthEmail asks the backend to email a sign-in link.
func (r *Runner) AuthEmail(ctx context.Context, cmd *cli.Command) error {
	email := cmd.StringArg("email")
	if email == "" {
		return fmt.Errorf("%w: email address", shared.ErrMissingArgument)
	}

	backend, err := r.backend()
	if err != nil {
		return err
	}
	if err := backend.RequestMagicLink(ctx, email); err != nil {
		return err
	}

	r.writePlain("✓ Sign-in link sent to %s\n", email)
	return r.writePlain("Open the link, or run 'studyflow auth verify %s <token>' with the token it contains.\n", email)
}

// AuthVerify exchanges an emailed token for a session.
func (r *Runner) AuthVerify(ctx context.Context, cmd *cli.Command) error {
	email, token := cmd.StringArg("email"), cmd.StringArg("token")
	if email == "" || token == "" {
		return fmt.Errorf("%w: email and token", shared.ErrMissingArgument)
	}

	s, err := r.openStore()
	if err != nil {
		return err
	}
	backend, err := r.backend()
	if err != nil {
		return err
	}

	resp, err := backend.VerifyMagicLink(ctx, email, token)
	if err != nil {
		return err
	}
	return r.saveSession(s.SetSession, resp)
}

func (r *Runner) saveSession(set func(models.Session) error, resp models.AuthResponse) error {
	if err := set(resp.Session()); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	r.logger.Info("signed in", "user", resp.User.ID, "provider", resp.User.Provider)
	r.writePlain("✓ Signed in as %s\n", displayName(resp.User))
	return r.writePlain("Session expires %s\n", resp.ExpiresAt.Local().Format(time.RFC1123))
}

func displayName(u models.UserInfo) string {
	switch {
	case u.Name != "" && u.Email != "":
		return fmt.Sprintf("%s <%s>", u.Name, u.Email)
	case u.Email != "":
		return u.Email
	default:
		return u.ID
	}
}

type authStatus struct {
	SignedIn  bool             `json:"signed_in"`
	Email     string           `json:"email,omitempty"`
	ExpiresAt *time.Time       `json:"expires_at,omitempty"`
	Remote    string           `json:"remote"`
	Healthy   bool             `json:"healthy"`
	User      *models.UserInfo `json:"user,omitempty"`
}

// AuthStatus reports the saved session and whether the backend is reachable.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	s, err := r.openStore()
	if err != nil {
		return err
	}

	status := authStatus{Remote: r.config.Remote.URL}
	if a, ok := models.ActiveSession(s.Session(), r.now()); ok {
		status.SignedIn, status.Email = true, a.Email
		if !a.ExpiresAt.IsZero() {
			status.ExpiresAt = &a.ExpiresAt
		}
	}

	if backend, err := r.backend(); err == nil {
		if err := backend.Health(ctx); err != nil {
			r.logger.Warn("backend health check failed", "error", err)
		} else {
			status.Healthy = true
		}
		if status.SignedIn && status.Healthy {
			if me, err := backend.Me(ctx); err == nil {
				status.User = &me
			} else {
				r.logger.Warn("session rejected by backend", "error", err)
			}
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	if status.Healthy {
		r.writePlain("✓ Backend is healthy (%s)\n", status.Remote)
	} else {
		r.writePlain("✗ Backend unreachable (%s). Working offline\n", status.Remote)
	}
	switch {
	case status.User != nil:
		r.writePlain("Authentication: ✓ Signed in as %s\n", displayName(*status.User))
	case status.SignedIn:
		r.writePlain("Authentication: ✓ Signed in as %s (not verified)\n", status.Email)
	default:
		return r.writePlain("Authentication: ✗ Not signed in, changes stay on this device\n")
	}
	if status.ExpiresAt != nil {
		r.writePlain("Expires: %s\n", status.ExpiresAt.Local().Format(time.RFC1123))
	}
	return nil
}

// AuthLogout forgets the saved session. Local data is kept.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	s, err := r.openStore()
	if err != nil {
		return err
	}
	if err := s.SetSession(models.Anonymous{}); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return r.writePlain("✓ Signed out. Local roadmaps and tasks are kept\n")
}
