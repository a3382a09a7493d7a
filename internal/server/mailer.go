package server

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/studyflow/internal/services"
)

// Mailer delivers magic sign-in links.
type Mailer interface {
	SendMagicLink(ctx context.Context, email, link string) error
}

// LogMailer writes links to the log instead of sending mail. It is meant for local development.
type LogMailer struct {
	Logger *log.Logger
}

func (m LogMailer) SendMagicLink(_ context.Context, email, link string) error {
	m.Logger.Info("magic link", "email", email, "link", link)
	return nil
}

// GitHubIdentity resolves a GitHub access token to its owner.
// [services.GitHubClient] implements it.
type GitHubIdentity interface {
	User(ctx context.Context, accessToken string) (services.GitHubUser, error)
}

var _ GitHubIdentity = (*services.GitHubClient)(nil)
