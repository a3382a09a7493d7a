package models

import (
	"fmt"
	"net/mail"
	"time"

	"github.com/desertthunder/studyflow/internal/shared"
)

// Identity providers a [User] can sign in with.
const (
	ProviderGitHub = "github"
	ProviderEmail  = "email"
)

// User is a backend account. Roadmaps and tasks pushed to the backend belong to exactly one user.
type User struct {
	id         string
	sequence   int
	email      string
	name       string
	provider   string
	providerID string
	createdAt  time.Time
	updatedAt  time.Time
	deletedAt  *time.Time
}

// NewUser creates a user for the given identity provider.
func NewUser(sequence int, email, name, provider, providerID string) *User {
	now := time.Now()
	return &User{
		sequence:   sequence,
		email:      email,
		name:       name,
		provider:   provider,
		providerID: providerID,
		createdAt:  now,
		updatedAt:  now,
	}
}

func (u *User) ID() string            { return u.id }
func (u *User) Sequence() int         { return u.sequence }
func (u *User) Email() string         { return u.email }
func (u *User) Name() string          { return u.name }
func (u *User) Provider() string      { return u.provider }
func (u *User) ProviderID() string    { return u.providerID }
func (u *User) CreatedAt() time.Time  { return u.createdAt }
func (u *User) UpdatedAt() time.Time  { return u.updatedAt }
func (u *User) DeletedAt() *time.Time { return u.deletedAt }

func (u *User) SetID(id string)           { u.id = id }
func (u *User) SetSequence(seq int)       { u.sequence = seq }
func (u *User) SetEmail(email string)     { u.email = email }
func (u *User) SetName(name string)       { u.name = name }
func (u *User) SetCreatedAt(t time.Time)  { u.createdAt = t }
func (u *User) SetUpdatedAt(t time.Time)  { u.updatedAt = t }
func (u *User) SetDeletedAt(t *time.Time) { u.deletedAt = t }

// Validate checks the user has an ID, a known provider and, when set, a parseable email.
func (u *User) Validate() error {
	if u.id == "" {
		return fmt.Errorf("%w: user id is required", shared.ErrInvalidInput)
	}
	switch u.provider {
	case ProviderGitHub:
		if u.providerID == "" {
			return fmt.Errorf("%w: github user requires a provider id", shared.ErrInvalidInput)
		}
	case ProviderEmail:
		if u.email == "" {
			return fmt.Errorf("%w: email user requires an email", shared.ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown provider %q", shared.ErrInvalidInput, u.provider)
	}
	if u.email != "" {
		if _, err := mail.ParseAddress(u.email); err != nil {
			return fmt.Errorf("%w: invalid email %q", shared.ErrInvalidInput, u.email)
		}
	}
	return nil
}
