package models

import "time"

// Session is either [Authenticated] or [Anonymous].
type Session interface {
	isSession()
}

// Authenticated is a backend session. Remote pushes require one.
type Authenticated struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Anonymous is a local-only session.
type Anonymous struct{}

func (Authenticated) isSession() {}
func (Anonymous) isSession()     {}

// Expired reports whether the token is past its expiry. A zero ExpiresAt never expires.
func (a Authenticated) Expired(now time.Time) bool {
	return !a.ExpiresAt.IsZero() && !now.Before(a.ExpiresAt)
}

// ActiveSession returns s as Authenticated when it is one and has not expired.
func ActiveSession(s Session, now time.Time) (Authenticated, bool) {
	a, ok := s.(Authenticated)
	if !ok || a.Token == "" || a.Expired(now) {
		return Authenticated{}, false
	}
	return a, true
}
