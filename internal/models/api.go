package models

import "time"

// UserInfo is the public view of a [User] returned by the backend.
type UserInfo struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// NewUserInfo converts a persisted user.
func NewUserInfo(u *User) UserInfo {
	return UserInfo{ID: u.ID(), Email: u.Email(), Name: u.Name(), Provider: u.Provider()}
}

// AuthResponse is returned by every backend sign-in endpoint.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      UserInfo  `json:"user"`
}

// Session converts the response into an [Authenticated] session.
func (a AuthResponse) Session() Authenticated {
	return Authenticated{UserID: a.User.ID, Email: a.User.Email, Token: a.Token, ExpiresAt: a.ExpiresAt}
}

// ErrorResponse is the backend's error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
