package model

import "time"

// LOGGED_OUT is the session id of an anonymous client
const LOGGED_OUT int64 = 0

type Session struct {
	ID        int64     `json:"id"`
	Token     string    `json:"token,omitempty"`
	Name      string    `json:"name,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

func (s Session) LoggedIn() bool {
	return s.ID != LOGGED_OUT
}

// Expired reports whether the token carried an expiry that has passed
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
