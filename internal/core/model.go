package core

import (
	"time"
)

// SessionState represents the authentication state of the automation session
type SessionState string

const (
	StateUnauthenticated SessionState = "unauthenticated"
	StateAwaitingScan    SessionState = "awaiting-scan"
	StateAuthenticated   SessionState = "authenticated"
	StateClosed          SessionState = "closed"
)

// ScrapedMessage is one message extracted during a scrape pass.
// When Error is true the contact lookup failed and Text holds a
// diagnostic instead of message content.
type ScrapedMessage struct {
	ID        string    `json:"id"`
	Contact   string    `json:"contact"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Error     bool      `json:"error,omitempty"`
}

// FlaggedMessage is a persisted message confirmed to carry scheduling intent
type FlaggedMessage struct {
	ID        string    `json:"id"`
	Contact   string    `json:"contact"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// FlaggedCandidate is one item of a classifier response, identified by
// contact name and original text
type FlaggedCandidate struct {
	Contact string `json:"contact"`
	Text    string `json:"text"`
}

// Keyword drives the flagging pre-filter. Toggling Active removes it from
// future filtering without deleting history.
type Keyword struct {
	ID        int       `json:"id"`
	Text      string    `json:"text"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Cookie is one browser cookie captured into the credential blob
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"http_only"`
	Secure   bool    `json:"secure"`
}

// Credentials is the opaque snapshot of cookies and local storage used to
// restore a session without rescanning
type Credentials struct {
	Cookies      []Cookie          `json:"cookies"`
	LocalStorage map[string]string `json:"local_storage"`
	SavedAt      time.Time         `json:"saved_at"`
}
