package core

import (
	"context"
	"encoding/json"
	"time"
)

// SessionDriver defines the automation primitives the core depends on.
// Implementations drive a single page against the remote messaging surface.
type SessionDriver interface {
	// NavigateTo loads the given URL in the session's page
	NavigateTo(ctx context.Context, url string) error

	// WaitFor blocks until the selector matches a rendered element or the
	// timeout expires
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error

	// Evaluate runs a JS function in the page and returns its result as JSON
	Evaluate(ctx context.Context, js string, args ...interface{}) (json.RawMessage, error)

	// Click clicks the first element matching the selector
	Click(ctx context.Context, selector string) error

	// ReadCookies snapshots the session's cookies
	ReadCookies(ctx context.Context) ([]Cookie, error)

	// WriteCookies restores previously captured cookies
	WriteCookies(ctx context.Context, cookies []Cookie) error

	// ReadLocalStorage snapshots the page's local storage
	ReadLocalStorage(ctx context.Context) (map[string]string, error)

	// WriteLocalStorage restores previously captured local storage
	WriteLocalStorage(ctx context.Context, entries map[string]string) error

	// Close tears down the page and the browser
	Close() error
}

// Classifier defines the interface for the external classification capability.
// Implementations must return exactly the subset of input messages whose
// content matches any keyword; malformed responses are an error.
type Classifier interface {
	FlagMessages(ctx context.Context, messages []ScrapedMessage, keywords []string) ([]FlaggedCandidate, error)
}

// FlagStore defines the interface for the deduplicating persistent store
type FlagStore interface {
	// MergeFlagged appends incoming records whose dedup key is absent from
	// history and returns the full updated history. Atomic with respect to
	// concurrent callers.
	MergeFlagged(ctx context.Context, messages []FlaggedMessage) ([]FlaggedMessage, error)

	// ListFlagged returns the full current history
	ListFlagged(ctx context.Context) ([]FlaggedMessage, error)

	// DeleteFlagged removes the record with the given identifier; no-op if absent
	DeleteFlagged(ctx context.Context, id string) error

	// SaveRecommendedTimes replaces the stored mapping wholesale
	SaveRecommendedTimes(ctx context.Context, times map[string]string) error

	// RecommendedTimes returns the stored mapping, empty if unreadable
	RecommendedTimes(ctx context.Context) (map[string]string, error)
}

// CredentialStore persists the session credential blob between runs
type CredentialStore interface {
	Load() (*Credentials, error)
	Save(creds *Credentials) error
	Clear() error
}
