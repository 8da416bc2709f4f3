package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mikey/chat-sentry/internal/core"
	"go.uber.org/zap"
)

// Selectors on the remote messaging surface. The conversation pane only
// renders once the session is authenticated; the QR element carries the
// scannable payload in its data-ref attribute.
const (
	selectorChatPane = "#pane-side"
	selectorQRCode   = "div[data-ref]"
)

const qrPayloadJS = `() => {
	const el = document.querySelector('div[data-ref]');
	return el ? el.getAttribute('data-ref') : '';
}`

// DriverFactory opens a fresh session driver
type DriverFactory func(ctx context.Context) (core.SessionDriver, error)

// Handle represents ownership of the single authenticated session
type Handle struct {
	id     string
	driver core.SessionDriver

	mu    sync.Mutex
	state core.SessionState
}

// ID returns the handle's identifier
func (h *Handle) ID() string {
	return h.id
}

// Driver returns the underlying session driver
func (h *Handle) Driver() core.SessionDriver {
	return h.driver
}

// State returns the handle's current authentication state
func (h *Handle) State() core.SessionState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *Handle) setState(state core.SessionState) {
	h.mu.Lock()
	h.state = state
	h.mu.Unlock()
}

// Manager owns the one permitted automation session. At most one
// authenticated session exists process-wide; Begin while one is active
// fails with ErrAlreadyActive.
type Manager struct {
	newDriver   DriverFactory
	creds       core.CredentialStore
	logger      *zap.Logger
	url         string
	authTimeout time.Duration
	restoreWait time.Duration

	mu      sync.Mutex
	active  *Handle
	opening bool
}

// NewManager creates a session lifecycle manager
func NewManager(
	newDriver DriverFactory,
	creds core.CredentialStore,
	logger *zap.Logger,
	url string,
	authTimeout time.Duration,
	restoreWait time.Duration,
) *Manager {
	return &Manager{
		newDriver:   newDriver,
		creds:       creds,
		logger:      logger,
		url:         url,
		authTimeout: authTimeout,
		restoreWait: restoreWait,
	}
}

// Begin opens the session. A persisted credential blob is tried first; on
// restore failure the manager falls back to interactive authentication and
// invokes onQR (if non-nil) with the scannable payload. Interactive
// authentication is bounded by the configured auth timeout; on expiry the
// partially opened session is closed before ErrAuthTimeout is returned.
func (m *Manager) Begin(ctx context.Context, onQR func(payload string)) (*Handle, error) {
	m.mu.Lock()
	if m.active != nil || m.opening {
		m.mu.Unlock()
		return nil, core.ErrAlreadyActive
	}
	m.opening = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.opening = false
		m.mu.Unlock()
	}()

	driver, err := m.newDriver(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: open driver: %v", core.ErrDriverFailure, err)
	}

	handle := &Handle{
		id:     uuid.NewString(),
		driver: driver,
		state:  core.StateUnauthenticated,
	}

	if err := driver.NavigateTo(ctx, m.url); err != nil {
		_ = driver.Close()
		return nil, fmt.Errorf("%w: navigate: %v", core.ErrDriverFailure, err)
	}

	if m.tryRestore(ctx, driver) {
		handle.setState(core.StateAuthenticated)
		m.adopt(handle)
		m.logger.Info("Session restored from persisted credentials", zap.String("session_id", handle.id))
		return handle, nil
	}

	if err := m.authenticate(ctx, handle, onQR); err != nil {
		_ = driver.Close()
		handle.setState(core.StateClosed)
		return nil, err
	}

	m.adopt(handle)
	return handle, nil
}

// tryRestore attempts a silent restore from the persisted credential blob
func (m *Manager) tryRestore(ctx context.Context, driver core.SessionDriver) bool {
	creds, err := m.creds.Load()
	if err != nil {
		m.logger.Warn("Failed to load persisted credentials", zap.Error(err))
		return false
	}
	if creds == nil {
		return false
	}

	if err := driver.WriteCookies(ctx, creds.Cookies); err != nil {
		m.logger.Warn("Failed to restore cookies", zap.Error(err))
		return false
	}
	if err := driver.WriteLocalStorage(ctx, creds.LocalStorage); err != nil {
		m.logger.Warn("Failed to restore local storage", zap.Error(err))
		return false
	}

	// Reload so the page picks up the restored state
	if err := driver.NavigateTo(ctx, m.url); err != nil {
		m.logger.Warn("Failed to reload after restore", zap.Error(err))
		return false
	}

	if err := driver.WaitFor(ctx, selectorChatPane, m.restoreWait); err != nil {
		m.logger.Info("Silent restore did not authenticate, falling back to scan", zap.Error(err))
		return false
	}
	return true
}

// authenticate runs the interactive QR flow within the auth timeout
func (m *Manager) authenticate(ctx context.Context, handle *Handle, onQR func(string)) error {
	deadline := time.Now().Add(m.authTimeout)

	if err := handle.driver.WaitFor(ctx, selectorQRCode, time.Until(deadline)); err != nil {
		m.logger.Error("Authentication token did not render", zap.Error(err))
		return core.ErrAuthTimeout
	}
	handle.setState(core.StateAwaitingScan)

	raw, err := handle.driver.Evaluate(ctx, qrPayloadJS)
	if err != nil {
		return fmt.Errorf("%w: read auth token: %v", core.ErrDriverFailure, err)
	}
	var payload string
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("%w: decode auth token: %v", core.ErrDriverFailure, err)
	}
	if onQR != nil && payload != "" {
		onQR(payload)
	}

	if err := handle.driver.WaitFor(ctx, selectorChatPane, time.Until(deadline)); err != nil {
		m.logger.Error("Scan was not completed in time", zap.Error(err))
		return core.ErrAuthTimeout
	}
	handle.setState(core.StateAuthenticated)

	m.persistCredentials(ctx, handle.driver)
	return nil
}

// persistCredentials snapshots cookies and local storage after a successful
// interactive authentication so later sessions can restore silently
func (m *Manager) persistCredentials(ctx context.Context, driver core.SessionDriver) {
	cookies, err := driver.ReadCookies(ctx)
	if err != nil {
		m.logger.Warn("Failed to snapshot cookies", zap.Error(err))
		return
	}
	storage, err := driver.ReadLocalStorage(ctx)
	if err != nil {
		m.logger.Warn("Failed to snapshot local storage", zap.Error(err))
		return
	}

	creds := &core.Credentials{
		Cookies:      cookies,
		LocalStorage: storage,
		SavedAt:      time.Now(),
	}
	if err := m.creds.Save(creds); err != nil {
		m.logger.Warn("Failed to persist credentials", zap.Error(err))
		return
	}
	m.logger.Info("Persisted session credentials", zap.Int("cookies", len(cookies)))
}

func (m *Manager) adopt(handle *Handle) {
	m.mu.Lock()
	m.active = handle
	m.mu.Unlock()
}

// End releases the session and clears in-memory state. Idempotent; ending
// an already closed handle is a no-op.
func (m *Manager) End(handle *Handle) {
	if handle == nil {
		return
	}

	handle.mu.Lock()
	alreadyClosed := handle.state == core.StateClosed
	handle.state = core.StateClosed
	handle.mu.Unlock()

	if !alreadyClosed {
		if err := handle.driver.Close(); err != nil {
			m.logger.Warn("Failed to close session driver", zap.Error(err))
		}
	}

	m.mu.Lock()
	if m.active == handle {
		m.active = nil
	}
	m.mu.Unlock()
}

// EndActive ends whatever session is currently active, if any. Used by the
// operational watchdog.
func (m *Manager) EndActive() {
	m.mu.Lock()
	handle := m.active
	m.mu.Unlock()

	if handle != nil {
		m.End(handle)
	}
}

// Active reports whether a session is currently held
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active != nil || m.opening
}
