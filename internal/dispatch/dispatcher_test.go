package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mikey/chat-sentry/internal/core"
	"github.com/mikey/chat-sentry/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeDriver starts restorable so the session manager authenticates without
// the interactive flow; WaitFor outcomes are scripted per selector.
type fakeDriver struct {
	mu          sync.Mutex
	closed      int
	navigations []string
	waitErrs    map[string]error
	insertOK    bool
	clicked     []string
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{waitErrs: map[string]error{}, insertOK: true}
}

func (d *fakeDriver) NavigateTo(ctx context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.navigations = append(d.navigations, url)
	return nil
}

func (d *fakeDriver) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.waitErrs[selector]
}

func (d *fakeDriver) Evaluate(ctx context.Context, js string, args ...interface{}) (json.RawMessage, error) {
	return json.Marshal(d.insertOK)
}

func (d *fakeDriver) Click(ctx context.Context, selector string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clicked = append(d.clicked, selector)
	return nil
}

func (d *fakeDriver) ReadCookies(ctx context.Context) ([]core.Cookie, error) { return nil, nil }
func (d *fakeDriver) WriteCookies(ctx context.Context, cookies []core.Cookie) error {
	return nil
}
func (d *fakeDriver) ReadLocalStorage(ctx context.Context) (map[string]string, error) {
	return nil, nil
}
func (d *fakeDriver) WriteLocalStorage(ctx context.Context, entries map[string]string) error {
	return nil
}

func (d *fakeDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed++
	return nil
}

func (d *fakeDriver) closeCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

type restoredCredStore struct{}

func (restoredCredStore) Load() (*core.Credentials, error) {
	return &core.Credentials{
		Cookies: []core.Cookie{{Name: "sid", Value: "abc"}},
		SavedAt: time.Now(),
	}, nil
}
func (restoredCredStore) Save(*core.Credentials) error { return nil }
func (restoredCredStore) Clear() error                 { return nil }

func newTestDispatcher(t *testing.T, driver *fakeDriver) (*Dispatcher, *session.Manager) {
	t.Helper()
	factory := func(ctx context.Context) (core.SessionDriver, error) {
		return driver, nil
	}
	mgr := session.NewManager(factory, restoredCredStore{}, zap.NewNop(), "https://chat.example.com", time.Second, time.Second)
	return NewDispatcher(mgr, zap.NewNop(), "https://chat.example.com", time.Second), mgr
}

func TestSend_Success(t *testing.T) {
	driver := newFakeDriver()
	dispatcher, mgr := newTestDispatcher(t, driver)

	err := dispatcher.Send(context.Background(), "+1 (555) 123-4567", "running late")
	require.NoError(t, err)

	// Target URL is built from digits only
	assert.Contains(t, driver.navigations, "https://chat.example.com/send?phone=15551234567")
	assert.Contains(t, driver.clicked, `span[data-icon="send"]`)

	// The send session is torn down on success
	assert.Equal(t, 1, driver.closeCount())
	assert.False(t, mgr.Active())
}

func TestSend_ComposerFailureStillTearsDown(t *testing.T) {
	driver := newFakeDriver()
	driver.waitErrs[`div[contenteditable="true"][data-tab="10"]`] = errors.New("composer missing")
	dispatcher, mgr := newTestDispatcher(t, driver)

	err := dispatcher.Send(context.Background(), "15551234567", "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrDriverFailure)

	// Teardown happened before the error surfaced
	assert.Equal(t, 1, driver.closeCount())
	assert.False(t, mgr.Active())
}

func TestSend_RejectedInputStillTearsDown(t *testing.T) {
	driver := newFakeDriver()
	driver.insertOK = false
	dispatcher, mgr := newTestDispatcher(t, driver)

	err := dispatcher.Send(context.Background(), "15551234567", "hello")
	require.Error(t, err)
	assert.Equal(t, 1, driver.closeCount())
	assert.False(t, mgr.Active())
}

func TestSend_SessionHeldElsewhere(t *testing.T) {
	driver := newFakeDriver()
	dispatcher, mgr := newTestDispatcher(t, driver)

	// A scrape pass holds the session
	handle, err := mgr.Begin(context.Background(), nil)
	require.NoError(t, err)
	defer mgr.End(handle)

	err = dispatcher.Send(context.Background(), "15551234567", "hello")
	assert.ErrorIs(t, err, core.ErrNoSession)
}
