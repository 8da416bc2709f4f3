package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mikey/chat-sentry/internal/core"
	"github.com/mikey/chat-sentry/internal/dispatch"
	"github.com/mikey/chat-sentry/internal/flagging"
	"github.com/mikey/chat-sentry/internal/keywords"
	"github.com/mikey/chat-sentry/internal/scraper"
	"github.com/mikey/chat-sentry/internal/session"
	"github.com/mikey/chat-sentry/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeDriver serves one scripted conversation and accepts outbound sends
type fakeDriver struct {
	mu           sync.Mutex
	closed       int
	conversation []map[string]string
	contact      string
}

func (d *fakeDriver) NavigateTo(ctx context.Context, url string) error { return nil }
func (d *fakeDriver) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	return nil
}

func (d *fakeDriver) Evaluate(ctx context.Context, js string, args ...interface{}) (json.RawMessage, error) {
	switch {
	case strings.Contains(js, "pane-side"):
		name, _ := args[0].(string)
		return json.Marshal(name == d.contact)
	case strings.Contains(js, "insertText"):
		return json.Marshal(true)
	default:
		return json.Marshal(d.conversation)
	}
}

func (d *fakeDriver) Click(ctx context.Context, selector string) error       { return nil }
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

type restoredCredStore struct{}

func (restoredCredStore) Load() (*core.Credentials, error) {
	return &core.Credentials{SavedAt: time.Now()}, nil
}
func (restoredCredStore) Save(*core.Credentials) error { return nil }
func (restoredCredStore) Clear() error                 { return nil }

type fakeClassifier struct {
	response []core.FlaggedCandidate
}

func (c *fakeClassifier) FlagMessages(ctx context.Context, messages []core.ScrapedMessage, kws []string) ([]core.FlaggedCandidate, error) {
	return c.response, nil
}

type testHarness struct {
	handler http.Handler
	driver  *fakeDriver
	manager *session.Manager
	store   core.FlagStore
}

func newTestHarness(t *testing.T, classifier core.Classifier) *testHarness {
	t.Helper()

	driver := &fakeDriver{
		contact: "Jane Doe",
		conversation: []map[string]string{
			{"text": "let's meet up tomorrow", "meta": "[1:00 pm, 5/6/2024] Jane Doe: "},
		},
	}
	factory := func(ctx context.Context) (core.SessionDriver, error) {
		return driver, nil
	}

	logger := zap.NewNop()
	mgr := session.NewManager(factory, restoredCredStore{}, logger, "https://chat.example.com", time.Second, time.Second)
	scr := scraper.NewScraper(logger, time.Second)
	pipeline := flagging.NewPipeline(classifier, keywords.NewSet([]string{"meet up"}, logger), logger)
	dispatcher := dispatch.NewDispatcher(mgr, logger, "https://chat.example.com", time.Second)
	flagStore := store.NewMemoryStore()

	server := NewServer(mgr, scr, pipeline, dispatcher, flagStore, logger, "127.0.0.1:0")
	return &testHarness{
		handler: server.Handler(),
		driver:  driver,
		manager: mgr,
		store:   flagStore,
	}
}

func (h *testHarness) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func TestScrapeEndpoint(t *testing.T) {
	h := newTestHarness(t, &fakeClassifier{response: []core.FlaggedCandidate{
		{Contact: "Jane Doe", Text: "let's meet up tomorrow"},
	}})

	rec := h.do(http.MethodPost, "/scrape", `{"contacts":["Jane Doe"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp scrapeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Scraped)
	assert.Equal(t, 1, resp.Flagged)
	require.Len(t, resp.History, 1)
	assert.Equal(t, "Jane Doe", resp.History[0].Contact)

	// The session is released when the pass completes
	assert.False(t, h.manager.Active())

	// Re-running the same scrape does not duplicate history
	rec = h.do(http.MethodPost, "/scrape", `{"contacts":["Jane Doe"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.History, 1)
}

func TestScrapeEndpoint_BadRequest(t *testing.T) {
	h := newTestHarness(t, &fakeClassifier{})

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/scrape", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/scrape", `not json`).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, h.do(http.MethodGet, "/scrape", "").Code)
}

func TestSessionQREndpoint_SilentRestore(t *testing.T) {
	h := newTestHarness(t, &fakeClassifier{})

	rec := h.do(http.MethodGet, "/session/qr", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp qrResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Restored)
	assert.Empty(t, resp.QR)

	// The restored session stays open until ended
	assert.True(t, h.manager.Active())
	h.manager.EndActive()
}

func TestSendEndpoint(t *testing.T) {
	h := newTestHarness(t, &fakeClassifier{})

	rec := h.do(http.MethodPost, "/send", `{"phone":"15551234567","text":"running late"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, h.manager.Active())

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/send", `{"phone":"123"}`).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/send", `{"text":"hi"}`).Code)
}

func TestFlaggedEndpoints(t *testing.T) {
	h := newTestHarness(t, &fakeClassifier{})
	ctx := context.Background()

	_, err := h.store.MergeFlagged(ctx, []core.FlaggedMessage{
		{ID: "a", Contact: "Jane Doe", Text: "let's meet up", Timestamp: time.Now()},
	})
	require.NoError(t, err)

	rec := h.do(http.MethodGet, "/flagged", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history []core.FlaggedMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history, 1)

	assert.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, "/flagged/a", "").Code)
	remaining, err := h.store.ListFlagged(ctx)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	// Unknown id is still a success
	assert.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, "/flagged/missing", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, h.do(http.MethodPost, "/flagged", "").Code)
}

func TestRecommendedTimesEndpoints(t *testing.T) {
	h := newTestHarness(t, &fakeClassifier{})

	rec := h.do(http.MethodPut, "/recommended-times", `{"Jane Doe":"18:00-20:00"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = h.do(http.MethodGet, "/recommended-times", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var times map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &times))
	assert.Equal(t, map[string]string{"Jane Doe": "18:00-20:00"}, times)

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPut, "/recommended-times", `not json`).Code)
}

func TestWatchdogEndpoint(t *testing.T) {
	h := newTestHarness(t, &fakeClassifier{})

	assert.Equal(t, http.StatusAccepted, h.do(http.MethodPost, "/session/watchdog", `{"seconds":1}`).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/session/watchdog", `{"seconds":0}`).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, h.do(http.MethodGet, "/session/watchdog", "").Code)
}
