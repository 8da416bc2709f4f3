// Package browser implements the session driver against a Chromium
// instance controlled through go-rod.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/mikey/chat-sentry/internal/config"
	"github.com/mikey/chat-sentry/internal/core"
	"go.uber.org/zap"
)

// Driver drives a single page in a dedicated browser instance
type Driver struct {
	browser    *rod.Browser
	page       *rod.Page
	logger     *zap.Logger
	navTimeout time.Duration
}

// New launches a browser and opens the automation page
func New(cfg config.BrowserConfig, logger *zap.Logger) (*Driver, error) {
	launch := launcher.New().Headless(cfg.Headless)
	if cfg.Bin != "" {
		launch = launch.Bin(cfg.Bin)
	}

	controlURL, err := launch.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	return &Driver{
		browser:    b,
		page:       page,
		logger:     logger,
		navTimeout: cfg.NavigationTimeout,
	}, nil
}

// NavigateTo loads the given URL and waits for the load event
func (d *Driver) NavigateTo(ctx context.Context, url string) error {
	page := d.page.Context(ctx).Timeout(d.navTimeout)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait for load of %s: %w", url, err)
	}
	return nil
}

// WaitFor blocks until the selector matches or the timeout expires
func (d *Driver) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	_, err := d.page.Context(ctx).Timeout(timeout).Element(selector)
	if err != nil {
		return fmt.Errorf("element %q not found: %w", selector, err)
	}
	return nil
}

// Evaluate runs a JS function in the page and returns its result as JSON
func (d *Driver) Evaluate(ctx context.Context, js string, args ...interface{}) (json.RawMessage, error) {
	res, err := d.page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:           js,
		JSArgs:       args,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	if res == nil {
		return json.RawMessage("null"), nil
	}

	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal evaluate result: %w", err)
	}
	return raw, nil
}

// Click clicks the first element matching the selector
func (d *Driver) Click(ctx context.Context, selector string) error {
	el, err := d.page.Context(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("element %q not found: %w", selector, err)
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// ReadCookies snapshots the session's cookies
func (d *Driver) ReadCookies(ctx context.Context) ([]core.Cookie, error) {
	res, err := proto.NetworkGetCookies{}.Call(d.page.Context(ctx))
	if err != nil {
		return nil, fmt.Errorf("get cookies: %w", err)
	}

	cookies := make([]core.Cookie, 0, len(res.Cookies))
	for _, c := range res.Cookies {
		cookies = append(cookies, core.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  float64(c.Expires),
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		})
	}
	return cookies, nil
}

// WriteCookies restores previously captured cookies
func (d *Driver) WriteCookies(ctx context.Context, cookies []core.Cookie) error {
	if len(cookies) == 0 {
		return nil
	}

	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  proto.TimeSinceEpoch(c.Expires),
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		})
	}
	if err := d.page.Context(ctx).SetCookies(params); err != nil {
		return fmt.Errorf("set cookies: %w", err)
	}
	return nil
}

// ReadLocalStorage snapshots the page's local storage
func (d *Driver) ReadLocalStorage(ctx context.Context) (map[string]string, error) {
	raw, err := d.Evaluate(ctx, `() => {
		const out = {};
		try {
			for (const key of Object.keys(localStorage)) {
				out[key] = localStorage.getItem(key);
			}
		} catch (e) {}
		return out;
	}`)
	if err != nil {
		return nil, err
	}

	entries := map[string]string{}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode local storage: %w", err)
	}
	return entries, nil
}

// WriteLocalStorage restores previously captured local storage
func (d *Driver) WriteLocalStorage(ctx context.Context, entries map[string]string) error {
	if len(entries) == 0 {
		return nil
	}

	_, err := d.Evaluate(ctx, `(entries) => {
		try {
			Object.entries(entries).forEach(([k, v]) => localStorage.setItem(k, v));
		} catch (e) {}
		return true;
	}`, entries)
	return err
}

// Close tears down the page and the browser
func (d *Driver) Close() error {
	if d.page != nil {
		if err := d.page.Close(); err != nil {
			d.logger.Debug("Failed to close page", zap.Error(err))
		}
		d.page = nil
	}
	if d.browser != nil {
		err := d.browser.Close()
		d.browser = nil
		return err
	}
	return nil
}
