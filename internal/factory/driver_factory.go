package factory

import (
	"context"

	"github.com/mikey/chat-sentry/internal/adapters/browser"
	"github.com/mikey/chat-sentry/internal/config"
	"github.com/mikey/chat-sentry/internal/core"
	"github.com/mikey/chat-sentry/internal/session"
	"go.uber.org/zap"
)

// NewDriverFactory returns a factory that launches a fresh browser instance
// per session. Each session owns its browser; Close tears it down.
func NewDriverFactory(cfg *config.Config, logger *zap.Logger) session.DriverFactory {
	browserConfig := cfg.GetBrowser()
	return func(ctx context.Context) (core.SessionDriver, error) {
		return browser.New(browserConfig, logger)
	}
}
