package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/chat-sentry/internal/adapters/httpapi"
	"github.com/mikey/chat-sentry/internal/config"
	"github.com/mikey/chat-sentry/internal/core"
	"github.com/mikey/chat-sentry/internal/dispatch"
	"github.com/mikey/chat-sentry/internal/factory"
	"github.com/mikey/chat-sentry/internal/flagging"
	"github.com/mikey/chat-sentry/internal/keywords"
	"github.com/mikey/chat-sentry/internal/logging"
	"github.com/mikey/chat-sentry/internal/scraper"
	"github.com/mikey/chat-sentry/internal/session"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewClassifierFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return nil, err
	}

	// Register classifier
	if err := container.Provide(func(f *factory.ClassifierFactory) (core.Classifier, error) {
		return f.CreateClassifier()
	}); err != nil {
		return nil, err
	}

	// Register flag store
	if err := container.Provide(func(f *factory.StoreFactory) (core.FlagStore, error) {
		return f.CreateFlagStore()
	}); err != nil {
		return nil, err
	}

	// Register browser driver factory
	if err := container.Provide(factory.NewDriverFactory); err != nil {
		return nil, err
	}

	// Register credential store
	if err := container.Provide(func(cfg *config.Config) core.CredentialStore {
		return session.NewFileCredentialStore(cfg.GetSession().CredentialsPath)
	}); err != nil {
		return nil, err
	}

	// Register keyword set
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *keywords.Set {
		set := keywords.NewSet(cfg.GetKeywords(), logger)
		if active := set.Active(); len(active) > 0 {
			logger.Info("Loaded flagging keywords", zap.Strings("keywords", active))
		}
		return set
	}); err != nil {
		return nil, err
	}

	// Register session manager
	if err := container.Provide(func(
		newDriver session.DriverFactory,
		creds core.CredentialStore,
		cfg *config.Config,
		logger *zap.Logger,
	) *session.Manager {
		sessionConfig := cfg.GetSession()
		return session.NewManager(
			newDriver,
			creds,
			logger,
			cfg.GetBrowser().URL,
			sessionConfig.AuthTimeout,
			sessionConfig.RestoreWait,
		)
	}); err != nil {
		return nil, err
	}

	// Register scraper
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *scraper.Scraper {
		return scraper.NewScraper(logger, cfg.GetScraper().RenderWait)
	}); err != nil {
		return nil, err
	}

	// Register flagging pipeline
	if err := container.Provide(flagging.NewPipeline); err != nil {
		return nil, err
	}

	// Register dispatcher
	if err := container.Provide(func(
		manager *session.Manager,
		cfg *config.Config,
		logger *zap.Logger,
	) *dispatch.Dispatcher {
		return dispatch.NewDispatcher(manager, logger, cfg.GetBrowser().URL, cfg.GetScraper().RenderWait)
	}); err != nil {
		return nil, err
	}

	// Register HTTP server
	if err := container.Provide(func(
		manager *session.Manager,
		scr *scraper.Scraper,
		pipeline *flagging.Pipeline,
		dispatcher *dispatch.Dispatcher,
		store core.FlagStore,
		cfg *config.Config,
		logger *zap.Logger,
	) *httpapi.Server {
		return httpapi.NewServer(manager, scr, pipeline, dispatcher, store, logger, cfg.GetServer().ListenAddress)
	}); err != nil {
		return nil, err
	}

	return container, nil
}
