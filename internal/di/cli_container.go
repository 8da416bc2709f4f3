package di

import (
	"flag"
	"strings"

	"go.uber.org/dig"
	"go.uber.org/zap"

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

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// Scrape flags
	Contacts string
	Limit    int

	// Send flags
	SendPhone string
	SendText  string

	// Classifier provider flags
	Provider    string
	MaxTokens   int
	Temperature float64
	TopP        float64
	MaxTextSize int

	// Bedrock flags
	BedrockRegion  string
	BedrockModelID string

	// Gemini flags
	GeminiAPIKey    string
	GeminiModelName string

	// OpenAI flags
	OpenAIAPIKey    string
	OpenAIModelName string

	// Keyword flags
	Keywords string

	// Store flags
	StoreType string
	StorePath string

	// Browser flags
	BrowserBin string
	Headed     bool

	Verbose    bool
	JSONLog    bool
	ConfigFile string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	flags := &CLIFlags{}

	// Scrape flags
	flag.StringVar(&flags.Contacts, "contacts", "", "Comma-separated contact names to scrape")
	flag.IntVar(&flags.Limit, "limit", 10, "Messages to extract per contact")

	// Send flags
	flag.StringVar(&flags.SendPhone, "send-phone", "", "Phone number to send a message to")
	flag.StringVar(&flags.SendText, "send-text", "", "Message text to send")

	// Classifier provider flags
	flag.StringVar(&flags.Provider, "provider", "bedrock", "Classifier provider (bedrock, gemini, openai)")
	flag.IntVar(&flags.MaxTokens, "max-tokens", 1000, "Maximum tokens for classifier response")
	flag.Float64Var(&flags.Temperature, "temperature", 0.1, "Temperature for classifier generation")
	flag.Float64Var(&flags.TopP, "top-p", 0.9, "Top-p for classifier generation")
	flag.IntVar(&flags.MaxTextSize, "max-text-size", 4096, "Maximum message text size to send to classifier")

	// Bedrock flags
	flag.StringVar(&flags.BedrockRegion, "bedrock-region", "us-east-1", "AWS region for Bedrock")
	flag.StringVar(&flags.BedrockModelID, "bedrock-model", "anthropic.claude-v2", "Bedrock model ID")

	// Gemini flags
	flag.StringVar(&flags.GeminiAPIKey, "gemini-api-key", "", "API key for Google Gemini")
	flag.StringVar(&flags.GeminiModelName, "gemini-model", "gemini-pro", "Gemini model name")

	// OpenAI flags
	flag.StringVar(&flags.OpenAIAPIKey, "openai-api-key", "", "API key for OpenAI")
	flag.StringVar(&flags.OpenAIModelName, "openai-model", "gpt-4", "OpenAI model name")

	// Keyword flags
	flag.StringVar(&flags.Keywords, "keywords", "", "Comma-separated flagging keywords (overrides config)")

	// Store flags
	flag.StringVar(&flags.StoreType, "store", "json", "Flag store type (memory, json, sqlite, mysql)")
	flag.StringVar(&flags.StorePath, "store-path", "data", "Directory for the JSON flag store")

	// Browser flags
	flag.StringVar(&flags.BrowserBin, "browser-bin", "", "Browser binary path (auto-detected if empty)")
	flag.BoolVar(&flags.Headed, "headed", false, "Run the browser with a visible window")

	flag.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	flag.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags)")

	flag.Parse()
	return flags
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := config.New()
			if err != nil {
				return nil, err
			}
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
			return cfg, nil
		}

		// Create config from command line flags
		return createConfigFromFlags(flags), nil
	}); err != nil {
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
		return keywords.NewSet(cfg.GetKeywords(), logger)
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

	return container, nil
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	v.Set("browser.headless", !flags.Headed)
	if flags.BrowserBin != "" {
		v.Set("browser.bin", flags.BrowserBin)
	}

	v.Set("scraper.messages_per_contact", flags.Limit)

	// Set classifier provider
	v.Set("classifier.provider", flags.Provider)
	v.Set("classifier.max_text_size", flags.MaxTextSize)

	// Set provider-specific configuration
	switch flags.Provider {
	case "bedrock":
		v.Set("bedrock.region", flags.BedrockRegion)
		v.Set("bedrock.model_id", flags.BedrockModelID)
		v.Set("bedrock.max_tokens", flags.MaxTokens)
		v.Set("bedrock.temperature", flags.Temperature)
		v.Set("bedrock.top_p", flags.TopP)
	case "gemini":
		v.Set("gemini.api_key", flags.GeminiAPIKey)
		v.Set("gemini.model_name", flags.GeminiModelName)
		v.Set("gemini.max_tokens", flags.MaxTokens)
		v.Set("gemini.temperature", flags.Temperature)
		v.Set("gemini.top_p", flags.TopP)
	case "openai":
		v.Set("openai.api_key", flags.OpenAIAPIKey)
		v.Set("openai.model_name", flags.OpenAIModelName)
		v.Set("openai.max_tokens", flags.MaxTokens)
		v.Set("openai.temperature", flags.Temperature)
		v.Set("openai.top_p", flags.TopP)
	}

	if flags.Keywords != "" {
		v.Set("flagging.keywords", splitList(flags.Keywords))
	}

	// Set store configuration
	v.Set("store.type", flags.StoreType)
	v.Set("store.path", flags.StorePath)

	return config.NewFromViper(v)
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
