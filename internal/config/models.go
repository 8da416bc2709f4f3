package config

import "time"

// BrowserConfig represents the configuration for the automation browser
type BrowserConfig struct {
	URL               string
	Bin               string
	Headless          bool
	NavigationTimeout time.Duration
}

// SessionConfig represents the configuration for the session lifecycle
type SessionConfig struct {
	AuthTimeout     time.Duration
	RestoreWait     time.Duration
	CredentialsPath string
}

// ScraperConfig represents the configuration for the chat scraper
type ScraperConfig struct {
	RenderWait         time.Duration
	MessagesPerContact int
}

// ClassifierConfig represents the configuration for the classifier provider
type ClassifierConfig struct {
	Provider    string
	Timeout     time.Duration
	MaxTextSize int
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// StoreConfig represents the configuration for the flagged-message store
type StoreConfig struct {
	Type       string
	Path       string
	SQLitePath string
	MySQLDSN   string
}

// ServerConfig represents the configuration for the operational HTTP surface
type ServerConfig struct {
	ListenAddress string
}

// GetBrowser returns the browser configuration
func (c *Config) GetBrowser() BrowserConfig {
	navTimeout, err := c.GetDuration("browser.navigation_timeout")
	if err != nil {
		navTimeout = 30 * time.Second
	}
	return BrowserConfig{
		URL:               c.GetString("browser.url"),
		Bin:               c.GetString("browser.bin"),
		Headless:          c.GetBool("browser.headless"),
		NavigationTimeout: navTimeout,
	}
}

// GetSession returns the session lifecycle configuration
func (c *Config) GetSession() SessionConfig {
	authTimeout, err := c.GetDuration("session.auth_timeout")
	if err != nil {
		authTimeout = 120 * time.Second
	}
	restoreWait, err := c.GetDuration("session.restore_wait")
	if err != nil {
		restoreWait = 15 * time.Second
	}
	return SessionConfig{
		AuthTimeout:     authTimeout,
		RestoreWait:     restoreWait,
		CredentialsPath: c.GetString("session.credentials_path"),
	}
}

// GetScraper returns the scraper configuration
func (c *Config) GetScraper() ScraperConfig {
	renderWait, err := c.GetDuration("scraper.render_wait")
	if err != nil {
		renderWait = 10 * time.Second
	}
	return ScraperConfig{
		RenderWait:         renderWait,
		MessagesPerContact: c.GetInt("scraper.messages_per_contact"),
	}
}

// GetClassifier returns the classifier configuration
func (c *Config) GetClassifier() ClassifierConfig {
	timeout, err := c.GetDuration("classifier.timeout")
	if err != nil {
		timeout = 30 * time.Second
	}
	return ClassifierConfig{
		Provider:    c.GetString("classifier.provider"),
		Timeout:     timeout,
		MaxTextSize: c.GetInt("classifier.max_text_size"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
	}
}

// GetStore returns the store configuration
func (c *Config) GetStore() StoreConfig {
	return StoreConfig{
		Type:       c.GetString("store.type"),
		Path:       c.GetString("store.path"),
		SQLitePath: c.GetString("store.sqlite_path"),
		MySQLDSN:   c.GetString("store.mysql_dsn"),
	}
}

// GetServer returns the server configuration
func (c *Config) GetServer() ServerConfig {
	return ServerConfig{
		ListenAddress: c.GetString("server.listen_address"),
	}
}

// GetKeywords returns the configured seed keywords for the flagging pre-filter
func (c *Config) GetKeywords() []string {
	return c.GetStringSlice("flagging.keywords")
}
