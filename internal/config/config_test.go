package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	cfg, err := New()
	require.NoError(t, err)

	browser := cfg.GetBrowser()
	assert.Equal(t, "https://web.whatsapp.com", browser.URL)
	assert.True(t, browser.Headless)

	session := cfg.GetSession()
	assert.Equal(t, 120*time.Second, session.AuthTimeout)
	assert.Equal(t, 15*time.Second, session.RestoreWait)
	assert.Equal(t, "data/credentials.json", session.CredentialsPath)

	scraper := cfg.GetScraper()
	assert.Equal(t, 10, scraper.MessagesPerContact)

	classifier := cfg.GetClassifier()
	assert.Equal(t, "openai", classifier.Provider)
	assert.Equal(t, 2048, classifier.MaxTextSize)

	store := cfg.GetStore()
	assert.Equal(t, "json", store.Type)

	assert.Equal(t, "0.0.0.0:8080", cfg.GetServer().ListenAddress)
	assert.NotEmpty(t, cfg.GetKeywords())
}

func TestNew_EnvironmentOverride(t *testing.T) {
	t.Setenv("CHAT_SENTRY_CLASSIFIER_PROVIDER", "gemini")
	t.Setenv("CHAT_SENTRY_STORE_TYPE", "memory")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.GetClassifier().Provider)
	assert.Equal(t, "memory", cfg.GetStore().Type)
}

func TestNewFromViper(t *testing.T) {
	v := NewEmptyViper()
	v.Set("classifier.provider", "bedrock")
	v.Set("flagging.keywords", []string{"lunch"})

	cfg := NewFromViper(v)
	assert.Equal(t, "bedrock", cfg.GetClassifier().Provider)
	assert.Equal(t, []string{"lunch"}, cfg.GetKeywords())
}
