package factory

import (
	"fmt"

	"github.com/mikey/chat-sentry/internal/adapters/bedrock"
	"github.com/mikey/chat-sentry/internal/adapters/gemini"
	"github.com/mikey/chat-sentry/internal/adapters/openai"
	"github.com/mikey/chat-sentry/internal/config"
	"github.com/mikey/chat-sentry/internal/core"
	"go.uber.org/zap"
)

// ClassifierFactory creates message classifiers
type ClassifierFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewClassifierFactory creates a new classifier factory
func NewClassifierFactory(cfg *config.Config, logger *zap.Logger) *ClassifierFactory {
	return &ClassifierFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateClassifier creates a classifier based on the configuration
func (f *ClassifierFactory) CreateClassifier() (core.Classifier, error) {
	classifierConfig := f.cfg.GetClassifier()

	switch classifierConfig.Provider {
	case "bedrock":
		factory := bedrock.NewFactory(f.cfg, f.logger)
		return factory.CreateClassifier()
	case "gemini":
		return f.createGeminiClassifier()
	case "openai":
		return f.createOpenAIClassifier()
	default:
		return nil, fmt.Errorf("unsupported classifier provider: %s", classifierConfig.Provider)
	}
}

func (f *ClassifierFactory) createOpenAIClassifier() (core.Classifier, error) {
	openaiConfig := f.cfg.GetOpenAI()
	if openaiConfig.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	return openai.NewClassifier(
		openaiConfig.APIKey,
		openaiConfig.ModelName,
		openaiConfig.MaxTokens,
		openaiConfig.Temperature,
		openaiConfig.TopP,
		f.cfg.GetClassifier().MaxTextSize,
		f.logger,
	), nil
}

func (f *ClassifierFactory) createGeminiClassifier() (core.Classifier, error) {
	geminiConfig := f.cfg.GetGemini()
	if geminiConfig.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	return gemini.NewClassifier(
		geminiConfig.APIKey,
		geminiConfig.ModelName,
		geminiConfig.MaxTokens,
		geminiConfig.Temperature,
		geminiConfig.TopP,
		f.cfg.GetClassifier().MaxTextSize,
		f.logger,
	)
}
