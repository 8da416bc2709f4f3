package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mikey/chat-sentry/internal/core"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Classifier is an implementation of the Classifier interface using OpenAI
type Classifier struct {
	client       *openai.Client
	modelName    string
	maxTokens    int
	temperature  float32
	topP         float32
	maxTextSize  int
	logger       *zap.Logger
	promptFormat string
}

// flagResponse represents the structured response from the LLM
type flagResponse struct {
	Flagged []core.FlaggedCandidate `json:"flagged"`
}

// NewClassifier creates a new OpenAI classifier
func NewClassifier(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxTextSize int,
	logger *zap.Logger,
) *Classifier {
	client := openai.NewClient(apiKey)

	return &Classifier{
		client:      client,
		modelName:   modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
		topP:        topP,
		maxTextSize: maxTextSize,
		logger:      logger,
		promptFormat: `You are a scheduling-intent detector for chat messages. You are given a keyword list and a batch of messages, each with an identifier, a contact name and the message text.
Respond with a JSON object of the form:
{"flagged": [{"contact": "<contact name>", "text": "<original message text>"}]}
Include exactly the subset of input messages whose content matches any keyword. Repeat the contact name and the message text unchanged. If nothing matches, return {"flagged": []}.

Keywords:
%s

Messages:
%s

Respond only with the JSON object and nothing else.`,
	}
}

// formatBatch renders the message batch for the prompt, one message per
// line, text bounded by the configured size limit
func (c *Classifier) formatBatch(messages []core.ScrapedMessage) string {
	var b strings.Builder
	for _, msg := range messages {
		fmt.Fprintf(&b, "[%s] %s: %s\n", msg.ID, msg.Contact, core.TruncateText(msg.Text, c.maxTextSize))
	}
	return b.String()
}

// FlagMessages asks the model which messages match the keywords
func (c *Classifier) FlagMessages(ctx context.Context, messages []core.ScrapedMessage, keywords []string) ([]core.FlaggedCandidate, error) {
	prompt := fmt.Sprintf(c.promptFormat, strings.Join(keywords, ", "), c.formatBatch(messages))

	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a scheduling-intent detector. Respond only with JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
	}

	responseFormat := openai.ChatCompletionResponseFormat{
		Type: "json",
	}
	req.ResponseFormat = &responseFormat

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response from OpenAI", core.ErrClassification)
	}

	return parseFlagResponse(resp.Choices[0].Message.Content)
}

// parseFlagResponse parses the model's JSON reply, falling back to
// extracting the first JSON object embedded in surrounding text. Anything
// that cannot be parsed as the expected structure is a classification error.
func parseFlagResponse(responseText string) ([]core.FlaggedCandidate, error) {
	var parsed flagResponse
	if err := json.Unmarshal([]byte(responseText), &parsed); err != nil {
		jsonStart := strings.IndexByte(responseText, '{')
		jsonEnd := strings.LastIndexByte(responseText, '}')
		if jsonStart < 0 || jsonEnd < jsonStart {
			return nil, fmt.Errorf("%w: no JSON object in response", core.ErrClassification)
		}
		if err := json.Unmarshal([]byte(responseText[jsonStart:jsonEnd+1]), &parsed); err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrClassification, err)
		}
	}
	return parsed.Flagged, nil
}
