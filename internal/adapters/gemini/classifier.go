package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/mikey/chat-sentry/internal/core"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Classifier is an implementation of the Classifier interface using Google Gemini
type Classifier struct {
	client       *genai.Client
	model        *genai.GenerativeModel
	modelName    string
	maxTextSize  int
	logger       *zap.Logger
	promptFormat string
}

// flagResponse represents the structured response from the LLM
type flagResponse struct {
	Flagged []core.FlaggedCandidate `json:"flagged"`
}

// NewClassifier creates a new Gemini classifier
func NewClassifier(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxTextSize int,
	logger *zap.Logger,
) (*Classifier, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetMaxOutputTokens(int32(maxTokens))

	return &Classifier{
		client:      client,
		model:       model,
		modelName:   modelName,
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
	}, nil
}

// Close closes the Gemini client
func (c *Classifier) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

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

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content with Gemini: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: empty response from Gemini", core.ErrClassification)
	}

	responseText := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])

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
