package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/mikey/chat-sentry/internal/core"
	"go.uber.org/zap"
)

// Classifier is an implementation of the Classifier interface using Amazon Bedrock
type Classifier struct {
	client       *bedrockruntime.Client
	modelID      string
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

// NewClassifier creates a new Bedrock classifier
func NewClassifier(
	client *bedrockruntime.Client,
	modelID string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxTextSize int,
	logger *zap.Logger,
) *Classifier {
	return &Classifier{
		client:      client,
		modelID:     modelID,
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

// isAnthropicModel checks if the model is an Anthropic Claude model
func (c *Classifier) isAnthropicModel() bool {
	return strings.HasPrefix(c.modelID, "anthropic.")
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

	var payload []byte
	var err error
	if c.isAnthropicModel() {
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":               fmt.Sprintf("\n\nHuman: %s\n\nAssistant:", prompt),
			"max_tokens_to_sample": c.maxTokens,
			"temperature":          c.temperature,
			"top_p":                c.topP,
		})
	} else {
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":      prompt,
			"max_tokens":  c.maxTokens,
			"temperature": c.temperature,
			"top_p":       c.topP,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	resp, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &c.modelID,
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke Bedrock model: %w", err)
	}

	var responseText string
	if c.isAnthropicModel() {
		var claudeResp struct {
			Completion string `json:"completion"`
		}
		if err := json.Unmarshal(resp.Body, &claudeResp); err != nil {
			return nil, fmt.Errorf("%w: unmarshal Claude response: %v", core.ErrClassification, err)
		}
		responseText = claudeResp.Completion
	} else {
		var genericResp struct {
			Output   string `json:"output"`
			Text     string `json:"text"`
			Response string `json:"response"`
		}
		if err := json.Unmarshal(resp.Body, &genericResp); err != nil {
			return nil, fmt.Errorf("%w: unmarshal response: %v", core.ErrClassification, err)
		}
		switch {
		case genericResp.Output != "":
			responseText = genericResp.Output
		case genericResp.Text != "":
			responseText = genericResp.Text
		case genericResp.Response != "":
			responseText = genericResp.Response
		default:
			responseText = string(resp.Body)
		}
	}

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
