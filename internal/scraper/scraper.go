package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mikey/chat-sentry/internal/core"
	"go.uber.org/zap"
)

const selectorMessage = "div.copyable-text[data-pre-plain-text]"

// openConversationJS locates the contact entry in the visible conversation
// list by exact display-name match and clicks it
const openConversationJS = `(name) => {
	const spans = document.querySelectorAll('#pane-side span[title]');
	for (const el of spans) {
		if (el.getAttribute('title') === name) {
			el.click();
			return true;
		}
	}
	return false;
}`

// extractMessagesJS extracts the last N rendered message elements, each with
// its raw text and the vendor metadata string
const extractMessagesJS = `(limit) => {
	const nodes = Array.from(document.querySelectorAll('div.copyable-text[data-pre-plain-text]'));
	return nodes.slice(-limit).map((el) => ({
		text: (el.innerText || '').trim(),
		meta: el.getAttribute('data-pre-plain-text') || ''
	}));
}`

// renderedMessage mirrors the objects produced by extractMessagesJS
type renderedMessage struct {
	Text string `json:"text"`
	Meta string `json:"meta"`
}

// Scraper extracts recent messages for a list of contacts using the active
// session. All work is strictly sequential: the session drives one focused
// conversation view at a time.
type Scraper struct {
	logger     *zap.Logger
	renderWait time.Duration
}

// NewScraper creates a chat scraper
func NewScraper(logger *zap.Logger, renderWait time.Duration) *Scraper {
	if renderWait <= 0 {
		renderWait = 10 * time.Second
	}
	return &Scraper{logger: logger, renderWait: renderWait}
}

// ScrapeContacts extracts the most recent messages for each contact in
// input order. A failure on one contact becomes a single error-tagged
// record; it never aborts the batch.
func (s *Scraper) ScrapeContacts(ctx context.Context, driver core.SessionDriver, contacts []string, messagesPerContact int) []core.ScrapedMessage {
	if messagesPerContact <= 0 {
		messagesPerContact = 10
	}

	var results []core.ScrapedMessage
	for _, contact := range contacts {
		messages, err := s.scrapeContact(ctx, driver, contact, messagesPerContact)
		if err != nil {
			s.logger.Warn("Failed to scrape contact",
				zap.String("contact", contact),
				zap.Error(err))
			results = append(results, core.ScrapedMessage{
				ID:        uuid.NewString(),
				Contact:   contact,
				Text:      fmt.Sprintf("scrape failed: %v", err),
				Timestamp: time.Now(),
				Error:     true,
			})
			continue
		}
		results = append(results, messages...)
	}
	return results
}

// scrapeContact opens one conversation and extracts its rendered messages
func (s *Scraper) scrapeContact(ctx context.Context, driver core.SessionDriver, contact string, limit int) ([]core.ScrapedMessage, error) {
	raw, err := driver.Evaluate(ctx, openConversationJS, contact)
	if err != nil {
		return nil, fmt.Errorf("locate contact: %w", err)
	}
	var found bool
	if err := json.Unmarshal(raw, &found); err != nil {
		return nil, fmt.Errorf("decode contact lookup: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("contact %q not found in conversation list", contact)
	}

	if err := driver.WaitFor(ctx, selectorMessage, s.renderWait); err != nil {
		return nil, fmt.Errorf("conversation did not render: %w", err)
	}

	raw, err = driver.Evaluate(ctx, extractMessagesJS, limit)
	if err != nil {
		return nil, fmt.Errorf("extract messages: %w", err)
	}
	var rendered []renderedMessage
	if err := json.Unmarshal(raw, &rendered); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}

	now := time.Now()
	messages := make([]core.ScrapedMessage, 0, len(rendered))
	for _, r := range rendered {
		// Garbled metadata degrades to the scrape-time instant, never aborts
		ts, ok := parseMessageTime(r.Meta, time.Local)
		if !ok {
			ts = now
			s.logger.Debug("Falling back to scrape-time instant",
				zap.String("contact", contact),
				zap.String("meta", r.Meta))
		}
		messages = append(messages, core.ScrapedMessage{
			ID:        uuid.NewString(),
			Contact:   contact,
			Text:      r.Text,
			Timestamp: ts,
		})
	}

	s.logger.Debug("Scraped contact",
		zap.String("contact", contact),
		zap.Int("messages", len(messages)))
	return messages, nil
}
