package flagging

import (
	"context"

	"github.com/google/uuid"
	"github.com/mikey/chat-sentry/internal/core"
	"github.com/mikey/chat-sentry/internal/keywords"
	"go.uber.org/zap"
)

// Pipeline runs the two-stage flagging process: a local keyword pre-filter
// followed by an external classification call. The pre-filter is advisory
// cost control only; the classifier's confirmation is authoritative.
type Pipeline struct {
	classifier core.Classifier
	keywords   *keywords.Set
	logger     *zap.Logger
}

// NewPipeline creates a flagging pipeline
func NewPipeline(classifier core.Classifier, kw *keywords.Set, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		classifier: classifier,
		keywords:   kw,
		logger:     logger,
	}
}

// Flag identifies the scraped messages whose content matches any active
// keyword. Error-tagged records are skipped. On a malformed classifier
// response the batch fails closed: zero flagged messages plus an error
// wrapping core.ErrClassification.
func (p *Pipeline) Flag(ctx context.Context, messages []core.ScrapedMessage) ([]core.FlaggedMessage, error) {
	candidates := make([]core.ScrapedMessage, 0, len(messages))
	anyMatch := false
	for _, msg := range messages {
		if msg.Error {
			continue
		}
		candidates = append(candidates, msg)
		if p.keywords.Matches(msg.Text) {
			anyMatch = true
		}
	}

	// Short-circuit when no active keyword appears anywhere in the batch,
	// bounding the cost of classification calls
	if !anyMatch || len(candidates) == 0 {
		p.logger.Debug("Pre-filter found no keyword matches, skipping classification",
			zap.Int("messages", len(candidates)))
		return nil, nil
	}

	active := p.keywords.Active()
	confirmed, err := p.classifier.FlagMessages(ctx, candidates, active)
	if err != nil {
		p.logger.Error("Classification failed, yielding zero flags", zap.Error(err))
		return nil, err
	}

	// Re-associate returned items to original records by exact
	// (contact, text) match; anything else is discarded, not fabricated
	type originKey struct{ contact, text string }
	originals := make(map[originKey]core.ScrapedMessage, len(candidates))
	for _, msg := range candidates {
		originals[originKey{msg.Contact, msg.Text}] = msg
	}

	var flagged []core.FlaggedMessage
	for _, c := range confirmed {
		origin, ok := originals[originKey{c.Contact, c.Text}]
		if !ok {
			p.logger.Warn("Discarding classifier item with no matching original",
				zap.String("contact", c.Contact))
			continue
		}
		flagged = append(flagged, core.FlaggedMessage{
			ID:        uuid.NewString(),
			Contact:   origin.Contact,
			Text:      origin.Text,
			Timestamp: origin.Timestamp,
		})
	}

	p.logger.Info("Flagging pass complete",
		zap.Int("scraped", len(candidates)),
		zap.Int("flagged", len(flagged)))
	return flagged, nil
}
