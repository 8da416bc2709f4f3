package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mikey/chat-sentry/internal/core"
	"github.com/mikey/chat-sentry/internal/session"
	"go.uber.org/zap"
)

const (
	selectorComposer   = `div[contenteditable="true"][data-tab="10"]`
	selectorSendButton = `span[data-icon="send"]`
)

// insertTextJS types the outbound text into the focused composer
const insertTextJS = `(text) => {
	const el = document.querySelector('div[contenteditable="true"][data-tab="10"]');
	if (!el) return false;
	el.focus();
	document.execCommand('insertText', false, text);
	return true;
}`

// Dispatcher sends a single message to a target contact. It always opens
// its own session and unconditionally tears it down afterward, so a failed
// send never leaves the shared session resource held.
type Dispatcher struct {
	manager    *session.Manager
	logger     *zap.Logger
	baseURL    string
	renderWait time.Duration
}

// NewDispatcher creates an outbound dispatcher
func NewDispatcher(manager *session.Manager, logger *zap.Logger, baseURL string, renderWait time.Duration) *Dispatcher {
	if renderWait <= 0 {
		renderWait = 10 * time.Second
	}
	return &Dispatcher{
		manager:    manager,
		logger:     logger,
		baseURL:    strings.TrimRight(baseURL, "/"),
		renderWait: renderWait,
	}
}

// digitsOnly strips everything but digits from a phone identifier
func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Send delivers one message to the given phone number or contact id
func (d *Dispatcher) Send(ctx context.Context, contact, text string) error {
	handle, err := d.manager.Begin(ctx, nil)
	if err != nil {
		if errors.Is(err, core.ErrAlreadyActive) {
			return fmt.Errorf("%w: another operation holds the session", core.ErrNoSession)
		}
		return fmt.Errorf("%w: %v", core.ErrNoSession, err)
	}
	// Teardown on all paths, including send failures
	defer d.manager.End(handle)

	if err := d.send(ctx, handle.Driver(), contact, text); err != nil {
		d.logger.Error("Send failed",
			zap.String("contact", contact),
			zap.Error(err))
		return fmt.Errorf("%w: %v", core.ErrDriverFailure, err)
	}

	d.logger.Info("Message dispatched", zap.String("contact", contact))
	return nil
}

func (d *Dispatcher) send(ctx context.Context, driver core.SessionDriver, contact, text string) error {
	target := fmt.Sprintf("%s/send?phone=%s", d.baseURL, digitsOnly(contact))
	if err := driver.NavigateTo(ctx, target); err != nil {
		return fmt.Errorf("navigate to conversation: %w", err)
	}

	if err := driver.WaitFor(ctx, selectorComposer, d.renderWait); err != nil {
		return fmt.Errorf("composer did not render: %w", err)
	}

	raw, err := driver.Evaluate(ctx, insertTextJS, text)
	if err != nil {
		return fmt.Errorf("insert text: %w", err)
	}
	var ok bool
	if err := json.Unmarshal(raw, &ok); err != nil || !ok {
		return fmt.Errorf("composer rejected text input")
	}

	if err := driver.Click(ctx, selectorSendButton); err != nil {
		return fmt.Errorf("click send: %w", err)
	}
	return nil
}
