package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mdp/qrterminal/v3"
	"github.com/mikey/chat-sentry/internal/core"
	"github.com/mikey/chat-sentry/internal/di"
	"github.com/mikey/chat-sentry/internal/dispatch"
	"github.com/mikey/chat-sentry/internal/flagging"
	"github.com/mikey/chat-sentry/internal/scraper"
	"github.com/mikey/chat-sentry/internal/session"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	flags := di.ParseFlags()

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run executes a single scrape or send pass and exits
func run(
	flags *di.CLIFlags,
	logger *zap.Logger,
	manager *session.Manager,
	scr *scraper.Scraper,
	pipeline *flagging.Pipeline,
	dispatcher *dispatch.Dispatcher,
	store core.FlagStore,
	classifier core.Classifier,
) error {
	defer logger.Sync()
	defer func() {
		if closer, ok := classifier.(interface{ Close() error }); ok {
			closer.Close()
		}
		if closer, ok := store.(interface{ Close() error }); ok {
			closer.Close()
		}
	}()

	ctx := context.Background()

	if flags.SendPhone != "" {
		if flags.SendText == "" {
			return fmt.Errorf("-send-text is required with -send-phone")
		}
		if err := dispatcher.Send(ctx, flags.SendPhone, flags.SendText); err != nil {
			return fmt.Errorf("send failed: %w", err)
		}
		logger.Info("Message dispatched", zap.String("phone", flags.SendPhone))
		return nil
	}

	if flags.Contacts == "" {
		return fmt.Errorf("either -contacts or -send-phone is required")
	}
	contacts := splitContacts(flags.Contacts)

	handle, err := manager.Begin(ctx, func(payload string) {
		fmt.Fprintln(os.Stderr, "Scan this code to authenticate:")
		qrterminal.GenerateHalfBlock(payload, qrterminal.L, os.Stderr)
	})
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	defer manager.End(handle)

	scraped := scr.ScrapeContacts(ctx, handle.Driver(), contacts, flags.Limit)
	logger.Info("Scrape complete", zap.Int("messages", len(scraped)))

	flagged, err := pipeline.Flag(ctx, scraped)
	if err != nil {
		logger.Warn("Flagging batch failed closed", zap.Error(err))
		flagged = nil
	}

	history, err := store.MergeFlagged(ctx, flagged)
	if err != nil {
		return fmt.Errorf("failed to merge flagged messages: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Scraped int                   `json:"scraped"`
		Flagged int                   `json:"flagged"`
		History []core.FlaggedMessage `json:"history"`
	}{len(scraped), len(flagged), history})
}

func splitContacts(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
