package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"chatlink/internal/config"
	"chatlink/internal/linkverify"
	"chatlink/internal/logger"
	"chatlink/internal/models"
)

// The link agent is the client side of the verification protocol: it asks
// the API server for a nonce, shows the deep link and fallback command,
// polls until the bot confirms, and persists its state so an interrupted
// run picks up where it left off.
func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	token := os.Getenv("CHATLINK_TOKEN")
	if token == "" {
		return fmt.Errorf("CHATLINK_TOKEN is required (a logged-in access token)")
	}

	statePath := os.Getenv("CHATLINK_STATE_FILE")
	if statePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to locate home directory: %w", err)
		}
		statePath = filepath.Join(home, ".chatlink", "verify.json")
	}

	client := linkverify.NewClient(cfg.APIBaseURL, token)
	store := linkverify.NewStore(statePath)

	controller := linkverify.NewController(client, store, cfg.Verification, linkverify.Hooks{
		OnPending: func(channel models.ChannelID, state linkverify.State) {
			fmt.Printf("Verifying %s. Open the link below, or send the command to the bot yourself:\n", channel)
			fmt.Printf("  %s\n", state.Pending.DeepLink)
			fmt.Printf("  %s\n", state.Pending.Command)
		},
		OnComplete: func(channel models.ChannelID, link linkverify.LinkInfo) {
			fmt.Printf("%s linked to %s\n", channel, link.ExternalHandle)
		},
	}, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Pick up pending attempts from a previous run before starting new ones.
	if err := controller.Resume(ctx); err != nil {
		return fmt.Errorf("failed to resume verification state: %w", err)
	}

	for _, arg := range os.Args[1:] {
		channel := models.ChannelID(arg)
		if !channel.Valid() {
			return fmt.Errorf("unsupported channel %q", arg)
		}
		state := controller.StateOf(channel)
		if state.Phase == linkverify.PhasePending {
			log.Infof("Verification for %s already in progress", channel)
			continue
		}
		if _, err := controller.Start(ctx, channel); err != nil {
			return fmt.Errorf("failed to start verification for %s: %w", channel, err)
		}
	}

	<-ctx.Done()
	controller.Stop()
	return nil
}
