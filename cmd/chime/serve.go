package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chimein/chime/internal/channels/discord"
	"github.com/chimein/chime/internal/commands"
	"github.com/chimein/chime/internal/config"
	"github.com/chimein/chime/internal/convo"
	"github.com/chimein/chime/internal/llm"
	"github.com/chimein/chime/internal/logging"
	"github.com/chimein/chime/internal/storage"
)

// buildServeCmd creates the "serve" command that runs the bot.
func buildServeCmd() *cobra.Command {
	var (
		configPath string
		dev        bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the bot",
		Long: `Start the bot with the configured Discord and OpenAI credentials.

The bot will:
1. Load configuration from the specified file (or chime.yaml)
2. Open the document store
3. Connect to the Discord gateway and sync slash commands
4. Route guild messages through the conversation engine

Graceful shutdown is handled on SIGINT/SIGTERM signals.`,
		Example: `  # Start with default config
  chime serve

  # Start with custom config
  chime serve --config /etc/chime/production.yaml

  # Start in dev mode (command cooldowns disabled)
  chime serve --dev`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, dev)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "chime.yaml",
		"Path to YAML configuration file")
	cmd.Flags().BoolVar(&dev, "dev", false,
		"Development mode: disable command cooldowns")

	return cmd
}

func runServe(ctx context.Context, configPath string, dev bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := logging.Setup(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	store, err := storage.Open(cfg.Storage.Path, logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	client := llm.NewClient(cfg.OpenAI.APIKey, logger)

	manager := commands.NewManager(store, commands.Options{
		DevUserIDs:       cfg.Discord.DevUserIDs,
		DisableCooldowns: dev || cfg.Commands.DisableCooldowns,
		Logger:           logger,
	})
	if err := manager.Register(commands.Ping()); err != nil {
		return fmt.Errorf("register commands: %w", err)
	}

	// The adapter and the registry reference each other: the registry sends
	// through the adapter, the adapter feeds inbound messages to the
	// registry. The adapter side is wired after both exist.
	var adapter *discord.Adapter
	registry := convo.NewRegistry(client, lazyChannel{func() *discord.Adapter { return adapter }},
		func() (string, string) { return adapter.Identity() },
		convo.Options{
			Model:             cfg.OpenAI.Model,
			MaxTokens:         cfg.OpenAI.MaxTokens,
			MaxMessages:       cfg.Conversation.MaxMessages,
			TypingInterval:    cfg.Conversation.TypingIntervalDuration(),
			Serialize:         !cfg.Conversation.AllowConcurrent,
			ReplyPrompt:       cfg.Conversation.ReplyPrompt,
			ShouldReplyPrompt: cfg.Conversation.ShouldReplyPrompt,
			Logger:            logger,
		})

	adapter, err = discord.NewAdapter(discord.Config{
		Token:      cfg.Discord.Token,
		AppID:      cfg.Discord.AppID,
		DevGuildID: cfg.Discord.DevGuildID,
		Guilds:     store,
		Logger:     logger,
	}, registry, manager)
	if err != nil {
		return fmt.Errorf("create discord adapter: %w", err)
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := adapter.Start(ctx); err != nil {
		return err
	}

	logger.Info("chime is running", "version", version)
	<-ctx.Done()

	logger.Info("shutdown signal received, initiating graceful shutdown")
	if err := adapter.Stop(); err != nil {
		return err
	}
	return nil
}

// lazyChannel defers channel operations to the adapter, which is
// constructed after the registry that uses it.
type lazyChannel struct {
	get func() *discord.Adapter
}

func (l lazyChannel) Typing(channelID string) error {
	return l.get().Typing(channelID)
}

func (l lazyChannel) Reply(channelID, messageID, content string) error {
	return l.get().Reply(channelID, messageID, content)
}

func (l lazyChannel) ReferencedAuthor(ctx context.Context, channelID, messageID string) (string, error) {
	return l.get().ReferencedAuthor(ctx, channelID, messageID)
}
