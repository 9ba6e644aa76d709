// Package main provides the CLI entry point for the chime Discord bot.
//
// chime joins Discord guilds and holds one conversation per guild: inbound
// messages enter a bounded memory, a model decides whether the bot should
// engage, and engaged messages get a structured, step-by-step reply.
//
// # Basic Usage
//
// Start the bot:
//
//	chime serve --config chime.yaml
//
// # Environment Variables
//
// Values in the config file may reference environment variables, which are
// expanded at load time. A .env file next to the binary is loaded if
// present.
//
//   - DISCORD_BOT_TOKEN: Discord bot token
//   - OPENAI_API_KEY: OpenAI API key
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Build information - populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// .env is optional; missing files are fine.
	_ = godotenv.Load()

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
// This is separated from main() to facilitate testing.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "chime",
		Short:        "chime - Conversational Discord bot",
		Long:         `chime connects Discord guilds to an OpenAI model, with per-guild conversation memory and a reply policy that keeps the bot quiet unless addressed.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(buildServeCmd())
	return rootCmd
}
