// Package config loads the bot configuration from a YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chimein/chime/internal/convo"
	"github.com/chimein/chime/internal/memory"
	"github.com/chimein/chime/internal/typing"
)

// Config is the main configuration structure for chime.
type Config struct {
	Discord      DiscordConfig      `yaml:"discord"`
	OpenAI       OpenAIConfig       `yaml:"openai"`
	Conversation ConversationConfig `yaml:"conversation"`
	Commands     CommandsConfig     `yaml:"commands"`
	Storage      StorageConfig      `yaml:"storage"`
	Logging      LoggingConfig      `yaml:"logging"`
}

type DiscordConfig struct {
	Token      string   `yaml:"token"`
	AppID      string   `yaml:"app_id"`
	DevGuildID string   `yaml:"dev_guild_id"`
	DevUserIDs []string `yaml:"dev_user_ids"`
}

type OpenAIConfig struct {
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

type ConversationConfig struct {
	MaxMessages int `yaml:"max_messages"`

	// AllowConcurrent lets pipelines for the same conversation overlap.
	// The default processes each conversation's messages one at a time.
	AllowConcurrent bool `yaml:"allow_concurrent"`

	// TypingInterval is the heartbeat refresh period as a duration string,
	// for example "1s".
	TypingInterval string `yaml:"typing_interval"`

	// ReplyPrompt and ShouldReplyPrompt override the built-in system
	// prompts when set.
	ReplyPrompt       string `yaml:"reply_prompt"`
	ShouldReplyPrompt string `yaml:"should_reply_prompt"`
}

type CommandsConfig struct {
	// DisableCooldowns skips cooldown enforcement, for development.
	DisableCooldowns bool `yaml:"disable_cooldowns"`
}

type StorageConfig struct {
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and parses the configuration file. Environment variable
// references in the file are expanded before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the required fields.
func (c *Config) Validate() error {
	if c.Discord.Token == "" {
		return fmt.Errorf("discord.token is required")
	}
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required")
	}
	if _, err := time.ParseDuration(c.Conversation.TypingInterval); err != nil {
		return fmt.Errorf("invalid conversation.typing_interval: %w", err)
	}
	return nil
}

// TypingIntervalDuration returns the parsed typing interval. Call after
// Validate; an unparseable value falls back to the default.
func (c ConversationConfig) TypingIntervalDuration() time.Duration {
	d, err := time.ParseDuration(c.TypingInterval)
	if err != nil || d <= 0 {
		return typing.DefaultInterval
	}
	return d
}

func applyDefaults(cfg *Config) {
	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = convo.DefaultModel
	}
	if cfg.OpenAI.MaxTokens == 0 {
		cfg.OpenAI.MaxTokens = convo.DefaultMaxTokens
	}
	if cfg.Conversation.MaxMessages == 0 {
		cfg.Conversation.MaxMessages = memory.DefaultMaxMessages
	}
	if cfg.Conversation.TypingInterval == "" {
		cfg.Conversation.TypingInterval = typing.DefaultInterval.String()
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "data.json"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}
