package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chime.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
discord:
  token: abc
openai:
  api_key: sk-test
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.OpenAI.Model != "gpt-4o-mini" {
		t.Errorf("Model = %q", cfg.OpenAI.Model)
	}
	if cfg.OpenAI.MaxTokens != 500 {
		t.Errorf("MaxTokens = %d", cfg.OpenAI.MaxTokens)
	}
	if cfg.Conversation.MaxMessages != 50 {
		t.Errorf("MaxMessages = %d", cfg.Conversation.MaxMessages)
	}
	if cfg.Conversation.TypingIntervalDuration() != time.Second {
		t.Errorf("TypingInterval = %v", cfg.Conversation.TypingInterval)
	}
	if cfg.Conversation.AllowConcurrent {
		t.Error("AllowConcurrent should default to false")
	}
	if cfg.Storage.Path != "data.json" {
		t.Errorf("Storage.Path = %q", cfg.Storage.Path)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("CHIME_TEST_TOKEN", "tok-123")
	path := writeConfig(t, `
discord:
  token: ${CHIME_TEST_TOKEN}
openai:
  api_key: sk-test
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Discord.Token != "tok-123" {
		t.Errorf("Token = %q, want expanded value", cfg.Discord.Token)
	}
}

func TestLoad_RequiresToken(t *testing.T) {
	path := writeConfig(t, `
openai:
  api_key: sk-test
`)
	if _, err := Load(path); err == nil {
		t.Error("expected error for missing discord token")
	}
}

func TestLoad_RequiresAPIKey(t *testing.T) {
	path := writeConfig(t, `
discord:
  token: abc
`)
	if _, err := Load(path); err == nil {
		t.Error("expected error for missing openai api key")
	}
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
discord:
  token: abc
  app_id: "123"
  dev_guild_id: "456"
  dev_user_ids: ["u1", "u2"]
openai:
  api_key: sk-test
  model: gpt-4o
  max_tokens: 900
conversation:
  max_messages: 10
  allow_concurrent: true
  typing_interval: 2s
  reply_prompt: custom reply
  should_reply_prompt: custom policy
commands:
  disable_cooldowns: true
storage:
  path: /var/lib/chime/data.json
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Discord.AppID != "123" || cfg.Discord.DevGuildID != "456" {
		t.Errorf("Discord = %+v", cfg.Discord)
	}
	if len(cfg.Discord.DevUserIDs) != 2 {
		t.Errorf("DevUserIDs = %v", cfg.Discord.DevUserIDs)
	}
	if cfg.OpenAI.Model != "gpt-4o" || cfg.OpenAI.MaxTokens != 900 {
		t.Errorf("OpenAI = %+v", cfg.OpenAI)
	}
	if cfg.Conversation.MaxMessages != 10 || !cfg.Conversation.AllowConcurrent {
		t.Errorf("Conversation = %+v", cfg.Conversation)
	}
	if cfg.Conversation.TypingIntervalDuration() != 2*time.Second {
		t.Errorf("TypingInterval = %v", cfg.Conversation.TypingInterval)
	}
	if cfg.Conversation.ReplyPrompt != "custom reply" {
		t.Errorf("ReplyPrompt = %q", cfg.Conversation.ReplyPrompt)
	}
	if !cfg.Commands.DisableCooldowns {
		t.Error("DisableCooldowns not parsed")
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoad_RejectsBadTypingInterval(t *testing.T) {
	path := writeConfig(t, `
discord:
  token: abc
openai:
  api_key: sk-test
conversation:
  typing_interval: banana
`)
	if _, err := Load(path); err == nil {
		t.Error("expected error for unparseable typing interval")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
