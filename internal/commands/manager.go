// Package commands registers and dispatches Discord slash commands.
package commands

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/chimein/chime/internal/storage"
)

// Session is the slice of the Discord session the command layer touches.
// It allows for mocking the session in tests.
type Session interface {
	ApplicationCommandBulkOverwrite(appID, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	HeartbeatLatency() time.Duration
}

// Handler executes a slash command.
type Handler func(s Session, i *discordgo.InteractionCreate) error

// Command pairs an application command definition with its handler and
// dispatch policy.
type Command struct {
	Definition *discordgo.ApplicationCommand

	// DevOnly restricts the command to configured developer user ids and
	// registers it only in the dev guild.
	DevOnly bool

	// Cooldown is the minimum time between runs per user. Zero disables
	// the cooldown.
	Cooldown time.Duration

	Handler Handler
}

// Options configures a Manager.
type Options struct {
	// DevUserIDs are the users allowed to run DevOnly commands.
	DevUserIDs []string

	// DisableCooldowns skips cooldown enforcement, for development.
	DisableCooldowns bool

	Logger *slog.Logger
}

// Manager holds the command set and dispatches interactions to it.
type Manager struct {
	mu   sync.RWMutex
	cmds map[string]*Command

	store            *storage.Store
	devUsers         map[string]struct{}
	disableCooldowns bool
	logger           *slog.Logger
}

// NewManager creates an empty manager backed by the given store for
// cooldown persistence.
func NewManager(store *storage.Store, opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	devUsers := make(map[string]struct{}, len(opts.DevUserIDs))
	for _, id := range opts.DevUserIDs {
		devUsers[id] = struct{}{}
	}
	return &Manager{
		cmds:             make(map[string]*Command),
		store:            store,
		devUsers:         devUsers,
		disableCooldowns: opts.DisableCooldowns,
		logger:           opts.Logger.With("component", "commands"),
	}
}

// Register adds a command to the set. Registering a duplicate name is a
// programming error and fails.
func (m *Manager) Register(cmd *Command) error {
	if cmd == nil || cmd.Definition == nil || cmd.Definition.Name == "" {
		return fmt.Errorf("command definition is required")
	}
	if cmd.Handler == nil {
		return fmt.Errorf("command %q has no handler", cmd.Definition.Name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	name := cmd.Definition.Name
	if _, exists := m.cmds[name]; exists {
		return fmt.Errorf("command %q already registered", name)
	}
	m.cmds[name] = cmd
	return nil
}

// Sync pushes the command set to Discord: regular commands globally,
// DevOnly commands into the dev guild. Each scope is a bulk overwrite, so
// removed commands disappear on the next sync.
func (m *Manager) Sync(s Session, appID, devGuildID string) error {
	m.mu.RLock()
	var global, dev []*discordgo.ApplicationCommand
	for _, cmd := range m.cmds {
		if cmd.DevOnly {
			dev = append(dev, cmd.Definition)
		} else {
			global = append(global, cmd.Definition)
		}
	}
	m.mu.RUnlock()

	if _, err := s.ApplicationCommandBulkOverwrite(appID, "", global); err != nil {
		return fmt.Errorf("sync global commands: %w", err)
	}
	m.logger.Info("synced global commands", "count", len(global))

	if devGuildID != "" {
		if _, err := s.ApplicationCommandBulkOverwrite(appID, devGuildID, dev); err != nil {
			return fmt.Errorf("sync dev guild commands: %w", err)
		}
		m.logger.Info("synced dev guild commands", "guild_id", devGuildID, "count", len(dev))
	} else if len(dev) > 0 {
		m.logger.Warn("dev-only commands configured but no dev guild set", "count", len(dev))
	}

	return nil
}

// Dispatch routes an interaction to its command, enforcing the dev gate and
// the per-user cooldown. Handler failures are reported to the user as an
// ephemeral message, never propagated to the gateway handler.
func (m *Manager) Dispatch(s Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	name := i.ApplicationCommandData().Name
	m.mu.RLock()
	cmd, ok := m.cmds[name]
	m.mu.RUnlock()
	if !ok {
		m.logger.Warn("unknown command", "name", name)
		return
	}

	userID := interactionUserID(i)
	log := m.logger.With("command", name, "user_id", userID)

	if cmd.DevOnly {
		if _, allowed := m.devUsers[userID]; !allowed {
			log.Debug("dev-only command denied")
			m.respondEphemeral(s, i, "This command is restricted.", log)
			return
		}
	}

	onCooldown := cmd.Cooldown > 0 && !m.disableCooldowns && userID != ""
	if onCooldown {
		now := time.Now()
		if until := m.store.Cooldown(userID, name); now.Before(until) {
			remaining := until.Sub(now).Round(time.Second)
			log.Debug("command on cooldown", "remaining", remaining)
			m.respondEphemeral(s, i,
				fmt.Sprintf("Please wait, you can use `/%s` again in %s.", name, remaining), log)
			return
		}
	}

	if err := cmd.Handler(s, i); err != nil {
		log.Error("command failed", "error", err)
		m.respondEphemeral(s, i, "There was an error while executing this command!", log)
		return
	}

	// A failed command does not charge the user.
	if onCooldown {
		if err := m.store.SetCooldown(userID, name, time.Now().Add(cmd.Cooldown)); err != nil {
			log.Error("failed to persist cooldown", "error", err)
		}
	}
}

func (m *Manager) respondEphemeral(s Session, i *discordgo.InteractionCreate, content string, log *slog.Logger) {
	if err := RespondEphemeral(s, i, content); err != nil {
		log.Error("failed to respond to interaction", "error", err)
	}
}

// RespondEphemeral answers an interaction with a message only the invoking
// user can see.
func RespondEphemeral(s Session, i *discordgo.InteractionCreate, content string) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

// interactionUserID resolves the invoking user for guild and DM
// interactions.
func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
