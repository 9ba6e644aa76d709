// Package discord connects the conversation engine to the Discord gateway.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/chimein/chime/internal/commands"
	"github.com/chimein/chime/internal/storage"
	"github.com/chimein/chime/pkg/models"
)

// discordSession interface allows for mocking the Discord session in tests.
type discordSession interface {
	Open() error
	Close() error
	AddHandler(handler interface{}) func()
	ChannelTyping(channelID string, options ...discordgo.RequestOption) error
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendReply(channelID, content string, reference *discordgo.MessageReference, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ApplicationCommandBulkOverwrite(appID, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	HeartbeatLatency() time.Duration
}

// MessageHandler consumes normalized inbound guild messages.
type MessageHandler interface {
	HandleMessage(ctx context.Context, in models.Inbound) error
}

// GuildRecorder persists per-guild facts. *storage.Store implements it.
type GuildRecorder interface {
	Guild(guildID string) (storage.GuildRecord, bool)
	UpdateGuild(guildID string, fn func(*storage.GuildRecord)) error
}

// Config holds configuration for the Discord adapter.
type Config struct {
	// Token is the bot token from the Discord Developer Portal (required).
	Token string

	// AppID is the application id used for slash-command registration.
	AppID string

	// DevGuildID is the guild that receives dev-only slash commands.
	DevGuildID string

	// MaxConnectAttempts bounds connection retries at startup.
	MaxConnectAttempts int

	// ConnectBackoff caps the backoff between connection attempts.
	ConnectBackoff time.Duration

	// Guilds, when set, records guilds the bot joins.
	Guilds GuildRecorder

	// Logger is an optional slog.Logger instance.
	Logger *slog.Logger
}

// Validate checks if the configuration is valid and applies defaults.
func (c *Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("token is required")
	}
	if c.MaxConnectAttempts == 0 {
		c.MaxConnectAttempts = 5
	}
	if c.ConnectBackoff == 0 {
		c.ConnectBackoff = 60 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return nil
}

// Adapter owns the gateway session. It forwards guild messages to a
// MessageHandler, routes interactions to the command manager, and exposes
// the outbound operations the conversation engine needs.
type Adapter struct {
	config   Config
	session  discordSession
	handler  MessageHandler
	commands *commands.Manager
	logger   *slog.Logger

	mu        sync.RWMutex
	connected bool
	selfName  string
	selfID    string

	ctx    context.Context
	cancel context.CancelFunc
}

// NewAdapter creates a Discord adapter. The handler receives every inbound
// guild message; the command manager, every slash-command interaction.
// Either may be nil to disable that path.
func NewAdapter(config Config, handler MessageHandler, cmds *commands.Manager) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Adapter{
		config:   config,
		handler:  handler,
		commands: cmds,
		logger:   config.Logger.With("adapter", "discord"),
	}, nil
}

// Start opens the gateway connection and registers event handlers.
func (a *Adapter) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.connected {
		return fmt.Errorf("adapter already started")
	}

	if a.session == nil {
		dg, err := discordgo.New("Bot " + a.config.Token)
		if err != nil {
			return fmt.Errorf("create discord session: %w", err)
		}
		dg.Identify.Intents = discordgo.IntentsGuilds |
			discordgo.IntentsGuildMembers |
			discordgo.IntentsGuildMessages |
			discordgo.IntentMessageContent
		a.session = dg
	}

	// The gateway can dispatch events as soon as the handshake completes,
	// which may be before connectWithRetry returns. The context must exist
	// before any handler is registered.
	a.ctx, a.cancel = context.WithCancel(ctx)

	a.session.AddHandler(a.handleReady)
	a.session.AddHandler(a.handleGuildCreate)
	a.session.AddHandler(a.handleMessageCreate)
	a.session.AddHandler(a.handleInteractionCreate)

	if err := a.connectWithRetry(ctx); err != nil {
		a.cancel()
		return fmt.Errorf("connect to discord: %w", err)
	}

	a.connected = true
	a.logger.Info("discord adapter started")
	return nil
}

// Stop closes the gateway connection.
func (a *Adapter) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.connected {
		return nil
	}
	if a.cancel != nil {
		a.cancel()
	}
	if err := a.session.Close(); err != nil {
		a.logger.Error("failed to close discord session", "error", err)
		return fmt.Errorf("close discord session: %w", err)
	}
	a.connected = false
	a.logger.Info("discord adapter stopped")
	return nil
}

func (a *Adapter) connectWithRetry(ctx context.Context) error {
	var err error
	for attempt := 0; attempt < a.config.MaxConnectAttempts; attempt++ {
		a.logger.Info("connecting to discord",
			"attempt", attempt+1, "max_attempts", a.config.MaxConnectAttempts)

		if err = a.session.Open(); err == nil {
			return nil
		}

		backoff := calculateBackoff(attempt, a.config.ConnectBackoff)
		a.logger.Warn("connection failed, retrying",
			"error", err, "backoff_ms", backoff.Milliseconds())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("failed to connect after %d attempts: %w", a.config.MaxConnectAttempts, err)
}

func calculateBackoff(attempt int, maxWait time.Duration) time.Duration {
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > maxWait {
		backoff = maxWait
	}
	return backoff
}

// Identity reports the bot's current display name and user id. Both are
// empty until the gateway ready event arrives.
func (a *Adapter) Identity() (name, id string) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.selfName, a.selfID
}

// Typing shows the typing indicator in a channel. Discord clears it after a
// few seconds, so callers refresh it while work is in flight.
func (a *Adapter) Typing(channelID string) error {
	return a.session.ChannelTyping(channelID)
}

// Reply sends content as a reply to the given message.
func (a *Adapter) Reply(channelID, messageID, content string) error {
	_, err := a.session.ChannelMessageSendReply(channelID, content, &discordgo.MessageReference{
		MessageID: messageID,
		ChannelID: channelID,
	})
	if err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}

// ReferencedAuthor fetches the display name of the author of a message.
func (a *Adapter) ReferencedAuthor(ctx context.Context, channelID, messageID string) (string, error) {
	msg, err := a.session.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("fetch message %s: %w", messageID, err)
	}
	if msg == nil || msg.Author == nil {
		return "", nil
	}
	return displayName(msg.Author), nil
}

// Event handlers

func (a *Adapter) handleReady(s *discordgo.Session, r *discordgo.Ready) {
	a.mu.Lock()
	a.selfName = displayName(r.User)
	a.selfID = r.User.ID
	a.mu.Unlock()

	a.logger.Info(fmt.Sprintf("%s is online", tag(r.User)),
		"user_id", r.User.ID, "guilds", len(r.Guilds))

	if a.commands != nil && a.config.AppID != "" {
		if err := a.commands.Sync(a.session, a.config.AppID, a.config.DevGuildID); err != nil {
			a.logger.Error("failed to sync slash commands", "error", err)
		}
	}
}

func (a *Adapter) handleGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if a.config.Guilds == nil || g.Guild == nil {
		return
	}
	if _, known := a.config.Guilds.Guild(g.ID); known {
		return
	}
	if err := a.config.Guilds.UpdateGuild(g.ID, func(rec *storage.GuildRecord) {
		rec.JoinedAt = time.Now().UTC()
	}); err != nil {
		a.logger.Error("failed to record guild", "guild_id", g.ID, "error", err)
		return
	}
	a.logger.Info("joined guild", "guild_id", g.ID, "name", g.Name)
}

func (a *Adapter) handleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if a.handler == nil || m.Author == nil || m.Author.Bot {
		return
	}
	// Direct messages have no guild and no conversation.
	if m.GuildID == "" {
		return
	}

	in := models.Inbound{
		GuildID:    m.GuildID,
		ChannelID:  m.ChannelID,
		MessageID:  m.ID,
		AuthorID:   m.Author.ID,
		AuthorName: displayName(m.Author),
		Content:    m.Content,
	}
	for _, att := range m.Attachments {
		in.Attachments = append(in.Attachments, models.Attachment{
			URL:         att.URL,
			ContentType: att.ContentType,
		})
	}
	if m.MessageReference != nil {
		in.ReferenceID = m.MessageReference.MessageID
	}

	if err := a.handler.HandleMessage(a.handlerContext(), in); err != nil {
		a.logger.Error("message handling failed",
			"guild_id", in.GuildID, "message_id", in.MessageID, "error", err)
	}
}

// handlerContext is the lifetime context handed to event processing. It is
// assigned in Start before any handler registration, so registered handlers
// always observe it; the fallback covers direct calls outside that
// lifecycle.
func (a *Adapter) handlerContext() context.Context {
	if ctx := a.ctx; ctx != nil {
		return ctx
	}
	return context.Background()
}

func (a *Adapter) handleInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if a.commands == nil {
		return
	}
	a.commands.Dispatch(a.session, i)
}

// displayName prefers the global display name over the legacy username.
func displayName(u *discordgo.User) string {
	if u == nil {
		return ""
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

// tag renders the user the way Discord displays it in logs.
func tag(u *discordgo.User) string {
	if u == nil {
		return "unknown"
	}
	if u.Discriminator != "" && u.Discriminator != "0" {
		return u.Username + "#" + u.Discriminator
	}
	return u.Username
}
