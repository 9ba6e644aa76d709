package commands

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Ping reports the gateway heartbeat latency.
func Ping() *Command {
	return &Command{
		Definition: &discordgo.ApplicationCommand{
			Name:        "ping",
			Description: "Replies with the gateway latency",
		},
		Cooldown: 5 * time.Second,
		Handler: func(s Session, i *discordgo.InteractionCreate) error {
			ms := s.HeartbeatLatency().Milliseconds()
			return RespondEphemeral(s, i, fmt.Sprintf("Pong! %dms", ms))
		},
	}
}
