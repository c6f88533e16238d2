package gateway

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

func (c *Client) onGuildCreate(s *discordgo.Session, e *discordgo.GuildCreate) {
	if c.handler == nil || e.Guild == nil {
		return
	}
	c.logger.Info("guild available", slog.String("guild_id", e.ID), slog.String("name", e.Name))
	c.handler.HandleGuildCreate(context.Background(), guildInfo(e.Guild))
}

func (c *Client) onGuildDelete(s *discordgo.Session, e *discordgo.GuildDelete) {
	if c.handler == nil || e.Guild == nil {
		return
	}
	// Unavailable means an outage, not a removal; the guild comes back with
	// another GuildCreate.
	if e.Unavailable {
		return
	}
	c.logger.Info("guild removed", slog.String("guild_id", e.ID))
	c.handler.HandleGuildDelete(context.Background(), e.ID)
}

func (c *Client) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if c.handler == nil || m.Author == nil {
		return
	}

	msg := Message{
		ID:        m.ID,
		Content:   m.Content,
		AuthorID:  m.Author.ID,
		AuthorBot: m.Author.Bot,
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
	}

	if ch := c.resolveChannel(s, m.ChannelID); ch != nil && ch.IsThread() {
		msg.IsThread = true
		msg.ParentID = ch.ParentID
	}

	c.handler.HandleMessage(context.Background(), msg)
}

// resolveChannel prefers session state; thread channels seen mid-session may
// need a REST lookup.
func (c *Client) resolveChannel(s *discordgo.Session, channelID string) *discordgo.Channel {
	if ch, err := s.State.Channel(channelID); err == nil {
		return ch
	}
	ch, err := s.Channel(channelID)
	if err != nil {
		c.logger.Debug("channel lookup failed", slog.String("channel_id", channelID), slog.Any("error", err))
		return nil
	}
	return ch
}
