// Package gateway wraps the Discord gateway session behind normalized event
// and send primitives. Reconnect handling is delegated to discordgo.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

const readyTimeout = 30 * time.Second

var (
	// ErrTokenMissing reports that DISCORD_BOT_TOKEN was not provided. The
	// runtime treats this as "stay offline", not a crash.
	ErrTokenMissing = errors.New("discord bot token is not configured")
	// ErrOffline reports a send or fetch attempted without a live session.
	ErrOffline = errors.New("discord session is not connected")
)

// GuildInfo is the normalized view of a guild used by topology sync.
type GuildInfo struct {
	PlatformID  string
	Name        string
	IconURL     string
	MemberCount int
}

// ChannelInfo is the normalized view of a guild channel or thread.
type ChannelInfo struct {
	PlatformID string
	Name       string
	Kind       string // "text", "announcement", or "" for untracked kinds
	TextLike   bool
	IsThread   bool
	ParentID   string
}

// Message is the normalized inbound message surfaced to the forwarder path.
type Message struct {
	ID        string
	Content   string
	AuthorID  string
	AuthorBot bool
	GuildID   string
	ChannelID string
	IsThread  bool
	ParentID  string
}

// Status is the read-side projection consumed by the API.
type Status struct {
	Online       bool   `json:"online"`
	IdentityName string `json:"identity_name,omitempty"`
	IdentityID   string `json:"identity_id,omitempty"`
	ServerCount  int    `json:"server_count"`
}

// EventHandler receives normalized gateway events. Handlers run on discordgo's
// event goroutines and must not block for long.
type EventHandler interface {
	HandleGuildCreate(ctx context.Context, guild GuildInfo)
	HandleGuildDelete(ctx context.Context, platformID string)
	HandleMessage(ctx context.Context, msg Message)
}

// Client owns the authenticated Discord session.
type Client struct {
	logger  *slog.Logger
	token   string
	handler EventHandler

	mu      sync.RWMutex
	session *discordgo.Session
	online  bool
}

func NewClient(log *slog.Logger, token string) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		logger: log.With(slog.String("component", "gateway")),
		token:  token,
	}
}

// SetEventHandler must be called before Start.
func (c *Client) SetEventHandler(h EventHandler) {
	c.handler = h
}

// Start connects and blocks until the session reaches Ready (or fails).
// Returns ErrTokenMissing when no token is configured.
func (c *Client) Start(ctx context.Context) error {
	if c.token == "" {
		return ErrTokenMissing
	}

	session, err := discordgo.New("Bot " + c.token)
	if err != nil {
		return fmt.Errorf("create discord session: %w", err)
	}

	// Message content is a privileged intent; without it the forwarder
	// cannot read message bodies.
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent

	ready := make(chan struct{})
	var readyOnce sync.Once
	session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		readyOnce.Do(func() { close(ready) })
	})
	session.AddHandler(c.onGuildCreate)
	session.AddHandler(c.onGuildDelete)
	session.AddHandler(c.onMessageCreate)

	if err := session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}

	select {
	case <-ready:
	case <-ctx.Done():
		session.Close()
		return ctx.Err()
	case <-time.After(readyTimeout):
		session.Close()
		return fmt.Errorf("discord session did not become ready within %s", readyTimeout)
	}

	c.mu.Lock()
	c.session = session
	c.online = true
	c.mu.Unlock()

	c.logger.Info("connected",
		slog.String("identity", session.State.User.Username),
		slog.Int("guilds", len(session.State.Guilds)),
	)
	return nil
}

// Stop tears down the session and releases resources.
func (c *Client) Stop() error {
	c.mu.Lock()
	session := c.session
	c.session = nil
	c.online = false
	c.mu.Unlock()

	if session == nil {
		return nil
	}
	c.logger.Info("disconnecting")
	return session.Close()
}

// Status reports the current session state.
func (c *Client) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.online || c.session == nil || c.session.State == nil || c.session.State.User == nil {
		return Status{}
	}
	return Status{
		Online:       true,
		IdentityName: c.session.State.User.Username,
		IdentityID:   c.session.State.User.ID,
		ServerCount:  len(c.session.State.Guilds),
	}
}

// Guilds snapshots the guilds the session currently sees.
func (c *Client) Guilds() []GuildInfo {
	c.mu.RLock()
	session := c.session
	c.mu.RUnlock()
	if session == nil || session.State == nil {
		return nil
	}

	session.State.RLock()
	defer session.State.RUnlock()
	guilds := make([]GuildInfo, 0, len(session.State.Guilds))
	for _, g := range session.State.Guilds {
		guilds = append(guilds, guildInfo(g))
	}
	return guilds
}

// SendToChannel delivers text to a channel or thread by platform ID. Threads
// are channels on the wire, so one primitive covers both targets.
func (c *Client) SendToChannel(ctx context.Context, platformChannelID, text string) error {
	session, err := c.liveSession()
	if err != nil {
		return err
	}
	if _, err := session.ChannelMessageSend(platformChannelID, text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send to channel %s: %w", platformChannelID, err)
	}
	return nil
}

// FetchGuild resolves the full guild, preferring gateway state over REST.
func (c *Client) FetchGuild(ctx context.Context, platformID string) (GuildInfo, error) {
	session, err := c.liveSession()
	if err != nil {
		return GuildInfo{}, err
	}
	if g, err := session.State.Guild(platformID); err == nil && g.Name != "" {
		return guildInfo(g), nil
	}
	g, err := session.GuildWithCounts(platformID, discordgo.WithContext(ctx))
	if err != nil {
		return GuildInfo{}, fmt.Errorf("fetch guild %s: %w", platformID, err)
	}
	info := guildInfo(g)
	if info.MemberCount == 0 {
		info.MemberCount = g.ApproximateMemberCount
	}
	return info, nil
}

// FetchChannels lists all channels in a guild.
func (c *Client) FetchChannels(ctx context.Context, guildPlatformID string) ([]ChannelInfo, error) {
	session, err := c.liveSession()
	if err != nil {
		return nil, err
	}
	channels, err := session.GuildChannels(guildPlatformID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetch channels for guild %s: %w", guildPlatformID, err)
	}
	infos := make([]ChannelInfo, 0, len(channels))
	for _, ch := range channels {
		infos = append(infos, channelInfo(ch))
	}
	return infos, nil
}

// FetchActiveThreads lists currently active threads in a guild.
func (c *Client) FetchActiveThreads(ctx context.Context, guildPlatformID string) ([]ChannelInfo, error) {
	session, err := c.liveSession()
	if err != nil {
		return nil, err
	}
	list, err := session.GuildThreadsActive(guildPlatformID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetch active threads for guild %s: %w", guildPlatformID, err)
	}
	infos := make([]ChannelInfo, 0, len(list.Threads))
	for _, th := range list.Threads {
		infos = append(infos, channelInfo(th))
	}
	return infos, nil
}

func (c *Client) liveSession() (*discordgo.Session, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.online || c.session == nil {
		return nil, ErrOffline
	}
	return c.session, nil
}

func guildInfo(g *discordgo.Guild) GuildInfo {
	return GuildInfo{
		PlatformID:  g.ID,
		Name:        g.Name,
		IconURL:     g.IconURL(""),
		MemberCount: g.MemberCount,
	}
}

func channelInfo(ch *discordgo.Channel) ChannelInfo {
	info := ChannelInfo{
		PlatformID: ch.ID,
		Name:       ch.Name,
		IsThread:   ch.IsThread(),
		ParentID:   ch.ParentID,
	}
	switch ch.Type {
	case discordgo.ChannelTypeGuildText:
		info.Kind = "text"
		info.TextLike = true
	case discordgo.ChannelTypeGuildNews:
		info.Kind = "announcement"
		info.TextLike = true
	}
	return info
}
