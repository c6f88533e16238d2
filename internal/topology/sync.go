// Package topology reconciles the live guild/channel graph with the store.
package topology

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/beaconlabs/beacon/internal/gateway"
	"github.com/beaconlabs/beacon/internal/store"
)

// Store is the persistence surface topology sync owns. Servers are never
// deleted, only disconnected; channels are mirrored exactly.
type Store interface {
	GetServerByPlatformID(ctx context.Context, platformID string) (store.Server, error)
	CreateServer(ctx context.Context, params store.CreateServerParams) (store.Server, error)
	UpdateServer(ctx context.Context, id int64, params store.UpdateServerParams) (store.Server, error)
	SetServerConnected(ctx context.Context, platformID string, connected bool) error
	GetChannelsByServer(ctx context.Context, serverID int64) ([]store.Channel, error)
	CreateChannel(ctx context.Context, params store.CreateChannelParams) (store.Channel, error)
	UpdateChannel(ctx context.Context, id int64, params store.UpdateChannelParams) (store.Channel, error)
	DeleteChannel(ctx context.Context, id int64) error
}

// Gateway is the read side of the platform session used for reconciliation.
type Gateway interface {
	Guilds() []gateway.GuildInfo
	FetchGuild(ctx context.Context, platformID string) (gateway.GuildInfo, error)
	FetchChannels(ctx context.Context, guildPlatformID string) ([]gateway.ChannelInfo, error)
}

type Synchronizer struct {
	logger  *slog.Logger
	store   Store
	gateway Gateway
}

func NewSynchronizer(log *slog.Logger, st Store, gw Gateway) *Synchronizer {
	if log == nil {
		log = slog.Default()
	}
	return &Synchronizer{
		logger:  log.With(slog.String("component", "topology")),
		store:   st,
		gateway: gw,
	}
}

// SyncAll reconciles every guild the session currently sees. A failure in one
// guild does not stop the others.
func (s *Synchronizer) SyncAll(ctx context.Context) error {
	guilds := s.gateway.Guilds()
	s.logger.Info("sync all", slog.Int("guilds", len(guilds)))

	var errs []error
	for _, guild := range guilds {
		if err := s.SyncServer(ctx, guild); err != nil {
			s.logger.Error("guild sync failed",
				slog.String("guild_id", guild.PlatformID), slog.Any("error", err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SyncServer upserts the server row and mirrors its channels.
func (s *Synchronizer) SyncServer(ctx context.Context, guild gateway.GuildInfo) error {
	// Prefer the full fetch; the event payload can be a partial guild.
	if full, err := s.gateway.FetchGuild(ctx, guild.PlatformID); err == nil {
		guild = full
	} else {
		s.logger.Warn("guild fetch failed, using event payload",
			slog.String("guild_id", guild.PlatformID), slog.Any("error", err))
	}

	var iconURL *string
	if guild.IconURL != "" {
		iconURL = &guild.IconURL
	}
	var memberCount *int32
	if guild.MemberCount > 0 {
		mc := int32(guild.MemberCount)
		memberCount = &mc
	}

	srv, err := s.store.GetServerByPlatformID(ctx, guild.PlatformID)
	switch {
	case err == nil:
		srv, err = s.store.UpdateServer(ctx, srv.ID, store.UpdateServerParams{
			Name:        guild.Name,
			IconURL:     iconURL,
			MemberCount: memberCount,
			IsConnected: true,
		})
		if err != nil {
			return fmt.Errorf("update server %s: %w", guild.PlatformID, err)
		}
	case errors.Is(err, store.ErrNotFound):
		srv, err = s.store.CreateServer(ctx, store.CreateServerParams{
			PlatformID:  guild.PlatformID,
			Name:        guild.Name,
			IconURL:     iconURL,
			MemberCount: memberCount,
		})
		if err != nil {
			return fmt.Errorf("create server %s: %w", guild.PlatformID, err)
		}
		s.logger.Info("server registered",
			slog.String("guild_id", guild.PlatformID), slog.String("name", guild.Name))
	default:
		return fmt.Errorf("lookup server %s: %w", guild.PlatformID, err)
	}

	return s.SyncChannels(ctx, guild.PlatformID, srv.ID)
}

// SyncChannels mirrors the guild's text-like channels: upsert the live set,
// delete local rows the platform no longer has.
func (s *Synchronizer) SyncChannels(ctx context.Context, guildPlatformID string, serverID int64) error {
	live, err := s.gateway.FetchChannels(ctx, guildPlatformID)
	if err != nil {
		return fmt.Errorf("fetch channels: %w", err)
	}

	local, err := s.store.GetChannelsByServer(ctx, serverID)
	if err != nil {
		return fmt.Errorf("list local channels: %w", err)
	}
	localByPlatform := make(map[string]store.Channel, len(local))
	for _, ch := range local {
		localByPlatform[ch.PlatformID] = ch
	}

	surviving := make(map[string]struct{}, len(live))
	for _, ch := range live {
		if !ch.TextLike {
			continue
		}
		surviving[ch.PlatformID] = struct{}{}

		kind := store.ChannelKind(ch.Kind)
		existing, ok := localByPlatform[ch.PlatformID]
		if !ok {
			if _, err := s.store.CreateChannel(ctx, store.CreateChannelParams{
				PlatformID: ch.PlatformID,
				ServerID:   serverID,
				Name:       ch.Name,
				Kind:       kind,
			}); err != nil {
				return fmt.Errorf("create channel %s: %w", ch.PlatformID, err)
			}
			continue
		}
		if existing.Name == ch.Name && existing.Kind == kind {
			continue
		}
		if _, err := s.store.UpdateChannel(ctx, existing.ID, store.UpdateChannelParams{
			Name: ch.Name,
			Kind: kind,
		}); err != nil {
			return fmt.Errorf("update channel %s: %w", ch.PlatformID, err)
		}
	}

	for platformID, ch := range localByPlatform {
		if _, ok := surviving[platformID]; ok {
			continue
		}
		if err := s.store.DeleteChannel(ctx, ch.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("delete channel %s: %w", platformID, err)
		}
		s.logger.Info("channel removed",
			slog.String("channel_id", platformID), slog.Int64("server_id", serverID))
	}
	return nil
}

// MarkServerDisconnected handles guild removal. Channels are kept: logs and
// notification rows may still reference them.
func (s *Synchronizer) MarkServerDisconnected(ctx context.Context, guildPlatformID string) {
	err := s.store.SetServerConnected(ctx, guildPlatformID, false)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.logger.Error("mark disconnected failed",
			slog.String("guild_id", guildPlatformID), slog.Any("error", err))
		return
	}
	s.logger.Info("server disconnected", slog.String("guild_id", guildPlatformID))
}
