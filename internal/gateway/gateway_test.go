package gateway

import (
	"context"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartWithoutToken(t *testing.T) {
	t.Parallel()

	c := NewClient(nil, "")
	err := c.Start(context.Background())
	require.ErrorIs(t, err, ErrTokenMissing)
}

func TestOfflineClientRefusesSends(t *testing.T) {
	t.Parallel()

	c := NewClient(nil, "token")
	err := c.SendToChannel(context.Background(), "chan-1", "hi")
	require.ErrorIs(t, err, ErrOffline)

	_, err = c.FetchChannels(context.Background(), "guild-1")
	require.ErrorIs(t, err, ErrOffline)

	status := c.Status()
	assert.False(t, status.Online)
	assert.Zero(t, status.ServerCount)
	assert.Nil(t, c.Guilds())
}

func TestChannelInfoMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		channel  *discordgo.Channel
		wantKind string
		wantText bool
	}{
		{
			name:     "guild text",
			channel:  &discordgo.Channel{ID: "c1", Name: "general", Type: discordgo.ChannelTypeGuildText},
			wantKind: "text",
			wantText: true,
		},
		{
			name:     "announcement",
			channel:  &discordgo.Channel{ID: "c2", Name: "news", Type: discordgo.ChannelTypeGuildNews},
			wantKind: "announcement",
			wantText: true,
		},
		{
			name:     "voice is untracked",
			channel:  &discordgo.Channel{ID: "c3", Name: "voice", Type: discordgo.ChannelTypeGuildVoice},
			wantKind: "",
			wantText: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			info := channelInfo(tt.channel)
			assert.Equal(t, tt.channel.ID, info.PlatformID)
			assert.Equal(t, tt.wantKind, info.Kind)
			assert.Equal(t, tt.wantText, info.TextLike)
		})
	}
}

func TestChannelInfoThread(t *testing.T) {
	t.Parallel()

	ch := &discordgo.Channel{
		ID:       "t1",
		Name:     "incident-123",
		Type:     discordgo.ChannelTypeGuildPublicThread,
		ParentID: "c1",
	}
	info := channelInfo(ch)
	require.True(t, info.IsThread)
	assert.Equal(t, "c1", info.ParentID)
}
