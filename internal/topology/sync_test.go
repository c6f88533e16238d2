package topology

import (
	"context"
	"errors"
	"testing"

	"github.com/beaconlabs/beacon/internal/gateway"
	"github.com/beaconlabs/beacon/internal/store"
)

type fakeTopologyStore struct {
	servers    map[string]store.Server
	channels   map[int64][]store.Channel
	nextID     int64
	deletedIDs []int64
}

func newFakeTopologyStore() *fakeTopologyStore {
	return &fakeTopologyStore{
		servers:  map[string]store.Server{},
		channels: map[int64][]store.Channel{},
		nextID:   1,
	}
}

func (f *fakeTopologyStore) GetServerByPlatformID(ctx context.Context, platformID string) (store.Server, error) {
	srv, ok := f.servers[platformID]
	if !ok {
		return store.Server{}, store.ErrNotFound
	}
	return srv, nil
}

func (f *fakeTopologyStore) CreateServer(ctx context.Context, params store.CreateServerParams) (store.Server, error) {
	srv := store.Server{
		ID:          f.nextID,
		PlatformID:  params.PlatformID,
		Name:        params.Name,
		IconURL:     params.IconURL,
		MemberCount: params.MemberCount,
		IsConnected: true,
	}
	f.nextID++
	f.servers[params.PlatformID] = srv
	return srv, nil
}

func (f *fakeTopologyStore) UpdateServer(ctx context.Context, id int64, params store.UpdateServerParams) (store.Server, error) {
	for platformID, srv := range f.servers {
		if srv.ID == id {
			srv.Name = params.Name
			srv.IconURL = params.IconURL
			srv.MemberCount = params.MemberCount
			srv.IsConnected = params.IsConnected
			f.servers[platformID] = srv
			return srv, nil
		}
	}
	return store.Server{}, store.ErrNotFound
}

func (f *fakeTopologyStore) SetServerConnected(ctx context.Context, platformID string, connected bool) error {
	srv, ok := f.servers[platformID]
	if !ok {
		return store.ErrNotFound
	}
	srv.IsConnected = connected
	f.servers[platformID] = srv
	return nil
}

func (f *fakeTopologyStore) GetChannelsByServer(ctx context.Context, serverID int64) ([]store.Channel, error) {
	return f.channels[serverID], nil
}

func (f *fakeTopologyStore) CreateChannel(ctx context.Context, params store.CreateChannelParams) (store.Channel, error) {
	ch := store.Channel{
		ID:         f.nextID,
		PlatformID: params.PlatformID,
		ServerID:   params.ServerID,
		Name:       params.Name,
		Kind:       params.Kind,
	}
	f.nextID++
	f.channels[params.ServerID] = append(f.channels[params.ServerID], ch)
	return ch, nil
}

func (f *fakeTopologyStore) UpdateChannel(ctx context.Context, id int64, params store.UpdateChannelParams) (store.Channel, error) {
	for serverID, list := range f.channels {
		for i, ch := range list {
			if ch.ID == id {
				ch.Name = params.Name
				ch.Kind = params.Kind
				f.channels[serverID][i] = ch
				return ch, nil
			}
		}
	}
	return store.Channel{}, store.ErrNotFound
}

func (f *fakeTopologyStore) DeleteChannel(ctx context.Context, id int64) error {
	for serverID, list := range f.channels {
		for i, ch := range list {
			if ch.ID == id {
				f.channels[serverID] = append(list[:i], list[i+1:]...)
				f.deletedIDs = append(f.deletedIDs, id)
				return nil
			}
		}
	}
	return store.ErrNotFound
}

type fakeGateway struct {
	guilds   []gateway.GuildInfo
	channels map[string][]gateway.ChannelInfo
	fetchErr error
}

func (f *fakeGateway) Guilds() []gateway.GuildInfo {
	return f.guilds
}

func (f *fakeGateway) FetchGuild(ctx context.Context, platformID string) (gateway.GuildInfo, error) {
	if f.fetchErr != nil {
		return gateway.GuildInfo{}, f.fetchErr
	}
	for _, g := range f.guilds {
		if g.PlatformID == platformID {
			return g, nil
		}
	}
	return gateway.GuildInfo{}, errors.New("unknown guild")
}

func (f *fakeGateway) FetchChannels(ctx context.Context, guildPlatformID string) ([]gateway.ChannelInfo, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.channels[guildPlatformID], nil
}

func textChannel(id, name string) gateway.ChannelInfo {
	return gateway.ChannelInfo{PlatformID: id, Name: name, Kind: "text", TextLike: true}
}

func TestSyncServerCreatesAndMirrorsChannels(t *testing.T) {
	t.Parallel()

	st := newFakeTopologyStore()
	gw := &fakeGateway{
		guilds: []gateway.GuildInfo{{PlatformID: "g1", Name: "Guild One", MemberCount: 12}},
		channels: map[string][]gateway.ChannelInfo{
			"g1": {
				textChannel("c1", "general"),
				{PlatformID: "v1", Name: "voice", Kind: "", TextLike: false},
				{PlatformID: "a1", Name: "news", Kind: "announcement", TextLike: true},
			},
		},
	}
	sync := NewSynchronizer(nil, st, gw)

	if err := sync.SyncServer(context.Background(), gw.guilds[0]); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	srv, ok := st.servers["g1"]
	if !ok || !srv.IsConnected {
		t.Fatalf("server not registered: %+v", srv)
	}
	channels := st.channels[srv.ID]
	if len(channels) != 2 {
		t.Fatalf("only text-like channels should be mirrored, got %+v", channels)
	}
}

func TestSyncServerIsIdempotent(t *testing.T) {
	t.Parallel()

	st := newFakeTopologyStore()
	gw := &fakeGateway{
		guilds:   []gateway.GuildInfo{{PlatformID: "g1", Name: "Guild One"}},
		channels: map[string][]gateway.ChannelInfo{"g1": {textChannel("c1", "general")}},
	}
	sync := NewSynchronizer(nil, st, gw)

	for i := 0; i < 3; i++ {
		if err := sync.SyncServer(context.Background(), gw.guilds[0]); err != nil {
			t.Fatalf("sync %d failed: %v", i, err)
		}
	}

	if len(st.servers) != 1 {
		t.Fatalf("expected one server, got %d", len(st.servers))
	}
	srv := st.servers["g1"]
	if len(st.channels[srv.ID]) != 1 {
		t.Fatalf("expected one channel, got %d", len(st.channels[srv.ID]))
	}
}

func TestSyncChannelsDeletesGoneChannels(t *testing.T) {
	t.Parallel()

	st := newFakeTopologyStore()
	gw := &fakeGateway{
		guilds: []gateway.GuildInfo{{PlatformID: "g1", Name: "Guild One"}},
		channels: map[string][]gateway.ChannelInfo{
			"g1": {textChannel("c1", "general"), textChannel("c2", "random")},
		},
	}
	sync := NewSynchronizer(nil, st, gw)
	if err := sync.SyncServer(context.Background(), gw.guilds[0]); err != nil {
		t.Fatalf("initial sync failed: %v", err)
	}

	gw.channels["g1"] = []gateway.ChannelInfo{textChannel("c1", "general")}
	if err := sync.SyncServer(context.Background(), gw.guilds[0]); err != nil {
		t.Fatalf("second sync failed: %v", err)
	}

	srv := st.servers["g1"]
	channels := st.channels[srv.ID]
	if len(channels) != 1 || channels[0].PlatformID != "c1" {
		t.Fatalf("gone channel should be deleted, got %+v", channels)
	}
}

func TestSyncChannelsRenames(t *testing.T) {
	t.Parallel()

	st := newFakeTopologyStore()
	gw := &fakeGateway{
		guilds:   []gateway.GuildInfo{{PlatformID: "g1", Name: "Guild One"}},
		channels: map[string][]gateway.ChannelInfo{"g1": {textChannel("c1", "general")}},
	}
	sync := NewSynchronizer(nil, st, gw)
	if err := sync.SyncServer(context.Background(), gw.guilds[0]); err != nil {
		t.Fatalf("initial sync failed: %v", err)
	}

	gw.channels["g1"] = []gateway.ChannelInfo{textChannel("c1", "general-chat")}
	if err := sync.SyncServer(context.Background(), gw.guilds[0]); err != nil {
		t.Fatalf("second sync failed: %v", err)
	}

	srv := st.servers["g1"]
	if got := st.channels[srv.ID][0].Name; got != "general-chat" {
		t.Fatalf("rename not applied, got %q", got)
	}
}

func TestSyncServerFallsBackToEventPayload(t *testing.T) {
	t.Parallel()

	st := newFakeTopologyStore()
	gw := &fakeGateway{fetchErr: errors.New("rest unavailable")}
	sync := NewSynchronizer(nil, st, gw)

	err := sync.SyncServer(context.Background(), gateway.GuildInfo{PlatformID: "g1", Name: "From Event"})
	// Channel fetch also fails, so the sync errors, but the server row must
	// exist with the payload name.
	if err == nil {
		t.Fatalf("expected channel fetch error")
	}
	if srv, ok := st.servers["g1"]; !ok || srv.Name != "From Event" {
		t.Fatalf("server should be created from the event payload: %+v", st.servers)
	}
}

func TestMarkServerDisconnected(t *testing.T) {
	t.Parallel()

	st := newFakeTopologyStore()
	if _, err := st.CreateServer(context.Background(), store.CreateServerParams{PlatformID: "g1", Name: "Guild One"}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	sync := NewSynchronizer(nil, st, &fakeGateway{})

	sync.MarkServerDisconnected(context.Background(), "g1")
	if st.servers["g1"].IsConnected {
		t.Fatalf("server should be disconnected")
	}

	// Unknown guilds are tolerated.
	sync.MarkServerDisconnected(context.Background(), "g9")
}

func TestSyncAllIsolatesGuildFailures(t *testing.T) {
	t.Parallel()

	st := newFakeTopologyStore()
	gw := &fakeGateway{
		guilds: []gateway.GuildInfo{
			{PlatformID: "g1", Name: "Guild One"},
			{PlatformID: "g2", Name: "Guild Two"},
		},
		channels: map[string][]gateway.ChannelInfo{
			"g1": {textChannel("c1", "general")},
			"g2": {textChannel("c2", "general")},
		},
	}
	sync := NewSynchronizer(nil, st, gw)

	if err := sync.SyncAll(context.Background()); err != nil {
		t.Fatalf("sync all failed: %v", err)
	}
	if len(st.servers) != 2 {
		t.Fatalf("both guilds should be registered")
	}
}
