// Package bot supervises the runtime: the gateway session, topology sync, the
// forwarder cache, and the notification scheduler.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/beaconlabs/beacon/internal/forward"
	"github.com/beaconlabs/beacon/internal/gateway"
	"github.com/beaconlabs/beacon/internal/notify"
	"github.com/beaconlabs/beacon/internal/topology"
)

// Runtime wires the long-running pieces together and is their single owner.
// The management API stays available even when the gateway never comes up.
type Runtime struct {
	logger    *slog.Logger
	client    *gateway.Client
	sync      *topology.Synchronizer
	cache     *forward.Cache
	evaluator *forward.Evaluator
	scheduler *notify.Scheduler
}

func NewRuntime(
	log *slog.Logger,
	client *gateway.Client,
	sync *topology.Synchronizer,
	cache *forward.Cache,
	evaluator *forward.Evaluator,
	scheduler *notify.Scheduler,
) *Runtime {
	if log == nil {
		log = slog.Default()
	}
	r := &Runtime{
		logger:    log.With(slog.String("component", "bot")),
		client:    client,
		sync:      sync,
		cache:     cache,
		evaluator: evaluator,
		scheduler: scheduler,
	}
	client.SetEventHandler(r)
	return r
}

// Start brings the runtime up: connect, reconcile topology, warm the rule
// cache, then start the scheduler. A missing token degrades to offline mode
// with the API still serving; any other gateway failure aborts startup.
func (r *Runtime) Start(ctx context.Context) error {
	if err := r.client.Start(ctx); err != nil {
		if errors.Is(err, gateway.ErrTokenMissing) {
			r.logger.Warn("no bot token configured, starting offline")
			return nil
		}
		return fmt.Errorf("start gateway: %w", err)
	}

	if err := r.sync.SyncAll(ctx); err != nil {
		// Partial sync is tolerable; guild-create events repair it.
		r.logger.Error("initial topology sync incomplete", slog.Any("error", err))
	}
	if err := r.cache.Load(ctx); err != nil {
		return fmt.Errorf("load forwarder cache: %w", err)
	}
	if err := r.scheduler.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	r.logger.Info("runtime started")
	return nil
}

// Stop winds down in reverse order: the scheduler first so no tick races the
// closing session.
func (r *Runtime) Stop() error {
	r.scheduler.Stop()
	if err := r.client.Stop(); err != nil {
		return fmt.Errorf("stop gateway: %w", err)
	}
	r.logger.Info("runtime stopped")
	return nil
}

// Status projects the gateway state plus cache shape for the API.
func (r *Runtime) Status() gateway.Status {
	return r.client.Status()
}

// ReloadForwarders rebuilds the rule cache in the background. Mutating API
// handlers call this after every write so the change takes effect without a
// restart.
func (r *Runtime) ReloadForwarders() {
	go func() {
		if err := r.cache.Load(context.Background()); err != nil {
			r.logger.Error("forwarder reload failed", slog.Any("error", err))
		}
	}()
}

// HandleGuildCreate reconciles a guild the session just saw.
func (r *Runtime) HandleGuildCreate(ctx context.Context, guild gateway.GuildInfo) {
	if err := r.sync.SyncServer(ctx, guild); err != nil {
		r.logger.Error("guild sync failed",
			slog.String("guild_id", guild.PlatformID), slog.Any("error", err))
	}
}

// HandleGuildDelete marks a removed guild disconnected. Its rows stay.
func (r *Runtime) HandleGuildDelete(ctx context.Context, platformID string) {
	r.sync.MarkServerDisconnected(ctx, platformID)
}

// HandleMessage runs the forwarder pipeline on an inbound message.
func (r *Runtime) HandleMessage(ctx context.Context, msg gateway.Message) {
	r.evaluator.Evaluate(ctx, msg)
}
