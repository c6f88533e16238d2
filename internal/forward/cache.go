// Package forward evaluates inbound messages against keyword forwarding rules.
package forward

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/beaconlabs/beacon/internal/store"
)

// RuleSource supplies the active rule set, joined with platform handles.
type RuleSource interface {
	GetActiveForwarders(ctx context.Context) ([]store.ActiveForwarder, error)
}

// snapshot maps a location key to the rules sourced from that location.
// Snapshots are immutable once installed.
type snapshot map[string][]store.ActiveForwarder

func channelKey(platformChannelID string) string { return "channel:" + platformChannelID }
func threadKey(platformThreadID string) string   { return "thread:" + platformThreadID }

// Cache holds the active forwarder index. Load builds a fresh snapshot and
// installs it with an atomic swap, so readers see either the previous or the
// new map, never a partial one.
type Cache struct {
	logger *slog.Logger
	source RuleSource
	snap   atomic.Pointer[snapshot]
}

func NewCache(log *slog.Logger, source RuleSource) *Cache {
	if log == nil {
		log = slog.Default()
	}
	c := &Cache{
		logger: log.With(slog.String("component", "forward")),
		source: source,
	}
	empty := snapshot{}
	c.snap.Store(&empty)
	return c
}

// Load rebuilds the index from the store.
func (c *Cache) Load(ctx context.Context) error {
	rules, err := c.source.GetActiveForwarders(ctx)
	if err != nil {
		return fmt.Errorf("load active forwarders: %w", err)
	}

	next := snapshot{}
	for _, rule := range rules {
		if rule.SourceThreadID != nil && *rule.SourceThreadID != "" {
			key := threadKey(*rule.SourceThreadID)
			next[key] = append(next[key], rule)
			// Ensure a channel entry for the parent so messages in the
			// channel proper never match thread-only rules.
			if rule.SourceChannelPlatformID != "" {
				parent := channelKey(rule.SourceChannelPlatformID)
				if _, ok := next[parent]; !ok {
					next[parent] = nil
				}
			}
			continue
		}
		if rule.SourceChannelPlatformID == "" {
			// Mirrored source channel is gone; skip until topology sync
			// restores it.
			c.logger.Warn("forwarder source channel unresolved",
				slog.Int64("forwarder_id", rule.ID), slog.String("name", rule.Name))
			continue
		}
		key := channelKey(rule.SourceChannelPlatformID)
		next[key] = append(next[key], rule)
	}

	c.snap.Store(&next)
	c.logger.Info("forwarder cache loaded",
		slog.Int("rules", len(rules)), slog.Int("locations", len(next)))
	return nil
}

// Candidates returns the rules that may apply to a message at the given
// location. Thread messages also see their parent channel's rules.
func (c *Cache) Candidates(platformChannelID string, isThread bool, parentID string) []store.ActiveForwarder {
	snap := *c.snap.Load()
	if !isThread {
		return snap[channelKey(platformChannelID)]
	}
	threadRules := snap[threadKey(platformChannelID)]
	parentRules := snap[channelKey(parentID)]
	if len(parentRules) == 0 {
		return threadRules
	}
	combined := make([]store.ActiveForwarder, 0, len(threadRules)+len(parentRules))
	combined = append(combined, threadRules...)
	combined = append(combined, parentRules...)
	return combined
}

// Size reports the number of indexed locations, for status logging.
func (c *Cache) Size() int {
	return len(*c.snap.Load())
}
