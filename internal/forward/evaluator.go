package forward

import (
	"context"
	"log/slog"
	"time"

	"github.com/beaconlabs/beacon/internal/gateway"
	"github.com/beaconlabs/beacon/internal/store"
)

// forwardHeader is the exact wire format of a forwarded message body.
const forwardHeader = "**Forwarded Message**\n-----\n"

// maxLoggedMessageRunes bounds the original message stored in provenance logs.
const maxLoggedMessageRunes = 500

// Sender delivers text to a platform channel or thread.
type Sender interface {
	SendToChannel(ctx context.Context, platformChannelID, text string) error
}

// LogStore records forwarding outcomes.
type LogStore interface {
	CreateForwarderLog(ctx context.Context, forwarderID int64, forwardedAt time.Time, originalMessage string, matchedKeyword *string, status store.LogStatus, errText *string) error
}

// Evaluator is the inbound-message pipeline: filter, match, forward, log.
// Rule iteration for one message is sequential; distinct messages may be
// evaluated concurrently against the same snapshot.
type Evaluator struct {
	logger *slog.Logger
	cache  *Cache
	sender Sender
	logs   LogStore
	now    func() time.Time
}

func NewEvaluator(log *slog.Logger, cache *Cache, sender Sender, logs LogStore) *Evaluator {
	if log == nil {
		log = slog.Default()
	}
	return &Evaluator{
		logger: log.With(slog.String("component", "forward")),
		cache:  cache,
		sender: sender,
		logs:   logs,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Evaluate runs one inbound message through the forwarder rules. Errors are
// logged per rule and never propagate; the event loop must not crash.
func (e *Evaluator) Evaluate(ctx context.Context, msg gateway.Message) {
	// Bot authors are dropped first: this suppresses loops with our own
	// forwarded messages and with other bots.
	if msg.AuthorBot {
		return
	}
	if msg.GuildID == "" {
		return
	}
	if msg.Content == "" {
		return
	}

	rules := e.cache.Candidates(msg.ChannelID, msg.IsThread, msg.ParentID)
	for _, rule := range rules {
		keyword, ok := matchKeyword(msg.Content, rule)
		if !ok {
			continue
		}
		e.forward(ctx, rule, keyword, msg)
	}
}

func (e *Evaluator) forward(ctx context.Context, rule store.ActiveForwarder, keyword string, msg gateway.Message) {
	target := rule.DestinationChannelPlatformID
	if rule.DestinationThreadID != nil && *rule.DestinationThreadID != "" {
		target = *rule.DestinationThreadID
	}

	if target == "" {
		e.record(ctx, rule, keyword, msg.Content, store.StatusFailed, "destination channel not found/accessible")
		return
	}

	if err := e.sender.SendToChannel(ctx, target, forwardHeader+msg.Content); err != nil {
		e.logger.Warn("forward send failed",
			slog.Int64("forwarder_id", rule.ID),
			slog.String("target", target),
			slog.Any("error", err))
		e.record(ctx, rule, keyword, msg.Content, store.StatusFailed, err.Error())
		return
	}

	e.record(ctx, rule, keyword, msg.Content, store.StatusSuccess, "")
}

func (e *Evaluator) record(ctx context.Context, rule store.ActiveForwarder, keyword, original string, status store.LogStatus, errText string) {
	var matched *string
	if keyword != "" {
		matched = &keyword
	}
	var failure *string
	if errText != "" {
		failure = &errText
	}
	err := e.logs.CreateForwarderLog(ctx, rule.ID, e.now(), truncateRunes(original, maxLoggedMessageRunes), matched, status, failure)
	if err != nil {
		e.logger.Error("forwarder log write failed",
			slog.Int64("forwarder_id", rule.ID), slog.Any("error", err))
	}
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
