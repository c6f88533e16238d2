package forward

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/beaconlabs/beacon/internal/gateway"
	"github.com/beaconlabs/beacon/internal/store"
)

type sentMessage struct {
	channelID string
	text      string
}

type fakeSender struct {
	sent []sentMessage
	err  error
}

func (f *fakeSender) SendToChannel(ctx context.Context, platformChannelID, text string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{channelID: platformChannelID, text: text})
	return nil
}

type loggedForward struct {
	forwarderID int64
	original    string
	keyword     *string
	status      store.LogStatus
	errText     *string
}

type fakeLogStore struct {
	logs []loggedForward
}

func (f *fakeLogStore) CreateForwarderLog(ctx context.Context, forwarderID int64, forwardedAt time.Time, originalMessage string, matchedKeyword *string, status store.LogStatus, errText *string) error {
	f.logs = append(f.logs, loggedForward{
		forwarderID: forwarderID,
		original:    originalMessage,
		keyword:     matchedKeyword,
		status:      status,
		errText:     errText,
	})
	return nil
}

func newTestEvaluator(rules []store.ActiveForwarder, sender *fakeSender, logs *fakeLogStore) *Evaluator {
	cache := NewCache(nil, &fakeRuleSource{rules: rules})
	if err := cache.Load(context.Background()); err != nil {
		panic(err)
	}
	return NewEvaluator(nil, cache, sender, logs)
}

func forwardRule(id int64, sourceChannel, destChannel string) store.ActiveForwarder {
	r := activeRule(id, sourceChannel, nil)
	r.DestinationChannelPlatformID = destChannel
	r.Keywords = []string{"alert"}
	return r
}

func channelMessage(channelID, content string) gateway.Message {
	return gateway.Message{
		ID:        "m1",
		Content:   content,
		AuthorID:  "user-1",
		GuildID:   "guild-1",
		ChannelID: channelID,
	}
}

func TestEvaluateForwardsOnMatch(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	logs := &fakeLogStore{}
	ev := newTestEvaluator([]store.ActiveForwarder{forwardRule(1, "chan-1", "chan-dst")}, sender, logs)

	ev.Evaluate(context.Background(), channelMessage("chan-1", "alert: disk full"))

	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 send, got %d", len(sender.sent))
	}
	if sender.sent[0].channelID != "chan-dst" {
		t.Fatalf("wrong destination: %s", sender.sent[0].channelID)
	}
	want := "**Forwarded Message**\n-----\nalert: disk full"
	if sender.sent[0].text != want {
		t.Fatalf("wrong body: %q", sender.sent[0].text)
	}
	if len(logs.logs) != 1 || logs.logs[0].status != store.StatusSuccess {
		t.Fatalf("expected one success log, got %+v", logs.logs)
	}
	if logs.logs[0].keyword == nil || *logs.logs[0].keyword != "alert" {
		t.Fatalf("matched keyword not recorded: %+v", logs.logs[0].keyword)
	}
}

func TestEvaluateDropsBotAuthors(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	logs := &fakeLogStore{}
	ev := newTestEvaluator([]store.ActiveForwarder{forwardRule(1, "chan-1", "chan-dst")}, sender, logs)

	msg := channelMessage("chan-1", "alert")
	msg.AuthorBot = true
	ev.Evaluate(context.Background(), msg)

	if len(sender.sent) != 0 || len(logs.logs) != 0 {
		t.Fatalf("bot message must be ignored")
	}
}

func TestEvaluateDropsDirectMessages(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	logs := &fakeLogStore{}
	ev := newTestEvaluator([]store.ActiveForwarder{forwardRule(1, "chan-1", "chan-dst")}, sender, logs)

	msg := channelMessage("chan-1", "alert")
	msg.GuildID = ""
	ev.Evaluate(context.Background(), msg)

	if len(sender.sent) != 0 || len(logs.logs) != 0 {
		t.Fatalf("direct message must be ignored")
	}
}

func TestEvaluateSendFailureIsLogged(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{err: errors.New("rate limited")}
	logs := &fakeLogStore{}
	ev := newTestEvaluator([]store.ActiveForwarder{forwardRule(1, "chan-1", "chan-dst")}, sender, logs)

	ev.Evaluate(context.Background(), channelMessage("chan-1", "alert"))

	if len(logs.logs) != 1 || logs.logs[0].status != store.StatusFailed {
		t.Fatalf("expected one failed log, got %+v", logs.logs)
	}
	if logs.logs[0].errText == nil || *logs.logs[0].errText != "rate limited" {
		t.Fatalf("failure text not recorded")
	}
}

func TestEvaluateMissingDestinationIsLogged(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	logs := &fakeLogStore{}
	ev := newTestEvaluator([]store.ActiveForwarder{forwardRule(1, "chan-1", "")}, sender, logs)

	ev.Evaluate(context.Background(), channelMessage("chan-1", "alert"))

	if len(sender.sent) != 0 {
		t.Fatalf("nothing should be sent without a destination")
	}
	if len(logs.logs) != 1 || logs.logs[0].status != store.StatusFailed {
		t.Fatalf("expected one failed log, got %+v", logs.logs)
	}
	if logs.logs[0].errText == nil || *logs.logs[0].errText != "destination channel not found/accessible" {
		t.Fatalf("unexpected failure text: %+v", logs.logs[0].errText)
	}
}

func TestEvaluatePrefersDestinationThread(t *testing.T) {
	t.Parallel()

	threadID := "thr-dst"
	r := forwardRule(1, "chan-1", "chan-dst")
	r.DestinationThreadID = &threadID
	sender := &fakeSender{}
	logs := &fakeLogStore{}
	ev := newTestEvaluator([]store.ActiveForwarder{r}, sender, logs)

	ev.Evaluate(context.Background(), channelMessage("chan-1", "alert"))

	if len(sender.sent) != 1 || sender.sent[0].channelID != threadID {
		t.Fatalf("expected delivery to thread, got %+v", sender.sent)
	}
}

func TestEvaluateMultipleRulesAllFire(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	logs := &fakeLogStore{}
	ev := newTestEvaluator([]store.ActiveForwarder{
		forwardRule(1, "chan-1", "dst-1"),
		forwardRule(2, "chan-1", "dst-2"),
	}, sender, logs)

	ev.Evaluate(context.Background(), channelMessage("chan-1", "alert"))

	if len(sender.sent) != 2 {
		t.Fatalf("both rules should forward, got %d sends", len(sender.sent))
	}
}

func TestRecordTruncatesLongMessages(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	logs := &fakeLogStore{}
	ev := newTestEvaluator([]store.ActiveForwarder{forwardRule(1, "chan-1", "chan-dst")}, sender, logs)

	long := "alert " + strings.Repeat("x", 600)
	ev.Evaluate(context.Background(), channelMessage("chan-1", long))

	if len(logs.logs) != 1 {
		t.Fatalf("expected one log")
	}
	if got := len([]rune(logs.logs[0].original)); got != 500 {
		t.Fatalf("logged message should be capped at 500 runes, got %d", got)
	}
	// The forwarded body itself is never truncated.
	if len(sender.sent) != 1 || !strings.HasSuffix(sender.sent[0].text, "x") || len(sender.sent[0].text) < 600 {
		t.Fatalf("forwarded body must carry the full content")
	}
}
