package forward

import (
	"context"
	"errors"
	"testing"

	"github.com/beaconlabs/beacon/internal/store"
)

type fakeRuleSource struct {
	rules []store.ActiveForwarder
	err   error
}

func (f *fakeRuleSource) GetActiveForwarders(ctx context.Context) ([]store.ActiveForwarder, error) {
	return f.rules, f.err
}

func activeRule(id int64, sourceChannel string, sourceThread *string) store.ActiveForwarder {
	return store.ActiveForwarder{
		Forwarder: store.Forwarder{
			ID:             id,
			Name:           "r",
			SourceThreadID: sourceThread,
			Keywords:       []string{"k"},
			MatchType:      store.MatchContains,
			IsActive:       true,
		},
		SourceChannelPlatformID: sourceChannel,
	}
}

func TestCacheLoadAndCandidates(t *testing.T) {
	t.Parallel()

	threadID := "thr-1"
	src := &fakeRuleSource{rules: []store.ActiveForwarder{
		activeRule(1, "chan-1", nil),
		activeRule(2, "chan-1", &threadID),
		activeRule(3, "chan-2", nil),
	}}
	cache := NewCache(nil, src)
	if err := cache.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	// Channel message sees channel rules only, not thread rules.
	got := cache.Candidates("chan-1", false, "")
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("unexpected channel candidates: %+v", got)
	}

	// Thread message sees its thread rules plus the parent channel rules.
	got = cache.Candidates(threadID, true, "chan-1")
	if len(got) != 2 {
		t.Fatalf("expected 2 thread candidates, got %d", len(got))
	}

	// Unknown location yields nothing.
	if got := cache.Candidates("chan-9", false, ""); len(got) != 0 {
		t.Fatalf("expected no candidates, got %+v", got)
	}
}

func TestCacheLoadSkipsUnresolvedSourceChannel(t *testing.T) {
	t.Parallel()

	src := &fakeRuleSource{rules: []store.ActiveForwarder{
		activeRule(1, "", nil),
	}}
	cache := NewCache(nil, src)
	if err := cache.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cache.Size() != 0 {
		t.Fatalf("unresolved rule should not be indexed, size = %d", cache.Size())
	}
}

func TestCacheLoadErrorKeepsPreviousSnapshot(t *testing.T) {
	t.Parallel()

	src := &fakeRuleSource{rules: []store.ActiveForwarder{activeRule(1, "chan-1", nil)}}
	cache := NewCache(nil, src)
	if err := cache.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	src.err = errors.New("db down")
	if err := cache.Load(context.Background()); err == nil {
		t.Fatalf("expected load error")
	}
	if got := cache.Candidates("chan-1", false, ""); len(got) != 1 {
		t.Fatalf("previous snapshot should survive a failed reload")
	}
}

func TestCacheEmptyBeforeLoad(t *testing.T) {
	t.Parallel()

	cache := NewCache(nil, &fakeRuleSource{})
	if got := cache.Candidates("chan-1", false, ""); len(got) != 0 {
		t.Fatalf("fresh cache must be empty")
	}
}
