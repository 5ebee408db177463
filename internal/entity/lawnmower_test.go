package entity

import (
	"context"
	"errors"
	"testing"
)

func mowerConfig() Config {
	return Config{
		ID:                      "front_mower",
		Kind:                    KindLawnMower,
		StateTopic:              "mower/front/activity",
		StartMowingCommandTopic: "mower/front/start",
		PauseCommandTopic:       "mower/front/pause",
		DockCommandTopic:        "mower/front/dock",
	}
}

func startMower(t *testing.T, cfg Config, transport *MockTransport, store *MockStore, onChange func(Snapshot)) *LawnMower {
	t.Helper()
	e, err := newLawnMower(cfg, newTestDeps(transport, store, onChange))
	if err != nil {
		t.Fatalf("newLawnMower() error = %v", err)
	}
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return e
}

// =============================================================================
// Activity Projection
// =============================================================================

func TestLawnMower_ProjectsValidActivity(t *testing.T) {
	transport := NewMockTransport()
	notifier := &MockNotifier{}
	e := startMower(t, mowerConfig(), transport, nil, notifier.EntityStateChanged)

	for _, activity := range []string{ActivityMowing, ActivityPaused, ActivityDocked, ActivityReturning, ActivityError} {
		if err := transport.Deliver("mower/front/activity", activity); err != nil {
			t.Fatalf("Deliver(%q) error = %v", activity, err)
		}
		if snap := e.Snapshot(); snap.Activity == nil || *snap.Activity != activity {
			t.Errorf("Activity = %v, want %q", snap.Activity, activity)
		}
	}
	if notifier.Count() != 5 {
		t.Errorf("notifications = %d, want 5", notifier.Count())
	}
}

func TestLawnMower_RejectsUnknownActivity(t *testing.T) {
	transport := NewMockTransport()
	e := startMower(t, mowerConfig(), transport, nil, nil)

	if err := transport.Deliver("mower/front/activity", ActivityMowing); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if err := transport.Deliver("mower/front/activity", "flying"); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if snap := e.Snapshot(); snap.Activity == nil || *snap.Activity != ActivityMowing {
		t.Errorf("Activity = %v, want mowing (unknown activity rejected)", snap.Activity)
	}
}

func TestLawnMower_EmptyPayloadIgnored(t *testing.T) {
	transport := NewMockTransport()
	notifier := &MockNotifier{}
	e := startMower(t, mowerConfig(), transport, nil, notifier.EntityStateChanged)

	if err := transport.Deliver("mower/front/activity", ""); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if snap := e.Snapshot(); snap.Activity != nil {
		t.Errorf("Activity = %q, want unset", *snap.Activity)
	}
	if notifier.Count() != 0 {
		t.Errorf("notifications = %d, want 0", notifier.Count())
	}
}

func TestLawnMower_NoneSentinelClearsActivity(t *testing.T) {
	transport := NewMockTransport()
	e := startMower(t, mowerConfig(), transport, nil, nil)

	if err := transport.Deliver("mower/front/activity", ActivityDocked); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if err := transport.Deliver("mower/front/activity", "None"); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if snap := e.Snapshot(); snap.Activity != nil {
		t.Errorf("Activity = %q, want cleared", *snap.Activity)
	}
}

// =============================================================================
// Features
// =============================================================================

func TestLawnMower_FeaturesFollowCommandTopics(t *testing.T) {
	cfg := mowerConfig()
	cfg.DockCommandTopic = ""
	e := startMower(t, cfg, NewMockTransport(), nil, nil)

	f := e.Features()
	if !f.Has(FeatureStartMowing) || !f.Has(FeaturePause) {
		t.Errorf("Features() = %b, want start mowing and pause set", f)
	}
	if f.Has(FeatureDock) {
		t.Errorf("Features() = %b, dock must be unset without a topic", f)
	}
}

// =============================================================================
// Commands
// =============================================================================

func TestLawnMowerCommands_PublishToOwnTopics(t *testing.T) {
	transport := NewMockTransport()
	e := startMower(t, mowerConfig(), transport, nil, nil)
	ctx := context.Background()

	if err := e.StartMowing(ctx); err != nil {
		t.Fatalf("StartMowing() error = %v", err)
	}
	if err := e.Pause(ctx); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	if err := e.Dock(ctx); err != nil {
		t.Fatalf("Dock() error = %v", err)
	}

	published := transport.Published()
	if len(published) != 3 {
		t.Fatalf("published %d messages, want 3", len(published))
	}
	want := []publishedMessage{
		{topic: "mower/front/start", payload: "start_mowing"},
		{topic: "mower/front/pause", payload: "pause"},
		{topic: "mower/front/dock", payload: "dock"},
	}
	for i, w := range want {
		if published[i].topic != w.topic || published[i].payload != w.payload {
			t.Errorf("publish[%d] = %q to %q, want %q to %q",
				i, published[i].payload, published[i].topic, w.payload, w.topic)
		}
	}
}

func TestLawnMowerCommands_TemplatesPerCommand(t *testing.T) {
	cfg := mowerConfig()
	cfg.StartMowingCommandTemplate = "upper"
	transport := NewMockTransport()
	e := startMower(t, cfg, transport, nil, nil)

	if err := e.StartMowing(context.Background()); err != nil {
		t.Fatalf("StartMowing() error = %v", err)
	}
	if err := e.Pause(context.Background()); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}

	published := transport.Published()
	if published[0].payload != "START_MOWING" {
		t.Errorf("start payload = %q, want START_MOWING", published[0].payload)
	}
	if published[1].payload != "pause" {
		t.Errorf("pause payload = %q, want untemplated pause", published[1].payload)
	}
}

func TestLawnMowerCommands_UnsupportedWithoutTopic(t *testing.T) {
	cfg := mowerConfig()
	cfg.DockCommandTopic = ""
	transport := NewMockTransport()
	e := startMower(t, cfg, transport, nil, nil)

	if err := e.Dock(context.Background()); !errors.Is(err, ErrUnsupportedCommand) {
		t.Errorf("Dock() error = %v, want ErrUnsupportedCommand", err)
	}
	if len(transport.Published()) != 0 {
		t.Error("unsupported command must not publish")
	}
}

func TestLawnMowerCommands_OptimisticAssumesActivity(t *testing.T) {
	cfg := mowerConfig()
	cfg.Optimistic = true
	transport := NewMockTransport()

	publishesAtNotify := -1
	onChange := func(Snapshot) {
		publishesAtNotify = len(transport.Published())
	}
	e := startMower(t, cfg, transport, nil, onChange)

	if err := e.Dock(context.Background()); err != nil {
		t.Fatalf("Dock() error = %v", err)
	}

	if snap := e.Snapshot(); snap.Activity == nil || *snap.Activity != ActivityDocked {
		t.Errorf("Activity = %v, want docked (assumed commit)", snap.Activity)
	}
	if publishesAtNotify != 0 {
		t.Errorf("notification saw %d publishes, want 0 (commit announced before publish)", publishesAtNotify)
	}
}

// =============================================================================
// Restore
// =============================================================================

func TestLawnMower_RestoresValidActivity(t *testing.T) {
	cfg := mowerConfig()
	cfg.StateTopic = "" // forces assumed state
	store := NewMockStore()
	store.states["front_mower"] = ActivityDocked

	e := startMower(t, cfg, NewMockTransport(), store, nil)

	if snap := e.Snapshot(); snap.Activity == nil || *snap.Activity != ActivityDocked {
		t.Errorf("Activity = %v, want restored docked", snap.Activity)
	}
}

func TestLawnMower_RestoreRejectsUnknownValue(t *testing.T) {
	cfg := mowerConfig()
	cfg.StateTopic = ""
	store := NewMockStore()
	store.states["front_mower"] = "hovering"

	e := startMower(t, cfg, NewMockTransport(), store, nil)

	if snap := e.Snapshot(); snap.Activity != nil {
		t.Errorf("Activity = %q, want unset (unknown persisted value)", *snap.Activity)
	}
}
