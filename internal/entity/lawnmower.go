package entity

import (
	"context"
	"fmt"
	"strings"
)

// LawnMower projects a mower's activity and drives it through three
// commands, each with its own topic and optional template. Activity
// payloads outside the known set are rejected.
type LawnMower struct {
	base
	activity *string

	startMowingTpl TemplateFn
	pauseTpl       TemplateFn
	dockTpl        TemplateFn
}

func newLawnMower(cfg Config, d deps) (*LawnMower, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	e := &LawnMower{base: newBase(cfg, d)}
	if err := e.applyMowerConfig(cfg); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *LawnMower) applyMowerConfig(cfg Config) error {
	if err := e.applyConfig(cfg); err != nil {
		return err
	}
	var err error
	if e.startMowingTpl, err = e.compile(cfg.StartMowingCommandTemplate); err != nil {
		return err
	}
	if e.pauseTpl, err = e.compile(cfg.PauseCommandTemplate); err != nil {
		return err
	}
	if e.dockTpl, err = e.compile(cfg.DockCommandTemplate); err != nil {
		return err
	}
	return nil
}

func (e *LawnMower) Kind() Kind {
	return KindLawnMower
}

// Features reports which commands are available, derived from the
// configured command topics.
func (e *LawnMower) Features() Features {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.featuresLocked()
}

func (e *LawnMower) featuresLocked() Features {
	var f Features
	if e.cfg.StartMowingCommandTopic != "" {
		f |= FeatureStartMowing
	}
	if e.cfg.PauseCommandTopic != "" {
		f |= FeaturePause
	}
	if e.cfg.DockCommandTopic != "" {
		f |= FeatureDock
	}
	return f
}

func (e *LawnMower) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *LawnMower) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:           e.cfg.ID,
		Name:         e.cfg.Name,
		Kind:         KindLawnMower,
		AssumedState: e.assumedState,
		Features:     e.featuresLocked(),
	}
	if e.activity != nil {
		v := *e.activity
		snap.Activity = &v
	}
	return snap
}

func (e *LawnMower) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if last, ok := e.restoreValue(ctx); ok {
		if validActivities[last] {
			e.activity = &last
		} else {
			e.logger.Warn("Ignoring persisted value that is not a known activity",
				"entity", e.cfg.ID,
				"value", last)
		}
	}
	return e.subs.apply(e.desiredTopics())
}

func (e *LawnMower) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.subs.clear()
}

func (e *LawnMower) Configure(cfg Config) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.applyMowerConfig(cfg); err != nil {
		return err
	}
	return e.subs.apply(e.desiredTopics())
}

func (e *LawnMower) desiredTopics() map[string]topicSpec {
	return map[string]topicSpec{
		roleState: e.stateSpec(e.handleActivityMessage),
	}
}

// handleActivityMessage projects an activity payload. Empty payloads are
// ignored with a debug log, the none sentinel clears the activity, and
// anything outside the activity set is an error that leaves state
// untouched.
func (e *LawnMower) handleActivityMessage(topic string, payload []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	value, ok := e.renderValue(e.valueTpl, topic, payload)
	if !ok {
		return nil
	}
	if value == "" {
		e.logger.Debug("Ignoring empty activity payload",
			"entity", e.cfg.ID,
			"topic", topic)
		return nil
	}
	if strings.EqualFold(value, noneSentinel) {
		if e.activity != nil {
			e.activity = nil
			e.emitChange(e.snapshotLocked())
		}
		return nil
	}
	if !validActivities[value] {
		e.logger.Error("Invalid activity received, state unchanged",
			"entity", e.cfg.ID,
			"topic", topic,
			"activity", value)
		return nil
	}
	if assignString(&e.activity, value) {
		e.emitChange(e.snapshotLocked())
	}
	return nil
}

// StartMowing commands the mower to begin mowing.
func (e *LawnMower) StartMowing(ctx context.Context) error {
	return e.command("start_mowing", ActivityMowing, func() (string, TemplateFn) {
		return e.cfg.StartMowingCommandTopic, e.startMowingTpl
	})
}

// Pause commands the mower to pause in place.
func (e *LawnMower) Pause(ctx context.Context) error {
	return e.command("pause", ActivityPaused, func() (string, TemplateFn) {
		return e.cfg.PauseCommandTopic, e.pauseTpl
	})
}

// Dock commands the mower to return to its dock. The optimistic
// commit assumes the docked activity directly rather than a returning
// transition; the device reports intermediate activities itself when
// it has a state topic.
func (e *LawnMower) Dock(ctx context.Context) error {
	return e.command("dock", ActivityDocked, func() (string, TemplateFn) {
		return e.cfg.DockCommandTopic, e.dockTpl
	})
}

// command renders and publishes one mower command. For optimistic
// entities the assumed activity is committed and announced before the
// publish. The pick callback runs under the mutex.
func (e *LawnMower) command(name, assumed string, pick func() (string, TemplateFn)) error {
	e.mu.Lock()
	topic, tpl := pick()
	if topic == "" {
		e.mu.Unlock()
		return fmt.Errorf("%w: no %s command topic configured for %s", ErrUnsupportedCommand, name, e.cfg.ID)
	}
	payload, err := e.renderCommand(tpl, name)
	if err != nil {
		e.mu.Unlock()
		return fmt.Errorf("rendering %s command for %s: %w", name, e.cfg.ID, err)
	}
	if e.assumedState {
		if assignString(&e.activity, assumed) {
			e.emitChange(e.snapshotLocked())
		}
	}
	e.mu.Unlock()

	return e.publish(topic, payload)
}
