package entity

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// Select projects one option out of a fixed configured list. State moves
// either through the state topic or, for optimistic entities, through
// assumed commits on command.
type Select struct {
	base
	currentOption *string
}

func newSelect(cfg Config, d deps) (*Select, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if len(cfg.Options) == 0 {
		return nil, fmt.Errorf("%w: select requires at least one option", ErrInvalidConfig)
	}
	if cfg.CommandTopic == "" {
		return nil, fmt.Errorf("%w: select requires a command topic", ErrInvalidConfig)
	}
	e := &Select{base: newBase(cfg, d)}
	if err := e.applyConfig(cfg); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Select) Kind() Kind {
	return KindSelect
}

func (e *Select) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Select) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:           e.cfg.ID,
		Name:         e.cfg.Name,
		Kind:         KindSelect,
		AssumedState: e.assumedState,
		Options:      slices.Clone(e.cfg.Options),
	}
	if e.currentOption != nil {
		v := *e.currentOption
		snap.CurrentOption = &v
	}
	return snap
}

func (e *Select) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	// The persisted value is adopted as-is, even when the option list
	// changed since it was written. Membership checks apply to inbound
	// state messages only.
	if last, ok := e.restoreValue(ctx); ok {
		e.currentOption = &last
	}
	return e.subs.apply(e.desiredTopics())
}

func (e *Select) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.subs.clear()
}

func (e *Select) Configure(cfg Config) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	if len(cfg.Options) == 0 {
		return fmt.Errorf("%w: select requires at least one option", ErrInvalidConfig)
	}
	if cfg.CommandTopic == "" {
		return fmt.Errorf("%w: select requires a command topic", ErrInvalidConfig)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.applyConfig(cfg); err != nil {
		return err
	}
	return e.subs.apply(e.desiredTopics())
}

func (e *Select) desiredTopics() map[string]topicSpec {
	return map[string]topicSpec{
		roleState: e.stateSpec(e.handleStateMessage),
	}
}

// handleStateMessage projects a state topic payload. The none sentinel
// (case-insensitive) clears the option; a payload outside the option
// list is rejected with an error log and leaves state untouched.
func (e *Select) handleStateMessage(topic string, payload []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	value, ok := e.renderValue(e.valueTpl, topic, payload)
	if !ok {
		return nil
	}

	if strings.EqualFold(value, noneSentinel) {
		if e.currentOption != nil {
			e.currentOption = nil
			e.emitChange(e.snapshotLocked())
		}
		return nil
	}

	if !slices.Contains(e.cfg.Options, value) {
		e.logger.Error("Invalid option received, state unchanged",
			"entity", e.cfg.ID,
			"topic", topic,
			"option", value,
			"options", e.cfg.Options)
		return nil
	}

	if assignString(&e.currentOption, value) {
		e.emitChange(e.snapshotLocked())
	}
	return nil
}

// SelectOption publishes a command selecting the given option. The
// option is not re-validated here: membership checks apply to inbound
// state only, and callers own what they command. For optimistic
// entities the new state is committed and announced before the
// publish, so observers see it even if the broker round trip is slow
// or lost.
func (e *Select) SelectOption(ctx context.Context, option string) error {
	e.mu.Lock()
	payload, err := e.renderCommand(e.commandTpl, option)
	if err != nil {
		e.mu.Unlock()
		return fmt.Errorf("rendering command for %s: %w", e.cfg.ID, err)
	}

	if e.assumedState {
		if assignString(&e.currentOption, option) {
			e.emitChange(e.snapshotLocked())
		}
	}
	topic := e.cfg.CommandTopic
	e.mu.Unlock()

	return e.publish(topic, payload)
}
