package entity

import (
	"context"
	"fmt"
)

// Update projects firmware/software version state from sparse JSON
// payloads. Display metadata is seeded from configuration and
// overwritten field by field as payloads supply it.
type Update struct {
	base
	latestVersionTpl TemplateFn

	installedVersion *string
	latestVersion    *string
	title            *string
	releaseSummary   *string
	releaseURL       *string
	entityPicture    *string
}

func newUpdate(cfg Config, d deps) (*Update, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.StateTopic == "" && cfg.LatestVersionTopic == "" {
		return nil, fmt.Errorf("%w: update requires a state or latest version topic", ErrInvalidConfig)
	}
	e := &Update{base: newBase(cfg, d)}
	if err := e.applyUpdateConfig(cfg); err != nil {
		return nil, err
	}
	e.seedMetadata(cfg)
	return e, nil
}

// applyUpdateConfig extends the shared config application with the
// latest-version template.
func (e *Update) applyUpdateConfig(cfg Config) error {
	if err := e.applyConfig(cfg); err != nil {
		return err
	}
	tpl, err := e.compile(cfg.LatestVersionTemplate)
	if err != nil {
		return err
	}
	e.latestVersionTpl = tpl
	// Version projection is never assumed; there is no optimistic mode
	// for a read-only surface.
	e.assumedState = false
	return nil
}

// seedMetadata initialises display fields from configuration. Payload
// fields overwrite these later; absent config leaves them unset.
func (e *Update) seedMetadata(cfg Config) {
	if cfg.Title != "" {
		assignString(&e.title, cfg.Title)
	}
	if cfg.ReleaseSummary != "" {
		assignString(&e.releaseSummary, cfg.ReleaseSummary)
	}
	if cfg.ReleaseURL != "" {
		assignString(&e.releaseURL, cfg.ReleaseURL)
	}
	if cfg.EntityPicture != "" {
		assignString(&e.entityPicture, cfg.EntityPicture)
	}
}

func (e *Update) Kind() Kind {
	return KindUpdate
}

// Features reports Install support, derived from the presence of a
// command topic.
func (e *Update) Features() Features {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.featuresLocked()
}

func (e *Update) featuresLocked() Features {
	var f Features
	if e.cfg.CommandTopic != "" {
		f |= FeatureInstall
	}
	return f
}

func (e *Update) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Update) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:          e.cfg.ID,
		Name:        e.cfg.Name,
		Kind:        KindUpdate,
		Features:    e.featuresLocked(),
		DeviceClass: e.cfg.DeviceClass,
	}
	copyPtr := func(dst **string, src *string) {
		if src != nil {
			v := *src
			*dst = &v
		}
	}
	copyPtr(&snap.InstalledVersion, e.installedVersion)
	copyPtr(&snap.LatestVersion, e.latestVersion)
	copyPtr(&snap.Title, e.title)
	copyPtr(&snap.ReleaseSummary, e.releaseSummary)
	copyPtr(&snap.ReleaseURL, e.releaseURL)
	copyPtr(&snap.EntityPicture, e.entityPicture)
	return snap
}

func (e *Update) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.subs.apply(e.desiredTopics())
}

func (e *Update) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.subs.clear()
}

func (e *Update) Configure(cfg Config) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	if cfg.StateTopic == "" && cfg.LatestVersionTopic == "" {
		return fmt.Errorf("%w: update requires a state or latest version topic", ErrInvalidConfig)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.applyUpdateConfig(cfg); err != nil {
		return err
	}
	e.seedMetadata(cfg)
	return e.subs.apply(e.desiredTopics())
}

func (e *Update) desiredTopics() map[string]topicSpec {
	return map[string]topicSpec{
		roleState: e.stateSpec(e.handleStateMessage),
		roleLatestVersion: {
			topic:    e.cfg.LatestVersionTopic,
			qos:      e.cfg.QoS,
			encoding: e.cfg.Encoding,
			handler:  e.handleLatestVersionMessage,
		},
	}
}

// handleStateMessage merges a sparse payload into the projected fields.
// Empty and "{}" payloads are deliberate no-ops; at most one change
// notification is emitted per message regardless of how many fields it
// touched.
func (e *Update) handleStateMessage(topic string, payload []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	value, ok := e.renderValue(e.valueTpl, topic, payload)
	if !ok {
		return nil
	}
	if value == "" || value == emptyJSONSentinel {
		e.logger.Debug("Ignoring empty update payload",
			"entity", e.cfg.ID,
			"topic", topic)
		return nil
	}

	fields := decodeUpdatePayload(value)
	changed := false
	for key, v := range fields {
		switch key {
		case fieldInstalledVersion:
			changed = assignString(&e.installedVersion, v) || changed
		case fieldLatestVersion:
			changed = assignString(&e.latestVersion, v) || changed
		case fieldTitle:
			changed = assignString(&e.title, v) || changed
		case fieldReleaseSummary:
			changed = assignString(&e.releaseSummary, v) || changed
		case fieldReleaseURL:
			changed = assignString(&e.releaseURL, v) || changed
		case fieldEntityPicture:
			changed = assignString(&e.entityPicture, v) || changed
		}
	}
	if changed {
		e.emitChange(e.snapshotLocked())
	}
	return nil
}

// handleLatestVersionMessage projects the dedicated latest-version
// topic. An empty rendered value is suppressed rather than clearing the
// field.
func (e *Update) handleLatestVersionMessage(topic string, payload []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	value, ok := e.renderValue(e.latestVersionTpl, topic, payload)
	if !ok {
		return nil
	}
	if value == "" {
		e.logger.Debug("Ignoring empty latest version payload",
			"entity", e.cfg.ID,
			"topic", topic)
		return nil
	}
	if assignString(&e.latestVersion, value) {
		e.emitChange(e.snapshotLocked())
	}
	return nil
}

// Install publishes the configured install trigger. The device reports
// progress back through the state topic; nothing is assumed locally.
func (e *Update) Install(ctx context.Context) error {
	e.mu.Lock()
	topic := e.cfg.CommandTopic
	payload := e.cfg.PayloadInstall
	e.mu.Unlock()

	if topic == "" {
		return fmt.Errorf("%w: no command topic configured for %s", ErrUnsupportedCommand, e.ID())
	}
	return e.publish(topic, payload)
}
