package entity

import (
	"context"
	"sync"
)

// Entity is the common surface of every kind. The registry owns
// construction and lifecycle; callers interact through snapshots and
// kind-specific command methods.
type Entity interface {
	ID() string
	Kind() Kind
	Snapshot() Snapshot

	// Start restores persisted state (assumed-state entities only) and
	// establishes topic subscriptions. Restore completes before any
	// subscription is made.
	Start(ctx context.Context) error

	// Stop tears down all topic subscriptions.
	Stop() error

	// Configure replaces the entity's configuration atomically,
	// recompiling templates and rebinding subscriptions. Projected
	// state survives reconfiguration.
	Configure(cfg Config) error
}

// deps carries the collaborators shared by every entity.
type deps struct {
	transport Transport
	engine    TemplateEngine
	store     StateStore
	logger    Logger
	onChange  func(Snapshot)
}

// base holds the state machinery shared by all kinds. One mutex
// serializes every state-affecting path (inbound messages, commands,
// reconfiguration, snapshots); entities are independent of each other.
type base struct {
	mu   sync.Mutex
	cfg  Config
	subs *subscriptions

	transport Transport
	engine    TemplateEngine
	store     StateStore
	logger    Logger
	onChange  func(Snapshot)

	// assumedState is forced on when no state topic is configured,
	// regardless of the optimistic flag.
	assumedState bool

	valueTpl   TemplateFn
	commandTpl TemplateFn
}

func newBase(cfg Config, d deps) base {
	logger := d.logger
	if logger == nil {
		logger = noopLogger{}
	}
	return base{
		cfg:       cfg,
		subs:      newSubscriptions(d.transport),
		transport: d.transport,
		engine:    d.engine,
		store:     d.store,
		logger:    logger,
		onChange:  d.onChange,
	}
}

func (b *base) ID() string {
	return b.cfg.ID
}

// compile turns template source into a render function, or nil when no
// template is configured.
func (b *base) compile(source string) (TemplateFn, error) {
	if source == "" {
		return nil, nil
	}
	if b.engine == nil {
		return nil, ErrNoTemplateEngine
	}
	return b.engine.Compile(source)
}

// applyConfig installs a new configuration and derived flags. Callers
// hold the mutex on reconfiguration and recompile kind-specific
// templates themselves.
func (b *base) applyConfig(cfg Config) error {
	valueTpl, err := b.compile(cfg.ValueTemplate)
	if err != nil {
		return err
	}
	commandTpl, err := b.compile(cfg.CommandTemplate)
	if err != nil {
		return err
	}
	b.cfg = cfg
	b.valueTpl = valueTpl
	b.commandTpl = commandTpl
	b.assumedState = cfg.Optimistic || cfg.StateTopic == ""
	return nil
}

// renderValue decodes an inbound payload and runs it through tpl.
// Template errors are absorbed: they are logged and the message is
// dropped, leaving projected state untouched.
func (b *base) renderValue(tpl TemplateFn, topic string, payload []byte) (string, bool) {
	// With utf-8 (and the undecoded passthrough) the byte-to-string
	// conversion is verbatim either way.
	raw := string(payload)
	if tpl == nil {
		return raw, true
	}
	value, err := tpl(raw, b.templateContext())
	if err != nil {
		b.logger.Warn("Template render failed, message dropped",
			"entity", b.cfg.ID,
			"topic", topic,
			"error", err)
		return "", false
	}
	return value, true
}

// renderCommand runs an outbound value through tpl, falling back to the
// value itself when no template is configured. Unlike inbound rendering,
// command render errors surface to the caller.
func (b *base) renderCommand(tpl TemplateFn, value string) (string, error) {
	if tpl == nil {
		return value, nil
	}
	return tpl(value, b.templateContext())
}

func (b *base) templateContext() map[string]any {
	return map[string]any{
		"entity_id": b.cfg.ID,
		"name":      b.cfg.Name,
	}
}

// publish sends a command payload with the entity's QoS and retain
// settings. Callers must not hold the mutex.
func (b *base) publish(topic, payload string) error {
	return b.transport.Publish(topic, []byte(payload), b.cfg.QoS, b.cfg.Retain)
}

// emitChange hands a committed snapshot to the lifecycle host. Called
// with the mutex held; the host must not call back into the entity.
func (b *base) emitChange(snap Snapshot) {
	if b.onChange != nil {
		b.onChange(snap)
	}
}

// restoreValue fetches the persisted native value for restore-on-start.
// Only assumed-state entities restore; a missing row or an empty value
// yields no restoration.
func (b *base) restoreValue(ctx context.Context) (string, bool) {
	if !b.assumedState || b.store == nil {
		return "", false
	}
	last, found, err := b.store.LastState(ctx, b.cfg.ID)
	if err != nil {
		b.logger.Warn("State restore failed",
			"entity", b.cfg.ID,
			"error", err)
		return "", false
	}
	if !found || last == "" {
		return "", false
	}
	return last, true
}

// stateSpec builds the state-topic binding for the given handler, or a
// zero spec when no state topic is configured.
func (b *base) stateSpec(handler MessageHandler) topicSpec {
	return topicSpec{
		topic:    b.cfg.StateTopic,
		qos:      b.cfg.QoS,
		encoding: b.cfg.Encoding,
		handler:  handler,
	}
}
