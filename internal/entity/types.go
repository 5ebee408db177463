package entity

import (
	"context"
	"fmt"
)

// Kind identifies an entity variant. The set is closed: new kinds are
// added here and in the registry factory, not through open-ended
// subtyping.
type Kind string

// Supported entity kinds.
const (
	KindSelect    Kind = "select"
	KindUpdate    Kind = "update"
	KindLawnMower Kind = "lawn_mower"
)

// Features is a bitmask of optional entity capabilities. Which bits are
// set is derived statically from configuration (which command topics
// exist), never from per-message state.
type Features uint32

// Feature flags.
const (
	FeatureInstall Features = 1 << iota
	FeatureStartMowing
	FeaturePause
	FeatureDock
)

// Has reports whether all bits in flag are set.
func (f Features) Has(flag Features) bool {
	return f&flag == flag
}

// Lawn mower activity values. Inbound activity payloads must be a member
// of this set.
const (
	ActivityMowing    = "mowing"
	ActivityPaused    = "paused"
	ActivityDocked    = "docked"
	ActivityReturning = "returning"
	ActivityError     = "error"
)

// validActivities is the closed validity set for lawn mower state.
var validActivities = map[string]bool{
	ActivityMowing:    true,
	ActivityPaused:    true,
	ActivityDocked:    true,
	ActivityReturning: true,
	ActivityError:     true,
}

// Config is the immutable-per-epoch definition of one entity.
//
// It is constructed from validated configuration at setup and replaced
// wholesale on reconfiguration; entities never mutate it in place.
type Config struct {
	ID   string
	Name string
	Kind Kind

	StateTopic   string
	CommandTopic string

	QoS        byte
	Retain     bool
	Encoding   string // "utf-8" or "" for no decoding
	Optimistic bool

	ValueTemplate   string
	CommandTemplate string

	// Select kind.
	Options []string

	// Update kind.
	LatestVersionTopic    string
	LatestVersionTemplate string
	DeviceClass           string
	Title                 string
	ReleaseSummary        string
	ReleaseURL            string
	EntityPicture         string
	PayloadInstall        string

	// Lawn mower kind.
	StartMowingCommandTopic    string
	StartMowingCommandTemplate string
	PauseCommandTopic          string
	PauseCommandTemplate       string
	DockCommandTopic           string
	DockCommandTemplate        string
}

// validate checks kind-independent structure. Kind-specific requirements
// are enforced by each constructor.
func (c Config) validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidConfig)
	}
	if c.QoS > 2 {
		return fmt.Errorf("%w: qos must be 0, 1, or 2", ErrInvalidConfig)
	}
	// Paho delivers raw bytes; utf-8 is the only supported text decoding.
	// An empty encoding means payloads pass through undecoded.
	if c.Encoding != "" && c.Encoding != "utf-8" {
		return fmt.Errorf("%w: unsupported encoding %q", ErrInvalidConfig, c.Encoding)
	}
	return nil
}

// Snapshot is a read-only copy of an entity's observable state, safe to
// hand to the lifecycle host, API responses, and notifiers. Kind-specific
// fields are nil/zero for other kinds.
type Snapshot struct {
	ID           string   `json:"id"`
	Name         string   `json:"name,omitempty"`
	Kind         Kind     `json:"kind"`
	AssumedState bool     `json:"assumed_state,omitempty"`
	Features     Features `json:"supported_features,omitempty"`

	// Select kind.
	Options       []string `json:"options,omitempty"`
	CurrentOption *string  `json:"current_option,omitempty"`

	// Update kind.
	InstalledVersion *string `json:"installed_version,omitempty"`
	LatestVersion    *string `json:"latest_version,omitempty"`
	Title            *string `json:"title,omitempty"`
	ReleaseSummary   *string `json:"release_summary,omitempty"`
	ReleaseURL       *string `json:"release_url,omitempty"`
	EntityPicture    *string `json:"entity_picture,omitempty"`
	DeviceClass      string  `json:"device_class,omitempty"`

	// Lawn mower kind.
	Activity *string `json:"activity,omitempty"`
}

// NativeValue returns the single state string used for persistence and
// restore-on-start.
func (s Snapshot) NativeValue() string {
	switch s.Kind {
	case KindSelect:
		if s.CurrentOption != nil {
			return *s.CurrentOption
		}
	case KindUpdate:
		if s.InstalledVersion != nil {
			return *s.InstalledVersion
		}
	case KindLawnMower:
		if s.Activity != nil {
			return *s.Activity
		}
	}
	return ""
}

// MessageHandler is the callback signature for inbound messages.
type MessageHandler func(topic string, payload []byte) error

// Transport is the publish/subscribe boundary. The MQTT client satisfies
// it via a thin adapter; tests substitute a fake.
//
// Publish is fire-and-forget from the entity layer's perspective:
// delivery guarantees are the transport's contract, and the entity layer
// never retries.
type Transport interface {
	Subscribe(topic string, qos byte, handler MessageHandler) error
	Unsubscribe(topic string) error
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// StateStore persists the last native state value per entity. It backs
// restore-on-start for assumed-state entities.
type StateStore interface {
	LastState(ctx context.Context, entityID string) (string, bool, error)
	SaveState(ctx context.Context, entityID string, state string) error
}

// Notifier observes committed state changes. Notifiers are invoked only
// for genuine changes (change-gated), synchronously from the entity's
// serialized state path, and must not call back into the entity.
type Notifier interface {
	EntityStateChanged(snap Snapshot)
}

// TemplateFn transforms a raw payload into its semantic value. The
// context carries entity variables (entity_id, name). Implementations
// must be pure; the entity layer absorbs render errors.
type TemplateFn func(raw string, ctx map[string]any) (string, error)

// TemplateEngine compiles template source once at configuration time.
type TemplateEngine interface {
	Compile(source string) (TemplateFn, error)
}

// Logger defines the logging interface used by the entity layer.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// assignString stores v into dst, reporting whether the tracked value
// actually changed. Unchanged writes are the no-op half of change gating.
func assignString(dst **string, v string) bool {
	if *dst != nil && **dst == v {
		return false
	}
	val := v
	*dst = &val
	return true
}
