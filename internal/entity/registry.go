package entity

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// persistTimeout bounds each state persistence write triggered by a
// change notification.
const persistTimeout = 5 * time.Second

// Deps carries the external collaborators the registry threads into
// every entity it builds. Transport is required; the rest are optional.
type Deps struct {
	Transport Transport
	Templates TemplateEngine
	Store     StateStore
	Logger    Logger
}

// Registry is the lifecycle host: it builds entities from configuration,
// starts and stops them, and fans committed state changes out to the
// persistence layer and registered notifiers.
type Registry struct {
	deps   Deps
	logger Logger

	mu       sync.RWMutex
	entities map[string]Entity

	notifyMu  sync.RWMutex
	notifiers []Notifier
}

// NewRegistry creates an empty registry.
func NewRegistry(d Deps) *Registry {
	logger := d.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Registry{
		deps:     d,
		logger:   logger,
		entities: make(map[string]Entity),
	}
}

// AddNotifier registers an observer for committed state changes.
// Notifiers added after entities are running receive only subsequent
// changes.
func (r *Registry) AddNotifier(n Notifier) {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()
	r.notifiers = append(r.notifiers, n)
}

// Setup builds, starts, and registers an entity from its configuration.
// Restore-on-start runs before the entity subscribes to any topic.
func (r *Registry) Setup(ctx context.Context, cfg Config) (Entity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entities[cfg.ID]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, cfg.ID)
	}

	ent, err := r.build(cfg)
	if err != nil {
		return nil, fmt.Errorf("building entity %s: %w", cfg.ID, err)
	}
	if err := ent.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting entity %s: %w", cfg.ID, err)
	}

	r.entities[cfg.ID] = ent
	r.logger.Info("Entity registered",
		"entity", cfg.ID,
		"kind", cfg.Kind)
	return ent, nil
}

// build constructs the kind-specific entity with the registry's
// collaborators wired in.
func (r *Registry) build(cfg Config) (Entity, error) {
	d := deps{
		transport: r.deps.Transport,
		engine:    r.deps.Templates,
		store:     r.deps.Store,
		logger:    r.logger,
		onChange:  r.stateChanged,
	}
	switch cfg.Kind {
	case KindSelect:
		return newSelect(cfg, d)
	case KindUpdate:
		return newUpdate(cfg, d)
	case KindLawnMower:
		return newLawnMower(cfg, d)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
}

// Teardown stops an entity and removes it from the registry.
func (r *Registry) Teardown(id string) error {
	r.mu.Lock()
	ent, exists := r.entities[id]
	if exists {
		delete(r.entities, id)
	}
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := ent.Stop(); err != nil {
		return fmt.Errorf("stopping entity %s: %w", id, err)
	}
	r.logger.Info("Entity removed", "entity", id)
	return nil
}

// Configure replaces a registered entity's configuration. The entity ID
// is immutable across reconfiguration.
func (r *Registry) Configure(id string, cfg Config) error {
	if cfg.ID != id {
		return fmt.Errorf("%w: id is immutable", ErrInvalidConfig)
	}
	ent, ok := r.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := ent.Configure(cfg); err != nil {
		return fmt.Errorf("reconfiguring entity %s: %w", id, err)
	}
	r.logger.Info("Entity reconfigured", "entity", id)
	return nil
}

// Get returns the entity registered under id.
func (r *Registry) Get(id string) (Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ent, ok := r.entities[id]
	return ent, ok
}

// Snapshots returns the current state of every registered entity,
// ordered by ID.
func (r *Registry) Snapshots() []Snapshot {
	r.mu.RLock()
	entities := make([]Entity, 0, len(r.entities))
	for _, ent := range r.entities {
		entities = append(entities, ent)
	}
	r.mu.RUnlock()

	snaps := make([]Snapshot, 0, len(entities))
	for _, ent := range entities {
		snaps = append(snaps, ent.Snapshot())
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].ID < snaps[j].ID })
	return snaps
}

// Count returns the number of registered entities.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entities)
}

// Close stops every entity. The registry is not usable afterwards.
func (r *Registry) Close() error {
	r.mu.Lock()
	entities := r.entities
	r.entities = make(map[string]Entity)
	r.mu.Unlock()

	for id, ent := range entities {
		if err := ent.Stop(); err != nil {
			r.logger.Warn("Stopping entity failed during shutdown",
				"entity", id,
				"error", err)
		}
	}
	return nil
}

// stateChanged is the change hook installed on every entity: persist the
// native value, then fan the snapshot out to notifiers. It runs on the
// entity's serialized state path, so notifiers must return promptly and
// must not call back into the entity.
func (r *Registry) stateChanged(snap Snapshot) {
	if r.deps.Store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		if err := r.deps.Store.SaveState(ctx, snap.ID, snap.NativeValue()); err != nil {
			r.logger.Error("Persisting entity state failed",
				"entity", snap.ID,
				"error", err)
		}
		cancel()
	}

	r.notifyMu.RLock()
	notifiers := make([]Notifier, len(r.notifiers))
	copy(notifiers, r.notifiers)
	r.notifyMu.RUnlock()

	for _, n := range notifiers {
		n.EntityStateChanged(snap)
	}
}
