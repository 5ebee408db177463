package entity

import "errors"

// Sentinel errors for the entity layer. Callers match with errors.Is.
var (
	// ErrInvalidConfig indicates an entity configuration that fails
	// structural or kind-specific validation.
	ErrInvalidConfig = errors.New("entity: invalid configuration")

	// ErrUnknownKind indicates a configuration naming a kind the
	// factory does not recognise.
	ErrUnknownKind = errors.New("entity: unknown kind")

	// ErrDuplicateID indicates a setup attempt for an ID that is
	// already registered.
	ErrDuplicateID = errors.New("entity: duplicate entity id")

	// ErrNotFound indicates a lookup for an ID with no registered
	// entity.
	ErrNotFound = errors.New("entity: entity not found")

	// ErrUnsupportedCommand indicates a command the entity's
	// configuration does not support (no command topic configured).
	ErrUnsupportedCommand = errors.New("entity: command not supported")

	// ErrNoTemplateEngine indicates a configured template with no
	// engine available to compile it.
	ErrNoTemplateEngine = errors.New("entity: template configured but no engine available")
)
