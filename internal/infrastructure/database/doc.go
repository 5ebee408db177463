// Package database provides SQLite persistence for Hass Core.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Idempotent schema initialisation at open
//   - The entity state store (last value + transition history)
//   - Connection lifecycle and health checks
//
// Security Considerations:
//   - All queries use parameterised statements (no SQL injection)
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Performance Characteristics:
//   - WAL mode allows concurrent reads during writes
//   - Busy timeout prevents lock contention errors
//   - Single-writer pool matches SQLite's locking model
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: "./data/hasscore.db"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	store := database.NewStateStore(db)
//	store.SaveState(ctx, "fan-preset", "medium")
//
// The store is the entity layer's restore-on-start source: assumed-state
// entities read their last persisted value back through LastState before
// they begin accepting messages.
package database
