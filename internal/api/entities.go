package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fcollonval/hass-core/internal/entity"
)

// handleListEntities returns snapshots of all registered entities, with an
// optional kind filter.
//
// Query parameters:
//   - kind: filter by entity kind (select, update, lawn_mower)
func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	snaps := s.registry.Snapshots()

	if kind := r.URL.Query().Get("kind"); kind != "" {
		filtered := snaps[:0]
		for _, snap := range snaps {
			if snap.Kind == entity.Kind(kind) {
				filtered = append(filtered, snap)
			}
		}
		snaps = filtered
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entities": snaps,
		"count":    len(snaps),
	})
}

// handleGetEntity returns the snapshot of a single entity.
func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ent, ok := s.registry.Get(id)
	if !ok {
		writeNotFound(w, "entity not found")
		return
	}
	writeJSON(w, http.StatusOK, ent.Snapshot())
}

// handleEntityHistory returns recent persisted states for an entity.
//
// Query parameters:
//   - limit: maximum number of entries (default 50)
func (s *Server) handleEntityHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeNotFound(w, "state history not available")
		return
	}

	id := chi.URLParam(r, "id")
	if _, ok := s.registry.Get(id); !ok {
		writeNotFound(w, "entity not found")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := s.history.History(r.Context(), id, limit)
	if err != nil {
		s.logger.Error("state history query failed", "entity", id, "error", err)
		writeInternalError(w, "failed to load state history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entity":  id,
		"history": entries,
		"count":   len(entries),
	})
}

// selectOptionRequest is the body for POST /entities/{id}/select.
type selectOptionRequest struct {
	Option string `json:"option"`
}

// handleSelectOption publishes a select command for the entity.
func (s *Server) handleSelectOption(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ent, ok := s.registry.Get(id)
	if !ok {
		writeNotFound(w, "entity not found")
		return
	}
	sel, ok := ent.(*entity.Select)
	if !ok {
		writeConflict(w, "entity is not a select")
		return
	}

	var req selectOptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Option == "" {
		writeBadRequest(w, "option is required")
		return
	}

	if err := sel.SelectOption(r.Context(), req.Option); err != nil {
		s.logger.Error("select command failed", "entity", id, "error", err)
		writeInternalError(w, "command publish failed")
		return
	}
	writeJSON(w, http.StatusOK, sel.Snapshot())
}

// handleInstall triggers an update entity's install command.
func (s *Server) handleInstall(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ent, ok := s.registry.Get(id)
	if !ok {
		writeNotFound(w, "entity not found")
		return
	}
	upd, ok := ent.(*entity.Update)
	if !ok {
		writeConflict(w, "entity is not an update")
		return
	}

	if err := upd.Install(r.Context()); err != nil {
		if errors.Is(err, entity.ErrUnsupportedCommand) {
			writeConflict(w, err.Error())
			return
		}
		s.logger.Error("install command failed", "entity", id, "error", err)
		writeInternalError(w, "command publish failed")
		return
	}
	writeJSON(w, http.StatusAccepted, upd.Snapshot())
}

// handleStartMowing commands a lawn mower to begin mowing.
func (s *Server) handleStartMowing(w http.ResponseWriter, r *http.Request) {
	s.mowerCommand(w, r, func(m *entity.LawnMower, ctx context.Context) error {
		return m.StartMowing(ctx)
	})
}

// handlePause commands a lawn mower to pause.
func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.mowerCommand(w, r, func(m *entity.LawnMower, ctx context.Context) error {
		return m.Pause(ctx)
	})
}

// handleDock commands a lawn mower to return to its dock.
func (s *Server) handleDock(w http.ResponseWriter, r *http.Request) {
	s.mowerCommand(w, r, func(m *entity.LawnMower, ctx context.Context) error {
		return m.Dock(ctx)
	})
}

// mowerCommand resolves the lawn mower entity and runs one of its
// commands, mapping sentinel errors to HTTP statuses.
func (s *Server) mowerCommand(w http.ResponseWriter, r *http.Request, cmd func(*entity.LawnMower, context.Context) error) {
	id := chi.URLParam(r, "id")
	ent, ok := s.registry.Get(id)
	if !ok {
		writeNotFound(w, "entity not found")
		return
	}
	mower, ok := ent.(*entity.LawnMower)
	if !ok {
		writeConflict(w, "entity is not a lawn mower")
		return
	}

	if err := cmd(mower, r.Context()); err != nil {
		if errors.Is(err, entity.ErrUnsupportedCommand) {
			writeConflict(w, err.Error())
			return
		}
		s.logger.Error("mower command failed", "entity", id, "error", err)
		writeInternalError(w, "command publish failed")
		return
	}
	writeJSON(w, http.StatusOK, mower.Snapshot())
}
