// Package entity implements the MQTT entity platform for Hass Core.
//
// An entity mirrors one device-side object (a select input, a firmware
// update slot, a lawn mower) onto MQTT topics: inbound state payloads
// are decoded, templated, and projected into a local snapshot; outbound
// commands are templated and published to the device's command topics.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────────┐
//	│                            Registry                              │
//	│                         (registry.go)                            │
//	│                                                                  │
//	│   build ──▶ start ──▶ run ──▶ stop        per-entity lifecycle   │
//	│   change hook: persist native value, fan out to notifiers        │
//	└───────────────┬──────────────────────────────────┬───────────────┘
//	                │                                  │
//	   ┌────────────▼────────────┐        ┌────────────▼────────────┐
//	   │      Entity kinds       │        │      Collaborators      │
//	   │  select.go  update.go   │        │  Transport (MQTT)       │
//	   │  lawnmower.go           │        │  TemplateEngine         │
//	   │                         │        │  StateStore (SQLite)    │
//	   │  shared: entity.go      │        │  Notifier (WS, Influx)  │
//	   │  codec.go subscription. │        └─────────────────────────┘
//	   └─────────────────────────┘
//
// # Concurrency
//
// Each entity serializes its inbound messages, commands, snapshots, and
// reconfigurations behind a single mutex. Entities are fully independent
// of each other; the registry only guards its own maps.
//
// # Change gating
//
// Persistence and notification fire only when a message or command
// actually changes projected state. Redundant payloads are absorbed
// silently, so at-least-once MQTT delivery never produces duplicate
// downstream events.
//
// # Usage
//
//	reg := entity.NewRegistry(entity.Deps{
//	    Transport: transport,
//	    Templates: engine,
//	    Store:     store,
//	    Logger:    log,
//	})
//	reg.AddNotifier(hub)
//
//	ent, err := reg.Setup(ctx, entity.Config{
//	    ID:           "patio_mode",
//	    Kind:         entity.KindSelect,
//	    StateTopic:   "patio/mode/state",
//	    CommandTopic: "patio/mode/set",
//	    Options:      []string{"off", "eco", "comfort"},
//	})
package entity
