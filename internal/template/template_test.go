package template

import (
	"errors"
	"strings"
	"testing"
)

// =============================================================================
// Compilation
// =============================================================================

func TestCompile_InvalidSource(t *testing.T) {
	engine := NewEngine()

	if _, err := engine.Compile("{{ .Value"); !errors.Is(err, ErrCompile) {
		t.Errorf("Compile() error = %v, want ErrCompile", err)
	}
}

// =============================================================================
// Rendering
// =============================================================================

func TestRender_ValuePassthrough(t *testing.T) {
	engine := NewEngine()
	fn, err := engine.Compile(`{{ .Value }}`)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	got, err := fn("eco", nil)
	if err != nil {
		t.Fatalf("render error = %v", err)
	}
	if got != "eco" {
		t.Errorf("render = %q, want eco", got)
	}
}

func TestRender_JSONExtraction(t *testing.T) {
	engine := NewEngine()
	fn, err := engine.Compile(`{{ .ValueJSON.mode }}`)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	got, err := fn(`{"mode":"comfort","rssi":-60}`, nil)
	if err != nil {
		t.Fatalf("render error = %v", err)
	}
	if got != "comfort" {
		t.Errorf("render = %q, want comfort", got)
	}
}

func TestRender_NonJSONPayloadLeavesValueJSONNil(t *testing.T) {
	engine := NewEngine()
	fn, err := engine.Compile(`{{ if .ValueJSON }}json{{ else }}plain{{ end }}`)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	got, err := fn("not json at all", nil)
	if err != nil {
		t.Fatalf("render error = %v", err)
	}
	if got != "plain" {
		t.Errorf("render = %q, want plain", got)
	}
}

func TestRender_HelperFunctions(t *testing.T) {
	engine := NewEngine()
	fn, err := engine.Compile(`{{ upper (trim .Value) }}`)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	got, err := fn("  eco  ", nil)
	if err != nil {
		t.Fatalf("render error = %v", err)
	}
	if got != "ECO" {
		t.Errorf("render = %q, want ECO", got)
	}
}

func TestRender_EntityContext(t *testing.T) {
	engine := NewEngine()
	fn, err := engine.Compile(`{{ .EntityID }}:{{ .Value }}`)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	got, err := fn("eco", map[string]any{"entity_id": "patio_mode"})
	if err != nil {
		t.Fatalf("render error = %v", err)
	}
	if got != "patio_mode:eco" {
		t.Errorf("render = %q, want patio_mode:eco", got)
	}
}

func TestRender_ErrorWrapped(t *testing.T) {
	engine := NewEngine()
	// Field access on a non-object payload fails at render time.
	fn, err := engine.Compile(`{{ .ValueJSON.mode.submode }}`)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	if _, err := fn(`{"mode":"eco"}`, nil); !errors.Is(err, ErrRender) {
		t.Errorf("render error = %v, want ErrRender", err)
	}
}

func TestRender_ConcurrentUse(t *testing.T) {
	engine := NewEngine()
	fn, err := engine.Compile(`{{ lower .Value }}`)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				got, err := fn("ECO", nil)
				if err == nil && got != "eco" {
					err = errors.New("render = " + got)
				}
				if err != nil {
					done <- err
					return
				}
			}
			done <- nil
		}()
	}
	for i := 0; i < 8; i++ {
		if err := <-done; err != nil {
			t.Fatalf("concurrent render: %v", err)
		}
	}
}

func TestRender_MissingKeyYieldsNoValue(t *testing.T) {
	engine := NewEngine()
	fn, err := engine.Compile(`{{ .ValueJSON.absent }}`)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	got, err := fn(`{"mode":"eco"}`, nil)
	if err != nil {
		t.Fatalf("render error = %v", err)
	}
	if !strings.Contains(got, "no value") && got != "" {
		t.Errorf("render = %q, want empty or <no value>", got)
	}
}
