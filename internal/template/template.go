package template

import (
	"encoding/json"
	"fmt"
	"strings"
	texttemplate "text/template"

	"github.com/fcollonval/hass-core/internal/entity"
)

// Engine compiles Go text/template sources into the render functions the
// entity layer consumes. Compilation happens once at entity setup; the
// returned functions are pure and safe for concurrent use.
type Engine struct {
	funcs texttemplate.FuncMap
}

// NewEngine creates an engine with the standard helper functions.
func NewEngine() *Engine {
	return &Engine{
		funcs: texttemplate.FuncMap{
			"lower": strings.ToLower,
			"upper": strings.ToUpper,
			"trim":  strings.TrimSpace,
		},
	}
}

// renderContext is the data a template sees. ValueJSON is nil when the
// payload is not valid JSON, so templates that only use .Value work on
// any payload.
type renderContext struct {
	Value     string
	ValueJSON any
	EntityID  string
	Name      string
}

// Compile parses source and returns a render function over it.
func (e *Engine) Compile(source string) (entity.TemplateFn, error) {
	tmpl, err := texttemplate.New("payload").Funcs(e.funcs).Option("missingkey=zero").Parse(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompile, err)
	}

	return func(raw string, ctx map[string]any) (string, error) {
		data := renderContext{Value: raw}
		var parsed any
		if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
			data.ValueJSON = parsed
		}
		if ctx != nil {
			if id, ok := ctx["entity_id"].(string); ok {
				data.EntityID = id
			}
			if name, ok := ctx["name"].(string); ok {
				data.Name = name
			}
		}

		var sb strings.Builder
		if err := tmpl.Execute(&sb, data); err != nil {
			return "", fmt.Errorf("%w: %v", ErrRender, err)
		}
		return sb.String(), nil
	}, nil
}
