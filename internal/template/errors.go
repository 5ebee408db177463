package template

import "errors"

// Sentinel errors for the template package. Callers match with errors.Is.
var (
	// ErrCompile indicates template source that fails to parse.
	ErrCompile = errors.New("template: compile failed")

	// ErrRender indicates a template that parsed but failed against a
	// concrete payload.
	ErrRender = errors.New("template: render failed")
)
