// Package template adapts Go's text/template to payload transformation
// for the entity layer.
//
// Templates see the raw payload as .Value, its parsed form as .ValueJSON
// when the payload is valid JSON, and the owning entity as .EntityID and
// .Name. The helper functions lower, upper, and trim are available.
//
// # Usage
//
//	engine := template.NewEngine()
//	fn, err := engine.Compile(`{{ .ValueJSON.mode }}`)
//	if err != nil {
//	    return err
//	}
//	mode, err := fn(`{"mode":"eco","rssi":-60}`, nil)
//	// mode == "eco"
//
// Compile errors surface at entity setup; render errors surface per
// message and are absorbed by the entity layer.
package template
