package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType is the standardized key naming what happened in machine-readable form.
	FieldEventType = "event_type"
	// FieldErrorHint is the standardized key for the suggested next step.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldRenderID is the standardized key for the correlation id of one render.
	FieldRenderID = "render_id"
	// FieldPreset is the standardized key for the preset being rendered.
	FieldPreset = "preset"
)
