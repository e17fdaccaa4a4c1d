// Package v1 defines the wire contract between the worker and the
// headless renderer sidecar. Changes here must stay backward compatible
// or ship as a new version directory.
package v1

// RenderSpec is the body of POST /render.
//   - render_id: stable identifier, reused verbatim on retries
//   - composition_id: which registered composition to render
//   - input_props: fully merged props (template defaults under record input)
//   - inputs: asset ref -> local path, materialized before the call
//   - output: absolute paths the renderer writes to
type RenderSpec struct {
	RenderID      string            `json:"render_id"`
	CompositionID string            `json:"composition_id"`
	InputProps    map[string]any    `json:"input_props"`
	Inputs        map[string]string `json:"inputs,omitempty"`
	Output        Output            `json:"output"`
}

type Output struct {
	VideoPath string `json:"video_path"`
}

// ErrorEnvelope is the renderer's error body for non-2xx responses.
type ErrorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
