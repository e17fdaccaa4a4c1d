// Package composition models the declarative timeline schema consumed by the
// render engine: canvas, frame timing, and an ordered list of elements.
package composition

import (
	"fmt"
	"strings"
)

// ElementKind discriminates the element union.
type ElementKind string

const (
	ElementVideo ElementKind = "video"
	ElementImage ElementKind = "image"
	ElementText  ElementKind = "text"
	ElementAudio ElementKind = "audio"
)

// Element is one timeline entry. Kind-specific required fields are validated
// at construction/edit time; the render path trusts a validated schema.
type Element struct {
	ID   string      `json:"id"`
	Kind ElementKind `json:"kind"`

	// Content references the media for video/image/audio elements, either an
	// ingested asset ("asset:<id>") or a direct URL. Unused for text.
	Content string `json:"content,omitempty"`
	// Text is the rendered string for text elements.
	Text string `json:"text,omitempty"`

	StartFrame     int `json:"start_frame"`
	DurationFrames int `json:"duration_frames"`
	// MediaStartOffsetFrames trims the head of the source media before it
	// enters the timeline. Video and audio only.
	MediaStartOffsetFrames int `json:"media_start_offset_frames,omitempty"`
	FadeInFrames           int `json:"fade_in_frames,omitempty"`
	FadeOutFrames          int `json:"fade_out_frames,omitempty"`

	Style map[string]any `json:"style,omitempty"`
}

// Validate checks the hard invariants for a single element.
func (e *Element) Validate() error {
	switch e.Kind {
	case ElementVideo, ElementImage, ElementAudio:
		if strings.TrimSpace(e.Content) == "" {
			return fmt.Errorf("element %q: %s element requires content", e.ID, e.Kind)
		}
	case ElementText:
		if strings.TrimSpace(e.Text) == "" {
			return fmt.Errorf("element %q: text element requires text", e.ID)
		}
	default:
		return fmt.Errorf("element %q: unknown kind %q", e.ID, e.Kind)
	}

	if e.StartFrame < 0 {
		return fmt.Errorf("element %q: start_frame must be >= 0, got %d", e.ID, e.StartFrame)
	}
	if e.DurationFrames <= 0 {
		return fmt.Errorf("element %q: duration_frames must be > 0, got %d", e.ID, e.DurationFrames)
	}
	if e.MediaStartOffsetFrames != 0 && e.Kind != ElementVideo && e.Kind != ElementAudio {
		return fmt.Errorf("element %q: media_start_offset_frames only applies to video/audio", e.ID)
	}
	if e.MediaStartOffsetFrames < 0 {
		return fmt.Errorf("element %q: media_start_offset_frames must be >= 0", e.ID)
	}
	if e.FadeInFrames < 0 || e.FadeOutFrames < 0 {
		return fmt.Errorf("element %q: fade frames must be >= 0", e.ID)
	}
	return nil
}

// EndFrame is the first frame after the element.
func (e *Element) EndFrame() int {
	return e.StartFrame + e.DurationFrames
}

// AssetRef returns the asset ID when Content points at an ingested asset,
// and "" otherwise.
func (e *Element) AssetRef() string {
	const prefix = "asset:"
	if strings.HasPrefix(e.Content, prefix) {
		return strings.TrimPrefix(e.Content, prefix)
	}
	return ""
}

// Schema is the immutable-once-rendered timeline description.
type Schema struct {
	CanvasWidth         int       `json:"canvas_width"`
	CanvasHeight        int       `json:"canvas_height"`
	FPS                 int       `json:"fps"`
	TotalDurationFrames int       `json:"total_duration_frames"`
	Elements            []Element `json:"elements"`
}

// Validate checks the schema's hard invariants. Elements extending past the
// timeline end are legal (they clip at render time); see BoundsWarnings for
// the edit-time soft check.
func (s *Schema) Validate() error {
	if s.CanvasWidth <= 0 || s.CanvasHeight <= 0 {
		return fmt.Errorf("canvas dimensions must be positive, got %dx%d", s.CanvasWidth, s.CanvasHeight)
	}
	if s.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %d", s.FPS)
	}
	if s.TotalDurationFrames <= 0 {
		return fmt.Errorf("total_duration_frames must be positive, got %d", s.TotalDurationFrames)
	}

	seen := make(map[string]struct{}, len(s.Elements))
	for i := range s.Elements {
		e := &s.Elements[i]
		if err := e.Validate(); err != nil {
			return err
		}
		if e.ID != "" {
			if _, dup := seen[e.ID]; dup {
				return fmt.Errorf("duplicate element id %q", e.ID)
			}
			seen[e.ID] = struct{}{}
		}
	}
	return nil
}

// BoundsWarnings lists elements whose span extends past the timeline end.
// This is the edit-time soft constraint: surfaced to editors, never enforced
// at render time.
func (s *Schema) BoundsWarnings() []string {
	var warnings []string
	for i := range s.Elements {
		e := &s.Elements[i]
		if e.EndFrame() > s.TotalDurationFrames {
			warnings = append(warnings, fmt.Sprintf(
				"element %q ends at frame %d, past timeline end %d",
				e.ID, e.EndFrame(), s.TotalDurationFrames))
		}
	}
	return warnings
}

// AssetRefs returns the distinct asset IDs referenced by the schema's
// elements, in element order.
func (s *Schema) AssetRefs() []string {
	var refs []string
	seen := make(map[string]struct{})
	for i := range s.Elements {
		if ref := s.Elements[i].AssetRef(); ref != "" {
			if _, ok := seen[ref]; !ok {
				seen[ref] = struct{}{}
				refs = append(refs, ref)
			}
		}
	}
	return refs
}
