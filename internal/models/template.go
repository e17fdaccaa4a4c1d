package models

import "time"

// Template is a named composition definition the render engine can resolve.
// Defaults are merged under a record's input before rendering, so a scheduled
// record with no explicit input still renders something sensible.
type Template struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Definition  map[string]any `json:"definition"`
	Defaults    map[string]any `json:"defaults,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	DeletedAt   *time.Time     `json:"deleted_at,omitempty"`
}
