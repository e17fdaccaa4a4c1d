package processor

import (
	"context"
	"encoding/json"
	"fmt"

	"reelforge/internal/composition"
	"reelforge/internal/models"
)

// resolvedTemplate is a record's template after the defaults merge:
// everything the render spec needs except materialized input paths.
type resolvedTemplate struct {
	CompositionID string
	Props         map[string]any
	Schema        *composition.Schema
}

type templateResolver struct {
	templates TemplateStore
}

func newTemplateResolver(templates TemplateStore) *templateResolver {
	return &templateResolver{templates: templates}
}

func (tr *templateResolver) Resolve(ctx context.Context, rec *models.Record) (*resolvedTemplate, error) {
	tpl, err := tr.templates.Get(ctx, rec.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", rec.TemplateID, err)
	}
	if tpl.DeletedAt != nil {
		return nil, fmt.Errorf("template %s is deleted", rec.TemplateID)
	}

	schema, err := parseSchema(tpl.Definition)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", rec.TemplateID, err)
	}

	compositionID := tpl.ID
	if cid, ok := tpl.Definition["composition_id"].(string); ok && cid != "" {
		compositionID = cid
	}

	return &resolvedTemplate{
		CompositionID: compositionID,
		Props:         mergeMaps(tpl.Defaults, rec.Input),
		Schema:        schema,
	}, nil
}

// parseSchema reads the timeline schema out of the stored definition.
// Extra definition keys (composition_id and friends) are ignored.
func parseSchema(definition map[string]any) (*composition.Schema, error) {
	raw, err := json.Marshal(definition)
	if err != nil {
		return nil, fmt.Errorf("invalid definition: %w", err)
	}

	var schema composition.Schema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, fmt.Errorf("invalid definition: %w", err)
	}
	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("invalid composition: %w", err)
	}
	return &schema, nil
}
