package llm

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// SchemaFor derives the JSON schema for a struct exemplar, in the shape
// the provider's response_schema field expects: inlined, no $ref
// indirection, no draft envelope.
func SchemaFor(v any) (map[string]any, error) {
	reflector := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	schema := reflector.Reflect(v)

	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to rebuild schema: %w", err)
	}

	// The generative-language API rejects the draft envelope keys. The
	// reflector emits additionalProperties on every object level, so the
	// strip has to walk nested schemas too.
	delete(out, "$schema")
	delete(out, "$id")
	stripDisallowedKeys(out)

	return out, nil
}

func stripDisallowedKeys(schema map[string]any) {
	delete(schema, "additionalProperties")
	if props, ok := schema["properties"].(map[string]any); ok {
		for _, p := range props {
			if sub, ok := p.(map[string]any); ok {
				stripDisallowedKeys(sub)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		stripDisallowedKeys(items)
	}
}
