// Package listings turns the agent's final text into validated performance listings.
package listings

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/jonathan/showstart-scout/internal/llm"
	"github.com/jonathan/showstart-scout/internal/types"
)

//go:embed performance_results.schema.json
var resultsSchema string

// wrapperKeys are the top-level keys accepted as a listings array.
var wrapperKeys = []string{"performances", "listings"}

// listingKeys identify a bare listing object returned without the wrapper.
var listingKeys = []string{"address", "venue", "performance_url"}

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(resultsSchema))
	})
	return schema, schemaErr
}

// Validate parses raw agent output into listings.
// It accepts {"performances": [...]} (or "listings") and a single bare listing
// object. Anything else fails with *SchemaError; text that is not JSON fails
// with *ParseError. Validation is all or nothing.
func Validate(raw string) ([]types.PerformanceListing, error) {
	text := llm.CleanJSONBlock(raw)
	if text == "" {
		return nil, &ParseError{Message: "agent returned no result"}
	}

	var doc any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, &ParseError{
			Message: "agent result is not valid JSON",
			Raw:     raw,
			Cause:   err,
		}
	}

	wrapped, err := normalizeShape(doc)
	if err != nil {
		return nil, err
	}

	if err := validateSchema(wrapped); err != nil {
		return nil, err
	}

	// Round-trip through JSON so the typed struct sees exactly what was validated.
	data, err := json.Marshal(wrapped)
	if err != nil {
		return nil, &SchemaError{Message: fmt.Sprintf("failed to re-encode listings: %v", err)}
	}
	var results types.PerformanceResults
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, &SchemaError{Message: fmt.Sprintf("failed to decode listings: %v", err)}
	}

	for i := range results.Performances {
		if results.Performances[i].Guests == nil {
			results.Performances[i].Guests = []string{}
		}
	}
	return results.Performances, nil
}

// normalizeShape returns a {"performances": [...]} document.
func normalizeShape(doc any) (map[string]any, error) {
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, &SchemaError{Message: fmt.Sprintf("unexpected top-level type %s", jsonTypeName(doc))}
	}

	for _, key := range wrapperKeys {
		if list, exists := obj[key]; exists {
			return map[string]any{"performances": list}, nil
		}
	}

	for _, key := range listingKeys {
		if _, exists := obj[key]; exists {
			return map[string]any{"performances": []any{obj}}, nil
		}
	}

	return nil, &SchemaError{Message: "object is neither a listings wrapper nor a single listing"}
}

func validateSchema(doc map[string]any) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("failed to load listings schema: %w", err)
	}

	result, err := s.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return &SchemaError{Message: fmt.Sprintf("schema validation failed: %v", err)}
	}
	if result.Valid() {
		return nil
	}

	schemaErr := &SchemaError{
		Message: "listings do not match schema",
		Errors:  make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		schemaErr.Errors = append(schemaErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}
	return schemaErr
}

func jsonTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
