package bundle

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// metadataSchema is the shape model_metadata.json must have before it is
// decoded. Cross-document invariants are checked later by Bundle.Validate.
var metadataSchema = map[string]any{
	"type":     "object",
	"required": []any{"model_type", "accuracy", "n_classes", "n_features", "classes", "feature_importance"},
	"properties": map[string]any{
		"model_type": map[string]any{"type": "string", "minLength": 1},
		"version":    map[string]any{"type": "string"},
		"accuracy":   map[string]any{"type": "number", "minimum": 0, "maximum": 1},
		"n_classes":  map[string]any{"type": "integer", "minimum": 1},
		"n_features": map[string]any{"type": "integer", "minimum": 1},
		"classes": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string", "minLength": 1},
			"uniqueItems": true,
		},
		"features": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
		"feature_importance": map[string]any{
			"type":                 "object",
			"additionalProperties": map[string]any{"type": "number", "minimum": 0},
		},
		"n_estimators":     map[string]any{"type": "integer", "minimum": 0},
		"max_depth":        map[string]any{"type": "integer", "minimum": 0},
		"training_samples": map[string]any{"type": "integer", "minimum": 0},
		"test_samples":     map[string]any{"type": "integer", "minimum": 0},
		"encodings": map[string]any{
			"type":                 "object",
			"additionalProperties": codeMapSchema,
		},
		"trained_at": map[string]any{"type": "string"},
	},
}

var codeMapSchema = map[string]any{
	"type":                 "object",
	"minProperties":        1,
	"additionalProperties": map[string]any{"type": "integer"},
}

// mappingsSchema is the shape model_mappings.json must have.
var mappingsSchema = map[string]any{
	"type":     "object",
	"required": []any{"bp_mapping", "chol_mapping", "feature_names"},
	"properties": map[string]any{
		"bp_mapping":   codeMapSchema,
		"chol_mapping": codeMapSchema,
		"feature_names": map[string]any{
			"type":     "array",
			"items":    map[string]any{"type": "string"},
			"minItems": 1,
		},
	},
}

var compiled sync.Map // name -> *jsonschema.Schema

// validateDocument checks raw JSON against the named schema definition.
func validateDocument(name string, def map[string]any, raw []byte) error {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("%s: invalid JSON: %w", name, err)
	}
	sch, err := compileSchema(name, def)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if err := sch.Validate(parsed); err != nil {
		return fmt.Errorf("%s: schema validation failed: %w", name, err)
	}
	return nil
}

func compileSchema(name string, def map[string]any) (*jsonschema.Schema, error) {
	if cached, ok := compiled.Load(name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	// The compiler wants a decoded JSON value, not Go literals with int.
	b, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	url := fmt.Sprintf("schema://%s.json", name)
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	compiled.Store(name, sch)
	return sch, nil
}
