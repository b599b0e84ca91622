package schema

import (
	"encoding/json"
	"fmt"

	"github.com/fulmenhq/aerorepo/internal/assets"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// Sidecar is the registry name of the sidecar metadata schema.
const Sidecar = "sidecar-v1.0.0"

// ValidationError represents a single validation error.
type ValidationError struct {
	Path    string `json:"path,omitempty"` // e.g. "bounding_box"
	Message string `json:"message"`
}

func (e ValidationError) String() string {
	return e.Path + ": " + e.Message
}

// Result holds the validation result.
type Result struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// registry holds pre-compiled schemas keyed by name.
var registry = make(map[string]*gojsonschema.Schema)

func init() {
	for _, info := range assets.GetSchemaNames() {
		schemaBytes, ok := assets.GetSchema(info.Path)
		if !ok || len(schemaBytes) == 0 {
			continue
		}
		// gojsonschema wants JSON; the embedded schemas are YAML.
		var schemaData interface{}
		if err := yaml.Unmarshal(schemaBytes, &schemaData); err != nil {
			continue
		}
		jsonBytes, err := json.Marshal(schemaData)
		if err != nil {
			continue
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(jsonBytes))
		if err != nil {
			continue
		}
		registry[info.Name] = schema
	}
}

// ValidateJSON validates a raw JSON document against the named schema.
func ValidateJSON(doc []byte, schemaName string) (*Result, error) {
	if !json.Valid(doc) {
		return &Result{Errors: []ValidationError{{Path: "root", Message: "not valid JSON"}}}, nil
	}
	return validate(gojsonschema.NewBytesLoader(doc), schemaName)
}

func validate(doc gojsonschema.JSONLoader, schemaName string) (*Result, error) {
	schema, ok := registry[schemaName]
	if !ok {
		return nil, fmt.Errorf("schema %s not found in registry", schemaName)
	}

	result, err := schema.Validate(doc)
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	res := &Result{Valid: result.Valid()}
	if !result.Valid() {
		for _, verr := range result.Errors() {
			field := verr.Field()
			if field == "" || field == "(root)" {
				field = "root"
			}
			res.Errors = append(res.Errors, ValidationError{
				Path:    field,
				Message: verr.Description(),
			})
		}
	}
	return res, nil
}
