package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Sumatoshi-tech/statfang/pkg/stattype"
)

// variablesSchema validates the variables manifest shape before any work
// is submitted: a manifest problem is a caller error, not a runtime fault.
const variablesSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "minItems": 1,
  "items": {
    "type": "object",
    "required": ["name", "type"],
    "additionalProperties": false,
    "properties": {
      "name": {"type": "string", "minLength": 1},
      "type": {"enum": ["Scalar", "Vector", "Distribution", "Histogram", "Configuration"]},
      "repeat": {"type": "integer", "minimum": 0},
      "params": {"type": "object", "additionalProperties": {"type": "string"}},
      "statistics_only": {"type": "boolean"},
      "is_regex": {"type": "boolean"}
    }
  }
}`

// Sentinel errors for the variables manifest.
var (
	// ErrInvalidManifest indicates a manifest that fails schema validation.
	ErrInvalidManifest = errors.New("invalid variables manifest")
	// ErrDuplicateVariable indicates two manifest entries with the same name.
	ErrDuplicateVariable = errors.New("duplicate variable definition")
)

// LoadVariables reads a variables manifest: a JSON list of statistic
// descriptors. The document is schema-validated and checked for duplicate
// names before being decoded.
func LoadVariables(path string) ([]stattype.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read variables manifest: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(variablesSchema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}

	if !result.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidManifest, formatSchemaErrors(result))
	}

	var variables []stattype.Config

	if err := json.Unmarshal(raw, &variables); err != nil {
		return nil, fmt.Errorf("decode variables manifest: %w", err)
	}

	seen := make(map[string]bool, len(variables))

	for _, variable := range variables {
		if seen[variable.Name] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateVariable, variable.Name)
		}

		seen[variable.Name] = true
	}

	return variables, nil
}

func formatSchemaErrors(result *gojsonschema.Result) string {
	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}

	return strings.Join(msgs, "; ")
}
