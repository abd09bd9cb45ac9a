// Package jsonschema wraps gojsonschema for envelope and resource model validation.
package jsonschema

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// JSONLoader is a compiled schema or document source.
type JSONLoader = gojsonschema.JSONLoader

// Compile parses schema and fails if it is not a valid JSON Schema document.
func Compile(schema string) (gojsonschema.JSONLoader, error) {
	loader := gojsonschema.NewStringLoader(schema)
	if _, err := gojsonschema.NewSchema(loader); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	return loader, nil
}

// ValidateBytes validates doc against the schema and formats any failures.
func ValidateBytes(schemaLoader gojsonschema.JSONLoader, doc []byte) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(doc))
	return FormatErrors(result, err)
}

// FormatErrors turns a validation result into a single error wrapping
// ErrSchemaValidationFailed, or ErrSchemaValidationSystem when the validator
// itself failed.
func FormatErrors(result *gojsonschema.Result, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaValidationSystem, err)
	}
	if result.Valid() {
		return nil
	}
	var b strings.Builder
	for _, desc := range result.Errors() {
		fmt.Fprintf(&b, "- %s; ", desc)
	}
	return fmt.Errorf("%w: %s", ErrSchemaValidationFailed, b.String())
}

// PolicyAttachmentSchema describes the resource properties of a policy attachment.
var PolicyAttachmentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "PolicyId": { "type": "string", "pattern": "^p-[0-9a-zA-Z_]{8,128}$" },
    "TargetId": { "type": "string", "pattern": "^(r-[0-9a-z]{4,32}|[0-9]{12}|ou-[0-9a-z]{4,32}-[a-z0-9]{8,32})$" }
  },
  "required": ["PolicyId", "TargetId"],
  "additionalProperties": false
}`
