package flowstore

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/c360/flowcanvas/errors"
)

// flowSchema is the JSON Schema applied to inbound flow documents before
// they are decoded. Structural rules that the schema cannot express
// (unique ids, edge endpoint references) live in Flow.Validate.
const flowSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "Flow",
  "type": "object",
  "required": ["name"],
  "properties": {
    "id": {"type": "string"},
    "name": {"type": "string", "minLength": 1},
    "description": {"type": "string"},
    "version": {"type": "integer", "minimum": 0},
    "nodes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "type", "position"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "type": {"type": "string", "minLength": 1},
          "position": {
            "type": "object",
            "required": ["x", "y"],
            "properties": {
              "x": {"type": "number"},
              "y": {"type": "number"}
            }
          },
          "data": {
            "type": "object",
            "properties": {
              "label": {"type": "string"},
              "description": {"type": "string"},
              "config": {"type": "object"}
            }
          }
        }
      }
    },
    "edges": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "source_node_id", "target_node_id"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "source_node_id": {"type": "string", "minLength": 1},
          "source_handle": {"type": "string"},
          "target_node_id": {"type": "string", "minLength": 1},
          "target_handle": {"type": "string"},
          "label": {"type": "string"},
          "kind": {"type": "string"}
        }
      }
    }
  }
}`

var compiledFlowSchema *gojsonschema.Schema

func init() {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(flowSchema))
	if err != nil {
		panic(fmt.Sprintf("flowstore: invalid flow schema: %v", err))
	}
	compiledFlowSchema = schema
}

// ValidateDocument checks a raw JSON flow document against the flow schema.
// Returns a classified Invalid error listing every schema violation.
func ValidateDocument(data []byte) error {
	result, err := compiledFlowSchema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return errors.WrapInvalid(err, "flowstore", "ValidateDocument", "parse document")
	}

	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, desc.String())
	}

	return errors.WrapInvalid(
		fmt.Errorf("%w: %s", errors.ErrSchemaValidation, strings.Join(violations, "; ")),
		"flowstore", "ValidateDocument", "schema validation")
}
