package levelgraph

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const catalogSchemaURL = "schema://level-catalog.json"

// catalogSchemaJSON describes the YAML level catalog after conversion to JSON.
const catalogSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["levels"],
  "additionalProperties": false,
  "properties": {
    "levels": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["id", "order"],
        "additionalProperties": false,
        "properties": {
          "id": {"type": "integer", "minimum": 1},
          "order": {"type": "integer"},
          "name": {"type": "string"},
          "theme": {"type": "string"},
          "video_id": {"type": "string"},
          "pass_threshold": {"type": "integer", "minimum": 0, "maximum": 100},
          "prerequisites": {
            "type": "array",
            "items": {"type": "integer", "minimum": 1},
            "uniqueItems": true
          }
        }
      }
    }
  }
}`

var catalogSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(catalogSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("parse catalog schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(catalogSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}

	compiled, err := c.Compile(catalogSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	return compiled, nil
})
