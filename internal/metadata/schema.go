package metadata

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// payloadSchema is the persisted TaskMetadata shape. Evolution is
// additive-only: new optional fields may be added, existing fields must
// keep their types so historical payloads remain parseable.
const payloadSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["files", "model_usage"],
  "properties": {
    "files": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["path", "state", "source"],
        "properties": {
          "path": {"type": "string", "minLength": 1},
          "state": {"enum": ["active", "stale"]},
          "source": {"enum": ["read", "user_edited", "agent_edited", "mentioned"]},
          "agent_read_at": {"type": "integer"},
          "agent_edit_at": {"type": "integer"},
          "user_edit_at": {"type": "integer"}
        }
      }
    },
    "model_usage": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["ts", "model_id", "provider_id", "mode"],
        "properties": {
          "ts": {"type": "integer"},
          "model_id": {"type": "string"},
          "provider_id": {"type": "string"},
          "mode": {"type": "string"}
        }
      }
    }
  }
}`

var (
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
	compileSchemaOnce sync.Once
)

func compiledPayloadSchema() (*jsonschema.Schema, error) {
	compileSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("task-metadata.schema.json", strings.NewReader(payloadSchema)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiledSchema, compiledSchemaErr = compiler.Compile("task-metadata.schema.json")
	})
	return compiledSchema, compiledSchemaErr
}

// ValidatePayload checks a raw persisted payload against the TaskMetadata
// schema. A failure means the blob is corrupt or written by an incompatible
// version and must not be silently decoded.
func ValidatePayload(payload []byte) error {
	schema, err := compiledPayloadSchema()
	if err != nil {
		return err
	}

	var instance any
	if err := json.Unmarshal(payload, &instance); err != nil {
		return fmt.Errorf("parse metadata payload: %w", err)
	}

	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("metadata payload schema: %w", err)
	}

	return nil
}
