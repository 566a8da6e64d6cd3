package schema

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ValidateAgainstInputSchema compiles schemaBytes (a tool's inputSchema) and
// validates payload against it, grounded on the teacher's
// validatePayloadJSONAgainstSchema (registry/service.go). The Scenario
// Synthesizer does not call it: synthesized argument sets are scheduled
// without being validated against the schema they were derived from.
func ValidateAgainstInputSchema(payload, schemaBytes []byte) error {
	if len(schemaBytes) == 0 {
		return nil
	}

	var schemaDoc any
	if err := json.Unmarshal(schemaBytes, &schemaDoc); err != nil {
		return fmt.Errorf("schema: unmarshal schema: %w", err)
	}
	var payloadDoc any
	if err := json.Unmarshal(payload, &payloadDoc); err != nil {
		return fmt.Errorf("schema: unmarshal payload: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", schemaDoc); err != nil {
		return fmt.Errorf("schema: add resource: %w", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("schema: compile: %w", err)
	}

	return compiled.Validate(payloadDoc)
}
