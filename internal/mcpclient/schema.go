package mcpclient

import (
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"go.uber.org/zap"
)

// SanitizeInputSchema strips the top-level "$schema" key some MCP servers
// include in their tool input schemas, which providers reject when the
// schema is forwarded verbatim as a function/tool parameter definition.
// Grounded on goadesign-goa-ai's use of jsonschema/v6 for schema handling
// in its tool layer; the strip-then-validate shape follows the same repo's
// schema-compile-before-use discipline.
func SanitizeInputSchema(raw json.RawMessage, logger *zap.Logger) json.RawMessage {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(raw) == 0 {
		return raw
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		logger.Warn("tool input schema is not a JSON object; passing through unmodified", zap.Error(err))
		return raw
	}
	delete(doc, "$schema")

	cleaned, err := json.Marshal(doc)
	if err != nil {
		logger.Warn("failed to re-marshal sanitized tool input schema", zap.Error(err))
		return raw
	}

	validateSchema(cleaned, logger)
	return cleaned
}

// validateSchema compiles the schema purely as an advisory check: a
// malformed schema is logged but never blocks tool registration, since the
// orchestrator still needs to expose the tool to providers that may tolerate
// laxer schemas than jsonschema/v6's compiler does.
func validateSchema(raw json.RawMessage, logger *zap.Logger) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return
	}

	compiler := jsonschema.NewCompiler()
	const resourceName = "tool-input-schema.json"
	if err := compiler.AddResource(resourceName, doc); err != nil {
		logger.Warn("tool input schema rejected by compiler", zap.Error(err))
		return
	}
	if _, err := compiler.Compile(resourceName); err != nil {
		logger.Warn("tool input schema failed advisory compile", zap.Error(err))
	}
}
