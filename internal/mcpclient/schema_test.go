package mcpclient

import (
	"encoding/json"
	"testing"

	"github.com/nullpointer-labs/chatcore/internal/testutil"
)

func TestSanitizeInputSchemaStripsDollarSchemaKey(t *testing.T) {
	raw := json.RawMessage(`{"$schema":"http://json-schema.org/draft-07/schema#","type":"object","properties":{"path":{"type":"string"}}}`)

	cleaned := SanitizeInputSchema(raw, nil)

	var doc map[string]any
	testutil.RequireNoError(t, json.Unmarshal(cleaned, &doc), "cleaned schema is valid json")
	_, hasSchemaKey := doc["$schema"]
	testutil.RequireTrue(t, !hasSchemaKey, "$schema key removed")
	testutil.RequireEqual(t, doc["type"], "object", "other keys preserved")
}

func TestSanitizeInputSchemaPassesThroughNonObjectUnmodified(t *testing.T) {
	raw := json.RawMessage(`"not-an-object"`)
	cleaned := SanitizeInputSchema(raw, nil)
	testutil.RequireEqual(t, string(cleaned), string(raw), "non-object schema returned unmodified")
}

func TestSanitizeInputSchemaHandlesEmptyInput(t *testing.T) {
	cleaned := SanitizeInputSchema(nil, nil)
	testutil.RequireEqual(t, len(cleaned), 0, "empty schema stays empty")
}
