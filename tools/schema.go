package tools

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// SchemaFor reflects the JSON schema of v's type into the map form tool
// definitions carry. Field descriptions come from `jsonschema` struct tags.
func SchemaFor(v any) map[string]interface{} {
	r := &jsonschema.Reflector{
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: false,
	}
	b, err := json.Marshal(r.Reflect(v))
	if err != nil {
		return map[string]interface{}{"type": "object"}
	}
	var out map[string]interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return map[string]interface{}{"type": "object"}
	}
	delete(out, "$schema")
	delete(out, "$id")
	return out
}

// DecodeInput reads a tool call's input. Models send either the JSON object
// described by the tool's schema or a bare string; a bare string is stored
// under field.
func DecodeInput(input, field string) map[string]string {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(input), &obj); err == nil {
		out := make(map[string]string, len(obj))
		for k, v := range obj {
			switch val := v.(type) {
			case string:
				out[k] = val
			default:
				b, _ := json.Marshal(val)
				out[k] = string(b)
			}
		}
		return out
	}
	return map[string]string{field: input}
}
