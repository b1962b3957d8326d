package openapi

import (
	"encoding/json"
	"strings"
)

// maxRefDepth bounds recursive $ref resolution; a document that nests
// refs deeper than this is treated as exhausted rather than cyclic — the
// resolver does not track visited refs, only depth.
const maxRefDepth = 10

const schemaRefPrefix = "#/components/schemas/"

// schemaResolver inlines local `$ref` pointers into `components.schemas`.
type schemaResolver struct {
	schemas map[string]json.RawMessage
}

func newSchemaResolver(schemas map[string]json.RawMessage) *schemaResolver {
	return &schemaResolver{schemas: schemas}
}

// resolve inlines any $ref found in schema (recursively, up to
// maxRefDepth), returning a new schema value with refs replaced by their
// target's content.
func (r *schemaResolver) resolve(schema json.RawMessage) json.RawMessage {
	return r.resolveWithDepth(schema, 0)
}

func (r *schemaResolver) resolveWithDepth(schema json.RawMessage, depth int) json.RawMessage {
	if depth >= maxRefDepth || len(schema) == 0 {
		return schema
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(schema, &obj); err != nil {
		// Not an object (array, scalar, etc.) — nothing to resolve.
		return schema
	}

	if refRaw, ok := obj["$ref"]; ok {
		var ref string
		if err := json.Unmarshal(refRaw, &ref); err == nil {
			if target, ok := r.resolveRef(ref); ok {
				return r.resolveWithDepth(target, depth+1)
			}
		}
		return schema
	}

	changed := false

	if props, ok := obj["properties"]; ok {
		resolved := r.resolveProperties(props, depth)
		obj["properties"] = resolved
		changed = true
	}

	if items, ok := obj["items"]; ok {
		obj["items"] = r.resolveWithDepth(items, depth+1)
		changed = true
	}

	if additional, ok := obj["additionalProperties"]; ok {
		if isJSONObject(additional) {
			obj["additionalProperties"] = r.resolveWithDepth(additional, depth+1)
			changed = true
		}
	}

	for _, key := range []string{"allOf", "oneOf", "anyOf"} {
		if arr, ok := obj[key]; ok {
			obj[key] = r.resolveArray(arr, depth)
			changed = true
		}
	}

	if !changed {
		return schema
	}

	out, err := json.Marshal(obj)
	if err != nil {
		return schema
	}
	return out
}

func (r *schemaResolver) resolveRef(ref string) (json.RawMessage, bool) {
	if !strings.HasPrefix(ref, schemaRefPrefix) {
		return nil, false
	}
	name := strings.TrimPrefix(ref, schemaRefPrefix)
	target, ok := r.schemas[name]
	return target, ok
}

func (r *schemaResolver) resolveProperties(props json.RawMessage, depth int) json.RawMessage {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(props, &m); err != nil {
		return props
	}
	for name, val := range m {
		m[name] = r.resolveWithDepth(val, depth+1)
	}
	out, err := json.Marshal(m)
	if err != nil {
		return props
	}
	return out
}

func (r *schemaResolver) resolveArray(arr json.RawMessage, depth int) json.RawMessage {
	var items []json.RawMessage
	if err := json.Unmarshal(arr, &items); err != nil {
		return arr
	}
	for i, item := range items {
		items[i] = r.resolveWithDepth(item, depth+1)
	}
	out, err := json.Marshal(items)
	if err != nil {
		return arr
	}
	return out
}

func isJSONObject(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return strings.HasPrefix(trimmed, "{")
}
