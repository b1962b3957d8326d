package mcptools

import (
	"encoding/json"
	"strings"

	"github.com/Symbia-Labs/mcp-wallet/internal/openapi"
)

// maxSchemaDepth bounds recursion through allOf/oneOf/anyOf when flattening
// a request body into tool input properties, mirroring the $ref resolver's
// own depth guard against pathological or cyclic compositions.
const maxSchemaDepth = 10

// SanitizePropertyName maps an arbitrary string (a parameter name, or a
// slug+normalized-id tool name) onto the MCP-safe identifier alphabet:
// letters, digits, underscore, dot, and dash, truncated to 64 characters.
// The empty string becomes "param" rather than an empty identifier.
func SanitizePropertyName(s string) string {
	if s == "" {
		return "param"
	}
	var b strings.Builder
	for _, r := range s {
		if isSanitizedRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	out := b.String()
	if len(out) > 64 {
		out = out[:64]
	}
	if out == "" {
		return "param"
	}
	return out
}

func isSanitizedRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_' || r == '.' || r == '-':
		return true
	default:
		return false
	}
}

// compositeSchema is the subset of JSON Schema this package reads to
// flatten a request body into flat tool-input properties.
type compositeSchema struct {
	Type        string                     `json:"type,omitempty"`
	Description string                     `json:"description,omitempty"`
	Properties  map[string]json.RawMessage `json:"properties,omitempty"`
	Required    []string                   `json:"required,omitempty"`
	AllOf       []json.RawMessage          `json:"allOf,omitempty"`
	OneOf       []json.RawMessage          `json:"oneOf,omitempty"`
	AnyOf       []json.RawMessage          `json:"anyOf,omitempty"`
}

// flattenBodySchema walks a request-body schema through allOf (merge),
// oneOf/anyOf (union, first occurrence wins on a name collision), and
// nested properties/required arrays, bottoming out at maxSchemaDepth
// exactly as the $ref resolver bottoms out — beyond that depth the
// sub-schema's fields are simply not flattened further, not an error.
func flattenBodySchema(schema json.RawMessage, depth int) (map[string]json.RawMessage, []string) {
	if len(schema) == 0 || depth > maxSchemaDepth {
		return nil, nil
	}

	var node compositeSchema
	if err := json.Unmarshal(schema, &node); err != nil {
		return nil, nil
	}

	props := make(map[string]json.RawMessage, len(node.Properties))
	for name, raw := range node.Properties {
		props[name] = raw
	}
	required := append([]string(nil), node.Required...)

	if depth < maxSchemaDepth {
		for _, sub := range node.AllOf {
			subProps, subReq := flattenBodySchema(sub, depth+1)
			mergeFirstWins(props, subProps)
			required = append(required, subReq...)
		}
		// oneOf/anyOf: union properties from every variant (first
		// occurrence wins on collision); required is NOT propagated,
		// since satisfying one variant does not imply every variant's
		// required fields apply.
		for _, sub := range node.OneOf {
			subProps, _ := flattenBodySchema(sub, depth+1)
			mergeFirstWins(props, subProps)
		}
		for _, sub := range node.AnyOf {
			subProps, _ := flattenBodySchema(sub, depth+1)
			mergeFirstWins(props, subProps)
		}
	}

	return props, dedupe(required)
}

func mergeFirstWins(dst, src map[string]json.RawMessage) {
	for name, raw := range src {
		if _, exists := dst[name]; exists {
			continue
		}
		dst[name] = raw
	}
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// schemaToPropertyMap decodes a parameter or body-property schema into a
// JSON-Schema object map, defaulting to {"type": "string"} when the schema
// is absent or not a JSON object (e.g. a bare $ref the parser left
// unresolved, or no schema at all).
func schemaToPropertyMap(raw json.RawMessage) map[string]interface{} {
	if len(raw) > 0 {
		var m map[string]interface{}
		if err := json.Unmarshal(raw, &m); err == nil && m != nil {
			return m
		}
	}
	return map[string]interface{}{"type": "string"}
}

func locationHint(loc openapi.ParameterLocation) string {
	switch loc {
	case openapi.LocationPath:
		return "(path parameter)"
	case openapi.LocationQuery:
		return "(query parameter)"
	case openapi.LocationHeader:
		return "(header parameter)"
	case openapi.LocationCookie:
		return "(cookie parameter)"
	default:
		return ""
	}
}

// isAuthHeader reports whether a header parameter is one the wallet
// injects itself at call time, and so must not appear in a tool's input
// schema as a caller-suppliable argument.
func isAuthHeader(name string) bool {
	switch strings.ToLower(name) {
	case "authorization", "x-api-key", "api-key":
		return true
	default:
		return false
	}
}

func appendHint(description, hint string) string {
	if description == "" {
		return hint
	}
	return description + " " + hint
}
