// Package mcptools translates OpenAPI operations into MCP tool descriptors
// (generator.go) and executes tool calls as outbound HTTP requests against
// the operation's bound credential (executor.go).
package mcptools

import (
	"fmt"
	"strings"

	"github.com/Symbia-Labs/mcp-wallet/internal/openapi"
)

// Tool is the MCP `tools/list` descriptor for a single operation.
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// GenerateTool builds the tool descriptor for one operation of the
// integration registered under slug.
func GenerateTool(slug string, op openapi.Operation) Tool {
	return Tool{
		Name:        toolName(slug, op.NormalizedID),
		Description: toolDescription(op),
		InputSchema: inputSchema(op),
	}
}

// GenerateTools builds every tool descriptor for an integration's
// operations, in the order the operations are given.
func GenerateTools(slug string, ops []openapi.Operation) []Tool {
	tools := make([]Tool, 0, len(ops))
	for _, op := range ops {
		tools = append(tools, GenerateTool(slug, op))
	}
	return tools
}

func toolName(slug, normalizedID string) string {
	raw := slug + "_" + strings.ReplaceAll(normalizedID, ".", "_")
	return SanitizePropertyName(raw)
}

func toolDescription(op openapi.Operation) string {
	var parts []string
	if op.Summary != "" {
		parts = append(parts, op.Summary)
	}
	if op.Description != "" && op.Description != op.Summary {
		parts = append(parts, op.Description)
	}
	parts = append(parts, fmt.Sprintf("[%s %s]", op.Method, op.Path))
	if op.Deprecated {
		parts = append(parts, "(DEPRECATED)")
	}
	return strings.Join(parts, "\n\n")
}

// inputSchema builds the `inputSchema` JSON-Schema object: path, then
// query, then non-auth header parameters, then the flattened request body,
// in that priority order for name collisions (first occurrence wins).
func inputSchema(op openapi.Operation) map[string]interface{} {
	properties := make(map[string]interface{})
	var required []string
	requiredSeen := make(map[string]bool)

	addRequired := func(key string) {
		if requiredSeen[key] {
			return
		}
		requiredSeen[key] = true
		required = append(required, key)
	}

	for _, loc := range []openapi.ParameterLocation{openapi.LocationPath, openapi.LocationQuery, openapi.LocationHeader} {
		for _, p := range op.Parameters {
			if p.Location != loc {
				continue
			}
			if loc == openapi.LocationHeader && isAuthHeader(p.Name) {
				continue
			}
			key := SanitizePropertyName(p.Name)
			if _, exists := properties[key]; exists {
				continue
			}
			prop := schemaToPropertyMap(p.Schema)
			desc, _ := prop["description"].(string)
			if desc == "" {
				desc = p.Description
			}
			prop["description"] = appendHint(desc, locationHint(p.Location))
			properties[key] = prop
			if p.Required {
				addRequired(key)
			}
		}
	}

	if op.RequestBody != nil {
		bodyProps, bodyRequired := flattenBodySchema(op.RequestBody.Schema, 0)
		for name, raw := range bodyProps {
			key := SanitizePropertyName(name)
			if _, exists := properties[key]; exists {
				continue
			}
			prop := schemaToPropertyMap(raw)
			desc, _ := prop["description"].(string)
			prop["description"] = appendHint(desc, "(body)")
			properties[key] = prop
		}
		if op.RequestBody.Required {
			for _, name := range bodyRequired {
				addRequired(SanitizePropertyName(name))
			}
		}
	}

	schema := map[string]interface{}{"type": "object"}
	if len(properties) > 0 {
		schema["properties"] = properties
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
