package openapi

import (
	"strings"
	"unicode"
)

// extractOperations walks every path item in spec and produces one
// Operation per declared (method, path) pair.
func extractOperations(spec rawSpec, resolver *schemaResolver) []Operation {
	var ops []Operation

	for path, item := range spec.Paths {
		pathParams := convertParameters(item.Parameters)

		for _, method := range allMethods {
			raw := item.operationFor(method)
			if raw == nil {
				continue
			}
			ops = append(ops, extractOperation(method, path, raw, pathParams, spec.Security, resolver))
		}
	}

	return ops
}

func extractOperation(method Method, path string, raw *rawOperation, pathParams []OperationParameter, globalSecurity []map[string][]string, resolver *schemaResolver) Operation {
	operationID := raw.OperationID
	if operationID == "" {
		operationID = generateOperationID(method, path)
	}

	params := mergeParameters(pathParams, convertParameters(raw.Parameters))

	op := Operation{
		OperationID:  operationID,
		NormalizedID: normalizeOperationID(operationID),
		Method:       method,
		Path:         path,
		Summary:      raw.Summary,
		Description:  raw.Description,
		Tags:         raw.Tags,
		Deprecated:   raw.Deprecated,
		Parameters:   params,
		RequestBody:  extractRequestBody(raw.RequestBody, resolver),
		Responses:    extractResponses(raw.Responses, resolver),
		Security:     extractSecurity(raw.Security, globalSecurity),
	}
	return op
}

// mergeParameters overlays operation-level parameters onto path-level
// parameters, letting an operation-level entry with the same name replace
// the path-level one.
func mergeParameters(pathParams, opParams []OperationParameter) []OperationParameter {
	merged := make([]OperationParameter, 0, len(pathParams)+len(opParams))
	merged = append(merged, pathParams...)

	for _, op := range opParams {
		kept := merged[:0]
		for _, existing := range merged {
			if existing.Name != op.Name {
				kept = append(kept, existing)
			}
		}
		merged = append(kept, op)
	}
	return merged
}

func convertParameters(raw []rawParameter) []OperationParameter {
	var out []OperationParameter
	for _, p := range raw {
		if p.Ref != "" {
			// $ref-only parameters (components.parameters) are not
			// resolved; they are dropped rather than silently
			// misrepresented as untyped string parameters.
			continue
		}
		out = append(out, convertParameter(p))
	}
	return out
}

func convertParameter(p rawParameter) OperationParameter {
	loc := ParameterLocation(p.In)
	required := p.Required
	if loc == LocationPath {
		required = true
	}
	return OperationParameter{
		Name:        p.Name,
		Location:    loc,
		Required:    required,
		Description: p.Description,
		Schema:      p.Schema,
		Example:     p.Example,
		Deprecated:  p.Deprecated,
	}
}

func extractRequestBody(raw *rawRequestBody, resolver *schemaResolver) *RequestBody {
	if raw == nil {
		return nil
	}

	contentType, media, ok := pickMediaType(raw.Content)
	if !ok {
		return &RequestBody{Required: raw.Required, Description: raw.Description}
	}

	return &RequestBody{
		Required:    raw.Required,
		ContentType: contentType,
		Schema:      resolver.resolve(media.Schema),
		Description: raw.Description,
	}
}

func extractResponses(raw map[string]rawResponse, resolver *schemaResolver) []ResponseSchema {
	var out []ResponseSchema
	for status, resp := range raw {
		contentType, media, ok := pickMediaType(resp.Content)
		rs := ResponseSchema{StatusCode: status, Description: resp.Description}
		if ok {
			rs.ContentType = contentType
			rs.Schema = resolver.resolve(media.Schema)
		}
		out = append(out, rs)
	}
	return out
}

// pickMediaType prefers an application/json entry, falling back to
// whatever single entry is present.
func pickMediaType(content map[string]rawMediaType) (string, rawMediaType, bool) {
	if m, ok := content["application/json"]; ok {
		return "application/json", m, true
	}
	for ct, m := range content {
		return ct, m, true
	}
	return "", rawMediaType{}, false
}

func extractSecurity(opSecurity, globalSecurity []map[string][]string) []SecurityRequirement {
	src := opSecurity
	if src == nil {
		src = globalSecurity
	}

	var out []SecurityRequirement
	for _, req := range src {
		for scheme, scopes := range req {
			out = append(out, SecurityRequirement{SchemeName: scheme, Scopes: scopes})
		}
	}
	return out
}

// generateOperationID synthesizes an operationId for an operation that
// declares none: "{method}_{path-with-slashes-underscored-braces-stripped}".
func generateOperationID(method Method, path string) string {
	var b strings.Builder
	for _, r := range path {
		switch r {
		case '/':
			b.WriteByte('_')
		case '{', '}':
			// dropped
		default:
			b.WriteRune(r)
		}
	}
	cleaned := strings.Trim(b.String(), "_")
	return method.lower() + "_" + cleaned
}

// normalizeOperationID converts an operationId into a dot-separated,
// lowercase namespace path: underscores and hyphens become dots, and a
// lowercase-to-uppercase transition also inserts a dot before the
// lowercased character.
func normalizeOperationID(id string) string {
	var b strings.Builder
	prevWasLower := false

	for _, r := range id {
		switch {
		case r == '_' || r == '-':
			b.WriteByte('.')
			prevWasLower = false
		case unicode.IsUpper(r) && prevWasLower:
			b.WriteByte('.')
			b.WriteRune(unicode.ToLower(r))
			prevWasLower = false
		default:
			lower := unicode.ToLower(r)
			b.WriteRune(lower)
			prevWasLower = unicode.IsLower(r)
		}
	}

	return b.String()
}
