package mcptools

import (
	"encoding/json"
	"testing"

	"github.com/Symbia-Labs/mcp-wallet/internal/openapi"
)

func TestSanitizePropertyName(t *testing.T) {
	cases := map[string]string{
		"":             "param",
		"user_id":      "user_id",
		"user.id":      "user.id",
		"Content-Type": "Content-Type",
		"a/b c?d":      "a_b_c_d",
	}
	for in, want := range cases {
		if got := SanitizePropertyName(in); got != want {
			t.Errorf("SanitizePropertyName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizePropertyNameTruncates(t *testing.T) {
	long := ""
	for i := 0; i < 100; i++ {
		long += "a"
	}
	got := SanitizePropertyName(long)
	if len(got) != 64 {
		t.Fatalf("expected truncation to 64 chars, got %d", len(got))
	}
}

func TestToolNameJoinsSlugAndNormalizedID(t *testing.T) {
	op := openapi.Operation{NormalizedID: "users.get", Method: openapi.Method("GET"), Path: "/users/{id}"}
	tool := GenerateTool("stripe", op)
	if tool.Name != "stripe_users_get" {
		t.Fatalf("got tool name %q", tool.Name)
	}
}

func TestInputSchemaOrdersPathQueryHeaderThenBody(t *testing.T) {
	op := openapi.Operation{
		NormalizedID: "widgets.update",
		Method:       openapi.Method("PUT"),
		Path:         "/widgets/{id}",
		Parameters: []openapi.OperationParameter{
			{Name: "id", Location: openapi.LocationPath, Required: true, Schema: json.RawMessage(`{"type":"string"}`)},
			{Name: "verbose", Location: openapi.LocationQuery, Schema: json.RawMessage(`{"type":"boolean"}`)},
			{Name: "Authorization", Location: openapi.LocationHeader, Schema: json.RawMessage(`{"type":"string"}`)},
			{Name: "X-Trace-Id", Location: openapi.LocationHeader, Schema: json.RawMessage(`{"type":"string"}`)},
		},
		RequestBody: &openapi.RequestBody{
			Required: true,
			Schema:   json.RawMessage(`{"type":"object","properties":{"name":{"type":"string"}},"required":["name"]}`),
		},
	}

	schema := inputSchema(op)
	props, ok := schema["properties"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected properties map, got %T", schema["properties"])
	}

	if _, ok := props["Authorization"]; ok {
		t.Fatal("auth header must not appear in the input schema")
	}
	if _, ok := props["id"]; !ok {
		t.Fatal("expected path parameter id in schema")
	}
	if _, ok := props["verbose"]; !ok {
		t.Fatal("expected query parameter verbose in schema")
	}
	if _, ok := props["X-Trace-Id"]; !ok {
		t.Fatal("expected non-auth header parameter in schema")
	}
	if _, ok := props["name"]; !ok {
		t.Fatal("expected flattened body property name in schema")
	}

	required, _ := schema["required"].([]string)
	foundID, foundName := false, false
	for _, r := range required {
		if r == "id" {
			foundID = true
		}
		if r == "name" {
			foundName = true
		}
	}
	if !foundID {
		t.Fatal("expected path parameter id to be required")
	}
	if !foundName {
		t.Fatal("expected body property name to be required")
	}
}

func TestInputSchemaFirstOccurrenceWinsOnCollision(t *testing.T) {
	op := openapi.Operation{
		NormalizedID: "things.create",
		Method:       openapi.Method("POST"),
		Path:         "/things",
		Parameters: []openapi.OperationParameter{
			{Name: "name", Location: openapi.LocationQuery, Schema: json.RawMessage(`{"type":"string","description":"query name"}`)},
		},
		RequestBody: &openapi.RequestBody{
			Schema: json.RawMessage(`{"type":"object","properties":{"name":{"type":"string","description":"body name"}}}`),
		},
	}

	schema := inputSchema(op)
	props := schema["properties"].(map[string]interface{})
	prop, ok := props["name"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected name property map")
	}
	desc, _ := prop["description"].(string)
	if desc == "" {
		t.Fatal("expected a description on the winning property")
	}
	if got := desc; got != "query name (query parameter)" {
		t.Fatalf("expected query parameter to win the collision, got description %q", got)
	}
}
