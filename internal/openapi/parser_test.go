package openapi

import (
	"strings"
	"testing"
)

const sampleJSON = `{
  "openapi": "3.0.0",
  "info": {"title": "Sample API", "version": "1.0.0"},
  "servers": [{"url": "https://api.example.com"}],
  "paths": {
    "/users/{id}": {
      "get": {
        "operationId": "getUser",
        "summary": "Get a user",
        "parameters": [
          {"name": "id", "in": "path", "required": true, "schema": {"type": "string"}}
        ],
        "responses": {"200": {"description": "ok"}}
      }
    },
    "/customers": {
      "post": {
        "summary": "Create customer",
        "requestBody": {
          "required": true,
          "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Customer"}}}
        },
        "responses": {"201": {"description": "created"}}
      }
    }
  },
  "components": {
    "schemas": {
      "Customer": {
        "type": "object",
        "properties": {"name": {"type": "string"}}
      }
    },
    "securitySchemes": {
      "bearerAuth": {"type": "http", "scheme": "bearer"}
    }
  },
  "security": [{"bearerAuth": []}]
}`

const sampleYAML = `
openapi: "3.0.0"
info:
  title: Sample API
  version: "1.0.0"
paths:
  /ping:
    get:
      operationId: ping
      responses:
        "200":
          description: ok
`

func TestParseJSONExtractsOperations(t *testing.T) {
	spec, err := Parse([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(spec.Operations) != 2 {
		t.Fatalf("got %d operations want 2", len(spec.Operations))
	}
	if spec.Title != "Sample API" {
		t.Fatalf("got title %q", spec.Title)
	}
}

func TestParseYAMLAutoDetected(t *testing.T) {
	spec, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(spec.Operations) != 1 {
		t.Fatalf("got %d operations want 1", len(spec.Operations))
	}
	if spec.Operations[0].OperationID != "ping" {
		t.Fatalf("got operation id %q want ping", spec.Operations[0].OperationID)
	}
}

func TestGeneratedOperationIDForMissingOne(t *testing.T) {
	spec, err := Parse([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var postOp *Operation
	for i := range spec.Operations {
		if spec.Operations[i].Method == MethodPost {
			postOp = &spec.Operations[i]
		}
	}
	if postOp == nil {
		t.Fatal("expected a POST operation")
	}
	if postOp.OperationID != "post_customers" {
		t.Fatalf("got operation id %q want post_customers", postOp.OperationID)
	}
}

func TestRefResolutionInlinesSchema(t *testing.T) {
	spec, err := Parse([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	for _, op := range spec.Operations {
		if op.RequestBody == nil {
			continue
		}
		if !strings.Contains(string(op.RequestBody.Schema), `"name"`) {
			t.Fatalf("expected $ref to be inlined, got %s", op.RequestBody.Schema)
		}
	}
}

func TestExtractsGlobalSecurity(t *testing.T) {
	spec, err := Parse([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(spec.GlobalSecurity) != 1 || spec.GlobalSecurity[0].SchemeName != "bearerAuth" {
		t.Fatalf("got global security %+v", spec.GlobalSecurity)
	}
}

func TestParseDetectsOperationAuthScheme(t *testing.T) {
	spec, err := Parse([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	for _, op := range spec.Operations {
		if op.AuthScheme.Kind != AuthBearer {
			t.Fatalf("operation %s: expected bearer auth scheme, got %+v", op.NormalizedID, op.AuthScheme)
		}
	}
}

func TestSanitizeLargeNumbers(t *testing.T) {
	input := []byte("minimum: 99999999999999999999\nmaximum: -99999999999999999999\n")
	out := sanitizeLargeNumbers(input)
	if !strings.Contains(string(out), "2147483647") {
		t.Fatalf("expected clamped max, got %s", out)
	}
	if !strings.Contains(string(out), "-2147483647") {
		t.Fatalf("expected clamped min, got %s", out)
	}
}

func TestUnsupportedVersionRejected(t *testing.T) {
	_, err := Parse([]byte(`{"openapi": "2.0", "info": {"title":"x","version":"1"}, "paths": {}}`))
	if err == nil {
		t.Fatal("expected error for swagger 2.0 document")
	}
}

func TestNormalizeOperationIDCamelCase(t *testing.T) {
	if got := normalizeOperationID("createCustomer"); got != "create.customer" {
		t.Fatalf("got %q want create.customer", got)
	}
}

func TestNormalizeOperationIDSnakeCase(t *testing.T) {
	if got := normalizeOperationID("get_users_id_posts"); got != "get.users.id.posts" {
		t.Fatalf("got %q want get.users.id.posts", got)
	}
}

func TestGenerateOperationID(t *testing.T) {
	if got := generateOperationID(MethodGet, "/users/{id}/posts"); got != "get_users_id_posts" {
		t.Fatalf("got %q want get_users_id_posts", got)
	}
}

func TestNamespaceTreeLookupAndList(t *testing.T) {
	spec, err := Parse([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	tree := BuildNamespaceTree(spec.Operations)

	ref, ok := tree.Lookup("get.user")
	if !ok {
		t.Fatal("expected to find get.user")
	}
	if ref.Method != MethodGet {
		t.Fatalf("got method %v want GET", ref.Method)
	}

	if _, ok := tree.Lookup("nonexistent.path"); ok {
		t.Fatal("expected lookup miss for unknown path")
	}

	paths := tree.Paths()
	if len(paths) != 2 {
		t.Fatalf("got %d paths want 2: %v", len(paths), paths)
	}
}

func TestNamespaceTreeChildrenAt(t *testing.T) {
	tree := NewNamespaceTree()
	tree.insert("stripe.customers.create", OperationRef{OperationID: "a"})
	tree.insert("stripe.customers.list", OperationRef{OperationID: "b"})
	tree.insert("stripe.charges.create", OperationRef{OperationID: "c"})

	children := tree.ChildrenAt("stripe")
	if len(children) != 2 {
		t.Fatalf("got %d children want 2: %v", len(children), children)
	}
}

func TestNamespaceTreeLastWriteWins(t *testing.T) {
	tree := NewNamespaceTree()
	tree.insert("a.b", OperationRef{OperationID: "first"})
	tree.insert("a.b", OperationRef{OperationID: "second"})

	ref, ok := tree.Lookup("a.b")
	if !ok || ref.OperationID != "second" {
		t.Fatalf("expected last-write-wins, got %+v ok=%v", ref, ok)
	}
}

func TestDetectAuthSchemeBearer(t *testing.T) {
	schemes := map[string]SecurityScheme{
		"bearerAuth": {Kind: SchemeHTTP, HTTPScheme: "bearer"},
	}
	reqs := []SecurityRequirement{{SchemeName: "bearerAuth"}}

	as := DetectAuthScheme(schemes, reqs)
	if as.Kind != AuthBearer {
		t.Fatalf("got kind %v want bearer", as.Kind)
	}
	if as.FormatHeaderValue("tok") != "Bearer tok" {
		t.Fatalf("got %q", as.FormatHeaderValue("tok"))
	}
}

func TestDetectAuthSchemeAPIKey(t *testing.T) {
	schemes := map[string]SecurityScheme{
		"apiKeyAuth": {Kind: SchemeAPIKey, APIKeyName: "X-API-Key", APIKeyLocation: ApiKeyInHeader},
	}
	reqs := []SecurityRequirement{{SchemeName: "apiKeyAuth"}}

	as := DetectAuthScheme(schemes, reqs)
	if as.Kind != AuthAPIKey || as.HeaderName() != "X-API-Key" {
		t.Fatalf("got %+v", as)
	}
}

func TestDetectAuthSchemeMultiple(t *testing.T) {
	schemes := map[string]SecurityScheme{
		"a": {Kind: SchemeHTTP, HTTPScheme: "bearer"},
		"b": {Kind: SchemeAPIKey, APIKeyName: "X-Key", APIKeyLocation: ApiKeyInHeader},
	}
	reqs := []SecurityRequirement{{SchemeName: "a"}, {SchemeName: "b"}}

	as := DetectAuthScheme(schemes, reqs)
	if as.Kind != AuthMultiple || len(as.Multiple) != 2 {
		t.Fatalf("got %+v", as)
	}
}
