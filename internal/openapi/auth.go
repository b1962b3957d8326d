package openapi

// AuthKind discriminates the resolved authentication strategy for an
// operation.
type AuthKind string

const (
	AuthNone     AuthKind = "none"
	AuthBearer   AuthKind = "bearer"
	AuthAPIKey   AuthKind = "api_key"
	AuthBasic    AuthKind = "basic"
	AuthOAuth2   AuthKind = "oauth2"
	AuthMultiple AuthKind = "multiple"
)

// AuthScheme is the detected authentication requirement for an operation,
// resolved from its security requirements against the document's declared
// security schemes.
type AuthScheme struct {
	Kind AuthKind

	BearerFormat string

	APIKeyName     string
	APIKeyLocation ApiKeyLocation

	AuthorizationURL string
	TokenURL         string
	Scopes           []string

	// Multiple holds the resolved scheme for each requirement, when more
	// than one applies.
	Multiple []AuthScheme
}

// oauth2FlowPreference is the order flows are preferred in when a scheme
// declares more than one grant.
var oauth2FlowPreference = []string{"authorization_code", "client_credentials", "implicit", "password"}

// DetectAuthScheme resolves the authentication an operation requires,
// given the document's security scheme table. An operation with no
// security requirements falls back to one of the declared schemes (if any),
// matching a document that defines auth globally via `security` at the
// root rather than per-operation. When several schemes are declared, which
// one is picked is not defined (map iteration order).
func DetectAuthScheme(schemes map[string]SecurityScheme, requirements []SecurityRequirement) AuthScheme {
	if len(requirements) == 0 {
		for _, scheme := range schemes {
			return fromScheme(scheme)
		}
		return AuthScheme{Kind: AuthNone}
	}

	var resolved []AuthScheme
	for _, req := range requirements {
		scheme, ok := schemes[req.SchemeName]
		if !ok {
			continue
		}
		as := fromScheme(scheme)
		as.Scopes = req.Scopes
		resolved = append(resolved, as)
	}

	switch len(resolved) {
	case 0:
		return AuthScheme{Kind: AuthNone}
	case 1:
		return resolved[0]
	default:
		return AuthScheme{Kind: AuthMultiple, Multiple: resolved}
	}
}

func fromScheme(scheme SecurityScheme) AuthScheme {
	switch scheme.Kind {
	case SchemeHTTP:
		if scheme.HTTPScheme == "basic" {
			return AuthScheme{Kind: AuthBasic}
		}
		return AuthScheme{Kind: AuthBearer, BearerFormat: scheme.BearerFormat}
	case SchemeAPIKey:
		return AuthScheme{Kind: AuthAPIKey, APIKeyName: scheme.APIKeyName, APIKeyLocation: scheme.APIKeyLocation}
	case SchemeOAuth2:
		flow, flowName := preferredFlow(scheme.Flows)
		if flow == nil {
			return AuthScheme{Kind: AuthOAuth2}
		}
		_ = flowName
		return AuthScheme{Kind: AuthOAuth2, AuthorizationURL: flow.AuthorizationURL, TokenURL: flow.TokenURL}
	case SchemeOpenIDConnect:
		// OpenID Connect is treated as an OAuth2-like bearer flow; the
		// wallet does not perform discovery against OpenIDConnectURL.
		return AuthScheme{Kind: AuthOAuth2}
	default:
		return AuthScheme{Kind: AuthNone}
	}
}

func preferredFlow(flows *OAuth2Flows) (*OAuth2Flow, string) {
	if flows == nil {
		return nil, ""
	}
	candidates := map[string]*OAuth2Flow{
		"authorization_code": flows.AuthorizationCode,
		"client_credentials": flows.ClientCredentials,
		"implicit":           flows.Implicit,
		"password":           flows.Password,
	}
	for _, name := range oauth2FlowPreference {
		if f := candidates[name]; f != nil {
			return f, name
		}
	}
	return nil, ""
}

// HeaderName returns the HTTP header the credential belongs in for auth
// schemes that use a header, or "" for schemes that don't (e.g. an
// API key carried in a query parameter).
func (a AuthScheme) HeaderName() string {
	switch a.Kind {
	case AuthBearer, AuthBasic, AuthOAuth2:
		return "Authorization"
	case AuthAPIKey:
		if a.APIKeyLocation == ApiKeyInHeader {
			return a.APIKeyName
		}
		return ""
	default:
		return ""
	}
}

// FormatHeaderValue formats credential as the value for HeaderName().
func (a AuthScheme) FormatHeaderValue(credential string) string {
	switch a.Kind {
	case AuthBearer, AuthOAuth2:
		return "Bearer " + credential
	case AuthBasic:
		return "Basic " + credential
	default:
		return credential
	}
}
