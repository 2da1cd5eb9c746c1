package domain

// CapabilityKind is the closed set of capability flavors a route can become.
type CapabilityKind string

const (
	// KindResource is a fetchable, parameterless data item.
	KindResource CapabilityKind = "resource"
	// KindResourceTemplate is a fetchable data item parameterized by one or
	// more URI-embedded values.
	KindResourceTemplate CapabilityKind = "resource_template"
	// KindTool is an invokable action with arbitrary input and output.
	KindTool CapabilityKind = "tool"
)

// IsValid reports whether k is a known capability kind.
func (k CapabilityKind) IsValid() bool {
	switch k {
	case KindResource, KindResourceTemplate, KindTool:
		return true
	}
	return false
}

// PlanTarget identifies which part of the outbound HTTP request a parameter
// feeds at invocation time.
type PlanTarget string

const (
	TargetPath   PlanTarget = "path"
	TargetQuery  PlanTarget = "query"
	TargetHeader PlanTarget = "header"
	TargetCookie PlanTarget = "cookie"
	TargetBody   PlanTarget = "body"
)

// PlanEntry maps one extracted parameter onto a request part.
type PlanEntry struct {
	// Param is the parameter name as it appears in the input schema.
	Param string

	// Target is the request part the value feeds.
	Target PlanTarget

	// BodyKey is the field name inside the serialized JSON body. It is set
	// only for TargetBody entries and usually equals Param.
	BodyKey string

	// FromURI marks parameters that a ResourceTemplate draws from the
	// resource URI rather than from caller-supplied arguments.
	FromURI bool
}

// RequestPlan is the deterministic recipe for turning validated arguments
// into a concrete HTTP request.
type RequestPlan struct {
	// BaseURL is scheme://host plus any base path, without a trailing slash.
	BaseURL string

	// Method is the HTTP verb to issue.
	Method Method

	// PathTemplate is the route path with {name} placeholders still present.
	PathTemplate string

	// ContentType is the media type the body is serialized as, empty when
	// the route takes no body.
	ContentType string

	// Entries lists every parameter mapping, in extraction order.
	Entries []PlanEntry

	// SoleBodyParam names the single catch-all body parameter when the body
	// is not an object; its value is serialized directly as the body.
	// Empty means the body, if any, is a JSON object of TargetBody entries.
	SoleBodyParam string
}

// CapabilityDescriptor is an immutable, fully built capability.
type CapabilityDescriptor struct {
	// Name uniquely identifies the capability within the registry.
	Name string

	// Description explains the capability to protocol clients.
	Description string

	// Kind determines how the capability is exposed over the protocol.
	Kind CapabilityKind

	// Tags are surfaced as protocol metadata for tool filtering.
	Tags []string

	// InputSchema is the caller-facing argument schema. For resource kinds
	// it excludes URI-supplied path parameters; for tools it covers every
	// parameter.
	InputSchema Schema

	// ValidationSchema is InputSchema plus any URI-supplied parameters. The
	// invocation translator validates the merged argument set against it.
	ValidationSchema Schema

	// URITemplate is the protocol URI for resource kinds, e.g.
	// "rest://get_pet/pets/{petId}". Empty for tools.
	URITemplate string

	// Plan is the request-construction recipe executed per invocation.
	Plan RequestPlan

	// Route is a read-only back-reference to the source route. It is never
	// used for mutation.
	Route Route
}
