package domain

import (
	"regexp"
	"strings"
)

// Method is an HTTP method from the closed set supported by route descriptions.
type Method string

const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodPatch   Method = "PATCH"
	MethodDelete  Method = "DELETE"
	MethodOptions Method = "OPTIONS"
	MethodHead    Method = "HEAD"
)

// IsValid reports whether m is one of the supported methods.
func (m Method) IsValid() bool {
	switch m {
	case MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete, MethodOptions, MethodHead:
		return true
	}
	return false
}

// AllowsBody reports whether requests with this method carry a body.
func (m Method) AllowsBody() bool {
	switch m {
	case MethodPost, MethodPut, MethodPatch:
		return true
	}
	return false
}

// Location identifies where a parameter is carried in an HTTP request.
type Location string

const (
	LocationPath   Location = "path"
	LocationQuery  Location = "query"
	LocationHeader Location = "header"
	LocationCookie Location = "cookie"
	LocationBody   Location = "body"
)

// ParameterDescriptor describes a single route parameter.
// Path parameters are always required and scalar-typed; the schema extractor
// enforces this invariant at build time.
type ParameterDescriptor struct {
	Name     string
	Location Location
	Schema   Schema
	Required bool
	Default  interface{}
}

// Route is a normalized description of one backend HTTP endpoint.
// It is immutable once produced by the route source.
type Route struct {
	// Method is the HTTP verb, one of the Method constants.
	Method Method

	// Path is the path template with literal segments and {name} placeholders,
	// e.g. "/pets/{petId}".
	Path string

	// Parameters holds the declared path/query/header/cookie parameters.
	Parameters []ParameterDescriptor

	// Body describes the request body schema, if the route accepts one.
	Body *Schema

	// BodyRequired reports whether the request body is mandatory.
	BodyRequired bool

	// BodyContentType is the media type the body is serialized as.
	// Empty means "application/json" when a body schema is present.
	BodyContentType string

	// OperationID is the declared operation identifier, if any.
	OperationID string

	// Summary is a short human-readable summary of the operation.
	Summary string

	// Description is the longer operation documentation, if any.
	Description string

	// Tags are free-form labels attached to the operation.
	Tags []string

	// Response describes the declared success response schema, if any.
	Response *Schema

	// ResponseContentType is the media type of the declared success
	// response, empty when the route declares none.
	ResponseContentType string
}

var placeholderPattern = regexp.MustCompile(`\{([^/{}]+)\}`)

// PathPlaceholders returns the placeholder names that appear in the route's
// path template, in order of appearance.
func (r Route) PathPlaceholders() []string {
	matches := placeholderPattern.FindAllStringSubmatch(r.Path, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

// HasPathPlaceholders reports whether the path template contains at least one
// {name} placeholder.
func (r Route) HasPathPlaceholders() bool {
	return strings.Contains(r.Path, "{") && placeholderPattern.MatchString(r.Path)
}
