// Package capability contains the route classification and request/response
// translation engine: schema extraction, rule-based classification, descriptor
// building and the per-invocation translator state machine.
package capability

import (
	"fmt"
	"sort"

	"github.com/capbridge/capbridge/internal/domain"
)

// BodyParamName is the synthetic input key used when a route body is not a
// JSON object and therefore maps to a single catch-all parameter.
const BodyParamName = "requestBody"

// Extraction is the finalized, validation-ready view of one route's
// parameters. It is a pure function of the route.
type Extraction struct {
	// Parameters are the declared path/query/header/cookie descriptors after
	// placeholder merging, in declaration order with path parameters first.
	Parameters []domain.ParameterDescriptor

	// Body is the request body schema, nil when the route takes none.
	Body *domain.Schema

	// BodyKeys lists the input-schema keys that feed the JSON body, in
	// deterministic (sorted) order. Empty when SoleBodyParam is set.
	BodyKeys []string

	// SoleBodyParam is BodyParamName when the body is not an object and is
	// serialized directly from that one input value.
	SoleBodyParam string

	// InputSchema is the object schema covering every caller-facing value:
	// declared parameters plus body fields.
	InputSchema domain.Schema
}

// Extract merges the route's path placeholders with its declared parameter
// metadata and folds the body schema into a single input schema. Every
// placeholder must have a required path descriptor, names must be unique
// across locations, and path parameters must be scalar; violations yield a
// MalformedRouteError.
func Extract(route domain.Route) (Extraction, error) {
	malformed := func(format string, args ...interface{}) error {
		return &domain.MalformedRouteError{
			Method: route.Method,
			Path:   route.Path,
			Reason: fmt.Sprintf(format, args...),
		}
	}

	if !route.Method.IsValid() {
		return Extraction{}, malformed("unsupported method %q", string(route.Method))
	}

	declared := make(map[string]domain.ParameterDescriptor, len(route.Parameters))
	for _, p := range route.Parameters {
		if _, dup := declared[p.Name]; dup {
			return Extraction{}, malformed("parameter %q declared more than once", p.Name)
		}
		declared[p.Name] = p
	}

	// Path placeholders come first so plan entries substitute in template
	// order. Each must be declared, required and scalar.
	var params []domain.ParameterDescriptor
	placeholders := route.PathPlaceholders()
	inPath := make(map[string]bool, len(placeholders))
	for _, name := range placeholders {
		desc, ok := declared[name]
		if !ok {
			return Extraction{}, malformed("path placeholder {%s} has no declared parameter", name)
		}
		if desc.Location != domain.LocationPath {
			return Extraction{}, malformed("parameter %q matches a path placeholder but is declared in %q", name, desc.Location)
		}
		if !desc.Schema.IsScalar() {
			return Extraction{}, malformed("path parameter %q must be scalar, got %q", name, desc.Schema.Type)
		}
		desc.Required = true
		params = append(params, desc)
		inPath[name] = true
	}

	for _, p := range route.Parameters {
		if p.Location == domain.LocationPath {
			if !inPath[p.Name] {
				return Extraction{}, malformed("path parameter %q does not appear in the path template", p.Name)
			}
			continue
		}
		params = append(params, p)
	}

	props := make(map[string]domain.Schema, len(params))
	var required []string
	for _, p := range params {
		schema := p.Schema
		if p.Default != nil && schema.Default == nil {
			schema.Default = p.Default
		}
		props[p.Name] = schema
		if p.Required {
			required = append(required, p.Name)
		}
	}

	ext := Extraction{Parameters: params, Body: route.Body}

	if route.Body != nil {
		if route.Body.Type == "object" {
			for name, prop := range route.Body.Properties {
				if _, exists := props[name]; exists {
					return Extraction{}, malformed("body field %q collides with a declared parameter", name)
				}
				props[name] = prop
				ext.BodyKeys = append(ext.BodyKeys, name)
			}
			sort.Strings(ext.BodyKeys)
			required = append(required, route.Body.Required...)
		} else {
			if _, exists := props[BodyParamName]; exists {
				return Extraction{}, malformed("cannot represent non-object body: parameter %q already declared", BodyParamName)
			}
			props[BodyParamName] = *route.Body
			ext.SoleBodyParam = BodyParamName
			if route.BodyRequired {
				required = append(required, BodyParamName)
			}
		}
	}

	ext.InputSchema = domain.Schema{
		Type:       "object",
		Properties: props,
		Required:   uniqueStrings(required),
	}
	return ext, nil
}

// uniqueStrings removes duplicates while preserving first-seen order.
func uniqueStrings(input []string) []string {
	seen := make(map[string]struct{}, len(input))
	out := input[:0]
	for _, v := range input {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
