package capability

import (
	"fmt"
	"strings"

	"github.com/capbridge/capbridge/internal/domain"
)

// URIScheme is the protocol scheme under which resource capabilities are
// addressed, e.g. "rest://get_pet/pets/{petId}".
const URIScheme = "rest"

// Build assembles an immutable capability descriptor from a classified route
// and its extraction. It does not register anything; registration is a
// separate explicit step performed by the build orchestrator.
func Build(route domain.Route, ext Extraction, kind domain.CapabilityKind, baseURL string) (*domain.CapabilityDescriptor, error) {
	if !kind.IsValid() {
		return nil, &domain.MalformedRouteError{
			Method: route.Method,
			Path:   route.Path,
			Reason: fmt.Sprintf("unknown capability kind %q", string(kind)),
		}
	}

	// Object bodies are only representable as JSON; anything else cannot be
	// assembled field-by-field from tool arguments.
	if route.Body != nil && route.Body.Type == "object" {
		ct := route.BodyContentType
		if ct != "" && !isJSONContentType(ct) {
			return nil, &domain.MalformedRouteError{
				Method: route.Method,
				Path:   route.Path,
				Reason: fmt.Sprintf("object body with content type %q cannot be represented", ct),
			}
		}
	}

	name := deriveName(route)
	desc := &domain.CapabilityDescriptor{
		Name:             name,
		Description:      deriveDescription(route),
		Kind:             kind,
		Tags:             append([]string(nil), route.Tags...),
		ValidationSchema: ext.InputSchema,
		Plan:             buildPlan(route, ext, kind, baseURL),
		Route:            route,
	}

	if kind == domain.KindTool {
		desc.InputSchema = ext.InputSchema
		return desc, nil
	}

	// Resource kinds address path parameters through the URI; the
	// caller-facing schema excludes them.
	desc.URITemplate = fmt.Sprintf("%s://%s%s", URIScheme, name, route.Path)
	desc.InputSchema = withoutURIParams(ext.InputSchema, route.PathPlaceholders())
	return desc, nil
}

// deriveName prefers the declared operation identifier and otherwise
// synthesizes a stable name from the method and the literal path segments,
// e.g. GET /pets/{petId} -> "get_pets". The algorithm is deterministic so
// rebuilds never silently rename capabilities.
func deriveName(route domain.Route) string {
	if route.OperationID != "" {
		return sanitizeName(route.OperationID)
	}
	parts := []string{strings.ToLower(string(route.Method))}
	for _, seg := range strings.Split(strings.Trim(route.Path, "/"), "/") {
		if seg == "" || strings.HasPrefix(seg, "{") {
			continue
		}
		parts = append(parts, sanitizeName(seg))
	}
	return strings.Join(parts, "_")
}

func deriveDescription(route domain.Route) string {
	if route.Description != "" {
		return route.Description
	}
	if route.Summary != "" {
		return route.Summary
	}
	return fmt.Sprintf("Executes %s %s", route.Method, route.Path)
}

func buildPlan(route domain.Route, ext Extraction, kind domain.CapabilityKind, baseURL string) domain.RequestPlan {
	plan := domain.RequestPlan{
		BaseURL:       strings.TrimSuffix(baseURL, "/"),
		Method:        route.Method,
		PathTemplate:  route.Path,
		SoleBodyParam: ext.SoleBodyParam,
	}
	if route.Body != nil {
		plan.ContentType = route.BodyContentType
		if plan.ContentType == "" {
			plan.ContentType = "application/json"
		}
	}

	fromURI := kind == domain.KindResource || kind == domain.KindResourceTemplate
	for _, p := range ext.Parameters {
		entry := domain.PlanEntry{Param: p.Name}
		switch p.Location {
		case domain.LocationPath:
			entry.Target = domain.TargetPath
			entry.FromURI = fromURI
		case domain.LocationQuery:
			entry.Target = domain.TargetQuery
		case domain.LocationHeader:
			entry.Target = domain.TargetHeader
		case domain.LocationCookie:
			entry.Target = domain.TargetCookie
		}
		plan.Entries = append(plan.Entries, entry)
	}
	for _, key := range ext.BodyKeys {
		plan.Entries = append(plan.Entries, domain.PlanEntry{Param: key, Target: domain.TargetBody, BodyKey: key})
	}
	if ext.SoleBodyParam != "" {
		plan.Entries = append(plan.Entries, domain.PlanEntry{Param: ext.SoleBodyParam, Target: domain.TargetBody, BodyKey: ext.SoleBodyParam})
	}
	return plan
}

// withoutURIParams strips URI-supplied path parameters from the caller-facing
// input schema.
func withoutURIParams(schema domain.Schema, pathParams []string) domain.Schema {
	drop := make(map[string]bool, len(pathParams))
	for _, name := range pathParams {
		drop[name] = true
	}
	props := make(map[string]domain.Schema, len(schema.Properties))
	for name, prop := range schema.Properties {
		if !drop[name] {
			props[name] = prop
		}
	}
	var required []string
	for _, name := range schema.Required {
		if !drop[name] {
			required = append(required, name)
		}
	}
	return domain.Schema{Type: "object", Properties: props, Required: required}
}

func isJSONContentType(ct string) bool {
	ct = strings.ToLower(ct)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct == "application/json" || strings.HasSuffix(ct, "+json")
}

// sanitizeName lowercases and replaces characters unsuitable for capability
// identifiers.
func sanitizeName(name string) string {
	name = strings.ToLower(name)
	replacer := strings.NewReplacer(" ", "_", "-", "_", "/", "_", ".", "_")
	name = replacer.Replace(name)
	for strings.Contains(name, "__") {
		name = strings.ReplaceAll(name, "__", "_")
	}
	return strings.Trim(name, "_")
}
