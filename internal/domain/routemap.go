package domain

import "strings"

// RouteMap is one ordered classification rule. Rules are evaluated in list
// order and the first match wins; position is the only tie-breaker, a rule
// never wins by being more specific.
type RouteMap struct {
	// Methods restricts the rule to these HTTP methods. Empty matches all.
	Methods []Method

	// Pattern matches the route path template. Segments may be literals,
	// "{name}" placeholders (one segment), "*" (one segment) or a trailing
	// "**" (any remaining segments, including none).
	Pattern string

	// PathParams, when non-nil, additionally requires the route path to have
	// (true) or not have (false) placeholders. This is the parameter-shape
	// predicate the built-in defaults use to tell templates from plain GETs.
	PathParams *bool

	// Kind is the capability kind assigned to matching routes.
	Kind CapabilityKind
}

// Matches reports whether the rule applies to the given route.
func (rm RouteMap) Matches(route Route) bool {
	if len(rm.Methods) > 0 {
		found := false
		for _, m := range rm.Methods {
			if m == route.Method {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if rm.PathParams != nil && *rm.PathParams != route.HasPathPlaceholders() {
		return false
	}
	return matchPattern(rm.Pattern, route.Path)
}

// matchPattern matches a route path template against a rule pattern, segment
// by segment. A "{name}" pattern segment matches any single path segment,
// placeholder or literal. "**" must be the final pattern segment.
func matchPattern(pattern, path string) bool {
	if pattern == "" || pattern == "**" || pattern == "/**" {
		return true
	}
	patSegs := splitSegments(pattern)
	pathSegs := splitSegments(path)

	for i, ps := range patSegs {
		if ps == "**" {
			// Tail wildcard swallows the rest, including nothing.
			return i == len(patSegs)-1
		}
		if i >= len(pathSegs) {
			return false
		}
		if !matchSegment(ps, pathSegs[i]) {
			return false
		}
	}
	return len(patSegs) == len(pathSegs)
}

func matchSegment(pattern, segment string) bool {
	if pattern == "*" {
		return true
	}
	if strings.HasPrefix(pattern, "{") && strings.HasSuffix(pattern, "}") {
		return true
	}
	return pattern == segment
}

func splitSegments(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func boolPtr(b bool) *bool { return &b }

// DefaultRouteMaps returns the built-in rules appended after any
// user-supplied rules. They are total: every route resolves to exactly one
// kind.
//
//	GET with at least one path placeholder -> ResourceTemplate
//	GET otherwise                          -> Resource
//	anything else                          -> Tool
func DefaultRouteMaps() []RouteMap {
	return []RouteMap{
		{Methods: []Method{MethodGet}, Pattern: "/**", PathParams: boolPtr(true), Kind: KindResourceTemplate},
		{Methods: []Method{MethodGet}, Pattern: "/**", Kind: KindResource},
		{Pattern: "/**", Kind: KindTool},
	}
}
