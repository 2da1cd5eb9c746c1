package capability

import "github.com/capbridge/capbridge/internal/domain"

// Classify resolves a route to exactly one capability kind by scanning the
// user-supplied rules followed by the built-in defaults. List order is
// authoritative: the first matching rule wins, never the most specific one.
//
// The defaults are total, so UnclassifiableRouteError is only reachable when
// the default rule set itself is broken.
func Classify(route domain.Route, userRules []domain.RouteMap) (domain.CapabilityKind, error) {
	for _, rule := range userRules {
		if rule.Matches(route) {
			return rule.Kind, nil
		}
	}
	for _, rule := range domain.DefaultRouteMaps() {
		if rule.Matches(route) {
			return rule.Kind, nil
		}
	}
	return "", &domain.UnclassifiableRouteError{Method: route.Method, Path: route.Path}
}
