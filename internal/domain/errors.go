package domain

import "fmt"

// MalformedRouteError reports a build-time structural defect in a single
// route: an undeclared path placeholder, a conflicting parameter name, or a
// non-scalar path parameter. It is fatal to that route's build only.
type MalformedRouteError struct {
	Method Method
	Path   string
	Reason string
}

func (e *MalformedRouteError) Error() string {
	return fmt.Sprintf("malformed route %s %s: %s", e.Method, e.Path, e.Reason)
}

// UnclassifiableRouteError reports that no classification rule matched a
// route. The built-in default rules are total, so seeing this error means the
// default rule set itself is broken.
type UnclassifiableRouteError struct {
	Method Method
	Path   string
}

func (e *UnclassifiableRouteError) Error() string {
	return fmt.Sprintf("no route map rule matched %s %s", e.Method, e.Path)
}

// ValidationError reports call-time argument rejection. It captures the
// offending field path and the expected versus observed shape.
type ValidationError struct {
	Field    string
	Expected string
	Actual   string
	Detail   string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid argument %q: %s", e.Field, e.Detail)
	}
	return fmt.Sprintf("invalid arguments: %s", e.Detail)
}

// TransportError reports a network-level dispatch failure (connection
// refused, timeout, DNS). The invocation is not retried here; retry policy
// belongs to the HTTP client.
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure: %v", e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// UpstreamError reports a non-success HTTP status from the backend.
type UpstreamError struct {
	Status      int
	BodyExcerpt string
}

func (e *UpstreamError) Error() string {
	if e.BodyExcerpt == "" {
		return fmt.Sprintf("upstream returned HTTP %d", e.Status)
	}
	return fmt.Sprintf("upstream returned HTTP %d: %s", e.Status, e.BodyExcerpt)
}

// CancelledError reports a caller-initiated abort of an in-flight
// invocation, distinct from remote failure so callers can tell the two
// apart.
type CancelledError struct {
	Cause error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("invocation cancelled: %v", e.Cause)
}

func (e *CancelledError) Unwrap() error { return e.Cause }

// ConflictError reports a duplicate registration rejected under the "error"
// duplicate policy. The first registration stays intact.
type ConflictError struct {
	Name string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("capability %q is already registered", e.Name)
}
