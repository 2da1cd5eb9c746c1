package capability

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/capbridge/capbridge/internal/domain"
)

// Request is the concrete outbound HTTP request handed to the dispatcher.
type Request struct {
	Method      domain.Method
	URL         string
	Headers     http.Header
	Body        []byte
	ContentType string
}

// Response is what the dispatcher returns for a completed round trip.
type Response struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// Dispatcher is the HTTP client collaborator. It handles connection reuse
// and any transport-level retry; the translator never retries.
type Dispatcher interface {
	Dispatch(ctx context.Context, req Request) (Response, error)
}

// CoercionScope controls best-effort decoding of string arguments whose
// target type is structured.
type CoercionScope string

const (
	// CoerceBody decodes only arguments bound for the request body.
	CoerceBody CoercionScope = "body"
	// CoerceAll decodes string arguments regardless of destination.
	CoerceAll CoercionScope = "all"
	// CoerceOff disables coercion entirely.
	CoerceOff CoercionScope = "off"
)

// ParseCoercionScope maps a config string onto a scope, defaulting to body.
func ParseCoercionScope(s string) CoercionScope {
	switch CoercionScope(strings.ToLower(s)) {
	case CoerceAll:
		return CoerceAll
	case CoerceOff:
		return CoerceOff
	default:
		return CoerceBody
	}
}

// state tracks the translator through its single pass.
type state int

const (
	stateReceived state = iota
	stateValidated
	stateRequestBuilt
	stateDispatched
	stateResponseMapped
	stateSucceeded
	stateFailed
)

const bodyExcerptLimit = 512

// Translator executes exactly one invocation of one capability:
// Received -> Validated -> RequestBuilt -> Dispatched -> ResponseMapped ->
// Succeeded | Failed. Terminal states are never re-entered; the instance is
// discarded after Run returns.
type Translator struct {
	desc       *domain.CapabilityDescriptor
	dispatcher Dispatcher
	coerce     CoercionScope
	logger     *slog.Logger
	state      state
}

// NewTranslator prepares a single-use translator for the given capability.
func NewTranslator(desc *domain.CapabilityDescriptor, dispatcher Dispatcher, coerce CoercionScope, logger *slog.Logger) *Translator {
	return &Translator{
		desc:       desc,
		dispatcher: dispatcher,
		coerce:     coerce,
		logger:     logger.With(slog.String("capability", desc.Name)),
		state:      stateReceived,
	}
}

// Run drives the state machine to a terminal result. Arguments are validated
// before anything touches the network: a validation failure guarantees the
// dispatcher was never called.
func (t *Translator) Run(ctx context.Context, args map[string]interface{}) Result {
	if t.state != stateReceived {
		return t.fail(failure(fmt.Errorf("translator for %q already consumed", t.desc.Name)))
	}
	if args == nil {
		args = map[string]interface{}{}
	}

	args, err := t.validate(args)
	if err != nil {
		return t.fail(failure(err))
	}
	t.state = stateValidated

	req, err := t.buildRequest(args)
	if err != nil {
		return t.fail(failure(err))
	}
	t.state = stateRequestBuilt
	t.logger.Debug("Request built.", slog.String("method", string(req.Method)), slog.String("url", req.URL))

	resp, err := t.dispatcher.Dispatch(ctx, req)
	t.state = stateDispatched
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return t.fail(failure(&domain.CancelledError{Cause: err}))
		}
		return t.fail(failure(&domain.TransportError{Cause: err}))
	}

	result := t.mapResponse(resp)
	t.state = stateResponseMapped
	if result.Failed() {
		return t.fail(result)
	}
	t.state = stateSucceeded
	return result
}

func (t *Translator) fail(r Result) Result {
	t.state = stateFailed
	return r
}

// validate applies declared defaults, casts string arguments onto declared
// scalar types, performs best-effort JSON-string coercion for structured
// targets, and checks the merged argument set against the capability's
// validation schema.
func (t *Translator) validate(args map[string]interface{}) (map[string]interface{}, error) {
	merged := make(map[string]interface{}, len(args))
	for k, v := range args {
		merged[k] = v
	}

	props := t.desc.ValidationSchema.Properties
	for name, prop := range props {
		if _, ok := merged[name]; !ok && prop.Default != nil {
			merged[name] = prop.Default
		}
	}

	bodyTargets := make(map[string]bool)
	for _, entry := range t.desc.Plan.Entries {
		if entry.Target == domain.TargetBody {
			bodyTargets[entry.Param] = true
		}
	}
	for name, v := range merged {
		s, isString := v.(string)
		if !isString {
			continue
		}
		prop, declared := props[name]
		if !declared {
			continue
		}
		if prop.IsStructured() {
			if t.coerce == CoerceOff {
				continue
			}
			if t.coerce == CoerceBody && !bodyTargets[name] {
				continue
			}
			// Decode failure degrades to the plain string; validation
			// decides whether that is acceptable.
			var decoded interface{}
			if err := json.Unmarshal([]byte(s), &decoded); err == nil {
				merged[name] = decoded
			}
			continue
		}
		// URI templates and query strings carry every value as a string, so
		// casting to the declared scalar type is translation, not best-effort
		// coercion; it applies regardless of the configured scope. A value
		// that does not parse stays a string for validation to reject.
		switch prop.Type {
		case "integer":
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				merged[name] = n
			}
		case "number":
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				merged[name] = f
			}
		case "boolean":
			if b, err := strconv.ParseBool(s); err == nil {
				merged[name] = b
			}
		}
	}

	schemaJSON, err := json.Marshal(t.desc.ValidationSchema)
	if err != nil {
		return nil, &domain.ValidationError{Detail: fmt.Sprintf("input schema not serializable: %v", err)}
	}
	argsJSON, err := json.Marshal(merged)
	if err != nil {
		return nil, &domain.ValidationError{Detail: fmt.Sprintf("arguments not serializable: %v", err)}
	}

	outcome, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaJSON), gojsonschema.NewBytesLoader(argsJSON))
	if err != nil {
		return nil, &domain.ValidationError{Detail: err.Error()}
	}
	if !outcome.Valid() {
		verr := outcome.Errors()[0]
		field := verr.Field()
		if prop, ok := verr.Details()["property"].(string); ok && (field == "(root)" || field == "") {
			field = prop
		}
		expected, _ := verr.Details()["expected"].(string)
		actual, _ := verr.Details()["given"].(string)
		return nil, &domain.ValidationError{
			Field:    field,
			Expected: expected,
			Actual:   actual,
			Detail:   verr.Description(),
		}
	}
	return merged, nil
}

// buildRequest executes the request-construction plan against the validated
// arguments. Missing optional values are omitted; defaults were already
// merged during validation.
func (t *Translator) buildRequest(args map[string]interface{}) (Request, error) {
	plan := t.desc.Plan
	path := plan.PathTemplate
	query := url.Values{}
	headers := http.Header{}
	var cookies []string
	body := map[string]interface{}{}

	for _, entry := range plan.Entries {
		val, ok := args[entry.Param]
		if !ok {
			continue
		}
		switch entry.Target {
		case domain.TargetPath:
			path = strings.ReplaceAll(path, "{"+entry.Param+"}", url.PathEscape(stringify(val)))
		case domain.TargetQuery:
			if items, isSlice := val.([]interface{}); isSlice {
				for _, item := range items {
					query.Add(entry.Param, stringify(item))
				}
			} else {
				query.Add(entry.Param, stringify(val))
			}
		case domain.TargetHeader:
			headers.Set(entry.Param, stringify(val))
		case domain.TargetCookie:
			cookies = append(cookies, fmt.Sprintf("%s=%s", entry.Param, stringify(val)))
		case domain.TargetBody:
			body[entry.BodyKey] = val
		}
	}
	if len(cookies) > 0 {
		headers.Set("Cookie", strings.Join(cookies, "; "))
	}

	req := Request{
		Method:  plan.Method,
		URL:     plan.BaseURL + path,
		Headers: headers,
	}
	if len(query) > 0 {
		req.URL += "?" + query.Encode()
	}

	if plan.Method.AllowsBody() {
		payload, err := t.serializeBody(args, body)
		if err != nil {
			return Request{}, err
		}
		if payload != nil {
			req.Body = payload
			req.ContentType = plan.ContentType
		}
	} else if len(body) > 0 {
		t.logger.Warn("Dropping body-bound arguments: method does not carry a body.",
			slog.String("method", string(plan.Method)), slog.Int("count", len(body)))
	}
	return req, nil
}

func (t *Translator) serializeBody(args, body map[string]interface{}) ([]byte, error) {
	plan := t.desc.Plan
	if plan.SoleBodyParam != "" {
		val, ok := args[plan.SoleBodyParam]
		if !ok {
			return nil, nil
		}
		if isJSONContentType(plan.ContentType) {
			data, err := json.Marshal(val)
			if err != nil {
				return nil, fmt.Errorf("marshaling body parameter %q: %w", plan.SoleBodyParam, err)
			}
			return data, nil
		}
		return []byte(stringify(val)), nil
	}
	if len(body) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request body: %w", err)
	}
	return data, nil
}

// mapResponse translates the HTTP outcome into the protocol result shape.
// JSON content types are structurally decoded; everything else passes
// through as raw bytes or text without reinterpretation.
func (t *Translator) mapResponse(resp Response) Result {
	contentType := resp.Headers.Get("Content-Type")

	if resp.Status < 200 || resp.Status >= 300 {
		excerpt := string(resp.Body)
		if len(excerpt) > bodyExcerptLimit {
			excerpt = excerpt[:bodyExcerptLimit]
		}
		t.logger.Warn("Upstream returned non-success status.", slog.Int("status", resp.Status))
		return upstreamFailure(resp.Status, excerpt)
	}

	result := Result{
		Status:         StatusSucceeded,
		Raw:            resp.Body,
		ContentType:    contentType,
		UpstreamStatus: resp.Status,
	}

	if isJSONContentType(contentType) && len(resp.Body) > 0 {
		var decoded interface{}
		if err := json.Unmarshal(resp.Body, &decoded); err != nil {
			t.logger.Warn("Upstream body was not valid JSON despite content type, passing through as text.", slog.Any("error", err))
			result.Payload = string(resp.Body)
		} else {
			result.Payload = decoded
		}
	} else if len(resp.Body) > 0 {
		result.Payload = string(resp.Body)
	}

	if t.desc.Kind == domain.KindTool {
		result.Content = toolEnvelope(resp.Body, contentType, result.Payload)
	}
	return result
}

// toolEnvelope wraps a tool payload into the invocation protocol's content
// envelope: text for string/JSON-able results, base64 for binary, an empty
// entry for empty bodies.
func toolEnvelope(raw []byte, contentType string, payload interface{}) []ContentItem {
	if len(raw) == 0 {
		return []ContentItem{{Kind: ContentEmpty}}
	}
	if isJSONContentType(contentType) {
		if text, err := json.Marshal(payload); err == nil && !bytes.Equal(text, []byte("null")) {
			return []ContentItem{{Kind: ContentText, Text: string(text), MIMEType: contentType}}
		}
		return []ContentItem{{Kind: ContentText, Text: string(raw), MIMEType: contentType}}
	}
	if strings.HasPrefix(contentType, "text/") || contentType == "" {
		return []ContentItem{{Kind: ContentText, Text: string(raw), MIMEType: contentType}}
	}
	return []ContentItem{{Kind: ContentBlob, Blob: base64.StdEncoding.EncodeToString(raw), MIMEType: contentType}}
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		// JSON numbers decode to float64; render integral values without a
		// fraction so path and query substitution stays clean.
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%v", val)
	default:
		return fmt.Sprintf("%v", v)
	}
}
