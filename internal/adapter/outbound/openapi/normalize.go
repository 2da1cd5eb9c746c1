package openapi

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/capbridge/capbridge/internal/domain"
)

// Normalize converts a parsed OpenAPI document into the engine's route list
// and resolves the backend base URL from the servers block. Operations that
// cannot be normalized are skipped with a warning; one bad operation never
// sinks the document.
func Normalize(doc *openapi3.T, sourceURL string, logger *slog.Logger) ([]domain.Route, string, error) {
	log := logger.With("component", "openapi_normalizer", slog.String("source", sourceURL))

	baseURL, err := resolveBaseURL(doc.Servers, sourceURL, log)
	if err != nil {
		return nil, "", fmt.Errorf("resolving base URL: %w", err)
	}

	var routes []domain.Route
	skipped := 0
	for path, pathItem := range doc.Paths.Map() {
		if pathItem == nil {
			continue
		}
		for method, operation := range pathItem.Operations() {
			if operation == nil {
				continue
			}
			route, err := normalizeOperation(path, method, pathItem, operation, log)
			if err != nil {
				log.Warn("Skipping operation.", slog.String("method", method), slog.String("path", path), slog.Any("error", err))
				skipped++
				continue
			}
			routes = append(routes, route)
		}
	}

	log.Debug("Normalization complete.", slog.Int("routes", len(routes)), slog.Int("skipped", skipped))
	return routes, baseURL, nil
}

// resolveBaseURL picks the first usable HTTP/HTTPS server URL, resolving
// relative server URLs against the description's own URL.
func resolveBaseURL(servers openapi3.Servers, sourceURL string, log *slog.Logger) (string, error) {
	if len(servers) == 0 {
		return "", fmt.Errorf("no servers defined in document")
	}

	base, err := url.Parse(sourceURL)
	if err != nil {
		log.Warn("Source URL unparsable, relative server URLs cannot be resolved.", slog.Any("error", err))
		base = nil
	}

	for _, server := range servers {
		if server == nil || server.URL == "" {
			continue
		}
		parsed, err := url.Parse(server.URL)
		if err != nil {
			log.Warn("Skipping unparsable server URL.", slog.String("url", server.URL), slog.Any("error", err))
			continue
		}
		if !parsed.IsAbs() {
			if base == nil {
				continue
			}
			parsed = base.ResolveReference(parsed)
		}
		if (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != "" {
			resolved := fmt.Sprintf("%s://%s%s", parsed.Scheme, parsed.Host, strings.TrimSuffix(parsed.Path, "/"))
			return resolved, nil
		}
	}
	return "", fmt.Errorf("no usable HTTP/HTTPS server URL in document")
}

func normalizeOperation(path, method string, pathItem *openapi3.PathItem, op *openapi3.Operation, log *slog.Logger) (domain.Route, error) {
	route := domain.Route{
		Method:      domain.Method(strings.ToUpper(method)),
		Path:        path,
		OperationID: op.OperationID,
		Summary:     op.Summary,
		Description: op.Description,
		Tags:        append([]string(nil), op.Tags...),
	}
	if !route.Method.IsValid() {
		return domain.Route{}, fmt.Errorf("unsupported method %q", method)
	}

	// Path-level parameters apply to every operation beneath them.
	for _, paramRef := range append(append(openapi3.Parameters{}, pathItem.Parameters...), op.Parameters...) {
		if paramRef == nil || paramRef.Value == nil {
			continue
		}
		param := paramRef.Value
		if param.Schema == nil || param.Schema.Value == nil {
			log.Warn("Parameter has no schema, treating as string.", slog.String("param", param.Name))
		}
		desc := domain.ParameterDescriptor{
			Name:     param.Name,
			Location: domain.Location(param.In),
			Schema:   convertSchemaRef(param.Schema),
			Required: param.Required,
		}
		if param.Schema != nil && param.Schema.Value != nil {
			desc.Default = param.Schema.Value.Default
		}
		route.Parameters = append(route.Parameters, desc)
	}

	if op.RequestBody != nil && op.RequestBody.Value != nil && len(op.RequestBody.Value.Content) > 0 {
		content := op.RequestBody.Value.Content
		mediaType := "application/json"
		mt := content.Get(mediaType)
		if mt == nil {
			for ct, candidate := range content {
				mediaType, mt = ct, candidate
				break
			}
		}
		if mt != nil && mt.Schema != nil && mt.Schema.Value != nil {
			schema := convertSchemaRef(mt.Schema)
			route.Body = &schema
			route.BodyRequired = op.RequestBody.Value.Required
			route.BodyContentType = mediaType
		}
	}

	route.Response, route.ResponseContentType = successResponse(op.Responses)
	return route, nil
}

// successResponse returns the schema and media type of the first 2xx
// response, preferring 200 and 201. Only application/json responses carry a
// schema; other media types report their content type alone so resource
// registration can advertise it.
func successResponse(responses *openapi3.Responses) (*domain.Schema, string) {
	if responses == nil {
		return nil, ""
	}
	byCode := responses.Map()

	var success *openapi3.ResponseRef
	for _, code := range []string{"200", "201"} {
		if ref, ok := byCode[code]; ok {
			success = ref
			break
		}
	}
	if success == nil {
		for code, ref := range byCode {
			if strings.HasPrefix(code, "2") {
				success = ref
				break
			}
		}
	}
	if success == nil || success.Value == nil {
		return nil, ""
	}
	if mt := success.Value.Content.Get("application/json"); mt != nil && mt.Schema != nil && mt.Schema.Value != nil {
		schema := convertSchemaRef(mt.Schema)
		return &schema, "application/json"
	}
	for contentType := range success.Value.Content {
		return nil, contentType
	}
	return nil, ""
}

// convertSchemaRef maps an OpenAPI schema onto the engine's schema subset,
// recursing through objects and arrays. A nil reference becomes an untyped
// empty schema.
func convertSchemaRef(ref *openapi3.SchemaRef) domain.Schema {
	if ref == nil || ref.Value == nil {
		return domain.Schema{}
	}
	src := ref.Value

	var schemaType string
	if src.Type != nil && len(*src.Type) > 0 {
		schemaType = (*src.Type)[0]
	}

	out := domain.Schema{
		Type:        schemaType,
		Description: src.Description,
		Format:      src.Format,
		Enum:        src.Enum,
		Default:     src.Default,
	}

	switch schemaType {
	case "object":
		out.Required = append([]string(nil), src.Required...)
		if len(src.Properties) > 0 {
			out.Properties = make(map[string]domain.Schema, len(src.Properties))
			for name, propRef := range src.Properties {
				out.Properties[name] = convertSchemaRef(propRef)
			}
		}
	case "array":
		if src.Items != nil {
			items := convertSchemaRef(src.Items)
			out.Items = &items
		}
	}
	return out
}
