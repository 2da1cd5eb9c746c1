// Package mcpbridge binds built capabilities onto a mark3labs/mcp-go server,
// exposing tools, resources and resource templates to protocol clients.
package mcpbridge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	mcpGoServer "github.com/mark3labs/mcp-go/server"
	"github.com/yosida95/uritemplate/v3"

	"github.com/capbridge/capbridge/internal/capability"
	"github.com/capbridge/capbridge/internal/domain"
	"github.com/capbridge/capbridge/internal/usecase"
)

// Binder registers capability descriptors with the MCP server and wires
// their handlers to the invocation use case.
type Binder struct {
	srv     *mcpGoServer.MCPServer
	invoker *usecase.InvokeCapabilityUseCase
	logger  *slog.Logger
}

// NewBinder creates a Binder over the given MCP server.
func NewBinder(srv *mcpGoServer.MCPServer, invoker *usecase.InvokeCapabilityUseCase, logger *slog.Logger) *Binder {
	return &Binder{
		srv:     srv,
		invoker: invoker,
		logger:  logger.With("component", "mcp_binder"),
	}
}

// Bind exposes one capability over the protocol. Rebinding the same name
// replaces the previous handler, mirroring registry replacement.
func (b *Binder) Bind(desc *domain.CapabilityDescriptor) error {
	switch desc.Kind {
	case domain.KindTool:
		return b.bindTool(desc)
	case domain.KindResource:
		// A user rule may force a placeholder route to plain resource; the
		// protocol side still needs template matching to read it.
		if strings.Contains(desc.URITemplate, "{") {
			return b.bindResourceTemplate(desc)
		}
		return b.bindResource(desc)
	case domain.KindResourceTemplate:
		return b.bindResourceTemplate(desc)
	default:
		return fmt.Errorf("binding %s: unknown capability kind %q", desc.Name, desc.Kind)
	}
}

func (b *Binder) bindTool(desc *domain.CapabilityDescriptor) error {
	schemaJSON, err := json.Marshal(desc.InputSchema)
	if err != nil {
		return fmt.Errorf("marshaling input schema for %s: %w", desc.Name, err)
	}

	tool := mcp.NewToolWithRawSchema(desc.Name, desc.Description, schemaJSON)
	if title := toolTitle(desc); title != "" {
		tool.Annotations = mcp.ToolAnnotation{Title: title}
	}

	name := desc.Name
	b.srv.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := b.invoker.Execute(ctx, name, req.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if result.Failed() {
			return mcp.NewToolResultError(result.Err.Error()), nil
		}
		return toolResult(result), nil
	})

	b.logger.Debug("Bound tool.", slog.String("name", desc.Name))
	return nil
}

func (b *Binder) bindResource(desc *domain.CapabilityDescriptor) error {
	res := mcp.NewResource(
		desc.URITemplate,
		desc.Name,
		mcp.WithResourceDescription(desc.Description),
		mcp.WithMIMEType(registeredMIMEType(desc)),
	)

	name := desc.Name
	b.srv.AddResource(res, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		result, err := b.invoker.Execute(ctx, name, map[string]interface{}{})
		if err != nil {
			return nil, err
		}
		if result.Failed() {
			return nil, result.Err
		}
		return resourceContents(req.Params.URI, result), nil
	})

	b.logger.Debug("Bound resource.", slog.String("name", desc.Name), slog.String("uri", desc.URITemplate))
	return nil
}

func (b *Binder) bindResourceTemplate(desc *domain.CapabilityDescriptor) error {
	tmpl, err := uritemplate.New(desc.URITemplate)
	if err != nil {
		return fmt.Errorf("compiling URI template for %s: %w", desc.Name, err)
	}

	rt := mcp.NewResourceTemplate(
		desc.URITemplate,
		desc.Name,
		mcp.WithTemplateDescription(desc.Description),
		mcp.WithTemplateMIMEType(registeredMIMEType(desc)),
	)

	name := desc.Name
	uriParams := uriParamNames(desc.Plan)
	b.srv.AddResourceTemplate(rt, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		match := tmpl.Match(req.Params.URI)
		if match == nil {
			return nil, fmt.Errorf("uri %q does not match template %q", req.Params.URI, desc.URITemplate)
		}

		args := templateArgs(req.Params.Arguments, match, uriParams)

		result, err := b.invoker.Execute(ctx, name, args)
		if err != nil {
			return nil, err
		}
		if result.Failed() {
			return nil, result.Err
		}
		return resourceContents(req.Params.URI, result), nil
	})

	b.logger.Debug("Bound resource template.", slog.String("name", desc.Name), slog.String("uri_template", desc.URITemplate))
	return nil
}

// templateArgs merges caller-supplied arguments with URI-matched values.
// URI-carried values win over caller-supplied duplicates, even when the
// matched segment is empty.
func templateArgs(caller map[string]interface{}, match uritemplate.Values, uriParams []string) map[string]interface{} {
	args := make(map[string]interface{}, len(caller)+len(uriParams))
	for key, value := range caller {
		args[key] = value
	}
	for _, param := range uriParams {
		args[param] = match.Get(param).String()
	}
	return args
}

// toolTitle assembles the annotation title from the route summary and tags.
func toolTitle(desc *domain.CapabilityDescriptor) string {
	var parts []string
	if desc.Route.Summary != "" {
		parts = append(parts, desc.Route.Summary)
	}
	if len(desc.Tags) > 0 {
		parts = append(parts, "Tags: "+strings.Join(desc.Tags, ", "))
	}
	return strings.Join(parts, " | ")
}

// registeredMIMEType is the media type advertised at registration time; the
// read handler still reports the actual upstream content type per response.
func registeredMIMEType(desc *domain.CapabilityDescriptor) string {
	if desc.Route.ResponseContentType != "" {
		return desc.Route.ResponseContentType
	}
	return "application/json"
}

func uriParamNames(plan domain.RequestPlan) []string {
	var names []string
	for _, entry := range plan.Entries {
		if entry.FromURI {
			names = append(names, entry.Param)
		}
	}
	return names
}

func toolResult(result capability.Result) *mcp.CallToolResult {
	content := make([]mcp.Content, 0, len(result.Content))
	for _, item := range result.Content {
		switch item.Kind {
		case capability.ContentBlob:
			content = append(content, mcp.NewEmbeddedResource(mcp.BlobResourceContents{
				MIMEType: item.MIMEType,
				Blob:     item.Blob,
			}))
		default:
			content = append(content, mcp.NewTextContent(item.Text))
		}
	}
	return &mcp.CallToolResult{Content: content}
}

func resourceContents(uri string, result capability.Result) []mcp.ResourceContents {
	mimeType := result.ContentType
	if mimeType == "" {
		mimeType = "application/json"
	}
	if len(result.Raw) == 0 || utf8.Valid(result.Raw) {
		return []mcp.ResourceContents{mcp.TextResourceContents{
			URI:      uri,
			MIMEType: mimeType,
			Text:     string(result.Raw),
		}}
	}
	return []mcp.ResourceContents{mcp.BlobResourceContents{
		URI:      uri,
		MIMEType: mimeType,
		Blob:     base64.StdEncoding.EncodeToString(result.Raw),
	}}
}
