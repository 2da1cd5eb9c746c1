package mcpbridge

import (
	"log/slog"
	"os"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpGoServer "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yosida95/uritemplate/v3"

	"github.com/capbridge/capbridge/internal/capability"
	"github.com/capbridge/capbridge/internal/domain"
	"github.com/capbridge/capbridge/internal/usecase"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testBinder() *Binder {
	srv := mcpGoServer.NewMCPServer("test", "0.0.0",
		mcpGoServer.WithToolCapabilities(true),
		mcpGoServer.WithResourceCapabilities(true, true))
	invoker := usecase.NewInvokeCapabilityUseCase(nil, nil, capability.CoerceBody, testLogger())
	return NewBinder(srv, invoker, testLogger())
}

func TestBind_KnownKinds(t *testing.T) {
	b := testBinder()

	tool := &domain.CapabilityDescriptor{
		Name: "create_pet",
		Kind: domain.KindTool,
		InputSchema: domain.Schema{
			Type:       "object",
			Properties: map[string]domain.Schema{"name": {Type: "string"}},
		},
	}
	assert.NoError(t, b.Bind(tool))

	resource := &domain.CapabilityDescriptor{
		Name:        "list_pets",
		Kind:        domain.KindResource,
		URITemplate: "rest://list_pets/pets",
	}
	assert.NoError(t, b.Bind(resource))

	template := &domain.CapabilityDescriptor{
		Name:        "get_pet",
		Kind:        domain.KindResourceTemplate,
		URITemplate: "rest://get_pet/pets/{petId}",
		Plan: domain.RequestPlan{
			Entries: []domain.PlanEntry{{Param: "petId", Target: domain.TargetPath, FromURI: true}},
		},
	}
	assert.NoError(t, b.Bind(template))
}

func TestBind_UnknownKind(t *testing.T) {
	b := testBinder()
	err := b.Bind(&domain.CapabilityDescriptor{Name: "x", Kind: domain.CapabilityKind("gadget")})
	assert.Error(t, err)
}

func TestBind_ResourceWithPlaceholdersUsesTemplateMatching(t *testing.T) {
	// A user rule can force a placeholder route to plain resource; the binder
	// still registers it with template matching so reads can carry values.
	b := testBinder()
	desc := &domain.CapabilityDescriptor{
		Name:        "get_report",
		Kind:        domain.KindResource,
		URITemplate: "rest://get_report/reports/{year}",
		Plan: domain.RequestPlan{
			Entries: []domain.PlanEntry{{Param: "year", Target: domain.TargetPath, FromURI: true}},
		},
	}
	assert.NoError(t, b.Bind(desc))
}

func TestURITemplateMatching(t *testing.T) {
	assert := assert.New(t)
	tmpl, err := uritemplate.New("rest://get_pet/pets/{petId}")
	require.NoError(t, err)

	match := tmpl.Match("rest://get_pet/pets/42")
	require.NotNil(t, match)
	assert.Equal("42", match.Get("petId").String())

	assert.Nil(tmpl.Match("rest://get_pet/owners/42"))
}

func TestTemplateArgs_URIValuesWinOverCallerDuplicates(t *testing.T) {
	assert := assert.New(t)
	tmpl, err := uritemplate.New("rest://get_pet/pets/{petId}")
	require.NoError(t, err)
	match := tmpl.Match("rest://get_pet/pets/42")
	require.NotNil(t, match)

	args := templateArgs(
		map[string]interface{}{"petId": "7", "verbose": "true"},
		match,
		[]string{"petId"},
	)

	assert.Equal("42", args["petId"])
	assert.Equal("true", args["verbose"])
}

func TestToolTitle(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("", toolTitle(&domain.CapabilityDescriptor{}))
	assert.Equal("List all pets", toolTitle(&domain.CapabilityDescriptor{
		Route: domain.Route{Summary: "List all pets"},
	}))
	assert.Equal("Tags: pets, store", toolTitle(&domain.CapabilityDescriptor{
		Tags: []string{"pets", "store"},
	}))
	assert.Equal("List all pets | Tags: pets", toolTitle(&domain.CapabilityDescriptor{
		Tags:  []string{"pets"},
		Route: domain.Route{Summary: "List all pets"},
	}))
}

func TestRegisteredMIMEType(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("application/json", registeredMIMEType(&domain.CapabilityDescriptor{}))
	assert.Equal("text/plain", registeredMIMEType(&domain.CapabilityDescriptor{
		Route: domain.Route{ResponseContentType: "text/plain"},
	}))
}

func TestUriParamNames(t *testing.T) {
	plan := domain.RequestPlan{
		Entries: []domain.PlanEntry{
			{Param: "petId", Target: domain.TargetPath, FromURI: true},
			{Param: "verbose", Target: domain.TargetQuery},
			{Param: "storeId", Target: domain.TargetPath, FromURI: true},
		},
	}
	assert.Equal(t, []string{"petId", "storeId"}, uriParamNames(plan))
}

func TestToolResult(t *testing.T) {
	assert := assert.New(t)

	text := toolResult(capability.Result{Content: []capability.ContentItem{
		{Kind: capability.ContentText, Text: `{"ok":true}`, MIMEType: "application/json"},
	}})
	require.Len(t, text.Content, 1)
	tc, ok := text.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Equal(`{"ok":true}`, tc.Text)

	blob := toolResult(capability.Result{Content: []capability.ContentItem{
		{Kind: capability.ContentBlob, Blob: "aGVsbG8=", MIMEType: "application/octet-stream"},
	}})
	require.Len(t, blob.Content, 1)
	_, isEmbedded := blob.Content[0].(mcp.EmbeddedResource)
	assert.True(isEmbedded)
}

func TestResourceContents(t *testing.T) {
	assert := assert.New(t)

	textual := resourceContents("rest://list_pets/pets", capability.Result{
		Raw:         []byte(`[{"id":1}]`),
		ContentType: "application/json",
	})
	require.Len(t, textual, 1)
	tc, ok := textual[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal("rest://list_pets/pets", tc.URI)
	assert.Equal(`[{"id":1}]`, tc.Text)

	binary := resourceContents("rest://get_icon/icon", capability.Result{
		Raw:         []byte{0xff, 0xfe, 0x00, 0x80},
		ContentType: "image/png",
	})
	require.Len(t, binary, 1)
	bc, ok := binary[0].(mcp.BlobResourceContents)
	require.True(t, ok)
	assert.Equal("image/png", bc.MIMEType)
	assert.NotEmpty(bc.Blob)

	empty := resourceContents("rest://list_pets/pets", capability.Result{ContentType: ""})
	require.Len(t, empty, 1)
	ec, ok := empty[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal("application/json", ec.MIMEType)
	assert.Empty(ec.Text)
}
