package capability_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capbridge/capbridge/internal/capability"
	"github.com/capbridge/capbridge/internal/domain"
)

const baseURL = "http://api.example.com"

func mustExtract(t *testing.T, route domain.Route) capability.Extraction {
	t.Helper()
	ext, err := capability.Extract(route)
	require.NoError(t, err)
	return ext
}

func TestBuild_NameDerivation(t *testing.T) {
	tests := []struct {
		name  string
		route domain.Route
		want  string
	}{
		{
			name:  "operation id is sanitized",
			route: domain.Route{Method: domain.MethodGet, Path: "/pets", OperationID: "List-All Pets"},
			want:  "list_all_pets",
		},
		{
			name: "synthesized from method and literal segments",
			route: domain.Route{
				Method: domain.MethodGet,
				Path:   "/pets/{petId}",
				Parameters: []domain.ParameterDescriptor{
					{Name: "petId", Location: domain.LocationPath, Schema: intSchema()},
				},
			},
			want: "get_pets",
		},
		{
			name:  "nested literal segments all contribute",
			route: domain.Route{Method: domain.MethodPost, Path: "/stores/orders"},
			want:  "post_stores_orders",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, err := capability.Classify(tt.route, nil)
			require.NoError(t, err)
			desc, err := capability.Build(tt.route, mustExtract(t, tt.route), kind, baseURL)
			require.NoError(t, err)
			assert.Equal(t, tt.want, desc.Name)
		})
	}
}

func TestBuild_ToolDescriptor(t *testing.T) {
	assert := assert.New(t)

	route := domain.Route{
		Method:      domain.MethodPost,
		Path:        "/pets",
		OperationID: "createPet",
		Summary:     "Create a pet",
		Tags:        []string{"pets"},
		Body: &domain.Schema{
			Type:       "object",
			Properties: map[string]domain.Schema{"name": stringSchema(), "tag": stringSchema()},
			Required:   []string{"name"},
		},
		BodyRequired: true,
	}

	desc, err := capability.Build(route, mustExtract(t, route), domain.KindTool, baseURL)
	assert.NoError(err)

	assert.Equal("createpet", desc.Name)
	assert.Equal(domain.KindTool, desc.Kind)
	assert.Equal("Create a pet", desc.Description)
	assert.Equal([]string{"pets"}, desc.Tags)
	assert.Empty(desc.URITemplate)
	// Tools expose the full argument set to callers.
	assert.Equal(desc.ValidationSchema, desc.InputSchema)

	assert.Equal(baseURL, desc.Plan.BaseURL)
	assert.Equal("application/json", desc.Plan.ContentType)
	assert.Equal([]domain.PlanEntry{
		{Param: "name", Target: domain.TargetBody, BodyKey: "name"},
		{Param: "tag", Target: domain.TargetBody, BodyKey: "tag"},
	}, desc.Plan.Entries)
}

func TestBuild_ResourceTemplateDescriptor(t *testing.T) {
	assert := assert.New(t)

	route := domain.Route{
		Method: domain.MethodGet,
		Path:   "/pets/{petId}",
		Parameters: []domain.ParameterDescriptor{
			{Name: "petId", Location: domain.LocationPath, Schema: intSchema()},
			{Name: "verbose", Location: domain.LocationQuery, Schema: domain.Schema{Type: "boolean"}},
		},
	}

	desc, err := capability.Build(route, mustExtract(t, route), domain.KindResourceTemplate, baseURL+"/")
	assert.NoError(err)

	assert.Equal("rest://get_pets/pets/{petId}", desc.URITemplate)
	// Trailing base URL slash is trimmed so path joining stays predictable.
	assert.Equal(baseURL, desc.Plan.BaseURL)

	// URI-supplied parameters are hidden from the caller-facing schema but
	// kept in the validation schema.
	assert.NotContains(desc.InputSchema.Properties, "petId")
	assert.Contains(desc.InputSchema.Properties, "verbose")
	assert.Contains(desc.ValidationSchema.Properties, "petId")
	assert.NotContains(desc.InputSchema.Required, "petId")

	assert.Equal(domain.PlanEntry{Param: "petId", Target: domain.TargetPath, FromURI: true}, desc.Plan.Entries[0])
	assert.Equal(domain.PlanEntry{Param: "verbose", Target: domain.TargetQuery}, desc.Plan.Entries[1])
}

func TestBuild_ToolPathEntriesAreNotURIBound(t *testing.T) {
	route := domain.Route{
		Method: domain.MethodDelete,
		Path:   "/pets/{petId}",
		Parameters: []domain.ParameterDescriptor{
			{Name: "petId", Location: domain.LocationPath, Schema: intSchema()},
		},
	}

	desc, err := capability.Build(route, mustExtract(t, route), domain.KindTool, baseURL)
	require.NoError(t, err)
	assert.False(t, desc.Plan.Entries[0].FromURI)
	assert.Contains(t, desc.InputSchema.Properties, "petId")
}

func TestBuild_RejectsNonJSONObjectBody(t *testing.T) {
	route := domain.Route{
		Method:          domain.MethodPost,
		Path:            "/upload",
		Body:            &domain.Schema{Type: "object", Properties: map[string]domain.Schema{"data": stringSchema()}},
		BodyContentType: "application/x-www-form-urlencoded",
	}

	_, err := capability.Build(route, mustExtract(t, route), domain.KindTool, baseURL)
	var malformed *domain.MalformedRouteError
	assert.ErrorAs(t, err, &malformed)
}

func TestBuild_RejectsUnknownKind(t *testing.T) {
	route := domain.Route{Method: domain.MethodGet, Path: "/pets"}
	_, err := capability.Build(route, mustExtract(t, route), domain.CapabilityKind("gadget"), baseURL)
	var malformed *domain.MalformedRouteError
	assert.ErrorAs(t, err, &malformed)
}

func TestBuild_DescriptionFallbackChain(t *testing.T) {
	assert := assert.New(t)

	withDesc := domain.Route{Method: domain.MethodGet, Path: "/pets", Description: "Long form.", Summary: "Short."}
	desc, err := capability.Build(withDesc, mustExtract(t, withDesc), domain.KindResource, baseURL)
	assert.NoError(err)
	assert.Equal("Long form.", desc.Description)

	withSummary := domain.Route{Method: domain.MethodGet, Path: "/pets", Summary: "Short."}
	desc, err = capability.Build(withSummary, mustExtract(t, withSummary), domain.KindResource, baseURL)
	assert.NoError(err)
	assert.Equal("Short.", desc.Description)

	bare := domain.Route{Method: domain.MethodGet, Path: "/pets"}
	desc, err = capability.Build(bare, mustExtract(t, bare), domain.KindResource, baseURL)
	assert.NoError(err)
	assert.Equal("Executes GET /pets", desc.Description)
}
