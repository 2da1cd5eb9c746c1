package openapi_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capbridge/capbridge/internal/adapter/outbound/openapi"
	"github.com/capbridge/capbridge/internal/domain"
)

const petstoreDoc = `{
  "openapi": "3.0.3",
  "info": {"title": "Pet Store", "version": "1.0.0"},
  "servers": [{"url": "http://api.example.com/v1/"}],
  "paths": {
    "/pets": {
      "get": {
        "operationId": "listPets",
        "summary": "List all pets",
        "tags": ["pets"],
        "parameters": [
          {"name": "limit", "in": "query", "schema": {"type": "integer", "default": 20}}
        ],
        "responses": {
          "200": {
            "description": "ok",
            "content": {
              "application/json": {
                "schema": {"type": "array", "items": {"type": "object"}}
              }
            }
          }
        }
      },
      "post": {
        "operationId": "createPet",
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "properties": {"name": {"type": "string"}},
                "required": ["name"]
              }
            }
          }
        },
        "responses": {"201": {"description": "created"}}
      }
    },
    "/pets/{petId}": {
      "parameters": [
        {"name": "petId", "in": "path", "required": true, "schema": {"type": "integer"}}
      ],
      "get": {
        "operationId": "getPet",
        "responses": {"200": {"description": "ok"}}
      }
    }
  }
}`

func loadDoc(t *testing.T, data string) *openapi3.T {
	t.Helper()
	loader := &openapi3.Loader{Context: context.Background()}
	doc, err := loader.LoadFromData([]byte(data))
	require.NoError(t, err)
	return doc
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func routeByOperation(routes []domain.Route, opID string) (domain.Route, bool) {
	for _, r := range routes {
		if r.OperationID == opID {
			return r, true
		}
	}
	return domain.Route{}, false
}

func TestNormalize(t *testing.T) {
	assert := assert.New(t)
	doc := loadDoc(t, petstoreDoc)

	routes, baseURL, err := openapi.Normalize(doc, "http://api.example.com/openapi.json", quietLogger())
	require.NoError(t, err)

	assert.Equal("http://api.example.com/v1", baseURL)
	assert.Len(routes, 3)

	list, ok := routeByOperation(routes, "listPets")
	require.True(t, ok)
	assert.Equal(domain.MethodGet, list.Method)
	assert.Equal("/pets", list.Path)
	assert.Equal("List all pets", list.Summary)
	assert.Equal([]string{"pets"}, list.Tags)
	require.Len(t, list.Parameters, 1)
	assert.Equal("limit", list.Parameters[0].Name)
	assert.Equal(domain.LocationQuery, list.Parameters[0].Location)
	assert.Equal("integer", list.Parameters[0].Schema.Type)
	assert.NotNil(list.Parameters[0].Default)
	require.NotNil(t, list.Response)
	assert.Equal("array", list.Response.Type)
	assert.Equal("application/json", list.ResponseContentType)

	create, ok := routeByOperation(routes, "createPet")
	require.True(t, ok)
	require.NotNil(t, create.Body)
	assert.Equal("object", create.Body.Type)
	assert.True(create.BodyRequired)
	assert.Equal("application/json", create.BodyContentType)
	assert.Contains(create.Body.Properties, "name")
	assert.Equal([]string{"name"}, create.Body.Required)

	// Path-level parameters propagate to the operations beneath them.
	get, ok := routeByOperation(routes, "getPet")
	require.True(t, ok)
	require.Len(t, get.Parameters, 1)
	assert.Equal("petId", get.Parameters[0].Name)
	assert.Equal(domain.LocationPath, get.Parameters[0].Location)
	assert.True(get.Parameters[0].Required)
	assert.Empty(get.ResponseContentType)
}

func TestNormalize_NonJSONResponseContentType(t *testing.T) {
	doc := loadDoc(t, `{
  "openapi": "3.0.3",
  "info": {"title": "t", "version": "1"},
  "servers": [{"url": "http://x.example.com"}],
  "paths": {
    "/report": {
      "get": {
        "operationId": "getReport",
        "responses": {
          "200": {
            "description": "ok",
            "content": {"text/csv": {"schema": {"type": "string"}}}
          }
        }
      }
    }
  }
}`)

	routes, _, err := openapi.Normalize(doc, "http://x.example.com/openapi.json", quietLogger())
	require.NoError(t, err)
	require.Len(t, routes, 1)
	// Only JSON responses carry a decoded schema; the media type is still
	// recorded for resource registration.
	assert.Nil(t, routes[0].Response)
	assert.Equal(t, "text/csv", routes[0].ResponseContentType)
}

func TestNormalize_RelativeServerURL(t *testing.T) {
	doc := loadDoc(t, `{
  "openapi": "3.0.3",
  "info": {"title": "t", "version": "1"},
  "servers": [{"url": "/api/v2"}],
  "paths": {}
}`)

	_, baseURL, err := openapi.Normalize(doc, "https://svc.example.com/openapi.json", quietLogger())
	assert.NoError(t, err)
	assert.Equal(t, "https://svc.example.com/api/v2", baseURL)
}

func TestNormalize_NoUsableServer(t *testing.T) {
	doc := loadDoc(t, `{
  "openapi": "3.0.3",
  "info": {"title": "t", "version": "1"},
  "paths": {}
}`)

	_, _, err := openapi.Normalize(doc, "http://svc.example.com/openapi.json", quietLogger())
	assert.Error(t, err)
}

func TestConvertSchemaRef_Recursion(t *testing.T) {
	assert := assert.New(t)
	doc := loadDoc(t, `{
  "openapi": "3.0.3",
  "info": {"title": "t", "version": "1"},
  "servers": [{"url": "http://x.example.com"}],
  "paths": {
    "/things": {
      "post": {
        "operationId": "makeThing",
        "requestBody": {
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "properties": {
                  "labels": {"type": "array", "items": {"type": "string"}},
                  "meta": {"type": "object", "properties": {"owner": {"type": "string"}}}
                }
              }
            }
          }
        },
        "responses": {"200": {"description": "ok"}}
      }
    }
  }
}`)

	routes, _, err := openapi.Normalize(doc, "http://x.example.com/openapi.json", quietLogger())
	require.NoError(t, err)
	require.Len(t, routes, 1)
	body := routes[0].Body
	require.NotNil(t, body)

	labels := body.Properties["labels"]
	assert.Equal("array", labels.Type)
	require.NotNil(t, labels.Items)
	assert.Equal("string", labels.Items.Type)

	meta := body.Properties["meta"]
	assert.Equal("object", meta.Type)
	assert.Contains(meta.Properties, "owner")
}
