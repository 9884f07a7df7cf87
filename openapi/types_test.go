package openapi

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const petstoreModelYAML = `
components:
  schemas:
    User:
      type: object
      required: [name]
      properties:
        name:
          type: string
        age:
          type: integer
          minimum: 0
`

func petstoreSpec(t *testing.T) *Spec {
	t.Helper()

	r, err := LoadResolver(writeFile(t, "model.yaml", petstoreModelYAML))
	require.NoError(t, err)

	s := newTestSpec(t, WithBaseModel(r))
	user, err := s.Validators().RegisterRef("User", "schemas")
	require.NoError(t, err)

	users := NewResourceDoc("UserCollection").
		Tags("users").
		Param("limit", "Max items", ParamSchema(Integer))
	users.Method("get").
		Docstring("List users.").
		Response(200, "Users", []any{user}, ResponseHeader("X-Total", map[string]any{"type": Integer}))
	users.Method("post").
		Docstring("Create a user.").
		Expect(ExpectSpec{Validator: user}).
		Response(201, "Created", user)
	s.Register("/users", users, []string{"GET", "POST"})

	item := NewResourceDoc("UserItem").
		Tags("users").
		Response(404, "Not found", nil)
	item.Method("delete").Response(204, "Deleted", nil)
	s.Register("/users/<int(min=1):id>", item, []string{"GET", "DELETE"})

	return s
}

func TestDocumentJSON(t *testing.T) {
	doc := mustDocument(t, petstoreSpec(t))

	data, err := doc.JSON()
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "3.0.3", raw["openapi"])

	paths := raw["paths"].(map[string]any)
	assert.Contains(t, paths, "/users")
	assert.Contains(t, paths, "/users/{id}")

	get := paths["/users"].(map[string]any)["get"].(map[string]any)
	assert.Equal(t, "get_user_collection", get["operationId"])
	assert.Equal(t, "List users", get["summary"])

	t.Run("empty paths still emitted", func(t *testing.T) {
		data, err := mustDocument(t, newTestSpec(t)).JSON()
		require.NoError(t, err)
		assert.Contains(t, string(data), `"paths": {}`)
		assert.NotContains(t, string(data), "components")
	})
}

func TestDocumentYAML(t *testing.T) {
	doc := mustDocument(t, petstoreSpec(t))

	data, err := doc.YAML()
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, yaml.Unmarshal(data, &raw))
	assert.Equal(t, "3.0.3", raw["openapi"])

	ref := raw["paths"].(map[string]any)["/users"].(map[string]any)["post"].(map[string]any)["requestBody"].(map[string]any)["content"].(map[string]any)["application/json"].(map[string]any)["schema"]
	assert.Equal(t, map[string]any{"$ref": "#/components/schemas/User"}, ref)
}

func TestDocumentValidOpenAPI(t *testing.T) {
	doc := mustDocument(t, petstoreSpec(t))

	data, err := doc.JSON()
	require.NoError(t, err)

	loaded, err := openapi3.NewLoader().LoadFromData(data)
	require.NoError(t, err)
	require.NoError(t, loaded.Validate(context.Background()))

	op := loaded.Paths.Find("/users/{id}").Delete
	require.NotNil(t, op)
	assert.Equal(t, "delete_user_item", op.OperationID)
	assert.Equal(t, "Deleted", *op.Responses.Get(204).Value.Description)

	param := loaded.Paths.Find("/users/{id}").Get.Parameters.GetByInAndName("path", "id")
	require.NotNil(t, param)
	assert.True(t, param.Required)
	require.NotNil(t, param.Schema.Value.Min)
	assert.Equal(t, float64(1), *param.Schema.Value.Min)
}

func TestPathItemOperation(t *testing.T) {
	item := &PathItem{}
	assert.True(t, item.isEmpty())

	for _, verb := range Verbs {
		op := &Operation{OperationID: verb}
		item.setOperation(verb, op)
		assert.Same(t, op, item.Operation(verb))
	}
	assert.False(t, item.isEmpty())
	assert.Nil(t, item.Operation("CONNECT"))
}

func TestComponentsCategory(t *testing.T) {
	c := &Components{}
	assert.True(t, c.isEmpty())

	c.category("links")["self"] = map[string]any{}
	assert.False(t, c.isEmpty())
	assert.Contains(t, c.Links, "self")
	assert.Nil(t, c.category("models"))
}
