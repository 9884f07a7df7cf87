package openapi

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolveGet(t *testing.T, doc *ResourceDoc, path string) *MethodDoc {
	t.Helper()
	resolved, err := doc.Resolve(nil, path, []string{"GET"}, true)
	require.NoError(t, err)
	md := resolved.Method("GET")
	require.NotNil(t, md)
	return md
}

func TestCamelToSnake(t *testing.T) {
	for in, want := range map[string]string{
		"":              "",
		"Pet":           "pet",
		"PetCollection": "pet_collection",
		"HTTPServer":    "http_server",
		"getUserByID":   "get_user_by_id",
	} {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, CamelToSnake(in))
		})
	}
}

func TestResourceDocPrecedence(t *testing.T) {
	t.Run("later declaration wins", func(t *testing.T) {
		doc := NewResourceDoc("Pets").
			Response(200, "A", nil).
			Response(200, "B", nil)
		md := resolveGet(t, doc, "/pets")
		assert.Equal(t, "B", md.Responses["200"].Description)
	})

	t.Run("defaults then parent then resource then method", func(t *testing.T) {
		defaults := NewResourceDoc("defaults").
			Response(200, "defaults", nil).
			Response(500, "Server error", nil)
		parent := NewResourceDoc("Base").
			Response(200, "parent", nil).
			Response(404, "parent missing", nil)
		child := parent.Extend("Pet").
			Response(404, "child missing", nil)
		child.Method("get").Response(200, "method", nil)

		resolved, err := child.Resolve(defaults.Fragment(), "/pets/<int:id>", []string{"GET", "DELETE"}, true)
		require.NoError(t, err)

		get := resolved.Method("get")
		assert.Equal(t, "method", get.Responses["200"].Description)
		assert.Equal(t, "child missing", get.Responses["404"].Description)
		assert.Equal(t, "Server error", get.Responses["500"].Description)

		del := resolved.Method("delete")
		assert.Equal(t, "parent", del.Responses["200"].Description)
	})

	t.Run("parent unchanged by child", func(t *testing.T) {
		parent := NewResourceDoc("Base").Tags("base")
		parent.Extend("Child").Tags("child")

		md := resolveGet(t, parent, "/")
		assert.Equal(t, []string{"base"}, md.Tags)
	})
}

func TestResourceDocParams(t *testing.T) {
	t.Run("ordering", func(t *testing.T) {
		doc := NewResourceDoc("Photo").
			Param("sort", "Sort order").
			Param("limit", "Max items").
			Param("X-Request-Id", "Trace id", In("header"))

		md := resolveGet(t, doc, "/users/<int:user_id>/photos/<name>")

		var names []string
		for _, p := range md.Params {
			names = append(names, p.Name)
		}
		assert.Equal(t, []string{"user_id", "name", "X-Request-Id", "limit", "sort"}, names)
	})

	t.Run("path params win", func(t *testing.T) {
		doc := NewResourceDoc("Item").
			Param("id", "Item id", In("query"), ParamSchema(map[string]any{"type": "string", "minimum": 1}))

		md := resolveGet(t, doc, "/items/<int:id>")
		require.Len(t, md.Params, 1)

		p := md.Params[0]
		assert.Equal(t, "Item id", p.Description)
		assert.Equal(t, "path", p.In)
		assert.True(t, p.Required)
		assert.Equal(t, map[string]any{"type": "integer", "minimum": 1}, p.Schema)
	})

	t.Run("query defaults", func(t *testing.T) {
		doc := NewResourceDoc("Items").Param("q", "")
		md := resolveGet(t, doc, "/items")
		require.Len(t, md.Params, 1)
		assert.Equal(t, "query", md.Params[0].In)
		assert.False(t, md.Params[0].Required)
		assert.Nil(t, md.Params[0].Schema)
	})

	t.Run("method param overrides resource param", func(t *testing.T) {
		doc := NewResourceDoc("Items").Param("q", "resource")
		doc.Method("get").Param("q", "method", Required())

		md := resolveGet(t, doc, "/items")
		require.Len(t, md.Params, 1)
		assert.Equal(t, "method", md.Params[0].Description)
		assert.True(t, md.Params[0].Required)
	})

	t.Run("options", func(t *testing.T) {
		doc := NewResourceDoc("Items").
			Param("limit", "", ParamSchema(Integer), ParamProp("example", 10)).
			Param("page", "", ParamRef("#/components/parameters/Page"))

		md := resolveGet(t, doc, "/items")
		require.Len(t, md.Params, 2)

		assert.Equal(t, Integer, md.Params[0].Schema)
		assert.Equal(t, map[string]any{"example": 10}, md.Params[0].Props)
		assert.Equal(t, "#/components/parameters/Page", md.Params[1].Ref)
	})

	t.Run("unsupported converter", func(t *testing.T) {
		_, err := NewResourceDoc("X").Resolve(nil, "/x/<regex:v>", []string{"GET"}, true)
		require.Error(t, err)

		var convErr *ConverterError
		require.True(t, errors.As(err, &convErr))
		assert.Equal(t, "/x/<regex:v>", convErr.Path)
		assert.True(t, errors.Is(err, ErrUnsupportedConverter))
	})
}

func TestResourceDocResponses(t *testing.T) {
	t.Run("default description", func(t *testing.T) {
		doc := NewResourceDoc("Items").Response(204, "", nil)
		md := resolveGet(t, doc, "/items")
		assert.Equal(t, DefaultResponseDescription, md.Responses["204"].Description)
	})

	t.Run("content and headers", func(t *testing.T) {
		doc := NewResourceDoc("Items")
		doc.Method("get").Response(200, "Listing", "string",
			ContentType("text/plain"),
			ResponseHeader("X-Total", "Total count"),
		)

		md := resolveGet(t, doc, "/items")
		r := md.Responses["200"]
		assert.Equal(t, map[string]any{"text/plain": "string"}, r.Content)
		assert.Equal(t, map[string]any{"X-Total": "Total count"}, r.Headers)
	})

	t.Run("default response", func(t *testing.T) {
		doc := NewResourceDoc("Items").DefaultResponse("Error", "Error")
		md := resolveGet(t, doc, "/items")
		assert.Equal(t, map[string]any{"application/json": "Error"}, md.Responses["default"].Content)
	})

	t.Run("fragment shorthand", func(t *testing.T) {
		doc := NewResourceDoc("Items").Doc(Fragment{
			"params":    map[string]any{"limit": "Max items"},
			"responses": map[string]any{"404": "Missing"},
			"get": map[string]any{
				"responses": map[string]any{
					"201": map[string]any{"description": "Created", "validator": "Pet"},
				},
			},
		})

		md := resolveGet(t, doc, "/items")
		require.Len(t, md.Params, 1)
		assert.Equal(t, "Max items", md.Params[0].Description)
		assert.Equal(t, "Missing", md.Responses["404"].Description)
		assert.Equal(t, "Created", md.Responses["201"].Description)
		assert.Equal(t, map[string]any{"application/json": "Pet"}, md.Responses["201"].Content)
	})

	t.Run("validator reference kept opaque", func(t *testing.T) {
		v := NewRegistry(nil).Register("Pet", map[string]any{"type": "object"})
		doc := NewResourceDoc("Items").Response(200, "OK", v)

		md := resolveGet(t, doc, "/items")
		assert.Same(t, v, md.Responses["200"].Content["application/json"])
	})
}

func TestResourceDocMethods(t *testing.T) {
	t.Run("hide sentinel", func(t *testing.T) {
		doc := NewResourceDoc("Items")
		doc.Method("post").Hide()

		resolved, err := doc.Resolve(nil, "/items", []string{"GET", "POST"}, true)
		require.NoError(t, err)
		assert.False(t, resolved.Method("get").Hidden)
		assert.True(t, resolved.Method("post").Hidden)
	})

	t.Run("hide through fragment", func(t *testing.T) {
		doc := NewResourceDoc("Items").Doc(Fragment{"delete": false})

		resolved, err := doc.Resolve(nil, "/items", []string{"DELETE"}, true)
		require.NoError(t, err)
		assert.True(t, resolved.Method("delete").Hidden)
	})

	t.Run("resource hide is not inherited", func(t *testing.T) {
		parent := NewResourceDoc("Base").Hide()
		child := parent.Extend("Child")

		assert.True(t, parent.Hidden())
		assert.False(t, child.Hidden())

		resolved, err := child.Resolve(nil, "/", []string{"GET"}, true)
		require.NoError(t, err)
		assert.False(t, resolved.Hidden)
	})

	t.Run("operation id", func(t *testing.T) {
		doc := NewResourceDoc("PetCollection")
		doc.Method("post").OperationID("createPet")

		resolved, err := doc.Resolve(nil, "/pets", []string{"GET", "POST"}, true)
		require.NoError(t, err)
		assert.Equal(t, "get_pet_collection", resolved.Method("get").OperationID)
		assert.Equal(t, "createPet", resolved.Method("post").OperationID)
	})

	t.Run("tags", func(t *testing.T) {
		doc := NewResourceDoc("Items").Tags("b", "a")
		doc.Method("get").Tags("c", "a")

		md := resolveGet(t, doc, "/items")
		assert.Equal(t, []string{"a", "b", "c"}, md.Tags)
	})

	t.Run("docstring", func(t *testing.T) {
		doc := NewResourceDoc("Items").Description("Item store.")
		doc.Method("get").Docstring("List items. Returns every item.\n\n:raises NotFound: never")

		md := resolveGet(t, doc, "/items")
		assert.Equal(t, "List items", md.Summary)
		assert.Equal(t, "Item store.\nReturns every item.", md.Description)
		assert.Equal(t, map[string]string{"NotFound": "never"}, md.Docstring.Raises)
	})

	t.Run("summary overrides docstring", func(t *testing.T) {
		doc := NewResourceDoc("Items")
		doc.Method("get").Docstring("List items.").Summary("Listing")

		md := resolveGet(t, doc, "/items")
		assert.Equal(t, "Listing", md.Summary)
	})

	t.Run("deprecated", func(t *testing.T) {
		doc := NewResourceDoc("Items").Deprecated()
		resolved, err := doc.Resolve(nil, "/items", []string{"GET", "PUT"}, true)
		require.NoError(t, err)
		assert.True(t, resolved.Method("get").Deprecated)
		assert.True(t, resolved.Method("put").Deprecated)
	})

	t.Run("headers", func(t *testing.T) {
		doc := NewResourceDoc("Items").Header("X-Rate", "Rate limit")
		doc.Method("get").Header("X-Page", map[string]any{"type": "integer"})

		md := resolveGet(t, doc, "/items")
		assert.Equal(t, map[string]any{
			"X-Rate": "Rate limit",
			"X-Page": map[string]any{"type": "integer"},
		}, md.Headers)
	})
}

func TestResourceDocExpect(t *testing.T) {
	t.Run("method first then resource", func(t *testing.T) {
		doc := NewResourceDoc("Items").Expect(ExpectSpec{Validator: "A"})
		doc.Method("post").Expect(
			ExpectSpec{Validator: "B"},
			ExpectSpec{Validator: "C", ContentType: "text/plain"},
		)

		resolved, err := doc.Resolve(nil, "/items", []string{"POST", "PUT"}, true)
		require.NoError(t, err)

		assert.Equal(t, []ExpectSpec{
			{Validator: "B", ContentType: "application/json"},
			{Validator: "C", ContentType: "text/plain"},
		}, resolved.Method("post").Expect)
		assert.Equal(t, []ExpectSpec{
			{Validator: "A", ContentType: "application/json"},
		}, resolved.Method("put").Expect)
	})

	t.Run("fragment shorthand", func(t *testing.T) {
		doc := NewResourceDoc("Items").Doc(Fragment{"expect": "Pet"})
		md := resolveGet(t, doc, "/items")
		assert.Equal(t, []ExpectSpec{{Validator: "Pet", ContentType: "application/json"}}, md.Expect)
	})

	t.Run("validate flag", func(t *testing.T) {
		doc := NewResourceDoc("Items").Validate(false)
		doc.Method("post").Validate(true)

		resolved, err := doc.Resolve(nil, "/items", []string{"PUT", "POST"}, true)
		require.NoError(t, err)
		assert.False(t, resolved.Method("put").Validate)
		assert.True(t, resolved.Method("post").Validate)
	})

	t.Run("validate default", func(t *testing.T) {
		doc := NewResourceDoc("Items")

		on, err := doc.Resolve(nil, "/items", []string{"POST"}, true)
		require.NoError(t, err)
		assert.True(t, on.Method("post").Validate)

		off, err := doc.Resolve(nil, "/items", []string{"POST"}, false)
		require.NoError(t, err)
		assert.False(t, off.Method("post").Validate)
	})
}
