package rest

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestApp(t *testing.T, cfg Config, opts ...Option) *App {
	t.Helper()
	if cfg.ServerName == "" {
		cfg.ServerName = "localhost"
	}
	app, err := New(cfg, append([]Option{WithLogger(testLogger())}, opts...)...)
	require.NoError(t, err)
	return app
}

func serve(app http.Handler, method, target string, body string, header ...string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	app.ServeHTTP(w, req)
	return w
}

func petResource() *Resource {
	return NewResource("Pet").
		Get(func(w http.ResponseWriter, r *http.Request) {
			ResponseJSON(w, http.StatusOK, map[string]string{"id": r.PathValue("id")})
		}).
		Delete(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
}

func TestAppRouting(t *testing.T) {
	app := newTestApp(t, Config{})
	require.NoError(t, app.Route("/pets/<int(min=1):id>", petResource()))

	t.Run("path value", func(t *testing.T) {
		w := serve(app, http.MethodGet, "/pets/42", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "42", body["id"])
	})

	t.Run("converter rejects value", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, serve(app, http.MethodGet, "/pets/abc", "").Code)
		assert.Equal(t, http.StatusNotFound, serve(app, http.MethodGet, "/pets/0", "").Code)
	})

	t.Run("not found", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, serve(app, http.MethodGet, "/owners", "").Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		w := serve(app, http.MethodPost, "/pets/1", "")
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
		assert.Equal(t, "DELETE, GET, HEAD, OPTIONS", w.Header().Get("Allow"))
	})

	t.Run("head falls back to get", func(t *testing.T) {
		w := serve(app, http.MethodHead, "/pets/1", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("automatic options", func(t *testing.T) {
		w := serve(app, http.MethodOptions, "/pets/1", "")
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "DELETE, GET, HEAD, OPTIONS", w.Header().Get("Allow"))
	})

	t.Run("delete", func(t *testing.T) {
		assert.Equal(t, http.StatusNoContent, serve(app, http.MethodDelete, "/pets/1", "").Code)
	})
}

func TestAppRouteAllowedMethods(t *testing.T) {
	app := newTestApp(t, Config{})
	require.NoError(t, app.Route("/pets/<int:id>", petResource(), "get"))

	assert.Equal(t, http.StatusOK, serve(app, http.MethodGet, "/pets/1", "").Code)

	w := serve(app, http.MethodDelete, "/pets/1", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "GET, HEAD, OPTIONS", w.Header().Get("Allow"))

	doc, err := app.Document()
	require.NoError(t, err)
	item := doc.Paths["/pets/{id}"]
	require.NotNil(t, item)
	assert.NotNil(t, item.Get)
	assert.Nil(t, item.Delete)
}

func TestAppFirstMatchWins(t *testing.T) {
	app := newTestApp(t, Config{})
	require.NoError(t, app.HandleFunc("/files/latest", func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "latest")
	}))
	require.NoError(t, app.HandleFunc("/files/<path:name>", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, r.PathValue("name"))
	}))

	assert.Equal(t, "latest", serve(app, http.MethodGet, "/files/latest", "").Body.String())
	assert.Equal(t, "a/b.txt", serve(app, http.MethodGet, "/files/a/b.txt", "").Body.String())
}

func TestAppPanicRecovery(t *testing.T) {
	app := newTestApp(t, Config{})
	require.NoError(t, app.Route("/boom", NewResource("Boom").Get(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	w := serve(app, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAppHandleFunc(t *testing.T) {
	app := newTestApp(t, Config{})
	require.NoError(t, app.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "ok")
	}))

	w := serve(app, http.MethodGet, "/healthz", "")
	assert.Equal(t, "ok", w.Body.String())

	doc, err := app.Document()
	require.NoError(t, err)
	assert.NotContains(t, doc.Paths, "/healthz")
}

func TestAppUnsupportedConverter(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, r.PathValue("id"))
	}

	t.Run("documented route fails closed", func(t *testing.T) {
		app := newTestApp(t, Config{})
		require.NoError(t, app.Route("/things/<weird:id>", NewResource("Thing").Get(handler)))

		w := serve(app, http.MethodGet, "/things/abc", "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("undocumented route is served", func(t *testing.T) {
		app := newTestApp(t, Config{})
		require.NoError(t, app.HandleFunc("/things/<weird:id>", handler))

		w := serve(app, http.MethodGet, "/things/abc", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "abc", w.Body.String())
	})
}

func TestBlueprint(t *testing.T) {
	app := newTestApp(t, Config{})
	v1 := app.Group("/api/").Group("/v1")
	require.NoError(t, v1.Route("/pets/<int:id>", petResource()))
	require.NoError(t, v1.HandleFunc("/ping", func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "pong")
	}))

	assert.Equal(t, http.StatusOK, serve(app, http.MethodGet, "/api/v1/pets/3", "").Code)
	assert.Equal(t, "pong", serve(app, http.MethodGet, "/api/v1/ping", "").Body.String())

	doc, err := app.Document()
	require.NoError(t, err)
	assert.Contains(t, doc.Paths, "/api/v1/pets/{id}")
}

func TestResourceExtend(t *testing.T) {
	base := petResource()
	base.Doc().Tags("pets").Response(404, "Not found", nil)

	child := base.Extend("Cat")
	child.Post(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	assert.Equal(t, []string{"GET", "DELETE"}, base.Methods())
	assert.Equal(t, []string{"GET", "POST", "DELETE"}, child.Methods())

	app := newTestApp(t, Config{})
	require.NoError(t, app.Route("/cats/<int:id>", child))

	doc, err := app.Document()
	require.NoError(t, err)
	post := doc.Paths["/cats/{id}"].Post
	require.NotNil(t, post)
	assert.Equal(t, "post_cat", post.OperationID)
	assert.Equal(t, []string{"pets"}, post.Tags)
	assert.Contains(t, post.Responses, "404")
}

func TestNew(t *testing.T) {
	t.Run("server entry", func(t *testing.T) {
		app := newTestApp(t, Config{ServerName: "api.example.com", PreferSecureURLs: true})
		doc, err := app.Document()
		require.NoError(t, err)
		require.Len(t, doc.Servers, 1)
		assert.Equal(t, "https://api.example.com", doc.Servers[0].URL)
	})

	t.Run("missing base model", func(t *testing.T) {
		_, err := New(Config{BaseModelSchema: "/nonexistent/model.yaml"}, WithLogger(testLogger()))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load base model")
	})

	t.Run("base model map", func(t *testing.T) {
		app := newTestApp(t, Config{}, WithBaseModelMap(map[string]any{
			"components": map[string]any{
				"schemas": map[string]any{"Pet": map[string]any{"type": "object"}},
			},
		}))
		doc, err := app.Document()
		require.NoError(t, err)
		require.NotNil(t, doc.Components)
		assert.Contains(t, doc.Components.Schemas, "Pet")
	})
}
