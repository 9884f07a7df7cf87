package rest

import (
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/vitalvas/restdoc/openapi"
)

var docsMethods = []string{http.MethodGet, http.MethodHead, http.MethodOptions}

// registerDocs mounts the JSON, YAML and UI documentation endpoints.
func (a *App) registerDocs() error {
	jsonPath := a.cfg.docsPath()
	if err := a.mountDocs(jsonPath, a.serveDocument("application/json", func(enc *encodedDocs) []byte {
		return enc.json
	})); err != nil {
		return err
	}

	if yamlPath := a.cfg.yamlPath(); yamlPath != "" {
		if err := a.mountDocs(yamlPath, a.serveDocument("application/x-yaml", func(enc *encodedDocs) []byte {
			return enc.yaml
		})); err != nil {
			return err
		}
	}

	if uiPath := a.cfg.DocsUIPath; uiPath != "" {
		page := []byte(swaggerUITemplate(a.spec.Info().Title, jsonPath))
		if err := a.mountDocs(uiPath, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			w.Write(page)
		})); err != nil {
			return err
		}
	}

	return nil
}

func (a *App) mountDocs(path string, h http.Handler) error {
	res := NewResource("")
	res.Handle(http.MethodGet, crossDomain(docsMethods, docsMaxAge, h))
	res.Handle(http.MethodOptions, crossDomain(docsMethods, docsMaxAge, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Allow", strings.Join(docsMethods, ", "))
		w.WriteHeader(http.StatusNoContent)
	})))
	_, err := a.addRoute(path, res, nil, false)
	return err
}

type encodedDocs struct {
	json []byte
	yaml []byte
}

// serveDocument writes the encoded document. Encodings are cached for the
// cached document and recomputed after it is invalidated.
func (a *App) serveDocument(contentType string, pick func(*encodedDocs) []byte) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		enc, err := a.encodedDocument()
		if err != nil {
			a.logger.Error("failed to build OpenAPI document", "error", err)
			http.Error(w, "failed to build OpenAPI document", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		w.Write(pick(enc))
	})
}

func (a *App) encodedDocument() (*encodedDocs, error) {
	doc, err := a.spec.Document()
	if err != nil {
		return nil, err
	}

	a.docsMu.Lock()
	defer a.docsMu.Unlock()

	if a.docsFor != doc {
		jsonData, err := doc.JSON()
		if err != nil {
			return nil, fmt.Errorf("failed to encode OpenAPI document as JSON: %w", err)
		}
		yamlData, err := doc.YAML()
		if err != nil {
			return nil, fmt.Errorf("failed to encode OpenAPI document as YAML: %w", err)
		}
		a.docsFor = doc
		a.docsJSON = jsonData
		a.docsYAML = yamlData
	}

	return &encodedDocs{json: a.docsJSON, yaml: a.docsYAML}, nil
}

func swaggerUITemplate(title, specPath string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>%s</title>
<link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist/swagger-ui.css">
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist/swagger-ui-bundle.js"></script>
<script>
SwaggerUIBundle({url: %q, dom_id: "#swagger-ui"});
</script>
</body>
</html>`, html.EscapeString(title), specPath)
}

// Document returns the assembled OpenAPI document.
func (a *App) Document() (*openapi.Document, error) {
	return a.spec.Document()
}
