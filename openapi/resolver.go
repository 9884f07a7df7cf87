package openapi

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-openapi/jsonpointer"
	"gopkg.in/yaml.v3"
)

// Resolver holds a base model document and resolves local $ref pointers
// into it. A base model is usually a partial OpenAPI document whose
// components are referenced by validators.
type Resolver struct {
	doc map[string]any
}

// NewResolver returns a resolver over a copy of doc.
func NewResolver(doc map[string]any) *Resolver {
	if doc == nil {
		doc = map[string]any{}
	}
	return &Resolver{doc: copyMap(doc)}
}

// LoadResolver reads a JSON or YAML base model from path.
func LoadResolver(path string) (*Resolver, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("openapi: read base model: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("openapi: decode base model %s: %w", path, err)
	}

	m, ok := normalizeYAML(doc).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("openapi: base model %s is not an object", path)
	}

	return &Resolver{doc: m}, nil
}

// NewResolverFromOpenAPI returns a resolver over a document loaded with
// kin-openapi.
func NewResolverFromOpenAPI(t *openapi3.T) (*Resolver, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("openapi: encode base model: %w", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("openapi: decode base model: %w", err)
	}

	return &Resolver{doc: doc}, nil
}

// ResolverFrom normalizes every accepted base model form to a *Resolver:
// a file path, an in-memory document, a kin-openapi document or an existing
// resolver. A nil model yields a nil resolver.
func ResolverFrom(model any) (*Resolver, error) {
	switch m := model.(type) {
	case nil:
		return nil, nil
	case *Resolver:
		return m, nil
	case string:
		return LoadResolver(m)
	case map[string]any:
		return NewResolver(m), nil
	case *openapi3.T:
		return NewResolverFromOpenAPI(m)
	default:
		return nil, fmt.Errorf("openapi: unsupported base model type %T", model)
	}
}

// Document returns a copy of the base model.
func (r *Resolver) Document() map[string]any {
	if r == nil {
		return nil
	}
	return copyMap(r.doc)
}

// Components returns a copy of the base model components keyed by category.
func (r *Resolver) Components() map[string]map[string]any {
	if r == nil {
		return nil
	}
	raw, _ := r.doc["components"].(map[string]any)

	out := make(map[string]map[string]any, len(raw))
	for category, entries := range raw {
		if m, ok := entries.(map[string]any); ok {
			out[category] = copyMap(m)
		}
	}
	return out
}

// Resolve returns the value a local reference such as
// "#/components/schemas/User" points at.
func (r *Resolver) Resolve(ref string) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("openapi: resolve %q: no base model", ref)
	}
	if !strings.HasPrefix(ref, "#") {
		return nil, fmt.Errorf("openapi: resolve %q: only local references are supported", ref)
	}

	ptr, err := jsonpointer.New(strings.TrimPrefix(ref, "#"))
	if err != nil {
		return nil, fmt.Errorf("openapi: resolve %q: %w", ref, err)
	}

	v, _, err := ptr.Get(r.doc)
	if err != nil {
		return nil, fmt.Errorf("openapi: resolve %q: %w", ref, err)
	}

	return copyValue(v), nil
}

// normalizeYAML converts map[any]any values produced by YAML decoding into
// map[string]any so the result can be encoded as JSON.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, vv := range t {
			t[k] = normalizeYAML(vv)
		}
		return t
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[fmt.Sprint(k)] = normalizeYAML(vv)
		}
		return m
	case []any:
		for i, vv := range t {
			t[i] = normalizeYAML(vv)
		}
		return t
	default:
		return v
	}
}
