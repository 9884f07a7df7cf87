package openapi

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// componentCategories lists the categories allowed under components.
var componentCategories = map[string]bool{
	"schemas":         true,
	"responses":       true,
	"parameters":      true,
	"examples":        true,
	"requestBodies":   true,
	"headers":         true,
	"securitySchemes": true,
	"links":           true,
	"callbacks":       true,
}

// ValidComponentCategory reports whether category may hold components.
func ValidComponentCategory(category string) bool {
	return componentCategories[category]
}

// Validator is a named JSON Schema (Draft 4) matcher. References inside the
// schema resolve against the base model of the registry that created it.
// The schema is compiled on first use.
type Validator struct {
	name     string
	schema   map[string]any
	resolver *Resolver

	once     sync.Once
	compiled *gojsonschema.Schema
	root     map[string]any
	err      error
}

// Name returns the registered name.
func (v *Validator) Name() string {
	return v.name
}

// Schema returns a copy of the schema the validator was created with.
func (v *Validator) Schema() map[string]any {
	return copyMap(v.schema)
}

// compile builds the validation root: the base model without its identifiers
// merged with the validator schema, so local references reach components.
func (v *Validator) compile() (*gojsonschema.Schema, error) {
	v.once.Do(func() {
		root := v.resolver.Document()
		for _, key := range []string{"$schema", "id", "$id"} {
			delete(root, key)
		}
		v.root = Merge(root, v.Schema()).(map[string]any)

		loader := gojsonschema.NewSchemaLoader()
		loader.Draft = gojsonschema.Draft4
		loader.AutoDetect = false

		v.compiled, v.err = loader.Compile(gojsonschema.NewGoLoader(v.root))
		if v.err != nil {
			v.err = fmt.Errorf("openapi: compile validator %q: %w", v.name, v.err)
		}
	})
	return v.compiled, v.err
}

// Validate checks instance against the schema. A schema violation is
// returned as a *ValidationError describing the first failure.
func (v *Validator) Validate(instance any) error {
	schema, err := v.compile()
	if err != nil {
		return err
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(instance))
	if err != nil {
		return fmt.Errorf("openapi: validate with %q: %w", v.name, err)
	}
	if result.Valid() {
		return nil
	}

	first := result.Errors()[0]
	field := first.Field()
	if field == "(root)" {
		field = ""
	}

	return &ValidationError{
		Validator: v.name,
		Message:   first.Description(),
		Field:     field,
		Value:     first.Value(),
		Schema:    v.schemaAt(first.Context()),
	}
}

// schemaAt walks the schema along a validation context such as
// "(root).pets.0.name" and returns the sub-schema found there.
func (v *Validator) schemaAt(ctx *gojsonschema.JsonContext) map[string]any {
	current, moved := v.deref(v.root)
	if ctx != nil {
		segments := strings.Split(ctx.String(), ".")
		for _, seg := range segments[1:] {
			next := v.step(current, seg)
			if next == nil {
				break
			}
			current, _ = v.deref(next)
			moved = true
		}
	}

	if !moved {
		return v.Schema()
	}
	return copyMap(current)
}

func (v *Validator) step(schema map[string]any, seg string) map[string]any {
	if props, ok := schema["properties"].(map[string]any); ok {
		if sub, ok := props[seg].(map[string]any); ok {
			return sub
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		return items
	}
	if additional, ok := schema["additionalProperties"].(map[string]any); ok {
		return additional
	}
	return nil
}

// deref follows $ref chains against the validation root.
func (v *Validator) deref(schema map[string]any) (map[string]any, bool) {
	root := &Resolver{doc: v.root}
	followed := false
	for range 16 {
		ref, ok := schema["$ref"].(string)
		if !ok {
			break
		}
		target, err := root.Resolve(ref)
		if err != nil {
			break
		}
		m, ok := target.(map[string]any)
		if !ok {
			break
		}
		schema = m
		followed = true
	}
	return schema, followed
}

// Registry maps names to validators. Writes are safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	resolver   *Resolver
	validators map[string]*Validator
}

// NewRegistry returns an empty registry whose validators resolve against
// resolver. resolver may be nil.
func NewRegistry(resolver *Resolver) *Registry {
	return &Registry{
		resolver:   resolver,
		validators: make(map[string]*Validator),
	}
}

// Resolver returns the base model resolver.
func (r *Registry) Resolver() *Resolver {
	return r.resolver
}

// Register creates a validator from schema and stores it under name,
// replacing any previous validator with that name.
func (r *Registry) Register(name string, schema map[string]any) *Validator {
	v := &Validator{
		name:     name,
		schema:   copyMap(schema),
		resolver: r.resolver,
	}
	if v.schema == nil {
		v.schema = map[string]any{}
	}

	r.mu.Lock()
	r.validators[name] = v
	r.mu.Unlock()

	return v
}

// Compile returns an unregistered validator for schema, resolving against
// the registry base model.
func (r *Registry) Compile(schema map[string]any) *Validator {
	v := &Validator{
		name:     "<inline>",
		schema:   copyMap(schema),
		resolver: r.resolver,
	}
	if v.schema == nil {
		v.schema = map[string]any{}
	}
	return v
}

// RegisterRef creates a validator whose schema is only a reference to
// #/components/{category}/{name}. The target is resolved when the validator
// is first used.
func (r *Registry) RegisterRef(name, category string) (*Validator, error) {
	if !ValidComponentCategory(category) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidComponentCategory, category)
	}
	return r.Register(name, map[string]any{
		"$ref": fmt.Sprintf("#/components/%s/%s", category, name),
	}), nil
}

// Lookup returns the validator registered under name.
func (r *Registry) Lookup(name string) (*Validator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.validators[name]
	return v, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.validators))
	for name := range r.validators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
