package openapi

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// Version is the OpenAPI version of generated documents.
	Version = "3.0.3"

	// DefaultTitle is used when Info.Title is empty.
	DefaultTitle = "OpenApi Rest Documentation"

	// DefaultVersion is used when Info.Version is empty.
	DefaultVersion = "1.0"
)

// registration is one resource mounted at a path.
type registration struct {
	path    string
	doc     *ResourceDoc
	verbs   []string
	allowed []string
}

// methods returns the verbs handled natively that the route allows, in
// emission order.
func (r registration) methods() []string {
	native := make(map[string]bool, len(r.verbs))
	for _, v := range r.verbs {
		native[strings.ToUpper(v)] = true
	}

	var allowed map[string]bool
	if len(r.allowed) > 0 {
		allowed = make(map[string]bool, len(r.allowed))
		for _, v := range r.allowed {
			allowed[strings.ToUpper(v)] = true
		}
	}

	var out []string
	for _, v := range Verbs {
		if !native[v] {
			continue
		}
		if allowed != nil && !allowed[v] {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Option configures a Spec.
type Option func(s *Spec)

// WithServer adds a server entry to the document.
func WithServer(server Server) Option {
	return func(s *Spec) { s.servers = append(s.servers, server) }
}

// WithBaseModel sets the base model document. Its components seed the
// document components and validator references resolve against it.
func WithBaseModel(resolver *Resolver) Option {
	return func(s *Spec) { s.resolver = resolver }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Spec) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithValidateByDefault sets whether expected bodies are enforced for
// methods that never set a validate flag. The default is true.
func WithValidateByDefault(on bool) Option {
	return func(s *Spec) { s.validateByDefault = on }
}

// WithBuildObserver registers a callback invoked after every document build.
func WithBuildObserver(fn func(d time.Duration, err error)) Option {
	return func(s *Spec) { s.observer = fn }
}

// Spec collects resource registrations and assembles the OpenAPI document.
//
// Document builds once and caches the result. Registering a resource or a
// component drops the cache; changes made through a ResourceDoc after the
// first build need an explicit Invalidate.
type Spec struct {
	mu                sync.RWMutex
	info              Info
	servers           []Server
	defaults          *ResourceDoc
	resolver          *Resolver
	registry          *Registry
	serializer        *Serializer
	logger            *slog.Logger
	validateByDefault bool
	observer          func(time.Duration, error)

	registrations []registration
	components    map[string]map[string]any

	group      singleflight.Group
	generation uint64
	cached     *Document
}

// NewSpec creates a spec builder with the given API info.
func NewSpec(info Info, opts ...Option) *Spec {
	s := &Spec{
		info:              info,
		defaults:          NewResourceDoc("defaults"),
		logger:            slog.Default(),
		validateByDefault: true,
		components:        make(map[string]map[string]any),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registry = NewRegistry(s.resolver)
	s.serializer = NewSerializer(s.registry)

	return s
}

// Info returns the document info with defaults applied.
func (s *Spec) Info() Info {
	return s.buildInfo()
}

// Defaults returns the application-wide documentation applied below every
// resource.
func (s *Spec) Defaults() *ResourceDoc {
	return s.defaults
}

// Validators returns the validator registry.
func (s *Spec) Validators() *Registry {
	return s.registry
}

// Serializer returns the schema serializer bound to the registry.
func (s *Spec) Serializer() *Serializer {
	return s.serializer
}

// ValidateByDefault reports the application validate default.
func (s *Spec) ValidateByDefault() bool {
	return s.validateByDefault
}

// Register mounts doc at path. verbs are the methods the resource handles;
// allowed, when given, restricts the documented methods further.
//
// Unknown converters are only logged here; the build reports them.
func (s *Spec) Register(path string, doc *ResourceDoc, verbs []string, allowed ...string) {
	for _, v := range ParsePath(path) {
		if !v.Supported() {
			s.logger.Warn("unsupported path converter",
				"path", path,
				"variable", v.Name,
				"converter", v.Converter,
			)
		}
	}

	s.mu.Lock()
	s.registrations = append(s.registrations, registration{
		path:    path,
		doc:     doc,
		verbs:   append([]string(nil), verbs...),
		allowed: append([]string(nil), allowed...),
	})
	s.mu.Unlock()

	s.Invalidate()
}

// RegisterComponent adds a reusable object under
// #/components/{category}/{name}, replacing a base model entry of the same
// name.
//
// See: https://spec.openapis.org/oas/v3.0.3#components-object
func (s *Spec) RegisterComponent(category, name string, value any) error {
	if !ValidComponentCategory(category) {
		return fmt.Errorf("%w: %s", ErrInvalidComponentCategory, category)
	}

	s.mu.Lock()
	if s.components[category] == nil {
		s.components[category] = make(map[string]any)
	}
	s.components[category][name] = copyValue(value)
	s.mu.Unlock()

	s.Invalidate()
	return nil
}

// Resolve merges the documentation of doc mounted at path with the
// application defaults.
func (s *Spec) Resolve(path string, doc *ResourceDoc, verbs []string) (*ResolvedDoc, error) {
	return doc.Resolve(s.defaults.Fragment(), path, verbs, s.validateByDefault)
}

// ValidatorFor returns the validator enforcing a body reference: a handle
// as is, a registered name, or an inline validator over the serialized
// schema.
func (s *Spec) ValidatorFor(ref any) (*Validator, error) {
	switch v := ref.(type) {
	case *Validator:
		return v, nil
	case string:
		if val, ok := s.registry.Lookup(v); ok {
			return val, nil
		}
	}

	schema, err := s.schema(ref)
	if err != nil {
		if errors.Is(err, ErrUnsupportedSchemaInput) {
			return nil, fmt.Errorf("%w: %w", ErrUnknownValidator, err)
		}
		return nil, err
	}
	return s.registry.Compile(schema), nil
}

// Document returns the cached document, building it on first use.
// Concurrent callers share a single build. Failed builds are not cached.
func (s *Spec) Document() (*Document, error) {
	s.mu.RLock()
	if s.cached != nil {
		doc := s.cached
		s.mu.RUnlock()
		return doc, nil
	}
	gen := s.generation
	s.mu.RUnlock()

	v, err, _ := s.group.Do(strconv.FormatUint(gen, 10), func() (any, error) {
		s.mu.RLock()
		if s.cached != nil && s.generation == gen {
			doc := s.cached
			s.mu.RUnlock()
			return doc, nil
		}
		s.mu.RUnlock()

		doc, err := s.Build()
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		if s.generation == gen {
			s.cached = doc
		}
		s.mu.Unlock()

		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Document), nil
}

// Invalidate drops the cached document.
func (s *Spec) Invalidate() {
	s.mu.Lock()
	s.generation++
	s.cached = nil
	s.mu.Unlock()
}

// Build assembles a fresh document without touching the cache.
func (s *Spec) Build() (*Document, error) {
	start := time.Now()
	doc, err := s.build()
	elapsed := time.Since(start)

	if s.observer != nil {
		s.observer(elapsed, err)
	}
	if err != nil {
		s.logger.Error("openapi document build failed", "error", err)
		return nil, err
	}

	s.logger.Debug("openapi document built",
		"paths", len(doc.Paths),
		"duration", elapsed,
	)
	return doc, nil
}

func (s *Spec) build() (*Document, error) {
	s.mu.RLock()
	regs := append([]registration(nil), s.registrations...)
	userComponents := make(map[string]map[string]any, len(s.components))
	for category, entries := range s.components {
		userComponents[category] = copyMap(entries)
	}
	s.mu.RUnlock()

	doc := &Document{
		OpenAPI: Version,
		Info:    s.buildInfo(),
		Servers: append([]Server(nil), s.servers...),
		Paths:   make(map[string]*PathItem),
	}

	defaults := s.defaults.Fragment()
	for _, reg := range regs {
		if err := s.addPath(doc, defaults, reg); err != nil {
			return nil, &BuildError{Resource: reg.doc.Name(), Path: reg.path, Err: err}
		}
	}

	doc.Components = s.buildComponents(userComponents)

	return doc, nil
}

func (s *Spec) addPath(doc *Document, defaults Fragment, reg registration) error {
	methods := reg.methods()

	resolved, err := reg.doc.Resolve(defaults, reg.path, methods, s.validateByDefault)
	if err != nil {
		return err
	}
	if resolved.Hidden {
		return nil
	}

	item, ok := doc.Paths[resolved.Path]
	if !ok {
		item = &PathItem{}
	}

	for _, verb := range methods {
		md := resolved.Method(verb)
		if md == nil || md.Hidden {
			continue
		}
		op, err := s.buildOperation(md)
		if err != nil {
			return err
		}
		item.setOperation(verb, op)
	}

	if !item.isEmpty() {
		doc.Paths[resolved.Path] = item
	}
	return nil
}

// buildInfo applies title and version defaults. Contact is kept only with a
// name and an email or url.
//
// See: https://spec.openapis.org/oas/v3.0.3#info-object
func (s *Spec) buildInfo() Info {
	info := s.info
	if info.Title == "" {
		info.Title = DefaultTitle
	}
	if info.Version == "" {
		info.Version = DefaultVersion
	}

	if c := info.Contact; c != nil {
		if c.Name == "" || (c.Email == "" && c.URL == "") {
			info.Contact = nil
		} else {
			contact := *c
			info.Contact = &contact
		}
	}
	return info
}

// buildComponents seeds components from the base model and overlays the
// registered ones. Empty categories are left out.
func (s *Spec) buildComponents(user map[string]map[string]any) *Components {
	comps := &Components{}

	if s.resolver != nil {
		for category, entries := range s.resolver.Components() {
			target := comps.category(category)
			if target == nil {
				continue
			}
			for name, v := range entries {
				target[name] = copyValue(v)
			}
		}
	}

	for category, entries := range user {
		target := comps.category(category)
		for name, v := range entries {
			target[name] = pruneNil(copyValue(v))
		}
	}

	if comps.isEmpty() {
		return nil
	}
	return comps
}

// schema serializes ref and drops nil entries from the result.
func (s *Spec) schema(ref any) (map[string]any, error) {
	schema, err := s.serializer.Serialize(ref)
	if err != nil {
		return nil, err
	}
	return pruneNil(schema).(map[string]any), nil
}
