package openapi

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
)

// Verbs lists the HTTP methods a resource may document, in the order
// operations are emitted.
var Verbs = []string{
	http.MethodGet,
	http.MethodPut,
	http.MethodPost,
	http.MethodDelete,
	http.MethodOptions,
	http.MethodHead,
	http.MethodPatch,
	http.MethodTrace,
}

func isVerbKey(key string) bool {
	for _, v := range Verbs {
		if strings.ToLower(v) == key {
			return true
		}
	}
	return false
}

// ExpectSpec describes one acceptable request body. ContentType defaults to
// application/json. Extra holds media type properties such as example,
// examples or encoding.
type ExpectSpec struct {
	Validator   any
	ContentType string
	Extra       map[string]any
}

func (e ExpectSpec) contentType() string {
	if e.ContentType == "" {
		return "application/json"
	}
	return e.ContentType
}

// ParamOption customizes a parameter declared with Param.
type ParamOption func(p map[string]any)

// In sets the parameter location: query (default), path, header or cookie.
func In(location string) ParamOption {
	return func(p map[string]any) { p["in"] = location }
}

// Required marks the parameter as required.
func Required() ParamOption {
	return func(p map[string]any) { p["required"] = true }
}

// ParamSchema sets the parameter schema. A map is used as a raw schema and
// merges with the schema derived from the path; any other value is
// serialized like a validator reference.
func ParamSchema(schema any) ParamOption {
	return func(p map[string]any) {
		if m, ok := schema.(map[string]any); ok {
			p["schema"] = copyMap(m)
			return
		}
		p["schema"] = leaf{value: schema}
	}
}

// ParamRef documents the parameter as a reference. A "#/components/..."
// string is emitted as a bare $ref object.
func ParamRef(ref any) ParamOption {
	return func(p map[string]any) { p["ref"] = leaf{value: ref} }
}

// ParamProp sets an additional parameter object property such as style,
// explode or example.
func ParamProp(key string, value any) ParamOption {
	return func(p map[string]any) { p[key] = copyValue(value) }
}

type responseConfig struct {
	contentType string
	headers     map[string]any
	props       map[string]any
}

// ResponseOption customizes a response declared with Response.
type ResponseOption func(c *responseConfig)

// ContentType sets the media type of the response body (default
// application/json).
func ContentType(ct string) ResponseOption {
	return func(c *responseConfig) { c.contentType = ct }
}

// ResponseHeader documents a header sent with the response. spec is a
// description string or a header object mapping.
func ResponseHeader(name string, spec any) ResponseOption {
	return func(c *responseConfig) {
		if c.headers == nil {
			c.headers = make(map[string]any)
		}
		c.headers[name] = copyValue(spec)
	}
}

// ResourceDoc accumulates documentation for one resource. Builder calls
// merge into the accumulated fragment; later calls win. A ResourceDoc may
// extend a parent whose documentation it inherits.
type ResourceDoc struct {
	mu       sync.RWMutex
	name     string
	parent   *ResourceDoc
	fragment Fragment
	hidden   bool
}

// NewResourceDoc creates an empty documentation builder.
func NewResourceDoc(name string) *ResourceDoc {
	return &ResourceDoc{
		name:     name,
		fragment: Fragment{},
	}
}

// Name returns the resource name used for default operation ids.
func (d *ResourceDoc) Name() string {
	return d.name
}

// Parent returns the documentation this resource inherits from.
func (d *ResourceDoc) Parent() *ResourceDoc {
	return d.parent
}

// Extend creates a child documentation builder that inherits d.
func (d *ResourceDoc) Extend(name string) *ResourceDoc {
	child := NewResourceDoc(name)
	child.parent = d
	return child
}

// Fragment returns a copy of the accumulated fragment.
func (d *ResourceDoc) Fragment() Fragment {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return copyMap(d.fragment)
}

// Hidden reports whether the resource is excluded from the document.
func (d *ResourceDoc) Hidden() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.hidden
}

// Hide excludes the resource from the generated document. Request
// validation still applies.
func (d *ResourceDoc) Hide() *ResourceDoc {
	d.mu.Lock()
	d.hidden = true
	d.mu.Unlock()
	return d
}

// lineage returns the ancestors of d, root first, followed by d.
func (d *ResourceDoc) lineage() []*ResourceDoc {
	var chain []*ResourceDoc
	for cur := d; cur != nil; cur = cur.parent {
		chain = append([]*ResourceDoc{cur}, chain...)
	}
	return chain
}

// update applies fn to the fragment for verb, or to the resource fragment
// when verb is empty.
func (d *ResourceDoc) update(verb string, fn func(f Fragment)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if verb == "" {
		fn(d.fragment)
		return
	}

	mf, ok := d.fragment[verb].(map[string]any)
	if !ok {
		mf = Fragment{}
		d.fragment[verb] = mf
	}
	fn(mf)
}

// merge deep merges overlay into the fragment for verb.
func (d *ResourceDoc) merge(verb string, overlay Fragment) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if verb == "" {
		d.fragment = MergeFragments(d.fragment, overlay)
		return
	}
	d.fragment = MergeFragments(d.fragment, Fragment{verb: overlay})
}

func (d *ResourceDoc) param(verb, name, description string, opts []ParamOption) {
	p := map[string]any{}
	if description != "" {
		p["description"] = description
	}
	for _, opt := range opts {
		opt(p)
	}
	d.merge(verb, Fragment{"params": map[string]any{name: p}})
}

func (d *ResourceDoc) response(verb, code, description string, validator any, opts []ResponseOption) {
	cfg := &responseConfig{contentType: "application/json"}
	for _, opt := range opts {
		opt(cfg)
	}

	r := map[string]any{"description": description}
	if validator != nil {
		r["content"] = map[string]any{cfg.contentType: leaf{value: validator}}
	}
	if len(cfg.headers) > 0 {
		r["headers"] = cfg.headers
	}
	d.merge(verb, Fragment{"responses": map[string]any{code: r}})
}

func (d *ResourceDoc) expect(verb string, specs []ExpectSpec) {
	d.update(verb, func(f Fragment) {
		list, _ := f["expect"].([]any)
		for _, spec := range specs {
			list = append(list, spec)
		}
		f["expect"] = list
	})
}

func (d *ResourceDoc) set(verb, key string, value any) {
	d.update(verb, func(f Fragment) { f[key] = value })
}

func (d *ResourceDoc) header(verb, name string, spec any) {
	d.merge(verb, Fragment{"headers": map[string]any{name: copyValue(spec)}})
}

func (d *ResourceDoc) tags(verb string, tags []string) {
	d.update(verb, func(f Fragment) {
		list, _ := f["tags"].([]any)
		for _, t := range tags {
			list = append(list, t)
		}
		f["tags"] = list
	})
}

// Param declares a parameter for every method of the resource. The default
// location is query.
func (d *ResourceDoc) Param(name, description string, opts ...ParamOption) *ResourceDoc {
	d.param("", name, description, opts)
	return d
}

// Doc merges an arbitrary fragment. String values under params and
// responses are expanded to {"description": value}, and an expect entry is
// normalized to a list of ExpectSpec. A verb key set to false hides that
// method.
func (d *ResourceDoc) Doc(f Fragment) *ResourceDoc {
	d.merge("", normalizeFragment(f, true))
	return d
}

// Response documents a response for every method of the resource.
func (d *ResourceDoc) Response(code int, description string, validator any, opts ...ResponseOption) *ResourceDoc {
	d.response("", strconv.Itoa(code), description, validator, opts)
	return d
}

// DefaultResponse documents the "default" response for every method.
func (d *ResourceDoc) DefaultResponse(description string, validator any, opts ...ResponseOption) *ResourceDoc {
	d.response("", "default", description, validator, opts)
	return d
}

// Expect appends accepted request bodies for every method.
func (d *ResourceDoc) Expect(specs ...ExpectSpec) *ResourceDoc {
	d.expect("", specs)
	return d
}

// Validate sets whether expected bodies are enforced for every method.
// When never set, the application default applies.
func (d *ResourceDoc) Validate(on bool) *ResourceDoc {
	d.set("", "validate", on)
	return d
}

// Header documents a response header sent by every method. spec is a
// description string or a header object mapping whose "type" may be any
// validator reference.
func (d *ResourceDoc) Header(name string, spec any) *ResourceDoc {
	d.header("", name, spec)
	return d
}

// Deprecated marks every operation of the resource as deprecated.
func (d *ResourceDoc) Deprecated() *ResourceDoc {
	d.set("", "deprecated", true)
	return d
}

// Description sets the resource description, prepended to every operation
// description.
func (d *ResourceDoc) Description(s string) *ResourceDoc {
	d.set("", "description", s)
	return d
}

// Tags adds tags to every operation of the resource.
func (d *ResourceDoc) Tags(tags ...string) *ResourceDoc {
	d.tags("", tags)
	return d
}

// Method returns the builder scoped to one HTTP method.
func (d *ResourceDoc) Method(verb string) *MethodScope {
	return &MethodScope{doc: d, verb: strings.ToLower(verb)}
}

// MethodScope documents one HTTP method of a resource. Its declarations win
// over resource-level ones.
type MethodScope struct {
	doc  *ResourceDoc
	verb string
}

// Resource returns the resource the scope belongs to.
func (m *MethodScope) Resource() *ResourceDoc {
	return m.doc
}

// Param declares a parameter for this method.
func (m *MethodScope) Param(name, description string, opts ...ParamOption) *MethodScope {
	m.doc.param(m.verb, name, description, opts)
	return m
}

// Doc merges an arbitrary fragment into this method.
func (m *MethodScope) Doc(f Fragment) *MethodScope {
	m.doc.merge(m.verb, normalizeFragment(f, false))
	return m
}

// Response documents a response of this method.
func (m *MethodScope) Response(code int, description string, validator any, opts ...ResponseOption) *MethodScope {
	m.doc.response(m.verb, strconv.Itoa(code), description, validator, opts)
	return m
}

// DefaultResponse documents the "default" response of this method.
func (m *MethodScope) DefaultResponse(description string, validator any, opts ...ResponseOption) *MethodScope {
	m.doc.response(m.verb, "default", description, validator, opts)
	return m
}

// Expect appends accepted request bodies for this method.
func (m *MethodScope) Expect(specs ...ExpectSpec) *MethodScope {
	m.doc.expect(m.verb, specs)
	return m
}

// Validate sets whether expected bodies are enforced for this method.
func (m *MethodScope) Validate(on bool) *MethodScope {
	m.doc.set(m.verb, "validate", on)
	return m
}

// Header documents a response header sent by this method.
func (m *MethodScope) Header(name string, spec any) *MethodScope {
	m.doc.header(m.verb, name, spec)
	return m
}

// Deprecated marks this operation as deprecated.
func (m *MethodScope) Deprecated() *MethodScope {
	m.doc.set(m.verb, "deprecated", true)
	return m
}

// Description sets the method description.
func (m *MethodScope) Description(s string) *MethodScope {
	m.doc.set(m.verb, "description", s)
	return m
}

// Tags adds tags to this operation.
func (m *MethodScope) Tags(tags ...string) *MethodScope {
	m.doc.tags(m.verb, tags)
	return m
}

// OperationID overrides the default "{verb}_{resource_name}" operation id.
func (m *MethodScope) OperationID(id string) *MethodScope {
	m.doc.set(m.verb, "id", id)
	return m
}

// Summary overrides the summary taken from the docstring.
func (m *MethodScope) Summary(s string) *MethodScope {
	m.doc.set(m.verb, "summary", s)
	return m
}

// Docstring attaches free-form documentation. Its first sentence becomes
// the summary and the rest the description; ":raises Name: text" lines are
// collected separately.
func (m *MethodScope) Docstring(text string) *MethodScope {
	m.doc.set(m.verb, "docstring", text)
	return m
}

// Hide excludes this method from the generated document even when the
// resource handles it.
func (m *MethodScope) Hide() *MethodScope {
	m.doc.mu.Lock()
	m.doc.fragment[m.verb] = false
	m.doc.mu.Unlock()
	return m
}

// normalizeFragment expands shorthand values of a user supplied fragment.
func normalizeFragment(f Fragment, resource bool) Fragment {
	out := copyMap(f)
	if out == nil {
		return Fragment{}
	}

	if params, ok := out["params"].(map[string]any); ok {
		for name, p := range params {
			if s, ok := p.(string); ok {
				params[name] = map[string]any{"description": s}
			}
		}
	}

	if responses, ok := out["responses"].(map[string]any); ok {
		for code, r := range responses {
			responses[code] = normalizeResponse(r)
		}
	}

	if e, ok := out["expect"]; ok {
		out["expect"] = normalizeExpect(e)
	}

	if tags, ok := out["tags"].([]string); ok {
		list := make([]any, len(tags))
		for i, t := range tags {
			list[i] = t
		}
		out["tags"] = list
	}

	if resource {
		for key, v := range out {
			if mf, ok := v.(map[string]any); ok && isVerbKey(key) {
				out[key] = normalizeFragment(mf, false)
			}
		}
	}

	return out
}

func normalizeResponse(r any) any {
	switch v := r.(type) {
	case string:
		return map[string]any{"description": v}
	case map[string]any:
		validator, ok := v["validator"]
		if !ok {
			return v
		}
		delete(v, "validator")
		ct, _ := v["content_type"].(string)
		delete(v, "content_type")
		if ct == "" {
			ct = "application/json"
		}
		if validator != nil {
			v["content"] = map[string]any{ct: leaf{value: validator}}
		}
		return v
	default:
		return r
	}
}

func normalizeExpect(e any) []any {
	switch v := e.(type) {
	case ExpectSpec:
		return []any{v}
	case []ExpectSpec:
		list := make([]any, len(v))
		for i, spec := range v {
			list[i] = spec
		}
		return list
	case []any:
		list := make([]any, 0, len(v))
		for _, item := range v {
			if spec, ok := item.(ExpectSpec); ok {
				list = append(list, spec)
				continue
			}
			list = append(list, ExpectSpec{Validator: item})
		}
		return list
	default:
		return []any{ExpectSpec{Validator: v}}
	}
}
