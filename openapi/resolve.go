package openapi

import (
	"regexp"
	"sort"
	"strings"
)

var (
	firstCapRegexp = regexp.MustCompile(`(.)([A-Z][a-z]+)`)
	allCapRegexp   = regexp.MustCompile(`([a-z0-9])([A-Z])`)
)

// DefaultResponseDescription is used for responses declared without one.
const DefaultResponseDescription = "Success"

// ParamSpec is a resolved parameter declaration.
type ParamSpec struct {
	Name        string
	In          string
	Description string
	Required    bool
	// Schema is a raw schema map or a validator reference; nil when absent.
	Schema any
	// Ref, when set, replaces the whole parameter object.
	Ref   any
	Props map[string]any
}

// ResponseSpec is a resolved response declaration.
type ResponseSpec struct {
	Description string
	// Content maps a media type to the validator reference of its body.
	Content map[string]any
	Headers map[string]any
}

// MethodDoc is the merged documentation of one HTTP method.
type MethodDoc struct {
	Verb        string
	Hidden      bool
	Params      []ParamSpec
	Responses   map[string]ResponseSpec
	Expect      []ExpectSpec
	Validate    bool
	Headers     map[string]any
	Deprecated  bool
	OperationID string
	Docstring   Docstring
	Summary     string
	Description string
	Tags        []string
}

// ResolvedDoc is the merged documentation of a resource mounted at a path.
type ResolvedDoc struct {
	Name    string
	Path    string
	Hidden  bool
	Methods map[string]*MethodDoc
}

// Method returns the documentation for verb, or nil.
func (r *ResolvedDoc) Method(verb string) *MethodDoc {
	return r.Methods[strings.ToLower(verb)]
}

// CamelToSnake converts "PetCollection" to "pet_collection".
func CamelToSnake(name string) string {
	s := firstCapRegexp.ReplaceAllString(name, "${1}_${2}")
	return strings.ToLower(allCapRegexp.ReplaceAllString(s, "${1}_${2}"))
}

// DefaultOperationID returns the operation id used when none is declared.
func DefaultOperationID(verb, resource string) string {
	return strings.ToLower(verb) + "_" + CamelToSnake(resource)
}

// Resolve merges the documentation of d mounted at path for the given
// verbs. Fragments combine in order: defaults, ancestors from the root down,
// d itself, then each method fragment. Path parameters extracted from the
// template always win for location, requiredness and schema type.
//
// validateByDefault applies to methods whose validate flag is never set.
func (d *ResourceDoc) Resolve(defaults Fragment, path string, verbs []string, validateByDefault bool) (*ResolvedDoc, error) {
	pathNames, pathParams, err := ExtractPathParams(path)
	if err != nil {
		return nil, err
	}

	base := MergeFragments(nil, defaults)
	for _, doc := range d.lineage() {
		base = MergeFragments(base, doc.Fragment())
	}

	resolved := &ResolvedDoc{
		Name:    d.name,
		Path:    ConvertPath(path),
		Hidden:  d.Hidden(),
		Methods: make(map[string]*MethodDoc, len(verbs)),
	}

	resourceParams := Merge(base["params"], pathParams)
	resourceTags := stringList(base["tags"])
	sort.Strings(resourceTags)

	for _, verb := range verbs {
		verb = strings.ToLower(verb)
		md := &MethodDoc{Verb: verb}

		mf, ok := base[verb].(map[string]any)
		if !ok {
			if hidden, isBool := base[verb].(bool); isBool && !hidden {
				md.Hidden = true
			}
			mf = Fragment{}
		}

		params := Merge(layer(resourceParams, mf["params"]), pathParams)
		md.Params = decodeParams(params, pathNames)
		md.Responses = decodeResponses(layer(base["responses"], mf["responses"]))
		md.Headers, _ = layer(base["headers"], mf["headers"]).(map[string]any)
		md.Expect = mergeExpects(base["expect"], mf["expect"])

		md.Validate = validateByDefault
		if v, ok := base["validate"].(bool); ok {
			md.Validate = v
		}
		if v, ok := mf["validate"].(bool); ok {
			md.Validate = v
		}

		md.Deprecated = truthy(base["deprecated"]) || truthy(mf["deprecated"])

		raw, _ := mf["docstring"].(string)
		md.Docstring = ParseDocstring(raw)

		md.Summary = md.Docstring.Summary
		if s, ok := mf["summary"].(string); ok && s != "" {
			md.Summary = s
		}

		md.Description = joinDescription(
			stringValue(base["description"]),
			stringValue(mf["description"]),
			md.Docstring.Details,
		)

		md.Tags = mergeTags(resourceTags, stringList(mf["tags"]))

		md.OperationID = DefaultOperationID(verb, d.name)
		if id, ok := mf["id"].(string); ok && id != "" {
			md.OperationID = id
		}

		resolved.Methods[verb] = md
	}

	return resolved, nil
}

// decodeParams orders path parameters by template position, followed by the
// remaining parameters sorted by location and name.
func decodeParams(raw any, pathNames []string) []ParamSpec {
	m, _ := raw.(map[string]any)
	if len(m) == 0 {
		return nil
	}

	specs := make([]ParamSpec, 0, len(m))
	seen := make(map[string]bool, len(pathNames))
	for _, name := range pathNames {
		if p, ok := m[name].(map[string]any); ok {
			specs = append(specs, decodeParam(name, p))
			seen[name] = true
		}
	}

	var rest []ParamSpec
	for name, v := range m {
		if seen[name] {
			continue
		}
		switch p := v.(type) {
		case map[string]any:
			rest = append(rest, decodeParam(name, p))
		case string:
			rest = append(rest, decodeParam(name, map[string]any{"description": p}))
		}
	}
	sort.Slice(rest, func(i, j int) bool {
		if rest[i].In != rest[j].In {
			return rest[i].In < rest[j].In
		}
		return rest[i].Name < rest[j].Name
	})

	return append(specs, rest...)
}

func decodeParam(name string, p map[string]any) ParamSpec {
	spec := ParamSpec{
		Name:        name,
		In:          "query",
		Description: stringValue(p["description"]),
		Required:    truthy(p["required"]),
	}
	if in, ok := p["in"].(string); ok && in != "" {
		spec.In = in
	}
	if spec.In == "path" {
		spec.Required = true
	}
	if s, ok := p["schema"]; ok {
		if l, isLeaf := s.(leaf); isLeaf {
			spec.Schema = l.value
		} else {
			spec.Schema = s
		}
	}
	if r, ok := p["ref"]; ok {
		if l, isLeaf := r.(leaf); isLeaf {
			spec.Ref = l.value
		} else {
			spec.Ref = r
		}
	}

	for k, v := range p {
		switch k {
		case "name", "in", "description", "required", "schema", "ref":
			continue
		}
		if spec.Props == nil {
			spec.Props = make(map[string]any)
		}
		spec.Props[k] = v
	}

	return spec
}

func decodeResponses(raw any) map[string]ResponseSpec {
	m, _ := raw.(map[string]any)
	if len(m) == 0 {
		return nil
	}

	out := make(map[string]ResponseSpec, len(m))
	for code, v := range m {
		var spec ResponseSpec
		switch r := v.(type) {
		case string:
			spec.Description = r
		case map[string]any:
			spec.Description = stringValue(r["description"])
			if content, ok := r["content"].(map[string]any); ok {
				spec.Content = make(map[string]any, len(content))
				for ct, ref := range content {
					if l, isLeaf := ref.(leaf); isLeaf {
						ref = l.value
					}
					spec.Content[ct] = ref
				}
			}
			spec.Headers, _ = r["headers"].(map[string]any)
		}
		if spec.Description == "" {
			spec.Description = DefaultResponseDescription
		}
		out[code] = spec
	}
	return out
}

// mergeExpects lists method bodies first, followed by resource bodies whose
// content type the method does not redefine.
func mergeExpects(resource, method any) []ExpectSpec {
	var out []ExpectSpec
	seen := make(map[string]bool)
	for _, list := range []any{method, resource} {
		items, _ := list.([]any)
		for _, item := range items {
			spec, ok := item.(ExpectSpec)
			if !ok {
				continue
			}
			ct := spec.contentType()
			if seen[ct] {
				continue
			}
			seen[ct] = true
			spec.ContentType = ct
			out = append(out, spec)
		}
	}
	return out
}

func mergeTags(resource, method []string) []string {
	var tags []string
	seen := make(map[string]bool)
	for _, t := range append(append([]string(nil), resource...), method...) {
		if seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	return tags
}

// layer merges overlay onto base, keeping base when overlay is absent.
func layer(base, overlay any) any {
	if overlay == nil {
		return base
	}
	return Merge(base, overlay)
}

func joinDescription(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func stringList(v any) []string {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func truthy(v any) bool {
	b, _ := v.(bool)
	return b
}
