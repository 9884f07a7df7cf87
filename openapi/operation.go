package openapi

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
)

// schemaHeaderKeys are header object keys that belong to the header schema.
var schemaHeaderKeys = []string{"format", "items", "enum", "minimum", "maximum", "pattern", "default"}

// buildOperation serializes one resolved method into an Operation Object.
//
// See: https://spec.openapis.org/oas/v3.0.3#operation-object
func (s *Spec) buildOperation(md *MethodDoc) (*Operation, error) {
	op := &Operation{
		Tags:        md.Tags,
		Summary:     md.Summary,
		Description: md.Description,
		OperationID: md.OperationID,
		Deprecated:  md.Deprecated,
	}

	params, err := s.buildParameters(md.Params)
	if err != nil {
		return nil, fmt.Errorf("%s parameters: %w", md.Verb, err)
	}
	op.Parameters = params

	responses, err := s.buildResponses(md)
	if err != nil {
		return nil, fmt.Errorf("%s responses: %w", md.Verb, err)
	}
	op.Responses = responses

	body, err := s.buildRequestBody(md.Expect)
	if err != nil {
		return nil, fmt.Errorf("%s request body: %w", md.Verb, err)
	}
	op.RequestBody = body

	return op, nil
}

// buildParameters serializes parameters. Parameters declared by reference
// become bare $ref objects.
//
// See: https://spec.openapis.org/oas/v3.0.3#parameter-object
func (s *Spec) buildParameters(specs []ParamSpec) ([]*Parameter, error) {
	var params []*Parameter

	for _, spec := range specs {
		if spec.Ref != nil {
			p, err := s.buildRefParameter(spec)
			if err != nil {
				return nil, fmt.Errorf("parameter %q: %w", spec.Name, err)
			}
			params = append(params, p)
			continue
		}

		p := &Parameter{}
		if err := decodeProps(spec.Props, p); err != nil {
			return nil, fmt.Errorf("parameter %q: %w", spec.Name, err)
		}
		p.Name = spec.Name
		p.In = spec.In
		p.Description = spec.Description
		p.Required = spec.Required || spec.In == "path"

		schema, err := s.paramSchema(spec.Schema)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", spec.Name, err)
		}
		p.Schema = schema

		params = append(params, p)
	}

	return params, nil
}

func (s *Spec) buildRefParameter(spec ParamSpec) (*Parameter, error) {
	if ref, ok := spec.Ref.(string); ok && strings.HasPrefix(ref, "#/components/") {
		return &Parameter{Ref: ref}, nil
	}

	schema, err := s.schema(spec.Ref)
	if err != nil {
		return nil, err
	}
	if ref, ok := schema["$ref"].(string); ok {
		return &Parameter{Ref: ref}, nil
	}

	p := &Parameter{}
	if err := decodeProps(schema, p); err != nil {
		return nil, err
	}
	if p.Name == "" {
		p.Name = spec.Name
	}
	if p.In == "" {
		p.In = spec.In
	}
	return p, nil
}

// paramSchema serializes a parameter schema, defaulting to a string.
func (s *Spec) paramSchema(raw any) (map[string]any, error) {
	var schema map[string]any
	switch v := raw.(type) {
	case nil:
		schema = map[string]any{}
	case map[string]any:
		schema = pruneNil(copyValue(v)).(map[string]any)
	default:
		var err error
		if schema, err = s.schema(v); err != nil {
			return nil, err
		}
	}

	if schema == nil {
		schema = map[string]any{}
	}
	_, hasType := schema["type"]
	_, hasRef := schema["$ref"]
	if !hasType && !hasRef {
		schema["type"] = "string"
	}
	return schema, nil
}

// buildResponses serializes the responses of a method. A method without any
// declared response gets a single "200 Success".
//
// See: https://spec.openapis.org/oas/v3.0.3#responses-object
func (s *Spec) buildResponses(md *MethodDoc) (map[string]*Response, error) {
	if len(md.Responses) == 0 {
		headers, err := s.buildHeaders(md.Headers, nil)
		if err != nil {
			return nil, err
		}
		return map[string]*Response{
			strconv.Itoa(http.StatusOK): {
				Description: DefaultResponseDescription,
				Headers:     headers,
			},
		}, nil
	}

	responses := make(map[string]*Response, len(md.Responses))
	for code, spec := range md.Responses {
		resp := &Response{Description: spec.Description}

		for ct, ref := range spec.Content {
			if ref == nil {
				continue
			}
			schema, err := s.schema(ref)
			if err != nil {
				return nil, fmt.Errorf("response %s: %w", code, err)
			}
			if resp.Content == nil {
				resp.Content = make(map[string]*MediaType)
			}
			resp.Content[ct] = &MediaType{Schema: schema}
		}

		headers, err := s.buildHeaders(md.Headers, spec.Headers)
		if err != nil {
			return nil, fmt.Errorf("response %s: %w", code, err)
		}
		resp.Headers = headers

		responses[code] = resp
	}

	return responses, nil
}

// buildHeaders unions the method headers with the response specific ones;
// response headers win on name conflicts.
//
// See: https://spec.openapis.org/oas/v3.0.3#header-object
func (s *Spec) buildHeaders(method, response map[string]any) (map[string]*Header, error) {
	if len(method) == 0 && len(response) == 0 {
		return nil, nil
	}

	merged := make(map[string]any, len(method)+len(response))
	for k, v := range method {
		merged[k] = v
	}
	for k, v := range response {
		merged[k] = v
	}

	names := make([]string, 0, len(merged))
	for name := range merged {
		names = append(names, name)
	}
	sort.Strings(names)

	headers := make(map[string]*Header, len(merged))
	for _, name := range names {
		h, err := s.cleanHeader(merged[name])
		if err != nil {
			return nil, fmt.Errorf("header %q: %w", name, err)
		}
		headers[name] = h
	}
	return headers, nil
}

// cleanHeader normalizes a header declaration: a string is a description,
// and a mapping's "type" may be any validator reference.
func (s *Spec) cleanHeader(spec any) (*Header, error) {
	switch v := spec.(type) {
	case string:
		return &Header{Description: v, Schema: map[string]any{"type": "string"}}, nil
	case map[string]any:
		props := copyMap(v)

		schema, _ := props["schema"].(map[string]any)
		delete(props, "schema")
		if schema == nil {
			typ, ok := props["type"]
			if !ok {
				typ = "string"
			}
			var err error
			if schema, err = s.schema(typ); err != nil {
				return nil, err
			}
		}
		delete(props, "type")

		for _, key := range schemaHeaderKeys {
			if val, ok := props[key]; ok {
				schema[key] = val
				delete(props, key)
			}
		}

		h := &Header{}
		if err := decodeProps(props, h); err != nil {
			return nil, err
		}
		h.Schema = schema
		return h, nil
	default:
		schema, err := s.schema(spec)
		if err != nil {
			return nil, err
		}
		return &Header{Schema: schema}, nil
	}
}

// buildRequestBody serializes the expected bodies. A body whose schema
// references #/components/requestBodies is emitted as that reference alone.
//
// See: https://spec.openapis.org/oas/v3.0.3#request-body-object
func (s *Spec) buildRequestBody(expects []ExpectSpec) (*RequestBody, error) {
	content := make(map[string]*MediaType)

	for _, e := range expects {
		if e.Validator == nil {
			continue
		}
		schema, err := s.schema(e.Validator)
		if err != nil {
			return nil, err
		}
		if ref, ok := schema["$ref"].(string); ok && strings.Contains(ref, "/components/requestBodies/") {
			return &RequestBody{Ref: ref}, nil
		}

		ct := e.contentType()
		if _, exists := content[ct]; exists {
			continue
		}

		mt := &MediaType{}
		if err := decodeProps(e.Extra, mt); err != nil {
			return nil, err
		}
		mt.Schema = schema
		content[ct] = mt
	}

	if len(content) == 0 {
		return nil, nil
	}
	return &RequestBody{Content: content}, nil
}
