package openapi

import (
	"encoding/json"
	"net/http"

	"gopkg.in/yaml.v3"
)

// Document represents the root of an OpenAPI v3.0 document. Schemas are
// kept as JSON Schema mappings.
//
// See: https://spec.openapis.org/oas/v3.0.3#openapi-object
type Document struct {
	OpenAPI    string               `json:"openapi" yaml:"openapi"`
	Info       Info                 `json:"info" yaml:"info"`
	Servers    []Server             `json:"servers,omitempty" yaml:"servers,omitempty"`
	Paths      map[string]*PathItem `json:"paths" yaml:"paths"`
	Components *Components          `json:"components,omitempty" yaml:"components,omitempty"`
}

// JSON returns the indented JSON encoding of the document.
func (d *Document) JSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// YAML returns the YAML encoding of the document.
func (d *Document) YAML() ([]byte, error) {
	return yaml.Marshal(d)
}

// Info provides metadata about the API.
//
// See: https://spec.openapis.org/oas/v3.0.3#info-object
type Info struct {
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Contact     *Contact `json:"contact,omitempty" yaml:"contact,omitempty"`
	Version     string   `json:"version" yaml:"version"`
}

// Contact represents contact information for the API.
//
// See: https://spec.openapis.org/oas/v3.0.3#contact-object
type Contact struct {
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	URL   string `json:"url,omitempty" yaml:"url,omitempty"`
	Email string `json:"email,omitempty" yaml:"email,omitempty"`
}

// Server represents a server.
//
// See: https://spec.openapis.org/oas/v3.0.3#server-object
type Server struct {
	URL         string `json:"url" yaml:"url"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// PathItem describes the operations available on a single path.
//
// See: https://spec.openapis.org/oas/v3.0.3#path-item-object
type PathItem struct {
	Get     *Operation `json:"get,omitempty" yaml:"get,omitempty"`
	Put     *Operation `json:"put,omitempty" yaml:"put,omitempty"`
	Post    *Operation `json:"post,omitempty" yaml:"post,omitempty"`
	Delete  *Operation `json:"delete,omitempty" yaml:"delete,omitempty"`
	Options *Operation `json:"options,omitempty" yaml:"options,omitempty"`
	Head    *Operation `json:"head,omitempty" yaml:"head,omitempty"`
	Patch   *Operation `json:"patch,omitempty" yaml:"patch,omitempty"`
	Trace   *Operation `json:"trace,omitempty" yaml:"trace,omitempty"`
}

// Operation returns the operation for method, or nil.
func (p *PathItem) Operation(method string) *Operation {
	switch method {
	case http.MethodGet, "get":
		return p.Get
	case http.MethodPut, "put":
		return p.Put
	case http.MethodPost, "post":
		return p.Post
	case http.MethodDelete, "delete":
		return p.Delete
	case http.MethodOptions, "options":
		return p.Options
	case http.MethodHead, "head":
		return p.Head
	case http.MethodPatch, "patch":
		return p.Patch
	case http.MethodTrace, "trace":
		return p.Trace
	}
	return nil
}

// setOperation assigns op to the field for method.
func (p *PathItem) setOperation(method string, op *Operation) {
	switch method {
	case http.MethodGet, "get":
		p.Get = op
	case http.MethodPut, "put":
		p.Put = op
	case http.MethodPost, "post":
		p.Post = op
	case http.MethodDelete, "delete":
		p.Delete = op
	case http.MethodOptions, "options":
		p.Options = op
	case http.MethodHead, "head":
		p.Head = op
	case http.MethodPatch, "patch":
		p.Patch = op
	case http.MethodTrace, "trace":
		p.Trace = op
	}
}

// isEmpty reports whether the path item holds no operation.
func (p *PathItem) isEmpty() bool {
	for _, v := range Verbs {
		if p.Operation(v) != nil {
			return false
		}
	}
	return true
}

// Operation describes a single API operation on a path.
//
// See: https://spec.openapis.org/oas/v3.0.3#operation-object
type Operation struct {
	Tags        []string             `json:"tags,omitempty" yaml:"tags,omitempty"`
	Summary     string               `json:"summary,omitempty" yaml:"summary,omitempty"`
	Description string               `json:"description,omitempty" yaml:"description,omitempty"`
	OperationID string               `json:"operationId,omitempty" yaml:"operationId,omitempty"`
	Parameters  []*Parameter         `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	RequestBody *RequestBody         `json:"requestBody,omitempty" yaml:"requestBody,omitempty"`
	Responses   map[string]*Response `json:"responses" yaml:"responses"`
	Deprecated  bool                 `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
}

// Parameter describes a single operation parameter. A parameter with Ref set
// is a reference object and carries no other field.
//
// See: https://spec.openapis.org/oas/v3.0.3#parameter-object
type Parameter struct {
	Ref             string         `json:"$ref,omitempty" yaml:"$ref,omitempty"`
	Name            string         `json:"name,omitempty" yaml:"name,omitempty"`
	In              string         `json:"in,omitempty" yaml:"in,omitempty"`
	Description     string         `json:"description,omitempty" yaml:"description,omitempty"`
	Required        bool           `json:"required,omitempty" yaml:"required,omitempty"`
	Deprecated      bool           `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
	AllowEmptyValue bool           `json:"allowEmptyValue,omitempty" yaml:"allowEmptyValue,omitempty"`
	Style           string         `json:"style,omitempty" yaml:"style,omitempty"`
	Explode         *bool          `json:"explode,omitempty" yaml:"explode,omitempty"`
	AllowReserved   bool           `json:"allowReserved,omitempty" yaml:"allowReserved,omitempty"`
	Schema          map[string]any `json:"schema,omitempty" yaml:"schema,omitempty"`
	Example         any            `json:"example,omitempty" yaml:"example,omitempty"`
	Examples        map[string]any `json:"examples,omitempty" yaml:"examples,omitempty"`
}

// RequestBody describes a single request body, or references one.
//
// See: https://spec.openapis.org/oas/v3.0.3#request-body-object
type RequestBody struct {
	Ref         string                `json:"$ref,omitempty" yaml:"$ref,omitempty"`
	Description string                `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool                  `json:"required,omitempty" yaml:"required,omitempty"`
	Content     map[string]*MediaType `json:"content,omitempty" yaml:"content,omitempty"`
}

// Response describes a single response from an API operation.
//
// See: https://spec.openapis.org/oas/v3.0.3#response-object
type Response struct {
	Description string                `json:"description" yaml:"description"`
	Headers     map[string]*Header    `json:"headers,omitempty" yaml:"headers,omitempty"`
	Content     map[string]*MediaType `json:"content,omitempty" yaml:"content,omitempty"`
}

// MediaType describes a body schema for one media type.
//
// See: https://spec.openapis.org/oas/v3.0.3#media-type-object
type MediaType struct {
	Schema   map[string]any `json:"schema,omitempty" yaml:"schema,omitempty"`
	Example  any            `json:"example,omitempty" yaml:"example,omitempty"`
	Examples map[string]any `json:"examples,omitempty" yaml:"examples,omitempty"`
	Encoding map[string]any `json:"encoding,omitempty" yaml:"encoding,omitempty"`
}

// Header describes a single response header.
//
// See: https://spec.openapis.org/oas/v3.0.3#header-object
type Header struct {
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool           `json:"required,omitempty" yaml:"required,omitempty"`
	Deprecated  bool           `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
	Style       string         `json:"style,omitempty" yaml:"style,omitempty"`
	Explode     *bool          `json:"explode,omitempty" yaml:"explode,omitempty"`
	Schema      map[string]any `json:"schema,omitempty" yaml:"schema,omitempty"`
	Example     any            `json:"example,omitempty" yaml:"example,omitempty"`
}

// Components holds reusable objects keyed by category and name.
//
// See: https://spec.openapis.org/oas/v3.0.3#components-object
type Components struct {
	Schemas         map[string]any `json:"schemas,omitempty" yaml:"schemas,omitempty"`
	Responses       map[string]any `json:"responses,omitempty" yaml:"responses,omitempty"`
	Parameters      map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Examples        map[string]any `json:"examples,omitempty" yaml:"examples,omitempty"`
	RequestBodies   map[string]any `json:"requestBodies,omitempty" yaml:"requestBodies,omitempty"`
	Headers         map[string]any `json:"headers,omitempty" yaml:"headers,omitempty"`
	SecuritySchemes map[string]any `json:"securitySchemes,omitempty" yaml:"securitySchemes,omitempty"`
	Links           map[string]any `json:"links,omitempty" yaml:"links,omitempty"`
	Callbacks       map[string]any `json:"callbacks,omitempty" yaml:"callbacks,omitempty"`
}

// category returns the map for a component category, creating it.
func (c *Components) category(name string) map[string]any {
	var slot *map[string]any
	switch name {
	case "schemas":
		slot = &c.Schemas
	case "responses":
		slot = &c.Responses
	case "parameters":
		slot = &c.Parameters
	case "examples":
		slot = &c.Examples
	case "requestBodies":
		slot = &c.RequestBodies
	case "headers":
		slot = &c.Headers
	case "securitySchemes":
		slot = &c.SecuritySchemes
	case "links":
		slot = &c.Links
	case "callbacks":
		slot = &c.Callbacks
	default:
		return nil
	}
	if *slot == nil {
		*slot = make(map[string]any)
	}
	return *slot
}

// isEmpty reports whether every category is empty.
func (c *Components) isEmpty() bool {
	return len(c.Schemas) == 0 &&
		len(c.Responses) == 0 &&
		len(c.Parameters) == 0 &&
		len(c.Examples) == 0 &&
		len(c.RequestBodies) == 0 &&
		len(c.Headers) == 0 &&
		len(c.SecuritySchemes) == 0 &&
		len(c.Links) == 0 &&
		len(c.Callbacks) == 0
}

// decodeProps copies known fields of a property bag into v through JSON.
// Unknown keys are ignored.
func decodeProps(props map[string]any, v any) error {
	if len(props) == 0 {
		return nil
	}
	data, err := json.Marshal(props)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
