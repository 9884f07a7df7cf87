package rest

import (
	"net/http"
	"strings"

	"github.com/vitalvas/restdoc/openapi"
)

// Resource is a routable unit exposing one handler per HTTP method, with
// the documentation of those handlers.
type Resource struct {
	name     string
	doc      *openapi.ResourceDoc
	handlers map[string]http.Handler
}

// NewResource creates a resource without handlers.
func NewResource(name string) *Resource {
	return &Resource{
		name:     name,
		doc:      openapi.NewResourceDoc(name),
		handlers: make(map[string]http.Handler),
	}
}

// Name returns the resource name.
func (r *Resource) Name() string {
	return r.name
}

// Doc returns the documentation builder of the resource.
func (r *Resource) Doc() *openapi.ResourceDoc {
	return r.doc
}

// Handle sets the handler for method.
func (r *Resource) Handle(method string, h http.Handler) *Resource {
	r.handlers[strings.ToUpper(method)] = h
	return r
}

// HandleFunc sets the handler function for method.
func (r *Resource) HandleFunc(method string, f func(http.ResponseWriter, *http.Request)) *Resource {
	return r.Handle(method, http.HandlerFunc(f))
}

// Get sets the GET handler.
func (r *Resource) Get(f func(http.ResponseWriter, *http.Request)) *Resource {
	return r.HandleFunc(http.MethodGet, f)
}

// Post sets the POST handler.
func (r *Resource) Post(f func(http.ResponseWriter, *http.Request)) *Resource {
	return r.HandleFunc(http.MethodPost, f)
}

// Put sets the PUT handler.
func (r *Resource) Put(f func(http.ResponseWriter, *http.Request)) *Resource {
	return r.HandleFunc(http.MethodPut, f)
}

// Patch sets the PATCH handler.
func (r *Resource) Patch(f func(http.ResponseWriter, *http.Request)) *Resource {
	return r.HandleFunc(http.MethodPatch, f)
}

// Delete sets the DELETE handler.
func (r *Resource) Delete(f func(http.ResponseWriter, *http.Request)) *Resource {
	return r.HandleFunc(http.MethodDelete, f)
}

// Methods returns the methods with a handler in document order.
func (r *Resource) Methods() []string {
	var methods []string
	for _, v := range openapi.Verbs {
		if _, ok := r.handlers[v]; ok {
			methods = append(methods, v)
		}
	}
	return methods
}

// Extend creates a resource that starts with the handlers of r and
// inherits its documentation.
func (r *Resource) Extend(name string) *Resource {
	child := &Resource{
		name:     name,
		doc:      r.doc.Extend(name),
		handlers: make(map[string]http.Handler, len(r.handlers)),
	}
	for m, h := range r.handlers {
		child.handlers[m] = h
	}
	return child
}
