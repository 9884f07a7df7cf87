package rest

import (
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/vitalvas/restdoc/openapi"
)

// App routes requests to resources and serves their OpenAPI document.
//
// It implements the http.Handler interface:
//
//	app, err := rest.New(rest.Config{Title: "Pets"})
//	app.Route("/pets/<int:id>", pet)
//	http.ListenAndServe(":8080", app)
type App struct {
	cfg     Config
	spec    *openapi.Spec
	logger  *slog.Logger
	metrics *Metrics

	mu     sync.RWMutex
	routes []*route

	docsMu   sync.Mutex
	docsFor  *openapi.Document
	docsJSON []byte
	docsYAML []byte
}

// New creates an application. The base model is loaded once here.
func New(cfg Config, opts ...Option) (*App, error) {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	baseModel := o.baseModel
	if baseModel == nil && cfg.BaseModelSchema != "" {
		baseModel = cfg.BaseModelSchema
	}
	resolver, err := openapi.ResolverFrom(baseModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load base model: %w", err)
	}

	app := &App{
		cfg:     cfg,
		logger:  o.logger,
		metrics: o.metrics,
	}

	app.spec = openapi.NewSpec(cfg.info(),
		openapi.WithServer(openapi.Server{URL: cfg.serverURL()}),
		openapi.WithBaseModel(resolver),
		openapi.WithLogger(o.logger),
		openapi.WithValidateByDefault(cfg.validateByDefault()),
		openapi.WithBuildObserver(o.metrics.observeBuild),
	)

	if !cfg.DisableDocs {
		if err := app.registerDocs(); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Spec returns the document assembler.
func (a *App) Spec() *openapi.Spec {
	return a.spec
}

// Validators returns the validator registry.
func (a *App) Validators() *openapi.Registry {
	return a.spec.Validators()
}

// Defaults returns the documentation applied to every resource.
func (a *App) Defaults() *openapi.ResourceDoc {
	return a.spec.Defaults()
}

// Route mounts a documented resource at path. methods, when given, restrict
// the methods routed and documented.
func (a *App) Route(path string, res *Resource, methods ...string) error {
	rt, err := a.addRoute(path, res, methods, true)
	if err != nil {
		return err
	}
	a.spec.Register(path, res.Doc(), res.Methods(), rt.allowed...)
	return nil
}

// HandleFunc mounts an undocumented handler at path for methods (default
// GET).
func (a *App) HandleFunc(path string, f func(http.ResponseWriter, *http.Request), methods ...string) error {
	if len(methods) == 0 {
		methods = []string{http.MethodGet}
	}
	res := NewResource("")
	for _, m := range methods {
		res.HandleFunc(m, f)
	}
	_, err := a.addRoute(path, res, nil, false)
	return err
}

// Group returns a blueprint mounting routes under prefix.
func (a *App) Group(prefix string) *Blueprint {
	return &Blueprint{app: a, prefix: strings.TrimRight(prefix, "/")}
}

func (a *App) addRoute(path string, res *Resource, methods []string, documented bool) (*route, error) {
	pattern, vars, err := openapi.RoutePattern(path)
	if err != nil {
		return nil, err
	}

	rt := &route{
		app:        a,
		template:   path,
		pattern:    pattern,
		vars:       vars,
		resource:   res,
		documented: documented,
	}
	for _, m := range methods {
		rt.allowed = append(rt.allowed, strings.ToUpper(m))
	}

	a.mu.Lock()
	a.routes = append(a.routes, rt)
	a.mu.Unlock()

	return rt, nil
}

// ServeHTTP dispatches the request to the first matching route. A path
// match without a method match replies 405 with the Allow header.
func (a *App) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	a.mu.RLock()
	routes := a.routes
	a.mu.RUnlock()

	var allow []string
	for _, rt := range routes {
		values, ok := rt.match(req.URL.Path)
		if !ok {
			continue
		}

		h := rt.handler(req.Method)
		if h == nil {
			allow = append(allow, rt.allow()...)
			continue
		}

		for name, value := range values {
			req.SetPathValue(name, value)
		}

		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		a.serve(rec, req, h)
		a.metrics.observeRequest(rt.resource.Name(), req.Method, rec.code)
		return
	}

	if len(allow) > 0 {
		w.Header().Set("Allow", strings.Join(uniqueSorted(allow), ", "))
		a.metrics.observeRequest("", req.Method, http.StatusMethodNotAllowed)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	a.metrics.observeRequest("", req.Method, http.StatusNotFound)
	http.NotFound(w, req)
}

// serve runs h and turns a panic into 500 Internal Server Error.
func (a *App) serve(w *statusRecorder, req *http.Request, h http.Handler) {
	defer func() {
		if rv := recover(); rv != nil {
			if rv == http.ErrAbortHandler {
				panic(rv)
			}
			a.logger.Error("handler panic",
				"method", req.Method,
				"path", req.URL.Path,
				"panic", rv,
			)
			if !w.wrote {
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}
	}()

	h.ServeHTTP(w, req)
}

// Blueprint registers routes under a common prefix.
type Blueprint struct {
	app    *App
	prefix string
}

// Route mounts a documented resource at prefix+path.
func (b *Blueprint) Route(path string, res *Resource, methods ...string) error {
	return b.app.Route(b.prefix+path, res, methods...)
}

// HandleFunc mounts an undocumented handler at prefix+path.
func (b *Blueprint) HandleFunc(path string, f func(http.ResponseWriter, *http.Request), methods ...string) error {
	return b.app.HandleFunc(b.prefix+path, f, methods...)
}

// Group returns a nested blueprint.
func (b *Blueprint) Group(prefix string) *Blueprint {
	return &Blueprint{app: b.app, prefix: b.prefix + strings.TrimRight(prefix, "/")}
}

// route is a compiled path template bound to a resource.
type route struct {
	app        *App
	template   string
	pattern    *regexp.Regexp
	vars       []openapi.PathVar
	resource   *Resource
	allowed    []string
	documented bool

	once     sync.Once
	table    *openapi.ResolvedDoc
	tableErr error

	validatorsMu sync.Mutex
	validators   map[string]*openapi.Validator
}

// match returns the variable values when path matches the template and
// every value passes its converter check.
func (rt *route) match(path string) (map[string]string, bool) {
	m := rt.pattern.FindStringSubmatch(path)
	if m == nil {
		return nil, false
	}

	values := make(map[string]string, len(rt.vars))
	for _, v := range rt.vars {
		value := m[rt.pattern.SubexpIndex(v.Name)]
		if !v.MatchValue(value) {
			return nil, false
		}
		values[v.Name] = value
	}
	return values, true
}

// methods returns the handled methods the route allows.
func (rt *route) methods() []string {
	native := rt.resource.Methods()
	if len(rt.allowed) == 0 {
		return native
	}
	var out []string
	for _, m := range native {
		if slices.Contains(rt.allowed, m) {
			out = append(out, m)
		}
	}
	return out
}

// allow returns the methods advertised in the Allow header.
func (rt *route) allow() []string {
	methods := rt.methods()
	if slices.Contains(methods, http.MethodGet) && !slices.Contains(methods, http.MethodHead) {
		methods = append(methods, http.MethodHead)
	}
	if !slices.Contains(methods, http.MethodOptions) {
		methods = append(methods, http.MethodOptions)
	}
	return methods
}

// handler returns the handler for method. HEAD falls back to GET and OPTIONS
// is answered automatically when the resource has no handler for it.
func (rt *route) handler(method string) http.Handler {
	methods := rt.methods()

	verb := method
	if !slices.Contains(methods, verb) {
		switch {
		case method == http.MethodHead && slices.Contains(methods, http.MethodGet):
			verb = http.MethodGet
		case method == http.MethodOptions:
			return rt.options()
		default:
			return nil
		}
	}

	h := rt.resource.handlers[verb]
	if !rt.documented {
		return h
	}
	return rt.app.validating(rt, verb, h)
}

func (rt *route) options() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Allow", strings.Join(uniqueSorted(rt.allow()), ", "))
		w.WriteHeader(http.StatusNoContent)
	})
}

// resolved returns the documentation used at dispatch, resolved once.
func (rt *route) resolved() (*openapi.ResolvedDoc, error) {
	rt.once.Do(func() {
		rt.table, rt.tableErr = rt.app.spec.Resolve(rt.template, rt.resource.Doc(), rt.methods())
	})
	return rt.table, rt.tableErr
}

// validator returns the validator of an expected body, created once per
// method and content type.
func (rt *route) validator(verb string, expect openapi.ExpectSpec) (*openapi.Validator, error) {
	key := verb + " " + expect.ContentType

	rt.validatorsMu.Lock()
	defer rt.validatorsMu.Unlock()

	if v, ok := rt.validators[key]; ok {
		return v, nil
	}

	v, err := rt.app.spec.ValidatorFor(expect.Validator)
	if err != nil {
		return nil, err
	}
	if rt.validators == nil {
		rt.validators = make(map[string]*openapi.Validator)
	}
	rt.validators[key] = v
	return v, nil
}

func uniqueSorted(methods []string) []string {
	seen := make(map[string]bool, len(methods))
	var out []string
	for _, m := range methods {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	code  int
	wrote bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wrote {
		r.code = code
		r.wrote = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wrote = true
	return r.ResponseWriter.Write(b)
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
