package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/vitalvas/restdoc/openapi"
)

const (
	msgValidationFailed = "Request Body failed validation"
	msgNoContentType    = "Request did not match any expected content type"
)

type bodyContextKey struct{}

// JSONBody returns the request body decoded during validation, or nil when
// the body was not validated as JSON.
func JSONBody(r *http.Request) any {
	return r.Context().Value(bodyContextKey{})
}

// validationFailure is the 400 payload for a rejected body.
type validationFailure struct {
	Message string           `json:"message"`
	Error   *validationCause `json:"error,omitempty"`
}

type validationCause struct {
	Msg    string         `json:"msg"`
	Value  any            `json:"value"`
	Schema map[string]any `json:"schema"`
}

// validating wraps h with the request body check of the method documented
// for verb.
func (a *App) validating(rt *route, verb string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		doc, err := rt.resolved()
		if err != nil {
			a.logger.Error("failed to resolve resource documentation",
				"resource", rt.resource.Name(),
				"path", rt.template,
				"error", err,
			)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		r, ok := a.checkBody(w, r, rt, doc.Method(verb))
		if !ok {
			return
		}

		h.ServeHTTP(w, r)
	})
}

// checkBody enforces the expected bodies of md. A JSON expectation parses
// and validates a JSON request; any other expectation only needs the same
// media type.
func (a *App) checkBody(w http.ResponseWriter, r *http.Request, rt *route, md *openapi.MethodDoc) (*http.Request, bool) {
	if md == nil || !md.Validate || len(md.Expect) == 0 {
		return r, true
	}

	resource := rt.resource.Name()

	mediaType := requestMediaType(r)

	for _, expect := range md.Expect {
		if expect.ContentType == "application/json" && isJSON(mediaType) {
			return a.checkJSON(w, r, rt, md.Verb, expect)
		}
		if expect.ContentType == mediaType {
			return r, true
		}
	}

	a.logger.Error("request did not pass any of the available validations",
		"resource", resource,
		"method", r.Method,
		"content_type", mediaType,
	)
	a.metrics.observeValidationFailure(resource, r.Method)
	ResponseJSON(w, http.StatusBadRequest, validationFailure{Message: msgNoContentType})

	return r, false
}

func (a *App) checkJSON(w http.ResponseWriter, r *http.Request, rt *route, verb string, expect openapi.ExpectSpec) (*http.Request, bool) {
	resource := rt.resource.Name()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, a.cfg.maxBodyBytes()))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.logger.Warn("request body too large",
				"resource", resource,
				"method", r.Method,
				"limit", tooLarge.Limit,
			)
			http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
			return r, false
		}
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return r, false
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		a.reject(w, r, resource, validationCause{Msg: err.Error(), Value: string(body)})
		return r, false
	}

	v, err := rt.validator(verb, expect)
	if err != nil {
		a.logger.Error("failed to create validator", "resource", resource, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return r, false
	}

	if err := v.Validate(data); err != nil {
		var verr *openapi.ValidationError
		if !errors.As(err, &verr) {
			a.logger.Error("failed to validate request body", "resource", resource, "error", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return r, false
		}
		a.reject(w, r, resource, validationCause{
			Msg:    verr.Message,
			Value:  verr.Value,
			Schema: verr.Schema,
		})
		return r, false
	}

	return r.WithContext(context.WithValue(r.Context(), bodyContextKey{}, data)), true
}

func (a *App) reject(w http.ResponseWriter, r *http.Request, resource string, cause validationCause) {
	a.logger.Error("request body failed validation",
		"resource", resource,
		"method", r.Method,
		"message", cause.Msg,
		"value", cause.Value,
	)
	a.metrics.observeValidationFailure(resource, r.Method)

	if cause.Schema == nil {
		cause.Schema = map[string]any{}
	}
	ResponseJSON(w, http.StatusBadRequest, validationFailure{
		Message: msgValidationFailed,
		Error:   &cause,
	})
}

func requestMediaType(r *http.Request) string {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.Split(ct, ";")[0]))
	}
	return mt
}

func isJSON(mediaType string) bool {
	return mediaType == "application/json" ||
		(strings.HasPrefix(mediaType, "application/") && strings.HasSuffix(mediaType, "+json"))
}
