package rest

import (
	"net/http"
	"strconv"
	"strings"
)

// crossDomain sets the cross-origin headers for a public, read-only
// endpoint: any origin, the given methods and a preflight max age.
//
// See: https://fetch.spec.whatwg.org/#http-cors-protocol
func crossDomain(methods []string, maxAge int, next http.Handler) http.Handler {
	allowMethods := strings.Join(uniqueSorted(methods), ", ")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", allowMethods)
		if maxAge > 0 {
			h.Set("Access-Control-Max-Age", strconv.Itoa(maxAge))
		}
		if reqHeaders := r.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" {
			h.Set("Access-Control-Allow-Headers", reqHeaders)
		}

		next.ServeHTTP(w, r)
	})
}
