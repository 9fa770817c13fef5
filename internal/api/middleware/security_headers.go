package middleware

import "net/http"

// ResponseSecurityHeaders are set on every API response. They match the headers the
// passive scanner expects from audited sites.
var ResponseSecurityHeaders = map[string]string{
	"Strict-Transport-Security": "max-age=31536000; includeSubDomains; preload",
	"X-Frame-Options":           "SAMEORIGIN",
	"X-Content-Type-Options":    "nosniff",
	"Referrer-Policy":           "strict-origin-when-cross-origin",
	"Content-Security-Policy":   "default-src 'self'; script-src 'self'; object-src 'none';",
	"X-XSS-Protection":          "1; mode=block",
	"Server":                    "WebScan",
}

// SecurityHeaders sets ResponseSecurityHeaders before the wrapped handler runs, so
// handlers may still override individual values.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for name, value := range ResponseSecurityHeaders {
			h.Set(name, value)
		}
		next.ServeHTTP(w, r)
	})
}
