package app

import "net/http"

// securityHeaders locks the preview down to same-origin resources. Inline
// styles stay allowed since the report carries all of its styling inline.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Permissions-Policy", "geolocation=(), camera=(), microphone=()")
		h.Set("Content-Security-Policy",
			"default-src 'none'; "+
				"style-src 'unsafe-inline'; "+
				"img-src 'self'; "+
				"frame-ancestors 'none'; "+
				"base-uri 'none'")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
