package tracker

import "net/http"

// Middleware returns HTTP middleware that records a hit for the site on
// every request before passing through. Use it to tombstone a route
// suspected of being dead: mount it on the handler and watch for events.
func (s *Site) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Hit(r.Context(), map[string]string{
			"method": r.Method,
			"path":   r.URL.Path,
		})
		next.ServeHTTP(w, r)
	})
}
