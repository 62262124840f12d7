package middleware

import (
	"net/http"
	"strings"
)

// AuthRedirectMiddleware redirects unauthenticated users to the login page
// for the dashboard pages under /admin/. The public report form stays open.
func AuthRedirectMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/admin/") {
				next.ServeHTTP(w, r)
				return
			}

			// Assets referenced by the login page itself
			publicPaths := []string{
				"/admin/login.html",
				"/admin/js/",
				"/admin/css/",
				"/admin/fonts/",
				"/admin/images/",
			}

			for _, path := range publicPaths {
				if strings.HasPrefix(r.URL.Path, path) {
					next.ServeHTTP(w, r)
					return
				}
			}

			cookie, err := r.Cookie(AuthCookieName)
			if err != nil || cookie.Value == "" {
				http.Redirect(w, r, "/admin/login.html", http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
