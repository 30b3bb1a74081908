package handlers

import (
	"net/http"
	"strings"
)

const bearerPrefix = "Bearer "

// bearerToken extracts an external access token from the Authorization
// header, falling back to X-Authorization for setups where the primary
// header is occupied by the site password. The scheme prefix must match
// exactly, including case; anything else is treated as absent.
func bearerToken(r *http.Request) string {
	for _, name := range []string{"Authorization", "X-Authorization"} {
		header := r.Header.Get(name)
		if len(header) > len(bearerPrefix) && strings.HasPrefix(header, bearerPrefix) {
			return strings.TrimSpace(header[len(bearerPrefix):])
		}
	}
	return ""
}
