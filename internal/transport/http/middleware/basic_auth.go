package middleware

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ghga-de/auth-adapter/internal/infra/config"
)

// AllowlistedKey marks requests whose path bypassed the access gate; the
// exchange handler echoes their Authorization header verbatim.
const AllowlistedKey = "allowlisted"

type basicCredential struct {
	user string
	pass string
}

// AccessGate guards the whole site behind HTTP Basic credentials, with
// path allow-lists for unauthenticated access. Without configured
// credentials the gate is disabled and every request passes.
type AccessGate struct {
	credentials []basicCredential
	realm       string
	readPaths   []string
	writePaths  []string
}

// NewAccessGate parses the configured credential string, one or more
// user:password pairs separated by whitespace.
func NewAccessGate(cfg config.BasicSettings) (*AccessGate, error) {
	gate := &AccessGate{
		realm:      cfg.Realm,
		readPaths:  cfg.AllowReadPaths,
		writePaths: cfg.AllowWritePaths,
	}
	if gate.realm == "" {
		gate.realm = "Restricted"
	}

	for _, pair := range strings.Fields(cfg.Credentials) {
		user, pass, ok := strings.Cut(pair, ":")
		if !ok || user == "" {
			return nil, fmt.Errorf("malformed basic credential %q", pair)
		}
		gate.credentials = append(gate.credentials, basicCredential{user: user, pass: pass})
	}

	return gate, nil
}

// Enabled reports whether any credentials are configured.
func (g *AccessGate) Enabled() bool {
	return len(g.credentials) > 0
}

// Handler returns the gin middleware enforcing the gate.
func (g *AccessGate) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if g.pathAllowed(c.Request.Method, c.Request.URL.Path) {
			c.Set(AllowlistedKey, true)
			c.Next()
			return
		}

		if !g.Enabled() {
			c.Next()
			return
		}

		user, pass, ok := basicCredentials(c.Request)
		if !ok || !g.match(user, pass) {
			c.Header("WWW-Authenticate", fmt.Sprintf("Basic realm=%q", g.realm))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Incorrect username or password",
			})
			return
		}

		// The Basic credential occupied the Authorization header; it must
		// not leak into the bearer extraction downstream.
		c.Request.Header.Set("Authorization", "")

		c.Next()
	}
}

// match compares the supplied credential against every configured pair in
// constant time.
func (g *AccessGate) match(user, pass string) bool {
	supplied := []byte(user + ":" + pass)

	valid := false
	for _, cred := range g.credentials {
		expected := []byte(cred.user + ":" + cred.pass)
		if subtle.ConstantTimeCompare(supplied, expected) == 1 {
			valid = true
		}
	}
	return valid
}

// pathAllowed reports whether the path may skip the credential check.
// Read patterns cover GET, HEAD and OPTIONS; write patterns cover every
// method, reads included.
func (g *AccessGate) pathAllowed(method, path string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		if matchAny(g.readPaths, path) {
			return true
		}
	}
	return matchAny(g.writePaths, path)
}

func matchAny(patterns []string, path string) bool {
	for _, pattern := range patterns {
		if matchPath(pattern, path) {
			return true
		}
	}
	return false
}

// matchPath supports two wildcard forms: a trailing "/*" matches any
// suffix, and a single "*" segment matches exactly one path segment.
func matchPath(pattern, path string) bool {
	if pattern == path {
		return true
	}

	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "*")
		return strings.HasPrefix(path, prefix) && len(path) > len(prefix)
	}

	if strings.Contains(pattern, "*") {
		patternParts := strings.Split(pattern, "/")
		pathParts := strings.Split(path, "/")
		if len(patternParts) != len(pathParts) {
			return false
		}
		for i, part := range patternParts {
			if part == "*" {
				if pathParts[i] == "" {
					return false
				}
				continue
			}
			if part != pathParts[i] {
				return false
			}
		}
		return true
	}

	return false
}

func basicCredentials(r *http.Request) (string, string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Basic "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", "", false
	}

	decoded, err := base64.StdEncoding.DecodeString(header[len(prefix):])
	if err != nil {
		return "", "", false
	}

	user, pass, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return "", "", false
	}
	return user, pass, true
}
