package auth

import (
	"net/http"
	"strings"
)

// LegacyTokenHeader is the header older clients send the raw token in.
const LegacyTokenHeader = "x-token"

// Skipper allows callers to bypass authentication for specific requests.
type Skipper func(r *http.Request) bool

// Middleware provides HTTP middleware for bearer-token validation.
type Middleware struct {
	Config  Config
	Skipper Skipper
	// OnError writes the rejection; http.Error is used when nil.
	OnError func(w http.ResponseWriter, r *http.Request, err error)
}

// NewMiddleware constructs a middleware with optional skipper.
func NewMiddleware(cfg Config, skipper Skipper) Middleware {
	return Middleware{Config: cfg, Skipper: skipper}
}

// SkipPaths returns a Skipper matching exact request paths.
func SkipPaths(paths ...string) Skipper {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return func(r *http.Request) bool {
		_, ok := set[r.URL.Path]
		return ok
	}
}

// Wrap wraps an http.Handler with authentication.
func (m Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || (m.Skipper != nil && m.Skipper(r)) {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := m.parseRequest(r)
		if err != nil {
			if m.OnError != nil {
				m.OnError(w, r, err)
				return
			}
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

func (m Middleware) parseRequest(r *http.Request) (*Claims, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			return nil, ErrInvalidToken
		}
		return Parse(header[len("Bearer "):], m.Config)
	}
	if token := r.Header.Get(LegacyTokenHeader); token != "" {
		return Parse(token, m.Config)
	}
	return nil, ErrMissingToken
}
