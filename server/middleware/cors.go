package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

// CORSConfig holds CORS middleware configuration.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
	// ExposedHeaders lets browsers read the provider and voice id headers
	// set by the synthesize route.
	ExposedHeaders   []string `yaml:"exposed_headers" mapstructure:"exposed_headers"`
	AllowCredentials bool     `yaml:"allow_credentials" mapstructure:"allow_credentials"`
	// MaxAge is the preflight cache lifetime in seconds. Zero omits the header.
	MaxAge int `yaml:"max_age" mapstructure:"max_age"`
}

// CORS answers OPTIONS with 204 and decorates every response whose Origin
// is allowed. The header values are joined once here.
func CORS(cfg *CORSConfig) Middleware {
	static := http.Header{}
	setJoined(static, "Access-Control-Allow-Methods", cfg.AllowedMethods)
	setJoined(static, "Access-Control-Allow-Headers", cfg.AllowedHeaders)
	setJoined(static, "Access-Control-Expose-Headers", cfg.ExposedHeaders)
	if cfg.AllowCredentials {
		static.Set("Access-Control-Allow-Credentials", "true")
	}
	if cfg.MaxAge > 0 {
		static.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
	}
	anyOrigin := slices.Contains(cfg.AllowedOrigins, "*")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (anyOrigin || slices.Contains(cfg.AllowedOrigins, origin)) {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
				for k, v := range static {
					h[k] = v
				}
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func setJoined(h http.Header, key string, values []string) {
	if len(values) > 0 {
		h.Set(key, strings.Join(values, ", "))
	}
}
