package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	gojwt "github.com/golang-jwt/jwt/v5"

	apperrors "github.com/kbukum/voicegate/errors"
)

// AuthConfig configures bearer token authentication. Tokens are HMAC-signed
// JWTs verified with Secret.
type AuthConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Secret   string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	Issuer   string `yaml:"issuer" mapstructure:"issuer"`
	Audience string `yaml:"audience" mapstructure:"audience"`
	// SkipPaths are URL path prefixes that bypass authentication.
	SkipPaths []string `yaml:"skip_paths" mapstructure:"skip_paths"`
}

type claimsKey struct{}

// ClaimsFromContext returns the verified claims stored by Auth.
func ClaimsFromContext(ctx context.Context) (gojwt.MapClaims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(gojwt.MapClaims)
	return claims, ok
}

// Auth returns middleware that rejects requests without a valid bearer
// token. Verified claims are stored in the request context.
func Auth(cfg AuthConfig) Middleware {
	opts := []gojwt.ParserOption{gojwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if cfg.Issuer != "" {
		opts = append(opts, gojwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, gojwt.WithAudience(cfg.Audience))
	}
	parser := gojwt.NewParser(opts...)
	key := []byte(cfg.Secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipAuth(r.URL.Path, cfg.SkipPaths) {
				next.ServeHTTP(w, r)
				return
			}

			scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				writeError(w, apperrors.Unauthorized("Authorization header must be a bearer token."))
				return
			}

			claims := gojwt.MapClaims{}
			_, err := parser.ParseWithClaims(strings.TrimSpace(token), claims, func(*gojwt.Token) (interface{}, error) {
				return key, nil
			})
			switch {
			case errors.Is(err, gojwt.ErrTokenExpired):
				writeError(w, apperrors.TokenExpired())
				return
			case err != nil:
				writeError(w, apperrors.InvalidToken().WithCause(err))
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
		})
	}
}

func skipAuth(path string, skip []string) bool {
	if probePaths[path] || path == "/info" {
		return true
	}
	for _, prefix := range skip {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
