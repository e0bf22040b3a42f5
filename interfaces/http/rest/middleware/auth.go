package middleware

import (
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"deepcae-backend/pkg/auth"
	"deepcae-backend/pkg/common"
)

// AuthConfig bundles the token validator with the request limiters.
// Nil limiters disable the corresponding check.
type AuthConfig struct {
	Validator   *auth.Validator
	IPLimiter   *auth.IPRateLimiter
	UserLimiter *auth.UserRateLimiter
}

// Authenticate validates bearer tokens and stamps the caller identity
// into the request context. The IP limiter runs before validation so
// unauthenticated floods are cut off early; the user limiter runs after
// it, keyed by subject.
func Authenticate(cfg AuthConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.IPLimiter != nil {
				allowed, err := cfg.IPLimiter.Allow(r.Context(), clientIP(r))
				if err != nil {
					logger.Warn("IP rate limiter failed", zap.Error(err))
				} else if !allowed {
					common.RespondErrorStatus(w, r, http.StatusTooManyRequests, "RATE_LIMIT", "too many requests")
					return
				}
			}

			header := r.Header.Get("Authorization")
			if header == "" {
				common.RespondErrorStatus(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing authorization header")
				return
			}

			claims, err := cfg.Validator.ValidateToken(header)
			if err != nil {
				logger.Debug("Token rejected", zap.Error(err))
				common.RespondErrorStatus(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token")
				return
			}

			if cfg.UserLimiter != nil {
				allowed, err := cfg.UserLimiter.Allow(r.Context(), claims.UserID)
				if err != nil {
					logger.Warn("User rate limiter failed", zap.Error(err))
				} else if !allowed {
					common.RespondErrorStatus(w, r, http.StatusTooManyRequests, "RATE_LIMIT", "too many requests")
					return
				}
			}

			ctx := common.WithUserID(r.Context(), claims.UserID)
			ctx = common.WithUserEmail(ctx, claims.Email)
			ctx = common.WithUserRoles(ctx, claims.Roles)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// clientIP prefers proxy headers so limits key on the real client even
// behind a load balancer.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	if real := r.Header.Get("X-Real-Ip"); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
