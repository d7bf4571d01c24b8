package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/httprate"
	"github.com/straye-as/scorecard-api/internal/auth"
	"github.com/straye-as/scorecard-api/internal/config"
	"github.com/straye-as/scorecard-api/internal/domain"
	"go.uber.org/zap"
)

// RateLimiter holds rate limiting middleware and configuration.
// Scorecard computation fans out to the record source, so both limiters sit
// in front of it: LimitByIP globally and Limit after authentication.
type RateLimiter struct {
	cfg            *config.RateLimitConfig
	logger         *zap.Logger
	ipLimiter      func(http.Handler) http.Handler
	userLimiter    func(http.Handler) http.Handler
	whitelistIPs   map[string]bool
	whitelistPaths []string
}

// NewRateLimiter creates a new rate limiter with the given configuration
func NewRateLimiter(cfg *config.RateLimitConfig, logger *zap.Logger) *RateLimiter {
	rl := &RateLimiter{
		cfg:          cfg,
		logger:       logger,
		whitelistIPs: make(map[string]bool, len(cfg.WhitelistIPs)),
	}
	for _, ip := range cfg.WhitelistIPs {
		rl.whitelistIPs[ip] = true
	}
	rl.whitelistPaths = append(rl.whitelistPaths, cfg.WhitelistPaths...)

	rl.ipLimiter = httprate.Limit(
		cfg.RequestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(rl.keyByIP),
		httprate.WithLimitHandler(rl.rateLimitExceededHandler),
	)
	rl.userLimiter = httprate.Limit(
		cfg.RequestsPerMinuteAuth,
		time.Minute,
		httprate.WithKeyFuncs(rl.keyByCaller),
		httprate.WithLimitHandler(rl.rateLimitExceededHandler),
	)

	logger.Info("Rate limiter initialized",
		zap.Bool("enabled", cfg.Enabled),
		zap.Int("requests_per_minute", cfg.RequestsPerMinute),
		zap.Int("requests_per_minute_auth", cfg.RequestsPerMinuteAuth),
		zap.Strings("whitelist_ips", cfg.WhitelistIPs),
		zap.Strings("whitelist_paths", cfg.WhitelistPaths),
	)
	return rl
}

// Limit rate limits authenticated callers per handle (per IP for anonymous requests)
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return rl.wrap(next, func(r *http.Request) func(http.Handler) http.Handler {
		if _, ok := auth.FromContext(r.Context()); ok {
			return rl.userLimiter
		}
		return rl.ipLimiter
	})
}

// LimitByIP returns IP-based rate limiting middleware (for use before auth)
func (rl *RateLimiter) LimitByIP(next http.Handler) http.Handler {
	return rl.wrap(next, func(*http.Request) func(http.Handler) http.Handler {
		return rl.ipLimiter
	})
}

func (rl *RateLimiter) wrap(next http.Handler, pick func(*http.Request) func(http.Handler) http.Handler) http.Handler {
	if !rl.cfg.Enabled {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.isPathWhitelisted(r.URL.Path) || rl.whitelistIPs[clientIP(r)] {
			next.ServeHTTP(w, r)
			return
		}
		pick(r)(next).ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) keyByIP(r *http.Request) (string, error) {
	return "ip:" + clientIP(r), nil
}

// keyByCaller keys JWT users by handle; API key callers share one bucket per acting handle
func (rl *RateLimiter) keyByCaller(r *http.Request) (string, error) {
	userCtx, ok := auth.FromContext(r.Context())
	if !ok || userCtx.Handle.IsZero() {
		return rl.keyByIP(r)
	}
	return string(userCtx.Method) + ":" + userCtx.Handle.String(), nil
}

// clientIP extracts the client IP, preferring proxy headers
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// isPathWhitelisted matches exact paths and "/prefix/*" entries
func (rl *RateLimiter) isPathWhitelisted(path string) bool {
	for _, wp := range rl.whitelistPaths {
		if prefix, ok := strings.CutSuffix(wp, "/*"); ok {
			if strings.HasPrefix(path, prefix) {
				return true
			}
			continue
		}
		if path == wp {
			return true
		}
	}
	return false
}

func (rl *RateLimiter) rateLimitExceededHandler(w http.ResponseWriter, r *http.Request) {
	identity := ""
	if userCtx, ok := auth.FromContext(r.Context()); ok {
		identity = userCtx.Handle.String()
	}
	rl.logger.Warn("rate limit exceeded",
		zap.String("path", r.URL.Path),
		zap.String("method", r.Method),
		zap.String("client_ip", clientIP(r)),
		zap.String("identity", identity),
	)

	w.Header().Set("Retry-After", "60")
	writeProblem(w, http.StatusTooManyRequests, domain.ErrorTypeRateLimited, "Too many requests. Please try again later.")
}
