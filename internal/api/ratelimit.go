package api

import (
	"net"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listoapp/listo/internal/metrics"
)

// rateLimit is a huma middleware that limits requests per client IP.
// Returns 429 Too Many Requests when the limit is exceeded.
func (s *Server) rateLimit(ctx huma.Context, next func(huma.Context)) {
	key := clientIP(ctx.RemoteAddr())

	if !s.limiter.Allow(key) {
		path := ctx.Operation().Path
		metrics.RecordRateLimited(path)
		s.logger.Warn("Rate limit exceeded",
			"ip", key,
			"path", path,
		)
		_ = huma.WriteErr(s.api, ctx, http.StatusTooManyRequests, "Too many requests. Please try again later.")
		return
	}

	next(ctx)
}

// clientIP strips the port from a remote address. chi's RealIP middleware
// has already applied X-Forwarded-For and X-Real-IP.
func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
