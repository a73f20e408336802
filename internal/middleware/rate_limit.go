package middleware

import (
	"net/http"
	"time"

	"github.com/BradenHooton/staffguard/internal/auth"
	pkghttp "github.com/BradenHooton/staffguard/pkg/http"
	"github.com/go-chi/httprate"
)

// RateLimitConfig holds the coarse HTTP throttle applied in front of the API.
// This protects the service itself; login throttling is the rate limiter's job.
type RateLimitConfig struct {
	RequestsPerMinute int
	IPConfig          *pkghttp.IPConfig
}

// RateLimitByIP limits requests per peer address, honouring trusted proxies only
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		1*time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return pkghttp.ExtractClientIP(r, config.IPConfig), nil
		}),
		httprate.WithLimitHandler(writeRateLimited),
	)
}

// RateLimitByService limits requests per calling service.
// Must be used after auth.AuthMiddleware; unauthenticated requests fall back to the peer address.
func RateLimitByService(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		1*time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if claims := auth.GetServiceFromContext(r); claims != nil {
				return "service:" + claims.Service, nil
			}
			return "ip:" + pkghttp.ExtractClientIP(r, config.IPConfig), nil
		}),
		httprate.WithLimitHandler(writeRateLimited),
	)
}

func writeRateLimited(w http.ResponseWriter, r *http.Request) {
	pkghttp.WriteTooManyRequests(w, "rate limit exceeded")
}
