package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"vilo/internal/config"
	"vilo/internal/metrics"
)

const (
	apiKeyHeader = "X-Api-Key"
	tenantKey    = "tenant"
)

// tenantAuth resolves the tenant from the API key header.
func tenantAuth(catalog *config.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(apiKeyHeader)
		if key == "" {
			writeError(c, http.StatusUnauthorized, "missing api key")
			return
		}
		tenant := catalog.Get().TenantByAPIKey(key)
		if tenant == nil {
			writeError(c, http.StatusUnauthorized, "invalid api key")
			return
		}
		c.Set(tenantKey, tenant)
		c.Next()
	}
}

func tenantFrom(c *gin.Context) *config.TenantConfig {
	v, ok := c.Get(tenantKey)
	if !ok {
		return nil
	}
	tenant, _ := v.(*config.TenantConfig)
	return tenant
}

// limiterStore keeps one token bucket per API key.
type limiterStore struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
}

func newLimiterStore(perSecond float64, burst int) *limiterStore {
	if perSecond <= 0 {
		perSecond = 10
	}
	if burst <= 0 {
		burst = 20
	}
	return &limiterStore{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

func (s *limiterStore) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	limiter, ok := s.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(s.limit, s.burst)
		s.limiters[key] = limiter
	}
	return limiter
}

// rateLimit throttles requests per API key. It runs after tenantAuth so only known keys get buckets.
func rateLimit(store *limiterStore, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(apiKeyHeader)
		if !store.get(key).Allow() {
			logger.Warn().Str("tenant", tenantFrom(c).ID).Str("ip", c.ClientIP()).Msg("Rate limit exceeded")
			writeError(c, http.StatusTooManyRequests, "rate limit exceeded; try again later")
			return
		}
		c.Next()
	}
}

// requestLogger logs each request and counts it by route.
func requestLogger(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.IncHTTPRequest(c.Request.Method, route, strconv.Itoa(status))

		ev := logger.Info()
		if status >= http.StatusInternalServerError {
			ev = logger.Error()
		}
		if tenant := tenantFrom(c); tenant != nil {
			ev = ev.Str("tenant", tenant.ID)
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("HTTP request")
	}
}
