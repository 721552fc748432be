package security

import (
	"container/list"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

const defaultMaxLimiters = 10000

type limiterEntry struct {
	ip      string
	limiter *rate.Limiter
}

// IPRateLimiter : token bucket на каждый IP, самые старые записи вытесняются по LRU
type IPRateLimiter struct {
	mu         sync.Mutex
	limiters   map[string]*list.Element
	lru        *list.List
	rate       rate.Limit
	burst      int
	maxEntries int
}

func NewIPRateLimiter(requestsPerSecond float64, burst int) *IPRateLimiter {
	return &IPRateLimiter{
		limiters:   make(map[string]*list.Element),
		lru:        list.New(),
		rate:       rate.Limit(requestsPerSecond),
		burst:      burst,
		maxEntries: defaultMaxLimiters,
	}
}

func (l *IPRateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if elem, ok := l.limiters[ip]; ok {
		l.lru.MoveToFront(elem)
		return elem.Value.(*limiterEntry).limiter.Allow()
	}

	if len(l.limiters) >= l.maxEntries {
		if oldest := l.lru.Back(); oldest != nil {
			delete(l.limiters, oldest.Value.(*limiterEntry).ip)
			l.lru.Remove(oldest)
		}
	}

	entry := &limiterEntry{ip: ip, limiter: rate.NewLimiter(l.rate, l.burst)}
	l.limiters[ip] = l.lru.PushFront(entry)
	return entry.limiter.Allow()
}

// Middleware : отвечает 429 temporarily_unavailable при превышении лимита.
// IP берется из RemoteAddr, за прокси его выставляет middleware.RealIP.
func (l *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		ip := clientIP(request)
		if !l.Allow(ip) {
			slog.Warn("превышен лимит запросов", slog.String("ip", ip), slog.String("path", request.URL.Path))
			writer.Header().Set("Content-Type", "application/json")
			writer.Header().Set("Retry-After", "1")
			writer.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(writer).Encode(bearerError{
				Error:            "temporarily_unavailable",
				ErrorDescription: "too many requests",
			})
			return
		}
		next.ServeHTTP(writer, request)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
