package extractor

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hszk-dev/mediacache/internal/domain/model"
)

// platformLimiter throttles extractor invocations per platform. Bursts of
// requests to one origin are what get a server IP blocked.
type platformLimiter struct {
	mu        sync.Mutex
	perMinute int
	limiters  map[model.Platform]*rate.Limiter
}

func newPlatformLimiter(perMinute int) *platformLimiter {
	return &platformLimiter{
		perMinute: perMinute,
		limiters:  make(map[model.Platform]*rate.Limiter),
	}
}

// Wait blocks until platform may be called again or ctx is done.
func (l *platformLimiter) Wait(ctx context.Context, platform model.Platform) error {
	if l == nil || l.perMinute <= 0 {
		return nil
	}
	return l.get(platform).Wait(ctx)
}

func (l *platformLimiter) get(platform model.Platform) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[platform]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMinute)), l.perMinute)
		l.limiters[platform] = limiter
	}
	return limiter
}
