// Package resilience paces outbound work.
//
// RateLimiter is a token bucket that never blocks: callers ask Allow and,
// when refused, fold Delay into their poll timeout.
//
//	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{Rate: 20, Burst: 5})
//	for len(pending) > 0 && rl.Allow() {
//	    m.SendRequest(pending[0], req)
//	    pending = pending[1:]
//	}
//	timeout = min(timeout, rl.Delay())
package resilience
