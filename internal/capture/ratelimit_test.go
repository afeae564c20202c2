package capture

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// S6: rate-limiter with rate_limit=30: after a frame at t=0, a start at
// t=10ms arms a timer to fire at t~=33.3-epsilon ms; a start at t=40ms
// issues capture immediately.
func TestRateLimiterScenarioS6(t *testing.T) {
	rl := newRateLimiter(30)
	t0 := time.Unix(0, 0)
	rl.markDone(t0)

	capture, waitUntil := rl.decide(t0.Add(10 * time.Millisecond))
	assert.False(t, capture)
	wantPeriod := time.Duration(float64(time.Second) / 30)
	assert.Equal(t, t0.Add(wantPeriod-rateLimitEpsilon), waitUntil)

	capture, _ = rl.decide(t0.Add(40 * time.Millisecond))
	assert.True(t, capture)
}

func TestRateLimiterFirstCaptureAlwaysImmediate(t *testing.T) {
	rl := newRateLimiter(30)
	capture, _ := rl.decide(time.Unix(0, 0))
	assert.True(t, capture)
}

func TestRateLimiterEpsilonAllowsEarlyFire(t *testing.T) {
	rl := newRateLimiter(30)
	t0 := time.Unix(0, 0)
	rl.markDone(t0)

	period := time.Duration(float64(time.Second) / 30)
	justInsideEpsilon := t0.Add(period - rateLimitEpsilon)
	capture, _ := rl.decide(justInsideEpsilon)
	assert.True(t, capture, "a capture due within epsilon of the period fires immediately")
}

func TestDelaySmootherConvergesAndFloorsAtZero(t *testing.T) {
	s := newDelaySmoother(30)
	t0 := time.Unix(0, 0)

	wait := s.observe(t0, t0.Add(5*time.Millisecond))
	assert.Greater(t, wait, time.Duration(0))

	// A huge observed delay should never produce a negative wait.
	wait = s.observe(t0, t0.Add(time.Second))
	assert.GreaterOrEqual(t, wait, time.Duration(0))
}
