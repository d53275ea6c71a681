package netio

import (
	"sync"
	"time"
)

// TokenBucket is the per-session packet-flood guard of §4.1 validation
// pipeline step 5: a classic token bucket refilled at ratePerSecond,
// capped at burst. When a session has exhausted its tokens, the session
// read loop drops the packet and logs it at debug level; no PacketFlood
// violation is recorded and the connection stays open.
type TokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	capacity   float64
	refillRate float64 // tokens per second
	lastRefill time.Time
}

// NewTokenBucket builds a bucket starting full, refilling at
// ratePerSecond up to a burst capacity of the same size.
func NewTokenBucket(ratePerSecond int) *TokenBucket {
	rate := float64(ratePerSecond)
	if rate <= 0 {
		rate = 1
	}
	return &TokenBucket{
		tokens:     rate,
		capacity:   rate,
		refillRate: rate,
		lastRefill: timeNow(),
	}
}

// Allow consumes one token if available and reports whether the packet
// may proceed.
func (b *TokenBucket) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := timeNow()
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.lastRefill = now

	b.tokens += elapsed * b.refillRate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// timeNow is a seam so tests can stub the clock without wall-clock flake.
var timeNow = time.Now
