package services

import "sync/atomic"

// RateLimitGuard is a write-once stop flag shared by the workers of one run.
type RateLimitGuard struct {
	raised atomic.Bool
}

// Raise sets the flag. It returns true only for the call that raised it.
func (g *RateLimitGuard) Raise() bool {
	return g.raised.CompareAndSwap(false, true)
}

func (g *RateLimitGuard) Raised() bool {
	return g.raised.Load()
}
