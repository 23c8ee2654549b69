package session

import "sync/atomic"

// epochGuard versions the current authenticated session. Every asynchronous
// flow captures the epoch when it starts and re-checks it before committing
// its result to shared state; logout bumps the epoch, so anything still in
// flight commits into the void. This is the only cancellation mechanism:
// network calls are never aborted, their effects are just discarded.
type epochGuard struct {
	n atomic.Int64
}

// Current returns the epoch of the session as of now.
func (g *epochGuard) Current() int64 {
	return g.n.Load()
}

// Bump moves the session to the next epoch and returns it. Strictly
// increasing, never reset.
func (g *epochGuard) Bump() int64 {
	return g.n.Add(1)
}

// Valid reports whether a result captured at the given epoch may still be
// applied. Once false for an epoch, it is false forever.
func (g *epochGuard) Valid(captured int64) bool {
	return g.n.Load() == captured
}
