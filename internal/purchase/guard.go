package purchase

import "sync"

// Guard is a single-slot gate: one purchase process-wide, no exceptions.
// Serializing even unrelated purchases is deliberate, since they all share
// one wallet and therefore one sequence number.
type Guard struct {
	mu   sync.Mutex
	busy bool
}

// TryAcquire claims the slot. When it succeeds, the returned release function
// must run on every exit path; it is idempotent so a deferred call is safe
// even if release was already invoked.
func (g *Guard) TryAcquire() (release func(), ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.busy {
		return nil, false
	}
	g.busy = true

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			g.busy = false
			g.mu.Unlock()
		})
	}, true
}

// Busy reports whether a purchase currently holds the slot.
func (g *Guard) Busy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.busy
}
