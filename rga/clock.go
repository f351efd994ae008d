package rga

// lamportClock is a monotonic counter advanced past every seq the replica
// has produced or observed, used to order operations causally during
// replay. Grounded on original_source/src/crdt/primitives/clock.rs's
// LamportClock (tick / update), reduced to exactly the operations
// spec.md's RGA needs — the source file's VectorClock counterpart is not
// adopted (out of scope; see DESIGN.md).
type lamportClock struct {
	time uint64
}

// Time returns the current clock value without advancing it.
func (c *lamportClock) Time() uint64 { return c.time }

// tick advances the clock by one for a local operation and returns the
// new value.
func (c *lamportClock) tick() uint64 {
	c.time++
	return c.time
}

// observe advances the clock to max(local, lastObservedSeq) + 1, the rule
// spec.md §4.2.4 step 7 gives for absorbing a remote operation whose
// highest produced seq is lastObservedSeq.
func (c *lamportClock) observe(lastObservedSeq uint64) uint64 {
	m := c.time
	if lastObservedSeq > m {
		m = lastObservedSeq
	}
	c.time = m + 1
	return c.time
}
