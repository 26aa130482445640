package altsound

import "github.com/jsm174/libaltsound/pkg/bitint"

// commandHistory is a small fixed-capacity ring of the most recently
// processed logical commands, exposed via Engine.RecentCommands for
// diagnostics. Indexing is mask-based rather than
// modulo, per the teacher's bit-twiddling convention in pkg/bitint.
type commandHistory struct {
	buf  []uint16
	mask int
	next int
	n    int
}

// newCommandHistory returns a history ring holding at least capacity
// entries, rounded up to the next power of two so its index can be masked.
func newCommandHistory(capacity int) *commandHistory {
	size := bitint.NextPowerOfTwo(capacity)
	return &commandHistory{
		buf:  make([]uint16, size),
		mask: bitint.MaskFor(size),
	}
}

// push records cmd as the most recent command, overwriting the oldest
// entry once the ring is full.
func (h *commandHistory) push(cmd uint16) {
	h.buf[h.next&h.mask] = cmd
	h.next++
	if h.n < len(h.buf) {
		h.n++
	}
}

// recent returns the stored commands, oldest first.
func (h *commandHistory) recent() []uint16 {
	out := make([]uint16, h.n)
	start := h.next - h.n
	for i := 0; i < h.n; i++ {
		out[i] = h.buf[(start+i)&h.mask]
	}
	return out
}
