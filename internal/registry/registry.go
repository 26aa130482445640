// Package registry tracks active decoded audio streams behind opaque,
// monotonically-allocated handles. Per the channel-table/registry
// locking design note, Registry performs no locking of its own — the
// caller (internal/chantable.Table) holds one coarse lock around both
// the channel table and the registry for the duration of an operation.
package registry

import "github.com/jsm174/libaltsound/internal/decoder"

// Handle identifies a stream entry. Handles are never reused within a
// process lifetime.
type Handle uint64

// EndOfStreamCallback is invoked exactly once per stream lifetime, from
// the mixing worker, when a non-looping stream runs out of frames.
type EndOfStreamCallback func(handle Handle, user any)

// Entry is a stream's registry record. A pointer returned by Get is
// only valid while the caller's external lock is held.
type Entry struct {
	Source   decoder.Source
	Channels int
	Playing  bool
	Paused   bool

	onEnd    EndOfStreamCallback
	user     any
	endFired bool
}

// Registry is the stream-handle → Entry map.
type Registry struct {
	next    Handle
	entries map[Handle]*Entry
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{next: 1, entries: make(map[Handle]*Entry)}
}

// Create registers a new stream and returns its handle. The new
// stream starts neither playing nor paused.
func (r *Registry) Create(src decoder.Source, onEnd EndOfStreamCallback, user any) Handle {
	h := r.next
	r.next++
	r.entries[h] = &Entry{
		Source:   src,
		Channels: src.Channels(),
		onEnd:    onEnd,
		user:     user,
	}
	return h
}

// Get returns the entry for handle, if it exists.
func (r *Registry) Get(h Handle) (*Entry, bool) {
	e, ok := r.entries[h]
	return e, ok
}

// SetPlaying sets the playing flag for handle. Reports whether the
// handle exists.
func (r *Registry) SetPlaying(h Handle, playing bool) bool {
	e, ok := r.entries[h]
	if !ok {
		return false
	}
	e.Playing = playing
	return true
}

// SetPaused sets the paused flag for handle. Reports whether the
// handle exists.
func (r *Registry) SetPaused(h Handle, paused bool) bool {
	e, ok := r.entries[h]
	if !ok {
		return false
	}
	e.Paused = paused
	return true
}

// SeekZero rewinds handle's decoder to the first frame.
func (r *Registry) SeekZero(h Handle) error {
	e, ok := r.entries[h]
	if !ok {
		return nil
	}
	return e.Source.SeekZero()
}

// Free closes handle's decoder and removes its entry. Reports whether
// the handle existed.
func (r *Registry) Free(h Handle) bool {
	e, ok := r.entries[h]
	if !ok {
		return false
	}
	e.Source.Close()
	delete(r.entries, h)
	return true
}

// FireEndOfStream invokes handle's end-of-stream callback if it hasn't
// already fired for this stream's lifetime.
func (r *Registry) FireEndOfStream(h Handle) {
	e, ok := r.entries[h]
	if !ok || e.endFired || e.onEnd == nil {
		return
	}
	e.endFired = true
	e.onEnd(h, e.user)
}

// Len returns the number of live streams.
func (r *Registry) Len() int { return len(r.entries) }

// Handles returns every live stream handle, in no particular order.
func (r *Registry) Handles() []Handle {
	out := make([]Handle, 0, len(r.entries))
	for h := range r.entries {
		out = append(out, h)
	}
	return out
}
