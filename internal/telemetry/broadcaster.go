package telemetry

// Broadcaster fans one Publish out to every attached Sink. It is
// itself a Sink so the mixer only ever needs to hold one reference,
// regardless of how many transports are attached.
type Broadcaster struct {
	sinks []Sink
}

// NewBroadcaster returns a Broadcaster publishing to every non-nil
// sink in sinks.
func NewBroadcaster(sinks ...Sink) *Broadcaster {
	b := &Broadcaster{}
	for _, s := range sinks {
		if s != nil {
			b.sinks = append(b.sinks, s)
		}
	}
	return b
}

// Publish forwards s to every attached sink. Each sink is responsible
// for its own non-blocking behavior.
func (b *Broadcaster) Publish(s Snapshot) {
	for _, sink := range b.sinks {
		sink.Publish(s)
	}
}

// Close closes every attached sink, returning the first error
// encountered, if any, after attempting all of them.
func (b *Broadcaster) Close() error {
	var first error
	for _, sink := range b.sinks {
		if err := sink.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

var _ Sink = (*Broadcaster)(nil)
