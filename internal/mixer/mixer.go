// Package mixer implements the real-time mixing engine (spec §4.5): a
// dedicated worker that wakes on a condition variable and on a
// wall-clock period, pulls frames from every active stream, sums them
// into a scratch buffer at each stream's effective volume, and
// delivers the result to a host-supplied sink callback.
package mixer

import (
	"sync"
	"sync/atomic"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/jsm174/libaltsound/internal/chantable"
	"github.com/jsm174/libaltsound/internal/decoder"
	"github.com/jsm174/libaltsound/internal/log"
	"github.com/jsm174/libaltsound/internal/registry"
	"github.com/jsm174/libaltsound/internal/telemetry"
)

// FrameCallback is the host audio sink signature (spec §6): samples
// are interleaved float32, valid only for the duration of the call.
type FrameCallback func(samples []float32, frameCount, sampleRate, channels int, user any)

// Mixer is the periodic mixing worker.
type Mixer struct {
	table   *chantable.Table
	volumes *Volumes
	logger  *log.Logger

	sampleRate   int
	channels     int
	bufferFrames int
	period       time.Duration

	cbMu    sync.Mutex // independent sink-callback lock (spec §5, lock #3)
	deliver FrameCallback
	user    any

	telemetryMu sync.Mutex
	telemetry   telemetry.Sink

	running  atomic.Bool
	wakeMu   sync.Mutex
	wakeCond *sync.Cond
	woken    bool

	mixBuf64 []float64
	outBuf   []float32

	done chan struct{}
}

// New returns a Mixer with the given fixed buffer geometry. period is
// derived as buffer_frames / sample_rate per spec §4.5.
func New(table *chantable.Table, volumes *Volumes, logger *log.Logger, sampleRate, channels, bufferFrames int) *Mixer {
	m := &Mixer{
		table:        table,
		volumes:      volumes,
		logger:       logger,
		sampleRate:   sampleRate,
		channels:     channels,
		bufferFrames: bufferFrames,
		period:       time.Duration(float64(bufferFrames) / float64(sampleRate) * float64(time.Second)),
		mixBuf64:     make([]float64, bufferFrames*channels),
		outBuf:       make([]float32, bufferFrames*channels),
		done:         make(chan struct{}),
	}
	m.wakeCond = sync.NewCond(&m.wakeMu)
	return m
}

// SetDeliveryCallback installs the host sink callback under the
// independent sink-callback lock.
func (m *Mixer) SetDeliveryCallback(fn FrameCallback, user any) {
	m.cbMu.Lock()
	m.deliver = fn
	m.user = user
	m.cbMu.Unlock()
}

// SetTelemetry attaches sink as the destination for the best-effort
// per-tick diagnostic snapshots described in SPEC_FULL.md §4.9. A nil
// sink disables telemetry publishing.
func (m *Mixer) SetTelemetry(sink telemetry.Sink) {
	m.telemetryMu.Lock()
	m.telemetry = sink
	m.telemetryMu.Unlock()
}

// Start launches the mixing worker goroutine.
func (m *Mixer) Start() {
	m.running.Store(true)
	go m.run()
}

// Stop signals the worker to exit and joins it. Safe to call once.
func (m *Mixer) Stop() {
	m.running.Store(false)
	m.Wake()
	<-m.done
}

// Wake short-circuits the worker's wait so a newly started stream is
// audible within one buffer period, per spec §4.6 step 6.
func (m *Mixer) Wake() {
	m.wakeMu.Lock()
	m.woken = true
	m.wakeCond.Signal()
	m.wakeMu.Unlock()
}

func (m *Mixer) run() {
	defer close(m.done)

	deadline := time.Now().Add(m.period)
	for {
		m.waitUntil(deadline)
		if !m.running.Load() {
			return
		}

		now := time.Now()
		m.tick()

		deadline = deadline.Add(m.period)
		if now.After(deadline) {
			// Overrun: resync instead of trying to catch up.
			deadline = now.Add(m.period)
		}
	}
}

// waitUntil blocks on the condition variable until either Wake is
// called or deadline passes, or running is cleared.
func (m *Mixer) waitUntil(deadline time.Time) {
	timer := time.AfterFunc(time.Until(deadline), m.Wake)
	defer timer.Stop()

	m.wakeMu.Lock()
	for !m.woken && m.running.Load() {
		m.wakeCond.Wait()
	}
	m.woken = false
	m.wakeMu.Unlock()
}

type snapshotSlot struct {
	handle   registry.Handle
	src      decoder.Source
	category string
	gain     float64
	ducking  float64
	loop     bool
}

// snapshotActive takes the channel-table-plus-registry lock briefly
// (spec §4.5 step 2) and copies out everything the mix pass needs, so
// the lock is not held across decoder reads.
func (m *Mixer) snapshotActive() []snapshotSlot {
	var out []snapshotSlot
	m.table.Lock()
	m.table.Each(func(_ int, s *chantable.Slot) {
		entry, ok := m.table.Registry().Get(s.Handle)
		if !ok || !entry.Playing || entry.Paused {
			return
		}
		out = append(out, snapshotSlot{
			handle:   s.Handle,
			src:      entry.Source,
			category: string(s.Category),
			gain:     s.Gain,
			ducking:  s.Ducking,
			loop:     s.Loop,
		})
	})
	m.table.Unlock()
	return out
}

func (m *Mixer) tick() {
	for i := range m.mixBuf64 {
		m.mixBuf64[i] = 0
	}

	actives := m.snapshotActive()
	master, global := m.volumes.Snapshot()

	for _, a := range actives {
		m.mixOne(a, master, global)
	}

	m.cbMu.Lock()
	deliver, user := m.deliver, m.user
	m.cbMu.Unlock()

	for i, v := range m.mixBuf64 {
		m.outBuf[i] = float32(v)
	}
	if deliver != nil {
		deliver(m.outBuf, m.bufferFrames, m.sampleRate, m.channels, user)
	}

	m.publishTelemetry(actives, master, global)
}

// publishTelemetry sends a best-effort diagnostic snapshot of this
// tick's mix state. Never allowed to block: the attached Sink is
// itself responsible for dropping under backpressure.
func (m *Mixer) publishTelemetry(actives []snapshotSlot, master, global float64) {
	m.telemetryMu.Lock()
	sink := m.telemetry
	m.telemetryMu.Unlock()
	if sink == nil {
		return
	}

	slots := make([]telemetry.SlotSnapshot, len(actives))
	for i, a := range actives {
		slots[i] = telemetry.SlotSnapshot{
			Category:  a.category,
			Effective: a.gain * a.ducking * global * master,
			Loop:      a.loop,
		}
	}
	sink.Publish(telemetry.Snapshot{
		ActiveSlots:  len(actives),
		MasterVolume: master,
		GlobalVolume: global,
		Slots:        slots,
	})
}

func (m *Mixer) mixOne(a snapshotSlot, master, global float64) {
	srcCh := a.src.Channels()
	if srcCh <= 0 {
		srcCh = 1
	}

	effective := a.gain * a.ducking * global * master

	temp := make([]float32, m.bufferFrames*srcCh)
	n, err := a.src.Read(temp)
	frames := n / srcCh
	m.accumulate(temp[:n], srcCh, 0, frames, effective)

	if frames >= m.bufferFrames && err == nil {
		return
	}

	if a.loop {
		if serr := a.src.SeekZero(); serr == nil {
			remaining := m.bufferFrames - frames
			if remaining > 0 {
				temp2 := make([]float32, remaining*srcCh)
				n2, _ := a.src.Read(temp2)
				frames2 := n2 / srcCh
				m.accumulate(temp2[:n2], srcCh, frames, frames2, effective)
			}
			return
		}
	}

	m.table.Lock()
	if entry, ok := m.table.Registry().Get(a.handle); ok {
		entry.Playing = false
		m.table.Registry().FireEndOfStream(a.handle)
	}
	m.table.Unlock()

	if err != nil && m.logger != nil {
		m.logger.Errorf("mixer: stream %d read error: %v", a.handle, err)
	}
}

// accumulate gathers srcCh-channel interleaved frames into the output
// channel layout (modulo channel mapping, spec §4.5 step 3), scales
// by effective gain, and sums into the mix accumulator starting at
// frame offset.
func (m *Mixer) accumulate(src []float32, srcCh, offsetFrames, frames int, effective float64) {
	if frames <= 0 {
		return
	}
	mapped := make([]float64, frames*m.channels)
	for f := 0; f < frames; f++ {
		for ch := 0; ch < m.channels; ch++ {
			mapped[f*m.channels+ch] = float64(src[f*srcCh+ch%srcCh])
		}
	}
	start := offsetFrames * m.channels
	floats.AddScaled(m.mixBuf64[start:start+len(mapped)], effective, mapped)
}
