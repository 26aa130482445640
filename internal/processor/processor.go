// Package processor implements process_command (spec §4.6): the
// glue between the command framer and the catalog/behavior/
// chantable/mixer state that decides what a freshly-emitted logical
// command actually does.
package processor

import (
	"github.com/jsm174/libaltsound/internal/behavior"
	"github.com/jsm174/libaltsound/internal/catalog"
	"github.com/jsm174/libaltsound/internal/chantable"
	"github.com/jsm174/libaltsound/internal/decoder"
	"github.com/jsm174/libaltsound/internal/errs"
	"github.com/jsm174/libaltsound/internal/framer"
	"github.com/jsm174/libaltsound/internal/log"
	"github.com/jsm174/libaltsound/internal/mixer"
	"github.com/jsm174/libaltsound/internal/registry"
)

// Waker is anything that can be nudged to mix sooner, so processor
// doesn't need to import *mixer.Mixer directly beyond the one method
// it actually calls.
type Waker interface {
	Wake()
}

// Processor wires together the framer, catalog, behavior table,
// channel table/registry, and mixer.
type Processor struct {
	fr       *framer.Framer
	catalog  *catalog.Catalog
	behavior *behavior.Table
	table    *chantable.Table
	decoders *decoder.Registry
	volumes  *mixer.Volumes
	waker    Waker
	logger   *log.Logger

	globalPaused bool // set by the public surface's pause(bool) (spec.md §4.7)

	onDispatch func(cmd uint16) // optional, for the public surface's recent-command diagnostics
}

// SetDispatchObserver installs fn to be called with every logical
// command this Processor dispatches, after dispatch completes. A nil
// fn disables the hook. Not part of the command-processing algorithm
// itself; exists only so pkg/altsound can maintain its diagnostic
// command history without polling.
func (p *Processor) SetDispatchObserver(fn func(cmd uint16)) {
	p.onDispatch = fn
}

// New returns a Processor. fr must already be configured with the
// target hardware generation.
func New(fr *framer.Framer, cat *catalog.Catalog, beh *behavior.Table, table *chantable.Table, decoders *decoder.Registry, volumes *mixer.Volumes, waker Waker, logger *log.Logger) *Processor {
	return &Processor{
		fr:       fr,
		catalog:  cat,
		behavior: beh,
		table:    table,
		decoders: decoders,
		volumes:  volumes,
		waker:    waker,
		logger:   logger,
	}
}

// ProcessCommand is the spec §4.6 entry point.
func (p *Processor) ProcessCommand(raw byte, attenuationDB int) error {
	p.volumes.ApplyAttenuationDB(attenuationDB)

	result := p.fr.Accept(raw)
	p.volumes.SetGlobal(p.fr.GlobalVolume())

	if !result.Emitted {
		p.logger.Debugf("processor: byte 0x%02X absorbed", raw)
		return nil
	}

	if err := p.dispatch(result.Command); err != nil {
		p.logger.Infof("processor: dispatch 0x%04X: %v", result.Command, err)
		return err
	}

	if p.onDispatch != nil {
		p.onDispatch(result.Command)
	}

	if p.waker != nil {
		p.waker.Wake()
	}

	if framer.StopsMusic(p.fr.Generation(), result.Command) {
		p.stopAllMusic()
	}

	return nil
}

// dispatch runs the behavior model's algorithm (spec §4.3) for the
// sample(s) bound to a newly-emitted logical command.
func (p *Processor) dispatch(cmd uint16) error {
	samples, ok := p.catalog.Lookup(cmd)
	if !ok {
		p.logger.Warnf("processor: unknown logical command 0x%04X", cmd)
		return nil
	}
	if len(samples) == 0 {
		return nil
	}

	sample, ok := p.catalog.Pick(cmd)
	if !ok {
		return nil
	}

	// Opened before the channel-table lock is taken: file open + decoder
	// init can be slow, and the mixer needs this same lock every tick.
	src, err := p.decoders.Open(sample.Path)
	if err != nil {
		return errs.NewDecoderError(sample.Path, err)
	}

	category := catalog.Normalize(sample.Category)
	info := p.behavior.Get(category)

	p.table.Lock()
	defer p.table.Unlock()

	p.applyStops(category, info)

	if p.table.ActiveCount(category) >= info.MaxConcurrent {
		if !info.EvictOldest {
			src.Close()
			return errs.NewCapacityError(string(category))
		}
		if idx, ok := p.table.OldestIndex(category); ok {
			p.destroySlotLocked(idx)
		}
	}

	// onEnd runs synchronously from FireEndOfStream, which the mixer
	// only ever calls while already holding the table's coarse lock —
	// it must not try to re-acquire it.
	handle := p.table.Registry().Create(src, func(h registry.Handle, _ any) {
		p.table.FreeByHandle(h)
		p.table.Registry().Free(h)
		p.recomputeDuckingLocked()
		p.recomputePausesLocked()
	}, nil)

	ducking := p.duckingAgainst(category)
	idx, ok := p.table.Allocate(handle, category, sample.DefaultGain, sample.Loop)
	if !ok {
		p.table.Registry().Free(handle)
		return errs.NewCapacityError(string(category))
	}
	p.table.SetDucking(idx, ducking)
	p.table.SetDuckProfile(idx, sample.DuckingProfile)
	p.table.Registry().SetPlaying(handle, true)

	p.recomputeDuckingLocked()
	p.recomputePausesLocked()
	return nil
}

// applyStops terminates every active stream in a category that the
// newly dispatched category's behavior record names under "stops".
func (p *Processor) applyStops(category catalog.Category, info *behavior.Info) {
	for _, victim := range info.Stops {
		p.table.Each(func(idx int, s *chantable.Slot) {
			if s.Category == catalog.Normalize(victim) {
				p.destroySlotLocked(idx)
			}
		})
	}
}

// recomputePausesLocked re-derives every active stream's paused flag
// from scratch: paused if and only if some currently active slot's
// category declares it under "pauses". This both applies a fresh
// pause and resumes one that no longer has anything requiring it,
// per spec §4.3's "on stream end" resume condition. Caller must hold
// the table lock.
func (p *Processor) recomputePausesLocked() {
	shouldPause := make(map[catalog.Category]bool)
	p.table.Each(func(_ int, s *chantable.Slot) {
		info := p.behavior.Get(s.Category)
		for _, victim := range info.Pauses {
			shouldPause[catalog.Normalize(victim)] = true
		}
	})
	p.table.Each(func(_ int, s *chantable.Slot) {
		p.table.Registry().SetPaused(s.Handle, p.globalPaused || shouldPause[s.Category])
	})
}

// SetGlobalPause implements the public surface's pause(bool) (spec.md
// §4.7): pauses or resumes every active stream. A stream a category
// rule also pauses stays paused across SetGlobalPause(false) until
// that rule itself clears.
func (p *Processor) SetGlobalPause(paused bool) {
	p.table.Lock()
	p.globalPaused = paused
	p.recomputePausesLocked()
	p.table.Unlock()
}

// destroySlotLocked frees a channel slot and its registry entry.
// Caller must hold the table lock.
func (p *Processor) destroySlotLocked(idx int) {
	s := p.table.Slot(idx)
	if s == nil {
		return
	}
	p.table.Registry().Free(s.Handle)
	p.table.Free(idx)
}

// duckerProfileName resolves the name of the ducking profile that a
// currently-active slot imposes on victim: the slot's own sample
// declared one (catalog §3's per-sample ducking_profile column) takes
// precedence, falling back to its category's behavior-level Ducks
// entry so a behaviors.yaml can still set a category-wide default
// (DESIGN.md: "sample profile vs. behavior profile").
func (p *Processor) duckerProfileName(s *chantable.Slot, victim catalog.Category) (string, bool) {
	if s.DuckProfile != "" {
		return s.DuckProfile, true
	}
	duckerInfo := p.behavior.Get(s.Category)
	name, ok := duckerInfo.Ducks[victim]
	return name, ok
}

// duckingAgainst computes the initial ducking multiplier for a
// newly-started sound of category: the product, over every currently
// active slot that ducks this one, of that ducking profile's
// per-category factor.
func (p *Processor) duckingAgainst(category catalog.Category) float64 {
	mult := 1.0
	p.table.Each(func(_ int, s *chantable.Slot) {
		profileName, ok := p.duckerProfileName(s, category)
		if !ok {
			return
		}
		profile := p.catalog.DuckingProfile(profileName)
		mult *= profile.Factor(category)
	})
	return mult
}

// recomputeDuckingLocked re-derives every active slot's ducking
// multiplier from scratch, per spec §4.3 step 5 / "on stream end".
// Caller must hold the table lock.
func (p *Processor) recomputeDuckingLocked() {
	p.table.Each(func(idx int, target *chantable.Slot) {
		mult := 1.0
		p.table.Each(func(otherIdx int, other *chantable.Slot) {
			if otherIdx == idx {
				return
			}
			profileName, ok := p.duckerProfileName(other, target.Category)
			if !ok {
				return
			}
			profile := p.catalog.DuckingProfile(profileName)
			mult *= profile.Factor(target.Category)
		})
		p.table.SetDucking(idx, mult)
	})
}

// stopAllMusic destroys every active music-category stream, for the
// WS/WPC-DCS/DEDMD32 post-emission "stop all music" hook.
func (p *Processor) stopAllMusic() {
	p.table.Lock()
	p.table.Each(func(idx int, s *chantable.Slot) {
		if s.Category == catalog.Music {
			p.destroySlotLocked(idx)
		}
	})
	p.recomputeDuckingLocked()
	p.recomputePausesLocked()
	p.table.Unlock()
	if p.waker != nil {
		p.waker.Wake()
	}
}
