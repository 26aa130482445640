package mixer

import "sync"

// attenuationStep is the per-dB-step divisor: 10^(1/20), so each -1 dB
// step multiplies master volume by 10^(-1/20) ≈ 0.8913.
const attenuationStep = 1.122018454

// Volumes holds the two global gain factors from spec §3: master
// volume (host attenuation, in -1 dB steps) and global volume (the
// in-game ROM volume command, mirrored here from the framer after
// each accept so the mixer never has to reach across packages at
// mix time).
type Volumes struct {
	mu     sync.RWMutex
	master float64
	global float64
}

// NewVolumes returns Volumes with both factors at unity.
func NewVolumes() *Volumes {
	return &Volumes{master: 1, global: 1}
}

// ApplyAttenuationDB divides master volume by attenuationStep once
// per -1 dB step. Positive or zero attenuation is a no-op.
func (v *Volumes) ApplyAttenuationDB(attenuation int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for attenuation < 0 {
		v.master /= attenuationStep
		attenuation++
	}
}

// SetGlobal overwrites the global (ROM) volume.
func (v *Volumes) SetGlobal(g float64) {
	v.mu.Lock()
	v.global = g
	v.mu.Unlock()
}

// Master returns the current master volume.
func (v *Volumes) Master() float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.master
}

// Snapshot returns both factors under a single read lock.
func (v *Volumes) Snapshot() (master, global float64) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.master, v.global
}
