package altsound

import (
	"sync"

	"github.com/jsm174/libaltsound/internal/config"
	"github.com/jsm174/libaltsound/internal/errs"
	"github.com/jsm174/libaltsound/internal/framer"
	"github.com/jsm174/libaltsound/internal/mixer"
)

// defaultEngine backs the package-level forwarders below, for callers
// that only ever need one engine instance (the legacy single-instance
// surface the original C API exposed as free functions over global
// state). Per spec.md §9's Design Note, the engine itself stays an
// opaque handle; this is a thin wrapper around exactly one of them.
var (
	defaultMu     sync.Mutex
	defaultEngine *Engine
)

// Init initializes the default engine, constructing it with cfg (nil
// for defaults) if this is the first call.
func Init(cfg *config.Config, basePath, gameName string, gen framer.Generation) error {
	defaultMu.Lock()
	if defaultEngine == nil {
		defaultEngine = New(cfg)
	}
	e := defaultEngine
	defaultMu.Unlock()
	return e.Init(basePath, gameName, gen)
}

// SetHardwareGeneration forwards to the default engine.
func SetHardwareGeneration(gen framer.Generation) error {
	e, err := current()
	if err != nil {
		return err
	}
	return e.SetHardwareGeneration(gen)
}

// SetAudioCallback forwards to the default engine.
func SetAudioCallback(cb mixer.FrameCallback, user any) error {
	e, err := current()
	if err != nil {
		return err
	}
	return e.SetAudioCallback(cb, user)
}

// ProcessCommand forwards to the default engine.
func ProcessCommand(raw byte, attenuationDB int) error {
	e, err := current()
	if err != nil {
		return err
	}
	return e.ProcessCommand(raw, attenuationDB)
}

// Pause forwards to the default engine.
func Pause(paused bool) error {
	e, err := current()
	if err != nil {
		return err
	}
	return e.Pause(paused)
}

// Shutdown forwards to the default engine and clears it, so a
// subsequent Init call constructs a fresh instance.
func Shutdown() error {
	e, err := current()
	if err != nil {
		return err
	}
	err = e.Shutdown()
	defaultMu.Lock()
	defaultEngine = nil
	defaultMu.Unlock()
	return err
}

func current() (*Engine, error) {
	defaultMu.Lock()
	e := defaultEngine
	defaultMu.Unlock()
	if e == nil {
		return nil, errs.NewFatalError("altsound: no default engine; call Init first")
	}
	return e, nil
}
