// Package altsound is the engine's public surface (spec.md §4.7): an
// opaque Engine handle wrapping the catalog, behavior table, channel
// table/registry, command framer, processor, and mixer described by
// the rest of this module. Per the Design Note in spec.md §9 ("opaque
// engine handle instead of globals... wrap one engine behind thin
// forwarders for callers that need the legacy single-instance
// surface"), the package also exposes a default-instance API in
// global.go for that compatibility case.
package altsound

import (
	"sync"

	"github.com/jsm174/libaltsound/internal/behavior"
	"github.com/jsm174/libaltsound/internal/catalog"
	"github.com/jsm174/libaltsound/internal/chantable"
	"github.com/jsm174/libaltsound/internal/config"
	"github.com/jsm174/libaltsound/internal/decoder"
	"github.com/jsm174/libaltsound/internal/errs"
	"github.com/jsm174/libaltsound/internal/framer"
	"github.com/jsm174/libaltsound/internal/log"
	"github.com/jsm174/libaltsound/internal/mixer"
	"github.com/jsm174/libaltsound/internal/processor"
	"github.com/jsm174/libaltsound/internal/telemetry"
)

// historyCapacity bounds the recent-command ring exposed for
// diagnostics; it has no bearing on playback correctness.
const historyCapacity = 64

// Engine is one independent instance of the sound engine: its own
// catalog, channel table, mixer, and processor, safe to run alongside
// other Engine instances (e.g. one per emulated cabinet in a test
// harness).
type Engine struct {
	cfg      *config.Config
	logger   *log.Logger
	catalog  *catalog.Catalog
	behavior *behavior.Table
	table    *chantable.Table
	decoders *decoder.Registry
	volumes  *mixer.Volumes
	fr       *framer.Framer
	proc     *processor.Processor
	mix      *mixer.Mixer
	telemetr *telemetry.Broadcaster

	mu          sync.Mutex
	initialized bool
	history     *commandHistory
}

// New returns an uninitialized Engine for cfg. Call Init before
// feeding it command bytes.
func New(cfg *config.Config) *Engine {
	if cfg == nil {
		cfg = config.New()
	}
	return &Engine{
		cfg:     cfg,
		logger:  log.New(),
		history: newCommandHistory(historyCapacity),
	}
}

// Init loads the game's sample catalog and behavior table from
// <basePath>/altsound/<gameName>/, builds the mixing pipeline for the
// hardware generation gen, and starts the mixer worker. Calling Init
// twice on the same Engine without an intervening Shutdown is a
// FatalError, per the lifecycle contract in spec.md §7.
func (e *Engine) Init(basePath, gameName string, gen framer.Generation) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized {
		return errs.NewFatalError("altsound.Init: already initialized")
	}

	if err := e.logger.Configure(e.cfg.LogPath, mustLevel(e.cfg.LogLevel), e.cfg.LogConsole); err != nil {
		return err
	}
	defer e.logger.Indent()()
	e.logger.Infof("altsound: init base=%s game=%s gen=%s", basePath, gameName, gen)

	cat, err := catalog.LoadFromGameDir(basePath, gameName)
	if err != nil {
		return err
	}
	beh, err := behavior.LoadFromGameDir(basePath, gameName)
	if err != nil {
		return err
	}

	e.catalog = cat
	e.behavior = beh
	e.table = chantable.New(e.cfg.ChannelTableCapacity)
	e.decoders = decoder.NewRegistry()
	e.volumes = mixer.NewVolumes()
	e.fr = framer.New(gen, e.cfg.RomControlsVolume)

	e.mix = mixer.New(e.table, e.volumes, e.logger, int(e.cfg.SampleRate), e.cfg.Channels, e.cfg.BufferFrames)
	e.proc = processor.New(e.fr, e.catalog, e.behavior, e.table, e.decoders, e.volumes, e.mix, e.logger)
	e.proc.SetDispatchObserver(e.recordDispatch)

	if sink := e.buildTelemetry(); sink != nil {
		e.telemetr = sink
		e.mix.SetTelemetry(sink)
	}

	e.mix.Start()
	e.initialized = true
	return nil
}

// buildTelemetry wires a websocket and/or UDP telemetry sink per the
// addresses configured on cfg, or returns nil if neither is set.
func (e *Engine) buildTelemetry() *telemetry.Broadcaster {
	var sinks []telemetry.Sink

	if e.cfg.TelemetryWebSocketAddr != "" {
		sinks = append(sinks, telemetry.NewWebSocketSink(e.cfg.TelemetryWebSocketAddr, e.logger))
	}
	if e.cfg.TelemetryUDPAddr != "" {
		sender, err := telemetry.NewUDPSender(e.cfg.TelemetryUDPAddr)
		if err != nil {
			e.logger.Errorf("altsound: telemetry UDP sender: %v", err)
		} else {
			sinks = append(sinks, telemetry.NewUDPPublisher(sender, e.logger))
		}
	}
	if len(sinks) == 0 {
		return nil
	}
	return telemetry.NewBroadcaster(sinks...)
}

// SetHardwareGeneration reconfigures the command framer's generation
// mid-run (e.g. a test harness cycling through ROM variants). The
// framer's pending state is reset.
func (e *Engine) SetHardwareGeneration(gen framer.Generation) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return errs.NewFatalError("altsound.SetHardwareGeneration: not initialized")
	}
	e.fr = framer.New(gen, e.cfg.RomControlsVolume)
	e.proc = processor.New(e.fr, e.catalog, e.behavior, e.table, e.decoders, e.volumes, e.mix, e.logger)
	e.proc.SetDispatchObserver(e.recordDispatch)
	return nil
}

// recordDispatch is the processor's dispatch observer; it feeds the
// recent-command ring used by RecentCommands.
func (e *Engine) recordDispatch(cmd uint16) {
	e.mu.Lock()
	e.history.push(cmd)
	e.mu.Unlock()
}

// SetAudioCallback installs the host audio sink (spec.md §6). user is
// forwarded to every call unmodified.
func (e *Engine) SetAudioCallback(cb mixer.FrameCallback, user any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return errs.NewFatalError("altsound.SetAudioCallback: not initialized")
	}
	e.mix.SetDeliveryCallback(cb, user)
	return nil
}

// ProcessCommand is the spec.md §4.6 entry point: feed one raw byte
// from the emulated ROM sound board, with the host's current
// attenuation in whole -1 dB steps (0 or negative; positive values are
// a no-op per Volumes.ApplyAttenuationDB).
func (e *Engine) ProcessCommand(raw byte, attenuationDB int) error {
	e.mu.Lock()
	if !e.initialized {
		e.mu.Unlock()
		return errs.NewFatalError("altsound.ProcessCommand: not initialized")
	}
	proc := e.proc
	e.mu.Unlock()

	return proc.ProcessCommand(raw, attenuationDB)
}

// Pause pauses or resumes every active stream (spec.md §4.7
// pause(bool)): a stream a category rule also pauses stays paused
// across Pause(false) until that rule itself clears.
func (e *Engine) Pause(paused bool) error {
	e.mu.Lock()
	proc := e.proc
	initialized := e.initialized
	e.mu.Unlock()

	if !initialized {
		return errs.NewFatalError("altsound.Pause: not initialized")
	}
	proc.SetGlobalPause(paused)
	return nil
}

// RecentCommands returns the most recently dispatched logical
// commands, oldest first, for diagnostics.
func (e *Engine) RecentCommands() []uint16 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.recent()
}

// Shutdown stops the mixer worker, closes every active stream, and
// releases any telemetry transports. Shutdown without a prior Init is
// a FatalError.
func (e *Engine) Shutdown() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return errs.NewFatalError("altsound.Shutdown: not initialized")
	}

	e.mix.Stop()

	e.table.Lock()
	for _, h := range e.table.Registry().Handles() {
		e.table.Registry().Free(h)
		e.table.FreeByHandle(h)
	}
	e.table.Unlock()

	if e.telemetr != nil {
		if err := e.telemetr.Close(); err != nil {
			e.logger.Errorf("altsound: telemetry close: %v", err)
		}
	}

	e.initialized = false
	return nil
}

func mustLevel(s string) log.Level {
	lvl, ok := log.ParseLevel(s)
	if !ok {
		return log.LevelInfo
	}
	return lvl
}
