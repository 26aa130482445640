// Package framer reassembles the raw byte stream an emulated ROM sound
// board emits into logical 16-bit commands, one state machine per
// hardware generation. Each generation is a small value implementing
// generationRules — a tagged variant, not a switch with fallthrough —
// so new generations extend the set instead of growing one function.
package framer

import "math"

// Generation identifies which ROM sound board produced a byte stream,
// selecting the framing rule set. Unrecognized values fall back to
// passthroughRules, which treats every byte as its own 8-bit command.
type Generation string

const (
	WPCAlpha1   Generation = "WPCALPHA_1"
	WPCAlpha2   Generation = "WPCALPHA_2"
	WPCDMD      Generation = "WPCDMD"
	WPCFliptron Generation = "WPCFLIPTRON"
	WPCDCS      Generation = "WPCDCS"
	WPCSecurity Generation = "WPCSECURITY"
	WPC95       Generation = "WPC95"
	WPC95DCS    Generation = "WPC95DCS"
	S11         Generation = "S11"
	S11X        Generation = "S11X"
	S11B2       Generation = "S11B2"
	S11C        Generation = "S11C"
	DEDMD16     Generation = "DEDMD16"
	DEDMD32     Generation = "DEDMD32"
	DEDMD64     Generation = "DEDMD64"
	DE          Generation = "DE"
	WS          Generation = "WS"
	WS1         Generation = "WS_1"
	WS2         Generation = "WS_2"
	GTS80A      Generation = "GTS80A"

	// Passthrough selects passthroughRules explicitly; any other
	// unrecognized Generation value falls back to the same rules.
	Passthrough Generation = "PASSTHROUGH"
)

// Result is the outcome of feeding one byte to a Framer.
type Result struct {
	Emitted bool
	Command uint16
}

// generationRules is the per-generation state machine. preprocess
// inspects the framer's 4-byte lookback window (already shifted to
// include the current byte) and mutates the framer's counter, filter
// flag, and stored high byte accordingly.
type generationRules interface {
	preprocess(f *Framer, cmd byte)
}

// Framer is a per-producer, single-threaded state machine; the spec
// assumes at most one producer goroutine feeds a given Framer.
type Framer struct {
	gen   Generation
	rules generationRules

	buf           [4]int // buf[0] newest; -1 = no byte yet
	counter       uint32 // parity counter: odd = incomplete, even = complete
	storedCommand byte   // pending high byte of a 16-bit command
	filter        bool   // true if this byte was consumed as volume/meta

	romControlsVolume bool
	globalVolume      float64

	// alpha1Rules (WPCALPHA_1/S11 family) state: the byte currently
	// held back pending confirmation that it is (or isn't) a
	// duplicate of the next byte.
	dedupPending int

	// overrideByte lets a rule emit a byte other than the one just
	// received (alpha1Rules needs this to emit the *previous*,
	// now-confirmed-non-duplicate byte).
	overrideSet  bool
	overrideByte byte

	// dcsHold (dcsRules only) counts the bytes still owed before a
	// candidate WPC-DCS meta sequence's 4-byte window completes. Set
	// only when a 0x55 marker is immediately followed by a byte that
	// could start one of dcsMetaMatch's known templates, so an
	// unrelated command that merely contains 0x55 still pairs and
	// emits normally.
	dcsHold int
}

// New returns a Framer for the given hardware generation.
// romControlsVolume mirrors the engine-wide "ROM controls volume"
// setting consulted by the WPC-DCS/WPCALPHA_2/WS volume-change rules.
func New(gen Generation, romControlsVolume bool) *Framer {
	f := &Framer{
		gen:               gen,
		rules:             rulesFor(gen),
		romControlsVolume: romControlsVolume,
		globalVolume:      1.0,
	}
	f.Reset()
	return f
}

// Generation returns the hardware generation this framer was built for.
func (f *Framer) Generation() Generation { return f.gen }

// SetRomControlsVolume toggles whether ROM volume commands are honored.
func (f *Framer) SetRomControlsVolume(v bool) { f.romControlsVolume = v }

// GlobalVolume returns the volume last set by a ROM volume command, or
// 1.0 if none has been processed (or ROM-controls-volume is disabled).
func (f *Framer) GlobalVolume() float64 { return f.globalVolume }

// FilterActive reports whether the most recently accepted byte was
// consumed as a volume/meta byte rather than contributing to a command.
func (f *Framer) FilterActive() bool { return f.filter }

// Reset clears the command buffer, parity counter, and stored command,
// as if the framer had just been constructed.
func (f *Framer) Reset() {
	f.buf = [4]int{-1, -1, -1, -1}
	f.counter = 0
	f.storedCommand = 0
	f.filter = false
	f.dedupPending = -1
	f.overrideSet = false
	f.dcsHold = 0
}

func (f *Framer) wipe() { f.buf = [4]int{-1, -1, -1, -1} }

// Accept feeds one byte to the framer, returning either an absorbed
// result (the byte was consumed as volume/meta, or completes only half
// of a pending 16-bit command) or an emitted logical command.
func (f *Framer) Accept(b byte) Result {
	f.counter++
	f.buf[3], f.buf[2], f.buf[1] = f.buf[2], f.buf[1], f.buf[0]
	f.buf[0] = int(b)
	f.filter = false
	f.overrideSet = false

	f.rules.preprocess(f, b)

	if f.filter || f.counter&1 != 0 {
		f.storedCommand = b
		return Result{}
	}

	emitByte := b
	if f.overrideSet {
		emitByte = f.overrideByte
	}
	return Result{Emitted: true, Command: uint16(f.storedCommand)<<8 | uint16(emitByte)}
}

// StopsMusic reports whether combined is a recognized post-emission
// "stop all music" command for gen (spec.md §4.1 post-emission hooks).
func StopsMusic(gen Generation, combined uint16) bool {
	switch gen {
	case WPCDCS, WPCSecurity, WPC95, WPC95DCS:
		return combined == 0x03E3
	case DEDMD32:
		return combined == 0x0018 || combined == 0x0023
	case WS, WS1, WS2:
		return combined == 0x0000 || (combined&0xF0FF) == 0xF000
	}
	return false
}

func rulesFor(gen Generation) generationRules {
	switch gen {
	case WPCDCS, WPCSecurity, WPC95, WPC95DCS:
		return dcsRules{}
	case WPCAlpha2, WPCDMD, WPCFliptron:
		return alpha2Rules{}
	case WPCAlpha1, S11, S11X, S11B2, S11C:
		return alpha1Rules{}
	case DEDMD16, DEDMD32, DEDMD64, DE:
		return deRules{}
	case WS, WS1, WS2:
		return wsRules{}
	case GTS80A:
		return gts80Rules{}
	default:
		return passthroughRules{}
	}
}

// --- WPC-DCS family (WPCDCS, WPCSECURITY, WPC95, WPC95DCS) ---

type dcsRules struct{}

func (dcsRules) preprocess(f *Framer, cmd byte) {
	b := f.buf

	if matched, isVolume := dcsMetaMatch(b); matched {
		if isVolume && f.romControlsVolume {
			v1 := b[1]
			if v1 == 0 {
				f.globalVolume = 0
			} else {
				f.globalVolume = math.Min(1, math.Pow(0.981201, float64(255-v1))*4)
			}
		}
		f.wipe()
		f.filter = true
		f.dcsHold = 0
		return
	}

	if f.dcsHold > 0 {
		// Window hasn't completed (or failed) yet; keep the candidate
		// pair open instead of letting the parity counter dispatch it.
		f.dcsHold--
		f.counter = 1
		return
	}

	if b[1] == 0x55 && dcsPlausibleMetaType(b[0]) {
		// A marker immediately followed by a byte that could start one
		// of dcsMetaMatch's templates; hold until the window can
		// confirm or refute it two bytes from now. A 0x55 followed by
		// anything else is an ordinary command byte and pairs normally.
		f.dcsHold = 1
		f.counter = 1
		return
	}

	// Default: ordinary data, pairs up via the generic parity counter.
}

func dcsMetaMatch(b [4]int) (matched, isVolume bool) {
	if b[3] != 0x55 {
		return false, false
	}
	switch {
	case b[2] >= 0xAB && b[2] <= 0xB0 && b[1] == (b[0]^0xFF):
		return true, false
	case b[2] == 0xC2:
		return true, false
	case b[2] == 0xC3:
		return true, false
	case b[2] >= 0xBA && b[2] <= 0xC1 && b[1] == (b[0]^0xFF):
		return true, false
	case b[2] == 0xAA:
		return true, b[1] == (b[0] ^ 0xFF)
	}
	return false, false
}

// dcsPlausibleMetaType reports whether v could be the second byte
// (b[2] once the window completes) of one of dcsMetaMatch's templates.
func dcsPlausibleMetaType(v int) bool {
	switch {
	case v == 0xAA, v == 0xC2, v == 0xC3:
		return true
	case v >= 0xAB && v <= 0xB0:
		return true
	case v >= 0xBA && v <= 0xC1:
		return true
	}
	return false
}

// --- WPCALPHA_2 / WPCDMD / WPCFLIPTRON ---

type alpha2Rules struct{}

func (alpha2Rules) preprocess(f *Framer, cmd byte) {
	b := f.buf

	if b[2] == 0x79 && b[1] == (b[0]^0xFF) {
		if f.romControlsVolume {
			f.globalVolume = math.Min(1, float64(b[1])/127)
		}
		f.wipe()
		f.counter = 0
		f.filter = true
		return
	}

	if b[1] == 0x7A {
		f.storedCommand = byte(b[1])
		f.counter = 0
		return
	}

	if cmd != 0x7A {
		f.storedCommand = 0
		f.counter = 0
		return
	}

	f.counter = 1 // first byte of a 16-bit sequence
}

// --- WPCALPHA_1 / S11 family ---
//
// Consecutive identical bytes are a single logical command (the ROM
// sends some commands twice for reliability). Because a byte can't be
// classified until the *next* byte confirms or denies the duplicate,
// every non-duplicate byte is held back one step and emitted only
// once the following byte proves it wasn't part of a pair.

type alpha1Rules struct{}

func (alpha1Rules) preprocess(f *Framer, cmd byte) {
	if f.dedupPending < 0 {
		f.dedupPending = int(cmd)
		f.filter = true
		return
	}

	if int(cmd) == f.dedupPending {
		f.storedCommand = 0
		f.counter = 0
		f.dedupPending = -1
		return
	}

	prev := byte(f.dedupPending)
	f.dedupPending = int(cmd)
	f.storedCommand = 0
	f.counter = 0
	f.overrideSet = true
	f.overrideByte = prev
}

// --- DEDMD16 / DEDMD32 / DEDMD64 / DE ---

type deRules struct{}

func (deRules) preprocess(f *Framer, cmd byte) {
	b := f.buf

	if cmd != 0xFF && cmd != 0x00 {
		f.storedCommand = 0
		f.counter = 0
	} else {
		f.counter = 1
	}

	if b[1] == 0x00 && cmd == 0x00 {
		// 0x0000 pair: completes to logical command 0, which no
		// catalog entry maps to, so dispatch is a no-op (§9).
		f.storedCommand = 0
		f.counter = 0
	}
}

// --- Whitestar (WS, WS_1, WS_2) ---

type wsRules struct{}

func (wsRules) preprocess(f *Framer, cmd byte) {
	b := f.buf

	if b[1] == 0xFE {
		switch {
		case cmd >= 0x10 && cmd <= 0x2F:
			if f.romControlsVolume {
				f.globalVolume = float64(0x2F-cmd) / 31
			}
			f.wipe()
			f.counter = 0
			f.filter = true
		case cmd >= 0x01 && cmd <= 0x0F:
			f.storedCommand = 0
			f.counter = 0
			f.filter = true
		}
	}

	if cmd&0xFC == 0xFC {
		f.counter = 1 // start-of-command marker
	}
}

// --- GTS80A ---

type gts80Rules struct{}

func (gts80Rules) preprocess(f *Framer, cmd byte) {
	f.storedCommand = 0
	f.counter = 0
	f.filter = cmd == 0x00
}

// --- unrecognized generation: pass bytes through as 8-bit commands ---

type passthroughRules struct{}

func (passthroughRules) preprocess(f *Framer, cmd byte) {
	f.storedCommand = 0
	f.counter = 0
}
