package altsound

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/jsm174/libaltsound/internal/config"
	"github.com/jsm174/libaltsound/internal/framer"
)

// writeSilentWAV writes a minimal valid 16-bit PCM mono WAV file of
// frames silent samples, for exercising the real decoder path without
// needing a fixture asset on disk.
func writeSilentWAV(t *testing.T, path string, frames int) {
	t.Helper()

	dataSize := frames * 2 // 16-bit mono
	buf := make([]byte, 0, 44+dataSize)

	buf = append(buf, "RIFF"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(36+dataSize))
	buf = append(buf, "WAVE"...)

	buf = append(buf, "fmt "...)
	buf = binary.LittleEndian.AppendUint32(buf, 16)
	buf = binary.LittleEndian.AppendUint16(buf, 1)      // PCM
	buf = binary.LittleEndian.AppendUint16(buf, 1)      // mono
	buf = binary.LittleEndian.AppendUint32(buf, 44100)  // sample rate
	buf = binary.LittleEndian.AppendUint32(buf, 88200)  // byte rate
	buf = binary.LittleEndian.AppendUint16(buf, 2)      // block align
	buf = binary.LittleEndian.AppendUint16(buf, 16)     // bits per sample

	buf = append(buf, "data"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(dataSize))
	buf = append(buf, make([]byte, dataSize)...)

	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

// newTestGame lays out <dir>/altsound/<game>/ with a manifest mapping
// command 0x01 to a short silent WAV, and no behaviors.yaml (so
// Default() behavior applies).
func newTestGame(t *testing.T) (base, game string) {
	t.Helper()
	base = t.TempDir()
	game = "testgame"
	gameDir := filepath.Join(base, "altsound", game)
	if err := os.MkdirAll(gameDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	wavPath := filepath.Join(gameDir, "beep.wav")
	writeSilentWAV(t, wavPath, 4096)

	manifest := "0x01,beep.wav,sfx,1.0,false,\n"
	if err := os.WriteFile(filepath.Join(gameDir, "altsound.csv"), []byte(manifest), 0o644); err != nil {
		t.Fatalf("WriteFile manifest: %v", err)
	}
	return base, game
}

func testConfig() *config.Config {
	cfg := config.New()
	cfg.LogConsole = false
	cfg.BufferFrames = 256
	return cfg
}

func TestInitThenProcessCommandThenShutdown(t *testing.T) {
	base, game := newTestGame(t)
	e := New(testConfig())

	if err := e.Init(base, game, framer.GTS80A); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer e.Shutdown()

	if err := e.ProcessCommand(0x01, 0); err != nil {
		t.Fatalf("ProcessCommand() error = %v", err)
	}

	if got := e.RecentCommands(); len(got) != 1 || got[0] != 0x01 {
		t.Errorf("RecentCommands() = %v, want [0x01]", got)
	}

	if err := e.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
}

func TestDoubleInitIsFatal(t *testing.T) {
	base, game := newTestGame(t)
	e := New(testConfig())

	if err := e.Init(base, game, framer.GTS80A); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer e.Shutdown()

	if err := e.Init(base, game, framer.GTS80A); err == nil {
		t.Fatal("expected an error on double Init")
	}
}

func TestShutdownWithoutInitIsFatal(t *testing.T) {
	e := New(testConfig())
	if err := e.Shutdown(); err == nil {
		t.Fatal("expected an error shutting down an uninitialized engine")
	}
}

func TestProcessCommandWithoutInitIsFatal(t *testing.T) {
	e := New(testConfig())
	if err := e.ProcessCommand(0x01, 0); err == nil {
		t.Fatal("expected an error processing a command on an uninitialized engine")
	}
}

func TestPauseRequiresInit(t *testing.T) {
	e := New(testConfig())
	if err := e.Pause(true); err == nil {
		t.Fatal("expected an error pausing an uninitialized engine")
	}
}

func TestGlobalForwarders(t *testing.T) {
	base, game := newTestGame(t)

	if err := Init(testConfig(), base, game, framer.GTS80A); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	if err := ProcessCommand(0x01, 0); err != nil {
		t.Fatalf("ProcessCommand() error = %v", err)
	}
	if err := Pause(true); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}

	if err := Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	if err := Shutdown(); err == nil {
		t.Fatal("expected an error on Shutdown after the default engine was already cleared")
	}
}
