package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, ManifestFile)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadParsesRows(t *testing.T) {
	path := writeManifest(t, ""+
		"0x1020,music/theme.ogg,music,0.8,true,\n"+
		"42,sfx/dog.wav,sfx,1.0,false,duck-music\n"+
		"# a comment line\n"+
		"\n",
	)

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	s, ok := c.Pick(0x1020)
	if !ok {
		t.Fatal("expected a sample for 0x1020")
	}
	if s.Path != filepath.Join(filepath.Dir(path), "music/theme.ogg") || s.Category != Music || !s.Loop {
		t.Errorf("got %+v", s)
	}

	s2, ok := c.Pick(42)
	if !ok {
		t.Fatal("expected a sample for command 42")
	}
	if s2.Category != Sfx || s2.DuckingProfile != "duck-music" {
		t.Errorf("got %+v", s2)
	}
}

func TestLoadRejectsMalformedRow(t *testing.T) {
	path := writeManifest(t, "not-a-number,a.wav,sfx,1.0,false,\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for a malformed command id")
	}
}

func TestLoadFromGameDir(t *testing.T) {
	dir := t.TempDir()
	gameDir := filepath.Join(dir, "altsound", "mygame")
	if err := os.MkdirAll(gameDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(gameDir, ManifestFile), []byte("1,a.wav,sfx,1.0,false,\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	c, err := LoadFromGameDir(dir, "mygame")
	if err != nil {
		t.Fatalf("LoadFromGameDir() error = %v", err)
	}
	if _, ok := c.Pick(1); !ok {
		t.Fatal("expected command 1 to be loaded")
	}
}
