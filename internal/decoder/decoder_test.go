package decoder

import "testing"

type stubSource struct{ opened string }

func (stubSource) SampleRate() int                { return 44100 }
func (stubSource) Channels() int                  { return 2 }
func (stubSource) Read(dst []float32) (int, error) { return 0, nil }
func (stubSource) SeekZero() error                 { return nil }
func (stubSource) Close() error                    { return nil }

type stubDecoder struct{ calls *[]string }

func (d stubDecoder) Open(path string) (Source, error) {
	*d.calls = append(*d.calls, path)
	return stubSource{opened: path}, nil
}

func TestRegistryDispatchesByExtension(t *testing.T) {
	var calls []string
	r := &Registry{byExt: make(map[string]Decoder)}
	r.Register("xyz", stubDecoder{calls: &calls})

	if _, err := r.Open("sample.XYZ"); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if len(calls) != 1 || calls[0] != "sample.XYZ" {
		t.Fatalf("got calls %v, want one call for sample.XYZ", calls)
	}
}

func TestRegistryUnknownExtension(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Open("sample.flac"); err == nil {
		t.Fatal("expected an error for an unregistered extension")
	}
}

func TestNewRegistryHasBuiltins(t *testing.T) {
	r := NewRegistry()
	for _, ext := range []string{"wav", "mp3", "ogg"} {
		if _, ok := r.byExt[ext]; !ok {
			t.Errorf("expected built-in decoder registered for %q", ext)
		}
	}
}
