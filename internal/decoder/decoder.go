// Package decoder opens sample files and exposes them as a uniform
// source of interleaved float32 frames at the file's native sample
// rate and channel count. The mixer maps channels onto the engine's
// output channel count; neither the decoder nor the mixer converts the
// sample rate to the engine's output rate.
package decoder

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Source is a decoded audio stream. Read yields interleaved float32
// samples in [-1, 1]; n counts samples written (not frames). Read
// returns (0, io.EOF) once the stream is exhausted.
type Source interface {
	SampleRate() int
	Channels() int
	Read(dst []float32) (n int, err error)
	SeekZero() error
	Close() error
}

// Decoder constructs a Source from a file path.
type Decoder interface {
	Open(path string) (Source, error)
}

// Registry maps a file extension (without the leading dot, lowercase)
// to the Decoder that handles it.
type Registry struct {
	mu    sync.Mutex
	byExt map[string]Decoder
}

// NewRegistry returns a Registry pre-populated with the wav, mp3, and
// ogg vorbis decoders.
func NewRegistry() *Registry {
	r := &Registry{byExt: make(map[string]Decoder)}
	r.Register("wav", wavDecoder{})
	r.Register("mp3", mp3Decoder{})
	r.Register("ogg", vorbisDecoder{})
	return r
}

// Register associates ext with d, overwriting any previous decoder.
func (r *Registry) Register(ext string, d Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byExt[strings.ToLower(ext)] = d
}

// Open opens path using the decoder registered for its extension.
func (r *Registry) Open(path string) (Source, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")

	r.mu.Lock()
	d, ok := r.byExt[ext]
	r.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("decoder: no decoder registered for extension %q (%s)", ext, path)
	}
	return d.Open(path)
}

// reopenAtZero is a small helper shared by the format-specific sources: seek
// a file back to the start, used by SeekZero implementations that need
// to rebuild a streaming decoder rather than rewind it in place.
func reopenAtZero(f *os.File) error {
	_, err := f.Seek(0, io.SeekStart)
	return err
}
