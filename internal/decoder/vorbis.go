package decoder

import (
	"io"
	"os"

	"github.com/jfreymuth/oggvorbis"
)

type vorbisDecoder struct{}

func (vorbisDecoder) Open(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := oggvorbis.NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &vorbisSource{f: f, r: r}, nil
}

// vorbisSource is a thin wrapper: oggvorbis.Reader already yields
// interleaved float32 frames directly.
type vorbisSource struct {
	f *os.File
	r *oggvorbis.Reader
}

func (s *vorbisSource) SampleRate() int { return s.r.SampleRate() }
func (s *vorbisSource) Channels() int   { return s.r.Channels() }

func (s *vorbisSource) Read(dst []float32) (int, error) {
	n, err := s.r.Read(dst)
	if n == 0 && err == nil {
		return 0, io.EOF
	}
	return n, err
}

func (s *vorbisSource) SeekZero() error {
	if err := reopenAtZero(s.f); err != nil {
		return err
	}
	r, err := oggvorbis.NewReader(s.f)
	if err != nil {
		return err
	}
	s.r = r
	return nil
}

func (s *vorbisSource) Close() error { return s.f.Close() }
