package decoder

import (
	"io"
	"os"

	gomp3 "github.com/hajimehoshi/go-mp3"
)

type mp3Decoder struct{}

func (mp3Decoder) Open(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	dec, err := gomp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &mp3Source{
		f:   f,
		dec: dec,
		buf: make([]byte, 8192),
	}, nil
}

// mp3Source adapts go-mp3's 16-bit stereo byte stream to interleaved
// float32 frames.
type mp3Source struct {
	f   *os.File
	dec *gomp3.Decoder
	buf []byte
}

func (s *mp3Source) SampleRate() int { return s.dec.SampleRate() }
func (s *mp3Source) Channels() int   { return 2 } // go-mp3 always decodes to stereo

func (s *mp3Source) Read(dst []float32) (int, error) {
	needed := len(dst) * 2
	if cap(s.buf) < needed {
		s.buf = make([]byte, needed)
	}
	s.buf = s.buf[:needed]

	n, err := s.dec.Read(s.buf)
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		return 0, err
	}

	samples := n / 2
	for i := 0; i < samples; i++ {
		lo := uint16(s.buf[2*i])
		hi := uint16(s.buf[2*i+1])
		v := int16(lo | hi<<8)
		dst[i] = float32(v) / 32768.0
	}
	return samples, nil
}

func (s *mp3Source) SeekZero() error {
	if err := reopenAtZero(s.f); err != nil {
		return err
	}
	dec, err := gomp3.NewDecoder(s.f)
	if err != nil {
		return err
	}
	s.dec = dec
	return nil
}

func (s *mp3Source) Close() error { return s.f.Close() }
