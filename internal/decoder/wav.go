package decoder

import (
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

type wavDecoder struct{}

func (wavDecoder) Open(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	s, err := newWavSource(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

type wavSource struct {
	f        *os.File
	dec      *wav.Decoder
	bitDepth int
	intBuf   *audio.IntBuffer
}

func newWavSource(f *os.File) (*wavSource, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, io.ErrUnexpectedEOF
	}
	dec.ReadInfo()

	return &wavSource{
		f:        f,
		dec:      dec,
		bitDepth: int(dec.BitDepth),
		intBuf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: int(dec.NumChans),
				SampleRate:  int(dec.SampleRate),
			},
		},
	}, nil
}

func (s *wavSource) SampleRate() int { return int(s.dec.SampleRate) }
func (s *wavSource) Channels() int   { return int(s.dec.NumChans) }

func (s *wavSource) Read(dst []float32) (int, error) {
	s.intBuf.Data = make([]int, len(dst))
	n, err := s.dec.PCMBuffer(s.intBuf)
	if err != nil && err != io.EOF {
		return 0, err
	}

	if n == 0 {
		return 0, io.EOF
	}

	full := float32(int(1) << (s.bitDepth - 1))
	for i := 0; i < n; i++ {
		dst[i] = float32(s.intBuf.Data[i]) / full
	}
	return n, nil
}

func (s *wavSource) SeekZero() error {
	if err := reopenAtZero(s.f); err != nil {
		return err
	}
	dec := wav.NewDecoder(s.f)
	dec.ReadInfo()
	s.dec = dec
	return nil
}

func (s *wavSource) Close() error { return s.f.Close() }
