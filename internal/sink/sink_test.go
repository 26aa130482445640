package sink

import "testing"

func TestWriteNextBufferPlaysSilenceBeforeFirstDelivery(t *testing.T) {
	s := &Stream{channels: 2}
	out := make([]float32, 4)
	for i := range out {
		out[i] = 99
	}

	s.writeNextBuffer(out)

	for i, v := range out {
		if v != 0 {
			t.Errorf("out[%d] = %v, want 0 before any delivery", i, v)
		}
	}
}

func TestFrameCallbackFeedsNextWrite(t *testing.T) {
	s := &Stream{channels: 2}
	cb := s.FrameCallback()

	cb([]float32{0.1, 0.2, 0.3, 0.4}, 2, 44100, 2, nil)

	out := make([]float32, 4)
	s.writeNextBuffer(out)

	want := []float32{0.1, 0.2, 0.3, 0.4}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestWriteNextBufferFallsBackToSilenceOnSizeMismatch(t *testing.T) {
	s := &Stream{channels: 2}
	cb := s.FrameCallback()
	cb([]float32{1, 1}, 1, 44100, 2, nil)

	out := make([]float32, 4)
	for i := range out {
		out[i] = 7
	}
	s.writeNextBuffer(out)

	for i, v := range out {
		if v != 0 {
			t.Errorf("out[%d] = %v, want 0 on buffer size mismatch", i, v)
		}
	}
}
