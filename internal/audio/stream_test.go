package audio

import (
	"encoding/binary"
	"io"
	"math"
	"testing"
)

type rampSource struct {
	calls    int
	finishAt int
}

func (s *rampSource) Process(dst []float32) {
	s.calls++
	for i := range dst {
		dst[i] = float32(i) / 10
	}
}

func (s *rampSource) Finished() bool { return s.finishAt > 0 && s.calls >= s.finishAt }

func TestStreamReaderEncodesFloat32LE(t *testing.T) {
	src := &rampSource{}
	r := NewStreamReader(src)
	p := make([]byte, 3*BytesPerFrame+5) // trailing partial frame is not filled
	n, err := r.Read(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if n != 3*BytesPerFrame {
		t.Fatalf("n = %d", n)
	}
	for i := 0; i < 6; i++ {
		got := math.Float32frombits(binary.LittleEndian.Uint32(p[i*4:]))
		if got != float32(i)/10 {
			t.Fatalf("sample %d = %f", i, got)
		}
	}
	if r.Frames() != 3 {
		t.Fatalf("frames = %d", r.Frames())
	}
	if n, _ := r.Read(make([]byte, 4)); n != 0 {
		t.Fatalf("short read should return 0, got %d", n)
	}
}

func TestStreamReaderReportsEOF(t *testing.T) {
	r := NewStreamReader(&rampSource{finishAt: 2})
	buf := make([]byte, 64)
	if _, err := r.Read(buf); err != nil {
		t.Fatalf("first read: %v", err)
	}
	n, err := r.Read(buf)
	if err != io.EOF || n != 64 {
		t.Fatalf("expected final block with EOF, got n=%d err=%v", n, err)
	}
}
