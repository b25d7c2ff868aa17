package formats

import (
	"encoding/binary"
	"errors"
	"testing"
)

// buildFrameBytes packs one frame: header, optional TR1 angle count, and
// packed angles.
func buildFrameBytes(bbMin, bbMax, root [3]int16, angles []Angle, rev Revision) []byte {
	var buf []byte
	putI16 := func(v int16) {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(v))
	}

	for _, v := range bbMin {
		putI16(v)
	}
	for _, v := range bbMax {
		putI16(v)
	}
	for _, v := range root {
		putI16(v)
	}
	if rev.HasAngleCount() {
		putI16(int16(len(angles)))
	}
	for _, a := range angles {
		for _, w := range EncodeAngle(a, rev) {
			buf = binary.LittleEndian.AppendUint16(buf, w)
		}
	}
	return buf
}

func TestDecodeFrame_TR2(t *testing.T) {
	angles := []Angle{
		{X: 100, Y: 200, Z: 300}, // two words
		{Y: 512},                 // single axis, one word
		{},                       // zero rotation, two words
	}
	buf := buildFrameBytes(
		[3]int16{-10, -20, -30}, [3]int16{10, 20, 30}, [3]int16{1, 2, 3},
		angles, TR2)

	f, err := DecodeFrame(buf, 0, 3, TR2)
	if err != nil {
		t.Fatalf("failed to decode frame: %v", err)
	}

	if f.BBoxMin != [3]int16{-10, -20, -30} {
		t.Errorf("bbox min wrong: %v", f.BBoxMin)
	}
	if f.BBoxMax != [3]int16{10, 20, 30} {
		t.Errorf("bbox max wrong: %v", f.BBoxMax)
	}
	if f.RootOffset != [3]int16{1, 2, 3} {
		t.Errorf("root offset wrong: %v", f.RootOffset)
	}
	if len(f.Angles) != 3 {
		t.Fatalf("expected 3 angles, got %d", len(f.Angles))
	}
	for i, want := range angles {
		if f.Angles[i] != want {
			t.Errorf("angle %d: expected %+v, got %+v", i, want, f.Angles[i])
		}
	}
}

func TestDecodeFrame_AtOffset(t *testing.T) {
	// Frames are addressed by explicit byte offset into a shared buffer;
	// leading garbage must be ignored.
	frame := buildFrameBytes(
		[3]int16{0, 0, 0}, [3]int16{0, 0, 0}, [3]int16{7, 8, 9},
		[]Angle{{X: 42}}, TR3)
	buf := append(make([]byte, 64), frame...)

	f, err := DecodeFrame(buf, 64, 1, TR3)
	if err != nil {
		t.Fatalf("failed to decode frame at offset: %v", err)
	}
	if f.RootOffset != [3]int16{7, 8, 9} {
		t.Errorf("root offset wrong: %v", f.RootOffset)
	}
	if f.Angles[0] != (Angle{X: 42}) {
		t.Errorf("angle wrong: %+v", f.Angles[0])
	}
}

func TestDecodeFrame_TR1AngleCountZeroFill(t *testing.T) {
	// TR1 frames carry their own angle count; when it is smaller than
	// the mesh count the missing rotations decode to zero.
	buf := buildFrameBytes(
		[3]int16{0, 0, 0}, [3]int16{0, 0, 0}, [3]int16{0, 0, 0},
		[]Angle{{X: 10, Y: 20, Z: 30}}, TR1)

	f, err := DecodeFrame(buf, 0, 4, TR1)
	if err != nil {
		t.Fatalf("failed to decode frame: %v", err)
	}
	if len(f.Angles) != 4 {
		t.Fatalf("expected 4 angles, got %d", len(f.Angles))
	}
	if f.Angles[0] != (Angle{X: 10, Y: 20, Z: 30}) {
		t.Errorf("angle 0 wrong: %+v", f.Angles[0])
	}
	for i := 1; i < 4; i++ {
		if f.Angles[i] != (Angle{}) {
			t.Errorf("angle %d: expected zero rotation, got %+v", i, f.Angles[i])
		}
	}
}

func TestDecodeFrame_Truncated(t *testing.T) {
	full := buildFrameBytes(
		[3]int16{0, 0, 0}, [3]int16{0, 0, 0}, [3]int16{0, 0, 0},
		[]Angle{{X: 1, Y: 2, Z: 3}, {X: 4, Y: 5, Z: 6}}, TR2)

	// Every prefix shorter than the declared extent must fail.
	for cut := 0; cut < len(full); cut += 2 {
		if _, err := DecodeFrame(full[:cut], 0, 2, TR2); !errors.Is(err, ErrTruncatedFrame) {
			t.Errorf("cut %d: expected ErrTruncatedFrame, got %v", cut, err)
		}
	}
	if _, err := DecodeFrame(full, 0, 2, TR2); err != nil {
		t.Errorf("full frame should decode, got %v", err)
	}

	// Offset past the end of the buffer.
	if _, err := DecodeFrame(full, uint32(len(full)), 1, TR2); !errors.Is(err, ErrTruncatedFrame) {
		t.Errorf("expected ErrTruncatedFrame for bad offset, got %v", err)
	}
}
