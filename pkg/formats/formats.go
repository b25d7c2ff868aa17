// Package formats provides parsers for the animation tables embedded in
// legacy Tomb Raider level files (TR1 through TR5/Chronicles).
//
// All tables are little-endian. Parsers take raw byte slices supplied by a
// level loader; this package never touches storage itself. Decoded tables
// are immutable and safe to share across goroutines.
package formats

import (
	"encoding/binary"
	"fmt"
)

// Revision identifies which of the five level format revisions a table
// was extracted from. Angle packing, frame headers and animation record
// layouts differ across revisions.
type Revision int

const (
	TR1 Revision = 1 + iota
	TR2
	TR3
	TR4
	TR5
)

// String returns a human-readable revision name.
func (r Revision) String() string {
	switch r {
	case TR1:
		return "TR1"
	case TR2:
		return "TR2"
	case TR3:
		return "TR3"
	case TR4:
		return "TR4"
	case TR5:
		return "TR5"
	default:
		return fmt.Sprintf("Unknown(%d)", int(r))
	}
}

// Valid reports whether r is one of the five known revisions.
func (r Revision) Valid() bool {
	return r >= TR1 && r <= TR5
}

// HasAngleCount reports whether frames carry an explicit angle-count word.
// Only the earliest revision does; later ones derive the count from the
// skeleton's mesh count.
func (r Revision) HasAngleCount() bool {
	return r == TR1
}

// SwapAngleWords reports whether two-word packed angles store their words
// in swapped byte order relative to later revisions.
func (r Revision) SwapAngleWords() bool {
	return r == TR1
}

// SingleAxisAngles reports whether the one-word single-axis angle encoding
// is available. TR1 always uses the two-word form.
func (r Revision) SingleAxisAngles() bool {
	return r >= TR2
}

// ExtendedAnimations reports whether animation records use the extended
// layout with lateral speed/acceleration fields.
func (r Revision) ExtendedAnimations() bool {
	return r >= TR4
}

// ParseRevision parses a revision name such as "tr3" or "TR3".
func ParseRevision(s string) (Revision, error) {
	switch s {
	case "tr1", "TR1", "1":
		return TR1, nil
	case "tr2", "TR2", "2":
		return TR2, nil
	case "tr3", "TR3", "3":
		return TR3, nil
	case "tr4", "TR4", "4":
		return TR4, nil
	case "tr5", "TR5", "5":
		return TR5, nil
	}
	return 0, fmt.Errorf("unknown format revision %q", s)
}

// Fixed32 is a 16.16 fixed-point value as stored in base-revision
// animation records.
type Fixed32 int32

// Float converts to float32.
func (f Fixed32) Float() float32 { return float32(f) / 65536.0 }

// Fixed16 is an 8.8 fixed-point value as stored in extended-revision
// animation records.
type Fixed16 int16

// Float converts to float32.
func (f Fixed16) Float() float32 { return float32(f) / 256.0 }

// Little-endian field readers shared by the table parsers.

func u16At(data []byte, off int) uint16 {
	return binary.LittleEndian.Uint16(data[off : off+2])
}

func u32At(data []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(data[off : off+4])
}

func i16At(data []byte, off int) int16 {
	return int16(binary.LittleEndian.Uint16(data[off : off+2]))
}

func i32At(data []byte, off int) int32 {
	return int32(binary.LittleEndian.Uint32(data[off : off+4]))
}

// ParseInt16Array reinterprets a byte slice as a packed little-endian
// int16 array (used for the shared anim-command table).
func ParseInt16Array(data []byte) []int16 {
	out := make([]int16, len(data)/2)
	for i := range out {
		out[i] = i16At(data, i*2)
	}
	return out
}
