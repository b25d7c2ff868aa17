// Packed bone rotation decoding.
//
// Each bone's rotation for one frame is a triple of 10-bit angles in units
// of 90°/256 (256 units = a quarter turn, 1024 units = a full turn),
// applied in Y, X, Z order. Later revisions may pack a single-axis
// rotation into one word, tagged in the top two bits; the earliest
// revision always uses the two-word form with its words swapped.
package formats

import (
	"errors"
	"fmt"
)

// ErrTruncatedFrame is returned when a frame's declared extent (header
// plus packed angles) runs past the end of the frame buffer.
var ErrTruncatedFrame = errors.New("truncated frame data")

// AngleUnitsPerTurn is the number of rotation units in a full turn.
const AngleUnitsPerTurn = 1024

// Angle is one bone's rotation triple in 10-bit rotation units
// (0..1023 per axis). Rotations apply in Y, X, Z order.
type Angle struct {
	X, Y, Z uint16
}

// Degrees converts the triple to degrees per axis.
func (a Angle) Degrees() (x, y, z float32) {
	const scale = 90.0 / 256.0
	return float32(a.X) * scale, float32(a.Y) * scale, float32(a.Z) * scale
}

const (
	angleAxisShift = 14
	angleValueMask = 0x03FF

	angleAxisX = 1
	angleAxisY = 2
	angleAxisZ = 3
)

// DecodeAngle decodes one bone's rotation from packed words, returning the
// angle and the number of words consumed (1 or 2).
//
// Two-word form, tag bits zero: word 1 carries X in its low 10 bits and
// the top 4 bits of Y above that; word 2 carries the low 6 bits of Y in
// its top bits and Z in its low 10 bits. One-word form (TR2+ only): the
// top two bits select the axis, the low 10 bits are the magnitude.
func DecodeAngle(words []uint16, rev Revision) (Angle, int, error) {
	if len(words) < 1 {
		return Angle{}, 0, fmt.Errorf("%w: empty angle span", ErrTruncatedFrame)
	}

	if rev.SingleAxisAngles() {
		switch words[0] >> angleAxisShift {
		case angleAxisX:
			return Angle{X: words[0] & angleValueMask}, 1, nil
		case angleAxisY:
			return Angle{Y: words[0] & angleValueMask}, 1, nil
		case angleAxisZ:
			return Angle{Z: words[0] & angleValueMask}, 1, nil
		}
	}

	if len(words) < 2 {
		return Angle{}, 0, fmt.Errorf("%w: two-word angle cut short", ErrTruncatedFrame)
	}

	w0, w1 := words[0], words[1]
	if rev.SwapAngleWords() {
		w0, w1 = w1, w0
	}

	return Angle{
		X: w0 & angleValueMask,
		Y: (w0>>10&0x0F)<<6 | w1>>10&0x3F,
		Z: w1 & angleValueMask,
	}, 2, nil
}

// EncodeAngle packs an angle back into words, the inverse of DecodeAngle.
// For TR2+ a rotation about a single axis uses the short form. Angle
// components are taken modulo the 10-bit range.
func EncodeAngle(a Angle, rev Revision) []uint16 {
	x := a.X & angleValueMask
	y := a.Y & angleValueMask
	z := a.Z & angleValueMask

	if rev.SingleAxisAngles() {
		switch {
		case x != 0 && y == 0 && z == 0:
			return []uint16{angleAxisX<<angleAxisShift | x}
		case y != 0 && x == 0 && z == 0:
			return []uint16{angleAxisY<<angleAxisShift | y}
		case z != 0 && x == 0 && y == 0:
			return []uint16{angleAxisZ<<angleAxisShift | z}
		}
	}

	w0 := x | (y>>6)<<10
	w1 := z | (y&0x3F)<<10
	if rev.SwapAngleWords() {
		w0, w1 = w1, w0
	}
	return []uint16{w0, w1}
}
