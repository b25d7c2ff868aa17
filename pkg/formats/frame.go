// Frame decoding.
//
// Frames live in one shared buffer per level; an animation addresses its
// keyframes by byte offset and stride. Frame extents for one animation may
// overlap the next animation's declared range, so decoding is always driven
// by the requesting animation's own offset/stride, never by scanning the
// buffer forward.
package formats

import "fmt"

// Frame is one decoded keyframe: a bounding box and root offset for the
// whole entity plus one rotation per mesh, index-aligned with the
// skeleton's meshes. The root's angle is relative to the entity's world
// placement; every other angle is relative to its parent mesh.
type Frame struct {
	BBoxMin    [3]int16
	BBoxMax    [3]int16
	RootOffset [3]int16
	Angles     []Angle
}

// frameHeaderWords is the fixed leading part of every frame: bbox min,
// bbox max and root offset, three int16 each.
const frameHeaderWords = 9

// DecodeFrame decodes the frame starting at byteOffset in the shared frame
// buffer, producing exactly meshCount angles.
//
// In TR1 the header is followed by an explicit angle-count word; when it
// is smaller than meshCount the missing trailing rotations decode to zero.
// Returns ErrTruncatedFrame if the implied extent runs past the buffer.
func DecodeFrame(buf []byte, byteOffset uint32, meshCount int, rev Revision) (*Frame, error) {
	off := int(byteOffset)
	if off < 0 || off+frameHeaderWords*2 > len(buf) {
		return nil, fmt.Errorf("%w: header at offset %d", ErrTruncatedFrame, byteOffset)
	}

	f := &Frame{Angles: make([]Angle, meshCount)}
	for i := 0; i < 3; i++ {
		f.BBoxMin[i] = i16At(buf, off+i*2)
		f.BBoxMax[i] = i16At(buf, off+6+i*2)
		f.RootOffset[i] = i16At(buf, off+12+i*2)
	}
	off += frameHeaderWords * 2

	angleCount := meshCount
	if rev.HasAngleCount() {
		if off+2 > len(buf) {
			return nil, fmt.Errorf("%w: angle count at offset %d", ErrTruncatedFrame, off)
		}
		angleCount = int(u16At(buf, off))
		off += 2
		if angleCount > meshCount {
			angleCount = meshCount
		}
	}

	for i := 0; i < angleCount; i++ {
		words, err := angleWordsAt(buf, off)
		if err != nil {
			return nil, err
		}
		angle, consumed, err := DecodeAngle(words, rev)
		if err != nil {
			return nil, err
		}
		f.Angles[i] = angle
		off += consumed * 2
	}

	return f, nil
}

// angleWordsAt returns up to two packed words starting at off, as much as
// the buffer still holds.
func angleWordsAt(buf []byte, off int) ([]uint16, error) {
	switch {
	case off+4 <= len(buf):
		return []uint16{u16At(buf, off), u16At(buf, off+2)}, nil
	case off+2 <= len(buf):
		return []uint16{u16At(buf, off)}, nil
	default:
		return nil, fmt.Errorf("%w: angle words at offset %d", ErrTruncatedFrame, off)
	}
}
