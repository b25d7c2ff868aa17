// Animation, state change, dispatch and moveable table parsing.
package formats

import (
	"errors"
	"fmt"
)

// Animation table errors.
var (
	ErrTruncatedAnimation = errors.New("truncated animation data")
	ErrBadTableIndex      = errors.New("animation table cross-reference out of range")
)

// Animation is one fully resolved animation: the raw record with its
// state-change and command cross-references pulled in from the shared
// tables. Immutable once resolved.
type Animation struct {
	FrameOffset uint32 // byte offset into the shared frame buffer
	FrameRate   uint8  // engine ticks per frame step
	FrameSize   uint16 // frame stride in 16-bit words
	StateID     uint16

	Speed float32
	Accel float32
	// Lateral movement, extended revisions only; ignored for the player.
	LateralSpeed float32
	LateralAccel float32

	FrameStart    uint16 // first frame number of this animation
	FrameEnd      uint16 // last frame number, inclusive
	NextAnimation uint16 // animation entered after FrameEnd
	NextFrame     uint16

	StateChanges []StateChange
	// AnimCommands is this animation's slice of the shared command word
	// array, still packed; walk it with NewCommandReader. NumCommands is
	// how many commands the record declares, since the packed words are
	// not self-terminating.
	AnimCommands []int16
	NumCommands  int
}

// StateChange groups the dispatch ranges available when a given state is
// requested while this animation plays.
type StateChange struct {
	StateID    uint16
	Dispatches []AnimDispatch
}

// AnimDispatch maps an inclusive frame range to a transition target.
type AnimDispatch struct {
	Low           int16
	High          int16
	NextAnimation int16
	NextFrame     int16
}

const (
	animationRecordSize = 32
	stateChangeSize     = 6
	animDispatchSize    = 8
	moveableRecordSize  = 18
)

// animationRecord is the raw on-disk record before cross-references into
// the state-change and command tables are resolved.
type animationRecord struct {
	anim             Animation
	numStateChanges  uint16
	stateChangeIndex uint16
	numAnimCommands  uint16
	animCommandIndex uint16
}

// stateChangeRecord is the raw 6-byte state change entry.
type stateChangeRecord struct {
	stateID       uint16
	numDispatches uint16
	dispatchIndex uint16
}

// ParseAnimations parses and resolves the animation table. stateChanges,
// dispatches and commands are the raw bytes of the companion tables the
// animation records index into.
//
// Base revisions store speed and acceleration as 16.16 fixed point;
// extended revisions (TR4+) fit lateral speed/acceleration into the same
// 32-byte record by narrowing all four to 8.8 fixed point.
func ParseAnimations(data []byte, count int, stateChanges, dispatches, commands []byte, rev Revision) ([]Animation, error) {
	records, err := parseAnimationRecords(data, count, rev)
	if err != nil {
		return nil, err
	}
	scs, err := parseStateChangeRecords(stateChanges)
	if err != nil {
		return nil, err
	}
	disp, err := ParseDispatches(dispatches)
	if err != nil {
		return nil, err
	}
	words := ParseInt16Array(commands)

	anims := make([]Animation, len(records))
	for i := range records {
		rec := &records[i]
		anim := rec.anim

		anim.StateChanges, err = resolveStateChanges(scs, disp, rec.stateChangeIndex, rec.numStateChanges)
		if err != nil {
			return nil, fmt.Errorf("animation %d: %w", i, err)
		}

		if rec.numAnimCommands > 0 {
			// The command stream is self-describing, so the record's count
			// is commands, not words; keep the whole tail from the entry
			// point and let the reader stop after that many commands.
			if int(rec.animCommandIndex) > len(words) {
				return nil, fmt.Errorf("animation %d: %w: command index %d", i, ErrBadTableIndex, rec.animCommandIndex)
			}
			anim.AnimCommands = words[rec.animCommandIndex:]
			anim.NumCommands = int(rec.numAnimCommands)
		}

		anims[i] = anim
	}
	return anims, nil
}

func parseAnimationRecords(data []byte, count int, rev Revision) ([]animationRecord, error) {
	if count < 0 || len(data) < count*animationRecordSize {
		return nil, fmt.Errorf("%w: need %d records", ErrTruncatedAnimation, count)
	}

	records := make([]animationRecord, count)
	for i := range records {
		off := i * animationRecordSize
		rec := &records[i]

		rec.anim.FrameOffset = u32At(data, off)
		rec.anim.FrameRate = data[off+4]
		rec.anim.FrameSize = uint16(data[off+5])
		rec.anim.StateID = u16At(data, off+6)

		if rev.ExtendedAnimations() {
			rec.anim.Speed = Fixed16(i16At(data, off+8)).Float()
			rec.anim.Accel = Fixed16(i16At(data, off+10)).Float()
			rec.anim.LateralSpeed = Fixed16(i16At(data, off+12)).Float()
			rec.anim.LateralAccel = Fixed16(i16At(data, off+14)).Float()
		} else {
			rec.anim.Speed = Fixed32(i32At(data, off+8)).Float()
			rec.anim.Accel = Fixed32(i32At(data, off+12)).Float()
		}

		rec.anim.FrameStart = u16At(data, off+16)
		rec.anim.FrameEnd = u16At(data, off+18)
		rec.anim.NextAnimation = u16At(data, off+20)
		rec.anim.NextFrame = u16At(data, off+22)
		rec.numStateChanges = u16At(data, off+24)
		rec.stateChangeIndex = u16At(data, off+26)
		rec.numAnimCommands = u16At(data, off+28)
		rec.animCommandIndex = u16At(data, off+30)
	}
	return records, nil
}

func parseStateChangeRecords(data []byte) ([]stateChangeRecord, error) {
	if len(data)%stateChangeSize != 0 {
		return nil, fmt.Errorf("%w: state change table size %d", ErrTruncatedAnimation, len(data))
	}
	records := make([]stateChangeRecord, len(data)/stateChangeSize)
	for i := range records {
		off := i * stateChangeSize
		records[i] = stateChangeRecord{
			stateID:       u16At(data, off),
			numDispatches: u16At(data, off+2),
			dispatchIndex: u16At(data, off+4),
		}
	}
	return records, nil
}

// ParseDispatches parses the shared dispatch table.
func ParseDispatches(data []byte) ([]AnimDispatch, error) {
	if len(data)%animDispatchSize != 0 {
		return nil, fmt.Errorf("%w: dispatch table size %d", ErrTruncatedAnimation, len(data))
	}
	dispatches := make([]AnimDispatch, len(data)/animDispatchSize)
	for i := range dispatches {
		off := i * animDispatchSize
		dispatches[i] = AnimDispatch{
			Low:           i16At(data, off),
			High:          i16At(data, off+2),
			NextAnimation: i16At(data, off+4),
			NextFrame:     i16At(data, off+6),
		}
	}
	return dispatches, nil
}

func resolveStateChanges(scs []stateChangeRecord, dispatches []AnimDispatch, first, count uint16) ([]StateChange, error) {
	if count == 0 {
		return nil, nil
	}
	if int(first)+int(count) > len(scs) {
		return nil, fmt.Errorf("%w: state changes [%d,%d)", ErrBadTableIndex, first, int(first)+int(count))
	}

	out := make([]StateChange, count)
	for i := range out {
		rec := scs[int(first)+i]
		if int(rec.dispatchIndex)+int(rec.numDispatches) > len(dispatches) {
			return nil, fmt.Errorf("%w: dispatches [%d,%d)", ErrBadTableIndex, rec.dispatchIndex, int(rec.dispatchIndex)+int(rec.numDispatches))
		}
		out[i] = StateChange{
			StateID:    rec.stateID,
			Dispatches: dispatches[rec.dispatchIndex : int(rec.dispatchIndex)+int(rec.numDispatches)],
		}
	}
	return out, nil
}

// Moveable is an asset entry tying an entity type to its mesh set,
// hierarchy and first animation.
type Moveable struct {
	TypeID         uint32
	MeshCount      uint16
	StartingMesh   uint16
	MeshTreeOffset uint32 // word offset into the mesh tree table
	FrameOffset    uint32 // byte offset of the first frame
	Animation      uint16 // first animation index, or NoAnimation
}

// NoAnimation marks a moveable with no animation data of its own.
const NoAnimation = 0xFFFF

// ParseMoveables parses count moveable records.
func ParseMoveables(data []byte, count int) ([]Moveable, error) {
	if count < 0 || len(data) < count*moveableRecordSize {
		return nil, fmt.Errorf("%w: need %d moveables", ErrTruncatedAnimation, count)
	}
	out := make([]Moveable, count)
	for i := range out {
		off := i * moveableRecordSize
		out[i] = Moveable{
			TypeID:         u32At(data, off),
			MeshCount:      u16At(data, off+4),
			StartingMesh:   u16At(data, off+6),
			MeshTreeOffset: u32At(data, off+8),
			FrameOffset:    u32At(data, off+12),
			Animation:      u16At(data, off+16),
		}
	}
	return out, nil
}

// ResolveAnimationSets computes the effective first-animation index for
// every entity type. Types without animation data of their own borrow a
// donor type's complete set via the borrow table (entity type → donor
// type); the substitution happens once here, at load time, so playback
// never needs to know which type owns an animation index.
func ResolveAnimationSets(moveables []Moveable, borrow map[uint32]uint32) map[uint32]uint16 {
	byType := make(map[uint32]*Moveable, len(moveables))
	for i := range moveables {
		byType[moveables[i].TypeID] = &moveables[i]
	}

	out := make(map[uint32]uint16, len(moveables))
	for i := range moveables {
		m := &moveables[i]
		if m.Animation != NoAnimation {
			out[m.TypeID] = m.Animation
			continue
		}
		if donor, ok := borrow[m.TypeID]; ok {
			if d, ok := byType[donor]; ok && d.Animation != NoAnimation {
				out[m.TypeID] = d.Animation
			}
		}
	}
	return out
}
