// Anim command stream decoding.
//
// Commands are packed as a flat int16 sequence where each entry's opcode
// determines how many operand words follow. The stream is therefore never
// random-accessible: a wrong operand count desynchronizes everything after
// it, so an unknown opcode aborts the rest of the stream instead of
// guessing.
package formats

import (
	"errors"
	"fmt"
)

// ErrUnknownCommand is returned for an opcode outside the defined range.
var ErrUnknownCommand = errors.New("unknown anim command opcode")

// CommandOp is an anim command opcode.
type CommandOp int16

const (
	OpSetPosition  CommandOp = 1
	OpJumpDistance CommandOp = 2
	OpEmptyHands   CommandOp = 3
	OpKill         CommandOp = 4
	OpPlaySound    CommandOp = 5
	OpEffect       CommandOp = 6
)

// String returns the opcode name.
func (op CommandOp) String() string {
	switch op {
	case OpSetPosition:
		return "SetPosition"
	case OpJumpDistance:
		return "JumpDistance"
	case OpEmptyHands:
		return "EmptyHands"
	case OpKill:
		return "Kill"
	case OpPlaySound:
		return "PlaySound"
	case OpEffect:
		return "Effect"
	default:
		return fmt.Sprintf("Unknown(%d)", int16(op))
	}
}

// Command is one decoded anim command. Whole-animation commands apply when
// the animation completes; per-frame commands carry the frame number they
// fire on.
type Command interface {
	Op() CommandOp
}

// SetPosition shifts the entity by a fixed offset when the animation
// completes (whole-animation).
type SetPosition struct {
	DX, DY, DZ int16
}

// JumpDistance launches the entity with the given vertical and horizontal
// speeds (whole-animation).
type JumpDistance struct {
	Vertical, Horizontal int16
}

// EmptyHands unlocks the entity's action lock (whole-animation). The
// stream only reports it; acting on it is the caller's job.
type EmptyHands struct{}

// Kill signals entity removal to the caller (whole-animation).
type Kill struct{}

// PlaySound triggers a sound when its frame is crossed (per-frame).
type PlaySound struct {
	Frame int16
	Sound SoundID
}

// Effect triggers an effect when its frame is crossed (per-frame).
type Effect struct {
	Frame int16
	ID    int16
}

func (SetPosition) Op() CommandOp  { return OpSetPosition }
func (JumpDistance) Op() CommandOp { return OpJumpDistance }
func (EmptyHands) Op() CommandOp   { return OpEmptyHands }
func (Kill) Op() CommandOp         { return OpKill }
func (PlaySound) Op() CommandOp    { return OpPlaySound }
func (Effect) Op() CommandOp       { return OpEffect }

// SoundID is a packed sound reference: the low 14 bits are the sound
// index, the top bits restrict the environment it fires in.
type SoundID int16

// ID returns the sound index.
func (s SoundID) ID() int16 { return int16(s) & 0x3FFF }

// DryLandOnly reports whether the sound fires only out of water.
func (s SoundID) DryLandOnly() bool { return uint16(s)&0x4000 != 0 }

// UnderwaterOnly reports whether the sound fires only underwater.
func (s SoundID) UnderwaterOnly() bool { return uint16(s)&0x8000 != 0 }

// CommandReader walks a packed command stream from its start. Readers are
// cheap; create a fresh one for every walk.
type CommandReader struct {
	words     []int16
	pos       int
	remaining int
}

// NewCommandReader returns a reader over one animation's packed commands.
// count is the number of commands the animation record declares.
func NewCommandReader(words []int16, count int) *CommandReader {
	return &CommandReader{words: words, remaining: count}
}

// Next decodes the next command. It returns (nil, nil) at the end of the
// stream, or ErrUnknownCommand if an undecodable opcode is hit, after
// which the remainder of the stream is unusable.
func (r *CommandReader) Next() (Command, error) {
	if r.remaining <= 0 || r.pos >= len(r.words) {
		return nil, nil
	}

	op := CommandOp(r.words[r.pos])
	operands := r.words[r.pos+1:]

	var cmd Command
	var width int
	switch op {
	case OpSetPosition:
		width = 3
		if len(operands) >= width {
			cmd = SetPosition{DX: operands[0], DY: operands[1], DZ: operands[2]}
		}
	case OpJumpDistance:
		width = 2
		if len(operands) >= width {
			cmd = JumpDistance{Vertical: operands[0], Horizontal: operands[1]}
		}
	case OpEmptyHands:
		cmd = EmptyHands{}
	case OpKill:
		cmd = Kill{}
	case OpPlaySound:
		width = 2
		if len(operands) >= width {
			cmd = PlaySound{Frame: operands[0], Sound: SoundID(operands[1])}
		}
	case OpEffect:
		width = 2
		if len(operands) >= width {
			cmd = Effect{Frame: operands[0], ID: operands[1]}
		}
	default:
		r.remaining = 0
		return nil, fmt.Errorf("%w: %d at word %d", ErrUnknownCommand, int16(op), r.pos)
	}

	if cmd == nil {
		r.remaining = 0
		return nil, fmt.Errorf("%w: %s operands cut short at word %d", ErrUnknownCommand, op, r.pos)
	}

	r.pos += 1 + width
	r.remaining--
	return cmd, nil
}

// ParseAnimCommands decodes a whole stream eagerly. On error the commands
// decoded before the bad opcode are returned alongside it.
func ParseAnimCommands(words []int16, count int) ([]Command, error) {
	r := NewCommandReader(words, count)
	var out []Command
	for {
		cmd, err := r.Next()
		if err != nil {
			return out, err
		}
		if cmd == nil {
			return out, nil
		}
		out = append(out, cmd)
	}
}
