// Package anim evaluates decoded animation tables into per-tick skeleton
// poses and command events. Asset tables are read-only and shared; each
// entity owns one PlaybackState mutated by exactly one Tick call at a
// time, so entities can be evaluated in parallel.
package anim

import "github.com/SidepocketNeo/OpenTomb/pkg/formats"

// Transition is a state machine result: the animation and frame to jump to.
type Transition struct {
	Animation uint16
	Frame     uint16
}

// StateMachine selects the next animation for a requested entity state by
// scanning the current animation's state changes.
type StateMachine struct {
	Animations []formats.Animation

	// HighExclusive flips the dispatch range test to treat High as
	// exclusive. Reference documentation is ambiguous ("high, +1?");
	// the default, inclusive, matches observed assets so far.
	HighExclusive bool
}

// SelectNext decides where playback goes for the requested state. It
// returns false when no transition applies: either the current animation
// already serves the state, or no dispatch range covers the current frame
// yet. Callers latch the request and retry every tick — doors and
// similar entities must reach a compatible frame window before they can
// switch.
//
// Both scans are first-match-wins in declaration order; overlapping
// dispatch ranges are legal and resolve to the earlier entry.
func (m *StateMachine) SelectNext(animIndex uint16, currentFrame int16, requestedState uint16) (Transition, bool) {
	if int(animIndex) >= len(m.Animations) {
		return Transition{}, false
	}
	anim := &m.Animations[animIndex]
	if anim.StateID == requestedState {
		return Transition{}, false
	}

	for i := range anim.StateChanges {
		sc := &anim.StateChanges[i]
		if sc.StateID != requestedState {
			continue
		}
		for _, d := range sc.Dispatches {
			if m.dispatchContains(d, currentFrame) {
				return Transition{
					Animation: uint16(d.NextAnimation),
					Frame:     uint16(d.NextFrame),
				}, true
			}
		}
		break
	}
	return Transition{}, false
}

// dispatchContains is the single place the range test lives so the High
// interpretation can be flipped without touching anything else.
func (m *StateMachine) dispatchContains(d formats.AnimDispatch, frame int16) bool {
	if frame < d.Low {
		return false
	}
	if m.HighExclusive {
		return frame < d.High
	}
	return frame <= d.High
}
