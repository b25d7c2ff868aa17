package anim

import (
	"testing"

	"github.com/SidepocketNeo/OpenTomb/pkg/formats"
)

func TestSelectNext_DispatchInRange(t *testing.T) {
	m := &StateMachine{Animations: []formats.Animation{
		{
			StateID: 1,
			StateChanges: []formats.StateChange{
				{StateID: 2, Dispatches: []formats.AnimDispatch{
					{Low: 0, High: 9, NextAnimation: 5, NextFrame: 0},
				}},
			},
		},
	}}

	tr, ok := m.SelectNext(0, 3, 2)
	if !ok {
		t.Fatal("expected a transition for frame 3")
	}
	if tr.Animation != 5 || tr.Frame != 0 {
		t.Errorf("expected transition (5, 0), got (%d, %d)", tr.Animation, tr.Frame)
	}

	// Frame 15 is outside the only dispatch range: the request stays
	// latched and the entity keeps playing its current animation.
	if _, ok := m.SelectNext(0, 15, 2); ok {
		t.Error("expected no transition for frame 15")
	}
}

func TestSelectNext_SameStateIsNoop(t *testing.T) {
	m := &StateMachine{Animations: []formats.Animation{
		{
			StateID: 3,
			StateChanges: []formats.StateChange{
				{StateID: 3, Dispatches: []formats.AnimDispatch{
					{Low: 0, High: 100, NextAnimation: 9, NextFrame: 0},
				}},
			},
		},
	}}

	// Even with a matching state change on file, a request for the
	// state already playing never transitions.
	if _, ok := m.SelectNext(0, 5, 3); ok {
		t.Error("expected no transition when state already matches")
	}
}

func TestSelectNext_NoMatchingState(t *testing.T) {
	m := &StateMachine{Animations: []formats.Animation{
		{
			StateID: 1,
			StateChanges: []formats.StateChange{
				{StateID: 2, Dispatches: []formats.AnimDispatch{
					{Low: 0, High: 50, NextAnimation: 4, NextFrame: 1},
				}},
			},
		},
	}}

	if _, ok := m.SelectNext(0, 10, 7); ok {
		t.Error("expected no transition for an unknown state")
	}
}

func TestSelectNext_FirstMatchWins(t *testing.T) {
	m := &StateMachine{Animations: []formats.Animation{
		{
			StateID: 1,
			StateChanges: []formats.StateChange{
				// Overlapping ranges resolve to declaration order.
				{StateID: 2, Dispatches: []formats.AnimDispatch{
					{Low: 0, High: 20, NextAnimation: 5, NextFrame: 0},
					{Low: 10, High: 30, NextAnimation: 6, NextFrame: 0},
				}},
				// A later state change for the same state is never
				// reached once the first one matched.
				{StateID: 2, Dispatches: []formats.AnimDispatch{
					{Low: 0, High: 100, NextAnimation: 7, NextFrame: 0},
				}},
			},
		},
	}}

	tr, ok := m.SelectNext(0, 15, 2)
	if !ok {
		t.Fatal("expected a transition")
	}
	if tr.Animation != 5 {
		t.Errorf("expected first dispatch to win, got animation %d", tr.Animation)
	}

	// Frame 25 only fits the second dispatch of the first state change.
	tr, ok = m.SelectNext(0, 25, 2)
	if !ok {
		t.Fatal("expected a transition")
	}
	if tr.Animation != 6 {
		t.Errorf("expected second dispatch, got animation %d", tr.Animation)
	}

	// Frame 40 fits neither dispatch of the first matching state
	// change; the later state change must not be consulted.
	if _, ok := m.SelectNext(0, 40, 2); ok {
		t.Error("expected no transition past the first matching state change")
	}
}

func TestSelectNext_HighBound(t *testing.T) {
	anims := []formats.Animation{
		{
			StateID: 1,
			StateChanges: []formats.StateChange{
				{StateID: 2, Dispatches: []formats.AnimDispatch{
					{Low: 0, High: 9, NextAnimation: 5, NextFrame: 0},
				}},
			},
		},
	}

	// Inclusive interpretation (the default): frame 9 still matches.
	inclusive := &StateMachine{Animations: anims}
	if _, ok := inclusive.SelectNext(0, 9, 2); !ok {
		t.Error("inclusive: expected frame 9 to match [0, 9]")
	}
	if _, ok := inclusive.SelectNext(0, 10, 2); ok {
		t.Error("inclusive: expected frame 10 not to match [0, 9]")
	}

	// Exclusive interpretation: frame 9 is out.
	exclusive := &StateMachine{Animations: anims, HighExclusive: true}
	if _, ok := exclusive.SelectNext(0, 9, 2); ok {
		t.Error("exclusive: expected frame 9 not to match [0, 9)")
	}
	if _, ok := exclusive.SelectNext(0, 8, 2); !ok {
		t.Error("exclusive: expected frame 8 to match [0, 9)")
	}
}

func TestSelectNext_OutOfRangeAnimation(t *testing.T) {
	m := &StateMachine{}
	if _, ok := m.SelectNext(3, 0, 1); ok {
		t.Error("expected no transition for an out-of-range animation index")
	}
}
