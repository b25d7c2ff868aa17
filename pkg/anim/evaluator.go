package anim

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/SidepocketNeo/OpenTomb/pkg/formats"
)

// AnimationSet bundles the read-only asset tables one skeleton animates
// from. Safe to share across entities and goroutines.
type AnimationSet struct {
	Revision   formats.Revision
	Animations []formats.Animation
	FrameData  []byte // shared frame buffer
	Hierarchy  *formats.SkeletonHierarchy
}

// PlaybackState is one entity's mutable playback position. Owned by the
// entity; exactly one Tick call may mutate it per tick.
type PlaybackState struct {
	Animation uint16
	// Frame is the fractional frame number, between the animation's
	// FrameStart and FrameEnd. Engine ticks are coarser than frames, so
	// interpolation needs the fraction.
	Frame float64
	// RequestedState is the latest state asked for by gameplay logic.
	// It stays latched until a dispatch window accepts it.
	RequestedState uint16
}

// Pose is one tick's evaluated skeleton: a transform per mesh in entity
// space, plus the interpolated bounding box and root offset. Output is
// handed to the caller for that tick only; the evaluator does not retain
// it.
type Pose struct {
	BBoxMin    mgl32.Vec3
	BBoxMax    mgl32.Vec3
	RootOffset mgl32.Vec3
	// Mesh[i] maps mesh i's local space into entity space. Mesh 0 is
	// placed relative to the entity's world placement.
	Mesh []mgl32.Mat4
}

// Evaluator drives per-tick playback over one AnimationSet.
type Evaluator struct {
	Set   *AnimationSet
	State StateMachine

	log *zap.Logger
}

// maxWrapsPerTick bounds the frame-advance loop so a degenerate animation
// (FrameEnd < FrameStart in corrupt data) cannot spin forever.
const maxWrapsPerTick = 8

// NewEvaluator returns an evaluator over set. logger may be nil; clamp
// warnings are then dropped.
func NewEvaluator(set *AnimationSet, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{
		Set:   set,
		State: StateMachine{Animations: set.Animations},
		log:   logger,
	}
}

// frameWindow is an integer frame range within one animation whose
// per-frame commands fired this tick.
type frameWindow struct {
	anim   uint16
	lo, hi int // inclusive
}

// Tick advances playback by deltaTicks engine ticks and evaluates the
// resulting pose. It returns the pose together with every command whose
// frame was crossed this tick (exclusive of the previous frame, inclusive
// of the new one) and the whole-animation commands of any animation that
// completed.
//
// Corrupt playback positions (out-of-range animation or frame indices,
// typically from bad save data) are clamped and logged rather than
// failed: one entity's bad state must not halt the simulation. Decode
// errors from the frame buffer itself are returned.
func (e *Evaluator) Tick(st *PlaybackState, deltaTicks float64) (*Pose, []formats.Command, error) {
	if len(e.Set.Animations) == 0 {
		return nil, nil, errors.New("animation set is empty")
	}
	e.clampAnimation(st)

	// State transitions resolve against the pre-advance frame.
	if tr, ok := e.State.SelectNext(st.Animation, int16(st.Frame), st.RequestedState); ok {
		st.Animation = tr.Animation
		st.Frame = float64(tr.Frame)
		e.clampAnimation(st)
	}

	windows, fired := e.advance(st, deltaTicks)
	cmds := e.collectCommands(windows, fired)

	pose, err := e.evaluatePose(st)
	if err != nil {
		return nil, nil, err
	}
	return pose, cmds, nil
}

// clampAnimation forces st back onto a valid animation and frame range.
func (e *Evaluator) clampAnimation(st *PlaybackState) {
	if len(e.Set.Animations) == 0 {
		return
	}
	if int(st.Animation) >= len(e.Set.Animations) {
		e.log.Warn("animation index out of range, clamping",
			zap.Uint16("animation", st.Animation),
			zap.Int("count", len(e.Set.Animations)))
		st.Animation = uint16(len(e.Set.Animations) - 1)
	}
	anim := &e.Set.Animations[st.Animation]
	if st.Frame < float64(anim.FrameStart) {
		e.log.Warn("frame before animation start, clamping",
			zap.Uint16("animation", st.Animation),
			zap.Float64("frame", st.Frame))
		st.Frame = float64(anim.FrameStart)
	}
	if st.Frame > float64(anim.FrameEnd) {
		e.log.Warn("frame past animation end, clamping",
			zap.Uint16("animation", st.Animation),
			zap.Float64("frame", st.Frame))
		st.Frame = float64(anim.FrameEnd)
	}
}

// advance moves st forward by deltaTicks, following NextAnimation links
// whenever the frame passes FrameEnd. It returns the integer frame
// windows crossed per animation and the animations that completed.
func (e *Evaluator) advance(st *PlaybackState, deltaTicks float64) ([]frameWindow, []uint16) {
	anim := &e.Set.Animations[st.Animation]

	rate := float64(anim.FrameRate)
	if rate <= 0 {
		e.log.Warn("animation has zero frame rate, assuming 1",
			zap.Uint16("animation", st.Animation))
		rate = 1
	}

	prev := st.Frame
	next := st.Frame + deltaTicks/rate

	var windows []frameWindow
	var finished []uint16

	for wraps := 0; next > float64(anim.FrameEnd); wraps++ {
		if wraps >= maxWrapsPerTick {
			e.log.Warn("too many animation wraps in one tick, clamping",
				zap.Uint16("animation", st.Animation))
			next = float64(anim.FrameEnd)
			break
		}

		windows = append(windows, frameWindow{
			anim: st.Animation,
			lo:   int(prev) + 1,
			hi:   int(anim.FrameEnd),
		})
		finished = append(finished, st.Animation)

		// Carry the fractional overshoot into the next animation so a
		// self-loop stays exactly periodic.
		overshoot := next - float64(anim.FrameEnd) - 1

		nextAnim := anim.NextAnimation
		if int(nextAnim) >= len(e.Set.Animations) {
			e.log.Warn("next animation out of range, restarting current",
				zap.Uint16("animation", st.Animation),
				zap.Uint16("next", nextAnim))
			nextAnim = st.Animation
		}
		nextFrame := float64(anim.NextFrame)

		st.Animation = nextAnim
		anim = &e.Set.Animations[nextAnim]
		if nextFrame < float64(anim.FrameStart) || nextFrame > float64(anim.FrameEnd) {
			nextFrame = float64(anim.FrameStart)
		}

		// The entry frame itself counts as crossed.
		prev = nextFrame - 1
		next = nextFrame + overshoot
		if next < nextFrame {
			next = nextFrame
		}

		rate = float64(anim.FrameRate)
		if rate <= 0 {
			rate = 1
		}
	}

	windows = append(windows, frameWindow{
		anim: st.Animation,
		lo:   int(prev) + 1,
		hi:   int(next),
	})
	st.Frame = next
	return windows, finished
}

// collectCommands walks each touched animation's command stream and
// gathers per-frame commands inside the crossed windows plus
// whole-animation commands for completed animations. An undecodable
// stream is logged and skipped; it cannot be partially trusted.
func (e *Evaluator) collectCommands(windows []frameWindow, finished []uint16) []formats.Command {
	var out []formats.Command

	finishedSet := make(map[uint16]bool, len(finished))
	for _, a := range finished {
		finishedSet[a] = true
	}

	seen := make(map[uint16]bool, len(windows))
	for _, w := range windows {
		if seen[w.anim] {
			continue
		}
		seen[w.anim] = true

		anim := &e.Set.Animations[w.anim]
		r := formats.NewCommandReader(anim.AnimCommands, anim.NumCommands)
		for {
			cmd, err := r.Next()
			if err != nil {
				e.log.Warn("anim command stream aborted",
					zap.Uint16("animation", w.anim), zap.Error(err))
				break
			}
			if cmd == nil {
				break
			}

			switch c := cmd.(type) {
			case formats.PlaySound:
				if windowContains(windows, w.anim, int(c.Frame)) {
					out = append(out, c)
				}
			case formats.Effect:
				if windowContains(windows, w.anim, int(c.Frame)) {
					out = append(out, c)
				}
			default:
				if finishedSet[w.anim] {
					out = append(out, cmd)
				}
			}
		}
	}
	return out
}

func windowContains(windows []frameWindow, anim uint16, frame int) bool {
	for _, w := range windows {
		if w.anim == anim && frame >= w.lo && frame <= w.hi {
			return true
		}
	}
	return false
}

// evaluatePose decodes the two keyframes bracketing the fractional frame,
// interpolates them, and composes mesh transforms down the hierarchy.
func (e *Evaluator) evaluatePose(st *PlaybackState) (*Pose, error) {
	anim := &e.Set.Animations[st.Animation]
	h := e.Set.Hierarchy

	k0 := int(st.Frame)
	t := float32(st.Frame - float64(k0))
	k1 := k0 + 1
	if k1 > int(anim.FrameEnd) {
		k1 = int(anim.FrameEnd)
	}

	f0, err := e.decodeKeyframe(anim, k0)
	if err != nil {
		return nil, err
	}
	f1 := f0
	if k1 != k0 && t > 0 {
		if f1, err = e.decodeKeyframe(anim, k1); err != nil {
			return nil, err
		}
	}

	pose := &Pose{
		BBoxMin:    lerpVec3(f0.BBoxMin, f1.BBoxMin, t),
		BBoxMax:    lerpVec3(f0.BBoxMax, f1.BBoxMax, t),
		RootOffset: lerpVec3(f0.RootOffset, f1.RootOffset, t),
		Mesh:       make([]mgl32.Mat4, h.MeshCount()),
	}

	for i := 0; i < h.MeshCount(); i++ {
		rot := rotationYXZ(lerpAngle(f0.Angles[i], f1.Angles[i], t))
		var local mgl32.Mat4
		if i == 0 {
			local = mgl32.Translate3D(
				pose.RootOffset.X(), pose.RootOffset.Y(), pose.RootOffset.Z(),
			).Mul4(rot)
			pose.Mesh[0] = local
			continue
		}
		off := h.Offset[i]
		local = mgl32.Translate3D(
			float32(off[0]), float32(off[1]), float32(off[2]),
		).Mul4(rot)
		pose.Mesh[i] = pose.Mesh[h.Parent[i]].Mul4(local)
	}

	return pose, nil
}

// decodeKeyframe decodes integer keyframe k of anim. Addressing is driven
// purely by the requesting animation's own offset and stride: frame
// extents may overlap the next animation's declared range, so the decoder
// must never scan forward past FrameEnd.
func (e *Evaluator) decodeKeyframe(anim *formats.Animation, k int) (*formats.Frame, error) {
	if k < int(anim.FrameStart) {
		k = int(anim.FrameStart)
	}
	if k > int(anim.FrameEnd) {
		k = int(anim.FrameEnd)
	}
	off := anim.FrameOffset + uint32(k-int(anim.FrameStart))*uint32(anim.FrameSize)*2
	return formats.DecodeFrame(e.Set.FrameData, off, e.Set.Hierarchy.MeshCount(), e.Set.Revision)
}

func lerpVec3(a, b [3]int16, t float32) mgl32.Vec3 {
	var v mgl32.Vec3
	for i := 0; i < 3; i++ {
		v[i] = float32(a[i]) + t*float32(b[i]-a[i])
	}
	return v
}

// lerpAngle interpolates each axis independently along the shortest
// angular path, in 10-bit rotation units.
func lerpAngle(a, b formats.Angle, t float32) formats.Angle {
	return formats.Angle{
		X: lerpAxis(a.X, b.X, t),
		Y: lerpAxis(a.Y, b.Y, t),
		Z: lerpAxis(a.Z, b.Z, t),
	}
}

func lerpAxis(a, b uint16, t float32) uint16 {
	const turn = formats.AngleUnitsPerTurn
	diff := (int(b) - int(a) + turn*3/2) % turn
	diff -= turn / 2
	v := int(float32(a) + t*float32(diff))
	return uint16((v%turn + turn) % turn)
}

// rotationYXZ builds the rotation matrix for an angle triple, applied in
// Y, X, Z order.
func rotationYXZ(a formats.Angle) mgl32.Mat4 {
	x, y, z := a.Degrees()
	return mgl32.HomogRotate3DY(mgl32.DegToRad(y)).
		Mul4(mgl32.HomogRotate3DX(mgl32.DegToRad(x))).
		Mul4(mgl32.HomogRotate3DZ(mgl32.DegToRad(z)))
}
