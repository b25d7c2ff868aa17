// animtool is a CLI utility for inspecting animation tables dumped from
// Tomb Raider level files.
//
// It operates on a directory of raw table dumps as produced by a level
// extractor: animations.bin, statechanges.bin, dispatches.bin,
// commands.bin, frames.bin, meshtree.bin and optionally moveables.bin.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/SidepocketNeo/OpenTomb/internal/config"
	"github.com/SidepocketNeo/OpenTomb/internal/logger"
	"github.com/SidepocketNeo/OpenTomb/pkg/anim"
	"github.com/SidepocketNeo/OpenTomb/pkg/formats"
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	rev, err := formats.ParseRevision(cfg.Decode.Revision)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	command := args[0]
	args = args[1:]

	switch command {
	case "info":
		cmdInfo(args, rev)
	case "tree":
		cmdTree(args, cfg.Decode.MaxStackDepth)
	case "anims":
		cmdAnims(args, rev)
	case "frame":
		cmdFrame(args, rev, cfg)
	case "commands", "cmds":
		cmdCommands(args, rev)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`animtool - Tomb Raider animation table inspector

Usage:
  animtool [-rev trN] [-depth n] [-debug] <command> [options]

Commands:
  info <dir>                      Show table sizes and counts
  tree <dir> <meshcount>          Reconstruct and print the mesh hierarchy
  anims <dir>                     List animations with states and ranges
  frame <dir> <anim> <frame>      Decode one keyframe of an animation
  commands <dir> <anim>           Decode an animation's command stream

Examples:
  animtool -rev tr2 info dumps/level1
  animtool -rev tr1 tree dumps/level1 14
  animtool -rev tr4 frame dumps/karnak 3 12`)
}

// tables holds the raw dump files of one level.
type tables struct {
	animations   []byte
	stateChanges []byte
	dispatches   []byte
	commands     []byte
	frames       []byte
	meshTree     []byte
	moveables    []byte
}

func loadTables(dir string) (*tables, error) {
	read := func(name string) ([]byte, error) {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if os.IsNotExist(err) {
			return nil, nil
		}
		return data, err
	}

	t := &tables{}
	var err error
	if t.animations, err = read("animations.bin"); err != nil {
		return nil, err
	}
	if t.stateChanges, err = read("statechanges.bin"); err != nil {
		return nil, err
	}
	if t.dispatches, err = read("dispatches.bin"); err != nil {
		return nil, err
	}
	if t.commands, err = read("commands.bin"); err != nil {
		return nil, err
	}
	if t.frames, err = read("frames.bin"); err != nil {
		return nil, err
	}
	if t.meshTree, err = read("meshtree.bin"); err != nil {
		return nil, err
	}
	if t.moveables, err = read("moveables.bin"); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *tables) parseAnimations(rev formats.Revision) ([]formats.Animation, error) {
	return formats.ParseAnimations(t.animations, len(t.animations)/32,
		t.stateChanges, t.dispatches, t.commands, rev)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func cmdInfo(args []string, rev formats.Revision) {
	if len(args) < 1 {
		fail(fmt.Errorf("usage: animtool info <dir>"))
	}
	t, err := loadTables(args[0])
	if err != nil {
		fail(err)
	}

	anims, err := t.parseAnimations(rev)
	if err != nil {
		fail(err)
	}

	fmt.Printf("Revision:      %s\n", rev)
	fmt.Printf("Animations:    %d\n", len(anims))
	fmt.Printf("State changes: %d\n", len(t.stateChanges)/6)
	fmt.Printf("Dispatches:    %d\n", len(t.dispatches)/8)
	fmt.Printf("Command words: %d\n", len(t.commands)/2)
	fmt.Printf("Frame bytes:   %d\n", len(t.frames))
	if t.moveables != nil {
		moveables, err := formats.ParseMoveables(t.moveables, len(t.moveables)/18)
		if err != nil {
			fail(err)
		}
		fmt.Printf("Moveables:     %d\n", len(moveables))
	}
}

func cmdTree(args []string, maxDepth int) {
	if len(args) < 2 {
		fail(fmt.Errorf("usage: animtool tree <dir> <meshcount>"))
	}
	t, err := loadTables(args[0])
	if err != nil {
		fail(err)
	}
	meshCount, err := strconv.Atoi(args[1])
	if err != nil || meshCount < 1 {
		fail(fmt.Errorf("bad mesh count %q", args[1]))
	}

	nodes, err := formats.ParseMeshTree(t.meshTree, meshCount-1)
	if err != nil {
		fail(err)
	}
	h, err := formats.BuildHierarchy(nodes, maxDepth)
	if err != nil {
		fail(err)
	}

	fmt.Printf("mesh  0  root\n")
	for i := 1; i < h.MeshCount(); i++ {
		off := h.Offset[i]
		fmt.Printf("mesh %2d  parent %2d  offset (%d, %d, %d)\n",
			i, h.Parent[i], off[0], off[1], off[2])
	}
}

func cmdAnims(args []string, rev formats.Revision) {
	if len(args) < 1 {
		fail(fmt.Errorf("usage: animtool anims <dir>"))
	}
	t, err := loadTables(args[0])
	if err != nil {
		fail(err)
	}
	anims, err := t.parseAnimations(rev)
	if err != nil {
		fail(err)
	}

	for i := range anims {
		a := &anims[i]
		fmt.Printf("anim %3d  state %3d  frames %4d..%-4d  rate %d  next %d@%d  changes %d  commands %d\n",
			i, a.StateID, a.FrameStart, a.FrameEnd, a.FrameRate,
			a.NextAnimation, a.NextFrame, len(a.StateChanges), a.NumCommands)
	}
}

func cmdFrame(args []string, rev formats.Revision, cfg *config.Config) {
	if len(args) < 3 {
		fail(fmt.Errorf("usage: animtool frame <dir> <anim> <frame>"))
	}
	t, err := loadTables(args[0])
	if err != nil {
		fail(err)
	}
	anims, err := t.parseAnimations(rev)
	if err != nil {
		fail(err)
	}
	animIndex, err := strconv.Atoi(args[1])
	if err != nil || animIndex < 0 || animIndex >= len(anims) {
		fail(fmt.Errorf("bad animation index %q", args[1]))
	}
	frame, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		fail(fmt.Errorf("bad frame number %q", args[2]))
	}

	meshCount := 1
	if t.meshTree != nil {
		meshCount = len(t.meshTree)/16 + 1
	}
	nodes, err := formats.ParseMeshTree(t.meshTree, meshCount-1)
	if err != nil {
		fail(err)
	}
	h, err := formats.BuildHierarchy(nodes, cfg.Decode.MaxStackDepth)
	if err != nil {
		fail(err)
	}

	set := &anim.AnimationSet{
		Revision:   rev,
		Animations: anims,
		FrameData:  t.frames,
		Hierarchy:  h,
	}
	ev := anim.NewEvaluator(set, logger.Log)
	ev.State.HighExclusive = cfg.Playback.DispatchHighExclusive

	st := &anim.PlaybackState{
		Animation:      uint16(animIndex),
		Frame:          frame,
		RequestedState: anims[animIndex].StateID,
	}
	pose, _, err := ev.Tick(st, 0)
	if err != nil {
		fail(err)
	}

	fmt.Printf("bbox min (%.1f, %.1f, %.1f) max (%.1f, %.1f, %.1f)\n",
		pose.BBoxMin.X(), pose.BBoxMin.Y(), pose.BBoxMin.Z(),
		pose.BBoxMax.X(), pose.BBoxMax.Y(), pose.BBoxMax.Z())
	fmt.Printf("root offset (%.1f, %.1f, %.1f)\n",
		pose.RootOffset.X(), pose.RootOffset.Y(), pose.RootOffset.Z())
	for i, m := range pose.Mesh {
		pos := m.Col(3)
		fmt.Printf("mesh %2d at (%.1f, %.1f, %.1f)\n", i, pos.X(), pos.Y(), pos.Z())
	}
}

func cmdCommands(args []string, rev formats.Revision) {
	if len(args) < 2 {
		fail(fmt.Errorf("usage: animtool commands <dir> <anim>"))
	}
	t, err := loadTables(args[0])
	if err != nil {
		fail(err)
	}
	anims, err := t.parseAnimations(rev)
	if err != nil {
		fail(err)
	}
	animIndex, err := strconv.Atoi(args[1])
	if err != nil || animIndex < 0 || animIndex >= len(anims) {
		fail(fmt.Errorf("bad animation index %q", args[1]))
	}

	a := &anims[animIndex]
	cmds, err := formats.ParseAnimCommands(a.AnimCommands, a.NumCommands)
	if err != nil {
		logger.Warn("command stream aborted", zap.Error(err))
	}
	for _, cmd := range cmds {
		switch c := cmd.(type) {
		case formats.SetPosition:
			fmt.Printf("SetPosition  (%d, %d, %d)\n", c.DX, c.DY, c.DZ)
		case formats.JumpDistance:
			fmt.Printf("JumpDistance vertical %d horizontal %d\n", c.Vertical, c.Horizontal)
		case formats.EmptyHands:
			fmt.Println("EmptyHands")
		case formats.Kill:
			fmt.Println("Kill")
		case formats.PlaySound:
			env := ""
			if c.Sound.DryLandOnly() {
				env = " (dry land only)"
			} else if c.Sound.UnderwaterOnly() {
				env = " (underwater only)"
			}
			fmt.Printf("PlaySound    frame %d sound %d%s\n", c.Frame, c.Sound.ID(), env)
		case formats.Effect:
			fmt.Printf("Effect       frame %d id %d\n", c.Frame, c.ID)
		}
	}
}
