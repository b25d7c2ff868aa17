// Mesh tree parsing and skeleton hierarchy reconstruction.
//
// A skeleton's parent/child structure is stored as a flat array of nodes,
// one per non-root mesh, each carrying two stack flags and an offset from
// its parent. Reconstruction is a small stack machine: the flags say where
// the current parent comes from.
package formats

import (
	"errors"
	"fmt"
)

// Mesh tree errors.
var (
	ErrTruncatedMeshTree  = errors.New("truncated mesh tree data")
	ErrMalformedHierarchy = errors.New("malformed mesh hierarchy")
	ErrStackOverflow      = errors.New("mesh tree stack depth exceeded")
)

// MeshTreeNode describes how one non-root mesh attaches to the skeleton.
type MeshTreeNode struct {
	TakeFromStack bool // parent comes from the stack top (popped)
	PushToStack   bool // parent is pushed for later siblings
	Offset        [3]int32
}

const (
	meshTreeNodeSize = 16 // u32 flags + 3 × i32 offset

	meshTreeFlagPop  = 1 << 0
	meshTreeFlagPush = 1 << 1
)

// DefaultMaxStackDepth caps the reconstruction stack. Real assets use
// depths of 2-3; anything near the cap indicates corrupt data.
const DefaultMaxStackDepth = 32

// ParseMeshTree parses count mesh tree nodes from raw bytes. A skeleton
// with n meshes stores n-1 nodes (mesh 0 is the implicit root).
func ParseMeshTree(data []byte, count int) ([]MeshTreeNode, error) {
	if count < 0 || len(data) < count*meshTreeNodeSize {
		return nil, fmt.Errorf("%w: need %d nodes", ErrTruncatedMeshTree, count)
	}

	nodes := make([]MeshTreeNode, count)
	for i := range nodes {
		off := i * meshTreeNodeSize
		flags := u32At(data, off)
		nodes[i] = MeshTreeNode{
			TakeFromStack: flags&meshTreeFlagPop != 0,
			PushToStack:   flags&meshTreeFlagPush != 0,
			Offset: [3]int32{
				i32At(data, off+4),
				i32At(data, off+8),
				i32At(data, off+12),
			},
		}
	}
	return nodes, nil
}

// SkeletonHierarchy is the reconstructed parent map for one mesh set.
// Built once per distinct skeleton and never mutated afterwards.
type SkeletonHierarchy struct {
	// Parent[i] is the parent mesh index of mesh i. Parent[0] is -1:
	// the root is placed relative to the entity, not another mesh.
	Parent []int
	// Offset[i] is mesh i's translation in its parent's local frame.
	Offset [][3]int32
}

// MeshCount returns the number of meshes in the skeleton.
func (h *SkeletonHierarchy) MeshCount() int { return len(h.Parent) }

// BuildHierarchy runs the stack machine over the node array and returns the
// parent map for a skeleton of len(nodes)+1 meshes. maxDepth caps the
// stack; pass 0 to use DefaultMaxStackDepth.
//
// The machine: mesh i's parent defaults to mesh i-1. If TakeFromStack, the
// parent is popped from the stack instead (pop happens before any push, so
// a node with both flags set reads the stack top without changing it). If
// PushToStack, the chosen parent is pushed for later meshes.
func BuildHierarchy(nodes []MeshTreeNode, maxDepth int) (*SkeletonHierarchy, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxStackDepth
	}

	meshCount := len(nodes) + 1
	h := &SkeletonHierarchy{
		Parent: make([]int, meshCount),
		Offset: make([][3]int32, meshCount),
	}
	h.Parent[0] = -1

	stack := make([]int, 0, 4)
	prev := 0
	for idx := range nodes {
		i := idx + 1
		node := &nodes[idx]

		parent := prev
		if node.TakeFromStack {
			if len(stack) == 0 {
				return nil, fmt.Errorf("%w: stack underflow at mesh %d", ErrMalformedHierarchy, i)
			}
			parent = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
		}
		if node.PushToStack {
			if len(stack) >= maxDepth {
				return nil, fmt.Errorf("%w: depth %d at mesh %d", ErrStackOverflow, maxDepth, i)
			}
			stack = append(stack, parent)
		}

		// Parents always precede children, so the map is acyclic and
		// rooted at mesh 0 by construction. Validate anyway in case the
		// construction invariant is ever broken.
		if parent < 0 || parent >= i {
			return nil, fmt.Errorf("%w: mesh %d parented to %d", ErrMalformedHierarchy, i, parent)
		}

		h.Parent[i] = parent
		h.Offset[i] = node.Offset
		prev = i
	}

	return h, nil
}
