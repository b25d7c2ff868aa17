package formats

import (
	"encoding/binary"
	"errors"
	"testing"
)

// buildMeshTreeBytes packs nodes into the on-disk 16-byte record layout.
func buildMeshTreeBytes(nodes []MeshTreeNode) []byte {
	data := make([]byte, len(nodes)*meshTreeNodeSize)
	for i, n := range nodes {
		off := i * meshTreeNodeSize
		var flags uint32
		if n.TakeFromStack {
			flags |= meshTreeFlagPop
		}
		if n.PushToStack {
			flags |= meshTreeFlagPush
		}
		binary.LittleEndian.PutUint32(data[off:], flags)
		for j := 0; j < 3; j++ {
			binary.LittleEndian.PutUint32(data[off+4+j*4:], uint32(n.Offset[j]))
		}
	}
	return data
}

func TestParseMeshTree(t *testing.T) {
	nodes := []MeshTreeNode{
		{PushToStack: true, Offset: [3]int32{10, -20, 30}},
		{TakeFromStack: true, Offset: [3]int32{-1, 2, -3}},
	}
	data := buildMeshTreeBytes(nodes)

	parsed, err := ParseMeshTree(data, 2)
	if err != nil {
		t.Fatalf("failed to parse mesh tree: %v", err)
	}
	if len(parsed) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(parsed))
	}
	if !parsed[0].PushToStack || parsed[0].TakeFromStack {
		t.Errorf("node 0 flags wrong: %+v", parsed[0])
	}
	if !parsed[1].TakeFromStack || parsed[1].PushToStack {
		t.Errorf("node 1 flags wrong: %+v", parsed[1])
	}
	if parsed[0].Offset != [3]int32{10, -20, 30} {
		t.Errorf("node 0 offset wrong: %v", parsed[0].Offset)
	}
	if parsed[1].Offset != [3]int32{-1, 2, -3} {
		t.Errorf("node 1 offset wrong: %v", parsed[1].Offset)
	}
}

func TestParseMeshTree_Truncated(t *testing.T) {
	data := make([]byte, meshTreeNodeSize*2-1)
	if _, err := ParseMeshTree(data, 2); !errors.Is(err, ErrTruncatedMeshTree) {
		t.Errorf("expected ErrTruncatedMeshTree, got %v", err)
	}
}

func TestBuildHierarchy_Chain(t *testing.T) {
	// No flags: every mesh hangs off the previous one.
	nodes := []MeshTreeNode{
		{Offset: [3]int32{1, 0, 0}},
		{Offset: [3]int32{2, 0, 0}},
		{Offset: [3]int32{3, 0, 0}},
	}

	h, err := BuildHierarchy(nodes, 0)
	if err != nil {
		t.Fatalf("failed to build hierarchy: %v", err)
	}
	if h.MeshCount() != 4 {
		t.Fatalf("expected 4 meshes, got %d", h.MeshCount())
	}
	want := []int{-1, 0, 1, 2}
	for i, p := range want {
		if h.Parent[i] != p {
			t.Errorf("mesh %d: expected parent %d, got %d", i, p, h.Parent[i])
		}
	}
}

func TestBuildHierarchy_Branching(t *testing.T) {
	// A humanoid-style fork: mesh 1 pushes its parent (the root) so
	// meshes 3 and 5 can attach back to it.
	nodes := []MeshTreeNode{
		{PushToStack: true},                   // 1: parent 0, push 0
		{},                                    // 2: parent 1
		{TakeFromStack: true, PushToStack: true}, // 3: parent 0 (stack top, re-pushed)
		{},                                    // 4: parent 3
		{TakeFromStack: true},                 // 5: parent 0
	}

	h, err := BuildHierarchy(nodes, 0)
	if err != nil {
		t.Fatalf("failed to build hierarchy: %v", err)
	}
	want := []int{-1, 0, 1, 0, 3, 0}
	for i, p := range want {
		if h.Parent[i] != p {
			t.Errorf("mesh %d: expected parent %d, got %d", i, p, h.Parent[i])
		}
	}
}

func TestBuildHierarchy_PopThenPushReadsTop(t *testing.T) {
	// Both flags on the same node must pop first, then push the popped
	// value back: the stack is unchanged afterwards.
	nodes := []MeshTreeNode{
		{PushToStack: true},                      // 1: push 0
		{TakeFromStack: true, PushToStack: true}, // 2: parent 0, stack still [0]
		{TakeFromStack: true},                    // 3: parent 0, stack empty
	}

	h, err := BuildHierarchy(nodes, 0)
	if err != nil {
		t.Fatalf("failed to build hierarchy: %v", err)
	}
	if h.Parent[2] != 0 || h.Parent[3] != 0 {
		t.Errorf("expected meshes 2 and 3 parented to root, got %d and %d",
			h.Parent[2], h.Parent[3])
	}
}

func TestBuildHierarchy_StackUnderflow(t *testing.T) {
	// A pop with an empty stack fails, no matter where in the sequence
	// it appears.
	prefixes := [][]MeshTreeNode{
		{{TakeFromStack: true}},
		{{}, {TakeFromStack: true}},
		{{PushToStack: true}, {TakeFromStack: true}, {TakeFromStack: true}},
	}
	for i, nodes := range prefixes {
		if _, err := BuildHierarchy(nodes, 0); !errors.Is(err, ErrMalformedHierarchy) {
			t.Errorf("prefix %d: expected ErrMalformedHierarchy, got %v", i, err)
		}
	}
}

func TestBuildHierarchy_DepthCap(t *testing.T) {
	nodes := []MeshTreeNode{
		{PushToStack: true},
		{PushToStack: true},
		{PushToStack: true},
	}
	if _, err := BuildHierarchy(nodes, 2); !errors.Is(err, ErrStackOverflow) {
		t.Errorf("expected ErrStackOverflow, got %v", err)
	}
	if _, err := BuildHierarchy(nodes, 3); err != nil {
		t.Errorf("expected depth 3 to fit, got %v", err)
	}
}

func TestBuildHierarchy_AlwaysForest(t *testing.T) {
	// Any balanced push/pop sequence yields an acyclic map rooted at
	// mesh 0: every parent index precedes its child.
	sequences := [][]MeshTreeNode{
		{},
		{{}},
		{{PushToStack: true}, {}, {TakeFromStack: true}},
		{
			{PushToStack: true},
			{PushToStack: true},
			{TakeFromStack: true, PushToStack: true},
			{TakeFromStack: true},
			{TakeFromStack: true},
		},
	}

	for si, nodes := range sequences {
		h, err := BuildHierarchy(nodes, 0)
		if err != nil {
			t.Fatalf("sequence %d: unexpected error: %v", si, err)
		}
		if h.Parent[0] != -1 {
			t.Errorf("sequence %d: root has parent %d", si, h.Parent[0])
		}
		for i := 1; i < h.MeshCount(); i++ {
			if h.Parent[i] < 0 || h.Parent[i] >= i {
				t.Errorf("sequence %d: mesh %d has invalid parent %d", si, i, h.Parent[i])
			}
		}
	}
}
