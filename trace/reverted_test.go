package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// node builds a Node tree by hand; fail marks an unignored own failure.
func node(hash string, fail bool, children ...*Node) *Node {
	n := &Node{Message: &MessageRecord{Hash: hash}, Children: children}
	if fail {
		n.Error = &Failure{Phase: PhaseCompute, Code: 100}
	}
	n.HasErrorInTree = n.hasOwnError()
	for _, c := range children {
		c.parent = n
		if c.HasErrorInTree {
			n.HasErrorInTree = true
		}
	}
	return n
}

func TestFindRevertedBranch(t *testing.T) {
	root := node("root", false,
		node("a", false),
		node("b", false,
			node("b1", true),
		),
	)

	branch, ok := FindRevertedBranch(root)
	require.True(t, ok)
	require.Len(t, branch.Path, 1)
	assert.Equal(t, 1, branch.Path[0].ActionIdx)
	assert.Equal(t, 2, branch.Path[0].TotalActions)
	assert.Equal(t, "b", branch.Path[0].Trace.Message.Hash)
	assert.Equal(t, "b1", branch.Node.Message.Hash)
}

func TestFindRevertedBranchCleanTree(t *testing.T) {
	_, ok := FindRevertedBranch(node("root", false, node("a", false), node("b", false)))
	assert.False(t, ok)

	_, ok = FindRevertedBranch(nil)
	assert.False(t, ok)
}

func TestFindRevertedBranchFailingRoot(t *testing.T) {
	root := node("root", true, node("a", true), node("b", false))
	branch, ok := FindRevertedBranch(root)
	require.True(t, ok)
	assert.Empty(t, branch.Path)
	assert.Same(t, root, branch.Node)
}

func TestFindRevertedBranchFirstFlaggedSiblingWins(t *testing.T) {
	root := node("root", false,
		node("a", false),
		node("b", false, node("b1", false), node("b2", true)),
		node("c", true),
	)
	branch, ok := FindRevertedBranch(root)
	require.True(t, ok)
	assert.Equal(t, []int{1, 1}, []int{branch.Path[0].ActionIdx, branch.Path[1].ActionIdx})
	assert.Equal(t, 3, branch.Path[0].TotalActions)
	assert.Equal(t, 2, branch.Path[1].TotalActions)
	assert.Equal(t, "b2", branch.Node.Message.Hash)
}

func TestFindRevertedBranchSkipsSingleChildLevels(t *testing.T) {
	root := node("root", false,
		node("a", false,
			node("a1", false,
				node("x", false), node("y", true),
			),
		),
	)
	branch, ok := FindRevertedBranch(root)
	require.True(t, ok)
	require.Len(t, branch.Path, 1)
	assert.Equal(t, Breadcrumb{ActionIdx: 1, TotalActions: 2, Trace: branch.Node}, branch.Path[0])
	assert.Equal(t, "y", branch.Node.Message.Hash)
}

func TestFindRevertedBranchIgnoresAllowedFailures(t *testing.T) {
	root := node("root", false, node("a", false), node("b", false))
	root.Children[0].Error = &Failure{Phase: PhaseAction, Code: 37, Ignored: true}

	_, ok := FindRevertedBranch(root)
	assert.False(t, ok)
}
