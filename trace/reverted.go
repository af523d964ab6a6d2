package trace

// Breadcrumb records which of several sibling messages the reverted branch
// continues through.
type Breadcrumb struct {
	ActionIdx    int   `json:"action_idx"`
	TotalActions int   `json:"total_actions"`
	Trace        *Node `json:"-"`
}

type RevertedBranch struct {
	Path []Breadcrumb `json:"path"`
	// Node is the shallowest node on the branch carrying an unignored failure.
	Node *Node `json:"-"`
}

// FindRevertedBranch follows flagged children from the root down to the first
// node with its own unignored failure. Among several flagged siblings the
// first one in creation order is taken. ok is false when the tree is clean.
func FindRevertedBranch(root *Node) (branch *RevertedBranch, ok bool) {
	if root == nil || !root.HasErrorInTree {
		return nil, false
	}
	branch = &RevertedBranch{Path: []Breadcrumb{}}
	cur := root
	for !cur.hasOwnError() {
		next := -1
		for i, c := range cur.Children {
			if c.HasErrorInTree {
				next = i
				break
			}
		}
		if next < 0 {
			break
		}
		if len(cur.Children) > 1 {
			branch.Path = append(branch.Path, Breadcrumb{
				ActionIdx:    next,
				TotalActions: len(cur.Children),
				Trace:        cur.Children[next],
			})
		}
		cur = cur.Children[next]
	}
	branch.Node = cur
	return branch, true
}
