package chat

// ActiveBranch resolves the chat's selected branch. A stale or missing
// CurrentBranchID falls back to the root branch so that a reload with a
// deleted branch id never leaves the chat unusable.
func ActiveBranch(c *Chat) *Branch {
	if b, ok := c.FindBranch(c.CurrentBranchID); ok {
		return b
	}
	return c.RootBranch()
}

// ActiveMessages returns the ordered message history of the selected branch.
// Pure, safe to call on every render.
func ActiveMessages(c *Chat) []*Message {
	b := ActiveBranch(c)
	if b == nil {
		return nil
	}
	return b.Messages
}

// BranchNode is one node in the reconstructed branch forest.
type BranchNode struct {
	Branch   *Branch
	Selected bool
	Children []*BranchNode
}

// BranchTree reconstructs the parent to children forest for display,
// marking the currently selected branch. O(branch count) per call.
func BranchTree(c *Chat) []*BranchNode {
	nodes := make(map[BranchID]*BranchNode, len(c.Branches))
	for _, b := range c.Branches {
		nodes[b.ID] = &BranchNode{
			Branch:   b,
			Selected: b.ID == c.CurrentBranchID,
		}
	}

	var roots []*BranchNode
	for _, b := range c.Branches {
		node := nodes[b.ID]
		if b.ParentBranchID == nil {
			roots = append(roots, node)
			continue
		}
		parent, ok := nodes[*b.ParentBranchID]
		if !ok {
			// Orphaned branch, surface it at the top rather than dropping it.
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	return roots
}
