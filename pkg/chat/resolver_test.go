package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActiveBranchFallsBackToRoot(t *testing.T) {
	c := NewChat("test")
	root := c.RootBranch()

	// Simulate a reload where the selected branch no longer exists.
	c.CurrentBranchID = NewBranchID()

	active := ActiveBranch(c)
	require.NotNil(t, active)
	assert.Equal(t, root.ID, active.ID)
}

func TestActiveMessagesFollowsSelection(t *testing.T) {
	c, msgs := newChatWithHistory(t)

	active := ActiveMessages(c)
	require.Len(t, active, 4)
	assert.Equal(t, msgs[0].ID, active[0].ID)

	branch, err := Fork(c, msgs[1].ID, "edited", "")
	require.NoError(t, err)

	active = ActiveMessages(c)
	require.Len(t, active, 2)
	assert.Equal(t, branch.Messages[1].ID, active[1].ID)
}

func TestBranchTreeStructure(t *testing.T) {
	c, msgs := newChatWithHistory(t)
	root := c.RootBranch()

	child, err := Fork(c, msgs[1].ID, "child", "")
	require.NoError(t, err)
	grandchild, err := Fork(c, child.Messages[0].ID, "grandchild", "")
	require.NoError(t, err)

	tree := BranchTree(c)
	require.Len(t, tree, 1)
	assert.Equal(t, root.ID, tree[0].Branch.ID)
	assert.False(t, tree[0].Selected)

	require.Len(t, tree[0].Children, 1)
	childNode := tree[0].Children[0]
	assert.Equal(t, child.ID, childNode.Branch.ID)

	require.Len(t, childNode.Children, 1)
	assert.Equal(t, grandchild.ID, childNode.Children[0].Branch.ID)
	assert.True(t, childNode.Children[0].Selected)
}

func TestBranchTreeSurfacesOrphans(t *testing.T) {
	c, _ := newChatWithHistory(t)

	orphanParent := NewBranchID()
	orphan := &Branch{
		ID:             NewBranchID(),
		Name:           "orphan",
		ParentBranchID: &orphanParent,
	}
	c.Branches = append(c.Branches, orphan)

	tree := BranchTree(c)
	require.Len(t, tree, 2)
	assert.Equal(t, orphan.ID, tree[1].Branch.ID)
}
