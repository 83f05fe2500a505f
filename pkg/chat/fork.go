package chat

import (
	"fmt"
	"time"

	"github.com/huandu/go-clone"
	"github.com/rs/zerolog/log"
)

// Fork implements edit-and-branch: it locates editedMessageID within the
// currently active branch, deep-copies every message strictly before it,
// appends a fresh user message carrying newContent, and installs the result
// as a new selected branch. The source branch is left untouched; everything
// after the edit point stays reachable by switching back.
func Fork(c *Chat, editedMessageID MessageID, newContent string, name string) (*Branch, error) {
	source := ActiveBranch(c)
	if source == nil {
		return nil, &NotFoundError{Resource: "branch", ID: c.CurrentBranchID.String()}
	}

	edited, pos, ok := source.FindMessage(editedMessageID)
	if !ok {
		return nil, &NotFoundError{Resource: "message", ID: editedMessageID.String()}
	}

	if name == "" {
		name = fmt.Sprintf("Path %d", len(c.Branches)+1)
	}

	prefix := make([]*Message, 0, pos+1)
	for _, msg := range source.Messages[:pos] {
		prefix = append(prefix, clone.Clone(msg).(*Message))
	}

	editedCopy := NewMessage(RoleUser, newContent, WithPersonaID(edited.PersonaID))
	prefix = append(prefix, editedCopy)

	forkPoint := edited.ID
	parentID := source.ID
	branch := &Branch{
		ID:                 NewBranchID(),
		Name:               name,
		ParentBranchID:     &parentID,
		ForkPointMessageID: &forkPoint,
		CreatedAt:          time.Now(),
		Messages:           prefix,
	}

	c.Branches = append(c.Branches, branch)
	c.CurrentBranchID = branch.ID

	log.Debug().
		Str("chat_id", c.ID.String()).
		Str("source_branch", source.ID.String()).
		Str("new_branch", branch.ID.String()).
		Str("fork_point", forkPoint.String()).
		Int("prefix_length", len(prefix)).
		Msg("forked branch")

	return branch, nil
}

// SwitchBranch selects an existing branch as the active history.
func SwitchBranch(c *Chat, id BranchID) error {
	if _, ok := c.FindBranch(id); !ok {
		return &NotFoundError{Resource: "branch", ID: id.String()}
	}
	c.CurrentBranchID = id
	return nil
}

// RenameBranch sets a branch's display name.
func RenameBranch(c *Chat, id BranchID, name string) error {
	b, ok := c.FindBranch(id)
	if !ok {
		return &NotFoundError{Resource: "branch", ID: id.String()}
	}
	if name == "" {
		return &ValidationError{Field: "name", Reason: "branch name is empty"}
	}
	b.Name = name
	return nil
}

// DeleteBranch removes a non-root branch together with its messages. Deleting
// the active branch resets the selection to the root.
func DeleteBranch(c *Chat, id BranchID) error {
	b, ok := c.FindBranch(id)
	if !ok {
		return &NotFoundError{Resource: "branch", ID: id.String()}
	}
	if b.IsRoot() {
		return ErrRootBranch
	}

	filtered := make([]*Branch, 0, len(c.Branches)-1)
	for _, candidate := range c.Branches {
		if candidate.ID != id {
			filtered = append(filtered, candidate)
		}
	}
	c.Branches = filtered

	if c.CurrentBranchID == id {
		if root := c.RootBranch(); root != nil {
			c.CurrentBranchID = root.ID
		}
	}

	return nil
}
