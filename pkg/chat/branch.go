package chat

import (
	"time"

	"github.com/huandu/go-clone"
)

// Branch is one linear history within a Chat. Branches form a rooted tree
// through ParentBranchID; the root branch is the only one with a nil parent
// and can never be deleted.
type Branch struct {
	ID                 BranchID   `json:"id"`
	Name               string     `json:"name"`
	ParentBranchID     *BranchID  `json:"parentBranchID,omitempty"`
	ForkPointMessageID *MessageID `json:"forkPointMessageID,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	Messages           []*Message `json:"messages"`
}

const RootBranchName = "Main"

// NewRootBranch creates the initial branch of a chat.
func NewRootBranch() *Branch {
	return &Branch{
		ID:        NewBranchID(),
		Name:      RootBranchName,
		CreatedAt: time.Now(),
	}
}

// IsRoot reports whether this branch is the root of its chat's lineage tree.
func (b *Branch) IsRoot() bool {
	return b.ParentBranchID == nil
}

// Append adds messages to the end of the branch history.
func (b *Branch) Append(msgs ...*Message) {
	b.Messages = append(b.Messages, msgs...)
}

// FindMessage returns the message with the given id and its position.
func (b *Branch) FindMessage(id MessageID) (*Message, int, bool) {
	for i, msg := range b.Messages {
		if msg.ID == id {
			return msg, i, true
		}
	}
	return nil, -1, false
}

// Clone returns a deep copy of the branch. Messages are copied so that
// mutating history in one branch can never affect another.
func (b *Branch) Clone() *Branch {
	return clone.Clone(b).(*Branch)
}
