package chat

import (
	"time"

	"github.com/huandu/go-clone"
	"github.com/rs/zerolog"
)

// Chat is the aggregate holding all branches of one conversation. It always
// contains at least the root branch, and CurrentBranchID references one of
// its own branches.
type Chat struct {
	ID              ChatID    `json:"id"`
	Title           string    `json:"title"`
	CreatedAt       time.Time `json:"createdAt"`
	Branches        []*Branch `json:"branches"`
	CurrentBranchID BranchID  `json:"currentBranchID"`

	// Optional associations carried for continuity across sessions.
	GroupID       string   `json:"groupID,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	UserPersonaID string   `json:"userPersonaID,omitempty"`
	AIPersonaID   string   `json:"aiPersonaID,omitempty"`
	Model         string   `json:"model,omitempty"`

	// Loading is true while a response stream is being applied to this chat.
	Loading bool `json:"-"`
}

type ChatOption func(*Chat)

func WithChatID(id ChatID) ChatOption {
	return func(c *Chat) {
		c.ID = id
	}
}

func WithChatModel(model string) ChatOption {
	return func(c *Chat) {
		c.Model = model
	}
}

func WithGroupID(groupID string) ChatOption {
	return func(c *Chat) {
		c.GroupID = groupID
	}
}

func WithPersonas(userPersonaID string, aiPersonaID string) ChatOption {
	return func(c *Chat) {
		c.UserPersonaID = userPersonaID
		c.AIPersonaID = aiPersonaID
	}
}

// NewChat creates an empty chat with a single root branch selected.
func NewChat(title string, options ...ChatOption) *Chat {
	root := NewRootBranch()
	ret := &Chat{
		ID:              NewChatID(),
		Title:           title,
		CreatedAt:       time.Now(),
		Branches:        []*Branch{root},
		CurrentBranchID: root.ID,
	}

	for _, option := range options {
		option(ret)
	}

	return ret
}

// RootBranch returns the unique branch with a nil parent.
func (c *Chat) RootBranch() *Branch {
	for _, b := range c.Branches {
		if b.IsRoot() {
			return b
		}
	}
	return nil
}

// FindBranch returns the branch with the given id.
func (c *Chat) FindBranch(id BranchID) (*Branch, bool) {
	for _, b := range c.Branches {
		if b.ID == id {
			return b, true
		}
	}
	return nil, false
}

// FindMessage locates a message by id across all branches. Streaming events
// are applied by message id, not by branch position, so this also finds
// messages on branches that are no longer selected.
func (c *Chat) FindMessage(id MessageID) (*Message, *Branch, bool) {
	for _, b := range c.Branches {
		if msg, _, ok := b.FindMessage(id); ok {
			return msg, b, true
		}
	}
	return nil, nil, false
}

// Clone returns a deep copy of the chat and all its branches.
func (c *Chat) Clone() *Chat {
	return clone.Clone(c).(*Chat)
}

// Validate checks the chat's structural invariants: exactly one root branch,
// every parent reference resolving within the chat, an acyclic lineage, and a
// current branch that belongs to the chat.
func (c *Chat) Validate() error {
	if len(c.Branches) == 0 {
		return &ValidationError{Field: "branches", Reason: "chat has no branches"}
	}

	roots := 0
	byID := make(map[BranchID]*Branch, len(c.Branches))
	for _, b := range c.Branches {
		byID[b.ID] = b
		if b.IsRoot() {
			roots++
		}
	}
	if roots != 1 {
		return &ValidationError{Field: "branches", Reason: "chat must have exactly one root branch"}
	}

	for _, b := range c.Branches {
		seen := map[BranchID]bool{b.ID: true}
		cur := b
		for cur.ParentBranchID != nil {
			parent, ok := byID[*cur.ParentBranchID]
			if !ok {
				return &ValidationError{Field: "parentBranchID", Reason: "branch parent not found in chat"}
			}
			if seen[parent.ID] {
				return &ValidationError{Field: "parentBranchID", Reason: "branch lineage contains a cycle"}
			}
			seen[parent.ID] = true
			cur = parent
		}
	}

	if _, ok := byID[c.CurrentBranchID]; !ok {
		return &ValidationError{Field: "currentBranchID", Reason: "current branch not found in chat"}
	}

	return nil
}

func (c *Chat) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("id", c.ID.String()).
		Str("title", c.Title).
		Int("branches", len(c.Branches)).
		Str("current_branch", c.CurrentBranchID.String()).
		Bool("loading", c.Loading)
}
