package remote

import (
	"time"

	"github.com/go-go-golems/loom/pkg/chat"
)

// SendRequest is the payload posted to the streaming completion endpoint.
type SendRequest struct {
	ChatID        string `json:"chat_id"`
	BranchID      string `json:"branch_id"`
	Message       string `json:"message"`
	Model         string `json:"model"`
	UserPersonaID string `json:"user_persona_id,omitempty"`
	AIPersonaID   string `json:"ai_persona_id,omitempty"`
}

// The remote API returns arrays of plain records; they are mapped into local
// entities field-by-field rather than shared with the entity model, so wire
// changes stay contained here.

type chatRecord struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	CreatedAt time.Time      `json:"created_at"`
	Branches  []branchRecord `json:"branches"`
	CurrentID string         `json:"current_branch_id"`
	GroupID   string         `json:"group_id,omitempty"`
	Tags      []string       `json:"tags,omitempty"`
	Model     string         `json:"model,omitempty"`
}

type branchRecord struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	ParentBranchID     *string         `json:"parent_branch_id,omitempty"`
	ForkPointMessageID *string         `json:"fork_point_message_id,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	Messages           []messageRecord `json:"messages"`
}

type messageRecord struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Time      time.Time `json:"time"`
	PersonaID string    `json:"persona_id,omitempty"`
	Model     string    `json:"model,omitempty"`
	Mood      string    `json:"mood,omitempty"`
	MoodValue *float64  `json:"mood_value,omitempty"`
	Energy    *float64  `json:"energy,omitempty"`
	Reasoning string    `json:"reasoning,omitempty"`
}

type personaRecord struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	AvatarColor string    `json:"avatar_color,omitempty"`
	SystemHint  string    `json:"system_hint,omitempty"`
	IsUser      bool      `json:"is_user,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type groupRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type tagRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type dreamRecord struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Mood      string    `json:"mood,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type journalRecord struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// SearchResult is one hit from the read-only message search endpoint.
type SearchResult struct {
	ChatID    string `json:"chat_id"`
	BranchID  string `json:"branch_id"`
	MessageID string `json:"message_id"`
	Snippet   string `json:"snippet"`
}

// ModelInfo describes one model offered by the remote service.
type ModelInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (r chatRecord) toEntity() (*chat.Chat, error) {
	id, err := chat.ParseChatID(r.ID)
	if err != nil {
		return nil, err
	}

	ret := &chat.Chat{
		ID:        id,
		Title:     r.Title,
		CreatedAt: r.CreatedAt,
		GroupID:   r.GroupID,
		Tags:      r.Tags,
		Model:     r.Model,
	}

	for _, br := range r.Branches {
		b, err := br.toEntity()
		if err != nil {
			return nil, err
		}
		ret.Branches = append(ret.Branches, b)
	}

	if len(ret.Branches) == 0 {
		root := chat.NewRootBranch()
		ret.Branches = []*chat.Branch{root}
		ret.CurrentBranchID = root.ID
		return ret, nil
	}

	if cur, err := chat.ParseBranchID(r.CurrentID); err == nil {
		ret.CurrentBranchID = cur
	} else {
		ret.CurrentBranchID = ret.Branches[0].ID
	}

	return ret, nil
}

func (r branchRecord) toEntity() (*chat.Branch, error) {
	id, err := chat.ParseBranchID(r.ID)
	if err != nil {
		return nil, err
	}

	ret := &chat.Branch{
		ID:        id,
		Name:      r.Name,
		CreatedAt: r.CreatedAt,
	}

	if r.ParentBranchID != nil {
		parent, err := chat.ParseBranchID(*r.ParentBranchID)
		if err != nil {
			return nil, err
		}
		ret.ParentBranchID = &parent
	}
	if r.ForkPointMessageID != nil {
		fp, err := chat.ParseMessageID(*r.ForkPointMessageID)
		if err != nil {
			return nil, err
		}
		ret.ForkPointMessageID = &fp
	}

	for _, mr := range r.Messages {
		msg, err := mr.toEntity()
		if err != nil {
			return nil, err
		}
		ret.Messages = append(ret.Messages, msg)
	}

	return ret, nil
}

func (r messageRecord) toEntity() (*chat.Message, error) {
	id, err := chat.ParseMessageID(r.ID)
	if err != nil {
		return nil, err
	}

	return &chat.Message{
		ID:        id,
		Role:      chat.Role(r.Role),
		Content:   r.Content,
		Time:      r.Time,
		PersonaID: r.PersonaID,
		Model:     r.Model,
		Mood:      r.Mood,
		MoodValue: r.MoodValue,
		Energy:    r.Energy,
		Reasoning: r.Reasoning,
	}, nil
}

func (r personaRecord) toEntity() *chat.Persona {
	return &chat.Persona{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		AvatarColor: r.AvatarColor,
		SystemHint:  r.SystemHint,
		IsUser:      r.IsUser,
		CreatedAt:   r.CreatedAt,
	}
}

func personaToRecord(p *chat.Persona) personaRecord {
	return personaRecord{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		AvatarColor: p.AvatarColor,
		SystemHint:  p.SystemHint,
		IsUser:      p.IsUser,
		CreatedAt:   p.CreatedAt,
	}
}

func (r groupRecord) toEntity() *chat.Group {
	return &chat.Group{
		ID:        r.ID,
		Name:      r.Name,
		Color:     r.Color,
		CreatedAt: r.CreatedAt,
	}
}

func (r tagRecord) toEntity() *chat.Tag {
	return &chat.Tag{ID: r.ID, Name: r.Name}
}

func (r dreamRecord) toEntity() *chat.Dream {
	return &chat.Dream{
		ID:        r.ID,
		Content:   r.Content,
		Mood:      r.Mood,
		CreatedAt: r.CreatedAt,
	}
}

func (r journalRecord) toEntity() *chat.JournalEntry {
	return &chat.JournalEntry{
		ID:        r.ID,
		Content:   r.Content,
		CreatedAt: r.CreatedAt,
	}
}
