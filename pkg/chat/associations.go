package chat

import "time"

// Persona is a user- or AI-side identity attached to messages and chats.
type Persona struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	AvatarColor string    `json:"avatarColor,omitempty"`
	SystemHint  string    `json:"systemHint,omitempty"`
	IsUser      bool      `json:"isUser,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Group collects chats under a shared label.
type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Tag is a free-form label attached to chats.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Dream is a remote-generated record, read-only on the client.
type Dream struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Mood      string    `json:"mood,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// JournalEntry is a remote-generated record, read-only on the client.
type JournalEntry struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
