package chat

import (
	"encoding/json"

	"github.com/google/uuid"
)

// ChatID identifies a Chat aggregate.
type ChatID uuid.UUID

// BranchID identifies a Branch within a Chat.
type BranchID uuid.UUID

// MessageID identifies a Message within a Branch.
type MessageID uuid.UUID

func NewChatID() ChatID       { return ChatID(uuid.New()) }
func NewBranchID() BranchID   { return BranchID(uuid.New()) }
func NewMessageID() MessageID { return MessageID(uuid.New()) }

func (id ChatID) String() string    { return uuid.UUID(id).String() }
func (id BranchID) String() string  { return uuid.UUID(id).String() }
func (id MessageID) String() string { return uuid.UUID(id).String() }

func (id ChatID) IsZero() bool    { return uuid.UUID(id) == uuid.Nil }
func (id BranchID) IsZero() bool  { return uuid.UUID(id) == uuid.Nil }
func (id MessageID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

func (id ChatID) MarshalJSON() ([]byte, error) {
	return json.Marshal(uuid.UUID(id))
}

func (id *ChatID) UnmarshalJSON(data []byte) error {
	var u uuid.UUID
	if err := json.Unmarshal(data, &u); err != nil {
		return err
	}
	*id = ChatID(u)
	return nil
}

func (id BranchID) MarshalJSON() ([]byte, error) {
	return json.Marshal(uuid.UUID(id))
}

func (id *BranchID) UnmarshalJSON(data []byte) error {
	var u uuid.UUID
	if err := json.Unmarshal(data, &u); err != nil {
		return err
	}
	*id = BranchID(u)
	return nil
}

func (id MessageID) MarshalJSON() ([]byte, error) {
	return json.Marshal(uuid.UUID(id))
}

func (id *MessageID) UnmarshalJSON(data []byte) error {
	var u uuid.UUID
	if err := json.Unmarshal(data, &u); err != nil {
		return err
	}
	*id = MessageID(u)
	return nil
}

// ParseChatID parses a ChatID from its string form.
func ParseChatID(s string) (ChatID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ChatID{}, err
	}
	return ChatID(u), nil
}

// ParseBranchID parses a BranchID from its string form.
func ParseBranchID(s string) (BranchID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return BranchID{}, err
	}
	return BranchID(u), nil
}

// ParseMessageID parses a MessageID from its string form.
func ParseMessageID(s string) (MessageID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return MessageID{}, err
	}
	return MessageID(u), nil
}
