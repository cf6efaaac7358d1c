package domain

import (
	"fmt"
	"time"
)

// Message is a persisted chat message. Exactly one of RecipientID and GroupID is set.
// Read only moves from false to true; Timestamp never changes after creation.
type Message struct {
	ID          int64     `json:"id"`
	SenderID    string    `json:"sender_id"`
	RecipientID *string   `json:"recipient_id"`
	GroupID     *string   `json:"group_id"`
	Content     string    `json:"content"`
	Read        bool      `json:"read"`
	Sent        bool      `json:"sent"`
	Timestamp   time.Time `json:"timestamp"`
}

// IsGroup reports whether the message was addressed to a group.
func (m *Message) IsGroup() bool {
	return m.GroupID != nil
}

// Target is the addressee of an inbound message intent.
type Target struct {
	RecipientID string `json:"recipient_id,omitempty" validate:"required_without=GroupID,excluded_with=GroupID"`
	GroupID     string `json:"group_id,omitempty" validate:"required_without=RecipientID,excluded_with=RecipientID"`
}

// IsGroup reports whether the target is a group.
func (t Target) IsGroup() bool {
	return t.GroupID != ""
}

func (t Target) String() string {
	if t.IsGroup() {
		return "group:" + t.GroupID
	}
	return "user:" + t.RecipientID
}

// SendRequest is an inbound message intent, shared by the WebSocket and REST surfaces.
type SendRequest struct {
	Target
	Content string `json:"content" validate:"required,max=4000"`
}

// PrivateTarget addresses a single user.
func PrivateTarget(userID string) Target {
	return Target{RecipientID: userID}
}

// GroupTarget addresses a group.
func GroupTarget(groupID string) Target {
	return Target{GroupID: groupID}
}

// Validate checks the exactly-one-of invariant without the validator package.
// Stores call it as a last line before insert.
func (m *Message) Validate() error {
	hasRecipient := m.RecipientID != nil && *m.RecipientID != ""
	hasGroup := m.GroupID != nil && *m.GroupID != ""
	if hasRecipient == hasGroup {
		return fmt.Errorf("%w: message must have exactly one of recipient or group", ErrValidation)
	}
	if m.SenderID == "" {
		return fmt.Errorf("%w: message has no sender", ErrValidation)
	}
	return nil
}
