package domain

// EventType is the discriminator of frames pushed to live connections.
type EventType string

const (
	EventMessage EventType = "message"
	EventAlert   EventType = "alert"
	EventError   EventType = "error"
	EventPong    EventType = "pong"
)

// Event is a frame pushed to a live connection.
type Event struct {
	Type    EventType    `json:"type"`
	Message *Message     `json:"message,omitempty"`
	Alert   *AlertRecord `json:"alert,omitempty"`
	Error   string       `json:"error,omitempty"`
	Detail  string       `json:"detail,omitempty"`
}

// Publisher delivers events to the live connections of a user.
// Delivery is best effort: a user with no live connection is not an error.
// It returns how many connections accepted the event.
type Publisher interface {
	Publish(userID string, evt Event) int
}
