package event

import (
	"time"

	"github.com/google/uuid"

	"texttalk/domain"
)

// DomainEvent is anything routable to the members of a room.
type DomainEvent interface {
	RoomKey() domain.RoomKey
}

// MessageStored is emitted after a message has been durably persisted.
// Fan-out of this event is what connected clients observe as "new_message".
type MessageStored struct {
	ID       uuid.UUID
	Sender   string
	Receiver string
	Content  string
	At       time.Time
}

func (m MessageStored) RoomKey() domain.RoomKey {
	return domain.DeriveRoomKey(m.Sender, m.Receiver)
}
