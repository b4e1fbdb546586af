// Package domain contains the core concepts of the messaging system.
// Messages are immutable once stored; rooms are derived values, never
// persisted entities.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents an immutable private message between two users.
// ID and CreatedAt are assigned by the store at append time.
type Message struct {
	ID        uuid.UUID
	Sender    string
	Receiver  string
	Content   string
	CreatedAt time.Time
}

// Room returns the key of the conversation this message belongs to.
func (m Message) Room() RoomKey {
	return DeriveRoomKey(m.Sender, m.Receiver)
}
