package runtime

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"texttalk/domain"
	"texttalk/domain/event"
)

type Sink struct {
	id string
}

func (s Sink) Consume(ctx context.Context, e event.DomainEvent) error {
	return nil
}

func TestRegistry_Join_One_Room_One_Connection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connID := uuid.NewString()
	roomKey := domain.DeriveRoomKey("alice", "bob")
	sink := Sink{id: "s1"}

	// Given an empty registry
	req.Nil(registry.SinksForRoom(roomKey))

	// When a connection joins a room
	registry.Join(connID, roomKey, sink)

	// Then its sink is the room's only delivery target
	req.Len(registry.SinksForRoom(roomKey), 1)
	req.Contains(registry.SinksForRoom(roomKey), sink)
}

func TestRegistry_Join_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connID := uuid.NewString()
	roomKey := domain.DeriveRoomKey("alice", "bob")
	sink := Sink{id: "s1"}

	// When the same connection joins the same room twice
	registry.Join(connID, roomKey, sink)
	registry.Join(connID, roomKey, sink)

	// Then a single membership exists, so no duplicate delivery can occur
	req.Len(registry.SinksForRoom(roomKey), 1)
}

func TestRegistry_Join_One_Room_Multiple_Connections(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connID1 := uuid.NewString()
	connID2 := uuid.NewString()
	roomKey := domain.DeriveRoomKey("alice", "bob")
	sink1 := Sink{id: "s1"}
	sink2 := Sink{id: "s2"}

	// When connections join a room
	registry.Join(connID1, roomKey, sink1)
	registry.Join(connID2, roomKey, sink2)

	// Then both sinks are delivery targets
	req.Len(registry.SinksForRoom(roomKey), 2)
	req.Contains(registry.SinksForRoom(roomKey), sink1)
	req.Contains(registry.SinksForRoom(roomKey), sink2)
}

func TestRegistry_Unknown_Room_Behaves_As_Empty(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	req.Nil(registry.SinksForRoom(domain.DeriveRoomKey("never", "joined")))
}

func TestRegistry_Leave_One_Room(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connID := uuid.NewString()
	roomKey := domain.DeriveRoomKey("alice", "bob")
	sink := Sink{id: "s1"}

	// Given a connection joined a room
	registry.Join(connID, roomKey, sink)

	// When the connection leaves the room
	registry.Leave(connID, roomKey)

	// Then the room behaves as if it never existed
	req.Nil(registry.SinksForRoom(roomKey))
}

func TestRegistry_LeaveAll_Removes_Every_Membership(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connID := uuid.NewString()
	otherConnID := uuid.NewString()
	roomAB := domain.DeriveRoomKey("alice", "bob")
	roomAC := domain.DeriveRoomKey("alice", "carol")
	sink := Sink{id: "s1"}
	otherSink := Sink{id: "s2"}

	// Given one connection joined two rooms and another joined one of them
	registry.Join(connID, roomAB, sink)
	registry.Join(connID, roomAC, sink)
	registry.Join(otherConnID, roomAB, otherSink)

	// When the first connection disconnects
	registry.LeaveAll(connID)

	// Then it appears in zero rooms
	req.Nil(registry.SinksForRoom(roomAC))
	req.NotContains(registry.SinksForRoom(roomAB), sink)

	// And the other connection's membership is untouched
	req.Len(registry.SinksForRoom(roomAB), 1)
	req.Contains(registry.SinksForRoom(roomAB), otherSink)
}

func TestRegistry_LeaveAll_Twice_Is_Harmless(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connID := uuid.NewString()
	roomKey := domain.DeriveRoomKey("alice", "bob")

	registry.Join(connID, roomKey, Sink{id: "s1"})
	registry.LeaveAll(connID)
	registry.LeaveAll(connID)

	req.Nil(registry.SinksForRoom(roomKey))
}
