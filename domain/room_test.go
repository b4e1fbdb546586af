package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveRoomKey_Symmetric(t *testing.T) {
	req := require.New(t)

	pairs := [][2]string{
		{"alice", "bob"},
		{"bob", "alice"},
		{"zoe", "adam"},
		{"user_1", "user-2"},
	}
	for _, p := range pairs {
		req.Equal(DeriveRoomKey(p[0], p[1]), DeriveRoomKey(p[1], p[0]))
	}
}

func TestDeriveRoomKey_DistinctPairs(t *testing.T) {
	req := require.New(t)

	req.NotEqual(DeriveRoomKey("alice", "bob"), DeriveRoomKey("alice", "carol"))
	req.NotEqual(DeriveRoomKey("alice", "bob"), DeriveRoomKey("bob", "carol"))
	// Concatenation ambiguity must not collide thanks to the separator:
	// ("ab", "c") vs ("a", "bc").
	req.NotEqual(DeriveRoomKey("ab", "c"), DeriveRoomKey("a", "bc"))
}

func TestDeriveRoomKey_SelfPair(t *testing.T) {
	req := require.New(t)

	// Messaging yourself is a valid degenerate room, not an error.
	req.Equal(RoomKey("alice#alice"), DeriveRoomKey("alice", "alice"))
}

func TestMessage_Room(t *testing.T) {
	req := require.New(t)

	m := Message{Sender: "bob", Receiver: "alice", Content: "hi"}
	req.Equal(DeriveRoomKey("alice", "bob"), m.Room())
}
