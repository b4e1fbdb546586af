// Package runtime handles live-connection bookkeeping and the background
// workers supervising the process. It contains no business rules.
package runtime

import (
	"sync"

	"texttalk/contract"
	"texttalk/domain"
)

type Set map[string]struct{}

// Registry tracks which live connections are subscribed to which room.
// It is keyed by connection ID rather than username so that a user connected
// from several tabs holds several independent memberships, each with its own
// delivery sink.
type Registry struct {
	mu          sync.RWMutex
	sessions    map[string]contract.EventSink          // connection ID -> sink
	roomMembers map[domain.RoomKey]Set                 // room key -> connection IDs
	connRooms   map[string]map[domain.RoomKey]struct{} // connection ID -> joined rooms
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:    make(map[string]contract.EventSink),
		roomMembers: make(map[domain.RoomKey]Set),
		connRooms:   make(map[string]map[domain.RoomKey]struct{}),
	}
}

// SinksForRoom retrieves all active delivery channels for a room.
// It performs a two-step lookup:
// 1. Identifies connection IDs associated with the room via RoomMembers.
// 2. Resolves those IDs into actual EventSinks using the Sessions map.
//
// The returned slice is a snapshot: members may join or leave between the
// call and the actual delivery, and callers must tolerate that.
// Returns nil if the room doesn't exist or has no members.
func (r *Registry) SinksForRoom(roomKey domain.RoomKey) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.roomMembers[roomKey]
	if !ok {
		return nil
	}
	var activeSinks []contract.EventSink
	for connID := range members {
		if sink, exists := r.sessions[connID]; exists {
			activeSinks = append(activeSinks, sink)
		}
	}
	return activeSinks
}

// Join registers a connection's sink and adds it to a room's member set.
// Joining a room the connection is already a member of is a no-op, so a
// repeated join never produces duplicate deliveries.
func (r *Registry) Join(connID string, roomKey domain.RoomKey, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[connID] = sink

	if _, ok := r.roomMembers[roomKey]; !ok {
		r.roomMembers[roomKey] = make(Set)
	}
	r.roomMembers[roomKey][connID] = struct{}{}

	if _, ok := r.connRooms[connID]; !ok {
		r.connRooms[connID] = make(map[domain.RoomKey]struct{})
	}
	r.connRooms[connID][roomKey] = struct{}{}
}

// Leave removes a connection from one room. Empty member sets are pruned
// so the maps don't accumulate dead rooms over time.
func (r *Registry) Leave(connID string, roomKey domain.RoomKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(connID, roomKey)

	if rooms, ok := r.connRooms[connID]; ok {
		delete(rooms, roomKey)
		if len(rooms) == 0 {
			delete(r.connRooms, connID)
			delete(r.sessions, connID)
		}
	}
}

// LeaveAll removes a connection from every room it joined and drops its
// sink. This is the disconnect path: it must run exactly once per
// connection, whatever the cause of the disconnect.
func (r *Registry) LeaveAll(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for roomKey := range r.connRooms[connID] {
		r.leaveLocked(connID, roomKey)
	}
	delete(r.connRooms, connID)
	delete(r.sessions, connID)
}

func (r *Registry) leaveLocked(connID string, roomKey domain.RoomKey) {
	if members, ok := r.roomMembers[roomKey]; ok {
		delete(members, connID)

		// If no one is left in the room, remove the room entry entirely
		if len(members) == 0 {
			delete(r.roomMembers, roomKey)
		}
	}
}
