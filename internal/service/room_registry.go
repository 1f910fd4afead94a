package service

import (
	"fmt"
	"strings"
	"sync"
)

// TutorRoom is shared by every tutor connection. Student rooms are derived
// from the user id. Both conventions are load-bearing: the tutor fan-out
// computes student room names instead of persisting them.
const TutorRoom = "tutor-room"

const studentRoomPrefix = "estudiante-"

func StudentRoom(userID uint) string {
	return fmt.Sprintf("%s%d", studentRoomPrefix, userID)
}

func IsStudentRoom(room string) bool {
	return strings.HasPrefix(room, studentRoomPrefix)
}

// Subscriber is one live connection as the registry sees it. Send must not
// block: it reports false when the transport is closed or its buffer is full.
type Subscriber interface {
	Send(payload []byte) bool
	IsOpen() bool
}

// RoomRegistry maps room names to the set of live connections subscribed to
// them. It is the only shared mutable state of the realtime layer and owns
// its lock; it is constructed once and injected into the connection handler.
type RoomRegistry struct {
	mu    sync.RWMutex
	rooms map[string]map[Subscriber]bool
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		rooms: make(map[string]map[Subscriber]bool),
	}
}

// Join adds the subscriber to the room, creating it on first use. Idempotent.
func (r *RoomRegistry) Join(room string, sub Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[room]
	if !ok {
		members = make(map[Subscriber]bool)
		r.rooms[room] = members
	}
	members[sub] = true
}

// Leave removes the subscriber. Emptied student rooms are dropped to reclaim
// memory; tutor-room stays so later joins reuse the entry. Reclamation is
// best effort, a lingering empty entry is harmless.
func (r *RoomRegistry) Leave(room string, sub Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[room]
	if !ok {
		return
	}
	delete(members, sub)
	if len(members) == 0 && IsStudentRoom(room) {
		delete(r.rooms, room)
	}
}

// Broadcast delivers the payload to every open member of the room. A failed
// or closed recipient is skipped, never aborting delivery to the rest.
// Returns the number of members that accepted the payload.
func (r *RoomRegistry) Broadcast(room string, payload []byte) int {
	return r.BroadcastExcept(room, payload, nil)
}

// BroadcastExcept is Broadcast minus one subscriber, used to keep a sender
// from receiving its own notification.
func (r *RoomRegistry) BroadcastExcept(room string, payload []byte, except Subscriber) int {
	r.mu.RLock()
	members := make([]Subscriber, 0, len(r.rooms[room]))
	for sub := range r.rooms[room] {
		members = append(members, sub)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, sub := range members {
		if sub == except || !sub.IsOpen() {
			continue
		}
		if sub.Send(payload) {
			delivered++
		}
	}
	return delivered
}

// FanOutTutor subscribes one tutor connection to tutor-room and to every
// student room at once, so a single socket receives all student traffic.
// Returns the list of joined rooms for later cleanup.
func (r *RoomRegistry) FanOutTutor(sub Subscriber, studentIDs []uint) []string {
	rooms := make([]string, 0, len(studentIDs)+1)
	rooms = append(rooms, TutorRoom)
	for _, id := range studentIDs {
		rooms = append(rooms, StudentRoom(id))
	}
	for _, room := range rooms {
		r.Join(room, sub)
	}
	return rooms
}

// Members reports the current subscriber count of a room.
func (r *RoomRegistry) Members(room string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[room])
}
