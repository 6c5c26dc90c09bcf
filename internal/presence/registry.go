// Showroom - Embeddable 3D Store Widget Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showroom

package presence

import (
	"slices"
	"sync"

	"github.com/samber/lo"
)

// Snapshot is the membership of a room as of one registry mutation.
//
// Version is drawn from a registry-wide counter that increases with every
// mutation, so a higher Version always describes a later state of the room.
type Snapshot struct {
	Room    string
	Members []string
	Version uint64
}

// Count returns the number of members in the snapshot.
func (s Snapshot) Count() int {
	return len(s.Members)
}

// Registry is the in-memory index of which sessions are in which store rooms.
// It is the only owner of membership state. Rooms exist while they have at
// least one member.
type Registry struct {
	mu       sync.RWMutex
	rooms    map[string]map[string]struct{} // room -> sessions
	sessions map[string]map[string]struct{} // session -> rooms
	version  uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms:    make(map[string]map[string]struct{}),
		sessions: make(map[string]map[string]struct{}),
	}
}

// Join adds session to room and returns the membership after the join.
// Joining a room twice is a no-op apart from the new snapshot version.
func (r *Registry) Join(room, session string) Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.add(room, session)
	return r.snapshotLocked(room)
}

// Move puts session into room and removes it from every other room, as one
// mutation. When room is full and session is not already a member, nothing
// changes and ok is false. left holds one snapshot per room the session
// left, ordered by room id, all older than joined.
func (r *Registry) Move(session, room string, capacity int) (left []Snapshot, joined Snapshot, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.rooms[room]
	if _, member := members[session]; !member && len(members) >= capacity {
		return nil, Snapshot{Room: room, Members: sortedKeys(members)}, false
	}

	for _, prev := range sortedKeys(r.sessions[session]) {
		if prev == room {
			continue
		}
		r.remove(prev, session)
		left = append(left, r.snapshotLocked(prev))
	}

	r.add(room, session)
	return left, r.snapshotLocked(room), true
}

// Current returns the membership of room stamped with a new version.
func (r *Registry) Current(room string) Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked(room)
}

// Leave removes session from room and returns the membership after the leave.
// Leaving a room the session is not in (or a room that does not exist) is valid.
func (r *Registry) Leave(room, session string) Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.remove(room, session)
	return r.snapshotLocked(room)
}

// LeaveAll removes session from every room it belongs to and returns one
// snapshot per affected room, ordered by room id.
func (r *Registry) LeaveAll(session string) []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	rooms := sortedKeys(r.sessions[session])
	snapshots := make([]Snapshot, 0, len(rooms))
	for _, room := range rooms {
		r.remove(room, session)
		snapshots = append(snapshots, r.snapshotLocked(room))
	}
	return snapshots
}

// MembersOf returns a sorted copy of the sessions in room.
func (r *Registry) MembersOf(room string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.rooms[room])
}

// RoomsOf returns a sorted copy of the rooms session belongs to.
func (r *Registry) RoomsOf(session string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.sessions[session])
}

// Count returns the number of members in room.
func (r *Registry) Count(room string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[room])
}

// IsMember reports whether session is currently in room.
func (r *Registry) IsMember(room, session string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[room][session]
	return ok
}

// Stats returns the number of non-empty rooms and of sessions in any room.
func (r *Registry) Stats() (rooms, sessions int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms), len(r.sessions)
}

func (r *Registry) add(room, session string) {
	members, ok := r.rooms[room]
	if !ok {
		members = make(map[string]struct{}, 2)
		r.rooms[room] = members
	}
	members[session] = struct{}{}

	joined, ok := r.sessions[session]
	if !ok {
		joined = make(map[string]struct{}, 1)
		r.sessions[session] = joined
	}
	joined[room] = struct{}{}
}

func (r *Registry) remove(room, session string) {
	if members, ok := r.rooms[room]; ok {
		delete(members, session)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}
	if joined, ok := r.sessions[session]; ok {
		delete(joined, room)
		if len(joined) == 0 {
			delete(r.sessions, session)
		}
	}
}

func (r *Registry) snapshotLocked(room string) Snapshot {
	r.version++
	return Snapshot{
		Room:    room,
		Members: sortedKeys(r.rooms[room]),
		Version: r.version,
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := lo.Keys(set)
	slices.Sort(keys)
	return keys
}
