// Showroom - Embeddable 3D Store Widget Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showroom

package presence

import (
	"fmt"
	"runtime/debug"
	"slices"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"

	"github.com/tomtom215/showroom/internal/logging"
	"github.com/tomtom215/showroom/internal/metrics"
)

// RoomCapacity is the maximum number of concurrent members of a store room.
const RoomCapacity = 2

const lockStripes = 64

// Broadcaster delivers events to live connections. Both methods must return
// without waiting on any individual connection.
type Broadcaster interface {
	// BroadcastToRoom sends to every current member of room except exclude
	// (pass "" to exclude nobody).
	BroadcastToRoom(room, event string, payload interface{}, exclude string)

	// SendToSession sends to a single session.
	SendToSession(session, event string, payload interface{})
}

// CountSyncer persists room occupancy. SyncCount must not block.
type CountSyncer interface {
	SyncCount(room string, count int, version uint64)
}

// Coordinator runs the join, leave, disconnect and model-move transitions.
//
// Transitions on the same room are serialized by a striped lock held across
// the registry mutation, the broadcasts and the sync hand-off, so clients in
// a room see events in the order the membership changed. Broadcasts and
// syncs never block, so holding the lock never stalls other rooms.
type Coordinator struct {
	registry *Registry
	gateway  Broadcaster
	syncer   CountSyncer
	locks    [lockStripes]sync.Mutex
	logger   zerolog.Logger
}

// NewCoordinator creates a coordinator over registry.
func NewCoordinator(registry *Registry, gateway Broadcaster, syncer CountSyncer) *Coordinator {
	return &Coordinator{
		registry: registry,
		gateway:  gateway,
		syncer:   syncer,
		logger:   logging.WithComponent("presence"),
	}
}

// Join moves session into room, or tells the session the room is full.
//
// A session occupies at most one store room. Leaving the current room and
// entering the new one is a single registry mutation made while both rooms
// are locked, so a rejected switch leaves the session where it was.
func (c *Coordinator) Join(session, room string) {
	defer c.recoverTransition("join", session, room)

	unlock := c.lockSessionRooms(session, room)
	defer unlock()

	left, snap, ok := c.registry.Move(session, room, RoomCapacity)
	if !ok {
		c.rejectFull(session, room)
		return
	}

	for _, prev := range left {
		metrics.RecordLeave("switch")
		c.logger.Debug().Str("session_id", session).Str("store_id", prev.Room).Str("reason", "switch").Int("count", prev.Count()).Msg("Session left store")
		c.announceLeave(session, prev)
	}

	metrics.RecordJoin(true)
	c.logger.Debug().Str("session_id", session).Str("store_id", room).Int("count", snap.Count()).Msg("Session joined store")

	c.gateway.BroadcastToRoom(room, EventUserJoined, MemberPayload{SID: session}, "")
	c.gateway.BroadcastToRoom(room, EventActiveUserCount, CountPayload{Count: snap.Count()}, "")
	c.syncer.SyncCount(room, snap.Count(), snap.Version)
	c.updateGauges()
}

// Leave removes session from room. Leaving a room the session is not in
// still announces the current count and re-syncs it.
func (c *Coordinator) Leave(session, room string) {
	defer c.recoverTransition("leave", session, room)
	c.leave(session, room, "leave")
}

// Disconnect removes session from every room it belongs to. The registry
// removal happens first and the announced counts are read from it, so the
// departing session is never counted twice.
func (c *Coordinator) Disconnect(session string) {
	defer c.recoverTransition("disconnect", session, "")

	rooms := c.registry.RoomsOf(session)
	if len(rooms) == 0 {
		return
	}

	unlock := c.lockRooms(rooms)
	defer unlock()

	for _, snap := range c.registry.LeaveAll(session) {
		metrics.RecordLeave("disconnect")
		c.announceLeave(session, snap)
	}
	c.updateGauges()
}

// MoveModel relays a model move to the other members of the store room.
// Moves from sessions outside the room are dropped.
func (c *Coordinator) MoveModel(session string, move ModelMove) {
	defer c.recoverTransition("model_moved", session, move.StoreID)

	unlock := c.lockRoom(move.StoreID)
	defer unlock()

	if !c.registry.IsMember(move.StoreID, session) {
		c.logger.Debug().Str("session_id", session).Str("store_id", move.StoreID).Msg("Ignoring model move from non-member")
		return
	}

	metrics.PresenceModelMoves.Inc()
	var payload interface{} = move
	if len(move.Raw) > 0 {
		payload = move.Raw
	}
	c.gateway.BroadcastToRoom(move.StoreID, EventModelPositionUpdated, payload, session)
}

// Resync hands the live count of room to the syncer again. It is used when
// the persisted copy may have been overwritten outside the presence layer,
// for example by a store document created while visitors were in its room.
func (c *Coordinator) Resync(room string) {
	defer c.recoverTransition("resync", "", room)

	unlock := c.lockRoom(room)
	defer unlock()

	snap := c.registry.Current(room)
	c.syncer.SyncCount(room, snap.Count(), snap.Version)
}

// Occupancy returns the live number of members in room.
func (c *Coordinator) Occupancy(room string) int {
	return c.registry.Count(room)
}

func (c *Coordinator) leave(session, room, reason string) {
	unlock := c.lockRoom(room)
	defer unlock()

	snap := c.registry.Leave(room, session)
	metrics.RecordLeave(reason)
	c.logger.Debug().Str("session_id", session).Str("store_id", room).Str("reason", reason).Int("count", snap.Count()).Msg("Session left store")

	c.announceLeave(session, snap)
	c.updateGauges()
}

func (c *Coordinator) announceLeave(session string, snap Snapshot) {
	c.gateway.BroadcastToRoom(snap.Room, EventUserLeft, MemberPayload{SID: session}, "")
	c.gateway.BroadcastToRoom(snap.Room, EventActiveUserCount, CountPayload{Count: snap.Count()}, "")
	c.syncer.SyncCount(snap.Room, snap.Count(), snap.Version)
}

func (c *Coordinator) rejectFull(session, room string) {
	metrics.RecordJoin(false)
	c.logger.Debug().Str("session_id", session).Str("store_id", room).Msg("Store room full")
	c.gateway.SendToSession(session, EventStoreFull, StoreFullPayload{StoreID: room})
}

func (c *Coordinator) updateGauges() {
	metrics.UpdatePresenceGauges(c.registry.Stats())
}

func stripe(room string) int {
	return int(xxhash.Sum64String(room) % lockStripes)
}

func (c *Coordinator) lockRoom(room string) func() {
	mu := &c.locks[stripe(room)]
	mu.Lock()
	return mu.Unlock
}

// lockSessionRooms locks room together with every room session is in. The
// session's rooms are re-read under the locks and the attempt is repeated if
// they changed in between.
func (c *Coordinator) lockSessionRooms(session, room string) func() {
	for {
		rooms := c.registry.RoomsOf(session)
		unlock := c.lockRooms(append(rooms, room))
		if slices.Equal(rooms, c.registry.RoomsOf(session)) {
			return unlock
		}
		unlock()
	}
}

// lockRooms locks the stripes of several rooms in ascending stripe order.
func (c *Coordinator) lockRooms(rooms []string) func() {
	stripes := make([]int, 0, len(rooms))
	for _, room := range rooms {
		stripes = append(stripes, stripe(room))
	}
	slices.Sort(stripes)
	stripes = slices.Compact(stripes)

	for _, s := range stripes {
		c.locks[s].Lock()
	}
	return func() {
		for i := len(stripes) - 1; i >= 0; i-- {
			c.locks[stripes[i]].Unlock()
		}
	}
}

// recoverTransition keeps a panicking transition from taking down the
// connection goroutine that invoked it.
func (c *Coordinator) recoverTransition(operation, session, room string) {
	if r := recover(); r != nil {
		metrics.PresenceHandlerPanics.WithLabelValues(operation).Inc()
		c.logger.Error().
			Str("operation", operation).
			Str("session_id", session).
			Str("store_id", room).
			Str("panic", fmt.Sprint(r)).
			Bytes("stack", debug.Stack()).
			Msg("Recovered panic in presence transition")
	}
}
