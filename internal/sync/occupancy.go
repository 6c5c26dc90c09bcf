// Showroom - Embeddable 3D Store Widget Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showroom

package sync

import (
	"context"
	"errors"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/showroom/internal/database"
	"github.com/tomtom215/showroom/internal/logging"
	"github.com/tomtom215/showroom/internal/metrics"
)

// OccupancyTopic is the in-process topic carrying occupancy updates.
const OccupancyTopic = "store.occupancy"

const breakerName = "occupancy-writer"

// OccupancyWriter stores the active user count of a store.
type OccupancyWriter interface {
	SetActiveUsers(ctx context.Context, storeID string, count int) error
}

// Config tunes OccupancySync.
type Config struct {
	// WriteTimeout bounds a single document store write.
	WriteTimeout time.Duration

	// Buffer is the number of updates that can wait for the consumer.
	Buffer int64

	Breaker BreakerConfig
}

// DefaultConfig returns the settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		WriteTimeout: 5 * time.Second,
		Buffer:       1024,
		Breaker: BreakerConfig{
			FailureThreshold: 5,
			OpenTimeout:      30 * time.Second,
		},
	}
}

type occupancyUpdate struct {
	StoreID string `json:"storeId"`
	Count   int    `json:"count"`
	Version uint64 `json:"version"`
}

// OccupancySync is the fire-and-forget bridge from live presence to the
// document store. It implements suture.Service.
type OccupancySync struct {
	writer   OccupancyWriter
	cfg      Config
	pubsub   *gochannel.GoChannel
	messages <-chan *message.Message
	breaker  *gobreaker.CircuitBreaker[struct{}]
	logger   zerolog.Logger

	mu      stdsync.Mutex
	applied map[string]claimed // store id -> newest update taken
	pending map[string]int     // store id -> updates published but not yet handled
}

type claimed struct {
	version uint64
	count   int
}

// NewOccupancySync creates the sync and subscribes its consumer, so updates
// published before Serve starts are queued rather than lost.
func NewOccupancySync(writer OccupancyWriter, cfg Config) (*OccupancySync, error) {
	if writer == nil {
		return nil, errors.New("occupancy writer is required")
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultConfig().WriteTimeout
	}

	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: cfg.Buffer,
	}, logging.NewWatermillLogger())

	messages, err := pubsub.Subscribe(context.Background(), OccupancyTopic)
	if err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", OccupancyTopic, err)
	}

	return &OccupancySync{
		writer:   writer,
		cfg:      cfg,
		pubsub:   pubsub,
		messages: messages,
		breaker:  newWriteBreaker(breakerName, cfg.Breaker),
		logger:   logging.WithComponent("occupancy-sync"),
		applied:  make(map[string]claimed),
		pending:  make(map[string]int),
	}, nil
}

// SyncCount queues a count for persistence and returns immediately.
func (s *OccupancySync) SyncCount(room string, count int, version uint64) {
	payload, err := json.Marshal(occupancyUpdate{StoreID: room, Count: count, Version: version})
	if err != nil {
		metrics.RecordOccupancySync("invalid", 0)
		s.logger.Error().Err(err).Str("store_id", room).Msg("failed to encode occupancy update")
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("store_id", room)

	s.mu.Lock()
	s.pending[room]++
	s.mu.Unlock()

	if err := s.pubsub.Publish(OccupancyTopic, msg); err != nil {
		s.settle(room)
		metrics.RecordOccupancySync("failed", 0)
		s.logger.Warn().Err(err).Str("store_id", room).Int("count", count).Msg("dropping occupancy update")
	}
}

// Serve consumes occupancy updates until ctx is canceled.
func (s *OccupancySync) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-s.messages:
			if !ok {
				return suture.ErrDoNotRestart
			}
			s.handle(ctx, msg)
			msg.Ack()
		}
	}
}

// String names the service in supervisor logs.
func (s *OccupancySync) String() string {
	return "occupancy-sync"
}

// Close stops accepting updates. Pending updates are discarded.
func (s *OccupancySync) Close() error {
	return s.pubsub.Close()
}

func (s *OccupancySync) handle(ctx context.Context, msg *message.Message) {
	var u occupancyUpdate
	if err := json.Unmarshal(msg.Payload, &u); err != nil || u.StoreID == "" || u.Count < 0 {
		metrics.RecordOccupancySync("invalid", 0)
		s.logger.Error().Err(err).Str("message_uuid", msg.UUID).Msg("discarding malformed occupancy update")
		return
	}
	defer s.settle(u.StoreID)

	if !s.claim(u.StoreID, u.Version, u.Count) {
		metrics.RecordOccupancySync("stale", 0)
		s.logger.Trace().Str("store_id", u.StoreID).Uint64("version", u.Version).Msg("skipping stale occupancy update")
		return
	}

	start := time.Now()
	_, err := s.breaker.Execute(func() (struct{}, error) {
		writeCtx, cancel := context.WithTimeout(ctx, s.cfg.WriteTimeout)
		defer cancel()
		return struct{}{}, s.writer.SetActiveUsers(writeCtx, u.StoreID, u.Count)
	})
	elapsed := time.Since(start)

	switch {
	case err == nil:
		metrics.RecordOccupancySync("applied", elapsed)
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "success").Inc()
		s.logger.Debug().Str("store_id", u.StoreID).Int("count", u.Count).Uint64("version", u.Version).Msg("persisted occupancy")

	case errors.Is(err, database.ErrStoreNotFound):
		metrics.RecordOccupancySync("missing", elapsed)
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "success").Inc()
		s.logger.Debug().Str("store_id", u.StoreID).Msg("no store document for occupied room")

	case isRejected(err):
		metrics.RecordOccupancySync("rejected", elapsed)
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "rejected").Inc()
		s.logger.Warn().Err(err).Str("store_id", u.StoreID).Int("count", u.Count).Msg("occupancy write rejected by circuit breaker")

	default:
		metrics.RecordOccupancySync("failed", elapsed)
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "failure").Inc()
		s.logger.Warn().Err(err).Str("store_id", u.StoreID).Int("count", u.Count).Msg("occupancy write failed")
	}
}

// claim records version as the newest update for store. It returns false
// when an equal or newer update was already taken.
func (s *OccupancySync) claim(store string, version uint64, count int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if version <= s.applied[store].version {
		return false
	}
	s.applied[store] = claimed{version: version, count: count}
	return true
}

// settle marks one update for store as handled. A store whose newest update
// is an empty room and that has nothing in flight is forgotten: the bus
// delivers out of order, but any later update for it carries a newer version.
func (s *OccupancySync) settle(store string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n := s.pending[store]; n > 1 {
		s.pending[store] = n - 1
	} else {
		delete(s.pending, store)
	}
	if c, ok := s.applied[store]; ok && c.count == 0 && s.pending[store] == 0 {
		delete(s.applied, store)
	}
}
