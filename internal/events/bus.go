// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

// Package events carries in-process notifications between components on a
// watermill Go channel pub/sub.
//
// The engine publishes SnapshotSwapped after every install; the API result
// cache subscribes and purges entries computed from older snapshots.
package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/codex/internal/logging"
	"github.com/tomtom215/codex/internal/metrics"
	"github.com/tomtom215/codex/internal/recommend"
)

// TopicSnapshotSwapped is published after a new snapshot is installed.
const TopicSnapshotSwapped = "snapshot.swapped"

// ErrClosed is returned by operations on a closed bus.
var ErrClosed = errors.New("event bus closed")

// SnapshotSwapped describes a newly installed snapshot.
type SnapshotSwapped struct {
	Version      int       `json:"version"`
	RunID        string    `json:"run_id,omitempty"`
	FittedAt     time.Time `json:"fitted_at"`
	Titles       int       `json:"titles"`
	Interactions int       `json:"interactions"`
}

// NewSnapshotSwapped builds the event for snap.
func NewSnapshotSwapped(snap *recommend.Snapshot) SnapshotSwapped {
	return SnapshotSwapped{
		Version:      snap.Version,
		RunID:        snap.RunID,
		FittedAt:     snap.FittedAt,
		Titles:       snap.Len(),
		Interactions: snap.Interactions,
	}
}

// Bus wraps a watermill Go channel pub/sub.
type Bus struct {
	pubsub *gochannel.GoChannel

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewBus creates a bus. bufferSize is the per-subscriber output buffer.
// Publishing returns once every subscriber has handled the event.
func NewBus(bufferSize int64) *Bus {
	logger := watermill.NewSlogLogger(slog.New(logging.NewSlogHandler()).With("component", "events"))
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer:            bufferSize,
			BlockPublishUntilSubscriberAck: true,
		}, logger),
	}
}

// PublishSnapshotSwapped publishes ev on TopicSnapshotSwapped.
func (b *Bus) PublishSnapshotSwapped(ev SnapshotSwapped) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s: %w", TopicSnapshotSwapped, err)
	}
	msg := message.NewMessage(uuid.NewString(), payload)
	if ev.RunID != "" {
		msg.Metadata.Set("run_id", ev.RunID)
	}
	return b.publish(TopicSnapshotSwapped, msg)
}

func (b *Bus) publish(topic string, msg *message.Message) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if err := b.pubsub.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	metrics.RecordEventPublished(topic)
	return nil
}

// SubscribeSnapshotSwapped calls handler for every SnapshotSwapped event
// until ctx is done or the bus is closed. Handlers run on one goroutine in
// publish order.
func (b *Bus) SubscribeSnapshotSwapped(ctx context.Context, handler func(SnapshotSwapped)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}

	messages, err := b.pubsub.Subscribe(ctx, TopicSnapshotSwapped)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", TopicSnapshotSwapped, err)
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for msg := range messages {
			var ev SnapshotSwapped
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				logging.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("Dropping malformed snapshot event")
				msg.Ack()
				continue
			}
			handler(ev)
			msg.Ack()
		}
	}()
	return nil
}

// AttachEngine publishes SnapshotSwapped for every snapshot engine
// installs.
func (b *Bus) AttachEngine(engine *recommend.Engine) {
	engine.OnSwap(func(snap *recommend.Snapshot) {
		if err := b.PublishSnapshotSwapped(NewSnapshotSwapped(snap)); err != nil && !errors.Is(err, ErrClosed) {
			logging.Warn().Err(err).Int("version", snap.Version).Msg("Snapshot event not published")
		}
	})
}

// Close stops all subscriptions and waits for their handlers to return.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	err := b.pubsub.Close()
	b.wg.Wait()
	return err
}
