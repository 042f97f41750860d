// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"

	"github.com/B12048/TibaMe-repo-sub002/internal/logging"
	"github.com/B12048/TibaMe-repo-sub002/internal/metrics"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("publisher is closed")

// Metadata keys set on every message.
const (
	MetadataTopic         = "topic"
	MetadataCorrelationID = "correlation_id"
)

// Publisher encodes payloads as JSON and publishes them to a watermill
// publisher. It satisfies chat.Publisher.
type Publisher struct {
	publisher message.Publisher
	prefix    string

	mu     sync.RWMutex
	closed bool
}

// NewPublisher wraps pub. prefix is prepended to every topic with a dot.
func NewPublisher(pub message.Publisher, prefix string) *Publisher {
	return &Publisher{publisher: pub, prefix: prefix}
}

// Topic returns the full topic name for topic.
func (p *Publisher) Topic(topic string) string {
	if p.prefix == "" {
		return topic
	}
	return p.prefix + "." + topic
}

// Publish encodes payload and publishes it on the prefixed topic.
func (p *Publisher) Publish(ctx context.Context, topic string, payload interface{}) error {
	err := p.publish(ctx, topic, payload)
	metrics.RecordEventPublish(topic, err)
	return err
}

func (p *Publisher) publish(ctx context.Context, topic string, payload interface{}) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", topic, err)
	}

	msg := message.NewMessage(uuid.New().String(), data)
	msg.SetContext(ctx)
	msg.Metadata.Set(MetadataTopic, topic)
	msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		msg.Metadata.Set(MetadataCorrelationID, id)
	}

	if err := p.publisher.Publish(p.Topic(topic), msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Close closes the underlying publisher. It is safe to call more than once.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}

// WatermillLogger adapts the global logger for watermill components.
func WatermillLogger() watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logging.NewSlogLogger())
}
