// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/B12048/TibaMe-repo-sub002/internal/logging"
	"github.com/B12048/TibaMe-repo-sub002/internal/metrics"
	"github.com/B12048/TibaMe-repo-sub002/internal/models"
	"github.com/B12048/TibaMe-repo-sub002/internal/presence"
	"github.com/B12048/TibaMe-repo-sub002/internal/store"
)

// Event stream topics, relative to the publisher's prefix.
const (
	TopicBroadcast = "chat.broadcast"
	TopicPrivate   = "chat.private"
)

// Publisher receives stored messages for downstream consumers. Publishing
// is best effort and never gates delivery.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
}

// Router sends messages to the sessions of one audience registry.
type Router struct {
	audience  *presence.Registry
	messages  store.MessageStore
	directory store.UserDirectory
	publisher Publisher
	fanout    Fanout
	now       func() time.Time
	newID     func() string
}

// Option configures a Router.
type Option func(*Router)

// WithPublisher publishes every stored message to p.
func WithPublisher(p Publisher) Option {
	return func(r *Router) { r.publisher = p }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.now = now }
}

// WithIDGenerator overrides the UUIDv4 message ID source.
func WithIDGenerator(fn func() string) Option {
	return func(r *Router) { r.newID = fn }
}

// NewRouter returns a router delivering to the sessions in audience.
// endpoint labels metrics and logs.
func NewRouter(endpoint string, audience *presence.Registry, messages store.MessageStore, directory store.UserDirectory, opts ...Option) *Router {
	r := &Router{
		audience:  audience,
		messages:  messages,
		directory: directory,
		fanout:    Fanout{Endpoint: endpoint},
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Audience returns the registry the router delivers to.
func (r *Router) Audience() *presence.Registry { return r.audience }

// Broadcast stores text from sender and pushes it to every session in the
// audience. A directory failure sends the message with anonymous display
// fields rather than failing.
func (r *Router) Broadcast(ctx context.Context, sender models.UserID, text string) (*models.BroadcastMessage, Result, error) {
	profile := r.profileOf(ctx, sender)

	msg := &models.BroadcastMessage{
		ID:          r.newID(),
		SenderID:    sender,
		DisplayName: profile.DisplayName,
		AvatarURL:   profile.AvatarURL,
		Text:        text,
		SentAt:      r.now().UTC(),
	}

	start := time.Now()
	err := r.messages.SaveBroadcastMessage(ctx, msg)
	metrics.RecordPersist("broadcast", time.Since(start), err)
	if err != nil {
		return nil, Result{}, &PersistenceError{Kind: "broadcast", Err: err}
	}

	ev := models.NewEvent(models.EventMessageReceived, models.ChatPayload{
		DisplayName: msg.DisplayName,
		Text:        msg.Text,
		AvatarURL:   msg.AvatarURL,
		Sender:      msg.SenderID,
	})
	res := r.fanout.Deliver(r.audience.Sessions(), ev)

	r.publish(ctx, TopicBroadcast, msg)
	return msg, res, nil
}

// PrivateReceipt reports where a private message was pushed.
type PrivateReceipt struct {
	Message  *models.PrivateMessage
	Receiver Result
	Sender   Result
}

// SendPrivate stores text from sender to the user named receiverRef and
// pushes it to both parties' sessions. A sender messaging themselves gets
// one push per session.
func (r *Router) SendPrivate(ctx context.Context, sender models.UserID, receiverRef, text string) (*PrivateReceipt, error) {
	receiver, err := r.resolveReceiver(ctx, receiverRef)
	if err != nil {
		return nil, err
	}

	msg := &models.PrivateMessage{
		ID:         r.newID(),
		SenderID:   sender,
		ReceiverID: receiver,
		Text:       text,
		SentAt:     r.now().UTC(),
	}

	start := time.Now()
	err = r.messages.SavePrivateMessage(ctx, msg)
	metrics.RecordPersist("private", time.Since(start), err)
	if err != nil {
		return nil, &PersistenceError{Kind: "private", Err: err}
	}

	profile := r.profileOf(ctx, sender)
	ev := models.NewEvent(models.EventPrivateMessageReceived, models.ChatPayload{
		DisplayName: profile.DisplayName,
		Text:        msg.Text,
		AvatarURL:   profile.AvatarURL,
		Sender:      msg.SenderID,
	})

	receiverSessions := r.audience.SessionsOf(receiver)
	receipt := &PrivateReceipt{Message: msg}
	receipt.Receiver = r.fanout.Deliver(receiverSessions, ev)
	receipt.Sender = r.fanout.Deliver(without(r.audience.SessionsOf(sender), receiverSessions), ev)

	if receipt.Receiver.Attempted() == 0 {
		logging.Ctx(ctx).Debug().
			Str("sender", sender.String()).
			Str("receiver", receiver.String()).
			Msg("private message stored for offline receiver")
	}

	r.publish(ctx, TopicPrivate, msg)
	return receipt, nil
}

// resolveReceiver maps a user-supplied reference to a UserID.
func (r *Router) resolveReceiver(ctx context.Context, ref string) (models.UserID, error) {
	if store.NormalizeName(ref) == "" {
		return "", fmt.Errorf("%w: empty receiver", ErrRecipientNotFound)
	}

	id, err := r.directory.LookupByName(ctx, ref)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, store.ErrUserNotFound) {
		logging.Ctx(ctx).Warn().Err(err).Str("receiver", ref).Msg("directory lookup failed")
		return "", fmt.Errorf("%w: %q: %w", ErrRecipientNotFound, ref, err)
	}

	if _, perr := r.directory.LookupProfile(ctx, models.UserID(ref)); perr == nil {
		return models.UserID(ref), nil
	}
	return "", fmt.Errorf("%w: %q", ErrRecipientNotFound, ref)
}

// profileOf returns the sender's display fields, or anonymous ones when the
// directory cannot supply them.
func (r *Router) profileOf(ctx context.Context, id models.UserID) models.Profile {
	p, err := r.directory.LookupProfile(ctx, id)
	if err != nil {
		if !errors.Is(err, store.ErrUserNotFound) {
			logging.Ctx(ctx).Warn().Err(err).Str("user", id.String()).Msg("profile lookup failed, sending as anonymous")
		}
		return models.AnonymousProfile(id)
	}
	if p.DisplayName == "" {
		p.DisplayName = p.Username
	}
	return p
}

func (r *Router) publish(ctx context.Context, topic string, payload interface{}) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(ctx, topic, payload); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("topic", topic).Msg("failed to publish message event")
	}
}
