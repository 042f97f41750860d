// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

package hub

import (
	"context"
	"fmt"

	"github.com/B12048/TibaMe-repo-sub002/internal/logging"
	"github.com/B12048/TibaMe-repo-sub002/internal/metrics"
	"github.com/B12048/TibaMe-repo-sub002/internal/models"
	"github.com/B12048/TibaMe-repo-sub002/internal/validation"
)

type sendAllArgs struct {
	Text string `json:"text" validate:"notblank"`
}

type sendPrivateArgs struct {
	Receiver string `json:"receiver" validate:"notblank,max=64"`
	Text     string `json:"text" validate:"notblank"`
}

// HandleFrame processes one inbound frame. Rejected invocations are
// answered with an invokeError push to this connection; the error is also
// returned for logging. Unknown frame types are ignored.
func (c *Conn) HandleFrame(f models.Frame) error {
	switch f.Type {
	case models.FramePing:
		return c.Push(models.NewEvent(models.EventPong, nil))
	case models.FrameInvoke:
	default:
		logging.Ctx(c.ctx).Debug().Str("type", f.Type).Msg("ignoring unknown frame type")
		return nil
	}

	args := models.InvokeArguments{}
	if f.Args != nil {
		args = *f.Args
	}
	err := c.Invoke(f.Method, args)
	if err == nil {
		return nil
	}

	code := ErrorCode(err)
	metrics.InvokeRejected.WithLabelValues(c.endpoint.kind.String(), code).Inc()
	if code != CodeConnectionClosed {
		_ = c.Push(models.NewEvent(models.EventInvokeError, models.InvokeErrorPayload{
			Method:  f.Method,
			Code:    code,
			Message: clientMessage(err),
		}))
	}
	return err
}

// Invoke runs method on the connection's endpoint.
func (c *Conn) Invoke(method string, args models.InvokeArguments) error {
	if c.State() != StateActive {
		return ErrConnectionClosed
	}
	metrics.WSFramesReceived.WithLabelValues(c.endpoint.kind.String(), method).Inc()

	if !c.allow() {
		return ErrRateLimited
	}

	ctx := c.ctx
	if t := c.endpoint.cfg.OperationTimeout; t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}

	e := c.endpoint
	switch {
	case e.kind == KindChat && method == models.MethodSendAll:
		a := sendAllArgs{Text: args.Text}
		if err := e.validateText(&a, a.Text); err != nil {
			return err
		}
		_, _, err := e.router.Broadcast(ctx, c.User(), a.Text)
		return err

	case e.kind == KindPrivateChat && method == models.MethodSendPrivate:
		a := sendPrivateArgs{Receiver: args.Receiver, Text: args.Text}
		if err := e.validateText(&a, a.Text); err != nil {
			return err
		}
		_, err := e.router.SendPrivate(ctx, c.User(), a.Receiver, a.Text)
		return err

	case e.kind == KindPresence && method == models.MethodPageViewed:
		e.counter.OnPageView()
		metrics.PageViews.Inc()
		return nil

	default:
		return fmt.Errorf("%w: %q on %s endpoint", ErrUnknownMethod, method, e.kind)
	}
}

func (e *Endpoint) validateText(args interface{}, text string) error {
	if verr := validation.ValidateStruct(args); verr != nil {
		return verr
	}
	if !validation.MaxRunes(text, e.cfg.MaxTextLength) {
		return fmt.Errorf("%w: limit is %d characters", ErrTextTooLong, e.cfg.MaxTextLength)
	}
	return nil
}
