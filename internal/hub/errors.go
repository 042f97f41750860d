// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

package hub

import (
	"errors"

	"github.com/B12048/TibaMe-repo-sub002/internal/chat"
	"github.com/B12048/TibaMe-repo-sub002/internal/presence"
	"github.com/B12048/TibaMe-repo-sub002/internal/validation"
)

var (
	// ErrConnectionClosed is returned by Invoke on a closed connection.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrStaleHandle is returned by Push on a closed connection.
	ErrStaleHandle = presence.ErrStaleHandle

	// ErrUnknownMethod is returned for a method the endpoint does not serve.
	ErrUnknownMethod = errors.New("unknown method")

	// ErrRateLimited is returned when a connection invokes too fast.
	ErrRateLimited = errors.New("invocation rate exceeded")

	// ErrTextTooLong is returned when message text exceeds the configured limit.
	ErrTextTooLong = errors.New("message text too long")

	// ErrNotActive is returned when activating a connection twice.
	ErrNotActive = errors.New("connection is not connecting")
)

// Error codes carried by invokeError frames.
const (
	CodeRecipientNotFound = "RECIPIENT_NOT_FOUND"
	CodePersistence       = "PERSISTENCE_FAILURE"
	CodeConnectionClosed  = "CONNECTION_CLOSED"
	CodeUnknownMethod     = "UNKNOWN_METHOD"
	CodeRateLimited       = "RATE_LIMITED"
	CodeValidation        = "VALIDATION_ERROR"
	CodeInternal          = "INTERNAL_ERROR"
)

// ErrorCode maps an invocation error to the code reported to the client.
func ErrorCode(err error) string {
	var verr *validation.RequestValidationError
	switch {
	case errors.Is(err, chat.ErrRecipientNotFound):
		return CodeRecipientNotFound
	case errors.Is(err, chat.ErrPersistence):
		return CodePersistence
	case errors.Is(err, ErrConnectionClosed):
		return CodeConnectionClosed
	case errors.Is(err, ErrUnknownMethod):
		return CodeUnknownMethod
	case errors.Is(err, ErrRateLimited):
		return CodeRateLimited
	case errors.Is(err, ErrTextTooLong), errors.As(err, &verr):
		return CodeValidation
	default:
		return CodeInternal
	}
}

// clientMessage is the text sent with an invokeError. Internal causes are
// not exposed.
func clientMessage(err error) string {
	switch ErrorCode(err) {
	case CodeRecipientNotFound:
		return "recipient not found"
	case CodePersistence:
		return "message could not be saved"
	case CodeInternal:
		return "internal error"
	default:
		return err.Error()
	}
}
