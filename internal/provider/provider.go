// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// CONTRACT
// =============================================================================

// Provider creates chat sessions.
type Provider interface {
	// NewSession opens a conversation seeded with systemInstruction. It
	// fails with an error matching ErrInvalidAPIKey when apiKey is
	// malformed or rejected.
	NewSession(apiKey, systemInstruction string) (Session, error)
}

// Session is a stateful conversation. Sessions are not safe for
// concurrent sends.
type Session interface {
	// SendAndStream sends text as the next user turn and returns the reply
	// as a stream. Cancelling ctx aborts the request and the stream.
	SendAndStream(ctx context.Context, text string) (Stream, error)
}

// Stream yields reply fragments in arrival order.
type Stream interface {
	// Recv returns the next fragment, io.EOF once the reply is complete,
	// or the error that ended the stream.
	Recv() (string, error)

	// Close releases the underlying connection. It is safe to call more
	// than once.
	Close() error
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrInvalidAPIKey means the credential is malformed or was rejected.
	// The message matches the provider's own wording.
	ErrInvalidAPIKey = errors.New("API key not valid")

	// ErrTransport wraps network failures talking to the provider.
	ErrTransport = errors.New("transport error")

	// ErrRateLimited means the provider refused the request for quota.
	ErrRateLimited = errors.New("rate limited")

	// ErrStreamStalled means no fragment arrived within the stall timeout.
	ErrStreamStalled = errors.New("response stalled")

	// ErrCancelled means the send was aborted locally.
	ErrCancelled = errors.New("request cancelled")
)

// ProviderError is an error reported by the remote service.
type ProviderError struct {
	// Status is the HTTP status code, 0 for errors reported inside a stream.
	Status int

	// Code is the provider's symbolic status (e.g. "INVALID_ARGUMENT").
	Code string

	// Message is the provider's human readable message.
	Message string

	// Err optionally links the error to one of the sentinels above.
	Err error
}

func (e *ProviderError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	switch {
	case e.Status != 0 && e.Code != "":
		return fmt.Sprintf("%s (HTTP %d %s)", msg, e.Status, e.Code)
	case e.Status != 0:
		return fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	case e.Code != "":
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	default:
		return msg
	}
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// invalidKeySignal is the phrase providers use when they reject a key.
const invalidKeySignal = "api key not valid"

// IsInvalidAPIKey reports whether err means the credential was rejected.
// Typed errors are checked first; free-text errors fall back to a
// case-insensitive match on the provider's wording.
func IsInvalidAPIKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrInvalidAPIKey) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), invalidKeySignal)
}

// Describe returns the user-facing description of err, without wrapping
// noise from context cancellation.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return ErrCancelled.Error()
	default:
		return err.Error()
	}
}
