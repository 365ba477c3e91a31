// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package provider defines the chat session contract the conversation
// controller talks to, and the error taxonomy shared by implementations.
//
// A Provider opens Sessions. A Session keeps the prior turns of one
// conversation and answers each message with a Stream: a lazy, finite,
// non-restartable sequence of text fragments. Consumers call Recv until it
// returns io.EOF or an error.
//
// IsInvalidAPIKey is the single place that decides whether an error means
// the credential was rejected.
package provider
