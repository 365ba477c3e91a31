// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jeranaias/megabot/internal/filectx"
	"github.com/jeranaias/megabot/internal/model"
	"github.com/jeranaias/megabot/internal/prefs"
	"github.com/jeranaias/megabot/internal/provider"
)

// DefaultStallTimeout is how long a reply may go without a fragment.
const DefaultStallTimeout = 60 * time.Second

// ContextSeparator sits between the file context block and the user text.
const ContextSeparator = "\n\n---\n\n"

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrBlankInput rejects a message that is empty after trimming.
	ErrBlankInput = errors.New("message is empty")

	// ErrBusy rejects a send while another reply is streaming.
	ErrBusy = errors.New("a reply is already in progress")

	// ErrNoSession rejects a send before an API key is configured.
	ErrNoSession = errors.New("no API key configured")

	// ErrCredentialRequired rejects a blank API key.
	ErrCredentialRequired = errors.New("API key is required")

	// ErrConfirmationRequired means ResetConversation needs the user to
	// confirm before discarding messages.
	ErrConfirmationRequired = errors.New("confirmation required")

	// ErrInitFailed wraps a stored key that could not start a session.
	ErrInitFailed = errors.New(InitFailedText)
)

// =============================================================================
// TYPES
// =============================================================================

// Turn identifies one send: the USER/BOT pair it wrote and the generation
// it belongs to. It also carries what Consume needs off the update loop.
type Turn struct {
	UserID     int64
	BotID      int64
	Generation uint64

	// Payload is the text sent to the provider: file context plus input.
	Payload string

	session provider.Session
	ctx     context.Context
}

// Outcome reports what handling an event did to the state.
type Outcome int

const (
	// OutcomeStale means the event belonged to a turn that is gone.
	OutcomeStale Outcome = iota
	// OutcomeUpdated means the BOT message text changed.
	OutcomeUpdated
	// OutcomeCompleted means the reply finished.
	OutcomeCompleted
	// OutcomeFailed means the BOT message now shows an error.
	OutcomeFailed
	// OutcomeNeedCredential means the key was rejected and has been
	// cleared together with the session, timeline and files.
	OutcomeNeedCredential
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUpdated:
		return "updated"
	case OutcomeCompleted:
		return "completed"
	case OutcomeFailed:
		return "failed"
	case OutcomeNeedCredential:
		return "need-credential"
	default:
		return "stale"
	}
}

// ResetResult reports what ResetConversation did.
type ResetResult int

const (
	// ResetNoop means the timeline was already empty.
	ResetNoop ResetResult = iota
	// ResetDone means messages were discarded and a new session started.
	ResetDone
)

// Options configures a Controller.
type Options struct {
	// SystemInstruction seeds every session. Defaults to MasterPrompt.
	SystemInstruction string

	// StallTimeout bounds the gap between fragments. Defaults to
	// DefaultStallTimeout; negative disables the watchdog.
	StallTimeout time.Duration

	// Timeline overrides the message store (tests).
	Timeline *model.Timeline
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller owns the conversation state.
type Controller struct {
	provider provider.Provider
	prefs    *prefs.Preferences
	files    *filectx.Aggregator
	timeline *model.Timeline

	system       string
	stallTimeout time.Duration

	session    provider.Session
	busy       bool
	pending    int64
	generation uint64
	cancel     context.CancelCauseFunc
}

// NewController creates a controller with no session. Call Init to start
// one from a stored key.
func NewController(p provider.Provider, pr *prefs.Preferences, files *filectx.Aggregator, opts Options) *Controller {
	if opts.SystemInstruction == "" {
		opts.SystemInstruction = MasterPrompt
	}
	if opts.StallTimeout == 0 {
		opts.StallTimeout = DefaultStallTimeout
	}
	if opts.Timeline == nil {
		opts.Timeline = model.NewTimeline()
	}
	if files == nil {
		files = filectx.New()
	}
	return &Controller{
		provider:     p,
		prefs:        pr,
		files:        files,
		timeline:     opts.Timeline,
		system:       opts.SystemInstruction,
		stallTimeout: opts.StallTimeout,
	}
}

// Init starts a session from the stored key. Without a stored key it
// returns ErrCredentialRequired. A key that cannot start a session is
// removed and ErrInitFailed is returned.
func (c *Controller) Init() error {
	key, ok := c.prefs.APIKey()
	if !ok {
		return ErrCredentialRequired
	}
	session, err := c.provider.NewSession(key, c.system)
	if err != nil {
		log.Printf("CHAT_INIT_FAILED | error=%v", err)
		if rmErr := c.prefs.ClearAPIKey(); rmErr != nil {
			log.Printf("CHAT_INIT_FAILED | clear_key_error=%v", rmErr)
		}
		return fmt.Errorf("%w: %v", ErrInitFailed, err)
	}
	c.session = session
	return nil
}

// Timeline returns the message store. Callers must not mutate it.
func (c *Controller) Timeline() *model.Timeline { return c.timeline }

// Files returns the file context aggregator.
func (c *Controller) Files() *filectx.Aggregator { return c.files }

// Preferences returns the preference store.
func (c *Controller) Preferences() *prefs.Preferences { return c.prefs }

// HasSession reports whether a send can be attempted.
func (c *Controller) HasSession() bool { return c.session != nil }

// Busy reports whether a reply is streaming.
func (c *Controller) Busy() bool { return c.busy }

// Generation returns the current conversation generation.
func (c *Controller) Generation() uint64 { return c.generation }

// BuildPayload prefixes text with the serialized file context, if any.
func BuildPayload(files *filectx.Aggregator, text string) string {
	if files == nil {
		return text
	}
	block := files.Serialize()
	if block == "" {
		return text
	}
	return block + ContextSeparator + text
}

// ErrorText is the BOT message shown when a send fails.
func ErrorText(err error) string {
	return fmt.Sprintf("Error: %s. Please check your API key or network connection.", provider.Describe(err))
}

// =============================================================================
// SENDING
// =============================================================================

// Begin starts a send: it appends the USER message and an empty BOT
// placeholder and marks the controller busy. The returned turn is consumed
// with Consume. Cancelling ctx aborts the send.
func (c *Controller) Begin(ctx context.Context, text string) (Turn, error) {
	switch {
	case strings.TrimSpace(text) == "":
		return Turn{}, ErrBlankInput
	case c.busy:
		return Turn{}, ErrBusy
	case c.session == nil:
		return Turn{}, ErrNoSession
	}

	payload := BuildPayload(c.files, text)
	user, bot := c.timeline.AppendTurn(text)

	sendCtx, cancel := context.WithCancelCause(ctx)
	c.busy = true
	c.pending = bot.ID
	c.cancel = cancel

	log.Printf("CHAT_SEND | bot_id=%d generation=%d files=%d bytes=%d",
		bot.ID, c.generation, c.files.Len(), len(payload))

	return Turn{
		UserID:     user.ID,
		BotID:      bot.ID,
		Generation: c.generation,
		Payload:    payload,
		session:    c.session,
		ctx:        sendCtx,
	}, nil
}

// isCurrent reports whether turn is the in-flight turn of this generation.
func (c *Controller) isCurrent(turn Turn) bool {
	return c.busy &&
		turn.Generation == c.generation &&
		turn.BotID == c.pending &&
		c.timeline.Has(turn.BotID)
}

// Apply overwrites the pending BOT message with the accumulated text.
func (c *Controller) Apply(turn Turn, text string) bool {
	if !c.isCurrent(turn) {
		return false
	}
	return c.timeline.SetText(turn.BotID, text)
}

// Complete ends the turn successfully; the last applied text stays.
func (c *Controller) Complete(turn Turn) bool {
	if !c.isCurrent(turn) {
		return false
	}
	c.finish()
	log.Printf("CHAT_DONE | bot_id=%d", turn.BotID)
	return true
}

// Fail replaces the BOT message with an error. A rejected key clears the
// credential and reports OutcomeNeedCredential.
func (c *Controller) Fail(turn Turn, err error) Outcome {
	if !c.isCurrent(turn) {
		return OutcomeStale
	}
	c.timeline.SetError(turn.BotID, ErrorText(err))
	c.finish()
	log.Printf("CHAT_FAILED | bot_id=%d error=%v", turn.BotID, err)

	if provider.IsInvalidAPIKey(err) {
		if clearErr := c.ClearCredential(); clearErr != nil {
			log.Printf("CHAT_FAILED | clear_key_error=%v", clearErr)
		}
		return OutcomeNeedCredential
	}
	return OutcomeFailed
}

// Handle applies an event produced by Consume.
func (c *Controller) Handle(ev Event) Outcome {
	switch ev.Kind {
	case EventFragment:
		if c.Apply(ev.Turn, ev.Text) {
			return OutcomeUpdated
		}
	case EventDone:
		if c.Apply(ev.Turn, ev.Text) && c.Complete(ev.Turn) {
			return OutcomeCompleted
		}
	case EventFailed:
		return c.Fail(ev.Turn, ev.Err)
	}
	return OutcomeStale
}

// SendMessage sends text and blocks until the reply is complete. observe,
// if non-nil, is called with the BOT message after every change.
func (c *Controller) SendMessage(ctx context.Context, text string, observe func(model.Message)) (Outcome, error) {
	turn, err := c.Begin(ctx, text)
	if err != nil {
		return OutcomeStale, err
	}

	var (
		outcome Outcome
		sendErr error
	)
	c.Consume(turn, func(ev Event) {
		outcome = c.Handle(ev)
		if ev.Kind == EventFailed {
			sendErr = ev.Err
		}
		if observe != nil {
			if msg, ok := c.timeline.Get(turn.BotID); ok {
				observe(msg)
			}
		}
	})
	return outcome, sendErr
}

// Cancel aborts the in-flight send, if any. The turn then fails with
// provider.ErrCancelled.
func (c *Controller) Cancel() bool {
	if !c.busy || c.cancel == nil {
		return false
	}
	c.cancel(provider.ErrCancelled)
	return true
}

// Close aborts any in-flight send. Used on quit.
func (c *Controller) Close() {
	c.abandon()
}

func (c *Controller) finish() {
	if c.cancel != nil {
		c.cancel(nil)
		c.cancel = nil
	}
	c.busy = false
	c.pending = 0
}

// abandon drops the in-flight turn and starts a new generation.
func (c *Controller) abandon() {
	if c.cancel != nil {
		c.cancel(provider.ErrCancelled)
		c.cancel = nil
	}
	c.busy = false
	c.pending = 0
	c.generation++
}

// =============================================================================
// RESET AND CREDENTIALS
// =============================================================================

// ResetConversation discards the messages and attached files and starts a
// fresh session. An empty conversation is left alone. A non-empty one
// requires confirmed, otherwise ErrConfirmationRequired is returned. A key
// that cannot start the new session is removed.
func (c *Controller) ResetConversation(confirmed bool) (ResetResult, error) {
	if c.timeline.IsEmpty() {
		return ResetNoop, nil
	}
	if !confirmed {
		return ResetNoop, ErrConfirmationRequired
	}

	c.abandon()
	c.timeline.Clear()
	c.files.Clear()
	c.session = nil
	log.Printf("CHAT_RESET | generation=%d", c.generation)

	key, ok := c.prefs.APIKey()
	if !ok {
		return ResetDone, nil
	}
	session, err := c.provider.NewSession(key, c.system)
	if err != nil {
		log.Printf("CHAT_RESET_SESSION_FAILED | error=%v", err)
		if rmErr := c.prefs.ClearAPIKey(); rmErr != nil {
			log.Printf("CHAT_RESET_SESSION_FAILED | clear_key_error=%v", rmErr)
		}
		return ResetDone, err
	}
	c.session = session
	return ResetDone, nil
}

// SetCredential stores key and starts a session with it. The previous
// conversation ends because its history lived in the old session. If the
// key cannot start a session it is removed again and the error returned.
func (c *Controller) SetCredential(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrCredentialRequired
	}

	c.abandon()
	c.timeline.Clear()
	c.session = nil

	if err := c.prefs.SetAPIKey(key); err != nil {
		return fmt.Errorf("failed to store API key: %w", err)
	}
	session, err := c.provider.NewSession(key, c.system)
	if err != nil {
		log.Printf("CHAT_KEY_REJECTED | error=%v", err)
		if rmErr := c.prefs.ClearAPIKey(); rmErr != nil {
			log.Printf("CHAT_KEY_REJECTED | clear_key_error=%v", rmErr)
		}
		return err
	}
	c.session = session
	log.Printf("CHAT_KEY_SET | generation=%d", c.generation)
	return nil
}

// ClearCredential forgets the key and, with it, the session, the messages
// and the attached files.
func (c *Controller) ClearCredential() error {
	c.abandon()
	c.session = nil
	c.timeline.Clear()
	c.files.Clear()
	log.Printf("CHAT_KEY_CLEARED | generation=%d", c.generation)
	return c.prefs.ClearAPIKey()
}
