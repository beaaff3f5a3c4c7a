// Package flows implements the scheduling state machine: one handler per
// {flow, step} pair, dispatched exhaustively. Handlers never write to the
// state store themselves; they report how the turn's state must be persisted
// and the orchestrator performs the single write at the end.
package flows

import (
	"context"
	"time"

	"github.com/zapagenda/engine/engine/catalog"
	"github.com/zapagenda/engine/engine/contract"
	"github.com/zapagenda/engine/engine/state"
)

// Persist tells the orchestrator what to do with the dialogue state after
// the turn.
type Persist int

const (
	// PersistNone leaves the stored state untouched (retryable turn).
	PersistNone Persist = iota
	// PersistSave writes the advanced state.
	PersistSave
	// PersistClear removes the state (terminal branch).
	PersistClear
)

// Deps carries the per-turn collaborators and turn-scoped inputs into the
// flow handlers. Everything here is read-only for the handlers.
type Deps struct {
	Gateway contract.CalendarGateway
	Catalog *catalog.Catalog

	// Location is the tenant time zone; all draft date arithmetic happens
	// in it. Gateway times are UTC.
	Location *time.Location

	// CallTimeout bounds each gateway call. A deadline exceeded is
	// indistinguishable from gateway unavailability.
	CallTimeout time.Duration

	NewIdempotencyKey func() string

	Now     time.Time
	OrgID   string
	Contact contract.Contact
}

// Turn is the outcome of handling one utterance. State carries the advanced
// dialogue state when Persist is PersistSave; it is ignored otherwise.
type Turn struct {
	Handled bool
	Replies []contract.ReplyMessage
	Persist Persist
	State   *state.DialogueState
}

func (d Deps) gatewayContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := d.CallTimeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

func reply(texts ...string) []contract.ReplyMessage {
	msgs := make([]contract.ReplyMessage, 0, len(texts))
	for _, t := range texts {
		msgs = append(msgs, contract.ReplyMessage{Text: t})
	}
	return msgs
}
