// Package enginenode holds the turn pipeline nodes wired into the
// scheduler's graph. Each node advances the shared GraphState.
package enginenode

import (
	"errors"
	"strings"
	"time"

	"github.com/zapagenda/engine/engine/catalog"
	"github.com/zapagenda/engine/engine/contract"
	"github.com/zapagenda/engine/engine/flows"
	"github.com/zapagenda/engine/engine/parse"
	"github.com/zapagenda/engine/engine/state"
)

var (
	ErrInvalidMessage      = errors.New("message text is empty")
	ErrInvalidConversation = errors.New("conversation id is empty")
	ErrInvalidOrg          = errors.New("org id is empty")
)

type GraphInput struct {
	Message contract.IncomingMessage
}

type GraphOutput struct {
	Result contract.Result
}

// GraphState is the per-turn scratch carried between nodes. The dialogue
// state is read once at the start and written at most once at the end.
type GraphState struct {
	Message contract.IncomingMessage
	Now     time.Time

	Session *state.DialogueState // nil when no flow is active
	Catalog *catalog.Catalog
	Signals parse.Signals

	Turn flows.Turn
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	msg := in.Message
	msg.OrgID = strings.TrimSpace(msg.OrgID)
	msg.ConversationID = strings.TrimSpace(msg.ConversationID)
	msg.Text = strings.TrimSpace(msg.Text)

	if msg.OrgID == "" {
		return nil, ErrInvalidOrg
	}
	if msg.ConversationID == "" {
		return nil, ErrInvalidConversation
	}
	if msg.Text == "" {
		return nil, ErrInvalidMessage
	}

	return &GraphState{
		Message: msg,
		Now:     nowFn().UTC(),
	}, nil
}
