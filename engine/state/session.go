// Package state defines the per-conversation dialogue scratch state and the
// store it survives in between message-handling invocations.
package state

import (
	"errors"
	"fmt"
	"time"
)

// Flow is the high-level scheduling operation in progress.
type Flow string

const (
	FlowNone       Flow = ""
	FlowSchedule   Flow = "schedule"
	FlowReschedule Flow = "reschedule"
	FlowCancel     Flow = "cancel"
)

// Step is the fine-grained position inside a flow.
type Step string

const (
	StepCollecting     Step = "collecting"
	StepAwaitConfirm   Step = "awaiting_confirmation"
	StepCancelAwait    Step = "cancel_await"
	StepReschedAwait   Step = "resched_await"
	StepReschedPickNew Step = "resched_pick_new"
)

// Draft is the accumulating, partially-filled booking intent.
// IdempotencyKey is assigned once when the draft becomes confirmable so a
// user-driven retry after a gateway outage reuses the same key.
type Draft struct {
	PersonName     string `json:"person_name,omitempty"`
	ServiceName    string `json:"service_name,omitempty"`
	Date           string `json:"date,omitempty"` // YYYY-MM-DD, tenant-local
	Time           string `json:"time,omitempty"` // HH:MM, tenant-local
	DurationMin    int    `json:"duration_min,omitempty"`
	ContactID      string `json:"contact_id,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// Candidate is an external calendar event tentatively matched during a
// cancel/reschedule lookup, held only until the user disambiguates.
type Candidate struct {
	ExternalEventID string `json:"external_event_id"`
	CalendarID      string `json:"calendar_id"`
	Summary         string `json:"summary"`
	StartISO        string `json:"start_iso"`
	EndISO          string `json:"end_iso"`
}

// DialogueState is the in-progress flow for one conversation. It is
// ephemeral scratch data: the only durable side effect of a completed flow
// is the external calendar event.
type DialogueState struct {
	ConversationID string `json:"conversation_id"`
	OrgID          string `json:"org_id"`

	Flow Flow `json:"flow"`
	Step Step `json:"step"`

	Draft      Draft       `json:"draft"`
	Candidates []Candidate `json:"candidates,omitempty"`

	// Target is the event being rescheduled once the lookup settled on one.
	Target *Candidate `json:"target,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

var (
	ErrStateNotFound       = errors.New("dialogue state not found")
	ErrNilState            = errors.New("dialogue state is nil")
	ErrInvalidConversation = errors.New("conversation id is empty")
)

// New starts a fresh flow for a conversation.
func New(conversationID, orgID string, flow Flow, step Step, now time.Time) *DialogueState {
	return &DialogueState{
		ConversationID: conversationID,
		OrgID:          orgID,
		Flow:           flow,
		Step:           step,
		UpdatedAt:      now.UTC(),
	}
}

// Touch refreshes the write timestamp.
func (s *DialogueState) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// Validate checks flow/step coherence before the state is persisted.
func (s *DialogueState) Validate() error {
	if s == nil {
		return ErrNilState
	}
	if s.ConversationID == "" {
		return ErrInvalidConversation
	}
	steps, ok := stepsByFlow[s.Flow]
	if !ok {
		return fmt.Errorf("unknown flow %q", s.Flow)
	}
	if !steps[s.Step] {
		return fmt.Errorf("step %q does not belong to flow %q", s.Step, s.Flow)
	}
	if s.Flow == FlowReschedule && s.Step == StepReschedPickNew && s.Target == nil {
		return errors.New("resched_pick_new requires a target event")
	}
	return nil
}

var stepsByFlow = map[Flow]map[Step]bool{
	FlowSchedule:   {StepCollecting: true, StepAwaitConfirm: true},
	FlowCancel:     {StepCancelAwait: true},
	FlowReschedule: {StepReschedAwait: true, StepReschedPickNew: true},
}
