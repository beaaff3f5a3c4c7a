package flows

import (
	"context"
	"fmt"

	"github.com/zapagenda/engine/engine/contract"
	"github.com/zapagenda/engine/engine/parse"
	"github.com/zapagenda/engine/engine/state"
)

// Dispatch routes one utterance to the handler for the current {flow, step}.
// st is nil when the conversation has no active flow. At most one flow is
// active per conversation: an action verb for a different flow discards the
// current state and starts over from the same utterance.
func Dispatch(ctx context.Context, d Deps, st *state.DialogueState, sig parse.Signals, conversationID string) (Turn, error) {
	if st == nil || st.Flow == state.FlowNone {
		if sig.Action == parse.ActionNone {
			return Turn{Handled: false, Persist: PersistNone}, nil
		}
		st = startState(d, conversationID, sig.Action)
	} else if sig.Action != parse.ActionNone && sig.Action != actionForFlow(st.Flow) {
		st = startState(d, conversationID, sig.Action)
	}

	switch st.Flow {
	case state.FlowSchedule:
		switch st.Step {
		case state.StepCollecting:
			return collectSchedule(ctx, d, st, sig)
		case state.StepAwaitConfirm:
			return confirmSchedule(ctx, d, st, sig)
		}
	case state.FlowCancel:
		if st.Step == state.StepCancelAwait {
			return cancelAwait(ctx, d, st, sig)
		}
	case state.FlowReschedule:
		switch st.Step {
		case state.StepReschedAwait:
			return reschedAwait(ctx, d, st, sig)
		case state.StepReschedPickNew:
			return reschedPickNew(ctx, d, st, sig)
		}
	}

	return Turn{}, fmt.Errorf("%w: no handler for flow=%q step=%q", contract.ErrValidation, st.Flow, st.Step)
}

func startState(d Deps, conversationID string, action parse.Action) *state.DialogueState {
	var flow state.Flow
	var step state.Step
	switch action {
	case parse.ActionReschedule:
		flow, step = state.FlowReschedule, state.StepReschedAwait
	case parse.ActionCancel:
		flow, step = state.FlowCancel, state.StepCancelAwait
	default:
		flow, step = state.FlowSchedule, state.StepCollecting
	}
	st := state.New(conversationID, d.OrgID, flow, step, d.Now)
	st.Draft.ContactID = d.Contact.ID
	return st
}

func actionForFlow(flow state.Flow) parse.Action {
	switch flow {
	case state.FlowReschedule:
		return parse.ActionReschedule
	case state.FlowCancel:
		return parse.ActionCancel
	case state.FlowSchedule:
		return parse.ActionSchedule
	default:
		return parse.ActionNone
	}
}
