package flows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zapagenda/engine/engine/contract"
	"github.com/zapagenda/engine/engine/parse"
	"github.com/zapagenda/engine/engine/state"
)

// reschedAwait locates the booking to move, with the same lookup and
// disambiguation policy as cancel. A single match becomes the target event
// and the flow moves on to picking the new slot.
func reschedAwait(ctx context.Context, d Deps, st *state.DialogueState, sig parse.Signals) (Turn, error) {
	if len(st.Candidates) > 0 {
		if picked := selectCandidate(st.Candidates, sig, d.Location); picked != nil {
			return targetPicked(d, st, picked), nil
		}
		if sig.Date == "" {
			return Turn{Handled: true, Replies: reply(msgDisambiguationExhausted()), Persist: PersistClear}, nil
		}
		st.Candidates = nil
	}

	if sig.Date == "" {
		st.Touch(d.Now)
		return Turn{
			Handled: true,
			Replies: reply(msgAskReschedDay()),
			Persist: PersistSave,
			State:   st,
		}, nil
	}

	candidates, err := lookupDay(ctx, d, sig.Date, sig.Time)
	if err != nil {
		log.Warn().Err(err).Str("org_id", st.OrgID).Str("conversation_id", st.ConversationID).
			Msg("reschedule lookup failed, keeping state for retry")
		return Turn{Handled: true, Replies: reply(msgGatewayUnavailable()), Persist: PersistNone}, nil
	}

	switch len(candidates) {
	case 0:
		return Turn{Handled: true, Replies: reply(msgNothingFound()), Persist: PersistClear}, nil
	case 1:
		return targetPicked(d, st, &candidates[0]), nil
	default:
		st.Candidates = candidates
		st.Touch(d.Now)
		return Turn{
			Handled: true,
			Replies: reply(msgCandidates(candidates, d.Location)),
			Persist: PersistSave,
			State:   st,
		}, nil
	}
}

func targetPicked(d Deps, st *state.DialogueState, c *state.Candidate) Turn {
	target := *c
	st.Target = &target
	st.Candidates = nil
	st.Step = state.StepReschedPickNew
	st.Draft.Date = ""
	st.Draft.Time = ""
	st.Touch(d.Now)
	return Turn{
		Handled: true,
		Replies: reply(msgAskNewSlot()),
		Persist: PersistSave,
		State:   st,
	}
}

// reschedPickNew collects the new date/time and moves the target event,
// preserving its original duration.
func reschedPickNew(ctx context.Context, d Deps, st *state.DialogueState, sig parse.Signals) (Turn, error) {
	if st.Target == nil {
		return Turn{}, fmt.Errorf("%w: resched_pick_new without target", contract.ErrValidation)
	}

	if sig.Date != "" {
		st.Draft.Date = sig.Date
	}
	if sig.Time != "" {
		st.Draft.Time = sig.Time
	}

	var missing []string
	if st.Draft.Date == "" {
		missing = append(missing, "a nova data")
	}
	if st.Draft.Time == "" {
		missing = append(missing, "o novo horário")
	}
	if len(missing) > 0 {
		st.Touch(d.Now)
		return Turn{
			Handled: true,
			Replies: reply(msgNewSlotMissing(missing)),
			Persist: PersistSave,
			State:   st,
		}, nil
	}

	duration := candidateDuration(st.Target)
	start, end, err := slotWindow(st.Draft.Date, st.Draft.Time, int(duration/time.Minute), d.Location)
	if err != nil {
		return Turn{}, fmt.Errorf("%w: new slot window: %v", contract.ErrValidation, err)
	}

	gctx, cancel := d.gatewayContext(ctx)
	defer cancel()
	_, err = d.Gateway.UpdateEvent(gctx, st.Target.ExternalEventID, start, end)

	switch {
	case err == nil:
		return Turn{Handled: true, Replies: reply(msgRescheduled()), Persist: PersistClear}, nil
	case errors.Is(err, contract.ErrSlotConflict):
		st.Draft.Time = ""
		st.Touch(d.Now)
		return Turn{
			Handled: true,
			Replies: reply(msgSlotConflict()),
			Persist: PersistSave,
			State:   st,
		}, nil
	default:
		log.Warn().Err(err).Str("org_id", st.OrgID).Str("event_id", st.Target.ExternalEventID).
			Msg("update event failed, keeping state for retry")
		return Turn{Handled: true, Replies: reply(msgGatewayUnavailable()), Persist: PersistNone}, nil
	}
}
