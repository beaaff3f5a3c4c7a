package flows

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/zapagenda/engine/engine/parse"
	"github.com/zapagenda/engine/engine/state"
)

// cancelAwait finds the booking to cancel. With candidates pending from a
// previous turn, the selection is re-attempted against them before any
// fresh day search; a follow-up that still resolves nothing is terminal.
func cancelAwait(ctx context.Context, d Deps, st *state.DialogueState, sig parse.Signals) (Turn, error) {
	if len(st.Candidates) > 0 {
		if picked := selectCandidate(st.Candidates, sig, d.Location); picked != nil {
			return deleteCandidate(ctx, d, st, picked)
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
			Replies: reply(msgAskCancelDay()),
			Persist: PersistSave,
			State:   st,
		}, nil
	}

	candidates, err := lookupDay(ctx, d, sig.Date, sig.Time)
	if err != nil {
		log.Warn().Err(err).Str("org_id", st.OrgID).Str("conversation_id", st.ConversationID).
			Msg("cancel lookup failed, keeping state for retry")
		return Turn{Handled: true, Replies: reply(msgGatewayUnavailable()), Persist: PersistNone}, nil
	}

	switch len(candidates) {
	case 0:
		return Turn{Handled: true, Replies: reply(msgNothingFound()), Persist: PersistClear}, nil
	case 1:
		return deleteCandidate(ctx, d, st, &candidates[0])
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

func deleteCandidate(ctx context.Context, d Deps, st *state.DialogueState, c *state.Candidate) (Turn, error) {
	gctx, cancel := d.gatewayContext(ctx)
	defer cancel()
	if err := d.Gateway.DeleteEvent(gctx, c.ExternalEventID); err != nil {
		log.Warn().Err(err).Str("org_id", st.OrgID).Str("event_id", c.ExternalEventID).
			Msg("delete event failed, keeping state for retry")
		return Turn{Handled: true, Replies: reply(msgGatewayUnavailable()), Persist: PersistNone}, nil
	}
	return Turn{Handled: true, Replies: reply(msgCanceled()), Persist: PersistClear}, nil
}
