package flows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zapagenda/engine/engine/catalog"
	"github.com/zapagenda/engine/engine/contract"
	"github.com/zapagenda/engine/engine/parse"
	"github.com/zapagenda/engine/engine/state"
)

// collectSchedule merges freshly parsed signals into the draft and either
// asks for what is still missing or moves to the confirmation step.
func collectSchedule(ctx context.Context, d Deps, st *state.DialogueState, sig parse.Signals) (Turn, error) {
	draft := &st.Draft

	if sig.Person != "" {
		pro := d.Catalog.ResolveProfessional(sig.Person)
		if pro == nil {
			st.Touch(d.Now)
			return Turn{
				Handled: true,
				Replies: reply(msgProfessionalUnknown(sig.Person)),
				Persist: PersistSave,
				State:   st,
			}, nil
		}
		draft.PersonName = pro.Name
	}
	if sig.Service != "" {
		if svc := d.Catalog.ResolveService(sig.Service); svc != nil {
			draft.ServiceName = svc.Name
		} else {
			// Unresolved hints still fill the slot; duration falls back to
			// the professional's default.
			draft.ServiceName = sig.Service
		}
	}
	if sig.Date != "" {
		draft.Date = sig.Date
	}
	if sig.Time != "" {
		draft.Time = sig.Time
	}

	if missing := missingDraftFields(draft); len(missing) > 0 {
		st.Touch(d.Now)
		return Turn{
			Handled: true,
			Replies: reply(msgMissingFields(missing)),
			Persist: PersistSave,
			State:   st,
		}, nil
	}

	pro := d.Catalog.ResolveProfessional(draft.PersonName)
	svc := d.Catalog.ResolveService(draft.ServiceName)
	draft.DurationMin = catalog.DurationFor(svc, pro)
	if draft.DurationMin <= 0 {
		draft.DurationMin = 30
	}
	if draft.IdempotencyKey == "" && d.NewIdempotencyKey != nil {
		draft.IdempotencyKey = d.NewIdempotencyKey()
	}

	st.Step = state.StepAwaitConfirm
	st.Touch(d.Now)
	return Turn{
		Handled: true,
		Replies: reply(msgConfirm(draft.ServiceName, draft.PersonName, draft.Date, draft.Time)),
		Persist: PersistSave,
		State:   st,
	}, nil
}

// confirmSchedule reacts to the yes/no answer on a complete draft.
func confirmSchedule(ctx context.Context, d Deps, st *state.DialogueState, sig parse.Signals) (Turn, error) {
	draft := &st.Draft

	switch {
	case sig.Confirm:
		pro := d.Catalog.ResolveProfessional(draft.PersonName)
		if pro == nil || len(pro.CalendarIDs) == 0 {
			draft.PersonName = ""
			st.Step = state.StepCollecting
			st.Touch(d.Now)
			return Turn{
				Handled: true,
				Replies: reply(msgMissingFields([]string{"profissional"})),
				Persist: PersistSave,
				State:   st,
			}, nil
		}

		start, end, err := slotWindow(draft.Date, draft.Time, draft.DurationMin, d.Location)
		if err != nil {
			return Turn{}, fmt.Errorf("%w: draft window: %v", contract.ErrValidation, err)
		}

		gctx, cancel := d.gatewayContext(ctx)
		defer cancel()
		_, err = d.Gateway.CreateEvent(gctx, pro.CalendarIDs[0], start, end,
			eventSummary(draft.ServiceName, d.Contact.Name, draft.PersonName), draft.IdempotencyKey)

		switch {
		case err == nil:
			return Turn{Handled: true, Replies: reply(msgBooked()), Persist: PersistClear}, nil
		case errors.Is(err, contract.ErrSlotConflict):
			// Keep person and service; only the window is renegotiated.
			draft.Date = ""
			draft.Time = ""
			draft.IdempotencyKey = ""
			st.Step = state.StepCollecting
			st.Touch(d.Now)
			return Turn{
				Handled: true,
				Replies: reply(msgSlotConflict()),
				Persist: PersistSave,
				State:   st,
			}, nil
		default:
			log.Warn().Err(err).Str("org_id", st.OrgID).Str("conversation_id", st.ConversationID).
				Msg("create event failed, keeping state for retry")
			return Turn{Handled: true, Replies: reply(msgGatewayUnavailable()), Persist: PersistNone}, nil
		}

	case sig.Deny:
		return Turn{Handled: true, Replies: reply(msgDenied()), Persist: PersistClear}, nil

	default:
		st.Touch(d.Now)
		return Turn{
			Handled: true,
			Replies: reply(msgConfirm(draft.ServiceName, draft.PersonName, draft.Date, draft.Time)),
			Persist: PersistSave,
			State:   st,
		}, nil
	}
}

// missingDraftFields lists the still-unfilled booking fields, in prompt
// order. The service is only asked for once professional, date and time are
// known, since it can usually be inferred or defaulted from the
// professional.
func missingDraftFields(draft *state.Draft) []string {
	var missing []string
	if draft.PersonName == "" {
		missing = append(missing, "profissional")
	}
	if draft.Date == "" {
		missing = append(missing, "data")
	}
	if draft.Time == "" {
		missing = append(missing, "hora")
	}
	if len(missing) == 0 && draft.ServiceName == "" {
		return []string{"serviço"}
	}
	return missing
}

// slotWindow converts a tenant-local date+clock pair into a concrete window.
func slotWindow(date, clock string, durationMin int, loc *time.Location) (time.Time, time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	at, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse time %q: %w", clock, err)
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), at.Hour(), at.Minute(), 0, 0, loc)
	return start, start.Add(time.Duration(durationMin) * time.Minute), nil
}

func eventSummary(service, contactName, professional string) string {
	if contactName != "" {
		return fmt.Sprintf("%s - %s (com %s)", service, contactName, professional)
	}
	return fmt.Sprintf("%s (com %s)", service, professional)
}
