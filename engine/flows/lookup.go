package flows

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/zapagenda/engine/engine/parse"
	"github.com/zapagenda/engine/engine/state"
)

// lookupDay lists the tenant's events for a local calendar day and narrows
// them to likely matches: the contact's own bookings (by summary) and, when
// a clock hint came with the utterance, that start time.
func lookupDay(ctx context.Context, d Deps, date, clockHint string) ([]state.Candidate, error) {
	day, err := time.ParseInLocation("2006-01-02", date, d.Location)
	if err != nil {
		return nil, err
	}
	from := day
	to := day.AddDate(0, 0, 1)

	gctx, cancel := d.gatewayContext(ctx)
	defer cancel()
	events, err := d.Gateway.ListEvents(gctx, tenantCalendarIDs(d), from, to)
	if err != nil {
		return nil, err
	}

	contactNeedle := strings.ToLower(strings.TrimSpace(d.Contact.Name))

	candidates := make([]state.Candidate, 0, len(events))
	for _, ev := range events {
		if contactNeedle != "" && !strings.Contains(strings.ToLower(ev.Summary), contactNeedle) {
			continue
		}
		if clockHint != "" && ev.Start.In(d.Location).Format("15:04") != clockHint {
			continue
		}
		candidates = append(candidates, state.Candidate{
			ExternalEventID: ev.ID,
			CalendarID:      ev.CalendarID,
			Summary:         ev.Summary,
			StartISO:        ev.Start.UTC().Format(time.RFC3339),
			EndISO:          ev.End.UTC().Format(time.RFC3339),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].StartISO < candidates[j].StartISO
	})
	return candidates, nil
}

// selectCandidate re-attempts disambiguation against a previously shown
// list: a 1-based ordinal pick first, then a repeated clock time. When
// several candidates share the matched start time, the first in list order
// wins.
func selectCandidate(candidates []state.Candidate, sig parse.Signals, loc *time.Location) *state.Candidate {
	if sig.Ordinal >= 1 && sig.Ordinal <= len(candidates) {
		return &candidates[sig.Ordinal-1]
	}
	if sig.Time != "" {
		for i := range candidates {
			start, err := time.Parse(time.RFC3339, candidates[i].StartISO)
			if err != nil {
				continue
			}
			if start.In(loc).Format("15:04") == sig.Time {
				return &candidates[i]
			}
		}
	}
	return nil
}

func tenantCalendarIDs(d Deps) []string {
	seen := make(map[string]bool)
	var ids []string
	if d.Catalog == nil {
		return ids
	}
	for _, pro := range d.Catalog.Professionals {
		for _, id := range pro.CalendarIDs {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// candidateDuration recovers the original event length, defaulting to 30
// minutes when the stored window is unparsable.
func candidateDuration(c *state.Candidate) time.Duration {
	start, errStart := time.Parse(time.RFC3339, c.StartISO)
	end, errEnd := time.Parse(time.RFC3339, c.EndISO)
	if errStart != nil || errEnd != nil || !end.After(start) {
		return 30 * time.Minute
	}
	return end.Sub(start)
}
