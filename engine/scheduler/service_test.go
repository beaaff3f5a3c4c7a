package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapagenda/engine/engine/contract"
	"github.com/zapagenda/engine/engine/state"
)

type createCall struct {
	calendarID     string
	start, end     time.Time
	summary        string
	idempotencyKey string
}

type updateCall struct {
	eventID    string
	start, end time.Time
}

type fakeGateway struct {
	events []contract.Event

	listErr   error
	createErr error
	updateErr error
	deleteErr error

	created []createCall
	updated []updateCall
	deleted []string
}

func (f *fakeGateway) ListEvents(ctx context.Context, calendarIDs []string, from, to time.Time) ([]contract.Event, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []contract.Event
	for _, ev := range f.events {
		if !ev.Start.Before(from) && ev.Start.Before(to) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeGateway) CreateEvent(ctx context.Context, calendarID string, start, end time.Time, summary, idempotencyKey string) (contract.Event, error) {
	f.created = append(f.created, createCall{calendarID, start, end, summary, idempotencyKey})
	if f.createErr != nil {
		return contract.Event{}, f.createErr
	}
	return contract.Event{ID: "ev-new", CalendarID: calendarID, Summary: summary, Start: start.UTC(), End: end.UTC()}, nil
}

func (f *fakeGateway) UpdateEvent(ctx context.Context, eventID string, start, end time.Time) (contract.Event, error) {
	f.updated = append(f.updated, updateCall{eventID, start, end})
	if f.updateErr != nil {
		return contract.Event{}, f.updateErr
	}
	return contract.Event{ID: eventID, Start: start.UTC(), End: end.UTC()}, nil
}

func (f *fakeGateway) DeleteEvent(ctx context.Context, eventID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, eventID)
	return nil
}

type fakeCatalogSource struct {
	data    *contract.CatalogData
	loadErr error
}

func (f *fakeCatalogSource) LoadCatalog(ctx context.Context, orgID string) (*contract.CatalogData, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.data, nil
}

func testCatalogData() *contract.CatalogData {
	return &contract.CatalogData{
		Professionals: []contract.ProfessionalRecord{
			{
				Name:        "Rodrigo Almeida",
				Aliases:     []string{"Rodrigo"},
				Skills:      []string{"consulta"},
				SlotMin:     30,
				CalendarIDs: []string{"cal-rodrigo"},
			},
		},
		Services: []contract.ServiceRecord{
			{Name: "Consulta", DurationMin: 40, DefaultSkill: "consulta"},
		},
	}
}

// testNow is a Monday well before the dates used in the utterances.
var testNow = time.Date(2025, 9, 1, 13, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, store state.Store, gateway *fakeGateway) *Engine {
	t.Helper()

	e, err := New(store, gateway, &fakeCatalogSource{data: testCatalogData()}, Config{})
	require.NoError(t, err)
	e.now = func() time.Time { return testNow }
	e.newKey = func() string { return "idem-key-1" }
	return e
}

func handle(t *testing.T, e *Engine, text string) contract.Result {
	t.Helper()

	res, err := e.HandleIncoming(context.Background(), contract.IncomingMessage{
		OrgID:          "org-1",
		ConversationID: "conv-1",
		Text:           text,
		Contact:        contract.Contact{ID: "contact-1", Name: "Maria"},
	})
	require.NoError(t, err)
	return res
}

func loadState(t *testing.T, store state.Store) *state.DialogueState {
	t.Helper()

	st, err := store.Load(context.Background(), "conv-1")
	require.NoError(t, err)
	return st
}

func requireCleared(t *testing.T, store state.Store) {
	t.Helper()

	_, err := store.Load(context.Background(), "conv-1")
	require.ErrorIs(t, err, state.ErrStateNotFound)
}

func TestHandleIncomingInvalidInput(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, state.NewMemoryStore(), &fakeGateway{})

	_, err := e.HandleIncoming(context.Background(), contract.IncomingMessage{OrgID: "org-1", ConversationID: "conv-1"})
	require.ErrorIs(t, err, ErrInvalidMessage)

	_, err = e.HandleIncoming(context.Background(), contract.IncomingMessage{OrgID: "org-1", Text: "oi"})
	require.ErrorIs(t, err, ErrInvalidConversation)

	_, err = e.HandleIncoming(context.Background(), contract.IncomingMessage{ConversationID: "conv-1", Text: "oi"})
	require.ErrorIs(t, err, ErrInvalidOrg)
}

func TestSmallTalkIsNotHandled(t *testing.T) {
	t.Parallel()

	store := state.NewMemoryStore()
	e := newTestEngine(t, store, &fakeGateway{})

	res := handle(t, e, "bom dia, tudo bem?")
	assert.False(t, res.Handled)
	assert.Empty(t, res.Messages)
	requireCleared(t, store)
}

func TestScheduleIntentWithNoDetailsPromptsMissingFields(t *testing.T) {
	t.Parallel()

	store := state.NewMemoryStore()
	e := newTestEngine(t, store, &fakeGateway{})

	res := handle(t, e, "Quero agendar")
	assert.True(t, res.Handled)
	require.Len(t, res.Messages, 1)
	assert.Regexp(t, `(?i)preciso de profissional e data e hora`, res.Messages[0].Text)

	st := loadState(t, store)
	assert.Equal(t, state.FlowSchedule, st.Flow)
	assert.Equal(t, state.StepCollecting, st.Step)
}

func TestScheduleMissingOnlyService(t *testing.T) {
	t.Parallel()

	store := state.NewMemoryStore()
	e := newTestEngine(t, store, &fakeGateway{})

	res := handle(t, e, "Quero agendar com Rodrigo dia 23/09/2025 às 14h")
	assert.True(t, res.Handled)
	require.Len(t, res.Messages, 1)
	assert.Regexp(t, `(?i)preciso de serviço`, res.Messages[0].Text)
	assert.NotContains(t, res.Messages[0].Text, "profissional")

	st := loadState(t, store)
	assert.Equal(t, "Rodrigo Almeida", st.Draft.PersonName)
	assert.Equal(t, "2025-09-23", st.Draft.Date)
	assert.Equal(t, "14:00", st.Draft.Time)
	assert.Empty(t, st.Draft.ServiceName)
}

func TestFullUtteranceReachesConfirmationInOneTurn(t *testing.T) {
	t.Parallel()

	store := state.NewMemoryStore()
	e := newTestEngine(t, store, &fakeGateway{})

	res := handle(t, e, "Quero agendar uma consulta com Rodrigo dia 23/09/2025 às 14h")
	assert.True(t, res.Handled)
	require.Len(t, res.Messages, 1)
	assert.Regexp(t, `(?i)Posso agendar`, res.Messages[0].Text)
	assert.Contains(t, res.Messages[0].Text, "23/09/2025")
	assert.Contains(t, res.Messages[0].Text, "14:00")

	st := loadState(t, store)
	assert.Equal(t, state.StepAwaitConfirm, st.Step)
	assert.Equal(t, "Consulta", st.Draft.ServiceName)
	assert.Equal(t, 40, st.Draft.DurationMin)
	assert.Equal(t, "idem-key-1", st.Draft.IdempotencyKey)
}

func TestConfirmBooksAndClearsState(t *testing.T) {
	t.Parallel()

	store := state.NewMemoryStore()
	gateway := &fakeGateway{}
	e := newTestEngine(t, store, gateway)

	handle(t, e, "Quero agendar uma consulta com Rodrigo dia 23/09/2025 às 14h")
	res := handle(t, e, "sim")

	require.Len(t, res.Messages, 1)
	assert.Regexp(t, `(?i)agendado com sucesso`, res.Messages[0].Text)
	requireCleared(t, store)

	require.Len(t, gateway.created, 1)
	call := gateway.created[0]
	assert.Equal(t, "cal-rodrigo", call.calendarID)
	assert.Equal(t, "idem-key-1", call.idempotencyKey)
	assert.Contains(t, call.summary, "Maria")
	assert.Contains(t, call.summary, "Rodrigo Almeida")
	// 14:00 America/Sao_Paulo == 17:00 UTC.
	assert.Equal(t, time.Date(2025, 9, 23, 17, 0, 0, 0, time.UTC), call.start.UTC())
	assert.Equal(t, time.Date(2025, 9, 23, 17, 40, 0, 0, time.UTC), call.end.UTC())
}

func TestDenyAtConfirmationAbandons(t *testing.T) {
	t.Parallel()

	store := state.NewMemoryStore()
	e := newTestEngine(t, store, &fakeGateway{})

	handle(t, e, "Quero agendar uma consulta com Rodrigo dia 23/09/2025 às 14h")
	res := handle(t, e, "não, deixa pra depois")

	require.Len(t, res.Messages, 1)
	assert.Regexp(t, `(?i)sem problemas`, res.Messages[0].Text)
	requireCleared(t, store)
}

func TestAmbiguousConfirmationReplyRepeatsPrompt(t *testing.T) {
	t.Parallel()

	store := state.NewMemoryStore()
	e := newTestEngine(t, store, &fakeGateway{})

	first := handle(t, e, "Quero agendar uma consulta com Rodrigo dia 23/09/2025 às 14h")
	again := handle(t, e, "hmm talvez")

	require.Len(t, again.Messages, 1)
	assert.Equal(t, first.Messages[0].Text, again.Messages[0].Text)

	st := loadState(t, store)
	assert.Equal(t, state.StepAwaitConfirm, st.Step)
}

func TestConflictKeepsPersonAndServiceClearsWindow(t *testing.T) {
	t.Parallel()

	store := state.NewMemoryStore()
	gateway := &fakeGateway{createErr: contract.ErrSlotConflict}
	e := newTestEngine(t, store, gateway)

	handle(t, e, "Quero agendar uma consulta com Rodrigo dia 23/09/2025 às 14h")
	res := handle(t, e, "sim")

	require.Len(t, res.Messages, 1)
	assert.Regexp(t, `(?i)não está mais disponível`, res.Messages[0].Text)

	st := loadState(t, store)
	assert.Equal(t, state.StepCollecting, st.Step)
	assert.Equal(t, "Rodrigo Almeida", st.Draft.PersonName)
	assert.Equal(t, "Consulta", st.Draft.ServiceName)
	assert.Empty(t, st.Draft.Date)
	assert.Empty(t, st.Draft.Time)
}

func TestGatewayUnavailablePreservesStateForRetry(t *testing.T) {
	t.Parallel()

	store := state.NewMemoryStore()
	gateway := &fakeGateway{createErr: contract.ErrGatewayUnavailable}
	e := newTestEngine(t, store, gateway)

	handle(t, e, "Quero agendar uma consulta com Rodrigo dia 23/09/2025 às 14h")
	res := handle(t, e, "sim")

	require.Len(t, res.Messages, 1)
	assert.Regexp(t, `(?i)tentar novamente`, res.Messages[0].Text)

	// The draft survives untouched so "sim" can simply be repeated.
	st := loadState(t, store)
	assert.Equal(t, state.StepAwaitConfirm, st.Step)
	assert.Equal(t, "2025-09-23", st.Draft.Date)
	assert.Equal(t, "idem-key-1", st.Draft.IdempotencyKey)

	// Retry after recovery reuses the same idempotency key.
	gateway.createErr = nil
	res = handle(t, e, "sim")
	assert.Regexp(t, `(?i)agendado com sucesso`, res.Messages[0].Text)
	require.Len(t, gateway.created, 2)
	assert.Equal(t, gateway.created[0].idempotencyKey, gateway.created[1].idempotencyKey)
}

func TestCancelSingleMatch(t *testing.T) {
	t.Parallel()

	store := state.NewMemoryStore()
	gateway := &fakeGateway{
		events: []contract.Event{
			{
				ID:         "ev-1",
				CalendarID: "cal-rodrigo",
				Summary:    "Consulta - Maria (com Rodrigo Almeida)",
				Start:      time.Date(2025, 9, 23, 17, 0, 0, 0, time.UTC),
				End:        time.Date(2025, 9, 23, 17, 40, 0, 0, time.UTC),
			},
		},
	}
	e := newTestEngine(t, store, gateway)

	res := handle(t, e, "Quero cancelar meu horário do dia 23/09/2025")
	assert.True(t, res.Handled)
	require.Len(t, res.Messages, 1)
	assert.Regexp(t, `(?i)cancelado com sucesso`, res.Messages[0].Text)
	assert.Equal(t, []string{"ev-1"}, gateway.deleted)
	requireCleared(t, store)
}

func TestCancelNothingFound(t *testing.T) {
	t.Parallel()

	store := state.NewMemoryStore()
	e := newTestEngine(t, store, &fakeGateway{})

	res := handle(t, e, "Quero cancelar o dia 23/09/2025")
	require.Len(t, res.Messages, 1)
	assert.Regexp(t, `(?i)não encontrei nenhum agendamento`, res.Messages[0].Text)
	requireCleared(t, store)
}

func TestCancelDisambiguationByOrdinal(t *testing.T) {
	t.Parallel()

	store := state.NewMemoryStore()
	gateway := &fakeGateway{
		events: []contract.Event{
			{
				ID:         "ev-1",
				CalendarID: "cal-rodrigo",
				Summary:    "Consulta - Maria (com Rodrigo Almeida)",
				Start:      time.Date(2025, 9, 23, 17, 0, 0, 0, time.UTC),
				End:        time.Date(2025, 9, 23, 17, 40, 0, 0, time.UTC),
			},
			{
				ID:         "ev-2",
				CalendarID: "cal-rodrigo",
				Summary:    "Avaliação - Maria (com Rodrigo Almeida)",
				Start:      time.Date(2025, 9, 23, 19, 0, 0, 0, time.UTC),
				End:        time.Date(2025, 9, 23, 19, 40, 0, 0, time.UTC),
			},
		},
	}
	e := newTestEngine(t, store, gateway)

	res := handle(t, e, "Quero cancelar o dia 23/09/2025")
	require.Len(t, res.Messages, 1)
	assert.Regexp(t, `(?i)mais de um agendamento`, res.Messages[0].Text)
	assert.Contains(t, res.Messages[0].Text, "1)")
	assert.Contains(t, res.Messages[0].Text, "2)")

	st := loadState(t, store)
	require.Len(t, st.Candidates, 2)

	res = handle(t, e, "2")
	assert.Regexp(t, `(?i)cancelado com sucesso`, res.Messages[0].Text)
	assert.Equal(t, []string{"ev-2"}, gateway.deleted)
	requireCleared(t, store)
}

func TestCancelDisambiguationByRepeatedTime(t *testing.T) {
	t.Parallel()

	store := state.NewMemoryStore()
	gateway := &fakeGateway{
		events: []contract.Event{
			{
				ID:         "ev-1",
				CalendarID: "cal-rodrigo",
				Summary:    "Consulta - Maria (com Rodrigo Almeida)",
				Start:      time.Date(2025, 9, 23, 17, 0, 0, 0, time.UTC),
				End:        time.Date(2025, 9, 23, 17, 40, 0, 0, time.UTC),
			},
			{
				ID:         "ev-2",
				CalendarID: "cal-rodrigo",
				Summary:    "Avaliação - Maria (com Rodrigo Almeida)",
				Start:      time.Date(2025, 9, 23, 19, 0, 0, 0, time.UTC),
				End:        time.Date(2025, 9, 23, 19, 40, 0, 0, time.UTC),
			},
		},
	}
	e := newTestEngine(t, store, gateway)

	handle(t, e, "Quero cancelar o dia 23/09/2025")
	// 19:00 UTC is 16:00 in São Paulo.
	res := handle(t, e, "o das 16h")
	assert.Regexp(t, `(?i)cancelado com sucesso`, res.Messages[0].Text)
	assert.Equal(t, []string{"ev-2"}, gateway.deleted)
}

func TestCancelDisambiguationExhaustion(t *testing.T) {
	t.Parallel()

	store := state.NewMemoryStore()
	gateway := &fakeGateway{
		events: []contract.Event{
			{ID: "ev-1", CalendarID: "cal-rodrigo", Summary: "Consulta - Maria", Start: time.Date(2025, 9, 23, 17, 0, 0, 0, time.UTC), End: time.Date(2025, 9, 23, 17, 40, 0, 0, time.UTC)},
			{ID: "ev-2", CalendarID: "cal-rodrigo", Summary: "Avaliação - Maria", Start: time.Date(2025, 9, 23, 19, 0, 0, 0, time.UTC), End: time.Date(2025, 9, 23, 19, 40, 0, 0, time.UTC)},
		},
	}
	e := newTestEngine(t, store, gateway)

	handle(t, e, "Quero cancelar o dia 23/09/2025")
	res := handle(t, e, "aquele mesmo")

	require.Len(t, res.Messages, 1)
	assert.Regexp(t, `(?i)vamos recomeçar`, res.Messages[0].Text)
	assert.Empty(t, gateway.deleted)
	requireCleared(t, store)
}

func TestRescheduleTwoTurns(t *testing.T) {
	t.Parallel()

	store := state.NewMemoryStore()
	gateway := &fakeGateway{
		events: []contract.Event{
			{
				ID:         "ev-1",
				CalendarID: "cal-rodrigo",
				Summary:    "Consulta - Maria (com Rodrigo Almeida)",
				Start:      time.Date(2025, 9, 23, 17, 0, 0, 0, time.UTC),
				End:        time.Date(2025, 9, 23, 17, 40, 0, 0, time.UTC),
			},
		},
	}
	e := newTestEngine(t, store, gateway)

	res := handle(t, e, "Preciso remarcar minha consulta do dia 23/09/2025")
	require.Len(t, res.Messages, 1)
	assert.Regexp(t, `(?i)nova data e hora`, res.Messages[0].Text)

	st := loadState(t, store)
	assert.Equal(t, state.FlowReschedule, st.Flow)
	assert.Equal(t, state.StepReschedPickNew, st.Step)
	require.NotNil(t, st.Target)
	assert.Equal(t, "ev-1", st.Target.ExternalEventID)

	res = handle(t, e, "pode ser dia 24/09/2025 às 10h")
	require.Len(t, res.Messages, 1)
	assert.Regexp(t, `(?i)remarcado com sucesso`, res.Messages[0].Text)
	requireCleared(t, store)

	require.Len(t, gateway.updated, 1)
	moved := gateway.updated[0]
	assert.Equal(t, "ev-1", moved.eventID)
	// 10:00 São Paulo == 13:00 UTC; original 40-minute length preserved.
	assert.Equal(t, time.Date(2025, 9, 24, 13, 0, 0, 0, time.UTC), moved.start.UTC())
	assert.Equal(t, time.Date(2025, 9, 24, 13, 40, 0, 0, time.UTC), moved.end.UTC())
}

func TestRescheduleNewSlotIncomplete(t *testing.T) {
	t.Parallel()

	store := state.NewMemoryStore()
	gateway := &fakeGateway{
		events: []contract.Event{
			{ID: "ev-1", CalendarID: "cal-rodrigo", Summary: "Consulta - Maria", Start: time.Date(2025, 9, 23, 17, 0, 0, 0, time.UTC), End: time.Date(2025, 9, 23, 17, 40, 0, 0, time.UTC)},
		},
	}
	e := newTestEngine(t, store, gateway)

	handle(t, e, "Quero remarcar o dia 23/09/2025")
	res := handle(t, e, "dia 24/09/2025")

	require.Len(t, res.Messages, 1)
	assert.Regexp(t, `(?i)novo horário`, res.Messages[0].Text)
	assert.Empty(t, gateway.updated)

	st := loadState(t, store)
	assert.Equal(t, state.StepReschedPickNew, st.Step)
	assert.Equal(t, "2025-09-24", st.Draft.Date)
}

func TestRescheduleConflictAsksAnotherTime(t *testing.T) {
	t.Parallel()

	store := state.NewMemoryStore()
	gateway := &fakeGateway{
		events: []contract.Event{
			{ID: "ev-1", CalendarID: "cal-rodrigo", Summary: "Consulta - Maria", Start: time.Date(2025, 9, 23, 17, 0, 0, 0, time.UTC), End: time.Date(2025, 9, 23, 17, 40, 0, 0, time.UTC)},
		},
		updateErr: contract.ErrSlotConflict,
	}
	e := newTestEngine(t, store, gateway)

	handle(t, e, "Quero remarcar o dia 23/09/2025")
	res := handle(t, e, "dia 24/09/2025 às 10h")

	require.Len(t, res.Messages, 1)
	assert.Regexp(t, `(?i)não está mais disponível`, res.Messages[0].Text)

	st := loadState(t, store)
	assert.Equal(t, state.StepReschedPickNew, st.Step)
	assert.Equal(t, "2025-09-24", st.Draft.Date)
	assert.Empty(t, st.Draft.Time)
}

func TestNewIntentOverridesActiveFlow(t *testing.T) {
	t.Parallel()

	store := state.NewMemoryStore()
	e := newTestEngine(t, store, &fakeGateway{})

	handle(t, e, "Quero agendar uma consulta com Rodrigo dia 23/09/2025 às 14h")
	res := handle(t, e, "na verdade quero cancelar um horário")

	require.Len(t, res.Messages, 1)
	assert.Regexp(t, `(?i)dia do agendamento`, res.Messages[0].Text)

	st := loadState(t, store)
	assert.Equal(t, state.FlowCancel, st.Flow)
	assert.Equal(t, state.StepCancelAwait, st.Step)
}

func TestStoreLoadFailurePropagates(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, &failingStore{loadErr: errors.New("redis down")}, &fakeGateway{})

	_, err := e.HandleIncoming(context.Background(), contract.IncomingMessage{
		OrgID:          "org-1",
		ConversationID: "conv-1",
		Text:           "Quero agendar",
	})
	require.Error(t, err)
}

type failingStore struct {
	loadErr error
}

func (f *failingStore) Load(ctx context.Context, conversationID string) (*state.DialogueState, error) {
	return nil, f.loadErr
}

func (f *failingStore) Save(ctx context.Context, st *state.DialogueState) error { return nil }

func (f *failingStore) Delete(ctx context.Context, conversationID string) error { return nil }
