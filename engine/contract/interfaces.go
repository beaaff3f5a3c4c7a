package contract

import (
	"context"
	"time"
)

// CalendarGateway is the only door to the real calendar backend.
// Implementations classify failures: a booking collision surfaces as
// ErrSlotConflict, anything transient as ErrGatewayUnavailable.
type CalendarGateway interface {
	ListEvents(ctx context.Context, calendarIDs []string, from, to time.Time) ([]Event, error)
	CreateEvent(ctx context.Context, calendarID string, start, end time.Time, summary, idempotencyKey string) (Event, error)
	UpdateEvent(ctx context.Context, eventID string, start, end time.Time) (Event, error)
	DeleteEvent(ctx context.Context, eventID string) error
}

// CatalogSource loads the per-tenant set of schedulable professionals and
// services. The engine reads it once per turn and never mutates it.
type CatalogSource interface {
	LoadCatalog(ctx context.Context, orgID string) (*CatalogData, error)
}

// CatalogData is the raw per-tenant catalog payload.
type CatalogData struct {
	Professionals []ProfessionalRecord `json:"professionals"`
	Services      []ServiceRecord      `json:"services"`
}

// ProfessionalRecord mirrors the catalog source row shape.
type ProfessionalRecord struct {
	Name        string   `json:"name"`
	Aliases     []string `json:"aliases,omitempty"`
	Skills      []string `json:"skills,omitempty"`
	SlotMin     int      `json:"slot_min"`
	CalendarIDs []string `json:"calendar_ids"`
}

// ServiceRecord mirrors the catalog source row shape.
type ServiceRecord struct {
	Name         string `json:"name"`
	DurationMin  int    `json:"duration_min"`
	DefaultSkill string `json:"default_skill,omitempty"`
}
