package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/zapagenda/engine/engine/contract"
)

// PostgresConfig configures the tenant catalog database.
type PostgresConfig struct {
	DSN          string        `envconfig:"DSN" split_words:"true" required:"true"`
	QueryTimeout time.Duration `envconfig:"QUERY_TIMEOUT" split_words:"true" default:"5s"`
}

// Repository loads tenant catalogs from Postgres. It satisfies
// contract.CatalogSource; callers may cache the result per turn.
type Repository struct {
	db      *bun.DB
	timeout time.Duration
}

type professionalRow struct {
	bun.BaseModel `bun:"table:professionals,alias:p"`

	ID          int64    `bun:"id,pk,autoincrement"`
	OrgID       string   `bun:"org_id,notnull"`
	Name        string   `bun:"name,notnull"`
	Aliases     []string `bun:"aliases,array"`
	Skills      []string `bun:"skills,array"`
	SlotMin     int      `bun:"slot_min,notnull"`
	CalendarIDs []string `bun:"calendar_ids,array"`
}

type serviceRow struct {
	bun.BaseModel `bun:"table:services,alias:s"`

	ID           int64  `bun:"id,pk,autoincrement"`
	OrgID        string `bun:"org_id,notnull"`
	Name         string `bun:"name,notnull"`
	DurationMin  int    `bun:"duration_min,notnull"`
	DefaultSkill string `bun:"default_skill"`
}

// NewRepository opens a bun connection over the Postgres driver.
func NewRepository(cfg PostgresConfig) (*Repository, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("catalog postgres dsn is required")
	}

	timeout := cfg.QueryTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	return &Repository{db: db, timeout: timeout}, nil
}

// LoadCatalog returns the tenant's professionals and services.
func (r *Repository) LoadCatalog(ctx context.Context, orgID string) (*contract.CatalogData, error) {
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return nil, errors.New("org id is required")
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var professionals []professionalRow
	if err := r.db.NewSelect().
		Model(&professionals).
		Where("p.org_id = ?", orgID).
		Order("p.name ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("load professionals org=%s: %w", orgID, err)
	}

	var services []serviceRow
	if err := r.db.NewSelect().
		Model(&services).
		Where("s.org_id = ?", orgID).
		Order("s.name ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("load services org=%s: %w", orgID, err)
	}

	data := &contract.CatalogData{
		Professionals: make([]contract.ProfessionalRecord, 0, len(professionals)),
		Services:      make([]contract.ServiceRecord, 0, len(services)),
	}
	for _, row := range professionals {
		data.Professionals = append(data.Professionals, contract.ProfessionalRecord{
			Name:        row.Name,
			Aliases:     row.Aliases,
			Skills:      row.Skills,
			SlotMin:     row.SlotMin,
			CalendarIDs: row.CalendarIDs,
		})
	}
	for _, row := range services {
		data.Services = append(data.Services, contract.ServiceRecord{
			Name:         row.Name,
			DurationMin:  row.DurationMin,
			DefaultSkill: row.DefaultSkill,
		})
	}
	return data, nil
}

// Close releases the underlying connection pool.
func (r *Repository) Close() error {
	return r.db.Close()
}

// FromData converts the raw catalog payload into the resolver's shape.
func FromData(data *contract.CatalogData) *Catalog {
	c := &Catalog{}
	if data == nil {
		return c
	}
	for _, rec := range data.Professionals {
		c.Professionals = append(c.Professionals, ProfessionalProfile{
			Name:               rec.Name,
			Aliases:            rec.Aliases,
			Skills:             rec.Skills,
			SlotMinutesDefault: rec.SlotMin,
			CalendarIDs:        rec.CalendarIDs,
		})
	}
	for _, rec := range data.Services {
		c.Services = append(c.Services, ServiceDefinition{
			Name:         rec.Name,
			DurationMin:  rec.DurationMin,
			DefaultSkill: rec.DefaultSkill,
		})
	}
	return c
}
