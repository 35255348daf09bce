// Package store persists links, campaigns and email events. SQLite backs
// local runs; Postgres backs shared deployments.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/freakspace/leadtool/internal/model"
)

// ErrNotFound is returned when an update or lookup targets a missing row.
var ErrNotFound = eris.New("store: not found")

// LinkFilter specifies criteria for listing links.
type LinkFilter struct {
	Domain   string `json:"domain,omitempty"`
	Captured *bool  `json:"captured,omitempty"`
	Parsed   *bool  `json:"parsed,omitempty"`
	Invalid  *bool  `json:"invalid,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// LinkUpdate is a partial update of one link. Nil pointers are left
// untouched. Fields entries are written only when known and naming a
// persisted column.
type LinkUpdate struct {
	ContentPath    *string
	ScreenshotPath *string
	Classification *int
	Description    *string
	Parsed         *bool
	Invalid        *bool
	ContactedAt    *time.Time
	Fields         map[string]model.Field
}

// Store defines the persistence interface for the lead pipeline.
type Store interface {
	// Pipeline queries
	FetchUnparsed(ctx context.Context) ([]model.Link, error)
	FetchUnclassified(ctx context.Context) ([]model.Link, error)
	FetchOneUnlabeled(ctx context.Context) (*model.Link, error)
	Update(ctx context.Context, id int64, u LinkUpdate) error

	// Leases
	Claim(ctx context.Context, id int64, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, id int64, owner string) error

	// Links
	CreateLink(ctx context.Context, domain string) (bool, error)
	GetLink(ctx context.Context, id int64) (*model.Link, error)
	ListLinks(ctx context.Context, filter LinkFilter) ([]model.Link, error)

	// Campaigns and outreach
	CreateCampaign(ctx context.Context, name, industry string) (*model.Campaign, error)
	ListCampaigns(ctx context.Context) ([]model.Campaign, error)
	CreateEmailEvent(ctx context.Context, ev model.EmailEvent) (*model.EmailEvent, error)
	CheckSent(ctx context.Context, domain, email string) (bool, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Ptr returns a pointer to v, for building LinkUpdate values.
func Ptr[T any](v T) *T { return &v }

// Open connects to the configured backend. The caller owns Close.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "sqlite":
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}
