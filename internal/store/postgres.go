package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/freakspace/leadtool/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32
	MinConns int32
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 1
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			pgxCfg.MaxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			pgxCfg.MinConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS links (
	id              BIGSERIAL PRIMARY KEY,
	domain          TEXT NOT NULL UNIQUE,
	content_path    TEXT NOT NULL DEFAULT '',
	screenshot_path TEXT NOT NULL DEFAULT '',
	email           TEXT,
	contact_name    TEXT,
	pronoun         TEXT,
	industry        TEXT,
	city            TEXT,
	area            TEXT,
	classification  INTEGER NOT NULL DEFAULT 0,
	description     TEXT NOT NULL DEFAULT '',
	parsed          BOOLEAN NOT NULL DEFAULT FALSE,
	invalid         BOOLEAN NOT NULL DEFAULT FALSE,
	contacted_at    TIMESTAMPTZ,
	claimed_by      TEXT,
	claimed_until   BIGINT,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS campaigns (
	id         BIGSERIAL PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	industry   TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS email_events (
	id            BIGSERIAL PRIMARY KEY,
	link_id       BIGINT NOT NULL REFERENCES links(id),
	campaign_id   BIGINT REFERENCES campaigns(id),
	qc_result     INTEGER NOT NULL,
	email_content TEXT NOT NULL DEFAULT '',
	delivery_time TIMESTAMPTZ,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_links_pending ON links(parsed, invalid, classification);
CREATE INDEX IF NOT EXISTS idx_email_events_link_id ON email_events(link_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) FetchUnparsed(ctx context.Context) ([]model.Link, error) {
	return s.queryLinks(ctx, "fetch unparsed", qFetchUnparsed)
}

func (s *PostgresStore) FetchUnclassified(ctx context.Context) ([]model.Link, error) {
	return s.queryLinks(ctx, "fetch unclassified", qFetchUnclassified)
}

func (s *PostgresStore) FetchOneUnlabeled(ctx context.Context) (*model.Link, error) {
	l, err := scanLink(s.pool.QueryRow(ctx, rebind(qFetchOneUnlabeled)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: fetch one unlabeled")
	}
	return l, nil
}

func (s *PostgresStore) Update(ctx context.Context, id int64, u LinkUpdate) error {
	query, args, ok := updateQuery(id, u, time.Now().UTC())
	if !ok {
		return s.requireLink(ctx, id)
	}
	tag, err := s.pool.Exec(ctx, rebind(query), args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: update link %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "link %d", id)
	}
	return nil
}

func (s *PostgresStore) requireLink(ctx context.Context, id int64) error {
	var exists bool
	if err := s.pool.QueryRow(ctx, rebind(qLinkExists), id).Scan(&exists); err != nil {
		return eris.Wrapf(err, "postgres: check link %d", id)
	}
	if !exists {
		return eris.Wrapf(ErrNotFound, "link %d", id)
	}
	return nil
}

func (s *PostgresStore) Claim(ctx context.Context, id int64, owner string, ttl time.Duration) (bool, error) {
	now := time.Now()
	tag, err := s.pool.Exec(ctx, rebind(qClaim), owner, now.Add(ttl).UnixMilli(), id, owner, now.UnixMilli())
	if err != nil {
		return false, eris.Wrapf(err, "postgres: claim link %d", id)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) Release(ctx context.Context, id int64, owner string) error {
	_, err := s.pool.Exec(ctx, rebind(qRelease), id, owner)
	return eris.Wrapf(err, "postgres: release link %d", id)
}

func (s *PostgresStore) CreateLink(ctx context.Context, domain string) (bool, error) {
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx, rebind(qCreateLink), domain, now, now)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: create link %s", domain)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) GetLink(ctx context.Context, id int64) (*model.Link, error) {
	l, err := scanLink(s.pool.QueryRow(ctx, rebind(qGetLink), id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get link %d", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get link %d", id)
	}
	return l, nil
}

func (s *PostgresStore) ListLinks(ctx context.Context, filter LinkFilter) ([]model.Link, error) {
	query, args := listQuery(filter)
	return s.queryLinks(ctx, "list links", query, args...)
}

func (s *PostgresStore) CreateCampaign(ctx context.Context, name, industry string) (*model.Campaign, error) {
	now := time.Now().UTC()
	var id int64
	if err := s.pool.QueryRow(ctx, rebind(qCreateCampaign), name, industry, now).Scan(&id); err != nil {
		return nil, eris.Wrapf(err, "postgres: create campaign %s", name)
	}
	return &model.Campaign{ID: id, Name: name, Industry: industry, CreatedAt: now}, nil
}

func (s *PostgresStore) ListCampaigns(ctx context.Context) ([]model.Campaign, error) {
	rows, err := s.pool.Query(ctx, rebind(qListCampaigns))
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list campaigns")
	}
	defer rows.Close()

	var out []model.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: list campaigns")
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list campaigns iterate")
}

func (s *PostgresStore) CreateEmailEvent(ctx context.Context, ev model.EmailEvent) (*model.EmailEvent, error) {
	ev.CreatedAt = time.Now().UTC()
	err := s.pool.QueryRow(ctx, rebind(qCreateEmailEvent),
		ev.LinkID, nullInt64(ev.CampaignID), ev.QCResult, ev.Content, nullTime(ev.DeliveryTime), ev.CreatedAt,
	).Scan(&ev.ID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: create email event for link %d", ev.LinkID)
	}
	return &ev, nil
}

func (s *PostgresStore) CheckSent(ctx context.Context, domain, email string) (bool, error) {
	var sent bool
	err := s.pool.QueryRow(ctx, rebind(qCheckSent), domain, domain, email, email).Scan(&sent)
	return sent, eris.Wrap(err, "postgres: check sent")
}

func (s *PostgresStore) queryLinks(ctx context.Context, op, query string, args ...any) ([]model.Link, error) {
	rows, err := s.pool.Query(ctx, rebind(query), args...)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: %s", op)
	}
	defer rows.Close()

	var links []model.Link
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: %s scan", op)
		}
		links = append(links, *l)
	}
	return links, eris.Wrapf(rows.Err(), "postgres: %s iterate", op)
}
