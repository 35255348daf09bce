package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/freakspace/leadtool/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS links (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
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
	contacted_at    DATETIME,
	claimed_by      TEXT,
	claimed_until   INTEGER,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS campaigns (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL UNIQUE,
	industry   TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS email_events (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	link_id       INTEGER NOT NULL REFERENCES links(id),
	campaign_id   INTEGER REFERENCES campaigns(id),
	qc_result     INTEGER NOT NULL,
	email_content TEXT NOT NULL DEFAULT '',
	delivery_time DATETIME,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_links_pending ON links(parsed, invalid, classification);
CREATE INDEX IF NOT EXISTS idx_email_events_link_id ON email_events(link_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) FetchUnparsed(ctx context.Context) ([]model.Link, error) {
	return s.queryLinks(ctx, "fetch unparsed", qFetchUnparsed)
}

func (s *SQLiteStore) FetchUnclassified(ctx context.Context) ([]model.Link, error) {
	return s.queryLinks(ctx, "fetch unclassified", qFetchUnclassified)
}

func (s *SQLiteStore) FetchOneUnlabeled(ctx context.Context) (*model.Link, error) {
	l, err := scanLink(s.db.QueryRowContext(ctx, qFetchOneUnlabeled))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: fetch one unlabeled")
	}
	return l, nil
}

func (s *SQLiteStore) Update(ctx context.Context, id int64, u LinkUpdate) error {
	query, args, ok := updateQuery(id, u, time.Now().UTC())
	if !ok {
		return s.requireLink(ctx, id)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update link %d", id)
	}
	return checkRowsAffected(res, id)
}

// requireLink returns ErrNotFound when no link has the given id.
func (s *SQLiteStore) requireLink(ctx context.Context, id int64) error {
	var exists bool
	if err := s.db.QueryRowContext(ctx, qLinkExists, id).Scan(&exists); err != nil {
		return eris.Wrapf(err, "sqlite: check link %d", id)
	}
	if !exists {
		return eris.Wrapf(ErrNotFound, "link %d", id)
	}
	return nil
}

func (s *SQLiteStore) Claim(ctx context.Context, id int64, owner string, ttl time.Duration) (bool, error) {
	now := time.Now()
	res, err := s.db.ExecContext(ctx, qClaim, owner, now.Add(ttl).UnixMilli(), id, owner, now.UnixMilli())
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: claim link %d", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n == 1, nil
}

func (s *SQLiteStore) Release(ctx context.Context, id int64, owner string) error {
	_, err := s.db.ExecContext(ctx, qRelease, id, owner)
	return eris.Wrapf(err, "sqlite: release link %d", id)
}

func (s *SQLiteStore) CreateLink(ctx context.Context, domain string) (bool, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, qCreateLink, domain, now, now)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: create link %s", domain)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n == 1, nil
}

func (s *SQLiteStore) GetLink(ctx context.Context, id int64) (*model.Link, error) {
	l, err := scanLink(s.db.QueryRowContext(ctx, qGetLink, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get link %d", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get link %d", id)
	}
	return l, nil
}

func (s *SQLiteStore) ListLinks(ctx context.Context, filter LinkFilter) ([]model.Link, error) {
	query, args := listQuery(filter)
	return s.queryLinks(ctx, "list links", query, args...)
}

func (s *SQLiteStore) CreateCampaign(ctx context.Context, name, industry string) (*model.Campaign, error) {
	now := time.Now().UTC()
	var id int64
	if err := s.db.QueryRowContext(ctx, qCreateCampaign, name, industry, now).Scan(&id); err != nil {
		return nil, eris.Wrapf(err, "sqlite: create campaign %s", name)
	}
	return &model.Campaign{ID: id, Name: name, Industry: industry, CreatedAt: now}, nil
}

func (s *SQLiteStore) ListCampaigns(ctx context.Context) ([]model.Campaign, error) {
	rows, err := s.db.QueryContext(ctx, qListCampaigns)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list campaigns")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: list campaigns")
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list campaigns iterate")
}

func (s *SQLiteStore) CreateEmailEvent(ctx context.Context, ev model.EmailEvent) (*model.EmailEvent, error) {
	ev.CreatedAt = time.Now().UTC()
	err := s.db.QueryRowContext(ctx, qCreateEmailEvent,
		ev.LinkID, nullInt64(ev.CampaignID), ev.QCResult, ev.Content, nullTime(ev.DeliveryTime), ev.CreatedAt,
	).Scan(&ev.ID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: create email event for link %d", ev.LinkID)
	}
	return &ev, nil
}

func (s *SQLiteStore) CheckSent(ctx context.Context, domain, email string) (bool, error) {
	var sent bool
	err := s.db.QueryRowContext(ctx, qCheckSent, domain, domain, email, email).Scan(&sent)
	return sent, eris.Wrap(err, "sqlite: check sent")
}

func (s *SQLiteStore) queryLinks(ctx context.Context, op, query string, args ...any) ([]model.Link, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: %s", op)
	}
	defer rows.Close() //nolint:errcheck

	var links []model.Link
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: %s scan", op)
		}
		links = append(links, *l)
	}
	return links, eris.Wrapf(rows.Err(), "sqlite: %s iterate", op)
}

func checkRowsAffected(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "link %d", id)
	}
	return nil
}
