package store

import (
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/freakspace/leadtool/internal/model"
)

// Queries are written with ? placeholders and rebound to $n for Postgres.
const linkColumns = `id, domain, content_path, screenshot_path, email, contact_name, pronoun,
	industry, city, area, classification, description, parsed, invalid, contacted_at,
	created_at, updated_at`

const (
	qFetchUnparsed = `SELECT ` + linkColumns + ` FROM links
		WHERE content_path <> '' AND parsed = FALSE AND invalid = FALSE
		ORDER BY id`

	qFetchUnclassified = `SELECT ` + linkColumns + ` FROM links
		WHERE screenshot_path <> '' AND classification = 0 AND parsed = FALSE AND invalid = FALSE
		ORDER BY id`

	qFetchOneUnlabeled = `SELECT ` + linkColumns + ` FROM links l
		WHERE parsed = TRUE AND invalid = FALSE
		  AND email IS NOT NULL AND email <> 'None'
		  AND NOT EXISTS (SELECT 1 FROM email_events e WHERE e.link_id = l.id)
		ORDER BY id LIMIT 1`

	qGetLink = `SELECT ` + linkColumns + ` FROM links WHERE id = ?`

	qLinkExists = `SELECT EXISTS (SELECT 1 FROM links WHERE id = ?)`

	qCreateLink = `INSERT INTO links (domain, created_at, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (domain) DO NOTHING`

	qClaim = `UPDATE links SET claimed_by = ?, claimed_until = ?
		WHERE id = ? AND (claimed_by IS NULL OR claimed_by = ? OR claimed_until < ?)`

	qRelease = `UPDATE links SET claimed_by = NULL, claimed_until = NULL
		WHERE id = ? AND claimed_by = ?`

	qCreateCampaign = `INSERT INTO campaigns (name, industry, created_at) VALUES (?, ?, ?) RETURNING id`

	qListCampaigns = `SELECT id, name, industry, created_at FROM campaigns ORDER BY id`

	qCreateEmailEvent = `INSERT INTO email_events (link_id, campaign_id, qc_result, email_content, delivery_time, created_at)
		VALUES (?, ?, ?, ?, ?, ?) RETURNING id`

	qCheckSent = `SELECT EXISTS (
		SELECT 1 FROM email_events e JOIN links l ON l.id = e.link_id
		WHERE (? <> '' AND l.domain = ?) OR (? <> '' AND l.email = ?))`
)

// updateQuery builds a single UPDATE statement for u. ok is false when u
// carries nothing to write.
func updateQuery(id int64, u LinkUpdate, now time.Time) (query string, args []any, ok bool) {
	var sets []string
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	if u.ContentPath != nil {
		add("content_path", *u.ContentPath)
	}
	if u.ScreenshotPath != nil {
		add("screenshot_path", *u.ScreenshotPath)
	}
	for _, col := range model.FieldColumns {
		f, present := u.Fields[col]
		if !present || !f.IsKnown() {
			continue
		}
		add(col, f.NullString())
	}
	if u.Classification != nil {
		add("classification", *u.Classification)
	}
	if u.Description != nil {
		add("description", *u.Description)
	}
	if u.Parsed != nil {
		add("parsed", *u.Parsed)
	}
	if u.Invalid != nil {
		add("invalid", *u.Invalid)
	}
	if u.ContactedAt != nil {
		add("contacted_at", u.ContactedAt.UTC())
	}

	if len(sets) == 0 {
		return "", nil, false
	}
	add("updated_at", now)
	args = append(args, id)
	return "UPDATE links SET " + strings.Join(sets, ", ") + " WHERE id = ?", args, true
}

// listQuery builds the SELECT for ListLinks.
func listQuery(f LinkFilter) (string, []any) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE 1=1`
	var args []any

	if f.Domain != "" {
		query += ` AND domain = ?`
		args = append(args, f.Domain)
	}
	if f.Captured != nil {
		if *f.Captured {
			query += ` AND content_path <> ''`
		} else {
			query += ` AND content_path = ''`
		}
	}
	if f.Parsed != nil {
		query += ` AND parsed = ?`
		args = append(args, *f.Parsed)
	}
	if f.Invalid != nil {
		query += ` AND invalid = ?`
		args = append(args, *f.Invalid)
	}
	query += ` ORDER BY id`

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if f.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, f.Offset)
	}
	return query, args
}

// rebind rewrites ? placeholders as $1, $2, ... for Postgres.
func rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanLink(row scannable) (*model.Link, error) {
	var l model.Link
	var contacted sql.NullTime
	err := row.Scan(
		&l.ID, &l.Domain, &l.ContentPath, &l.ScreenshotPath,
		&l.Email, &l.ContactName, &l.Pronoun, &l.Industry, &l.City, &l.Area,
		&l.Classification, &l.Description, &l.Parsed, &l.Invalid, &contacted,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if contacted.Valid {
		t := contacted.Time
		l.ContactedAt = &t
	}
	return &l, nil
}

func scanCampaign(row scannable) (*model.Campaign, error) {
	var c model.Campaign
	if err := row.Scan(&c.ID, &c.Name, &c.Industry, &c.CreatedAt); err != nil {
		return nil, eris.Wrap(err, "scan campaign")
	}
	return &c, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
