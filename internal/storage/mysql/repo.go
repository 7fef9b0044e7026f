package mysql

import (
	"context"
	"database/sql"
	"time"

	"aqi_relay/internal/domain"
)

const maxRecent = 500

func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) RecordLookup(ctx context.Context, rec domain.LookupRecord) error {
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	dur := rec.DurationMS
	if dur < 0 {
		dur = 0
	}
	_, err := r.db.ExecContext(ctx, insertLookupSQL,
		rec.City,
		rec.Outcome,
		rec.HTTPStatus,
		valStr(rec.UpstreamStatus),
		dur,
		created.UTC(),
	)
	return err
}

func (r *Repo) RecentLookups(ctx context.Context, limit int) ([]domain.LookupRecord, error) {
	if limit <= 0 || limit > maxRecent {
		limit = maxRecent
	}
	rows, err := r.db.QueryContext(ctx, recentLookupsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.LookupRecord, 0, limit)
	for rows.Next() {
		var rec domain.LookupRecord
		var upstream sql.NullString
		if err := rows.Scan(
			&rec.ID,
			&rec.City,
			&rec.Outcome,
			&rec.HTTPStatus,
			&upstream,
			&rec.DurationMS,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		rec.UpstreamStatus = upstream.String
		out = append(out, rec)
	}
	return out, rows.Err()
}
