package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/statute-crawler/internal/statute"
)

const upsertStatuteSQL = `
INSERT INTO statutes (
	citation, title, content, url, jurisdiction,
	category, penalties, effective_date, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
ON CONFLICT (citation) DO UPDATE SET
	title = EXCLUDED.title,
	content = EXCLUDED.content,
	url = EXCLUDED.url,
	jurisdiction = EXCLUDED.jurisdiction,
	category = EXCLUDED.category,
	penalties = EXCLUDED.penalties,
	effective_date = EXCLUDED.effective_date,
	updated_at = EXCLUDED.updated_at
RETURNING (xmax = 0) AS inserted`

const selectStatuteSQL = `
SELECT citation, title, content, url, jurisdiction, category, penalties, effective_date, updated_at
FROM statutes
WHERE citation = $1`

const countStatutesSQL = `SELECT count(*) FROM statutes WHERE jurisdiction = $1`

// StatuteStore persists statutes keyed by citation.
type StatuteStore struct {
	pool  pool
	clock statute.Clock
}

// Statutes returns a StatuteStore backed by db. A nil clock uses time.Now.
func (db *DB) Statutes(clock statute.Clock) *StatuteStore {
	return &StatuteStore{pool: db.pool, clock: clock}
}

// Upsert inserts a new statute or overwrites the existing row for its citation.
func (s *StatuteStore) Upsert(ctx context.Context, st statute.Statute) (bool, error) {
	if st.Citation == "" {
		return false, errors.New("statute citation is required")
	}
	var inserted bool
	err := s.pool.QueryRow(ctx, upsertStatuteSQL,
		st.Citation,
		st.Title,
		st.Content,
		st.URL,
		st.Jurisdiction,
		nullableString(st.Category),
		nullableString(st.Penalties),
		st.EffectiveDate,
		s.now(),
	).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("upsert statute %s: %w", st.Citation, err)
	}
	return inserted, nil
}

// Get loads a statute by citation.
func (s *StatuteStore) Get(ctx context.Context, citation string) (statute.Statute, error) {
	var (
		st        statute.Statute
		category  *string
		penalties *string
	)
	err := s.pool.QueryRow(ctx, selectStatuteSQL, citation).Scan(
		&st.Citation,
		&st.Title,
		&st.Content,
		&st.URL,
		&st.Jurisdiction,
		&category,
		&penalties,
		&st.EffectiveDate,
		&st.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return statute.Statute{}, statute.ErrNotFound
		}
		return statute.Statute{}, fmt.Errorf("get statute %s: %w", citation, err)
	}
	st.Category = derefString(category)
	st.Penalties = derefString(penalties)
	return st, nil
}

// CountByJurisdiction counts stored statutes for a jurisdiction.
func (s *StatuteStore) CountByJurisdiction(ctx context.Context, jurisdiction string) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, countStatutesSQL, jurisdiction).Scan(&count); err != nil {
		return 0, fmt.Errorf("count statutes: %w", err)
	}
	return count, nil
}

func (s *StatuteStore) now() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock.Now().UTC()
}
