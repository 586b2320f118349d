package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/gifthawk/internal/domain/listing"
)

const listingColumns = `code, url, game_id, game_name, point_cost, copies, entry_count, end_at,
	is_dlc, is_wishlisted, is_hidden, is_entered, is_won, won_at,
	review_score, review_count, released_at, safety_verdict, safety_score,
	discovered_at, updated_at`

type ListingRepository struct {
	db *sqlx.DB
}

func NewListingRepository(db *sqlx.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

// Upsert merges a scanned row into the store. Fields owned by other flows
// (safety verdict, won markers, discovery time, hidden flag) survive updates;
// Changed only reports diffs in the scan-owned mutable fields.
func (r *ListingRepository) Upsert(ctx context.Context, l listing.Listing) (listing.UpsertResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return listing.UpsertResult{}, fmt.Errorf("begin listing upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current listingTableModel
	err = tx.GetContext(ctx, &current,
		`SELECT `+listingColumns+` FROM listings WHERE code = $1 FOR UPDATE`, l.Code)
	if err != nil && !isNotFound(err) {
		return listing.UpsertResult{}, fmt.Errorf("lock listing code=%s: %w", l.Code, err)
	}

	if isNotFound(err) {
		row := listingModelFromDomain(l)
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO listings (
				code, url, game_id, game_name, point_cost, copies, entry_count, end_at,
				is_dlc, is_wishlisted, is_hidden, is_entered, is_won, won_at,
				review_score, review_count, released_at, safety_verdict, safety_score,
				discovered_at, updated_at
			) VALUES (
				:code, :url, :game_id, :game_name, :point_cost, :copies, :entry_count, :end_at,
				:is_dlc, :is_wishlisted, :is_hidden, :is_entered, :is_won, :won_at,
				:review_score, :review_count, :released_at, :safety_verdict, :safety_score,
				:discovered_at, :updated_at
			)`, row)
		if err != nil {
			return listing.UpsertResult{}, fmt.Errorf("insert listing code=%s: %w", l.Code, err)
		}
		if err := tx.Commit(); err != nil {
			return listing.UpsertResult{}, fmt.Errorf("commit listing insert: %w", err)
		}
		return listing.UpsertResult{Created: true, Changed: true}, nil
	}

	merged := current
	merged.URL = l.URL
	merged.GameName = l.GameName
	merged.PointCost = l.PointCost
	merged.Copies = l.Copies
	merged.EntryCount = l.EntryCount
	merged.EndAt = l.EndAt
	merged.IsWishlisted = merged.IsWishlisted || l.IsWishlisted
	merged.IsDLC = merged.IsDLC || l.IsDLC
	merged.IsEntered = merged.IsEntered || l.IsEntered
	if merged.GameID == "" {
		merged.GameID = l.GameID
	}

	changed := merged.PointCost != current.PointCost ||
		merged.Copies != current.Copies ||
		merged.EntryCount != current.EntryCount ||
		!equalTimePtr(merged.EndAt, current.EndAt) ||
		merged.IsEntered != current.IsEntered ||
		merged.GameName != current.GameName
	if changed {
		merged.UpdatedAt = l.UpdatedAt
	}

	_, err = tx.NamedExecContext(ctx, `
		UPDATE listings SET
			url = :url,
			game_id = :game_id,
			game_name = :game_name,
			point_cost = :point_cost,
			copies = :copies,
			entry_count = :entry_count,
			end_at = :end_at,
			is_dlc = :is_dlc,
			is_wishlisted = :is_wishlisted,
			is_entered = :is_entered,
			updated_at = :updated_at
		WHERE code = :code`, merged)
	if err != nil {
		return listing.UpsertResult{}, fmt.Errorf("update listing code=%s: %w", l.Code, err)
	}
	if err := tx.Commit(); err != nil {
		return listing.UpsertResult{}, fmt.Errorf("commit listing update: %w", err)
	}
	return listing.UpsertResult{Changed: changed}, nil
}

func (r *ListingRepository) GetByCode(ctx context.Context, code string) (listing.Listing, bool, error) {
	var row listingTableModel
	err := r.db.GetContext(ctx, &row,
		`SELECT `+listingColumns+` FROM listings WHERE code = $1`, code)
	if err != nil {
		if isNotFound(err) {
			return listing.Listing{}, false, nil
		}
		return listing.Listing{}, false, fmt.Errorf("get listing by code: %w", err)
	}
	return row.toDomain(), true, nil
}

func (r *ListingRepository) List(ctx context.Context, f listing.Filter) ([]listing.Listing, error) {
	clauses := make([]string, 0, 3)
	args := make([]any, 0, 3)

	if f.Entered != nil {
		args = append(args, *f.Entered)
		clauses = append(clauses, fmt.Sprintf("is_entered = $%d", len(args)))
	}
	if f.Safety != "" {
		args = append(args, string(f.Safety))
		clauses = append(clauses, fmt.Sprintf("safety_verdict = $%d", len(args)))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, "%"+strings.ToLower(q)+"%")
		clauses = append(clauses, fmt.Sprintf("LOWER(game_name) LIKE $%d", len(args)))
	}

	query := `SELECT ` + listingColumns + ` FROM listings`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY discovered_at"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	var rows []listingTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select listings: %w", err)
	}
	return listingModelsToDomain(rows), nil
}

func (r *ListingRepository) ListCandidates(ctx context.Context, now time.Time, limit int) ([]listing.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings
		WHERE NOT is_entered AND NOT is_hidden AND (end_at IS NULL OR end_at > $1)
		ORDER BY point_cost`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	var rows []listingTableModel
	if err := r.db.SelectContext(ctx, &rows, query, now); err != nil {
		return nil, fmt.Errorf("select candidate listings: %w", err)
	}
	return listingModelsToDomain(rows), nil
}

func (r *ListingRepository) ListUnchecked(ctx context.Context, now time.Time, limit int) ([]listing.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings
		WHERE safety_verdict = $1 AND NOT is_hidden AND (end_at IS NULL OR end_at > $2)
		ORDER BY discovered_at`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	var rows []listingTableModel
	if err := r.db.SelectContext(ctx, &rows, query, string(listing.VerdictUnknown), now); err != nil {
		return nil, fmt.Errorf("select unchecked listings: %w", err)
	}
	return listingModelsToDomain(rows), nil
}

func (r *ListingRepository) SetEntered(ctx context.Context, code string, entered bool) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE listings SET is_entered = $1, updated_at = NOW() WHERE code = $2`, entered, code); err != nil {
		return fmt.Errorf("set entered code=%s: %w", code, err)
	}
	return nil
}

func (r *ListingRepository) SetWon(ctx context.Context, code string, wonAt time.Time) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE listings SET is_won = TRUE, is_entered = TRUE, won_at = $1, updated_at = NOW() WHERE code = $2`, wonAt, code); err != nil {
		return fmt.Errorf("set won code=%s: %w", code, err)
	}
	return nil
}

func (r *ListingRepository) SetHidden(ctx context.Context, code string, hidden bool) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE listings SET is_hidden = $1, updated_at = NOW() WHERE code = $2`, hidden, code); err != nil {
		return fmt.Errorf("set hidden code=%s: %w", code, err)
	}
	return nil
}

func (r *ListingRepository) SetSafety(ctx context.Context, code string, verdict listing.Verdict, score int) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE listings SET safety_verdict = $1, safety_score = $2, updated_at = NOW() WHERE code = $3`,
		string(verdict), score, code); err != nil {
		return fmt.Errorf("set safety code=%s: %w", code, err)
	}
	return nil
}

func listingModelsToDomain(rows []listingTableModel) []listing.Listing {
	out := make([]listing.Listing, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
