package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shiminize/creatorhub/pkg/models"
)

const linkColumns = `id, creator_id, product_id, code, is_active, click_count, conversion_count, created_at`

// InsertLink persists a new referral link. Code uniqueness is enforced by
// the schema.
func (s *Store) InsertLink(ctx context.Context, l *models.ReferralLink) error {
	q := s.rebind(`INSERT INTO referral_links (` + linkColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, q,
		l.ID, l.CreatorID, l.ProductID, l.Code, boolToInt(l.IsActive),
		l.ClickCount, l.ConversionCount, fmtTime(l.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("link code already exists: %w", err)
		}
		return fmt.Errorf("failed to insert link: %w", err)
	}
	return nil
}

func scanLink(row interface{ Scan(...any) error }) (*models.ReferralLink, error) {
	var (
		l         models.ReferralLink
		active    int
		createdAt string
	)
	err := row.Scan(&l.ID, &l.CreatorID, &l.ProductID, &l.Code, &active,
		&l.ClickCount, &l.ConversionCount, &createdAt)
	if err != nil {
		return nil, err
	}
	l.IsActive = active != 0
	if l.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &l, nil
}

// GetLink fetches a link by id
func (s *Store) GetLink(ctx context.Context, id string) (*models.ReferralLink, error) {
	q := s.rebind(`SELECT ` + linkColumns + ` FROM referral_links WHERE id = ?`)
	l, err := scanLink(s.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get link: %w", err)
	}
	return l, nil
}

// GetLinkByCode fetches a link by its public code, active or not.
// Callers decide how inactive links are treated.
func (s *Store) GetLinkByCode(ctx context.Context, code string) (*models.ReferralLink, error) {
	q := s.rebind(`SELECT ` + linkColumns + ` FROM referral_links WHERE code = ?`)
	l, err := scanLink(s.db.QueryRowContext(ctx, q, code))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get link by code: %w", err)
	}
	return l, nil
}

// ListLinksByCreator returns all links owned by a creator
func (s *Store) ListLinksByCreator(ctx context.Context, creatorID string) ([]models.ReferralLink, error) {
	q := s.rebind(`SELECT ` + linkColumns + ` FROM referral_links WHERE creator_id = ? ORDER BY created_at`)
	rows, err := s.db.QueryContext(ctx, q, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	var out []models.ReferralLink
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

// SetLinksActiveForCreator cascades link activation state across every
// link a creator owns. Used by suspend/reinstate.
func (s *Store) SetLinksActiveForCreator(ctx context.Context, creatorID string, active bool) (int, error) {
	q := s.rebind(`UPDATE referral_links SET is_active = ? WHERE creator_id = ?`)
	res, err := s.db.ExecContext(ctx, q, boolToInt(active), creatorID)
	if err != nil {
		return 0, fmt.Errorf("failed to set link activation: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// IncLinkClickCount bumps the write-through click counter
func (s *Store) IncLinkClickCount(ctx context.Context, id string) error {
	q := s.rebind(`UPDATE referral_links SET click_count = click_count + 1 WHERE id = ?`)
	if _, err := s.db.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("failed to increment link clicks: %w", err)
	}
	return nil
}

// SetLinkCounters overwrites the denormalized counters from authoritative
// recomputation
func (s *Store) SetLinkCounters(ctx context.Context, id string, clicks, conversions int) error {
	q := s.rebind(`UPDATE referral_links SET click_count = ?, conversion_count = ? WHERE id = ?`)
	if _, err := s.db.ExecContext(ctx, q, clicks, conversions, id); err != nil {
		return fmt.Errorf("failed to set link counters: %w", err)
	}
	return nil
}

// AllLinkIDs returns every link id, for reconciliation sweeps
func (s *Store) AllLinkIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM referral_links`)
	if err != nil {
		return nil, fmt.Errorf("failed to list link ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
