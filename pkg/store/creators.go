package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shiminize/creatorhub/pkg/models"
)

const creatorColumns = `id, display_name, email, status, commission_rate, minimum_payout,
	payment_method, payment_details, notes, total_clicks, total_sales,
	total_commission, conversion_rate, created_at, approved_at, suspended_at`

// InsertCreator persists a new creator. Email uniqueness is enforced by
// the schema.
func (s *Store) InsertCreator(ctx context.Context, c *models.Creator) error {
	q := s.rebind(`INSERT INTO creators (` + creatorColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, q,
		c.ID, c.DisplayName, c.Email, string(c.Status),
		c.CommissionRate.String(), c.MinimumPayout.String(),
		c.PaymentMethod, c.PaymentDetails, c.Notes,
		c.TotalClicks, c.TotalSales, c.TotalCommission.String(), c.ConversionRate,
		fmtTime(c.CreatedAt), fmtTimePtr(c.ApprovedAt), fmtTimePtr(c.SuspendedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("creator email already registered: %w", ErrDuplicate)
		}
		return fmt.Errorf("failed to insert creator: %w", err)
	}
	return nil
}

func scanCreator(row interface{ Scan(...any) error }) (*models.Creator, error) {
	var (
		c                       models.Creator
		status                  string
		rate, minPayout, totalC string
		createdAt               string
		approvedAt, suspendedAt sql.NullString
	)
	err := row.Scan(&c.ID, &c.DisplayName, &c.Email, &status, &rate, &minPayout,
		&c.PaymentMethod, &c.PaymentDetails, &c.Notes,
		&c.TotalClicks, &c.TotalSales, &totalC, &c.ConversionRate,
		&createdAt, &approvedAt, &suspendedAt)
	if err != nil {
		return nil, err
	}

	c.Status = models.CreatorStatus(status)
	if c.CommissionRate, err = decimal.NewFromString(rate); err != nil {
		return nil, fmt.Errorf("bad stored commission rate: %w", err)
	}
	if c.MinimumPayout, err = decimal.NewFromString(minPayout); err != nil {
		return nil, fmt.Errorf("bad stored minimum payout: %w", err)
	}
	if c.TotalCommission, err = decimal.NewFromString(totalC); err != nil {
		return nil, fmt.Errorf("bad stored total commission: %w", err)
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if c.ApprovedAt, err = parseTimePtr(approvedAt); err != nil {
		return nil, err
	}
	if c.SuspendedAt, err = parseTimePtr(suspendedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCreator fetches a creator by id
func (s *Store) GetCreator(ctx context.Context, id string) (*models.Creator, error) {
	q := s.rebind(`SELECT ` + creatorColumns + ` FROM creators WHERE id = ?`)
	c, err := scanCreator(s.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get creator: %w", err)
	}
	return c, nil
}

// CompareAndSwapCreatorStatus transitions a creator's status only if the
// current status still matches expected. Returns false when the guard
// failed, which is how concurrent admin actions stay safe without a lock.
// A nil approvedAt preserves the stored value. suspendedAt is written
// when non-nil, cleared when clearSuspended is set, and preserved
// otherwise — deactivation keeps suspension history.
func (s *Store) CompareAndSwapCreatorStatus(ctx context.Context, id string, expected, next models.CreatorStatus, approvedAt, suspendedAt *time.Time, clearSuspended bool) (bool, error) {
	q := s.rebind(`UPDATE creators
		SET status = ?,
			approved_at = COALESCE(?, approved_at),
			suspended_at = CASE WHEN ? = 1 THEN ? ELSE suspended_at END
		WHERE id = ? AND status = ?`)
	res, err := s.db.ExecContext(ctx, q, string(next),
		fmtTimePtr(approvedAt),
		boolToInt(suspendedAt != nil || clearSuspended), fmtTimePtr(suspendedAt),
		id, string(expected))
	if err != nil {
		return false, fmt.Errorf("failed to update creator status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// UpdateCreatorRate sets a creator's commission rate. The new rate applies
// only to transactions created after the change; history keeps its copied
// rate.
func (s *Store) UpdateCreatorRate(ctx context.Context, id string, rate decimal.Decimal) error {
	return s.updateCreatorField(ctx, id, "commission_rate", rate.String())
}

// UpdateCreatorMinimumPayout sets a creator's minimum payout threshold
func (s *Store) UpdateCreatorMinimumPayout(ctx context.Context, id string, minimum decimal.Decimal) error {
	return s.updateCreatorField(ctx, id, "minimum_payout", minimum.String())
}

func (s *Store) updateCreatorField(ctx context.Context, id, column, value string) error {
	q := s.rebind(`UPDATE creators SET ` + column + ` = ? WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, q, value, id)
	if err != nil {
		return fmt.Errorf("failed to update creator %s: %w", column, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendCreatorNote appends to the creator's audit notes. Notes are
// append-only; existing text is never rewritten.
func (s *Store) AppendCreatorNote(ctx context.Context, id, note string) error {
	q := s.rebind(`UPDATE creators SET notes = notes || ? WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, q, note+"\n", id)
	if err != nil {
		return fmt.Errorf("failed to append creator note: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreatorFilter narrows ListCreators
type CreatorFilter struct {
	Status models.CreatorStatus
	Offset int
	Limit  int
}

// ListCreators returns a page of creators plus the unpaged total,
// newest first.
func (s *Store) ListCreators(ctx context.Context, f CreatorFilter) ([]models.Creator, int, error) {
	where := ""
	args := []any{}
	if f.Status != "" {
		where = ` WHERE status = ?`
		args = append(args, string(f.Status))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM creators`+where), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count creators: %w", err)
	}

	q := s.rebind(`SELECT ` + creatorColumns + ` FROM creators` + where +
		` ORDER BY created_at DESC LIMIT ? OFFSET ?`)
	rows, err := s.db.QueryContext(ctx, q, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list creators: %w", err)
	}
	defer rows.Close()

	var out []models.Creator
	for rows.Next() {
		c, err := scanCreator(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *c)
	}
	return out, total, rows.Err()
}

// AllCreatorIDs returns every creator id, for reconciliation sweeps
func (s *Store) AllCreatorIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM creators`)
	if err != nil {
		return nil, fmt.Errorf("failed to list creator ids: %w", err)
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

// SetCreatorAggregates overwrites the denormalized counters from
// authoritative recomputation
func (s *Store) SetCreatorAggregates(ctx context.Context, id string, clicks, sales int, commission decimal.Decimal, conversionRate float64) error {
	q := s.rebind(`UPDATE creators
		SET total_clicks = ?, total_sales = ?, total_commission = ?, conversion_rate = ?
		WHERE id = ?`)
	_, err := s.db.ExecContext(ctx, q, clicks, sales, commission.String(), conversionRate, id)
	if err != nil {
		return fmt.Errorf("failed to set creator aggregates: %w", err)
	}
	return nil
}

// IncCreatorClicks bumps the write-through click counter
func (s *Store) IncCreatorClicks(ctx context.Context, id string) error {
	q := s.rebind(`UPDATE creators SET total_clicks = total_clicks + 1 WHERE id = ?`)
	if _, err := s.db.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("failed to increment creator clicks: %w", err)
	}
	return nil
}
