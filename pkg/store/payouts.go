package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/shiminize/creatorhub/pkg/models"
)

// ClaimPayout atomically claims every transaction that is approved at
// claim time and writes the payout row. The caller fills p with identity,
// payment details and date; Amount and TransactionIDs are computed here.
//
// The guarded read the concurrency model requires: each claimed row is
// flipped approved -> paid with a compare-and-swap, all inside one
// database transaction. If any row was already claimed by a concurrent
// payout, the whole claim rolls back with ErrConcurrentClaim and the
// caller re-evaluates against the smaller remaining balance.
func (s *Store) ClaimPayout(ctx context.Context, p *models.CreatorPayout, minimum decimal.Decimal) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin payout claim: %w", err)
	}
	defer tx.Rollback()

	q := s.rebind(`SELECT id, commission_amount FROM commission_transactions
		WHERE creator_id = ? AND status = 'approved' ORDER BY created_at`)
	rows, err := tx.QueryContext(ctx, q, p.CreatorID)
	if err != nil {
		return fmt.Errorf("failed to read approved transactions: %w", err)
	}

	var (
		ids []string
		sum = decimal.Zero
	)
	for rows.Next() {
		var id, amount string
		if err := rows.Scan(&id, &amount); err != nil {
			rows.Close()
			return err
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			rows.Close()
			return fmt.Errorf("bad stored commission amount: %w", err)
		}
		ids = append(ids, id)
		sum = sum.Add(d)
	}
	if err := rows.Close(); err != nil {
		return err
	}

	if sum.LessThan(minimum) {
		return &NotEligibleError{Available: sum, Minimum: minimum}
	}

	cas := s.rebind(`UPDATE commission_transactions SET status = 'paid'
		WHERE id = ? AND status = 'approved'`)
	for _, id := range ids {
		res, err := tx.ExecContext(ctx, cas, id)
		if err != nil {
			return fmt.Errorf("failed to claim transaction: %w", err)
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return ErrConcurrentClaim
		}
	}

	idsJSON, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to encode transaction ids: %w", err)
	}

	ins := s.rebind(`INSERT INTO creator_payouts
		(id, creator_id, amount, transaction_ids, payment_method, payment_details,
		 status, gateway_ref, failure_reason, payout_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, '', '', ?)`)
	_, err = tx.ExecContext(ctx, ins,
		p.ID, p.CreatorID, sum.String(), string(idsJSON),
		p.PaymentMethod, p.PaymentDetails, string(models.PayoutPending), fmtTime(p.PayoutDate))
	if err != nil {
		return fmt.Errorf("failed to insert payout: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit payout claim: %w", err)
	}

	p.Amount = sum
	p.TransactionIDs = ids
	p.Status = models.PayoutPending
	return nil
}

// NotEligibleError reports an insufficient approved balance at claim time
type NotEligibleError struct {
	Available decimal.Decimal
	Minimum   decimal.Decimal
}

func (e *NotEligibleError) Error() string {
	return fmt.Sprintf("store: approved balance %s below minimum %s", e.Available, e.Minimum)
}

// SetPayoutOutcome records the gateway result for a payout
func (s *Store) SetPayoutOutcome(ctx context.Context, id string, status models.PayoutStatus, gatewayRef, failureReason string) error {
	q := s.rebind(`UPDATE creator_payouts
		SET status = ?, gateway_ref = ?, failure_reason = ?
		WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, q, string(status), gatewayRef, failureReason, id)
	if err != nil {
		return fmt.Errorf("failed to set payout outcome: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

const payoutColumns = `id, creator_id, amount, transaction_ids, payment_method,
	payment_details, status, gateway_ref, failure_reason, payout_date`

func scanPayout(row interface{ Scan(...any) error }) (*models.CreatorPayout, error) {
	var (
		p                       models.CreatorPayout
		amount, idsJSON, status string
		payoutDate              string
	)
	err := row.Scan(&p.ID, &p.CreatorID, &amount, &idsJSON, &p.PaymentMethod,
		&p.PaymentDetails, &status, &p.GatewayRef, &p.FailureReason, &payoutDate)
	if err != nil {
		return nil, err
	}
	p.Status = models.PayoutStatus(status)
	if p.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("bad stored payout amount: %w", err)
	}
	if err = json.Unmarshal([]byte(idsJSON), &p.TransactionIDs); err != nil {
		return nil, fmt.Errorf("bad stored transaction ids: %w", err)
	}
	if p.PayoutDate, err = parseTime(payoutDate); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPayout fetches a payout by id
func (s *Store) GetPayout(ctx context.Context, id string) (*models.CreatorPayout, error) {
	q := s.rebind(`SELECT ` + payoutColumns + ` FROM creator_payouts WHERE id = ?`)
	p, err := scanPayout(s.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payout: %w", err)
	}
	return p, nil
}

// ListPayoutsByCreator returns a creator's payouts, newest first
func (s *Store) ListPayoutsByCreator(ctx context.Context, creatorID string) ([]models.CreatorPayout, error) {
	q := s.rebind(`SELECT ` + payoutColumns + ` FROM creator_payouts
		WHERE creator_id = ? ORDER BY payout_date DESC`)
	rows, err := s.db.QueryContext(ctx, q, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payouts: %w", err)
	}
	defer rows.Close()

	var out []models.CreatorPayout
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}
