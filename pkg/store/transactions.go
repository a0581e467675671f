package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shiminize/creatorhub/pkg/models"
)

// ErrAlreadyObserved is returned when a conversion write raced with
// another report for the same order; the caller re-reads the stored
// outcome.
var ErrAlreadyObserved = errors.New("store: order already observed")

const transactionColumns = `id, creator_id, link_id, order_id, order_amount,
	commission_rate, commission_amount, status, created_at`

func scanTransaction(row interface{ Scan(...any) error }) (*models.CommissionTransaction, error) {
	var (
		t                     models.CommissionTransaction
		amount, rate, commiss string
		status, createdAt     string
	)
	err := row.Scan(&t.ID, &t.CreatorID, &t.LinkID, &t.OrderID,
		&amount, &rate, &commiss, &status, &createdAt)
	if err != nil {
		return nil, err
	}
	t.Status = models.TransactionStatus(status)
	if t.OrderAmount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("bad stored order amount: %w", err)
	}
	if t.CommissionRate, err = decimal.NewFromString(rate); err != nil {
		return nil, fmt.Errorf("bad stored commission rate: %w", err)
	}
	if t.CommissionAmount, err = decimal.NewFromString(commiss); err != nil {
		return nil, fmt.Errorf("bad stored commission amount: %w", err)
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTransaction fetches a transaction by id
func (s *Store) GetTransaction(ctx context.Context, id string) (*models.CommissionTransaction, error) {
	q := s.rebind(`SELECT ` + transactionColumns + ` FROM commission_transactions WHERE id = ?`)
	t, err := scanTransaction(s.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

// GetTransactionByOrderID fetches the (at most one) transaction for an order
func (s *Store) GetTransactionByOrderID(ctx context.Context, orderID string) (*models.CommissionTransaction, error) {
	q := s.rebind(`SELECT ` + transactionColumns + ` FROM commission_transactions WHERE order_id = ?`)
	t, err := scanTransaction(s.db.QueryRowContext(ctx, q, orderID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction by order: %w", err)
	}
	return t, nil
}

// CreateAttributedConversion writes, in one database transaction: the
// commission transaction, its conversion event, the link conversion-count
// increment, and the creator aggregate bump. Either all of them happen or
// none does.
//
// A unique violation on order_id means a concurrent report won the first
// write; the stored row is fetched and returned unchanged with
// created=false.
func (s *Store) CreateAttributedConversion(ctx context.Context, t *models.CommissionTransaction, sessionID string) (*models.CommissionTransaction, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insTxn := s.rebind(`INSERT INTO commission_transactions (` + transactionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = tx.ExecContext(ctx, insTxn,
		t.ID, t.CreatorID, t.LinkID, t.OrderID,
		t.OrderAmount.String(), t.CommissionRate.String(), t.CommissionAmount.String(),
		string(t.Status), fmtTime(t.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			tx.Rollback()
			existing, gerr := s.GetTransactionByOrderID(ctx, t.OrderID)
			if gerr != nil {
				return nil, false, fmt.Errorf("duplicate order but fetch failed: %w", gerr)
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("failed to insert transaction: %w", err)
	}

	insEvent := s.rebind(`INSERT INTO conversion_events
		(order_id, order_amount, session_id, attributed, transaction_id, created_at)
		VALUES (?, ?, ?, 1, ?, ?)`)
	if _, err = tx.ExecContext(ctx, insEvent,
		t.OrderID, t.OrderAmount.String(), sessionID, t.ID, fmtTime(t.CreatedAt)); err != nil {
		if isUniqueViolation(err) {
			// Raced with an unattributed observation for the same order.
			return nil, false, ErrAlreadyObserved
		}
		return nil, false, fmt.Errorf("failed to insert conversion event: %w", err)
	}

	// conversionCount increases only here, when the transaction is
	// actually created against the link.
	incLink := s.rebind(`UPDATE referral_links SET conversion_count = conversion_count + 1 WHERE id = ?`)
	if _, err = tx.ExecContext(ctx, incLink, t.LinkID); err != nil {
		return nil, false, fmt.Errorf("failed to increment conversion count: %w", err)
	}

	var totalC string
	selTotal := s.rebind(`SELECT total_commission FROM creators WHERE id = ?`)
	if err = tx.QueryRowContext(ctx, selTotal, t.CreatorID).Scan(&totalC); err != nil {
		return nil, false, fmt.Errorf("failed to read creator totals: %w", err)
	}
	prev, err := decimal.NewFromString(totalC)
	if err != nil {
		return nil, false, fmt.Errorf("bad stored total commission: %w", err)
	}
	updCreator := s.rebind(`UPDATE creators
		SET total_sales = total_sales + 1, total_commission = ?
		WHERE id = ?`)
	if _, err = tx.ExecContext(ctx, updCreator, prev.Add(t.CommissionAmount).String(), t.CreatorID); err != nil {
		return nil, false, fmt.Errorf("failed to update creator totals: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit conversion: %w", err)
	}
	return t, true, nil
}

// InsertUnattributedEvent records a no-commission observation for an
// order. Idempotent on order_id: created=false means the order was
// already observed.
func (s *Store) InsertUnattributedEvent(ctx context.Context, ev *models.ConversionEvent) (bool, error) {
	q := s.rebind(`INSERT INTO conversion_events
		(order_id, order_amount, session_id, attributed, transaction_id, created_at)
		VALUES (?, ?, ?, 0, '', ?)`)
	_, err := s.db.ExecContext(ctx, q,
		ev.OrderID, ev.OrderAmount.String(), ev.SessionID, fmtTime(ev.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert conversion event: %w", err)
	}
	return true, nil
}

// GetConversionEvent fetches the observation row for an order
func (s *Store) GetConversionEvent(ctx context.Context, orderID string) (*models.ConversionEvent, error) {
	q := s.rebind(`SELECT order_id, order_amount, session_id, attributed, transaction_id, created_at
		FROM conversion_events WHERE order_id = ?`)

	var (
		ev         models.ConversionEvent
		amount     string
		attributed int
		createdAt  string
	)
	err := s.db.QueryRowContext(ctx, q, orderID).
		Scan(&ev.OrderID, &amount, &ev.SessionID, &attributed, &ev.TransactionID, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversion event: %w", err)
	}
	ev.Attributed = attributed != 0
	if ev.OrderAmount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("bad stored order amount: %w", err)
	}
	if ev.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &ev, nil
}

// CompareAndSwapTransactionStatus transitions a transaction's status only
// if it still has the expected status
func (s *Store) CompareAndSwapTransactionStatus(ctx context.Context, id string, expected, next models.TransactionStatus) (bool, error) {
	q := s.rebind(`UPDATE commission_transactions SET status = ? WHERE id = ? AND status = ?`)
	res, err := s.db.ExecContext(ctx, q, string(next), id, string(expected))
	if err != nil {
		return false, fmt.Errorf("failed to update transaction status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ApprovedTransactionsByCreator returns the creator's approved, unpaid
// transactions, oldest first
func (s *Store) ApprovedTransactionsByCreator(ctx context.Context, creatorID string) ([]models.CommissionTransaction, error) {
	q := s.rebind(`SELECT ` + transactionColumns + ` FROM commission_transactions
		WHERE creator_id = ? AND status = 'approved' ORDER BY created_at`)
	rows, err := s.db.QueryContext(ctx, q, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list approved transactions: %w", err)
	}
	defer rows.Close()

	var out []models.CommissionTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// SumApprovedByCreator sums the creator's approved, unpaid commission
// amounts exactly
func (s *Store) SumApprovedByCreator(ctx context.Context, creatorID string) (decimal.Decimal, []string, error) {
	txns, err := s.ApprovedTransactionsByCreator(ctx, creatorID)
	if err != nil {
		return decimal.Zero, nil, err
	}
	sum := decimal.Zero
	ids := make([]string, 0, len(txns))
	for _, t := range txns {
		sum = sum.Add(t.CommissionAmount)
		ids = append(ids, t.ID)
	}
	return sum, ids, nil
}

// SumEarningsByStatus returns the creator's commission totals keyed by
// transaction status
func (s *Store) SumEarningsByStatus(ctx context.Context, creatorID string) (map[models.TransactionStatus]decimal.Decimal, error) {
	q := s.rebind(`SELECT status, commission_amount FROM commission_transactions WHERE creator_id = ?`)
	rows, err := s.db.QueryContext(ctx, q, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum earnings: %w", err)
	}
	defer rows.Close()

	out := map[models.TransactionStatus]decimal.Decimal{}
	for rows.Next() {
		var status, amount string
		if err := rows.Scan(&status, &amount); err != nil {
			return nil, err
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("bad stored commission amount: %w", err)
		}
		st := models.TransactionStatus(status)
		out[st] = out[st].Add(d)
	}
	return out, rows.Err()
}

// TrailingRevenueByCreator sums approved and paid order amounts since the
// cutoff, for tier classification
func (s *Store) TrailingRevenueByCreator(ctx context.Context, creatorID string, since time.Time) (decimal.Decimal, error) {
	q := s.rebind(`SELECT order_amount FROM commission_transactions
		WHERE creator_id = ? AND status IN ('approved', 'paid') AND created_at >= ?`)
	rows, err := s.db.QueryContext(ctx, q, creatorID, fmtTime(since))
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum trailing revenue: %w", err)
	}
	defer rows.Close()

	sum := decimal.Zero
	for rows.Next() {
		var amount string
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, err
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return decimal.Zero, fmt.Errorf("bad stored order amount: %w", err)
		}
		sum = sum.Add(d)
	}
	return sum, rows.Err()
}

// TrailingRevenueByCreators computes trailing revenue for every creator in
// one pass, for the admin list
func (s *Store) TrailingRevenueByCreators(ctx context.Context, since time.Time) (map[string]decimal.Decimal, error) {
	q := s.rebind(`SELECT creator_id, order_amount FROM commission_transactions
		WHERE status IN ('approved', 'paid') AND created_at >= ?`)
	rows, err := s.db.QueryContext(ctx, q, fmtTime(since))
	if err != nil {
		return nil, fmt.Errorf("failed to sum trailing revenue: %w", err)
	}
	defer rows.Close()

	out := map[string]decimal.Decimal{}
	for rows.Next() {
		var creatorID, amount string
		if err := rows.Scan(&creatorID, &amount); err != nil {
			return nil, err
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("bad stored order amount: %w", err)
		}
		out[creatorID] = out[creatorID].Add(d)
	}
	return out, rows.Err()
}

// CountConversionsByLink recomputes a link's conversion count from the ledger
func (s *Store) CountConversionsByLink(ctx context.Context, linkID string) (int, error) {
	var n int
	q := s.rebind(`SELECT COUNT(*) FROM commission_transactions WHERE link_id = ?`)
	if err := s.db.QueryRowContext(ctx, q, linkID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count conversions for link: %w", err)
	}
	return n, nil
}

// LedgerTotalsByCreator recomputes a creator's sale count and commission
// total from non-rejected ledger entries
func (s *Store) LedgerTotalsByCreator(ctx context.Context, creatorID string) (int, decimal.Decimal, error) {
	q := s.rebind(`SELECT commission_amount FROM commission_transactions
		WHERE creator_id = ? AND status != 'rejected'`)
	rows, err := s.db.QueryContext(ctx, q, creatorID)
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("failed to read ledger totals: %w", err)
	}
	defer rows.Close()

	count := 0
	sum := decimal.Zero
	for rows.Next() {
		var amount string
		if err := rows.Scan(&amount); err != nil {
			return 0, decimal.Zero, err
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return 0, decimal.Zero, fmt.Errorf("bad stored commission amount: %w", err)
		}
		count++
		sum = sum.Add(d)
	}
	return count, sum, rows.Err()
}
