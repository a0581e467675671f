package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiminize/creatorhub/pkg/models"
	"github.com/shiminize/creatorhub/pkg/testdata"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open("sqlite3", "file:"+t.Name()+"?mode=memory&cache=shared&_fk=1",
		PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func seedCreator(t *testing.T, st *Store, status models.CreatorStatus) *models.Creator {
	t.Helper()
	c := testdata.NewCreator(status)
	require.NoError(t, st.InsertCreator(context.Background(), c))
	return c
}

func seedLink(t *testing.T, st *Store, creatorID string, active bool) *models.ReferralLink {
	t.Helper()
	l := testdata.NewLink(creatorID, active)
	require.NoError(t, st.InsertLink(context.Background(), l))
	return l
}

func seedTransaction(t *testing.T, st *Store, creatorID, linkID string, amount string, status models.TransactionStatus) *models.CommissionTransaction {
	t.Helper()
	ctx := context.Background()
	txn := &models.CommissionTransaction{
		ID:               uuid.NewString(),
		CreatorID:        creatorID,
		LinkID:           linkID,
		OrderID:          uuid.NewString(),
		OrderAmount:      decimal.RequireFromString(amount).Mul(decimal.NewFromInt(10)),
		CommissionRate:   decimal.NewFromInt(10),
		CommissionAmount: decimal.RequireFromString(amount),
		Status:           models.TransactionPending,
		CreatedAt:        time.Now().UTC(),
	}
	_, created, err := st.CreateAttributedConversion(ctx, txn, "session-"+txn.OrderID)
	require.NoError(t, err)
	require.True(t, created)

	if status != models.TransactionPending {
		ok, err := st.CompareAndSwapTransactionStatus(ctx, txn.ID, models.TransactionPending, status)
		require.NoError(t, err)
		require.True(t, ok)
		txn.Status = status
	}
	return txn
}

func TestMigrateIdempotent(t *testing.T) {
	st := newTestStore(t)
	// Running the schema a second time must be a no-op.
	require.NoError(t, st.Migrate(context.Background()))
}

func TestRebind(t *testing.T) {
	sqlite := &Store{driver: "sqlite3"}
	postgres := &Store{driver: "postgres"}

	q := `INSERT INTO x (a, b, c) VALUES (?, ?, ?)`
	assert.Equal(t, q, sqlite.rebind(q))
	assert.Equal(t, `INSERT INTO x (a, b, c) VALUES ($1, $2, $3)`, postgres.rebind(q))
}

func TestInsertCreator(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	t.Run("Success - Insert and read back", func(t *testing.T) {
		c := seedCreator(t, st, models.CreatorPending)

		got, err := st.GetCreator(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, c.Email, got.Email)
		assert.Equal(t, models.CreatorPending, got.Status)
		assert.True(t, c.CommissionRate.Equal(got.CommissionRate))
		assert.Nil(t, got.ApprovedAt)
	})

	t.Run("Failure - Duplicate email", func(t *testing.T) {
		c := seedCreator(t, st, models.CreatorPending)

		dup := testdata.NewCreator(models.CreatorPending)
		dup.Email = c.Email
		err := st.InsertCreator(ctx, dup)
		require.ErrorIs(t, err, ErrDuplicate)
		assert.Contains(t, err.Error(), "already registered")
	})

	t.Run("Failure - Unknown id", func(t *testing.T) {
		_, err := st.GetCreator(ctx, "no-such-id")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCompareAndSwapCreatorStatus(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	c := seedCreator(t, st, models.CreatorPending)
	now := time.Now().UTC()

	t.Run("Success - Guard matches", func(t *testing.T) {
		ok, err := st.CompareAndSwapCreatorStatus(ctx, c.ID,
			models.CreatorPending, models.CreatorApproved,
			&now, nil, false)
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := st.GetCreator(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, models.CreatorApproved, got.Status)
		assert.NotNil(t, got.ApprovedAt)
	})

	t.Run("Failure - Stale guard", func(t *testing.T) {
		// Status is approved now; a second approve from pending must lose.
		ok, err := st.CompareAndSwapCreatorStatus(ctx, c.ID,
			models.CreatorPending, models.CreatorApproved,
			&now, nil, false)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("ApprovedAt survives suspension", func(t *testing.T) {
		ok, err := st.CompareAndSwapCreatorStatus(ctx, c.ID,
			models.CreatorApproved, models.CreatorSuspended,
			nil, &now, false)
		require.NoError(t, err)
		require.True(t, ok)

		got, err := st.GetCreator(ctx, c.ID)
		require.NoError(t, err)
		assert.NotNil(t, got.ApprovedAt)
		assert.NotNil(t, got.SuspendedAt)
	})

	t.Run("SuspendedAt survives deactivation", func(t *testing.T) {
		ok, err := st.CompareAndSwapCreatorStatus(ctx, c.ID,
			models.CreatorSuspended, models.CreatorInactive,
			nil, nil, false)
		require.NoError(t, err)
		require.True(t, ok)

		got, err := st.GetCreator(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, models.CreatorInactive, got.Status)
		assert.NotNil(t, got.SuspendedAt)
	})

	t.Run("Reinstatement clears SuspendedAt", func(t *testing.T) {
		ok, err := st.CompareAndSwapCreatorStatus(ctx, c.ID,
			models.CreatorInactive, models.CreatorApproved,
			&now, nil, true)
		require.NoError(t, err)
		require.True(t, ok)

		got, err := st.GetCreator(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, models.CreatorApproved, got.Status)
		assert.Nil(t, got.SuspendedAt)
		assert.NotNil(t, got.ApprovedAt)
	})
}

func TestCreateAttributedConversion(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	c := seedCreator(t, st, models.CreatorApproved)
	l := seedLink(t, st, c.ID, true)

	txn := &models.CommissionTransaction{
		ID:               uuid.NewString(),
		CreatorID:        c.ID,
		LinkID:           l.ID,
		OrderID:          "order-1001",
		OrderAmount:      decimal.RequireFromString("125.99"),
		CommissionRate:   decimal.NewFromInt(10),
		CommissionAmount: decimal.RequireFromString("12.60"),
		Status:           models.TransactionPending,
		CreatedAt:        time.Now().UTC(),
	}

	t.Run("Success - First write", func(t *testing.T) {
		stored, created, err := st.CreateAttributedConversion(ctx, txn, "sess-1")
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, txn.ID, stored.ID)

		// Side effects committed atomically with the transaction row.
		link, err := st.GetLink(ctx, l.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, link.ConversionCount)

		creator, err := st.GetCreator(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, creator.TotalSales)
		assert.Equal(t, "12.60", creator.TotalCommission.StringFixed(2))

		ev, err := st.GetConversionEvent(ctx, "order-1001")
		require.NoError(t, err)
		assert.True(t, ev.Attributed)
		assert.Equal(t, txn.ID, ev.TransactionID)
	})

	t.Run("Duplicate order returns stored row unchanged", func(t *testing.T) {
		replay := *txn
		replay.ID = uuid.NewString()
		replay.OrderAmount = decimal.RequireFromString("999.99")
		replay.CommissionAmount = decimal.RequireFromString("100.00")

		stored, created, err := st.CreateAttributedConversion(ctx, &replay, "sess-1")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, txn.ID, stored.ID)
		assert.Equal(t, "125.99", stored.OrderAmount.StringFixed(2))

		// No second increment happened.
		link, err := st.GetLink(ctx, l.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, link.ConversionCount)
	})

	t.Run("Order already observed unattributed", func(t *testing.T) {
		created, err := st.InsertUnattributedEvent(ctx, &models.ConversionEvent{
			OrderID:     "order-2002",
			OrderAmount: decimal.RequireFromString("50.00"),
			SessionID:   "sess-2",
			CreatedAt:   time.Now().UTC(),
		})
		require.NoError(t, err)
		require.True(t, created)

		late := *txn
		late.ID = uuid.NewString()
		late.OrderID = "order-2002"
		_, _, err = st.CreateAttributedConversion(ctx, &late, "sess-2")
		assert.ErrorIs(t, err, ErrAlreadyObserved)
	})
}

func TestInsertUnattributedEvent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	ev := &models.ConversionEvent{
		OrderID:     "order-77",
		OrderAmount: decimal.RequireFromString("10.00"),
		SessionID:   "sess-77",
		CreatedAt:   time.Now().UTC(),
	}

	created, err := st.InsertUnattributedEvent(ctx, ev)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = st.InsertUnattributedEvent(ctx, ev)
	require.NoError(t, err)
	assert.False(t, created)

	got, err := st.GetConversionEvent(ctx, "order-77")
	require.NoError(t, err)
	assert.False(t, got.Attributed)
	assert.Empty(t, got.TransactionID)
}

func TestCompareAndSwapTransactionStatus(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	c := seedCreator(t, st, models.CreatorApproved)
	l := seedLink(t, st, c.ID, true)
	txn := seedTransaction(t, st, c.ID, l.ID, "15.00", models.TransactionPending)

	ok, err := st.CompareAndSwapTransactionStatus(ctx, txn.ID, models.TransactionPending, models.TransactionApproved)
	require.NoError(t, err)
	assert.True(t, ok)

	// Guard no longer matches.
	ok, err = st.CompareAndSwapTransactionStatus(ctx, txn.ID, models.TransactionPending, models.TransactionRejected)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := st.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionApproved, got.Status)
}

func TestSumApprovedByCreator(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	c := seedCreator(t, st, models.CreatorApproved)
	l := seedLink(t, st, c.ID, true)

	seedTransaction(t, st, c.ID, l.ID, "25.50", models.TransactionApproved)
	seedTransaction(t, st, c.ID, l.ID, "50.00", models.TransactionApproved)
	seedTransaction(t, st, c.ID, l.ID, "99.99", models.TransactionPending)
	seedTransaction(t, st, c.ID, l.ID, "11.11", models.TransactionRejected)

	sum, ids, err := st.SumApprovedByCreator(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "75.50", sum.StringFixed(2))
	assert.Len(t, ids, 2)
}

func TestClaimPayout(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	c := seedCreator(t, st, models.CreatorApproved)
	l := seedLink(t, st, c.ID, true)

	t.Run("Failure - Below minimum", func(t *testing.T) {
		seedTransaction(t, st, c.ID, l.ID, "40.00", models.TransactionApproved)

		p := &models.CreatorPayout{ID: uuid.NewString(), CreatorID: c.ID, PayoutDate: time.Now().UTC()}
		err := st.ClaimPayout(ctx, p, decimal.NewFromInt(50))

		var notEligible *NotEligibleError
		require.ErrorAs(t, err, &notEligible)
		assert.Equal(t, "40.00", notEligible.Available.StringFixed(2))
		assert.Equal(t, "50.00", notEligible.Minimum.StringFixed(2))
	})

	t.Run("Success - Claims every approved transaction", func(t *testing.T) {
		seedTransaction(t, st, c.ID, l.ID, "35.50", models.TransactionApproved)

		p := &models.CreatorPayout{ID: uuid.NewString(), CreatorID: c.ID, PayoutDate: time.Now().UTC()}
		require.NoError(t, st.ClaimPayout(ctx, p, decimal.NewFromInt(50)))

		assert.Equal(t, "75.50", p.Amount.StringFixed(2))
		assert.Len(t, p.TransactionIDs, 2)
		assert.Equal(t, models.PayoutPending, p.Status)

		for _, id := range p.TransactionIDs {
			txn, err := st.GetTransaction(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, models.TransactionPaid, txn.Status)
		}

		got, err := st.GetPayout(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "75.50", got.Amount.StringFixed(2))
		assert.ElementsMatch(t, p.TransactionIDs, got.TransactionIDs)
	})

	t.Run("Second claim finds empty balance", func(t *testing.T) {
		p := &models.CreatorPayout{ID: uuid.NewString(), CreatorID: c.ID, PayoutDate: time.Now().UTC()}
		err := st.ClaimPayout(ctx, p, decimal.NewFromInt(50))

		var notEligible *NotEligibleError
		require.ErrorAs(t, err, &notEligible)
		assert.Equal(t, "0.00", notEligible.Available.StringFixed(2))
	})
}

func TestSetPayoutOutcome(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	c := seedCreator(t, st, models.CreatorApproved)
	l := seedLink(t, st, c.ID, true)
	seedTransaction(t, st, c.ID, l.ID, "60.00", models.TransactionApproved)

	p := &models.CreatorPayout{ID: uuid.NewString(), CreatorID: c.ID, PayoutDate: time.Now().UTC()}
	require.NoError(t, st.ClaimPayout(ctx, p, decimal.NewFromInt(50)))

	require.NoError(t, st.SetPayoutOutcome(ctx, p.ID, models.PayoutCompleted, "tr_123", ""))

	got, err := st.GetPayout(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutCompleted, got.Status)
	assert.Equal(t, "tr_123", got.GatewayRef)

	assert.ErrorIs(t, st.SetPayoutOutcome(ctx, "no-such-payout", models.PayoutFailed, "", "x"), ErrNotFound)
}

func TestLatestAttributableClick(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	c := seedCreator(t, st, models.CreatorApproved)
	active := seedLink(t, st, c.ID, true)
	inactive := seedLink(t, st, c.ID, false)

	now := time.Now().UTC()
	session := "sess-click"

	require.NoError(t, st.InsertClick(ctx, testdata.NewClick(active, session, now.Add(-2*time.Hour))))
	require.NoError(t, st.InsertClick(ctx, testdata.NewClick(active, session, now.Add(-time.Hour))))
	// Most recent click is on an inactive link and must not win.
	require.NoError(t, st.InsertClick(ctx, testdata.NewClick(inactive, session, now.Add(-time.Minute))))

	click, err := st.LatestAttributableClick(ctx, session, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, active.ID, click.LinkID)
	assert.WithinDuration(t, now.Add(-time.Hour), click.ClickedAt, time.Second)

	t.Run("Cutoff excludes old clicks", func(t *testing.T) {
		_, err := st.LatestAttributableClick(ctx, session, now.Add(-time.Minute))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Unknown session", func(t *testing.T) {
		_, err := st.LatestAttributableClick(ctx, "nobody", now.Add(-24*time.Hour))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Last click wins within the same second", func(t *testing.T) {
		base := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
		session := "sess-subsecond"
		earlier := testdata.NewClick(active, session, base.Add(100*time.Millisecond))
		later := testdata.NewClick(active, session, base.Add(120*time.Millisecond))
		require.NoError(t, st.InsertClick(ctx, earlier))
		require.NoError(t, st.InsertClick(ctx, later))

		click, err := st.LatestAttributableClick(ctx, session, base.Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, later.ID, click.ID)
	})

	t.Run("Fractional click inside a whole-second cutoff attributes", func(t *testing.T) {
		base := time.Date(2026, 5, 4, 13, 0, 0, 0, time.UTC)
		session := "sess-fraction"
		click := testdata.NewClick(active, session, base.Add(500*time.Millisecond))
		require.NoError(t, st.InsertClick(ctx, click))

		got, err := st.LatestAttributableClick(ctx, session, base)
		require.NoError(t, err)
		assert.Equal(t, click.ID, got.ID)
	})
}

func TestTimeEncodingOrder(t *testing.T) {
	base := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	times := []time.Time{
		base,
		base.Add(100 * time.Millisecond),
		base.Add(120 * time.Millisecond),
		base.Add(time.Second),
		base.Add(time.Second + time.Nanosecond),
	}
	// Stored TEXT must sort the way the timestamps do, since range scans
	// and ORDER BY compare the strings.
	for i := 1; i < len(times); i++ {
		assert.Less(t, fmtTime(times[i-1]), fmtTime(times[i]))
	}
}

func TestSetLinksActiveForCreator(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	c := seedCreator(t, st, models.CreatorApproved)
	l1 := seedLink(t, st, c.ID, true)
	l2 := seedLink(t, st, c.ID, true)
	other := seedCreator(t, st, models.CreatorApproved)
	l3 := seedLink(t, st, other.ID, true)

	n, err := st.SetLinksActiveForCreator(ctx, c.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, id := range []string{l1.ID, l2.ID} {
		link, err := st.GetLink(ctx, id)
		require.NoError(t, err)
		assert.False(t, link.IsActive)
	}

	// The other creator's link is untouched.
	link, err := st.GetLink(ctx, l3.ID)
	require.NoError(t, err)
	assert.True(t, link.IsActive)
}
