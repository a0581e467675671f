package handlers

import (
	"context"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/shiminize/creatorhub/pkg/attribution"
	"github.com/shiminize/creatorhub/pkg/creators"
	"github.com/shiminize/creatorhub/pkg/export"
	"github.com/shiminize/creatorhub/pkg/ledger"
	"github.com/shiminize/creatorhub/pkg/links"
	"github.com/shiminize/creatorhub/pkg/logger"
	"github.com/shiminize/creatorhub/pkg/metrics"
	"github.com/shiminize/creatorhub/pkg/payout"
	"github.com/shiminize/creatorhub/pkg/store"
)

// testMetrics is shared across the package: metrics register against the
// default Prometheus registry, which tolerates exactly one registration
// per process.
var testMetrics = metrics.New()

// fixture wires the full service stack over an in-memory database
type fixture struct {
	store    *store.Store
	links    *links.Service
	ledger   *ledger.Service
	creators *creators.Service
	payouts  *payout.Service
	export   *export.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.Open("sqlite3", "file:"+t.Name()+"?mode=memory&cache=shared&_fk=1",
		store.PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	log := logger.NewNop()
	linkService := links.NewService(st)
	resolver := attribution.NewResolver(st, 30*24*time.Hour)

	return &fixture{
		store:    st,
		links:    linkService,
		ledger:   ledger.NewService(st, resolver, log),
		creators: creators.NewService(st, linkService, log, decimal.NewFromInt(10), decimal.NewFromInt(50)),
		payouts:  payout.NewService(st, payout.NopGateway{}, log),
		export:   export.NewService(st),
	}
}
