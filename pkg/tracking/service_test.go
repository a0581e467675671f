package tracking

import (
	"context"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiminize/creatorhub/pkg/domain"
	"github.com/shiminize/creatorhub/pkg/links"
	"github.com/shiminize/creatorhub/pkg/logger"
	"github.com/shiminize/creatorhub/pkg/models"
	"github.com/shiminize/creatorhub/pkg/store"
	"github.com/shiminize/creatorhub/pkg/testdata"
)

func setupTracking(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	st, err := store.Open("sqlite3", "file:"+t.Name()+"?mode=memory&cache=shared&_fk=1",
		store.PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	return NewService(st, links.NewService(st), logger.NewNop()), st
}

func seedLink(t *testing.T, st *store.Store, active bool) *models.ReferralLink {
	t.Helper()
	ctx := context.Background()
	c := testdata.NewCreator(models.CreatorApproved)
	require.NoError(t, st.InsertCreator(ctx, c))
	l := testdata.NewLink(c.ID, active)
	require.NoError(t, st.InsertLink(ctx, l))
	return l
}

func TestTrack(t *testing.T) {
	svc, st := setupTracking(t)
	ctx := context.Background()
	link := seedLink(t, st, true)

	t.Run("Success - New visitor gets a session", func(t *testing.T) {
		result, err := svc.Track(ctx, ClickInput{
			Code:      link.Code,
			IPAddress: "10.0.0.1",
			UserAgent: "test-agent",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, result.SessionID)
		assert.Equal(t, link.ID, result.LinkID)
		assert.Equal(t, link.ID, result.Click.LinkID)
		assert.Equal(t, link.CreatorID, result.Click.CreatorID)

		// Write-through counters bumped.
		got, err := st.GetLink(ctx, link.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.ClickCount)
	})

	t.Run("Success - Returning visitor keeps the session", func(t *testing.T) {
		result, err := svc.Track(ctx, ClickInput{Code: link.Code, SessionID: "sess-keep"})
		require.NoError(t, err)
		assert.Equal(t, "sess-keep", result.SessionID)
	})

	t.Run("Failure - Unknown code records nothing", func(t *testing.T) {
		_, err := svc.Track(ctx, ClickInput{Code: "missing"})
		require.Error(t, err)
		assert.Equal(t, domain.ErrCodeLinkNotFound, domain.GetErrorCode(err))
	})
}

func TestTrackInactiveLink(t *testing.T) {
	svc, st := setupTracking(t)
	ctx := context.Background()
	link := seedLink(t, st, false)

	// The click is recorded for analytics but the caller still gets
	// LINK_NOT_FOUND so no cookies are issued.
	_, err := svc.Track(ctx, ClickInput{Code: link.Code, SessionID: "sess-dead"})
	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeLinkNotFound, domain.GetErrorCode(err))

	n, err := st.CountClicksByLink(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
