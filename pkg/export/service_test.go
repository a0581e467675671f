package export

import (
	"bytes"
	"context"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/shiminize/creatorhub/pkg/models"
	"github.com/shiminize/creatorhub/pkg/store"
	"github.com/shiminize/creatorhub/pkg/testdata"
)

func setupExport(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	st, err := store.Open("sqlite3", "file:"+t.Name()+"?mode=memory&cache=shared&_fk=1",
		store.PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return NewService(st), st
}

func TestCreatorsExport(t *testing.T) {
	svc, st := setupExport(t)
	ctx := context.Background()

	c1 := testdata.NewCreator(models.CreatorApproved)
	c2 := testdata.NewCreator(models.CreatorPending)
	require.NoError(t, st.InsertCreator(ctx, c1))
	require.NoError(t, st.InsertCreator(ctx, c2))

	workbook, count, err := svc.Creators(ctx, []string{c1.ID, "unknown-id", c2.ID})
	require.NoError(t, err)
	// Unknown ids are skipped, not failed.
	assert.Equal(t, 2, count)

	f, err := excelize.OpenReader(bytes.NewReader(workbook))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Creators")
	require.NoError(t, err)
	require.Len(t, rows, 3) // header + 2 creators

	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "Tier", rows[0][4])
	assert.Equal(t, c1.ID, rows[1][0])
	assert.Equal(t, c1.Email, rows[1][2])
	assert.Equal(t, "approved", rows[1][3])
	assert.Equal(t, "bronze", rows[1][4])
	assert.Equal(t, c2.ID, rows[2][0])
}

func TestCreatorsExportEmpty(t *testing.T) {
	svc, _ := setupExport(t)

	workbook, count, err := svc.Creators(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, count)

	f, err := excelize.OpenReader(bytes.NewReader(workbook))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Creators")
	require.NoError(t, err)
	require.Len(t, rows, 1) // header only
}
