// Package export renders creator data as spreadsheet workbooks for the
// bulk export action.
package export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/shiminize/creatorhub/pkg/commission"
	"github.com/shiminize/creatorhub/pkg/domain"
	"github.com/shiminize/creatorhub/pkg/store"
)

const sheetName = "Creators"

var headers = []string{
	"ID", "Display Name", "Email", "Status", "Tier",
	"Commission Rate (%)", "Minimum Payout", "Total Clicks",
	"Total Sales", "Total Commission", "Conversion Rate (%)", "Created At",
}

// Service builds creator exports
type Service struct {
	store *store.Store
}

// NewService creates a new export service
func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// Creators renders an XLSX workbook for the given creator ids. Unknown
// ids are skipped, matching the bulk-operation contract.
func (s *Service) Creators(ctx context.Context, creatorIDs []string) ([]byte, int, error) {
	revenue, err := s.store.TrailingRevenueByCreators(ctx, time.Now().UTC().Add(-30*24*time.Hour))
	if err != nil {
		return nil, 0, domain.NewInternalError(err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, 0, domain.NewInternalError(err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheetName, cell, h)
	}

	row := 2
	for _, id := range creatorIDs {
		c, err := s.store.GetCreator(ctx, id)
		if err != nil {
			continue
		}

		values := []any{
			c.ID, c.DisplayName, c.Email, string(c.Status),
			string(commission.ClassifyTier(revenue[c.ID])),
			c.CommissionRate.StringFixed(2), c.MinimumPayout.StringFixed(2),
			c.TotalClicks, c.TotalSales, c.TotalCommission.StringFixed(2),
			fmt.Sprintf("%.2f", c.ConversionRate),
			c.CreatedAt.Format(time.RFC3339),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(sheetName, cell, v)
		}
		row++
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, 0, domain.NewInternalError(err)
	}
	return buf.Bytes(), row - 2, nil
}
