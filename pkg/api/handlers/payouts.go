package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	apierrors "github.com/shiminize/creatorhub/pkg/api/errors"
	"github.com/shiminize/creatorhub/pkg/metrics"
	"github.com/shiminize/creatorhub/pkg/payout"
)

// PayoutHandler handles payout creation for creators
type PayoutHandler struct {
	payouts *payout.Service
	metrics *metrics.Metrics
}

func NewPayoutHandler(payoutService *payout.Service, m *metrics.Metrics) *PayoutHandler {
	return &PayoutHandler{payouts: payoutService, metrics: m}
}

// Create godoc
// @Summary Create a payout for a creator
// @Description Claims every approved transaction for the creator into a single payout.
// @Description Fails with PAYOUT_NOT_ELIGIBLE when the approved balance is below the creator's minimum.
// @Tags Payouts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Creator ID"
// @Success 201 {object} models.CreatorPayout
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /creators/{id}/payout [post]
func (h *PayoutHandler) Create(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	p, err := h.payouts.Create(ctx, c.Param("id"))
	if err != nil {
		return apierrors.Domain(c, err)
	}

	h.metrics.PayoutsCreated.WithLabelValues(string(p.Status)).Inc()
	return c.JSON(http.StatusCreated, p)
}
