package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	apierrors "github.com/shiminize/creatorhub/pkg/api/errors"
	"github.com/shiminize/creatorhub/pkg/domain"
	"github.com/shiminize/creatorhub/pkg/ledger"
	"github.com/shiminize/creatorhub/pkg/metrics"
	"github.com/shiminize/creatorhub/pkg/models"
)

// ConversionHandler handles storefront conversion reports
type ConversionHandler struct {
	ledger    *ledger.Service
	metrics   *metrics.Metrics
	validator *validator.Validate
}

// NewConversionHandler creates a new conversion handler
func NewConversionHandler(ledgerService *ledger.Service, m *metrics.Metrics) *ConversionHandler {
	return &ConversionHandler{
		ledger:    ledgerService,
		metrics:   m,
		validator: validator.New(),
	}
}

// Record godoc
// @Summary Report an order conversion
// @Description Attributes the order and records the commission; idempotent on orderId.
// @Description An unattributed conversion is a business outcome, not a request error — the response is still 200.
// @Tags Conversions
// @Accept json
// @Produce json
// @Param request body models.ConversionRequest true "Conversion report"
// @Success 200 {object} models.ConversionResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /conversions [post]
func (h *ConversionHandler) Record(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var req models.ConversionRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.Validation(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return apierrors.Validation(c, err)
	}

	out, err := h.ledger.RecordConversion(ctx, req.OrderID, req.OrderAmount, req.SessionID)
	if err != nil {
		if domain.IsValidation(err) {
			return apierrors.Domain(c, err)
		}
		return apierrors.Internal(c, err)
	}

	switch {
	case out.Duplicate:
		h.metrics.ConversionsRecorded.WithLabelValues("duplicate").Inc()
	case out.Unattributed:
		h.metrics.ConversionsRecorded.WithLabelValues("unattributed").Inc()
	default:
		h.metrics.ConversionsRecorded.WithLabelValues("attributed").Inc()
	}

	// The caller never needs to distinguish "recorded" from "already
	// recorded"; both are success.
	if out.Unattributed {
		return c.JSON(http.StatusOK, models.ConversionResponse{Unattributed: true})
	}
	return c.JSON(http.StatusOK, models.ConversionResponse{Transaction: out.Transaction})
}
