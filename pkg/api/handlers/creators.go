package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	apierrors "github.com/shiminize/creatorhub/pkg/api/errors"
	"github.com/shiminize/creatorhub/pkg/cache"
	"github.com/shiminize/creatorhub/pkg/creators"
	"github.com/shiminize/creatorhub/pkg/export"
	"github.com/shiminize/creatorhub/pkg/metrics"
	"github.com/shiminize/creatorhub/pkg/models"
)

const (
	listCacheKeyPrefix = "creators:list:"
	listCacheTTL       = 30 * time.Second
)

// CreatorHandler handles the admin creator surface
type CreatorHandler struct {
	creators  *creators.Service
	exporter  *export.Service
	cache     *cache.Client // optional
	metrics   *metrics.Metrics
	validator *validator.Validate
}

// NewCreatorHandler creates a new creator handler. cacheClient may be nil.
func NewCreatorHandler(creatorService *creators.Service, exporter *export.Service, cacheClient *cache.Client, m *metrics.Metrics) *CreatorHandler {
	return &CreatorHandler{
		creators:  creatorService,
		exporter:  exporter,
		cache:     cacheClient,
		metrics:   m,
		validator: validator.New(),
	}
}

// Apply godoc
// @Summary Apply to the creator program
// @Description Creates a pending creator with a default referral link
// @Tags Creators
// @Accept json
// @Produce json
// @Param request body models.ApplyRequest true "Application"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /creators/apply [post]
func (h *CreatorHandler) Apply(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var req models.ApplyRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.Validation(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return apierrors.Validation(c, err)
	}

	creator, link, err := h.creators.Apply(ctx, req)
	if err != nil {
		return apierrors.Domain(c, err)
	}

	h.invalidateListCache(ctx)
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"creator": creator,
		"link":    link,
	})
}

// List godoc
// @Summary List creators
// @Description Paginated creator list with aggregated stats; filterable by status, tier, and search
// @Tags Creators
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status (pending, approved, suspended, inactive)"
// @Param tier query string false "Filter by tier (bronze, silver, gold, platinum)"
// @Param search query string false "Match against display name and email"
// @Param page query int false "Page number (default: 1)"
// @Param limit query int false "Items per page (default: 50, max: 100)"
// @Success 200 {object} models.CreatorListResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /creators [get]
func (h *CreatorHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	f := creators.ListFilter{
		Status: models.CreatorStatus(c.QueryParam("status")),
		Tier:   models.Tier(c.QueryParam("tier")),
		Search: c.QueryParam("search"),
		Page:   page,
		Limit:  limit,
	}
	if f.Status != "" && !f.Status.Valid() {
		return apierrors.Validation(c, echo.NewHTTPError(http.StatusBadRequest, "unknown status"))
	}

	cacheKey := listCacheKeyPrefix + c.QueryString()
	if h.cache != nil {
		if cached, err := h.cache.Get(ctx, cacheKey); err == nil {
			return c.JSONBlob(http.StatusOK, []byte(cached))
		}
	}

	resp, err := h.creators.List(ctx, f)
	if err != nil {
		return apierrors.Domain(c, err)
	}

	if h.cache != nil {
		if body, err := json.Marshal(resp); err == nil {
			_ = h.cache.Set(ctx, cacheKey, body, listCacheTTL)
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// Bulk godoc
// @Summary Apply a bulk action to creators
// @Description One of approve, suspend, reactivate, update-commission-rate, update-minimum-payout, export.
// @Description Creators whose state makes the transition invalid are skipped; the batch never fails for one member.
// @Tags Creators
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.BulkRequest true "Bulk operation"
// @Success 200 {object} models.BulkResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /creators [put]
func (h *CreatorHandler) Bulk(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	var req models.BulkRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.Validation(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return apierrors.Validation(c, err)
	}

	h.metrics.BulkOperations.WithLabelValues(req.Action).Inc()

	if req.Action == models.BulkActionExport {
		workbook, count, err := h.exporter.Creators(ctx, req.CreatorIDs)
		if err != nil {
			return apierrors.Domain(c, err)
		}
		c.Response().Header().Set(echo.HeaderContentDisposition,
			`attachment; filename="creators-`+time.Now().Format("20060102-150405")+`.xlsx"`)
		c.Logger().Infof("exported %d creators", count)
		return c.Blob(http.StatusOK,
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", workbook)
	}

	result, err := h.creators.Bulk(ctx, req)
	if err != nil {
		return apierrors.Domain(c, err)
	}

	h.invalidateListCache(ctx)
	return c.JSON(http.StatusOK, result)
}

// Transition godoc
// @Summary Apply a status action to one creator
// @Description One of approve, suspend, reactivate, deactivate, reinstate.
// @Description reinstate (inactive back to approved) is only available here, never in bulk.
// @Tags Creators
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Creator ID"
// @Param request body models.TransitionRequest true "Status action"
// @Success 200 {object} models.Creator
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /creators/{id}/status [put]
func (h *CreatorHandler) Transition(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var req models.TransitionRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.Validation(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return apierrors.Validation(c, err)
	}

	creator, err := h.creators.Transition(ctx, c.Param("id"), creators.Action(req.Action), req.Note)
	if err != nil {
		return apierrors.Domain(c, err)
	}

	h.invalidateListCache(ctx)
	return c.JSON(http.StatusOK, creator)
}

// Stats godoc
// @Summary Get a creator's performance stats
// @Tags Creators
// @Produce json
// @Security BearerAuth
// @Param id path string true "Creator ID"
// @Success 200 {object} models.CreatorStats
// @Failure 404 {object} models.ErrorResponse
// @Router /creators/{id}/stats [get]
func (h *CreatorHandler) Stats(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	stats, err := h.creators.Stats(ctx, c.Param("id"))
	if err != nil {
		return apierrors.Domain(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *CreatorHandler) invalidateListCache(ctx context.Context) {
	if h.cache == nil {
		return
	}
	// Stale entries expire within listCacheTTL anyway.
	_ = h.cache.DeletePattern(ctx, listCacheKeyPrefix+"*")
}
