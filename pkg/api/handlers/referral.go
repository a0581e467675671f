package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	apierrors "github.com/shiminize/creatorhub/pkg/api/errors"
	"github.com/shiminize/creatorhub/pkg/domain"
	"github.com/shiminize/creatorhub/pkg/metrics"
	"github.com/shiminize/creatorhub/pkg/tracking"
)

// Cookie names the storefront propagates back on conversion reports
const (
	SessionCookie = "ref_session"
	LinkCookie    = "ref_link"
)

// ReferralHandler handles the public referral redirect
type ReferralHandler struct {
	tracker       *tracking.Service
	metrics       *metrics.Metrics
	storefrontURL string
	sessionTTL    time.Duration
	linkTTL       time.Duration
}

// NewReferralHandler creates a new referral handler
func NewReferralHandler(tracker *tracking.Service, m *metrics.Metrics, storefrontURL string, sessionTTL, linkTTL time.Duration) *ReferralHandler {
	return &ReferralHandler{
		tracker:       tracker,
		metrics:       m,
		storefrontURL: storefrontURL,
		sessionTTL:    sessionTTL,
		linkTTL:       linkTTL,
	}
}

// Redirect godoc
// @Summary Follow a referral link
// @Description Records the click, sets attribution cookies, and redirects to the storefront
// @Tags Referrals
// @Param code path string true "Public link code"
// @Success 307
// @Failure 404 {object} models.ErrorResponse
// @Router /r/{code} [get]
func (h *ReferralHandler) Redirect(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sessionID := ""
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		sessionID = cookie.Value
	}

	result, err := h.tracker.Track(ctx, tracking.ClickInput{
		Code:      c.Param("code"),
		SessionID: sessionID,
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
		Referrer:  c.Request().Referer(),
	})
	if err != nil {
		if domain.IsLinkNotFound(err) {
			return apierrors.Domain(c, err)
		}
		return apierrors.Internal(c, err)
	}

	h.metrics.ClicksTracked.Inc()

	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    result.SessionID,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	c.SetCookie(&http.Cookie{
		Name:     LinkCookie,
		Value:    result.LinkID,
		Path:     "/",
		MaxAge:   int(h.linkTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	dest := h.storefrontURL
	if result.ProductID != "" {
		dest += "/products/" + result.ProductID
	}
	return c.Redirect(http.StatusTemporaryRedirect, dest)
}
