package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aydrian/tabnine-charity-activations/internal/service"
)

// PublicHandler serves the unauthenticated attendee surface: the donate form
// data, the donation post, the confirmation page, and the dashboard.
type PublicHandler struct {
	Donations     *service.DonationService
	Dashboards    *service.DashboardService
	Confirmations *service.ConfirmationService
	Logger        *zap.Logger
}

func (h *PublicHandler) Register(r *gin.Engine) {
	r.GET("/donate/:eventId", h.donateForm)
	r.POST("/resources/donate", h.donate)
	r.GET("/donated/:donationId", h.donated)
	r.GET("/dashboard/:slug", h.dashboard)
}

// @Summary Donate form data
// @Tags public
// @Param eventId path string true "event id"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /donate/{eventId} [get]
func (h *PublicHandler) donateForm(c *gin.Context) {
	if h.Dashboards == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	form, err := h.Dashboards.DonateForm(c.Request.Context(), strings.TrimSpace(c.Param("eventId")))
	if errors.Is(err, service.ErrEventNotFound) {
		Error(c, http.StatusNotFound, "event not found", nil)
		return
	}
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("donate form load failed", zap.Error(err))
		}
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, form, nil)
}

// @Summary Record a donation
// @Tags public
// @Accept json
// @Param body body service.DonationSubmission true "donation submission"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Failure 422 {object} apiResponse
// @Router /resources/donate [post]
func (h *PublicHandler) donate(c *gin.Context) {
	if h.Donations == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	var in service.DonationSubmission
	if err := c.ShouldBind(&in); err != nil {
		Error(c, http.StatusBadRequest, "malformed submission", nil)
		return
	}
	donation, err := h.Donations.Submit(c.Request.Context(), in)
	var vErr *service.ValidationError
	switch {
	case errors.Is(err, service.ErrEventNotFound):
		Error(c, http.StatusNotFound, "event not found", nil)
		return
	case errors.As(err, &vErr):
		FieldErrors(c, vErr.Fields)
		return
	case err != nil:
		if h.Logger != nil {
			h.Logger.Warn("donation submit failed", zap.Error(err))
		}
		Error(c, http.StatusInternalServerError, "donation failed", nil)
		return
	}
	Ok(c, gin.H{
		"donationId": donation.ID,
		"redirect":   "/donated/" + donation.ID,
	}, nil)
}

// @Summary Donation confirmation
// @Tags public
// @Param donationId path string true "donation id"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /donated/{donationId} [get]
func (h *PublicHandler) donated(c *gin.Context) {
	if h.Confirmations == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	confirmation, err := h.Confirmations.Render(c.Request.Context(), strings.TrimSpace(c.Param("donationId")))
	if errors.Is(err, service.ErrDonationNotFound) {
		Error(c, http.StatusNotFound, "donation not found", nil)
		return
	}
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("confirmation render failed", zap.Error(err))
		}
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, confirmation, nil)
}

// @Summary Live dashboard data
// @Tags public
// @Param slug path string true "event slug"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /dashboard/{slug} [get]
func (h *PublicHandler) dashboard(c *gin.Context) {
	if h.Dashboards == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	dashboard, err := h.Dashboards.BySlug(c.Request.Context(), strings.TrimSpace(c.Param("slug")))
	if errors.Is(err, service.ErrEventNotFoundBySlug) {
		Error(c, http.StatusNotFound, "event not found", nil)
		return
	}
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("dashboard load failed", zap.Error(err))
		}
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, dashboard, nil)
}
