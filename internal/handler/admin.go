package handler

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aydrian/tabnine-charity-activations/internal/auth"
	"github.com/aydrian/tabnine-charity-activations/internal/models"
	"github.com/aydrian/tabnine-charity-activations/internal/repository"
	"github.com/aydrian/tabnine-charity-activations/internal/service"
)

// AdminHandler serves the authenticated management surface: event and
// charity CRUD, lead review and scoring, and donation listings.
type AdminHandler struct {
	Admin     *service.AdminService
	Repo      repository.Repository
	JWT       auth.JWT
	AccessKey string
	// AdminUserID is the bootstrap administrator's user id; issued tokens
	// carry it so created rows reference a real users row.
	AdminUserID string
	Logger      *zap.Logger
}

func (h *AdminHandler) Register(r *gin.Engine) {
	r.POST("/admin/login", h.login)

	group := r.Group("/api/admin", auth.Middleware(h.JWT))
	group.GET("/events", h.listEvents)
	group.POST("/events", h.createEvent)
	group.GET("/events/:id", h.getEvent)
	group.PUT("/events/:id", h.updateEvent)
	group.GET("/events/:id/leads", h.listEventLeads)
	group.GET("/events/:id/donations", h.listEventDonations)
	group.GET("/charities", h.listCharities)
	group.POST("/charities", h.createCharity)
	group.GET("/charities/:id", h.getCharity)
	group.PUT("/charities/:id", h.updateCharity)
	group.GET("/leads/:id", h.getLead)
	group.PUT("/leads/:id", h.scoreLead)
}

type loginRequest struct {
	AccessKey string `json:"accessKey" binding:"required"`
}

// @Summary Exchange the access key for a bearer token
// @Tags admin
// @Accept json
// @Param body body loginRequest true "credentials"
// @Success 200 {object} apiResponse
// @Failure 401 {object} apiResponse
// @Router /admin/login [post]
func (h *AdminHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "access key required", nil)
		return
	}
	if h.AccessKey == "" ||
		subtle.ConstantTimeCompare([]byte(req.AccessKey), []byte(h.AccessKey)) != 1 {
		Error(c, http.StatusUnauthorized, "invalid access key", nil)
		return
	}
	token, expiresAt, err := h.JWT.Sign(auth.Claims{AdminID: h.AdminUserID, Role: "admin"})
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("token sign failed", zap.Error(err))
		}
		Error(c, http.StatusInternalServerError, "token sign failed", nil)
		return
	}
	Ok(c, gin.H{
		"token":     token,
		"expiresAt": expiresAt.Format(time.RFC3339),
	}, nil)
}

// @Summary List events
// @Tags admin
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Param active query bool false "filter by running now"
// @Param order query string false "name|start_date|created_at"
// @Param asc query bool false "ascending"
// @Success 200 {object} apiResponse
// @Router /api/admin/events [get]
func (h *AdminHandler) listEvents(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	params := repository.ListEventsParams{
		Limit:  intQuery(c, "limit", 50),
		Offset: intQuery(c, "offset", 0),
		Active: boolQueryPtr(c, "active"),
		OrderBy: parseOrder(c.Query("order"), map[string]string{
			"name":       "name",
			"start_date": "start_date",
			"created_at": "created_at",
		}),
		Asc: boolQueryPtr(c, "asc"),
	}
	items, err := h.Repo.ListEvents(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountEvents(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(params.Limit, params.Offset, total))
}

// @Summary Create an event
// @Tags admin
// @Accept json
// @Param body body service.EventInput true "event"
// @Success 200 {object} apiResponse
// @Failure 422 {object} apiResponse
// @Router /api/admin/events [post]
func (h *AdminHandler) createEvent(c *gin.Context) {
	var in service.EventInput
	if err := c.ShouldBindJSON(&in); err != nil {
		Error(c, http.StatusBadRequest, "malformed event", nil)
		return
	}
	claims, _ := auth.ClaimsFromContext(c)
	event, err := h.Admin.CreateEvent(c.Request.Context(), claims.AdminID, in)
	if h.writeServiceError(c, err) {
		return
	}
	Ok(c, event, nil)
}

// @Summary Get an event
// @Tags admin
// @Param id path string true "event id"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/admin/events/{id} [get]
func (h *AdminHandler) getEvent(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	event, err := h.Repo.GetEventByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	if event == nil {
		Error(c, http.StatusNotFound, "event not found", nil)
		return
	}
	Ok(c, event, nil)
}

// @Summary Update an event
// @Tags admin
// @Accept json
// @Param id path string true "event id"
// @Param body body service.EventInput true "event"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Failure 422 {object} apiResponse
// @Router /api/admin/events/{id} [put]
func (h *AdminHandler) updateEvent(c *gin.Context) {
	var in service.EventInput
	if err := c.ShouldBindJSON(&in); err != nil {
		Error(c, http.StatusBadRequest, "malformed event", nil)
		return
	}
	event, err := h.Admin.UpdateEvent(c.Request.Context(), strings.TrimSpace(c.Param("id")), in)
	if h.writeServiceError(c, err) {
		return
	}
	Ok(c, event, nil)
}

// @Summary List an event's leads
// @Tags admin
// @Param id path string true "event id"
// @Param score query string false "UNSCORED|LOW|MEDIUM|HIGH"
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Success 200 {object} apiResponse
// @Router /api/admin/events/{id}/leads [get]
func (h *AdminHandler) listEventLeads(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	params := repository.ListLeadsParams{
		Limit:  intQuery(c, "limit", 100),
		Offset: intQuery(c, "offset", 0),
	}
	if raw := strings.TrimSpace(c.Query("score")); raw != "" {
		score := models.LeadScore(strings.ToUpper(raw))
		if !score.Valid() {
			Error(c, http.StatusBadRequest, "unknown score", nil)
			return
		}
		params.Score = &score
	}
	items, err := h.Repo.ListLeadsByEvent(c.Request.Context(), strings.TrimSpace(c.Param("id")), params)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

// @Summary List an event's donations
// @Tags admin
// @Param id path string true "event id"
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Success 200 {object} apiResponse
// @Router /api/admin/events/{id}/donations [get]
func (h *AdminHandler) listEventDonations(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	eventID := strings.TrimSpace(c.Param("id"))
	params := repository.ListDonationsParams{
		Limit:   intQuery(c, "limit", 100),
		Offset:  intQuery(c, "offset", 0),
		EventID: &eventID,
	}
	items, err := h.Repo.ListDonations(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountDonations(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(params.Limit, params.Offset, total))
}

// @Summary List charities
// @Tags admin
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Param name query string false "name contains"
// @Success 200 {object} apiResponse
// @Router /api/admin/charities [get]
func (h *AdminHandler) listCharities(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	params := repository.ListCharitiesParams{
		Limit:  intQuery(c, "limit", 100),
		Offset: intQuery(c, "offset", 0),
		Name:   strQueryPtr(c, "name"),
	}
	items, err := h.Repo.ListCharities(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountCharities(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(params.Limit, params.Offset, total))
}

// @Summary Create a charity
// @Tags admin
// @Accept json
// @Param body body service.CharityInput true "charity"
// @Success 200 {object} apiResponse
// @Failure 422 {object} apiResponse
// @Router /api/admin/charities [post]
func (h *AdminHandler) createCharity(c *gin.Context) {
	var in service.CharityInput
	if err := c.ShouldBindJSON(&in); err != nil {
		Error(c, http.StatusBadRequest, "malformed charity", nil)
		return
	}
	claims, _ := auth.ClaimsFromContext(c)
	charity, err := h.Admin.CreateCharity(c.Request.Context(), claims.AdminID, in)
	if h.writeServiceError(c, err) {
		return
	}
	Ok(c, charity, nil)
}

// @Summary Get a charity
// @Tags admin
// @Param id path string true "charity id"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/admin/charities/{id} [get]
func (h *AdminHandler) getCharity(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	charity, err := h.Repo.GetCharityByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	if charity == nil {
		Error(c, http.StatusNotFound, "charity not found", nil)
		return
	}
	Ok(c, charity, nil)
}

// @Summary Update a charity
// @Tags admin
// @Accept json
// @Param id path string true "charity id"
// @Param body body service.CharityInput true "charity"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Failure 422 {object} apiResponse
// @Router /api/admin/charities/{id} [put]
func (h *AdminHandler) updateCharity(c *gin.Context) {
	var in service.CharityInput
	if err := c.ShouldBindJSON(&in); err != nil {
		Error(c, http.StatusBadRequest, "malformed charity", nil)
		return
	}
	charity, err := h.Admin.UpdateCharity(c.Request.Context(), strings.TrimSpace(c.Param("id")), in)
	if h.writeServiceError(c, err) {
		return
	}
	Ok(c, charity, nil)
}

// @Summary Get a lead
// @Tags admin
// @Param id path string true "lead id"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/admin/leads/{id} [get]
func (h *AdminHandler) getLead(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	lead, err := h.Repo.GetLeadByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	if lead == nil {
		Error(c, http.StatusNotFound, "lead not found", nil)
		return
	}
	Ok(c, lead, nil)
}

type scoreLeadRequest struct {
	Score string  `json:"score" binding:"required"`
	Notes *string `json:"notes"`
}

// @Summary Score a lead
// @Tags admin
// @Accept json
// @Param id path string true "lead id"
// @Param body body scoreLeadRequest true "score and notes"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Failure 422 {object} apiResponse
// @Router /api/admin/leads/{id} [put]
func (h *AdminHandler) scoreLead(c *gin.Context) {
	var req scoreLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "score required", nil)
		return
	}
	score := models.LeadScore(strings.ToUpper(strings.TrimSpace(req.Score)))
	eventID, err := h.Admin.ScoreLead(c.Request.Context(), strings.TrimSpace(c.Param("id")), score, req.Notes)
	if h.writeServiceError(c, err) {
		return
	}
	Ok(c, gin.H{"eventId": eventID}, nil)
}

// writeServiceError maps service errors onto the response envelope and
// reports whether a response was written.
func (h *AdminHandler) writeServiceError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	var vErr *service.ValidationError
	switch {
	case errors.As(err, &vErr):
		FieldErrors(c, vErr.Fields)
	case errors.Is(err, service.ErrEventNotFound):
		Error(c, http.StatusNotFound, "event not found", nil)
	case errors.Is(err, service.ErrCharityNotFound):
		Error(c, http.StatusNotFound, "charity not found", nil)
	case errors.Is(err, service.ErrLeadNotFound):
		Error(c, http.StatusNotFound, "lead not found", nil)
	default:
		if h.Logger != nil {
			h.Logger.Warn("admin request failed", zap.Error(err))
		}
		Error(c, http.StatusInternalServerError, err.Error(), nil)
	}
	return true
}
