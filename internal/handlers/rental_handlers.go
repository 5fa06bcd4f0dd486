package handlers

import (
	"errors"
	"net/http"
	"strings"

	"linkrental/internal/common"
	"linkrental/internal/config"
	"linkrental/internal/lifecycle"
	"linkrental/internal/models"
	"linkrental/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RentalHandlers handles the public submission and resolve endpoints and the admin queries
type RentalHandlers struct {
	rentalService services.RentalService
	catalog       *config.Catalog
	logger        *zap.Logger
}

// NewRentalHandlers creates a new rental handlers instance
func NewRentalHandlers(rentalService services.RentalService, catalog *config.Catalog, logger *zap.Logger) *RentalHandlers {
	return &RentalHandlers{
		rentalService: rentalService,
		catalog:       catalog,
		logger:        logger,
	}
}

// RentalResponse is a rental request plus its dashboard badge text
type RentalResponse struct {
	*models.RentalRequest
	StatusLabel string `json:"statusLabel"`
}

func toResponse(r *models.RentalRequest) RentalResponse {
	return RentalResponse{RentalRequest: r, StatusLabel: lifecycle.StatusLabel(r.Status)}
}

func toResponses(rentals []*models.RentalRequest) []RentalResponse {
	out := make([]RentalResponse, len(rentals))
	for i, r := range rentals {
		out[i] = toResponse(r)
	}
	return out
}

// DecisionRequest represents the approval payload
type DecisionRequest struct {
	Approved *bool `json:"approved"`
}

// Register mounts the rental routes on the /api group
func (h *RentalHandlers) Register(api *echo.Group, submitLimiter echo.MiddlewareFunc) {
	api.GET("", h.Hello)
	api.GET("/catalog", h.GetCatalog)
	if submitLimiter != nil {
		api.POST("/rental-requests", h.SubmitRentalRequest, submitLimiter)
	} else {
		api.POST("/rental-requests", h.SubmitRentalRequest)
	}
	api.GET("/rental-requests", h.ListRentalRequests)
	api.GET("/rental-requests/:id", h.GetRentalRequest)
	api.POST("/rental-requests/:id/approve", h.DecideRentalRequest)
	api.GET("/active-rentals", h.ListActiveRentals)
	api.GET("/rental/:slug", h.ResolveRental)
	api.GET("/stats", h.GetStats)
}

func (h *RentalHandlers) Hello(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": "Hello World"})
}

// GetCatalog returns the durations, prices, themes and contact data on offer
func (h *RentalHandlers) GetCatalog(c echo.Context) error {
	return c.JSON(http.StatusOK, h.catalog)
}

// SubmitRentalRequest handles a new rental request from the public site
func (h *RentalHandlers) SubmitRentalRequest(c echo.Context) error {
	var req models.CreateRentalRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	rental, err := h.rentalService.Submit(c.Request().Context(), &req)
	if err != nil {
		return h.handleError(c, err, "Rental request")
	}

	return c.JSON(http.StatusCreated, toResponse(rental))
}

// ListRentalRequests handles the admin listing, optionally filtered by ?status=
func (h *RentalHandlers) ListRentalRequests(c echo.Context) error {
	var filter *models.RentalStatus
	if raw := strings.TrimSpace(c.QueryParam("status")); raw != "" {
		status, err := models.ParseRentalStatus(raw)
		if err != nil {
			return common.SendValidationError(c, "status", err.Error())
		}
		filter = &status
	}

	rentals, err := h.rentalService.ListRequests(c.Request().Context(), filter)
	if err != nil {
		return h.handleError(c, err, "Rental request")
	}

	return c.JSON(http.StatusOK, toResponses(rentals))
}

// GetRentalRequest returns one request by id
func (h *RentalHandlers) GetRentalRequest(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	rental, err := h.rentalService.GetRequest(c.Request().Context(), id)
	if err != nil {
		return h.handleError(c, err, "Rental request")
	}

	return c.JSON(http.StatusOK, toResponse(rental))
}

// DecideRentalRequest approves or rejects a pending request
func (h *RentalHandlers) DecideRentalRequest(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	var req DecisionRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if req.Approved == nil {
		return common.SendValidationError(c, "approved", "approved is required")
	}

	rental, err := h.rentalService.Decide(c.Request().Context(), id, *req.Approved)
	if err != nil {
		return h.handleError(c, err, "Rental request")
	}

	return c.JSON(http.StatusOK, toResponse(rental))
}

// ListActiveRentals returns the rentals that are live right now
func (h *RentalHandlers) ListActiveRentals(c echo.Context) error {
	rentals, err := h.rentalService.ListActiveRentals(c.Request().Context())
	if err != nil {
		return h.handleError(c, err, "Rental")
	}

	return c.JSON(http.StatusOK, toResponses(rentals))
}

// ResolveRental serves the public page data for a slug. Unknown and no-longer-live slugs get
// the same response.
func (h *RentalHandlers) ResolveRental(c echo.Context) error {
	view, err := h.rentalService.Resolve(c.Request().Context(), c.Param("slug"))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) || errors.Is(err, common.ErrExpired) {
			return common.SendUnavailableError(c)
		}
		return h.handleError(c, err, "Rental")
	}

	return c.JSON(http.StatusOK, view)
}

// GetStats returns request counts per effective status
func (h *RentalHandlers) GetStats(c echo.Context) error {
	counts, err := h.rentalService.Stats(c.Request().Context())
	if err != nil {
		return h.handleError(c, err, "Rental")
	}

	var total int64
	for _, n := range counts {
		total += n
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"counts": counts,
		"total":  total,
	})
}

func (h *RentalHandlers) handleError(c echo.Context, err error, resource string) error {
	if verr, ok := common.IsValidationError(err); ok {
		return common.SendValidationError(c, verr.Field, verr.Message)
	}
	switch {
	case errors.Is(err, common.ErrNotFound):
		return common.SendNotFoundError(c, resource)
	case errors.Is(err, common.ErrInvalidTransition):
		return common.SendConflictError(c, err.Error())
	}

	h.logger.Error("Request failed",
		zap.String("method", c.Request().Method),
		zap.String("path", c.Path()),
		zap.Error(err))
	return common.SendServerError(c, "Internal server error")
}
