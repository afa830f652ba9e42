package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/maintdb/internal/cache"
	"github.com/localnerve/maintdb/internal/forms"
	"github.com/localnerve/maintdb/internal/models"
	"github.com/localnerve/maintdb/internal/services"
	"github.com/localnerve/maintdb/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RequestHandler handles materials request routes
type RequestHandler struct {
	DB     *gorm.DB
	Cache  *cache.QueryCache
	Logger *zap.Logger
	Now    func() time.Time
}

func (h *RequestHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *RequestHandler) invalidate() {
	if h.Cache != nil {
		h.Cache.Invalidate(cache.Requests)
	}
}

// ListRequests handles GET /api/requests
// @Summary List requests
// @Description List requests newest first with category and status, optionally searching item, requester and category
// @Tags Requests
// @Produce json
// @Param q query string false "Search text"
// @Success 200 {array} models.Request
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /requests [get]
func (h *RequestHandler) ListRequests(c *fiber.Ctx) error {
	search := parseSearch(c)
	result, err := cache.Fetch(c.UserContext(), h.Cache, cache.Key{Entity: cache.Requests, ID: "q=" + search},
		func(ctx context.Context) ([]models.Request, error) {
			return services.ListRequests(ctx, h.DB, search)
		})
	if err != nil {
		return respondError(c, h.Logger, err, "listRequests")
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

// GetRequest handles GET /api/requests/:id
// @Summary Get a request
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} models.Request
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /requests/{id} [get]
func (h *RequestHandler) GetRequest(c *fiber.Ctx) error {
	id := c.Params("id")
	result, err := cache.Fetch(c.UserContext(), h.Cache, cache.Key{Entity: cache.Requests, ID: id},
		func(ctx context.Context) (*models.Request, error) {
			return services.GetRequest(ctx, h.DB, id)
		})
	if err != nil {
		return respondError(c, h.Logger, err, "getRequest")
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

// CreateRequest handles POST /api/requests
// @Summary Create a request
// @Description Create a request with the default status
// @Tags Requests
// @Accept json
// @Produce json
// @Param body body forms.RequestForm true "Request"
// @Success 201 {object} models.Request
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 422 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /requests [post]
func (h *RequestHandler) CreateRequest(c *fiber.Ctx) error {
	var form forms.RequestForm
	if err := parseBody(c, &form); err != nil {
		return respondError(c, h.Logger, err, "createRequest")
	}

	result, err := services.CreateRequest(c.UserContext(), h.DB, form, h.now())
	if err != nil {
		return respondError(c, h.Logger, err, "createRequest")
	}

	h.invalidate()
	return c.Status(fiber.StatusCreated).JSON(result)
}

// UpdateRequest handles PUT /api/requests/:id
// @Summary Update a request
// @Description Replace the fields of a request. The status is not changed.
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param body body forms.RequestForm true "Request"
// @Success 200 {object} models.Request
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /requests/{id} [put]
func (h *RequestHandler) UpdateRequest(c *fiber.Ctx) error {
	var form forms.RequestForm
	if err := parseBody(c, &form); err != nil {
		return respondError(c, h.Logger, err, "updateRequest")
	}

	result, err := services.UpdateRequest(c.UserContext(), h.DB, c.Params("id"), form, h.now())
	if err != nil {
		return respondError(c, h.Logger, err, "updateRequest")
	}

	h.invalidate()
	return c.Status(fiber.StatusOK).JSON(result)
}

// UpdateRequestStatus handles PATCH /api/requests/:id/status
// @Summary Change request status
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param body body forms.StatusChangeForm true "Status"
// @Success 200 {object} models.Request
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /requests/{id}/status [patch]
func (h *RequestHandler) UpdateRequestStatus(c *fiber.Ctx) error {
	var form forms.StatusChangeForm
	if err := parseBody(c, &form); err != nil {
		return respondError(c, h.Logger, err, "updateRequestStatus")
	}

	result, err := services.UpdateRequestStatus(c.UserContext(), h.DB, c.Params("id"), form)
	if err != nil {
		return respondError(c, h.Logger, err, "updateRequestStatus")
	}

	h.invalidate()
	return c.Status(fiber.StatusOK).JSON(result)
}

// DeleteRequest handles DELETE /api/requests/:id
// @Summary Delete a request
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} utils.DeleteResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /requests/{id} [delete]
func (h *RequestHandler) DeleteRequest(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := services.DeleteRequest(c.UserContext(), h.DB, id); err != nil {
		return respondError(c, h.Logger, err, "deleteRequest")
	}

	h.invalidate()
	return utils.DeleteSuccessResponse(c, id)
}
