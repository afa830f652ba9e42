package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/maintdb/internal/cache"
	"github.com/localnerve/maintdb/internal/forms"
	"github.com/localnerve/maintdb/internal/models"
	"github.com/localnerve/maintdb/internal/services"
	"github.com/localnerve/maintdb/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CategoryHandler handles item category routes
type CategoryHandler struct {
	DB     *gorm.DB
	Cache  *cache.QueryCache
	Logger *zap.Logger
}

func (h *CategoryHandler) invalidate() {
	if h.Cache != nil {
		h.Cache.Invalidate(cache.Categories)
	}
}

// ListCategories handles GET /api/categories
// @Summary List categories
// @Tags Categories
// @Produce json
// @Success 200 {array} models.ItemCategory
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /categories [get]
func (h *CategoryHandler) ListCategories(c *fiber.Ctx) error {
	result, err := cache.Fetch(c.UserContext(), h.Cache, cache.Key{Entity: cache.Categories},
		func(ctx context.Context) ([]models.ItemCategory, error) {
			return services.ListCategories(ctx, h.DB)
		})
	if err != nil {
		return respondError(c, h.Logger, err, "listCategories")
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

// CreateCategory handles POST /api/categories
// @Summary Create a category
// @Tags Categories
// @Accept json
// @Produce json
// @Param body body forms.CategoryForm true "Category"
// @Success 201 {object} models.ItemCategory
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /categories [post]
func (h *CategoryHandler) CreateCategory(c *fiber.Ctx) error {
	var form forms.CategoryForm
	if err := parseBody(c, &form); err != nil {
		return respondError(c, h.Logger, err, "createCategory")
	}
	result, err := services.CreateCategory(c.UserContext(), h.DB, form)
	if err != nil {
		return respondError(c, h.Logger, err, "createCategory")
	}

	h.invalidate()
	return c.Status(fiber.StatusCreated).JSON(result)
}

// UpdateCategory handles PUT /api/categories/:id
// @Summary Rename a category
// @Tags Categories
// @Accept json
// @Produce json
// @Param id path string true "Category ID"
// @Param body body forms.CategoryForm true "Category"
// @Success 200 {object} models.ItemCategory
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /categories/{id} [put]
func (h *CategoryHandler) UpdateCategory(c *fiber.Ctx) error {
	var form forms.CategoryForm
	if err := parseBody(c, &form); err != nil {
		return respondError(c, h.Logger, err, "updateCategory")
	}
	result, err := services.UpdateCategory(c.UserContext(), h.DB, c.Params("id"), form)
	if err != nil {
		return respondError(c, h.Logger, err, "updateCategory")
	}

	h.invalidate()
	return c.Status(fiber.StatusOK).JSON(result)
}

// DeleteCategory handles DELETE /api/categories/:id
// @Summary Delete a category
// @Description Refused with 409 while any request refers to the category
// @Tags Categories
// @Produce json
// @Param id path string true "Category ID"
// @Success 200 {object} utils.DeleteResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /categories/{id} [delete]
func (h *CategoryHandler) DeleteCategory(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := services.DeleteCategory(c.UserContext(), h.DB, id); err != nil {
		return respondError(c, h.Logger, err, "deleteCategory")
	}

	h.invalidate()
	return utils.DeleteSuccessResponse(c, id)
}

// StatusTypeHandler handles request status type routes
type StatusTypeHandler struct {
	DB     *gorm.DB
	Cache  *cache.QueryCache
	Logger *zap.Logger
}

func (h *StatusTypeHandler) invalidate() {
	if h.Cache != nil {
		h.Cache.Invalidate(cache.StatusTypes)
	}
}

// ListStatusTypes handles GET /api/statuses
// @Summary List status types
// @Tags Statuses
// @Produce json
// @Success 200 {array} models.RequestStatusType
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /statuses [get]
func (h *StatusTypeHandler) ListStatusTypes(c *fiber.Ctx) error {
	result, err := cache.Fetch(c.UserContext(), h.Cache, cache.Key{Entity: cache.StatusTypes},
		func(ctx context.Context) ([]models.RequestStatusType, error) {
			return services.ListStatusTypes(ctx, h.DB)
		})
	if err != nil {
		return respondError(c, h.Logger, err, "listStatusTypes")
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

// CreateStatusType handles POST /api/statuses
// @Summary Create a status type
// @Tags Statuses
// @Accept json
// @Produce json
// @Param body body forms.StatusTypeForm true "Status type"
// @Success 201 {object} models.RequestStatusType
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /statuses [post]
func (h *StatusTypeHandler) CreateStatusType(c *fiber.Ctx) error {
	var form forms.StatusTypeForm
	if err := parseBody(c, &form); err != nil {
		return respondError(c, h.Logger, err, "createStatusType")
	}
	result, err := services.CreateStatusType(c.UserContext(), h.DB, form)
	if err != nil {
		return respondError(c, h.Logger, err, "createStatusType")
	}

	h.invalidate()
	return c.Status(fiber.StatusCreated).JSON(result)
}

// UpdateStatusType handles PUT /api/statuses/:id
// @Summary Update a status type
// @Tags Statuses
// @Accept json
// @Produce json
// @Param id path string true "Status type ID"
// @Param body body forms.StatusTypeForm true "Status type"
// @Success 200 {object} models.RequestStatusType
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /statuses/{id} [put]
func (h *StatusTypeHandler) UpdateStatusType(c *fiber.Ctx) error {
	var form forms.StatusTypeForm
	if err := parseBody(c, &form); err != nil {
		return respondError(c, h.Logger, err, "updateStatusType")
	}
	result, err := services.UpdateStatusType(c.UserContext(), h.DB, c.Params("id"), form)
	if err != nil {
		return respondError(c, h.Logger, err, "updateStatusType")
	}

	h.invalidate()
	return c.Status(fiber.StatusOK).JSON(result)
}

// DeleteStatusType handles DELETE /api/statuses/:id
// @Summary Delete a status type
// @Description Refused with 409 while any request has the status
// @Tags Statuses
// @Produce json
// @Param id path string true "Status type ID"
// @Success 200 {object} utils.DeleteResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /statuses/{id} [delete]
func (h *StatusTypeHandler) DeleteStatusType(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := services.DeleteStatusType(c.UserContext(), h.DB, id); err != nil {
		return respondError(c, h.Logger, err, "deleteStatusType")
	}

	h.invalidate()
	return utils.DeleteSuccessResponse(c, id)
}
