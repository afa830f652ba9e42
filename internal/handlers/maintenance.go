// maintenance.go
//
// Maintenance tracking and materials request data service
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of maintdb.
// maintdb is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// maintdb is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with maintdb.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/maintdb/internal/cache"
	"github.com/localnerve/maintdb/internal/checklist"
	"github.com/localnerve/maintdb/internal/editor"
	"github.com/localnerve/maintdb/internal/forms"
	"github.com/localnerve/maintdb/internal/services"
	"github.com/localnerve/maintdb/internal/types"
	"github.com/localnerve/maintdb/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MaintenanceHandler handles maintenance and checklist routes
type MaintenanceHandler struct {
	DB     *gorm.DB
	Cache  *cache.QueryCache
	Logger *zap.Logger
}

// MaintenanceInput is the body of maintenance create and update
type MaintenanceInput struct {
	forms.MaintenanceForm
	Version types.FlexUint64 `json:"version"`
	Tasks   []checklist.Task `json:"tasks"`
}

// TaskInput is the body of task add and edit. Omitted fields are left unchanged.
type TaskInput struct {
	Text      *string `json:"text"`
	Completed *bool   `json:"completed"`
}

// AddTaskInput is the body of task add. Text is one task or a list of tasks.
type AddTaskInput struct {
	Text types.FlexList[string] `json:"text"`
}

// ReorderInput moves the task at From to To
type ReorderInput struct {
	From *int `json:"from"`
	To   *int `json:"to"`
}

func (h *MaintenanceHandler) store() editor.Store {
	return services.MaintenanceStore{DB: h.DB}
}

func (h *MaintenanceHandler) invalidate() {
	if h.Cache != nil {
		h.Cache.Invalidate(cache.Maintenances)
	}
}

// ListMaintenances handles GET /api/maintenances
// @Summary List maintenances
// @Description List maintenances newest first, optionally searching client, serial number and model
// @Tags Maintenances
// @Produce json
// @Param q query string false "Search text"
// @Success 200 {array} services.MaintenanceRecord
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /maintenances [get]
func (h *MaintenanceHandler) ListMaintenances(c *fiber.Ctx) error {
	search := parseSearch(c)
	result, err := cache.Fetch(c.UserContext(), h.Cache, cache.Key{Entity: cache.Maintenances, ID: "q=" + search},
		func(ctx context.Context) ([]services.MaintenanceRecord, error) {
			return services.ListMaintenances(ctx, h.DB, search)
		})
	if err != nil {
		return respondError(c, h.Logger, err, "listMaintenances")
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

// GetMaintenance handles GET /api/maintenances/:id
// @Summary Get a maintenance
// @Description Get a maintenance with its ordered checklist and progress
// @Tags Maintenances
// @Produce json
// @Param id path string true "Maintenance ID"
// @Success 200 {object} services.MaintenanceRecord
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /maintenances/{id} [get]
func (h *MaintenanceHandler) GetMaintenance(c *fiber.Ctx) error {
	id := c.Params("id")
	result, err := cache.Fetch(c.UserContext(), h.Cache, cache.Key{Entity: cache.Maintenances, ID: id},
		func(ctx context.Context) (*services.MaintenanceRecord, error) {
			return services.GetMaintenance(ctx, h.DB, id)
		})
	if err != nil {
		return respondError(c, h.Logger, err, "getMaintenance")
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

// CreateMaintenance handles POST /api/maintenances
// @Summary Create a maintenance
// @Description Create a maintenance with its initial checklist
// @Tags Maintenances
// @Accept json
// @Produce json
// @Param body body MaintenanceInput true "Maintenance"
// @Success 201 {object} services.MaintenanceRecord
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /maintenances [post]
func (h *MaintenanceHandler) CreateMaintenance(c *fiber.Ctx) error {
	var input MaintenanceInput
	if err := parseBody(c, &input); err != nil {
		return respondError(c, h.Logger, err, "createMaintenance")
	}

	session := editor.New(h.store(), editor.WithLogger(h.Logger))
	if err := session.SetForm(input.MaintenanceForm); err != nil {
		return respondError(c, h.Logger, err, "createMaintenance")
	}
	if err := session.ReplaceTasks(input.Tasks); err != nil {
		return respondError(c, h.Logger, err, "createMaintenance")
	}
	if err := session.Save(c.UserContext()); err != nil {
		return respondError(c, h.Logger, err, "createMaintenance")
	}

	h.invalidate()
	return c.Status(fiber.StatusCreated).JSON(session.Saved())
}

// UpdateMaintenance handles PUT /api/maintenances/:id
// @Summary Update a maintenance
// @Description Replace the fields and checklist of a maintenance. The version must match the stored version. Omitting tasks keeps the stored checklist.
// @Tags Maintenances
// @Accept json
// @Produce json
// @Param id path string true "Maintenance ID"
// @Param body body MaintenanceInput true "Maintenance"
// @Success 200 {object} services.MaintenanceRecord
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /maintenances/{id} [put]
func (h *MaintenanceHandler) UpdateMaintenance(c *fiber.Ctx) error {
	var input MaintenanceInput
	if err := parseBody(c, &input); err != nil {
		return respondError(c, h.Logger, err, "updateMaintenance")
	}

	ctx := c.UserContext()
	session, err := editor.Open(ctx, h.store(), c.Params("id"), editor.WithLogger(h.Logger))
	if err != nil {
		return respondError(c, h.Logger, err, "updateMaintenance")
	}
	session.ExpectVersion(input.Version.Uint64())
	if err := session.SetForm(input.MaintenanceForm); err != nil {
		return respondError(c, h.Logger, err, "updateMaintenance")
	}
	// absent or null tasks keep the stored checklist, [] clears it
	if input.Tasks != nil {
		if err := session.ReplaceTasks(input.Tasks); err != nil {
			return respondError(c, h.Logger, err, "updateMaintenance")
		}
	}
	if err := session.Save(ctx); err != nil {
		return respondError(c, h.Logger, err, "updateMaintenance")
	}

	h.invalidate()
	return c.Status(fiber.StatusOK).JSON(session.Saved())
}

// DeleteMaintenance handles DELETE /api/maintenances/:id
// @Summary Delete a maintenance
// @Description Delete a maintenance and its checklist
// @Tags Maintenances
// @Produce json
// @Param id path string true "Maintenance ID"
// @Success 200 {object} utils.DeleteResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /maintenances/{id} [delete]
func (h *MaintenanceHandler) DeleteMaintenance(c *fiber.Ctx) error {
	id := c.Params("id")
	ctx := c.UserContext()

	session, err := editor.Open(ctx, h.store(), id, editor.WithLogger(h.Logger))
	if err != nil {
		return respondError(c, h.Logger, err, "deleteMaintenance")
	}
	if err := session.Delete(ctx); err != nil {
		return respondError(c, h.Logger, err, "deleteMaintenance")
	}

	h.invalidate()
	return utils.DeleteSuccessResponse(c, id)
}

// GetChecklist handles GET /api/maintenances/:id/checklist
// @Summary Printable checklist
// @Description Completed and pending tasks of a maintenance, as JSON or plain text (format=text)
// @Tags Maintenances
// @Produce json,plain
// @Param id path string true "Maintenance ID"
// @Param format query string false "json or text"
// @Success 200 {object} services.ChecklistReport
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /maintenances/{id}/checklist [get]
func (h *MaintenanceHandler) GetChecklist(c *fiber.Ctx) error {
	report, err := services.BuildChecklistReport(c.UserContext(), h.DB, c.Params("id"))
	if err != nil {
		return respondError(c, h.Logger, err, "getChecklist")
	}

	if c.Query("format") == "text" {
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return report.WriteText(c.Status(fiber.StatusOK))
	}
	return c.Status(fiber.StatusOK).JSON(report)
}

// openAutoSave opens an auto-saving session on the maintenance in the path.
func (h *MaintenanceHandler) openAutoSave(c *fiber.Ctx) (*editor.Session, error) {
	return editor.Open(c.UserContext(), h.store(), c.Params("id"),
		editor.WithAutoSave(true),
		editor.WithLogger(h.Logger),
	)
}

// openBatch opens a session that applies several task changes and saves them
// once, so a request either stores all of its changes or none.
func (h *MaintenanceHandler) openBatch(c *fiber.Ctx) (*editor.Session, error) {
	return editor.Open(c.UserContext(), h.store(), c.Params("id"), editor.WithLogger(h.Logger))
}

// invalidateOnSave drops cached maintenances when session stored a new version.
func (h *MaintenanceHandler) invalidateOnSave(session *editor.Session, version uint64) {
	if session.Version() != version {
		h.invalidate()
	}
}

func blankText(text string) bool {
	return strings.TrimSpace(text) == ""
}

// AddTask handles POST /api/maintenances/:id/tasks
// @Summary Add a task
// @Description Append one task, or several when text is a list, to the checklist and save
// @Tags Tasks
// @Accept json
// @Produce json
// @Param id path string true "Maintenance ID"
// @Param body body AddTaskInput true "Task text or list of texts"
// @Success 201 {object} services.MaintenanceRecord
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /maintenances/{id}/tasks [post]
func (h *MaintenanceHandler) AddTask(c *fiber.Ctx) error {
	var input AddTaskInput
	if err := parseBody(c, &input); err != nil {
		return respondError(c, h.Logger, err, "addTask")
	}
	texts := input.Text.Slice()
	if len(texts) == 0 {
		return respondError(c, h.Logger, types.Invalid("text", "task text is required"), "addTask")
	}
	for _, text := range texts {
		if blankText(text) {
			return respondError(c, h.Logger, types.Invalid("text", checklist.ErrEmptyText.Error()), "addTask")
		}
	}

	session, err := h.openBatch(c)
	if err != nil {
		return respondError(c, h.Logger, err, "addTask")
	}
	defer h.invalidateOnSave(session, session.Version())

	ctx := c.UserContext()
	for _, text := range texts {
		if _, err := session.AddTask(ctx, text); err != nil {
			return respondError(c, h.Logger, err, "addTask")
		}
	}
	if err := session.Save(ctx); err != nil {
		return respondError(c, h.Logger, err, "addTask")
	}

	return c.Status(fiber.StatusCreated).JSON(session.Saved())
}

// UpdateTask handles PATCH /api/maintenances/:id/tasks/:taskId
// @Summary Edit or toggle a task
// @Description Rename a task and/or set its completion, then save
// @Tags Tasks
// @Accept json
// @Produce json
// @Param id path string true "Maintenance ID"
// @Param taskId path string true "Task ID"
// @Param body body TaskInput true "Changes"
// @Success 200 {object} services.MaintenanceRecord
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /maintenances/{id}/tasks/{taskId} [patch]
func (h *MaintenanceHandler) UpdateTask(c *fiber.Ctx) error {
	var input TaskInput
	if err := parseBody(c, &input); err != nil {
		return respondError(c, h.Logger, err, "updateTask")
	}
	if input.Text == nil && input.Completed == nil {
		return respondError(c, h.Logger, types.Invalid("body", "text or completed is required"), "updateTask")
	}
	if input.Text != nil && blankText(*input.Text) {
		return respondError(c, h.Logger, types.Invalid("text", checklist.ErrEmptyText.Error()), "updateTask")
	}

	session, err := h.openBatch(c)
	if err != nil {
		return respondError(c, h.Logger, err, "updateTask")
	}
	defer h.invalidateOnSave(session, session.Version())

	ctx := c.UserContext()
	taskID := c.Params("taskId")
	if input.Text != nil {
		if err := session.EditTask(ctx, taskID, *input.Text); err != nil {
			return respondError(c, h.Logger, err, "updateTask")
		}
	}
	if input.Completed != nil {
		if err := session.ToggleTask(ctx, taskID, *input.Completed); err != nil {
			return respondError(c, h.Logger, err, "updateTask")
		}
	}
	if err := session.Save(ctx); err != nil {
		return respondError(c, h.Logger, err, "updateTask")
	}

	return c.Status(fiber.StatusOK).JSON(session.Saved())
}

// DeleteTask handles DELETE /api/maintenances/:id/tasks/:taskId
// @Summary Delete a task
// @Description Remove a task from the checklist and save
// @Tags Tasks
// @Produce json
// @Param id path string true "Maintenance ID"
// @Param taskId path string true "Task ID"
// @Success 200 {object} services.MaintenanceRecord
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /maintenances/{id}/tasks/{taskId} [delete]
func (h *MaintenanceHandler) DeleteTask(c *fiber.Ctx) error {
	session, err := h.openAutoSave(c)
	if err != nil {
		return respondError(c, h.Logger, err, "deleteTask")
	}
	defer h.invalidateOnSave(session, session.Version())

	if err := session.DeleteTask(c.UserContext(), c.Params("taskId")); err != nil {
		return respondError(c, h.Logger, err, "deleteTask")
	}

	return c.Status(fiber.StatusOK).JSON(session.Saved())
}

// ReorderTasks handles POST /api/maintenances/:id/tasks/reorder
// @Summary Reorder tasks
// @Description Move the task at index from to index to, then save
// @Tags Tasks
// @Accept json
// @Produce json
// @Param id path string true "Maintenance ID"
// @Param body body ReorderInput true "Move"
// @Success 200 {object} services.MaintenanceRecord
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /maintenances/{id}/tasks/reorder [post]
func (h *MaintenanceHandler) ReorderTasks(c *fiber.Ctx) error {
	var input ReorderInput
	if err := parseBody(c, &input); err != nil {
		return respondError(c, h.Logger, err, "reorderTasks")
	}
	if input.From == nil || input.To == nil {
		return respondError(c, h.Logger, types.Invalid("index", "from and to are required"), "reorderTasks")
	}

	session, err := h.openAutoSave(c)
	if err != nil {
		return respondError(c, h.Logger, err, "reorderTasks")
	}
	defer h.invalidateOnSave(session, session.Version())

	if err := session.ReorderTasks(c.UserContext(), *input.From, *input.To); err != nil {
		return respondError(c, h.Logger, err, "reorderTasks")
	}

	return c.Status(fiber.StatusOK).JSON(session.Saved())
}
