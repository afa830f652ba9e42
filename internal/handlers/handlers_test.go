// handlers_test.go
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

package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/maintdb/internal/cache"
	"github.com/localnerve/maintdb/internal/handlers"
	"github.com/localnerve/maintdb/internal/middleware"
	"github.com/localnerve/maintdb/internal/models"
	"github.com/localnerve/maintdb/internal/services"
	"github.com/localnerve/maintdb/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// setupApp mounts the API on a seeded in-memory database with auth disabled.
func setupApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	db := testutil.NewSeededTestDB(t)

	queryCache, err := cache.New(64, zap.NewNop())
	require.NoError(t, err)

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler(zap.NewNop())})
	api := app.Group("/api")
	api.Use(middleware.VersionMiddleware())
	handlers.Register(api, handlers.Dependencies{DB: db, Cache: queryCache, Logger: zap.NewNop()})
	app.Use(handlers.NotFound)
	return app, db
}

func doJSON(t *testing.T, app *fiber.App, method, url string, body interface{}) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, url, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(data, &out), string(data))
	return out
}

func newMaintenanceBody(tasks ...string) map[string]interface{} {
	list := make([]map[string]interface{}, 0, len(tasks))
	for _, text := range tasks {
		list = append(list, map[string]interface{}{"text": text})
	}
	return map[string]interface{}{
		"client_name":      "ACME",
		"serial_number":    "SN-1",
		"model":            "X1",
		"year":             2020,
		"maintenance_date": "2024-07",
		"tasks":            list,
	}
}

func TestMaintenanceChecklistFlow(t *testing.T) {
	app, _ := setupApp(t)

	resp, data := doJSON(t, app, "POST", "/api/maintenances", newMaintenanceBody("Óleo", "Filtro", "Correia"))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(data))
	rec := decode[services.MaintenanceRecord](t, data)
	assert.Equal(t, 0, rec.Progress)
	assert.Equal(t, "2020", rec.Year.String())
	require.Len(t, rec.Tasks, 3)

	resp, data = doJSON(t, app, "PATCH", "/api/maintenances/"+rec.ID+"/tasks/"+rec.Tasks[0].ID, map[string]interface{}{"completed": true})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(data))
	rec = decode[services.MaintenanceRecord](t, data)
	assert.Equal(t, 33, rec.Progress)
	assert.Equal(t, models.StatusInProgress, rec.Status)

	for _, task := range rec.Tasks[1:] {
		resp, data = doJSON(t, app, "PATCH", "/api/maintenances/"+rec.ID+"/tasks/"+task.ID, map[string]interface{}{"completed": true})
		require.Equal(t, fiber.StatusOK, resp.StatusCode, string(data))
	}
	rec = decode[services.MaintenanceRecord](t, data)
	assert.Equal(t, 100, rec.Progress)
	assert.Equal(t, models.StatusCompleted, rec.Status)

	resp, data = doJSON(t, app, "POST", "/api/maintenances/"+rec.ID+"/tasks", map[string]interface{}{"text": "Teste final"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(data))
	rec = decode[services.MaintenanceRecord](t, data)
	assert.Equal(t, 75, rec.Progress)
	assert.Equal(t, models.StatusInProgress, rec.Status)

	resp, data = doJSON(t, app, "POST", "/api/maintenances/"+rec.ID+"/tasks/reorder", map[string]interface{}{"from": 3, "to": 0})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(data))
	rec = decode[services.MaintenanceRecord](t, data)
	assert.Equal(t, "Teste final", rec.Tasks[0].Text)

	resp, _ = doJSON(t, app, "POST", "/api/maintenances/"+rec.ID+"/tasks/reorder", map[string]interface{}{"from": 0, "to": 9})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, data = doJSON(t, app, "DELETE", "/api/maintenances/"+rec.ID+"/tasks/"+rec.Tasks[0].ID, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(data))
	rec = decode[services.MaintenanceRecord](t, data)
	assert.Len(t, rec.Tasks, 3)
	assert.Equal(t, 100, rec.Progress)

	resp, _ = doJSON(t, app, "DELETE", "/api/maintenances/"+rec.ID+"/tasks/missing", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, data = doJSON(t, app, "GET", "/api/maintenances/"+rec.ID+"/checklist", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	report := decode[services.ChecklistReport](t, data)
	assert.Len(t, report.Completed, 3)
	assert.Empty(t, report.Pending)

	resp, data = doJSON(t, app, "GET", "/api/maintenances/"+rec.ID+"/checklist?format=text", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")
	assert.Contains(t, string(data), "Progress:         100%")
}

func TestAddTaskList(t *testing.T) {
	app, _ := setupApp(t)

	resp, data := doJSON(t, app, "POST", "/api/maintenances", newMaintenanceBody("Óleo"))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(data))
	rec := decode[services.MaintenanceRecord](t, data)

	resp, data = doJSON(t, app, "POST", "/api/maintenances/"+rec.ID+"/tasks", map[string]interface{}{"text": []string{"Filtro", "Correia"}})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(data))
	rec = decode[services.MaintenanceRecord](t, data)
	require.Len(t, rec.Tasks, 3)
	assert.Equal(t, "Correia", rec.Tasks[2].Text)

	resp, _ = doJSON(t, app, "POST", "/api/maintenances/"+rec.ID+"/tasks", map[string]interface{}{"text": []string{}})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAddTaskListWithBlankEntryStoresNothing(t *testing.T) {
	app, _ := setupApp(t)

	resp, data := doJSON(t, app, "POST", "/api/maintenances", newMaintenanceBody("Óleo"))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(data))
	rec := decode[services.MaintenanceRecord](t, data)

	// cached read
	resp, _ = doJSON(t, app, "GET", "/api/maintenances/"+rec.ID, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, data = doJSON(t, app, "POST", "/api/maintenances/"+rec.ID+"/tasks", map[string]interface{}{"text": []string{"Pintar", "  "}})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "data.validation.text", decode[map[string]interface{}](t, data)["type"])

	resp, data = doJSON(t, app, "GET", "/api/maintenances/"+rec.ID+"/checklist", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"Óleo"}, decode[services.ChecklistReport](t, data).Pending)

	resp, data = doJSON(t, app, "POST", "/api/maintenances/"+rec.ID+"/tasks", map[string]interface{}{"text": []string{"Pintar", "Lixar"}})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(data))
	added := decode[services.MaintenanceRecord](t, data)
	assert.Equal(t, rec.Version+1, added.Version)

	resp, data = doJSON(t, app, "GET", "/api/maintenances/"+rec.ID, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	got := decode[services.MaintenanceRecord](t, data)
	assert.Len(t, got.Tasks, 3)
	assert.Equal(t, added.Version, got.Version)
}

func TestUpdateTaskSavesOnce(t *testing.T) {
	app, _ := setupApp(t)

	resp, data := doJSON(t, app, "POST", "/api/maintenances", newMaintenanceBody("Óleo"))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(data))
	rec := decode[services.MaintenanceRecord](t, data)
	taskURL := "/api/maintenances/" + rec.ID + "/tasks/" + rec.Tasks[0].ID

	resp, _ = doJSON(t, app, "GET", "/api/maintenances/"+rec.ID, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, "PATCH", taskURL, map[string]interface{}{"text": " ", "completed": true})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, data = doJSON(t, app, "GET", "/api/maintenances/"+rec.ID, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	got := decode[services.MaintenanceRecord](t, data)
	assert.Equal(t, rec.Version, got.Version)
	assert.False(t, got.Tasks[0].Completed)

	resp, data = doJSON(t, app, "PATCH", taskURL, map[string]interface{}{"text": "Óleo 15W40", "completed": true})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(data))
	assert.Equal(t, rec.Version+1, decode[services.MaintenanceRecord](t, data).Version)

	resp, data = doJSON(t, app, "GET", "/api/maintenances/"+rec.ID, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	got = decode[services.MaintenanceRecord](t, data)
	assert.Equal(t, rec.Version+1, got.Version)
	assert.Equal(t, "Óleo 15W40", got.Tasks[0].Text)
	assert.True(t, got.Tasks[0].Completed)
	assert.Equal(t, models.StatusCompleted, got.Status)
}

func TestUpdateMaintenanceWithoutTasksKeepsChecklist(t *testing.T) {
	app, _ := setupApp(t)

	resp, data := doJSON(t, app, "POST", "/api/maintenances", newMaintenanceBody("A", "B"))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(data))
	rec := decode[services.MaintenanceRecord](t, data)

	update := newMaintenanceBody()
	delete(update, "tasks")
	update["version"] = rec.Version
	update["model"] = "X2"
	resp, data = doJSON(t, app, "PUT", "/api/maintenances/"+rec.ID, update)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(data))
	updated := decode[services.MaintenanceRecord](t, data)
	assert.Equal(t, "X2", updated.Model)
	assert.Equal(t, rec.Tasks, updated.Tasks)

	update = newMaintenanceBody()
	update["version"] = updated.Version
	resp, data = doJSON(t, app, "PUT", "/api/maintenances/"+rec.ID, update)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(data))
	assert.Empty(t, decode[services.MaintenanceRecord](t, data).Tasks)
}

func TestForeignTaskIDIsNotMoved(t *testing.T) {
	app, _ := setupApp(t)

	resp, data := doJSON(t, app, "POST", "/api/maintenances", newMaintenanceBody("Pintar"))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(data))
	a := decode[services.MaintenanceRecord](t, data)

	foreign := []map[string]interface{}{{"id": a.Tasks[0].ID, "text": "Outra", "completed": true}}
	body := newMaintenanceBody()
	body["tasks"] = foreign
	resp, data = doJSON(t, app, "POST", "/api/maintenances", body)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(data))
	b := decode[services.MaintenanceRecord](t, data)
	require.Len(t, b.Tasks, 1)
	assert.NotEqual(t, a.Tasks[0].ID, b.Tasks[0].ID)

	body["version"] = b.Version
	resp, data = doJSON(t, app, "PUT", "/api/maintenances/"+b.ID, body)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(data))
	updated := decode[services.MaintenanceRecord](t, data)
	require.Len(t, updated.Tasks, 1)
	assert.NotEqual(t, a.Tasks[0].ID, updated.Tasks[0].ID)

	resp, data = doJSON(t, app, "GET", "/api/maintenances/"+a.ID, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	got := decode[services.MaintenanceRecord](t, data)
	assert.Equal(t, a.Tasks, got.Tasks)
	assert.Equal(t, a.Version, got.Version)
}

func TestMaintenanceValidationAndVersion(t *testing.T) {
	app, _ := setupApp(t)

	body := newMaintenanceBody()
	body["client_name"] = ""
	resp, data := doJSON(t, app, "POST", "/api/maintenances", body)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	errResp := decode[map[string]interface{}](t, data)
	assert.Equal(t, "data.validation.client_name", errResp["type"])

	resp, data = doJSON(t, app, "POST", "/api/maintenances", newMaintenanceBody("A"))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	rec := decode[services.MaintenanceRecord](t, data)

	update := newMaintenanceBody()
	update["version"] = rec.Version
	update["tasks"] = rec.Tasks
	update["model"] = "X2"
	resp, data = doJSON(t, app, "PUT", "/api/maintenances/"+rec.ID, update)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(data))
	updated := decode[services.MaintenanceRecord](t, data)
	assert.Equal(t, "X2", updated.Model)
	assert.Equal(t, rec.Version+1, updated.Version)

	// stale version
	resp, data = doJSON(t, app, "PUT", "/api/maintenances/"+rec.ID, update)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
	errResp = decode[map[string]interface{}](t, data)
	assert.Equal(t, true, errResp["versionError"])

	resp, data = doJSON(t, app, "GET", "/api/maintenances/"+rec.ID, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "X2", decode[services.MaintenanceRecord](t, data).Model)

	resp, _ = doJSON(t, app, "PUT", "/api/maintenances/missing", update)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, app, "DELETE", "/api/maintenances/"+rec.ID, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp, _ = doJSON(t, app, "GET", "/api/maintenances/"+rec.ID, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestListMaintenancesCacheInvalidation(t *testing.T) {
	app, _ := setupApp(t)

	resp, data := doJSON(t, app, "GET", "/api/maintenances", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]services.MaintenanceRecord](t, data))

	resp, _ = doJSON(t, app, "POST", "/api/maintenances", newMaintenanceBody("A"))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, data = doJSON(t, app, "GET", "/api/maintenances", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]services.MaintenanceRecord](t, data), 1)

	resp, data = doJSON(t, app, "GET", "/api/maintenances?q=nomatch", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]services.MaintenanceRecord](t, data))

	resp, data = doJSON(t, app, "GET", "/api/dashboard", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	d := decode[services.Dashboard](t, data)
	assert.Equal(t, int64(1), d.MaintenancesInProgress)
}

func TestRequestFlow(t *testing.T) {
	app, db := setupApp(t)

	resp, data := doJSON(t, app, "POST", "/api/categories", map[string]interface{}{"name": "Peças"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(data))
	cat := decode[models.ItemCategory](t, data)

	resp, data = doJSON(t, app, "POST", "/api/requests", map[string]interface{}{
		"item_name":   "Rolamento",
		"category_id": cat.ID,
		"quantity":    "10",
		"requester":   "Joana",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(data))
	r := decode[models.Request](t, data)
	assert.Equal(t, 10, r.Quantity)
	require.NotNil(t, r.StatusType)
	assert.Equal(t, models.DefaultStatusName, r.StatusType.Name)

	resp, data = doJSON(t, app, "POST", "/api/requests", map[string]interface{}{
		"item_name":   "Rolamento",
		"category_id": cat.ID,
		"quantity":    "dez",
		"requester":   "Joana",
	})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "data.validation.quantity", decode[map[string]interface{}](t, data)["type"])

	var status models.RequestStatusType
	require.NoError(t, db.Where("name = ?", "em_estoque").First(&status).Error)
	resp, data = doJSON(t, app, "PATCH", "/api/requests/"+r.ID+"/status", map[string]interface{}{"status": status.ID})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(data))
	assert.Equal(t, status.ID, decode[models.Request](t, data).StatusID)

	resp, data = doJSON(t, app, "DELETE", "/api/categories/"+cat.ID, nil)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "data.integrity.referenced", decode[map[string]interface{}](t, data)["type"])

	resp, data = doJSON(t, app, "DELETE", "/api/statuses/"+status.ID, nil)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode, string(data))

	resp, data = doJSON(t, app, "GET", "/api/requests?q=joana", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.Request](t, data), 1)

	resp, _ = doJSON(t, app, "DELETE", "/api/requests/"+r.ID, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp, _ = doJSON(t, app, "DELETE", "/api/categories/"+cat.ID, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestCreateRequestWithoutStatusTypes(t *testing.T) {
	app, db := setupApp(t)
	require.NoError(t, db.Where("1 = 1").Delete(&models.RequestStatusType{}).Error)

	resp, data := doJSON(t, app, "POST", "/api/categories", map[string]interface{}{"name": "Peças"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	cat := decode[models.ItemCategory](t, data)

	resp, data = doJSON(t, app, "POST", "/api/requests", map[string]interface{}{
		"item_name":   "Rolamento",
		"category_id": cat.ID,
		"quantity":    10,
		"requester":   "Joana",
	})
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "data.request.no_default_status", decode[map[string]interface{}](t, data)["type"])

	var count int64
	require.NoError(t, db.Model(&models.Request{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestHealthAndVersion(t *testing.T) {
	app, _ := setupApp(t)

	req := httptest.NewRequest("GET", "/api/health", nil)
	req.Header.Set("X-Api-Version", "1")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, middleware.APIVersion, resp.Header.Get("X-Api-Version"))

	var health services.HealthCheckResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "disabled", health.Authorizer)
}

func TestNotFound(t *testing.T) {
	app, _ := setupApp(t)

	resp, data := doJSON(t, app, "GET", "/api/nothing-here", nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", decode[map[string]interface{}](t, data)["type"])
}

func TestMalformedBody(t *testing.T) {
	app, _ := setupApp(t)

	req := httptest.NewRequest("POST", "/api/categories", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
