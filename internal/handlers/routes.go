package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/maintdb/internal/cache"
	"github.com/localnerve/maintdb/internal/config"
	"github.com/localnerve/maintdb/internal/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Dependencies are shared by every handler
type Dependencies struct {
	DB     *gorm.DB
	Cache  *cache.QueryCache
	Logger *zap.Logger
	Config *config.Config
}

// Register mounts the API routes on api. Reads are public, writes need a
// user session and category or status management an admin session.
func Register(api fiber.Router, deps Dependencies) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Config == nil {
		deps.Config = &config.Config{}
	}

	user := middleware.AuthUser(deps.Config, deps.Logger)
	admin := middleware.AuthAdmin(deps.Config, deps.Logger)

	dashboard := &DashboardHandler{DB: deps.DB, Cache: deps.Cache, Logger: deps.Logger, Config: deps.Config}
	maintenances := &MaintenanceHandler{DB: deps.DB, Cache: deps.Cache, Logger: deps.Logger}
	requests := &RequestHandler{DB: deps.DB, Cache: deps.Cache, Logger: deps.Logger}
	categories := &CategoryHandler{DB: deps.DB, Cache: deps.Cache, Logger: deps.Logger}
	statuses := &StatusTypeHandler{DB: deps.DB, Cache: deps.Cache, Logger: deps.Logger}

	api.Get("/health", dashboard.GetHealth)
	api.Get("/dashboard", dashboard.GetDashboard)

	m := api.Group("/maintenances")
	m.Get("/", maintenances.ListMaintenances)
	m.Post("/", user, maintenances.CreateMaintenance)
	m.Get("/:id", maintenances.GetMaintenance)
	m.Put("/:id", user, maintenances.UpdateMaintenance)
	m.Delete("/:id", user, maintenances.DeleteMaintenance)
	m.Get("/:id/checklist", maintenances.GetChecklist)
	m.Post("/:id/tasks/reorder", user, maintenances.ReorderTasks)
	m.Post("/:id/tasks", user, maintenances.AddTask)
	m.Patch("/:id/tasks/:taskId", user, maintenances.UpdateTask)
	m.Delete("/:id/tasks/:taskId", user, maintenances.DeleteTask)

	r := api.Group("/requests")
	r.Get("/", requests.ListRequests)
	r.Post("/", user, requests.CreateRequest)
	r.Get("/:id", requests.GetRequest)
	r.Put("/:id", user, requests.UpdateRequest)
	r.Patch("/:id/status", user, requests.UpdateRequestStatus)
	r.Delete("/:id", user, requests.DeleteRequest)

	cat := api.Group("/categories")
	cat.Get("/", categories.ListCategories)
	cat.Post("/", admin, categories.CreateCategory)
	cat.Put("/:id", admin, categories.UpdateCategory)
	cat.Delete("/:id", admin, categories.DeleteCategory)

	st := api.Group("/statuses")
	st.Get("/", statuses.ListStatusTypes)
	st.Post("/", admin, statuses.CreateStatusType)
	st.Put("/:id", admin, statuses.UpdateStatusType)
	st.Delete("/:id", admin, statuses.DeleteStatusType)
}
