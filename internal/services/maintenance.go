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

package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/localnerve/maintdb/internal/checklist"
	"github.com/localnerve/maintdb/internal/forms"
	"github.com/localnerve/maintdb/internal/models"
	"github.com/localnerve/maintdb/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/hints"
)

// MaintenanceRecord is the API shape of a maintenance with its checklist.
type MaintenanceRecord struct {
	ID string `json:"id"`
	forms.MaintenanceForm
	Tasks     []checklist.Task `json:"tasks"`
	Progress  int              `json:"progress"`
	Status    string           `json:"status"`
	Version   uint64           `json:"version"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Checklist hydrates a task collection from the record.
func (r *MaintenanceRecord) Checklist() *checklist.Collection {
	return checklist.New(r.Tasks...)
}

func recordFromModel(m *models.Maintenance) *MaintenanceRecord {
	tasks := make([]checklist.Task, 0, len(m.Tasks))
	for _, t := range m.Tasks {
		tasks = append(tasks, checklist.Task{ID: t.ID, Text: t.Description, Completed: t.Completed})
	}
	return &MaintenanceRecord{
		ID:              m.ID,
		MaintenanceForm: forms.FormFromModel(m),
		Tasks:           tasks,
		Progress:        m.Progress,
		Status:          m.Status,
		Version:         m.Version,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// derivedStatus is completed only when there is at least one task and all are done.
func derivedStatus(c *checklist.Collection) string {
	if c.Done() {
		return models.StatusCompleted
	}
	return models.StatusInProgress
}

// validateTasks rejects blank task text and duplicate task ids.
func validateTasks(tasks []checklist.Task) error {
	seen := make(map[string]struct{}, len(tasks))
	for _, t := range tasks {
		if strings.TrimSpace(t.Text) == "" {
			return types.Invalid("tasks", "task text must not be empty")
		}
		if t.ID == "" {
			continue
		}
		if _, ok := seen[t.ID]; ok {
			return types.Invalid("tasks", "duplicate task id "+t.ID)
		}
		seen[t.ID] = struct{}{}
	}
	return nil
}

func preloadTasks(db *gorm.DB) *gorm.DB {
	return db.Preload("Tasks", func(db *gorm.DB) *gorm.DB {
		return db.Order("order_index ASC")
	})
}

// GetMaintenance reads a maintenance and its tasks in order.
func GetMaintenance(ctx context.Context, db *gorm.DB, id string) (*MaintenanceRecord, error) {
	var m models.Maintenance
	err := preloadTasks(silent(db.WithContext(ctx))).
		Where("id = ?", id).
		First(&m).Error
	if err != nil {
		return nil, wrapDBError(ctx, "get maintenance", err)
	}
	return recordFromModel(&m), nil
}

// ListMaintenances returns maintenances newest first, optionally filtered by a
// case-insensitive search over client, serial number and model.
func ListMaintenances(ctx context.Context, db *gorm.DB, search string) ([]MaintenanceRecord, error) {
	query := preloadTasks(db.WithContext(ctx).Clauses(hints.Comment("select", "maintenances.list")))
	if strings.TrimSpace(search) != "" {
		pattern := likePattern(search)
		query = query.Where(
			"LOWER(client_name) LIKE ? ESCAPE '!' OR LOWER(serial_number) LIKE ? ESCAPE '!' OR LOWER(model) LIKE ? ESCAPE '!'",
			pattern, pattern, pattern,
		)
	}

	var rows []models.Maintenance
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, wrapDBError(ctx, "list maintenances", err)
	}

	out := make([]MaintenanceRecord, 0, len(rows))
	for i := range rows {
		out = append(out, *recordFromModel(&rows[i]))
	}
	return out, nil
}

// CreateMaintenance inserts the record and its task rows in one transaction.
// Task rows always get new ids; ids sent with tasks are ignored.
func CreateMaintenance(ctx context.Context, db *gorm.DB, form forms.MaintenanceForm, tasks []checklist.Task) (*MaintenanceRecord, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}
	if err := validateTasks(tasks); err != nil {
		return nil, err
	}
	if err := checkContext(ctx, "create maintenance"); err != nil {
		return nil, err
	}

	form.Normalize()
	month, _ := form.Month()
	c := checklist.New(tasks...)

	m := models.Maintenance{
		ClientName:      form.ClientName,
		SerialNumber:    form.SerialNumber,
		Model:           form.Model,
		Year:            form.Year.String(),
		MaintenanceDate: month,
		Progress:        c.Progress(),
		Status:          derivedStatus(c),
		Tasks:           freshTaskRows(c),
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&m).Error
	})
	if err != nil {
		return nil, wrapDBError(ctx, "create maintenance", err)
	}
	return recordFromModel(&m), nil
}

// UpdateMaintenance replaces the scalar fields and checklist of a maintenance.
// The record is locked, its version must equal version, and the task rows are
// diffed so unchanged tasks keep their rows.
func UpdateMaintenance(ctx context.Context, db *gorm.DB, id string, version uint64, form forms.MaintenanceForm, tasks []checklist.Task) (*MaintenanceRecord, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}
	if err := validateTasks(tasks); err != nil {
		return nil, err
	}
	if err := checkContext(ctx, "update maintenance"); err != nil {
		return nil, err
	}

	form.Normalize()
	month, _ := form.Month()
	c := checklist.New(tasks...)

	var result models.Maintenance
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Maintenance
		if err := preloadTasks(silent(tx)).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&current).Error; err != nil {
			return err
		}

		if current.Version != version {
			return types.ErrVersion
		}

		if err := applyTaskDiff(tx, id, current.Tasks, taskRows(c, id)); err != nil {
			return err
		}

		res := tx.Model(&models.Maintenance{}).
			Where("id = ? AND version = ?", id, version).
			Updates(map[string]interface{}{
				"client_name":      form.ClientName,
				"serial_number":    form.SerialNumber,
				"model":            form.Model,
				"year":             form.Year.String(),
				"maintenance_date": month,
				"progress":         c.Progress(),
				"status":           derivedStatus(c),
				"version":          version + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return types.ErrVersion
		}

		return preloadTasks(tx).Where("id = ?", id).First(&result).Error
	})
	if err != nil {
		return nil, wrapDBError(ctx, "update maintenance", err)
	}
	return recordFromModel(&result), nil
}

// DeleteMaintenance removes the task rows and then the record, in one transaction.
func DeleteMaintenance(ctx context.Context, db *gorm.DB, id string) error {
	if err := checkContext(ctx, "delete maintenance"); err != nil {
		return err
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m models.Maintenance
		if err := silent(tx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("id = ?", id).
			First(&m).Error; err != nil {
			return err
		}
		if err := tx.Where("maintenance_id = ?", id).Delete(&models.MaintenanceTask{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Maintenance{}, "id = ?", id).Error
	})
	return wrapDBError(ctx, "delete maintenance", err)
}

// taskRows converts a collection into ordered task rows for maintenanceID.
func taskRows(c *checklist.Collection, maintenanceID string) []models.MaintenanceTask {
	tasks := c.Tasks()
	rows := make([]models.MaintenanceTask, 0, len(tasks))
	for i, t := range tasks {
		id := t.ID
		if id == "" {
			id = uuid.NewString()
		}
		rows = append(rows, models.MaintenanceTask{
			ID:            id,
			MaintenanceID: maintenanceID,
			Description:   strings.TrimSpace(t.Text),
			Completed:     t.Completed,
			OrderIndex:    i,
		})
	}
	return rows
}

// freshTaskRows is taskRows with a new id on every row.
func freshTaskRows(c *checklist.Collection) []models.MaintenanceTask {
	rows := taskRows(c, "")
	for i := range rows {
		rows[i].ID = uuid.NewString()
	}
	return rows
}

// reassignTakenIDs gives a new id to every row whose id is already stored,
// which for rows about to be inserted means another maintenance owns it.
func reassignTakenIDs(tx *gorm.DB, rows []models.MaintenanceTask) error {
	ids := make([]string, 0, len(rows))
	for _, t := range rows {
		ids = append(ids, t.ID)
	}

	var taken []string
	if err := tx.Model(&models.MaintenanceTask{}).Where("id IN ?", ids).Pluck("id", &taken).Error; err != nil {
		return err
	}
	if len(taken) == 0 {
		return nil
	}

	used := make(map[string]struct{}, len(taken))
	for _, id := range taken {
		used[id] = struct{}{}
	}
	for i := range rows {
		if _, ok := used[rows[i].ID]; ok {
			rows[i].ID = uuid.NewString()
		}
	}
	return nil
}

// applyTaskDiff deletes rows no longer present, updates rows whose text,
// completion or position changed, and inserts new rows.
func applyTaskDiff(tx *gorm.DB, maintenanceID string, current, next []models.MaintenanceTask) error {
	existing := make(map[string]models.MaintenanceTask, len(current))
	for _, t := range current {
		existing[t.ID] = t
	}

	var inserts []models.MaintenanceTask
	for _, t := range next {
		old, ok := existing[t.ID]
		if !ok {
			inserts = append(inserts, t)
			continue
		}
		delete(existing, t.ID)

		if old.Description == t.Description && old.Completed == t.Completed && old.OrderIndex == t.OrderIndex {
			continue
		}
		if err := tx.Model(&models.MaintenanceTask{}).
			Where("id = ? AND maintenance_id = ?", t.ID, maintenanceID).
			Updates(map[string]interface{}{
				"description": t.Description,
				"completed":   t.Completed,
				"order_index": t.OrderIndex,
			}).Error; err != nil {
			return err
		}
	}

	if len(existing) > 0 {
		removed := make([]string, 0, len(existing))
		for id := range existing {
			removed = append(removed, id)
		}
		if err := tx.Where("maintenance_id = ? AND id IN ?", maintenanceID, removed).
			Delete(&models.MaintenanceTask{}).Error; err != nil {
			return err
		}
	}

	if len(inserts) > 0 {
		if err := reassignTakenIDs(tx, inserts); err != nil {
			return err
		}
		if err := tx.Create(&inserts).Error; err != nil {
			return err
		}
	}
	return nil
}

// MaintenanceStore binds the maintenance operations to a database handle.
type MaintenanceStore struct {
	DB *gorm.DB
}

func (s MaintenanceStore) Load(ctx context.Context, id string) (*MaintenanceRecord, error) {
	return GetMaintenance(ctx, s.DB, id)
}

func (s MaintenanceStore) Create(ctx context.Context, form forms.MaintenanceForm, tasks []checklist.Task) (*MaintenanceRecord, error) {
	return CreateMaintenance(ctx, s.DB, form, tasks)
}

func (s MaintenanceStore) Update(ctx context.Context, id string, version uint64, form forms.MaintenanceForm, tasks []checklist.Task) (*MaintenanceRecord, error) {
	return UpdateMaintenance(ctx, s.DB, id, version, form, tasks)
}

func (s MaintenanceStore) Delete(ctx context.Context, id string) error {
	return DeleteMaintenance(ctx, s.DB, id)
}
