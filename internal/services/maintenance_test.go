package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/localnerve/maintdb/internal/checklist"
	"github.com/localnerve/maintdb/internal/forms"
	"github.com/localnerve/maintdb/internal/models"
	"github.com/localnerve/maintdb/internal/services"
	"github.com/localnerve/maintdb/internal/testutil"
	"github.com/localnerve/maintdb/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func maintenanceForm() forms.MaintenanceForm {
	return forms.MaintenanceForm{
		ClientName:      "Fazenda Boa Vista",
		SerialNumber:    "TR-2201",
		Model:           "Trator 7200",
		Year:            "2018",
		MaintenanceDate: "2024-04-15",
	}
}

func threeTasks() []checklist.Task {
	return []checklist.Task{{Text: "Trocar óleo"}, {Text: "Verificar freios"}, {Text: "Lubrificar"}}
}

func TestMaintenanceProgressLifecycle(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()

	rec, err := services.CreateMaintenance(ctx, db, maintenanceForm(), threeTasks())
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, 0, rec.Progress)
	assert.Equal(t, models.StatusInProgress, rec.Status)
	assert.Equal(t, "2024-04-01", rec.MaintenanceDate)
	require.Len(t, rec.Tasks, 3)

	tasks := append([]checklist.Task(nil), rec.Tasks...)
	tasks[0].Completed = true
	rec2, err := services.UpdateMaintenance(ctx, db, rec.ID, rec.Version, maintenanceForm(), tasks)
	require.NoError(t, err)
	assert.Equal(t, 33, rec2.Progress)
	assert.Equal(t, models.StatusInProgress, rec2.Status)
	assert.Equal(t, rec.Version+1, rec2.Version)

	for i := range tasks {
		tasks[i].Completed = true
	}
	rec3, err := services.UpdateMaintenance(ctx, db, rec.ID, rec2.Version, maintenanceForm(), tasks)
	require.NoError(t, err)
	assert.Equal(t, 100, rec3.Progress)
	assert.Equal(t, models.StatusCompleted, rec3.Status)

	for i, task := range rec3.Tasks {
		assert.Equal(t, rec.Tasks[i].ID, task.ID)
	}

	loaded, err := services.GetMaintenance(ctx, db, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec3.Version, loaded.Version)
	assert.Equal(t, 100, loaded.Progress)
}

func TestCreateMaintenanceWithoutTasks(t *testing.T) {
	db := testutil.NewTestDB(t)

	rec, err := services.CreateMaintenance(context.Background(), db, maintenanceForm(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Progress)
	assert.Equal(t, models.StatusInProgress, rec.Status)
	assert.Empty(t, rec.Tasks)
}

func TestCreateMaintenanceValidation(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()

	form := maintenanceForm()
	form.SerialNumber = " "
	_, err := services.CreateMaintenance(ctx, db, form, nil)
	var verr *types.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "serial_number", verr.Field)

	_, err = services.CreateMaintenance(ctx, db, maintenanceForm(), []checklist.Task{{Text: "ok"}, {Text: "  "}})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "tasks", verr.Field)

	var count int64
	require.NoError(t, db.Model(&models.Maintenance{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUpdateMaintenanceVersionConflict(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()

	rec, err := services.CreateMaintenance(ctx, db, maintenanceForm(), threeTasks())
	require.NoError(t, err)

	_, err = services.UpdateMaintenance(ctx, db, rec.ID, rec.Version, maintenanceForm(), rec.Tasks)
	require.NoError(t, err)

	form := maintenanceForm()
	form.ClientName = "Outro cliente"
	_, err = services.UpdateMaintenance(ctx, db, rec.ID, rec.Version, form, rec.Tasks)
	assert.ErrorIs(t, err, types.ErrVersion)

	loaded, err := services.GetMaintenance(ctx, db, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Fazenda Boa Vista", loaded.ClientName)
}

func TestUpdateMaintenanceTaskDiff(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()

	rec, err := services.CreateMaintenance(ctx, db, maintenanceForm(), threeTasks())
	require.NoError(t, err)

	// drop the middle task, move the last one first and append a new one
	next := []checklist.Task{rec.Tasks[2], rec.Tasks[0], {Text: "Calibrar pneus"}}
	updated, err := services.UpdateMaintenance(ctx, db, rec.ID, rec.Version, maintenanceForm(), next)
	require.NoError(t, err)

	require.Len(t, updated.Tasks, 3)
	assert.Equal(t, rec.Tasks[2].ID, updated.Tasks[0].ID)
	assert.Equal(t, rec.Tasks[0].ID, updated.Tasks[1].ID)
	assert.Equal(t, "Calibrar pneus", updated.Tasks[2].Text)
	assert.NotEmpty(t, updated.Tasks[2].ID)

	var rows []models.MaintenanceTask
	require.NoError(t, db.Where("maintenance_id = ?", rec.ID).Order("order_index").Find(&rows).Error)
	require.Len(t, rows, 3)
	for i, row := range rows {
		assert.Equal(t, i, row.OrderIndex)
		assert.NotEqual(t, rec.Tasks[1].ID, row.ID)
	}
}

func TestUpdateMaintenanceNotFound(t *testing.T) {
	db := testutil.NewTestDB(t)
	_, err := services.UpdateMaintenance(context.Background(), db, "missing", 0, maintenanceForm(), nil)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestDeleteMaintenance(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()

	rec, err := services.CreateMaintenance(ctx, db, maintenanceForm(), threeTasks())
	require.NoError(t, err)

	require.NoError(t, services.DeleteMaintenance(ctx, db, rec.ID))

	var tasks int64
	require.NoError(t, db.Model(&models.MaintenanceTask{}).Where("maintenance_id = ?", rec.ID).Count(&tasks).Error)
	assert.Zero(t, tasks)

	_, err = services.GetMaintenance(ctx, db, rec.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)

	assert.ErrorIs(t, services.DeleteMaintenance(ctx, db, rec.ID), types.ErrNotFound)
}

func TestListMaintenancesSearch(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()

	_, err := services.CreateMaintenance(ctx, db, maintenanceForm(), nil)
	require.NoError(t, err)
	other := maintenanceForm()
	other.ClientName = "Sítio Esperança"
	other.SerialNumber = "CO-77"
	_, err = services.CreateMaintenance(ctx, db, other, nil)
	require.NoError(t, err)

	all, err := services.ListMaintenances(ctx, db, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	found, err := services.ListMaintenances(ctx, db, "co-77")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "CO-77", found[0].SerialNumber)

	none, err := services.ListMaintenances(ctx, db, "nothing matches")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListMaintenancesSearchWildcards(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()

	for _, f := range []struct{ model, serial string }{
		{"Kit 50%", "A_B-1"},
		{"Kit 500", "AXB-1"},
	} {
		form := maintenanceForm()
		form.Model = f.model
		form.SerialNumber = f.serial
		_, err := services.CreateMaintenance(ctx, db, form, nil)
		require.NoError(t, err)
	}

	found, err := services.ListMaintenances(ctx, db, "50%")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Kit 50%", found[0].Model)

	found, err = services.ListMaintenances(ctx, db, "a_b")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "A_B-1", found[0].SerialNumber)

	found, err = services.ListMaintenances(ctx, db, "kit 50")
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func TestCreateMaintenanceIgnoresTaskIDs(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()

	a, err := services.CreateMaintenance(ctx, db, maintenanceForm(), []checklist.Task{{Text: "Pintar"}})
	require.NoError(t, err)
	require.Len(t, a.Tasks, 1)

	b, err := services.CreateMaintenance(ctx, db, maintenanceForm(), []checklist.Task{
		{ID: a.Tasks[0].ID, Text: "Outra", Completed: true},
	})
	require.NoError(t, err)
	require.Len(t, b.Tasks, 1)
	assert.NotEqual(t, a.Tasks[0].ID, b.Tasks[0].ID)

	loadedA, err := services.GetMaintenance(ctx, db, a.ID)
	require.NoError(t, err)
	require.Len(t, loadedA.Tasks, 1)
	assert.Equal(t, a.Tasks[0], loadedA.Tasks[0])
	assert.Equal(t, 0, loadedA.Progress)

	loadedB, err := services.GetMaintenance(ctx, db, b.ID)
	require.NoError(t, err)
	require.Len(t, loadedB.Tasks, 1)
	assert.Equal(t, "Outra", loadedB.Tasks[0].Text)
	assert.True(t, loadedB.Tasks[0].Completed)
	assert.Equal(t, 100, loadedB.Progress)
	assert.Equal(t, models.StatusCompleted, loadedB.Status)
	assert.Equal(t, b.Tasks, loadedB.Tasks)
}

func TestUpdateMaintenanceForeignTaskID(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()

	a, err := services.CreateMaintenance(ctx, db, maintenanceForm(), []checklist.Task{{Text: "Pintar"}})
	require.NoError(t, err)
	b, err := services.CreateMaintenance(ctx, db, maintenanceForm(), nil)
	require.NoError(t, err)

	updated, err := services.UpdateMaintenance(ctx, db, b.ID, b.Version, maintenanceForm(), []checklist.Task{
		{ID: a.Tasks[0].ID, Text: "Outra", Completed: true},
	})
	require.NoError(t, err)
	require.Len(t, updated.Tasks, 1)
	assert.NotEqual(t, a.Tasks[0].ID, updated.Tasks[0].ID)
	assert.Equal(t, "Outra", updated.Tasks[0].Text)
	assert.Equal(t, 100, updated.Progress)

	loadedA, err := services.GetMaintenance(ctx, db, a.ID)
	require.NoError(t, err)
	require.Len(t, loadedA.Tasks, 1)
	assert.Equal(t, a.Tasks[0], loadedA.Tasks[0])
	assert.Equal(t, a.Version, loadedA.Version)
}

func TestMaintenanceCancelledContext(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := services.CreateMaintenance(ctx, db, maintenanceForm(), threeTasks())
	assert.ErrorIs(t, err, types.ErrCancelled)

	var count int64
	require.NoError(t, db.Model(&models.Maintenance{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestBuildChecklistReport(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()

	tasks := threeTasks()
	tasks[1].Completed = true
	rec, err := services.CreateMaintenance(ctx, db, maintenanceForm(), tasks)
	require.NoError(t, err)

	report, err := services.BuildChecklistReport(ctx, db, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-04", report.MaintenanceDate)
	assert.Equal(t, 33, report.Progress)
	assert.Equal(t, []string{"Verificar freios"}, report.Completed)
	assert.Equal(t, []string{"Trocar óleo", "Lubrificar"}, report.Pending)

	_, err = services.BuildChecklistReport(ctx, db, "missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
}
