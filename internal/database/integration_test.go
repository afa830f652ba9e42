// integration_test.go
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

package database_test

import (
	"context"
	"os"
	"testing"

	"github.com/localnerve/maintdb/internal/checklist"
	"github.com/localnerve/maintdb/internal/database"
	"github.com/localnerve/maintdb/internal/forms"
	"github.com/localnerve/maintdb/internal/services"
	"github.com/localnerve/maintdb/internal/testenv"
	"github.com/localnerve/maintdb/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"go.uber.org/zap"
)

// TestWithContainerDatabase runs migrations and a versioned update against a
// real server database.
func TestWithContainerDatabase(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	dbType := os.Getenv("DB_TYPE")
	if dbType == "" {
		dbType = "postgres"
	}
	container, err := testenv.StartDatabase(ctx, testenv.Options{
		DBType: dbType,
		Image:  os.Getenv("DB_IMAGE"),
	})
	require.NoError(t, err)
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate database container: %v", err)
		}
	}()

	db, err := database.Connect(container.Config(), zap.NewNop())
	require.NoError(t, err)
	defer database.Close(db)

	require.NoError(t, database.AutoMigrate(ctx, db))
	n, err := database.SeedStatusTypes(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	form := forms.MaintenanceForm{
		ClientName:      "ACME",
		SerialNumber:    "SN-1",
		Model:           "X1",
		Year:            "2020",
		MaintenanceDate: "2024-05",
	}
	rec, err := services.CreateMaintenance(ctx, db, form, []checklist.Task{{Text: "Oil"}, {Text: "Filter"}})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), rec.Version)

	tasks := rec.Tasks
	tasks[0].Completed = true
	updated, err := services.UpdateMaintenance(ctx, db, rec.ID, rec.Version, form, tasks)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), updated.Version)
	assert.Equal(t, 50, updated.Progress)
	assert.Equal(t, rec.Tasks[0].ID, updated.Tasks[0].ID)

	_, err = services.UpdateMaintenance(ctx, db, rec.ID, rec.Version, form, tasks)
	assert.ErrorIs(t, err, types.ErrVersion)
}
