package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/localnerve/maintdb/internal/checklist"
	"github.com/localnerve/maintdb/internal/config"
	"github.com/localnerve/maintdb/internal/database"
	"github.com/localnerve/maintdb/internal/forms"
	"github.com/localnerve/maintdb/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCommandsRegistered(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"migrate", "seed", "checklist", "schema"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}

	cmd, _, err := root.Find([]string{"checklist"})
	require.NoError(t, err)
	assert.NotNil(t, cmd.Flags().Lookup("json"))

	cmd, _, err = root.Find([]string{"migrate"})
	require.NoError(t, err)
	flag := cmd.Flags().Lookup("seed")
	require.NotNil(t, flag)
	assert.Equal(t, "true", flag.DefValue)
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSchemaCommand(t *testing.T) {
	out, err := run(t, "schema")
	require.NoError(t, err)
	assert.Contains(t, out, "=== Table: maintenances ===")
	assert.Contains(t, out, "=== Table: maintenance_tasks ===")
	assert.Contains(t, out, "=== Table: request_status_types ===")
}

// useSQLiteFile points the configuration at a fresh sqlite file.
func useSQLiteFile(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, nil, 0o600))

	path := filepath.Join(dir, "maintdb.db")
	t.Setenv("ENV_FILE", envFile)
	t.Setenv("DB_TYPE", "sqlite-pure")
	t.Setenv("DB_DATABASE", path)
	t.Setenv("AUTHZ_URL", "")
	return path
}

func TestMigrateAndSeed(t *testing.T) {
	useSQLiteFile(t)

	out, err := run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "migrated")
	assert.Contains(t, out, "seeded 5 status types")

	out, err = run(t, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 0 status types")
}

func TestChecklistCommand(t *testing.T) {
	path := useSQLiteFile(t)
	_, err := run(t, "migrate", "--seed=false")
	require.NoError(t, err)

	db, err := database.Connect(&config.Config{DBType: "sqlite-pure", DBDatabase: path, DBConnectionLimit: 1}, zap.NewNop())
	require.NoError(t, err)
	rec, err := services.CreateMaintenance(context.Background(), db, forms.MaintenanceForm{
		ClientName:      "ACME",
		SerialNumber:    "SN-9",
		Model:           "M9",
		Year:            "2019",
		MaintenanceDate: "2024-06-12",
	}, []checklist.Task{{Text: "Oil", Completed: true}, {Text: "Belt"}, {Text: "Filter"}})
	require.NoError(t, err)
	require.NoError(t, database.Close(db))

	out, err := run(t, "checklist", rec.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Client:           ACME")
	assert.Contains(t, out, "Maintenance date: 2024-06")
	assert.Contains(t, out, "Progress:         33%")
	assert.Contains(t, out, "  [x] Oil")
	assert.Contains(t, out, "  [ ] Belt")

	out, err = run(t, "checklist", "--json", rec.ID)
	require.NoError(t, err)
	var report services.ChecklistReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, []string{"Oil"}, report.Completed)
	assert.Equal(t, []string{"Belt", "Filter"}, report.Pending)

	_, err = run(t, "checklist", "00000000-0000-0000-0000-000000000000")
	assert.Error(t, err)
}
