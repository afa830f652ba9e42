// Package testenv starts throwaway database containers for integration tests
// and local development.
package testenv

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/localnerve/maintdb/internal/config"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Default images per database type, overridable with Options.Image.
var defaultImages = map[string]string{
	"mysql":     "mysql:8.4",
	"mariadb":   "mariadb:11.4",
	"postgres":  "postgres:17-alpine",
	"sqlserver": "mcr.microsoft.com/mssql/server:2022-latest",
}

// Options describes the database container to start.
type Options struct {
	DBType   string
	Image    string
	Database string
	User     string
	Password string
}

// Database is a running database container.
type Database struct {
	Container testcontainers.Container
	Host      string
	Port      nat.Port
	opts      Options
}

// Config returns an application configuration pointing at the container.
func (d *Database) Config() *config.Config {
	return &config.Config{
		Port:              "3000",
		LogLevel:          "info",
		DBType:            d.opts.DBType,
		DBHost:            d.Host,
		DBPort:            d.Port.Port(),
		DBDatabase:        d.opts.Database,
		DBUser:            d.opts.User,
		DBPassword:        d.opts.Password,
		DBConnectionLimit: 5,
		CacheSize:         512,
	}
}

// Env returns the environment variables that configure the server and
// maintctl for this container.
func (d *Database) Env() map[string]string {
	return map[string]string{
		"DB_TYPE":     d.opts.DBType,
		"DB_HOST":     d.Host,
		"DB_PORT":     d.Port.Port(),
		"DB_DATABASE": d.opts.Database,
		"DB_USER":     d.opts.User,
		"DB_PASSWORD": d.opts.Password,
	}
}

// Terminate stops and removes the container.
func (d *Database) Terminate(ctx context.Context) error {
	if d == nil || d.Container == nil {
		return nil
	}
	return d.Container.Terminate(ctx)
}

// StartDatabase starts a database container and waits until it accepts
// connections.
func StartDatabase(ctx context.Context, opts Options) (*Database, error) {
	opts = withDefaults(opts)
	if opts.Image == "" {
		return nil, fmt.Errorf("no container image for database type %q", opts.DBType)
	}

	port, env, waitFor, err := containerSpec(opts)
	if err != nil {
		return nil, err
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        opts.Image,
			ExposedPorts: []string{string(port)},
			Env:          env,
			WaitingFor:   waitFor,
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start %s container: %w", opts.DBType, err)
	}

	db := &Database{Container: container, opts: opts}
	if db.Host, err = container.Host(ctx); err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}
	if db.Port, err = container.MappedPort(ctx, port); err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}
	return db, nil
}

func withDefaults(opts Options) Options {
	if opts.DBType == "" {
		opts.DBType = "mysql"
	}
	if opts.Image == "" {
		opts.Image = defaultImages[opts.DBType]
	}
	if opts.Database == "" {
		opts.Database = "maintdb"
	}
	if opts.User == "" {
		opts.User = "maintdb"
		if opts.DBType == "sqlserver" {
			opts.User = "sa"
		}
	}
	if opts.Password == "" {
		opts.Password = "Maintdb-Test-1"
	}
	return opts
}

func containerSpec(opts Options) (nat.Port, map[string]string, wait.Strategy, error) {
	var (
		portNumber string
		env        map[string]string
		waitFor    wait.Strategy
	)
	switch opts.DBType {
	case "mysql", "mariadb":
		portNumber = "3306"
		env = map[string]string{
			"MYSQL_ROOT_PASSWORD": opts.Password,
			"MYSQL_DATABASE":      opts.Database,
			"MYSQL_USER":          opts.User,
			"MYSQL_PASSWORD":      opts.Password,
		}
	case "postgres":
		portNumber = "5432"
		env = map[string]string{
			"POSTGRES_PASSWORD": opts.Password,
			"POSTGRES_USER":     opts.User,
			"POSTGRES_DB":       opts.Database,
		}
		// postgres restarts once after init, so the log line appears twice
		waitFor = wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(60 * time.Second)
	case "sqlserver":
		portNumber = "1433"
		env = map[string]string{
			"ACCEPT_EULA":       "Y",
			"MSSQL_SA_PASSWORD": opts.Password,
		}
	default:
		return "", nil, nil, fmt.Errorf("unsupported container database type: %s", opts.DBType)
	}

	port, err := nat.NewPort("tcp", portNumber)
	if err != nil {
		return "", nil, nil, err
	}
	if waitFor == nil {
		waitFor = wait.ForListeningPort(port).WithStartupTimeout(90 * time.Second)
	}
	return port, env, waitFor, nil
}
