package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/localnerve/maintdb/internal/database"
	"github.com/localnerve/maintdb/internal/testenv"
	"go.uber.org/zap"
)

func main() {
	var showHelp bool
	flag.BoolVar(&showHelp, "h", false, "show help")
	var envFilename string
	flag.StringVar(&envFilename, "f", "", "path to the .env file")
	var migrate bool
	flag.BoolVar(&migrate, "migrate", true, "create the tables and seed the status types")
	flag.Parse()

	usage := `
Run a throwaway maintdb database container with settings from the .env file.

Usage:

devdb [-h] [-f ENV_FILE_PATH] [-migrate=false]

ENV_FILE_PATH: path to the .env file (DB_TYPE, DB_IMAGE, DB_DATABASE, DB_USER, DB_PASSWORD)

example
  devdb -f /path/to/something/.env
`
	if showHelp {
		fmt.Println(usage)
		return
	}

	if envFilename != "" {
		log.Printf("Loading environment variables from %s\n", envFilename)
		if err := godotenv.Load(envFilename); err != nil {
			log.Fatalf("Failed to load environment variables: %v\n", err)
		}
	} else {
		log.Printf("No environment file specified, using current environment variables\n")
	}

	ctx := context.Background()
	db, err := testenv.StartDatabase(ctx, testenv.Options{
		DBType:   os.Getenv("DB_TYPE"),
		Image:    os.Getenv("DB_IMAGE"),
		Database: os.Getenv("DB_DATABASE"),
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
	})
	if err != nil {
		log.Fatalf("Failed to start database container: %v\n", err)
	}

	if migrate {
		if err := prepare(ctx, db); err != nil {
			_ = db.Terminate(ctx)
			log.Fatalf("Failed to prepare database: %v\n", err)
		}
	}

	env := db.Env()
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%s=%s\n", k, env[k])
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	sig := <-sigs
	log.Printf("\nReceived signal: %v, terminating database container...\n", sig)
	if err := db.Terminate(ctx); err != nil {
		log.Printf("Failed to terminate database container: %v\n", err)
	}
}

func prepare(ctx context.Context, container *testenv.Database) error {
	db, err := database.Connect(container.Config(), zap.NewNop())
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := database.AutoMigrate(ctx, db); err != nil {
		return err
	}
	n, err := database.SeedStatusTypes(ctx, db)
	if err != nil {
		return err
	}
	log.Printf("Seeded %d status types\n", n)
	return nil
}
