package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/ovaphlow/pitchfork/service-redacao-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-redacao-go/pkg/utilities"
)

func main() {
	statusOnly := flag.Bool("status", false, "print the schema version and exit")
	flag.Parse()

	_ = godotenv.Load()

	// init logger
	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()

	// init db
	sqlDB, err := database.Connect(database.ConfigFromEnv())
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer sqlDB.Close()

	if !*statusOnly {
		if err := database.Migrate(sqlDB); err != nil {
			sugar.Fatalf("migrate: %v", err)
		}
	}
	v, err := database.MigrationVersion(sqlDB)
	if err != nil {
		sugar.Fatalf("schema version: %v", err)
	}
	sugar.Infow("schema version", "version", v)
}
