package main

import (
	"flag"
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/invoiceocr_backend/config"
	"bitbucket.org/mmdatafocus/invoiceocr_backend/models"
	"github.com/joho/godotenv"
)

// Schema migration entrypoint. Modes:
//
//	init              drop and recreate all tables (destructive)
//	update            non-destructive AutoMigrate sync
//	add-image-columns additive migration for invoice image storage
func main() {
	mode := flag.String("mode", "update", "migration mode: init, update or add-image-columns")
	flag.Parse()

	_ = godotenv.Load()

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	switch *mode {
	case "init":
		if err := models.DropAndMigrateTable(); err != nil {
			fmt.Fprintf(os.Stderr, "init migration failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("schema recreated")
	case "update":
		models.MigrateTable()
		fmt.Println("schema synced")
	case "add-image-columns":
		if err := models.MigrateImageColumns(); err != nil {
			fmt.Fprintf(os.Stderr, "image column migration failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("image columns added")
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q (want init, update or add-image-columns)\n", *mode)
		os.Exit(1)
	}
}
