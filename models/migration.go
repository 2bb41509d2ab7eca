package models

import (
	"log"

	"bitbucket.org/mmdatafocus/invoiceocr_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Product{}, &ProductUnit{}, &ProductPrice{}, &ProductStock{},
		&ProcessedInvoice{}, &RawOCRDocument{},
	)
	if err != nil {
		log.Fatal(err)
	}
}

// DropAndMigrateTable recreates the schema from scratch. Destructive;
// used by `migrate init` only.
func DropAndMigrateTable() error {
	db := config.GetDB()

	err := db.Migrator().DropTable(
		&RawOCRDocument{}, &ProcessedInvoice{},
		&ProductStock{}, &ProductPrice{}, &ProductUnit{}, &Product{},
	)
	if err != nil {
		return err
	}
	return db.AutoMigrate(
		&Product{}, &ProductUnit{}, &ProductPrice{}, &ProductStock{},
		&ProcessedInvoice{}, &RawOCRDocument{},
	)
}

// MigrateImageColumns adds the binary image columns to existing
// processed_invoices tables (targeted additive migration for
// deployments that predate in-database images).
func MigrateImageColumns() error {
	db := config.GetDB()
	m := db.Migrator()

	for _, column := range []string{"ImageData", "ImageContentType"} {
		if !m.HasColumn(&ProcessedInvoice{}, column) {
			if err := m.AddColumn(&ProcessedInvoice{}, column); err != nil {
				return err
			}
		}
	}
	return nil
}
