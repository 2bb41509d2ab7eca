package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/invoiceocr_backend/config"
	"bitbucket.org/mmdatafocus/invoiceocr_backend/models"
	"bitbucket.org/mmdatafocus/invoiceocr_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Bulk catalog import from an xlsx sheet. Expected columns, one row per
// product unit (consecutive rows with the same code become extra units):
//
//	code | name | category | supplier_name | supplier_code |
//	unit | conversion_factor | supplier_unit | cost | sale_price | stock
func main() {
	filePath := flag.String("file", "", "path to the xlsx catalog file")
	sheet := flag.String("sheet", "Sheet1", "sheet name to read")
	flag.Parse()

	if *filePath == "" {
		fmt.Fprintln(os.Stderr, "usage: catalog-import -file catalog.xlsx [-sheet Sheet1]")
		os.Exit(1)
	}

	f, err := excelize.OpenFile(*filePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to open Excel file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	rows, err := f.GetRows(*sheet)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to read sheet: %v\n", err)
		os.Exit(1)
	}
	if len(rows) < 2 {
		fmt.Fprintln(os.Stderr, "sheet has no data rows")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}
	models.MigrateTable()

	ctx := context.Background()
	products := groupRows(rows[1:])

	created, failed := 0, 0
	for _, input := range products {
		if _, err := models.CreateProduct(ctx, input); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "product %s: %v\n", input.Code, err)
			continue
		}
		created++
	}

	fmt.Printf("imported %d products, %d failed\n", created, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

// groupRows folds unit rows into their product; a row repeating the
// previous product code contributes a unit only.
func groupRows(rows [][]string) []*models.NewProduct {
	var products []*models.NewProduct
	var current *models.NewProduct

	for _, row := range rows {
		code := cell(row, 0)
		if code == "" && current == nil {
			continue
		}

		if code != "" && (current == nil || current.Code != code) {
			current = &models.NewProduct{
				Code:         code,
				Name:         cell(row, 1),
				Category:     cell(row, 2),
				SupplierName: cell(row, 3),
				SupplierCode: cell(row, 4),
			}
			products = append(products, current)
		}

		unitName := cell(row, 5)
		if unitName == "" {
			continue
		}
		unit := models.NewProductUnit{
			Name:             unitName,
			ConversionFactor: decimalCell(row, 6),
			SupplierUnit:     cell(row, 7),
		}
		cost := decimalCell(row, 8)
		sale := decimalCell(row, 9)
		if !cost.IsZero() || !sale.IsZero() {
			unit.Prices = []models.NewProductPrice{{CostNow: cost, SalePrice: sale}}
		}
		if stock := decimalCell(row, 10); !stock.IsZero() {
			unit.Stock = &stock
		}
		current.Units = append(current.Units, unit)
	}

	return products
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func decimalCell(row []string, idx int) decimal.Decimal {
	return utils.DecimalFromAny(cell(row, idx))
}
