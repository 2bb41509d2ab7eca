package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/invoiceocr_backend/config"
	"bitbucket.org/mmdatafocus/invoiceocr_backend/models"
	"bitbucket.org/mmdatafocus/invoiceocr_backend/utils"
	"github.com/bsm/redislock"
	"gorm.io/gorm"
)

// LearnResult summarizes one best-effort catalog update batch. Errors
// are accumulated per line item; they never abort the batch and never
// roll back the invoice save that triggered it.
type LearnResult struct {
	Applied int      `json:"applied"`
	Skipped int      `json:"skipped"`
	Shifted int      `json:"shifted"`
	Errors  []string `json:"errors,omitempty"`
}

// ApplyInvoiceToCatalog feeds a saved invoice back into the product
// master: supplier identity on the product, supplier-unit alias and
// price history on the unit. Per distinct (productCode, unitName) pair
// the first occurrence wins; unknown products and units are skipped
// silently (the catalog simply has nothing to learn onto).
func ApplyInvoiceToCatalog(ctx context.Context, doc *models.InvoiceDocument) LearnResult {
	result := LearnResult{}
	if doc == nil || len(doc.Output.Items) == 0 {
		return result
	}

	logger := config.GetLogger()
	supplierName := strings.TrimSpace(doc.Output.SupplierName.Value)

	seen := map[string]bool{}
	for i := range doc.Output.Items {
		item := &doc.Output.Items[i]

		productCode := strings.TrimSpace(item.CatalogCode.Value)
		unitName := strings.TrimSpace(item.CatalogUnit.Value)
		if productCode == "" || unitName == "" {
			result.Skipped++
			continue
		}

		pairKey := productCode + "-" + unitName
		if seen[pairKey] {
			result.Skipped++
			continue
		}
		seen[pairKey] = true

		shifted, err := applyLineItem(ctx, supplierName, productCode, unitName, item)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				// intentional best-effort: nothing in the catalog to update
				result.Skipped++
				continue
			}
			config.LogError(logger, "catalogLearner.go", "ApplyInvoiceToCatalog", "applyLineItem", pairKey, err)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", pairKey, err))
			continue
		}
		result.Applied++
		if shifted {
			result.Shifted++
		}
	}

	return result
}

func applyLineItem(ctx context.Context, supplierName, productCode, unitName string, item *models.LineItem) (shifted bool, err error) {

	product, err := models.GetProductByCode(ctx, productCode)
	if err != nil {
		return false, err
	}

	// Serialize learners touching the same product across instances.
	// Best-effort only: row-level transaction isolation is the real
	// guarantee, the lock just reduces retry churn.
	if locker := config.GetRedisLock(); locker != nil {
		lock, lockErr := locker.Obtain(ctx, "catalog-learn:"+productCode, 30*time.Second, nil)
		if lockErr == nil {
			defer func() { _ = lock.Release(ctx) }()
		} else if lockErr != redislock.ErrNotObtained {
			config.LogError(config.GetLogger(), "catalogLearner.go", "applyLineItem", "redislock.Obtain", productCode, lockErr)
		}
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {

		if supplierName != "" && supplierName != product.SupplierName {
			if err := tx.Model(product).Update("supplier_name", supplierName).Error; err != nil {
				return err
			}
		}

		// prefer the explicit supplier code; fall back to the invoice's
		// own article code when it differs from the catalog code
		supplierCode := strings.TrimSpace(item.SupplierCode.Value)
		if supplierCode == "" {
			if c := strings.TrimSpace(item.InvoiceCode.Value); c != "" && c != productCode {
				supplierCode = c
			}
		}
		if supplierCode != "" && supplierCode != product.SupplierCode {
			if err := tx.Model(product).Update("supplier_code", supplierCode).Error; err != nil {
				return err
			}
		}

		unit, err := models.GetUnitByName(ctx, product.ID, unitName)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				// product-level updates above still stand
				return nil
			}
			return err
		}

		supplierUnit := strings.TrimSpace(item.SupplierUnit.Value)
		if supplierUnit == "" {
			supplierUnit = strings.TrimSpace(item.CatalogUnit.SupplierUnit)
		}
		if err := unit.UpdateSupplierUnit(tx, ctx, supplierUnit); err != nil {
			return err
		}

		price, err := models.GetPriceForUnit(ctx, product.ID, unit.ID)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				return nil
			}
			return err
		}

		newCost := item.UnitPrice.Value
		if newCost.IsZero() {
			newCost = item.CatalogBasePrice.Value
		}
		if newCost.IsZero() {
			return nil
		}

		preShiftCost := price.CostNow
		didShift, err := price.ShiftCost(tx, ctx, newCost)
		if err != nil {
			return err
		}
		if !didShift {
			return nil
		}
		shifted = true

		// margin threshold compares the sale price against what the
		// cost was before this shift
		if margin, ok := MarginPercent(preShiftCost, price.SalePrice); ok {
			if err := unit.UpdateThresholdMargin(tx, ctx, margin); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	_ = utils.ClearRedisByKey[models.Product](productCode)

	return shifted, nil
}
