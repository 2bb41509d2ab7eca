package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/invoiceocr_backend/config"
	"bitbucket.org/mmdatafocus/invoiceocr_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID           int           `gorm:"primary_key" json:"id"`
	Code         string        `gorm:"uniqueIndex;size:50;not null" json:"product_code" binding:"required"`
	Name         string        `gorm:"index;size:255;not null" json:"product_name" binding:"required"`
	Category     string        `gorm:"size:100" json:"category"`
	SupplierName string        `gorm:"size:255" json:"supplier_name"`
	SupplierCode string        `gorm:"index;size:100" json:"supplier_code"`
	Units        []ProductUnit `gorm:"foreignKey:ProductId" json:"units,omitempty"`
	CreatedAt    time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProduct struct {
	Code         string           `json:"product_code" binding:"required"`
	Name         string           `json:"product_name" binding:"required"`
	Category     string           `json:"category"`
	SupplierName string           `json:"supplier_name"`
	SupplierCode string           `json:"supplier_code"`
	Units        []NewProductUnit `json:"units"`
}

// ProductSummary is the lookup shape returned to the reconciliation
// session: the catalog identity of a product plus the per-unit price
// side-data the unit resolver works from.
type ProductSummary struct {
	ID             int                        `json:"id"`
	ProductCode    string                     `json:"product_code"`
	ProductName    string                     `json:"product_name"`
	SupplierCode   string                     `json:"supplier_code,omitempty"`
	Unit           string                     `json:"unit,omitempty"`
	Price          decimal.Decimal            `json:"price"`
	AvailableUnits []string                   `json:"units,omitempty"`
	UnitPrices     map[string]decimal.Decimal `json:"unit_prices,omitempty"`
	SupplierUnits  map[string]string          `json:"supplier_units,omitempty"`
}

func CreateProduct(ctx context.Context, input *NewProduct) (*Product, error) {

	input.Code = strings.TrimSpace(input.Code)
	input.Name = strings.TrimSpace(input.Name)
	if input.Code == "" || input.Name == "" {
		return nil, utils.NewValidationError("product code and name are required")
	}

	db := config.GetDB()

	var count int64
	if err := db.WithContext(ctx).Model(&Product{}).Where("code = ?", input.Code).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, utils.NewValidationError(fmt.Sprintf("product with code %s already exists", input.Code))
	}

	product := Product{
		Code:         input.Code,
		Name:         input.Name,
		Category:     input.Category,
		SupplierName: input.SupplierName,
		SupplierCode: input.SupplierCode,
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&product).Error; err != nil {
			return err
		}
		for i := range input.Units {
			if _, err := createProductUnit(tx, ctx, product.ID, &input.Units[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func GetProduct(ctx context.Context, id int) (*Product, error) {

	var result Product
	db := config.GetDB()
	if err := db.WithContext(ctx).Preload("Units").First(&result, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &result, nil
}

func GetProductByCode(ctx context.Context, code string) (*Product, error) {

	code = strings.TrimSpace(code)
	if code == "" {
		return nil, utils.ErrorRecordNotFound
	}

	var result Product
	if found, err := utils.RetrieveRedisByKey[Product](&result, code); err == nil && found {
		return &result, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Preload("Units").Where("code = ?", code).First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}

	_ = utils.StoreRedisByKey[Product](&result, code)

	return &result, nil
}

// GetProductBySupplierCode looks a product up by the supplier's own
// article code, learned from previously confirmed invoices.
func GetProductBySupplierCode(ctx context.Context, supplierCode string) (*Product, error) {

	supplierCode = strings.TrimSpace(supplierCode)
	if supplierCode == "" {
		return nil, utils.ErrorRecordNotFound
	}

	var result Product
	db := config.GetDB()
	if err := db.WithContext(ctx).Preload("Units").Where("supplier_code = ?", supplierCode).First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &result, nil
}

type UpdateProductInput struct {
	Name         *string `json:"product_name"`
	Category     *string `json:"category"`
	SupplierName *string `json:"supplier_name"`
	SupplierCode *string `json:"supplier_code"`
}

func UpdateProduct(ctx context.Context, id int, input *UpdateProductInput) (*Product, error) {

	product, err := GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	fillable := map[string]interface{}{}
	if input.Name != nil {
		fillable["name"] = strings.TrimSpace(*input.Name)
	}
	if input.Category != nil {
		fillable["category"] = *input.Category
	}
	if input.SupplierName != nil {
		fillable["supplier_name"] = *input.SupplierName
	}
	if input.SupplierCode != nil {
		fillable["supplier_code"] = *input.SupplierCode
	}
	if len(fillable) == 0 {
		return product, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(product).Updates(fillable).Error; err != nil {
		return nil, err
	}

	_ = utils.ClearRedisByKey[Product](product.Code)

	return product, nil
}

func DeleteProduct(ctx context.Context, id int) error {

	product, err := GetProduct(ctx, id)
	if err != nil {
		return err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&ProductPrice{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&ProductStock{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&ProductUnit{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Product{}, id).Error
	})
	if err != nil {
		return err
	}

	_ = utils.ClearRedisByKey[Product](product.Code)

	return nil
}

// searchable columns for restricted search requests
var productSearchFields = map[string]string{
	"product_code":  "code",
	"product_name":  "name",
	"category":      "category",
	"supplier_name": "supplier_name",
	"supplier_code": "supplier_code",
}

// SearchProducts performs a case-insensitive substring search over the
// catalog. fields restricts which columns are matched; empty means all.
func SearchProducts(ctx context.Context, query string, fields []string, limit int) ([]*Product, error) {

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 || limit > config.SearchLimit {
		limit = config.SearchLimit
	}

	columns := make([]string, 0, len(productSearchFields))
	if len(fields) > 0 {
		for _, f := range fields {
			if col, ok := productSearchFields[strings.TrimSpace(f)]; ok {
				columns = append(columns, col)
			}
		}
	}
	if len(columns) == 0 {
		columns = []string{"code", "name", "category", "supplier_name", "supplier_code"}
	}

	conds := make([]string, len(columns))
	args := make([]interface{}, len(columns))
	for i, col := range columns {
		conds[i] = fmt.Sprintf("LOWER(%s) LIKE ?", col)
		args[i] = "%" + strings.ToLower(query) + "%"
	}

	var results []*Product
	db := config.GetDB()
	err := db.WithContext(ctx).
		Preload("Units").
		Where(strings.Join(conds, " OR "), args...).
		Limit(limit).
		Order("code").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Summarize builds the lookup shape used by the reconciliation session.
// Per-unit price data is best effort: a failed price fetch degrades the
// summary instead of failing the lookup.
func (p *Product) Summarize(ctx context.Context) *ProductSummary {

	summary := &ProductSummary{
		ID:           p.ID,
		ProductCode:  p.Code,
		ProductName:  p.Name,
		SupplierCode: p.SupplierCode,
		UnitPrices:   map[string]decimal.Decimal{},
		SupplierUnits: func() map[string]string {
			m := map[string]string{}
			for _, u := range p.Units {
				if u.SupplierUnit != "" {
					m[u.Name] = u.SupplierUnit
				}
			}
			return m
		}(),
	}

	for _, unit := range p.Units {
		summary.AvailableUnits = append(summary.AvailableUnits, unit.Name)
	}
	if len(p.Units) > 0 {
		summary.Unit = p.Units[0].Name
	}

	prices, err := GetPricesForProduct(ctx, p.ID)
	if err != nil {
		logger := config.GetLogger()
		config.LogError(logger, "product.go", "Summarize", "GetPricesForProduct", p.Code, err)
		return summary
	}

	unitNames := map[int]string{}
	for _, u := range p.Units {
		unitNames[u.ID] = u.Name
	}
	for _, price := range prices {
		name, ok := unitNames[price.UnitId]
		if !ok {
			continue
		}
		if _, exists := summary.UnitPrices[name]; !exists {
			summary.UnitPrices[name] = price.CostNow
		}
	}
	if len(p.Units) > 0 {
		if base, ok := summary.UnitPrices[p.Units[0].Name]; ok {
			summary.Price = base
		}
	}

	return summary
}
