package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/invoiceocr_backend/config"
	"bitbucket.org/mmdatafocus/invoiceocr_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductUnit is one named sale unit of a product ("PCS", "BOX"), with
// its conversion factor to the product's base unit. SupplierUnit keeps
// the last-seen supplier wording for this unit; ThresholdMargin is a
// derived alert signal, not an authoritative business rule.
type ProductUnit struct {
	ID               int             `gorm:"primary_key" json:"id"`
	ProductId        int             `gorm:"uniqueIndex:idx_product_unit;not null" json:"product_id"`
	Name             string          `gorm:"uniqueIndex:idx_product_unit;size:20;not null" json:"unit_name" binding:"required"`
	ConversionFactor decimal.Decimal `gorm:"type:decimal(20,4);default:1" json:"conversion_factor"`
	SupplierUnit     string          `gorm:"size:50" json:"supplier_unit"`
	ThresholdMargin  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"threshold_margin"`
	Prices           []ProductPrice  `gorm:"foreignKey:UnitId" json:"prices,omitempty"`
	Stocks           []ProductStock  `gorm:"foreignKey:UnitId" json:"stocks,omitempty"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProductUnit struct {
	Name             string           `json:"unit_name" binding:"required"`
	ConversionFactor decimal.Decimal  `json:"conversion_factor"`
	SupplierUnit     string           `json:"supplier_unit"`
	Prices           []NewProductPrice `json:"prices"`
	Stock            *decimal.Decimal `json:"stock"`
}

func createProductUnit(tx *gorm.DB, ctx context.Context, productId int, input *NewProductUnit) (*ProductUnit, error) {

	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, utils.NewValidationError("unit name is required")
	}
	factor := input.ConversionFactor
	if factor.IsZero() {
		factor = decimal.NewFromInt(1)
	}

	unit := ProductUnit{
		ProductId:        productId,
		Name:             input.Name,
		ConversionFactor: factor,
		SupplierUnit:     strings.TrimSpace(input.SupplierUnit),
	}
	if err := tx.WithContext(ctx).Create(&unit).Error; err != nil {
		return nil, err
	}

	for i := range input.Prices {
		price := ProductPrice{
			ProductId: productId,
			UnitId:    unit.ID,
			MinQty:    input.Prices[i].MinQty,
			MaxQty:    input.Prices[i].MaxQty,
			CostNow:   input.Prices[i].CostNow,
			SalePrice: input.Prices[i].SalePrice,
		}
		if err := tx.WithContext(ctx).Create(&price).Error; err != nil {
			return nil, err
		}
	}

	if input.Stock != nil {
		stock := ProductStock{
			ProductId: productId,
			UnitId:    unit.ID,
			Qty:       *input.Stock,
		}
		if err := tx.WithContext(ctx).Create(&stock).Error; err != nil {
			return nil, err
		}
	}

	return &unit, nil
}

// GetUnitByName resolves a unit by its catalog name within a product.
func GetUnitByName(ctx context.Context, productId int, name string) (*ProductUnit, error) {

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, utils.ErrorRecordNotFound
	}

	var result ProductUnit
	db := config.GetDB()
	err := db.WithContext(ctx).
		Where("product_id = ? AND name = ?", productId, name).
		First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &result, nil
}

// UpdateSupplierUnit remembers the supplier's wording for this unit.
// No-op when unchanged.
func (u *ProductUnit) UpdateSupplierUnit(tx *gorm.DB, ctx context.Context, supplierUnit string) error {
	supplierUnit = strings.TrimSpace(supplierUnit)
	if supplierUnit == "" || supplierUnit == u.SupplierUnit {
		return nil
	}
	if err := tx.WithContext(ctx).Model(u).Update("supplier_unit", supplierUnit).Error; err != nil {
		return err
	}
	u.SupplierUnit = supplierUnit
	return nil
}

func (u *ProductUnit) UpdateThresholdMargin(tx *gorm.DB, ctx context.Context, margin decimal.Decimal) error {
	if err := tx.WithContext(ctx).Model(u).Update("threshold_margin", margin).Error; err != nil {
		return err
	}
	u.ThresholdMargin = margin
	return nil
}
