package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/invoiceocr_backend/config"
	"bitbucket.org/mmdatafocus/invoiceocr_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductPrice is the per-unit price record. CostPrev is a 1-deep cost
// history: it only ever holds the value CostNow had before the last
// real change (see ShiftCost).
type ProductPrice struct {
	ID        int             `gorm:"primary_key" json:"id"`
	ProductId int             `gorm:"index;not null" json:"product_id"`
	UnitId    int             `gorm:"index;not null" json:"unit_id"`
	MinQty    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"min_qty"`
	MaxQty    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"max_qty"`
	CostNow   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cost_now"`
	CostPrev  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cost_prev"`
	SalePrice decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"sale_price"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProductPrice struct {
	MinQty    decimal.Decimal `json:"min_qty"`
	MaxQty    decimal.Decimal `json:"max_qty"`
	CostNow   decimal.Decimal `json:"cost_now"`
	SalePrice decimal.Decimal `json:"sale_price"`
}

// GetPriceForUnit returns the price record for a (product, unit) pair.
func GetPriceForUnit(ctx context.Context, productId, unitId int) (*ProductPrice, error) {

	var result ProductPrice
	db := config.GetDB()
	err := db.WithContext(ctx).
		Where("product_id = ? AND unit_id = ?", productId, unitId).
		First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &result, nil
}

func GetPricesForProduct(ctx context.Context, productId int) ([]*ProductPrice, error) {

	var results []*ProductPrice
	db := config.GetDB()
	err := db.WithContext(ctx).
		Where("product_id = ?", productId).
		Order("unit_id").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// ShiftCost applies a confirmed invoice cost. Invariant: CostPrev is
// only overwritten when CostNow actually changes to a different value;
// re-applying the same cost is a no-op, never a repeated shift.
// Returns whether a shift happened.
func (p *ProductPrice) ShiftCost(tx *gorm.DB, ctx context.Context, newCost decimal.Decimal) (bool, error) {
	if newCost.IsZero() || newCost.Equal(p.CostNow) {
		return false, nil
	}
	oldCost := p.CostNow
	err := tx.WithContext(ctx).Model(p).Updates(map[string]interface{}{
		"cost_prev": oldCost,
		"cost_now":  newCost,
	}).Error
	if err != nil {
		return false, err
	}
	p.CostPrev = oldCost
	p.CostNow = newCost
	return true, nil
}
