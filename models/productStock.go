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

// ProductStock holds on-hand quantity per unit. Modeled as has-many for
// schema flexibility even though it is 1:1 per unit in practice.
type ProductStock struct {
	ID        int             `gorm:"primary_key" json:"id"`
	ProductId int             `gorm:"index;not null" json:"product_id"`
	UnitId    int             `gorm:"index;not null" json:"unit_id"`
	Qty       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"qty"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetStockForUnit(ctx context.Context, productId, unitId int) (*ProductStock, error) {

	var result ProductStock
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

func (s *ProductStock) UpdateQty(tx *gorm.DB, ctx context.Context, qty decimal.Decimal) error {
	if err := tx.WithContext(ctx).Model(s).Update("qty", qty).Error; err != nil {
		return err
	}
	s.Qty = qty
	return nil
}
