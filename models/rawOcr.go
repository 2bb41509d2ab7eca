package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/invoiceocr_backend/config"
	"bitbucket.org/mmdatafocus/invoiceocr_backend/utils"
	"gorm.io/gorm"
)

// RawOCRDocument keeps the unmodified OCR service output for an
// invoice, for audit and replay. 1:1 with ProcessedInvoice and deleted
// with it.
type RawOCRDocument struct {
	ID                 int       `gorm:"primary_key" json:"id"`
	ProcessedInvoiceId int       `gorm:"uniqueIndex;not null" json:"processed_invoice_id"`
	InvoiceNumber      string    `gorm:"index;size:100;not null" json:"invoice_number"`
	InvoiceDate        time.Time `json:"invoice_date"`
	Payload            string    `gorm:"type:json" json:"payload"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func GetRawOCRDocument(ctx context.Context, invoiceNumber string) (*RawOCRDocument, error) {

	var result RawOCRDocument
	db := config.GetDB()
	err := db.WithContext(ctx).
		Where("invoice_number = ?", strings.TrimSpace(invoiceNumber)).
		First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &result, nil
}

func GetRawOCRDocumentByInvoiceId(ctx context.Context, invoiceId int) (*RawOCRDocument, error) {

	var result RawOCRDocument
	db := config.GetDB()
	err := db.WithContext(ctx).
		Where("processed_invoice_id = ?", invoiceId).
		First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &result, nil
}
