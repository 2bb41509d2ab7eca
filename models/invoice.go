package models

import (
	"context"
	"database/sql/driver"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/invoiceocr_backend/config"
	"bitbucket.org/mmdatafocus/invoiceocr_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const DefaultTaxRate = 11.0 // PPN

// ItemList stores the reconciled line items as a JSON document column;
// items are semi-structured and never queried relationally.
type ItemList []LineItem

func (l ItemList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *ItemList) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported type %T for ItemList", value)
	}
}

type ProcessedInvoice struct {
	ID               int             `gorm:"primary_key" json:"id"`
	InvoiceNumber    string          `gorm:"uniqueIndex;size:100;not null" json:"invoice_number"`
	SupplierName     string          `gorm:"index;size:255" json:"supplier_name"`
	DocumentType     string          `gorm:"size:50;default:Invoice" json:"document_type"`
	InvoiceDate      *time.Time      `json:"invoice_date"`
	DueDate          *time.Time      `json:"due_date"`
	PaymentType      string          `gorm:"size:50" json:"payment_type"`
	IncludeTax       bool            `json:"include_tax"`
	TaxRate          decimal.Decimal `gorm:"type:decimal(5,2)" json:"tax_rate"`
	Salesman         string          `gorm:"size:100" json:"salesman"`
	Items            ItemList        `gorm:"type:json" json:"items"`
	ImageData        []byte          `gorm:"type:longblob" json:"-"`
	ImageContentType string          `gorm:"size:100" json:"image_content_type,omitempty"`
	ImagePath        string          `gorm:"size:500" json:"-"` // legacy pre-migration records
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// SaveOcrInput is the body of the save endpoint: the canonical edited
// document, the untouched OCR payload for audit, and an optional image
// as a base64 data URI.
type SaveOcrInput struct {
	OriginalData json.RawMessage  `json:"originalData"`
	EditedData   *InvoiceDocument `json:"editedData" binding:"required"`
	ImageData    string           `json:"imageData"`
}

var dataURIPattern = regexp.MustCompile(`^data:([A-Za-z0-9.+/-]+);base64,(.+)$`)

// decodeImageData decodes a data-URI image. Invalid payloads degrade to
// no image rather than failing the save.
func decodeImageData(imageData string) (data []byte, contentType string) {
	if imageData == "" {
		return nil, ""
	}
	matches := dataURIPattern.FindStringSubmatch(imageData)
	if len(matches) != 3 {
		return nil, ""
	}
	decoded, err := base64.StdEncoding.DecodeString(matches[2])
	if err != nil {
		return nil, ""
	}
	return decoded, matches[1]
}

// SaveProcessedInvoice persists a reconciled OCR document as a new
// invoice together with its raw OCR payload, atomically. Duplicate
// invoice numbers are auto-resolved by numeric suffixing (-2, -3, …),
// never surfaced as an error. The invoice-date/due-date invariant is
// enforced before anything is written.
func SaveProcessedInvoice(ctx context.Context, input *SaveOcrInput) (*ProcessedInvoice, error) {

	if input == nil || input.EditedData == nil {
		return nil, utils.NewValidationError("edited data is required")
	}
	out := &input.EditedData.Output

	baseNumber := strings.TrimSpace(out.InvoiceNumber.Value)
	if baseNumber == "" {
		baseNumber = fmt.Sprintf("INV-%d-%d", time.Now().UnixMilli(), rand.Intn(1000))
	}

	invoiceDate := ParseFlexibleDate(out.InvoiceDate.Value)
	dueDate := ParseFlexibleDate(out.DueDate.Value)
	if invoiceDate != nil && dueDate != nil && invoiceDate.After(*dueDate) {
		return nil, utils.NewValidationError("invoice date must not be after due date")
	}

	taxRate := out.TaxRate.Value
	if taxRate.IsZero() {
		taxRate = decimal.NewFromFloat(DefaultTaxRate)
	}

	imageData, imageContentType := decodeImageData(input.ImageData)

	rawPayload := input.OriginalData
	if len(rawPayload) == 0 {
		// keep at least the edited document for audit/replay
		rawPayload, _ = json.Marshal(input.EditedData)
	}

	invoice := &ProcessedInvoice{
		InvoiceNumber:    baseNumber,
		SupplierName:     strings.TrimSpace(out.SupplierName.Value),
		DocumentType:     "Invoice",
		InvoiceDate:      invoiceDate,
		DueDate:          dueDate,
		PaymentType:      strings.TrimSpace(out.PaymentType.Value),
		IncludeTax:       out.IncludeTax.Value,
		TaxRate:          taxRate,
		Salesman:         strings.TrimSpace(out.Salesman.Value),
		Items:            ItemList(out.Items),
		ImageData:        imageData,
		ImageContentType: imageContentType,
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := resolveInvoiceNumber(tx, ctx, baseNumber)
		if err != nil {
			return err
		}
		invoice.InvoiceNumber = number

		if err := tx.Create(invoice).Error; err != nil {
			return err
		}

		rawDocDate := time.Now()
		if invoiceDate != nil {
			rawDocDate = *invoiceDate
		}
		rawDoc := &RawOCRDocument{
			ProcessedInvoiceId: invoice.ID,
			InvoiceNumber:      invoice.InvoiceNumber,
			InvoiceDate:        rawDocDate,
			Payload:            string(rawPayload),
		}
		return tx.Create(rawDoc).Error
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

var invoiceSuffixPattern = regexp.MustCompile(`-([0-9]+)$`)

// resolveInvoiceNumber returns baseNumber unchanged when free, else the
// next free suffixed number. The first collision yields "-2" (a bare
// base invoice counts as occurrence one).
func resolveInvoiceNumber(tx *gorm.DB, ctx context.Context, baseNumber string) (string, error) {

	var count int64
	if err := tx.WithContext(ctx).Model(&ProcessedInvoice{}).
		Where("invoice_number = ?", baseNumber).
		Count(&count).Error; err != nil {
		return "", err
	}
	if count == 0 {
		return baseNumber, nil
	}

	var similar []ProcessedInvoice
	if err := tx.WithContext(ctx).
		Select("invoice_number").
		Where("invoice_number LIKE ?", baseNumber+"%").
		Find(&similar).Error; err != nil {
		return "", err
	}

	maxSuffix := 2
	for _, inv := range similar {
		rest := strings.TrimPrefix(inv.InvoiceNumber, baseNumber)
		m := invoiceSuffixPattern.FindStringSubmatch(rest)
		if len(m) == 2 && rest == m[0] {
			if suffix, err := strconv.Atoi(m[1]); err == nil && suffix >= maxSuffix {
				maxSuffix = suffix + 1
			}
		}
	}
	return fmt.Sprintf("%s-%d", baseNumber, maxSuffix), nil
}

type UpdateInvoiceInput struct {
	SupplierName *string          `json:"supplier_name"`
	InvoiceDate  *string          `json:"invoice_date"`
	DueDate      *string          `json:"due_date"`
	PaymentType  *string          `json:"payment_type"`
	IncludeTax   *bool            `json:"include_tax"`
	TaxRate      *decimal.Decimal `json:"tax_rate"`
	Salesman     *string          `json:"salesman"`
	Items        *ItemList        `json:"items"`
}

// UpdateProcessedInvoice edits an invoice in place (re-save of the same
// logical invoice). The date invariant is re-checked against the merged
// result before writing.
func UpdateProcessedInvoice(ctx context.Context, id int, input *UpdateInvoiceInput) (*ProcessedInvoice, error) {

	invoice, err := GetProcessedInvoice(ctx, id)
	if err != nil {
		return nil, err
	}

	fillable := map[string]interface{}{}
	invoiceDate := invoice.InvoiceDate
	dueDate := invoice.DueDate

	if input.SupplierName != nil {
		fillable["supplier_name"] = strings.TrimSpace(*input.SupplierName)
	}
	if input.InvoiceDate != nil {
		invoiceDate = ParseFlexibleDate(*input.InvoiceDate)
		fillable["invoice_date"] = invoiceDate
	}
	if input.DueDate != nil {
		dueDate = ParseFlexibleDate(*input.DueDate)
		fillable["due_date"] = dueDate
	}
	if invoiceDate != nil && dueDate != nil && invoiceDate.After(*dueDate) {
		return nil, utils.NewValidationError("invoice date must not be after due date")
	}
	if input.PaymentType != nil {
		fillable["payment_type"] = *input.PaymentType
	}
	if input.IncludeTax != nil {
		fillable["include_tax"] = *input.IncludeTax
	}
	if input.TaxRate != nil {
		fillable["tax_rate"] = *input.TaxRate
	}
	if input.Salesman != nil {
		fillable["salesman"] = *input.Salesman
	}
	if input.Items != nil {
		fillable["items"] = *input.Items
	}
	if len(fillable) == 0 {
		return invoice, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(invoice).Updates(fillable).Error; err != nil {
		return nil, err
	}
	return invoice, nil
}

func GetProcessedInvoice(ctx context.Context, id int) (*ProcessedInvoice, error) {

	var result ProcessedInvoice
	db := config.GetDB()
	if err := db.WithContext(ctx).First(&result, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &result, nil
}

func GetProcessedInvoiceByNumber(ctx context.Context, invoiceNumber string) (*ProcessedInvoice, error) {

	var result ProcessedInvoice
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

// DeleteProcessedInvoice removes an invoice and cascades to its raw OCR
// document.
func DeleteProcessedInvoice(ctx context.Context, id int) error {

	invoice, err := GetProcessedInvoice(ctx, id)
	if err != nil {
		return err
	}

	db := config.GetDB()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("processed_invoice_id = ?", invoice.ID).Delete(&RawOCRDocument{}).Error; err != nil {
			return err
		}
		return tx.Delete(&ProcessedInvoice{}, invoice.ID).Error
	})
}

// SearchProcessedInvoices matches a case-insensitive substring against
// invoice number, supplier name and document type.
func SearchProcessedInvoices(ctx context.Context, query string, limit int) ([]*ProcessedInvoice, error) {

	query = strings.TrimSpace(query)
	if limit <= 0 || limit > config.SearchLimit {
		limit = config.SearchLimit
	}

	db := config.GetDB()
	q := db.WithContext(ctx).Model(&ProcessedInvoice{}).
		// image bytes are heavy; list views fetch them separately
		Omit("image_data")
	if query != "" {
		like := "%" + strings.ToLower(query) + "%"
		q = q.Where(
			"LOWER(invoice_number) LIKE ? OR LOWER(supplier_name) LIKE ? OR LOWER(document_type) LIKE ?",
			like, like, like,
		)
	}

	var results []*ProcessedInvoice
	if err := q.Order("created_at DESC").Limit(limit).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// GetInvoiceImage returns the stored image bytes and content type,
// falling back to the legacy filesystem path for pre-migration rows.
func GetInvoiceImage(ctx context.Context, id int) (data []byte, contentType string, err error) {

	invoice, err := GetProcessedInvoice(ctx, id)
	if err != nil {
		return nil, "", err
	}

	if len(invoice.ImageData) > 0 {
		contentType = invoice.ImageContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		return invoice.ImageData, contentType, nil
	}

	if invoice.ImagePath != "" {
		fileData, readErr := os.ReadFile(invoice.ImagePath)
		if readErr != nil {
			return nil, "", utils.ErrorRecordNotFound
		}
		return fileData, "application/octet-stream", nil
	}

	return nil, "", utils.ErrorRecordNotFound
}

// UpdateInvoiceImage replaces the binary image on an invoice. The
// legacy path column is cleared so reads stop falling back to disk.
func UpdateInvoiceImage(ctx context.Context, id int, data []byte, contentType string) error {

	invoice, err := GetProcessedInvoice(ctx, id)
	if err != nil {
		return err
	}

	db := config.GetDB()
	return db.WithContext(ctx).Model(invoice).Updates(map[string]interface{}{
		"image_data":         data,
		"image_content_type": contentType,
		"image_path":         "",
	}).Error
}
