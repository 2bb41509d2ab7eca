package models_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/invoiceocr_backend/config"
	"bitbucket.org/mmdatafocus/invoiceocr_backend/models"
	"bitbucket.org/mmdatafocus/invoiceocr_backend/utils"
	"github.com/shopspring/decimal"
)

func setupIntegrationDB(t *testing.T) context.Context {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", "")
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "invoiceocr_test")

	config.ConnectDatabaseWithRetry()
	models.MigrateTable()

	return context.Background()
}

func sampleDocument(number string) *models.InvoiceDocument {
	return &models.InvoiceDocument{
		Output: models.InvoiceOutput{
			InvoiceNumber: models.NewField(number, true),
			SupplierName:  models.NewField("PT SUMBER AIR", true),
			InvoiceDate:   models.NewField("01-03-2024", true),
			DueDate:       models.NewField("31-03-2024", true),
			Items: []models.LineItem{
				models.ParseLineItem(map[string]any{
					"kode_barang_invoice": map[string]any{"value": "A-1", "is_confident": true},
					"nama_barang_invoice": map[string]any{"value": "MINERAL WATER", "is_confident": true},
					"qty":                 map[string]any{"value": 10, "is_confident": true},
					"satuan":              map[string]any{"value": "KARTON", "is_confident": true},
					"harga_satuan":        map[string]any{"value": 48000, "is_confident": true},
				}),
			},
		},
	}
}

func TestSaveInvoiceCollisionSuffixing(t *testing.T) {
	ctx := setupIntegrationDB(t)

	first, err := models.SaveProcessedInvoice(ctx, &models.SaveOcrInput{
		OriginalData: json.RawMessage(`{"raw": true}`),
		EditedData:   sampleDocument("INV-1"),
	})
	if err != nil {
		t.Fatalf("first save: %v", err)
	}
	if first.InvoiceNumber != "INV-1" {
		t.Fatalf("expected INV-1, got %s", first.InvoiceNumber)
	}

	second, err := models.SaveProcessedInvoice(ctx, &models.SaveOcrInput{
		EditedData: sampleDocument("INV-1"),
	})
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if second.InvoiceNumber != "INV-1-2" {
		t.Fatalf("expected INV-1-2, got %s", second.InvoiceNumber)
	}

	third, err := models.SaveProcessedInvoice(ctx, &models.SaveOcrInput{
		EditedData: sampleDocument("INV-1"),
	})
	if err != nil {
		t.Fatalf("third save: %v", err)
	}
	if third.InvoiceNumber != "INV-1-3" {
		t.Fatalf("expected INV-1-3, got %s", third.InvoiceNumber)
	}
}

func TestSaveInvoiceDateInvariant(t *testing.T) {
	ctx := setupIntegrationDB(t)

	doc := sampleDocument("INV-DATES")
	doc.Output.InvoiceDate = models.NewField("15-04-2024", true)
	doc.Output.DueDate = models.NewField("01-04-2024", true)

	_, err := models.SaveProcessedInvoice(ctx, &models.SaveOcrInput{EditedData: doc})
	if err == nil {
		t.Fatal("invoice date after due date must be rejected")
	}
	if !utils.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	if _, err := models.GetProcessedInvoiceByNumber(ctx, "INV-DATES"); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("rejected save must write nothing, got %v", err)
	}
}

func TestSaveInvoicePersistsRawDocument(t *testing.T) {
	ctx := setupIntegrationDB(t)

	invoice, err := models.SaveProcessedInvoice(ctx, &models.SaveOcrInput{
		OriginalData: json.RawMessage(`{"output": {"items": []}}`),
		EditedData:   sampleDocument("INV-RAW"),
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	raw, err := models.GetRawOCRDocumentByInvoiceId(ctx, invoice.ID)
	if err != nil {
		t.Fatalf("raw document lookup: %v", err)
	}
	if raw.InvoiceNumber != invoice.InvoiceNumber {
		t.Fatalf("raw document keyed to %s, want %s", raw.InvoiceNumber, invoice.InvoiceNumber)
	}

	byNumber, err := models.GetRawOCRDocument(ctx, invoice.InvoiceNumber)
	if err != nil {
		t.Fatalf("raw document lookup by number: %v", err)
	}
	if byNumber.ID != raw.ID {
		t.Fatalf("number lookup returned document %d, want %d", byNumber.ID, raw.ID)
	}

	// cascade delete
	if err := models.DeleteProcessedInvoice(ctx, invoice.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := models.GetRawOCRDocumentByInvoiceId(ctx, invoice.ID); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("raw document must cascade delete, got %v", err)
	}
}

func TestSaveInvoiceGeneratesNumber(t *testing.T) {
	ctx := setupIntegrationDB(t)

	doc := sampleDocument("")
	invoice, err := models.SaveProcessedInvoice(ctx, &models.SaveOcrInput{EditedData: doc})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasPrefix(invoice.InvoiceNumber, "INV-") {
		t.Fatalf("expected generated INV- number, got %s", invoice.InvoiceNumber)
	}
	if !invoice.TaxRate.Equal(decimal.NewFromFloat(models.DefaultTaxRate)) {
		t.Fatalf("expected default tax rate, got %s", invoice.TaxRate)
	}
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("invoiceocr-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=invoiceocr_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
