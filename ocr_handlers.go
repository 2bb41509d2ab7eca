package main

import (
	"net/http"

	"bitbucket.org/mmdatafocus/invoiceocr_backend/config"
	"bitbucket.org/mmdatafocus/invoiceocr_backend/models"
	"bitbucket.org/mmdatafocus/invoiceocr_backend/ocr"
	"bitbucket.org/mmdatafocus/invoiceocr_backend/utils"
	"bitbucket.org/mmdatafocus/invoiceocr_backend/workflow"
	"github.com/gin-gonic/gin"
)

// ocrStatusHandler reports the processing state of a queued document.
// Unknown ids are a normal negative result, not an error.
func ocrStatusHandler(queue *ocr.Queue) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := queue.Poll(c.Param("id"))
		if status.Status == ocr.StatusNotFound {
			c.JSON(http.StatusOK, gin.H{"id": status.Id, "status": ocr.StatusNotFound})
			return
		}
		c.JSON(http.StatusOK, status)
	}
}

// saveOcrHandler persists a reconciled document as an invoice plus its
// raw OCR payload, then feeds the confirmed data back into the product
// catalog. Catalog learning is best-effort: its failures are reported
// but never roll back the saved invoice.
func saveOcrHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		var input models.SaveOcrInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}

		ctx, span := tracer.Start(c.Request.Context(), "saveOcrDocument")
		defer span.End()

		invoice, err := models.SaveProcessedInvoice(ctx, &input)
		if err != nil {
			if utils.IsValidationError(err) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			config.LogError(logger, "ocr_handlers.go", "saveOcrHandler", "SaveProcessedInvoice", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		learned := workflow.ApplyInvoiceToCatalog(ctx, input.EditedData)

		c.JSON(http.StatusCreated, gin.H{
			"invoice": invoice,
			"catalog": learned,
		})
	}
}
