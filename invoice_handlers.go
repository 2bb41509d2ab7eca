package main

import (
	"errors"
	"net/http"
	"strconv"

	"bitbucket.org/mmdatafocus/invoiceocr_backend/config"
	"bitbucket.org/mmdatafocus/invoiceocr_backend/models"
	"bitbucket.org/mmdatafocus/invoiceocr_backend/utils"
	"github.com/gin-gonic/gin"
)

func searchInvoicesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := config.SearchLimit
		if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v < config.SearchLimit {
			limit = v
		}

		invoices, err := models.SearchProcessedInvoices(c.Request.Context(), c.Query("q"), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"invoices": invoices, "count": len(invoices)})
	}
}

func getInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice id"})
			return
		}

		invoice, err := models.GetProcessedInvoice(c.Request.Context(), id)
		if err != nil {
			respondInvoiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

func getInvoiceByNumberHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		invoice, err := models.GetProcessedInvoiceByNumber(c.Request.Context(), c.Param("number"))
		if err != nil {
			respondInvoiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

func updateInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice id"})
			return
		}

		var input models.UpdateInvoiceInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}

		invoice, err := models.UpdateProcessedInvoice(c.Request.Context(), id, &input)
		if err != nil {
			respondInvoiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

func deleteInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice id"})
			return
		}

		if err := models.DeleteProcessedInvoice(c.Request.Context(), id); err != nil {
			respondInvoiceError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// rawDocumentHandler returns the audit copy of the OCR output for an
// invoice.
func rawDocumentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice id"})
			return
		}

		doc, err := models.GetRawOCRDocumentByInvoiceId(c.Request.Context(), id)
		if err != nil {
			respondInvoiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, doc)
	}
}

func rawDocumentByNumberHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := models.GetRawOCRDocument(c.Request.Context(), c.Param("number"))
		if err != nil {
			respondInvoiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, doc)
	}
}

func respondInvoiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "invoice not found"})
	case utils.IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
