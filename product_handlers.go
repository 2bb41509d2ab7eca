package main

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"bitbucket.org/mmdatafocus/invoiceocr_backend/config"
	"bitbucket.org/mmdatafocus/invoiceocr_backend/models"
	"bitbucket.org/mmdatafocus/invoiceocr_backend/utils"
	"github.com/gin-gonic/gin"
)

func createProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewProduct
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "fields": utils.ProcessValidationErrors(err)})
			return
		}

		product, err := models.CreateProduct(c.Request.Context(), &input)
		if err != nil {
			respondProductError(c, err)
			return
		}
		c.JSON(http.StatusCreated, product)
	}
}

// searchProductsHandler does a case-insensitive substring search;
// ?fields=code,name restricts the searched columns.
func searchProductsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var fields []string
		if raw := strings.TrimSpace(c.Query("fields")); raw != "" {
			// a repeated field would duplicate its LIKE clause
			fields = utils.UniqueSlice(strings.Split(raw, ","))
		}

		limit := 0
		if v, err := strconv.Atoi(c.Query("limit")); err == nil {
			limit = v
		}

		products, err := models.SearchProducts(c.Request.Context(), c.Query("q"), fields, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"products": products, "count": len(products)})
	}
}

func getProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
			return
		}

		product, err := models.GetProduct(c.Request.Context(), id)
		if err != nil {
			respondProductError(c, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

// lookupProductHandler resolves a product by catalog code, falling back
// to supplier code, and returns the summary shape the reconciliation
// screen binds to a line item.
func lookupProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Param("code")

		product, err := models.GetProductByCode(c.Request.Context(), code)
		if errors.Is(err, utils.ErrorRecordNotFound) {
			product, err = models.GetProductBySupplierCode(c.Request.Context(), code)
		}
		if err != nil {
			respondProductError(c, err)
			return
		}
		c.JSON(http.StatusOK, product.Summarize(c.Request.Context()))
	}
}

func updateProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
			return
		}

		var input models.UpdateProductInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}

		product, err := models.UpdateProduct(c.Request.Context(), id, &input)
		if err != nil {
			respondProductError(c, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

func deleteProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
			return
		}

		if err := models.DeleteProduct(c.Request.Context(), id); err != nil {
			respondProductError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func respondProductError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
	case utils.IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		config.LogError(config.GetLogger(), "product_handlers.go", "respondProductError", "", nil, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
