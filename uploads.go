package main

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"

	"bitbucket.org/mmdatafocus/invoiceocr_backend/config"
	"bitbucket.org/mmdatafocus/invoiceocr_backend/models"
	"bitbucket.org/mmdatafocus/invoiceocr_backend/ocr"
	"bitbucket.org/mmdatafocus/invoiceocr_backend/utils"
	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
)

const (
	maxQueueUploadBytes  int64 = 25 * 1024 * 1024
	maxDirectUploadBytes int64 = 10 * 1024 * 1024
)

// documentMimeTypes are the types accepted for OCR ingestion. Files are
// held in memory only; nothing touches disk before an explicit save.
var documentMimeTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"application/pdf": true,
}

var imageMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// queueUploadHandler accepts a document and queues it for OCR. The
// caller gets a polling id immediately; processing is asynchronous.
func queueUploadHandler(queue *ocr.Queue) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxQueueUploadBytes)

		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}
		if fileHeader.Size > maxQueueUploadBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 25MB limit"})
			return
		}

		contentType := fileHeader.Header.Get("Content-Type")
		if !documentMimeTypes[contentType] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type: " + contentType})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			config.LogError(logger, "uploads.go", "queueUploadHandler", "fileHeader.Open", fileHeader.Filename, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read file"})
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			config.LogError(logger, "uploads.go", "queueUploadHandler", "io.ReadAll", fileHeader.Filename, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read file"})
			return
		}

		id, err := queue.Enqueue(fileHeader.Filename, contentType, data)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{"id": id, "status": ocr.StatusQueued})
	}
}

// directImageUploadHandler attaches an image to an existing invoice.
func directImageUploadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice id"})
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxDirectUploadBytes)

		fileHeader, err := c.FormFile("image")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "image is required"})
			return
		}
		if fileHeader.Size > maxDirectUploadBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 10MB limit"})
			return
		}

		contentType := fileHeader.Header.Get("Content-Type")
		if !imageMimeTypes[contentType] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported image type: " + contentType})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read file"})
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read file"})
			return
		}

		if err := models.UpdateInvoiceImage(c.Request.Context(), id, data, contentType); err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "invoice not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"id": id, "content_type": contentType})
	}
}

// invoiceImageHandler serves the stored invoice image; ?thumbnail=true
// returns a 200px-wide JPEG preview instead.
func invoiceImageHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice id"})
			return
		}

		data, contentType, err := models.GetInvoiceImage(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "invoice image not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		if c.Query("thumbnail") == "true" {
			thumb, err := makeThumbnail(data)
			if err == nil {
				c.Data(http.StatusOK, "image/jpeg", thumb)
				return
			}
			// PDFs and undecodable images fall through to the original
		}

		c.Data(http.StatusOK, contentType, data)
	}
}

func makeThumbnail(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	thumbnail := imaging.Resize(img, 200, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumbnail, imaging.JPEG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
