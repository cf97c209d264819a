package handlers

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"catalog-import-service/internal/config"
	"catalog-import-service/internal/models"
	"catalog-import-service/internal/queue"
)

const streamPollInterval = 500 * time.Millisecond

// StatusTracker is the slice of the status channel the HTTP layer needs.
type StatusTracker interface {
	Pending(ctx context.Context, jobID string)
	Discard(ctx context.Context, jobID string)
	Get(ctx context.Context, jobID string) (*models.JobStatus, error)
}

type ImportHandler struct {
	cfg     *config.Config
	pool    *queue.Pool
	tracker StatusTracker
	logger  *logrus.Entry
}

func NewImportHandler(cfg *config.Config, pool *queue.Pool, tracker StatusTracker, logger *logrus.Logger) *ImportHandler {
	return &ImportHandler{
		cfg:     cfg,
		pool:    pool,
		tracker: tracker,
		logger:  logger.WithField("component", "import-handler"),
	}
}

// ImportProducts accepts an upload and queues it for background import
// POST /api/v1/products/import
func (h *ImportHandler) ImportProducts(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: "No file uploaded. Use multipart field 'file'",
			},
		})
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext != ".csv" && ext != ".xlsx" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "UNSUPPORTED_FORMAT",
				Message: "Only .csv and .xlsx files are supported",
			},
		})
		return
	}

	if file.Size > h.cfg.MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FILE_TOO_LARGE",
				Message: fmt.Sprintf("File exceeds the %d MB upload limit", h.cfg.MaxUploadSize/(1024*1024)),
			},
		})
		return
	}

	if err := os.MkdirAll(h.cfg.UploadDir, 0o755); err != nil {
		h.logger.WithError(err).Error("Failed to create upload directory")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "UPLOAD_ERROR",
				Message: "Failed to store uploaded file",
			},
		})
		return
	}

	jobID := uuid.New().String()
	dst := filepath.Join(h.cfg.UploadDir, jobID+ext)
	if err := c.SaveUploadedFile(file, dst); err != nil {
		h.logger.WithError(err).Error("Failed to save uploaded file")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "UPLOAD_ERROR",
				Message: "Failed to store uploaded file",
			},
		})
		return
	}

	// Pending is published before Enqueue so no worker can race it with a
	// RUNNING snapshot; a refused job retracts it again.
	h.tracker.Pending(c.Request.Context(), jobID)
	if !h.pool.Enqueue(queue.Job{ID: jobID, FilePath: dst}) {
		h.tracker.Discard(c.Request.Context(), jobID)
		os.Remove(dst)
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "QUEUE_FULL",
				Message: "Import queue is full, try again later",
			},
		})
		return
	}

	h.logger.WithFields(logrus.Fields{
		"job_id":   jobID,
		"filename": file.Filename,
		"size":     file.Size,
	}).Info("Import accepted")

	c.JSON(http.StatusAccepted, models.UploadResponse{
		JobID:   jobID,
		Message: "Import accepted and queued for processing",
	})
}

// GetImportStatus returns the latest snapshot for a job
// GET /api/v1/products/import/:jobId
func (h *ImportHandler) GetImportStatus(c *gin.Context) {
	snapshot, err := h.tracker.Get(c.Request.Context(), c.Param("jobId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "STATUS_ERROR",
				Message: "Failed to fetch import status",
			},
		})
		return
	}
	if snapshot == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "NOT_FOUND",
				Message: "Import job not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// StreamImportStatus streams status snapshots over SSE until the job reaches
// a terminal state or the client disconnects
// GET /api/v1/products/import/:jobId/stream
func (h *ImportHandler) StreamImportStatus(c *gin.Context) {
	jobID := c.Param("jobId")

	snapshot, err := h.tracker.Get(c.Request.Context(), jobID)
	if err != nil || snapshot == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "NOT_FOUND",
				Message: "Import job not found",
			},
		})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	ticker := time.NewTicker(streamPollInterval)
	defer ticker.Stop()

	for {
		data, err := json.Marshal(snapshot)
		if err == nil {
			fmt.Fprintf(c.Writer, "data: %s\n\n", data)
			c.Writer.Flush()
		}
		if snapshot.State.Terminal() {
			return
		}

		select {
		case <-c.Request.Context().Done():
			return
		case <-ticker.C:
		}

		next, err := h.tracker.Get(c.Request.Context(), jobID)
		if err != nil || next == nil {
			return
		}
		snapshot = next
	}
}

// GetImportTemplate returns the import template definition or file
// GET /api/v1/products/import/template
func (h *ImportHandler) GetImportTemplate(c *gin.Context) {
	template := models.ProductImportTemplate()

	switch c.DefaultQuery("format", "json") {
	case "csv":
		h.writeCSVTemplate(c, template)
	case "xlsx":
		h.writeXLSXTemplate(c, template)
	default:
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"template": template,
		})
	}
}

func (h *ImportHandler) writeCSVTemplate(c *gin.Context, template models.ImportTemplate) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=products_import_template.csv")

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	headers := make([]string, len(template.Columns))
	for i, col := range template.Columns {
		headers[i] = col.Name
	}
	writer.Write(headers)
}

func (h *ImportHandler) writeXLSXTemplate(c *gin.Context, template models.ImportTemplate) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Products"
	f.SetSheetName("Sheet1", sheetName)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})
	requiredStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C65911"}, Pattern: 1},
	})

	for i, col := range template.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		headerText := col.Name
		if col.Required {
			headerText = col.Name + " *"
		}
		f.SetCellValue(sheetName, cell, headerText)
		if col.Required {
			f.SetCellStyle(sheetName, cell, cell, requiredStyle)
		} else {
			f.SetCellStyle(sheetName, cell, cell, headerStyle)
		}
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=products_import_template.xlsx")
	if err := f.Write(c.Writer); err != nil {
		h.logger.WithError(err).Error("Failed to write Excel template")
	}
}
