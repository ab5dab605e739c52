package documents

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"ink2text-backend/internal/imaging"
	"ink2text-backend/internal/ocr"
	"ink2text-backend/internal/shared/metrics"
	"ink2text-backend/internal/shared/server/respond"
)

// Handler exposes the OCR pipeline and history over HTTP.
type Handler struct {
	Service        *Service
	MaxUploadBytes int64
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, maxUploadBytes int64) *Handler {
	return &Handler{Service: svc, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes mounts all document routes on the router.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", h.home)
	r.GET("/api/health", h.health)

	api := r.Group("/api")
	api.POST("/ocr", h.runOCR)
	api.GET("/history", h.listHistory)
	api.DELETE("/history/:document_id", h.deleteDocument)
}

type uploadResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	DocumentID int64  `json:"document_id"`
	Text       string `json:"text"`
}

type historyItem struct {
	DocumentID int64  `json:"document_id"`
	FileName   string `json:"file_name"`
	UploadedAt string `json:"uploaded_at"`
	Text       string `json:"text"`
}

type historyResponse struct {
	Success bool          `json:"success"`
	History []historyItem `json:"history"`
}

func (h *Handler) home(c *gin.Context) {
	respond.OK(c, gin.H{
		"message": "Ink2Text backend running",
		"status":  "ok",
	})
}

func (h *Handler) runOCR(c *gin.Context) {
	metrics.IncOCRRequested()
	start := time.Now()

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		metrics.IncOCRRejected()
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respond.Error(c, http.StatusBadRequest, fmt.Sprintf("Image exceeds maximum size of %d bytes", h.MaxUploadBytes))
			return
		}
		respond.Error(c, http.StatusBadRequest, "No image file provided")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		metrics.IncOCRRejected()
		respond.Error(c, http.StatusBadRequest, "No image uploaded")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		metrics.IncOCRRejected()
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respond.Error(c, http.StatusBadRequest, fmt.Sprintf("Image exceeds maximum size of %d bytes", h.MaxUploadBytes))
			return
		}
		respond.Error(c, http.StatusBadRequest, "No image file provided")
		return
	}

	result, err := h.Service.ProcessUpload(c.Request.Context(), header.Filename, data)
	if err != nil {
		switch {
		case errors.Is(err, imaging.ErrMissingFile):
			metrics.IncOCRRejected()
			respond.Error(c, http.StatusBadRequest, "No image uploaded")
		case errors.Is(err, imaging.ErrUnsupportedType):
			metrics.IncOCRRejected()
			respond.Error(c, http.StatusBadRequest, "Invalid file type. Allowed: "+strings.Join(h.Service.Validator.Extensions(), ", "))
		case errors.Is(err, imaging.ErrInvalidImage):
			metrics.IncOCRRejected()
			respond.Error(c, http.StatusBadRequest, "Invalid image file")
		case errors.Is(err, ocr.ErrUnavailable):
			metrics.IncOCRFailed()
			respond.Error(c, http.StatusInternalServerError, "OCR processing failed: recognition engine unavailable")
		default:
			metrics.IncOCRFailed()
			respond.Error(c, http.StatusInternalServerError, "OCR processing failed: "+err.Error())
		}
		return
	}

	c.Set("documentId", result.Document.DocumentID)
	metrics.IncOCRCompleted()
	metrics.ObserveOCRDurationMs(float64(time.Since(start)) / float64(time.Millisecond))

	respond.OK(c, uploadResponse{
		Success:    true,
		Message:    "OCR processed successfully",
		DocumentID: result.Document.DocumentID,
		Text:       result.Text,
	})
}

func (h *Handler) listHistory(c *gin.Context) {
	entries, err := h.Service.History(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "Failed to fetch history: "+err.Error())
		return
	}

	items := make([]historyItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, historyItem{
			DocumentID: e.DocumentID,
			FileName:   e.FileName,
			UploadedAt: e.UploadedAt.UTC().Format("2006-01-02 15:04:05"),
			Text:       e.Text,
		})
	}
	respond.OK(c, historyResponse{Success: true, History: items})
}

func (h *Handler) deleteDocument(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("document_id"), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(c, http.StatusNotFound, "Document not found")
		return
	}

	if err := h.Service.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "Document not found")
			return
		}
		respond.Error(c, http.StatusInternalServerError, "Failed to delete document: "+err.Error())
		return
	}

	respond.OK(c, gin.H{
		"success": true,
		"message": "Document deleted successfully",
	})
}

func (h *Handler) health(c *gin.Context) {
	dbOK, engineOK := h.Service.Health(c.Request.Context())

	database := "disconnected"
	if dbOK {
		database = "connected"
	}
	engine := "not configured"
	if engineOK {
		engine = "configured"
	}

	respond.OK(c, gin.H{
		"status":   "running",
		"database": database,
		"engine":   engine,
	})
}
