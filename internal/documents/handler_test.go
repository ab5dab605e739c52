package documents_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"

	"ink2text-backend/internal/bootstrap"
	"ink2text-backend/internal/documents"
	"ink2text-backend/internal/ocr"
	"ink2text-backend/internal/shared/config"
)

type stubEngine struct {
	text string
	conf float64
	err  error
}

func (s stubEngine) Name() string { return "stub" }

func (s stubEngine) Recognize(ctx context.Context, img []byte) (ocr.Result, error) {
	if s.err != nil {
		return ocr.Result{}, s.err
	}
	return ocr.Result{Text: s.text, Confidence: s.conf}, nil
}

func buildApp(t *testing.T, engine ocr.Engine) *bootstrap.App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		Port:              "0",
		Env:               "dev",
		CORSAllowOrigin:   []string{"http://localhost:3000"},
		MaxUploadBytes:    16 << 20,
		AllowedExtensions: []string{"png", "jpg", "jpeg", "gif", "webp"},
		LocalStoreDir:     t.TempDir(),
	}
	app, err := bootstrap.Build(cfg)
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	app.Service.Engine = engine
	return app
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 12, 12))
	for y := 0; y < 12; y++ {
		for x := 0; x < 12; x++ {
			if x > 5 {
				img.SetGray(x, y, color.Gray{Y: 230})
			} else {
				img.SetGray(x, y, color.Gray{Y: 20})
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func uploadImage(t *testing.T, router *gin.Engine, field, fileName string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fw, err := writer.CreateFormFile(field, fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/ocr", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestOCRUploadSuccess(t *testing.T) {
	app := buildApp(t, stubEngine{text: "hello world", conf: 0.91})

	resp := uploadImage(t, app.Router, "image", "note.png", pngBytes(t))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var out struct {
		Success    bool   `json:"success"`
		Message    string `json:"message"`
		DocumentID int64  `json:"document_id"`
		Text       string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !out.Success {
		t.Fatalf("expected success true")
	}
	if out.Message != "OCR processed successfully" {
		t.Fatalf("unexpected message %q", out.Message)
	}
	if out.DocumentID <= 0 {
		t.Fatalf("expected positive document_id, got %d", out.DocumentID)
	}
	if out.Text != "hello world" {
		t.Fatalf("expected stub text, got %q", out.Text)
	}

	// The raw upload lands in the local archive under the new id.
	archived := filepath.Join(app.Config.LocalStoreDir, "documents", fmt.Sprint(out.DocumentID), "note.png")
	if _, err := os.Stat(archived); err != nil {
		t.Fatalf("expected archived upload at %s: %v", archived, err)
	}
}

func TestOCRHistoryNewestFirst(t *testing.T) {
	app := buildApp(t, stubEngine{text: "text"})

	for _, name := range []string{"a.png", "b.png"} {
		if resp := uploadImage(t, app.Router, "image", name, pngBytes(t)); resp.Code != http.StatusOK {
			t.Fatalf("upload %s: status %d: %s", name, resp.Code, resp.Body.String())
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	first := resp.Body.String()
	var out struct {
		Success bool `json:"success"`
		History []struct {
			DocumentID int64  `json:"document_id"`
			FileName   string `json:"file_name"`
			UploadedAt string `json:"uploaded_at"`
			Text       string `json:"text"`
		} `json:"history"`
	}
	if err := json.Unmarshal([]byte(first), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !out.Success {
		t.Fatalf("expected success true")
	}
	if len(out.History) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(out.History))
	}
	if out.History[0].FileName != "b.png" || out.History[1].FileName != "a.png" {
		t.Fatalf("expected newest first, got %+v", out.History)
	}
	if len(out.History[0].UploadedAt) != len("2006-01-02 15:04:05") {
		t.Fatalf("unexpected timestamp format %q", out.History[0].UploadedAt)
	}

	// Reading history is a pure query: a second fetch with no intervening
	// writes returns the identical body.
	again := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	againResp := httptest.NewRecorder()
	app.Router.ServeHTTP(againResp, again)
	if againResp.Code != http.StatusOK {
		t.Fatalf("expected status 200 on repeat fetch, got %d", againResp.Code)
	}
	if againResp.Body.String() != first {
		t.Fatalf("expected identical history bodies, got\n%s\nvs\n%s", first, againResp.Body.String())
	}
}

func TestOCRDeleteDocument(t *testing.T) {
	app := buildApp(t, stubEngine{text: "text"})

	resp := uploadImage(t, app.Router, "image", "gone.png", pngBytes(t))
	if resp.Code != http.StatusOK {
		t.Fatalf("upload: status %d", resp.Code)
	}
	var created struct {
		DocumentID int64 `json:"document_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	del := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/history/%d", created.DocumentID), nil)
	delResp := httptest.NewRecorder()
	app.Router.ServeHTTP(delResp, del)
	if delResp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", delResp.Code, delResp.Body.String())
	}
	if !strings.Contains(delResp.Body.String(), "Document deleted successfully") {
		t.Fatalf("unexpected body %s", delResp.Body.String())
	}

	// The archived upload goes with the document.
	archived := filepath.Join(app.Config.LocalStoreDir, "documents", fmt.Sprint(created.DocumentID))
	if _, err := os.Stat(archived); !os.IsNotExist(err) {
		t.Fatalf("expected archive directory removed, stat err=%v", err)
	}

	again := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/history/%d", created.DocumentID), nil)
	againResp := httptest.NewRecorder()
	app.Router.ServeHTTP(againResp, again)
	if againResp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 on second delete, got %d", againResp.Code)
	}
}

func TestOCRDeleteRejectsBadID(t *testing.T) {
	app := buildApp(t, stubEngine{text: "text"})

	req := httptest.NewRequest(http.MethodDelete, "/api/history/abc", nil)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "Document not found") {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestOCRUploadMissingField(t *testing.T) {
	app := buildApp(t, stubEngine{text: "text"})

	resp := uploadImage(t, app.Router, "file", "note.png", pngBytes(t))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "No image file provided") {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestOCRUploadRejectsExtension(t *testing.T) {
	app := buildApp(t, stubEngine{text: "text"})

	resp := uploadImage(t, app.Router, "image", "note.bmp", pngBytes(t))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "Invalid file type. Allowed: png, jpg, jpeg, gif, webp") {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}

	// Nothing gets archived for a rejected upload.
	if _, err := os.Stat(filepath.Join(app.Config.LocalStoreDir, "documents")); !os.IsNotExist(err) {
		t.Fatalf("expected empty archive, stat err=%v", err)
	}
}

func TestOCRUploadRejectsCorruptImage(t *testing.T) {
	app := buildApp(t, stubEngine{text: "text"})

	resp := uploadImage(t, app.Router, "image", "broken.png", []byte("not a png at all"))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "Invalid image file") {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestOCRUploadEngineFailure(t *testing.T) {
	app := buildApp(t, stubEngine{err: ocr.ErrUnavailable})

	resp := uploadImage(t, app.Router, "image", "note.png", pngBytes(t))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "OCR processing failed") {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestHealthEndpoint(t *testing.T) {
	app := buildApp(t, stubEngine{text: "text"})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	var out struct {
		Status   string `json:"status"`
		Database string `json:"database"`
		Engine   string `json:"engine"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Status != "running" {
		t.Fatalf("expected status running, got %q", out.Status)
	}
	if out.Database != "connected" {
		t.Fatalf("expected database connected, got %q", out.Database)
	}
	if out.Engine != "configured" {
		t.Fatalf("expected engine configured, got %q", out.Engine)
	}
}

func TestHealthReportsDisabledEngine(t *testing.T) {
	app := buildApp(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)

	var out struct {
		Engine string `json:"engine"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Engine != "not configured" {
		t.Fatalf("expected engine not configured, got %q", out.Engine)
	}
}

func TestHealthReportsDisconnectedDatabase(t *testing.T) {
	app := buildApp(t, stubEngine{text: "text"})

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	app.Service.Repo = &documents.PGRepo{DB: db}

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	var out struct {
		Status   string `json:"status"`
		Database string `json:"database"`
		Engine   string `json:"engine"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Status != "running" {
		t.Fatalf("expected status running, got %q", out.Status)
	}
	if out.Database != "disconnected" {
		t.Fatalf("expected database disconnected, got %q", out.Database)
	}
	if out.Engine != "configured" {
		t.Fatalf("expected engine configured, got %q", out.Engine)
	}
}

func TestOCRUploadRejectsOversizedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		Port:              "0",
		Env:               "dev",
		CORSAllowOrigin:   []string{"http://localhost:3000"},
		MaxUploadBytes:    1024,
		AllowedExtensions: []string{"png", "jpg", "jpeg", "gif", "webp"},
		LocalStoreDir:     t.TempDir(),
	}
	app, err := bootstrap.Build(cfg)
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	app.Service.Engine = stubEngine{text: "text"}

	resp := uploadImage(t, app.Router, "image", "big.png", bytes.Repeat([]byte("x"), 4096))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), "exceeds maximum size of 1024 bytes") {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}

	// Nothing gets archived for a rejected upload.
	if _, err := os.Stat(filepath.Join(cfg.LocalStoreDir, "documents")); !os.IsNotExist(err) {
		t.Fatalf("expected empty archive, stat err=%v", err)
	}
}

func TestHomeEndpoint(t *testing.T) {
	app := buildApp(t, stubEngine{text: "text"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "Ink2Text backend running") {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}
