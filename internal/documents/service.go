package documents

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strconv"

	"ink2text-backend/internal/imaging"
	"ink2text-backend/internal/ocr"
	"ink2text-backend/internal/shared/storage/object"
	"ink2text-backend/internal/shared/telemetry"
	"ink2text-backend/internal/shared/util"
)

// Service runs the upload pipeline and the history operations.
//
// Archive may be nil (no local store configured); Engine may be nil when the
// recognition engine is disabled, in which case uploads fail with
// ocr.ErrUnavailable.
type Service struct {
	Repo      Repo
	Engine    ocr.Engine
	Validator *imaging.Validator
	Archive   object.Store

	// Binarize enables Otsu (or fixed-threshold) binarization between
	// grayscale conversion and recognition.
	Binarize  bool
	Threshold int
}

// UploadResult is the outcome of one processed upload.
type UploadResult struct {
	Document Document
	Text     string
}

// ProcessUpload validates, preprocesses, and recognizes the uploaded image,
// then persists the document together with its text. The original bytes are
// archived under the new document id on a best-effort basis.
func (s *Service) ProcessUpload(ctx context.Context, fileName string, data []byte) (UploadResult, error) {
	img, err := s.Validator.Validate(fileName, data)
	if err != nil {
		return UploadResult{}, err
	}

	gray := imaging.Grayscale(img)
	if s.Binarize {
		threshold := uint8(s.Threshold)
		if s.Threshold <= 0 || s.Threshold > 255 {
			threshold = imaging.OtsuThreshold(gray)
		}
		gray = imaging.Binarize(gray, threshold)
	}
	prepared, err := imaging.EncodePNG(gray)
	if err != nil {
		return UploadResult{}, fmt.Errorf("encode preprocessed image: %w", err)
	}

	if s.Engine == nil {
		return UploadResult{}, ocr.ErrUnavailable
	}
	res, err := s.Engine.Recognize(ctx, prepared)
	if err != nil {
		return UploadResult{}, err
	}

	var confidence *float64
	if res.Confidence > 0 {
		c := res.Confidence
		confidence = &c
	}
	doc, err := s.Repo.CreateWithText(ctx, fileName, res.Text, confidence)
	if err != nil {
		return UploadResult{}, fmt.Errorf("persist document: %w", err)
	}

	if s.Archive != nil {
		s.archiveOriginal(ctx, doc.DocumentID, fileName, data)
	}

	return UploadResult{Document: doc, Text: res.Text}, nil
}

// History returns all processed documents, newest first.
func (s *Service) History(ctx context.Context) ([]HistoryEntry, error) {
	return s.Repo.ListHistory(ctx)
}

// Delete removes a document and its archived upload.
func (s *Service) Delete(ctx context.Context, documentID int64) error {
	if err := s.Repo.Delete(ctx, documentID); err != nil {
		return err
	}
	if s.Archive != nil {
		prefix := "documents/" + strconv.FormatInt(documentID, 10)
		if err := s.Archive.Remove(ctx, prefix); err != nil {
			telemetry.Warn("remove archived upload failed", map[string]any{
				"document_id": documentID,
				"error":       err.Error(),
			})
		}
	}
	return nil
}

// Health reports reachability of the database and availability of the
// recognition engine.
func (s *Service) Health(ctx context.Context) (dbOK bool, engineOK bool) {
	dbOK = s.Repo.Ping(ctx) == nil
	engineOK = s.Engine != nil
	return dbOK, engineOK
}

// archiveOriginal stores the raw upload under the new document id. Failures
// are logged and swallowed: the document is already committed.
func (s *Service) archiveOriginal(ctx context.Context, documentID int64, fileName string, data []byte) {
	safe, err := util.SanitizeFileName(fileName)
	if err != nil {
		safe = "upload"
	}
	key := "documents/" + strconv.FormatInt(documentID, 10) + "/" + safe
	contentType := mime.TypeByExtension(filepath.Ext(safe))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if _, err := s.Archive.SaveWithKey(ctx, key, contentType, bytes.NewReader(data)); err != nil {
		telemetry.Warn("archive upload failed", map[string]any{
			"document_id": documentID,
			"error":       err.Error(),
		})
	}
}
