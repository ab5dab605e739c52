package documents

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryRecord struct {
	doc  Document
	text OCRText
}

// MemoryRepo is an in-memory implementation of Repo, used when no database is
// configured in dev and by handler tests.
type MemoryRepo struct {
	mu     sync.RWMutex
	nextID int64
	data   map[int64]memoryRecord
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[int64]memoryRecord)}
}

// CreateWithText stores the document and its text together.
func (r *MemoryRepo) CreateWithText(ctx context.Context, fileName, text string, confidence *float64) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	doc := Document{
		DocumentID: r.nextID,
		FileName:   fileName,
		UploadedAt: time.Now().UTC(),
	}
	r.data[doc.DocumentID] = memoryRecord{
		doc: doc,
		text: OCRText{
			OCRID:           doc.DocumentID,
			DocumentID:      doc.DocumentID,
			ExtractedText:   text,
			ConfidenceScore: confidence,
		},
	}
	return doc, nil
}

// ListHistory returns all records, newest first with document id as tiebreak.
func (r *MemoryRepo) ListHistory(ctx context.Context) ([]HistoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]HistoryEntry, 0, len(r.data))
	for _, rec := range r.data {
		out = append(out, HistoryEntry{
			DocumentID: rec.doc.DocumentID,
			FileName:   rec.doc.FileName,
			UploadedAt: rec.doc.UploadedAt,
			Text:       rec.text.ExtractedText,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].UploadedAt.After(out[j].UploadedAt)
		}
		return out[i].DocumentID > out[j].DocumentID
	})
	return out, nil
}

// Delete removes the record and its text.
func (r *MemoryRepo) Delete(ctx context.Context, documentID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.data[documentID]; !ok {
		return ErrNotFound
	}
	delete(r.data, documentID)
	return nil
}

// Ping always succeeds; there is no connection to lose.
func (r *MemoryRepo) Ping(ctx context.Context) error {
	return ctx.Err()
}

var _ Repo = (*MemoryRepo)(nil)
