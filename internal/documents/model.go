package documents

import "time"

// Document is one uploaded image and its metadata. Rows are never updated in
// place: created by the OCR endpoint, destroyed by the delete endpoint.
type Document struct {
	DocumentID int64
	FileName   string
	UploadedAt time.Time
}

// OCRText is the text recognized from a Document. It never exists without a
// parent document; deleting the document cascades to it.
type OCRText struct {
	OCRID           int64
	DocumentID      int64
	ExtractedText   string
	ConfidenceScore *float64
}

// HistoryEntry is one row of the joined history view.
type HistoryEntry struct {
	DocumentID int64
	FileName   string
	UploadedAt time.Time
	Text       string
}
