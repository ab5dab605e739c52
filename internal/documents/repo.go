package documents

import "context"

// Repo defines persistence operations for documents and their recognized text.
//
// CreateWithText writes the document row and its text row as one atomic unit:
// both land or neither does, so the history view never hides an orphaned
// document.
type Repo interface {
	CreateWithText(ctx context.Context, fileName, text string, confidence *float64) (Document, error)
	ListHistory(ctx context.Context) ([]HistoryEntry, error)
	Delete(ctx context.Context, documentID int64) error
	Ping(ctx context.Context) error
}
