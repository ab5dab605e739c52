package documents

import (
	"context"
	"database/sql"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// CreateWithText inserts the document and its recognized text in a single
// transaction. Any failure rolls back both inserts before surfacing.
func (r *PGRepo) CreateWithText(ctx context.Context, fileName, text string, confidence *float64) (Document, error) {
	doc := Document{
		FileName:   fileName,
		UploadedAt: time.Now().UTC(),
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return Document{}, err
	}

	const insertDocument = `
INSERT INTO documents (file_name, uploaded_at)
VALUES ($1, $2)
RETURNING document_id`
	if err := tx.QueryRowContext(ctx, insertDocument, doc.FileName, doc.UploadedAt).Scan(&doc.DocumentID); err != nil {
		_ = tx.Rollback()
		return Document{}, err
	}

	const insertText = `
INSERT INTO ocr_text (document_id, extracted_text, confidence_score)
VALUES ($1, $2, $3)`
	if _, err := tx.ExecContext(ctx, insertText, doc.DocumentID, text, confidence); err != nil {
		_ = tx.Rollback()
		return Document{}, err
	}

	if err := tx.Commit(); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// ListHistory returns the joined history view, newest first.
func (r *PGRepo) ListHistory(ctx context.Context) ([]HistoryEntry, error) {
	const query = `
SELECT d.document_id, d.file_name, d.uploaded_at, t.extracted_text
FROM documents d
JOIN ocr_text t ON t.document_id = d.document_id
ORDER BY d.uploaded_at DESC, d.document_id DESC`

	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []HistoryEntry{}
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.DocumentID, &e.FileName, &e.UploadedAt, &e.Text); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Delete removes the document; dependent ocr_text rows go with it via the
// schema's ON DELETE CASCADE.
func (r *PGRepo) Delete(ctx context.Context, documentID int64) error {
	const query = `DELETE FROM documents WHERE document_id = $1`
	res, err := r.DB.ExecContext(ctx, query, documentID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping probes database reachability for the health endpoint.
func (r *PGRepo) Ping(ctx context.Context) error {
	return r.DB.PingContext(ctx)
}

var _ Repo = (*PGRepo)(nil)
