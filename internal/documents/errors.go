package documents

import "errors"

// ErrNotFound signals a delete of a document id that does not exist.
var ErrNotFound = errors.New("document not found")
