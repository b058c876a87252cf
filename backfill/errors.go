package backfill

import "errors"

var (
	// ErrStoreRequired is returned when a message repository is not provided.
	ErrStoreRequired = errors.New("message repository required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")
)
