package service

import "errors"

var (
	// ErrSearcherRequired is returned when an engine is built without a vector index.
	ErrSearcherRequired = errors.New("searcher required")

	// ErrCatalogRequired is returned when an engine is built without a metadata catalog.
	ErrCatalogRequired = errors.New("catalog required")

	// ErrBackendUnavailable wraps a failed or timed-out similarity search.
	ErrBackendUnavailable = errors.New("vector index unavailable")
)

// Advisory notices shown to the user alongside a result.
const (
	NoticeNoMatches        = "No semantic matches found for your query. Try a broader query."
	NoticeFiltersTooStrict = "No books matched your specific filters. Showing top semantic matches instead."
)
