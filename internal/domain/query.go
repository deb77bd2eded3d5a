package domain

// Pagination carries page sizing and the opaque continuation token for list queries.
type Pagination struct {
	PageSize  int
	PageToken string
}

// RangeQuery constrains a field between optional inclusive bounds.
type RangeQuery[T comparable] struct {
	From *T
	To   *T
}

// CursorPage packages list results with an encoded next token.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}
