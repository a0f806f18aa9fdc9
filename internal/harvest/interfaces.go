package harvest

import (
	"context"
	"time"
)

// ParseResult is what a parser hands back to the controller. A nil Record with
// a nil error means the response carried no storable content (the drop path).
type ParseResult struct {
	Record *PageRecord
	Links  []string
}

// Parser turns a fetched response into a normalized record plus any newly
// discovered links. Implementations must degrade on malformed input rather
// than fail the whole fetch; an error return is reserved for total failure.
type Parser interface {
	Parse(resp FetchedResponse) (ParseResult, error)
}

// DocumentStore persists records, keyed uniquely by URL.
type DocumentStore interface {
	Upsert(ctx context.Context, record *PageRecord) error
}

// BlobStore writes oversized payloads and returns a URI reference.
type BlobStore interface {
	Put(ctx context.Context, key string, contentType string, data []byte) (string, error)
}

// Clock returns the current time (swap out in tests).
type Clock interface {
	Now() time.Time
}
