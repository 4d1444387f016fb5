package remote

import "context"

// Ports for outbound mirror adapters.
type (
	// DocumentWriter mirrors a local document to the remote store.
	DocumentWriter interface {
		PutDocument(ctx context.Context, userID, collection, docID string, body []byte) error
	}

	// DocumentDeleter removes a mirrored document from the remote store.
	DocumentDeleter interface {
		DeleteDocument(ctx context.Context, userID, collection, docID string) error
	}

	// DocumentMirror is the full remote surface the sync worker needs.
	DocumentMirror interface {
		DocumentWriter
		DocumentDeleter
	}
)
