package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"farmtrack/internal/amqp"
	"farmtrack/internal/remote"
	"farmtrack/internal/storage"
	"farmtrack/internal/store"

	"golang.org/x/sync/errgroup"
)

// SyncWorker mirrors locally written documents to the remote store. AMQP
// messages drive the normal path; the pending sweep recovers anything a lost
// or failed message leaves behind.
type SyncWorker struct {
	storage   *storage.SQLiteStore
	mirror    remote.DocumentMirror
	batchSize int
}

func NewSyncWorker(st *storage.SQLiteStore, mirror remote.DocumentMirror, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:   st,
		mirror:    mirror,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single document sync message from AMQP.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.DocumentSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"user", msg.UserID,
		"collection", msg.Collection,
		"doc_id", msg.DocID,
		"op", msg.Op)

	switch msg.Op {
	case amqp.OpDelete:
		if err := w.mirror.DeleteDocument(ctx, msg.UserID, msg.Collection, msg.DocID); err != nil {
			return fmt.Errorf("delete remote document: %w", err)
		}
		return nil
	case amqp.OpPut:
		return w.mirrorDocument(ctx, msg.UserID, msg.Collection, msg.DocID)
	default:
		return fmt.Errorf("unknown sync op %q", msg.Op)
	}
}

// mirrorDocument reads the current local body and pushes it to the remote
// store. The message carries only coordinates, so a burst of edits to the
// same document collapses into pushes of whatever is current.
func (w *SyncWorker) mirrorDocument(ctx context.Context, user, collection, docID string) error {
	body, err := w.storage.GetDocumentBody(ctx, user, collection, docID)
	if errors.Is(err, store.ErrNotFound) {
		// Deleted locally after the message was published. The delete
		// message that follows cleans up the remote copy.
		slog.WarnContext(ctx, "Document gone before sync, skipping",
			"user", user, "collection", collection, "doc_id", docID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get document body: %w", err)
	}

	if err := w.mirror.PutDocument(ctx, user, collection, docID, []byte(body)); err != nil {
		if markErr := w.storage.MarkSyncError(ctx, user, collection, docID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error",
				"doc_id", docID, "error", markErr)
		}
		return fmt.Errorf("mirror document: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, user, collection, docID); err != nil {
		// The mirror write itself succeeded; the sweep will redo it.
		slog.ErrorContext(ctx, "Failed to mark as synced",
			"doc_id", docID, "error", err)
	}

	slog.InfoContext(ctx, "Successfully mirrored document",
		"user", user, "collection", collection, "doc_id", docID)
	return nil
}

// ProcessPending mirrors documents still in the pending state. This is the
// backup path for lost AMQP messages and failed remote writes.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.storage.GetPendingSync(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending documents: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending documents", "count", len(pending))

	for _, doc := range pending {
		if err := w.mirrorDocument(ctx, doc.UserID, doc.Collection, doc.DocID); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror pending document",
				"doc_id", doc.DocID, "error", err)
		}
	}
	return nil
}

// StartupSyncCheck drains the pending backlog at worker startup, recovering
// from missed messages or worker downtime. Documents are mirrored with
// bounded concurrency.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.storage.GetPendingSync(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending documents for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending documents found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending documents on startup, processing...",
		"count", len(pending))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for _, doc := range pending {
		doc := doc
		g.Go(func() error {
			if err := w.mirrorDocument(gctx, doc.UserID, doc.Collection, doc.DocID); err != nil {
				slog.ErrorContext(gctx, "Failed to mirror document during startup",
					"doc_id", doc.DocID, "error", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Startup sync completed", "total", len(pending))
	return nil
}

// RunPendingSweep loops ProcessPending on the given interval until ctx is
// cancelled.
func (w *SyncWorker) RunPendingSweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.ProcessPending(ctx); err != nil {
				slog.ErrorContext(ctx, "Pending sweep failed", "error", err)
			}
		}
	}
}
