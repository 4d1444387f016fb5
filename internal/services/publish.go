package services

import (
	"context"
	"log/slog"

	"farmtrack/internal/amqp"
	"farmtrack/internal/log"
)

// publishSync emits a document sync message for a local write. A nil client
// disables sync entirely. Publish failures are not fatal: the write already
// landed locally and the worker's pending sweep recovers anything a lost
// message leaves behind.
func publishSync(ctx context.Context, client *amqp.Client, user, collection, docID, op string) {
	if client == nil {
		return
	}
	msg := amqp.NewDocumentSyncMessage(user, collection, docID, op)
	if err := client.PublishDocumentSync(ctx, msg); err != nil {
		fields := log.NewFields().
			WithComponent(log.ComponentAMQP).
			WithOperation(op).
			WithDocument(user, collection, docID).
			WithError(err)
		slog.ErrorContext(ctx, "Failed to publish sync message", fields.ToSlice()...)
	}
}
