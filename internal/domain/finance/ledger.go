package finance

import (
	"context"

	"fieldbill/internal/core/id"
)

// Ledger records issued invoices in accounting.
type Ledger interface {
	// RecordInvoiceIssued posts a ledger entry. Idempotent by InvoiceID:
	// recording the same invoice twice returns created=false and no error.
	RecordInvoiceIssued(ctx context.Context, entry Entry) (created bool, err error)
}

// ReconciliationQueue holds ledger entries whose write failed.
type ReconciliationQueue interface {
	// Enqueue stores a failed entry for later retry.
	Enqueue(ctx context.Context, entry Entry, cause string) error

	// DequeueBatch fetches due entries, oldest first, locked against
	// concurrent workers.
	DequeueBatch(ctx context.Context, limit int) ([]QueuedEntry, error)

	// MarkDone removes a reconciled entry from the queue.
	MarkDone(ctx context.Context, queueID id.ID) error

	// MarkFailed bumps the retry bookkeeping after another failed attempt.
	MarkFailed(ctx context.Context, queueID id.ID, cause string) error
}
