package finance

import (
	"context"
	"fmt"

	"fieldbill/pkg/logger"
)

// Reconciler retries queued ledger entries. Run by the background worker.
type Reconciler struct {
	ledger    Ledger
	queue     ReconciliationQueue
	batchSize int
}

// NewReconciler creates a reconciler.
func NewReconciler(ledger Ledger, queue ReconciliationQueue, batchSize int) *Reconciler {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Reconciler{ledger: ledger, queue: queue, batchSize: batchSize}
}

// ProcessBatch retries one batch of queued entries. A failing entry is marked
// and left for the next run; it never stops the batch. Returns the number of
// entries reconciled.
func (r *Reconciler) ProcessBatch(ctx context.Context) (int, error) {
	queued, err := r.queue.DequeueBatch(ctx, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("dequeue reconciliation batch: %w", err)
	}

	processed := 0
	for _, q := range queued {
		if _, err := r.ledger.RecordInvoiceIssued(ctx, q.Entry); err != nil {
			logger.Warn(ctx, "ledger reconciliation attempt failed",
				"invoiceId", q.Entry.InvoiceID,
				"retryCount", q.RetryCount,
				"error", err)
			if markErr := r.queue.MarkFailed(ctx, q.ID, err.Error()); markErr != nil {
				logger.Error(ctx, "failed to mark reconciliation entry", "error", markErr)
			}
			continue
		}

		if err := r.queue.MarkDone(ctx, q.ID); err != nil {
			logger.Error(ctx, "failed to remove reconciled entry", "error", err)
			continue
		}
		processed++

		logger.Info(ctx, "ledger entry reconciled",
			"invoiceId", q.Entry.InvoiceID,
			"number", q.Entry.Number)
	}

	return processed, nil
}
