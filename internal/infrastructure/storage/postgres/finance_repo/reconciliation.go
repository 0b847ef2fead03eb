package finance_repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fieldbill/internal/core/id"
	"fieldbill/internal/domain/finance"
	"fieldbill/internal/infrastructure/storage/postgres"
)

// maxBackoffRetries caps the linear retry backoff at this many minutes.
const maxBackoffRetries = 30

// ReconciliationRepo is the PostgreSQL implementation of
// finance.ReconciliationQueue. Entries whose ledger write failed at issue
// time wait here, serialized as JSON, until the background worker replays
// them.
type ReconciliationRepo struct {
	txManager *postgres.TxManager
}

// Ensure compile-time interface compliance.
var _ finance.ReconciliationQueue = (*ReconciliationRepo)(nil)

// NewReconciliationRepo creates the reconciliation queue repository.
func NewReconciliationRepo(txManager *postgres.TxManager) *ReconciliationRepo {
	return &ReconciliationRepo{txManager: txManager}
}

// Enqueue stores a failed entry for later retry.
func (r *ReconciliationRepo) Enqueue(ctx context.Context, entry finance.Entry, cause string) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal ledger entry: %w", err)
	}

	_, err = r.txManager.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO finance_reconciliation_queue (id, invoice_id, payload, cause, retry_count, created_at)
		VALUES ($1, $2, $3, $4, 0, $5)
	`, id.New(), entry.InvoiceID, payload, cause, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("enqueue reconciliation entry: %w", err)
	}
	return nil
}

// DequeueBatch fetches due entries, oldest first, locked against concurrent
// workers. Call inside a transaction so the row locks hold while the batch
// is processed.
func (r *ReconciliationRepo) DequeueBatch(ctx context.Context, limit int) ([]finance.QueuedEntry, error) {
	rows, err := r.txManager.GetQuerier(ctx).Query(ctx, `
		SELECT id, payload, cause, retry_count, last_error, next_retry_at, created_at
		FROM finance_reconciliation_queue
		WHERE next_retry_at IS NULL OR next_retry_at <= NOW()
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch reconciliation entries: %w", err)
	}
	defer rows.Close()

	var entries []finance.QueuedEntry
	for rows.Next() {
		var (
			qe      finance.QueuedEntry
			payload []byte
		)
		err := rows.Scan(&qe.ID, &payload, &qe.Cause, &qe.RetryCount, &qe.LastError, &qe.NextRetryAt, &qe.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan reconciliation entry: %w", err)
		}
		if err := json.Unmarshal(payload, &qe.Entry); err != nil {
			return nil, fmt.Errorf("unmarshal ledger entry %s: %w", qe.ID, err)
		}
		entries = append(entries, qe)
	}

	return entries, rows.Err()
}

// MarkDone removes a reconciled entry from the queue.
func (r *ReconciliationRepo) MarkDone(ctx context.Context, queueID id.ID) error {
	_, err := r.txManager.GetQuerier(ctx).Exec(ctx, `
		DELETE FROM finance_reconciliation_queue WHERE id = $1
	`, queueID)
	if err != nil {
		return fmt.Errorf("delete reconciliation entry: %w", err)
	}
	return nil
}

// MarkFailed bumps the retry bookkeeping after another failed attempt.
// Backoff grows linearly with the retry count, capped at 30 minutes.
func (r *ReconciliationRepo) MarkFailed(ctx context.Context, queueID id.ID, cause string) error {
	_, err := r.txManager.GetQuerier(ctx).Exec(ctx, `
		UPDATE finance_reconciliation_queue
		SET retry_count = retry_count + 1,
		    last_error = $2,
		    next_retry_at = NOW() + make_interval(mins => LEAST(retry_count + 1, $3))
		WHERE id = $1
	`, queueID, cause, maxBackoffRetries)
	if err != nil {
		return fmt.Errorf("update reconciliation entry: %w", err)
	}
	return nil
}
