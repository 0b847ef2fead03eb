package finance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fieldbill/internal/core/id"
)

type fakeLedger struct {
	recorded map[id.ID]Entry
	failFor  map[id.ID]error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{recorded: make(map[id.ID]Entry), failFor: make(map[id.ID]error)}
}

func (f *fakeLedger) RecordInvoiceIssued(ctx context.Context, entry Entry) (bool, error) {
	if err := f.failFor[entry.InvoiceID]; err != nil {
		return false, err
	}
	if _, ok := f.recorded[entry.InvoiceID]; ok {
		return false, nil
	}
	f.recorded[entry.InvoiceID] = entry
	return true, nil
}

type fakeQueue struct {
	entries []QueuedEntry
	failed  map[id.ID]int
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{failed: make(map[id.ID]int)}
}

func (f *fakeQueue) Enqueue(ctx context.Context, entry Entry, cause string) error {
	f.entries = append(f.entries, QueuedEntry{ID: id.New(), Entry: entry, Cause: cause, CreatedAt: time.Now().UTC()})
	return nil
}

func (f *fakeQueue) DequeueBatch(ctx context.Context, limit int) ([]QueuedEntry, error) {
	if len(f.entries) > limit {
		return append([]QueuedEntry(nil), f.entries[:limit]...), nil
	}
	return append([]QueuedEntry(nil), f.entries...), nil
}

func (f *fakeQueue) MarkDone(ctx context.Context, queueID id.ID) error {
	for i, q := range f.entries {
		if q.ID == queueID {
			f.entries = append(f.entries[:i], f.entries[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeQueue) MarkFailed(ctx context.Context, queueID id.ID, cause string) error {
	f.failed[queueID]++
	return nil
}

func sampleEntry(invoiceID id.ID) Entry {
	return NewEntry(invoiceID, id.New(), "RAC-2025-001", time.Now().UTC(),
		decimal.RequireFromString("1380.00"),
		decimal.RequireFromString("303.60"),
		decimal.RequireFromString("1683.60"),
		[]InvoiceLine{{Name: "Montaža", Kind: "base", Quantity: decimal.NewFromInt(12), Unit: "h", UnitPrice: decimal.NewFromInt(85), VATRate: "22"}})
}

func TestProcessBatch_ReconcilesQueuedEntries(t *testing.T) {
	ledger := newFakeLedger()
	queue := newFakeQueue()
	ctx := context.Background()

	first := sampleEntry(id.New())
	second := sampleEntry(id.New())
	_ = queue.Enqueue(ctx, first, "ledger down")
	_ = queue.Enqueue(ctx, second, "ledger down")

	r := NewReconciler(ledger, queue, 10)
	processed, err := r.ProcessBatch(ctx)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if processed != 2 {
		t.Errorf("expected 2 reconciled, got %d", processed)
	}
	if len(queue.entries) != 0 {
		t.Errorf("expected empty queue, %d left", len(queue.entries))
	}
	if _, ok := ledger.recorded[first.InvoiceID]; !ok {
		t.Error("first entry not recorded")
	}
}

func TestProcessBatch_FailureDoesNotStopBatch(t *testing.T) {
	ledger := newFakeLedger()
	queue := newFakeQueue()
	ctx := context.Background()

	bad := sampleEntry(id.New())
	good := sampleEntry(id.New())
	ledger.failFor[bad.InvoiceID] = errors.New("still down")
	_ = queue.Enqueue(ctx, bad, "ledger down")
	_ = queue.Enqueue(ctx, good, "ledger down")

	r := NewReconciler(ledger, queue, 10)
	processed, err := r.ProcessBatch(ctx)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if processed != 1 {
		t.Errorf("expected 1 reconciled, got %d", processed)
	}
	if _, ok := ledger.recorded[good.InvoiceID]; !ok {
		t.Error("good entry must be recorded despite earlier failure")
	}
	if len(queue.failed) != 1 {
		t.Errorf("expected 1 failure marked, got %d", len(queue.failed))
	}
	if len(queue.entries) != 1 {
		t.Errorf("expected failed entry to stay queued, %d left", len(queue.entries))
	}
}

func TestRecordInvoiceIssued_Idempotent(t *testing.T) {
	ledger := newFakeLedger()
	entry := sampleEntry(id.New())

	created, err := ledger.RecordInvoiceIssued(context.Background(), entry)
	if err != nil || !created {
		t.Fatalf("first record: created=%v err=%v", created, err)
	}
	created, err = ledger.RecordInvoiceIssued(context.Background(), entry)
	if err != nil || created {
		t.Fatalf("second record must be a no-op: created=%v err=%v", created, err)
	}
}
