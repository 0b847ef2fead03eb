package workorder

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"fieldbill/internal/core/apperror"
	"fieldbill/internal/core/id"
	"fieldbill/internal/core/numerator"
	"fieldbill/internal/domain"
	"fieldbill/internal/domain/documents/offer"
	"fieldbill/internal/domain/pricing"
	"fieldbill/internal/domain/rules"
)

type passTx struct{}

func (passTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeWORepo struct {
	orders map[id.ID]*WorkOrder
	items  map[id.ID][]Item
}

func newFakeWORepo() *fakeWORepo {
	return &fakeWORepo{orders: make(map[id.ID]*WorkOrder), items: make(map[id.ID][]Item)}
}

func (f *fakeWORepo) Create(ctx context.Context, wo *WorkOrder) error {
	c := *wo
	f.orders[wo.ID] = &c
	return nil
}

func (f *fakeWORepo) GetByID(ctx context.Context, orderID id.ID) (*WorkOrder, error) {
	wo, ok := f.orders[orderID]
	if !ok {
		return nil, apperror.NewNotFound("work order", orderID)
	}
	c := *wo
	return &c, nil
}

func (f *fakeWORepo) Update(ctx context.Context, wo *WorkOrder) error {
	c := *wo
	f.orders[wo.ID] = &c
	return nil
}

func (f *fakeWORepo) GetActiveByProject(ctx context.Context, projectID id.ID) (*WorkOrder, error) {
	for _, wo := range f.orders {
		if wo.ProjectID == projectID && wo.Status != StatusCancelled {
			c := *wo
			return &c, nil
		}
	}
	return nil, apperror.NewNotFound("work order", projectID)
}

func (f *fakeWORepo) ListByProject(ctx context.Context, projectID id.ID) ([]*WorkOrder, error) {
	var out []*WorkOrder
	for _, wo := range f.orders {
		if wo.ProjectID == projectID {
			c := *wo
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeWORepo) GetItems(ctx context.Context, orderID id.ID) ([]Item, error) {
	return append([]Item(nil), f.items[orderID]...), nil
}

func (f *fakeWORepo) SaveItems(ctx context.Context, orderID id.ID, items []Item) error {
	f.items[orderID] = append([]Item(nil), items...)
	return nil
}

func (f *fakeWORepo) List(ctx context.Context, filter ListFilter) (domain.ListResult[*WorkOrder], error) {
	var out []*WorkOrder
	for _, wo := range f.orders {
		if filter.ProjectID != nil && wo.ProjectID != *filter.ProjectID {
			continue
		}
		c := *wo
		out = append(out, &c)
	}
	return domain.ListResult[*WorkOrder]{Items: out, TotalCount: int64(len(out))}, nil
}

type fakeMORepo struct {
	orders map[id.ID]*MaterialOrder
	items  map[id.ID][]Item
}

func newFakeMORepo() *fakeMORepo {
	return &fakeMORepo{orders: make(map[id.ID]*MaterialOrder), items: make(map[id.ID][]Item)}
}

func (f *fakeMORepo) Create(ctx context.Context, mo *MaterialOrder) error {
	c := *mo
	f.orders[mo.ID] = &c
	return nil
}

func (f *fakeMORepo) GetByID(ctx context.Context, orderID id.ID) (*MaterialOrder, error) {
	mo, ok := f.orders[orderID]
	if !ok {
		return nil, apperror.NewNotFound("material order", orderID)
	}
	c := *mo
	return &c, nil
}

func (f *fakeMORepo) Update(ctx context.Context, mo *MaterialOrder) error {
	c := *mo
	f.orders[mo.ID] = &c
	return nil
}

func (f *fakeMORepo) GetActiveByProject(ctx context.Context, projectID id.ID) (*MaterialOrder, error) {
	for _, mo := range f.orders {
		if mo.ProjectID == projectID && mo.Status != StatusCancelled {
			c := *mo
			return &c, nil
		}
	}
	return nil, apperror.NewNotFound("material order", projectID)
}

func (f *fakeMORepo) GetItems(ctx context.Context, orderID id.ID) ([]Item, error) {
	return append([]Item(nil), f.items[orderID]...), nil
}

func (f *fakeMORepo) SaveItems(ctx context.Context, orderID id.ID, items []Item) error {
	f.items[orderID] = append([]Item(nil), items...)
	return nil
}

func acceptedOffer(projectID id.ID) *offer.OfferVersion {
	o := offer.NewOfferVersion(projectID, "Fasada", []pricing.LineItem{
		{LineID: id.New(), LineNo: 1, Name: "Montaža", Quantity: decimal.NewFromInt(12), Unit: "h", UnitPrice: decimal.NewFromInt(85), VATRate: pricing.VATStandard},
		{LineID: id.New(), LineNo: 2, ProductRef: "IZO-100", Name: "Izolacija", Quantity: decimal.NewFromInt(40), Unit: "m2", UnitPrice: decimal.NewFromInt(12), VATRate: pricing.VATStandard},
	}, pricing.DiscountConfig{VATMode: pricing.VATStandard})
	o.Status = offer.StatusAccepted
	return o
}

func newWOService(t *testing.T) (*Service, *fakeWORepo, *fakeMORepo) {
	t.Helper()
	eval, err := rules.NewEvaluator()
	if err != nil {
		t.Fatalf("rules evaluator: %v", err)
	}
	woRepo := newFakeWORepo()
	moRepo := newFakeMORepo()
	return NewService(woRepo, moRepo, numerator.NewMockGenerator(), passTx{}, eval), woRepo, moRepo
}

func TestEnsureForOffer_CreatesOrders(t *testing.T) {
	svc, woRepo, moRepo := newWOService(t)
	ctx := context.Background()
	projectID := id.New()
	o := acceptedOffer(projectID)

	if err := svc.EnsureForOffer(ctx, o, "Novak d.o.o."); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	wo, err := woRepo.GetActiveByProject(ctx, projectID)
	if err != nil {
		t.Fatalf("work order not created: %v", err)
	}
	if wo.Number == "" || wo.CustomerName != "Novak d.o.o." {
		t.Errorf("unexpected work order: number=%q customer=%q", wo.Number, wo.CustomerName)
	}

	items, _ := woRepo.GetItems(ctx, wo.ID)
	if len(items) != 2 {
		t.Fatalf("expected 2 work order items, got %d", len(items))
	}
	for _, it := range items {
		if !it.Offered.Equal(it.Planned) || !it.Offered.Equal(it.Executed) {
			t.Errorf("expected offered=planned=executed, got %+v", it)
		}
		if it.IsExtra {
			t.Errorf("offer-derived item must not be extra: %+v", it)
		}
	}

	mo, err := moRepo.GetActiveByProject(ctx, projectID)
	if err != nil {
		t.Fatalf("material order not created: %v", err)
	}
	moItems, _ := moRepo.GetItems(ctx, mo.ID)
	if len(moItems) != 1 || moItems[0].ProductRef != "IZO-100" {
		t.Fatalf("expected only the product line on the material order, got %+v", moItems)
	}
}

func TestEnsureForOffer_RefreshesInPlace(t *testing.T) {
	svc, woRepo, _ := newWOService(t)
	ctx := context.Background()
	projectID := id.New()
	o := acceptedOffer(projectID)

	if err := svc.EnsureForOffer(ctx, o, "Novak d.o.o."); err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	first, _ := woRepo.GetActiveByProject(ctx, projectID)

	// crew records execution and an extra line before the offer is re-accepted
	items, _ := woRepo.GetItems(ctx, first.ID)
	if err := svc.RecordExecution(ctx, first.ID, items[0].LineID, decimal.NewFromInt(9)); err != nil {
		t.Fatalf("record execution: %v", err)
	}
	if err := svc.AddExtraItem(ctx, first.ID, Item{Name: "Odvoz odpadkov", Unit: "kos", Executed: decimal.NewFromInt(1)}); err != nil {
		t.Fatalf("add extra: %v", err)
	}

	o2 := acceptedOffer(projectID)
	o2.Items = o.Items // same offer lines, new version
	if err := svc.EnsureForOffer(ctx, o2, "Novak d.o.o."); err != nil {
		t.Fatalf("second ensure: %v", err)
	}

	second, _ := woRepo.GetActiveByProject(ctx, projectID)
	if second.ID != first.ID {
		t.Fatal("refresh must reuse the existing work order, not create a new one")
	}
	if second.OfferID != o2.ID {
		t.Error("refresh must repoint the work order at the new offer version")
	}

	refreshed, _ := woRepo.GetItems(ctx, second.ID)
	if len(refreshed) != 3 {
		t.Fatalf("expected 2 offer items plus 1 extra, got %d", len(refreshed))
	}
	var extras, executedKept int
	for _, it := range refreshed {
		if it.IsExtra {
			extras++
		}
		if it.OfferLineID == o.Items[0].LineID && it.Executed.Equal(decimal.NewFromInt(9)) {
			executedKept++
		}
	}
	if extras != 1 {
		t.Errorf("expected extra item to survive refresh, got %d extras", extras)
	}
	if executedKept != 1 {
		t.Error("expected recorded execution to survive refresh")
	}
}

func TestEnsureForOffer_QuantityFormula(t *testing.T) {
	svc, woRepo, _ := newWOService(t)
	ctx := context.Background()
	projectID := id.New()

	o := acceptedOffer(projectID)
	o.Items[0].QuantityFormula = "quantity * 2.0"

	if err := svc.EnsureForOffer(ctx, o, ""); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	wo, _ := woRepo.GetActiveByProject(ctx, projectID)
	items, _ := woRepo.GetItems(ctx, wo.ID)
	for _, it := range items {
		if it.OfferLineID == o.Items[0].LineID {
			if !it.Planned.Equal(decimal.NewFromInt(24)) {
				t.Errorf("expected planned 24 from formula, got %s", it.Planned)
			}
			if !it.Offered.Equal(decimal.NewFromInt(12)) {
				t.Errorf("offered must stay at the sold quantity, got %s", it.Offered)
			}
			return
		}
	}
	t.Fatal("formula line not found on work order")
}

func TestCancel_MarksBothOrders(t *testing.T) {
	svc, woRepo, moRepo := newWOService(t)
	ctx := context.Background()
	projectID := id.New()

	if err := svc.EnsureForOffer(ctx, acceptedOffer(projectID), ""); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := svc.Cancel(ctx, projectID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	for _, wo := range woRepo.orders {
		if wo.ProjectID == projectID && (wo.Status != StatusCancelled || wo.CancelledAt == nil) {
			t.Errorf("work order not cancelled: %+v", wo)
		}
	}
	for _, mo := range moRepo.orders {
		if mo.ProjectID == projectID && (mo.Status != StatusCancelled || mo.CancelledAt == nil) {
			t.Errorf("material order not cancelled: %+v", mo)
		}
	}

	// second cancel finds nothing active and is a no-op
	if err := svc.Cancel(ctx, projectID); err != nil {
		t.Fatalf("cancel must be idempotent: %v", err)
	}
}

func TestAllCompleted(t *testing.T) {
	svc, woRepo, _ := newWOService(t)
	ctx := context.Background()
	projectID := id.New()

	done, err := svc.AllCompleted(ctx, projectID)
	if err != nil || done {
		t.Fatalf("project without work orders must not count as completed, got %v %v", done, err)
	}

	if err := svc.EnsureForOffer(ctx, acceptedOffer(projectID), ""); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	done, _ = svc.AllCompleted(ctx, projectID)
	if done {
		t.Fatal("open work order must not count as completed")
	}

	wo, _ := woRepo.GetActiveByProject(ctx, projectID)
	if err := svc.Complete(ctx, wo.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	done, _ = svc.AllCompleted(ctx, projectID)
	if !done {
		t.Fatal("expected all work orders completed")
	}
}

func TestListExecutedQuantities(t *testing.T) {
	svc, woRepo, _ := newWOService(t)
	ctx := context.Background()
	projectID := id.New()
	o := acceptedOffer(projectID)

	if err := svc.EnsureForOffer(ctx, o, ""); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	wo, _ := woRepo.GetActiveByProject(ctx, projectID)
	items, _ := woRepo.GetItems(ctx, wo.ID)
	if err := svc.RecordExecution(ctx, wo.ID, items[0].LineID, decimal.NewFromInt(7)); err != nil {
		t.Fatalf("record execution: %v", err)
	}

	quantities, err := svc.ListExecutedQuantities(ctx, projectID)
	if err != nil {
		t.Fatalf("list executed: %v", err)
	}
	if len(quantities) != 2 {
		t.Fatalf("expected 2 execution records, got %d", len(quantities))
	}
	for _, q := range quantities {
		if q.OfferLineID == o.Items[0].LineID && !q.Executed.Equal(decimal.NewFromInt(7)) {
			t.Errorf("expected executed 7, got %s", q.Executed)
		}
	}
}
