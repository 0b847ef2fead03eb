package offer

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fieldbill/internal/core/apperror"
	"fieldbill/internal/core/id"
	"fieldbill/internal/core/numerator"
	"fieldbill/internal/domain"
	"fieldbill/internal/domain/pricing"
)

// fakeTx serializes transactions with a mutex, standing in for database
// isolation in concurrency tests.
type fakeTx struct {
	mu sync.Mutex
}

func (f *fakeTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(ctx)
}

type fakeRepo struct {
	mu       sync.Mutex
	versions map[id.ID]*OfferVersion
	items    map[id.ID][]pricing.LineItem

	// markAccepted overrides MarkAccepted when set
	markAccepted func(ctx context.Context, versionID id.ID, at time.Time) (bool, error)
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		versions: make(map[id.ID]*OfferVersion),
		items:    make(map[id.ID][]pricing.LineItem),
	}
}

func cloneVersion(v *OfferVersion) *OfferVersion {
	c := *v
	c.Items = pricing.CloneItems(v.Items)
	return &c
}

func (f *fakeRepo) Create(ctx context.Context, v *OfferVersion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.versions {
		if existing.ProjectID == v.ProjectID &&
			existing.BaseTitle == v.BaseTitle &&
			existing.VersionNumber == v.VersionNumber {
			return apperror.NewDuplicate("offer version", "versionNumber", v.Title())
		}
	}
	f.versions[v.ID] = cloneVersion(v)
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, versionID id.ID) (*OfferVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.versions[versionID]
	if !ok {
		return nil, apperror.NewNotFound("offer version", versionID)
	}
	return cloneVersion(v), nil
}

func (f *fakeRepo) Update(ctx context.Context, v *OfferVersion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.versions[v.ID]; !ok {
		return apperror.NewNotFound("offer version", v.ID)
	}
	f.versions[v.ID] = cloneVersion(v)
	return nil
}

func (f *fakeRepo) GetItems(ctx context.Context, versionID id.ID) ([]pricing.LineItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return pricing.CloneItems(f.items[versionID]), nil
}

func (f *fakeRepo) SaveItems(ctx context.Context, versionID id.ID, items []pricing.LineItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[versionID] = pricing.CloneItems(items)
	return nil
}

func (f *fakeRepo) List(ctx context.Context, filter ListFilter) (domain.ListResult[*OfferVersion], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*OfferVersion
	for _, v := range f.versions {
		if filter.ProjectID != nil && v.ProjectID != *filter.ProjectID {
			continue
		}
		if filter.Status != nil && v.Status != *filter.Status {
			continue
		}
		out = append(out, cloneVersion(v))
	}
	return domain.ListResult[*OfferVersion]{Items: out, TotalCount: int64(len(out))}, nil
}

func (f *fakeRepo) MaxVersionNumber(ctx context.Context, projectID id.ID, baseTitle string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	max := 0
	for _, v := range f.versions {
		if v.ProjectID == projectID && v.BaseTitle == baseTitle && v.VersionNumber > max {
			max = v.VersionNumber
		}
	}
	return max, nil
}

func (f *fakeRepo) GetAccepted(ctx context.Context, projectID id.ID) (*OfferVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.versions {
		if v.ProjectID == projectID && v.Status == StatusAccepted {
			return cloneVersion(v), nil
		}
	}
	return nil, apperror.NewNotFound("accepted offer version", projectID)
}

func (f *fakeRepo) MarkAccepted(ctx context.Context, versionID id.ID, at time.Time) (bool, error) {
	if f.markAccepted != nil {
		return f.markAccepted(ctx, versionID, at)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.versions[versionID]
	if !ok || v.Status != StatusDraft {
		return false, nil
	}
	for _, other := range f.versions {
		if other.ProjectID == v.ProjectID && other.ID != v.ID && other.Status == StatusAccepted {
			return false, nil
		}
	}
	v.Status = StatusAccepted
	stamp := at
	v.AcceptedAt = &stamp
	return true, nil
}

func (f *fakeRepo) RetireAccepted(ctx context.Context, projectID, exceptID id.ID, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, v := range f.versions {
		if v.ProjectID == projectID && v.ID != exceptID && v.Status == StatusAccepted {
			v.Status = StatusCancelled
			stamp := at
			v.CancelledAt = &stamp
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) GetForUpdate(ctx context.Context, versionID id.ID) (*OfferVersion, error) {
	return f.GetByID(ctx, versionID)
}

func testItems() []pricing.LineItem {
	return []pricing.LineItem{
		{LineID: id.New(), LineNo: 1, Name: "Montaža", Quantity: decimal.NewFromInt(12), Unit: "h", UnitPrice: decimal.NewFromInt(85), VATRate: pricing.VATStandard},
		{LineID: id.New(), LineNo: 2, Name: "Material", Quantity: decimal.NewFromInt(8), Unit: "kos", UnitPrice: decimal.NewFromInt(45), VATRate: pricing.VATStandard},
	}
}

func newTestService() (*Service, *fakeRepo) {
	repo := newFakeRepo()
	return NewService(repo, numerator.NewMockGenerator(), &fakeTx{}), repo
}

func TestCreateVersion_AssignsSequentialVersionNumbers(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	projectID := id.New()

	v1, err := svc.CreateVersion(ctx, projectID, "Fasada", testItems(), pricing.DiscountConfig{VATMode: pricing.VATStandard})
	if err != nil {
		t.Fatalf("create v1: %v", err)
	}
	// candidate carries a version suffix, must land in the same chain
	v2, err := svc.CreateVersion(ctx, projectID, "Fasada_1", testItems(), pricing.DiscountConfig{VATMode: pricing.VATStandard})
	if err != nil {
		t.Fatalf("create v2: %v", err)
	}

	if v1.VersionNumber != 1 || v2.VersionNumber != 2 {
		t.Errorf("expected version numbers 1 and 2, got %d and %d", v1.VersionNumber, v2.VersionNumber)
	}
	if v1.BaseTitle != "Fasada" || v2.BaseTitle != "Fasada" {
		t.Errorf("expected base title Fasada, got %q and %q", v1.BaseTitle, v2.BaseTitle)
	}
	if v2.Title() != "Fasada_2" {
		t.Errorf("expected title Fasada_2, got %q", v2.Title())
	}
	if v1.Number == "" || v1.Number == v2.Number {
		t.Errorf("expected distinct document numbers, got %q and %q", v1.Number, v2.Number)
	}
	if !v1.Summary.TotalWithVAT.Equal(decimal.RequireFromString("1683.60")) {
		t.Errorf("expected total 1683.60, got %s", v1.Summary.TotalWithVAT)
	}
}

func TestCreateVersion_Concurrent(t *testing.T) {
	svc, _ := newTestService()
	projectID := id.New()

	const n = 8
	results := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := svc.CreateVersion(context.Background(), projectID, "Streha", testItems(), pricing.DiscountConfig{VATMode: pricing.VATStandard})
			if err != nil {
				t.Errorf("create: %v", err)
				return
			}
			results <- v.VersionNumber
		}()
	}
	wg.Wait()
	close(results)

	var got []int
	for num := range results {
		got = append(got, num)
	}
	sort.Ints(got)
	for i, v := range got {
		if v != i+1 {
			t.Fatalf("expected version numbers 1..%d, got %v", n, got)
		}
	}
}

func TestUpdateVersion_DraftOnly(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	projectID := id.New()

	v, err := svc.CreateVersion(ctx, projectID, "Fasada", testItems(), pricing.DiscountConfig{VATMode: pricing.VATStandard})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	items := testItems()
	items[0].Quantity = decimal.NewFromInt(20)
	updated, err := svc.UpdateVersion(ctx, v.ID, items, pricing.DiscountConfig{VATMode: pricing.VATStandard})
	if err != nil {
		t.Fatalf("update draft: %v", err)
	}
	if !updated.Summary.BaseWithoutVAT.Equal(decimal.RequireFromString("2060.00")) {
		t.Errorf("expected recomputed base 2060.00, got %s", updated.Summary.BaseWithoutVAT)
	}

	if _, err := svc.Accept(ctx, v.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	_, err = svc.UpdateVersion(ctx, v.ID, items, pricing.DiscountConfig{VATMode: pricing.VATStandard})
	if !apperror.IsCode(err, apperror.CodeImmutableVersion) {
		t.Fatalf("expected immutable version error, got %v", err)
	}
}

func TestAccept_RetiresPreviouslyAccepted(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	projectID := id.New()

	v1, _ := svc.CreateVersion(ctx, projectID, "Fasada", testItems(), pricing.DiscountConfig{VATMode: pricing.VATStandard})
	v2, _ := svc.CreateVersion(ctx, projectID, "Fasada", testItems(), pricing.DiscountConfig{VATMode: pricing.VATStandard})

	if _, err := svc.Accept(ctx, v1.ID); err != nil {
		t.Fatalf("accept v1: %v", err)
	}
	if _, err := svc.Accept(ctx, v2.ID); err != nil {
		t.Fatalf("accept v2: %v", err)
	}

	got1, _ := repo.GetByID(ctx, v1.ID)
	got2, _ := repo.GetByID(ctx, v2.ID)
	if got1.Status != StatusCancelled || got1.CancelledAt == nil {
		t.Errorf("expected v1 cancelled with timestamp, got %s", got1.Status)
	}
	if got2.Status != StatusAccepted || got2.AcceptedAt == nil {
		t.Errorf("expected v2 accepted with timestamp, got %s", got2.Status)
	}
}

func TestAccept_Idempotent(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	v, _ := svc.CreateVersion(ctx, id.New(), "Fasada", testItems(), pricing.DiscountConfig{VATMode: pricing.VATStandard})

	fanOuts := 0
	svc.Hooks().On(domain.AfterAccept, func(ctx context.Context, doc *OfferVersion) error {
		fanOuts++
		return nil
	})

	if _, err := svc.Accept(ctx, v.ID); err != nil {
		t.Fatalf("first accept: %v", err)
	}
	if _, err := svc.Accept(ctx, v.ID); err != nil {
		t.Fatalf("second accept: %v", err)
	}
	if fanOuts != 1 {
		t.Errorf("expected fan-out to run once, ran %d times", fanOuts)
	}
}

func TestAccept_LoserGetsAlreadyAccepted(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	v, _ := svc.CreateVersion(ctx, id.New(), "Fasada", testItems(), pricing.DiscountConfig{VATMode: pricing.VATStandard})

	// concurrent winner committed between retire and the conditional update
	repo.markAccepted = func(ctx context.Context, versionID id.ID, at time.Time) (bool, error) {
		return false, nil
	}

	_, err := svc.Accept(ctx, v.ID)
	if !apperror.IsCode(err, apperror.CodeAlreadyAccepted) {
		t.Fatalf("expected already accepted error, got %v", err)
	}
}

func TestAccept_CancelledIsImmutable(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	projectID := id.New()

	v, _ := svc.CreateVersion(ctx, projectID, "Fasada", testItems(), pricing.DiscountConfig{VATMode: pricing.VATStandard})
	if _, err := svc.Accept(ctx, v.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := svc.CancelAcceptance(ctx, projectID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	_, err := svc.Accept(ctx, v.ID)
	if !apperror.IsCode(err, apperror.CodeImmutableVersion) {
		t.Fatalf("expected immutable version error, got %v", err)
	}
}

func TestCancelAcceptance_NoAcceptedVersion(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.CancelAcceptance(context.Background(), id.New())
	if !apperror.IsCode(err, apperror.CodeNoAcceptedVersion) {
		t.Fatalf("expected no accepted version error, got %v", err)
	}
}

func TestAccept_FanOutIsolation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	v, _ := svc.CreateVersion(ctx, id.New(), "Fasada", testItems(), pricing.DiscountConfig{VATMode: pricing.VATStandard})

	secondRan := false
	svc.Hooks().On(domain.AfterAccept, func(ctx context.Context, doc *OfferVersion) error {
		return errors.New("work order store unavailable")
	})
	svc.Hooks().On(domain.AfterAccept, func(ctx context.Context, doc *OfferVersion) error {
		secondRan = true
		return nil
	})

	accepted, err := svc.Accept(ctx, v.ID)
	if err != nil {
		t.Fatalf("accept must not surface side-effect errors, got %v", err)
	}
	if accepted.Status != StatusAccepted {
		t.Errorf("expected accepted status, got %s", accepted.Status)
	}
	if !secondRan {
		t.Error("second hook must run despite first hook failure")
	}
}

func TestCreateVersion_LocalNumberWhenCounterUnavailable(t *testing.T) {
	repo := newFakeRepo()
	gen := numerator.NewMockGenerator()
	gen.NextFunc = func(ctx context.Context, cfg numerator.Config, period time.Time) (numerator.Result, error) {
		return numerator.Result{}, errors.New("sequence table unavailable")
	}
	svc := NewService(repo, gen, &fakeTx{})
	ctx := context.Background()

	v, err := svc.CreateVersion(ctx, id.New(), "Fasada", testItems(), pricing.DiscountConfig{VATMode: pricing.VATStandard})
	if err != nil {
		t.Fatalf("create with unavailable counter: %v", err)
	}
	if !strings.HasPrefix(v.Number, DocType+"-LOCAL-") {
		t.Fatalf("expected %s-LOCAL- number, got %q", DocType, v.Number)
	}
	if v.Status != StatusDraft {
		t.Fatalf("expected draft, got %s", v.Status)
	}
}

func TestCancelAcceptanceByID(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	projectID := id.New()

	v, err := svc.CreateVersion(ctx, projectID, "Fasada", testItems(), pricing.DiscountConfig{VATMode: pricing.VATStandard})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Accept(ctx, v.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	cancelled, err := svc.CancelAcceptanceByID(ctx, v.ID)
	if err != nil {
		t.Fatalf("cancel by id: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
	if cancelled.CancelledAt == nil {
		t.Fatal("expected CancelledAt stamp")
	}

	// the version is no longer accepted, so a second cancel reports it
	if _, err := svc.CancelAcceptanceByID(ctx, v.ID); !apperror.IsCode(err, apperror.CodeNoAcceptedVersion) {
		t.Fatalf("expected no accepted version error, got %v", err)
	}
}

func TestCancelAcceptanceByID_DraftIsNotAccepted(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	v, err := svc.CreateVersion(ctx, id.New(), "Fasada", testItems(), pricing.DiscountConfig{VATMode: pricing.VATStandard})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.CancelAcceptanceByID(ctx, v.ID); !apperror.IsCode(err, apperror.CodeNoAcceptedVersion) {
		t.Fatalf("expected no accepted version error, got %v", err)
	}
}
