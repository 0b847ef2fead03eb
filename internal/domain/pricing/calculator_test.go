package pricing

import (
	"context"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"

	"fieldbill/internal/core/id"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func twoItems() []LineItem {
	return []LineItem{
		{LineID: id.New(), LineNo: 1, Name: "Montaža", Quantity: dec("12"), Unit: "h", UnitPrice: dec("85"), VATRate: VATStandard},
		{LineID: id.New(), LineNo: 2, Name: "Material", Quantity: dec("8"), Unit: "kos", UnitPrice: dec("45"), VATRate: VATStandard},
	}
}

func assertMoney(t *testing.T, field string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Errorf("%s: expected %s, got %s", field, want, got.String())
	}
}

func TestComputeTotals_NoDiscounts(t *testing.T) {
	summary, warnings := ComputeTotals(twoItems(), DiscountConfig{VATMode: VATStandard})

	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	assertMoney(t, "baseWithoutVat", summary.BaseWithoutVAT, "1380.00")
	assertMoney(t, "vatAmount", summary.VATAmount, "303.60")
	assertMoney(t, "totalWithVat", summary.TotalWithVAT, "1683.60")
}

func TestComputeTotals_GlobalDiscount(t *testing.T) {
	cfg := DiscountConfig{
		UseGlobalDiscount:     true,
		GlobalDiscountPercent: dec("10"),
		VATMode:               VATStandard,
	}
	summary, _ := ComputeTotals(twoItems(), cfg)

	assertMoney(t, "globalDiscountAmount", summary.GlobalDiscount, "138.00")
	assertMoney(t, "baseAfterDiscount", summary.BaseAfterDiscount, "1242.00")
	assertMoney(t, "vatAmount", summary.VATAmount, "273.24")
	assertMoney(t, "totalWithVat", summary.TotalWithVAT, "1515.24")
}

func TestComputeTotals_PerItemDiscount(t *testing.T) {
	items := twoItems()
	items[0].DiscountPercent = dec("50")

	cfg := DiscountConfig{UsePerItemDiscount: true, VATMode: VATZero}
	summary, _ := ComputeTotals(items, cfg)

	// 12*85 = 1020, half discounted
	assertMoney(t, "perItemDiscountAmount", summary.PerItemDiscount, "510.00")
	assertMoney(t, "baseAfterDiscount", summary.BaseAfterDiscount, "870.00")
	assertMoney(t, "totalWithVat", summary.TotalWithVAT, "870.00")
}

func TestComputeTotals_ClampsPercents(t *testing.T) {
	items := twoItems()
	items[0].DiscountPercent = dec("150")
	items[1].DiscountPercent = dec("-20")

	cfg := DiscountConfig{
		UsePerItemDiscount:    true,
		UseGlobalDiscount:     true,
		GlobalDiscountPercent: dec("200"),
		VATMode:               VATZero,
	}
	summary, _ := ComputeTotals(items, cfg)

	// item 1 fully discounted (clamped to 100), item 2 untouched (clamped to 0),
	// then everything removed by the clamped 100% global discount
	assertMoney(t, "perItemDiscountAmount", summary.PerItemDiscount, "1020.00")
	assertMoney(t, "globalDiscountAmount", summary.GlobalDiscount, "360.00")
	assertMoney(t, "baseAfterDiscount", summary.BaseAfterDiscount, "0.00")
	assertMoney(t, "totalWithVat", summary.TotalWithVAT, "0.00")
}

func TestComputeTotals_EmptyItems(t *testing.T) {
	summary, warnings := ComputeTotals(nil, DiscountConfig{VATMode: VATStandard})

	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	assertMoney(t, "baseWithoutVat", summary.BaseWithoutVAT, "0.00")
	assertMoney(t, "totalWithVat", summary.TotalWithVAT, "0.00")
}

func TestComputeTotals_UnsupportedVATModeWarns(t *testing.T) {
	summary, warnings := ComputeTotals(twoItems(), DiscountConfig{VATMode: "19"})

	if len(warnings) != 1 || warnings[0].Code != warnUnsupportedVATMode {
		t.Fatalf("expected unsupported VAT mode warning, got %v", warnings)
	}
	// falls back to 0% rather than failing
	assertMoney(t, "vatAmount", summary.VATAmount, "0.00")
	assertMoney(t, "totalWithVat", summary.TotalWithVAT, "1380.00")
}

func TestComputeTotals_OrderIndependent(t *testing.T) {
	items := []LineItem{
		{LineNo: 1, Name: "A", Quantity: dec("3.5"), UnitPrice: dec("19.99"), VATRate: VATStandard, DiscountPercent: dec("5")},
		{LineNo: 2, Name: "B", Quantity: dec("1"), UnitPrice: dec("1249.50"), VATRate: VATStandard, DiscountPercent: dec("12.5")},
		{LineNo: 3, Name: "C", Quantity: dec("40"), UnitPrice: dec("0.75"), VATRate: VATStandard},
		{LineNo: 4, Name: "D", Quantity: dec("7"), UnitPrice: dec("33.33"), VATRate: VATStandard, DiscountPercent: dec("100")},
	}
	cfg := DiscountConfig{
		UsePerItemDiscount:    true,
		UseGlobalDiscount:     true,
		GlobalDiscountPercent: dec("3"),
		VATMode:               VATReduced,
	}

	reference, _ := ComputeTotals(items, cfg)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 25; i++ {
		shuffled := CloneItems(items)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		got, _ := ComputeTotals(shuffled, cfg)
		if !got.TotalWithVAT.Equal(reference.TotalWithVAT) ||
			!got.BaseWithoutVAT.Equal(reference.BaseWithoutVAT) ||
			!got.PerItemDiscount.Equal(reference.PerItemDiscount) ||
			!got.GlobalDiscount.Equal(reference.GlobalDiscount) ||
			!got.VATAmount.Equal(reference.VATAmount) {
			t.Fatalf("summary depends on item order: %+v vs %+v", got, reference)
		}
	}
}

func TestLineItem_Validate(t *testing.T) {
	valid := LineItem{LineNo: 1, Name: "X", Quantity: dec("1"), UnitPrice: dec("10"), VATRate: VATStandard}
	if err := valid.Validate(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	cases := []struct {
		name string
		li   LineItem
	}{
		{"missing name", LineItem{Quantity: dec("1"), UnitPrice: dec("10"), VATRate: VATStandard}},
		{"zero quantity", LineItem{Name: "X", Quantity: dec("0"), UnitPrice: dec("10"), VATRate: VATStandard}},
		{"negative price", LineItem{Name: "X", Quantity: dec("1"), UnitPrice: dec("-1"), VATRate: VATStandard}},
		{"bad vat rate", LineItem{Name: "X", Quantity: dec("1"), UnitPrice: dec("10"), VATRate: "19"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.li.Validate(context.Background()); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
