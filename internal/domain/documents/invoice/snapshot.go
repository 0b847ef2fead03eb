package invoice

import (
	"github.com/shopspring/decimal"

	"fieldbill/internal/core/id"
	"fieldbill/internal/domain/pricing"
	"fieldbill/internal/domain/workorder"
)

// BuildSnapshot turns work-order execution records into classified invoice
// items. Records are aggregated by composite key (offer line, then product
// ref, then name+unit), so the same work split across orders lands on one
// line. Price, VAT and discount come from the matching accepted-offer line;
// unmatched work is billed at zero with the standard VAT rate, for the office
// to price manually. Lines with nothing executed are dropped.
func BuildSnapshot(executed []workorder.ExecutedQuantity, offerItems []pricing.LineItem) []Item {
	type group struct {
		first    workorder.ExecutedQuantity
		executed decimal.Decimal
		isExtra  bool
	}

	groups := make(map[string]*group)
	var order []string

	for _, eq := range executed {
		key := groupKey(eq)
		g, ok := groups[key]
		if !ok {
			g = &group{first: eq}
			groups[key] = g
			order = append(order, key)
		}
		g.executed = g.executed.Add(eq.Executed)
		if eq.IsExtra {
			g.isExtra = true
		}
	}

	items := make([]Item, 0, len(order))
	for _, key := range order {
		g := groups[key]
		if g.executed.IsZero() {
			continue
		}

		offerLine := matchOfferLine(g.first, offerItems)

		item := Item{
			LineItem: pricing.LineItem{
				LineID:     id.New(),
				LineNo:     len(items) + 1,
				ProductRef: g.first.ProductRef,
				Name:       g.first.Name,
				Unit:       g.first.Unit,
				Quantity:   g.executed,
				UnitPrice:  decimal.Zero,
				VATRate:    pricing.VATStandard,
			},
			OfferLineID: g.first.OfferLineID,
		}

		var offered decimal.Decimal
		if offerLine != nil {
			item.UnitPrice = offerLine.UnitPrice
			item.VATRate = offerLine.VATRate
			item.DiscountPercent = offerLine.DiscountPercent
			if !g.isExtra {
				offered = offerLine.Quantity
			}
		}

		switch {
		case g.isExtra || offered.IsZero():
			item.Kind = KindExtra
		case g.executed.GreaterThanOrEqual(offered):
			item.Kind = KindBase
		default:
			item.Kind = KindShortfall
		}

		items = append(items, item)
	}

	return items
}

func groupKey(eq workorder.ExecutedQuantity) string {
	if !id.IsNil(eq.OfferLineID) {
		return "line:" + eq.OfferLineID.String()
	}
	if eq.ProductRef != "" {
		return "ref:" + eq.ProductRef
	}
	return "name:" + eq.Name + "|" + eq.Unit
}

// matchOfferLine resolves the accepted-offer line for an execution record:
// offer line id first, then product ref, then name+unit.
func matchOfferLine(eq workorder.ExecutedQuantity, offerItems []pricing.LineItem) *pricing.LineItem {
	if !id.IsNil(eq.OfferLineID) {
		for i := range offerItems {
			if offerItems[i].LineID == eq.OfferLineID {
				return &offerItems[i]
			}
		}
	}
	if eq.ProductRef != "" {
		for i := range offerItems {
			if offerItems[i].ProductRef == eq.ProductRef {
				return &offerItems[i]
			}
		}
	}
	for i := range offerItems {
		if offerItems[i].Name == eq.Name && offerItems[i].Unit == eq.Unit {
			return &offerItems[i]
		}
	}
	return nil
}
