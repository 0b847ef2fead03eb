package dto

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"fieldbill/internal/core/id"
	"fieldbill/internal/domain/pricing"
)

func TestToLineItems_AssignsNumbersAndDefaults(t *testing.T) {
	items := ToLineItems([]LineItemRequest{
		{Name: "Fasada", Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(25)},
		{Name: "Odri", Quantity: decimal.NewFromInt(3), UnitPrice: decimal.NewFromInt(80), VATRate: pricing.VATReduced},
	})

	require.Len(t, items, 2)
	require.Equal(t, 1, items[0].LineNo)
	require.Equal(t, 2, items[1].LineNo)

	// Empty VAT rate falls back to the standard rate.
	require.Equal(t, pricing.VATStandard, items[0].VATRate)
	require.Equal(t, pricing.VATReduced, items[1].VATRate)

	require.False(t, id.IsNil(items[0].LineID))
	require.NotEqual(t, items[0].LineID, items[1].LineID)
}

func TestToLineItems_KeepsProvidedLineID(t *testing.T) {
	lineID := id.New()

	items := ToLineItems([]LineItemRequest{
		{LineID: lineID.String(), Name: "Fasada", Quantity: decimal.NewFromInt(1)},
	})

	require.Equal(t, lineID, items[0].LineID)
}

func TestUpdateInvoiceRequest_ToItems(t *testing.T) {
	offerLineID := id.New()

	req := UpdateInvoiceRequest{
		ProjectID: id.New().String(),
		Items: []InvoiceItemRequest{
			{
				LineItemRequest: LineItemRequest{Name: "Fasada", Quantity: decimal.NewFromInt(10)},
				Kind:            "base",
				OfferLineID:     offerLineID.String(),
			},
			{
				LineItemRequest: LineItemRequest{Name: "Dodatno delo", Quantity: decimal.NewFromInt(2)},
				Kind:            "extra",
			},
		},
	}

	items := req.ToItems()
	require.Len(t, items, 2)
	require.Equal(t, offerLineID, items[0].OfferLineID)
	require.True(t, id.IsNil(items[1].OfferLineID))
	require.Equal(t, "base", string(items[0].Kind))
	require.Equal(t, "extra", string(items[1].Kind))
}
