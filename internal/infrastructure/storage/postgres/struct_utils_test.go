package postgres

import (
	"testing"

	"fieldbill/internal/core/id"
	"fieldbill/internal/domain/documents/offer"
	"fieldbill/internal/domain/pricing"
)

func TestExtractDBColumns_EmbeddedDocument(t *testing.T) {
	cols := ExtractDBColumns[offer.OfferVersion]()

	want := map[string]bool{
		"id":             false,
		"row_version":    false,
		"created_at":     false,
		"updated_at":     false,
		"number":         false,
		"date":           false,
		"project_id":     false,
		"base_title":     false,
		"version_number": false,
		"status":         false,
	}
	for _, c := range cols {
		if _, ok := want[c]; ok {
			want[c] = true
		}
		if c == "items" || c == "discount" || c == "summary" {
			t.Errorf("column %q must be excluded (tagged db:\"-\")", c)
		}
	}
	for c, seen := range want {
		if !seen {
			t.Errorf("missing column %q", c)
		}
	}
}

func TestStructToMap_FlattensEmbedded(t *testing.T) {
	v := offer.NewOfferVersion(id.New(), "Fasada", nil, pricing.DiscountConfig{})
	v.VersionNumber = 3

	m := StructToMap(v)

	if m["id"] != v.ID {
		t.Errorf("expected embedded id %v, got %v", v.ID, m["id"])
	}
	if m["base_title"] != "Fasada" {
		t.Errorf("expected base_title, got %v", m["base_title"])
	}
	if m["version_number"] != 3 {
		t.Errorf("expected version_number 3, got %v", m["version_number"])
	}
	if _, ok := m["items"]; ok {
		t.Error("table part must not leak into the column map")
	}
}

func TestStructToMap_NonStruct(t *testing.T) {
	if m := StructToMap(42); m != nil {
		t.Errorf("expected nil for non-struct, got %v", m)
	}
}
