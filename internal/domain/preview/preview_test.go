package preview

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"fieldbill/internal/core/id"
	"fieldbill/internal/domain/documents/offer"
	"fieldbill/internal/domain/pricing"
	"fieldbill/internal/domain/project"
)

type staticProjects struct {
	p *project.Project
}

func (s *staticProjects) GetByID(ctx context.Context, projectID id.ID) (*project.Project, error) {
	return s.p, nil
}

func TestForOffer_FlattensDocument(t *testing.T) {
	p := project.NewProject("Fasada Novak", project.Customer{Name: "Novak d.o.o.", Address: "Celovška 1, Ljubljana", TaxID: "SI12345678"})

	o := offer.NewOfferVersion(p.ID, "Fasada", []pricing.LineItem{
		{LineID: id.New(), LineNo: 1, Name: "Montaža", Unit: "h", Quantity: decimal.NewFromInt(12), UnitPrice: decimal.NewFromInt(85), VATRate: pricing.VATStandard},
	}, pricing.DiscountConfig{VATMode: pricing.VATStandard})
	o.Number = "PON-2025-001"
	o.VersionNumber = 1

	b := NewBuilder(CompanyProfile{Name: "Fieldbill d.o.o.", TaxID: "SI87654321"}, &staticProjects{p: p})
	pc, err := b.ForOffer(context.Background(), o)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if pc.DocumentType != "offer" || pc.Number != "PON-2025-001" || pc.Title != "Fasada_1" {
		t.Errorf("unexpected header: %+v", pc)
	}
	if pc.Customer.Name != "Novak d.o.o." || pc.Company.Name != "Fieldbill d.o.o." {
		t.Errorf("unexpected parties: %+v", pc)
	}
	if len(pc.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(pc.Lines))
	}
	if pc.Lines[0].Amount != "1020.00" || pc.Lines[0].UnitPrice != "85.00" {
		t.Errorf("unexpected line: %+v", pc.Lines[0])
	}
	if !pc.Summary.TotalWithVAT.Equal(decimal.RequireFromString("1244.40")) {
		t.Errorf("unexpected total %s", pc.Summary.TotalWithVAT)
	}
}
