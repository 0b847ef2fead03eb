// Package preview flattens documents into a render-ready context. Rendering
// itself (PDF, HTML) lives outside this system; consumers get one struct with
// everything a template needs and no domain objects to traverse.
package preview

import (
	"context"
	"time"

	"fieldbill/internal/core/id"
	"fieldbill/internal/core/types"
	"fieldbill/internal/domain/documents/invoice"
	"fieldbill/internal/domain/documents/offer"
	"fieldbill/internal/domain/pricing"
	"fieldbill/internal/domain/project"
)

// CompanyProfile is the issuing company's letterhead data.
type CompanyProfile struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	TaxID   string `json:"taxId"`
	IBAN    string `json:"iban"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// Line is one flattened document line.
type Line struct {
	No        int             `json:"no"`
	Name      string          `json:"name"`
	Unit      string          `json:"unit"`
	Quantity  string          `json:"quantity"`
	UnitPrice string          `json:"unitPrice"`
	Amount    string          `json:"amount"`
	VATRate   string          `json:"vatRate"`
	Kind      string          `json:"kind,omitempty"`
	Discount  string          `json:"discountPercent,omitempty"`
}

// DocumentPreviewContext is the flattened input for document rendering.
type DocumentPreviewContext struct {
	DocumentType string `json:"documentType"` // offer, invoice

	Number  string `json:"number"`
	Title   string `json:"title,omitempty"`
	Version int    `json:"version"`

	Date       time.Time  `json:"date"`
	ValidUntil *time.Time `json:"validUntil,omitempty"`
	IssuedAt   *time.Time `json:"issuedAt,omitempty"`

	Company  CompanyProfile   `json:"company"`
	Customer project.Customer `json:"customer"`

	Lines   []Line          `json:"lines"`
	Summary pricing.Summary `json:"summary"`

	Notes string `json:"notes,omitempty"`
}

// ProjectSource resolves the project a document belongs to.
type ProjectSource interface {
	GetByID(ctx context.Context, projectID id.ID) (*project.Project, error)
}

// Builder assembles preview contexts.
type Builder struct {
	company  CompanyProfile
	projects ProjectSource
}

// NewBuilder creates a preview builder.
func NewBuilder(company CompanyProfile, projects ProjectSource) *Builder {
	return &Builder{company: company, projects: projects}
}

// ForOffer builds the preview context of an offer version.
func (b *Builder) ForOffer(ctx context.Context, o *offer.OfferVersion) (DocumentPreviewContext, error) {
	p, err := b.projects.GetByID(ctx, o.ProjectID)
	if err != nil {
		return DocumentPreviewContext{}, err
	}

	lines := make([]Line, 0, len(o.Items))
	for _, li := range o.Items {
		lines = append(lines, flattenLine(li, ""))
	}

	return DocumentPreviewContext{
		DocumentType: "offer",
		Number:       o.Number,
		Title:        o.Title(),
		Version:      o.VersionNumber,
		Date:         o.Date,
		ValidUntil:   o.ValidUntil,
		Company:      b.company,
		Customer:     p.Customer,
		Lines:        lines,
		Summary:      o.Summary,
		Notes:        o.Comment,
	}, nil
}

// ForInvoice builds the preview context of an invoice version.
func (b *Builder) ForInvoice(ctx context.Context, v *invoice.InvoiceVersion) (DocumentPreviewContext, error) {
	p, err := b.projects.GetByID(ctx, v.ProjectID)
	if err != nil {
		return DocumentPreviewContext{}, err
	}

	lines := make([]Line, 0, len(v.Items))
	for _, it := range v.Items {
		lines = append(lines, flattenLine(it.LineItem, string(it.Kind)))
	}

	return DocumentPreviewContext{
		DocumentType: "invoice",
		Number:       v.Number,
		Version:      v.VersionNumber,
		Date:         v.Date,
		IssuedAt:     v.IssuedAt,
		Company:      b.company,
		Customer:     p.Customer,
		Lines:        lines,
		Summary:      v.Summary,
		Notes:        v.Comment,
	}, nil
}

func flattenLine(li pricing.LineItem, kind string) Line {
	amount := types.Round2(li.UnitPrice.Mul(li.Quantity))

	line := Line{
		No:        li.LineNo,
		Name:      li.Name,
		Unit:      li.Unit,
		Quantity:  li.Quantity.String(),
		UnitPrice: types.Round2(li.UnitPrice).StringFixed(2),
		Amount:    amount.StringFixed(2),
		VATRate:   li.VATRate,
		Kind:      kind,
	}
	if !li.DiscountPercent.IsZero() {
		line.Discount = li.DiscountPercent.String()
	}
	return line
}
