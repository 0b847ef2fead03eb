// Package project provides the project aggregate commercial documents hang
// off. Projects carry a customer snapshot and a forward-only status pipeline.
package project

import (
	"context"

	"fieldbill/internal/core/apperror"
	"fieldbill/internal/core/entity"
)

// Status of a project.
type Status string

const (
	StatusLead       Status = "lead"
	StatusOffered    Status = "offered"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// transitions lists the allowed forward moves per status.
var transitions = map[Status][]Status{
	StatusLead:       {StatusOffered, StatusCancelled},
	StatusOffered:    {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

// CanTransition reports whether from→to is an allowed move.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Customer is the customer snapshot embedded in a project. Denormalized on
// purpose: documents must keep rendering the customer as it was at the time
// of the deal.
type Customer struct {
	Name    string `db:"customer_name" json:"name"`
	Address string `db:"customer_address" json:"address,omitempty"`
	TaxID   string `db:"customer_tax_id" json:"taxId,omitempty"`
	Email   string `db:"customer_email" json:"email,omitempty"`
}

// Project is the root a version chain of offers and invoices belongs to.
type Project struct {
	entity.BaseDocument

	Name     string   `db:"name" json:"name"`
	Status   Status   `db:"status" json:"status"`
	Customer Customer `db:"-" json:"customer"`

	Notes string `db:"notes" json:"notes,omitempty"`
}

// NewProject creates a project in the lead status.
func NewProject(name string, customer Customer) *Project {
	return &Project{
		BaseDocument: entity.NewBaseDocument(),
		Name:         name,
		Status:       StatusLead,
		Customer:     customer,
	}
}

// Validate implements entity.Validatable.
func (p *Project) Validate(ctx context.Context) error {
	if p.Name == "" {
		return apperror.NewValidation("project name is required").
			WithDetail("field", "name")
	}
	if p.Customer.Name == "" {
		return apperror.NewValidation("customer name is required").
			WithDetail("field", "customer.name")
	}
	return nil
}
