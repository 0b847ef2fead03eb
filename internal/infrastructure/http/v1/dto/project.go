package dto

import (
	"fieldbill/internal/domain/project"
)

// --- Request DTOs ---

// CustomerRequest is the customer snapshot in project requests.
type CustomerRequest struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address,omitempty"`
	TaxID   string `json:"taxId,omitempty"`
	Email   string `json:"email,omitempty"`
}

// CreateProjectRequest represents a request to create a project.
type CreateProjectRequest struct {
	Name     string          `json:"name" binding:"required"`
	Customer CustomerRequest `json:"customer" binding:"required"`
	Notes    string          `json:"notes,omitempty"`
}

// ToEntity converts request to domain entity.
func (r *CreateProjectRequest) ToEntity() *project.Project {
	p := project.NewProject(r.Name, project.Customer{
		Name:    r.Customer.Name,
		Address: r.Customer.Address,
		TaxID:   r.Customer.TaxID,
		Email:   r.Customer.Email,
	})
	p.Notes = r.Notes
	return p
}

// AdvanceProjectStatusRequest moves a project along its pipeline.
type AdvanceProjectStatusRequest struct {
	Status string `json:"status" binding:"required"`
}
