package entity

import (
	"context"
	"time"

	"fieldbill/internal/core/apperror"
	"fieldbill/internal/core/id"
)

// Document is the base type for commercial documents (offers, invoices,
// work orders, material orders). All of them belong to a project and carry
// an auto-generated number.
type Document struct {
	BaseDocument

	// Number is the document number (auto-generated, unique within type+period)
	Number string `db:"number" json:"number"`

	// Date is the business date of the document
	Date time.Time `db:"date" json:"date"`

	// ProjectID is the owning project
	ProjectID id.ID `db:"project_id" json:"projectId"`

	// Comment is an optional user comment
	Comment string `db:"comment" json:"comment,omitempty"`
}

// NewDocument creates a new Document for a project.
func NewDocument(projectID id.ID) Document {
	return Document{
		BaseDocument: NewBaseDocument(),
		Date:         time.Now().UTC(),
		ProjectID:    projectID,
	}
}

// Validate implements Validatable interface.
func (d *Document) Validate(ctx context.Context) error {
	if id.IsNil(d.ProjectID) {
		return apperror.NewValidation("project is required").
			WithDetail("field", "projectId")
	}

	if d.Date.IsZero() {
		return apperror.NewValidation("date is required").
			WithDetail("field", "date")
	}

	return nil
}
