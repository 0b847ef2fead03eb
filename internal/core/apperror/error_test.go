package apperror

import (
	"net/http"
	"testing"
)

func TestNewBusinessRule_KeepsFamilyCode(t *testing.T) {
	err := NewBusinessRule("CLONE_REQUIRES_ISSUED", "only issued invoice versions can be re-opened")

	if !IsCode(err, CodeBusinessRule) {
		t.Fatalf("expected code %s, got %s", CodeBusinessRule, err.Code)
	}
	if err.Details["rule"] != "CLONE_REQUIRES_ISSUED" {
		t.Fatalf("expected rule detail, got %v", err.Details)
	}
	if err.HTTPStatus != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", err.HTTPStatus)
	}
}
