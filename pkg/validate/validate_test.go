package validate

import (
	"testing"

	pkgerrors "github.com/labujaya/lastbite/pkg/errors"
)

type passwordChange struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=NewPassword"`
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	err := Struct(passwordChange{CurrentPassword: "old", NewPassword: "secret1", ConfirmPassword: "secret2"})
	if err == nil {
		t.Fatal("expected mismatch error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected map details, got %T", typed.Details())
	}
	if details["confirmPassword"] != "must match NewPassword" {
		t.Fatalf("unexpected details %v", details)
	}
}

func TestStructAcceptsValidPayload(t *testing.T) {
	if err := Struct(passwordChange{CurrentPassword: "old", NewPassword: "secret1", ConfirmPassword: "secret1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestVar(t *testing.T) {
	if err := Var("rating", 6, "gte=1,lte=5"); err == nil {
		t.Fatal("expected rating 6 to fail")
	}
	if err := Var("rating", 4, "gte=1,lte=5"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  enak sekali  ", 4); got != "enak" {
		t.Fatalf("unexpected %q", got)
	}
}
