package validator

import "testing"

type contactRequest struct {
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone" validate:"required,phone"`
}

func TestPhoneRuleAndFieldErrors(t *testing.T) {
	v := New()

	if err := v.Struct(contactRequest{Name: "Ada", Phone: "+12015550123"}); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}

	err := v.Struct(contactRequest{Phone: "123"})
	if err == nil {
		t.Fatal("expected validation error")
	}

	fields := FieldErrors(err)
	if fields["name"] != "required" {
		t.Fatalf("expected name=required, got %v", fields)
	}
	if fields["phone"] != "phone" {
		t.Fatalf("expected phone=phone, got %v", fields)
	}
}
