package validation

import "testing"

func TestRequired(t *testing.T) {
	if errs := Validate(Required("title", "Calculus Textbook")); len(errs) != 0 {
		t.Errorf("unexpected errors: %v", errs)
	}
	if errs := Validate(Required("title", "   ")); len(errs) != 1 {
		t.Error("expected error for blank field")
	}
}

func TestMaxLength(t *testing.T) {
	if errs := Validate(MaxLength("note", "short", 10)); len(errs) != 0 {
		t.Errorf("unexpected errors: %v", errs)
	}
	if errs := Validate(MaxLength("note", "this is far too long", 10)); len(errs) != 1 {
		t.Error("expected error for long field")
	}
}

func TestScore(t *testing.T) {
	for _, v := range []int{1, 3, 5} {
		if errs := Validate(Score("accuracy", v)); len(errs) != 0 {
			t.Errorf("score %d should be valid", v)
		}
	}
	for _, v := range []int{0, 6, -1} {
		if errs := Validate(Score("accuracy", v)); len(errs) != 1 {
			t.Errorf("score %d should be invalid", v)
		}
	}
}

func TestNonNegative(t *testing.T) {
	if errs := Validate(NonNegative("money_proposal", 450)); len(errs) != 0 {
		t.Errorf("unexpected errors: %v", errs)
	}
	if errs := Validate(NonNegative("money_proposal", -1)); len(errs) != 1 {
		t.Error("expected error for negative amount")
	}
}

func TestOneOf(t *testing.T) {
	if errs := Validate(OneOf("type", "SELL", "SELL", "LEND", "BARTER")); len(errs) != 0 {
		t.Errorf("unexpected errors: %v", errs)
	}
	if errs := Validate(OneOf("type", "GIFT", "SELL", "LEND", "BARTER")); len(errs) != 1 {
		t.Error("expected error for unknown type")
	}
	// Empty is allowed; pair with Required when mandatory
	if errs := Validate(OneOf("type", "", "SELL")); len(errs) != 0 {
		t.Error("empty value should pass OneOf")
	}
}

func TestValidationErrorsError(t *testing.T) {
	errs := ValidationErrors{{Field: "title", Message: "is required"}}
	if errs.Error() != "title: is required" {
		t.Errorf("unexpected error string: %s", errs.Error())
	}
	if (ValidationErrors{}).Error() != "validation failed" {
		t.Error("empty errors should return generic message")
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  hello\x00world  ", 100); got != "helloworld" {
		t.Errorf("SanitizeString = %q", got)
	}
	if got := SanitizeString("abcdef", 3); got != "abc" {
		t.Errorf("SanitizeString truncation = %q", got)
	}
}
