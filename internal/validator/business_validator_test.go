package validator

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func fullScores() MarksScores {
	return MarksScores{
		DSA:           dec("80.00"),
		Java:          dec("75.50"),
		SAD:           dec("90"),
		WebTechnology: dec("60.25"),
		ProbAndStats:  dec("85"),
	}
}

func hasField(errs ValidationErrors, field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}

func TestValidateStudent(t *testing.T) {
	bv := NewBusinessValidator()

	t.Run("valid", func(t *testing.T) {
		req := &StudentRequest{Name: "Asha", Roll: 5, Address: "Pokhara", Class: "BIT", Section: "A"}
		if errs := bv.ValidateStudent(req); len(errs) > 0 {
			t.Fatalf("unexpected errors: %v", errs)
		}
	})

	for _, roll := range []int{0, -3} {
		req := &StudentRequest{Name: "Asha", Roll: roll, Address: "Pokhara", Class: "BIT", Section: "A"}
		errs := bv.ValidateStudent(req)
		if !hasField(errs, "roll") {
			t.Errorf("roll=%d: expected roll error, got %v", roll, errs)
		}
	}

	t.Run("missing fields", func(t *testing.T) {
		errs := bv.ValidateStudent(&StudentRequest{Roll: 1})
		for _, field := range []string{"name", "address", "class", "section"} {
			if !hasField(errs, field) {
				t.Errorf("expected error for %s, got %v", field, errs)
			}
		}
	})
}

func TestValidateMarksCreate(t *testing.T) {
	bv := NewBusinessValidator()

	t.Run("valid", func(t *testing.T) {
		req := &MarksCreateRequest{StudentID: 1, MarksScores: fullScores()}
		if errs := bv.ValidateMarksCreate(req); len(errs) > 0 {
			t.Fatalf("unexpected errors: %v", errs)
		}
	})

	t.Run("zero score is allowed", func(t *testing.T) {
		scores := fullScores()
		scores.Java = dec("0")
		req := &MarksCreateRequest{StudentID: 1, MarksScores: scores}
		if errs := bv.ValidateMarksCreate(req); len(errs) > 0 {
			t.Fatalf("unexpected errors: %v", errs)
		}
	})

	t.Run("missing score", func(t *testing.T) {
		scores := fullScores()
		scores.SAD = nil
		errs := bv.ValidateMarksCreate(&MarksCreateRequest{StudentID: 1, MarksScores: scores})
		if !hasField(errs, "SAD") {
			t.Fatalf("expected SAD error, got %v", errs)
		}
	})

	t.Run("out of range", func(t *testing.T) {
		scores := fullScores()
		scores.DSA = dec("100.01")
		scores.Java = dec("-1")
		errs := bv.ValidateMarksCreate(&MarksCreateRequest{StudentID: 1, MarksScores: scores})
		if !hasField(errs, "DSA") || !hasField(errs, "Java") {
			t.Fatalf("expected DSA and Java errors, got %v", errs)
		}
	})

	t.Run("too many decimals", func(t *testing.T) {
		scores := fullScores()
		scores.ProbAndStats = dec("85.125")
		errs := bv.ValidateMarksCreate(&MarksCreateRequest{StudentID: 1, MarksScores: scores})
		if !hasField(errs, "Prob_and_Stats") {
			t.Fatalf("expected precision error, got %v", errs)
		}
	})

	t.Run("missing student", func(t *testing.T) {
		errs := bv.ValidateMarksCreate(&MarksCreateRequest{MarksScores: fullScores()})
		if !hasField(errs, "student_id") {
			t.Fatalf("expected student_id error, got %v", errs)
		}
	})
}

func TestValidateMarksUpdate(t *testing.T) {
	bv := NewBusinessValidator()

	if errs := bv.ValidateMarksUpdate(&MarksUpdateRequest{Java: dec("99.5")}); len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	if errs := bv.ValidateMarksUpdate(&MarksUpdateRequest{}); !hasField(errs, "scores") {
		t.Fatalf("expected empty update to fail, got %v", errs)
	}
}

func TestValidateAttendance(t *testing.T) {
	bv := NewBusinessValidator()

	tests := []struct {
		name    string
		req     AttendanceMarkRequest
		wantErr bool
	}{
		{"present without date", AttendanceMarkRequest{StudentID: 3, Status: "present"}, false},
		{"absent with date", AttendanceMarkRequest{StudentID: 3, Status: "absent", Date: "2025-02-27"}, false},
		{"bad status", AttendanceMarkRequest{StudentID: 3, Status: "late"}, true},
		{"bad date", AttendanceMarkRequest{StudentID: 3, Status: "present", Date: "27/02/2025"}, true},
		{"missing student", AttendanceMarkRequest{Status: "present"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := bv.ValidateAttendance(&tt.req)
			if (len(errs) > 0) != tt.wantErr {
				t.Errorf("ValidateAttendance() errors = %v, wantErr %v", errs, tt.wantErr)
			}
		})
	}
}

func TestValidateRegister(t *testing.T) {
	bv := NewBusinessValidator()

	ok := &RegisterRequest{Username: "teacher1", Password: "password123", Groups: []string{"teacher"}}
	if errs := bv.ValidateRegister(ok); len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	bad := &RegisterRequest{Username: "te acher", Password: "short", Groups: []string{"janitor"}}
	errs := bv.ValidateRegister(bad)
	if !hasField(errs, "username") || !hasField(errs, "password") {
		t.Fatalf("expected username and password errors, got %v", errs)
	}
	if len(errs) < 3 {
		t.Fatalf("expected group error as well, got %v", errs)
	}
}

func TestValidationErrorsMessage(t *testing.T) {
	errs := ValidationErrors{{Field: "roll", Message: "must be a positive integer"}}
	if got := errs.Error(); got != "validation failed: roll must be a positive integer" {
		t.Errorf("Error() = %q", got)
	}
}
