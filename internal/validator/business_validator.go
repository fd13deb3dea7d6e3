package validator

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/SAP-F-2025/student-records-service/internal/models"
)

// DateLayout is the wire format for calendar dates
const DateLayout = "2006-01-02"

// SubjectFields names the scored subjects in sheet order
var SubjectFields = [models.SubjectCount]string{"DSA", "Java", "SAD", "Web_technology", "Prob_and_Stats"}

// BusinessValidator handles business rule validation
type BusinessValidator struct {
	validate *validator.Validate
}

// NewBusinessValidator creates a new business validator
func NewBusinessValidator() *BusinessValidator {
	validate := validator.New()
	validate.RegisterTagNameFunc(jsonFieldName)
	validate.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})

	bv := &BusinessValidator{validate: validate}
	bv.registerBusinessRules()

	return bv
}

// Validate validates struct tags for any struct
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	err := bv.validate.Struct(s)
	if err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateStudent validates a student create or replace payload
func (bv *BusinessValidator) ValidateStudent(req *StudentRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	if strings.TrimSpace(req.Name) == "" && req.Name != "" {
		errors = append(errors, ValidationError{
			Field:   "name",
			Message: "cannot be blank",
			Value:   req.Name,
			Rule:    "business_logic",
		})
	}

	return errors
}

// ValidateMarksCreate validates a full mark sheet
func (bv *BusinessValidator) ValidateMarksCreate(req *MarksCreateRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)
	errors = append(errors, validateScorePrecision(req.DSA, req.Java, req.SAD, req.WebTechnology, req.ProbAndStats)...)

	return errors
}

// ValidateMarksUpdate validates a partial score update
func (bv *BusinessValidator) ValidateMarksUpdate(req *MarksUpdateRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)
	errors = append(errors, validateScorePrecision(req.DSA, req.Java, req.SAD, req.WebTechnology, req.ProbAndStats)...)

	if req.DSA == nil && req.Java == nil && req.SAD == nil && req.WebTechnology == nil && req.ProbAndStats == nil {
		errors = append(errors, ValidationError{
			Field:   "scores",
			Message: "at least one score must be provided",
			Rule:    "business_logic",
		})
	}

	return errors
}

// ValidateAttendance validates an attendance submission
func (bv *BusinessValidator) ValidateAttendance(req *AttendanceMarkRequest) ValidationErrors {
	return bv.Validate(req)
}

// ValidateRegister validates account creation
func (bv *BusinessValidator) ValidateRegister(req *RegisterRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	if strings.ContainsAny(req.Username, " \t\n") {
		errors = append(errors, ValidationError{
			Field:   "username",
			Message: "cannot contain whitespace",
			Value:   req.Username,
			Rule:    "business_logic",
		})
	}

	return errors
}

// ValidateUserUpdate validates a partial user update
func (bv *BusinessValidator) ValidateUserUpdate(req *UserUpdateRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	if req.Username != nil && strings.ContainsAny(*req.Username, " \t\n") {
		errors = append(errors, ValidationError{
			Field:   "username",
			Message: "cannot contain whitespace",
			Value:   *req.Username,
			Rule:    "business_logic",
		})
	}

	return errors
}

// ParseDate parses a YYYY-MM-DD string into a calendar date
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, ValidationErrors{{
			Field:   "date",
			Message: "must be a date in YYYY-MM-DD format",
			Value:   value,
			Rule:    "calendar_date",
		}}
	}
	return t, nil
}

// registerBusinessRules registers custom business rule validators
func (bv *BusinessValidator) registerBusinessRules() {
	// Roll numbers start at 1
	bv.validate.RegisterValidation("roll_number", func(fl validator.FieldLevel) bool {
		return fl.Field().Int() >= 1
	})

	bv.validate.RegisterValidation("attendance_status", func(fl validator.FieldLevel) bool {
		return models.AttendanceStatus(fl.Field().String()).IsValid()
	})

	bv.validate.RegisterValidation("calendar_date", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(DateLayout, fl.Field().String())
		return err == nil
	})

	bv.validate.RegisterValidation("role_name", func(fl validator.FieldLevel) bool {
		return models.UserRole(fl.Field().String()).IsValid()
	})
}

// validateScorePrecision rejects scores with more than two fractional digits
func validateScorePrecision(scores ...*decimal.Decimal) ValidationErrors {
	var errors ValidationErrors
	for i, score := range scores {
		field := SubjectFields[i]
		if score == nil {
			continue
		}
		if !score.Equal(score.Round(2)) {
			errors = append(errors, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("must have at most 2 decimal places, got %s", score.String()),
				Value:   score.String(),
				Rule:    "decimal_places",
			})
		}
	}
	return errors
}
