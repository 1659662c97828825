package contact

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// FieldError describes one failed constraint.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message"`
}

// ValidationError is returned when a submission is malformed.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Validator checks contact requests against the Submission constraints.
type Validator struct {
	validate *validator.Validate
	now      func() time.Time
}

// NewValidator creates a Validator. Field names in errors use the
// lower-case JSON names of the form.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.ToLower(f.Name)
	})
	return &Validator{validate: v, now: time.Now}
}

// Validate trims name and message, checks every constraint, and returns the
// resulting Submission. Other fields are kept verbatim.
func (v *Validator) Validate(req ContactRequest) (Submission, error) {
	sub := Submission{
		Name:    strings.TrimSpace(req.Name),
		Email:   req.Email,
		Message: strings.TrimSpace(req.Message),
		Phone:   req.Phone,
	}

	if err := v.validate.Struct(sub); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return Submission{}, fmt.Errorf("validating submission: %w", err)
		}
		return Submission{}, toValidationError(verrs)
	}

	sub.ID = uuid.NewString()
	sub.ReceivedAt = v.now()
	return sub, nil
}

func toValidationError(verrs validator.ValidationErrors) *ValidationError {
	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fe.Field(),
			Rule:    fe.Tag(),
			Param:   fe.Param(),
			Message: fieldMessage(fe.Field(), fe.Tag(), fe.Param()),
		})
	}
	return out
}

func fieldMessage(field, tag, param string) string {
	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must not exceed %s characters", field, param)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
