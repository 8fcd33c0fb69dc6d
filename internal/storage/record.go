package storage

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/aanand-mishra/registration-api/internal/types"
)

// validate is shared by every backend. A *validator.Validate caches struct
// metadata and is safe for concurrent use, so one instance is enough.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report fields by their JSON name ("firstName") rather than the Go
	// field name ("FirstName") so messages match what the client sent.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// The tag only fails on a programming error, so panic like MustCompile.
	if err := v.RegisterValidation("phone", validPhone); err != nil {
		panic(err)
	}

	return v
}

// phonePattern allows an optional leading "+" and digit groups separated
// by single spaces or hyphens, e.g. "+91 98765-43210".
var phonePattern = regexp.MustCompile(`^\+?[0-9]+([ -][0-9]+)*$`)

// validPhone accepts 10 to 15 digits in phonePattern's shape.
func validPhone(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if !phonePattern.MatchString(s) {
		return false
	}

	digits := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 10 && digits <= 15
}

// dateLayouts are tried in order when casting a date of birth.
var dateLayouts = []string{types.DateLayout, time.RFC3339}

// BuildRecord casts and validates the raw input and stamps it with a fresh
// ID and creation time. Backends call it before inserting anything.
func BuildRecord(in types.RegistrationInput, now time.Time) (types.Registration, error) {
	dob, err := castDate(in.DateOfBirth)
	if err != nil {
		return types.Registration{}, &TypeMismatchError{Field: "dateOfBirth", Err: err}
	}

	// Version 7 IDs are time-ordered and strictly increasing within the
	// process, so they break createdAt ties in insertion order.
	id, err := uuid.NewV7()
	if err != nil {
		return types.Registration{}, fmt.Errorf("BuildRecord: new id: %w", err)
	}

	rec := types.Registration{
		ID:             id.String(),
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Email:          in.Email,
		Phone:          in.Phone,
		DateOfBirth:    dob,
		Address:        in.Address,
		City:           in.City,
		State:          in.State,
		Pincode:        in.Pincode,
		AadharNumber:   in.AadharNumber,
		AadharFile:     in.AadharFile,
		SignatureFile:  in.SignatureFile,
		AgreeTerms:     in.AgreeTerms,
		AgreeMarketing: in.AgreeMarketing,
		CourseName:     in.CourseName,
		CreatedAt:      now.UTC(),
	}

	if err := validate.Struct(rec); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			return types.Registration{}, &ValidationError{FieldErrors: fieldMessages(fieldErrs)}
		}
		return types.Registration{}, fmt.Errorf("BuildRecord: validate: %w", err)
	}

	return rec, nil
}

// castDate normalises a date of birth to YYYY-MM-DD. Empty stays empty.
func castDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}

	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t.Format(types.DateLayout), nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("%q is not a valid date: %w", raw, lastErr)
}

// fieldMessages turns validator output into one sentence per field.
func fieldMessages(errs validator.ValidationErrors) []string {
	msgs := make([]string, 0, len(errs))

	for _, e := range errs {
		switch e.ActualTag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("field %s is required", e.Field()))
		case "email":
			msgs = append(msgs, fmt.Sprintf("field %s must be a valid email address", e.Field()))
		case "phone":
			msgs = append(msgs, fmt.Sprintf("field %s must be a phone number of 10 to 15 digits", e.Field()))
		case "number":
			msgs = append(msgs, fmt.Sprintf("field %s must contain only digits", e.Field()))
		case "len":
			msgs = append(msgs, fmt.Sprintf("field %s must be exactly %s characters", e.Field(), e.Param()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("field %s must be at least %s characters", e.Field(), e.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("field %s must be at most %s characters", e.Field(), e.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("field %s is invalid", e.Field()))
		}
	}

	return msgs
}
