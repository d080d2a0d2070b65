package ingest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/peteski22/prnbridge/internal/npwd"
)

// validationSeparator joins validation messages in logs, telemetry and the digest.
const validationSeparator = " | "

// Validator checks issued PRNs before they are saved.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new Validator.
func NewValidator() *Validator {
	return &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Validate returns one message per problem found in prn, or nil when it is valid.
func (v *Validator) Validate(prn *npwd.Prn) []string {
	var messages []string

	if err := v.validate.Struct(prn); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return []string{err.Error()}
		}
		for _, fe := range fieldErrs {
			messages = append(messages, fieldMessage(fe))
		}
	}

	return append(messages, businessRules(prn)...)
}

// businessRules checks constraints that span fields.
func businessRules(prn *npwd.Prn) []string {
	var messages []string

	if prn.ObligationYear != "" && prn.AccreditationYear != "" && prn.ObligationYear < prn.AccreditationYear {
		messages = append(messages, fmt.Sprintf(
			"ObligationYear %s is before AccreditationYear %s", prn.ObligationYear, prn.AccreditationYear))
	}

	if !prn.IssueDate.IsZero() && !prn.StatusDate.IsZero() && prn.StatusDate.Before(prn.IssueDate) {
		messages = append(messages, "StatusDate is before IssueDate")
	}

	if prn.EvidenceTonnes == 0 && prn.EvidenceStatusCode != npwd.StatusCancelled {
		messages = append(messages, "EvidenceTonnes must be greater than 0")
	}

	return messages
}

// fieldMessage renders a validator field error as a readable message.
func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "len":
		return fmt.Sprintf("%s must be %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "numeric":
		return fe.Field() + " must be numeric"
	case "uuid":
		return fe.Field() + " must be a UUID"
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gte":
		return fmt.Sprintf("%s must be %s or more", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
