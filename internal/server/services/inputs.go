package services

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/worktrack/internal/common"
	"github.com/dmitrijs2005/worktrack/internal/server/auth"
	"github.com/dmitrijs2005/worktrack/internal/server/models"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// MaxPasswordLength keeps passwords within the 72 bytes bcrypt hashes.
const MaxPasswordLength = 72

var (
	passwordRules       = []validation.Rule{validation.Required, validation.Length(1, MaxPasswordLength)}
	strictPasswordRules = []validation.Rule{validation.Required, validation.Length(8, MaxPasswordLength)}
	displayNameRules    = []validation.Rule{validation.Required, validation.Length(1, 100)}
)

// invalid wraps an ozzo validation error so callers can match ErrValidation.
func invalid(err error) error {
	return fmt.Errorf("%w: %v", common.ErrValidation, err)
}

// PasswordPolicy decides which new passwords are accepted. The zero value
// only asks for a non-empty password bcrypt can hash; Strict adds a minimum
// length and the entropy check.
type PasswordPolicy struct {
	Strict bool
}

// adminPolicy applies to accounts provisioned from the operator tool.
var adminPolicy = PasswordPolicy{Strict: true}

func (p PasswordPolicy) Check(password string) error {
	rules := passwordRules
	if p.Strict {
		rules = strictPasswordRules
	}
	if err := validation.Validate(password, rules...); err != nil {
		return invalid(fmt.Errorf("password: %w", err))
	}
	if p.Strict {
		return auth.CheckStrength(password)
	}
	return nil
}

// RegisterInput is what a new account is created from.
type RegisterInput struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// Validate checks the shape of the input. Password policy is applied
// separately by the caller.
func (r RegisterInput) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 255), is.Email),
		validation.Field(&r.DisplayName, displayNameRules...),
		validation.Field(&r.Password, passwordRules...),
	)
	if err != nil {
		return invalid(err)
	}
	return nil
}

// MaxNotesLength bounds the free-text notes on an application.
const MaxNotesLength = 2000

// ApplicationInput carries the editable fields of a job application.
type ApplicationInput struct {
	CompanyName string                   `json:"companyName"`
	Position    string                   `json:"position"`
	Status      models.ApplicationStatus `json:"status"`
	AppliedDate *time.Time               `json:"appliedDate"`
	Notes       string                   `json:"notes"`
}

func statusRule() validation.Rule {
	allowed := make([]interface{}, len(models.ApplicationStatuses))
	for i, s := range models.ApplicationStatuses {
		allowed[i] = s
	}
	return validation.In(allowed...)
}

func (a ApplicationInput) Validate() error {
	err := validation.ValidateStruct(&a,
		validation.Field(&a.CompanyName, validation.Required, validation.Length(1, 255)),
		validation.Field(&a.Position, validation.Required, validation.Length(1, 255)),
		validation.Field(&a.Status, statusRule()),
		validation.Field(&a.Notes, validation.Length(0, MaxNotesLength)),
	)
	if err != nil {
		return invalid(err)
	}
	return nil
}

func validateStatus(status models.ApplicationStatus) error {
	if err := validation.Validate(status, validation.Required, statusRule()); err != nil {
		return invalid(fmt.Errorf("status: %w", err))
	}
	return nil
}
