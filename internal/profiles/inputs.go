// Package profiles builds profile records from the forms the dashboard
// accepts: direct key entry, credentials and config pastes, and
// role-assumption wrappers around stored profiles.
package profiles

import (
	"github.com/go-playground/validator/v10"

	apperrors "github.com/cloudscope/cloudscope/internal/errors"
)

// Role types accepted on profile creation.
const (
	RoleTypeNone     = "none"
	RoleTypeExisting = "existing"
	RoleTypeCustom   = "custom"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// CreateProfileInput is the profile creation form. The three role types
// decide what lands in the session-token column: nothing (or a literal
// token), a directive built from a role name, or a pasted directive.
type CreateProfileInput struct {
	Name               string `json:"name" validate:"required"`
	CustomName         string `json:"custom_name"`
	AccessKeyID        string `json:"aws_access_key_id" validate:"required"`
	SecretAccessKey    string `json:"aws_secret_access_key" validate:"required"`
	Region             string `json:"aws_region" validate:"required"`
	RoleType           string `json:"role_type" validate:"omitempty,oneof=none existing custom"`
	RoleName           string `json:"role_name"`
	DirectSessionToken string `json:"direct_session_token"`
	SessionToken       string `json:"aws_session_token"`
}

// Validate checks the form fields.
func (in CreateProfileInput) Validate() error {
	return validationError(validate.Struct(in))
}

// UpdateProfileInput carries the two mutable fields; nil leaves a field
// unchanged.
type UpdateProfileInput struct {
	CustomName *string `json:"custom_name"`
	Region     *string `json:"aws_region"`
}

// ImportCredentialsInput is the paste body for a credentials-file
// import.
type ImportCredentialsInput struct {
	CredentialsText string `json:"credentials_text" validate:"required"`
}

// Validate checks the paste body.
func (in ImportCredentialsInput) Validate() error {
	return validationError(validate.Struct(in))
}

// ImportConfigInput is the paste body for a config-file import.
type ImportConfigInput struct {
	ConfigText string `json:"config_text" validate:"required"`
}

// Validate checks the paste body.
func (in ImportConfigInput) Validate() error {
	return validationError(validate.Struct(in))
}

// FromRoleInput creates a profile that assumes a role with an existing
// profile's credentials.
type FromRoleInput struct {
	SourceProfileID int64  `json:"source_profile_id" validate:"required"`
	Name            string `json:"name" validate:"required"`
	RoleType        string `json:"role_type" validate:"required,oneof=existing custom"`
	RoleName        string `json:"role_name"`
	SessionToken    string `json:"aws_session_token"`
}

// Validate checks the form fields.
func (in FromRoleInput) Validate() error {
	return validationError(validate.Struct(in))
}

func validationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(err, apperrors.CodeValidation, "invalid input")
}
