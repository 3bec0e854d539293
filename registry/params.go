package registry

import (
	"errors"

	"dropshare/model"
	"dropshare/utils"

	"github.com/go-playground/validator/v10"
)

// Bounds for share options
const (
	MinTTLMinutes   = 1
	MaxTTLMinutes   = 10080 // one week
	MinMaxDownloads = 1
	MaxMaxDownloads = 1000
)

var validate = validator.New()

// CreateParams describes a share to create. Nil pointers mean "not set".
type CreateParams struct {
	Files        []model.FileEntry `validate:"required,min=1"`
	CustomSlug   string
	PIN          *string
	TTLMinutes   *int `validate:"omitnil,min=1,max=10080"`
	MaxDownloads *int `validate:"omitnil,min=1,max=1000"`
	Metadata     model.Metadata
}

// Validate checks shape and ranges without touching any state
func (p CreateParams) Validate() error {
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return validationErrorFor(verrs[0])
		}
		return err
	}

	if p.PIN != nil {
		if err := utils.ValidatePIN(*p.PIN); err != nil {
			return &ValidationError{Code: CodeInvalidPINFormat, Field: "pin", Message: err.Error()}
		}
	}
	return nil
}

func validationErrorFor(fe validator.FieldError) *ValidationError {
	switch fe.StructField() {
	case "Files":
		return &ValidationError{Code: CodeNoFilesProvided, Field: "files", Message: "at least one file is required"}
	case "TTLMinutes":
		return &ValidationError{Code: CodeInvalidTTL, Field: "ttl", Message: "ttl must be between 1 and 10080 minutes"}
	case "MaxDownloads":
		return &ValidationError{Code: CodeInvalidMaxDownloads, Field: "maxDownloads", Message: "maxDownloads must be between 1 and 1000"}
	default:
		return &ValidationError{Code: CodeServerError, Field: fe.Field(), Message: fe.Error()}
	}
}
