package common

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateStruct runs the validate tags declared on v.
func ValidateStruct(v interface{}) error {
	return validate.Struct(v)
}
