package config

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// RegisterCustomValidators registers custom validation functions.
func RegisterCustomValidators(v *validator.Validate) error {
	return v.RegisterValidation("relpath", validateRelPath)
}

// validateRelPath rejects absolute paths and parent-directory traversal in
// fields that name a file relative to the data directory (config_file,
// pid_file), so a malicious or malformed include can't escape it.
func validateRelPath(fl validator.FieldLevel) bool {
	p := fl.Field().String()
	if p == "" {
		return true
	}
	if strings.HasPrefix(p, "/") {
		return false
	}
	for _, part := range strings.Split(p, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
