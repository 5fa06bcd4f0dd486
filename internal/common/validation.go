package common

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ValidateUUID validates UUID format with comprehensive checks
func ValidateUUID(idStr string, fieldName string) (uuid.UUID, error) {
	if strings.TrimSpace(idStr) == "" {
		return uuid.Nil, fmt.Errorf("%s is required", fieldName)
	}

	idStr = strings.TrimSpace(idStr)

	if len(idStr) != 36 {
		return uuid.Nil, fmt.Errorf("%s must be exactly 36 characters (including hyphens)", fieldName)
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s contains invalid characters: %v", fieldName, err)
	}

	return id, nil
}

// ValidateRequiredString trims value and fails with a ValidationError when nothing is left.
func ValidateRequiredString(value *string, fieldName string, maxLength int) error {
	*value = strings.TrimSpace(*value)
	if *value == "" {
		return NewValidationError(fieldName, "%s is required", fieldName)
	}
	if maxLength > 0 && len(*value) > maxLength {
		return NewValidationError(fieldName, "%s cannot exceed %d characters", fieldName, maxLength)
	}
	return nil
}

// ValidateOptionalString trims value and enforces maxLength.
func ValidateOptionalString(value *string, fieldName string, maxLength int) error {
	*value = strings.TrimSpace(*value)
	if len(*value) > maxLength {
		return NewValidationError(fieldName, "%s cannot exceed %d characters", fieldName, maxLength)
	}
	return nil
}
