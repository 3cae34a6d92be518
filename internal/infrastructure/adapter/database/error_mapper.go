package database

import (
	"fmt"

	"github.com/amirhossein-jamali/paylink/internal/infrastructure/adapter/repository"
)

// ErrorMapper maps errors raised outside repositories (begin, commit, ping) to domain errors
type ErrorMapper struct {
	classifier *repository.ErrorClassifier
}

// NewErrorMapper creates a new ErrorMapper
func NewErrorMapper() *ErrorMapper {
	return &ErrorMapper{classifier: repository.NewErrorClassifier()}
}

// MapError maps a database error to a domain error, keeping the operation name for context
func (m *ErrorMapper) MapError(err error, operation string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", operation, m.classifier.ToDomain(err))
}
