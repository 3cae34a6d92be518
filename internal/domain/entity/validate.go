package entity

import (
	"errors"
	"sync"

	errs "github.com/amirhossein-jamali/paylink/internal/domain/error"
	"github.com/go-playground/validator/v10"
)

var (
	structValidator     *validator.Validate
	structValidatorOnce sync.Once
)

func getValidator() *validator.Validate {
	structValidatorOnce.Do(func() {
		structValidator = validator.New(validator.WithRequiredStructEnabled())
	})
	return structValidator
}

// fieldRule names a struct field in API terms and gives the message shown when its tags fail.
// byTag overrides message for individual tags.
type fieldRule struct {
	name    string
	message string
	byTag   map[string]string
}

func (r fieldRule) messageFor(tag string) string {
	if msg, ok := r.byTag[tag]; ok {
		return msg
	}
	return r.message
}

// validateTags runs the validate tags of s and appends one violation per failing field.
// It returns the Go names of the fields that failed.
func validateTags(s any, rules map[string]fieldRule, vErr *errs.ValidationError) map[string]bool {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		vErr.Add("request", err.Error())
		return nil
	}

	failed := make(map[string]bool, len(fieldErrs))
	for _, fe := range fieldErrs {
		failed[fe.StructField()] = true
		rule, ok := rules[fe.StructField()]
		if !ok {
			vErr.Add(fe.Field(), "failed "+fe.Tag()+" check")
			continue
		}
		vErr.Add(rule.name, rule.messageFor(fe.Tag()))
	}
	return failed
}
