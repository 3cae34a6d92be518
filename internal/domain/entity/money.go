package entity

import (
	"fmt"
	"strings"

	errs "github.com/amirhossein-jamali/paylink/internal/domain/error"
	"github.com/shopspring/decimal"
)

// MaxDecimalPlaces defines the maximum number of decimal places allowed for money amounts
const MaxDecimalPlaces = 2

// maxAmount caps link amounts so they fit numeric(18,2)
var maxAmount = decimal.RequireFromString("9999999999999999.99")

// ParseAmount validates a decimal string and returns it as a fixed-point amount.
// Accepts "10", "10.5" and "10.50"; rejects empty, non-numeric, non-positive values and
// anything with more than two significant decimal places.
func ParseAmount(amount string) (decimal.Decimal, error) {
	amount = strings.TrimSpace(amount)
	if len(amount) == 0 {
		return decimal.Zero, fmt.Errorf("%w: empty value", errs.ErrInvalidAmount)
	}

	value, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: invalid number format", errs.ErrInvalidAmount)
	}

	if !value.Equal(value.Truncate(MaxDecimalPlaces)) {
		return decimal.Zero, fmt.Errorf("%w: maximum %d decimal places allowed", errs.ErrInvalidAmount, MaxDecimalPlaces)
	}

	if !value.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: must be greater than zero", errs.ErrInvalidAmount)
	}

	if value.GreaterThan(maxAmount) {
		return decimal.Zero, fmt.Errorf("%w: amount is too large", errs.ErrInvalidAmount)
	}

	return value, nil
}

// FormatAmount renders an amount with exactly two decimal places, e.g. 10.1 becomes "10.10"
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(MaxDecimalPlaces)
}

// NormalizeCurrency upper-cases a currency code and checks it is three ASCII letters
func NormalizeCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return "", fmt.Errorf("currency must be a 3-letter ISO 4217 code, got %q", code)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("currency must be a 3-letter ISO 4217 code, got %q", code)
		}
	}
	return code, nil
}
