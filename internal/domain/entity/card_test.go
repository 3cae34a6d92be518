package entity

import (
	"strings"
	"testing"
	"time"

	errs "github.com/amirhossein-jamali/paylink/internal/domain/error"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardValidate(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		card           Card
		expectedFields []string
	}{
		{
			name: "Valid card",
			card: Card{Number: "4242424242424242", ExpiryMonth: 12, ExpiryYear: 2030, CVV: "123"},
		},
		{
			name: "Expiring this month is still valid",
			card: Card{Number: "4242424242424242", ExpiryMonth: 6, ExpiryYear: 2026, CVV: "1234"},
		},
		{
			name:           "Expired last month",
			card:           Card{Number: "4242424242424242", ExpiryMonth: 5, ExpiryYear: 2026, CVV: "123"},
			expectedFields: []string{"card.expiry"},
		},
		{
			name:           "Short number and bad cvv",
			card:           Card{Number: "424242", ExpiryMonth: 12, ExpiryYear: 2030, CVV: "12"},
			expectedFields: []string{"card.number", "card.cvv"},
		},
		{
			name:           "Letters in number",
			card:           Card{Number: "4242abcd42424242", ExpiryMonth: 12, ExpiryYear: 2030, CVV: "123"},
			expectedFields: []string{"card.number"},
		},
		{
			name:           "Signed cvv",
			card:           Card{Number: "4242424242424242", ExpiryMonth: 12, ExpiryYear: 2030, CVV: "+12"},
			expectedFields: []string{"card.cvv"},
		},
		{
			name:           "Every structural field at once",
			card:           Card{Number: "", ExpiryMonth: 0, ExpiryYear: 2030, CVV: "12345"},
			expectedFields: []string{"card.number", "card.expiryMonth", "card.cvv"},
		},
		{
			name:           "Month out of range",
			card:           Card{Number: "4242424242424242", ExpiryMonth: 13, ExpiryYear: 2030, CVV: "123"},
			expectedFields: []string{"card.expiryMonth"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			vErr := errs.NewValidationError()

			// Act
			tt.card.Validate(now, vErr)

			// Assert
			if len(tt.expectedFields) == 0 {
				assert.False(t, vErr.HasErrors(), "unexpected errors: %v", vErr.Fields)
				return
			}
			assert.Equal(t, tt.expectedFields, vErr.FieldNames())
		})
	}
}

func TestCardNormalized(t *testing.T) {
	card := Card{Number: "4242 4242-4242 4242", ExpiryMonth: 1, ExpiryYear: 29, CVV: " 123 "}.Normalized()

	assert.Equal(t, "4242424242424242", card.Number)
	assert.Equal(t, 2029, card.ExpiryYear)
	assert.Equal(t, "123", card.CVV)
	assert.Equal(t, "4242", card.Last4())
}

func TestDetectCardBrand(t *testing.T) {
	tests := map[string]CardBrand{
		"4242424242424242": BrandVisa,
		"5555555555554444": BrandMastercard,
		"2223003122003222": BrandMastercard,
		"378282246310005":  BrandAmex,
		"6011111111111117": BrandDiscover,
		"3566002020360505": BrandJCB,
		"30569309025904":   BrandDinersClub,
		"6200000000000005": BrandUnionPay,
		"9999999999999995": BrandUnknown,
	}

	for number, expected := range tests {
		assert.Equal(t, expected, DetectCardBrand(number), number)
	}
}

func TestLuhnValid(t *testing.T) {
	assert.True(t, LuhnValid("4242424242424242"))
	assert.True(t, LuhnValid("378282246310005"))
	assert.False(t, LuhnValid("4242424242424241"))
	assert.False(t, LuhnValid(""))
	assert.False(t, LuhnValid("42a2"))
}

func TestPayerValidate(t *testing.T) {
	t.Run("Valid payer", func(t *testing.T) {
		vErr := errs.NewValidationError()
		Payer{Email: " Jane@Example.com ", Name: " Jane "}.Normalized().Validate(vErr)
		assert.False(t, vErr.HasErrors())
	})

	t.Run("Missing name and malformed email", func(t *testing.T) {
		vErr := errs.NewValidationError()
		Payer{Email: "not-an-email", Name: ""}.Validate(vErr)
		assert.Equal(t, []string{"payer.name", "payer.email"}, vErr.FieldNames())
	})

	t.Run("Display name form is rejected", func(t *testing.T) {
		vErr := errs.NewValidationError()
		Payer{Email: "Jane <jane@example.com>", Name: "Jane"}.Validate(vErr)
		assert.Equal(t, []string{"payer.email"}, vErr.FieldNames())
	})

	t.Run("Long name has its own message", func(t *testing.T) {
		vErr := errs.NewValidationError()
		Payer{Email: "jane@example.com", Name: strings.Repeat("j", 201)}.Validate(vErr)
		require.Len(t, vErr.Fields, 1)
		assert.Equal(t, "payer.name", vErr.Fields[0].Field)
		assert.Equal(t, "must be at most 200 characters", vErr.Fields[0].Message)
	})

	t.Run("Domain without dot is rejected", func(t *testing.T) {
		vErr := errs.NewValidationError()
		Payer{Email: "jane@localhost", Name: "Jane"}.Validate(vErr)
		assert.Equal(t, []string{"payer.email"}, vErr.FieldNames())
	})
}
