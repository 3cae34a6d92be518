package entity

import (
	"strings"
	"time"

	errs "github.com/amirhossein-jamali/paylink/internal/domain/error"
)

// CardBrand identifies the card network from the number's prefix
type CardBrand string

// CardBrand constants
const (
	BrandVisa       CardBrand = "visa"
	BrandMastercard CardBrand = "mastercard"
	BrandAmex       CardBrand = "amex"
	BrandDiscover   CardBrand = "discover"
	BrandJCB        CardBrand = "jcb"
	BrandDinersClub CardBrand = "diners"
	BrandUnionPay   CardBrand = "unionpay"
	BrandUnknown    CardBrand = "unknown"
)

// Card holds payer card details for a single authorization. It is never persisted.
type Card struct {
	Number      string `validate:"required,number,min=13,max=19"`
	ExpiryMonth int    `validate:"min=1,max=12"`
	ExpiryYear  int
	CVV         string `validate:"required,number,min=3,max=4"`
}

var cardRules = map[string]fieldRule{
	"Number":      {name: "card.number", message: "must be 13 to 19 digits"},
	"ExpiryMonth": {name: "card.expiryMonth", message: "must be between 1 and 12"},
	"CVV":         {name: "card.cvv", message: "must be 3 or 4 digits"},
}

// Normalized strips spaces and dashes from the number and expands two-digit years
func (c Card) Normalized() Card {
	c.Number = strings.NewReplacer(" ", "", "-", "").Replace(c.Number)
	c.CVV = strings.TrimSpace(c.CVV)
	if c.ExpiryYear >= 0 && c.ExpiryYear < 100 {
		c.ExpiryYear += 2000
	}
	return c
}

// Last4 returns the last four digits of the number
func (c Card) Last4() string {
	if len(c.Number) < 4 {
		return c.Number
	}
	return c.Number[len(c.Number)-4:]
}

// Brand detects the card network
func (c Card) Brand() CardBrand {
	return DetectCardBrand(c.Number)
}

// Validate checks structural validity, appending every violation to vErr.
// A card is usable through the last day of its expiry month.
func (c Card) Validate(now time.Time, vErr *errs.ValidationError) {
	failed := validateTags(c, cardRules, vErr)
	if failed["ExpiryMonth"] {
		return
	}
	now = now.UTC()
	if c.ExpiryYear < now.Year() || (c.ExpiryYear == now.Year() && c.ExpiryMonth < int(now.Month())) {
		vErr.Add("card.expiry", "card has expired")
	}
}

// DetectCardBrand maps an IIN prefix to a brand
func DetectCardBrand(number string) CardBrand {
	switch {
	case strings.HasPrefix(number, "4"):
		return BrandVisa
	case strings.HasPrefix(number, "34"), strings.HasPrefix(number, "37"):
		return BrandAmex
	case hasPrefixInRange(number, 51, 55, 2), hasPrefixInRange(number, 2221, 2720, 4):
		return BrandMastercard
	case strings.HasPrefix(number, "6011"), strings.HasPrefix(number, "65"), hasPrefixInRange(number, 644, 649, 3):
		return BrandDiscover
	case hasPrefixInRange(number, 3528, 3589, 4):
		return BrandJCB
	case strings.HasPrefix(number, "36"), strings.HasPrefix(number, "38"), hasPrefixInRange(number, 300, 305, 3):
		return BrandDinersClub
	case strings.HasPrefix(number, "62"):
		return BrandUnionPay
	default:
		return BrandUnknown
	}
}

// LuhnValid runs the mod-10 checksum over a digit string
func LuhnValid(number string) bool {
	if len(number) == 0 || !isDigits(number) {
		return false
	}
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		d := int(number[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

func hasPrefixInRange(number string, low, high, width int) bool {
	if len(number) < width || !isDigits(number[:width]) {
		return false
	}
	prefix := 0
	for i := 0; i < width; i++ {
		prefix = prefix*10 + int(number[i]-'0')
	}
	return prefix >= low && prefix <= high
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Payer identifies the anonymous person redeeming a link
type Payer struct {
	Name  string `validate:"required,max=200"`
	Email string `validate:"required,email"`
}

var payerRules = map[string]fieldRule{
	"Name":  {name: "payer.name", message: "is required", byTag: map[string]string{"max": "must be at most 200 characters"}},
	"Email": {name: "payer.email", message: "must be a valid email address"},
}

// Normalized trims the payer fields and lower-cases the email
func (p Payer) Normalized() Payer {
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	p.Name = strings.TrimSpace(p.Name)
	return p
}

// Validate appends payer violations to vErr
func (p Payer) Validate(vErr *errs.ValidationError) {
	validateTags(p, payerRules, vErr)
}
