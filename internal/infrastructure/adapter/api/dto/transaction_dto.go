package dto

import (
	"time"

	"github.com/amirhossein-jamali/paylink/internal/domain/entity"
)

// PayerRequest identifies the payer of a redemption
type PayerRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// CardRequest carries card details for a single authorization. It is never stored or logged.
type CardRequest struct {
	Number      string `json:"number"`
	ExpiryMonth int    `json:"expiryMonth"`
	ExpiryYear  int    `json:"expiryYear"`
	CVV         string `json:"cvv"`
}

// RedeemRequest represents the API request for redeeming a payment link
type RedeemRequest struct {
	Payer PayerRequest `json:"payer"`
	Card  CardRequest  `json:"card"`
}

// TransactionQuery represents ledger listing query parameters
type TransactionQuery struct {
	PageQuery
	Status string `form:"status"`
}

// PaymentMethodResponse is the non-sensitive summary of the card used
type PaymentMethodResponse struct {
	Brand string `json:"brand"`
	Last4 string `json:"last4"`
}

// TransactionResponse represents one redemption attempt
type TransactionResponse struct {
	ID                     string                `json:"id"`
	LinkToken              string                `json:"linkToken"`
	Status                 string                `json:"status"`
	Amount                 string                `json:"amount"`
	Currency               string                `json:"currency"`
	PayerEmail             string                `json:"payerEmail"`
	PayerName              string                `json:"payerName"`
	PaymentMethod          PaymentMethodResponse `json:"paymentMethod"`
	GatewayResponseCode    string                `json:"gatewayResponseCode,omitempty"`
	GatewayResponseMessage string                `json:"gatewayResponseMessage,omitempty"`
	FailureReason          string                `json:"failureReason,omitempty"`
	ProcessedAt            *time.Time            `json:"processedAt,omitempty"`
	CreatedAt              time.Time             `json:"createdAt"`
	UpdatedAt              time.Time             `json:"updatedAt"`
}

// RedeemResponse represents the outcome of a redemption attempt
type RedeemResponse struct {
	TransactionResponse
	Replayed bool `json:"replayed"`
}

// TransactionListResponse represents one page of a link's ledger
type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	Total        int64                 `json:"total"`
	Limit        int                   `json:"limit"`
	Offset       int                   `json:"offset"`
}

// ToPayer maps the request payer to the domain type
func (r RedeemRequest) ToPayer() entity.Payer {
	return entity.Payer{Email: r.Payer.Email, Name: r.Payer.Name}
}

// ToCard maps the request card to the domain type
func (r RedeemRequest) ToCard() entity.Card {
	return entity.Card{
		Number:      r.Card.Number,
		ExpiryMonth: r.Card.ExpiryMonth,
		ExpiryYear:  r.Card.ExpiryYear,
		CVV:         r.Card.CVV,
	}
}

// NewTransactionResponse maps a ledger entry to its API view
func NewTransactionResponse(txn *entity.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:         txn.ID,
		LinkToken:  txn.LinkToken,
		Status:     string(txn.Status),
		Amount:     entity.FormatAmount(txn.Amount),
		Currency:   txn.Currency,
		PayerEmail: txn.PayerEmail,
		PayerName:  txn.PayerName,
		PaymentMethod: PaymentMethodResponse{
			Brand: string(txn.PaymentMethod.Brand),
			Last4: txn.PaymentMethod.Last4,
		},
		GatewayResponseCode:    txn.GatewayResponseCode,
		GatewayResponseMessage: txn.GatewayResponseMessage,
		FailureReason:          string(txn.FailureReason),
		ProcessedAt:            txn.ProcessedAt,
		CreatedAt:              txn.CreatedAt,
		UpdatedAt:              txn.UpdatedAt,
	}
}
