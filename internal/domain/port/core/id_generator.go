package core

// IDGenerator produces identifiers for new records
type IDGenerator interface {
	// NewTransactionID returns a fresh unique id for a redemption attempt
	NewTransactionID() string
	// NewLinkToken returns an opaque public token for a payment link
	NewLinkToken() string
}
