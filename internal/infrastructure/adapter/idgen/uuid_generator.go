package idgen

import (
	"strings"

	"github.com/amirhossein-jamali/paylink/internal/domain/port/core"
	"github.com/google/uuid"
)

// UUIDGenerator issues random (v4) identifiers
type UUIDGenerator struct{}

// NewUUIDGenerator creates a new UUIDGenerator
func NewUUIDGenerator() core.IDGenerator {
	return &UUIDGenerator{}
}

// NewTransactionID returns a canonical UUID string
func (g *UUIDGenerator) NewTransactionID() string {
	return uuid.NewString()
}

// NewLinkToken returns a v4 UUID, 122 random bits, as 32 hex characters without dashes
func (g *UUIDGenerator) NewLinkToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
