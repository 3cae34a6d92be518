package persistence

import (
	"context"
	"time"

	"github.com/amirhossein-jamali/paylink/internal/domain/entity"
)

// Page selects a window of a listing
type Page struct {
	Limit  int
	Offset int
}

// LinkRepository defines essential methods to interact with payment link data
type LinkRepository interface {
	// Create persists a new link and assigns its ID
	//
	// Possible errors:
	// - ErrDuplicateLinkToken: If the token is already taken
	// - ErrConstraintViolation: If any other constraint rejects the row
	// - ErrDatabaseConnection: If database connection fails
	Create(ctx context.Context, link *entity.PaymentLink) error

	// GetByToken retrieves a link by its public token
	//
	// Possible errors:
	// - ErrLinkNotFound: If no link has this token
	// - ErrDatabaseConnection: If database connection fails
	GetByToken(ctx context.Context, token string) (*entity.PaymentLink, error)

	// GetByID retrieves a link by its storage identifier
	//
	// Possible errors:
	// - ErrLinkNotFound: If no link has this ID
	// - ErrDatabaseConnection: If database connection fails
	GetByID(ctx context.Context, id uint64) (*entity.PaymentLink, error)

	// ListByOwner returns the owner's links, newest first, and the owner's total link count
	ListByOwner(ctx context.Context, ownerID string, page Page) ([]*entity.PaymentLink, int64, error)

	// UpdateMetadata writes description and isActive of a link the owner holds.
	// Last writer wins; the slot counter is never touched here.
	//
	// Possible errors:
	// - ErrLinkNotFound: If the link does not exist or belongs to another owner
	// - ErrDatabaseConnection: If database connection fails
	UpdateMetadata(ctx context.Context, ownerID, token string, update entity.LinkMetadataUpdate, now time.Time) (*entity.PaymentLink, error)

	// ConsumeSlot atomically increments currentUses only if the link still has capacity
	// (maxUses unset or currentUses < maxUses). It returns false when no slot was free.
	// This is the single place currentUses changes.
	//
	// Possible errors:
	// - ErrDatabaseConnection: If database connection fails
	ConsumeSlot(ctx context.Context, linkID uint64, now time.Time) (bool, error)
}
