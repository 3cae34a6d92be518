package link

import (
	"strings"

	coreport "github.com/amirhossein-jamali/paylink/internal/domain/port/core"
	"github.com/amirhossein-jamali/paylink/internal/domain/port/persistence"
)

// Default and maximum page sizes for link listings
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// LinkUseCase handles owner-facing payment link management
type LinkUseCase struct {
	linkRepo      persistence.LinkRepository
	idGenerator   coreport.IDGenerator
	timeProvider  coreport.TimeProvider
	logger        coreport.Logger
	publicBaseURL string
}

// NewLinkUseCase creates a new LinkUseCase
func NewLinkUseCase(
	linkRepo persistence.LinkRepository,
	idGenerator coreport.IDGenerator,
	timeProvider coreport.TimeProvider,
	logger coreport.Logger,
	publicBaseURL string,
) *LinkUseCase {
	return &LinkUseCase{
		linkRepo:      linkRepo,
		idGenerator:   idGenerator,
		timeProvider:  timeProvider,
		logger:        logger,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// RedemptionURL builds the payer-facing URL of a token
func (u *LinkUseCase) RedemptionURL(token string) string {
	return u.publicBaseURL + "/pay/" + token
}

// NormalizePage clamps a requested page to sane bounds
func NormalizePage(page persistence.Page) persistence.Page {
	if page.Limit <= 0 {
		page.Limit = DefaultPageSize
	}
	if page.Limit > MaxPageSize {
		page.Limit = MaxPageSize
	}
	if page.Offset < 0 {
		page.Offset = 0
	}
	return page
}
