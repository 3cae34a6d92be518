package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/amirhossein-jamali/paylink/internal/domain/entity"
	errs "github.com/amirhossein-jamali/paylink/internal/domain/error"
	"github.com/amirhossein-jamali/paylink/internal/domain/port/persistence"
)

// LinkRepository is the in-memory link store
type LinkRepository struct {
	store *Store
}

// Create stores a copy of link and assigns its ID
func (r *LinkRepository) Create(ctx context.Context, link *entity.PaymentLink) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.linksByToken[link.Token]; exists {
		return errs.ErrDuplicateLinkToken
	}

	s.nextLinkID++
	link.ID = s.nextLinkID
	s.links[link.ID] = link.Clone()
	s.linksByToken[link.Token] = link.ID

	id, token := link.ID, link.Token
	s.record(ctx, func() {
		delete(s.links, id)
		delete(s.linksByToken, token)
	})
	return nil
}

// GetByToken returns a copy of the link with token
func (r *LinkRepository) GetByToken(_ context.Context, token string) (*entity.PaymentLink, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.linksByToken[token]
	if !ok {
		return nil, errs.ErrLinkNotFound
	}
	return s.links[id].Clone(), nil
}

// GetByID returns a copy of the link with id
func (r *LinkRepository) GetByID(_ context.Context, id uint64) (*entity.PaymentLink, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.links[id]
	if !ok {
		return nil, errs.ErrLinkNotFound
	}
	return link.Clone(), nil
}

// ListByOwner returns the owner's links newest first
func (r *LinkRepository) ListByOwner(_ context.Context, ownerID string, page persistence.Page) ([]*entity.PaymentLink, int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	owned := make([]*entity.PaymentLink, 0)
	for _, link := range s.links {
		if link.OwnerID == ownerID {
			owned = append(owned, link)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		if owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].ID > owned[j].ID
		}
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})

	total := int64(len(owned))
	start, end := window(len(owned), page)
	result := make([]*entity.PaymentLink, 0, end-start)
	for _, link := range owned[start:end] {
		result = append(result, link.Clone())
	}
	return result, total, nil
}

// UpdateMetadata applies update to a link held by ownerID
func (r *LinkRepository) UpdateMetadata(ctx context.Context, ownerID, token string, update entity.LinkMetadataUpdate, now time.Time) (*entity.PaymentLink, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.linksByToken[token]
	if !ok || s.links[id].OwnerID != ownerID {
		return nil, errs.ErrLinkNotFound
	}

	link := s.links[id]
	before := link.Clone()
	link.Apply(update, now)
	s.record(ctx, func() { s.links[id] = before })

	return link.Clone(), nil
}

// ConsumeSlot increments currentUses only while the link has capacity
func (r *LinkRepository) ConsumeSlot(ctx context.Context, linkID uint64, now time.Time) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.links[linkID]
	if !ok || link.IsExhausted() {
		return false, nil
	}

	prevUses, prevUpdated := link.CurrentUses, link.UpdatedAt
	link.CurrentUses++
	link.UpdatedAt = now
	s.record(ctx, func() {
		link.CurrentUses = prevUses
		link.UpdatedAt = prevUpdated
	})
	return true, nil
}

func window(n int, page persistence.Page) (int, int) {
	start := page.Offset
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	end := n
	if page.Limit > 0 && start+page.Limit < n {
		end = start + page.Limit
	}
	return start, end
}
