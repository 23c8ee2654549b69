package session

import (
	"context"
	"fmt"

	"github.com/starfallrpg/starfall-client/internal/client/models"
)

// Catalog returns the hero catalog. Reference data is identical for every
// account, so the first successful fetch is cached for the process lifetime
// and survives logout; a failed fetch is retried on the next call.
func (s *Session) Catalog(ctx context.Context) ([]*models.HeroCatalogEntry, error) {
	s.mu.RLock()
	cached := s.catalog
	s.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	entries, err := s.api.ListCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}

	s.mu.Lock()
	s.catalog = entries
	s.mu.Unlock()
	return entries, nil
}

// CombatRating fetches the account's current combat rating. The value is
// not cached: it changes with every hero operation.
func (s *Session) CombatRating(ctx context.Context) (int, error) {
	rating, err := s.api.GetCombatRating(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch combat rating: %w", err)
	}
	return rating, nil
}
