package session

import (
	"context"
	"fmt"

	"github.com/starfallrpg/starfall-client/internal/client/models"
)

// defaultTargetedRefreshLimit is the cut-over between targeted per-hero
// refreshes and one bulk re-fetch after a gacha pull. Few distinct heroes:
// a handful of cheap point requests. Many: a single list request costs
// less than the pile of point requests it replaces.
const defaultTargetedRefreshLimit = 3

// heroCache is the ordered collection of owned heroes plus its id index.
// The two structures are only ever updated together, through the methods
// below, so no reader can observe them out of sync. List order is the
// server's return order; force-refreshed newcomers are prepended.
type heroCache struct {
	list []*models.OwnedHero
	byID map[string]*models.OwnedHero
}

func (c *heroCache) init() {
	c.byID = make(map[string]*models.OwnedHero)
}

func (c *heroCache) clear() {
	c.list = nil
	c.byID = make(map[string]*models.OwnedHero)
}

// replaceAll swaps in a fresh server list and rebuilds the index.
func (c *heroCache) replaceAll(hs []*models.OwnedHero) {
	c.list = make([]*models.OwnedHero, 0, len(hs))
	c.byID = make(map[string]*models.OwnedHero, len(hs))
	for _, h := range hs {
		if h == nil {
			continue
		}
		c.list = append(c.list, h)
		c.byID[h.InstanceID] = h
	}
}

// upsert merges one refreshed hero: update-in-place when the id is already
// cached, prepend when it is new. List and index move together.
func (c *heroCache) upsert(h *models.OwnedHero) {
	if _, ok := c.byID[h.InstanceID]; ok {
		for i, existing := range c.list {
			if existing.InstanceID == h.InstanceID {
				c.list[i] = h
				break
			}
		}
		c.byID[h.InstanceID] = h
		return
	}
	c.list = append([]*models.OwnedHero{h}, c.list...)
	c.byID[h.InstanceID] = h
}

// byInstanceID is the point lookup. The linear scan after an index miss is
// a legacy shim; the paired-update invariant makes it unreachable.
func (c *heroCache) byInstanceID(id string) *models.OwnedHero {
	if h, ok := c.byID[id]; ok {
		return h
	}
	for _, h := range c.list {
		if h.InstanceID == id {
			return h
		}
	}
	return nil
}

func (c *heroCache) cloneList() []*models.OwnedHero {
	out := make([]*models.OwnedHero, len(c.list))
	for i, h := range c.list {
		cp := *h
		out[i] = &cp
	}
	return out
}

func (c *heroCache) cloneIndex() map[string]*models.OwnedHero {
	out := make(map[string]*models.OwnedHero, len(c.byID))
	for id, h := range c.byID {
		cp := *h
		out[id] = &cp
	}
	return out
}

// SelectHeroByID is the synchronous cache read used by screens; it never
// touches the network.
func (s *Session) SelectHeroByID(instanceID string) (*models.OwnedHero, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h := s.heroes.byInstanceID(instanceID)
	if h == nil {
		return nil, false
	}
	cp := *h
	return &cp, true
}

// RefreshHeroes re-fetches the full owned-hero list and replaces the cache.
func (s *Session) RefreshHeroes(ctx context.Context) error {
	epoch := s.epochs.Current()

	hs, err := s.api.ListHeroes(ctx)
	if err != nil {
		return fmt.Errorf("refresh heroes: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.epochs.Valid(epoch) {
		return nil
	}
	s.heroes.replaceAll(hs)
	return nil
}

// HeroByID returns one owned hero, cache-first. With forceRefresh it always
// re-fetches and merges the result into the cache; callers must force a
// refresh after any operation that changes a specific hero's stats, since
// the bulk list may be stale.
func (s *Session) HeroByID(ctx context.Context, instanceID string, forceRefresh bool) (*models.OwnedHero, error) {
	if !forceRefresh {
		if h, ok := s.SelectHeroByID(instanceID); ok {
			return h, nil
		}
	}

	epoch := s.epochs.Current()

	h, err := s.api.GetHero(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("fetch hero %s: %w", instanceID, err)
	}

	s.mu.Lock()
	if s.epochs.Valid(epoch) {
		s.heroes.upsert(h)
	}
	s.mu.Unlock()

	cp := *h
	return &cp, nil
}

// RefreshHeroesAfterGacha brings the cache up to date after a pull. With at
// most targetedRefreshLimit distinct instance ids the heroes are refreshed
// one by one; above it a single bulk re-fetch is cheaper.
func (s *Session) RefreshHeroesAfterGacha(ctx context.Context, pull *models.GachaPullResult) error {
	if pull == nil {
		return nil
	}
	ids := pull.DistinctInstanceIDs()
	if len(ids) == 0 {
		return nil
	}

	if len(ids) <= s.targetedRefreshLimit {
		for _, id := range ids {
			if _, err := s.HeroByID(ctx, id, true); err != nil {
				return err
			}
		}
		return nil
	}
	return s.RefreshHeroes(ctx)
}
