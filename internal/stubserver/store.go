package stubserver

import (
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starfallrpg/starfall-client/internal/client/models"
)

// Game tuning for the stub. Values only need to be plausible; real tuning
// lives server-side.
const (
	startingGold = 1000
	startingGems = 3000

	gemsPerPull   = 100
	pityThreshold = 50

	upgradeCostPerLevel = 100

	idleGoldPerMinute = 10
	idleCapHours      = 8
)

// account is one registered player. A nil passwordHash marks a legacy
// account that predates password support.
type account struct {
	user         models.User
	passwordHash []byte
	heroes       []*models.OwnedHero
	lastIdle     time.Time
}

func (s *Server) findAccount(username string) (*account, bool) {
	a, ok := s.accounts[strings.ToLower(strings.TrimSpace(username))]
	return a, ok
}

func (s *Server) putAccount(a *account) {
	s.accounts[strings.ToLower(a.user.Username)] = a
}

func (s *Server) newAccount(username string, hash []byte) *account {
	a := &account{
		user: models.User{
			Username:    strings.ToLower(strings.TrimSpace(username)),
			Gold:        startingGold,
			Gems:        startingGems,
			LoginStreak: 1,
		},
		passwordHash: hash,
		lastIdle:     s.now(),
	}
	s.putAccount(a)
	return a
}

// seedCatalog builds the immutable hero catalog the stub serves.
func seedCatalog() []*models.HeroCatalogEntry {
	return []*models.HeroCatalogEntry{
		{HeroID: "ember-knight", Name: "Ember Knight", Rarity: models.RarityCommon, Element: "fire", BaseAttack: 40, BaseHealth: 220, Portrait: "ember_knight.png"},
		{HeroID: "tide-caller", Name: "Tide Caller", Rarity: models.RarityCommon, Element: "water", BaseAttack: 35, BaseHealth: 250, Portrait: "tide_caller.png"},
		{HeroID: "gale-dancer", Name: "Gale Dancer", Rarity: models.RarityCommon, Element: "wind", BaseAttack: 45, BaseHealth: 190, Portrait: "gale_dancer.png"},
		{HeroID: "stone-warden", Name: "Stone Warden", Rarity: models.RarityRare, Element: "earth", BaseAttack: 50, BaseHealth: 320, Portrait: "stone_warden.png"},
		{HeroID: "frost-sage", Name: "Frost Sage", Rarity: models.RarityRare, Element: "water", BaseAttack: 65, BaseHealth: 240, Portrait: "frost_sage.png"},
		{HeroID: "storm-herald", Name: "Storm Herald", Rarity: models.RarityEpic, Element: "wind", BaseAttack: 85, BaseHealth: 300, Portrait: "storm_herald.png"},
		{HeroID: "void-reaper", Name: "Void Reaper", Rarity: models.RarityEpic, Element: "dark", BaseAttack: 95, BaseHealth: 270, Portrait: "void_reaper.png"},
		{HeroID: "dawn-empress", Name: "Dawn Empress", Rarity: models.RarityLegendary, Element: "light", BaseAttack: 130, BaseHealth: 400, Portrait: "dawn_empress.png"},
		{HeroID: "night-sovereign", Name: "Night Sovereign", Rarity: models.RarityLegendary, Element: "dark", BaseAttack: 140, BaseHealth: 380, Portrait: "night_sovereign.png"},
	}
}

func (s *Server) catalogEntry(heroID string) *models.HeroCatalogEntry {
	for _, e := range s.catalog {
		if e.HeroID == heroID {
			return e
		}
	}
	return nil
}

// recomputeStats derives combat numbers from base stats and progression.
func recomputeStats(h *models.OwnedHero, base *models.HeroCatalogEntry) {
	levelScale := 100 + 12*(h.Level-1)
	starScale := 100 + 25*h.Stars
	h.Attack = base.BaseAttack * levelScale * starScale / 10000
	h.Health = base.BaseHealth * levelScale * starScale / 10000
	h.Power = h.Attack*2 + h.Health/2
}

// rollRarity draws a rarity from the banner weights: 60/30/9/1.
func rollRarity(rng *rand.Rand) models.Rarity {
	n := rng.Intn(100)
	switch {
	case n < 60:
		return models.RarityCommon
	case n < 90:
		return models.RarityRare
	case n < 99:
		return models.RarityEpic
	default:
		return models.RarityLegendary
	}
}

func (s *Server) randomCatalogEntry(r models.Rarity) *models.HeroCatalogEntry {
	var pool []*models.HeroCatalogEntry
	for _, e := range s.catalog {
		if e.Rarity == r {
			pool = append(pool, e)
		}
	}
	return pool[s.rng.Intn(len(pool))]
}

// pull performs count single draws for the account. Duplicates of an owned
// hero convert to shards and bump the duplicate count. The hard pity
// counter guarantees a Legendary at the threshold.
func (s *Server) pull(a *account, count int) *models.GachaPullResult {
	res := &models.GachaPullResult{GemsSpent: int64(count) * gemsPerPull}

	for i := 0; i < count; i++ {
		a.user.PityCounter++

		rarity := rollRarity(s.rng)
		if a.user.PityCounter >= pityThreshold {
			rarity = models.RarityLegendary
		}
		if rarity == models.RarityLegendary {
			a.user.PityCounter = 0
		}

		entry := s.randomCatalogEntry(rarity)

		if owned := findOwnedByHeroID(a.heroes, entry.HeroID); owned != nil {
			owned.Duplicates++
			shards := entry.Rarity.ShardsPerStar() / 5
			if shards < 1 {
				shards = 1
			}
			a.user.SummonShards += shards
			res.ShardsAward += shards
			res.Heroes = append(res.Heroes, owned)
			continue
		}

		h := &models.OwnedHero{
			InstanceID: uuid.NewString(),
			HeroID:     entry.HeroID,
			Name:       entry.Name,
			Rarity:     entry.Rarity,
			Level:      1,
		}
		recomputeStats(h, entry)
		a.heroes = append(a.heroes, h)
		res.Heroes = append(res.Heroes, h)
	}

	res.PityCounter = a.user.PityCounter
	return res
}

func findOwnedByHeroID(heroes []*models.OwnedHero, heroID string) *models.OwnedHero {
	for _, h := range heroes {
		if h.HeroID == heroID {
			return h
		}
	}
	return nil
}

func findOwnedByInstanceID(heroes []*models.OwnedHero, instanceID string) *models.OwnedHero {
	for _, h := range heroes {
		if h.InstanceID == instanceID {
			return h
		}
	}
	return nil
}

// claimIdle pays out idle rewards accrued since the last claim, capped.
func (s *Server) claimIdle(a *account) *models.IdleReward {
	now := s.now()
	elapsed := now.Sub(a.lastIdle)
	capped := false
	if elapsed > idleCapHours*time.Hour {
		elapsed = idleCapHours * time.Hour
		capped = true
	}
	a.lastIdle = now

	gold := int64(elapsed.Minutes()) * idleGoldPerMinute
	a.user.Gold += gold

	return &models.IdleReward{
		Gold:          gold,
		HeroXP:        int(elapsed.Minutes()),
		ElapsedSecs:   int64(elapsed.Seconds()),
		CappedAtLimit: capped,
	}
}

// combatRating is the sum of owned hero power.
func combatRating(a *account) int {
	total := 0
	for _, h := range a.heroes {
		total += h.Power
	}
	return total
}
