package models

// Rarity of a catalog hero. Ordered from most to least common.
type Rarity int

const (
	RarityCommon Rarity = iota
	RarityRare
	RarityEpic
	RarityLegendary
)

// ShardsPerStar returns how many duplicate shards a hero of this rarity
// needs to advance one star.
func (r Rarity) ShardsPerStar() int {
	switch r {
	case RarityCommon:
		return 5
	case RarityRare:
		return 10
	case RarityEpic:
		return 20
	case RarityLegendary:
		return 50
	default:
		return 999999
	}
}

func (r Rarity) String() string {
	switch r {
	case RarityCommon:
		return "common"
	case RarityRare:
		return "rare"
	case RarityEpic:
		return "epic"
	case RarityLegendary:
		return "legendary"
	default:
		return "unknown"
	}
}

// HeroCatalogEntry is immutable reference data describing a hero type.
// Fetched once and treated as read-only.
type HeroCatalogEntry struct {
	HeroID     string `json:"heroId"`
	Name       string `json:"name"`
	Rarity     Rarity `json:"rarity"`
	Element    string `json:"element"`
	BaseAttack int    `json:"baseAttack"`
	BaseHealth int    `json:"baseHealth"`
	Portrait   string `json:"portrait"`
}

// OwnedHero is the player's instance of a catalog hero. InstanceID is
// server-issued and distinct from the catalog HeroID.
type OwnedHero struct {
	InstanceID string `json:"instanceId"`
	HeroID     string `json:"heroId"`
	Name       string `json:"name"`
	Rarity     Rarity `json:"rarity"`
	Level      int    `json:"level"`
	Rank       int    `json:"rank"`
	Stars      int    `json:"stars"`
	Duplicates int    `json:"duplicates"`
	Attack     int    `json:"attack"`
	Health     int    `json:"health"`
	Power      int    `json:"power"`
}

// GachaPullResult is the server's response to a gacha pull. Heroes may
// contain several entries with the same instance id when a pull yields
// duplicates of an already owned hero.
type GachaPullResult struct {
	Heroes      []*OwnedHero `json:"heroes"`
	GemsSpent   int64        `json:"gemsSpent"`
	ShardsAward int          `json:"shardsAward"`
	PityCounter int          `json:"pityCounter"`
}

// DistinctInstanceIDs returns the set of distinct owned-hero instance ids
// in the pull, in first-seen order.
func (p *GachaPullResult) DistinctInstanceIDs() []string {
	seen := make(map[string]struct{}, len(p.Heroes))
	ids := make([]string, 0, len(p.Heroes))
	for _, h := range p.Heroes {
		if h == nil || h.InstanceID == "" {
			continue
		}
		if _, ok := seen[h.InstanceID]; ok {
			continue
		}
		seen[h.InstanceID] = struct{}{}
		ids = append(ids, h.InstanceID)
	}
	return ids
}

// IdleReward is the result of claiming idle rewards: resources accrued
// since the previous claim.
type IdleReward struct {
	Gold          int64 `json:"gold"`
	HeroXP        int   `json:"heroXp"`
	ElapsedSecs   int64 `json:"elapsedSecs"`
	CappedAtLimit bool  `json:"cappedAtLimit"`
}
