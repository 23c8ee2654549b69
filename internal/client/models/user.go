// Package models defines the client-side mirrors of server-authoritative
// game resources. The server owns every field; the client only caches.
package models

// User is the locally cached mirror of the player resource. It is refreshed
// after every mutation that could change a balance and on demand.
type User struct {
	Username     string `json:"username"`
	Gold         int64  `json:"gold"`
	Gems         int64  `json:"gems"`
	SummonShards int    `json:"summonShards"`
	PityCounter  int    `json:"pityCounter"`
	LoginStreak  int    `json:"loginStreak"`
	Avatar       string `json:"avatar"`
	CombatRating int    `json:"combatRating"`
}
