package cli

import (
	"context"
	"fmt"
	"time"
)

func (a *App) pull(ctx context.Context, count int) {
	if !a.isLoggedIn() {
		fmt.Println("Log in first.")
		return
	}
	res := a.session.PullGacha(ctx, count)
	if res.Stale {
		return
	}
	if !res.OK {
		fmt.Println("Pull failed:", res.Detail)
		return
	}

	for _, h := range res.Data.Heroes {
		fmt.Printf("  %s (%s)\n", h.Name, h.Rarity)
	}
	if res.Data.ShardsAward > 0 {
		fmt.Printf("Duplicates converted to %d shards.\n", res.Data.ShardsAward)
	}
	a.printBalances()
}

func (a *App) upgrade(ctx context.Context, instanceID string) {
	if !a.isLoggedIn() {
		fmt.Println("Log in first.")
		return
	}
	res := a.session.UpgradeHero(ctx, instanceID)
	if res.Stale {
		return
	}
	if !res.OK {
		fmt.Println("Upgrade failed:", res.Detail)
		return
	}

	h := res.Data
	fmt.Printf("%s is now level %d (attack %d, health %d, power %d)\n",
		h.Name, h.Level, h.Attack, h.Health, h.Power)
	a.printBalances()
}

func (a *App) claimIdle(ctx context.Context) {
	if !a.isLoggedIn() {
		fmt.Println("Log in first.")
		return
	}
	res := a.session.ClaimIdleRewards(ctx)
	if res.Stale {
		return
	}
	if !res.OK {
		fmt.Println("Claim failed:", res.Detail)
		return
	}

	r := res.Data
	elapsed := time.Duration(r.ElapsedSecs) * time.Second
	fmt.Printf("Claimed %d gold and %d hero XP for %s idle", r.Gold, r.HeroXP, elapsed)
	if r.CappedAtLimit {
		fmt.Print(" (capped)")
	}
	fmt.Println()
	a.printBalances()
}
