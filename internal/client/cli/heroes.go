package cli

import (
	"context"
	"fmt"
)

func (a *App) listHeroes(ctx context.Context) {
	if err := a.session.RefreshHeroes(ctx); err != nil {
		fmt.Println("Could not load heroes:", err.Error())
		return
	}

	snap := a.session.Snapshot()
	if len(snap.Heroes) == 0 {
		fmt.Println("No heroes yet. Try 'pull'.")
		return
	}
	for _, h := range snap.Heroes {
		fmt.Printf("%-12s %-18s %-10s lvl %-3d ★%d  pow %d\n",
			h.InstanceID[:min(12, len(h.InstanceID))], h.Name, h.Rarity, h.Level, h.Stars, h.Power)
	}
}

func (a *App) showHero(ctx context.Context, instanceID string) {
	h, err := a.session.HeroByID(ctx, instanceID, true)
	if err != nil {
		fmt.Println("Could not load hero:", err.Error())
		return
	}
	fmt.Printf("%s (%s, %s)\n", h.Name, h.HeroID, h.Rarity)
	fmt.Printf("  instance %s\n", h.InstanceID)
	fmt.Printf("  level %d  rank %d  stars %d  duplicates %d\n", h.Level, h.Rank, h.Stars, h.Duplicates)
	fmt.Printf("  attack %d  health %d  power %d\n", h.Attack, h.Health, h.Power)
}

func (a *App) showCatalog(ctx context.Context) {
	// catalog is reference data; read it straight off the session's transport
	entries, err := a.session.Catalog(ctx)
	if err != nil {
		fmt.Println("Could not load catalog:", err.Error())
		return
	}
	for _, e := range entries {
		fmt.Printf("%-18s %-10s %-6s atk %-4d hp %d\n", e.Name, e.Rarity, e.Element, e.BaseAttack, e.BaseHealth)
	}
}

func (a *App) showRating(ctx context.Context) {
	rating, err := a.session.CombatRating(ctx)
	if err != nil {
		fmt.Println("Could not load combat rating:", err.Error())
		return
	}
	fmt.Println("Combat rating:", rating)
}
