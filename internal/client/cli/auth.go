package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/starfallrpg/starfall-client/internal/client/api"
	"github.com/starfallrpg/starfall-client/internal/client/session"
	"github.com/starfallrpg/starfall-client/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for a username and password and creates a new account.
// On success the session is authenticated and the starting balances are
// shown. The password byte slice is wiped before returning.
func (a *App) Register(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Choose a username", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.session.Register(ctx, username, string(password)); err != nil {
		fmt.Println("Registration failed:", err.Error())
		return err
	}

	fmt.Println("Welcome to Starfall!")
	a.printBalances()
	return nil
}

// Login prompts for credentials and authenticates. A legacy account that
// predates password support is detected via the dedicated error and routed
// into the set-password flow instead of a generic failure.
func (a *App) Login(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.session.LoginWithPassword(ctx, username, string(password)); err != nil {
		if errors.Is(err, api.ErrLegacyNeedsPassword) {
			fmt.Println("This account has no password yet. Set one now with 'setpassword'.")
			return nil
		}
		fmt.Println("Login failed:", err.Error())
		return err
	}

	fmt.Println("Logged in.")
	a.printBalances()
	return nil
}

// SetPassword upgrades a legacy account: sets its first password and
// authenticates with the returned token.
func (a *App) SetPassword(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.session.SetPasswordForLegacyAccount(ctx, username, string(password)); err != nil {
		fmt.Println("Could not set password:", err.Error())
		return err
	}

	fmt.Println("Password set, logged in.")
	a.printBalances()
	return nil
}

// Logout tears the session down and clears saved credentials.
func (a *App) Logout(ctx context.Context) error {
	if err := a.session.Logout(ctx); err != nil {
		fmt.Println("Logout finished with errors:", err.Error())
		return err
	}
	fmt.Println("Logged out.")
	return nil
}

func (a *App) printBalances() {
	snap := a.session.Snapshot()
	if snap.User == nil {
		return
	}
	fmt.Printf("%s | gold %d | gems %d | shards %d | pity %d\n",
		snap.User.Username, snap.User.Gold, snap.User.Gems,
		snap.User.SummonShards, snap.User.PityCounter)
}

func (a *App) statusLine() string {
	snap := a.session.Snapshot()
	switch snap.State {
	case session.StateAuthenticated:
		if snap.User != nil {
			return fmt.Sprintf("(%s)", snap.User.Username)
		}
		return "(authenticated)"
	case session.StateLegacyNeedsPassword:
		return "(password required)"
	default:
		return ""
	}
}
