package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

func (a *App) Root(ctx context.Context) {
	fmt.Println("Welcome to Starfall CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Printf("starfall %s> ", a.statusLine())
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Println("Available commands: heroes, hero <id>, catalog, pull [10], upgrade <id>, claim, rating, logout, exit")
			} else {
				fmt.Println("Available commands: register, login, setpassword, catalog, exit")
			}

		case "register":
			a.Register(ctx)
		case "login":
			a.Login(ctx)
		case "setpassword":
			a.SetPassword(ctx)
		case "logout":
			a.Logout(ctx)

		case "heroes":
			a.listHeroes(ctx)
		case "hero":
			if len(args) == 0 {
				fmt.Println("Usage: hero <instance-id>")
				continue
			}
			a.showHero(ctx, args[0])
		case "catalog":
			a.showCatalog(ctx)
		case "rating":
			a.showRating(ctx)

		case "pull":
			count := 1
			if len(args) > 0 && args[0] == "10" {
				count = 10
			}
			a.pull(ctx, count)
		case "upgrade":
			if len(args) == 0 {
				fmt.Println("Usage: upgrade <instance-id>")
				continue
			}
			a.upgrade(ctx, args[0])
		case "claim":
			a.claimIdle(ctx)

		case "exit", "quit":
			fmt.Println("Bye!")
			return

		default:
			fmt.Println("Unknown command:", cmd)
		}
	}
}
