package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/ManuelReschke/PlanFox/app/repository"
	"github.com/ManuelReschke/PlanFox/internal/pkg/database"
	"github.com/ManuelReschke/PlanFox/internal/pkg/env"
	"github.com/ManuelReschke/PlanFox/internal/pkg/tokenstore"
)

// Operator CLI for API token lifecycle. The raw secret is printed exactly
// once on create and rotate; afterwards only the bcrypt hash exists.
func main() {
	env.SetupEnvFile()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	database.SetupDatabase()
	repository.InitializeFactory(database.GetDB())
	store := tokenstore.New(repository.GetGlobalRepositories().Token)

	switch os.Args[1] {
	case "create":
		if len(os.Args) < 3 {
			log.Fatal("Usage: tokens create <name>")
		}
		created, err := store.Create(os.Args[2])
		if err != nil {
			if errors.Is(err, tokenstore.ErrEmptyName) {
				log.Fatal("Token name cannot be empty")
			}
			log.Fatalf("Failed to create token: %v", err)
		}
		fmt.Printf("Token created: %s (%s)\n", created.ID, created.Name)
		fmt.Printf("Secret (shown only once): %s\n", created.Secret)

	case "list":
		tokens, err := store.List()
		if err != nil {
			log.Fatalf("Failed to list tokens: %v", err)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tCREATED\tLAST USED")
		for _, t := range tokens {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.ID, t.Name, t.CreatedAt.Format(time.RFC3339), formatTime(t.LastUsedAt))
		}
		w.Flush()

	case "revoke":
		if len(os.Args) < 3 {
			log.Fatal("Usage: tokens revoke <id>")
		}
		if !store.Revoke(os.Args[2]) {
			log.Fatalf("Token %s not found", os.Args[2])
		}
		fmt.Printf("Token %s revoked\n", os.Args[2])

	case "rotate":
		if len(os.Args) < 3 {
			log.Fatal("Usage: tokens rotate <id>")
		}
		rotated, err := store.Rotate(os.Args[2])
		if err != nil {
			if errors.Is(err, tokenstore.ErrNotFound) {
				log.Fatalf("Token %s not found", os.Args[2])
			}
			log.Fatalf("Failed to rotate token: %v", err)
		}
		fmt.Printf("Token rotated: %s\n", rotated.ID)
		fmt.Printf("New secret (shown only once): %s\n", rotated.Secret)

	default:
		printUsage()
		os.Exit(1)
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Format(time.RFC3339)
}

func printUsage() {
	fmt.Println("Usage: tokens <command>")
	fmt.Println("Commands:")
	fmt.Println("  create <name>  create a new API token and print its secret")
	fmt.Println("  list           list token metadata (never secrets)")
	fmt.Println("  revoke <id>    delete a token")
	fmt.Println("  rotate <id>    replace a token's secret in place")
}
