// Command seedbooks bulk-loads a JSON catalog file into the books table.
// Meant for bootstrapping a fresh deployment:
//
//	seedbooks --file catalog.json --dsn "$DATABASE_URL"
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"librarycatalog/model"
	bookrepo "librarycatalog/repository/book"
	"librarycatalog/util/database"

	"github.com/spf13/cobra"
)

func main() {
	var (
		file string
		dsn  string
	)

	root := &cobra.Command{
		Use:   "seedbooks",
		Short: "Import a JSON book list into the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				dsn = os.Getenv("DATABASE_URL")
			}
			if dsn == "" {
				return fmt.Errorf("no DSN: set --dsn or DATABASE_URL")
			}
			return run(cmd.Context(), file, dsn)
		},
	}
	root.Flags().StringVarP(&file, "file", "f", "catalog.json", "path to the JSON book list")
	root.Flags().StringVar(&dsn, "dsn", "", "postgres DSN (defaults to DATABASE_URL)")

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, file, dsn string) error {
	raw, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}
	var books []model.Book
	if err := json.Unmarshal(raw, &books); err != nil {
		return fmt.Errorf("parse %s: %w", file, err)
	}

	db, err := database.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	repo := bookrepo.New(db)
	imported, skipped := 0, 0
	for i := range books {
		b := &books[i]
		if b.Title == "" || b.Author == "" || b.ISBN == "" || b.TotalCopies < 1 {
			fmt.Printf("skipping entry %d (%q): missing required fields\n", i, b.Title)
			skipped++
			continue
		}
		b.AvailableCopies = b.TotalCopies
		if err := repo.Create(ctx, b); err != nil {
			fmt.Printf("skipping %q: %v\n", b.Title, err)
			skipped++
			continue
		}
		imported++
	}

	fmt.Printf("imported %d books, skipped %d\n", imported, skipped)
	return nil
}
