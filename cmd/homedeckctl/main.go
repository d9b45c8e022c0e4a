// Command homedeckctl administers a homedeck database: it bootstraps
// accounts, changes access levels and checks catalog files before they are
// deployed.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"homedeck/internal/config"
	"homedeck/internal/db"
	applog "homedeck/internal/log"
)

// openDatabase connects to the configured database and migrates it.
var openDatabase = func(ctx context.Context) (*gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL must be set")
	}
	return db.Configure(cfg.Database)
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env file: %v\n", err)
	}
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:          "homedeckctl",
		Short:        "Administer a homedeck installation",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := applog.SetLevel(logLevel); err != nil {
				return fmt.Errorf("invalid log level %q: %w", logLevel, err)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(newUsersCmd(), newCatalogCmd())
	return root
}
