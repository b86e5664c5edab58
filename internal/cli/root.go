// Package cli defines the cobra command tree for karibu.
package cli

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/karibu-campus/karibu/internal/db"
)

var flagDB string

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "karibu",
		Short:         "Track campus visitors from invitation to confirmed exit",
		Long:          "Karibu tracks a campus visitor through invitation, gate check-in, host-initiated checkout, and security-confirmed exit, escalating visitors who overstay their exit window.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database path (default: ~/.karibu/karibu.db or KARIBU_DB)")

	root.AddCommand(
		newServeCmd(),
		newSweepCmd(),
		newSeedCmd(),
		newVersionCmd(),
	)

	return root
}

// openDB opens the SQLite database using, in order: the --db flag, the
// given config path, or the default location.
func openDB(configPath string) (*sql.DB, error) {
	path := flagDB
	if path == "" {
		path = configPath
	}
	if path == "" {
		var err error
		path, err = db.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return db.Open(path)
}

// closeDB closes the database, logging any error to stderr.
func closeDB(database *sql.DB) {
	if err := database.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing database: %v\n", err)
	}
}
