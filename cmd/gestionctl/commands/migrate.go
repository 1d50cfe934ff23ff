package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"gestion/internal/storage"
)

func migrateCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := storage.RunMigrations(e.cfg.SQLiteDBPath); err != nil {
				return err
			}
			return printVersion(cmd, e.cfg.SQLiteDBPath)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations (default 1 step)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n <= 0 {
					return fmt.Errorf("invalid steps %q", args[0])
				}
				steps = n
			}
			if err := storage.RollbackMigrations(e.cfg.SQLiteDBPath, steps); err != nil {
				return err
			}
			return printVersion(cmd, e.cfg.SQLiteDBPath)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printVersion(cmd, e.cfg.SQLiteDBPath)
		},
	})
	return cmd
}

func printVersion(cmd *cobra.Command, dbPath string) error {
	v, dirty, err := storage.MigrationVersion(dbPath)
	if err != nil {
		return err
	}
	if dirty {
		fmt.Fprintf(out(cmd), "version %d (dirty)\n", v)
		return nil
	}
	fmt.Fprintf(out(cmd), "version %d\n", v)
	return nil
}
