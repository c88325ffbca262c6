package migratecmder

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/inkwell/cmd/inkwell/cmdutil"
)

const migrateLongDesc string = `Create or update the inkwell database schema.

Creates the users, sessions, posts and drafts tables if they don't
exist. Running it again is harmless.

Examples:
  inkwell migrate
  inkwell migrate --sqlite /var/lib/inkwell/inkwell.db`

const migrateShortDesc string = "Create the database schema"

type migrateCommander struct {
	sqlitePath string
}

func NewMigrateCmd() *cobra.Command {
	cmder := &migrateCommander{}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: migrateShortDesc,
		Long:  migrateLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to SQLite database")

	return cmd
}

func (c *migrateCommander) run(ctx context.Context, cmd *cobra.Command) error {
	env, err := cmdutil.Load(ctx, cmd, c.sqlitePath, io.Discard)
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.Driver.Migrate(ctx); err != nil {
		return fmt.Errorf("could not migrate %s: %w", env.DBPath, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Database %s migrated\n", env.DBPath)
	return nil
}
