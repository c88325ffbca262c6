package userscmder

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/inkwell/cmd/inkwell/cmdutil"
	"github.com/papercomputeco/inkwell/pkg/render"
)

const usersLongDesc string = `List users.

Each user is shown with the id to pass to "inkwell posts" and a
display name: the name, else the email, else "Без имени".`

type usersCommander struct {
	sqlitePath string
}

func NewUsersCmd() *cobra.Command {
	cmder := &usersCommander{}

	cmd := &cobra.Command{
		Use:   "users",
		Short: "List users",
		Long:  usersLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to SQLite database")

	return cmd
}

func (c *usersCommander) run(ctx context.Context, cmd *cobra.Command) error {
	env, err := cmdutil.Load(ctx, cmd, c.sqlitePath, io.Discard)
	if err != nil {
		return err
	}
	defer env.Close()

	users, err := env.Driver.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("could not list users: %w", err)
	}

	return render.NewPrinter(cmd.OutOrStdout()).Users(users)
}
