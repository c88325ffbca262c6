package postscmder

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/inkwell/cmd/inkwell/cmdutil"
	"github.com/papercomputeco/inkwell/pkg/render"
	"github.com/papercomputeco/inkwell/pkg/storage"
)

const postsLongDesc string = `List a user's posts, newest first.

Examples:
  inkwell users
  inkwell posts 3f1c2a9e-...`

type postsCommander struct {
	sqlitePath string
}

func NewPostsCmd() *cobra.Command {
	cmder := &postsCommander{}

	cmd := &cobra.Command{
		Use:   "posts <user-id>",
		Short: "List a user's posts",
		Long:  postsLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd, args[0])
		},
	}

	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to SQLite database")

	return cmd
}

func (c *postsCommander) run(ctx context.Context, cmd *cobra.Command, userID string) error {
	env, err := cmdutil.Load(ctx, cmd, c.sqlitePath, io.Discard)
	if err != nil {
		return err
	}
	defer env.Close()

	user, err := env.Driver.GetUser(ctx, userID)
	if err != nil {
		if storage.IsNotFound(err) {
			return fmt.Errorf("no user with id %s", userID)
		}
		return fmt.Errorf("could not load user: %w", err)
	}

	posts, err := env.Driver.PostsByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("could not list posts: %w", err)
	}

	return render.NewPrinter(cmd.OutOrStdout()).Posts(posts, user.DisplayName())
}
