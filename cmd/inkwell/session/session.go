package sessioncmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/inkwell/cmd/inkwell/cmdutil"
)

const sessionLongDesc string = `Manage API sessions.

inkwell does not run an OAuth flow. Operators create users and
issue session tokens from the command line; clients send the token
as "Authorization: Bearer <token>" or in the inkwell_session cookie.`

const createLongDesc string = `Create (or reuse) a user by email and print a new session token.

Examples:
  inkwell session create --email anna@example.com --name "Анна"
  inkwell session create --email bot@example.com --ttl 24h`

type createCommander struct {
	sqlitePath string
	email      string
	name       string
	ttl        time.Duration
}

func NewSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage API sessions",
		Long:  sessionLongDesc,
	}
	cmd.AddCommand(newCreateCmd())
	return cmd
}

func newCreateCmd() *cobra.Command {
	cmder := &createCommander{}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Issue a session token for a user",
		Long:  createLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to SQLite database")
	cmd.Flags().StringVar(&cmder.email, "email", "", "User email (required)")
	cmd.Flags().StringVar(&cmder.name, "name", "", "User display name")
	cmd.Flags().DurationVar(&cmder.ttl, "ttl", 0, "Session lifetime (default from config, 720h)")
	cmd.MarkFlagRequired("email")

	return cmd
}

func (c *createCommander) run(ctx context.Context, cmd *cobra.Command) error {
	if c.email == "" {
		return errors.New("--email must not be empty")
	}

	env, err := cmdutil.Load(ctx, cmd, c.sqlitePath, io.Discard)
	if err != nil {
		return err
	}
	defer env.Close()

	ttl := c.ttl
	if ttl <= 0 {
		if ttl, err = env.Config.SessionTTL(); err != nil {
			return err
		}
	}

	user, err := env.Driver.UpsertUser(ctx, c.email, c.name)
	if err != nil {
		return fmt.Errorf("could not save user: %w", err)
	}

	session, err := env.Driver.CreateSession(ctx, user.ID, ttl)
	if err != nil {
		return fmt.Errorf("could not create session: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "User:    %s (%s)\n", user.DisplayName(), user.ID)
	fmt.Fprintf(out, "Expires: %s\n", session.Expires.Local().Format(time.RFC3339))
	fmt.Fprintf(out, "Token:   %s\n", session.Token)
	return nil
}
