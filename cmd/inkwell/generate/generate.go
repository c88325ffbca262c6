package generatecmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/inkwell/cmd/inkwell/cmdutil"
	"github.com/papercomputeco/inkwell/pkg/postgen"
	"github.com/papercomputeco/inkwell/pkg/render"
)

const generateLongDesc string = `Generate a post draft for a topic and print it.

Runs the same generation as the API: a fixed blogger prompt plus the
topic and style, sent to the configured model. The draft lineage is
recorded in the database. Output is rendered as markdown on a terminal.

Styles: informal (default), professional, humorous.

Examples:
  inkwell generate "Почему я перестал пить кофе"
  inkwell generate --style humorous "Мой кот и удалёнка"`

const generateShortDesc string = "Generate a post draft"

// LocalUser is the rate-limit key for command-line generations.
const LocalUser = "cli"

type generateCommander struct {
	sqlitePath string
	style      string
	showHash   bool
}

func NewGenerateCmd() *cobra.Command {
	cmder := &generateCommander{}

	cmd := &cobra.Command{
		Use:   "generate <topic>",
		Short: generateShortDesc,
		Long:  generateLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return cmder.run(ctx, cmd, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to SQLite database")
	cmd.Flags().StringVar(&cmder.style, "style", string(postgen.DefaultStyle), "Post style: informal, professional or humorous")
	cmd.Flags().BoolVar(&cmder.showHash, "hash", false, "Print the draft hash after the post")

	return cmd
}

func (c *generateCommander) run(ctx context.Context, cmd *cobra.Command, topic string) error {
	env, err := cmdutil.Load(ctx, cmd, c.sqlitePath, os.Stderr)
	if err != nil {
		return err
	}
	defer env.Close()

	gen := env.NewGenerator(nil)
	printer := render.NewPrinter(cmd.OutOrStdout())

	var result *postgen.Result
	err = printer.Spin(ctx, "Пишу пост…", func(ctx context.Context) error {
		var err error
		result, err = gen.Generate(ctx, LocalUser, postgen.Request{
			Name:  topic,
			Style: postgen.Style(c.style),
		})
		return err
	})
	if err != nil {
		return err
	}

	if err := printer.Markdown(result.Content); err != nil {
		return err
	}

	if c.showHash && result.DraftHash != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "draft: %s\n", result.DraftHash)
	}
	return nil
}
