package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/inkwell/cmd/inkwell/cmdutil"
	generatecmder "github.com/papercomputeco/inkwell/cmd/inkwell/generate"
	mcpcmder "github.com/papercomputeco/inkwell/cmd/inkwell/mcp"
	migratecmder "github.com/papercomputeco/inkwell/cmd/inkwell/migrate"
	postscmder "github.com/papercomputeco/inkwell/cmd/inkwell/posts"
	servecmder "github.com/papercomputeco/inkwell/cmd/inkwell/serve"
	sessioncmder "github.com/papercomputeco/inkwell/cmd/inkwell/session"
	userscmder "github.com/papercomputeco/inkwell/cmd/inkwell/users"
)

const rootLongDesc string = `inkwell is a small blogging backend that writes post drafts with an LLM.

Configuration is read from ~/.inkwell/config.toml, a .env file in the
working directory and the environment (OPENAI_API_KEY and INKWELL_*).`

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "inkwell",
		Short:         "Blog posts with AI-written drafts",
		Long:          rootLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().String(cmdutil.FlagConfig, "", "Path to config file (default ~/.inkwell/config.toml)")
	cmd.PersistentFlags().Bool(cmdutil.FlagDebug, false, "Enable debug logging")
	cmd.PersistentFlags().Bool(cmdutil.FlagLogJSON, false, "Log as JSON")

	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(migratecmder.NewMigrateCmd())
	cmd.AddCommand(sessioncmder.NewSessionCmd())
	cmd.AddCommand(generatecmder.NewGenerateCmd())
	cmd.AddCommand(userscmder.NewUsersCmd())
	cmd.AddCommand(postscmder.NewPostsCmd())
	cmd.AddCommand(mcpcmder.NewMCPCmd())

	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
