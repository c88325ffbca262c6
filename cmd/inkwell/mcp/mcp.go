package mcpcmder

import (
	"context"
	"fmt"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/inkwell/cmd/inkwell/cmdutil"
	"github.com/papercomputeco/inkwell/pkg/postgen"
	"github.com/papercomputeco/inkwell/pkg/render"
	"github.com/papercomputeco/inkwell/pkg/storage"
)

const mcpLongDesc string = `Serve inkwell as an MCP server over stdio.

Exposes two tools:
  generate_post  write a post draft for a topic in a given style
  list_posts     list a user's posts, newest first

Logs go to stderr; stdout carries the protocol.`

// LocalUser is the rate-limit key for generations requested over MCP.
const LocalUser = "mcp"

var version = "dev"

type mcpCommander struct {
	sqlitePath string
}

// GenerateInput is the argument of the generate_post tool.
type GenerateInput struct {
	Topic string `json:"topic" jsonschema:"the post topic, at least 5 characters"`
	Style string `json:"style,omitempty" jsonschema:"informal, professional or humorous; informal when empty"`
}

// GenerateOutput is the result of the generate_post tool.
type GenerateOutput struct {
	Content   string `json:"content"`
	DraftHash string `json:"draft_hash,omitempty"`
	Style     string `json:"style"`
}

// ListPostsInput is the argument of the list_posts tool.
type ListPostsInput struct {
	UserID string `json:"user_id" jsonschema:"id of the user whose posts to list"`
}

// PostSummary is one entry of the list_posts result.
type PostSummary struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

// ListPostsOutput is the result of the list_posts tool.
type ListPostsOutput struct {
	Owner string        `json:"owner"`
	Posts []PostSummary `json:"posts"`
}

func NewMCPCmd() *cobra.Command {
	cmder := &mcpCommander{}

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve generation tools over MCP (stdio)",
		Long:  mcpLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to SQLite database")

	return cmd
}

func (c *mcpCommander) run(ctx context.Context, cmd *cobra.Command) error {
	env, err := cmdutil.Load(ctx, cmd, c.sqlitePath, os.Stderr)
	if err != nil {
		return err
	}
	defer env.Close()

	server := NewServer(env.NewGenerator(nil), env.Driver, env.Logger)

	env.Logger.Info("mcp server starting", zap.String("db", env.DBPath))
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("mcp server failed: %w", err)
	}
	return nil
}

// NewServer builds the MCP server with the inkwell tools registered.
func NewServer(gen *postgen.Generator, driver storage.Driver, logger *zap.Logger) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "inkwell", Version: version}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_post",
		Description: "Write a blog post draft in Russian for a topic in the requested style.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in GenerateInput) (*mcp.CallToolResult, GenerateOutput, error) {
		result, err := gen.Generate(ctx, LocalUser, postgen.Request{
			Name:  in.Topic,
			Style: postgen.Style(in.Style),
		})
		if err != nil {
			logger.Debug("generate_post failed", zap.Error(err))
			return nil, GenerateOutput{}, err
		}
		return nil, GenerateOutput{
			Content:   result.Content,
			DraftHash: result.DraftHash,
			Style:     string(result.Style),
		}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_posts",
		Description: "List a user's posts, newest first.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in ListPostsInput) (*mcp.CallToolResult, ListPostsOutput, error) {
		user, err := driver.GetUser(ctx, in.UserID)
		if err != nil {
			return nil, ListPostsOutput{}, err
		}

		posts, err := driver.PostsByUser(ctx, user.ID)
		if err != nil {
			return nil, ListPostsOutput{}, fmt.Errorf("could not list posts: %w", err)
		}

		out := ListPostsOutput{
			Owner: user.DisplayName(),
			Posts: make([]PostSummary, 0, len(posts)),
		}
		for _, p := range posts {
			out.Posts = append(out.Posts, PostSummary{
				ID:        p.ID,
				Name:      p.Name,
				CreatedAt: p.CreatedAt.Local().Format(render.DateFormat),
			})
		}
		return nil, out, nil
	})

	return server
}
