package servecmder

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/inkwell/api"
	"github.com/papercomputeco/inkwell/cmd/inkwell/cmdutil"
	"github.com/papercomputeco/inkwell/pkg/config"
	"github.com/papercomputeco/inkwell/pkg/metrics"
)

const serveLongDesc string = `Run the inkwell API server.

Serves the post, generation and draft-history procedures over HTTP
until interrupted. Settings come from ~/.inkwell/config.toml (or
--config), .env and the environment; flags override them. Edits to the
[llm] and [limits] sections of the config file apply without a restart.

Examples:
  inkwell serve
  inkwell serve --listen :8080 --sqlite /var/lib/inkwell/inkwell.db`

const serveShortDesc string = "Run the API server"

const shutdownTimeout = 10 * time.Second

type serveCommander struct {
	listen     string
	sqlitePath string
	noMetrics  bool
	noReload   bool
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return cmder.run(ctx, cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.listen, "listen", "l", "", "Address to listen on (default from config, :3000)")
	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to SQLite database")
	cmd.Flags().BoolVar(&cmder.noMetrics, "no-metrics", false, "Disable the /metrics endpoint")
	cmd.Flags().BoolVar(&cmder.noReload, "no-reload", false, "Do not reload LLM and limit settings when the config file changes")

	return cmd
}

func (c *serveCommander) run(ctx context.Context, cmd *cobra.Command) error {
	env, err := cmdutil.Load(ctx, cmd, c.sqlitePath, os.Stdout)
	if err != nil {
		return err
	}
	defer env.Close()

	cfg := env.Config
	if c.listen != "" {
		cfg.Server.Listen = c.listen
	}
	var opts []api.Option
	var collector metrics.Collector = metrics.NewNoopCollector()
	if cfg.Server.Metrics && !c.noMetrics {
		prom := metrics.NewCollector()
		collector = prom
		opts = append(opts, api.WithMetrics(prom))

		if n, err := env.Driver.CountPosts(ctx); err == nil {
			prom.SetStorageCount(ctx, "posts", n)
		}
	}

	if cfg.LLM.APIKey == "" {
		env.Logger.Warn("OPENAI_API_KEY is not set; generation requests will fail")
	}

	srv, err := api.NewServer(api.Config{
		CookieSecure: cfg.Server.CookieSecure,
	}, env.Driver, env.NewGenerator(collector), env.Logger, opts...)
	if err != nil {
		return fmt.Errorf("could not create server: %w", err)
	}

	env.Logger.Info("inkwell starting",
		zap.String("listen", cfg.Server.Listen),
		zap.String("db", env.DBPath),
		zap.String("model", cfg.LLM.Model),
		zap.String("llm_base_url", cfg.LLM.BaseURL),
	)

	ln, err := net.Listen("tcp", cfg.Server.Listen)
	if err != nil {
		return fmt.Errorf("could not listen on %s: %w", cfg.Server.Listen, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.RunWithListener(ln)
	})
	if !c.noReload && env.ConfigPath != "" {
		watcher, err := config.NewWatcher(env.ConfigPath, env.Logger)
		if err != nil {
			env.Logger.Warn("config reload disabled", zap.Error(err))
		} else {
			defer watcher.Close()
			env.Logger.Debug("watching config", zap.String("path", env.ConfigPath))
			g.Go(func() error {
				return watcher.Run(gctx, env.Reload)
			})
		}
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		env.Logger.Info("shutting down")
		err := srv.Shutdown(shutdownCtx)
		// Serve may not have taken the listener yet.
		ln.Close()
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
