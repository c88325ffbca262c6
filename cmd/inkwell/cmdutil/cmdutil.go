// Package cmdutil wires configuration, logging and storage for the inkwell
// subcommands.
package cmdutil

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/inkwell/cmd/inkwell/sqlitepath"
	"github.com/papercomputeco/inkwell/pkg/config"
	"github.com/papercomputeco/inkwell/pkg/llm"
	"github.com/papercomputeco/inkwell/pkg/llm/openai"
	"github.com/papercomputeco/inkwell/pkg/logger"
	"github.com/papercomputeco/inkwell/pkg/metrics"
	"github.com/papercomputeco/inkwell/pkg/postgen"
	"github.com/papercomputeco/inkwell/pkg/ratelimit"
	"github.com/papercomputeco/inkwell/pkg/storage/sqlite"
)

// Persistent flag names registered on the root command.
const (
	FlagConfig  = "config"
	FlagDebug   = "debug"
	FlagLogJSON = "log-json"
)

// Env is everything a subcommand needs to talk to the database.
type Env struct {
	Config *config.Config
	Logger *zap.Logger
	Driver *sqlite.Driver
	DBPath string

	// ConfigPath is the file Config was read from, which may not exist.
	ConfigPath string

	providers *Providers
	limiter   *ratelimit.Limiter
}

// Load reads the config named by --config, builds the logger on logOut and
// opens the SQLite database (sqliteOverride wins over the config).
func Load(ctx context.Context, cmd *cobra.Command, sqliteOverride string, logOut io.Writer) (*Env, error) {
	cfgPath, _ := cmd.Flags().GetString(FlagConfig)
	debug, _ := cmd.Flags().GetBool(FlagDebug)
	logJSON, _ := cmd.Flags().GetBool(FlagLogJSON)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	log := logger.NewLogger(logger.Options{
		Debug:  debug || cfg.Log.Debug,
		JSON:   logJSON || cfg.Log.JSON,
		Output: logOut,
	})

	dbPath, err := sqlitepath.ResolveSQLitePath(sqliteOverride, cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("could not resolve database: %w", err)
	}

	driver, err := sqlite.NewDriver(ctx, dbPath)
	if err != nil {
		return nil, fmt.Errorf("could not open database %s: %w", dbPath, err)
	}

	log.Debug("opened database", zap.String("path", dbPath))

	// Only an unresolvable home directory fails here, and Load already
	// tolerated that.
	cfgFile, _ := config.Path(cfgPath)

	return &Env{
		Config:     cfg,
		Logger:     log,
		Driver:     driver,
		DBPath:     dbPath,
		ConfigPath: cfgFile,
		providers:  NewProviders(cfg),
		limiter:    ratelimit.New(cfg.Limits.GeneratePerMinute),
	}, nil
}

// Close releases the database and flushes the logger.
func (e *Env) Close() {
	e.Driver.Close()
	e.Logger.Sync()
}

// Providers hands out the OpenAI provider for the current LLM settings. The
// provider is built on first use and rebuilt after Update.
type Providers struct {
	build atomic.Pointer[func() (*openai.Provider, error)]
}

// NewProviders creates Providers for cfg.
func NewProviders(cfg *config.Config) *Providers {
	p := &Providers{}
	p.Update(cfg)
	return p
}

// Update switches to cfg's LLM settings. Generations already in flight keep
// the provider they started with.
func (p *Providers) Update(cfg *config.Config) {
	opts := cfg.ProviderOptions()
	build := sync.OnceValues(func() (*openai.Provider, error) {
		return openai.New(opts...)
	})
	p.build.Store(&build)
}

// Current returns the provider for the latest settings. A missing API key is
// returned on every call so it reaches the user through the generation
// failure path.
func (p *Providers) Current() (*openai.Provider, error) {
	return (*p.build.Load())()
}

// Factory adapts Current to a postgen.ProviderFactory.
func (p *Providers) Factory() postgen.ProviderFactory {
	return func() (llm.Provider, error) {
		prov, err := p.Current()
		if err != nil {
			return nil, err
		}
		return prov, nil
	}
}

// NewGenerator wires the generator to the environment's storage and limits.
func (e *Env) NewGenerator(collector metrics.Collector) *postgen.Generator {
	if collector == nil {
		collector = metrics.NewNoopCollector()
	}
	return postgen.New(e.providers.Factory(), e.Logger,
		postgen.WithDrafts(e.Driver),
		postgen.WithLimiter(e.limiter),
		postgen.WithMetrics(collector),
	)
}

// Reload applies the settings that can change while running: the LLM section
// and the generation limit. The listen address, database and logging need a
// restart.
func (e *Env) Reload(cfg *config.Config) {
	e.providers.Update(cfg)
	e.limiter.SetRate(cfg.Limits.GeneratePerMinute)

	e.Logger.Info("applied reloaded config",
		zap.String("model", cfg.LLM.Model),
		zap.String("llm_base_url", cfg.LLM.BaseURL),
		zap.Int("generate_per_minute", cfg.Limits.GeneratePerMinute),
	)
}
