package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/dvloznov/imoveis-tracker/internal/app"
	"github.com/dvloznov/imoveis-tracker/internal/config"
	"github.com/dvloznov/imoveis-tracker/internal/domain"
	"github.com/dvloznov/imoveis-tracker/internal/engine"
	"github.com/dvloznov/imoveis-tracker/internal/logger"
	"github.com/dvloznov/imoveis-tracker/internal/renderer"
	"github.com/dvloznov/imoveis-tracker/internal/store"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"
)

var (
	envFile     = flag.String("env", "", "Optional .env file (defaults to ./.env when present)")
	storeDriver = flag.String("store", "", "Entry store: memory, postgres or sqlite (defaults to STORE_DRIVER, else sqlite)")
	plain       = flag.Bool("plain", false, "Print raw markdown instead of rendering it")
)

// runtime is what a command works with: the configuration, the opened
// backends and a session over the entry store.
type runtime struct {
	cfg      config.Config
	log      zerolog.Logger
	backends *app.Backends
	sess     *engine.Session
}

func loadConfig() (config.Config, error) {
	var files []string
	if *envFile != "" {
		files = append(files, *envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return cfg, err
	}
	switch {
	case *storeDriver != "":
		cfg.StoreDriver = *storeDriver
	case os.Getenv("STORE_DRIVER") == "":
		// a one-shot process needs a store that outlives it
		cfg.StoreDriver = config.DriverSQLite
	}
	if _, ok := os.LookupEnv("LOG_LEVEL"); !ok {
		cfg.LogLevel = "warn"
	}
	return cfg, cfg.Validate()
}

// openRuntime opens everything and, when imovel is set, selects it.
func openRuntime(ctx context.Context, imovel string, cenario domain.Cenario) (*runtime, context.Context, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, ctx, err
	}
	log := logger.NewForFormat(cfg.LogFormat, cfg.LogLevel)
	ctx = logger.WithContext(ctx, log)

	backends, err := app.Open(ctx, cfg, log)
	if err != nil {
		return nil, ctx, err
	}

	var listeners []store.RenameListener
	if backends.Notion != nil {
		listeners = append(listeners, backends.Notion)
	}
	rt := &runtime{
		cfg:      cfg,
		log:      log,
		backends: backends,
		sess: engine.NewSession(backends.Store,
			engine.WithLogger(log),
			engine.WithUndoWindow(cfg.UndoWindow),
			engine.WithRenameListeners(listeners...),
		),
	}

	if imovel != "" {
		if err := rt.sess.Select(ctx, imovel); err != nil {
			rt.close()
			return nil, ctx, err
		}
	}
	if cenario != "" {
		if err := rt.sess.SetScenario(cenario); err != nil {
			rt.close()
			return nil, ctx, err
		}
	}
	return rt, ctx, nil
}

func (rt *runtime) close() {
	// a deletion is final once the process exits
	rt.sess.Close()
	if err := rt.backends.Close(); err != nil {
		rt.log.Error().Err(err).Msg("Failed to close backends")
	}
}

// showActive prints the view of the active property.
func (rt *runtime) showActive(ctx context.Context) subcommands.ExitStatus {
	v, err := rt.sess.View(ctx)
	if err != nil {
		return fail(err)
	}
	printMarkdown(renderer.PropertyMarkdown(v))
	return subcommands.ExitSuccess
}

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, "Error:", err)
	return subcommands.ExitFailure
}

func usageError(f *flag.FlagSet, msg string) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, msg)
	f.Usage()
	return subcommands.ExitUsageError
}

func printMarkdown(md string) {
	if *plain {
		fmt.Print(md)
		return
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err != nil {
		fmt.Print(md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}
