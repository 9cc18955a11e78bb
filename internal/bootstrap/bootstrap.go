package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	engagementinadapter "engagectl/internal/modules/engagement/adapter/in"
	engagementoutadapter "engagectl/internal/modules/engagement/adapter/out"
	engagementout "engagectl/internal/modules/engagement/port/out"
	engagementservice "engagectl/internal/modules/engagement/service"
	engagementusecase "engagectl/internal/modules/engagement/usecase"
	historyinadapter "engagectl/internal/modules/history/adapter/in"
	historyoutadapter "engagectl/internal/modules/history/adapter/out"
	historyservice "engagectl/internal/modules/history/service"
	historyusecase "engagectl/internal/modules/history/usecase"
	plugininadapter "engagectl/internal/modules/plugin/adapter/in"
	pluginoutadapter "engagectl/internal/modules/plugin/adapter/out"
	pluginservice "engagectl/internal/modules/plugin/service"
	pluginusecase "engagectl/internal/modules/plugin/usecase"
	"engagectl/internal/platform/clock"
	"engagectl/internal/platform/config"
	"engagectl/internal/platform/id"
	"engagectl/internal/platform/logging"
	"engagectl/internal/platform/logsink"
	uiapp "engagectl/internal/ui/app"
)

type App struct {
	Config        config.Config
	Logger        logging.Logger
	Sink          *logsink.Sink
	EngagementCLI engagementinadapter.CLIHandler
	HistoryCLI    historyinadapter.CLIHandler
	PluginCLI     plugininadapter.CLIHandler

	closers []func() error
}

// Options holds process-level wiring that does not belong in the config file.
type Options struct {
	// LogOutput receives diagnostic logs; nil means stderr.
	LogOutput io.Writer
}

func New(cfg config.Config, opts Options) (*App, error) {
	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: opts.LogOutput})
	if err != nil {
		return nil, fmt.Errorf("new logger: %w", err)
	}
	clk := clock.SystemClock{}
	sink := logsink.New(cfg.Sink.Capacity)
	app := &App{Config: cfg, Logger: logger, Sink: sink}

	runStore, err := engagementoutadapter.NewSQLiteRunStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("new run store: %w", err)
	}
	app.closers = append(app.closers, runStore.Close)

	runReader, err := historyoutadapter.NewSQLiteRunReader(cfg.DBPath)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("new run reader: %w", err)
	}
	app.closers = append(app.closers, runReader.Close)

	host := pluginoutadapter.NewGRPCHost()
	app.closers = append(app.closers, host.Close)
	pluginUC := pluginusecase.NewInteractor(pluginservice.NewPluginService(
		pluginoutadapter.NewFileManifestStore(cfg.DataDir),
		host,
	))

	var executor engagementout.ActionExecutor
	switch cfg.Executor.Kind {
	case config.ExecutorPlugin:
		executor = engagementoutadapter.NewPluginExecutor(pluginUC, cfg.Executor.Plugin)
	default:
		executor = engagementoutadapter.NewSimulatedExecutor(clk, nil, cfg.Executor.FailureRate, cfg.Executor.Speed)
	}

	loop := engagementservice.NewLoop(engagementservice.LoopDeps{
		Executor: executor,
		Recorder: runStore,
		Sink:     sink,
		Clock:    clk,
		Sleeper:  clk,
		Logger:   logger,
	})
	registry := engagementservice.NewRegistry(engagementservice.RegistryDeps{
		Loop:    loop,
		Sink:    sink,
		Clock:   clk,
		IDs:     id.ULID{},
		Runs:    runStore,
		Reports: engagementoutadapter.NewVaultReportStore(cfg.ReportsDir),
		Logger:  logger,
	})
	engagementUC := engagementusecase.NewInteractor(registry, cfg.Sessions)
	historyUC := historyusecase.NewInteractor(historyservice.NewHistoryService(runReader))

	app.EngagementCLI = engagementinadapter.NewCLIHandler(engagementUC)
	app.HistoryCLI = historyinadapter.NewCLIHandler(historyUC)
	app.PluginCLI = plugininadapter.NewCLIHandler(pluginUC)
	logger.Debug("app ready", "data_dir", cfg.DataDir, "db", cfg.DBPath, "executor", cfg.Executor.Kind)
	return app, nil
}

// Shutdown stops every session and waits, up to the configured timeout, for
// their runs to be persisted.
func (a *App) Shutdown(ctx context.Context) error {
	if a.Config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Config.ShutdownTimeout)
		defer cancel()
	}
	if err := a.EngagementCLI.Shutdown(ctx); err != nil {
		a.Logger.Warn("shutdown incomplete", "error", err)
		return err
	}
	return nil
}

// Close releases stores and plugin processes and closes the sink. Call it
// after Shutdown.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	a.Sink.Close()
	return errors.Join(errs...)
}

// RunTUI runs the dashboard until the user quits, then waits for the sessions
// it stopped.
func RunTUI(ctx context.Context, app *App) error {
	uiCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := uiapp.NewModel(uiCtx, app.EngagementCLI, app.EngagementCLI, app.Sink, app.HistoryCLI, app.PluginCLI, defaultTarget(app.Config))
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(uiCtx))
	_, runErr := program.Run()

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownWait(app.Config))
	defer stop()
	shutdownErr := app.Shutdown(shutdownCtx)
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return runErr
	}
	return shutdownErr
}

func defaultTarget(cfg config.Config) string {
	for _, name := range cfg.PresetNames() {
		if target := cfg.Sessions[name].Target; target != "" {
			return target
		}
	}
	return "example"
}

func shutdownWait(cfg config.Config) time.Duration {
	if cfg.ShutdownTimeout > 0 {
		return cfg.ShutdownTimeout
	}
	return 10 * time.Second
}
