package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"engagectl/internal/bootstrap"
	engagementinadapter "engagectl/internal/modules/engagement/adapter/in"
	"engagectl/internal/modules/engagement/domain"
	"engagectl/internal/platform/config"
	"engagectl/internal/platform/logsink"
	"engagectl/internal/platform/metrics"
	"engagectl/internal/ui/theme"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	dataDir    string
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "engagectl",
		Short:         "Run scripted engagement sessions against test targets",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", ".engagectl", "directory holding config, database and reports")
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default <data-dir>/engagectl.yaml)")

	root.AddCommand(newRunCmd(opts))
	root.AddCommand(newTUICmd(opts))
	root.AddCommand(newPresetsCmd(opts))
	root.AddCommand(newProfilesCmd(opts))
	root.AddCommand(newConfigCmd(opts))
	root.AddCommand(newPluginCmd(opts))
	root.AddCommand(newHistoryCmd(opts))
	return root
}

func loadApp(opts *rootOptions, appOpts bootstrap.Options) (*bootstrap.App, error) {
	cfg, err := config.Load(opts.dataDir, opts.configPath)
	if err != nil {
		return nil, err
	}
	return bootstrap.New(cfg, appOpts)
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	var flags engagementinadapter.StartFlags
	var logFile, metricsAddr string

	cmd := &cobra.Command{
		Use:   "run [preset...]",
		Short: "Run sessions in the foreground until they finish or are interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := loadApp(opts, bootstrap.Options{})
			if err != nil {
				return err
			}
			var logOut io.Writer
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
				if err != nil {
					_ = app.Close()
					return fmt.Errorf("open log file: %w", err)
				}
				defer f.Close()
				logOut = f
			}
			if metricsAddr == "" {
				metricsAddr = app.Config.Metrics.Addr
			}

			var g errgroup.Group
			g.Go(func() error {
				return printEvents(app.Sink, cmd.OutOrStdout(), logOut)
			})
			var server *http.Server
			if metricsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", metrics.Handler())
				server = &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
				g.Go(func() error {
					if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
						return fmt.Errorf("metrics server: %w", err)
					}
					return nil
				})
			}

			started, runErr := app.EngagementCLI.Run(ctx, args, flags)
			if runErr == nil {
				for _, s := range started {
					if err := app.EngagementCLI.Wait(ctx, s.Name); err != nil {
						break
					}
				}
				if ctx.Err() != nil {
					_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "interrupted, stopping sessions")
				}
			}

			shutdownErr := app.Shutdown(context.Background())
			if server != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				_ = server.Shutdown(shutdownCtx)
				cancel()
			}
			var failed int
			if runErr == nil {
				failed = printSummary(cmd, app)
			}
			closeErr := app.Close()
			groupErr := g.Wait()
			if err := errors.Join(runErr, shutdownErr, closeErr, groupErr); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d session(s) failed", failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.Name, "name", "", "session name (default: preset name)")
	cmd.Flags().StringVar(&flags.Target, "target", "", "target override")
	cmd.Flags().DurationVar(&flags.Duration, "duration", 0, "session duration override")
	cmd.Flags().IntVar(&flags.Repetitions, "reps", 0, "number of action attempts override")
	cmd.Flags().StringVar(&flags.Intensity, "intensity", "", "intensity profile: "+strings.Join(domain.PresetNames(), "|"))
	cmd.Flags().StringSliceVar(&flags.Actions, "actions", nil, "action kinds: visit,watch,like,comment,share,reaction")
	cmd.Flags().IntVar(&flags.AbortAfter, "abort-after", 0, "fail the session after this many consecutive failures")
	cmd.Flags().StringVar(&logFile, "log-file", "", "also append events to this file")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}

// printEvents renders sink events until the sink is closed and drained.
func printEvents(sink *logsink.Sink, out io.Writer, file io.Writer) error {
	for {
		event, err := sink.Next(context.Background())
		if errors.Is(err, logsink.ErrClosed) {
			return nil
		}
		if err != nil {
			return err
		}
		line := event.String()
		_, _ = fmt.Fprintln(out, theme.Severity(event.Severity).Render(line))
		if file != nil {
			if _, err := fmt.Fprintln(file, line); err != nil {
				return fmt.Errorf("write log file: %w", err)
			}
		}
	}
}

func printSummary(cmd *cobra.Command, app *bootstrap.App) int {
	sessions, err := app.EngagementCLI.List(context.Background())
	if err != nil {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), err)
		return 0
	}
	failed := 0
	for _, s := range sessions {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s %s target=%s actions=%d run=%s",
			s.Name, theme.State(s.State).Render(s.State), s.Target, s.ActionCount, s.RunID)
		if s.Error != "" {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), " error=%q", s.Error)
		}
		_, _ = fmt.Fprintln(cmd.ErrOrStderr())
		if s.State == "failed" {
			failed++
		}
	}
	return failed
}

func newTUICmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Run the interactive dashboard",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := os.MkdirAll(opts.dataDir, 0o755); err != nil {
				return fmt.Errorf("create data dir: %w", err)
			}
			logFile, err := os.OpenFile(filepath.Join(opts.dataDir, "engagectl.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			defer logFile.Close()

			app, err := loadApp(opts, bootstrap.Options{LogOutput: logFile})
			if err != nil {
				return err
			}
			runErr := bootstrap.RunTUI(cmd.Context(), app)
			return errors.Join(runErr, app.Close())
		},
	}
}

func newPresetsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List configured session presets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(opts, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer app.Close()
			presets, err := app.EngagementCLI.Presets(context.Background())
			if err != nil {
				return err
			}
			if len(presets) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no presets configured")
				return nil
			}
			for _, p := range presets {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s target=%s duration=%s reps=%d intensity=%s delay=%s..%s chance=%.2f actions=%s\n",
					p.Name, p.Target, p.Duration, p.Repetitions, p.Intensity, p.DelayMin, p.DelayMax, p.Chance, strings.Join(p.Actions, ","))
			}
			return nil
		},
	}
}

func newProfilesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List intensity profiles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(opts, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer app.Close()
			for _, p := range app.EngagementCLI.Profiles(context.Background()) {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%-7s delay=%s..%s chance=%.2f\n", p.Name, p.DelayMin, p.DelayMax, p.Chance)
			}
			return nil
		},
	}
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cfgCmd := &cobra.Command{Use: "config", Short: "Config file operations"}
	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := opts.configPath
			if path == "" {
				path = filepath.Join(opts.dataDir, config.FileName)
			}
			if err := config.Write(path, config.Default(opts.dataDir)); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	})
	return cfgCmd
}

func newPluginCmd(opts *rootOptions) *cobra.Command {
	plugin := &cobra.Command{Use: "plugin", Short: "Plugin operations"}
	plugin.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List plugin manifests",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(opts, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer app.Close()
			plugins, err := app.PluginCLI.List(context.Background())
			if err != nil {
				return err
			}
			if len(plugins) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no plugins configured")
				return nil
			}
			for _, p := range plugins {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s@%s enabled=%t binary=%s capabilities=%s\n", p.Name, p.Version, p.Enabled, p.Binary, strings.Join(p.Capabilities, ","))
			}
			return nil
		},
	})

	plugin.AddCommand(&cobra.Command{
		Use:   "doctor",
		Short: "Validate plugin checksums and lifecycle",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(opts, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer app.Close()
			results, err := app.PluginCLI.Doctor(context.Background())
			if err != nil {
				return err
			}
			if len(results) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no plugins configured")
				return nil
			}
			for _, r := range results {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s checksum=%t binary=%t lifecycle=%t actions=%s", r.Name, r.ChecksumValid, r.BinaryReachable, r.LifecycleOK, strings.Join(r.Actions, ","))
				if r.Error != "" {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), " error=%q", r.Error)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	})

	var actionsPlugin string
	actionsCmd := &cobra.Command{
		Use:   "actions --plugin <name>",
		Short: "List actions exposed by a plugin",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(actionsPlugin) == "" {
				return fmt.Errorf("--plugin is required")
			}
			app, err := loadApp(opts, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer app.Close()
			actions, err := app.PluginCLI.ListActions(context.Background(), actionsPlugin)
			if err != nil {
				return err
			}
			if len(actions) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no actions")
				return nil
			}
			for _, a := range actions {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s timeout_ms=%d %s\n", a.Kind, a.TimeoutMS, a.Description)
			}
			return nil
		},
	}
	actionsCmd.Flags().StringVar(&actionsPlugin, "plugin", "", "plugin name")
	plugin.AddCommand(actionsCmd)

	var tryPlugin, tryKind, tryTarget string
	var tryDryRun bool
	tryCmd := &cobra.Command{
		Use:   "try --plugin <name> --kind <action> --target <target>",
		Short: "Perform a single action through a plugin",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(tryPlugin) == "" || strings.TrimSpace(tryKind) == "" || strings.TrimSpace(tryTarget) == "" {
				return fmt.Errorf("--plugin, --kind, and --target are required")
			}
			app, err := loadApp(opts, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer app.Close()
			out, err := app.PluginCLI.Try(context.Background(), tryPlugin, tryKind, tryTarget, tryDryRun)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "plugin=%s kind=%s ok=%t fatal=%t elapsed=%s", out.PluginName, out.Kind, out.OK, out.Fatal, out.Elapsed)
			if out.Error != "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), " error=%q", out.Error)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
	tryCmd.Flags().StringVar(&tryPlugin, "plugin", "", "plugin name")
	tryCmd.Flags().StringVar(&tryKind, "kind", "", "action kind")
	tryCmd.Flags().StringVar(&tryTarget, "target", "", "action target")
	tryCmd.Flags().BoolVar(&tryDryRun, "dry-run", false, "ask the plugin not to perform the action")
	plugin.AddCommand(tryCmd)
	return plugin
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	history := &cobra.Command{Use: "history", Short: "Inspect recorded runs"}

	var page int
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(opts, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer app.Close()
			out, err := app.HistoryCLI.Runs(context.Background(), page)
			if err != nil {
				return err
			}
			if out.Total == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded")
				return nil
			}
			for _, r := range out.Runs {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s target=%s ok=%d failed=%d skipped=%d started=%s\n",
					r.RunID, r.Session, r.State, r.Target, r.Succeeded, r.Failed, r.Skipped, r.StartedAt.Local().Format(time.DateTime))
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "page %d/%d (%d runs)\n", out.Page, out.Pages, out.Total)
			return nil
		},
	}
	runsCmd.Flags().IntVar(&page, "page", 1, "page number")
	history.AddCommand(runsCmd)

	history.AddCommand(&cobra.Command{
		Use:   "outcomes <run-id>",
		Short: "Show the recorded action outcomes of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(opts, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer app.Close()
			run, err := app.HistoryCLI.Run(context.Background(), args[0])
			if err != nil {
				return err
			}
			outcomes, err := app.HistoryCLI.Outcomes(context.Background(), args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s target=%s duration=%s\n", run.RunID, run.Session, run.State, run.Target, run.Duration.Round(time.Second))
			for _, o := range outcomes {
				status := "ok"
				if !o.OK {
					status = "failed"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %-8s %-6s elapsed=%s", o.At.Local().Format(time.TimeOnly), o.Kind, status, o.Elapsed)
				if o.Error != "" {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), " error=%q", o.Error)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	})
	return history
}
