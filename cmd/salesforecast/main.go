package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/aouyang1/go-salesforecast"
	"github.com/aouyang1/go-salesforecast/config"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

type rootFlags struct {
	configFile string
	envFile    string
	logLevel   string
	cpuProfile string
	outputDir  string

	profiler interface{ Stop() }
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "salesforecast",
		Short: "Forecast daily retail sales per store and product family",
		Long: `Loads the store sales tables, fills every store and family series onto a daily
calendar and compares seasonal naive, exponential smoothing, ARIMA and Prophet style
forecasts against the days held out after the cutoff.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flags.cpuProfile != "" {
				flags.profiler = profile.Start(
					profile.CPUProfile,
					profile.ProfilePath(flags.cpuProfile),
					profile.NoShutdownHook,
					profile.Quiet,
				)
			}
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if flags.profiler != nil {
				flags.profiler.Stop()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "Config file (yaml or json)")
	rootCmd.PersistentFlags().StringVar(&flags.envFile, "env-file", config.DefaultEnvFile, "Env file loaded before the environment is read")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level overriding the config (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flags.cpuProfile, "cpuprofile", "", "Directory to write a cpu profile to")
	rootCmd.PersistentFlags().StringVarP(&flags.outputDir, "output", "o", "", "Output directory overriding the config")

	rootCmd.AddCommand(runCmd(flags))
	rootCmd.AddCommand(exploreCmd(flags))
	rootCmd.AddCommand(closuresCmd(flags))
	return rootCmd
}

// setup loads the config, installs the logger and builds the pipeline
func (f *rootFlags) setup(cmd *cobra.Command) (*salesforecast.Pipeline, *salesforecast.Options, error) {
	cfg, err := config.Load(f.configFile, f.envFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if f.logLevel != "" {
		if _, err := config.ParseLevel(f.logLevel); err != nil {
			return nil, nil, err
		}
		cfg.LogLevel = f.logLevel
	}
	if f.outputDir != "" {
		cfg.Options.OutputDir = f.outputDir
	}
	setDefaultLogger(cfg, cmd)

	p, err := salesforecast.New(cfg.Options)
	if err != nil {
		return nil, nil, err
	}
	return p, cfg.Options, nil
}

// runCmd fits, forecasts and scores every model
func runCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Fit every model and compare the forecasts over the held out days",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, opt, err := flags.setup(cmd)
			if err != nil {
				return err
			}
			report, err := p.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to run pipeline: %w", err)
			}
			if err := report.TablePrint(cmd.OutOrStdout(), "", "  "); err != nil {
				return err
			}
			if opt.OutputDir != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Report saved to %s\n", filepath.Join(opt.OutputDir, salesforecast.ReportFile))
			}
			return nil
		},
	}
}

// exploreCmd renders the exploratory charts
func exploreCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "explore",
		Short: "Render sales, transaction and distribution charts",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, opt, err := flags.setup(cmd)
			if err != nil {
				return err
			}
			if opt.OutputDir == "" {
				return p.Explore(cmd.Context(), cmd.OutOrStdout())
			}
			if err := os.MkdirAll(opt.OutputDir, 0o755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
			path := filepath.Join(opt.OutputDir, salesforecast.ExploreFile)
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("failed to create chart file: %w", err)
			}
			defer f.Close()
			if err := p.Explore(cmd.Context(), f); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Charts saved to %s\n", path)
			return nil
		},
	}
}

// closuresCmd checks the zero filled days against the closure calendar
func closuresCmd(flags *rootFlags) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "closures",
		Short: "Check that every zero filled day is a known store closure",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := flags.setup(cmd)
			if err != nil {
				return err
			}
			checks, err := p.Closures(cmd.Context())
			if err != nil {
				return err
			}
			if err := salesforecast.ClosuresTablePrint(cmd.OutOrStdout(), checks, "", "  "); err != nil {
				return err
			}
			if !strict {
				return nil
			}
			for _, c := range checks {
				if !c.Consistent() {
					return fmt.Errorf("%s has %d filled days without a known closure", c.Series, len(c.Unexplained))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when any filled day is unexplained")
	return cmd
}
