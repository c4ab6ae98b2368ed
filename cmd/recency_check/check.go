package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/jonathan/recency-check/internal/config"
	"github.com/jonathan/recency-check/internal/logging"
	"github.com/jonathan/recency-check/internal/paginate"
	"github.com/jonathan/recency-check/internal/render"
	"github.com/jonathan/recency-check/internal/telemetry"
	"github.com/jonathan/recency-check/internal/verify"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that a listing is sorted newest-first",
	Long: `Runs the batch and/or streaming checker against the listing and prints each verdict.

Configuration precedence: command-line flags, then RECENCY_* environment
variables, then the --config file, then built-in Hacker News defaults.
The exit status is 0 whatever the verdict; a browser that fails to start
yields a false verdict.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

var (
	checkConfigPath string
	checkURL        string
	checkItems      int
	checkPageSize   int
	checkEngine     string
	checkMode       string
	checkHeadless   bool
	checkFormat     string
	checkNavTimeout time.Duration
	checkVerbose    bool
)

func init() {
	// Config file flag (processed first)
	checkCmd.Flags().StringVar(&checkConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	checkCmd.Flags().StringVarP(&checkURL, "url", "u", "", "Listing URL (default https://news.ycombinator.com/newest)")
	checkCmd.Flags().IntVarP(&checkItems, "items", "n", 100, "Number of items to verify")
	checkCmd.Flags().IntVar(&checkPageSize, "page-size", 30, "Items per page")
	checkCmd.Flags().StringVarP(&checkEngine, "engine", "e", config.EngineChromedp, "Render engine: chromedp, rod or http")
	checkCmd.Flags().StringVarP(&checkMode, "mode", "m", config.ModeBoth, "Drivers to run: both, batch or stream")
	checkCmd.Flags().BoolVar(&checkHeadless, "headless", true, "Run the browser headless")
	checkCmd.Flags().StringVarP(&checkFormat, "format", "f", "text", "Output format: text or json")
	checkCmd.Flags().DurationVar(&checkNavTimeout, "nav-timeout", 30*time.Second, "Timeout for one page navigation")
	checkCmd.Flags().BoolVarP(&checkVerbose, "verbose", "v", false, "Print debug logs")

	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	logger := logging.New(cfg.Verbose)
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	report := executeCheck(ctx, cfg, cmd.OutOrStdout(), logger)

	if cfg.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), report)
	}
	return nil
}

// resolveConfig merges flags over environment over config file over defaults.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	// Step 1: Load config file if provided
	var fileCfg config.Config
	if checkConfigPath != "" {
		loaded, err := config.LoadConfig(checkConfigPath)
		if err != nil {
			return config.Config{}, fmt.Errorf("failed to load config: %w", err)
		}
		fileCfg = *loaded
	}

	// Step 2: Environment overrides the file
	envCfg := config.FromEnv()
	cfg := envCfg.MergeWithDefaults(fileCfg)
	cfg.Verbose = envCfg.Verbose || fileCfg.Verbose

	// Step 3: Apply CLI overrides, only for flags explicitly set
	flags := cmd.Flags()
	if flags.Changed("url") {
		cfg.URL = checkURL
	}
	if flags.Changed("items") {
		cfg.ItemsToCheck = checkItems
	}
	if flags.Changed("page-size") {
		cfg.PageSize = checkPageSize
	}
	if flags.Changed("engine") {
		cfg.Engine = checkEngine
	}
	if flags.Changed("mode") {
		cfg.Mode = checkMode
	}
	if flags.Changed("headless") {
		headless := checkHeadless
		cfg.Headless = &headless
	}
	if flags.Changed("format") {
		cfg.Format = checkFormat
	}
	if flags.Changed("nav-timeout") {
		cfg.NavigationTimeout = config.Duration(checkNavTimeout)
	}
	if flags.Changed("verbose") {
		cfg.Verbose = checkVerbose
	}

	// Step 4: Apply defaults for unset values
	cfg = cfg.MergeWithDefaults(config.Defaults())

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// executeCheck runs the configured drivers one after another, each in its
// own session, printing verdicts as it goes. Failures never escape: they
// become false verdicts in the returned report.
func executeCheck(ctx context.Context, cfg config.Config, out io.Writer, logger *log.Logger) Report {
	report := Report{
		URL:       cfg.URL,
		Engine:    cfg.Engine,
		Items:     cfg.ItemsToCheck,
		StartedAt: time.Now().UTC(),
	}

	// Telemetry boxes stay off stdout when it carries JSON.
	verdicts, telemetryOut := out, out
	if cfg.Format == "json" {
		verdicts, telemetryOut = io.Discard, os.Stderr
	}

	opts := verify.Options{
		Layout:    cfg.Layout(),
		Paginator: paginate.New(cfg.NextSelector, cfg.ResponseHost, time.Duration(cfg.NavigationTimeout), logger),
		Reporter:  telemetry.NewReporter(telemetryOut),
		Logger:    logger,
	}
	drivers := selectDrivers(cfg.Mode, opts)

	engine, engineErr := openEngine(ctx, cfg, logger)
	if engineErr != nil {
		logger.Error("failed to start render engine", "engine", cfg.Engine, "err", engineErr)
	} else {
		defer func() {
			if err := engine.Close(); err != nil {
				logger.Warn("failed to close render engine", "err", err)
			}
		}()
	}

	for _, d := range drivers {
		var dr DriverReport
		if engineErr != nil {
			dr = sessionFailure(opts.Reporter, d.Name(), cfg.ItemsToCheck, time.Now(), engineErr)
		} else {
			dr = runDriver(ctx, engine, d, cfg, opts.Reporter, logger)
		}
		writeVerdict(verdicts, dr)
		report.Results = append(report.Results, dr)
	}

	return report
}

func runDriver(ctx context.Context, engine render.Engine, d verify.Driver, cfg config.Config, reporter *telemetry.Reporter, logger *log.Logger) DriverReport {
	start := time.Now()
	session, err := engine.NewSession(ctx, cfg.URL)
	if err != nil {
		logger.Error("failed to open session", "driver", d.Name(), "url", cfg.URL, "err", err)
		return sessionFailure(reporter, d.Name(), cfg.ItemsToCheck, start, err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("failed to close session", "driver", d.Name(), "err", err)
		}
	}()

	return newDriverReport(d.Check(ctx, session, cfg.ItemsToCheck))
}

func selectDrivers(mode string, opts verify.Options) []verify.Driver {
	switch mode {
	case config.ModeBatch:
		return []verify.Driver{verify.NewBatchDriver(opts)}
	case config.ModeStream:
		return []verify.Driver{verify.NewStreamDriver(opts)}
	default:
		return []verify.Driver{verify.NewBatchDriver(opts), verify.NewStreamDriver(opts)}
	}
}

func openEngine(ctx context.Context, cfg config.Config, logger *log.Logger) (render.Engine, error) {
	timeout := time.Duration(cfg.NavigationTimeout)
	switch cfg.Engine {
	case config.EngineRod:
		return render.NewRodEngine(ctx, render.RodOptions{
			RemoteURL:         cfg.RemoteURL,
			Headless:          cfg.IsHeadless(),
			NavigationTimeout: timeout,
			Logger:            logger,
		})
	case config.EngineHTTP:
		return render.NewHTTPEngine(render.HTTPOptions{
			Timeout: timeout,
			Logger:  logger,
		}), nil
	default:
		return render.NewChromeEngine(ctx, render.ChromeOptions{
			Headless:          cfg.IsHeadless(),
			NavigationTimeout: timeout,
			Logger:            logger,
		})
	}
}
