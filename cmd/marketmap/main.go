// marketmap serves an S&P 500 sector treemap: a refreshable JSON document
// of daily price changes plus live quote and chart lookups. Subcommands:
// serve, refresh, status and version.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/seenimoa/marketmap/api"
	"github.com/seenimoa/marketmap/internal/config"
	"github.com/seenimoa/marketmap/internal/logging"
	"github.com/seenimoa/marketmap/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config and logger, set by the root PersistentPreRunE.
var (
	cfg    *config.Config
	logger *zap.Logger
)

func main() {
	err := rootCmd.Execute()
	if logger != nil {
		_ = logger.Sync()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "marketmap",
	Short: "S&P 500 sector treemap server",
	Long: `marketmap fetches daily changes for a fixed S&P 500 sample, folds them
into a sector treemap document and serves it, together with live quote and
chart endpoints, to the browser client.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Logging.Level = lvl
		}
		logger, err = logging.New(cfg.Logging.Level, cfg.Logging.Format)
		if err != nil {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(statusCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("marketmap %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Serve Command ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.API.Port = port
		}

		app := build(cfg, logger)
		defer app.Close()

		srv := api.NewServer(cfg, api.Deps{
			Refresh:  app.Refresh,
			Market:   app.Market,
			Engine:   app.Engine,
			Store:    app.Store,
			Registry: app.Registry,
			Logger:   logger,
		})

		fmt.Printf("\n  S&P 500 Treemap Server\n")
		fmt.Printf("  ======================\n")
		fmt.Printf("  Open: http://localhost:%d\n", cfg.API.Port)
		fmt.Printf("  Press Ctrl+C to stop\n\n")

		if err := srv.ListenAndServe(cfg.Addr()); err != nil {
			return err
		}
		fmt.Println("Server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (overrides api.port)")
}

// --- Refresh Command ---

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch the universe once and write the treemap document",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := build(cfg, logger)
		defer app.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Fetching %d tickers...\n", len(app.Registry.ProviderSymbols()))
		res, err := app.Refresh.Run(ctx)
		if err != nil {
			return fmt.Errorf("refresh failed: %w", err)
		}
		fmt.Printf("Done! %d succeeded, %d failed\n", res.Resolved, res.Failed)
		fmt.Printf("Saved to %s\n", app.Store.Path())
		return nil
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show market status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  marketmap status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Printf("  Market Status: %s\n", utils.MarketStatus())
		fmt.Printf("  Time (ET):     %s\n", utils.FormatDateTimeET(utils.NowET()))
		fmt.Println()

		// Config summary
		fmt.Println("  Configuration:")
		fmt.Printf("    API Server:    %s\n", cfg.Addr())
		fmt.Printf("    Document:      %s\n", cfg.Data.Path)
		fmt.Printf("    Lookback:      %s\n", cfg.Data.Lookback)
		fmt.Printf("    Provider:      %s\n", cfg.Provider.BaseURL)
		cacheDesc := "in-memory"
		if cfg.Cache.RedisAddr != "" {
			cacheDesc = "redis " + cfg.Cache.RedisAddr
		}
		fmt.Printf("    Cache:         %s (ttl %s)\n", cacheDesc, cfg.Cache.TTL)
		eventsDesc := "disabled"
		if len(cfg.Events.KafkaBrokers) > 0 {
			eventsDesc = fmt.Sprintf("kafka %v topic %s", cfg.Events.KafkaBrokers, cfg.Events.Topic)
		}
		fmt.Printf("    Events:        %s\n", eventsDesc)
		fmt.Println()

		// Secrets status
		fmt.Println("  Secrets:")
		for _, k := range config.CheckKeys(cfg) {
			status := "not set"
			if k.IsSet {
				status = fmt.Sprintf("set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("    %-25s %s\n", k.Name+":", status)
		}

		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}
