package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"option-journal/internal/config"
	"option-journal/internal/logging"
	"option-journal/internal/marketdata"
	"option-journal/internal/store"
)

// Version information
const (
	Version = "0.1.0"
)

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Store  store.DataStore
	Market *marketdata.Service
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	dataStore, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, journal commands will be unavailable")
	} else {
		app.Store = dataStore
		logger.Debug().Str("path", cfg.Database.Path).Msg("SQLite store initialized")
	}

	finnhub := marketdata.NewFinnhubClient(marketdata.FinnhubConfig{
		APIKey:  cfg.MarketData.FinnhubAPIKey,
		BaseURL: cfg.MarketData.FinnhubBaseURL,
		Timeout: cfg.MarketData.Timeout,
	})
	yahoo := marketdata.NewYahooClient(marketdata.YahooConfig{
		BaseURL: cfg.MarketData.YahooBaseURL,
		Timeout: cfg.MarketData.Timeout,
	})
	app.Market = marketdata.NewService(finnhub, yahoo, logger)
	if cfg.MarketData.FinnhubAPIKey == "" {
		logger.Debug().Msg("No Finnhub API key configured, chain lookups will fail")
	}

	rootCmd := &cobra.Command{
		Use:   "option-journal",
		Short: "Options trading journal with live chain lookups",
		Long: `Option Journal is a trading journal for options sellers and buyers.

It records trades with their strike, entry price, and expiration, derives
P&L, breakeven, and probability of profit, and validates entries against
live option chains.

Use 'option-journal help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/option-journal)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addCoreCommands(rootCmd, app)
	addTradeCommands(rootCmd, app)
	addChainCommands(rootCmd, app)
	addServeCommand(rootCmd, app)

	return rootCmd
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"version": Version})
			} else {
				output.Printf("Option Journal v%s\n", Version)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			return showConfig(output, app.Config)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) error {
	output.Bold("Server")
	output.Printf("  Addr:            %s\n", cfg.Server.Addr)
	output.Println()

	output.Bold("Database")
	output.Printf("  Path:            %s\n", cfg.Database.Path)
	output.Println()

	output.Bold("Market Data")
	key := "(not set)"
	if cfg.MarketData.FinnhubAPIKey != "" {
		key = "(configured)"
	}
	output.Printf("  Finnhub Key:     %s\n", key)
	output.Printf("  Finnhub URL:     %s\n", cfg.MarketData.FinnhubBaseURL)
	output.Printf("  Yahoo URL:       %s\n", cfg.MarketData.YahooBaseURL)
	output.Printf("  Timeout:         %s\n", cfg.MarketData.Timeout)
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:           %s\n", cfg.Logging.Level)
	output.Printf("  File:            %s\n", cfg.Logging.FilePath)

	return nil
}
