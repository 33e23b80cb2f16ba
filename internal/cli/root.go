// Package cli provides the command-line interface for the trading journal.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"trade-journal/internal/config"
	"trade-journal/internal/logging"
)

// Version information
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
)

// skipConfig marks commands that must run before a valid config exists.
const skipConfig = "skip-config"

// App holds the application dependencies.
type App struct {
	ConfigDir string
	Config    *config.Config
	Logger    zerolog.Logger

	cleanup []func()
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd() *cobra.Command {
	app := &App{Logger: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:   "journal",
		Short: "Trade journal for NSE/BSE equity trades",
		Long: `journal records your NSE and BSE trades, computes performance and
trading-psychology analytics, predicts short-term direction from technical
indicators, and reviews trades with an AI model.

Run 'journal serve' to start the HTTP API, or query your journal directly
with 'journal trades list --user you@example.com'.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.close()
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/trade-journal)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("user", "", "email of the journal owner")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newServeCmd(app))
	rootCmd.AddCommand(newTradesCmd(app))
	rootCmd.AddCommand(newStatsCmd(app))
	rootCmd.AddCommand(newInsightsCmd(app))
	rootCmd.AddCommand(newPsychologyCmd(app))
	rootCmd.AddCommand(newPredictCmd(app))
	rootCmd.AddCommand(newQuoteCmd(app))

	return rootCmd
}

func (a *App) setup(cmd *cobra.Command) error {
	a.ConfigDir, _ = cmd.Flags().GetString("config")
	if a.ConfigDir == "" {
		a.ConfigDir = config.DefaultConfigDir()
	}
	if cmd.Annotations[skipConfig] == "true" {
		return nil
	}

	cfg, err := config.Load(a.ConfigDir)
	if err != nil {
		return err
	}
	a.Config = cfg

	// Only the server logs to the console; other commands own stdout.
	if cmd.Name() != "serve" {
		cfg.Logging.Console = false
	}
	a.Logger = logging.NewLoggerWithConfig(cfg.Logging)

	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		logging.SetDebugLevel()
		a.Logger = a.Logger.Level(zerolog.DebugLevel)
	}
	return nil
}

func (a *App) onClose(fn func()) {
	a.cleanup = append(a.cleanup, fn)
}

func (a *App) close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
	a.cleanup = nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("Trade Journal v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:         "path",
		Short:       "Show configuration directory path",
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{"path": app.ConfigDir})
			}
			output.Println(app.ConfigDir)
			return nil
		},
	})

	initCmd := &cobra.Command{
		Use:         "init",
		Short:       "Write commented config.toml and credentials.toml templates",
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			force, _ := cmd.Flags().GetBool("force")
			written, err := config.WriteTemplates(app.ConfigDir, force)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"written": written})
			}
			if len(written) == 0 {
				output.Warning("Configuration already exists in %s (use --force to overwrite)", app.ConfigDir)
				return nil
			}
			for _, path := range written {
				output.Success("✓ Wrote %s", path)
			}
			return nil
		},
	}
	initCmd.Flags().Bool("force", false, "overwrite existing files")
	cmd.AddCommand(initCmd)

	cmd.AddCommand(&cobra.Command{
		Use:         "validate",
		Short:       "Validate configuration files",
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if _, err := config.Load(app.ConfigDir); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Server")
	output.Printf("  Address:         %s\n", cfg.Server.Addr)
	output.Printf("  CORS Origin:     %s\n", cfg.Server.CORSOrigin)
	output.Printf("  Timezone:        %s\n", cfg.Server.Timezone)
	output.Printf("  Database:        %s\n", cfg.Database.Path)
	output.Println()

	output.Bold("Market Data")
	output.Printf("  Provider:        %s\n", cfg.MarketData.Provider)
	output.Printf("  History Range:   %s\n", cfg.MarketData.HistoryRange)
	output.Printf("  Requests/min:    %d\n", cfg.MarketData.RequestsPerMinute)
	output.Printf("  Cache TTL:       %s\n", cfg.MarketData.CacheTTL)
	output.Println()

	output.Bold("AI Analysis")
	output.Printf("  Provider:        %s\n", cfg.AI.Provider)
	output.Printf("  Models:          %v\n", cfg.AI.Models)
	key := cfg.AIAPIKey()
	if key == "" {
		output.Printf("  API Key:         %s\n", "not configured")
	} else {
		output.Printf("  API Key:         %s\n", logging.MaskSecret(key))
	}
	output.Println()

	output.Bold("Cache")
	output.Printf("  Redis:           %v (%s)\n", cfg.Redis.Enabled, cfg.Redis.Addr)
	output.Println()

	output.Bold("Auth")
	output.Printf("  Session TTL:     %s\n", cfg.Auth.SessionTTL)
	output.Printf("  Audit Log:       %v\n", cfg.Auth.AuditLog)
}
