package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/pennywise/internal/cli"
	"github.com/Veraticus/pennywise/internal/common"
	"github.com/Veraticus/pennywise/internal/config"
)

var version = "dev"

// env carries the per-invocation configuration shared by every command.
type env struct {
	v       *viper.Viper
	cfg     *config.Config
	cfgFile string
	envFile string
}

func newRootCmd() *cobra.Command {
	e := &env{v: viper.New()}
	config.SetDefaults(e.v)

	rootCmd := &cobra.Command{
		Use:   "pennywise",
		Short: "🪙 Personal ledger for accounts, categories and transactions",
		Long: `pennywise: a personal finance ledger that keeps account balances exact,
files every transaction under an income or expense category tree, and
summarizes where the money went.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return e.initConfig()
		},
	}

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&e.cfgFile, "config", "", "config file (default: $HOME/.config/pennywise/config.yaml)")
	flags.StringVar(&e.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "console", "log format (console, json)")
	flags.String("db", "", "database path (default: "+config.DefaultDatabasePath+")")
	flags.String("owner", "", "owner whose ledger is used")
	flags.String("timezone", "", "IANA timezone for date ranges and charts")

	// Bind flags to viper
	_ = e.v.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = e.v.BindPFlag("logging.format", flags.Lookup("log-format"))
	_ = e.v.BindPFlag("database.path", flags.Lookup("db"))
	_ = e.v.BindPFlag("owner", flags.Lookup("owner"))
	_ = e.v.BindPFlag("timezone", flags.Lookup("timezone"))

	// Add commands
	rootCmd.AddCommand(accountsCmd(e))
	rootCmd.AddCommand(categoriesCmd(e))
	rootCmd.AddCommand(transactionsCmd(e))
	rootCmd.AddCommand(analyticsCmd(e))
	rootCmd.AddCommand(initCmd(e))
	rootCmd.AddCommand(importCmd(e))
	rootCmd.AddCommand(checkpointCmd(e))
	rootCmd.AddCommand(migrateCmd(e))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func main() {
	// Set up signal handling
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received interrupt signal, shutting down gracefully...")
		cancel()
	}()

	err := newRootCmd().ExecuteContext(ctx)
	cancel() // Always cleanup

	if err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(err.Error()))
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for errors the caller can fix and 1 for everything else.
func exitCode(err error) int {
	if common.IsDomain(err) || errors.Is(err, common.ErrInvalidConfig) {
		return 2
	}
	return 1
}

func (e *env) initConfig() error {
	if e.envFile != "" {
		if err := godotenv.Load(e.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", e.envFile, err)
		}
	}

	// Set up config file
	if e.cfgFile != "" {
		e.v.SetConfigFile(e.cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}

		// Search for config in standard locations
		e.v.AddConfigPath(fmt.Sprintf("%s/.config/pennywise", home))
		e.v.AddConfigPath(".")
		e.v.SetConfigName("config")
		e.v.SetConfigType("yaml")
	}

	// Environment variables
	e.v.SetEnvPrefix("PENNYWISE")
	e.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	e.v.AutomaticEnv()

	// Read config file
	if err := e.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	cfg, err := config.Load(e.v)
	if err != nil {
		return err
	}
	e.cfg = cfg

	// Set up logging
	level, err := common.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	if err := common.SetupLogger(level, cfg.Logging.Format); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pennywise %s\n", version)
		},
	}
}
