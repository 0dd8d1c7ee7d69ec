// =============================================================================
// PCA Consolidation - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every other command
// is attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (pca)
//   ├── consolidateCmd (pca consolidate)
//   ├── scheduleCmd    (pca schedule)
//   ├── importCmd      (pca import)
//   ├── dfdCmd         (pca dfd new | approve | reject | list)
//   ├── generateCmd    (pca generate)
//   └── versionCmd     (pca version)
//
// CONFIGURATION:
//   Before any command runs, the root command:
//   1. Loads .env (if present) into the environment
//   2. Loads config.yaml (or --config) and applies PCA_* overrides
//   3. Builds the logger and stores it on the command context
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/pca-consolidation/internal/config"
	"github.com/ginjaninja78/pca-consolidation/internal/logging"
	"github.com/ginjaninja78/pca-consolidation/internal/store"
	"github.com/ginjaninja78/pca-consolidation/pkg/utils"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose switches the log level to debug.
var verbose bool

// logFormat overrides log_format from the configuration.
var logFormat string

// mainConfig is loaded once per invocation by loadConfig.
var mainConfig *config.MainConfig

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "pca",
	Short: "PCA Consolidation - consolidate municipal demand into the annual procurement plan",
	Long: `pca consolidates the demand of every secretariat into the Plano de
Contratações Anual (PCA).

Demand comes from spreadsheet exports (CSV or XLSX, one profile per export
layout) or from DFDs (Documentos de Formalização da Demanda) approved in the
local document store. Equal items requested by several secretariats are
merged per document type, with summed quantities and values, the earliest
contracting date and the highest priority.

Example Usage:
  pca consolidate                       # Consolidate every export in the input directory
  pca consolidate --source db           # Consolidate approved DFDs instead
  pca schedule --secretaria Educação    # Show the licitação schedule for one secretariat
  pca dfd new -f draft.yaml             # Register a DFD from a YAML draft
  pca generate --kind TR --section objeto --object "Papel A4"`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. Interrupts cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)

	rootCmd.PersistentFlags().StringVar(
		&logFormat,
		"log-format",
		"",
		"Log format: auto, console or json (overrides log_format)",
	)
}

// loadConfig reads .env and the main configuration and puts the logger on
// the command context.
func loadConfig(cmd *cobra.Command) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load main config: %w", err)
	}
	config.ApplyOverrides(cfg, config.NewViper())

	if verbose {
		cfg.LogLevel = "debug"
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}

	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	cmd.SetContext(logging.WithLogger(cmd.Context(), logger))

	logger.Debug().Str("config", cfgFile).Msg("configuration loaded")

	mainConfig = cfg
	return nil
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// newFileManager builds the file manager for the configured directories.
func newFileManager(cfg *config.MainConfig) *utils.FileManager {
	return utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir, cfg.OutputArchiveDir)
}

// openStore opens the document store at the configured path.
func openStore(ctx context.Context, cfg *config.MainConfig) (*store.Store, error) {
	s, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open document store: %w", err)
	}
	return s, nil
}
