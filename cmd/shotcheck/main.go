package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/standardbeagle/shotcheck/internal/config"
)

const (
	appName    = "shotcheck"
	appVersion = "0.1.0"
)

// errRegressions ends a completed run that found failed screenshots.
var errRegressions = errors.New("visual regressions detected")

var (
	verbose    bool
	configDir  string
	rootFlag   string
	outputFlag string

	logger = zap.NewNop()
	cfg    = config.DefaultConfig()
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Visual regression checks for screenshot batches",
	Long: `Shotcheck compares captured screenshots against accepted baselines:
  - Pixel comparison with a perceptual color threshold
  - Pass / review / fail classification (10% and 15% boundaries)
  - HTML, Markdown PR body and plain text reports
  - Baseline promotion and an MCP server for AI coding assistants`,
	Version:       appVersion,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initLogger(); err != nil {
			return err
		}
		return loadConfig(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	// Default behavior: if stdin is not a terminal, run as MCP server
	RunE: func(cmd *cobra.Command, args []string) error {
		if !isTerminal(os.Stdin) {
			return runMCP(cmd, args)
		}
		return cmd.Help()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s v%s\n", appName, appVersion)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", ".", "Directory to search for "+config.ProjectConfigFile)
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "", "Storage root (overrides config and "+config.EnvRoot+")")
	rootCmd.PersistentFlags().StringVar(&outputFlag, "output", "", "Report output directory (overrides config and "+config.EnvOutput+")")

	// Add subcommands
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(promoteCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)

	// Version template
	rootCmd.SetVersionTemplate(fmt.Sprintf("%s v%s\n", appName, appVersion))
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		if !errors.Is(err, errRegressions) {
			fmt.Fprintln(os.Stderr, paint(failStyle, "Error: "+err.Error()))
		}
		os.Exit(1)
	}
}

// initLogger builds the production logger on stderr; stdout may carry
// the MCP protocol.
func initLogger() error {
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	l, err := zc.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger = l
	return nil
}

func loadConfig(cmd *cobra.Command) error {
	loaded, path, err := config.Load(configDir)
	if err != nil {
		return err
	}
	if path != "" {
		logger.Debug("loaded config", zap.String("path", path))
	}

	if cmd.Flags().Changed("root") {
		loaded.Root = rootFlag
	}
	if cmd.Flags().Changed("output") {
		loaded.Output = outputFlag
	}
	cfg = loaded
	return nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
