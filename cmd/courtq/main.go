package main

import (
	"fmt"
	"os"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/adrg/xdg"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	defaultConfigFile = "courtq.yaml"
	xdgConfigFile     = "courtq/config.yaml"
)

// resolveConfigPath prefers --config, then ./courtq.yaml, then
// $XDG_CONFIG_HOME/courtq/config.yaml and the system config dirs.
func resolveConfigPath(configFlag string) (string, error) {
	if configFlag != "" {
		return configFlag, nil
	}
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return defaultConfigFile, nil
	}
	if path, err := xdg.SearchConfigFile(xdgConfigFile); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("no config file found. Either create %s in the current directory, put one at %s under your XDG config home, or pass --config",
		defaultConfigFile, xdgConfigFile)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "courtq",
		Short: "Multi-court matchmaking for club game nights",
		Long: heredoc.Doc(`
			courtq decides who plays on which court during a club session.
			It balances skill, rotates partners and opponents, and keeps
			waiting times fair across every court.`),
	}

	var verbose bool
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log scheduling decisions")

	var initOutputPath string
	initCmd := &cobra.Command{
		Use:          "init",
		Short:        "Create a starter courtq.yaml in the current directory",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(initOutputPath)
		},
	}
	initCmd.Flags().StringVarP(&initOutputPath, "output", "o", defaultConfigFile, "Output path for the config file")

	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Simulate and validate sessions",
	}

	var configFile string
	sessionCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (default: courtq.yaml, then the XDG config dir)")

	var opts simulateOptions
	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a session against a simulated clock and export it",
		Long: heredoc.Doc(`
			simulate plays a whole session without a real clock. Match
			lengths and results are drawn from a seeded random source,
			with stronger teams more likely to win, so the same seed
			always produces the same session.

			The finished session is written to an Excel workbook that
			"courtq session validate" can check.`),
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := resolveConfigPath(configFile)
			if err != nil {
				return err
			}
			log, err := newLogger(verbose)
			if err != nil {
				return fmt.Errorf("building logger: %w", err)
			}
			defer log.Sync()
			return runSimulate(configPath, opts, log)
		},
	}
	simulateCmd.Flags().StringVarP(&opts.output, "output", "o", "session.xlsx", "Output Excel file path")
	simulateCmd.Flags().IntVarP(&opts.matches, "matches", "n", 30, "Number of matches to complete")
	simulateCmd.Flags().Uint64Var(&opts.seed, "seed", 1, "Random seed for match lengths and results")

	validateCmd := &cobra.Command{
		Use:          "validate <session.xlsx>",
		Short:        "Check an exported session against the config",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := resolveConfigPath(configFile)
			if err != nil {
				return err
			}
			return runValidate(configPath, args[0])
		},
	}

	sessionCmd.AddCommand(simulateCmd, validateCmd)
	rootCmd.AddCommand(initCmd, sessionCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runInit(outputPath string) error {
	if _, err := os.Stat(outputPath); err == nil {
		return fmt.Errorf("%s already exists; remove it first or use -o to write elsewhere", outputPath)
	}

	if err := os.WriteFile(outputPath, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("✓ Created %s\n", outputPath)
	return nil
}
