package main

import (
	"fmt"
	"log/slog"
	"os"

	emtf "github.com/next-exp/emtf_go/pkg"
	"github.com/spf13/cobra"
)

var (
	logger         Logger
	configFilename string
	verbosity      int
)

func init() {
	opts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	handlerStdOut := NewHandler(os.Stdout, opts)
	handlerStdErr := slog.NewJSONHandler(os.Stderr, opts)
	logger = Logger{
		InfoLog:  slog.New(handlerStdOut),
		ErrorLog: slog.New(handlerStdErr),
	}

	rootCmd.PersistentFlags().StringVarP(&configFilename, "config", "c", "", "Configuration file path (.json, .yaml)")
	rootCmd.PersistentFlags().IntVarP(&verbosity, "verbosity", "v", -1, "Override the configured verbosity")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(conditionsCmd)
}

var rootCmd = &cobra.Command{
	Use:   "emtf",
	Short: "Endcap muon track finder emulator",
	Long: `Runs the 12 sector processors of the endcap muon track finder on
trigger primitives and writes the reconstructed tracks.`,
	SilenceUsage: true,
}

// loadConfiguration reads the configuration file and installs it, with
// the logger, in the library.
func loadConfiguration() (emtf.Configuration, error) {
	config, err := emtf.LoadConfiguration(configFilename)
	if err != nil {
		return config, fmt.Errorf("error reading configuration file: %w", err)
	}
	if verbosity >= 0 {
		config.Verbosity = verbosity
	}
	emtf.SetConfiguration(config)
	emtf.SetLogger(logger)

	if config.Verbosity > 0 {
		logger.Info(fmt.Sprintf("Reading configuration file: %s", configFilename), "main")
		emtf.PrintConfiguration(config, logger)
	}
	return config, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}
