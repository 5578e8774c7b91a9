package main

import (
	"encoding/json"
	"fmt"
	"os"

	emtf "github.com/next-exp/emtf_go/pkg"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configFlags struct {
	format string
	preset string
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Validate and print the effective configuration",
	RunE:  printConfig,
}

func init() {
	configCmd.Flags().StringVarP(&configFlags.format, "format", "f", "yaml", "Output format: yaml or json")
	configCmd.Flags().StringVar(&configFlags.preset, "preset", "", "Print a preset instead of the file: sim, data or phase2")
}

func presetConfiguration(name string) (emtf.Configuration, error) {
	switch name {
	case "sim":
		return emtf.DefaultConfiguration(), nil
	case "data":
		return emtf.DataConfiguration(), nil
	case "phase2":
		return emtf.Phase2Configuration(), nil
	}
	return emtf.Configuration{}, fmt.Errorf("unknown preset %q", name)
}

func printConfig(cmd *cobra.Command, args []string) error {
	var config emtf.Configuration
	var err error
	if configFlags.preset != "" {
		config, err = presetConfiguration(configFlags.preset)
		if err == nil {
			err = config.Validate()
		}
	} else {
		config, err = loadConfiguration()
	}
	if err != nil {
		return err
	}

	switch configFlags.format {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(config)
	case "yaml":
		encoder := yaml.NewEncoder(os.Stdout)
		defer encoder.Close()
		return encoder.Encode(config)
	}
	return fmt.Errorf("unknown format %q", configFlags.format)
}
