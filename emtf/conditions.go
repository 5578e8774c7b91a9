package main

import (
	"fmt"

	emtf "github.com/next-exp/emtf_go/pkg"
	"github.com/spf13/cobra"
)

var conditionsFlags struct {
	minRun int
	maxRun int
}

var conditionsCmd = &cobra.Command{
	Use:   "conditions",
	Short: "Manage the conditions database",
}

var conditionsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the schema and store the configured forest and run parameters",
	RunE:  initConditions,
}

func init() {
	conditionsInitCmd.Flags().IntVar(&conditionsFlags.minRun, "min-run", 0, "First run of the validity range")
	conditionsInitCmd.Flags().IntVar(&conditionsFlags.maxRun, "max-run", 999999, "Last run of the validity range")
	conditionsCmd.AddCommand(conditionsInitCmd)
}

func initConditions(cmd *cobra.Command, args []string) error {
	config, err := loadConfiguration()
	if err != nil {
		return err
	}
	if conditionsFlags.minRun > conditionsFlags.maxRun {
		return fmt.Errorf("min-run %d is after max-run %d", conditionsFlags.minRun, conditionsFlags.maxRun)
	}

	dbConn, err := emtf.ConnectToDatabase(config.DBDriver, config.User, config.Passwd, config.Host, config.DBName)
	if err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}
	defer dbConn.Close()

	store := emtf.NewConditionsStore(dbConn)
	if err := store.CreateSchema(); err != nil {
		return err
	}
	forest, err := emtf.EmbeddedForest(config.PtAssignVersion, config.BDTXMLDir)
	if err != nil {
		return err
	}
	if err := store.StoreForest(forest, conditionsFlags.minRun, conditionsFlags.maxRun); err != nil {
		return err
	}
	params := emtf.RunParams{
		MinRun:          conditionsFlags.minRun,
		MaxRun:          conditionsFlags.maxRun,
		PtAssignVersion: config.PtAssignVersion,
		BDTXMLDir:       config.BDTXMLDir,
		PtLUTVersion:    config.PtLUTVersion,
	}
	if err := store.StoreParams(params); err != nil {
		return err
	}
	logger.Info(fmt.Sprintf("Stored forest %s and run parameters for runs %d-%d", forest.Dir, params.MinRun, params.MaxRun), "conditions")
	return nil
}
