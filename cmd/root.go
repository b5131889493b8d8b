package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/naamaleah/CookSmart/config"
)

var (
	cfgPath string
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:   "cooksmart-eventstore",
	Short: "Event store for the CookSmart platform",
	Long:  `Append-only event log with optimistic concurrency, projection replay and snapshot maintenance for the CookSmart recipe platform`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", ".", "directory containing the config file")
}

func initConfig() {
	var err error
	cfg, err = config.LoadConfig(cfgPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
}
