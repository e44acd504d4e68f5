package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "capctl",
	Short: "Capctl is a command line tool for interacting with the marketcap ingestion platform",
	Long: `capctl is the command-line interface for the marketcap company ingestion platform.

Marketcap discovers Romanian companies from public sources (procurement awards,
EU funding beneficiary lists, commercial data providers), verifies them against
the national tax registry, and maintains scored company records.

Common workflows:

  Trigger an ingestion run across all sources:
    capctl run

  Run only the procurement source with a small budget:
    capctl run --sources seap --max-items 50

  Rehearse a run without writing anything:
    capctl run --dry-run

  Check a stored run:
    capctl status <run-id>

  Inspect source adapters and their cursors:
    capctl sources

  Look up a company record:
    capctl company <slug>

  Validate a tax identifier offline:
    capctl check RO14592450

Configuration:
  Set the API endpoint and credentials via environment variables or a config file:
    MARKETCAP_URL      API endpoint (default: http://localhost:6171)
    MARKETCAP_TOKEN    Internal token for triggering runs`,
}

func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".capctl"
		viper.AddConfigPath(home)
		viper.SetConfigName(".capctl")
		viper.SetConfigType("yaml")
	}

	// Read environment variables that match "MARKETCAP_VARNAME"
	viper.SetEnvPrefix("MARKETCAP")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.capctl.yaml)")

	rootCmd.PersistentFlags().String("url", "http://localhost:6171", "Marketcap Controller URL")
	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))

	rootCmd.PersistentFlags().StringP("token", "t", "", "Internal token for authentication")
	viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
}
