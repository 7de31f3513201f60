package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pubcask/pubcask/pkg/logger"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "pubcask",
	Short: "pubcask - Pub package repository server",
	Long: `pubcask is a single-binary package repository speaking the pub
repository protocol, storing archives on the local filesystem or in a
remote artifact registry.`,
}

// Execute runs the CLI, exiting non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./pubcask.toml)")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("pubcask")
		viper.SetConfigType("toml")

		// Current directory (highest priority)
		viper.AddConfigPath(".")

		if userConfigDir, err := os.UserConfigDir(); err == nil {
			viper.AddConfigPath(userConfigDir + "/pubcask")
		}
		if homeDir, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(homeDir + "/.pubcask")
		}

		viper.AddConfigPath("/etc/pubcask")
	}

	viper.SetEnvPrefix("pubcask")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else {
		logger.Debug("No config file found, using defaults", "error", err)
	}
}
