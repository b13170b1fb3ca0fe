// Package commands wires the outlined debug/export CLI: a standard
// cobra+viper root command with config file, flag, and env var layering,
// pointed at internal/db, internal/eventstore, and internal/render.
package commands

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	dbPath  string
)

var rootCmd = &cobra.Command{
	Use:   "outlined",
	Short: "Debug and export tooling for the collaborative outline engine",
	Long: `outlined replays a container's event log, validates its tree
invariants, and exports it to markdown, all against the same sqlite
store the engine's Container Serializer writes to.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.outlined.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the outline sqlite database")

	viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName(".outlined")
	}

	viper.SetEnvPrefix("OUTLINED")
	viper.AutomaticEnv()

	viper.ReadInConfig()
}
