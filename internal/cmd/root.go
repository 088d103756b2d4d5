package cmd

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/duskhollow/duskhollow/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "duskhollow",
	Short: "Social deduction game engine for mixed human and AI tables",
	Long: `Duskhollow runs a hidden-role social deduction game where human
players and AI agents share one table. The engine drives the full
night/discussion/voting cycle, keeps roles secret until they matter,
and narrates the hidden layer of the game to spectators.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/duskhollow/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// A local .env is convenient for API keys during development.
	_ = godotenv.Load()

	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("DUSKHOLLOW")
	// Replace dots with underscores for nested keys in env vars
	// e.g., DUSKHOLLOW_DECISION_BACKEND for decision.backend
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
