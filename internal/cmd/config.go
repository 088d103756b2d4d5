package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/duskhollow/duskhollow/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify Duskhollow configuration",
	Long: `View or modify Duskhollow configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  duskhollow config set game.agents 10
  duskhollow config set decision.backend http
  duskhollow config set phases.night_seconds 120

Valid keys:
  game.agents                      - AI-controlled seats to fill
  game.pacing_min_ms               - Lower bound of the agent pacing delay
  game.pacing_max_ms               - Upper bound of the agent pacing delay
  phases.waiting_seconds           - How long the table waits to fill
  phases.night_seconds             - Base night duration
  phases.voting_seconds            - Voting phase duration
  phases.speaker_seconds           - Per-speaker discussion allotment
  decision.backend                 - Decision service: scripted or http
  decision.trigger_timeout_seconds - Deadline for one agent decision
  decision.http.url                - Remote decision endpoint
  decision.http.model              - Model passed to the endpoint
  logging.level                    - debug, info, warn, or error`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/duskhollow/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fmt.Println("Current configuration:")
	fmt.Println()

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Printf("Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Printf("Config file: (none - using defaults)\n")
	}
	fmt.Println()

	fmt.Println("game:")
	fmt.Printf("  agents: %d\n", cfg.Game.Agents)
	fmt.Printf("  pacing_min_ms: %d\n", cfg.Game.PacingMinMs)
	fmt.Printf("  pacing_max_ms: %d\n", cfg.Game.PacingMaxMs)

	fmt.Println("phases:")
	fmt.Printf("  waiting_seconds: %d\n", cfg.Phases.WaitingSeconds)
	fmt.Printf("  role_assignment_seconds: %d\n", cfg.Phases.RoleAssignmentSeconds)
	fmt.Printf("  night_seconds: %d\n", cfg.Phases.NightSeconds)
	fmt.Printf("  revelation_seconds: %d\n", cfg.Phases.RevelationSeconds)
	fmt.Printf("  voting_seconds: %d\n", cfg.Phases.VotingSeconds)
	fmt.Printf("  speaker_seconds: %d\n", cfg.Phases.SpeakerSeconds)
	fmt.Printf("  discussion_buffer_seconds: %d\n", cfg.Phases.DiscussionBufferSecs)
	fmt.Printf("  night_decay: %g\n", cfg.Phases.NightDecay)
	fmt.Printf("  night_floor: %g\n", cfg.Phases.NightFloor)

	fmt.Println("decision:")
	fmt.Printf("  backend: %s\n", cfg.Decision.Backend)
	fmt.Printf("  trigger_timeout_seconds: %d\n", cfg.Decision.TriggerTimeoutSeconds)
	if cfg.Decision.HTTP.URL != "" {
		fmt.Printf("  http.url: %s\n", cfg.Decision.HTTP.URL)
		fmt.Printf("  http.model: %s\n", cfg.Decision.HTTP.Model)
	}

	fmt.Println("logging:")
	fmt.Printf("  enabled: %v\n", cfg.Logging.Enabled)
	fmt.Printf("  level: %s\n", cfg.Logging.Level)

	fmt.Println("sink:")
	fmt.Printf("  enabled: %v\n", cfg.Sink.Enabled)
	fmt.Printf("  snapshot_interval_seconds: %d\n", cfg.Sink.SnapshotIntervalSeconds)

	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	// Validate the key exists
	validKeys := map[string]string{
		"game.agents":                      "int",
		"game.pacing_min_ms":               "int",
		"game.pacing_max_ms":               "int",
		"phases.waiting_seconds":           "int",
		"phases.role_assignment_seconds":   "int",
		"phases.night_seconds":             "int",
		"phases.revelation_seconds":        "int",
		"phases.voting_seconds":            "int",
		"phases.speaker_seconds":           "int",
		"phases.discussion_buffer_seconds": "int",
		"phases.night_decay":               "float",
		"phases.night_floor":               "float",
		"decision.backend":                 "string",
		"decision.trigger_timeout_seconds": "int",
		"decision.http.url":                "string",
		"decision.http.model":              "string",
		"logging.enabled":                  "bool",
		"logging.level":                    "string",
		"sink.enabled":                     "bool",
		"sink.snapshot_interval_seconds":   "int",
	}

	keyType, ok := validKeys[key]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s\nRun 'duskhollow config set --help' to see valid keys", key)
	}

	// Validate the value based on type
	var typedValue interface{}
	switch keyType {
	case "string":
		if key == "decision.backend" && !isOneOf(value, config.ValidDecisionBackends()) {
			return fmt.Errorf("invalid value for %s: %s\nValid options: %s",
				key, value, strings.Join(config.ValidDecisionBackends(), ", "))
		}
		if key == "logging.level" && !isOneOf(strings.ToLower(value), config.ValidLogLevels()) {
			return fmt.Errorf("invalid value for %s: %s\nValid options: %s",
				key, value, strings.Join(config.ValidLogLevels(), ", "))
		}
		typedValue = value
	case "bool":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value for %s: %s", key, value)
		}
		typedValue = b
	case "int":
		i, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %s", key, value)
		}
		typedValue = i
	case "float":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid numeric value for %s: %s", key, value)
		}
		typedValue = f
	}

	viper.Set(key, typedValue)

	// Reject the write if the resulting configuration is invalid
	if _, err := config.Load(); err != nil {
		return fmt.Errorf("rejected: %w", err)
	}

	configFile := config.ConfigFile()
	if err := os.MkdirAll(config.ConfigDir(), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Set %s = %v\n", key, typedValue)
	fmt.Printf("Config written to %s\n", configFile)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'duskhollow config set' to modify values", configFile)
	}

	// Create config directory
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Generate a commented config file
	configContent := `# Duskhollow Configuration

# Table composition and pacing
game:
  # AI-controlled seats to fill automatically. Remaining seats up to the
  # full roster of 10 wait for human players.
  agents: 9
  # Randomized delay bounds before agent actions land, in milliseconds
  pacing_min_ms: 800
  pacing_max_ms: 2500

# Phase durations. Night shrinks each round down to a floor; discussion
# scales with the number of living speakers.
phases:
  waiting_seconds: 300
  role_assignment_seconds: 10
  night_seconds: 90
  revelation_seconds: 15
  voting_seconds: 60
  speaker_seconds: 45
  discussion_buffer_seconds: 10
  night_decay: 0.9
  night_floor: 0.7

# Agent decision backend
decision:
  # scripted plays deterministically from the suspicion matrix;
  # http delegates to a remote model endpoint
  backend: scripted
  trigger_timeout_seconds: 30
  # http:
  #   url: https://example.com/decide
  #   api_key: ""    # or DUSKHOLLOW_DECISION_HTTP_API_KEY
  #   model: ""

logging:
  enabled: true
  level: info

# Game record sink (JSONL, one file per game)
sink:
  enabled: true
  snapshot_interval_seconds: 60
`

	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Created config file at %s\n", configFile)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	configFile := config.ConfigFile()

	if viper.ConfigFileUsed() != "" {
		fmt.Printf("Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Printf("Default path: %s (not created)\n", configFile)
	}

	// Also show config search paths
	fmt.Println("\nSearch paths:")
	fmt.Printf("  1. %s\n", filepath.Join(config.ConfigDir(), "config.yaml"))
	fmt.Printf("  2. ./config.yaml (current directory)\n")
	fmt.Println("\nEnvironment variables: DUSKHOLLOW_* (e.g., DUSKHOLLOW_DECISION_BACKEND)")

	return nil
}

func isOneOf(value string, options []string) bool {
	for _, opt := range options {
		if value == opt {
			return true
		}
	}
	return false
}
