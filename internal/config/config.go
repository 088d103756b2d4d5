package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete Duskhollow configuration
type Config struct {
	Game     GameConfig     `mapstructure:"game"`
	Phases   PhasesConfig   `mapstructure:"phases"`
	Decision DecisionConfig `mapstructure:"decision"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Sink     SinkConfig     `mapstructure:"sink"`
}

// GameConfig controls table composition and pacing
type GameConfig struct {
	// Agents is the number of AI-controlled seats to fill automatically.
	// The remaining seats up to the full roster wait for human players.
	Agents int `mapstructure:"agents"`
	// PacingMinMs and PacingMaxMs bound the randomized delay inserted
	// before agent actions so replies do not land with machine timing
	PacingMinMs int `mapstructure:"pacing_min_ms"`
	PacingMaxMs int `mapstructure:"pacing_max_ms"`
}

// PhasesConfig controls phase durations. Night shrinks per round and
// discussion scales with the number of living speakers; everything else
// is fixed.
type PhasesConfig struct {
	WaitingSeconds        int `mapstructure:"waiting_seconds"`
	RoleAssignmentSeconds int `mapstructure:"role_assignment_seconds"`
	NightSeconds          int `mapstructure:"night_seconds"`
	RevelationSeconds     int `mapstructure:"revelation_seconds"`
	VotingSeconds         int `mapstructure:"voting_seconds"`
	SpeakerSeconds        int `mapstructure:"speaker_seconds"`
	DiscussionBufferSecs  int `mapstructure:"discussion_buffer_seconds"`

	// NightDecay is the per-round multiplier applied to the night
	// duration; NightFloor is the fraction of the base it never drops
	// below
	NightDecay float64 `mapstructure:"night_decay"`
	NightFloor float64 `mapstructure:"night_floor"`

	// PollIntervalMs is how often phase completion is checked
	PollIntervalMs int `mapstructure:"poll_interval_ms"`
}

// DecisionConfig controls how agent decisions are produced
type DecisionConfig struct {
	// Backend selects the decision service: "scripted" or "http"
	Backend string `mapstructure:"backend"`
	// TriggerTimeoutSeconds bounds how long one decision may take
	TriggerTimeoutSeconds int `mapstructure:"trigger_timeout_seconds"`

	HTTP HTTPDecisionConfig `mapstructure:"http"`
}

// HTTPDecisionConfig configures the remote decision backend
type HTTPDecisionConfig struct {
	// URL is the decision endpoint
	URL string `mapstructure:"url"`
	// APIKey authenticates requests. Also read from DUSKHOLLOW_DECISION_HTTP_API_KEY
	APIKey string `mapstructure:"api_key"`
	// Model is passed through to the endpoint
	Model string `mapstructure:"model"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether file logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// Dir is where log files are written. Empty means the data directory
	Dir string `mapstructure:"dir"`
}

// SinkConfig controls the analytics sink
type SinkConfig struct {
	// Enabled controls whether game records are written (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Dir is where record files are written. Empty means the data directory
	Dir string `mapstructure:"dir"`
	// SnapshotIntervalSeconds is how often a running game is snapshotted
	SnapshotIntervalSeconds int `mapstructure:"snapshot_interval_seconds"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Game: GameConfig{
			Agents:      9, // one human seat by default
			PacingMinMs: 800,
			PacingMaxMs: 2500,
		},
		Phases: PhasesConfig{
			WaitingSeconds:        300,
			RoleAssignmentSeconds: 10,
			NightSeconds:          90,
			RevelationSeconds:     15,
			VotingSeconds:         60,
			SpeakerSeconds:        45,
			DiscussionBufferSecs:  10,
			NightDecay:            0.9,
			NightFloor:            0.7,
			PollIntervalMs:        500,
		},
		Decision: DecisionConfig{
			Backend:               "scripted",
			TriggerTimeoutSeconds: 30,
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
			Dir:     "",
		},
		Sink: SinkConfig{
			Enabled:                 true,
			Dir:                     "",
			SnapshotIntervalSeconds: 60,
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Game defaults
	viper.SetDefault("game.agents", defaults.Game.Agents)
	viper.SetDefault("game.pacing_min_ms", defaults.Game.PacingMinMs)
	viper.SetDefault("game.pacing_max_ms", defaults.Game.PacingMaxMs)

	// Phase defaults
	viper.SetDefault("phases.waiting_seconds", defaults.Phases.WaitingSeconds)
	viper.SetDefault("phases.role_assignment_seconds", defaults.Phases.RoleAssignmentSeconds)
	viper.SetDefault("phases.night_seconds", defaults.Phases.NightSeconds)
	viper.SetDefault("phases.revelation_seconds", defaults.Phases.RevelationSeconds)
	viper.SetDefault("phases.voting_seconds", defaults.Phases.VotingSeconds)
	viper.SetDefault("phases.speaker_seconds", defaults.Phases.SpeakerSeconds)
	viper.SetDefault("phases.discussion_buffer_seconds", defaults.Phases.DiscussionBufferSecs)
	viper.SetDefault("phases.night_decay", defaults.Phases.NightDecay)
	viper.SetDefault("phases.night_floor", defaults.Phases.NightFloor)
	viper.SetDefault("phases.poll_interval_ms", defaults.Phases.PollIntervalMs)

	// Decision defaults
	viper.SetDefault("decision.backend", defaults.Decision.Backend)
	viper.SetDefault("decision.trigger_timeout_seconds", defaults.Decision.TriggerTimeoutSeconds)
	viper.SetDefault("decision.http.url", defaults.Decision.HTTP.URL)
	viper.SetDefault("decision.http.api_key", defaults.Decision.HTTP.APIKey)
	viper.SetDefault("decision.http.model", defaults.Decision.HTTP.Model)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)

	// Sink defaults
	viper.SetDefault("sink.enabled", defaults.Sink.Enabled)
	viper.SetDefault("sink.dir", defaults.Sink.Dir)
	viper.SetDefault("sink.snapshot_interval_seconds", defaults.Sink.SnapshotIntervalSeconds)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "duskhollow")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".duskhollow"
	}
	return filepath.Join(home, ".config", "duskhollow")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// PacingMin returns the lower pacing bound as a time.Duration
func (g *GameConfig) PacingMin() time.Duration {
	return time.Duration(g.PacingMinMs) * time.Millisecond
}

// PacingMax returns the upper pacing bound as a time.Duration
func (g *GameConfig) PacingMax() time.Duration {
	return time.Duration(g.PacingMaxMs) * time.Millisecond
}

// Waiting returns the waiting phase duration
func (p *PhasesConfig) Waiting() time.Duration {
	return time.Duration(p.WaitingSeconds) * time.Second
}

// RoleAssignment returns the role assignment phase duration
func (p *PhasesConfig) RoleAssignment() time.Duration {
	return time.Duration(p.RoleAssignmentSeconds) * time.Second
}

// Night returns the base night phase duration
func (p *PhasesConfig) Night() time.Duration {
	return time.Duration(p.NightSeconds) * time.Second
}

// Revelation returns the revelation phase duration
func (p *PhasesConfig) Revelation() time.Duration {
	return time.Duration(p.RevelationSeconds) * time.Second
}

// Voting returns the voting phase duration
func (p *PhasesConfig) Voting() time.Duration {
	return time.Duration(p.VotingSeconds) * time.Second
}

// Speaker returns the per-speaker discussion allotment
func (p *PhasesConfig) Speaker() time.Duration {
	return time.Duration(p.SpeakerSeconds) * time.Second
}

// DiscussionBuffer returns the fixed discussion slack
func (p *PhasesConfig) DiscussionBuffer() time.Duration {
	return time.Duration(p.DiscussionBufferSecs) * time.Second
}

// PollInterval returns the completion poll interval
func (p *PhasesConfig) PollInterval() time.Duration {
	return time.Duration(p.PollIntervalMs) * time.Millisecond
}

// TriggerTimeout returns the decision deadline as a time.Duration
func (d *DecisionConfig) TriggerTimeout() time.Duration {
	return time.Duration(d.TriggerTimeoutSeconds) * time.Second
}

// SnapshotInterval returns the sink snapshot cadence
func (s *SinkConfig) SnapshotInterval() time.Duration {
	return time.Duration(s.SnapshotIntervalSeconds) * time.Second
}
