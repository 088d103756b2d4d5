package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "phases.night_seconds")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidDecisionBackends returns the list of valid decision backends
func ValidDecisionBackends() []string {
	return []string{"scripted", "http"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateGame()...)
	errors = append(errors, c.validatePhases()...)
	errors = append(errors, c.validateDecision()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateSink()...)

	return errors
}

// validateGame validates the GameConfig
func (c *Config) validateGame() []ValidationError {
	var errors []ValidationError

	if c.Game.Agents < 0 {
		errors = append(errors, ValidationError{
			Field:   "game.agents",
			Value:   c.Game.Agents,
			Message: "must be non-negative",
		})
	}
	if c.Game.PacingMinMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "game.pacing_min_ms",
			Value:   c.Game.PacingMinMs,
			Message: "must be non-negative",
		})
	}
	if c.Game.PacingMaxMs < c.Game.PacingMinMs {
		errors = append(errors, ValidationError{
			Field:   "game.pacing_max_ms",
			Value:   c.Game.PacingMaxMs,
			Message: "must be at least game.pacing_min_ms",
		})
	}

	return errors
}

// validatePhases validates the PhasesConfig
func (c *Config) validatePhases() []ValidationError {
	var errors []ValidationError

	durations := []struct {
		field string
		value int
	}{
		{"phases.waiting_seconds", c.Phases.WaitingSeconds},
		{"phases.role_assignment_seconds", c.Phases.RoleAssignmentSeconds},
		{"phases.night_seconds", c.Phases.NightSeconds},
		{"phases.revelation_seconds", c.Phases.RevelationSeconds},
		{"phases.voting_seconds", c.Phases.VotingSeconds},
		{"phases.speaker_seconds", c.Phases.SpeakerSeconds},
	}
	for _, d := range durations {
		if d.value <= 0 {
			errors = append(errors, ValidationError{
				Field:   d.field,
				Value:   d.value,
				Message: "must be positive",
			})
		}
	}

	if c.Phases.DiscussionBufferSecs < 0 {
		errors = append(errors, ValidationError{
			Field:   "phases.discussion_buffer_seconds",
			Value:   c.Phases.DiscussionBufferSecs,
			Message: "must be non-negative",
		})
	}
	if c.Phases.NightDecay <= 0 || c.Phases.NightDecay > 1 {
		errors = append(errors, ValidationError{
			Field:   "phases.night_decay",
			Value:   c.Phases.NightDecay,
			Message: "must be in (0, 1]",
		})
	}
	if c.Phases.NightFloor <= 0 || c.Phases.NightFloor > 1 {
		errors = append(errors, ValidationError{
			Field:   "phases.night_floor",
			Value:   c.Phases.NightFloor,
			Message: "must be in (0, 1]",
		})
	}
	if c.Phases.PollIntervalMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "phases.poll_interval_ms",
			Value:   c.Phases.PollIntervalMs,
			Message: "must be positive",
		})
	}

	return errors
}

// validateDecision validates the DecisionConfig. A misconfigured
// decision backend would strand every agent seat, so an http backend
// without its endpoint or key is fatal here rather than at first use.
func (c *Config) validateDecision() []ValidationError {
	var errors []ValidationError

	backend := strings.ToLower(c.Decision.Backend)
	if backend != "" && !slices.Contains(ValidDecisionBackends(), backend) {
		errors = append(errors, ValidationError{
			Field:   "decision.backend",
			Value:   c.Decision.Backend,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidDecisionBackends(), ", ")),
		})
	}

	if backend == "http" {
		if c.Decision.HTTP.URL == "" {
			errors = append(errors, ValidationError{
				Field:   "decision.http.url",
				Value:   c.Decision.HTTP.URL,
				Message: "required for the http backend",
			})
		}
		if c.Decision.HTTP.APIKey == "" {
			errors = append(errors, ValidationError{
				Field:   "decision.http.api_key",
				Value:   "",
				Message: "required for the http backend",
			})
		}
	}

	if c.Decision.TriggerTimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "decision.trigger_timeout_seconds",
			Value:   c.Decision.TriggerTimeoutSeconds,
			Message: "must be positive",
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}

// validateSink validates the SinkConfig
func (c *Config) validateSink() []ValidationError {
	var errors []ValidationError

	if c.Sink.SnapshotIntervalSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "sink.snapshot_interval_seconds",
			Value:   c.Sink.SnapshotIntervalSeconds,
			Message: "must be positive",
		})
	}

	return errors
}
