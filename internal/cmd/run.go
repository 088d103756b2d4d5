package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/duskhollow/duskhollow/internal/config"
	"github.com/duskhollow/duskhollow/internal/decision"
	"github.com/duskhollow/duskhollow/internal/event"
	"github.com/duskhollow/duskhollow/internal/game"
	"github.com/duskhollow/duskhollow/internal/logging"
	"github.com/duskhollow/duskhollow/internal/orchestrator"
	"github.com/duskhollow/duskhollow/internal/phase"
	"github.com/duskhollow/duskhollow/internal/sink"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a full game with AI agents",
	Long: `Run seats the configured number of AI agents, starts the game, and
streams the public table events plus the spectator-only channel to
stdout until one side wins.`,
	RunE: runGame,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runGame(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.NopLogger()
	if cfg.Logging.Enabled {
		logger, err = logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level)
		if err != nil {
			return fmt.Errorf("opening log: %w", err)
		}
		defer logger.Close()
	}

	decider, err := decision.NewFromConfig(cfg)
	if err != nil {
		return err
	}

	bus := event.NewBus()
	subscribeTableOutput(bus)

	orch, err := newOrchestrator(cfg, bus, decider, logger)
	if err != nil {
		return err
	}

	agents := cfg.Game.Agents
	if agents > game.FullRoster {
		agents = game.FullRoster
	}
	if err := orch.SeatAgents(agents); err != nil {
		return fmt.Errorf("seating agents: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("table %s open with %d agents\n", orch.GameID(), agents)
	if err := orch.Start(ctx); err != nil {
		return err
	}

	select {
	case <-orch.Done():
	case <-ctx.Done():
		orch.Stop()
		<-orch.Done()
	}

	printFinalTable(orch)
	return nil
}

func newOrchestrator(cfg *config.Config, bus *event.Bus, decider decision.Service, logger *logging.Logger) (*orchestrator.Orchestrator, error) {
	gameID := uuid.NewString()
	snk, err := sink.NewFromConfig(cfg.Sink, gameID)
	if err != nil {
		return nil, fmt.Errorf("opening sink: %w", err)
	}

	timings := phase.Timings{
		Waiting:          cfg.Phases.Waiting(),
		RoleAssignment:   cfg.Phases.RoleAssignment(),
		NightBase:        cfg.Phases.Night(),
		Revelation:       cfg.Phases.Revelation(),
		Voting:           cfg.Phases.Voting(),
		SpeakerAllotment: cfg.Phases.Speaker(),
		DiscussionBuffer: cfg.Phases.DiscussionBuffer(),
		NightDecay:       cfg.Phases.NightDecay,
		NightFloor:       cfg.Phases.NightFloor,
	}

	return orchestrator.New(orchestrator.Config{
		Bus:     bus,
		Decider: decider,
		Logger:  logger,
	},
		orchestrator.WithGameID(gameID),
		orchestrator.WithTimings(timings),
		orchestrator.WithSink(snk),
		orchestrator.WithPollInterval(cfg.Phases.PollInterval()),
		orchestrator.WithTriggerTimeout(cfg.Decision.TriggerTimeout()),
		orchestrator.WithPacing(cfg.Game.PacingMin(), cfg.Game.PacingMax()),
		orchestrator.WithSnapshotInterval(cfg.Sink.SnapshotInterval()),
	)
}

// subscribeTableOutput prints the public feed and the spectator channel.
func subscribeTableOutput(bus *event.Bus) {
	bus.SubscribeAll(func(e event.Event) {
		switch ev := e.(type) {
		case event.PhaseStartedEvent:
			fmt.Printf("-- %s (round %d) --\n", ev.Phase, ev.Round)
		case event.PlayerJoinedEvent:
			fmt.Printf("%s takes a seat (%d/%d)\n", ev.Name, ev.Seats, game.FullRoster)
		case event.RolesAssignedEvent:
			fmt.Printf("roles dealt: %d conspirators hidden among %d seats\n",
				ev.Antagonists, ev.Antagonists+ev.Wardens+ev.Residents)
		case event.DiscussionStartedEvent:
			fmt.Printf("the floor opens; speaking order: %v\n", ev.SpeakerOrder)
		case event.VoteCastEvent:
			fmt.Printf("%s votes for %s\n", ev.Voter, ev.Target)
		case event.VoteTiedEvent:
			fmt.Printf("the vote splits %d-%d; nobody is eliminated\n", ev.Count, ev.Count)
		case event.PlayerEliminatedEvent:
			fmt.Printf("%s is eliminated by %s. They were a %s.\n", ev.Name, ev.Cause, ev.Role)
		case event.NoEliminationEvent:
			if ev.Protected {
				fmt.Println("dawn breaks and everyone is still here; someone was saved in the night")
			} else {
				fmt.Println("dawn breaks and everyone is still here")
			}
		case event.ObserverUpdateEvent:
			fmt.Printf("  [spectator] %s (%s): %s\n", ev.Update.Name, ev.Update.Role, ev.Update.Content)
		case event.GameEndedEvent:
			fmt.Printf("== game over after %d rounds: %s win ==\n", ev.Rounds, ev.Winner)
		}
	})
}

// printFinalTable reveals the full table once the game is over.
func printFinalTable(orch *orchestrator.Orchestrator) {
	view := orch.Store().Spectate()
	fmt.Println("\nfinal table:")
	for _, seat := range view.Seats {
		status := "survived"
		if !seat.Alive {
			status = "eliminated"
		}
		fmt.Printf("  %-12s %-12s %s\n", seat.Name, seat.Role, status)
	}

	stats := orch.Stats()
	fmt.Printf("\ndeliveries: %d triggers, %d updates, %d pushes, %.0f%% error rate\n",
		stats.Triggers, stats.Updates, stats.Pushes, stats.ErrorRate*100)
}
