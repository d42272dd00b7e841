package commands

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/capy-discord/capy/pkg/discord"
	"github.com/capy-discord/capy/pkg/observer"
	"github.com/capy-discord/capy/pkg/report"
	"github.com/capy-discord/capy/pkg/telemetry"
)

type simulateOptions struct {
	producers    int
	interactions int
	users        int
	guilds       int
	failureRate  float64
	maxLatency   time.Duration
	serve        bool
	watch        bool
	seed         uint64
}

func newSimulateCommand(version string) *cobra.Command {
	opts := simulateOptions{}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Drive the telemetry pipeline with synthetic interactions",
		Long: `Run the full telemetry pipeline against synthetic Discord traffic and
print the resulting statistics report.

Several producers send slash commands, button presses, dropdown selections
and modal submissions concurrently. Each interaction completes or fails
after a random delay, so the report shows realistic latency and error
figures.`,
		Example: `  # Default run
  capy simulate

  # Heavier load with more failures
  capy simulate --producers 16 --interactions 500 --failure-rate 0.2

  # Keep serving /metrics after the run until interrupted
  capy simulate --serve --config capy.yaml --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.producers <= 0 || opts.interactions <= 0 || opts.users <= 0 {
				return fmt.Errorf("producers, interactions and users must be positive")
			}
			if opts.failureRate < 0 || opts.failureRate > 1 {
				return fmt.Errorf("failure rate must be between 0 and 1, got %v", opts.failureRate)
			}

			cfg, err := loadConfig(version)
			if err != nil {
				return err
			}
			if opts.serve {
				cfg.Metrics.Enabled = true
			}

			return runSimulation(cmd, cfg, opts)
		},
	}

	cmd.Flags().IntVar(&opts.producers, "producers", 4, "number of concurrent producers")
	cmd.Flags().IntVar(&opts.interactions, "interactions", 50, "interactions sent by each producer")
	cmd.Flags().IntVar(&opts.users, "users", 25, "number of distinct simulated users")
	cmd.Flags().IntVar(&opts.guilds, "guilds", 3, "number of simulated guilds (0 for DMs only)")
	cmd.Flags().Float64Var(&opts.failureRate, "failure-rate", 0.1, "share of commands that fail")
	cmd.Flags().DurationVar(&opts.maxLatency, "max-latency", 20*time.Millisecond, "upper bound of simulated command latency")
	cmd.Flags().BoolVar(&opts.serve, "serve", false, "keep serving metrics after the run until interrupted")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "reload log levels when the config file changes")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "random seed (0 picks one)")

	return cmd
}

func runSimulation(cmd *cobra.Command, cfg *telemetry.Config, opts simulateOptions) error {
	ctx := cmd.Context()

	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Telemetry shutdown failed")
		}
	}()
	tel.StartMetricsServer()

	obs, err := observer.New(cfg, tel)
	if err != nil {
		return fmt.Errorf("failed to create observer: %w", err)
	}
	obs.Start(ctx)

	if opts.watch && configPath != "" {
		watcher := telemetry.NewWatcher(configPath, tel.Logger)
		err := watcher.Watch(ctx, func(next *telemetry.Config) {
			telemetry.ApplyLogLevels(next, tel.Logger, tel.EventLogger)
		})
		if err != nil {
			return err
		}
	}

	seed := opts.seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	log.Info().
		Int("producers", opts.producers).
		Int("interactions", opts.interactions).
		Float64("failure_rate", opts.failureRate).
		Uint64("seed", seed).
		Msg("Starting simulation")

	start := time.Now()
	var wg sync.WaitGroup
	for p := 0; p < opts.producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			sim := newSimulator(opts, seed+uint64(p))
			for n := 0; n < opts.interactions; n++ {
				if ctx.Err() != nil {
					return
				}
				sim.step(ctx, obs)
			}
		}(p)
	}
	wg.Wait()

	log.Info().Dur("elapsed", time.Since(start)).Msg("Simulation finished")

	if opts.serve {
		log.Info().
			Str("address", cfg.Metrics.ListenAddress+cfg.Metrics.Path).
			Msg("Serving metrics until interrupted")
		<-ctx.Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := obs.Shutdown(shutdownCtx); err != nil {
		return err
	}

	now := time.Now()
	if jsonOutput {
		return report.RenderJSON(cmd.OutOrStdout(), obs.Metrics(), now)
	}
	return report.Render(cmd.OutOrStdout(), obs.Metrics(), now)
}

var (
	slashCommands = []string{"ping", "help", "feedback", "stats", "profile", "event"}
	buttonIDs     = []string{"confirm_btn", "cancel_btn"}
	roleChoices   = []string{"red", "green", "blue", "gold"}
)

// simulator generates the traffic of one producer.
type simulator struct {
	opts simulateOptions
	rng  *rand.Rand
}

func newSimulator(opts simulateOptions, seed uint64) *simulator {
	return &simulator{opts: opts, rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// step sends one interaction and, after a simulated delay, its completion
// or failure.
func (s *simulator) step(ctx context.Context, obs *observer.Observer) {
	i := s.interaction()
	obs.NotifyInteraction(i)

	if s.opts.maxLatency > 0 {
		delay := time.Duration(s.rng.Int64N(int64(s.opts.maxLatency)))
		select {
		case <-ctx.Done():
		case <-time.After(delay):
		}
	}

	if s.rng.Float64() >= s.opts.failureRate {
		obs.NotifyCompletion(i, i.Command)
		return
	}

	name := "unknown"
	if i.Command != nil {
		name = i.Command.Name
	}
	obs.RecordFailure(i, discord.NewCommandInvokeError(name, s.failure()))
}

func (s *simulator) failure() error {
	switch s.rng.IntN(3) {
	case 0:
		return discord.NewUserFriendlyError("invalid input", "That doesn't look right, please try again.")
	case 1:
		_, err := strconv.Atoi("capy")
		return err
	default:
		return errors.New("upstream request failed")
	}
}

func (s *simulator) interaction() *discord.Interaction {
	id := uuid.New()
	user := uint64(1000 + s.rng.IntN(s.opts.users))

	i := &discord.Interaction{
		ID:        binary.BigEndian.Uint64(id[:8]),
		User:      discord.User{ID: user, Username: fmt.Sprintf("user%d", user), Discriminator: "0"},
		ChannelID: uint64(500 + s.rng.IntN(5)),
		CreatedAt: time.Now().UTC(),
	}

	if s.opts.guilds > 0 && s.rng.IntN(10) > 0 {
		gid := uint64(9000 + s.rng.IntN(s.opts.guilds))
		i.GuildID = &gid
		i.Guild = &discord.Guild{ID: gid, Name: fmt.Sprintf("Guild %d", gid)}
	}

	switch roll := s.rng.IntN(10); {
	case roll < 6:
		name := slashCommands[s.rng.IntN(len(slashCommands))]
		i.Type = discord.InteractionApplicationCommand
		i.Command = &discord.Command{Name: name}
		i.Data = &discord.InteractionData{Name: name, Options: s.options(name)}
	case roll < 8:
		i.Type = discord.InteractionMessageComponent
		i.Data = &discord.InteractionData{
			CustomID:      buttonIDs[s.rng.IntN(len(buttonIDs))],
			ComponentType: discord.ComponentButton,
		}
	case roll < 9:
		i.Type = discord.InteractionMessageComponent
		i.Data = &discord.InteractionData{
			CustomID:      "role_picker",
			ComponentType: discord.ComponentSelectMenu,
			Values:        []string{roleChoices[s.rng.IntN(len(roleChoices))]},
		}
	default:
		i.Type = discord.InteractionModalSubmit
		i.Data = &discord.InteractionData{
			CustomID: "feedback_form",
			Components: []discord.ActionRow{
				{Components: []discord.Component{{Type: discord.ComponentTextInput, CustomID: "subject", Value: "Bot idea"}}},
				{Components: []discord.Component{{Type: discord.ComponentTextInput, CustomID: "body", Value: "More capybaras"}}},
			},
		}
	}

	return i
}

func (s *simulator) options(command string) []discord.Option {
	switch command {
	case "feedback":
		return []discord.Option{
			{Name: "message", Type: discord.OptionString, Value: "Love it"},
		}
	case "event":
		return []discord.Option{
			{Name: "create", Type: discord.OptionSubCommand, Options: []discord.Option{
				{Name: "title", Type: discord.OptionString, Value: "Study night"},
				{Name: "channel", Type: discord.OptionChannel, Value: discord.ChannelRef(uint64(500+s.rng.IntN(5)), "events")},
				{Name: "host", Type: discord.OptionUser, Value: discord.UserRef(uint64(1000+s.rng.IntN(s.opts.users)), "host")},
			}},
		}
	default:
		return nil
	}
}
