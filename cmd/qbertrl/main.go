package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"

	"tiny-qbert-rl/internal/engine"
	"tiny-qbert-rl/internal/report"
	"tiny-qbert-rl/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "qbertrl: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		return errors.New("missing subcommand; try 'train' or 'inspect'")
	}

	subcommand := os.Args[1]
	switch subcommand {
	case "train":
		return runTrain(os.Args[2:])
	case "inspect":
		return runInspect(os.Args[2:])
	default:
		return errors.Errorf("unknown subcommand %q", subcommand)
	}
}

func runTrain(args []string) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	episodes := fs.Int("episodes", 100, "number of training episodes")
	seed := fs.Int64("seed", 0, "deterministic seed (0 for default)")
	levels := fs.Int("levels", 5, "pyramid height (>= 2)")
	maxSteps := fs.Int("max-steps", 0, "step limit per episode (0 scales with the pyramid)")
	stepPenalty := fs.Float64("step-penalty", 0.02, "reward subtracted on every move")
	caughtPenalty := fs.Float64("caught-penalty", 5, "penalty applied when the enemy catches the agent")
	table := fs.String("table", "utilities.ai", "table file to load and save (empty for in-memory)")
	chart := fs.String("chart", "", "write an HTML chart of the run to this path")
	quiet := fs.Bool("quiet", false, "only print the summary")
	color := fs.Bool("color", true, "colorize the final board")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *episodes <= 0 {
		return errors.Errorf("episodes must be positive (got %d)", *episodes)
	}
	if *levels < 2 {
		return errors.Errorf("levels must be at least 2 (got %d)", *levels)
	}
	if *stepPenalty < 0 {
		return errors.Errorf("step-penalty must not be negative (got %.2f)", *stepPenalty)
	}
	if *caughtPenalty <= 0 {
		return errors.Errorf("caught-penalty must be positive (got %.2f)", *caughtPenalty)
	}

	fmt.Printf("train config => episodes=%d seed=%d levels=%d step_penalty=%.2f caught_penalty=%.2f table=%q\n",
		*episodes, *seed, *levels, *stepPenalty, *caughtPenalty, *table)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	trainer := engine.NewTrainer(engine.Config{
		Episodes:      *episodes,
		Seed:          *seed,
		Levels:        *levels,
		MaxSteps:      *maxSteps,
		StepPenalty:   *stepPenalty,
		CaughtPenalty: *caughtPenalty,
		TablePath:     *table,
		Logger:        log.New(os.Stderr, "", log.LstdFlags),
	})

	var (
		metrics []report.EpisodeMetrics
		rewards []float64
		final   engine.Snapshot
		saveErr error
	)
	for snapshot := range trainer.Run(ctx) {
		final = snapshot
		if snapshot.Status != engine.StatusEpisodeComplete {
			continue
		}
		if snapshot.Err != nil {
			saveErr = snapshot.Err
			fmt.Fprintf(os.Stderr, "episode %d: save failed: %v\n", snapshot.Episode, snapshot.Err)
		}
		metrics = append(metrics, report.EpisodeMetrics{
			Episode:        snapshot.Episode,
			Reward:         snapshot.EpisodeReward,
			Steps:          snapshot.EpisodeSteps,
			RandomFraction: snapshot.RandomFraction,
		})
		rewards = append(rewards, snapshot.EpisodeReward)
		if !*quiet {
			outcome := "timeout"
			switch {
			case snapshot.CubesRemaining == 0:
				outcome = "cleared"
			case snapshot.Caught:
				outcome = "caught"
			}
			fmt.Printf("episode %d: reward=%.2f steps=%d outcome=%s random=%.2f states=%d\n",
				snapshot.Episode, snapshot.EpisodeReward, snapshot.EpisodeSteps, outcome, snapshot.RandomFraction, snapshot.KnownStates)
		}
	}

	summary := report.Summarize(rewards)
	successRate := 0.0
	if final.EpisodesCompleted > 0 {
		successRate = float64(final.SuccessCount) / float64(final.EpisodesCompleted)
	}
	fmt.Printf("summary: status=%s episodes=%d avg_reward=%.2f std_reward=%.2f min_reward=%.2f max_reward=%.2f success_rate=%.2f states=%d\n",
		final.Status, final.EpisodesCompleted, summary.Mean, summary.StdDev, summary.Min, summary.Max, successRate, final.KnownStates)
	fmt.Println("final board:")
	report.RenderBoard(os.Stdout, final.Board, final.Position, final.Enemy, *color)

	if *chart != "" && len(metrics) > 0 {
		if err := writeChart(*chart, metrics); err != nil {
			return err
		}
		fmt.Printf("chart written to %s\n", *chart)
	}
	return saveErr
}

func writeChart(path string, metrics []report.EpisodeMetrics) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create chart")
	}
	if err := report.WriteChart(f, "qbertrl training", metrics); err != nil {
		f.Close()
		return err
	}
	return errors.Wrap(f.Close(), "close chart")
}

func runInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	table := fs.String("table", "utilities.ai", "table file to inspect")

	if err := fs.Parse(args); err != nil {
		return err
	}

	tables, err := storage.ReadFile(*table)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return errors.Errorf("no table file at %s", *table)
		}
		return err
	}
	s := report.SummarizeTables(tables)
	fmt.Printf("table %s\n", *table)
	fmt.Printf("value rows=%d visit rows=%d visited states=%d total visits=%d\n", s.ValueRows, s.VisitRows, s.Visited, s.TotalVisits)
	fmt.Printf("best value per state: mean=%.4f std=%.4f min=%.4f max=%.4f\n", s.Values.Mean, s.Values.StdDev, s.Values.Min, s.Values.Max)
	return nil
}
