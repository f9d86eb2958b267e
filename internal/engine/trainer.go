package engine

import (
	"context"
	"log"
	"math/rand"
	"time"

	"tiny-qbert-rl/internal/storage"
)

const (
	StatusRunning         = "running"
	StatusEpisodeComplete = "episode_complete"
	StatusDone            = "done"
	StatusCancelled       = "cancelled"
)

const (
	defaultLevels        = 5
	defaultStepPenalty   = 0.02
	defaultCaughtPenalty = 5.0
)

type Config struct {
	Episodes      int
	Seed          int64
	Levels        int
	MaxSteps      int
	StepPenalty   float64
	CaughtPenalty float64
	StepDelayMs   int
	// TablePath is where tables are loaded from and saved to. Empty keeps them in memory.
	TablePath string
	Logger    *log.Logger `json:"-"`
}

type Snapshot struct {
	Step              int
	Episode           int
	EpisodeSteps      int
	EpisodeReward     float64
	Reward            float64
	Position          Position
	Enemy             Position
	Board             Board
	CubesRemaining    int
	Caught            bool
	SuccessCount      int
	EpisodesCompleted int
	TotalReward       float64
	TotalSteps        int
	RandomFraction    float64
	KnownStates       int
	Config            Config
	Status            string
	// Err is set when the table save at the end of an episode failed.
	Err error `json:"-"`
}

// Trainer plays episodes on a pyramid, letting a Learner pick every move.
type Trainer struct {
	cfg               Config
	env               *pyramidEnv
	learner           *Learner
	step              int
	successCount      int
	episodesCompleted int
	totalReward       float64
	totalSteps        int
}

func NewTrainer(cfg Config) *Trainer {
	if cfg.Levels < 2 {
		cfg.Levels = defaultLevels
	}
	if cfg.MaxSteps < 0 {
		cfg.MaxSteps = 0
	}
	if cfg.StepDelayMs < 0 {
		cfg.StepDelayMs = 0
	}
	if cfg.StepPenalty < 0 {
		cfg.StepPenalty = defaultStepPenalty
	}
	if cfg.CaughtPenalty <= 0 {
		cfg.CaughtPenalty = defaultCaughtPenalty
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = 1
	}
	rng := rand.New(rand.NewSource(seed))
	var store *storage.Store
	if cfg.TablePath != "" {
		store = storage.New(cfg.TablePath, cfg.Logger)
	}
	env := newPyramidEnv(cfg.Levels, cfg.MaxSteps, cfg.StepPenalty, rng)
	cfg.MaxSteps = env.maxSteps
	return &Trainer{
		cfg:     cfg,
		env:     env,
		learner: NewLearner(rng, store),
	}
}

// Learner exposes the trainer's learner, mainly for inspection after a run.
func (t *Trainer) Learner() *Learner {
	return t.learner
}

// Run plays cfg.Episodes episodes, streaming a snapshot after every step and episode. The
// channel is closed when the run ends or ctx is cancelled. Tables are saved at the end of
// every episode, including a cancelled one.
func (t *Trainer) Run(ctx context.Context) <-chan Snapshot {
	out := make(chan Snapshot)
	go func() {
		defer close(out)
		if t.cfg.Episodes <= 0 {
			return
		}
		for episode := 1; episode <= t.cfg.Episodes; episode++ {
			select {
			case <-ctx.Done():
				out <- t.snapshot(StatusCancelled, episode, 0, 0, 0)
				return
			default:
			}
			if !t.runEpisode(ctx, episode, out) {
				return
			}
		}
		out <- t.snapshot(StatusDone, t.cfg.Episodes, 0, 0, 0)
	}()
	return out
}

func (t *Trainer) runEpisode(ctx context.Context, episode int, out chan<- Snapshot) bool {
	startColor, goalColor := paletteFor(episode)
	t.env.reset()
	steps := 0
	episodeReward := 0.0
	var lastReward float64
	caught := false
	for {
		select {
		case <-ctx.Done():
			out <- t.cancelEpisode(episode, steps, episodeReward, lastReward)
			return false
		default:
		}
		action := t.learner.SelectAction(t.env.pos, t.env.observation(), startColor, goalColor)
		reward, done, wasCaught := t.env.step(action)
		t.learner.Observe(t.env.pos, t.env.observation(), reward, startColor, goalColor)
		if wasCaught {
			t.learner.CorrectUpdate(-t.cfg.CaughtPenalty)
			caught = true
		}
		episodeReward += reward
		steps++
		t.step++
		lastReward = reward
		out <- t.snapshot(StatusRunning, episode, steps, episodeReward, reward)
		if t.cfg.StepDelayMs > 0 {
			select {
			case <-ctx.Done():
				out <- t.cancelEpisode(episode, steps, episodeReward, reward)
				return false
			case <-time.After(time.Duration(t.cfg.StepDelayMs) * time.Millisecond):
			}
		}
		if done {
			break
		}
	}
	if t.env.remaining == 0 {
		t.successCount++
	}
	t.totalReward += episodeReward
	t.totalSteps += steps
	t.episodesCompleted++
	snap := t.snapshot(StatusEpisodeComplete, episode, steps, episodeReward, lastReward)
	snap.Caught = caught
	snap.Err = t.endEpisode()
	out <- snap
	return true
}

func (t *Trainer) cancelEpisode(episode, steps int, episodeReward, reward float64) Snapshot {
	snap := t.snapshot(StatusCancelled, episode, steps, episodeReward, reward)
	snap.Err = t.endEpisode()
	return snap
}

// endEpisode resets the learner, which commits the tables.
func (t *Trainer) endEpisode() error {
	return t.learner.Reset()
}

func (t *Trainer) snapshot(status string, episode, episodeSteps int, episodeReward, reward float64) Snapshot {
	return Snapshot{
		Step:              t.step,
		Episode:           episode,
		EpisodeSteps:      episodeSteps,
		EpisodeReward:     episodeReward,
		Reward:            reward,
		Position:          t.env.pos,
		Enemy:             t.env.enemy,
		Board:             t.env.observation(),
		CubesRemaining:    t.env.remaining,
		SuccessCount:      t.successCount,
		EpisodesCompleted: t.episodesCompleted,
		TotalReward:       t.totalReward,
		TotalSteps:        t.totalSteps,
		RandomFraction:    t.learner.RandomFraction(),
		KnownStates:       t.learner.KnownStates(),
		Config:            t.cfg,
		Status:            status,
	}
}
