//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"syscall/js"

	"tiny-qbert-rl/internal/engine"
)

var (
	startFnOnce sync.Once
	trainerMu   sync.Mutex
	currentCtx  context.CancelFunc
	onSnapshot  js.Value
)

func main() {
	registerCallbacks()
	// Prevent the program from exiting.
	select {}
}

func registerCallbacks() {
	startFnOnce.Do(func() {
		js.Global().Set("qbertrlRegisterSnapshotHandler", js.FuncOf(registerSnapshotHandler))
		js.Global().Set("qbertrlStartTraining", js.FuncOf(startTraining))
		js.Global().Set("qbertrlStopTraining", js.FuncOf(stopTraining))
	})
}

func registerSnapshotHandler(this js.Value, args []js.Value) interface{} {
	if len(args) != 1 || args[0].Type() != js.TypeFunction {
		fmt.Println("registerSnapshotHandler requires a function argument")
		return nil
	}
	onSnapshot = args[0]
	return nil
}

func startTraining(this js.Value, args []js.Value) interface{} {
	if len(args) == 0 {
		fmt.Println("startTraining requires a JSON config string")
		return nil
	}
	configJSON := args[0].String()
	var cfg engine.Config
	if err := json.Unmarshal([]byte(configJSON), &cfg); err != nil {
		fmt.Printf("invalid config: %v\n", err)
		return nil
	}
	// Tables live in memory only in the browser.
	cfg.TablePath = ""
	if onSnapshot.IsUndefined() || onSnapshot.IsNull() {
		fmt.Println("snapshot handler not registered")
		return nil
	}

	trainerMu.Lock()
	if currentCtx != nil {
		currentCtx()
	}
	ctx, cancel := context.WithCancel(context.Background())
	currentCtx = cancel
	trainerMu.Unlock()

	trainer := engine.NewTrainer(cfg)
	go func() {
		for snapshot := range trainer.Run(ctx) {
			payload := snapshotToJS(snapshot)
			onSnapshot.Invoke(payload)
		}
	}()
	return nil
}

func stopTraining(this js.Value, args []js.Value) interface{} {
	trainerMu.Lock()
	if currentCtx != nil {
		currentCtx()
		currentCtx = nil
	}
	trainerMu.Unlock()
	return nil
}

func snapshotToJS(snapshot engine.Snapshot) js.Value {
	board := make([]interface{}, len(snapshot.Board))
	for i, row := range snapshot.Board {
		rowCopy := make([]interface{}, len(row))
		for j, kind := range row {
			rowCopy[j] = int(kind)
		}
		board[i] = rowCopy
	}
	position := map[string]interface{}{
		"row": snapshot.Position.Row,
		"col": snapshot.Position.Col,
	}
	enemy := map[string]interface{}{
		"row": snapshot.Enemy.Row,
		"col": snapshot.Enemy.Col,
	}
	config := map[string]interface{}{
		"episodes":      snapshot.Config.Episodes,
		"seed":          snapshot.Config.Seed,
		"levels":        snapshot.Config.Levels,
		"maxSteps":      snapshot.Config.MaxSteps,
		"stepPenalty":   snapshot.Config.StepPenalty,
		"caughtPenalty": snapshot.Config.CaughtPenalty,
		"stepDelayMs":   snapshot.Config.StepDelayMs,
	}
	payload := map[string]interface{}{
		"step":              snapshot.Step,
		"episode":           snapshot.Episode,
		"episodeSteps":      snapshot.EpisodeSteps,
		"episodeReward":     snapshot.EpisodeReward,
		"reward":            snapshot.Reward,
		"position":          position,
		"enemy":             enemy,
		"board":             board,
		"cubesRemaining":    snapshot.CubesRemaining,
		"caught":            snapshot.Caught,
		"successCount":      snapshot.SuccessCount,
		"episodesCompleted": snapshot.EpisodesCompleted,
		"totalReward":       snapshot.TotalReward,
		"totalSteps":        snapshot.TotalSteps,
		"randomFraction":    snapshot.RandomFraction,
		"knownStates":       snapshot.KnownStates,
		"config":            config,
		"status":            snapshot.Status,
	}
	return js.ValueOf(payload)
}
