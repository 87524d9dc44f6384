package main

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/legion/config"
	"github.com/pthm-cable/legion/game"
	"github.com/pthm-cable/legion/telemetry"
)

// FitnessEvaluator runs headless sessions and computes fitness.
type FitnessEvaluator struct {
	params         *ParamVector
	maxTicks       int32
	seeds          []int64
	baseConfig     *config.Config
	overlapPenalty float64

	mu   sync.Mutex
	last runScore // averaged over seeds, from the most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int32, seeds []int64, baseCfg *config.Config, overlapPenalty float64) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:         params,
		maxTicks:       maxTicks,
		seeds:          seeds,
		baseConfig:     baseCfg,
		overlapPenalty: overlapPenalty,
	}
}

// runScore holds the measurements from a single session.
type runScore struct {
	arrivalSec  float64 // mean seconds from order to group arrival
	unarrived   int     // orders still pending when the run stopped
	overlapRate float64 // mean overlapping pairs per agent per window
	ticks       int32
}

// Last returns the seed-averaged score of the most recent evaluation.
func (fe *FitnessEvaluator) Last() runScore {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.last
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Invalid parameter combinations score +Inf.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.copyConfig()
	if err := fe.params.ApplyToConfig(cfg, x); err != nil {
		return math.Inf(1)
	}

	// Run all seeds in parallel; sessions share the read-only config.
	scores := make([]runScore, len(fe.seeds))
	errs := make([]error, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			scores[idx], errs[idx] = fe.runSession(cfg, s)
		}(i, seed)
	}
	wg.Wait()

	fitness := make([]float64, 0, len(scores))
	var avg runScore
	for i, sc := range scores {
		if errs[i] != nil {
			return math.Inf(1)
		}
		fitness = append(fitness, fe.computeFitness(sc, cfg.World.DT))
		avg.arrivalSec += sc.arrivalSec
		avg.unarrived += sc.unarrived
		avg.overlapRate += sc.overlapRate
		avg.ticks += sc.ticks
	}
	n := float64(len(scores))
	avg.arrivalSec /= n
	avg.overlapRate /= n
	avg.ticks /= int32(len(scores))

	fe.mu.Lock()
	fe.last = avg
	fe.mu.Unlock()

	return stat.Mean(fitness, nil)
}

// runSession plays the scenario until every order has arrived or maxTicks.
func (fe *FitnessEvaluator) runSession(cfg *config.Config, seed int64) (runScore, error) {
	var windows []telemetry.WindowStats
	s, err := game.NewSession(cfg, game.Options{
		Seed: seed,
		StatsCallback: func(w telemetry.WindowStats) {
			windows = append(windows, w)
		},
	})
	if err != nil {
		return runScore{}, fmt.Errorf("creating session: %w", err)
	}
	defer s.Close()

	for s.Tick() < fe.maxTicks {
		s.Update()
		if s.ScriptDone() && s.PendingArrivals() == 0 {
			break
		}
	}

	var score runScore
	score.ticks = s.Tick()
	score.unarrived = s.PendingArrivals()

	var arrivals int
	var arrivalSum float64
	rates := make([]float64, 0, len(windows))
	for _, w := range windows {
		arrivals += w.GroupArrivals
		arrivalSum += float64(w.GroupArrivals) * w.ArrivalMeanSec
		if w.Agents > 0 {
			rates = append(rates, float64(w.Overlaps)/float64(w.Agents))
		}
	}
	if arrivals > 0 {
		score.arrivalSec = arrivalSum / float64(arrivals)
	}
	if len(rates) > 0 {
		score.overlapRate = stat.Mean(rates, nil)
	}
	return score, nil
}

// computeFitness combines arrival time and crowding. A group that never
// arrived counts as arriving at the tick cap.
func (fe *FitnessEvaluator) computeFitness(sc runScore, dt float64) float64 {
	capSec := float64(fe.maxTicks) * dt
	arrival := sc.arrivalSec
	if sc.unarrived > 0 {
		arrival += capSec * float64(sc.unarrived)
	}
	return arrival + fe.overlapPenalty*sc.overlapRate
}

// copyConfig creates a copy of the base config that parameters can be
// applied to. Derived values are rebuilt by ApplyToConfig.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	cfg.Derived.SquadIndex = nil
	return &cfg
}
