package engine

import (
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/naccaratoo/rpgstack-sub001/internal/game"
)

// SkillOutcome aggregates one skill's usage inside a single battle.
type SkillOutcome struct {
	Uses   int `json:"uses"`
	Damage int `json:"damage"`
	Cost   int `json:"cost"`
}

// CharacterOutcome records one combatant's result inside a single battle.
type CharacterOutcome struct {
	CharacterID string    `json:"character_id"`
	Side        game.Side `json:"side"`
	Won         bool      `json:"won"`
}

// BattleResult is one finished-battle record ingested by the analyzer.
type BattleResult struct {
	BattleID    string                  `json:"battle_id"`
	Winner      game.Side               `json:"winner"`
	Duration    time.Duration           `json:"duration"`
	Rounds      int                     `json:"rounds"`
	TotalDamage int                     `json:"total_damage"`
	SkillUsage  map[string]SkillOutcome `json:"skill_usage"`
	Characters  []CharacterOutcome      `json:"characters"`
}

// AnalysisReport summarizes one analysis pass over the sliding window.
type AnalysisReport struct {
	Battles         int           `json:"battles"`
	AverageDuration time.Duration `json:"average_duration"`
	PlayerWinRate   float64       `json:"player_win_rate"`
	DamageCV        float64       `json:"damage_cv"`
	Recommendations []string      `json:"recommendations,omitempty"`
}

// BalanceConfig carries the analyzer thresholds.
type BalanceConfig struct {
	WindowSize    int
	AnalyzeEvery  int
	MinDuration   time.Duration
	MaxDuration   time.Duration
	AdjustStep    float64
	MaxAdjustment float64

	// WinRate bounds outside which enemy difficulty is nudged.
	WinRateLow  float64
	WinRateHigh float64
}

func (c *BalanceConfig) applyDefaults() {
	if c.WindowSize <= 0 {
		c.WindowSize = 100
	}
	if c.AnalyzeEvery <= 0 {
		c.AnalyzeEvery = 10
	}
	if c.AdjustStep <= 0 {
		c.AdjustStep = 0.05
	}
	if c.MaxAdjustment <= 0 {
		c.MaxAdjustment = 0.30
	}
	if c.WinRateLow <= 0 {
		c.WinRateLow = 0.25
	}
	if c.WinRateHigh <= 0 {
		c.WinRateHigh = 0.75
	}
}

// BalanceAnalyzer ingests finished-battle results into a bounded sliding
// window and periodically re-tunes the global damage multipliers. The
// multiplier map is a set of cumulative overrides: each analysis pass
// replaces the previous value for a key.
type BalanceAnalyzer struct {
	cfg BalanceConfig
	log *zap.Logger

	mu          sync.Mutex
	window      []BattleResult
	ingested    int
	multipliers map[string]float64
	lastReport  *AnalysisReport
}

// NewBalanceAnalyzer builds an analyzer with the given thresholds.
func NewBalanceAnalyzer(cfg BalanceConfig, log *zap.Logger) *BalanceAnalyzer {
	cfg.applyDefaults()
	return &BalanceAnalyzer{
		cfg: cfg,
		log: log,
		multipliers: map[string]float64{
			BalanceKeyGlobalDamage:    1.0,
			BalanceKeyEnemyDifficulty: 1.0,
		},
	}
}

// RegisterBattleResult records one finished battle. Every AnalyzeEvery
// results an analysis pass runs and the multiplier overrides are replaced.
func (a *BalanceAnalyzer) RegisterBattleResult(r BattleResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.window = append(a.window, r)
	if len(a.window) > a.cfg.WindowSize {
		a.window = a.window[len(a.window)-a.cfg.WindowSize:]
	}
	a.ingested++
	if a.ingested%a.cfg.AnalyzeEvery == 0 {
		a.analyze()
	}
}

// Multiplier returns the current override for a key, defaulting to 1.0.
func (a *BalanceAnalyzer) Multiplier(key string) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if v, ok := a.multipliers[key]; ok {
		return v
	}
	return 1.0
}

// Multipliers returns a read-only copy of the current override map.
func (a *BalanceAnalyzer) Multipliers() map[string]float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]float64, len(a.multipliers))
	for k, v := range a.multipliers {
		out[k] = v
	}
	return out
}

// LastReport returns the most recent analysis report, or nil.
func (a *BalanceAnalyzer) LastReport() *AnalysisReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastReport
}

// analyze runs with the mutex held.
func (a *BalanceAnalyzer) analyze() {
	n := len(a.window)
	if n == 0 {
		return
	}

	var totalDur time.Duration
	playerWins := 0
	damages := make([]float64, 0, n)
	skillUses := make(map[string]SkillOutcome)
	charGames := make(map[string]int)
	charWins := make(map[string]int)
	for _, r := range a.window {
		totalDur += r.Duration
		if r.Winner == game.SidePlayer {
			playerWins++
		}
		damages = append(damages, float64(r.TotalDamage))
		for id, o := range r.SkillUsage {
			agg := skillUses[id]
			agg.Uses += o.Uses
			agg.Damage += o.Damage
			agg.Cost += o.Cost
			skillUses[id] = agg
		}
		for _, c := range r.Characters {
			charGames[c.CharacterID]++
			if c.Won {
				charWins[c.CharacterID]++
			}
		}
	}

	report := AnalysisReport{
		Battles:         n,
		AverageDuration: totalDur / time.Duration(n),
		PlayerWinRate:   float64(playerWins) / float64(n),
		DamageCV:        coefficientOfVariation(damages),
	}

	// Duration outside the target band nudges the global damage
	// multiplier: more damage shortens battles.
	global := a.multipliers[BalanceKeyGlobalDamage]
	if a.cfg.MaxDuration > 0 && report.AverageDuration > a.cfg.MaxDuration {
		global += a.cfg.AdjustStep
	} else if a.cfg.MinDuration > 0 && report.AverageDuration < a.cfg.MinDuration {
		global -= a.cfg.AdjustStep
	}
	a.multipliers[BalanceKeyGlobalDamage] = clampFloat(global, 1.0-a.cfg.MaxAdjustment, 1.0+a.cfg.MaxAdjustment)

	// Player win rate outside the band nudges enemy difficulty.
	difficulty := a.multipliers[BalanceKeyEnemyDifficulty]
	if report.PlayerWinRate > a.cfg.WinRateHigh {
		difficulty += a.cfg.AdjustStep
	} else if report.PlayerWinRate < a.cfg.WinRateLow {
		difficulty -= a.cfg.AdjustStep
	}
	a.multipliers[BalanceKeyEnemyDifficulty] = clampFloat(difficulty, 1.0-a.cfg.MaxAdjustment, 1.0+a.cfg.MaxAdjustment)

	// Outlier skill usage and character win rates are advisory telemetry
	// only: logged as recommendations, no numeric action.
	totalUses := 0
	for _, o := range skillUses {
		totalUses += o.Uses
	}
	for id, o := range skillUses {
		if totalUses >= 10 && float64(o.Uses)/float64(totalUses) > 0.5 {
			report.Recommendations = append(report.Recommendations,
				fmt.Sprintf("skill %s accounts for more than half of all uses; consider raising its cost", id))
		}
		if o.Cost > 0 && o.Uses >= 5 && float64(o.Damage)/float64(o.Cost) > 10 {
			report.Recommendations = append(report.Recommendations,
				fmt.Sprintf("skill %s has outlier damage-per-cost efficiency", id))
		}
	}
	for id, games := range charGames {
		if games < 5 {
			continue
		}
		rate := float64(charWins[id]) / float64(games)
		if rate < a.cfg.WinRateLow {
			report.Recommendations = append(report.Recommendations,
				fmt.Sprintf("character %s win rate %.0f%% is below the healthy band", id, rate*100))
		} else if rate > a.cfg.WinRateHigh {
			report.Recommendations = append(report.Recommendations,
				fmt.Sprintf("character %s win rate %.0f%% is above the healthy band", id, rate*100))
		}
	}

	a.lastReport = &report
	a.log.Info("balance analysis completed",
		zap.Int("battles", report.Battles),
		zap.Duration("avg_duration", report.AverageDuration),
		zap.Float64("player_win_rate", report.PlayerWinRate),
		zap.Float64("damage_cv", report.DamageCV),
		zap.Float64("global_damage", a.multipliers[BalanceKeyGlobalDamage]),
		zap.Float64("enemy_difficulty", a.multipliers[BalanceKeyEnemyDifficulty]),
		zap.Strings("recommendations", report.Recommendations))
}

func coefficientOfVariation(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	if mean == 0 {
		return 0
	}
	variance := 0.0
	for _, x := range xs {
		variance += (x - mean) * (x - mean)
	}
	variance /= float64(len(xs))
	return math.Sqrt(variance) / mean
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
