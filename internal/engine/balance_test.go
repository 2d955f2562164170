package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/naccaratoo/rpgstack-sub001/internal/game"
)

func newTestAnalyzer(cfg BalanceConfig) *BalanceAnalyzer {
	return NewBalanceAnalyzer(cfg, zap.NewNop())
}

func resultWith(id string, winner game.Side, dur time.Duration) BattleResult {
	return BattleResult{
		BattleID:    id,
		Winner:      winner,
		Duration:    dur,
		Rounds:      10,
		TotalDamage: 1000,
	}
}

func TestMultiplierDefaultsToOne(t *testing.T) {
	a := newTestAnalyzer(BalanceConfig{})
	assert.Equal(t, 1.0, a.Multiplier(BalanceKeyGlobalDamage))
	assert.Equal(t, 1.0, a.Multiplier("no_such_key"))
}

func TestLongBattlesRaiseGlobalDamage(t *testing.T) {
	a := newTestAnalyzer(BalanceConfig{
		AnalyzeEvery: 4,
		MinDuration:  30 * time.Second,
		MaxDuration:  2 * time.Minute,
		AdjustStep:   0.05,
	})
	for i := 0; i < 4; i++ {
		winner := game.SidePlayer
		if i%2 == 0 {
			winner = game.SideEnemy
		}
		a.RegisterBattleResult(resultWith(fmt.Sprintf("b%d", i), winner, 10*time.Minute))
	}
	assert.InDelta(t, 1.05, a.Multiplier(BalanceKeyGlobalDamage), 1e-9)
	// Balanced win rate: no difficulty change.
	assert.InDelta(t, 1.0, a.Multiplier(BalanceKeyEnemyDifficulty), 1e-9)
}

func TestShortBattlesLowerGlobalDamage(t *testing.T) {
	a := newTestAnalyzer(BalanceConfig{
		AnalyzeEvery: 4,
		MinDuration:  time.Minute,
		MaxDuration:  10 * time.Minute,
		AdjustStep:   0.05,
	})
	for i := 0; i < 4; i++ {
		winner := game.SidePlayer
		if i%2 == 0 {
			winner = game.SideEnemy
		}
		a.RegisterBattleResult(resultWith(fmt.Sprintf("b%d", i), winner, 5*time.Second))
	}
	assert.InDelta(t, 0.95, a.Multiplier(BalanceKeyGlobalDamage), 1e-9)
}

func TestHighWinRateRaisesEnemyDifficulty(t *testing.T) {
	a := newTestAnalyzer(BalanceConfig{
		AnalyzeEvery: 4,
		MinDuration:  time.Second,
		MaxDuration:  time.Hour,
		AdjustStep:   0.05,
	})
	for i := 0; i < 4; i++ {
		a.RegisterBattleResult(resultWith(fmt.Sprintf("b%d", i), game.SidePlayer, time.Minute))
	}
	assert.InDelta(t, 1.05, a.Multiplier(BalanceKeyEnemyDifficulty), 1e-9)
}

func TestAdjustmentsClampToMaxAdjustment(t *testing.T) {
	a := newTestAnalyzer(BalanceConfig{
		AnalyzeEvery:  1,
		MinDuration:   time.Second,
		MaxDuration:   time.Hour,
		AdjustStep:    0.05,
		MaxAdjustment: 0.30,
	})
	for i := 0; i < 20; i++ {
		a.RegisterBattleResult(resultWith(fmt.Sprintf("b%d", i), game.SidePlayer, time.Minute))
	}
	assert.InDelta(t, 1.30, a.Multiplier(BalanceKeyEnemyDifficulty), 1e-9)
}

func TestWindowIsBounded(t *testing.T) {
	a := newTestAnalyzer(BalanceConfig{WindowSize: 5, AnalyzeEvery: 100})
	for i := 0; i < 20; i++ {
		a.RegisterBattleResult(resultWith(fmt.Sprintf("b%d", i), game.SidePlayer, time.Minute))
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	assert.Len(t, a.window, 5)
	assert.Equal(t, "b19", a.window[4].BattleID)
}

func TestSkillOutlierRecommendations(t *testing.T) {
	a := newTestAnalyzer(BalanceConfig{
		AnalyzeEvery: 5,
		MinDuration:  time.Second,
		MaxDuration:  time.Hour,
	})
	for i := 0; i < 5; i++ {
		r := resultWith(fmt.Sprintf("b%d", i), game.SidePlayer, time.Minute)
		r.SkillUsage = map[string]SkillOutcome{
			"nova":  {Uses: 3, Damage: 900, Cost: 30},
			"other": {Uses: 1, Damage: 50, Cost: 10},
		}
		a.RegisterBattleResult(r)
	}
	report := a.LastReport()
	require.NotNil(t, report)
	assert.NotEmpty(t, report.Recommendations)

	// Recommendations never change multipliers themselves.
	assert.InDelta(t, 1.0, a.Multiplier(BalanceKeyGlobalDamage), 0.051)
}

func TestCharacterWinRateRecommendations(t *testing.T) {
	a := newTestAnalyzer(BalanceConfig{
		AnalyzeEvery: 6,
		MinDuration:  time.Second,
		MaxDuration:  time.Hour,
	})
	for i := 0; i < 6; i++ {
		winner := game.SidePlayer
		if i >= 3 {
			winner = game.SideEnemy
		}
		r := resultWith(fmt.Sprintf("b%d", i), winner, time.Minute)
		r.Characters = []CharacterOutcome{
			{CharacterID: "always_wins", Side: game.SidePlayer, Won: true},
			{CharacterID: "always_loses", Side: game.SideEnemy, Won: false},
		}
		a.RegisterBattleResult(r)
	}
	report := a.LastReport()
	require.NotNil(t, report)

	joined := ""
	for _, rec := range report.Recommendations {
		joined += rec + "\n"
	}
	assert.Contains(t, joined, "always_wins")
	assert.Contains(t, joined, "always_loses")
}

func TestCoefficientOfVariation(t *testing.T) {
	assert.Equal(t, 0.0, coefficientOfVariation(nil))
	assert.Equal(t, 0.0, coefficientOfVariation([]float64{5, 5, 5}))
	assert.Greater(t, coefficientOfVariation([]float64{1, 100}), 0.5)
}
