package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/naccaratoo/rpgstack-sub001/internal/game"
)

func newTestTracker(regen int) *AnimaTracker {
	return NewAnimaTracker(regen, zap.NewNop())
}

func registerOne(t *AnimaTracker, battleID, combatantID string, current, max int) {
	t.RegisterBattle(battleID, []AnimaRegistrant{
		{CombatantID: combatantID, Current: current, Max: max},
	})
}

func TestCanUseSkillInsufficientAnima(t *testing.T) {
	tr := newTestTracker(5)
	registerOne(tr, "b1", "c1", 12, 100)

	skill := game.Skill{ID: "s1", AnimaCost: 15}
	check, err := tr.CanUseSkill("b1", "c1", skill)
	require.NoError(t, err)
	assert.False(t, check.CanUse)
	assert.False(t, check.HasResource)
	assert.True(t, check.NoCooldown)
	assert.Equal(t, 15, check.Cost)

	// The failed check mutated nothing.
	cur, _, _, err := tr.Snapshot("b1", "c1")
	require.NoError(t, err)
	assert.Equal(t, 12, cur)
}

func TestUseSkillDebitsAndStartsCooldown(t *testing.T) {
	tr := newTestTracker(5)
	registerOne(tr, "b1", "c1", 50, 100)

	skill := game.Skill{ID: "s1", AnimaCost: 10, Cooldown: 3}
	check, err := tr.UseSkill("b1", "c1", skill)
	require.NoError(t, err)
	assert.True(t, check.CanUse)

	cur, _, cds, err := tr.Snapshot("b1", "c1")
	require.NoError(t, err)
	assert.Equal(t, 40, cur)
	assert.Equal(t, 3, cds["s1"])

	_, err = tr.UseSkill("b1", "c1", skill)
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestCooldownThreeUsableOnFourthTurn(t *testing.T) {
	tr := newTestTracker(0)
	registerOne(tr, "b1", "c1", 100, 100)

	skill := game.Skill{ID: "s1", AnimaCost: 10, Cooldown: 3}
	_, err := tr.UseSkill("b1", "c1", skill)
	require.NoError(t, err)

	for turn := 1; turn <= 3; turn++ {
		check, err := tr.CanUseSkill("b1", "c1", skill)
		require.NoError(t, err)
		assert.False(t, check.NoCooldown, "turn %d should still be cooling down", turn)
		require.NoError(t, tr.ProcessRegeneration("b1", []string{"c1"}))
	}

	check, err := tr.CanUseSkill("b1", "c1", skill)
	require.NoError(t, err)
	assert.True(t, check.CanUse)
}

func TestCooldownsDecreaseMonotonically(t *testing.T) {
	tr := newTestTracker(0)
	registerOne(tr, "b1", "c1", 100, 100)

	skill := game.Skill{ID: "s1", AnimaCost: 5, Cooldown: 3}
	_, err := tr.UseSkill("b1", "c1", skill)
	require.NoError(t, err)

	prev := 3
	for i := 0; i < 3; i++ {
		require.NoError(t, tr.ProcessRegeneration("b1", []string{"c1"}))
		_, _, cds, err := tr.Snapshot("b1", "c1")
		require.NoError(t, err)
		assert.LessOrEqual(t, cds["s1"], prev)
		prev = cds["s1"]
	}
	_, _, cds, err := tr.Snapshot("b1", "c1")
	require.NoError(t, err)
	assert.NotContains(t, cds, "s1")
}

func TestEmergencyRefillOncePerBattle(t *testing.T) {
	tr := newTestTracker(0)
	registerOne(tr, "b1", "c1", 10, 100)

	skill := game.Skill{ID: "s1", AnimaCost: 10}
	_, err := tr.UseSkill("b1", "c1", skill)
	require.NoError(t, err)

	// Pool hit exactly zero: refilled to 10% of max, once.
	cur, _, _, err := tr.Snapshot("b1", "c1")
	require.NoError(t, err)
	assert.Equal(t, 10, cur)

	_, err = tr.UseSkill("b1", "c1", game.Skill{ID: "s2", AnimaCost: 10})
	require.NoError(t, err)
	cur, _, _, err = tr.Snapshot("b1", "c1")
	require.NoError(t, err)
	assert.Equal(t, 0, cur)
}

func TestRegenerationGrantAndBlock(t *testing.T) {
	tr := newTestTracker(5)
	registerOne(tr, "b1", "c1", 20, 100)

	require.NoError(t, tr.ProcessRegeneration("b1", []string{"c1"}))
	cur, _, _, err := tr.Snapshot("b1", "c1")
	require.NoError(t, err)
	assert.Equal(t, 25, cur)

	require.NoError(t, tr.BlockRegen("b1", "c1", 1))
	require.NoError(t, tr.ProcessRegeneration("b1", []string{"c1"}))
	cur, _, _, err = tr.Snapshot("b1", "c1")
	require.NoError(t, err)
	assert.Equal(t, 25, cur)

	// Block expired, regeneration resumes.
	require.NoError(t, tr.ProcessRegeneration("b1", []string{"c1"}))
	cur, _, _, err = tr.Snapshot("b1", "c1")
	require.NoError(t, err)
	assert.Equal(t, 30, cur)
}

func TestGrantClampsToMax(t *testing.T) {
	tr := newTestTracker(0)
	registerOne(tr, "b1", "c1", 95, 100)
	require.NoError(t, tr.Grant("b1", "c1", 50))
	cur, max, _, err := tr.Snapshot("b1", "c1")
	require.NoError(t, err)
	assert.Equal(t, 100, cur)
	assert.Equal(t, 100, max)
}

func TestResolveCostAndCooldownBands(t *testing.T) {
	cases := []struct {
		name     string
		skill    game.Skill
		cost     int
		cooldown int
	}{
		{"explicit values win", game.Skill{ID: "x", AnimaCost: 7, Cooldown: 4}, 7, 4},
		{"basic band", game.Skill{ID: "x", Category: game.CategoryBasic, Multiplier: 1.0}, 5, 0},
		{"single band", game.Skill{ID: "x", Category: game.CategoryIntermediate, Multiplier: 1.4}, 10, 1},
		{"double band", game.Skill{ID: "x", Category: game.CategoryAdvanced, MultiTarget: true}, 15, 2},
		{"aoe band", game.Skill{ID: "x", Category: game.CategoryAdvanced, AreaOfEffect: true}, 20, 2},
		{"special band", game.Skill{ID: "x", Category: game.CategorySpecial}, 30, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.cost, ResolveCost(tc.skill))
			assert.Equal(t, tc.cooldown, ResolveCooldown(tc.skill))
		})
	}
}

func TestUnknownBattleOrCombatant(t *testing.T) {
	tr := newTestTracker(0)
	registerOne(tr, "b1", "c1", 10, 10)

	_, err := tr.CanUseSkill("missing", "c1", game.Skill{ID: "s"})
	assert.Error(t, err)
	_, err = tr.CanUseSkill("b1", "missing", game.Skill{ID: "s"})
	assert.Error(t, err)

	tr.RemoveBattle("b1")
	_, err = tr.CanUseSkill("b1", "c1", game.Skill{ID: "s"})
	assert.Error(t, err)
}
