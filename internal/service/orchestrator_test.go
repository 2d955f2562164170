package service

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/naccaratoo/rpgstack-sub001/internal/catalog"
	"github.com/naccaratoo/rpgstack-sub001/internal/config"
	"github.com/naccaratoo/rpgstack-sub001/internal/engine"
	"github.com/naccaratoo/rpgstack-sub001/internal/game"
)

type fakeCharacterStore map[string]*catalog.CanonicalCharacter

func (s fakeCharacterStore) LoadCanonicalStats(characterID string) (*catalog.CanonicalCharacter, error) {
	c, ok := s[characterID]
	if !ok {
		return nil, fmt.Errorf("character %s not found", characterID)
	}
	return c, nil
}

func testRoster() fakeCharacterStore {
	store := fakeCharacterStore{}
	for i := 1; i <= 3; i++ {
		id := fmt.Sprintf("p%d", i)
		store[id] = &catalog.CanonicalCharacter{
			ID:      id,
			Name:    "Player " + id,
			Culture: "norse",
			Stats: game.CharacterStats{
				HP: 200, MaxHP: 200, Attack: 50, Defense: 20,
				SpecialAttack: 40, Spirit: 20, Anima: 100, MaxAnima: 100,
			},
			SkillIDs: []string{"spear", "expensive"},
		}
	}
	for i := 1; i <= 3; i++ {
		id := fmt.Sprintf("e%d", i)
		store[id] = &catalog.CanonicalCharacter{
			ID:      id,
			Name:    "Enemy " + id,
			Culture: "egyptian",
			Stats: game.CharacterStats{
				HP: 150, MaxHP: 150, Attack: 40, Defense: 15,
				SpecialAttack: 30, Spirit: 15, Anima: 80, MaxAnima: 80,
			},
			SkillIDs: []string{"spear"},
		}
	}
	return store
}

func testSkills() *catalog.SkillCatalog {
	return catalog.NewSkillCatalog([]game.Skill{
		{ID: catalog.FallbackBasicAttackID, Name: "Basic Attack", Type: game.DamagePhysical, Category: game.CategoryBasic, Multiplier: 1.0},
		{ID: "spear", Name: "Spear", Type: game.DamagePhysical, Category: game.CategoryIntermediate, Multiplier: 1.4, BaseDamage: 10},
		{ID: "expensive", Name: "Expensive", Type: game.DamageMagical, Category: game.CategorySpecial, Multiplier: 2.0, AnimaCost: 500},
	})
}

func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	log := zap.NewNop()
	anima := engine.NewAnimaTracker(5, log)
	passives := engine.NewPassiveDispatcher(catalog.NewPassiveCatalog(nil), log)
	phases := engine.NewPhaseMachine(anima, passives, log)
	balance := engine.NewBalanceAnalyzer(engine.BalanceConfig{}, log)
	damage := engine.NewDamageEngine(rand.New(rand.NewSource(1)), balance, log)
	tuning := config.BattleTuning{
		AnimaRegenPerTurn: 5,
		SwapsPerTurn:      1,
		EnemyTurnDelay:    time.Hour,
		IdleTimeout:       10 * time.Minute,
	}
	return NewOrchestrator(testRoster(), testSkills(), anima, passives, phases, damage, balance, nil, tuning, log)
}

func playerTeam() []TeamMemberInput {
	return []TeamMemberInput{
		{CharacterID: "p1", Position: 0},
		{CharacterID: "p2", Position: 1},
		{CharacterID: "p3", Position: 2},
	}
}

func enemyTeam() []TeamMemberInput {
	return []TeamMemberInput{
		{CharacterID: "e1", Position: 0},
		{CharacterID: "e2", Position: 1},
		{CharacterID: "e3", Position: 2},
	}
}

func TestCreateBattleRedactsOpponent(t *testing.T) {
	o := newTestOrchestrator(t)
	view, err := o.CreateBattle(playerTeam(), enemyTeam())
	require.NoError(t, err)

	assert.Equal(t, game.StatusActive, view.Status)
	assert.Equal(t, game.SidePlayer, view.CurrentTurn)
	require.Len(t, view.You.Combatants, 3)
	require.Len(t, view.Opponent.Combatants, 3)

	for _, c := range view.You.Combatants {
		assert.NotNil(t, c.Stats)
		assert.NotNil(t, c.Anima)
		assert.NotNil(t, c.MaxAnima)
	}
	for _, c := range view.Opponent.Combatants {
		assert.Nil(t, c.Stats, "opponent stats must be hidden")
		assert.Nil(t, c.Anima, "opponent anima must be hidden")
		assert.NotZero(t, c.MaxHP)
		assert.NotEmpty(t, c.Name)
	}
}

func TestCreateBattleValidatesTeamShape(t *testing.T) {
	o := newTestOrchestrator(t)

	_, err := o.CreateBattle(playerTeam()[:2], enemyTeam())
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = o.CreateBattle(playerTeam(), []TeamMemberInput{
		{CharacterID: "e1"}, {CharacterID: "e1"}, {CharacterID: "e2"},
	})
	require.ErrorAs(t, err, &verr)
	assert.Zero(t, o.BattleCount())
}

func TestCreateBattleUnknownCharacter(t *testing.T) {
	o := newTestOrchestrator(t)
	team := playerTeam()
	team[1].CharacterID = "ghost"
	_, err := o.CreateBattle(team, enemyTeam())
	var nferr *NotFoundError
	require.ErrorAs(t, err, &nferr)
	assert.Equal(t, "character", nferr.Kind)
}

func TestExecuteAttackHappyPath(t *testing.T) {
	o := newTestOrchestrator(t)
	view, err := o.CreateBattle(playerTeam(), enemyTeam())
	require.NoError(t, err)

	result, after, err := o.ExecuteAttack(view.ID, game.SidePlayer, "p1", "e1", "spear")
	require.NoError(t, err)
	require.Len(t, result.Targets, 1)
	assert.Greater(t, result.Targets[0].Result.Amount, 0)
	assert.Equal(t, 10, result.AnimaSpent)

	target := after.Opponent.Combatants[0]
	assert.Less(t, target.CurrentHP, target.MaxHP)
	assert.Equal(t, game.SideEnemy, after.CurrentTurn)
}

func TestExecuteAttackWrongTurnLeavesStateUnchanged(t *testing.T) {
	o := newTestOrchestrator(t)
	view, err := o.CreateBattle(playerTeam(), enemyTeam())
	require.NoError(t, err)

	before, err := o.GetBattleView(view.ID, game.SidePlayer)
	require.NoError(t, err)

	_, _, err = o.ExecuteAttack(view.ID, game.SideEnemy, "e1", "p1", "basic_attack")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	after, err := o.GetBattleView(view.ID, game.SidePlayer)
	require.NoError(t, err)
	assert.Equal(t, before.CurrentTurn, after.CurrentTurn)
	assert.Equal(t, before.Opponent.Combatants[0].CurrentHP, after.Opponent.Combatants[0].CurrentHP)
	assert.Equal(t, len(before.Log), len(after.Log))
}

func TestExecuteAttackUnknownSkillAndForeignSkill(t *testing.T) {
	o := newTestOrchestrator(t)
	view, err := o.CreateBattle(playerTeam(), enemyTeam())
	require.NoError(t, err)

	var verr *ValidationError
	_, _, err = o.ExecuteAttack(view.ID, game.SidePlayer, "p1", "e1", "no_such_skill")
	require.ErrorAs(t, err, &verr)

	// Acting with a combatant that is not the active member.
	_, _, err = o.ExecuteAttack(view.ID, game.SidePlayer, "p2", "e1", "spear")
	require.ErrorAs(t, err, &verr)
}

func TestExecuteAttackInsufficientAnima(t *testing.T) {
	o := newTestOrchestrator(t)
	view, err := o.CreateBattle(playerTeam(), enemyTeam())
	require.NoError(t, err)

	_, _, err = o.ExecuteAttack(view.ID, game.SidePlayer, "p1", "e1", "expensive")
	var rerr *ResourceError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, 500, rerr.Need)

	// The rejected action consumed nothing and kept the turn.
	after, err := o.GetBattleView(view.ID, game.SidePlayer)
	require.NoError(t, err)
	assert.Equal(t, game.SidePlayer, after.CurrentTurn)
	require.NotNil(t, after.You.Combatants[0].Anima)
	assert.Equal(t, 100, *after.You.Combatants[0].Anima)
}

func TestExecuteAttackUnknownBattle(t *testing.T) {
	o := newTestOrchestrator(t)
	_, _, err := o.ExecuteAttack("missing", game.SidePlayer, "p1", "e1", "spear")
	var nferr *NotFoundError
	require.ErrorAs(t, err, &nferr)
}

func TestBattleEndIsIdempotent(t *testing.T) {
	o := newTestOrchestrator(t)
	view, err := o.CreateBattle(playerTeam(), enemyTeam())
	require.NoError(t, err)

	o.mu.Lock()
	rec := o.battles[view.ID]
	for i := range rec.battle.EnemyTeam.Combatants {
		c := &rec.battle.EnemyTeam.Combatants[i]
		if i < 2 {
			c.CurrentHP = 0
			c.Status = game.CombatantDefeated
		} else {
			c.CurrentHP = 1
		}
	}
	rec.battle.EnemyTeam.ActiveIndex = 2
	o.mu.Unlock()

	_, after, err := o.ExecuteAttack(view.ID, game.SidePlayer, "p1", "e3", "basic_attack")
	require.NoError(t, err)
	assert.Equal(t, game.StatusVictory, after.Status)

	ended := 0
	for _, entry := range after.Log {
		if entry.Message == "battle ended: victory" {
			ended++
		}
	}
	assert.Equal(t, 1, ended)

	// Further actions against the finished battle are rejected.
	_, _, err = o.ExecuteAttack(view.ID, game.SidePlayer, "p1", "e3", "basic_attack")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestExecuteSwapBudget(t *testing.T) {
	o := newTestOrchestrator(t)
	view, err := o.CreateBattle(playerTeam(), enemyTeam())
	require.NoError(t, err)

	after, err := o.ExecuteSwap(view.ID, game.SidePlayer, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, after.You.ActiveIndex)
	assert.Equal(t, 1, after.You.SwapsUsed)
	// Swapping does not consume the turn.
	assert.Equal(t, game.SidePlayer, after.CurrentTurn)

	_, err = o.ExecuteSwap(view.ID, game.SidePlayer, 2)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestExecuteSwapValidation(t *testing.T) {
	o := newTestOrchestrator(t)
	view, err := o.CreateBattle(playerTeam(), enemyTeam())
	require.NoError(t, err)

	var verr *ValidationError
	_, err = o.ExecuteSwap(view.ID, game.SidePlayer, 7)
	require.ErrorAs(t, err, &verr)
	_, err = o.ExecuteSwap(view.ID, game.SidePlayer, 0)
	require.ErrorAs(t, err, &verr)
	_, err = o.ExecuteSwap(view.ID, game.SideEnemy, 1)
	require.ErrorAs(t, err, &verr)
}

func TestEnemyAutoplayActsAndReturnsTurn(t *testing.T) {
	o := newTestOrchestrator(t)
	view, err := o.CreateBattle(playerTeam(), enemyTeam())
	require.NoError(t, err)

	_, _, err = o.ExecuteAttack(view.ID, game.SidePlayer, "p1", "e1", "spear")
	require.NoError(t, err)

	o.mu.Lock()
	rec := o.battles[view.ID]
	err = o.runEnemyTurnLocked(rec)
	o.mu.Unlock()
	require.NoError(t, err)

	after, err := o.GetBattleView(view.ID, game.SidePlayer)
	require.NoError(t, err)
	assert.Equal(t, game.SidePlayer, after.CurrentTurn)
	assert.Less(t, after.You.Combatants[0].CurrentHP, after.You.Combatants[0].MaxHP)
}

func TestSweepRemovesIdleBattles(t *testing.T) {
	o := newTestOrchestrator(t)
	view, err := o.CreateBattle(playerTeam(), enemyTeam())
	require.NoError(t, err)
	require.Equal(t, 1, o.BattleCount())

	assert.Zero(t, o.Sweep(time.Now()))
	assert.Equal(t, 1, o.Sweep(time.Now().Add(time.Hour)))
	assert.Zero(t, o.BattleCount())

	_, err = o.GetBattleView(view.ID, game.SidePlayer)
	var nferr *NotFoundError
	require.ErrorAs(t, err, &nferr)
}

func TestGetBattleViewLogBounded(t *testing.T) {
	o := newTestOrchestrator(t)
	view, err := o.CreateBattle(playerTeam(), enemyTeam())
	require.NoError(t, err)

	o.mu.Lock()
	rec := o.battles[view.ID]
	for i := 0; i < 120; i++ {
		rec.battle.AppendLog(game.ActionLogEntry{Message: fmt.Sprintf("entry %d", i)})
	}
	o.mu.Unlock()

	after, err := o.GetBattleView(view.ID, game.SidePlayer)
	require.NoError(t, err)
	assert.Len(t, after.Log, maxLogEntries)
	assert.Equal(t, "entry 119", after.Log[len(after.Log)-1].Message)
}

func newWoundedFuryOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	log := zap.NewNop()
	abilities := []game.PassiveAbility{{
		ID:      "fury",
		Name:    "Fury",
		Culture: "norse",
		Trigger: game.TriggerLowHP,
		Effect:  game.PassiveEffect{Type: game.PassiveDamageBonus, Value: 0.5},
	}}
	anima := engine.NewAnimaTracker(5, log)
	passives := engine.NewPassiveDispatcher(catalog.NewPassiveCatalog(abilities), log)
	phases := engine.NewPhaseMachine(anima, passives, log)
	balance := engine.NewBalanceAnalyzer(engine.BalanceConfig{}, log)
	damage := engine.NewDamageEngine(rand.New(rand.NewSource(1)), balance, log)
	tuning := config.BattleTuning{
		AnimaRegenPerTurn: 5,
		SwapsPerTurn:      1,
		EnemyTurnDelay:    time.Hour,
		IdleTimeout:       10 * time.Minute,
	}
	return NewOrchestrator(testRoster(), testSkills(), anima, passives, phases, damage, balance, nil, tuning, log)
}

func TestLowHPPassiveQuietAtFullHealth(t *testing.T) {
	o := newWoundedFuryOrchestrator(t)
	view, err := o.CreateBattle(playerTeam(), enemyTeam())
	require.NoError(t, err)

	result, _, err := o.ExecuteAttack(view.ID, game.SidePlayer, "p1", "e1", "spear")
	require.NoError(t, err)
	assert.Empty(t, result.Passives, "a low_hp passive must not fire for a healthy attacker")
}

func TestLowHPPassiveFiresForWoundedAttacker(t *testing.T) {
	o := newWoundedFuryOrchestrator(t)
	view, err := o.CreateBattle(playerTeam(), enemyTeam())
	require.NoError(t, err)

	o.mu.Lock()
	rec := o.battles[view.ID]
	rec.battle.PlayerTeam.Combatants[0].CurrentHP = 40
	o.mu.Unlock()

	result, _, err := o.ExecuteAttack(view.ID, game.SidePlayer, "p1", "e1", "spear")
	require.NoError(t, err)
	assert.Contains(t, result.Passives, "Fury")
}
