package service

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/naccaratoo/rpgstack-sub001/internal/catalog"
	"github.com/naccaratoo/rpgstack-sub001/internal/config"
	"github.com/naccaratoo/rpgstack-sub001/internal/constants"
	"github.com/naccaratoo/rpgstack-sub001/internal/engine"
	"github.com/naccaratoo/rpgstack-sub001/internal/game"
	"github.com/naccaratoo/rpgstack-sub001/internal/storage"
)

const teamSize = 3

// TeamMemberInput is the only client-controlled part of battle creation:
// identity and position. Stats are always loaded from the character store.
type TeamMemberInput struct {
	CharacterID string `json:"character_id"`
	Position    int    `json:"position"`
}

// ActionResult reports the outcome of a successful attack.
type ActionResult struct {
	SkillID    string                `json:"skill_id"`
	AnimaSpent int                   `json:"anima_spent"`
	Targets    []engine.TargetDamage `json:"targets"`
	Efficiency float64               `json:"efficiency,omitempty"`
	Defeated   []string              `json:"defeated,omitempty"`
	Passives   []string              `json:"passives,omitempty"`
}

// battleRecord is the orchestrator's per-battle bookkeeping around the
// battle object itself.
type battleRecord struct {
	battle            *game.Battle
	skillsByCombatant map[string][]string
	usage             map[string]engine.SkillOutcome
	totalDamage       int
	started           time.Time
}

func (r *battleRecord) allowsSkill(combatantID, skillID string) bool {
	if skillID == catalog.FallbackBasicAttackID {
		return true
	}
	for _, id := range r.skillsByCombatant[combatantID] {
		if id == skillID {
			return true
		}
	}
	return false
}

// Orchestrator is the anti-cheat boundary: it owns the battle registry,
// loads canonical stats, validates every action against turn ownership,
// resources and cooldowns, and coordinates the combat subsystems.
type Orchestrator struct {
	characters catalog.CharacterStore
	skills     *catalog.SkillCatalog
	anima      *engine.AnimaTracker
	passives   *engine.PassiveDispatcher
	phases     *engine.PhaseMachine
	damage     *engine.DamageEngine
	balance    *engine.BalanceAnalyzer
	repo       storage.Repository
	log        *zap.Logger
	tuning     config.BattleTuning

	mu      sync.Mutex
	battles map[string]*battleRecord
}

// NewOrchestrator wires the combat subsystems together. repo may be nil
// when outcome persistence is not wanted (tests).
func NewOrchestrator(
	characters catalog.CharacterStore,
	skills *catalog.SkillCatalog,
	anima *engine.AnimaTracker,
	passives *engine.PassiveDispatcher,
	phases *engine.PhaseMachine,
	damage *engine.DamageEngine,
	balance *engine.BalanceAnalyzer,
	repo storage.Repository,
	tuning config.BattleTuning,
	log *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		characters: characters,
		skills:     skills,
		anima:      anima,
		passives:   passives,
		phases:     phases,
		damage:     damage,
		balance:    balance,
		repo:       repo,
		tuning:     tuning,
		log:        log,
		battles:    make(map[string]*battleRecord),
	}
}

// CreateBattle validates the team shapes, loads canonical stats for every
// combatant and registers the battle with all subsystems. The returned view
// is the player-side redacted snapshot.
func (o *Orchestrator) CreateBattle(playerTeam, enemyTeam []TeamMemberInput) (BattleView, error) {
	if len(playerTeam) != teamSize || len(enemyTeam) != teamSize {
		return BattleView{}, validationf("each team must have exactly %d combatants", teamSize)
	}

	seen := make(map[string]struct{}, teamSize*2)
	build := func(members []TeamMemberInput) (game.Team, map[string][]string, []engine.AnimaRegistrant, []engine.PassiveRegistrant, error) {
		team := game.Team{SwapsMax: o.tuning.SwapsPerTurn}
		skills := make(map[string][]string, len(members))
		var animaRegs []engine.AnimaRegistrant
		var passiveRegs []engine.PassiveRegistrant
		for _, m := range members {
			if m.CharacterID == "" {
				return game.Team{}, nil, nil, nil, validationf("team member missing character_id")
			}
			if _, dup := seen[m.CharacterID]; dup {
				return game.Team{}, nil, nil, nil, validationf("character %s appears more than once", m.CharacterID)
			}
			seen[m.CharacterID] = struct{}{}

			char, err := o.characters.LoadCanonicalStats(m.CharacterID)
			if err != nil {
				return game.Team{}, nil, nil, nil, &NotFoundError{Kind: "character", ID: m.CharacterID}
			}
			team.Combatants = append(team.Combatants, game.CombatantState{
				CharacterID: char.ID,
				Name:        char.Name,
				Culture:     char.Culture,
				Position:    m.Position,
				Stats:       char.Stats,
				CurrentHP:   char.Stats.MaxHP,
				Status:      game.CombatantActive,
			})
			skills[char.ID] = char.SkillIDs
			animaRegs = append(animaRegs, engine.AnimaRegistrant{
				CombatantID: char.ID,
				Current:     char.Stats.MaxAnima,
				Max:         char.Stats.MaxAnima,
			})
			passiveRegs = append(passiveRegs, engine.PassiveRegistrant{
				CombatantID: char.ID,
				Culture:     char.Culture,
			})
		}
		return team, skills, animaRegs, passiveRegs, nil
	}

	pTeam, pSkills, pAnima, pPassives, err := build(playerTeam)
	if err != nil {
		return BattleView{}, err
	}
	eTeam, eSkills, eAnima, ePassives, err := build(enemyTeam)
	if err != nil {
		return BattleView{}, err
	}

	now := time.Now()
	b := &game.Battle{
		ID:          uuid.NewString(),
		Status:      game.StatusActive,
		PlayerTeam:  pTeam,
		EnemyTeam:   eTeam,
		CurrentTurn: game.SidePlayer,
		Round:       1,
		CreatedAt:   now,
		LastAction:  now,
	}
	rec := &battleRecord{
		battle:            b,
		skillsByCombatant: mergeSkillMaps(pSkills, eSkills),
		usage:             make(map[string]engine.SkillOutcome),
		started:           now,
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.battles[b.ID] = rec
	o.anima.RegisterBattle(b.ID, append(pAnima, eAnima...))
	o.passives.RegisterBattle(b.ID, append(pPassives, ePassives...))
	o.phases.RegisterBattle(b, game.SidePlayer)

	fired := o.passives.OnBattleEvent(b.ID, game.TriggerBattleStart, engine.EventData{
		AllyCount: teamSize - 1,
		Phase:     string(game.PhaseCheck),
	})
	for _, f := range fired {
		b.AppendLog(game.ActionLogEntry{
			ActorID: f.CombatantID,
			Message: "passive " + f.AbilityName + " activated at battle start",
		})
	}

	// Open the first action window: CHECK then PLAYER for the player side.
	o.drivePhase(rec)
	o.drivePhase(rec)

	b.AppendLog(game.ActionLogEntry{Side: game.SidePlayer, Message: "battle started"})
	o.log.Info("battle created",
		zap.String(constants.LogFieldBattleID, b.ID),
		zap.Int("combatants", teamSize*2))
	return o.buildView(rec, game.SidePlayer), nil
}

// ExecuteAttack validates and performs one attack for the given side. Any
// precondition failure returns a typed error with no state mutated.
func (o *Orchestrator) ExecuteAttack(battleID string, side game.Side, attackerID, targetID, skillID string) (ActionResult, BattleView, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	rec, ok := o.battles[battleID]
	if !ok {
		return ActionResult{}, BattleView{}, &NotFoundError{Kind: "battle", ID: battleID}
	}
	res, err := o.executeAttackLocked(rec, side, attackerID, targetID, skillID)
	if err != nil {
		return ActionResult{}, BattleView{}, err
	}
	return res, o.buildView(rec, side), nil
}

func (o *Orchestrator) executeAttackLocked(rec *battleRecord, side game.Side, attackerID, targetID, skillID string) (ActionResult, error) {
	b := rec.battle
	if b.Finished() {
		return ActionResult{}, validationf("battle %s has already ended", b.ID)
	}
	if b.CurrentTurn != side {
		return ActionResult{}, validationf("it is not the %s side's turn", side)
	}
	attacker := b.TeamFor(side).Active()
	if attacker == nil {
		return ActionResult{}, validationf("the %s side has no active combatant", side)
	}
	if attacker.CharacterID != attackerID {
		return ActionResult{}, validationf("combatant %s is not the active team member", attackerID)
	}
	if !rec.allowsSkill(attackerID, skillID) {
		return ActionResult{}, validationf("combatant %s does not know skill %s", attackerID, skillID)
	}
	skill, err := o.skills.GetSkill(skillID)
	if err != nil {
		return ActionResult{}, validationf("%v", err)
	}

	targets, err := o.resolveTargets(b, side, skill, targetID)
	if err != nil {
		return ActionResult{}, err
	}

	check, err := o.anima.CanUseSkill(b.ID, attackerID, skill)
	if err != nil {
		return ActionResult{}, err
	}
	if !check.HasResource {
		cur, _, _, _ := o.anima.Snapshot(b.ID, attackerID)
		return ActionResult{}, &ResourceError{
			Reason: "insufficient anima",
			Need:   check.Cost,
			Have:   cur,
		}
	}
	if !check.NoCooldown {
		return ActionResult{}, &ResourceError{
			Reason:            "skill is on cooldown",
			CooldownRemaining: check.CooldownRemaining,
		}
	}

	// All preconditions hold; from here on state mutates.
	if _, err := o.anima.UseSkill(b.ID, attackerID, skill); err != nil {
		return ActionResult{}, err
	}

	result := o.applySkill(rec, side, attacker, skill, targets)
	b.LastAction = time.Now()

	agg := rec.usage[skill.ID]
	agg.Uses++
	agg.Cost += check.Cost
	for _, t := range result.Targets {
		if !t.Result.Heal {
			agg.Damage += t.Result.Amount
			rec.totalDamage += t.Result.Amount
		}
	}
	rec.usage[skill.ID] = agg
	result.AnimaSpent = check.Cost

	o.checkBattleEnd(rec)
	if !b.Finished() {
		o.advanceTurn(rec)
	}
	return result, nil
}

// resolveTargets picks the main target and, for area skills, the rest of
// the opposing line-up in position order. Heals target the caster's side.
func (o *Orchestrator) resolveTargets(b *game.Battle, side game.Side, skill game.Skill, targetID string) ([]*game.CombatantState, error) {
	targetTeam := b.TeamFor(side.Opposite())
	if skill.Type == game.DamageHeal {
		targetTeam = b.TeamFor(side)
	}
	main := targetTeam.FindByID(targetID)
	if main == nil {
		return nil, validationf("target %s is not a valid target for this skill", targetID)
	}
	if !main.Alive() {
		return nil, validationf("target %s is already defeated", targetID)
	}
	targets := []*game.CombatantState{main}
	if skill.AreaOfEffect {
		for i := range targetTeam.Combatants {
			c := &targetTeam.Combatants[i]
			if c.CharacterID == main.CharacterID || !c.Alive() {
				continue
			}
			targets = append(targets, c)
		}
	}
	return targets, nil
}

// applySkill computes and applies the skill's HP changes, appends log
// entries and reports the per-target results.
func (o *Orchestrator) applySkill(rec *battleRecord, side game.Side, attacker *game.CombatantState, skill game.Skill, targets []*game.CombatantState) ActionResult {
	b := rec.battle
	passiveBonus, passiveNames := o.attackerPassiveBonus(b.ID, side, attacker, skill)

	in := engine.DamageInput{
		Attacker: engine.AttackerSnapshot{
			Attack:        attacker.Stats.Attack,
			SpecialAttack: attacker.Stats.SpecialAttack,
			CritBonus:     attacker.Stats.CritBonus,
			BuffBonus:     attacker.BuffBonus(),
			PassiveBonus:  passiveBonus,
			Side:          side,
		},
		Skill: skill,
	}

	result := ActionResult{SkillID: skill.ID, Passives: passiveNames}
	if skill.AreaOfEffect && len(targets) > 1 {
		snaps := make([]engine.DefenderSnapshot, len(targets))
		for i, t := range targets {
			snaps[i] = defenderSnapshot(t)
		}
		area := o.damage.ComputeArea(in, snaps)
		result.Targets = area.Targets
		result.Efficiency = area.Efficiency
	} else {
		in.Defender = defenderSnapshot(targets[0])
		r := o.damage.Compute(in)
		result.Targets = []engine.TargetDamage{{Index: 0, Reducer: 1.0, Result: r}}
	}

	for i, t := range result.Targets {
		target := targets[i]
		entry := game.ActionLogEntry{
			Side:     side,
			ActorID:  attacker.CharacterID,
			TargetID: target.CharacterID,
			SkillID:  skill.ID,
			Critical: t.Result.Critical,
		}
		if t.Result.Heal {
			target.CurrentHP += t.Result.Amount
			if target.CurrentHP > target.Stats.MaxHP {
				target.CurrentHP = target.Stats.MaxHP
			}
			entry.Healing = t.Result.Amount
			entry.Message = attacker.Name + " heals " + target.Name
		} else {
			target.CurrentHP -= t.Result.Amount
			if target.CurrentHP < 0 {
				target.CurrentHP = 0
			}
			entry.Damage = t.Result.Amount
			entry.Message = attacker.Name + " hits " + target.Name
			if target.CurrentHP == 0 && target.Status == game.CombatantActive {
				target.Status = game.CombatantDefeated
				result.Defeated = append(result.Defeated, target.CharacterID)
			}

			o.defenderPassives(rec, side.Opposite(), target)
		}
		b.AppendLog(entry)

		if t.Result.Critical {
			o.passives.OnBattleEvent(b.ID, game.TriggerOnCritical, engine.EventData{
				CombatantID: attacker.CharacterID,
				HPPercent:   attacker.HPPercent(),
				SkillType:   string(skill.Type),
			})
		}
	}

	// A downed active member forces the next alive teammate in.
	for _, t := range targets {
		if !t.Alive() {
			o.promoteReserve(b, t)
		}
	}
	return result
}

// lowHPEventThreshold bounds the low_hp trigger: the event only fires below
// half health, so conditionless low_hp abilities stay quiet for healthy
// attackers while hp_below conditions still refine within the band.
const lowHPEventThreshold = 0.5

// attackerPassiveBonus sums the damage and crit contributions the
// attacker's passives produce for this attack. The emitted trigger depends
// on the attack: spell_cast for magical skills, low_hp when the attacker is
// under the low-HP band, otherwise passive_always so unconditional passives
// still apply.
func (o *Orchestrator) attackerPassiveBonus(battleID string, side game.Side, attacker *game.CombatantState, skill game.Skill) (float64, []string) {
	trigger := game.TriggerPassiveAlways
	switch {
	case skill.Type == game.DamageMagical:
		trigger = game.TriggerSpellCast
	case attacker.HPPercent() < lowHPEventThreshold:
		trigger = game.TriggerLowHP
	}
	fired := o.passives.OnBattleEvent(battleID, trigger, engine.EventData{
		CombatantID: attacker.CharacterID,
		HPPercent:   attacker.HPPercent(),
		SkillType:   string(skill.Type),
		HasDebuff:   attacker.HasDebuff(),
	})
	bonus := 0.0
	var names []string
	for _, f := range fired {
		if f.CombatantID != attacker.CharacterID {
			continue
		}
		if f.Effect.Type == game.PassiveDamageBonus {
			bonus += f.Effect.Value
			names = append(names, f.AbilityName)
		}
	}
	return bonus, names
}

// defenderPassives fires when_attacked triggers for a struck combatant and
// applies the directly-applicable results.
func (o *Orchestrator) defenderPassives(rec *battleRecord, side game.Side, target *game.CombatantState) {
	if !target.Alive() {
		return
	}
	b := rec.battle
	fired := o.passives.OnBattleEvent(b.ID, game.TriggerWhenAttacked, engine.EventData{
		CombatantID: target.CharacterID,
		HPPercent:   target.HPPercent(),
		AllyCount:   b.TeamFor(side).AliveCount() - 1,
		HasDebuff:   target.HasDebuff(),
	})
	for _, f := range fired {
		if f.CombatantID != target.CharacterID {
			continue
		}
		switch f.Effect.Type {
		case game.PassiveAnimaRestore:
			if err := o.anima.Grant(b.ID, target.CharacterID, int(f.Effect.Value)); err != nil {
				o.log.Warn("passive anima grant failed", zap.String(constants.LogFieldBattleID, b.ID), zap.Error(err))
			}
		case game.PassiveHealOverTime:
			target.Effects = append(target.Effects, game.StatusEffect{
				Type:      game.EffectHealOverTime,
				Magnitude: int(f.Effect.Value),
				Remaining: 2,
			})
		}
		b.AppendLog(game.ActionLogEntry{
			ActorID: target.CharacterID,
			Message: "passive " + f.AbilityName + " triggered when attacked",
		})
	}
}

// promoteReserve fields the next alive teammate when the active member of
// a team goes down.
func (o *Orchestrator) promoteReserve(b *game.Battle, downed *game.CombatantState) {
	for _, side := range []game.Side{game.SidePlayer, game.SideEnemy} {
		team := b.TeamFor(side)
		if team.FindByID(downed.CharacterID) == nil {
			continue
		}
		if team.Active() != nil {
			return
		}
		for i := range team.Combatants {
			if team.Combatants[i].Alive() {
				team.ActiveIndex = i
				b.AppendLog(game.ActionLogEntry{
					Side:    side,
					ActorID: team.Combatants[i].CharacterID,
					Message: team.Combatants[i].Name + " steps in",
				})
				return
			}
		}
	}
}

// ExecuteSwap switches the active member of a team, consuming one unit of
// the per-turn swap budget.
func (o *Orchestrator) ExecuteSwap(battleID string, side game.Side, targetIndex int) (BattleView, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	rec, ok := o.battles[battleID]
	if !ok {
		return BattleView{}, &NotFoundError{Kind: "battle", ID: battleID}
	}
	b := rec.battle
	if b.Finished() {
		return BattleView{}, validationf("battle %s has already ended", b.ID)
	}
	if b.CurrentTurn != side {
		return BattleView{}, validationf("it is not the %s side's turn", side)
	}
	team := b.TeamFor(side)
	if team.SwapsUsed >= team.SwapsMax {
		return BattleView{}, validationf("swap budget exhausted for this turn")
	}
	if targetIndex < 0 || targetIndex >= len(team.Combatants) {
		return BattleView{}, validationf("swap target index %d out of range", targetIndex)
	}
	if targetIndex == team.ActiveIndex {
		return BattleView{}, validationf("combatant is already active")
	}
	target := &team.Combatants[targetIndex]
	if !target.Alive() {
		return BattleView{}, validationf("cannot swap in a defeated combatant")
	}

	team.ActiveIndex = targetIndex
	team.SwapsUsed++
	b.LastAction = time.Now()
	b.AppendLog(game.ActionLogEntry{
		Side:    side,
		ActorID: target.CharacterID,
		Message: target.Name + " swaps in",
	})
	return o.buildView(rec, side), nil
}

// GetBattleView returns the redacted snapshot for the given viewer side.
func (o *Orchestrator) GetBattleView(battleID string, viewer game.Side) (BattleView, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	rec, ok := o.battles[battleID]
	if !ok {
		return BattleView{}, &NotFoundError{Kind: "battle", ID: battleID}
	}
	return o.buildView(rec, viewer), nil
}

// advanceTurn completes the acting side's END phase and opens the other
// side's action window (CHECK then PLAYER). The enemy side's automated turn
// is scheduled as a deferred follow-up.
func (o *Orchestrator) advanceTurn(rec *battleRecord) {
	b := rec.battle
	o.drivePhase(rec) // END of the acting side
	b.CurrentTurn = b.CurrentTurn.Opposite()
	o.drivePhase(rec) // CHECK of the new side
	o.drivePhase(rec) // PLAYER of the new side
	if b.Finished() {
		return
	}
	if b.CurrentTurn == game.SideEnemy {
		o.scheduleEnemyTurn(b.ID)
	}
}

// drivePhase advances the phase machine once and folds the snapshot into
// the battle log, re-checking the end condition after each step.
func (o *Orchestrator) drivePhase(rec *battleRecord) {
	b := rec.battle
	snap, err := o.phases.AdvancePhase(b.ID)
	if err != nil {
		o.log.Error("phase advance failed", zap.String(constants.LogFieldBattleID, b.ID), zap.Error(err))
		return
	}
	for _, ev := range snap.Events {
		b.AppendLog(game.ActionLogEntry{Phase: snap.Phase, Side: snap.Side, Message: ev})
	}
	o.checkBattleEnd(rec)
}

// checkBattleEnd transitions the battle status exactly once when a side is
// fully defeated. Calling it again after the battle ended is a no-op.
func (o *Orchestrator) checkBattleEnd(rec *battleRecord) {
	b := rec.battle
	if b.Finished() {
		return
	}
	playerAlive := b.PlayerTeam.AliveCount()
	enemyAlive := b.EnemyTeam.AliveCount()
	if playerAlive > 0 && enemyAlive > 0 {
		return
	}

	if enemyAlive == 0 {
		b.Status = game.StatusVictory
	} else {
		b.Status = game.StatusDefeat
	}
	if !b.EndLogged {
		b.EndLogged = true
		b.AppendLog(game.ActionLogEntry{Message: "battle ended: " + string(b.Status)})
	}
	o.log.Info("battle finished",
		zap.String(constants.LogFieldBattleID, b.ID),
		zap.String("status", string(b.Status)),
		zap.Int("rounds", b.Round))
	o.reportOutcome(rec)
}

// reportOutcome feeds the finished battle to the balance analyzer and the
// outcome sink. Persistence is fire-and-forget: failures never affect
// battle completion.
func (o *Orchestrator) reportOutcome(rec *battleRecord) {
	b := rec.battle
	winner := game.SidePlayer
	if b.Status == game.StatusDefeat {
		winner = game.SideEnemy
	}
	result := engine.BattleResult{
		BattleID:    b.ID,
		Winner:      winner,
		Duration:    time.Since(rec.started),
		Rounds:      b.Round,
		TotalDamage: rec.totalDamage,
		SkillUsage:  make(map[string]engine.SkillOutcome, len(rec.usage)),
	}
	for id, u := range rec.usage {
		result.SkillUsage[id] = u
	}
	appendChars := func(t *game.Team, side game.Side) {
		for i := range t.Combatants {
			result.Characters = append(result.Characters, engine.CharacterOutcome{
				CharacterID: t.Combatants[i].CharacterID,
				Side:        side,
				Won:         side == winner,
			})
		}
	}
	appendChars(&b.PlayerTeam, game.SidePlayer)
	appendChars(&b.EnemyTeam, game.SideEnemy)

	o.balance.RegisterBattleResult(result)

	if o.repo == nil {
		return
	}
	usageJSON, err := json.Marshal(result.SkillUsage)
	if err != nil {
		usageJSON = []byte("{}")
	}
	summary := &storage.BattleSummary{
		BattleID:   b.ID,
		Winner:     string(winner),
		DurationMS: result.Duration.Milliseconds(),
		Rounds:     b.Round,
		SkillUsage: string(usageJSON),
		FinishedAt: time.Now(),
	}
	go func() {
		if err := o.repo.SaveBattleSummary(summary); err != nil {
			o.log.Error("failed to persist battle summary",
				zap.String(constants.LogFieldBattleID, summary.BattleID), zap.Error(err))
		}
	}()
}

// scheduleEnemyTurn defers the enemy's automated action. The wake-up
// re-checks existence, status and turn ownership, so a battle removed or
// finished in the interim turns the callback into a no-op.
func (o *Orchestrator) scheduleEnemyTurn(battleID string) {
	time.AfterFunc(o.tuning.EnemyTurnDelay, func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		rec, ok := o.battles[battleID]
		if !ok {
			return
		}
		b := rec.battle
		if b.Finished() || b.CurrentTurn != game.SideEnemy {
			return
		}
		if err := o.runEnemyTurnLocked(rec); err != nil {
			o.log.Error("enemy turn failed", zap.String(constants.LogFieldBattleID, battleID), zap.Error(err))
		}
	})
}

// Sweep discards battles with no action inside the idle window, plus
// finished battles past the same window. Cleanup is silent.
func (o *Orchestrator) Sweep(now time.Time) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	removed := 0
	for id, rec := range o.battles {
		if now.Sub(rec.battle.LastAction) < o.tuning.IdleTimeout {
			continue
		}
		delete(o.battles, id)
		o.anima.RemoveBattle(id)
		o.passives.RemoveBattle(id)
		o.phases.RemoveBattle(id)
		removed++
		o.log.Info("battle swept",
			zap.String(constants.LogFieldBattleID, id),
			zap.String("status", string(rec.battle.Status)))
	}
	return removed
}

// BattleCount reports the number of live battles in the registry.
func (o *Orchestrator) BattleCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.battles)
}

func defenderSnapshot(c *game.CombatantState) engine.DefenderSnapshot {
	return engine.DefenderSnapshot{
		Defense:       c.Stats.Defense,
		Spirit:        c.Stats.Spirit,
		HPPercent:     c.HPPercent(),
		Vulnerability: c.DebuffBonus(),
	}
}

func mergeSkillMaps(a, b map[string][]string) map[string][]string {
	out := make(map[string][]string, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}
