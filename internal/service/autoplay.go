package service

import (
	"go.uber.org/zap"

	"github.com/naccaratoo/rpgstack-sub001/internal/constants"
	"github.com/naccaratoo/rpgstack-sub001/internal/game"
)

const autoplayHealThreshold = 0.5

// runEnemyTurnLocked performs one automated action for the enemy side. The
// policy is deliberately simple: heal when hurt and a heal is usable,
// otherwise the cheapest affordable off-cooldown damage skill, falling back
// to the basic attack. Caller holds the registry lock.
func (o *Orchestrator) runEnemyTurnLocked(rec *battleRecord) error {
	b := rec.battle
	attacker := b.EnemyTeam.Active()
	if attacker == nil {
		return nil
	}

	skill := o.pickEnemySkill(rec, attacker)
	targetID := attacker.CharacterID
	if skill.Type != game.DamageHeal {
		playerActive := b.PlayerTeam.Active()
		if playerActive == nil {
			return nil
		}
		targetID = playerActive.CharacterID
	}

	o.log.Debug("enemy autoplay",
		zap.String(constants.LogFieldBattleID, b.ID),
		zap.String(constants.LogFieldCombatant, attacker.CharacterID),
		zap.String(constants.LogFieldSkill, skill.ID))
	_, err := o.executeAttackLocked(rec, game.SideEnemy, attacker.CharacterID, targetID, skill.ID)
	return err
}

// pickEnemySkill chooses the action for an automated combatant. Always
// returns a usable skill; the basic attack is the guaranteed fallback.
func (o *Orchestrator) pickEnemySkill(rec *battleRecord, attacker *game.CombatantState) game.Skill {
	b := rec.battle
	fallback := o.skills.BasicAttack()

	var bestDamage, bestHeal *game.Skill
	bestDamageCost, bestHealCost := 0, 0
	for _, id := range rec.skillsByCombatant[attacker.CharacterID] {
		skill, err := o.skills.GetSkill(id)
		if err != nil {
			continue
		}
		check, err := o.anima.CanUseSkill(b.ID, attacker.CharacterID, skill)
		if err != nil || !check.CanUse {
			continue
		}
		s := skill
		if skill.Type == game.DamageHeal {
			if bestHeal == nil || check.Cost < bestHealCost {
				bestHeal, bestHealCost = &s, check.Cost
			}
			continue
		}
		if bestDamage == nil || check.Cost < bestDamageCost {
			bestDamage, bestDamageCost = &s, check.Cost
		}
	}

	if bestHeal != nil && attacker.HPPercent() < autoplayHealThreshold {
		return *bestHeal
	}
	if bestDamage != nil {
		return *bestDamage
	}
	return fallback
}
