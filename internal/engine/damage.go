package engine

import (
	"math"
	"math/rand"

	"go.uber.org/zap"

	"github.com/naccaratoo/rpgstack-sub001/internal/game"
)

// Damage pipeline constants. The modifier order is fixed: critical, type
// affinity, buffs, debuffs, passives, balance override, flat bonuses, and
// finally random variance.
const (
	critBaseChance     = 0.05
	critMultiplier     = 1.5
	varianceMin        = 0.9
	varianceSpan       = 0.2
	lowHPThreshold     = 0.25
	lowHPFlatBonus     = 20
	damageFloor        = 1
	damageCap          = 9999
	physicalDefaultMul = 1.0
	magicalDefaultMul  = 1.5

	aoeFixedReducer     = 0.6
	aoeFocusOffReducer  = 0.4
	aoeDecayAdjacent    = 0.7
	aoeDecayOuter       = 0.4
)

// BalanceSource exposes the auto-balance multiplier overrides. Missing keys
// resolve to 1.0.
type BalanceSource interface {
	Multiplier(key string) float64
}

// Balance multiplier keys.
const (
	BalanceKeyGlobalDamage    = "global_damage"
	BalanceKeyEnemyDifficulty = "enemy_difficulty"
)

// AttackerSnapshot is the trusted attacker view for one calculation.
type AttackerSnapshot struct {
	Attack        int
	SpecialAttack int
	CritBonus     float64
	BuffBonus     float64
	PassiveBonus  float64
	Side          game.Side
}

// DefenderSnapshot is the trusted defender view for one calculation.
type DefenderSnapshot struct {
	Defense       int
	Spirit        int
	HPPercent     float64
	Vulnerability float64
	Affinities    map[string]float64
}

// DamageInput bundles everything one calculation needs. The suppress flags
// exist so callers (and tests) can pin individual random draws.
type DamageInput struct {
	Attacker         AttackerSnapshot
	Defender         DefenderSnapshot
	Skill            game.Skill
	ForceCritical    bool
	SuppressCritical bool
	SuppressVariance bool
}

// ModifierSet records every step the pipeline applied, for logs and tests.
type ModifierSet struct {
	CriticalApplied    bool    `json:"critical_applied"`
	CriticalChance     float64 `json:"critical_chance"`
	CriticalMultiplier float64 `json:"critical_multiplier"`
	TypeBonus          float64 `json:"type_bonus"`
	Buffs              float64 `json:"buffs"`
	Debuffs            float64 `json:"debuffs"`
	Passives           float64 `json:"passives"`
	Balance            float64 `json:"balance"`
	SkillFlat          int     `json:"skill_flat"`
	ConditionalFlat    int     `json:"conditional_flat"`
	Variance           float64 `json:"variance"`
}

// DamageResult is the outcome of one calculation. Amount is an integer in
// [1, 9999]; Heal marks restorative results.
type DamageResult struct {
	Amount    int         `json:"amount"`
	Heal      bool        `json:"heal"`
	Critical  bool        `json:"critical"`
	Modifiers ModifierSet `json:"modifiers"`
}

// TargetDamage is one per-target slice of an area calculation.
type TargetDamage struct {
	Index   int          `json:"index"`
	Reducer float64      `json:"reducer"`
	Result  DamageResult `json:"result"`
}

// AreaResult is the outcome of an area-of-effect calculation. Efficiency is
// total area damage over (single-target damage x target count), reported
// for balance analysis.
type AreaResult struct {
	Targets    []TargetDamage `json:"targets"`
	Efficiency float64        `json:"efficiency"`
}

// DamageEngine turns stat snapshots, a skill and modifier contributions
// into a numeric result. All randomness flows through the injected source:
// each decision is exactly one draw, so a seeded source reproduces results.
type DamageEngine struct {
	rng     *rand.Rand
	balance BalanceSource
	log     *zap.Logger
}

// NewDamageEngine builds an engine around the given random source and
// balance overrides. balance may be nil.
func NewDamageEngine(rng *rand.Rand, balance BalanceSource, log *zap.Logger) *DamageEngine {
	return &DamageEngine{rng: rng, balance: balance, log: log}
}

// Compute runs the full pipeline for a single target.
func (e *DamageEngine) Compute(in DamageInput) DamageResult {
	base := e.rawBase(in)
	return e.applyModifiers(base, in)
}

// ComputeArea computes the single-target base once from the main (first)
// target, applies the per-index reducer for the skill's mode, then runs the
// modifier pipeline per target. Focus mode suppresses criticals on every
// target but the main one.
func (e *DamageEngine) ComputeArea(in DamageInput, targets []DefenderSnapshot) AreaResult {
	if len(targets) == 0 {
		return AreaResult{}
	}
	main := in
	main.Defender = targets[0]
	base := e.rawBase(main)

	out := AreaResult{Targets: make([]TargetDamage, 0, len(targets))}
	total := 0
	for i, def := range targets {
		ti := in
		ti.Defender = def
		if in.Skill.AoEMode == game.AoEFocus && i > 0 {
			ti.SuppressCritical = true
			ti.ForceCritical = false
		}
		reducer := areaReducer(in.Skill.AoEMode, i)
		res := e.applyModifiers(base*reducer, ti)
		total += res.Amount
		out.Targets = append(out.Targets, TargetDamage{Index: i, Reducer: reducer, Result: res})
	}

	single := int(math.Floor(base))
	if single < damageFloor {
		single = damageFloor
	}
	out.Efficiency = float64(total) / float64(single*len(targets))
	return out
}

// rawBase computes the pre-modifier base damage for the skill type.
func (e *DamageEngine) rawBase(in DamageInput) float64 {
	mult := in.Skill.Multiplier
	switch in.Skill.Type {
	case game.DamageMagical:
		if mult == 0 {
			mult = magicalDefaultMul
		}
		atk := float64(in.Attacker.SpecialAttack)
		spirit := float64(in.Defender.Spirit)
		return (atk*mult + float64(in.Skill.BaseDamage)) * 100.0 / (100.0 + spirit)
	case game.DamageHeal:
		if mult == 0 {
			mult = magicalDefaultMul
		}
		return float64(in.Attacker.SpecialAttack)*mult + float64(in.Skill.BaseDamage)
	default:
		if mult == 0 {
			mult = physicalDefaultMul
		}
		atk := float64(in.Attacker.Attack)
		def := float64(in.Defender.Defense)
		return (atk*mult + float64(in.Skill.BaseDamage)) * 100.0 / (100.0 + def)
	}
}

// applyModifiers runs the fixed-order modifier pipeline over a base value.
func (e *DamageEngine) applyModifiers(base float64, in DamageInput) DamageResult {
	heal := in.Skill.Type == game.DamageHeal
	mods := ModifierSet{
		CriticalChance:     critBaseChance + in.Attacker.CritBonus + in.Skill.CritBonus,
		CriticalMultiplier: critMultiplier,
		TypeBonus:          1.0,
		Buffs:              1.0 + in.Attacker.BuffBonus,
		Debuffs:            1.0 + in.Defender.Vulnerability,
		Passives:           1.0 + in.Attacker.PassiveBonus,
		Balance:            1.0,
		Variance:           1.0,
	}

	value := base

	// Critical: one roll against the accumulated chance.
	if !in.SuppressCritical {
		roll := e.rng.Float64()
		if in.ForceCritical || roll < mods.CriticalChance {
			mods.CriticalApplied = true
			value *= mods.CriticalMultiplier
		}
	}

	// Elemental affinity of the defender against the skill's element.
	if in.Skill.Element != "" && in.Defender.Affinities != nil {
		if m, ok := in.Defender.Affinities[in.Skill.Element]; ok && m > 0 {
			mods.TypeBonus = m
		}
	}
	value *= mods.TypeBonus

	value *= mods.Buffs
	if !heal {
		value *= mods.Debuffs
	}
	value *= mods.Passives

	// Global balance overrides, cumulative replacements from the analyzer.
	if e.balance != nil {
		mods.Balance = e.balance.Multiplier(BalanceKeyGlobalDamage)
		if in.Attacker.Side == game.SideEnemy {
			mods.Balance *= e.balance.Multiplier(BalanceKeyEnemyDifficulty)
		}
		value *= mods.Balance
	}

	// Flat additive bonuses: skill-specific plus the low-HP execute bonus.
	if !heal {
		mods.SkillFlat = in.Skill.FlatBonus
		if in.Defender.HPPercent > 0 && in.Defender.HPPercent < lowHPThreshold {
			mods.ConditionalFlat = lowHPFlatBonus
		}
		value += float64(mods.SkillFlat + mods.ConditionalFlat)
	}

	// Uniform random variance, one draw.
	if !in.SuppressVariance {
		mods.Variance = varianceMin + varianceSpan*e.rng.Float64()
		value *= mods.Variance
	}

	amount := int(math.Floor(value))
	if amount < damageFloor {
		amount = damageFloor
	}
	if amount > damageCap {
		amount = damageCap
	}
	return DamageResult{Amount: amount, Heal: heal, Critical: mods.CriticalApplied, Modifiers: mods}
}

// areaReducer maps the AoE mode and target index to a damage reducer.
func areaReducer(mode game.AoEMode, index int) float64 {
	switch mode {
	case game.AoEFixed:
		return aoeFixedReducer
	case game.AoEFocus:
		if index == 0 {
			return 1.0
		}
		return aoeFocusOffReducer
	case game.AoEDecreasing:
		switch index {
		case 0:
			return 1.0
		case 1:
			return aoeDecayAdjacent
		default:
			return aoeDecayOuter
		}
	default:
		return 1.0
	}
}
