package game

// TriggerType is the fixed vocabulary of battle events passive abilities
// can react to. PassiveAlways fires on every event.
type TriggerType string

const (
	TriggerBattleStart   TriggerType = "battle_start"
	TriggerPerTurn       TriggerType = "per_turn"
	TriggerLowHP         TriggerType = "low_hp"
	TriggerWhenAttacked  TriggerType = "when_attacked"
	TriggerOnCritical    TriggerType = "on_critical"
	TriggerDefend        TriggerType = "defend"
	TriggerSpellCast     TriggerType = "spell_cast"
	TriggerTurnEnd       TriggerType = "turn_end"
	TriggerPassiveAlways TriggerType = "passive_always"
)

// PassiveEffectType describes what a fired passive contributes.
type PassiveEffectType string

const (
	PassiveDamageBonus  PassiveEffectType = "damage_bonus"
	PassiveDefenseBonus PassiveEffectType = "defense_bonus"
	PassiveHealOverTime PassiveEffectType = "heal_over_time"
	PassiveAnimaRestore PassiveEffectType = "anima_restore"
	PassiveCritBonus    PassiveEffectType = "crit_bonus"
)

// PassiveEffect is the payload applied (by the caller) when an ability fires.
type PassiveEffect struct {
	Type  PassiveEffectType `json:"type" yaml:"type"`
	Value float64           `json:"value" yaml:"value"`
	Text  string            `json:"text,omitempty" yaml:"text"`
}

// PassiveAbility is culture-scoped reference data from the ability catalog.
// Condition uses a small fixed predicate vocabulary evaluated against the
// event payload (see engine.EvalCondition).
type PassiveAbility struct {
	ID        string        `json:"id" yaml:"id"`
	Name      string        `json:"name" yaml:"name"`
	Culture   string        `json:"culture" yaml:"culture"`
	Trigger   TriggerType   `json:"trigger" yaml:"trigger"`
	Condition string        `json:"condition,omitempty" yaml:"condition"`
	Effect    PassiveEffect `json:"effect" yaml:"effect"`
}
