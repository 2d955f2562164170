package game

// DamageType selects the damage formula.
type DamageType string

const (
	DamagePhysical DamageType = "physical"
	DamageMagical  DamageType = "magical"
	DamageHeal     DamageType = "heal"
)

// SkillCategory buckets skills for cost/cooldown resolution. Unspecified
// costs fall back to a category lookup (basic < single < double < aoe <
// special bands).
type SkillCategory string

const (
	CategoryBasic        SkillCategory = "basic"
	CategoryIntermediate SkillCategory = "intermediate"
	CategoryAdvanced     SkillCategory = "advanced"
	CategorySpecial      SkillCategory = "special"
	CategorySupport      SkillCategory = "support"
)

// AoEMode selects how area damage is spread across targets.
type AoEMode string

const (
	AoEFixed      AoEMode = "fixed"
	AoEFocus      AoEMode = "focus"
	AoEDecreasing AoEMode = "decreasing"
)

// Skill is immutable reference data sourced from the skill catalog.
// AnimaCost and Cooldown of 0 mean "resolve from category"; a negative
// value is never valid.
type Skill struct {
	ID           string        `json:"id" yaml:"id"`
	Name         string        `json:"name" yaml:"name"`
	Type         DamageType    `json:"type" yaml:"type"`
	Category     SkillCategory `json:"category" yaml:"category"`
	Multiplier   float64       `json:"multiplier" yaml:"multiplier"`
	BaseDamage   int           `json:"base_damage" yaml:"base_damage"`
	AnimaCost    int           `json:"anima_cost" yaml:"anima_cost"`
	Cooldown     int           `json:"cooldown" yaml:"cooldown"`
	CritBonus    float64       `json:"crit_bonus" yaml:"crit_bonus"`
	FlatBonus    int           `json:"flat_bonus" yaml:"flat_bonus"`
	AreaOfEffect bool          `json:"area_of_effect" yaml:"area_of_effect"`
	AoEMode      AoEMode       `json:"aoe_mode" yaml:"aoe_mode"`
	MultiTarget  bool          `json:"multi_target" yaml:"multi_target"`
	Element      string        `json:"element" yaml:"element"`
}
