package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/naccaratoo/rpgstack-sub001/internal/game"
)

// FallbackBasicAttackID names the documented fallback skill used when a
// combatant has nothing else to act with. It always exists in the catalog.
const FallbackBasicAttackID = "basic_attack"

// SkillCatalog holds the immutable skill reference data, keyed by skill id.
type SkillCatalog struct {
	skills map[string]game.Skill
}

type skillFile struct {
	Skills []game.Skill `yaml:"skills"`
}

var validDamageTypes = map[game.DamageType]struct{}{
	game.DamagePhysical: {},
	game.DamageMagical:  {},
	game.DamageHeal:     {},
}

var validCategories = map[game.SkillCategory]struct{}{
	game.CategoryBasic:        {},
	game.CategoryIntermediate: {},
	game.CategoryAdvanced:     {},
	game.CategorySpecial:      {},
	game.CategorySupport:      {},
}

// LoadSkillCatalog reads and validates the skill definitions at path.
func LoadSkillCatalog(path string) (*SkillCatalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read skill catalog %s: %w", path, err)
	}
	var sf skillFile
	if err := yaml.Unmarshal(b, &sf); err != nil {
		return nil, fmt.Errorf("failed to parse skill catalog %s: %w", path, err)
	}
	if len(sf.Skills) == 0 {
		return nil, fmt.Errorf("skill catalog %s: 'skills' list is empty", path)
	}

	m := make(map[string]game.Skill, len(sf.Skills))
	for _, s := range sf.Skills {
		if s.ID == "" {
			return nil, fmt.Errorf("skill catalog %s: skill missing 'id'", path)
		}
		if _, dup := m[s.ID]; dup {
			return nil, fmt.Errorf("skill catalog %s: duplicate skill id '%s'", path, s.ID)
		}
		if _, ok := validDamageTypes[s.Type]; !ok {
			return nil, fmt.Errorf("skill catalog %s: skill '%s' has unknown type '%s'", path, s.ID, s.Type)
		}
		if _, ok := validCategories[s.Category]; !ok {
			return nil, fmt.Errorf("skill catalog %s: skill '%s' has unknown category '%s'", path, s.ID, s.Category)
		}
		if s.AnimaCost < 0 || s.Cooldown < 0 {
			return nil, fmt.Errorf("skill catalog %s: skill '%s' has negative cost or cooldown", path, s.ID)
		}
		if s.AreaOfEffect {
			switch s.AoEMode {
			case game.AoEFixed, game.AoEFocus, game.AoEDecreasing:
			default:
				return nil, fmt.Errorf("skill catalog %s: skill '%s' has unknown aoe_mode '%s'", path, s.ID, s.AoEMode)
			}
		}
		m[s.ID] = s
	}
	if _, ok := m[FallbackBasicAttackID]; !ok {
		return nil, fmt.Errorf("skill catalog %s: missing required fallback skill '%s'", path, FallbackBasicAttackID)
	}
	return &SkillCatalog{skills: m}, nil
}

// NewSkillCatalog builds a catalog from already-validated skills (tests).
func NewSkillCatalog(skills []game.Skill) *SkillCatalog {
	m := make(map[string]game.Skill, len(skills))
	for _, s := range skills {
		m[s.ID] = s
	}
	return &SkillCatalog{skills: m}
}

// GetSkill returns the skill with the given id. Absence is a named error,
// not a silent default.
func (c *SkillCatalog) GetSkill(skillID string) (game.Skill, error) {
	s, ok := c.skills[skillID]
	if !ok {
		return game.Skill{}, fmt.Errorf("unknown skill '%s'", skillID)
	}
	return s, nil
}

// BasicAttack returns the documented fallback attack skill.
func (c *SkillCatalog) BasicAttack() game.Skill {
	return c.skills[FallbackBasicAttackID]
}

// Count returns the number of loaded skills.
func (c *SkillCatalog) Count() int { return len(c.skills) }
