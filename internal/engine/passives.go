package engine

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/naccaratoo/rpgstack-sub001/internal/game"
)

// AbilitySource is the external culture-keyed passive ability catalog.
type AbilitySource interface {
	AbilitiesByCulture(culture string) []game.PassiveAbility
}

// PassiveRegistrant seeds the dispatcher with one combatant's culture.
type PassiveRegistrant struct {
	CombatantID string
	Culture     string
}

// EventData is the payload a battle event carries. Condition predicates are
// evaluated against these fields only.
type EventData struct {
	CombatantID string  `json:"combatant_id,omitempty"`
	HPPercent   float64 `json:"hp_percent,omitempty"`
	AllyCount   int     `json:"ally_count,omitempty"`
	SkillType   string  `json:"skill_type,omitempty"`
	HasDebuff   bool    `json:"has_debuff,omitempty"`
	Phase       string  `json:"phase,omitempty"`
	Environment string  `json:"environment,omitempty"`
}

// TriggeredEffect is the descriptive record produced when an ability fires.
// Firing reports only; callers decide how to apply the value.
type TriggeredEffect struct {
	CombatantID string             `json:"combatant_id"`
	AbilityID   string             `json:"ability_id"`
	AbilityName string             `json:"ability_name"`
	Culture     string             `json:"culture"`
	Effect      game.PassiveEffect `json:"effect"`
}

// PassiveDispatcher matches battle events against culturally-tagged passive
// abilities. It keeps its own battle-id-keyed registration table.
type PassiveDispatcher struct {
	catalog AbilitySource
	log     *zap.Logger

	mu         sync.Mutex
	registered map[string]map[string][]game.PassiveAbility
}

// NewPassiveDispatcher builds a dispatcher over the given ability catalog.
func NewPassiveDispatcher(catalog AbilitySource, log *zap.Logger) *PassiveDispatcher {
	return &PassiveDispatcher{
		catalog:    catalog,
		log:        log,
		registered: make(map[string]map[string][]game.PassiveAbility),
	}
}

// RegisterBattle loads the full passive list for every combatant's culture.
func (d *PassiveDispatcher) RegisterBattle(battleID string, combatants []PassiveRegistrant) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m := make(map[string][]game.PassiveAbility, len(combatants))
	for _, c := range combatants {
		m[c.CombatantID] = d.catalog.AbilitiesByCulture(c.Culture)
	}
	d.registered[battleID] = m
}

// RemoveBattle drops the registrations of a finished or swept battle.
func (d *PassiveDispatcher) RemoveBattle(battleID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.registered, battleID)
}

// OnBattleEvent fans the event out to every registered combatant's
// abilities and returns the effects that fired. A malformed condition is
// logged and treated as not matching; it never aborts the event.
func (d *PassiveDispatcher) OnBattleEvent(battleID string, eventType game.TriggerType, data EventData) []TriggeredEffect {
	d.mu.Lock()
	defer d.mu.Unlock()
	battle, ok := d.registered[battleID]
	if !ok {
		return nil
	}
	var fired []TriggeredEffect
	for combatantID, abilities := range battle {
		for _, a := range abilities {
			if !d.matches(a, eventType, data) {
				continue
			}
			fired = append(fired, TriggeredEffect{
				CombatantID: combatantID,
				AbilityID:   a.ID,
				AbilityName: a.Name,
				Culture:     a.Culture,
				Effect:      a.Effect,
			})
		}
	}
	return fired
}

// ValidatePassiveActivation re-derives whether a claimed activation holds.
// Claims naming unknown abilities or failing their condition are rejected.
func (d *PassiveDispatcher) ValidatePassiveActivation(battleID, combatantID, abilityID string, eventType game.TriggerType, data EventData) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	battle, ok := d.registered[battleID]
	if !ok {
		return false
	}
	for _, a := range battle[combatantID] {
		if a.ID != abilityID {
			continue
		}
		return d.matches(a, eventType, data)
	}
	return false
}

func (d *PassiveDispatcher) matches(a game.PassiveAbility, eventType game.TriggerType, data EventData) bool {
	if a.Trigger == game.TriggerPassiveAlways {
		return true
	}
	if a.Trigger != eventType {
		return false
	}
	if a.Condition == "" {
		return true
	}
	ok, err := EvalCondition(a.Condition, data)
	if err != nil {
		d.log.Warn("passive condition failed to evaluate",
			zap.String("ability_id", a.ID),
			zap.String("condition", a.Condition),
			zap.Error(err))
		return false
	}
	return ok
}

// EvalCondition evaluates one predicate from the fixed condition vocabulary
// against the event payload. Predicates are "name" or "name:value" pairs:
// hp_below/hp_above (percent), allies_at_least/allies_at_most, skill_type,
// has_debuff, phase, environment.
func EvalCondition(cond string, data EventData) (bool, error) {
	name, arg, _ := strings.Cut(strings.TrimSpace(cond), ":")
	switch name {
	case "hp_below":
		threshold, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return false, fmt.Errorf("hp_below: bad threshold %q", arg)
		}
		return data.HPPercent*100 < threshold, nil
	case "hp_above":
		threshold, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return false, fmt.Errorf("hp_above: bad threshold %q", arg)
		}
		return data.HPPercent*100 > threshold, nil
	case "allies_at_least":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return false, fmt.Errorf("allies_at_least: bad count %q", arg)
		}
		return data.AllyCount >= n, nil
	case "allies_at_most":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return false, fmt.Errorf("allies_at_most: bad count %q", arg)
		}
		return data.AllyCount <= n, nil
	case "skill_type":
		return arg != "" && data.SkillType == arg, nil
	case "has_debuff":
		return data.HasDebuff, nil
	case "phase":
		return arg != "" && data.Phase == arg, nil
	case "environment":
		return arg != "" && data.Environment == arg, nil
	default:
		return false, fmt.Errorf("unknown condition %q", name)
	}
}
