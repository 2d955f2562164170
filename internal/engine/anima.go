package engine

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/naccaratoo/rpgstack-sub001/internal/constants"
	"github.com/naccaratoo/rpgstack-sub001/internal/game"
)

// Anima cost and cooldown bands, used when a skill carries no explicit
// value. Bands order: basic < single < double < aoe < special.
const (
	costBasic   = 5
	costSingle  = 10
	costDouble  = 15
	costAoE     = 20
	costSpecial = 30

	cooldownBasic   = 0
	cooldownSingle  = 1
	cooldownDouble  = 2
	cooldownAoE     = 2
	cooldownSpecial = 3

	emergencyRefillFraction = 0.10
)

// ErrInvalidAction is returned by UseSkill when the preceding CanUseSkill
// check would have failed.
var ErrInvalidAction = errors.New("invalid action: skill cannot be used")

// UsageCheck is the result of an affordability/cooldown query.
type UsageCheck struct {
	CanUse            bool `json:"can_use"`
	HasResource       bool `json:"has_resource"`
	NoCooldown        bool `json:"no_cooldown"`
	Cost              int  `json:"cost"`
	CooldownRemaining int  `json:"cooldown_remaining"`
}

// CooldownLedger is the per-combatant resource record inside one battle.
type CooldownLedger struct {
	Current       int
	Max           int
	Cooldowns     map[string]int
	UsedThisTurn  map[string]struct{}
	EmergencyUsed bool
	RegenBlock    int
	TotalSpent    int
}

// AnimaRegistrant seeds one combatant's ledger at battle registration.
type AnimaRegistrant struct {
	CombatantID string
	Current     int
	Max         int
}

// AnimaTracker is the per-battle resource and cooldown ledger. It holds its
// own battle-id-keyed table; it never reaches into the battle object graph.
type AnimaTracker struct {
	regenPerTurn int
	log          *zap.Logger

	mu      sync.Mutex
	ledgers map[string]map[string]*CooldownLedger
}

// NewAnimaTracker builds a tracker granting regenPerTurn anima at each
// turn boundary.
func NewAnimaTracker(regenPerTurn int, log *zap.Logger) *AnimaTracker {
	return &AnimaTracker{
		regenPerTurn: regenPerTurn,
		log:          log,
		ledgers:      make(map[string]map[string]*CooldownLedger),
	}
}

// RegisterBattle creates ledgers for every combatant of a new battle.
func (t *AnimaTracker) RegisterBattle(battleID string, combatants []AnimaRegistrant) {
	t.mu.Lock()
	defer t.mu.Unlock()
	m := make(map[string]*CooldownLedger, len(combatants))
	for _, c := range combatants {
		m[c.CombatantID] = &CooldownLedger{
			Current:      clamp(c.Current, 0, c.Max),
			Max:          c.Max,
			Cooldowns:    make(map[string]int),
			UsedThisTurn: make(map[string]struct{}),
		}
	}
	t.ledgers[battleID] = m
}

// RemoveBattle discards every ledger of a finished or swept battle.
func (t *AnimaTracker) RemoveBattle(battleID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.ledgers, battleID)
}

func (t *AnimaTracker) ledger(battleID, combatantID string) (*CooldownLedger, error) {
	battle, ok := t.ledgers[battleID]
	if !ok {
		return nil, fmt.Errorf("no anima ledger for battle %s", battleID)
	}
	led, ok := battle[combatantID]
	if !ok {
		return nil, fmt.Errorf("no anima ledger for combatant %s in battle %s", combatantID, battleID)
	}
	return led, nil
}

// CanUseSkill reports whether the combatant can pay for and is not cooling
// down the given skill.
func (t *AnimaTracker) CanUseSkill(battleID, combatantID string, skill game.Skill) (UsageCheck, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	led, err := t.ledger(battleID, combatantID)
	if err != nil {
		return UsageCheck{}, err
	}
	cost := ResolveCost(skill)
	remaining := led.Cooldowns[skill.ID]
	check := UsageCheck{
		HasResource:       led.Current >= cost,
		NoCooldown:        remaining == 0,
		Cost:              cost,
		CooldownRemaining: remaining,
	}
	check.CanUse = check.HasResource && check.NoCooldown
	return check, nil
}

// UseSkill debits the resource, starts the cooldown and marks the skill as
// used this turn. It fails with ErrInvalidAction when CanUseSkill is false,
// mutating nothing.
func (t *AnimaTracker) UseSkill(battleID, combatantID string, skill game.Skill) (UsageCheck, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	led, err := t.ledger(battleID, combatantID)
	if err != nil {
		return UsageCheck{}, err
	}
	cost := ResolveCost(skill)
	remaining := led.Cooldowns[skill.ID]
	check := UsageCheck{
		HasResource:       led.Current >= cost,
		NoCooldown:        remaining == 0,
		Cost:              cost,
		CooldownRemaining: remaining,
	}
	check.CanUse = check.HasResource && check.NoCooldown
	if !check.CanUse {
		return check, ErrInvalidAction
	}

	led.Current = clamp(led.Current-cost, 0, led.Max)
	led.TotalSpent += cost
	if cd := ResolveCooldown(skill); cd > 0 {
		led.Cooldowns[skill.ID] = cd
	}
	led.UsedThisTurn[skill.ID] = struct{}{}

	// Emergency rule: the first time the pool hits exactly zero it is
	// refilled to a fixed fraction of max, once per battle.
	if led.Current == 0 && !led.EmergencyUsed {
		led.EmergencyUsed = true
		led.Current = clamp(int(float64(led.Max)*emergencyRefillFraction), 0, led.Max)
		t.log.Info("emergency anima refill",
			zap.String(constants.LogFieldBattleID, battleID),
			zap.String(constants.LogFieldCombatant, combatantID),
			zap.Int("refilled_to", led.Current))
	}
	return check, nil
}

// ProcessRegeneration runs one turn boundary for the given combatants:
// per-turn usage markers are cleared, every active cooldown decreases by
// one (removed on reaching zero), then the fixed regeneration amount is
// granted unless a regen block is active.
func (t *AnimaTracker) ProcessRegeneration(battleID string, combatantIDs []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range combatantIDs {
		led, err := t.ledger(battleID, id)
		if err != nil {
			return err
		}
		led.UsedThisTurn = make(map[string]struct{})
		for skillID, turns := range led.Cooldowns {
			turns--
			if turns <= 0 {
				delete(led.Cooldowns, skillID)
			} else {
				led.Cooldowns[skillID] = turns
			}
		}
		if led.RegenBlock > 0 {
			led.RegenBlock--
			continue
		}
		led.Current = clamp(led.Current+t.regenPerTurn, 0, led.Max)
	}
	return nil
}

// Grant adds anima to the combatant's pool, clamped to max. Used by heal
// and passive effects.
func (t *AnimaTracker) Grant(battleID, combatantID string, amount int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	led, err := t.ledger(battleID, combatantID)
	if err != nil {
		return err
	}
	led.Current = clamp(led.Current+amount, 0, led.Max)
	return nil
}

// BlockRegen suppresses regeneration for the given number of turn
// boundaries.
func (t *AnimaTracker) BlockRegen(battleID, combatantID string, turns int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	led, err := t.ledger(battleID, combatantID)
	if err != nil {
		return err
	}
	if turns > led.RegenBlock {
		led.RegenBlock = turns
	}
	return nil
}

// Snapshot returns the current pool and cooldowns for the combatant. The
// cooldown map is a copy.
func (t *AnimaTracker) Snapshot(battleID, combatantID string) (current, max int, cooldowns map[string]int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	led, lerr := t.ledger(battleID, combatantID)
	if lerr != nil {
		return 0, 0, nil, lerr
	}
	cds := make(map[string]int, len(led.Cooldowns))
	for k, v := range led.Cooldowns {
		cds[k] = v
	}
	return led.Current, led.Max, cds, nil
}

// ResolveCost returns the anima cost for a skill: the explicit value when
// present, otherwise the category band.
func ResolveCost(skill game.Skill) int {
	if skill.AnimaCost > 0 {
		return skill.AnimaCost
	}
	switch {
	case skill.Category == game.CategorySpecial:
		return costSpecial
	case skill.AreaOfEffect:
		return costAoE
	case skill.MultiTarget:
		return costDouble
	case skill.Category == game.CategoryBasic && skill.Multiplier <= 1.0:
		return costBasic
	default:
		return costSingle
	}
}

// ResolveCooldown returns the cooldown length for a skill: the explicit
// value when present, otherwise the category band.
func ResolveCooldown(skill game.Skill) int {
	if skill.Cooldown > 0 {
		return skill.Cooldown
	}
	switch {
	case skill.Category == game.CategorySpecial:
		return cooldownSpecial
	case skill.AreaOfEffect:
		return cooldownAoE
	case skill.MultiTarget:
		return cooldownDouble
	case skill.Category == game.CategoryBasic && skill.Multiplier <= 1.0:
		return cooldownBasic
	default:
		return cooldownSingle
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
