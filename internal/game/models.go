package game

import "time"

// BattleStatus is the lifecycle state of a battle. Victory and defeat are
// terminal: a battle transitions out of StatusActive exactly once.
type BattleStatus string

const (
	StatusActive  BattleStatus = "active"
	StatusVictory BattleStatus = "victory"
	StatusDefeat  BattleStatus = "defeat"
)

// Side identifies one of the two teams in a battle.
type Side string

const (
	SidePlayer Side = "player"
	SideEnemy  Side = "enemy"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SidePlayer {
		return SideEnemy
	}
	return SidePlayer
}

// Phase is one step of a combatant-turn, visited in fixed order.
type Phase string

const (
	PhaseCheck  Phase = "check"
	PhasePlayer Phase = "player"
	PhaseEnd    Phase = "end"
)

// CombatantStatus marks whether a combatant can still act.
type CombatantStatus string

const (
	CombatantActive   CombatantStatus = "active"
	CombatantDefeated CombatantStatus = "defeated"
)

// CharacterStats is the canonical stat snapshot loaded from the character
// store. Client payloads never populate these values.
type CharacterStats struct {
	HP            int     `json:"hp"`
	MaxHP         int     `json:"max_hp"`
	Attack        int     `json:"attack"`
	Defense       int     `json:"defense"`
	SpecialAttack int     `json:"special_attack"`
	Spirit        int     `json:"spirit"`
	Anima         int     `json:"anima"`
	MaxAnima      int     `json:"max_anima"`
	CritBonus     float64 `json:"crit_bonus"`
}

// StatusEffect is a timed effect on a combatant (damage/heal over time,
// regeneration, regen block). Remaining counts down once per turn-cycle.
type StatusEffect struct {
	Type      StatusEffectType `json:"type"`
	Magnitude int              `json:"magnitude"`
	Remaining int              `json:"remaining"`
	Temporary bool             `json:"temporary"`
}

// StatusEffectType enumerates the supported timed effects.
type StatusEffectType string

const (
	EffectPoison       StatusEffectType = "poison"
	EffectBurn         StatusEffectType = "burn"
	EffectHealOverTime StatusEffectType = "heal_over_time"
	EffectRegeneration StatusEffectType = "regeneration"
	EffectAnimaBlock   StatusEffectType = "anima_block"
)

// IsDamageOverTime reports whether the effect deals damage each tick.
func (t StatusEffectType) IsDamageOverTime() bool {
	return t == EffectPoison || t == EffectBurn
}

// StatModifier is an active buff or debuff contributing to the damage
// pipeline. Bonus is a fractional contribution (0.25 = +25%).
type StatModifier struct {
	Name      string  `json:"name"`
	Bonus     float64 `json:"bonus"`
	Debuff    bool    `json:"debuff"`
	Remaining int     `json:"remaining"`
}

// CombatantState is the mutable per-battle state of one team member. The
// identity fields reference canonical character data; current values are
// clamped to [0, max] at every mutation.
type CombatantState struct {
	CharacterID string          `json:"character_id"`
	Name        string          `json:"name"`
	Culture     string          `json:"culture"`
	Position    int             `json:"position"`
	Stats       CharacterStats  `json:"stats"`
	CurrentHP   int             `json:"current_hp"`
	Status      CombatantStatus `json:"status"`
	Effects     []StatusEffect  `json:"effects"`
	Modifiers   []StatModifier  `json:"modifiers"`
	TurnsTaken  int             `json:"turns_taken"`
}

// Alive reports whether the combatant can still fight.
func (c *CombatantState) Alive() bool {
	return c.Status == CombatantActive && c.CurrentHP > 0
}

// HPPercent returns current HP as a fraction of max.
func (c *CombatantState) HPPercent() float64 {
	if c.Stats.MaxHP <= 0 {
		return 0
	}
	return float64(c.CurrentHP) / float64(c.Stats.MaxHP)
}

// BuffBonus sums active non-debuff modifier bonuses.
func (c *CombatantState) BuffBonus() float64 {
	total := 0.0
	for _, m := range c.Modifiers {
		if !m.Debuff {
			total += m.Bonus
		}
	}
	return total
}

// DebuffBonus sums active debuff bonuses (extra damage taken).
func (c *CombatantState) DebuffBonus() float64 {
	total := 0.0
	for _, m := range c.Modifiers {
		if m.Debuff {
			total += m.Bonus
		}
	}
	return total
}

// HasDebuff reports whether any debuff is active on the combatant.
func (c *CombatantState) HasDebuff() bool {
	for _, m := range c.Modifiers {
		if m.Debuff {
			return true
		}
	}
	return false
}

// Team is an ordered list of combatants with an active-member index and a
// per-turn swap budget.
type Team struct {
	Combatants  []CombatantState `json:"combatants"`
	ActiveIndex int              `json:"active_index"`
	SwapsUsed   int              `json:"swaps_used"`
	SwapsMax    int              `json:"swaps_max"`
}

// Active returns the currently fielded combatant, or nil when the whole
// team is defeated.
func (t *Team) Active() *CombatantState {
	if t.ActiveIndex < 0 || t.ActiveIndex >= len(t.Combatants) {
		return nil
	}
	c := &t.Combatants[t.ActiveIndex]
	if !c.Alive() {
		return nil
	}
	return c
}

// AliveCount returns the number of combatants still able to fight.
func (t *Team) AliveCount() int {
	n := 0
	for i := range t.Combatants {
		if t.Combatants[i].Alive() {
			n++
		}
	}
	return n
}

// FindByID returns the combatant with the given character id, or nil.
func (t *Team) FindByID(characterID string) *CombatantState {
	for i := range t.Combatants {
		if t.Combatants[i].CharacterID == characterID {
			return &t.Combatants[i]
		}
	}
	return nil
}

// ActionLogEntry is one append-only record of something that happened in a
// battle. Entries are never mutated after being appended.
type ActionLogEntry struct {
	Round     int       `json:"round"`
	Phase     Phase     `json:"phase,omitempty"`
	Side      Side      `json:"side,omitempty"`
	ActorID   string    `json:"actor_id,omitempty"`
	TargetID  string    `json:"target_id,omitempty"`
	SkillID   string    `json:"skill_id,omitempty"`
	Damage    int       `json:"damage,omitempty"`
	Healing   int       `json:"healing,omitempty"`
	Critical  bool      `json:"critical,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Battle is the root mutable record for one fight. It is owned exclusively
// by the orchestrator; subsystems address it by ID through their own tables.
type Battle struct {
	ID          string           `json:"id"`
	Status      BattleStatus     `json:"status"`
	PlayerTeam  Team             `json:"player_team"`
	EnemyTeam   Team             `json:"enemy_team"`
	CurrentTurn Side             `json:"current_turn"`
	Round       int              `json:"round"`
	Log         []ActionLogEntry `json:"log"`
	EndLogged   bool             `json:"-"`
	CreatedAt   time.Time        `json:"created_at"`
	LastAction  time.Time        `json:"last_action"`
}

// TeamFor returns the team fighting for the given side.
func (b *Battle) TeamFor(side Side) *Team {
	if side == SidePlayer {
		return &b.PlayerTeam
	}
	return &b.EnemyTeam
}

// Finished reports whether the battle reached a terminal status.
func (b *Battle) Finished() bool {
	return b.Status != StatusActive
}

// AppendLog adds an entry to the append-only action log.
func (b *Battle) AppendLog(e ActionLogEntry) {
	e.Round = b.Round
	e.Timestamp = time.Now()
	b.Log = append(b.Log, e)
}

// Combatant locates a combatant on either team by character id.
func (b *Battle) Combatant(characterID string) (*CombatantState, Side) {
	if c := b.PlayerTeam.FindByID(characterID); c != nil {
		return c, SidePlayer
	}
	if c := b.EnemyTeam.FindByID(characterID); c != nil {
		return c, SideEnemy
	}
	return nil, ""
}
