package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/naccaratoo/rpgstack-sub001/internal/constants"
	"github.com/naccaratoo/rpgstack-sub001/internal/game"
)

// RegenProcessor is the resource-ledger dependency of the phase machine.
type RegenProcessor interface {
	ProcessRegeneration(battleID string, combatantIDs []string) error
	Grant(battleID, combatantID string, amount int) error
	BlockRegen(battleID, combatantID string, turns int) error
}

// EventEmitter is the passive-dispatcher dependency of the phase machine.
type EventEmitter interface {
	OnBattleEvent(battleID string, eventType game.TriggerType, data EventData) []TriggeredEffect
}

// AutoplayHook acts for a side during its PLAYER phase when no external
// action drives the battle. Used by tests and AI support; may be nil.
type AutoplayHook func(battleID string, side game.Side) error

// PhaseSnapshot describes the phase just executed.
type PhaseSnapshot struct {
	Phase     game.Phase `json:"phase"`
	Side      game.Side  `json:"side"`
	Round     int        `json:"round"`
	GameEnded bool       `json:"game_ended"`
	Events    []string   `json:"events,omitempty"`
}

type machineState struct {
	battle    *game.Battle
	fsm       *fsm.FSM
	side      game.Side
	startSide game.Side
	gameEnded bool
}

// PhaseMachine drives the per-battle CHECK -> PLAYER -> END cycle. Each
// AdvancePhase call executes the work of the current phase and moves to the
// next one; after END control passes to the other side, and the round
// counter increments when control returns to the starting side. The machine
// never destroys itself on game end: the owner detects GameEnded and stops
// driving it.
type PhaseMachine struct {
	anima    RegenProcessor
	passives EventEmitter
	autoplay AutoplayHook
	log      *zap.Logger

	mu      sync.Mutex
	battles map[string]*machineState
}

// NewPhaseMachine builds a phase machine over the given trackers.
func NewPhaseMachine(anima RegenProcessor, passives EventEmitter, log *zap.Logger) *PhaseMachine {
	return &PhaseMachine{
		anima:    anima,
		passives: passives,
		log:      log,
		battles:  make(map[string]*machineState),
	}
}

// SetAutoplay installs the optional PLAYER-phase autoplay hook.
func (m *PhaseMachine) SetAutoplay(hook AutoplayHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.autoplay = hook
}

func newPhaseFSM() *fsm.FSM {
	return fsm.NewFSM(
		string(game.PhaseCheck),
		fsm.Events{
			{Name: "to_player", Src: []string{string(game.PhaseCheck)}, Dst: string(game.PhasePlayer)},
			{Name: "to_end", Src: []string{string(game.PhasePlayer)}, Dst: string(game.PhaseEnd)},
			{Name: "to_check", Src: []string{string(game.PhaseEnd)}, Dst: string(game.PhaseCheck)},
		},
		fsm.Callbacks{},
	)
}

// RegisterBattle starts the cycle for a battle at the given side's CHECK
// phase. The battle record stays owned by the caller; the machine keeps a
// reference in its own table.
func (m *PhaseMachine) RegisterBattle(b *game.Battle, startSide game.Side) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.battles[b.ID] = &machineState{
		battle:    b,
		fsm:       newPhaseFSM(),
		side:      startSide,
		startSide: startSide,
	}
}

// RemoveBattle drops a battle from the machine's table.
func (m *PhaseMachine) RemoveBattle(battleID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.battles, battleID)
}

// Current returns the pending phase and side for a battle.
func (m *PhaseMachine) Current(battleID string) (game.Phase, game.Side, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms, ok := m.battles[battleID]
	if !ok {
		return "", "", fmt.Errorf("no phase machine for battle %s", battleID)
	}
	return game.Phase(ms.fsm.Current()), ms.side, nil
}

// GameEnded reports whether the terminal condition has been observed.
func (m *PhaseMachine) GameEnded(battleID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms, ok := m.battles[battleID]
	return ok && ms.gameEnded
}

// AdvancePhase executes the current phase's work and transitions to the
// next phase. Handler failures are caught and logged; the phase still
// completes.
func (m *PhaseMachine) AdvancePhase(battleID string) (PhaseSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms, ok := m.battles[battleID]
	if !ok {
		return PhaseSnapshot{}, fmt.Errorf("no phase machine for battle %s", battleID)
	}

	phase := game.Phase(ms.fsm.Current())
	snap := PhaseSnapshot{Phase: phase, Side: ms.side, Round: ms.battle.Round}

	switch phase {
	case game.PhaseCheck:
		m.runCheck(ms, &snap)
	case game.PhasePlayer:
		m.runPlayer(ms, &snap)
	case game.PhaseEnd:
		m.runEnd(ms, &snap)
	}

	if err := ms.fsm.Event(context.Background(), nextEvent(phase)); err != nil {
		return snap, fmt.Errorf("phase transition from %s: %w", phase, err)
	}
	if phase == game.PhaseEnd {
		ms.side = ms.side.Opposite()
		if ms.side == ms.startSide {
			ms.battle.Round++
		}
	}

	snap.GameEnded = ms.gameEnded
	snap.Round = ms.battle.Round
	return snap, nil
}

func nextEvent(p game.Phase) string {
	switch p {
	case game.PhaseCheck:
		return "to_player"
	case game.PhasePlayer:
		return "to_end"
	default:
		return "to_check"
	}
}

// runCheck evaluates win/loss, regenerates resources, ticks status effects
// and fires per_turn passives for the acting side.
func (m *PhaseMachine) runCheck(ms *machineState, snap *PhaseSnapshot) {
	b := ms.battle
	if b.PlayerTeam.AliveCount() == 0 || b.EnemyTeam.AliveCount() == 0 {
		if !ms.gameEnded {
			ms.gameEnded = true
			snap.Events = append(snap.Events, "battle reached its end condition")
		}
		return
	}

	team := b.TeamFor(ms.side)
	ids := make([]string, 0, len(team.Combatants))
	for i := range team.Combatants {
		ids = append(ids, team.Combatants[i].CharacterID)
	}
	m.safely(b.ID, "anima regeneration", func() error {
		return m.anima.ProcessRegeneration(b.ID, ids)
	})

	for i := range team.Combatants {
		c := &team.Combatants[i]
		if !c.Alive() {
			continue
		}
		m.tickEffects(ms, c, snap)
	}

	if active := team.Active(); active != nil {
		m.firePassives(ms, game.TriggerPerTurn, EventData{
			CombatantID: active.CharacterID,
			HPPercent:   active.HPPercent(),
			AllyCount:   team.AliveCount() - 1,
			HasDebuff:   active.HasDebuff(),
			Phase:       string(game.PhaseCheck),
		}, snap)
	}
}

// runPlayer resets the per-turn action window and lets the autoplay hook
// act when one is installed.
func (m *PhaseMachine) runPlayer(ms *machineState, snap *PhaseSnapshot) {
	if ms.gameEnded {
		return
	}
	team := ms.battle.TeamFor(ms.side)
	team.SwapsUsed = 0
	snap.Events = append(snap.Events, fmt.Sprintf("%s action window open", ms.side))

	if m.autoplay != nil {
		battleID, side := ms.battle.ID, ms.side
		m.safely(battleID, "autoplay hook", func() error {
			return m.autoplay(battleID, side)
		})
	}
}

// runEnd fires turn_end effects, strips temporary-only effects and advances
// the active combatant's personal turn counter.
func (m *PhaseMachine) runEnd(ms *machineState, snap *PhaseSnapshot) {
	if ms.gameEnded {
		return
	}
	team := ms.battle.TeamFor(ms.side)
	active := team.Active()
	if active == nil {
		return
	}

	m.firePassives(ms, game.TriggerTurnEnd, EventData{
		CombatantID: active.CharacterID,
		HPPercent:   active.HPPercent(),
		AllyCount:   team.AliveCount() - 1,
		HasDebuff:   active.HasDebuff(),
		Phase:       string(game.PhaseEnd),
	}, snap)

	for i := range team.Combatants {
		c := &team.Combatants[i]
		kept := c.Effects[:0]
		for _, eff := range c.Effects {
			if eff.Temporary {
				snap.Events = append(snap.Events, fmt.Sprintf("%s loses %s", c.Name, eff.Type))
				continue
			}
			kept = append(kept, eff)
		}
		c.Effects = kept

		mods := c.Modifiers[:0]
		for _, mod := range c.Modifiers {
			mod.Remaining--
			if mod.Remaining <= 0 {
				snap.Events = append(snap.Events, fmt.Sprintf("%s loses %s", c.Name, mod.Name))
				continue
			}
			mods = append(mods, mod)
		}
		c.Modifiers = mods
	}

	active.TurnsTaken++
}

// tickEffects applies one tick of every timed effect on a combatant and
// expires those whose duration reaches zero.
func (m *PhaseMachine) tickEffects(ms *machineState, c *game.CombatantState, snap *PhaseSnapshot) {
	b := ms.battle
	kept := c.Effects[:0]
	for _, eff := range c.Effects {
		switch {
		case eff.Type.IsDamageOverTime():
			c.CurrentHP -= eff.Magnitude
			if c.CurrentHP < 0 {
				c.CurrentHP = 0
			}
			snap.Events = append(snap.Events, fmt.Sprintf("%s takes %d %s damage", c.Name, eff.Magnitude, eff.Type))
			if c.CurrentHP == 0 {
				c.Status = game.CombatantDefeated
				snap.Events = append(snap.Events, fmt.Sprintf("%s is defeated", c.Name))
			}
		case eff.Type == game.EffectHealOverTime:
			c.CurrentHP += eff.Magnitude
			if c.CurrentHP > c.Stats.MaxHP {
				c.CurrentHP = c.Stats.MaxHP
			}
			snap.Events = append(snap.Events, fmt.Sprintf("%s recovers %d HP", c.Name, eff.Magnitude))
		case eff.Type == game.EffectRegeneration:
			m.safely(b.ID, "regeneration effect", func() error {
				return m.anima.Grant(b.ID, c.CharacterID, eff.Magnitude)
			})
		case eff.Type == game.EffectAnimaBlock:
			m.safely(b.ID, "anima block effect", func() error {
				return m.anima.BlockRegen(b.ID, c.CharacterID, 1)
			})
		}

		eff.Remaining--
		if eff.Remaining <= 0 {
			snap.Events = append(snap.Events, fmt.Sprintf("%s's %s wears off", c.Name, eff.Type))
			continue
		}
		kept = append(kept, eff)
	}
	c.Effects = kept
}

// firePassives emits a battle event and applies the directly-applicable
// fired effects (anima restore, heal over time) to their owners. Other
// effect types are report-only here; damage-time consumers query the
// dispatcher themselves.
func (m *PhaseMachine) firePassives(ms *machineState, trigger game.TriggerType, data EventData, snap *PhaseSnapshot) {
	b := ms.battle
	var fired []TriggeredEffect
	m.safely(b.ID, "passive dispatch", func() error {
		fired = m.passives.OnBattleEvent(b.ID, trigger, data)
		return nil
	})
	for _, f := range fired {
		c, _ := b.Combatant(f.CombatantID)
		if c == nil || !c.Alive() {
			continue
		}
		switch f.Effect.Type {
		case game.PassiveAnimaRestore:
			combatantID := f.CombatantID
			amount := int(f.Effect.Value)
			m.safely(b.ID, "passive anima restore", func() error {
				return m.anima.Grant(b.ID, combatantID, amount)
			})
		case game.PassiveHealOverTime:
			c.CurrentHP += int(f.Effect.Value)
			if c.CurrentHP > c.Stats.MaxHP {
				c.CurrentHP = c.Stats.MaxHP
			}
		}
		snap.Events = append(snap.Events, fmt.Sprintf("passive %s fired for %s", f.AbilityName, c.Name))
	}
}

// safely runs a best-effort handler: failures and panics are logged and the
// enclosing phase still completes.
func (m *PhaseMachine) safely(battleID, what string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("phase handler panicked",
				zap.String(constants.LogFieldBattleID, battleID),
				zap.String("handler", what),
				zap.Any("panic", r))
		}
	}()
	if err := fn(); err != nil {
		m.log.Error("phase handler failed",
			zap.String(constants.LogFieldBattleID, battleID),
			zap.String("handler", what),
			zap.Error(err))
	}
}
