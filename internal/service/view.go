package service

import (
	"github.com/naccaratoo/rpgstack-sub001/internal/game"
)

// CombatantView is one combatant as exposed to a client. Hidden stats are
// only populated for the viewer's own side: the opponent reveals identity,
// position, HP, status and visible effect types, nothing else.
type CombatantView struct {
	CharacterID string               `json:"character_id"`
	Name        string               `json:"name"`
	Position    int                  `json:"position"`
	CurrentHP   int                  `json:"current_hp"`
	MaxHP       int                  `json:"max_hp"`
	Status      game.CombatantStatus `json:"status"`
	Effects     []string             `json:"effects,omitempty"`

	// Own-side only fields.
	Stats     *game.CharacterStats `json:"stats,omitempty"`
	Anima     *int                 `json:"anima,omitempty"`
	MaxAnima  *int                 `json:"max_anima,omitempty"`
	Cooldowns map[string]int       `json:"cooldowns,omitempty"`
}

// TeamView is one side of a battle as exposed to a client.
type TeamView struct {
	Combatants  []CombatantView `json:"combatants"`
	ActiveIndex int             `json:"active_index"`
	SwapsUsed   int             `json:"swaps_used"`
	SwapsMax    int             `json:"swaps_max"`
}

// BattleView is the redacted battle snapshot sent to a client.
type BattleView struct {
	ID          string                `json:"id"`
	Status      game.BattleStatus     `json:"status"`
	CurrentTurn game.Side             `json:"current_turn"`
	Round       int                   `json:"round"`
	You         TeamView              `json:"you"`
	Opponent    TeamView              `json:"opponent"`
	Log         []game.ActionLogEntry `json:"log"`
}

// maxLogEntries bounds the log slice returned with each view.
const maxLogEntries = 50

func (o *Orchestrator) buildView(rec *battleRecord, viewer game.Side) BattleView {
	b := rec.battle
	view := BattleView{
		ID:          b.ID,
		Status:      b.Status,
		CurrentTurn: b.CurrentTurn,
		Round:       b.Round,
		You:         o.teamView(b, b.TeamFor(viewer), false),
		Opponent:    o.teamView(b, b.TeamFor(viewer.Opposite()), true),
	}
	logStart := 0
	if len(b.Log) > maxLogEntries {
		logStart = len(b.Log) - maxLogEntries
	}
	view.Log = append(view.Log, b.Log[logStart:]...)
	return view
}

func (o *Orchestrator) teamView(b *game.Battle, t *game.Team, redact bool) TeamView {
	tv := TeamView{
		ActiveIndex: t.ActiveIndex,
		SwapsUsed:   t.SwapsUsed,
		SwapsMax:    t.SwapsMax,
		Combatants:  make([]CombatantView, 0, len(t.Combatants)),
	}
	for i := range t.Combatants {
		c := &t.Combatants[i]
		cv := CombatantView{
			CharacterID: c.CharacterID,
			Name:        c.Name,
			Position:    c.Position,
			CurrentHP:   c.CurrentHP,
			MaxHP:       c.Stats.MaxHP,
			Status:      c.Status,
		}
		for _, eff := range c.Effects {
			cv.Effects = append(cv.Effects, string(eff.Type))
		}
		if !redact {
			stats := c.Stats
			cv.Stats = &stats
			if cur, max, cds, err := o.anima.Snapshot(b.ID, c.CharacterID); err == nil {
				cv.Anima = &cur
				cv.MaxAnima = &max
				cv.Cooldowns = cds
			}
		}
		tv.Combatants = append(tv.Combatants, cv)
	}
	return tv
}
