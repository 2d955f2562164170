package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/naccaratoo/rpgstack-sub001/internal/game"
)

// PassiveCatalog holds culture-keyed passive ability reference data.
type PassiveCatalog struct {
	byCulture map[string][]game.PassiveAbility
	byID      map[string]game.PassiveAbility
}

type passiveFile struct {
	Abilities []game.PassiveAbility `yaml:"abilities"`
}

var validTriggers = map[game.TriggerType]struct{}{
	game.TriggerBattleStart:   {},
	game.TriggerPerTurn:       {},
	game.TriggerLowHP:         {},
	game.TriggerWhenAttacked:  {},
	game.TriggerOnCritical:    {},
	game.TriggerDefend:        {},
	game.TriggerSpellCast:     {},
	game.TriggerTurnEnd:       {},
	game.TriggerPassiveAlways: {},
}

// LoadPassiveCatalog reads and validates the passive ability definitions.
func LoadPassiveCatalog(path string) (*PassiveCatalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read passive catalog %s: %w", path, err)
	}
	var pf passiveFile
	if err := yaml.Unmarshal(b, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse passive catalog %s: %w", path, err)
	}

	byCulture := make(map[string][]game.PassiveAbility)
	byID := make(map[string]game.PassiveAbility, len(pf.Abilities))
	for _, a := range pf.Abilities {
		if a.ID == "" {
			return nil, fmt.Errorf("passive catalog %s: ability missing 'id'", path)
		}
		if _, dup := byID[a.ID]; dup {
			return nil, fmt.Errorf("passive catalog %s: duplicate ability id '%s'", path, a.ID)
		}
		if a.Culture == "" {
			return nil, fmt.Errorf("passive catalog %s: ability '%s' missing 'culture'", path, a.ID)
		}
		if _, ok := validTriggers[a.Trigger]; !ok {
			return nil, fmt.Errorf("passive catalog %s: ability '%s' has unknown trigger '%s'", path, a.ID, a.Trigger)
		}
		byID[a.ID] = a
		byCulture[a.Culture] = append(byCulture[a.Culture], a)
	}
	return &PassiveCatalog{byCulture: byCulture, byID: byID}, nil
}

// NewPassiveCatalog builds a catalog from in-memory abilities (tests).
func NewPassiveCatalog(abilities []game.PassiveAbility) *PassiveCatalog {
	byCulture := make(map[string][]game.PassiveAbility)
	byID := make(map[string]game.PassiveAbility, len(abilities))
	for _, a := range abilities {
		byID[a.ID] = a
		byCulture[a.Culture] = append(byCulture[a.Culture], a)
	}
	return &PassiveCatalog{byCulture: byCulture, byID: byID}
}

// AbilitiesByCulture returns every passive tagged with the given culture.
// Unknown cultures yield an empty list: missing passives are not an error.
func (c *PassiveCatalog) AbilitiesByCulture(culture string) []game.PassiveAbility {
	return c.byCulture[culture]
}
