package catalog

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/naccaratoo/rpgstack-sub001/internal/game"
	"github.com/naccaratoo/rpgstack-sub001/internal/storage"
)

// CanonicalCharacter is the trusted character snapshot used at battle
// creation. Only identity and position are read from client payloads;
// everything else comes from here.
type CanonicalCharacter struct {
	ID       string
	Name     string
	Culture  string
	Stats    game.CharacterStats
	SkillIDs []string
}

// CharacterStore loads canonical character stats. It is the anti-cheat
// boundary's source of truth.
type CharacterStore interface {
	LoadCanonicalStats(characterID string) (*CanonicalCharacter, error)
}

type cacheEntry struct {
	char   *CanonicalCharacter
	loaded time.Time
}

// CachedCharacterStore fronts the repository with a short-TTL cache to
// bound repeated load cost. Stale reads are acceptable: stats are
// snapshotted at battle creation.
type CachedCharacterStore struct {
	repo  storage.Repository
	ttl   time.Duration
	group singleflight.Group

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewCachedCharacterStore wraps repo with a TTL cache.
func NewCachedCharacterStore(repo storage.Repository, ttl time.Duration) *CachedCharacterStore {
	return &CachedCharacterStore{
		repo:  repo,
		ttl:   ttl,
		cache: make(map[string]cacheEntry),
	}
}

// LoadCanonicalStats returns the canonical character, reading through the
// cache when the entry is fresh.
func (s *CachedCharacterStore) LoadCanonicalStats(characterID string) (*CanonicalCharacter, error) {
	s.mu.Lock()
	if e, ok := s.cache[characterID]; ok && time.Since(e.loaded) < s.ttl {
		s.mu.Unlock()
		return e.char, nil
	}
	s.mu.Unlock()

	// Concurrent misses for the same character share a single repository load.
	v, err, _ := s.group.Do(characterID, func() (interface{}, error) {
		rec, err := s.repo.GetCharacterByID(characterID)
		if err != nil {
			return nil, err
		}
		char := fromRecord(rec)

		s.mu.Lock()
		s.cache[characterID] = cacheEntry{char: char, loaded: time.Now()}
		s.mu.Unlock()
		return char, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*CanonicalCharacter), nil
}

func fromRecord(rec *storage.CharacterRecord) *CanonicalCharacter {
	var skillIDs []string
	if rec.SkillIDs != "" {
		skillIDs = strings.Split(rec.SkillIDs, ",")
	}
	return &CanonicalCharacter{
		ID:      rec.CharacterID,
		Name:    rec.Name,
		Culture: rec.Culture,
		Stats: game.CharacterStats{
			HP:            rec.HP,
			MaxHP:         rec.HP,
			Attack:        rec.Attack,
			Defense:       rec.Defense,
			SpecialAttack: rec.SpecialAttack,
			Spirit:        rec.Spirit,
			Anima:         rec.Anima,
			MaxAnima:      rec.Anima,
			CritBonus:     rec.CritBonus,
		},
		SkillIDs: skillIDs,
	}
}
