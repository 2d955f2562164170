package storage

import (
	"time"

	"gorm.io/gorm"
)

// CharacterRecord is the persisted canonical character row. It is the sole
// source of truth for combat stats: battle creation reads through this
// table, never through client payloads.
type CharacterRecord struct {
	gorm.Model
	CharacterID   string `gorm:"uniqueIndex"`
	Name          string
	Culture       string
	HP            int
	Attack        int
	Defense       int
	SpecialAttack int
	Spirit        int
	Anima         int
	CritBonus     float64
	// SkillIDs is a comma-separated list; skills themselves are reference
	// data loaded from the YAML catalog, not persisted.
	SkillIDs string
}

func (CharacterRecord) TableName() string { return "characters" }

// BattleSummary is one finished-battle outcome row consumed by the
// auto-balance analyzer. Writes are fire-and-forget.
type BattleSummary struct {
	gorm.Model
	BattleID   string `gorm:"uniqueIndex"`
	Winner     string
	DurationMS int64
	Rounds     int
	// SkillUsage is a JSON object: skill id -> {uses, damage, cost}.
	SkillUsage string `gorm:"type:text"`
	FinishedAt time.Time
}

func (BattleSummary) TableName() string { return "battle_summaries" }

// Repository abstracts the persistence layer so services and tests can
// substitute in-memory fakes.
type Repository interface {
	GetCharacterByID(characterID string) (*CharacterRecord, error)
	ListCharacters() ([]CharacterRecord, error)
	SaveBattleSummary(s *BattleSummary) error
	RecentBattleSummaries(limit int) ([]BattleSummary, error)
}
