package storage

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/naccaratoo/rpgstack-sub001/internal/config"
)

// ErrCharacterNotFound is returned when a canonical character row is absent.
var ErrCharacterNotFound = errors.New("character not found")

// OpenAndMigrate opens the SQLite database, migrates the schema and seeds
// the character table from the configuration file on first run. The config
// remains the source of truth for stats: seeded rows are refreshed when the
// config entry differs.
func OpenAndMigrate(dataSourceName string, characters []config.Character) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dataSourceName), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&CharacterRecord{}, &BattleSummary{}); err != nil {
		return nil, err
	}
	if err := seedCharacters(db, characters); err != nil {
		return nil, err
	}
	return db, nil
}

func seedCharacters(db *gorm.DB, characters []config.Character) error {
	for _, c := range characters {
		row := CharacterRecord{
			CharacterID:   c.ID,
			Name:          c.Name,
			Culture:       c.Culture,
			HP:            c.Stats.MaxHP,
			Attack:        c.Stats.Attack,
			Defense:       c.Stats.Defense,
			SpecialAttack: c.Stats.SpecialAttack,
			Spirit:        c.Stats.Spirit,
			Anima:         c.Stats.MaxAnima,
			CritBonus:     c.Stats.CritBonus,
			SkillIDs:      strings.Join(c.SkillIDs, ","),
		}
		var existing CharacterRecord
		err := db.Where("character_id = ?", c.ID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := db.Create(&row).Error; err != nil {
				return fmt.Errorf("seed character %s: %w", c.ID, err)
			}
		case err != nil:
			return err
		default:
			row.Model = existing.Model
			if err := db.Save(&row).Error; err != nil {
				return fmt.Errorf("refresh character %s: %w", c.ID, err)
			}
		}
	}
	return nil
}

type sqliteRepository struct {
	db *gorm.DB
}

// NewSQLiteRepository wraps the given database handle in a Repository.
func NewSQLiteRepository(db *gorm.DB) Repository {
	return &sqliteRepository{db: db}
}

func (r *sqliteRepository) GetCharacterByID(characterID string) (*CharacterRecord, error) {
	var rec CharacterRecord
	if err := r.db.Where("character_id = ?", characterID).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCharacterNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *sqliteRepository) ListCharacters() ([]CharacterRecord, error) {
	var recs []CharacterRecord
	if err := r.db.Order("character_id").Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

func (r *sqliteRepository) SaveBattleSummary(s *BattleSummary) error {
	return r.db.Create(s).Error
}

func (r *sqliteRepository) RecentBattleSummaries(limit int) ([]BattleSummary, error) {
	var out []BattleSummary
	if err := r.db.Order("finished_at desc").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
