package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/naccaratoo/rpgstack-sub001/internal/game"
)

type characterEntry struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Culture       string   `json:"culture"`
	HP            int      `json:"hp"`
	Attack        int      `json:"attack"`
	Defense       int      `json:"defense"`
	SpecialAttack int      `json:"special_attack"`
	Spirit        int      `json:"spirit"`
	Anima         int      `json:"anima"`
	CritBonus     float64  `json:"crit_bonus"`
	SkillIDs      []string `json:"skill_ids"`
}

type rawConfig struct {
	Server *struct {
		Address string `json:"address"`
	} `json:"server"`
	SkillsPath    string           `json:"skills_path"`
	PassivesPath  string           `json:"passives_path"`
	CharacterList []characterEntry `json:"character_list"`
	Battle        *struct {
		AnimaRegenPerTurn  int `json:"anima_regen_per_turn"`
		SwapsPerTurn       int `json:"swaps_per_turn"`
		EnemyTurnDelayMS   int `json:"enemy_turn_delay_ms"`
		IdleTimeoutSeconds int `json:"idle_timeout_seconds"`
	} `json:"battle"`
	Balance *struct {
		WindowSize      int     `json:"window_size"`
		AnalyzeEvery    int     `json:"analyze_every"`
		MinDurationSecs float64 `json:"min_duration_seconds"`
		MaxDurationSecs float64 `json:"max_duration_seconds"`
		AdjustStep      float64 `json:"adjust_step"`
		MaxAdjustment   float64 `json:"max_adjustment"`
	} `json:"balance"`
}

// Character is one canonical character definition seeded into the store.
type Character struct {
	ID       string
	Name     string
	Culture  string
	Stats    game.CharacterStats
	SkillIDs []string
}

// BattleTuning carries the combat knobs read by the orchestrator and trackers.
type BattleTuning struct {
	AnimaRegenPerTurn int
	SwapsPerTurn      int
	EnemyTurnDelay    time.Duration
	IdleTimeout       time.Duration
}

// BalanceTuning carries the auto-balance thresholds.
type BalanceTuning struct {
	WindowSize    int
	AnalyzeEvery  int
	MinDuration   time.Duration
	MaxDuration   time.Duration
	AdjustStep    float64
	MaxAdjustment float64
}

// LoadedConfig is the fully validated server configuration.
type LoadedConfig struct {
	ServerAddress string
	SkillsPath    string
	PassivesPath  string
	Characters    []Character
	Battle        BattleTuning
	Balance       BalanceTuning
}

// LoadConfig reads the configuration file at path. It requires the key
// `character_list` (snake_case) and applies defaults for tuning values.
func LoadConfig(path string) (*LoadedConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var rc rawConfig
	if err := json.Unmarshal(b, &rc); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	entries := rc.CharacterList
	if len(entries) == 0 {
		return nil, fmt.Errorf("config file %s: character_list is empty (provide 'character_list' array)", path)
	}

	out := make([]Character, 0, len(entries))
	idSet := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e.ID) == "" {
			return nil, fmt.Errorf("config file %s: character entry missing 'id'", path)
		}
		if e.Name == "" {
			return nil, fmt.Errorf("config file %s: character '%s' missing 'name'", path, e.ID)
		}
		if e.HP <= 0 || e.Anima <= 0 {
			return nil, fmt.Errorf("config file %s: character '%s' must have positive hp and anima", path, e.ID)
		}
		if _, exists := idSet[e.ID]; exists {
			return nil, fmt.Errorf("config file %s: duplicate character id '%s'", path, e.ID)
		}
		idSet[e.ID] = struct{}{}
		out = append(out, Character{
			ID:      e.ID,
			Name:    e.Name,
			Culture: e.Culture,
			Stats: game.CharacterStats{
				HP:            e.HP,
				MaxHP:         e.HP,
				Attack:        e.Attack,
				Defense:       e.Defense,
				SpecialAttack: e.SpecialAttack,
				Spirit:        e.Spirit,
				Anima:         e.Anima,
				MaxAnima:      e.Anima,
				CritBonus:     e.CritBonus,
			},
			SkillIDs: e.SkillIDs,
		})
	}

	cfg := &LoadedConfig{
		ServerAddress: ":8080",
		SkillsPath:    "./assets/skills.yaml",
		PassivesPath:  "./assets/passives.yaml",
		Characters:    out,
		Battle: BattleTuning{
			AnimaRegenPerTurn: 5,
			SwapsPerTurn:      1,
			EnemyTurnDelay:    800 * time.Millisecond,
			IdleTimeout:       10 * time.Minute,
		},
		Balance: BalanceTuning{
			WindowSize:    100,
			AnalyzeEvery:  10,
			MinDuration:   30 * time.Second,
			MaxDuration:   10 * time.Minute,
			AdjustStep:    0.05,
			MaxAdjustment: 0.30,
		},
	}
	if rc.Server != nil && rc.Server.Address != "" {
		cfg.ServerAddress = rc.Server.Address
	}
	if rc.SkillsPath != "" {
		cfg.SkillsPath = rc.SkillsPath
	}
	if rc.PassivesPath != "" {
		cfg.PassivesPath = rc.PassivesPath
	}
	if bt := rc.Battle; bt != nil {
		if bt.AnimaRegenPerTurn > 0 {
			cfg.Battle.AnimaRegenPerTurn = bt.AnimaRegenPerTurn
		}
		if bt.SwapsPerTurn > 0 {
			cfg.Battle.SwapsPerTurn = bt.SwapsPerTurn
		}
		if bt.EnemyTurnDelayMS > 0 {
			cfg.Battle.EnemyTurnDelay = time.Duration(bt.EnemyTurnDelayMS) * time.Millisecond
		}
		if bt.IdleTimeoutSeconds > 0 {
			cfg.Battle.IdleTimeout = time.Duration(bt.IdleTimeoutSeconds) * time.Second
		}
	}
	if bl := rc.Balance; bl != nil {
		if bl.WindowSize > 0 {
			cfg.Balance.WindowSize = bl.WindowSize
		}
		if bl.AnalyzeEvery > 0 {
			cfg.Balance.AnalyzeEvery = bl.AnalyzeEvery
		}
		if bl.MinDurationSecs > 0 {
			cfg.Balance.MinDuration = time.Duration(bl.MinDurationSecs * float64(time.Second))
		}
		if bl.MaxDurationSecs > 0 {
			cfg.Balance.MaxDuration = time.Duration(bl.MaxDurationSecs * float64(time.Second))
		}
		if bl.AdjustStep > 0 {
			cfg.Balance.AdjustStep = bl.AdjustStep
		}
		if bl.MaxAdjustment > 0 {
			cfg.Balance.MaxAdjustment = bl.MaxAdjustment
		}
	}
	return cfg, nil
}
