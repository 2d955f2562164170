package main

import (
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/naccaratoo/rpgstack-sub001/internal/api"
	"github.com/naccaratoo/rpgstack-sub001/internal/catalog"
	"github.com/naccaratoo/rpgstack-sub001/internal/config"
	"github.com/naccaratoo/rpgstack-sub001/internal/constants"
	"github.com/naccaratoo/rpgstack-sub001/internal/engine"
	"github.com/naccaratoo/rpgstack-sub001/internal/logging"
	"github.com/naccaratoo/rpgstack-sub001/internal/service"
	"github.com/naccaratoo/rpgstack-sub001/internal/storage"
)

const (
	characterCacheTTL = 5 * time.Minute
	sweepInterval     = 1 * time.Minute
)

func main() {
	log := logging.Must(os.Getenv(constants.EnvLogLevel))
	defer log.Sync()

	configPath := os.Getenv(constants.EnvConfigPath)
	if configPath == "" {
		configPath = constants.DefaultConfigPath
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatal("failed to load configuration",
			zap.String(constants.LogFieldConfigPath, configPath),
			zap.Error(err))
	}
	log.Info("configuration loaded",
		zap.String(constants.LogFieldConfigPath, configPath),
		zap.Int("characters", len(cfg.Characters)))

	dbPath := os.Getenv(constants.EnvDBPath)
	if dbPath == "" {
		dbPath = constants.DefaultDBPath
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		log.Fatal("failed to create database directory", zap.String("db_path", dbPath), zap.Error(err))
	}
	db, err := storage.OpenAndMigrate(dbPath, cfg.Characters)
	if err != nil {
		log.Fatal("failed to open database", zap.String("db_path", dbPath), zap.Error(err))
	}
	repo := storage.NewSQLiteRepository(db)

	skills, err := catalog.LoadSkillCatalog(cfg.SkillsPath)
	if err != nil {
		log.Fatal("failed to load skill catalog", zap.Error(err))
	}
	passiveCatalog, err := catalog.LoadPassiveCatalog(cfg.PassivesPath)
	if err != nil {
		log.Fatal("failed to load passive catalog", zap.Error(err))
	}
	log.Info("catalogs loaded", zap.Int("skills", skills.Count()))

	characters := catalog.NewCachedCharacterStore(repo, characterCacheTTL)

	balance := engine.NewBalanceAnalyzer(engine.BalanceConfig{
		WindowSize:    cfg.Balance.WindowSize,
		AnalyzeEvery:  cfg.Balance.AnalyzeEvery,
		MinDuration:   cfg.Balance.MinDuration,
		MaxDuration:   cfg.Balance.MaxDuration,
		AdjustStep:    cfg.Balance.AdjustStep,
		MaxAdjustment: cfg.Balance.MaxAdjustment,
	}, log)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	damage := engine.NewDamageEngine(rng, balance, log)
	anima := engine.NewAnimaTracker(cfg.Battle.AnimaRegenPerTurn, log)
	passives := engine.NewPassiveDispatcher(passiveCatalog, log)
	phases := engine.NewPhaseMachine(anima, passives, log)

	orchestrator := service.NewOrchestrator(
		characters, skills, anima, passives, phases, damage, balance,
		repo, cfg.Battle, log)

	// Idle battles are swept on a fixed interval so abandoned sessions do
	// not pin subsystem tables forever.
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for now := range ticker.C {
			if removed := orchestrator.Sweep(now); removed > 0 {
				log.Info("idle battle sweep", zap.Int("removed", removed))
			}
		}
	}()

	router := gin.Default()
	handler := api.NewBattleHandler(orchestrator, balance, repo, log)
	handler.RegisterRoutes(router)

	log.Info("server listening", zap.String(constants.LogFieldAddr, cfg.ServerAddress))
	if err := router.Run(cfg.ServerAddress); err != nil {
		log.Fatal("server terminated", zap.Error(err))
	}
}
