package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/naccaratoo/rpgstack-sub001/internal/constants"
	"github.com/naccaratoo/rpgstack-sub001/internal/engine"
	"github.com/naccaratoo/rpgstack-sub001/internal/game"
	"github.com/naccaratoo/rpgstack-sub001/internal/service"
	"github.com/naccaratoo/rpgstack-sub001/internal/storage"
)

// recentSummaryLimit bounds the balance report's outcome listing.
const recentSummaryLimit = 20

// BattleHandler exposes the combat service over HTTP.
type BattleHandler struct {
	orchestrator *service.Orchestrator
	balance      *engine.BalanceAnalyzer
	repo         storage.Repository
	log          *zap.Logger
}

// NewBattleHandler builds the HTTP handler set.
func NewBattleHandler(orchestrator *service.Orchestrator, balance *engine.BalanceAnalyzer, repo storage.Repository, log *zap.Logger) *BattleHandler {
	return &BattleHandler{orchestrator: orchestrator, balance: balance, repo: repo, log: log}
}

// RegisterRoutes mounts all battle routes under the API prefix.
func (h *BattleHandler) RegisterRoutes(r *gin.Engine) {
	api := r.Group(constants.RouteAPIPrefix)
	api.POST(constants.RouteBattles, h.CreateBattle)
	api.GET(constants.RouteBattleByID, h.GetBattleState)
	api.POST(constants.RouteBattleAttack, h.ExecuteAttack)
	api.POST(constants.RouteBattleSwap, h.ExecuteSwap)
	api.GET(constants.RouteCharacters, h.ListCharacters)
	api.GET(constants.RouteBalance, h.GetBalanceReport)
}

type createBattleRequest struct {
	PlayerTeam []service.TeamMemberInput `json:"player_team" binding:"required"`
	EnemyTeam  []service.TeamMemberInput `json:"enemy_team" binding:"required"`
}

type attackRequest struct {
	AttackerID string `json:"attacker_id" binding:"required"`
	TargetID   string `json:"target_id" binding:"required"`
	SkillID    string `json:"skill_id" binding:"required"`
}

type swapRequest struct {
	TargetIndex *int `json:"target_index" binding:"required"`
}

// CreateBattle starts a new battle from the submitted team line-ups.
func (h *BattleHandler) CreateBattle(c *gin.Context) {
	var req createBattleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, constants.ErrTypeValidation, constants.ErrInvalidRequest)
		return
	}

	view, err := h.orchestrator.CreateBattle(req.PlayerTeam, req.EnemyTeam)
	if err != nil {
		h.respondServiceError(c, err, constants.ErrFailedCreate)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		constants.JSONKeySuccess: true,
		constants.JSONKeyBattle:  view,
	})
}

// GetBattleState returns the player-side redacted battle snapshot.
func (h *BattleHandler) GetBattleState(c *gin.Context) {
	battleID := c.Param("battleID")
	if battleID == "" {
		h.respondError(c, http.StatusBadRequest, constants.ErrTypeValidation, constants.ErrInvalidBattleID)
		return
	}

	view, err := h.orchestrator.GetBattleView(battleID, game.SidePlayer)
	if err != nil {
		h.respondServiceError(c, err, constants.ErrFailedFetchState)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		constants.JSONKeySuccess: true,
		constants.JSONKeyBattle:  view,
	})
}

// ExecuteAttack performs one player attack action.
func (h *BattleHandler) ExecuteAttack(c *gin.Context) {
	battleID := c.Param("battleID")
	var req attackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, constants.ErrTypeValidation, constants.ErrInvalidRequest)
		return
	}

	result, view, err := h.orchestrator.ExecuteAttack(battleID, game.SidePlayer, req.AttackerID, req.TargetID, req.SkillID)
	if err != nil {
		h.respondServiceError(c, err, constants.ErrInternalAction)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		constants.JSONKeySuccess: true,
		constants.JSONKeyResult:  result,
		constants.JSONKeyBattle:  view,
	})
}

// ExecuteSwap switches the player's active combatant.
func (h *BattleHandler) ExecuteSwap(c *gin.Context) {
	battleID := c.Param("battleID")
	var req swapRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.TargetIndex == nil {
		h.respondError(c, http.StatusBadRequest, constants.ErrTypeValidation, constants.ErrInvalidRequest)
		return
	}

	view, err := h.orchestrator.ExecuteSwap(battleID, game.SidePlayer, *req.TargetIndex)
	if err != nil {
		h.respondServiceError(c, err, constants.ErrInternalAction)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		constants.JSONKeySuccess: true,
		constants.JSONKeyBattle:  view,
	})
}

// ListCharacters returns the canonical character roster.
func (h *BattleHandler) ListCharacters(c *gin.Context) {
	records, err := h.repo.ListCharacters()
	if err != nil {
		h.log.Error("failed to list characters", zap.Error(err))
		h.respondError(c, http.StatusInternalServerError, constants.ErrTypeInternal, constants.ErrFailedFetchChars)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		constants.JSONKeySuccess: true,
		"characters":             records,
	})
}

// GetBalanceReport returns the current multipliers, the last analysis and
// the most recent persisted battle outcomes.
func (h *BattleHandler) GetBalanceReport(c *gin.Context) {
	recent, err := h.repo.RecentBattleSummaries(recentSummaryLimit)
	if err != nil {
		h.log.Warn("failed to fetch recent battle summaries", zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{
		constants.JSONKeySuccess: true,
		"multipliers":            h.balance.Multipliers(),
		"report":                 h.balance.LastReport(),
		"recent_battles":         recent,
	})
}

// respondServiceError maps service-layer error types onto HTTP statuses.
func (h *BattleHandler) respondServiceError(c *gin.Context, err error, fallbackMsg string) {
	var notFound *service.NotFoundError
	var validation *service.ValidationError
	var resource *service.ResourceError
	switch {
	case errors.As(err, &notFound):
		h.respondError(c, http.StatusNotFound, constants.ErrTypeNotFound, notFound.Error())
	case errors.As(err, &validation):
		h.respondError(c, http.StatusBadRequest, constants.ErrTypeValidation, validation.Error())
	case errors.As(err, &resource):
		h.respondError(c, http.StatusConflict, constants.ErrTypeResource, resource.Error())
	default:
		h.log.Error("unexpected service error", zap.Error(err))
		h.respondError(c, http.StatusInternalServerError, constants.ErrTypeInternal, fallbackMsg)
	}
}

func (h *BattleHandler) respondError(c *gin.Context, status int, errType, message string) {
	c.JSON(status, gin.H{
		constants.JSONKeySuccess: false,
		constants.JSONKeyError: gin.H{
			constants.JSONKeyType:    errType,
			constants.JSONKeyMessage: message,
		},
	})
}
