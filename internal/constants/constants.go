package constants

// Centralized constants for env keys, routes and response/log field names.
const (
	// Environment variable keys
	EnvConfigPath = "RPGSTACK_CONFIG"
	EnvDBPath     = "RPGSTACK_DB"
	EnvLogLevel   = "RPGSTACK_LOG_LEVEL"

	// Default file locations
	DefaultConfigPath = "./rpgstack_config.json"
	DefaultDBPath     = "./data/rpgstack.db"
)

// Routes used by the backend router.
const (
	RouteAPIPrefix    = "/api"
	RouteBattles      = "/battles"
	RouteBattleByID   = "/battles/:battleID"
	RouteBattleAttack = "/battles/:battleID/attack"
	RouteBattleSwap   = "/battles/:battleID/swap"
	RouteCharacters   = "/characters"
	RouteBalance      = "/balance"
)

// Common JSON response keys.
const (
	JSONKeySuccess = "success"
	JSONKeyBattle  = "battle"
	JSONKeyResult  = "result"
	JSONKeyError   = "error"
	JSONKeyType    = "type"
	JSONKeyMessage = "message"
)

// Error type tags surfaced in API error payloads.
const (
	ErrTypeValidation = "validation_error"
	ErrTypeResource   = "resource_error"
	ErrTypeNotFound   = "not_found"
	ErrTypeInternal   = "internal_error"
)

// Common error messages used across API handlers.
const (
	ErrInvalidRequest    = "Invalid request"
	ErrBattleNotFound    = "Battle not found"
	ErrFailedCreate      = "Failed to create battle"
	ErrFailedFetchChars  = "Failed to fetch characters"
	ErrFailedFetchState  = "Failed to fetch battle state"
	ErrInvalidBattleID   = "Invalid battle ID"
	ErrInternalAction    = "Failed to execute action"
)

// Logging field names.
const (
	LogFieldBattleID   = "battle_id"
	LogFieldCombatant  = "combatant_id"
	LogFieldSkill      = "skill_id"
	LogFieldAddr       = "addr"
	LogFieldConfigPath = "config_path"
)
