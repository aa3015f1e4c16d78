package app

import (
	"strings"
	"time"

	"github.com/yungbote/tutorbridge-backend/internal/jobs/sweeper"
	"github.com/yungbote/tutorbridge-backend/internal/platform/envutil"
	"github.com/yungbote/tutorbridge-backend/internal/platform/logger"
	"github.com/yungbote/tutorbridge-backend/internal/temporalx"
)

const defaultJWTSecret = "defaultsecret"

type Config struct {
	Port        string
	Environment string

	JWTSecretKey    string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	LLMProvider string

	TurnTimeout     time.Duration
	TurnHistory     int
	TurnLockTTL     time.Duration
	TurnLockWait    time.Duration
	NotaryTimeout   time.Duration
	NotaryDedupeTTL time.Duration

	RedisChannel string
	RunWorker    bool

	Temporal temporalx.Config
	Sweeper  sweeper.Config
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:            envutil.String("PORT", "8080"),
		Environment:     envutil.String("APP_ENV", "development"),
		JWTSecretKey:    envutil.String("JWT_SECRET_KEY", defaultJWTSecret),
		AccessTokenTTL:  envutil.Seconds("ACCESS_TOKEN_TTL", time.Hour),
		RefreshTokenTTL: envutil.Seconds("REFRESH_TOKEN_TTL", 24*time.Hour),
		LLMProvider:     strings.ToLower(envutil.String("LLM_PROVIDER", "openai")),
		TurnTimeout:     envutil.Seconds("TEACHER_TURN_TIMEOUT_SECONDS", 90*time.Second),
		TurnHistory:     envutil.Int("TEACHER_HISTORY_MESSAGES", 40),
		TurnLockTTL:     envutil.Seconds("TURN_LOCK_TTL_SECONDS", 2*time.Minute),
		TurnLockWait:    envutil.Seconds("TURN_LOCK_WAIT_SECONDS", 30*time.Second),
		NotaryTimeout:   envutil.Seconds("NOTARY_TIMEOUT_SECONDS", 120*time.Second),
		NotaryDedupeTTL: envutil.Seconds("NOTARY_DEDUPE_TTL_SECONDS", time.Minute),
		RedisChannel:    envutil.String("REDIS_CHANNEL", "tutorbridge:sse"),
		RunWorker:       envutil.Bool("RUN_WORKER", true),
		Temporal:        temporalx.LoadConfig(),
		Sweeper:         sweeper.LoadConfig(),
	}
	if cfg.JWTSecretKey == defaultJWTSecret && log != nil {
		log.Warn("JWT_SECRET_KEY not set, using the development default")
	}
	return cfg
}
