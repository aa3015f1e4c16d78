package app

import (
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/tutorbridge-backend/internal/platform/anthropic"
	"github.com/yungbote/tutorbridge-backend/internal/platform/logger"
	"github.com/yungbote/tutorbridge-backend/internal/platform/openai"
	"github.com/yungbote/tutorbridge-backend/internal/platform/redisx"
	"github.com/yungbote/tutorbridge-backend/internal/realtime/bus"
	"github.com/yungbote/tutorbridge-backend/internal/temporalx"
	"github.com/yungbote/tutorbridge-backend/internal/tutoring"
)

// Clients holds external connections. Redis, the bus and Temporal are nil
// when not configured.
type Clients struct {
	LLM      tutoring.Completer
	Redis    *goredis.Client
	SSEBus   bus.Bus
	Temporal temporalsdkclient.Client
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	llm, err := newLLM(log, cfg.LLMProvider)
	if err != nil {
		return Clients{}, err
	}
	out.LLM = llm

	if redisx.Configured() {
		rdb, err := redisx.New(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis: %w", err)
		}
		out.Redis = rdb
		b, err := bus.NewRedisBus(log, rdb, cfg.RedisChannel)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init redis SSE bus: %w", err)
		}
		out.SSEBus = b
	}

	if cfg.Temporal.Enabled() {
		tc, err := temporalx.NewClient(log, cfg.Temporal)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init temporal client: %w", err)
		}
		out.Temporal = tc
	}
	return out, nil
}

func newLLM(log *logger.Logger, provider string) (tutoring.Completer, error) {
	switch provider {
	case "anthropic":
		c, err := anthropic.NewClient(log, anthropic.LoadConfig())
		if err != nil {
			return nil, fmt.Errorf("init anthropic client: %w", err)
		}
		return c, nil
	case "", "openai":
		c, err := openai.NewClient(log, openai.LoadConfig())
		if err != nil {
			return nil, fmt.Errorf("init openai client: %w", err)
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown LLM_PROVIDER %q", provider)
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.SSEBus != nil {
		_ = c.SSEBus.Close()
	}
	if c.Temporal != nil {
		c.Temporal.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
