package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/yungbote/tutorbridge-backend/internal/observability"
	"github.com/yungbote/tutorbridge-backend/internal/platform/envutil"
	"github.com/yungbote/tutorbridge-backend/internal/platform/logger"
)

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxTokens  int
	Timeout    time.Duration
	MaxRetries int
}

func LoadConfig() Config {
	return Config{
		APIKey:     envutil.String("ANTHROPIC_API_KEY", ""),
		BaseURL:    envutil.String("ANTHROPIC_BASE_URL", ""),
		Model:      envutil.String("ANTHROPIC_MODEL", string(sdk.ModelClaude4Sonnet20250514)),
		MaxTokens:  envutil.Int("ANTHROPIC_MAX_TOKENS", 4096),
		Timeout:    envutil.Seconds("ANTHROPIC_TIMEOUT_SECONDS", 120*time.Second),
		MaxRetries: envutil.Int("ANTHROPIC_MAX_RETRIES", 2),
	}
}

// Client is a single-turn Messages API completer.
type Client struct {
	log *logger.Logger
	cfg Config
	api sdk.Client
}

func NewClient(log *logger.Logger, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing ANTHROPIC_API_KEY")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{
		log: log.With("service", "AnthropicClient"),
		cfg: cfg,
		api: sdk.NewClient(opts...),
	}, nil
}

func (c *Client) GenerateText(ctx context.Context, system, user string) (string, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.cfg.Model),
		MaxTokens: int64(c.cfg.MaxTokens),
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(user))},
	}
	if s := strings.TrimSpace(system); s != "" {
		params.System = []sdk.TextBlockParam{{Text: s}}
	}

	start := time.Now()
	resp, err := c.api.Messages.New(ctx, params)
	if err != nil {
		observability.Current().ObserveLLMRequest("anthropic", c.cfg.Model, statusOf(err), time.Since(start), 0, 0)
		c.log.Warn("Anthropic request failed", "model", c.cfg.Model, "error", err)
		return "", fmt.Errorf("anthropic messages: %w", err)
	}
	observability.Current().ObserveLLMRequest("anthropic", c.cfg.Model, "200", time.Since(start), int(resp.Usage.InputTokens), int(resp.Usage.OutputTokens))

	var out strings.Builder
	for _, block := range resp.Content {
		if tb, ok := block.AsAny().(sdk.TextBlock); ok {
			out.WriteString(tb.Text)
		}
	}
	if strings.TrimSpace(out.String()) == "" {
		return "", fmt.Errorf("no text block in response (stop_reason=%s)", resp.StopReason)
	}
	return out.String(), nil
}

func statusOf(err error) string {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return strconv.Itoa(apiErr.StatusCode)
	}
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}
	return "error"
}
