package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/xaenox/vibe-tracker/internal/models"
	"go.uber.org/zap"
)

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

type GPTAnalyzer struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float64
	logger      *zap.Logger
}

func NewGPTAnalyzer(cfg Config, logger *zap.Logger) *GPTAnalyzer {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	// The HTTP timeout is the only bound on a slow analysis; hitting it degrades the result.
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &GPTAnalyzer{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		logger:      logger,
	}
}

func (a *GPTAnalyzer) Analyze(ctx context.Context, req Request) models.Analysis {
	instruction := req.Instruction
	if strings.TrimSpace(instruction) == "" {
		instruction = DefaultInstruction
	}

	resp, err := a.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: a.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: instruction,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: req.Text,
				},
			},
			MaxTokens:   a.maxTokens,
			Temperature: float32(a.temperature),
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		},
	)
	if err != nil {
		a.logger.Error("Failed to get GPT response", zap.Error(err))
		return Degraded(req.Text, fmt.Errorf("completion request failed: %w", err))
	}

	if len(resp.Choices) == 0 {
		a.logger.Error("GPT response has no choices", zap.String("response_id", resp.ID))
		return Degraded(req.Text, errors.New("empty completion"))
	}

	content := stripCodeFence(resp.Choices[0].Message.Content)
	var analysis models.Analysis
	if err := json.Unmarshal([]byte(content), &analysis); err != nil {
		a.logger.Error("Failed to parse GPT response",
			zap.Error(err),
			zap.String("response", content))
		return Degraded(req.Text, fmt.Errorf("unparsable completion: %w", err))
	}
	// A model echoing an "error" key is not a degraded result.
	analysis.Error = ""

	return normalize(analysis)
}

// stripCodeFence unwraps ```json ... ``` blocks some models emit despite the JSON mode.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
