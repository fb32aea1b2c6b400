package replies

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/soullink/internal/logging"
	"github.com/dmitrijs2005/soullink/internal/models"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

var ErrEmptyResponse = errors.New("empty completion response")

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	// RequestsPerMinute limits outgoing calls; <= 0 means unlimited.
	RequestsPerMinute int
	Timeout           time.Duration
}

func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		BaseURL:           "https://api.openai.com/v1",
		Model:             "gpt-4o-mini",
		RequestsPerMinute: 20,
		Timeout:           30 * time.Second,
	}
}

// OpenAIGenerator talks to any OpenAI-compatible chat completion endpoint.
type OpenAIGenerator struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
	logger  logging.Logger
}

func NewOpenAIGenerator(cfg OpenAIConfig, logger logging.Logger) *OpenAIGenerator {
	def := DefaultOpenAIConfig()
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), cfg.RequestsPerMinute)
	}

	return &OpenAIGenerator{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		limiter: limiter,
		logger:  logging.OrNop(logger).With("module", "openai_generator"),
	}
}

func (g *OpenAIGenerator) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req.Model = g.model
	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

func system(c models.Companion) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt(c)}
}

func (g *OpenAIGenerator) GenerateReply(ctx context.Context, c models.Companion, text, image string) (Reply, error) {
	user := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: text}
	if image != "" {
		user = openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: text},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: image}},
			},
		}
	}

	out, err := g.complete(ctx, openai.ChatCompletionRequest{
		Messages:    []openai.ChatCompletionMessage{system(c), user},
		Temperature: float32(c.Dimensions.Creativity) / 100,
	})
	if err != nil {
		return Reply{}, err
	}

	cleaned := CleanReply(out)
	if cleaned == "" {
		cleaned = "..."
	}
	return Reply{Text: cleaned}, nil
}

func (g *OpenAIGenerator) AssessHostility(ctx context.Context, history []models.Message) (Assessment, error) {
	out, err := g.complete(ctx, openai.ChatCompletionRequest{
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: assessmentPrompt(history)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return Assessment{}, err
	}
	return ParseAssessment(out)
}

func (g *OpenAIGenerator) event(ctx context.Context, c models.Companion, event string) (string, error) {
	out, err := g.complete(ctx, openai.ChatCompletionRequest{
		Messages: []openai.ChatCompletionMessage{
			system(c),
			{Role: openai.ChatMessageRoleUser, Content: "[SYSTEM EVENT: " + event + "]"},
		},
	})
	if err != nil {
		return "", err
	}
	return CleanReply(out), nil
}

func (g *OpenAIGenerator) MomentComment(ctx context.Context, c models.Companion, momentText string) (string, error) {
	return g.event(ctx, c, fmt.Sprintf("User posted: %q. Write a comment.", momentText))
}

func (g *OpenAIGenerator) MomentReply(ctx context.Context, c models.Companion, momentText, userComment string) (string, error) {
	return g.event(ctx, c, fmt.Sprintf("Reply to the user's comment %q on your post %q.", userComment, momentText))
}

func (g *OpenAIGenerator) ProactiveMessage(ctx context.Context, c models.Companion, trigger Trigger) (string, error) {
	event := "Send a message."
	switch trigger {
	case TriggerMorning:
		event = "Morning greeting."
	case TriggerNight:
		event = "Good night wish."
	case TriggerNoReply:
		event = "User hasn't replied in 24h."
	}
	return g.event(ctx, c, event)
}
