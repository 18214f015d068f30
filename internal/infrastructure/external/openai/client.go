package openai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/garyjia/permits-on-the-go/internal/application/port"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Config holds OpenAI client settings
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	EmbeddingModel string
	Timeout        time.Duration
}

// Client implements port.ChatModel and port.Embedder using OpenAI
type Client struct {
	client         *openai.Client
	model          string
	embeddingModel openai.EmbeddingModel
	prompts        *PromptConfig
	logger         *zap.Logger
}

// NewClient creates a new OpenAI client
func NewClient(cfg Config, prompts *PromptConfig, logger *zap.Logger) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	embeddingModel := openai.EmbeddingModel(cfg.EmbeddingModel)
	if embeddingModel == "" {
		embeddingModel = openai.SmallEmbedding3
	}

	return &Client{
		client:         openai.NewClientWithConfig(clientCfg),
		model:          model,
		embeddingModel: embeddingModel,
		prompts:        prompts,
		logger:         logger,
	}
}

// promptData is what permit_chat.user_template renders
type promptData struct {
	Question      string
	PermitSummary string
	Context       []string
}

// Answer asks the chat model a permit question
func (c *Client) Answer(ctx context.Context, req port.ChatRequest) (string, error) {
	messages, err := c.buildMessages(req)
	if err != nil {
		return "", err
	}

	c.logger.Debug("Requesting chat completion",
		zap.String("model", c.model),
		zap.Int("context_chunks", len(req.Context)),
		zap.Int("history", len(req.History)))

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.prompts.PermitChat.Temperature,
		MaxTokens:   c.prompts.PermitChat.MaxTokens,
		Messages:    messages,
	})
	if err != nil {
		c.logger.Error("OpenAI API call failed", zap.Error(err))
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	c.logger.Info("Chat completion received",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens))

	return resp.Choices[0].Message.Content, nil
}

func (c *Client) buildMessages(req port.ChatRequest) ([]openai.ChatCompletionMessage, error) {
	user, err := c.prompts.PermitChat.RenderUser(promptData{
		Question:      req.Question,
		PermitSummary: req.PermitSummary,
		Context:       req.Context,
	})
	if err != nil {
		return nil, err
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: c.prompts.PermitChat.System,
	})
	for _, turn := range req.History {
		role := openai.ChatMessageRoleUser
		if turn.Role == openai.ChatMessageRoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: user,
	})
	return messages, nil
}

// Embed returns one vector per text, in input order
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: c.embeddingModel,
	})
	if err != nil {
		c.logger.Error("OpenAI embeddings call failed", zap.Error(err), zap.Int("inputs", len(texts)))
		return nil, fmt.Errorf("OpenAI embeddings call failed: %w", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

var (
	_ port.ChatModel = (*Client)(nil)
	_ port.Embedder  = (*Client)(nil)
)
