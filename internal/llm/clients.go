package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"multimodal-rag/internal/config"
)

// Client adapts a langchaingo model to the Backend interface.
type Client struct {
	name  string
	model llms.Model
	opts  []llms.CallOption
}

var _ Vision = (*Client)(nil)

func (c *Client) Name() string { return c.name }

func (c *Client) Chat(ctx context.Context, messages []Message) (string, error) {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		content = append(content, llms.TextParts(toRole(m.Role), m.Content))
	}
	resp, err := c.model.GenerateContent(ctx, content, c.opts...)
	if err != nil {
		return "", fmt.Errorf("%s chat: %w", c.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s chat: empty response", c.name)
	}
	return resp.Choices[0].Content, nil
}

// AnalyzeImage sends a single user turn carrying the prompt and the raw
// image bytes.
func (c *Client) AnalyzeImage(ctx context.Context, prompt, mime string, image []byte) (string, error) {
	content := []llms.MessageContent{{
		Role: llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{
			llms.TextPart(prompt),
			llms.BinaryPart(mime, image),
		},
	}}
	resp, err := c.model.GenerateContent(ctx, content, c.opts...)
	if err != nil {
		return "", fmt.Errorf("%s vision: %w", c.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s vision: empty response", c.name)
	}
	return resp.Choices[0].Content, nil
}

func toRole(role string) llms.ChatMessageType {
	switch role {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

// NewGroq builds a client against Groq's OpenAI-compatible endpoint.
func NewGroq(cfg config.GroqConfig, opts ...llms.CallOption) (*Client, error) {
	if cfg.Key == "" {
		return nil, errors.New("groq key is not set")
	}
	model, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(cfg.Key),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("init groq client: %w", err)
	}
	return &Client{name: "groq", model: model, opts: opts}, nil
}

// NewGroqVision builds a vision client using the dedicated vision key and
// model, falling back to the chat key when no separate one is configured.
func NewGroqVision(cfg config.GroqConfig, opts ...llms.CallOption) (*Client, error) {
	key := cfg.VisionKey
	if key == "" {
		key = cfg.Key
	}
	if key == "" {
		return nil, errors.New("groq vision key is not set")
	}
	model, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(key),
		openai.WithModel(cfg.VisionModel),
	)
	if err != nil {
		return nil, fmt.Errorf("init groq vision client: %w", err)
	}
	return &Client{name: "groq-vision", model: model, opts: opts}, nil
}

// NewOllama builds a client for a local or hosted Ollama server. A bearer
// token is injected for hosted deployments.
func NewOllama(cfg config.OllamaConfig, opts ...llms.CallOption) (*Client, error) {
	ollamaOpts := []ollama.Option{
		ollama.WithServerURL(cfg.Host),
		ollama.WithModel(cfg.Model),
	}
	if cfg.Key != "" {
		ollamaOpts = append(ollamaOpts, ollama.WithHTTPClient(&http.Client{
			Transport: &bearerTransport{token: cfg.Key},
		}))
	}
	model, err := ollama.New(ollamaOpts...)
	if err != nil {
		return nil, fmt.Errorf("init ollama client: %w", err)
	}
	return &Client{name: "ollama", model: model, opts: opts}, nil
}

// NewGemini builds a Google Gemini client.
func NewGemini(ctx context.Context, cfg config.GeminiConfig, opts ...llms.CallOption) (*Client, error) {
	if cfg.Key == "" {
		return nil, errors.New("gemini key is not set")
	}
	model, err := googleai.New(ctx,
		googleai.WithAPIKey(cfg.Key),
		googleai.WithDefaultModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}
	return &Client{name: "gemini", model: model, opts: opts}, nil
}

type bearerTransport struct {
	token string
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+t.token)
	return http.DefaultTransport.RoundTrip(req)
}
