package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/option"
)

const (
	defaultGeminiModelName = "gemini-1.5-flash"
	defaultOpenAIModelName = openai.GPT3Dot5Turbo

	// maxAnswerTokens keeps replies inside what a voice note can carry.
	maxAnswerTokens = 200

	systemInstruction = "Eres OMNIX, asistente crypto experto. Responde en el idioma del usuario, " +
		"máximo 800 caracteres. Sé claro y concreto. Precios de referencia: Bitcoin $102K, " +
		"Ethereum $2.6K, Solana $154. No prometas rentabilidad ni ejecutes operaciones reales."
)

var (
	ErrProviderDisabled = errors.New("provider not configured")
	ErrEmptyAnswer      = errors.New("provider returned an empty answer")
)

// Provider is one AI tier of the answer pipeline.
type Provider interface {
	Name() string
	Ask(ctx context.Context, question, displayName string) (string, error)
}

func userPrompt(question, displayName string) string {
	return fmt.Sprintf("Usuario %s pregunta: %s", displayName, question)
}

// GeminiProvider is the primary tier.
type GeminiProvider struct {
	client    *genai.Client
	modelName string
}

// NewGeminiProvider returns a disabled provider (nil client) when apiKey is empty.
func NewGeminiProvider(ctx context.Context, apiKey, modelName string) (*GeminiProvider, error) {
	if modelName == "" {
		modelName = defaultGeminiModelName
	}
	p := &GeminiProvider{modelName: modelName}
	if apiKey == "" {
		return p, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	p.client = client
	return p, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) Close() {
	if p.client != nil {
		if err := p.client.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing GenAI client")
		} else {
			log.Debug().Msg("GenAI client closed")
		}
	}
}

func (p *GeminiProvider) Ask(ctx context.Context, question, displayName string) (string, error) {
	if p.client == nil {
		return "", ErrProviderDisabled
	}

	model := p.client.GenerativeModel(p.modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemInstruction)},
	}
	maxTokens := int32(maxAnswerTokens * 2)
	model.GenerationConfig = genai.GenerationConfig{
		MaxOutputTokens: &maxTokens,
	}

	resp, err := model.GenerateContent(ctx, genai.Text(userPrompt(question, displayName)))
	if err != nil {
		return "", fmt.Errorf("gemini GenerateContent failed: %w", err)
	}

	return textFromResponse(resp)
}

// textFromResponse joins the text parts of the first candidate.
func textFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyAnswer
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			responseText.WriteString(string(txt))
		}
	}
	if strings.TrimSpace(responseText.String()) == "" {
		return "", ErrEmptyAnswer
	}
	return responseText.String(), nil
}

// OpenAIProvider is the secondary tier.
type OpenAIProvider struct {
	client    *openai.Client
	modelName string
}

// NewOpenAIProvider returns a disabled provider (nil client) when apiKey is empty.
// baseURL is optional and points the client at a compatible endpoint.
func NewOpenAIProvider(apiKey, modelName, baseURL string) *OpenAIProvider {
	if modelName == "" {
		modelName = defaultOpenAIModelName
	}
	p := &OpenAIProvider{modelName: modelName}
	if apiKey == "" {
		return p
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	p.client = openai.NewClientWithConfig(clientConfig)
	return p
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Ask(ctx context.Context, question, displayName string) (string, error) {
	if p.client == nil {
		return "", ErrProviderDisabled
	}

	req := openai.ChatCompletionRequest{
		Model: p.modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemInstruction},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(question, displayName)},
		},
		MaxTokens: maxAnswerTokens,
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyAnswer
	}
	return resp.Choices[0].Message.Content, nil
}
