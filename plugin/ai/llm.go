// Package ai holds the provider-facing pieces of the assistant: chat messages,
// the ChatClient abstraction and its OpenAI-compatible implementation.
package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// Message represents a chat message.
type Message struct {
	Role    string // system, user, assistant
	Content string
}

// ChatClient is a single text generation provider.
type ChatClient interface {
	// Complete returns the generated text for messages, or an error when the call fails.
	Complete(ctx context.Context, model string, messages []Message, temperature float32, maxTokens int) (string, error)
}

type openAIClient struct {
	client *openai.Client
}

// NewOpenAIClient creates a ChatClient for an OpenAI-compatible endpoint.
func NewOpenAIClient(cfg ProviderConfig) ChatClient {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &openAIClient{
		client: openai.NewClientWithConfig(clientConfig),
	}
}

func (c *openAIClient) Complete(ctx context.Context, model string, messages []Message, temperature float32, maxTokens int) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    convertMessages(messages),
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty chat response")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func convertMessages(messages []Message) []openai.ChatCompletionMessage {
	llmMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case "system":
			role = openai.ChatMessageRoleSystem
		case "assistant":
			role = openai.ChatMessageRoleAssistant
		}

		llmMessages[i] = openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		}
	}
	return llmMessages
}

// Helper for creating system prompts
func SystemPrompt(content string) Message {
	return Message{Role: "system", Content: content}
}

// Helper for creating user messages
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}
