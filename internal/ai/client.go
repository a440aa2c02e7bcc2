package ai

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

type Client struct {
	client *openai.Client
	model  string
}

func New(apiKey, baseURL, model string) *Client {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL

	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

func (c *Client) SetModel(model string) {
	c.model = model
}

// CreateToolCompletion runs one model turn with the given tool catalogue
// and returns the assistant message, which may carry tool calls.
func (c *Client) CreateToolCompletion(ctx context.Context, messages []openai.ChatCompletionMessage, catalog []openai.Tool) (openai.ChatCompletionMessage, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Tools:       catalog,
		MaxTokens:   1024,
		Temperature: 0.7,
	})
	if err != nil {
		return openai.ChatCompletionMessage{}, fmt.Errorf("failed to call AI API: %w", err)
	}

	if len(resp.Choices) == 0 {
		return openai.ChatCompletionMessage{}, fmt.Errorf("no response from AI")
	}

	return resp.Choices[0].Message, nil
}

const dailySummarySystem = "Du bist Luna, ein freundlicher persönlicher Assistent. Antworte auf Deutsch."

// GenerateDailySummary produces the short German morning summary from
// today's calendar events and stored contact facts.
func (c *Client) GenerateDailySummary(ctx context.Context, eventsText string, facts []string) (string, error) {
	eventsStr := eventsText
	if eventsStr == "" {
		eventsStr = "- Keine Termine"
	}
	factsStr := "- Keine besonderen Erinnerungen"
	if len(facts) > 0 {
		factsStr = ""
		for i, f := range facts {
			if i > 0 {
				factsStr += "\n"
			}
			factsStr += "- " + f
		}
	}

	prompt := fmt.Sprintf(`Erstelle eine kurze Morgenzusammenfassung für den Tag.

Kalender-Events heute:
%s

Erinnerungen an Kontakte die heute relevant sein könnten:
%s

Halte es kurz, freundlich und hilfreich. Maximal 3-4 Sätze.`, eventsStr, factsStr)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: dailySummarySystem},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   512,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("failed to call AI API: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from AI")
	}

	return resp.Choices[0].Message.Content, nil
}
