// Package agent drives one conversational turn: model calls, tool
// execution, fact extraction and conversation persistence.
package agent

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"

	"github.com/lunabot/luna/internal/models"
	"github.com/lunabot/luna/internal/tools"
)

const systemPrompt = `Du bist Luna, ein persönlicher Assistent. Du sprichst Deutsch und bist freundlich, hilfsbereit und prägnant.

Deine Hauptaufgaben:
1. Allgemeine Fragen beantworten
2. Kalender-Informationen bereitstellen und Erinnerungen verwalten
3. Dich an persönliche Details über Kontakte erinnern und diese nutzen

WICHTIG - Kontakt-Informationen speichern:
Wenn der Nutzer dir etwas über eine Person erzählt (z.B. "Julias Freundin Lara hat sich das Bein gebrochen"),
antworte mit einem speziellen Format am ENDE deiner Antwort:
[SAVE_FACT|Kontaktname|Fakt]

Beispiel: "Das tut mir leid zu hören! Ich hoffe, Lara erholt sich schnell. [SAVE_FACT|Julia|Freundin Lara hat sich das Bein gebrochen]"

Wenn relevante Kontakt-Informationen im Kontext sind, erinnere den Nutzer daran und schlage vor, nachzufragen.

Halte deine Antworten sehr kurz und natürlich - wie eine gute Assistentin.`

// apologyText is the fixed fallback when the tool loop hits its bound.
const apologyText = "Entschuldigung, ich hatte Probleme bei der Verarbeitung deiner Anfrage."

const (
	maxIterations = 10
	historyLimit  = 10
)

// ChatClient is the language-model service.
type ChatClient interface {
	CreateToolCompletion(ctx context.Context, messages []openai.ChatCompletionMessage, catalog []openai.Tool) (openai.ChatCompletionMessage, error)
}

// ToolRunner executes one parsed tool invocation.
type ToolRunner interface {
	Run(ctx context.Context, call tools.Call) (string, error)
}

// ConversationStore is the durable conversation log.
type ConversationStore interface {
	Add(ctx context.Context, role, content string) error
	Recent(ctx context.Context, limit int) ([]*models.ConversationMessage, error)
}

type Loop struct {
	ai            ChatClient
	runner        ToolRunner
	conversations ConversationStore
	facts         *Workflow
	tz            *time.Location
	now           func() time.Time
}

func NewLoop(aiClient ChatClient, runner ToolRunner, conversations ConversationStore, facts *Workflow, tz *time.Location) *Loop {
	return &Loop{
		ai:            aiClient,
		runner:        runner,
		conversations: conversations,
		facts:         facts,
		tz:            tz,
		now:           time.Now,
	}
}

// RunTurn processes one user message. It returns the cleaned final text and
// any fact disambiguations the caller must present to the user.
func (l *Loop) RunTurn(ctx context.Context, userMessage string) (string, []*PendingFact, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
	}

	history, err := l.conversations.Recent(ctx, historyLimit)
	if err != nil {
		log.Printf("Failed to load conversation history: %v", err)
	}
	for _, msg := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	contextHeader := l.buildContext(ctx, userMessage)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: fmt.Sprintf("%s\n\nNutzer: %s", contextHeader, userMessage),
	})

	catalog := tools.Definitions()
	final := apologyText

	for iteration := 1; iteration <= maxIterations; iteration++ {
		response, err := l.ai.CreateToolCompletion(ctx, messages, catalog)
		if err != nil {
			return "", nil, err
		}

		if len(response.ToolCalls) == 0 {
			final = response.Content
			break
		}

		log.Printf("Iteration %d: model requested %d tool calls", iteration, len(response.ToolCalls))
		messages = append(messages, response)
		messages = append(messages, l.executeToolCalls(ctx, response.ToolCalls)...)

		if iteration == maxIterations {
			log.Printf("Max iterations reached in tool use loop")
		}
	}

	clean, items := l.facts.ExtractAndRoute(ctx, final)

	if err := l.conversations.Add(ctx, openai.ChatMessageRoleUser, userMessage); err != nil {
		log.Printf("Failed to save user message: %v", err)
	}
	if err := l.conversations.Add(ctx, openai.ChatMessageRoleAssistant, clean); err != nil {
		log.Printf("Failed to save assistant message: %v", err)
	}

	return clean, items, nil
}

// executeToolCalls runs every invocation of one model turn concurrently and
// returns one tool message per invocation. Results are slotted by index, so
// correlation ids stay attached to their own invocation no matter which
// call finishes first. A failed invocation becomes error text for the
// model instead of aborting the turn.
func (l *Loop) executeToolCalls(ctx context.Context, calls []openai.ToolCall) []openai.ChatCompletionMessage {
	results := make([]openai.ChatCompletionMessage, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			results[i] = openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				ToolCallID: call.ID,
				Content:    l.runToolCall(gctx, call),
			}
			return nil
		})
	}
	g.Wait()

	return results
}

func (l *Loop) runToolCall(ctx context.Context, call openai.ToolCall) string {
	parsed, err := tools.Parse(call.Function.Name, call.Function.Arguments)
	if err != nil {
		log.Printf("Tool call %s (%s) rejected: %v", call.Function.Name, call.ID, err)
		return fmt.Sprintf("Fehler: %v", err)
	}

	result, err := l.runner.Run(ctx, parsed)
	if err != nil {
		log.Printf("Tool call %s (%s) failed: %v", call.Function.Name, call.ID, err)
		return fmt.Sprintf("Fehler: %v", err)
	}
	return result
}
