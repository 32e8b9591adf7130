// Package openai implements notice.Enricher against the OpenAI chat API.
//
// The two operations carry deliberately different failure policies:
// Summarize degrades to a mechanical fallback and never fails, because a
// posting with mediocre text is still useful. ExtractSchedules propagates
// errors, because silently storing zero schedules is indistinguishable from
// "no schedules found".
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"go.uber.org/zap"

	"github.com/campusfeed/notice-crawler/internal/notice"
)

// chatClient is the slice of the OpenAI client the enricher needs; tests
// substitute a stub.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client talks to the chat completion API with structured JSON output.
type Client struct {
	api            chatClient
	model          string
	summarySchema  *jsonschema.Definition
	scheduleSchema *jsonschema.Definition
	logger         *zap.Logger
}

type summaryPayload struct {
	SummaryTitle    string `json:"summary_title"`
	SummaryContent  string `json:"summary_content"`
	MarkdownContent string `json:"markdown_content"`
}

type scheduleItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Begin       string `json:"begin"`
	End         string `json:"end"`
}

type schedulePayload struct {
	Items []scheduleItem `json:"items"`
}

// New builds a Client for the given API key and model.
func New(apiKey, model string, logger *zap.Logger) (*Client, error) {
	if model == "" {
		model = openai.GPT4oMini
	}
	summarySchema, err := jsonschema.GenerateSchemaForType(summaryPayload{})
	if err != nil {
		return nil, fmt.Errorf("generate summary schema: %w", err)
	}
	scheduleSchema, err := jsonschema.GenerateSchemaForType(schedulePayload{})
	if err != nil {
		return nil, fmt.Errorf("generate schedule schema: %w", err)
	}
	return &Client{
		api:            openai.NewClient(apiKey),
		model:          model,
		summarySchema:  summarySchema,
		scheduleSchema: scheduleSchema,
		logger:         logger,
	}, nil
}

// Summarize produces the AI short title, short summary and markdown rewrite.
// On any failure it returns the deterministic fallback instead of an error.
func (c *Client) Summarize(ctx context.Context, title, content string) notice.Summary {
	raw, err := c.complete(ctx, summaryPrompt(title, content), "notice_summary", c.summarySchema)
	if err != nil {
		c.logger.Warn("summarization degraded to fallback",
			zap.String("title", title), zap.Error(err))
		return fallbackSummary(title, content)
	}

	var payload summaryPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		c.logger.Warn("summarization response unparseable, using fallback",
			zap.String("title", title), zap.Error(err))
		return fallbackSummary(title, content)
	}
	return notice.Summary{
		Title:    payload.SummaryTitle,
		Content:  payload.SummaryContent,
		Markdown: payload.MarkdownContent,
	}
}

// ExtractSchedules pulls actionable date ranges out of the posting body.
// Unlike Summarize, every failure is returned to the caller.
func (c *Client) ExtractSchedules(ctx context.Context, title, content string) ([]notice.Schedule, error) {
	raw, err := c.complete(ctx, schedulePrompt(title, content), "notice_schedules", c.scheduleSchema)
	if err != nil {
		return nil, fmt.Errorf("extract schedules: %w", err)
	}

	var payload schedulePayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("decode schedule response: %w", err)
	}

	schedules := make([]notice.Schedule, 0, len(payload.Items))
	for _, item := range payload.Items {
		begin, err := time.Parse(time.RFC3339, item.Begin)
		if err != nil {
			return nil, fmt.Errorf("parse schedule begin %q: %w", item.Begin, err)
		}
		end, err := time.Parse(time.RFC3339, item.End)
		if err != nil {
			return nil, fmt.Errorf("parse schedule end %q: %w", item.End, err)
		}
		schedules = append(schedules, notice.Schedule{
			Title:       item.Title,
			Description: item.Description,
			Begin:       begin,
			End:         end,
		})
	}
	return schedules, nil
}

func (c *Client) complete(ctx context.Context, prompt, schemaName string, schema *jsonschema.Definition) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0.4,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   schemaName,
				Schema: schema,
				Strict: true,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// fallbackSummary is the mechanical conversion used when the model is
// unavailable: truncated title, body prefix, and explicit line-break markers.
func fallbackSummary(title, content string) notice.Summary {
	return notice.Summary{
		Title:    truncateRunes(title, 30),
		Content:  truncateRunes(content, 100),
		Markdown: strings.ReplaceAll(content, "\n", "<br>"),
	}
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
