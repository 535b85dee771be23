package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/dukerupert/propertypost/internal/apperr"
	"github.com/dukerupert/propertypost/internal/model"
)

const systemPrompt = `You are an elite real estate marketer. Turn the following property description into 5 posts: 1 for Instagram (with emojis), 1 for LinkedIn (professional), 1 for Facebook (community-focused), 1 for X (short/punchy), and 1 TikTok script. Return the result as a JSON object with the following structure:
{
  "instagram": "Instagram post text with emojis",
  "linkedin": "Professional LinkedIn post",
  "facebook": "Community-focused Facebook post",
  "x": "Short and punchy X (Twitter) post",
  "tiktok": "TikTok script"
}`

const temperature = 0.7

// postFields is the exact key set a generation must return.
var postFields = []string{"instagram", "linkedin", "facebook", "x", "tiktok"}

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Generator turns a property description into platform posts.
type Generator struct {
	client *openai.Client
	model  string
	apiKey string
}

func NewGenerator(cfg Config) *Generator {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	oc.HTTPClient = &http.Client{Timeout: timeout}

	modelName := cfg.Model
	if modelName == "" {
		modelName = openai.GPT4o
	}
	return &Generator{
		client: openai.NewClientWithConfig(oc),
		model:  modelName,
		apiKey: cfg.APIKey,
	}
}

// Configured returns true if an API key is set.
func (g *Generator) Configured() bool {
	return g != nil && g.apiKey != ""
}

// Generate asks the model for the five posts. Output varies between calls
// for the same text.
func (g *Generator) Generate(ctx context.Context, text string) (model.Posts, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: temperature,
	})
	if err != nil {
		return model.Posts{}, upstreamError(err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return model.Posts{}, apperr.Upstream("No response from OpenAI", 0, nil)
	}
	return ParsePosts(resp.Choices[0].Message.Content)
}

func upstreamError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apperr.Upstream("OpenAI API error: "+apiErr.Message, apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return apperr.Upstream("OpenAI API error: request failed", reqErr.HTTPStatusCode, err)
	}
	return apperr.Upstream("OpenAI API error: request failed", 0, err)
}

// ParsePosts validates model output: a JSON object with exactly the five post
// keys, each a non-empty string.
func ParsePosts(raw string) (model.Posts, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return model.Posts{}, apperr.Parse("Failed to parse OpenAI response", err)
	}
	if fields == nil {
		return model.Posts{}, apperr.Parse("Failed to parse OpenAI response", fmt.Errorf("content is null"))
	}

	values := make(map[string]string, len(postFields))
	for _, key := range postFields {
		rawVal, ok := fields[key]
		if !ok {
			return model.Posts{}, apperr.Schema("Invalid response format from OpenAI")
		}
		var s string
		if err := json.Unmarshal(rawVal, &s); err != nil || strings.TrimSpace(s) == "" {
			return model.Posts{}, apperr.Schema("Invalid response format from OpenAI")
		}
		values[key] = s
	}
	if len(fields) != len(postFields) {
		return model.Posts{}, apperr.New(apperr.KindSchema, "Invalid response format from OpenAI",
			fmt.Errorf("unexpected keys: %v", extraKeys(fields)))
	}

	return model.Posts{
		Instagram: values["instagram"],
		LinkedIn:  values["linkedin"],
		Facebook:  values["facebook"],
		X:         values["x"],
		TikTok:    values["tiktok"],
	}, nil
}

func extraKeys(fields map[string]json.RawMessage) []string {
	known := make(map[string]bool, len(postFields))
	for _, k := range postFields {
		known[k] = true
	}
	var extra []string
	for k := range fields {
		if !known[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return extra
}
