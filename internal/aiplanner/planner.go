// Package aiplanner is the external AI planner contract: given a
// screenshot and prompt, return a structured navigation plan. Treated
// as opaque by callers; the go-openai-backed implementation is one
// concrete binding among possible others.
package aiplanner

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Request is what the exploration engine sends the planner in phase 1.
type Request struct {
	ScreenshotURL  string
	OriginalPrompt string
	DeviceModel    string
}

// Plan is the planner's structured response.
type Plan struct {
	MenuType         string     `json:"menu_type"`
	Lines            [][]string `json:"lines"`
	Items            []string   `json:"items"`
	ItemsLeftOfHome  []string   `json:"items_left_of_home,omitempty"`
	ItemsRightOfHome []string   `json:"items_right_of_home,omitempty"`
	Strategy         string     `json:"strategy"`
	PredictedDepth   int        `json:"predicted_depth"`
	Reasoning        string     `json:"reasoning"`
}

// Planner is the narrow contract the exploration engine depends on.
type Planner interface {
	Plan(ctx context.Context, req Request) (*Plan, error)
}

const systemPrompt = `You analyze a screenshot of a device's current screen and propose a
navigation exploration plan. Respond with JSON only, matching:
{"menu_type":"horizontal|vertical|grid|mixed","lines":[["item",...]],"items":["item",...],
"items_left_of_home":["item",...],"items_right_of_home":["item",...],
"strategy":"click_with_selectors|click_with_text|dpad_with_screenshot",
"predicted_depth":1,"reasoning":"short rationale"}`

// OpenAIPlanner calls a vision-capable chat completion model.
type OpenAIPlanner struct {
	client *openai.Client
	model  string
}

func NewOpenAIPlanner(apiKey, model string) *OpenAIPlanner {
	if model == "" {
		model = openai.GPT4o
	}
	return &OpenAIPlanner{client: openai.NewClient(apiKey), model: model}
}

func (p *OpenAIPlanner) Plan(ctx context.Context, req Request) (*Plan, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: fmt.Sprintf(
						"device_model=%s original_prompt=%s", req.DeviceModel, req.OriginalPrompt)},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: req.ScreenshotURL}},
				},
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return nil, fmt.Errorf("ai planner request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("ai planner returned no choices")
	}

	var plan Plan
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &plan); err != nil {
		return nil, fmt.Errorf("ai planner returned invalid JSON: %w", err)
	}
	return &plan, nil
}
