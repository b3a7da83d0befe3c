package grading

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"github.com/classware/cbt-backend/internal/model"
)

// EssaySuggestion is the oracle's assessment of a single essay answer.
// It is a suggestion for the reviewing teacher, never an input to Score.
type EssaySuggestion struct {
	Score    float64 `json:"score"`
	MaxScore float64 `json:"max_score"`
	Feedback string  `json:"feedback"`
}

// EssayOracle produces grading suggestions for essay answers. Optional:
// the exam engine works with no oracle configured.
type EssayOracle interface {
	SuggestGrade(ctx context.Context, question model.Question, answerText string) (*EssaySuggestion, error)
}

// OpenAIOracle implements EssayOracle against any OpenAI-compatible API.
type OpenAIOracle struct {
	api   *openai.Client
	model string
}

// NewOpenAIOracle creates an oracle client. baseURL may be empty for the
// default OpenAI endpoint.
func NewOpenAIOracle(baseURL, apiKey, modelName string) *OpenAIOracle {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIOracle{
		api:   openai.NewClientWithConfig(cfg),
		model: modelName,
	}
}

const essaySystemPrompt = `You grade a student's essay answer for a school exam.
Respond with a JSON object: {"score": <0-100>, "max_score": 100, "feedback": "<2-3 sentences for the teacher>"}.
Grade on relevance, correctness and completeness against the question. Be strict but fair.`

// SuggestGrade asks the model for a suggested score and feedback.
func (o *OpenAIOracle) SuggestGrade(ctx context.Context, question model.Question, answerText string) (*EssaySuggestion, error) {
	userPrompt := fmt.Sprintf("Question:\n%s\n\nStudent answer:\n%s", question.Text, answerText)

	resp, err := o.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: essaySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("essay oracle call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("essay oracle returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	var s EssaySuggestion
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("parse oracle response: %w (raw: %s)", err, raw)
	}
	if s.MaxScore <= 0 {
		s.MaxScore = 100
	}
	return &s, nil
}
