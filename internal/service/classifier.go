package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/forgo/staffhub/internal/model"
	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultClassifierModel = openai.GPT4oMini
	maxClassifierInput     = 12000
)

const classifierPrompt = `You label candidate resumes for a staffing agency.
Respond with a JSON object with exactly these keys:
  "category": one of software_engineering, data, devops, qa, project_management, sales, other
  "seniority": one of junior, mid, senior
  "skills": up to 15 short lower-case technology or domain skills found in the resume
Do not include any other text.`

var (
	knownCategories = map[string]bool{
		model.CategorySoftwareEngineering: true,
		model.CategoryData:                true,
		model.CategoryDevOps:              true,
		model.CategoryQA:                  true,
		model.CategoryProjectManagement:   true,
		model.CategorySales:               true,
		model.CategoryOther:               true,
	}
	knownSeniorities = map[string]bool{
		model.SeniorityJunior: true,
		model.SeniorityMid:    true,
		model.SenioritySenior: true,
	}
)

// ChatCompleter is the subset of *openai.Client the classifier needs
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClassifier classifies resumes with an OpenAI chat model
type OpenAIClassifier struct {
	client ChatCompleter
	model  string
	logger *slog.Logger
}

// OpenAIClassifierConfig holds configuration for the classifier
type OpenAIClassifierConfig struct {
	Client ChatCompleter
	Model  string
	Logger *slog.Logger
}

// NewOpenAIClassifier creates a classifier around an existing client
func NewOpenAIClassifier(cfg OpenAIClassifierConfig) *OpenAIClassifier {
	if cfg.Model == "" {
		cfg.Model = defaultClassifierModel
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &OpenAIClassifier{client: cfg.Client, model: cfg.Model, logger: cfg.Logger}
}

// NewOpenAIClient builds the go-openai client. baseURL may be empty and a
// zero timeout leaves the HTTP client unbounded.
func NewOpenAIClient(apiKey, baseURL string, timeout time.Duration) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: timeout}
	}
	return openai.NewClientWithConfig(cfg)
}

type classifierReply struct {
	Category  string   `json:"category"`
	Seniority string   `json:"seniority"`
	Skills    []string `json:"skills"`
}

// Classify asks the model for a JSON classification. Unknown labels fall back to other/mid.
func (c *OpenAIClassifier) Classify(ctx context.Context, resumeText string) (*model.Classification, error) {
	resumeText = strings.TrimSpace(resumeText)
	if resumeText == "" {
		return nil, ErrResumeRequired
	}
	if c.client == nil {
		return nil, ErrClassifierDisabled
	}
	resumeText = model.TruncateUTF8(resumeText, maxClassifierInput)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: classifierPrompt},
			{Role: openai.ChatMessageRoleUser, Content: resumeText},
		},
	})
	if err != nil {
		c.logger.Warn("resume classification failed", "model", c.model, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrClassifierFailed, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrClassifierFailed)
	}

	return parseClassification(resp.Choices[0].Message.Content)
}

func parseClassification(content string) (*model.Classification, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var reply classifierReply
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &reply); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassifierFailed, err)
	}

	category := strings.ToLower(strings.TrimSpace(reply.Category))
	if !knownCategories[category] {
		category = model.CategoryOther
	}
	seniority := strings.ToLower(strings.TrimSpace(reply.Seniority))
	if !knownSeniorities[seniority] {
		seniority = model.SeniorityMid
	}

	skills := model.NormalizeSkills(reply.Skills)
	if len(skills) > model.MaxSkillsPerRecord {
		skills = skills[:model.MaxSkillsPerRecord]
	}

	return &model.Classification{Category: category, Seniority: seniority, Skills: skills}, nil
}
