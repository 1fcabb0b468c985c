package internal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// Summarizer turns an assembled content bundle into a markdown report.
type Summarizer interface {
	Summarize(ctx context.Context, video *VideoRecord, bundle *ContentBundle) (string, error)
}

// ChatClient is the slice of the OpenAI SDK the summarizer uses, split out
// so tests can substitute a fake.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, model, prompt string) (string, error)
}

// OpenAIChatClient wraps the official OpenAI Go SDK.
type OpenAIChatClient struct {
	client *openai.Client
}

// NewOpenAIChatClient creates a chat client with the given API key.
func NewOpenAIChatClient(apiKey string, requestOptions ...option.RequestOption) *OpenAIChatClient {
	opts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, requestOptions...)
	client := openai.NewClient(opts...)
	return &OpenAIChatClient{client: &client}
}

// CreateChatCompletion sends a single-turn completion request.
func (c *OpenAIChatClient) CreateChatCompletion(ctx context.Context, model, prompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices from model")
	}
	return resp.Choices[0].Message.Content, nil
}

// ReportSummarizer produces summaries through a chat model using the
// configured prompt template.
type ReportSummarizer struct {
	client     ChatClient
	prompts    *PromptManager
	model      string
	timeout    time.Duration
	verbose    bool
	apiKey     string
	clientOnce sync.Once
}

// NewReportSummarizer creates a summarizer with an explicit chat client.
func NewReportSummarizer(client ChatClient, prompts *PromptManager, model string, timeout time.Duration, verbose bool) *ReportSummarizer {
	return &ReportSummarizer{
		client:  client,
		prompts: prompts,
		model:   model,
		timeout: timeout,
		verbose: verbose,
	}
}

// NewReportSummarizerWithKey defers client creation until the first use, so
// commands that never summarize do not require an API key.
func NewReportSummarizerWithKey(apiKey string, prompts *PromptManager, model string, timeout time.Duration, verbose bool) *ReportSummarizer {
	return &ReportSummarizer{
		prompts: prompts,
		model:   model,
		timeout: timeout,
		verbose: verbose,
		apiKey:  apiKey,
	}
}

func (s *ReportSummarizer) ensureClient() error {
	if s.client != nil {
		return nil
	}
	if s.apiKey == "" {
		return fmt.Errorf("OpenAI API key not configured, set openai.api_key or OPENAI_API_KEY")
	}
	s.clientOnce.Do(func() {
		s.client = NewOpenAIChatClient(s.apiKey)
	})
	return nil
}

// Summarize renders the prompt for the bundle and asks the model for a
// report.
func (s *ReportSummarizer) Summarize(ctx context.Context, video *VideoRecord, bundle *ContentBundle) (string, error) {
	if err := s.ensureClient(); err != nil {
		return "", err
	}

	prompt, err := s.prompts.CreatePrompt(video, bundle)
	if err != nil {
		return "", err
	}

	if s.verbose {
		fmt.Printf("Summarizing %s (%s) with %s\n", video.BVID, bundle.Scenario, s.model)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	report, err := s.client.CreateChatCompletion(ctx, s.model, prompt)
	if err != nil {
		return "", fmt.Errorf("creating chat completion: %w", err)
	}
	return report, nil
}
