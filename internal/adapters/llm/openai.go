package llm

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/PabloGalante/tabula/internal/domain"
	"github.com/PabloGalante/tabula/internal/observability"
)

const maxRetries = 3

var (
	rateLimitWaitTimes   = []time.Duration{5 * time.Second, 15 * time.Second, 30 * time.Second}
	serverErrorWaitTimes = []time.Duration{2 * time.Second, 5 * time.Second, 10 * time.Second}
)

// OpenAIClient implements domain.CompletionClient on the Chat Completions
// API.
type OpenAIClient struct {
	client openai.Client
	// sleep is swapped in tests.
	sleep func(context.Context, time.Duration) error
}

// NewOpenAIClient builds a client. baseURL may be empty.
func NewOpenAIClient(apiKey, baseURL string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is not set (OPENAI_API_KEY)")
	}
	// Retries are handled here, per error class.
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIClient{
		client: openai.NewClient(opts...),
		sleep:  sleepCtx,
	}, nil
}

func (c *OpenAIClient) params(req domain.CompletionRequest) openai.ChatCompletionNewParams {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case domain.RoleSystem:
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case domain.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}

	p := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: msgs,
	}
	if req.MaxTokens > 0 {
		p.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature != nil {
		p.Temperature = openai.Float(*req.Temperature)
	}
	return p
}

// Complete implements domain.CompletionClient.
func (c *OpenAIClient) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	params := c.params(req)
	log := observability.LoggerFromContext(ctx).With("model", req.Model)

	for attempt := 0; ; attempt++ {
		resp, err := c.client.Chat.Completions.New(ctx, params)
		if err == nil {
			if len(resp.Choices) == 0 {
				return "", fmt.Errorf("openai returned no choices")
			}
			return resp.Choices[0].Message.Content, nil
		}

		wait, retry := retryDelay(err, attempt)
		if !retry {
			return "", fmt.Errorf("openai chat completion: %w", err)
		}
		log.Warn("openai call failed, retrying", "attempt", attempt+1, "wait", wait.String(), "error", err)
		if err := c.sleep(ctx, wait); err != nil {
			return "", err
		}
	}
}

// Stream implements domain.CompletionClient. A request is retried only
// while nothing has been yielded yet.
func (c *OpenAIClient) Stream(ctx context.Context, req domain.CompletionRequest) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		params := c.params(req)
		log := observability.LoggerFromContext(ctx).With("model", req.Model)

		for attempt := 0; ; attempt++ {
			stream := c.client.Chat.Completions.NewStreaming(ctx, params)
			yielded := false
			for stream.Next() {
				chunk := stream.Current()
				if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
					continue
				}
				yielded = true
				if !yield(chunk.Choices[0].Delta.Content, nil) {
					stream.Close()
					return
				}
			}
			err := stream.Err()
			stream.Close()
			if err == nil {
				return
			}

			wait, retry := retryDelay(err, attempt)
			if yielded || !retry {
				yield("", fmt.Errorf("openai chat completion stream: %w", err))
				return
			}
			log.Warn("openai stream failed, retrying", "attempt", attempt+1, "wait", wait.String(), "error", err)
			if err := c.sleep(ctx, wait); err != nil {
				yield("", err)
				return
			}
		}
	}
}

// retryDelay classifies err and returns how long to wait before the next
// attempt.
func retryDelay(err error, attempt int) (time.Duration, bool) {
	if attempt >= maxRetries-1 {
		return 0, false
	}
	switch {
	case isRateLimitError(err):
		return rateLimitWaitTimes[attempt], true
	case isServerError(err):
		return serverErrorWaitTimes[attempt], true
	default:
		return 0, false
	}
}

func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests")
}

func isServerError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusInternalServerError
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "server_error")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
