// Package openai implements llm.Provider against any OpenAI-compatible chat
// completions endpoint via github.com/sashabaranov/go-openai.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/duskline/forge/internal/llm"
	openailib "github.com/sashabaranov/go-openai"
)

const (
	maxRetries  = 2
	httpTimeout = 300 * time.Second
)

// Client implements llm.Provider using the OpenAI-compatible protocol.
type Client struct {
	client *openailib.Client
	config Config
}

// NewClient builds a Client from an explicit Config.
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	clientConfig := openailib.DefaultConfig(config.APIKey)
	if config.APIBase != "" {
		clientConfig.BaseURL = config.APIBase
	}
	clientConfig.HTTPClient = &http.Client{Timeout: httpTimeout}
	return &Client{client: openailib.NewClientWithConfig(clientConfig), config: config}, nil
}

// NewClientFromEnv builds a Client from FORGE_* environment variables.
func NewClientFromEnv() (*Client, error) {
	return NewClient(ConfigFromEnv())
}

// Name identifies the provider/model for logging and error messages.
func (c *Client) Name() string {
	return fmt.Sprintf("openai-compatible (%s)", c.config.Model)
}

// Config returns the client's configuration.
func (c *Client) Config() Config {
	return c.config
}

// VerifyConnection sends a minimal 1-token probe to confirm the server is
// reachable and authentication is valid.
func (c *Client) VerifyConnection(ctx context.Context) error {
	req := openailib.ChatCompletionRequest{
		Model:     c.config.Model,
		Messages:  []openailib.ChatCompletionMessage{{Role: openailib.ChatMessageRoleUser, Content: "ping"}},
		MaxTokens: 1,
	}
	_, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return c.translateError(err)
	}
	return nil
}

// StreamChat streams one completion given the full message history and tool
// set, accumulating both the text content and any tool calls the model
// requests. This merges what upstream OpenAI clients often keep as two
// separate streaming-only and tools-only code paths into a single operation,
// since the agent loop needs both from one model turn.
func (c *Client) StreamChat(ctx context.Context, messages []llm.Message, tools []llm.ToolDefinition, onChunk llm.StreamCallback) (llm.StreamResult, error) {
	if len(messages) == 0 {
		return llm.StreamResult{}, fmt.Errorf("no messages to send")
	}

	req := openailib.ChatCompletionRequest{
		Model:       c.config.Model,
		Messages:    toOpenAIMessages(messages),
		Stream:      true,
		Temperature: c.config.Temperature,
		TopP:        c.config.TopP,
	}
	if c.config.MaxOutputTokens > 0 {
		req.MaxTokens = c.config.MaxOutputTokens
	}
	if len(tools) > 0 {
		req.Tools = toOpenAITools(tools)
	}

	var result llm.StreamResult
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		result, lastErr = c.streamOnce(ctx, req, onChunk)
		if lastErr == nil {
			return result, nil
		}
		if attempt < maxRetries {
			wait := time.Duration(attempt+1) * time.Second
			log.Printf("[LLM] retry %d/%d after %v: %v", attempt+1, maxRetries, wait, lastErr)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return llm.StreamResult{}, ctx.Err()
			}
		}
	}
	return llm.StreamResult{}, c.translateError(lastErr)
}

func (c *Client) streamOnce(ctx context.Context, req openailib.ChatCompletionRequest, onChunk llm.StreamCallback) (llm.StreamResult, error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return llm.StreamResult{}, err
	}
	defer stream.Close()

	var content strings.Builder
	calls := map[int]*llm.ToolCall{}
	var order []int

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if content.Len() > 0 || len(calls) > 0 {
				log.Printf("[LLM] stream interrupted after %d chars: %v", content.Len(), err)
				break
			}
			return llm.StreamResult{}, err
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta
		if delta.Content != "" {
			content.WriteString(delta.Content)
			if onChunk != nil {
				onChunk(delta.Content)
			}
		}
		for _, tc := range delta.ToolCalls {
			idx := 0
			if tc.Index != nil {
				idx = *tc.Index
			}
			existing, ok := calls[idx]
			if !ok {
				existing = &llm.ToolCall{}
				calls[idx] = existing
				order = append(order, idx)
			}
			if tc.ID != "" {
				existing.ID = tc.ID
			}
			if tc.Function.Name != "" {
				existing.Name = tc.Function.Name
			}
			if tc.Function.Arguments != "" {
				existing.Arguments = json.RawMessage(string(existing.Arguments) + tc.Function.Arguments)
			}
		}
	}

	result := llm.StreamResult{Content: content.String()}
	for _, idx := range order {
		result.ToolCalls = append(result.ToolCalls, *calls[idx])
	}
	return result, nil
}

func toOpenAIMessages(messages []llm.Message) []openailib.ChatCompletionMessage {
	out := make([]openailib.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = openailib.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
		if m.Role == llm.RoleTool && m.ToolCallID != "" {
			out[i].ToolCallID = m.ToolCallID
		}
		if m.Role == llm.RoleAssistant && len(m.ToolCalls) > 0 {
			tcs := make([]openailib.ToolCall, len(m.ToolCalls))
			for j, tc := range m.ToolCalls {
				tcs[j] = openailib.ToolCall{
					ID:   tc.ID,
					Type: openailib.ToolTypeFunction,
					Function: openailib.FunctionCall{
						Name:      tc.Name,
						Arguments: string(tc.Arguments),
					},
				}
			}
			out[i].ToolCalls = tcs
		}
	}
	return out
}

func toOpenAITools(tools []llm.ToolDefinition) []openailib.Tool {
	out := make([]openailib.Tool, len(tools))
	for i, t := range tools {
		out[i] = openailib.Tool{
			Type: openailib.ToolTypeFunction,
			Function: &openailib.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		}
	}
	return out
}

func (c *Client) translateError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *openailib.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return llm.NewAuthError(c.config.APIBase, err)
		case http.StatusBadRequest:
			return llm.NewRejectedHistoryError(c.config.APIBase, err)
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return llm.NewTimeoutError(c.config.APIBase, err)
		default:
			return llm.NewServerError(c.config.APIBase, apiErr.HTTPStatusCode, err)
		}
	}
	var reqErr *openailib.RequestError
	if errors.As(err, &reqErr) {
		return llm.NewConnectivityError(c.config.APIBase, c.config.Model, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return llm.NewTimeoutError(c.config.APIBase, err)
	}
	return llm.NewOtherError(c.config.APIBase, err)
}
