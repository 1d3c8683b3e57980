package analyze

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/critiq/critiq/internal/review"
)

const (
	defaultAPIURL = "https://api.anthropic.com/v1/messages"
	apiVersion    = "2023-06-01"
)

// Anthropic analyzes diff chunks through Anthropic's messages API. It is
// the default implementation of the analysis boundary; any other
// implementation of review.Analyzer can be swapped in.
type Anthropic struct {
	apiKey string
	model  string
	apiURL string
	client *http.Client
	log    *zap.Logger
}

// NewAnthropic creates an Anthropic analyzer. Requires ANTHROPIC_API_KEY.
func NewAnthropic(model string, log *zap.Logger) (*Anthropic, error) {
	key := os.Getenv("ANTHROPIC_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Anthropic{
		apiKey: key,
		model:  model,
		apiURL: defaultAPIURL,
		client: &http.Client{Timeout: 120 * time.Second},
		log:    log,
	}, nil
}

// NewAnthropicForTest creates an analyzer against a test server.
func NewAnthropicForTest(apiURL, model string) *Anthropic {
	return &Anthropic{
		apiKey: "test-key",
		model:  model,
		apiURL: apiURL,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    zap.NewNop(),
	}
}

// Analyze implements review.Analyzer.
func (a *Anthropic) Analyze(ctx context.Context, chunkDiff string, meta review.ChunkMeta) (*review.AnalysisResult, error) {
	body := messagesRequest{
		Model:     a.model,
		MaxTokens: 8192,
		System:    systemPrompt,
		Messages: []message{
			{Role: "user", Content: userPrompt(chunkDiff, meta)},
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	var content string
	err = retryWithBackoff(ctx, 3, func() error {
		httpReq, err := http.NewRequestWithContext(ctx, "POST", a.apiURL, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-api-key", a.apiKey)
		httpReq.Header.Set("anthropic-version", apiVersion)

		httpResp, err := a.client.Do(httpReq)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer httpResp.Body.Close()

		respBody, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}

		switch {
		case httpResp.StatusCode == 429 || httpResp.StatusCode >= 500:
			a.log.Warn("analysis API overloaded, will retry",
				zap.Int("status", httpResp.StatusCode),
				zap.Int("chunk", meta.Index))
			return &rateLimitError{}
		case httpResp.StatusCode == 401 || httpResp.StatusCode == 403:
			return &authError{message: string(respBody)}
		case httpResp.StatusCode != 200:
			return fmt.Errorf("API error (status %d): %s", httpResp.StatusCode, string(respBody))
		}

		var result messagesResponse
		if err := json.Unmarshal(respBody, &result); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
		content = ""
		for _, block := range result.Content {
			if block.Type == "text" {
				content += block.Text
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return ParseResult(content)
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}
