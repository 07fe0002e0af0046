package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// GeminiClient talks to the Google Generative Language API. It implements
// Client for both free-form conversation turns and schema-constrained
// structured output.
type GeminiClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	limiter    Limiter
	logger     *zap.Logger
}

// GeminiOption configures a GeminiClient.
type GeminiOption func(*GeminiClient)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) GeminiOption {
	return func(g *GeminiClient) { g.httpClient = c }
}

// WithLimiter sets the pacing policy applied before every API call.
func WithLimiter(l Limiter) GeminiOption {
	return func(g *GeminiClient) { g.limiter = l }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) GeminiOption {
	return func(g *GeminiClient) { g.logger = l }
}

// WithBaseURL overrides the API host, mainly for tests.
func WithBaseURL(url string) GeminiOption {
	return func(g *GeminiClient) { g.baseURL = strings.TrimSuffix(url, "/") }
}

// NewGeminiClient creates a client for the given model.
func NewGeminiClient(apiKey, model string, opts ...GeminiOption) *GeminiClient {
	g := &GeminiClient{
		apiKey:     apiKey,
		model:      model,
		baseURL:    defaultGeminiBaseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    NopLimiter(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      float64        `json:"temperature"`
	ResponseMIMEType string         `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Converse produces the next message for the persona whose perspective
// the history encodes: "self" turns map to the API's model role, "other"
// turns to the user role.
func (g *GeminiClient) Converse(ctx context.Context, system string, history []Turn, temperature float64) (string, error) {
	contents := make([]geminiContent, 0, len(history))
	for _, turn := range history {
		role := "user"
		if turn.Role == RoleSelf {
			role = "model"
		}
		contents = append(contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: turn.Text}},
		})
	}
	if len(contents) == 0 {
		// The API requires at least one content entry to open a dialogue.
		contents = append(contents, geminiContent{
			Role:  "user",
			Parts: []geminiPart{{Text: "Begin the call."}},
		})
	}

	req := geminiRequest{
		Contents:         contents,
		GenerationConfig: geminiGenerationConfig{Temperature: temperature},
	}
	if system != "" {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}

	text, err := g.generate(ctx, req)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// GenerateStructured issues a single-turn request constrained to the JSON
// schema derived from the schema exemplar and returns the raw JSON bytes.
func (g *GeminiClient) GenerateStructured(ctx context.Context, prompt string, schema any, system string, temperature float64) ([]byte, error) {
	schemaMap, err := SchemaFor(schema)
	if err != nil {
		return nil, NewError(ErrorTypeRequest, "failed to derive response schema", err)
	}

	req := geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: prompt}},
		}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:      temperature,
			ResponseMIMEType: "application/json",
			ResponseSchema:   schemaMap,
		},
	}
	if system != "" {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}

	text, err := g.generate(ctx, req)
	if err != nil {
		return nil, err
	}
	return []byte(text), nil
}

func (g *GeminiClient) generate(ctx context.Context, reqBody geminiRequest) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", NewError(ErrorTypeRateLimit, "rate limiter wait aborted", err)
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", NewError(ErrorTypeRequest, "failed to marshal request", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, g.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", NewError(ErrorTypeRequest, "failed to create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	g.logger.Debug("calling generative language API",
		zap.String("model", g.model),
		zap.Int("request_bytes", len(payload)))

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", NewError(ErrorTypeRequest, "failed to send request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", NewError(ErrorTypeResponse, "failed to read response body", err)
	}

	if resp.StatusCode != http.StatusOK {
		g.logger.Error("API error",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body))
		return "", NewError(ErrorTypeAPI, fmt.Sprintf("API error: status code %d", resp.StatusCode), nil)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", NewError(ErrorTypeResponse, "failed to parse response", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", NewError(ErrorTypeResponse, "empty candidate list", nil)
	}

	var sb strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}
