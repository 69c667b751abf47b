package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"turansuraetu/internal/interpolation"
	"turansuraetu/internal/patch"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// ErrMissingAPIKey is returned by Gemini when no API key is configured.
var ErrMissingAPIKey = errors.New("gemini API key not configured")

// Gemini translates through the Google Gemini API and fills the Google field.
type Gemini struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
}

// GeminiOption configures a Gemini engine.
type GeminiOption func(*Gemini)

// WithBaseURL points the engine at another API endpoint.
func WithBaseURL(url string) GeminiOption {
	return func(g *Gemini) { g.baseURL = strings.TrimRight(url, "/") }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) GeminiOption {
	return func(g *Gemini) { g.httpClient = c }
}

// WithRetry sets the attempt count and the base backoff between attempts.
func WithRetry(attempts int, backoff time.Duration) GeminiOption {
	return func(g *Gemini) {
		if attempts < 1 {
			attempts = 1
		}
		g.maxRetries = attempts
		g.backoff = backoff
	}
}

// NewGemini creates a Gemini engine.
func NewGemini(apiKey, model string, opts ...GeminiOption) *Gemini {
	g := &Gemini{
		apiKey:  apiKey,
		model:   model,
		baseURL: geminiBaseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		maxRetries: 3,
		backoff:    2 * time.Second,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name returns "gemini".
func (g *Gemini) Name() string { return "gemini" }

// Field returns the Google slot, which Gemini output takes over.
func (g *Gemini) Field() patch.Field { return patch.FieldGoogle }

// --- Gemini API request/response types ---

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  *genConfig      `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type genConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float64 `json:"temperature,omitempty"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
	Error      *geminiError      `json:"error,omitempty"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

var languageNames = map[Language]string{
	English:  "English",
	Japanese: "Japanese",
}

func systemPrompt(from, to Language) string {
	return fmt.Sprintf(`You are a professional game localizer translating an RPG Maker game from %s to %s.

Rules:
1. Output ONLY the translation, nothing else.
2. Preserve ALL placeholders like {{code_1}}, {{code_2}} exactly as-is.
3. Preserve line breaks: the translation must have the same number of lines as the input.
4. Keep character and item names consistent and natural for a game.`, languageNames[from], languageNames[to])
}

// Translate sends text to Gemini with control codes protected.
func (g *Gemini) Translate(ctx context.Context, from, to Language, text string) (string, error) {
	if g.apiKey == "" {
		return "", ErrMissingAPIKey
	}
	if _, ok := languageNames[from]; !ok {
		return "", fmt.Errorf("source %q: %w", from, ErrUnsupportedLanguage)
	}
	if _, ok := languageNames[to]; !ok {
		return "", fmt.Errorf("target %q: %w", to, ErrUnsupportedLanguage)
	}

	protected, mappings := interpolation.Protect(text)

	reqBody := geminiRequest{
		SystemInstruction: &geminiContent{
			Parts: []geminiPart{{Text: systemPrompt(from, to)}},
		},
		Contents: []geminiContent{
			{
				Role:  "user",
				Parts: []geminiPart{{Text: protected}},
			},
		},
		GenerationConfig: &genConfig{
			MaxOutputTokens: 2048,
			Temperature:     0.3,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal translation request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < g.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * g.backoff
			log.Debug().Int("attempt", attempt+1).Dur("backoff", backoff).Msg("Retrying Gemini request")
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		result, retryable, err := g.doRequest(ctx, bodyBytes)
		if err == nil {
			return interpolation.Restore(result, mappings), nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !retryable {
			break
		}
	}

	return "", fmt.Errorf("gemini translate: %w", lastErr)
}

func (g *Gemini) doRequest(ctx context.Context, bodyBytes []byte) (string, bool, error) {
	url := fmt.Sprintf("%s/%s:generateContent", g.baseURL, g.model)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("API call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", true, fmt.Errorf("retryable error (status %d): %s", resp.StatusCode, string(respBody))
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var apiResp geminiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", false, fmt.Errorf("unmarshal response: %w", err)
	}
	if apiResp.Error != nil {
		return "", false, fmt.Errorf("API error [%s]: %s", apiResp.Error.Status, apiResp.Error.Message)
	}
	if len(apiResp.Candidates) == 0 {
		return "", false, fmt.Errorf("empty response: no candidates")
	}

	var result strings.Builder
	for _, p := range apiResp.Candidates[0].Content.Parts {
		result.WriteString(p.Text)
	}

	return strings.TrimSpace(result.String()), false, nil
}
