package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Provider defines the interface for the remote generative API.
// The exchange is single-turn: one prompt in, one reply out.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type geminiProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

// NewGeminiProvider creates a client for the Gemini generateContent endpoint.
// The API key stays server-side: browsers talk to this backend, never to the
// generative API directly.
func NewGeminiProvider(baseURL, apiKey, model string) Provider {
	return &geminiProvider{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
	}
}

// Wire format of the generateContent call.
type generateRequest struct {
	Contents []content `json:"contents"`
}
type content struct {
	Parts []part `json:"parts"`
}
type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (p *geminiProvider) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("could not marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", p.baseURL, p.model, p.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("could not create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("api returned non-200 status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("could not read response body: %w", err)
	}

	var genResp generateResponse
	if err := json.Unmarshal(bodyBytes, &genResp); err != nil {
		return "", fmt.Errorf("could not decode response: %w", err)
	}

	// The reply lives at candidates[0].content.parts[0].text. Anything else
	// counts as a malformed response.
	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("malformed api response: %s", string(bodyBytes))
	}
	text := genResp.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return "", fmt.Errorf("malformed api response: empty candidate text")
	}
	return text, nil
}
