package imagery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Generator renders an image for a text prompt and returns the PNG bytes.
type Generator interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// HTTPGenerator talks to an image-generation server (e.g. a hosted diffusion
// model behind an HTTP inference endpoint).
type HTTPGenerator struct {
	BaseURL string
	Client  *http.Client
}

var _ Generator = &HTTPGenerator{}

func NewHTTPGenerator(baseURL string) *HTTPGenerator {
	return &HTTPGenerator{
		BaseURL: baseURL,
		Client: &http.Client{
			Timeout: 300 * time.Second,
		},
	}
}

type generationRequest struct {
	Prompt string `json:"prompt"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Steps  int    `json:"num_inference_steps"`
}

func (g *HTTPGenerator) Generate(ctx context.Context, prompt string) ([]byte, error) {
	payload, err := json.Marshal(generationRequest{
		Prompt: prompt,
		Width:  1024,
		Height: 1024,
		Steps:  4,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := g.BaseURL + "/infer"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image generation request failed: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image generation error: status %d, body %s", resp.StatusCode, string(respBytes))
	}

	return respBytes, nil
}
