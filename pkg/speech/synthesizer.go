package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Synthesizer converts text into spoken audio. SynthesizeStream returns the
// audio as an incrementally readable body for chunked delivery; Synthesize
// returns the fully rendered artifact for single-shot delivery.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
	SynthesizeStream(ctx context.Context, text string) (io.ReadCloser, error)
}

// HTTPSynthesizer talks to a text-to-speech server that answers with raw
// audio bytes.
type HTTPSynthesizer struct {
	BaseURL string
	Client  *http.Client
}

var _ Synthesizer = &HTTPSynthesizer{}

func NewHTTPSynthesizer(baseURL string) *HTTPSynthesizer {
	return &HTTPSynthesizer{
		BaseURL: baseURL,
		Client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type synthesisRequest struct {
	Text string `json:"text"`
}

func (s *HTTPSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	body, err := s.SynthesizeStream(ctx, text)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	audio, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read synthesized audio: %w", err)
	}
	return audio, nil
}

func (s *HTTPSynthesizer) SynthesizeStream(ctx context.Context, text string) (io.ReadCloser, error) {
	payload, err := json.Marshal(synthesisRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := s.BaseURL + "/api/tts"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesis request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		respBytes, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("synthesis error: status %d, body %s", resp.StatusCode, string(respBytes))
	}

	return resp.Body, nil
}
