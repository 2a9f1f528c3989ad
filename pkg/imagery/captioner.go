package imagery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Captioner describes the contents of an image in natural language.
type Captioner interface {
	Caption(ctx context.Context, imageFilePath string) (string, error)
}

// HTTPCaptioner talks to an image-captioning server (e.g. a BLIP model
// behind an HTTP inference endpoint).
type HTTPCaptioner struct {
	BaseURL string
	Client  *http.Client
}

var _ Captioner = &HTTPCaptioner{}

func NewHTTPCaptioner(baseURL string) *HTTPCaptioner {
	return &HTTPCaptioner{
		BaseURL: baseURL,
		Client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type captionResponse struct {
	Caption string `json:"caption"`
}

func (c *HTTPCaptioner) Caption(ctx context.Context, imageFilePath string) (string, error) {
	file, err := os.Open(imageFilePath)
	if err != nil {
		return "", fmt.Errorf("open image file: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", filepath.Base(imageFilePath))
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("copy image into form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	url := c.BaseURL + "/caption"
	req, err := http.NewRequestWithContext(ctx, "POST", url, &body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("caption request failed: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("caption error: status %d, body %s", resp.StatusCode, string(respBytes))
	}

	var parsed captionResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	return parsed.Caption, nil
}
