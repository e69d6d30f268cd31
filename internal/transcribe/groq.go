package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// GroqTranscriber sends media bytes to Groq's Whisper endpoint and returns
// the full transcript. langchaingo has no audio surface, so this is a plain
// HTTP client.
type GroqTranscriber struct {
	baseURL string
	key     string
	model   string
	client  *http.Client
}

func NewGroqTranscriber(baseURL, key, model string) *GroqTranscriber {
	return &GroqTranscriber{
		baseURL: baseURL,
		key:     key,
		model:   model,
		client: &http.Client{
			Timeout: 300 * time.Second, // full-file transcription is slow
		},
	}
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

func (t *GroqTranscriber) Transcribe(ctx context.Context, file []byte, filename string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(file); err != nil {
		return "", fmt.Errorf("write file part: %w", err)
	}
	if err := writer.WriteField("model", t.model); err != nil {
		return "", fmt.Errorf("write model field: %w", err)
	}
	if err := writer.WriteField("response_format", "verbose_json"); err != nil {
		return "", fmt.Errorf("write format field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	url := t.baseURL + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+t.key)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcription error: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var parsed transcriptionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("unmarshal transcription: %w", err)
	}
	return parsed.Text, nil
}
