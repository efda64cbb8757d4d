package transcription

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

const DefaultAssemblyBaseURL = "https://api.assemblyai.com/v2"

type AssemblyAIClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	// без общего таймаута: тело может идти дольше timeout, ограничено ctx и ожиданием заголовков
	uploadClient *http.Client
}

// NewAssemblyAIClient — ключ передаётся явно, из env его читает только config.
func NewAssemblyAIClient(apiKey, baseURL string, timeout time.Duration) (*AssemblyAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("assemblyai: api key is empty")
	}
	if baseURL == "" {
		baseURL = DefaultAssemblyBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("assemblyai: bad base url: %w", err)
	}

	uploadTransport := http.DefaultTransport.(*http.Transport).Clone()
	uploadTransport.ResponseHeaderTimeout = timeout

	return &AssemblyAIClient{
		apiKey:       apiKey,
		baseURL:      strings.TrimRight(baseURL, "/"),
		client:       &http.Client{Timeout: timeout},
		uploadClient: &http.Client{Transport: uploadTransport},
	}, nil
}

// Upload отправляет аудио потоком как есть. Длина тела неизвестна, поэтому
// запрос уходит с chunked transfer encoding.
func (c *AssemblyAIClient) Upload(ctx context.Context, r io.Reader, filename string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", io.NopCloser(r))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	var out struct {
		UploadURL string `json:"upload_url"`
	}
	if err := c.do(c.uploadClient, req, &out); err != nil {
		return "", fmt.Errorf("assemblyai upload %q: %w", filename, err)
	}
	if out.UploadURL == "" {
		return "", fmt.Errorf("assemblyai upload: %w (upload_url)", ErrMissingField)
	}
	return out.UploadURL, nil
}

func (c *AssemblyAIClient) CreateJob(ctx context.Context, uploadURL string) (string, error) {
	payload, err := json.Marshal(map[string]string{"audio_url": uploadURL})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcript", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(c.client, req, &out); err != nil {
		return "", fmt.Errorf("assemblyai transcript: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("assemblyai transcript: %w (id)", ErrMissingField)
	}
	return out.ID, nil
}

func (c *AssemblyAIClient) GetJob(ctx context.Context, jobID string) (*Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/transcript/"+url.PathEscape(jobID), nil)
	if err != nil {
		return nil, err
	}

	var job Job
	if err := c.do(c.client, req, &job); err != nil {
		return nil, fmt.Errorf("assemblyai transcript %s: %w", jobID, err)
	}
	if job.Status == "" {
		return nil, fmt.Errorf("assemblyai transcript %s: %w (status)", jobID, ErrMissingField)
	}
	return &job, nil
}

func (c *AssemblyAIClient) do(client *http.Client, req *http.Request, out any) error {
	req.Header.Set("authorization", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("http %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
