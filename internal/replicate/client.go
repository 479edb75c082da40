package replicate

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

	"github.com/rs/zerolog"

	"github.com/magictales/server/internal/domain"
)

const defaultBaseURL = "https://api.replicate.com/v1"

// ErrMissingAPIToken indicates the client was configured without credentials.
var ErrMissingAPIToken = errors.New("replicate: api token is required")

// Options configures the Replicate predictions client.
type Options struct {
	APIToken       string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         zerolog.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls against the Replicate predictions API.
type Client struct {
	apiToken   string
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// Input is the model-specific key/value payload of a prediction request.
type Input map[string]any

type submitRequest struct {
	Input Input `json:"input"`
}

type predictionResponse struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  json.RawMessage `json:"error"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
	Detail string `json:"detail"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIToken) == "" {
		return nil, ErrMissingAPIToken
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 90 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiToken:   opts.APIToken,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     opts.Logger,
	}, nil
}

// Submit creates a prediction for the given model slug. The request carries
// "Prefer: wait" so the provider may hold the connection and answer with a
// terminal snapshot, letting callers skip polling entirely.
func (c *Client) Submit(ctx context.Context, model string, input Input) (*domain.Prediction, error) {
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("replicate: model is required")
	}
	body, err := json.Marshal(submitRequest{Input: input})
	if err != nil {
		return nil, fmt.Errorf("replicate: encode input: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s/predictions", c.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("replicate: build request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "wait")

	c.logger.Debug().Str("model", model).Msg("replicate submit")
	return c.do(req)
}

// Poll fetches the current snapshot of a prediction.
func (c *Client) Poll(ctx context.Context, id string) (*domain.Prediction, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("replicate: prediction id is required")
	}
	endpoint := fmt.Sprintf("%s/predictions/%s", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("replicate: build request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.apiToken)

	return c.do(req)
}

func (c *Client) do(req *http.Request) (*domain.Prediction, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("replicate: request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("replicate: read response: %w", err)
	}

	var decoded predictionResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, fmt.Errorf("replicate: decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := decoded.Detail
		if msg == "" {
			msg = decodeErrorMessage(decoded.Error)
		}
		if msg == "" {
			msg = strings.TrimSpace(string(payload))
		}
		c.logger.Error().Int("status", resp.StatusCode).Str("detail", msg).Msg("replicate api error")
		return nil, fmt.Errorf("replicate: api status %d: %s", resp.StatusCode, msg)
	}

	return &domain.Prediction{
		ID:     decoded.ID,
		Status: domain.PredictionStatus(decoded.Status),
		Output: decoded.Output,
		Error:  decodeErrorMessage(decoded.Error),
	}, nil
}

// decodeErrorMessage tolerates both string and structured error fields.
func decodeErrorMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "null" {
		return ""
	}
	return trimmed
}
