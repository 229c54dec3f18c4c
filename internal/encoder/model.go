package encoder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"docvec/pkg/types"
)

// ModelClient supplies token-level hidden states from a model-serving
// collaborator. TokenStates returns one vector per input token; the encoder
// mean-pools them into a single embedding.
type ModelClient interface {
	// TokenStates returns the hidden state of every token in text.
	TokenStates(ctx context.Context, text string) ([][]float32, error)

	// MaxLength returns the model's context limit. Input longer than this
	// must be windowed before encoding.
	MaxLength() int

	// Dimension returns the width of each hidden state vector.
	Dimension() int
}

// HTTPModelConfig configures the HTTP model-serving client.
type HTTPModelConfig struct {
	BaseURL   string
	MaxLength int
	Dimension int
	Timeout   time.Duration
}

// HTTPModel calls a model server over HTTP for token-level hidden states.
type HTTPModel struct {
	baseURL    string
	maxLength  int
	dimension  int
	httpClient *http.Client
}

// NewHTTPModel creates an HTTP model client.
func NewHTTPModel(cfg HTTPModelConfig) (*HTTPModel, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: model base URL not set", types.ErrInvalidInput)
	}
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = 512
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = 768
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &HTTPModel{
		baseURL:    cfg.BaseURL,
		maxLength:  cfg.MaxLength,
		dimension:  cfg.Dimension,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (m *HTTPModel) MaxLength() int { return m.maxLength }
func (m *HTTPModel) Dimension() int { return m.dimension }

type tokenStatesRequest struct {
	Text string `json:"text"`
}

type tokenStatesResponse struct {
	States [][]float32 `json:"states"`
	Error  string      `json:"error,omitempty"`
}

// TokenStates posts text to the model server and returns the per-token hidden
// states. Server errors (5xx) and transport failures are retryable; client
// errors are not.
func (m *HTTPModel) TokenStates(ctx context.Context, text string) ([][]float32, error) {
	payload, err := json.Marshal(tokenStatesRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/v1/token-states", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, &transientError{err: fmt.Errorf("model server request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &transientError{err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode >= 500 {
		return nil, &transientError{err: fmt.Errorf("model server error %d: %s", resp.StatusCode, string(body))}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model server returned %d: %s", resp.StatusCode, string(body))
	}

	var out tokenStatesResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("model server: %s", out.Error)
	}
	return out.States, nil
}

// transientError marks failures worth retrying with backoff.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func isTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}
