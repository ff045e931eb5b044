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

	"github.com/omarvides/restyle-backend/pkg/config"
	"github.com/omarvides/restyle-backend/pkg/logger"
)

// ErrUnknownOutputFormat is returned when the model response matches none of
// the shapes the API is known to produce.
var ErrUnknownOutputFormat = errors.New("unknown model output format")

// Input is the request surface of the image-editing model.
type Input struct {
	Images      []string
	Prompt      string
	Seed        *int64
	AspectRatio string
}

// OutputKind tags the normalized model response.
type OutputKind string

const (
	OutputKindStream OutputKind = "stream"
	OutputKindURL    OutputKind = "url"
)

// Output is the tagged union produced at the API boundary. Internal code never
// re-inspects the raw response shape; it switches on Kind exactly once.
type Output struct {
	Kind OutputKind
	// Data holds the PNG bytes when Kind is stream.
	Data []byte
	// URL holds the image address when Kind is url.
	URL string
}

// Client invokes the hosted image-editing model synchronously.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	model      string
}

// NewClient validates the configuration and returns a ready client.
func NewClient(ctx context.Context, cfg config.ModelConfig, logg *logger.Logger) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("model base url is required")
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("model api token is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("model name is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		token:      strings.TrimSpace(cfg.Token),
		model:      cfg.Model,
	}

	if logg != nil {
		logg.Info(ctx, "model client initialized")
	}

	return client, nil
}

type predictionRequest struct {
	Input predictionInput `json:"input"`
}

type predictionInput struct {
	Prompt      string   `json:"prompt"`
	InputImages []string `json:"input_images"`
	Seed        *int64   `json:"seed,omitempty"`
	AspectRatio string   `json:"aspect_ratio,omitempty"`
}

type predictionResponse struct {
	Output json.RawMessage `json:"output"`
	Error  *string         `json:"error"`
	Status string          `json:"status"`
}

// Run sends the input to the model and blocks until the result is available,
// returning the normalized output. No retries; a failure surfaces immediately.
func (c *Client) Run(ctx context.Context, input Input) (*Output, error) {
	if c == nil {
		return nil, errors.New("model client not initialized")
	}
	if strings.TrimSpace(input.Prompt) == "" {
		return nil, errors.New("prompt is required")
	}
	if len(input.Images) == 0 {
		return nil, errors.New("at least one input image is required")
	}

	payload, err := json.Marshal(predictionRequest{Input: predictionInput{
		Prompt:      input.Prompt,
		InputImages: input.Images,
		Seed:        input.Seed,
		AspectRatio: input.AspectRatio,
	}})
	if err != nil {
		return nil, fmt.Errorf("encode prediction request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s/predictions", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "wait")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("invoke model: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("model returned %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}

	// The stream check must run before any JSON shape check: a binary body
	// would also "parse" as garbage through the weaker branches.
	if isBinaryContentType(resp.Header.Get("Content-Type")) {
		data, err := readStream(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read model stream: %w", err)
		}
		return &Output{Kind: OutputKindStream, Data: data}, nil
	}

	var prediction predictionResponse
	if err := json.NewDecoder(resp.Body).Decode(&prediction); err != nil {
		return nil, fmt.Errorf("decode model response: %w", err)
	}
	if prediction.Error != nil && *prediction.Error != "" {
		return nil, fmt.Errorf("model error: %s", *prediction.Error)
	}

	return normalizeOutput(prediction.Output)
}

// normalizeOutput folds the polymorphic output field into the tagged union.
// Order matters: string, then non-empty list, then failure.
func normalizeOutput(raw json.RawMessage) (*Output, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, ErrUnknownOutputFormat
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		if asString == "" {
			return nil, ErrUnknownOutputFormat
		}
		return &Output{Kind: OutputKindURL, URL: asString}, nil
	}

	var asList []json.RawMessage
	if err := json.Unmarshal(raw, &asList); err == nil {
		if len(asList) == 0 {
			return nil, ErrUnknownOutputFormat
		}
		first, err := coerceString(asList[0])
		if err != nil {
			return nil, err
		}
		return &Output{Kind: OutputKindURL, URL: first}, nil
	}

	return nil, ErrUnknownOutputFormat
}

func coerceString(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s, nil
	}
	// Some model versions wrap each result as an object with a url field.
	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.URL != "" {
		return obj.URL, nil
	}
	return "", ErrUnknownOutputFormat
}

// readStream drains the body into memory preserving chunk order.
func readStream(r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, err
	}
	if buf.Len() == 0 {
		return nil, ErrUnknownOutputFormat
	}
	return buf.Bytes(), nil
}

func isBinaryContentType(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	return strings.HasPrefix(ct, "image/") || strings.HasPrefix(ct, "application/octet-stream")
}
