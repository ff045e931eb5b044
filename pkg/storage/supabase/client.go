package supabase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/omarvides/restyle-backend/pkg/config"
	"github.com/omarvides/restyle-backend/pkg/logger"
)

const pingTimeout = 5 * time.Second

// Client talks to the hosted object store over its REST surface using the
// service role key. One instance is constructed at process start and injected
// into every consumer.
type Client struct {
	httpClient *http.Client
	projectURL string
	bucket     string
	serviceKey string
}

// Pinger exposes the health-check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewClient validates the configuration and returns a ready client.
func NewClient(ctx context.Context, cfg config.StorageConfig, logg *logger.Logger) (*Client, error) {
	projectURL := strings.TrimRight(strings.TrimSpace(cfg.ProjectURL), "/")
	if projectURL == "" {
		return nil, errors.New("storage project url is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if strings.TrimSpace(cfg.ServiceKey) == "" {
		return nil, errors.New("storage service key is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		projectURL: projectURL,
		bucket:     cfg.Bucket,
		serviceKey: strings.TrimSpace(cfg.ServiceKey),
	}

	if logg != nil {
		logg.Info(ctx, "storage client initialized")
	}

	return client, nil
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string {
	if c == nil {
		return ""
	}
	return c.bucket
}

// Upload writes data under key, overwriting any previous object at that path.
func (c *Client) Upload(ctx context.Context, key, contentType string, data []byte) error {
	if c == nil {
		return errors.New("storage client not initialized")
	}
	if key == "" {
		return errors.New("object key is required")
	}
	if len(data) == 0 {
		return errors.New("object data is empty")
	}

	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.projectURL, url.PathEscape(c.bucket), escapeKey(key))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload object: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("upload object: %s: %s", resp.Status, readErrorBody(resp.Body))
	}
	return nil
}

// PublicURL returns the stable public address for a stored object.
func (c *Client) PublicURL(key string) string {
	if c == nil || key == "" {
		return ""
	}
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.projectURL, url.PathEscape(c.bucket), escapeKey(key))
}

// Remove deletes the object stored under key.
func (c *Client) Remove(ctx context.Context, key string) error {
	if c == nil {
		return errors.New("storage client not initialized")
	}
	if key == "" {
		return errors.New("object key is required")
	}

	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.projectURL, url.PathEscape(c.bucket), escapeKey(key))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("remove object: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("remove object: %s: %s", resp.Status, readErrorBody(resp.Body))
	}
	return nil
}

// Ping verifies the bucket is reachable with the configured credentials.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return errors.New("storage client not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/storage/v1/bucket/%s", c.projectURL, url.PathEscape(c.bucket))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("storage bucket check failed: %s: %s", resp.Status, readErrorBody(resp.Body))
	}
	return nil
}

// escapeKey escapes each path segment while keeping the separators intact.
func escapeKey(key string) string {
	parts := strings.Split(strings.TrimLeft(key, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

func readErrorBody(body io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(body, 2048))
	return strings.TrimSpace(string(b))
}
