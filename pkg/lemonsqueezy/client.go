package lemonsqueezy

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

const defaultBaseURL = "https://api.lemonsqueezy.com"

var (
	errAPIKeyRequired        = errors.New("lemonsqueezy api key is required")
	errStoreIDRequired       = errors.New("lemonsqueezy store id is required")
	errVariantIDRequired     = errors.New("lemonsqueezy variant id is required")
	errSigningSecretRequired = errors.New("lemonsqueezy signing secret is required")
)

// Client exposes the billing provider primitives with centralized auth and
// error mapping. Constructed once per process and injected where needed.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	apiKey        string
	storeID       string
	variantID     string
	signingSecret string
}

// NewClient initializes the billing wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.LemonSqueezyConfig, logg *logger.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	if strings.TrimSpace(cfg.StoreID) == "" {
		return nil, errStoreIDRequired
	}
	if strings.TrimSpace(cfg.VariantID) == "" {
		return nil, errVariantIDRequired
	}
	signingSecret := strings.TrimSpace(cfg.SigningSecret)
	if signingSecret == "" {
		return nil, errSigningSecretRequired
	}

	c := &Client{
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		baseURL:       defaultBaseURL,
		apiKey:        apiKey,
		storeID:       strings.TrimSpace(cfg.StoreID),
		variantID:     strings.TrimSpace(cfg.VariantID),
		signingSecret: signingSecret,
	}

	if logg != nil {
		logg.Info(ctx, "lemonsqueezy client initialized")
	}
	return c, nil
}

// SigningSecret returns the webhook signing secret.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

// WithBaseURL overrides the API host; used by tests.
func (c *Client) WithBaseURL(baseURL string) *Client {
	if c == nil {
		return nil
	}
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// CheckoutParams carries the per-user checkout customization.
type CheckoutParams struct {
	UserID string
	Email  string
}

type checkoutRequest struct {
	Data checkoutData `json:"data"`
}

type checkoutData struct {
	Type          string                `json:"type"`
	Attributes    checkoutAttributes    `json:"attributes"`
	Relationships checkoutRelationships `json:"relationships"`
}

type checkoutAttributes struct {
	CheckoutData checkoutCustom `json:"checkout_data"`
}

type checkoutCustom struct {
	Email  string            `json:"email,omitempty"`
	Custom map[string]string `json:"custom"`
}

type checkoutRelationships struct {
	Store   relationship `json:"store"`
	Variant relationship `json:"variant"`
}

type relationship struct {
	Data relationshipData `json:"data"`
}

type relationshipData struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type checkoutResponse struct {
	Data struct {
		Attributes struct {
			URL string `json:"url"`
		} `json:"attributes"`
	} `json:"data"`
}

// CreateCheckout creates a hosted checkout session carrying the user id in the
// custom payload so the webhook can attribute the purchase.
func (c *Client) CreateCheckout(ctx context.Context, params CheckoutParams) (string, error) {
	if c == nil {
		return "", errors.New("lemonsqueezy client not initialized")
	}
	if strings.TrimSpace(params.UserID) == "" {
		return "", errors.New("user id is required")
	}

	payload, err := json.Marshal(checkoutRequest{Data: checkoutData{
		Type: "checkouts",
		Attributes: checkoutAttributes{
			CheckoutData: checkoutCustom{
				Email:  params.Email,
				Custom: map[string]string{"user_id": params.UserID},
			},
		},
		Relationships: checkoutRelationships{
			Store:   relationship{Data: relationshipData{Type: "stores", ID: c.storeID}},
			Variant: relationship{Data: relationshipData{Type: "variants", ID: c.variantID}},
		},
	}})
	if err != nil {
		return "", fmt.Errorf("encode checkout request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/checkouts", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/vnd.api+json")
	req.Header.Set("Content-Type", "application/vnd.api+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("create checkout: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("create checkout: %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}

	var decoded checkoutResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode checkout response: %w", err)
	}
	if decoded.Data.Attributes.URL == "" {
		return "", errors.New("checkout response missing url")
	}
	return decoded.Data.Attributes.URL, nil
}
