package lemonsqueezy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/omarvides/restyle-backend/pkg/config"
)

func testConfig() config.LemonSqueezyConfig {
	return config.LemonSqueezyConfig{
		APIKey:        "key",
		StoreID:       "123",
		VariantID:     "456",
		SigningSecret: "shh",
	}
}

func TestNewClientValidation(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*config.LemonSqueezyConfig)
	}{
		{"missing api key", func(c *config.LemonSqueezyConfig) { c.APIKey = "" }},
		{"missing store id", func(c *config.LemonSqueezyConfig) { c.StoreID = " " }},
		{"missing variant id", func(c *config.LemonSqueezyConfig) { c.VariantID = "" }},
		{"missing signing secret", func(c *config.LemonSqueezyConfig) { c.SigningSecret = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			if _, err := NewClient(ctx, cfg, nil); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	c, err := NewClient(ctx, testConfig(), nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.SigningSecret() != "shh" {
		t.Fatalf("SigningSecret = %q", c.SigningSecret())
	}
}

func TestCreateCheckout(t *testing.T) {
	var captured checkoutRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/checkouts" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"attributes":{"url":"https://checkout.example/abc"}}}`))
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), testConfig(), nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	c.WithBaseURL(srv.URL)

	url, err := c.CreateCheckout(context.Background(), CheckoutParams{UserID: "user-1", Email: "a@b.co"})
	if err != nil {
		t.Fatalf("CreateCheckout: %v", err)
	}
	if url != "https://checkout.example/abc" {
		t.Fatalf("url = %q", url)
	}
	if got := captured.Data.Attributes.CheckoutData.Custom["user_id"]; got != "user-1" {
		t.Fatalf("custom user_id = %q", got)
	}
	if captured.Data.Relationships.Store.Data.ID != "123" || captured.Data.Relationships.Variant.Data.ID != "456" {
		t.Fatalf("relationships = %+v", captured.Data.Relationships)
	}
}

func TestCreateCheckoutRejectsMissingUser(t *testing.T) {
	c, err := NewClient(context.Background(), testConfig(), nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := c.CreateCheckout(context.Background(), CheckoutParams{}); err == nil {
		t.Fatal("expected error for missing user id")
	}
}

func TestCreateCheckoutUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"errors":[{"detail":"bad variant"}]}`))
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), testConfig(), nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	c.WithBaseURL(srv.URL)

	if _, err := c.CreateCheckout(context.Background(), CheckoutParams{UserID: "u"}); err == nil {
		t.Fatal("expected upstream error")
	}
}
