package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	lemonsqueezywebhook "github.com/omarvides/restyle-backend/internal/webhooks/lemonsqueezy"
)

func TestLemonSqueezyWebhook_SuccessAndIdempotent(t *testing.T) {
	payload := buildEventPayload("subscription_created", "evt-100")
	header := buildSignature(payload, "secret")
	service := &fakeWebhookService{}
	guard := newGuard(t)
	handler := LemonSqueezyWebhook(service, &fakeSigningClient{secret: "secret"}, guard, nil)

	rec := postWebhook(handler, payload, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if service.calls != 1 {
		t.Fatalf("expected service called once, got %d", service.calls)
	}
	if service.lastEvent == nil || !bytes.Equal(service.lastEvent.Raw, payload) {
		t.Fatalf("expected raw payload attached to event")
	}

	rec2 := postWebhook(handler, payload, header)
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200 on duplicate, got %d", rec2.Code)
	}
	if service.calls != 1 {
		t.Fatalf("duplicate should not increment calls, got %d", service.calls)
	}
}

func TestLemonSqueezyWebhook_InvalidSignature(t *testing.T) {
	payload := buildEventPayload("subscription_created", "evt-no")
	service := &fakeWebhookService{}
	handler := LemonSqueezyWebhook(service, &fakeSigningClient{secret: "secret"}, newGuard(t), nil)

	rec := postWebhook(handler, payload, "deadbeef")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid signature, got %d", rec.Code)
	}
	if service.calls != 0 {
		t.Fatalf("service must not run on invalid signature")
	}
}

func TestLemonSqueezyWebhook_MissingSignature(t *testing.T) {
	payload := buildEventPayload("order_created", "evt-miss")
	service := &fakeWebhookService{}
	handler := LemonSqueezyWebhook(service, &fakeSigningClient{secret: "secret"}, newGuard(t), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/lemonsqueezy", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for missing signature, got %d", rec.Code)
	}
}

func TestLemonSqueezyWebhook_TamperedPayloadRejected(t *testing.T) {
	payload := buildEventPayload("subscription_updated", "evt-tamper")
	header := buildSignature(payload, "secret")
	service := &fakeWebhookService{}
	handler := LemonSqueezyWebhook(service, &fakeSigningClient{secret: "secret"}, newGuard(t), nil)

	// Flip one byte of the body; a signature over the original must fail.
	tampered := append([]byte(nil), payload...)
	tampered[len(tampered)/2] ^= 0x01

	rec := postWebhook(handler, tampered, header)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for tampered payload, got %d", rec.Code)
	}
	if service.calls != 0 {
		t.Fatalf("service must not run on tampered payload")
	}
}

func TestLemonSqueezyWebhook_HandlerFailureReleasesGuard(t *testing.T) {
	payload := buildEventPayload("subscription_created", "evt-retry")
	header := buildSignature(payload, "secret")
	service := &fakeWebhookService{failFirst: true}
	handler := LemonSqueezyWebhook(service, &fakeSigningClient{secret: "secret"}, newGuard(t), nil)

	rec := postWebhook(handler, payload, header)
	if rec.Code == http.StatusOK {
		t.Fatalf("expected failure status on first delivery, got %d", rec.Code)
	}

	rec2 := postWebhook(handler, payload, header)
	if rec2.Code != http.StatusOK {
		t.Fatalf("retry after failure should succeed, got %d", rec2.Code)
	}
	if service.calls != 2 {
		t.Fatalf("expected handler re-invoked on retry, got %d calls", service.calls)
	}
}

func postWebhook(handler http.HandlerFunc, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/lemonsqueezy", bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set("X-Signature", signature)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func newGuard(t *testing.T) *lemonsqueezywebhook.IdempotencyGuard {
	t.Helper()
	guard, err := lemonsqueezywebhook.NewIdempotencyGuard(newInMemoryStore(), time.Minute, "lemonsqueezy-webhook")
	if err != nil {
		t.Fatalf("guard setup: %v", err)
	}
	return guard
}

func buildEventPayload(eventName, dataID string) []byte {
	return []byte(fmt.Sprintf(`{
		"meta": {"event_name": %q, "custom_data": {"user_id": "7f4c2a1e-0000-4000-8000-000000000001"}},
		"data": {"type": "subscriptions", "id": %q, "attributes": {"status": "active", "customer_id": 987}}
	}`, eventName, dataID))
}

func buildSignature(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

type fakeWebhookService struct {
	calls     int
	failFirst bool
	lastEvent *lemonsqueezywebhook.Event
}

func (f *fakeWebhookService) HandleEvent(ctx context.Context, event *lemonsqueezywebhook.Event) error {
	f.calls++
	f.lastEvent = event
	if f.failFirst && f.calls == 1 {
		return fmt.Errorf("transient failure")
	}
	return nil
}

type fakeSigningClient struct {
	secret string
}

func (c *fakeSigningClient) SigningSecret() string {
	return c.secret
}

type inMemoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newInMemoryStore() *inMemoryStore {
	return &inMemoryStore{data: make(map[string]string)}
}

func (s *inMemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
}

func (s *inMemoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[key]; exists {
		return false, nil
	}
	s.data[key] = fmt.Sprintf("%v", value)
	return true, nil
}

func (s *inMemoryStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("restyle:idempotency:%s:%s", scope, id)
}

func (s *inMemoryStore) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}
