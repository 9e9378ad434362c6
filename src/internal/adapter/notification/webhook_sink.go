package notification

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/api-sage/ledger-transfer-engine/src/internal/domain"
	"golang.org/x/time/rate"
)

const (
	SignatureHeader = "X-Ledger-Signature"
	userAgent       = "ledger-transfer-engine-webhook/1.0"
)

// WebhookPayload is the JSON body POSTed for every settled transaction.
type WebhookPayload struct {
	TransactionID string `json:"transactionId"`
	SenderID      string `json:"senderId"`
	ReceiverID    string `json:"receiverId"`
	Amount        string `json:"amount"`
	State         string `json:"state"`
	Success       bool   `json:"success"`
	Reason        string `json:"reason,omitempty"`
	SentAt        string `json:"sentAt"`
}

// WebhookSink POSTs outcomes to a single URL. Deliveries are rate limited so a
// burst of settlements cannot flood the receiver; when a secret is set the
// body is signed with HMAC-SHA256.
type WebhookSink struct {
	url     string
	secret  []byte
	client  *http.Client
	limiter *rate.Limiter
	clock   func() time.Time
}

func NewWebhookSink(url, secret string, perSecond float64) *WebhookSink {
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}

	return &WebhookSink{
		url:     url,
		secret:  []byte(secret),
		client:  &http.Client{Timeout: 5 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		clock:   time.Now,
	}
}

func (s *WebhookSink) Notify(ctx context.Context, outcome domain.TransferOutcome) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("webhook rate limit: %w", err)
	}

	body, err := json.Marshal(WebhookPayload{
		TransactionID: outcome.TransactionID,
		SenderID:      outcome.SenderID,
		ReceiverID:    outcome.ReceiverID,
		Amount:        outcome.Amount.String(),
		State:         string(outcome.State),
		Success:       outcome.Succeeded(),
		Reason:        outcome.Reason,
		SentAt:        s.clock().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if len(s.secret) > 0 {
		req.Header.Set(SignatureHeader, Sign(s.secret, body))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook receiver returned status %d", resp.StatusCode)
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of body under secret, prefixed "sha256=".
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
